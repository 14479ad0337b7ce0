package config

import (
	"testing"
	"time"
)

func TestLoadOverrides(t *testing.T) {
	t.Setenv("APP_PORT", "9090")
	t.Setenv("AUTH_JWT_SECRET", "test-secret")
	t.Setenv("REDIS_DB", "3")
	t.Setenv("SESSION_TTL_HOURS", "48")
	t.Setenv("POSTGRES_RUN_MIGRATIONS", "false")
	t.Setenv("STORAGE_PUBLIC_URL", "https://cdn.example.com/assets/")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.App.Port != "9090" {
		t.Fatalf("expected APP_PORT override, got %s", cfg.App.Port)
	}
	if cfg.Auth.JWTSecret != "test-secret" || cfg.Auth.SecretDefault {
		t.Fatalf("expected explicit secret, got %q default=%v", cfg.Auth.JWTSecret, cfg.Auth.SecretDefault)
	}
	if cfg.Redis.DB != 3 {
		t.Fatalf("expected REDIS_DB 3, got %d", cfg.Redis.DB)
	}
	if cfg.Session.TTL() != 48*time.Hour {
		t.Fatalf("expected session ttl 48h, got %s", cfg.Session.TTL())
	}
	if cfg.Postgres.RunMigrations {
		t.Fatalf("expected migrations disabled")
	}
	if cfg.Storage.PublicURL != "https://cdn.example.com/assets" {
		t.Fatalf("expected trailing slash trimmed, got %s", cfg.Storage.PublicURL)
	}
}

func TestLoadFallsBackToDevSecret(t *testing.T) {
	t.Setenv("AUTH_JWT_SECRET", "")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Auth.JWTSecret != DevJWTSecret || !cfg.Auth.SecretDefault {
		t.Fatalf("expected dev secret fallback, got %q", cfg.Auth.JWTSecret)
	}
}

func TestLoadRejectsBadRedisDB(t *testing.T) {
	t.Setenv("REDIS_DB", "abc")
	if _, err := Load(); err == nil {
		t.Fatalf("expected error for invalid REDIS_DB")
	}
}

func TestOIDCEnabled(t *testing.T) {
	if (OIDCConfig{}).Enabled() {
		t.Fatalf("empty config must be disabled")
	}
	if !(OIDCConfig{IssuerURL: "https://accounts.example.com", ClientID: "cid"}).Enabled() {
		t.Fatalf("expected enabled")
	}
}
