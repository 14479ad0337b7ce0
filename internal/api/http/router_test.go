package http

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	stdhttp "net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/jackc/pgx/v5"
	"golang.org/x/crypto/bcrypt"

	"github.com/pixelvault/marketplace/internal/api/http/handlers"
	"github.com/pixelvault/marketplace/internal/auth"
	"github.com/pixelvault/marketplace/internal/domain"
	"github.com/pixelvault/marketplace/internal/repository"
	"github.com/pixelvault/marketplace/internal/service"
	"github.com/pixelvault/marketplace/internal/session"
	"github.com/pixelvault/marketplace/internal/storage"
)

// stubUsers implements the account lookups the router tests exercise.
type stubUsers struct {
	repository.UserRepository

	mu      sync.Mutex
	byID    map[string]*domain.User
	creates int
}

func newStubUsers(users ...*domain.User) *stubUsers {
	s := &stubUsers{byID: map[string]*domain.User{}}
	for _, u := range users {
		s.byID[u.ID] = u
	}
	return s
}

func (s *stubUsers) Create(_ context.Context, user *domain.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.creates++
	user.ID = fmt.Sprintf("user-%d", len(s.byID)+1)
	copied := *user
	s.byID[user.ID] = &copied
	return nil
}

func (s *stubUsers) GetByID(_ context.Context, id string) (*domain.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if u, ok := s.byID[id]; ok {
		copied := *u
		return &copied, nil
	}
	return nil, pgx.ErrNoRows
}

func (s *stubUsers) GetByEmail(_ context.Context, email string) (*domain.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, u := range s.byID {
		if strings.EqualFold(u.Email, email) {
			copied := *u
			return &copied, nil
		}
	}
	return nil, pgx.ErrNoRows
}

func (s *stubUsers) List(_ context.Context, _, _ int) ([]domain.User, int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]domain.User, 0, len(s.byID))
	for _, u := range s.byID {
		out = append(out, *u)
	}
	return out, int64(len(out)), nil
}

func (s *stubUsers) UpdateRole(_ context.Context, id string, role domain.Role) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.byID[id]
	if !ok {
		return pgx.ErrNoRows
	}
	u.Role = role
	return nil
}

func (s *stubUsers) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.byID[id]; !ok {
		return pgx.ErrNoRows
	}
	delete(s.byID, id)
	return nil
}

type stubSessions struct {
	mu      sync.Mutex
	byID    map[string]*domain.Session
	down    bool
	deleted []string
}

func (s *stubSessions) Create(_ context.Context, userID string, role domain.Role) (*domain.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess := &domain.Session{ID: fmt.Sprintf("sess-%d", len(s.byID)+1), UserID: userID, Role: string(role), ExpiresAt: time.Now().Add(time.Hour)}
	s.byID[sess.ID] = sess
	return sess, nil
}

func (s *stubSessions) Lookup(_ context.Context, id string) (*domain.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.down {
		return nil, errors.New("connection refused")
	}
	if sess, ok := s.byID[id]; ok {
		return sess, nil
	}
	return nil, session.ErrNotFound
}

func (s *stubSessions) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.deleted = append(s.deleted, id)
	delete(s.byID, id)
	return nil
}

type testServer struct {
	app      *fiber.App
	users    *stubUsers
	sessions *stubSessions
	codec    *auth.TokenCodec
	images   *stubImages
	txns     *stubTransactions
	settings *stubSettings
}

func newTestServer(t *testing.T, users ...*domain.User) *testServer {
	t.Helper()
	repo := newStubUsers(users...)
	sessions := &stubSessions{byID: map[string]*domain.Session{}}
	codec := auth.NewTokenCodec("router-test-secret")
	cookies := auth.CookieSettings{SessionCookieName: "session-token"}

	authService := service.NewAuthService(service.AuthDependencies{
		UserRepo:   repo,
		Sessions:   sessions,
		Codec:      codec,
		BcryptCost: bcrypt.MinCost,
	})
	resolver := auth.NewResolver(nil, nil,
		auth.NewTokenStrategy(codec),
		auth.NewSessionStrategy(sessions, cookies.SessionCookieName),
	)

	files, err := storage.NewLocalStore(t.TempDir(), "/uploads")
	if err != nil {
		t.Fatalf("storage: %v", err)
	}
	images := &stubImages{byID: map[string]*domain.Image{}}
	txns := &stubTransactions{byOrder: map[string]*domain.Transaction{}}
	settings := &stubSettings{}

	app := fiber.New()
	RegisterMiddlewares(app, MiddlewareConfig{})
	RegisterRoutes(app, RouteConfig{
		Health:  handlers.NewHealthHandler("marketplace", "test", nil),
		Account: handlers.NewAccountHandler(authService, cookies),
		Catalog: handlers.NewCatalogHandler(service.NewCatalogService(service.CatalogDependencies{
			ImageRepo: images,
			UserRepo:  repo,
			Files:     files,
		})),
		Billing: handlers.NewBillingHandler(service.NewBillingService(service.BillingDependencies{
			TransactionRepo: txns,
			UserRepo:        repo,
			Gateway:         stubGateway{secret: gatewaySecret},
		})),
		Admin:          handlers.NewAdminHandler(service.NewUserService(repo), nil),
		Settings:       handlers.NewSettingsHandler(service.NewSettingsService(settings)),
		AuthMiddleware: auth.NewMiddleware(resolver),
	})
	return &testServer{app: app, users: repo, sessions: sessions, codec: codec, images: images, txns: txns, settings: settings}
}

func (s *testServer) bearer(t *testing.T, req *stdhttp.Request, userID string, role domain.Role) *stdhttp.Request {
	t.Helper()
	token, _, err := s.codec.Issue(userID, role)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	req.Header.Set(fiber.HeaderAuthorization, "Bearer "+token)
	return req
}

func (s *testServer) do(t *testing.T, req *stdhttp.Request) (*stdhttp.Response, map[string]any) {
	t.Helper()
	resp, err := s.app.Test(req, -1)
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	body := map[string]any{}
	if resp.Header.Get(fiber.HeaderContentType) != "" {
		_ = json.NewDecoder(resp.Body).Decode(&body)
	}
	return resp, body
}

func jsonRequest(method, target, body string) *stdhttp.Request {
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	req.Header.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
	return req
}

func hashed(t *testing.T, password string) string {
	t.Helper()
	hash, err := auth.HashPassword(password, bcrypt.MinCost)
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	return hash
}

func findCookie(resp *stdhttp.Response, name string) *stdhttp.Cookie {
	for _, c := range resp.Cookies() {
		if c.Name == name {
			return c
		}
	}
	return nil
}

func TestSignupCreatesUser(t *testing.T) {
	srv := newTestServer(t)
	resp, body := srv.do(t, jsonRequest(fiber.MethodPost, "/signup", `{"name":"Ada","email":"ada@example.com","password":"secret1"}`))
	if resp.StatusCode != fiber.StatusCreated {
		t.Fatalf("expected 201, got %d: %v", resp.StatusCode, body)
	}
	if body["success"] != true {
		t.Fatalf("expected success envelope, got %v", body)
	}
	user, _ := body["user"].(map[string]any)
	if user["email"] != "ada@example.com" {
		t.Fatalf("unexpected user payload: %v", user)
	}
	if _, leaked := user["passwordHash"]; leaked {
		t.Fatal("password hash must not be serialized")
	}
}

func TestSignupDuplicateEmailDoesNotWrite(t *testing.T) {
	srv := newTestServer(t, &domain.User{ID: "u1", Email: "ada@example.com", Role: domain.RoleUser})
	resp, body := srv.do(t, jsonRequest(fiber.MethodPost, "/signup", `{"name":"Ada","email":"ADA@example.com","password":"secret1"}`))
	if resp.StatusCode != fiber.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.StatusCode)
	}
	if body["success"] != false || body["code"] != "VALIDATION_FAILED" || body["error"] == "" {
		t.Fatalf("unexpected error envelope: %v", body)
	}
	if srv.users.creates != 0 {
		t.Fatalf("expected no write, got %d creates", srv.users.creates)
	}
}

func TestSignupMissingFields(t *testing.T) {
	srv := newTestServer(t)
	resp, body := srv.do(t, jsonRequest(fiber.MethodPost, "/signup", `{"email":"ada@example.com"}`))
	if resp.StatusCode != fiber.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.StatusCode)
	}
	if _, ok := body["details"]; !ok {
		t.Fatalf("expected missing field details, got %v", body)
	}
}

func TestLoginSetsCredentialCookie(t *testing.T) {
	srv := newTestServer(t, &domain.User{
		ID: "u1", Email: "ada@example.com", PasswordHash: hashed(t, "secret1"),
		Role: domain.RoleUser, Provider: domain.ProviderPassword,
	})
	resp, body := srv.do(t, jsonRequest(fiber.MethodPost, "/login", `{"email":"ada@example.com","password":"secret1"}`))
	if resp.StatusCode != fiber.StatusOK {
		t.Fatalf("expected 200, got %d: %v", resp.StatusCode, body)
	}
	cookie := findCookie(resp, auth.TokenCookieName)
	if cookie == nil || cookie.Value == "" || !cookie.HttpOnly {
		t.Fatalf("expected http-only token cookie, got %+v", cookie)
	}
	if body["token"] != cookie.Value {
		t.Fatal("body token should match cookie")
	}
	claims, err := srv.codec.Verify(cookie.Value)
	if err != nil || claims.SubjectID() != "u1" {
		t.Fatalf("cookie should carry a valid credential for u1: %v", err)
	}
}

func TestLoginRejectsBadPassword(t *testing.T) {
	srv := newTestServer(t, &domain.User{
		ID: "u1", Email: "ada@example.com", PasswordHash: hashed(t, "secret1"),
		Role: domain.RoleUser, Provider: domain.ProviderPassword,
	})
	resp, body := srv.do(t, jsonRequest(fiber.MethodPost, "/login", `{"email":"ada@example.com","password":"nope"}`))
	if resp.StatusCode != fiber.StatusUnauthorized || body["code"] != "UNAUTHENTICATED" {
		t.Fatalf("expected 401 envelope, got %d %v", resp.StatusCode, body)
	}
}

func TestLogoutClearsCookiesAndSession(t *testing.T) {
	srv := newTestServer(t)
	srv.sessions.byID["sess-9"] = &domain.Session{ID: "sess-9", UserID: "u1"}

	req := httptest.NewRequest(fiber.MethodPost, "/logout", nil)
	req.AddCookie(&stdhttp.Cookie{Name: "session-token", Value: "sess-9"})
	resp, _ := srv.do(t, req)
	if resp.StatusCode != fiber.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	for _, name := range []string{auth.TokenCookieName, "session-token", auth.CSRFCookieName, auth.CallbackURLCookieName} {
		cookie := findCookie(resp, name)
		if cookie == nil || cookie.Value != "" {
			t.Fatalf("expected %s to be cleared, got %+v", name, cookie)
		}
	}
	if len(srv.sessions.deleted) != 1 || srv.sessions.deleted[0] != "sess-9" {
		t.Fatalf("expected session deleted, got %v", srv.sessions.deleted)
	}
}

func TestUserTokenReportsIdentity(t *testing.T) {
	srv := newTestServer(t, &domain.User{ID: "u1", Name: "Ada", Email: "ada@example.com", Role: domain.RoleUser})

	_, anon := srv.do(t, httptest.NewRequest(fiber.MethodGet, "/userToken", nil))
	if anon["isAuthenticated"] != false || anon["user"] != nil {
		t.Fatalf("expected anonymous result, got %v", anon)
	}

	token, _, err := srv.codec.Issue("u1", domain.RoleUser)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	req := httptest.NewRequest(fiber.MethodGet, "/userToken", nil)
	req.Header.Set(fiber.HeaderAuthorization, "Bearer "+token)
	_, body := srv.do(t, req)
	user, _ := body["user"].(map[string]any)
	if body["isAuthenticated"] != true || user["id"] != "u1" {
		t.Fatalf("expected authenticated u1, got %v", body)
	}
}

func TestUserTokenResolvesProviderSession(t *testing.T) {
	srv := newTestServer(t, &domain.User{ID: "u2", Email: "grace@example.com", Role: domain.RoleUser})
	srv.sessions.byID["sess-1"] = &domain.Session{ID: "sess-1", UserID: "u2", Role: "user"}

	req := httptest.NewRequest(fiber.MethodGet, "/userToken", nil)
	req.AddCookie(&stdhttp.Cookie{Name: "session-token", Value: "sess-1"})
	_, body := srv.do(t, req)
	if body["isAuthenticated"] != true {
		t.Fatalf("expected session identity, got %v", body)
	}
}

func TestSessionStoreOutageIsUpstreamError(t *testing.T) {
	srv := newTestServer(t)
	srv.sessions.down = true

	req := httptest.NewRequest(fiber.MethodGet, "/userToken", nil)
	req.AddCookie(&stdhttp.Cookie{Name: "session-token", Value: "sess-1"})
	resp, body := srv.do(t, req)
	if resp.StatusCode != fiber.StatusBadGateway || body["code"] != "UPSTREAM_ERROR" {
		t.Fatalf("expected 502 upstream error, got %d %v", resp.StatusCode, body)
	}
}

func TestAdminRoutesRequireAdminRole(t *testing.T) {
	srv := newTestServer(t, &domain.User{ID: "u1", Role: domain.RoleUser}, &domain.User{ID: "a1", Role: domain.RoleAdmin})

	resp, body := srv.do(t, httptest.NewRequest(fiber.MethodGet, "/admin/users", nil))
	if resp.StatusCode != fiber.StatusUnauthorized || body["code"] != "UNAUTHENTICATED" {
		t.Fatalf("expected 401, got %d %v", resp.StatusCode, body)
	}

	userToken, _, _ := srv.codec.Issue("u1", domain.RoleUser)
	req := httptest.NewRequest(fiber.MethodGet, "/admin/users", nil)
	req.Header.Set(fiber.HeaderAuthorization, "Bearer "+userToken)
	resp, body = srv.do(t, req)
	if resp.StatusCode != fiber.StatusForbidden || body["code"] != "FORBIDDEN" {
		t.Fatalf("expected 403, got %d %v", resp.StatusCode, body)
	}

	adminToken, _, _ := srv.codec.Issue("a1", domain.RoleAdmin)
	req = httptest.NewRequest(fiber.MethodGet, "/admin/users", nil)
	req.Header.Set(fiber.HeaderAuthorization, "Bearer "+adminToken)
	resp, body = srv.do(t, req)
	if resp.StatusCode != fiber.StatusOK {
		t.Fatalf("expected 200 for admin, got %d %v", resp.StatusCode, body)
	}
	if users, _ := body["users"].([]any); len(users) != 2 {
		t.Fatalf("expected 2 users, got %v", body["users"])
	}
}

func TestInvalidCredentialFallsThroughToAnonymous(t *testing.T) {
	srv := newTestServer(t)
	req := httptest.NewRequest(fiber.MethodPost, "/changePassword", strings.NewReader(`{}`))
	req.Header.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
	req.AddCookie(&stdhttp.Cookie{Name: auth.TokenCookieName, Value: "not-a-token"})
	resp, _ := srv.do(t, req)
	if resp.StatusCode != fiber.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", resp.StatusCode)
	}
}

func TestUnknownRouteUsesErrorEnvelope(t *testing.T) {
	srv := newTestServer(t)
	resp, body := srv.do(t, httptest.NewRequest(fiber.MethodGet, "/nope", nil))
	if resp.StatusCode != fiber.StatusNotFound {
		t.Fatalf("expected 404, got %d", resp.StatusCode)
	}
	if body["success"] != false || body["code"] != "NOT_FOUND" {
		t.Fatalf("unexpected envelope: %v", body)
	}
}

func TestHealthSkipsIdentityResolution(t *testing.T) {
	srv := newTestServer(t)
	srv.sessions.down = true

	req := httptest.NewRequest(fiber.MethodGet, "/health/live", nil)
	req.AddCookie(&stdhttp.Cookie{Name: "session-token", Value: "sess-1"})
	resp, _ := srv.do(t, req)
	if resp.StatusCode != fiber.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
}
