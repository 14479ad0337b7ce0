package repository

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/pixelvault/marketplace/internal/domain"
)

// SettingsRepository reads and writes the singleton settings row.
type SettingsRepository interface {
	Get(ctx context.Context) (*domain.Settings, error)
	Update(ctx context.Context, settings *domain.Settings) error
}

type settingsRepository struct {
	pool *pgxpool.Pool
}

// NewSettingsRepository instantiates repository.
func NewSettingsRepository(pool *pgxpool.Pool) SettingsRepository {
	return &settingsRepository{pool: pool}
}

func (r *settingsRepository) Get(ctx context.Context) (*domain.Settings, error) {
	var s domain.Settings
	err := r.pool.QueryRow(ctx, `
        SELECT site_name, support_email, logo_url, maintenance_mode, updated_at
        FROM settings WHERE id=1`).Scan(&s.SiteName, &s.SupportEmail, &s.LogoURL, &s.MaintenanceMode, &s.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &s, nil
}

func (r *settingsRepository) Update(ctx context.Context, s *domain.Settings) error {
	const query = `
        INSERT INTO settings (id, site_name, support_email, logo_url, maintenance_mode, updated_at)
        VALUES (1, $1, $2, $3, $4, NOW())
        ON CONFLICT (id) DO UPDATE SET site_name=EXCLUDED.site_name, support_email=EXCLUDED.support_email,
            logo_url=EXCLUDED.logo_url, maintenance_mode=EXCLUDED.maintenance_mode, updated_at=NOW()
        RETURNING updated_at`
	return r.pool.QueryRow(ctx, query, s.SiteName, s.SupportEmail, s.LogoURL, s.MaintenanceMode).Scan(&s.UpdatedAt)
}
