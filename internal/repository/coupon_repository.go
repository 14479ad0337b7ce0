package repository

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/pixelvault/marketplace/internal/domain"
)

// CouponRepository persists discount coupons.
type CouponRepository interface {
	Create(ctx context.Context, coupon *domain.Coupon) error
	GetByCode(ctx context.Context, code string) (*domain.Coupon, error)
	List(ctx context.Context) ([]domain.Coupon, error)
	Delete(ctx context.Context, id string) error
	// Redeem consumes one use. It returns pgx.ErrNoRows when the coupon is
	// inactive, expired or exhausted at the time of the update.
	Redeem(ctx context.Context, code string, now time.Time) error
}

type couponRepository struct {
	pool *pgxpool.Pool
}

// NewCouponRepository instantiates repository.
func NewCouponRepository(pool *pgxpool.Pool) CouponRepository {
	return &couponRepository{pool: pool}
}

const couponColumns = `id, code, discount_percent, usage_limit, used_count, expires_at, active, created_at`

func scanCoupon(row rowScanner) (*domain.Coupon, error) {
	var coupon domain.Coupon
	if err := row.Scan(
		&coupon.ID,
		&coupon.Code,
		&coupon.DiscountPercent,
		&coupon.UsageLimit,
		&coupon.UsedCount,
		&coupon.ExpiresAt,
		&coupon.Active,
		&coupon.CreatedAt,
	); err != nil {
		return nil, err
	}
	return &coupon, nil
}

func (r *couponRepository) Create(ctx context.Context, coupon *domain.Coupon) error {
	const query = `
        INSERT INTO coupons (code, discount_percent, usage_limit, expires_at, active)
        VALUES ($1,$2,$3,$4,$5)
        RETURNING id, used_count, created_at`
	return r.pool.QueryRow(ctx, query,
		coupon.Code,
		coupon.DiscountPercent,
		coupon.UsageLimit,
		coupon.ExpiresAt,
		coupon.Active,
	).Scan(&coupon.ID, &coupon.UsedCount, &coupon.CreatedAt)
}

func (r *couponRepository) GetByCode(ctx context.Context, code string) (*domain.Coupon, error) {
	return scanCoupon(r.pool.QueryRow(ctx, `SELECT `+couponColumns+` FROM coupons WHERE code=$1`, code))
}

func (r *couponRepository) List(ctx context.Context) ([]domain.Coupon, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+couponColumns+` FROM coupons ORDER BY created_at DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	coupons := make([]domain.Coupon, 0)
	for rows.Next() {
		coupon, err := scanCoupon(rows)
		if err != nil {
			return nil, err
		}
		coupons = append(coupons, *coupon)
	}
	return coupons, rows.Err()
}

func (r *couponRepository) Delete(ctx context.Context, id string) error {
	cmd, err := r.pool.Exec(ctx, `DELETE FROM coupons WHERE id=$1`, id)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *couponRepository) Redeem(ctx context.Context, code string, now time.Time) error {
	const query = `
        UPDATE coupons SET used_count = used_count + 1
        WHERE code=$1 AND active
          AND (expires_at IS NULL OR expires_at > $2)
          AND (usage_limit = 0 OR used_count < usage_limit)`
	cmd, err := r.pool.Exec(ctx, query, code, now)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}
