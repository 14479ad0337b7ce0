package repository

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/pixelvault/marketplace/internal/domain"
)

// PlanRepository persists pricing plans.
type PlanRepository interface {
	Create(ctx context.Context, plan *domain.PricingPlan) error
	Update(ctx context.Context, plan *domain.PricingPlan) error
	GetByID(ctx context.Context, id string) (*domain.PricingPlan, error)
	List(ctx context.Context, activeOnly bool) ([]domain.PricingPlan, error)
	Delete(ctx context.Context, id string) error
}

type planRepository struct {
	pool *pgxpool.Pool
}

// NewPlanRepository instantiates repository.
func NewPlanRepository(pool *pgxpool.Pool) PlanRepository {
	return &planRepository{pool: pool}
}

const planColumns = `id, name, price, currency, duration_days, features, active, created_at, updated_at`

func scanPlan(row rowScanner) (*domain.PricingPlan, error) {
	var plan domain.PricingPlan
	if err := row.Scan(
		&plan.ID,
		&plan.Name,
		&plan.Price,
		&plan.Currency,
		&plan.DurationDays,
		&plan.Features,
		&plan.Active,
		&plan.CreatedAt,
		&plan.UpdatedAt,
	); err != nil {
		return nil, err
	}
	return &plan, nil
}

func (r *planRepository) Create(ctx context.Context, plan *domain.PricingPlan) error {
	const query = `
        INSERT INTO pricing_plans (name, price, currency, duration_days, features, active)
        VALUES ($1,$2,$3,$4,$5,$6)
        RETURNING id, created_at, updated_at`
	return r.pool.QueryRow(ctx, query,
		plan.Name,
		plan.Price,
		plan.Currency,
		plan.DurationDays,
		plan.Features,
		plan.Active,
	).Scan(&plan.ID, &plan.CreatedAt, &plan.UpdatedAt)
}

func (r *planRepository) Update(ctx context.Context, plan *domain.PricingPlan) error {
	const query = `
        UPDATE pricing_plans SET name=$1, price=$2, currency=$3, duration_days=$4, features=$5, active=$6, updated_at=NOW()
        WHERE id=$7
        RETURNING updated_at`
	return r.pool.QueryRow(ctx, query,
		plan.Name,
		plan.Price,
		plan.Currency,
		plan.DurationDays,
		plan.Features,
		plan.Active,
		plan.ID,
	).Scan(&plan.UpdatedAt)
}

func (r *planRepository) GetByID(ctx context.Context, id string) (*domain.PricingPlan, error) {
	return scanPlan(r.pool.QueryRow(ctx, `SELECT `+planColumns+` FROM pricing_plans WHERE id=$1`, id))
}

func (r *planRepository) List(ctx context.Context, activeOnly bool) ([]domain.PricingPlan, error) {
	query := `SELECT ` + planColumns + ` FROM pricing_plans`
	if activeOnly {
		query += ` WHERE active`
	}
	query += ` ORDER BY price`

	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	plans := make([]domain.PricingPlan, 0)
	for rows.Next() {
		plan, err := scanPlan(rows)
		if err != nil {
			return nil, err
		}
		plans = append(plans, *plan)
	}
	return plans, rows.Err()
}

func (r *planRepository) Delete(ctx context.Context, id string) error {
	cmd, err := r.pool.Exec(ctx, `DELETE FROM pricing_plans WHERE id=$1`, id)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}
