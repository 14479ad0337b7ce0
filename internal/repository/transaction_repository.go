package repository

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/pixelvault/marketplace/internal/domain"
)

// ErrTransactionSettled is returned when a status change targets a transaction that is already paid.
var ErrTransactionSettled = errors.New("transaction already paid")

// TransactionRepository persists payment attempts. SetStatus never changes a paid transaction.
type TransactionRepository interface {
	Create(ctx context.Context, txn *domain.Transaction) error
	GetByOrderID(ctx context.Context, orderID string) (*domain.Transaction, error)
	SetStatus(ctx context.Context, id string, status domain.TransactionStatus, paymentID *string) error
	ListByUser(ctx context.Context, userID string) ([]domain.Transaction, error)
	List(ctx context.Context, limit, offset int) ([]domain.Transaction, int64, error)
	Revenue(ctx context.Context) (int64, error)
	MonthlyPaid(ctx context.Context, since time.Time) ([]domain.MonthlyCount, error)
}

type transactionRepository struct {
	pool *pgxpool.Pool
}

// NewTransactionRepository instantiates repository.
func NewTransactionRepository(pool *pgxpool.Pool) TransactionRepository {
	return &transactionRepository{pool: pool}
}

const transactionColumns = `id, user_id, plan_id, coupon_code, amount, currency, gateway_order_id, gateway_payment_id, status, created_at, updated_at`

func scanTransaction(row rowScanner) (*domain.Transaction, error) {
	var txn domain.Transaction
	if err := row.Scan(
		&txn.ID,
		&txn.UserID,
		&txn.PlanID,
		&txn.CouponCode,
		&txn.Amount,
		&txn.Currency,
		&txn.GatewayOrderID,
		&txn.GatewayPaymentID,
		&txn.Status,
		&txn.CreatedAt,
		&txn.UpdatedAt,
	); err != nil {
		return nil, err
	}
	return &txn, nil
}

func collectTransactions(rows pgx.Rows) ([]domain.Transaction, error) {
	defer rows.Close()
	txns := make([]domain.Transaction, 0)
	for rows.Next() {
		txn, err := scanTransaction(rows)
		if err != nil {
			return nil, err
		}
		txns = append(txns, *txn)
	}
	return txns, rows.Err()
}

func (r *transactionRepository) Create(ctx context.Context, txn *domain.Transaction) error {
	const query = `
        INSERT INTO transactions (user_id, plan_id, coupon_code, amount, currency, gateway_order_id, status)
        VALUES ($1,$2,$3,$4,$5,$6,$7)
        RETURNING id, created_at, updated_at`
	return r.pool.QueryRow(ctx, query,
		txn.UserID,
		txn.PlanID,
		txn.CouponCode,
		txn.Amount,
		txn.Currency,
		txn.GatewayOrderID,
		txn.Status,
	).Scan(&txn.ID, &txn.CreatedAt, &txn.UpdatedAt)
}

func (r *transactionRepository) GetByOrderID(ctx context.Context, orderID string) (*domain.Transaction, error) {
	return scanTransaction(r.pool.QueryRow(ctx, `SELECT `+transactionColumns+` FROM transactions WHERE gateway_order_id=$1`, orderID))
}

func (r *transactionRepository) SetStatus(ctx context.Context, id string, status domain.TransactionStatus, paymentID *string) error {
	const query = `
        UPDATE transactions SET status=$1, gateway_payment_id=COALESCE($2, gateway_payment_id), updated_at=NOW()
        WHERE id=$3 AND status <> 'paid'`
	cmd, err := r.pool.Exec(ctx, query, status, paymentID, id)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() > 0 {
		return nil
	}
	var current domain.TransactionStatus
	if err := r.pool.QueryRow(ctx, `SELECT status FROM transactions WHERE id=$1`, id).Scan(&current); err != nil {
		return err
	}
	return ErrTransactionSettled
}

func (r *transactionRepository) ListByUser(ctx context.Context, userID string) ([]domain.Transaction, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+transactionColumns+` FROM transactions WHERE user_id=$1 ORDER BY created_at DESC`, userID)
	if err != nil {
		return nil, err
	}
	return collectTransactions(rows)
}

func (r *transactionRepository) List(ctx context.Context, limit, offset int) ([]domain.Transaction, int64, error) {
	var total int64
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM transactions`).Scan(&total); err != nil {
		return nil, 0, err
	}
	rows, err := r.pool.Query(ctx, `SELECT `+transactionColumns+` FROM transactions ORDER BY created_at DESC LIMIT $1 OFFSET $2`, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	txns, err := collectTransactions(rows)
	if err != nil {
		return nil, 0, err
	}
	return txns, total, nil
}

func (r *transactionRepository) Revenue(ctx context.Context) (int64, error) {
	var total int64
	err := r.pool.QueryRow(ctx, `SELECT COALESCE(SUM(amount), 0) FROM transactions WHERE status='paid'`).Scan(&total)
	return total, err
}

func (r *transactionRepository) MonthlyPaid(ctx context.Context, since time.Time) ([]domain.MonthlyCount, error) {
	const query = `
        SELECT date_trunc('month', created_at) AS month, COUNT(*), COALESCE(SUM(amount), 0)
        FROM transactions WHERE status='paid' AND created_at >= $1
        GROUP BY month ORDER BY month`
	rows, err := r.pool.Query(ctx, query, since)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var buckets []domain.MonthlyCount
	for rows.Next() {
		var bucket domain.MonthlyCount
		if err := rows.Scan(&bucket.Month, &bucket.Count, &bucket.Total); err != nil {
			return nil, err
		}
		buckets = append(buckets, bucket)
	}
	return buckets, rows.Err()
}
