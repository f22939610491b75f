package storage

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/aryaranggads/powerpay/internal/core/domain"
)

// uniqueViolation is the Postgres error code for a unique constraint hit.
const uniqueViolation = "23505"

type TransactionRepository struct {
	db *pgxpool.Pool
}

func NewTransactionRepository(db *pgxpool.Pool) *TransactionRepository {
	return &TransactionRepository{db: db}
}

const txColumns = `
	order_id, user_id, first_name, email, phone, status,
	payment_type, COALESCE(payment_detail, ''),
	gross_amount, base_amount, ppn, pju, admin_fee, kwh::text,
	transaction_time, created_at, updated_at`

// Create inserts the pending record. The primary key on order_id makes
// registration idempotent: a reused order_id fails with
// domain.ErrDuplicateOrder and never produces a second row.
func (r *TransactionRepository) Create(ctx context.Context, tx *domain.Transaction) error {
	query := `
		INSERT INTO transactions (
			order_id, user_id, first_name, email, phone, status,
			gross_amount, base_amount, ppn, pju, admin_fee, kwh,
			transaction_time
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		RETURNING created_at, updated_at
	`
	err := r.db.QueryRow(ctx, query,
		tx.OrderID, tx.UserID, tx.FirstName, tx.Email, tx.Phone, string(tx.Status),
		tx.GrossAmount, tx.BaseAmount, tx.Tax1, tx.Tax2, tx.AdminFee,
		tx.ConsumptionUnits.String(), tx.TransactionTime,
	).Scan(&tx.CreatedAt, &tx.UpdatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return fmt.Errorf("%w: %s", domain.ErrDuplicateOrder, tx.OrderID)
		}
		return fmt.Errorf("insert transaction: %w", err)
	}
	return nil
}

func (r *TransactionRepository) FindByOrderID(ctx context.Context, orderID string) (*domain.Transaction, error) {
	row := r.db.QueryRow(ctx, `SELECT `+txColumns+` FROM transactions WHERE order_id = $1`, orderID)
	tx, err := scanTx(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", domain.ErrTransactionNotFound, orderID)
	}
	if err != nil {
		return nil, err
	}
	return tx, nil
}

// FindByUser lists a user's transactions, newest event first. An empty
// status means no filter.
func (r *TransactionRepository) FindByUser(ctx context.Context, userID string, status domain.Status) ([]domain.Transaction, error) {
	query := `SELECT ` + txColumns + ` FROM transactions WHERE user_id = $1`
	args := []any{userID}
	if status != "" {
		query += ` AND status = $2`
		args = append(args, string(status))
	}
	query += ` ORDER BY transaction_time DESC`

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}
	defer rows.Close()

	var out []domain.Transaction
	for rows.Next() {
		tx, err := scanTx(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *tx)
	}
	return out, rows.Err()
}

// UpdateStatus applies a gateway result and refreshes updated_at. Terminal
// statuses are sticky: the guard only lets a row move out of pending or
// re-apply the same value, so a stale poll result can never overwrite a
// newer terminal status.
func (r *TransactionRepository) UpdateStatus(ctx context.Context, orderID string, patch domain.StatusPatch) error {
	query := `
		UPDATE transactions
		SET status = $2, payment_type = $3, payment_detail = $4,
		    transaction_time = $5, updated_at = now()
		WHERE order_id = $1 AND (status = 'pending' OR status = $2)
	`
	tag, err := r.db.Exec(ctx, query,
		orderID, string(patch.Status), patch.PaymentType, patch.PaymentDetail, patch.TransactionTime)
	if err != nil {
		return fmt.Errorf("update transaction: %w", err)
	}
	if tag.RowsAffected() > 0 {
		return nil
	}

	var current string
	err = r.db.QueryRow(ctx, `SELECT status FROM transactions WHERE order_id = $1`, orderID).Scan(&current)
	if errors.Is(err, pgx.ErrNoRows) {
		return fmt.Errorf("%w: %s", domain.ErrTransactionNotFound, orderID)
	}
	if err != nil {
		return fmt.Errorf("update transaction: %w", err)
	}
	return fmt.Errorf("%w: %s is %s", domain.ErrTerminalState, orderID, current)
}

// ListPending pages pending rows by keyset cursor on order_id. The cursor
// column is immutable, so rows transitioning out of pending mid-scan are
// never skipped or revisited the way offset paging would.
func (r *TransactionRepository) ListPending(ctx context.Context, afterOrderID string, limit int) ([]domain.Transaction, error) {
	query := `
		SELECT ` + txColumns + `
		FROM transactions
		WHERE status = 'pending' AND order_id > $1
		ORDER BY order_id ASC
		LIMIT $2
	`
	rows, err := r.db.Query(ctx, query, afterOrderID, limit)
	if err != nil {
		return nil, fmt.Errorf("list pending: %w", err)
	}
	defer rows.Close()

	var out []domain.Transaction
	for rows.Next() {
		tx, err := scanTx(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *tx)
	}
	return out, rows.Err()
}

func scanTx(row pgx.Row) (*domain.Transaction, error) {
	var (
		tx     domain.Transaction
		status string
		kwh    string
	)
	err := row.Scan(
		&tx.OrderID, &tx.UserID, &tx.FirstName, &tx.Email, &tx.Phone, &status,
		&tx.PaymentType, &tx.PaymentDetail,
		&tx.GrossAmount, &tx.BaseAmount, &tx.Tax1, &tx.Tax2, &tx.AdminFee, &kwh,
		&tx.TransactionTime, &tx.CreatedAt, &tx.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	tx.Status = domain.Status(status)
	tx.ConsumptionUnits, err = decimal.NewFromString(kwh)
	if err != nil {
		return nil, fmt.Errorf("parse kwh: %w", err)
	}
	return &tx, nil
}
