package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// ConnectDB initializes the Postgres connection pool and bootstraps the
// schema.
func ConnectDB(ctx context.Context, databaseURL string) (*pgxpool.Pool, error) {
	if databaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is not set")
	}

	cfg, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("unable to parse database URL: %w", err)
	}

	cfg.MaxConns = 10
	cfg.MinConns = 0
	cfg.MaxConnLifetime = time.Hour
	cfg.MaxConnIdleTime = 30 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("unable to create connection pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("unable to connect to database: %w", err)
	}

	if err := migrate(ctx, pool); err != nil {
		pool.Close()
		return nil, fmt.Errorf("schema bootstrap failed: %w", err)
	}

	return pool, nil
}

func migrate(ctx context.Context, pool *pgxpool.Pool) error {
	schema := `
		CREATE TABLE IF NOT EXISTS transactions (
			order_id          TEXT PRIMARY KEY,
			user_id           TEXT NOT NULL,
			first_name        TEXT NOT NULL DEFAULT '',
			email             TEXT NOT NULL DEFAULT '',
			phone             TEXT NOT NULL DEFAULT '',
			status            TEXT NOT NULL DEFAULT 'pending',
			payment_type      TEXT NOT NULL DEFAULT '',
			payment_detail    TEXT,
			gross_amount      BIGINT NOT NULL,
			base_amount       BIGINT NOT NULL,
			ppn               BIGINT NOT NULL,
			pju               BIGINT NOT NULL,
			admin_fee         BIGINT NOT NULL,
			kwh               NUMERIC(12,2) NOT NULL DEFAULT 0,
			transaction_time  TIMESTAMPTZ NOT NULL,
			created_at        TIMESTAMPTZ NOT NULL DEFAULT now(),
			updated_at        TIMESTAMPTZ NOT NULL DEFAULT now()
		);

		CREATE INDEX IF NOT EXISTS idx_tx_user ON transactions (user_id, transaction_time DESC);
		CREATE INDEX IF NOT EXISTS idx_tx_pending ON transactions (order_id) WHERE status = 'pending';
	`
	_, err := pool.Exec(ctx, schema)
	return err
}
