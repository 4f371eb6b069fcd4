// Package testutil holds helpers for database-backed tests. Tests that
// use SetupTestDB must skip unless COINHUB_TEST_DB is set.
package testutil

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

func SetupTestDB() (*pgxpool.Pool, error) {
	dsn := fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=%s",
		getEnv("POSTGRES_USER", "coinhub"),
		getEnv("POSTGRES_PASSWORD", "coinhub"),
		getEnv("POSTGRES_HOST", "localhost"),
		getEnv("POSTGRES_PORT", "5432"),
		getEnv("POSTGRES_DB", "coinhub_test"),
		getEnv("POSTGRES_SSLMODE", "disable"),
	)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("connect db: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping db: %w", err)
	}

	return pool, nil
}

// CleanupTestData wipes mutable rows between tests. Deletion order follows
// the foreign keys.
func CleanupTestData(ctx context.Context, pool *pgxpool.Pool) error {
	queries := []string{
		"DELETE FROM nft_trades",
		"DELETE FROM nft_withdrawal_requests",
		"DELETE FROM nft_orders",
		"DELETE FROM user_nft_inventories",
		"DELETE FROM nft_tokens",
		"DELETE FROM nft_contracts",
		"DELETE FROM trades",
		"DELETE FROM orders",
		"DELETE FROM watchlists",
		"DELETE FROM account_balances",
		"DELETE FROM onchain_metrics",
		"DELETE FROM price_snapshots",
		"DELETE FROM coins",
		"DELETE FROM virtual_accounts",
		"DELETE FROM users",
	}

	for _, q := range queries {
		if _, err := pool.Exec(ctx, q); err != nil {
			return fmt.Errorf("cleanup %q: %w", q, err)
		}
	}
	return nil
}

func getEnv(key, defaultValue string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultValue
}
