package storage

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Monetary and quantity columns are unconstrained NUMERIC: the engine
// works in exact decimals and a fixed column scale would silently round
// on write, corrupting the compounding cost basis.
var schemaStatements = []string{
	`CREATE TABLE IF NOT EXISTS users (
		id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
		email TEXT NOT NULL UNIQUE,
		password_hash TEXT NOT NULL,
		nickname TEXT NOT NULL UNIQUE,
		role TEXT NOT NULL DEFAULT 'user',
		active BOOLEAN NOT NULL DEFAULT TRUE,
		created_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE TABLE IF NOT EXISTS virtual_accounts (
		id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
		user_id UUID NOT NULL UNIQUE REFERENCES users(id),
		base_cash NUMERIC NOT NULL DEFAULT 10000000.00 CHECK (base_cash >= 0),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE TABLE IF NOT EXISTS coins (
		id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
		symbol TEXT NOT NULL UNIQUE,
		name TEXT NOT NULL,
		enabled BOOLEAN NOT NULL DEFAULT TRUE,
		price_source_id TEXT
	)`,
	`CREATE TABLE IF NOT EXISTS account_balances (
		id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
		account_id UUID NOT NULL REFERENCES virtual_accounts(id),
		coin_id UUID NOT NULL REFERENCES coins(id),
		amount NUMERIC NOT NULL DEFAULT 0 CHECK (amount >= 0),
		avg_buy_price NUMERIC NOT NULL DEFAULT 0,
		updated_at TIMESTAMPTZ NOT NULL DEFAULT now(),
		UNIQUE (account_id, coin_id)
	)`,
	`CREATE TABLE IF NOT EXISTS price_snapshots (
		id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
		coin_id UUID NOT NULL REFERENCES coins(id),
		price NUMERIC NOT NULL,
		volume_24h NUMERIC(30,2) NOT NULL DEFAULT 0,
		high_24h NUMERIC(20,2) NOT NULL DEFAULT 0,
		low_24h NUMERIC(20,2) NOT NULL DEFAULT 0,
		change_pct_24h NUMERIC(10,4) NOT NULL DEFAULT 0,
		market_cap NUMERIC(30,2) NOT NULL DEFAULT 0,
		captured_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE INDEX IF NOT EXISTS idx_price_snapshots_coin_captured
		ON price_snapshots (coin_id, captured_at DESC)`,
	`CREATE TABLE IF NOT EXISTS onchain_metrics (
		id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
		chain_name TEXT NOT NULL,
		block_number BIGINT NOT NULL,
		gas_price NUMERIC(30,0) NOT NULL,
		captured_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE INDEX IF NOT EXISTS idx_onchain_metrics_chain_captured
		ON onchain_metrics (chain_name, captured_at DESC)`,
	`CREATE TABLE IF NOT EXISTS orders (
		id UUID PRIMARY KEY,
		user_id UUID NOT NULL REFERENCES users(id),
		coin_id UUID NOT NULL REFERENCES coins(id),
		side TEXT NOT NULL CHECK (side IN ('BUY','SELL')),
		order_type TEXT NOT NULL CHECK (order_type IN ('MARKET','LIMIT')),
		requested_price NUMERIC NOT NULL,
		executed_price NUMERIC NOT NULL,
		quantity NUMERIC NOT NULL CHECK (quantity > 0),
		status TEXT NOT NULL CHECK (status IN ('PENDING','FILLED','FAILED')),
		created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
		filled_at TIMESTAMPTZ
	)`,
	`CREATE INDEX IF NOT EXISTS idx_orders_user_created
		ON orders (user_id, created_at DESC)`,
	`CREATE TABLE IF NOT EXISTS trades (
		id UUID PRIMARY KEY,
		order_id UUID NOT NULL UNIQUE REFERENCES orders(id),
		user_id UUID NOT NULL REFERENCES users(id),
		coin_id UUID NOT NULL REFERENCES coins(id),
		side TEXT NOT NULL CHECK (side IN ('BUY','SELL')),
		price NUMERIC NOT NULL,
		quantity NUMERIC NOT NULL,
		fee NUMERIC NOT NULL,
		total NUMERIC NOT NULL,
		created_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE TABLE IF NOT EXISTS nft_contracts (
		id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
		chain_name TEXT NOT NULL,
		address TEXT NOT NULL UNIQUE,
		name TEXT NOT NULL,
		symbol TEXT NOT NULL,
		created_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE TABLE IF NOT EXISTS nft_tokens (
		id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
		contract_id UUID NOT NULL REFERENCES nft_contracts(id),
		token_id TEXT NOT NULL,
		name TEXT NOT NULL,
		rarity TEXT NOT NULL DEFAULT '',
		image_url TEXT NOT NULL DEFAULT '',
		metadata_url TEXT NOT NULL DEFAULT '',
		price NUMERIC NOT NULL CHECK (price > 0),
		status TEXT NOT NULL CHECK (status IN ('VAULT','OWNED','LISTED','WITHDRAW_REQUESTED','WITHDRAWN')),
		current_owner TEXT,
		created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
		UNIQUE (contract_id, token_id)
	)`,
	`CREATE TABLE IF NOT EXISTS user_nft_inventories (
		id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
		user_id UUID NOT NULL REFERENCES users(id),
		nft_token_id UUID NOT NULL REFERENCES nft_tokens(id),
		purchase_price NUMERIC NOT NULL,
		status TEXT NOT NULL CHECK (status IN ('OWNED','LISTED','WITHDRAW_REQUESTED','SOLD')),
		acquired_at TIMESTAMPTZ NOT NULL DEFAULT now(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	// At most one active owner per token. Concurrent buyers race on this
	// index; the loser sees a unique violation.
	`CREATE UNIQUE INDEX IF NOT EXISTS idx_inventories_active_token
		ON user_nft_inventories (nft_token_id)
		WHERE status IN ('OWNED','LISTED','WITHDRAW_REQUESTED')`,
	`CREATE TABLE IF NOT EXISTS nft_withdrawal_requests (
		id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
		user_id UUID NOT NULL REFERENCES users(id),
		nft_token_id UUID NOT NULL REFERENCES nft_tokens(id),
		target_wallet TEXT NOT NULL,
		status TEXT NOT NULL CHECK (status IN ('PENDING','COMPLETED','FAILED')),
		tx_hash TEXT NOT NULL DEFAULT '',
		failure_reason TEXT NOT NULL DEFAULT '',
		requested_at TIMESTAMPTZ NOT NULL DEFAULT now(),
		completed_at TIMESTAMPTZ
	)`,
	`CREATE INDEX IF NOT EXISTS idx_withdrawals_status_requested
		ON nft_withdrawal_requests (status, requested_at)`,
	`CREATE TABLE IF NOT EXISTS nft_orders (
		id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
		seller_id UUID NOT NULL REFERENCES users(id),
		inventory_id UUID NOT NULL REFERENCES user_nft_inventories(id),
		nft_token_id UUID NOT NULL REFERENCES nft_tokens(id),
		price NUMERIC NOT NULL CHECK (price > 0),
		status TEXT NOT NULL CHECK (status IN ('ACTIVE','FILLED','CANCELLED')),
		created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
		filled_at TIMESTAMPTZ
	)`,
	`CREATE TABLE IF NOT EXISTS nft_trades (
		id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
		nft_order_id UUID NOT NULL REFERENCES nft_orders(id),
		seller_id UUID NOT NULL REFERENCES users(id),
		buyer_id UUID NOT NULL REFERENCES users(id),
		nft_token_id UUID NOT NULL REFERENCES nft_tokens(id),
		price NUMERIC NOT NULL,
		created_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE TABLE IF NOT EXISTS watchlists (
		id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
		user_id UUID NOT NULL REFERENCES users(id),
		coin_id UUID NOT NULL REFERENCES coins(id),
		created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
		UNIQUE (user_id, coin_id)
	)`,
}

// Migrate applies the schema idempotently. Statement order matters because
// of foreign keys.
func Migrate(ctx context.Context, pool *pgxpool.Pool) error {
	for _, stmt := range schemaStatements {
		if _, err := pool.Exec(ctx, stmt); err != nil {
			return err
		}
	}
	return nil
}
