package storage

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
)

func (s *Store) InsertSnapshot(ctx context.Context, snap PriceSnapshot) error {
	if snap.CoinID == uuid.Nil {
		return fmt.Errorf("coin_id is required")
	}
	if snap.Price.LessThanOrEqual(decimal.Zero) {
		return fmt.Errorf("price must be positive")
	}
	_, err := s.pool.Exec(ctx, `
		INSERT INTO price_snapshots (coin_id, price, volume_24h, high_24h, low_24h, change_pct_24h, market_cap)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`, snap.CoinID, snap.Price.String(), snap.Volume24h.String(), snap.High24h.String(),
		snap.Low24h.String(), snap.ChangePct24h.String(), snap.MarketCap.String())
	return err
}

func (s *Store) LatestSnapshot(ctx context.Context, coinID uuid.UUID) (*PriceSnapshot, error) {
	var snap PriceSnapshot
	var priceStr, volStr, highStr, lowStr, changeStr, capStr string
	row := s.pool.QueryRow(ctx, `
		SELECT id, coin_id, price::text, volume_24h::text, high_24h::text, low_24h::text,
		       change_pct_24h::text, market_cap::text, captured_at
		FROM price_snapshots
		WHERE coin_id = $1
		ORDER BY captured_at DESC
		LIMIT 1
	`, coinID)
	if err := row.Scan(&snap.ID, &snap.CoinID, &priceStr, &volStr, &highStr, &lowStr, &changeStr, &capStr, &snap.CapturedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	fields := []struct {
		dst *decimal.Decimal
		src string
	}{
		{&snap.Price, priceStr},
		{&snap.Volume24h, volStr},
		{&snap.High24h, highStr},
		{&snap.Low24h, lowStr},
		{&snap.ChangePct24h, changeStr},
		{&snap.MarketCap, capStr},
	}
	for _, f := range fields {
		val, err := decimal.NewFromString(f.src)
		if err != nil {
			return nil, fmt.Errorf("parse snapshot field: %w", err)
		}
		*f.dst = val
	}
	return &snap, nil
}

func (s *Store) InsertOnchainMetric(ctx context.Context, metric OnchainMetric) error {
	if metric.ChainName == "" {
		return fmt.Errorf("chain_name is required")
	}
	_, err := s.pool.Exec(ctx, `
		INSERT INTO onchain_metrics (chain_name, block_number, gas_price)
		VALUES ($1, $2, $3)
	`, metric.ChainName, metric.BlockNumber, metric.GasPrice.String())
	return err
}

func (s *Store) LatestOnchainMetric(ctx context.Context, chainName string) (*OnchainMetric, error) {
	var metric OnchainMetric
	var gasStr string
	row := s.pool.QueryRow(ctx, `
		SELECT id, chain_name, block_number, gas_price::text, captured_at
		FROM onchain_metrics
		WHERE chain_name = $1
		ORDER BY captured_at DESC
		LIMIT 1
	`, chainName)
	if err := row.Scan(&metric.ID, &metric.ChainName, &metric.BlockNumber, &gasStr, &metric.CapturedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	var err error
	if metric.GasPrice, err = decimal.NewFromString(gasStr); err != nil {
		return nil, fmt.Errorf("parse gas price: %w", err)
	}
	return &metric, nil
}
