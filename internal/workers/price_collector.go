package workers

import (
	"context"
	"log/slog"

	"github.com/heodongun/DongunCoinHub/internal/pricing"
	"github.com/heodongun/DongunCoinHub/internal/storage"
)

// PriceStore is the collector's slice of the ledger store.
type PriceStore interface {
	ListEnabledCoins(ctx context.Context) ([]storage.Coin, error)
	InsertSnapshot(ctx context.Context, snap storage.PriceSnapshot) error
}

// TickerBroadcaster pushes refreshed quotes to websocket subscribers.
type TickerBroadcaster interface {
	Broadcast(payload any)
}

type TickerUpdate struct {
	Symbol       string `json:"symbol"`
	Price        string `json:"price"`
	ChangePct24h string `json:"changePct24h"`
}

// PriceCollector persists a snapshot per enabled coin each cycle. One
// coin's fetch failure never aborts the batch; coins without a price
// source are skipped.
type PriceCollector struct {
	store  PriceStore
	source pricing.QuoteSource
	hub    TickerBroadcaster
	logger *slog.Logger
}

func NewPriceCollector(store PriceStore, source pricing.QuoteSource, hub TickerBroadcaster, logger *slog.Logger) *PriceCollector {
	if logger == nil {
		logger = slog.Default()
	}
	return &PriceCollector{store: store, source: source, hub: hub, logger: logger}
}

func (c *PriceCollector) Run(ctx context.Context) error {
	coins, err := c.store.ListEnabledCoins(ctx)
	if err != nil {
		return err
	}

	var updates []TickerUpdate
	for _, coin := range coins {
		if coin.PriceSourceID == "" {
			continue
		}
		quote, err := c.source.FetchQuote(ctx, coin.PriceSourceID)
		if err != nil {
			c.logger.Warn("quote fetch failed", "symbol", coin.Symbol, "error", err)
			continue
		}
		snap := storage.PriceSnapshot{
			CoinID:       coin.ID,
			Price:        quote.Price,
			Volume24h:    quote.Volume24h,
			High24h:      quote.High24h,
			Low24h:       quote.Low24h,
			ChangePct24h: quote.ChangePct24h,
			MarketCap:    quote.MarketCap,
		}
		if err := c.store.InsertSnapshot(ctx, snap); err != nil {
			c.logger.Warn("snapshot insert failed", "symbol", coin.Symbol, "error", err)
			continue
		}
		updates = append(updates, TickerUpdate{
			Symbol:       coin.Symbol,
			Price:        quote.Price.String(),
			ChangePct24h: quote.ChangePct24h.String(),
		})
	}

	if c.hub != nil && len(updates) > 0 {
		c.hub.Broadcast(map[string]any{"type": "tickers", "tickers": updates})
	}
	return nil
}
