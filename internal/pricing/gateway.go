package pricing

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/heodongun/DongunCoinHub/internal/storage"
)

var ErrPriceUnavailable = errors.New("price unavailable")

// Quote is a full market quote for one coin.
type Quote struct {
	Price        decimal.Decimal
	Volume24h    decimal.Decimal
	High24h      decimal.Decimal
	Low24h       decimal.Decimal
	ChangePct24h decimal.Decimal
	MarketCap    decimal.Decimal
	FetchedAt    time.Time
}

// QuoteSource fetches a live quote keyed by the coin's external price
// source id.
type QuoteSource interface {
	FetchQuote(ctx context.Context, sourceID string) (Quote, error)
}

// SnapshotStore is the persisted fallback when live pricing is down.
type SnapshotStore interface {
	LatestSnapshot(ctx context.Context, coinID uuid.UUID) (*storage.PriceSnapshot, error)
}

// Gateway resolves prices through cache, live source, then snapshot.
// Live-fetch failures are swallowed; only a fully exhausted chain
// surfaces ErrPriceUnavailable.
type Gateway struct {
	source    QuoteSource
	snapshots SnapshotStore
	cache     *quoteCache
	logger    *slog.Logger
}

func NewGateway(source QuoteSource, snapshots SnapshotStore, ttl time.Duration, logger *slog.Logger) *Gateway {
	if logger == nil {
		logger = slog.Default()
	}
	return &Gateway{
		source:    source,
		snapshots: snapshots,
		cache:     newQuoteCache(ttl),
		logger:    logger,
	}
}

// CurrentPrice resolves the execution price for a coin.
func (g *Gateway) CurrentPrice(ctx context.Context, coin storage.Coin) (decimal.Decimal, error) {
	quote, err := g.Ticker(ctx, coin)
	if err != nil {
		return decimal.Decimal{}, err
	}
	return quote.Price, nil
}

// Ticker resolves the full quote with the same fallback chain as
// CurrentPrice.
func (g *Gateway) Ticker(ctx context.Context, coin storage.Coin) (Quote, error) {
	if coin.PriceSourceID != "" {
		if quote, ok := g.cache.get(coin.PriceSourceID); ok {
			return quote, nil
		}
		if g.source != nil {
			quote, err := g.source.FetchQuote(ctx, coin.PriceSourceID)
			if err == nil && quote.Price.GreaterThan(decimal.Zero) {
				quote.FetchedAt = time.Now().UTC()
				g.cache.set(coin.PriceSourceID, quote)
				return quote, nil
			}
			if err != nil {
				g.logger.Debug("live quote fetch failed, falling back to snapshot",
					"symbol", coin.Symbol, "source_id", coin.PriceSourceID, "error", err)
			}
		}
	}

	snap, err := g.snapshots.LatestSnapshot(ctx, coin.ID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return Quote{}, ErrPriceUnavailable
		}
		return Quote{}, err
	}
	return Quote{
		Price:        snap.Price,
		Volume24h:    snap.Volume24h,
		High24h:      snap.High24h,
		Low24h:       snap.Low24h,
		ChangePct24h: snap.ChangePct24h,
		MarketCap:    snap.MarketCap,
		FetchedAt:    snap.CapturedAt,
	}, nil
}

type quoteCache struct {
	mu      sync.RWMutex
	ttl     time.Duration
	entries map[string]quoteCacheEntry
}

type quoteCacheEntry struct {
	quote   Quote
	expires time.Time
}

func newQuoteCache(ttl time.Duration) *quoteCache {
	if ttl <= 0 {
		ttl = 60 * time.Second
	}
	return &quoteCache{
		ttl:     ttl,
		entries: make(map[string]quoteCacheEntry),
	}
}

func (c *quoteCache) get(key string) (Quote, bool) {
	c.mu.RLock()
	entry, ok := c.entries[key]
	c.mu.RUnlock()
	if !ok || time.Now().After(entry.expires) {
		return Quote{}, false
	}
	return entry.quote, true
}

func (c *quoteCache) set(key string, quote Quote) {
	c.mu.Lock()
	c.entries[key] = quoteCacheEntry{quote: quote, expires: time.Now().Add(c.ttl)}
	c.mu.Unlock()
}
