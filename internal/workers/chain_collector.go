package workers

import (
	"context"
	"log/slog"

	"github.com/shopspring/decimal"

	"github.com/heodongun/DongunCoinHub/internal/storage"
)

// ChainMetricsSource reads live chain head data.
type ChainMetricsSource interface {
	LatestBlock(ctx context.Context) (int64, error)
	GasPrice(ctx context.Context) (decimal.Decimal, error)
}

type MetricStore interface {
	InsertOnchainMetric(ctx context.Context, metric storage.OnchainMetric) error
}

// ChainCollector samples block height and gas price for one chain.
type ChainCollector struct {
	store     MetricStore
	source    ChainMetricsSource
	chainName string
	logger    *slog.Logger
}

func NewChainCollector(store MetricStore, source ChainMetricsSource, chainName string, logger *slog.Logger) *ChainCollector {
	if logger == nil {
		logger = slog.Default()
	}
	return &ChainCollector{store: store, source: source, chainName: chainName, logger: logger}
}

func (c *ChainCollector) Run(ctx context.Context) error {
	block, err := c.source.LatestBlock(ctx)
	if err != nil {
		return err
	}
	gas, err := c.source.GasPrice(ctx)
	if err != nil {
		return err
	}
	return c.store.InsertOnchainMetric(ctx, storage.OnchainMetric{
		ChainName:   c.chainName,
		BlockNumber: block,
		GasPrice:    gas,
	})
}
