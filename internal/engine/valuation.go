package engine

import (
	"context"
	"errors"
	"log/slog"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/heodongun/DongunCoinHub/internal/storage"
)

const plPercentScale = 2

// ValuationStore is the read-only slice of the ledger store the valuation
// needs.
type ValuationStore interface {
	GetAccountByUser(ctx context.Context, userID uuid.UUID) (*storage.VirtualAccount, error)
	GetBalances(ctx context.Context, accountID uuid.UUID) ([]storage.CoinBalance, error)
	GetCoinByID(ctx context.Context, coinID uuid.UUID) (*storage.Coin, error)
}

type Holding struct {
	Symbol        string          `json:"symbol"`
	Amount        decimal.Decimal `json:"amount"`
	AvgBuyPrice   decimal.Decimal `json:"avgBuyPrice"`
	CurrentPrice  decimal.Decimal `json:"currentPrice"`
	Value         decimal.Decimal `json:"value"`
	Cost          decimal.Decimal `json:"cost"`
	ProfitLoss    decimal.Decimal `json:"profitLoss"`
	ProfitLossPct decimal.Decimal `json:"profitLossPct"`
}

type AccountSummary struct {
	UserID          uuid.UUID       `json:"userId"`
	BaseCash        decimal.Decimal `json:"baseCash"`
	TotalAssetValue decimal.Decimal `json:"totalAssetValue"`
	CoinCount       int             `json:"coinCount"`
	Holdings        []Holding       `json:"holdings"`
}

// Valuation aggregates cash plus priced holdings into a point-in-time
// summary. Pure read; safe to call concurrently.
type Valuation struct {
	store  ValuationStore
	prices PriceResolver
	logger *slog.Logger
}

func NewValuation(store ValuationStore, prices PriceResolver, logger *slog.Logger) *Valuation {
	if logger == nil {
		logger = slog.Default()
	}
	return &Valuation{store: store, prices: prices, logger: logger}
}

// Summarize values every non-zero holding at the current price. Holdings
// whose price cannot be resolved are omitted rather than failing the
// whole summary.
func (v *Valuation) Summarize(ctx context.Context, userID uuid.UUID) (*AccountSummary, error) {
	acct, err := v.store.GetAccountByUser(ctx, userID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, notFound("virtual account not found")
		}
		return nil, err
	}

	balances, err := v.store.GetBalances(ctx, acct.ID)
	if err != nil {
		return nil, err
	}

	summary := AccountSummary{
		UserID:          userID,
		BaseCash:        acct.BaseCash,
		TotalAssetValue: acct.BaseCash,
		Holdings:        []Holding{},
	}

	for _, bal := range balances {
		coin, err := v.store.GetCoinByID(ctx, bal.CoinID)
		if err != nil {
			v.logger.Warn("coin lookup failed during valuation", "coin_id", bal.CoinID.String(), "error", err)
			continue
		}
		price, err := v.prices.CurrentPrice(ctx, *coin)
		if err != nil {
			v.logger.Debug("skipping unpriceable holding", "symbol", coin.Symbol)
			continue
		}

		value := bal.Amount.Mul(price)
		cost := bal.Amount.Mul(bal.AvgBuyPrice)
		pl := value.Sub(cost)
		plPct := decimal.Zero
		if cost.GreaterThan(decimal.Zero) {
			plPct = pl.Mul(decimal.NewFromInt(100)).DivRound(cost, plPercentScale)
		}

		summary.Holdings = append(summary.Holdings, Holding{
			Symbol:        coin.Symbol,
			Amount:        bal.Amount,
			AvgBuyPrice:   bal.AvgBuyPrice,
			CurrentPrice:  price,
			Value:         value,
			Cost:          cost,
			ProfitLoss:    pl,
			ProfitLossPct: plPct,
		})
		summary.TotalAssetValue = summary.TotalAssetValue.Add(value)
	}

	summary.CoinCount = len(summary.Holdings)
	return &summary, nil
}
