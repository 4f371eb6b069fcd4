package engine

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"log/slog"

	"github.com/heodongun/DongunCoinHub/internal/storage"
)

type fakeValuationStore struct {
	account    *storage.VirtualAccount
	accountErr error
	balances   []storage.CoinBalance
	coins      map[uuid.UUID]*storage.Coin
}

func (f *fakeValuationStore) GetAccountByUser(ctx context.Context, userID uuid.UUID) (*storage.VirtualAccount, error) {
	if f.accountErr != nil {
		return nil, f.accountErr
	}
	return f.account, nil
}

func (f *fakeValuationStore) GetBalances(ctx context.Context, accountID uuid.UUID) ([]storage.CoinBalance, error) {
	return f.balances, nil
}

func (f *fakeValuationStore) GetCoinByID(ctx context.Context, coinID uuid.UUID) (*storage.Coin, error) {
	coin, ok := f.coins[coinID]
	if !ok {
		return nil, storage.ErrNotFound
	}
	return coin, nil
}

type perCoinPrices struct {
	prices map[string]decimal.Decimal
}

func (p *perCoinPrices) CurrentPrice(ctx context.Context, coin storage.Coin) (decimal.Decimal, error) {
	price, ok := p.prices[coin.Symbol]
	if !ok {
		return decimal.Decimal{}, errors.New("no price")
	}
	return price, nil
}

func TestSummarizeEmptyAccount(t *testing.T) {
	userID := uuid.New()
	store := &fakeValuationStore{
		account: &storage.VirtualAccount{ID: uuid.New(), UserID: userID, BaseCash: storage.StartingCash},
	}
	v := NewValuation(store, &perCoinPrices{}, slog.Default())

	summary, err := v.Summarize(context.Background(), userID)
	if err != nil {
		t.Fatalf("expected summary, got %v", err)
	}
	if !summary.TotalAssetValue.Equal(storage.StartingCash) {
		t.Fatalf("expected total %s, got %s", storage.StartingCash, summary.TotalAssetValue)
	}
	if summary.CoinCount != 0 {
		t.Fatalf("expected 0 coins, got %d", summary.CoinCount)
	}
	if summary.Holdings == nil {
		t.Fatalf("expected empty slice, not nil")
	}
}

func TestSummarizeMissingAccount(t *testing.T) {
	store := &fakeValuationStore{accountErr: storage.ErrNotFound}
	v := NewValuation(store, &perCoinPrices{}, slog.Default())
	_, err := v.Summarize(context.Background(), uuid.New())
	e, ok := AsEngineError(err)
	if !ok || e.Code != CodeNotFound {
		t.Fatalf("expected NOT_FOUND, got %v", err)
	}
}

func TestSummarizeValuesHoldings(t *testing.T) {
	userID := uuid.New()
	accountID := uuid.New()
	btcID := uuid.New()
	store := &fakeValuationStore{
		account: &storage.VirtualAccount{ID: accountID, UserID: userID, BaseCash: decimal.NewFromInt(500000)},
		balances: []storage.CoinBalance{
			{AccountID: accountID, CoinID: btcID, Amount: decimal.NewFromInt(2), AvgBuyPrice: decimal.NewFromInt(100000)},
		},
		coins: map[uuid.UUID]*storage.Coin{
			btcID: {ID: btcID, Symbol: "BTC", Enabled: true},
		},
	}
	prices := &perCoinPrices{prices: map[string]decimal.Decimal{"BTC": decimal.NewFromInt(150000)}}
	v := NewValuation(store, prices, slog.Default())

	summary, err := v.Summarize(context.Background(), userID)
	if err != nil {
		t.Fatalf("expected summary, got %v", err)
	}
	if summary.CoinCount != 1 {
		t.Fatalf("expected 1 coin, got %d", summary.CoinCount)
	}
	h := summary.Holdings[0]
	if !h.Value.Equal(decimal.NewFromInt(300000)) {
		t.Fatalf("expected value 300000, got %s", h.Value)
	}
	if !h.ProfitLoss.Equal(decimal.NewFromInt(100000)) {
		t.Fatalf("expected pl 100000, got %s", h.ProfitLoss)
	}
	if !h.ProfitLossPct.Equal(decimal.NewFromInt(50)) {
		t.Fatalf("expected pl pct 50, got %s", h.ProfitLossPct)
	}
	if !summary.TotalAssetValue.Equal(decimal.NewFromInt(800000)) {
		t.Fatalf("expected total 800000, got %s", summary.TotalAssetValue)
	}
}

func TestSummarizeSkipsUnpriceableHolding(t *testing.T) {
	userID := uuid.New()
	accountID := uuid.New()
	btcID := uuid.New()
	junkID := uuid.New()
	store := &fakeValuationStore{
		account: &storage.VirtualAccount{ID: accountID, UserID: userID, BaseCash: decimal.NewFromInt(1000)},
		balances: []storage.CoinBalance{
			{AccountID: accountID, CoinID: btcID, Amount: decimal.NewFromInt(1), AvgBuyPrice: decimal.NewFromInt(100)},
			{AccountID: accountID, CoinID: junkID, Amount: decimal.NewFromInt(5), AvgBuyPrice: decimal.NewFromInt(10)},
		},
		coins: map[uuid.UUID]*storage.Coin{
			btcID:  {ID: btcID, Symbol: "BTC", Enabled: true},
			junkID: {ID: junkID, Symbol: "JUNK", Enabled: true},
		},
	}
	prices := &perCoinPrices{prices: map[string]decimal.Decimal{"BTC": decimal.NewFromInt(200)}}
	v := NewValuation(store, prices, slog.Default())

	summary, err := v.Summarize(context.Background(), userID)
	if err != nil {
		t.Fatalf("expected summary, got %v", err)
	}
	if summary.CoinCount != 1 {
		t.Fatalf("expected unpriceable holding skipped, got %d coins", summary.CoinCount)
	}
	if !summary.TotalAssetValue.Equal(decimal.NewFromInt(1200)) {
		t.Fatalf("expected total 1200, got %s", summary.TotalAssetValue)
	}
}
