package storage

import (
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/shopspring/decimal"
)

func TestNextAvgBuyPriceFirstPurchase(t *testing.T) {
	got := nextAvgBuyPrice(decimal.Zero, decimal.Zero, decimal.NewFromInt(2), decimal.NewFromInt(100))
	if !got.Equal(decimal.NewFromInt(100)) {
		t.Fatalf("expected 100, got %s", got)
	}
}

func TestNextAvgBuyPriceWeightedAverage(t *testing.T) {
	// 1 @ 100 already held, buy 1 more @ 200: basis is 150.
	got := nextAvgBuyPrice(decimal.NewFromInt(1), decimal.NewFromInt(100), decimal.NewFromInt(1), decimal.NewFromInt(200))
	if !got.Equal(decimal.NewFromInt(150)) {
		t.Fatalf("expected 150, got %s", got)
	}
}

func TestNextAvgBuyPriceRoundsToScale(t *testing.T) {
	// (1*100 + 2*100.5) / 3 = 100.33333333...
	got := nextAvgBuyPrice(decimal.NewFromInt(1), decimal.NewFromInt(100), decimal.NewFromInt(2), decimal.RequireFromString("100.5"))
	want := decimal.RequireFromString("100.33333333")
	if !got.Equal(want) {
		t.Fatalf("expected %s, got %s", want, got)
	}
}

func TestNextAvgBuyPriceUnchangedShape(t *testing.T) {
	// Buying at the current basis leaves the basis alone.
	got := nextAvgBuyPrice(decimal.NewFromInt(3), decimal.NewFromInt(250), decimal.NewFromInt(7), decimal.NewFromInt(250))
	if !got.Equal(decimal.NewFromInt(250)) {
		t.Fatalf("expected 250, got %s", got)
	}
}

func TestFillRequestValidate(t *testing.T) {
	valid := FillRequest{
		UserID:   uuid.New(),
		CoinID:   uuid.New(),
		Price:    decimal.NewFromInt(100),
		Quantity: decimal.NewFromInt(1),
		Fee:      decimal.RequireFromString("0.1"),
	}
	if err := valid.validate(); err != nil {
		t.Fatalf("expected valid request, got %v", err)
	}

	cases := []struct {
		name   string
		mutate func(*FillRequest)
	}{
		{"missing user", func(r *FillRequest) { r.UserID = uuid.Nil }},
		{"missing coin", func(r *FillRequest) { r.CoinID = uuid.Nil }},
		{"zero quantity", func(r *FillRequest) { r.Quantity = decimal.Zero }},
		{"negative quantity", func(r *FillRequest) { r.Quantity = decimal.NewFromInt(-1) }},
		{"zero price", func(r *FillRequest) { r.Price = decimal.Zero }},
		{"negative fee", func(r *FillRequest) { r.Fee = decimal.NewFromInt(-1) }},
	}
	for _, tc := range cases {
		req := valid
		tc.mutate(&req)
		if err := req.validate(); err == nil {
			t.Fatalf("%s: expected validation error", tc.name)
		}
	}
}

func TestTranslateTxErr(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want error
	}{
		{"serialization failure", &pgconn.PgError{Code: "40001"}, ErrTxConflict},
		{"deadlock", &pgconn.PgError{Code: "40P01"}, ErrTxConflict},
		{"unique violation", &pgconn.PgError{Code: "23505"}, ErrTxConflict},
	}
	for _, tc := range cases {
		if got := translateTxErr(tc.err); !errors.Is(got, tc.want) {
			t.Fatalf("%s: expected %v, got %v", tc.name, tc.want, got)
		}
	}

	// Everything else passes through untouched so callers can still match
	// on pgx sentinels.
	if got := translateTxErr(pgx.ErrNoRows); !errors.Is(got, pgx.ErrNoRows) {
		t.Fatalf("expected ErrNoRows passthrough, got %v", got)
	}
	other := errors.New("boom")
	if got := translateTxErr(other); got != other {
		t.Fatalf("expected passthrough, got %v", got)
	}
}

func TestStartingCash(t *testing.T) {
	if !StartingCash.Equal(decimal.RequireFromString("10000000.00")) {
		t.Fatalf("unexpected starting cash %s", StartingCash)
	}
}
