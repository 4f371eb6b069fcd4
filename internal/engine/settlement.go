package engine

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/heodongun/DongunCoinHub/internal/events"
	"github.com/heodongun/DongunCoinHub/internal/storage"
)

// FeeRate is charged on both sides of every fill: 0.1% of the notional.
var FeeRate = decimal.RequireFromString("0.001")

// SettlementStore is the slice of the ledger store the settlement engine
// needs.
type SettlementStore interface {
	GetCoinBySymbol(ctx context.Context, symbol string) (*storage.Coin, error)
	GetAccountByUser(ctx context.Context, userID uuid.UUID) (*storage.VirtualAccount, error)
	ExecuteBuy(ctx context.Context, req storage.FillRequest) (*storage.BuyFill, error)
	ExecuteSell(ctx context.Context, req storage.FillRequest) (*storage.SellFill, error)
}

// PriceResolver yields the current market price for a coin.
type PriceResolver interface {
	CurrentPrice(ctx context.Context, coin storage.Coin) (decimal.Decimal, error)
}

type OrderRequest struct {
	UserID     uuid.UUID
	Symbol     string
	Side       string
	Type       string
	Quantity   decimal.Decimal
	LimitPrice decimal.Decimal
}

// Fill is the caller-visible result of a settled order.
type Fill struct {
	OrderID   uuid.UUID
	TradeID   uuid.UUID
	Symbol    string
	Side      string
	Status    string
	FillPrice decimal.Decimal
	Quantity  decimal.Decimal
	Fee       decimal.Decimal
	Total     decimal.Decimal
	BaseCash  decimal.Decimal
	Balance   storage.CoinBalance
}

// Settlement executes simulated trades: validate, price, then hand the
// fully priced fill to the store for atomic settlement.
type Settlement struct {
	store      SettlementStore
	prices     PriceResolver
	publisher  events.Publisher
	tradeTopic string
	metrics    *Metrics
	logger     *slog.Logger
}

func NewSettlement(store SettlementStore, prices PriceResolver, publisher events.Publisher, tradeTopic string, metrics *Metrics, logger *slog.Logger) *Settlement {
	if logger == nil {
		logger = slog.Default()
	}
	return &Settlement{
		store:      store,
		prices:     prices,
		publisher:  publisher,
		tradeTopic: tradeTopic,
		metrics:    metrics,
		logger:     logger,
	}
}

// ExecuteOrder runs the full settlement path. Preconditions are checked
// in a fixed order and the first failure wins: coin exists and is enabled,
// account exists, price resolvable, then funds or holdings inside the
// store transaction. The market price is resolved before the transaction
// opens so network I/O never holds row locks.
func (s *Settlement) ExecuteOrder(ctx context.Context, req OrderRequest) (*Fill, error) {
	start := time.Now()
	side := strings.ToUpper(strings.TrimSpace(req.Side))
	orderType := strings.ToUpper(strings.TrimSpace(req.Type))

	if side != storage.OrderSideBuy && side != storage.OrderSideSell {
		return nil, invalid("side must be BUY or SELL")
	}
	if orderType != storage.OrderTypeMarket && orderType != storage.OrderTypeLimit {
		return nil, invalid("type must be MARKET or LIMIT")
	}
	if req.Quantity.LessThanOrEqual(decimal.Zero) {
		return nil, invalid("quantity must be positive")
	}
	if orderType == storage.OrderTypeLimit && req.LimitPrice.LessThanOrEqual(decimal.Zero) {
		return nil, invalid("limit price must be positive")
	}

	coin, err := s.store.GetCoinBySymbol(ctx, req.Symbol)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			s.metrics.observeOrder(side, "rejected", start)
			return nil, notFound("unknown coin symbol")
		}
		return nil, err
	}
	if !coin.Enabled {
		s.metrics.observeOrder(side, "rejected", start)
		return nil, conflict("coin is disabled")
	}

	if _, err := s.store.GetAccountByUser(ctx, req.UserID); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			s.metrics.observeOrder(side, "rejected", start)
			return nil, notFound("virtual account not found")
		}
		return nil, err
	}

	price := req.LimitPrice
	if orderType == storage.OrderTypeMarket {
		price, err = s.prices.CurrentPrice(ctx, *coin)
		if err != nil {
			s.metrics.observeOrder(side, "unpriced", start)
			return nil, &Error{Code: CodePriceUnavailable, Message: "no price available for " + coin.Symbol}
		}
	}

	fee := req.Quantity.Mul(price).Mul(FeeRate)
	fillReq := storage.FillRequest{
		UserID:         req.UserID,
		CoinID:         coin.ID,
		OrderType:      orderType,
		RequestedPrice: price,
		Price:          price,
		Quantity:       req.Quantity,
		Fee:            fee,
	}

	fill, err := s.settle(ctx, side, fillReq)
	if err != nil {
		s.metrics.observeOrder(side, "rejected", start)
		return nil, mapStoreError(err)
	}
	s.metrics.observeOrder(side, "filled", start)

	fill.Symbol = coin.Symbol
	s.publishTrade(ctx, fill)
	return fill, nil
}

// settle dispatches to the store and retries exactly once on a detected
// transaction conflict.
func (s *Settlement) settle(ctx context.Context, side string, req storage.FillRequest) (*Fill, error) {
	for attempt := 0; ; attempt++ {
		fill, err := s.applyFill(ctx, side, req)
		if err == nil {
			return fill, nil
		}
		if errors.Is(err, storage.ErrTxConflict) && attempt == 0 {
			s.metrics.incTxRetry()
			s.logger.Warn("settlement conflict, retrying", "side", side, "user_id", req.UserID.String())
			continue
		}
		return nil, err
	}
}

func (s *Settlement) applyFill(ctx context.Context, side string, req storage.FillRequest) (*Fill, error) {
	if side == storage.OrderSideBuy {
		res, err := s.store.ExecuteBuy(ctx, req)
		if err != nil {
			return nil, err
		}
		return fillFromParts(res.Order, res.Trade, res.BaseCash, res.Balance), nil
	}
	res, err := s.store.ExecuteSell(ctx, req)
	if err != nil {
		return nil, err
	}
	return fillFromParts(res.Order, res.Trade, res.BaseCash, res.Balance), nil
}

func fillFromParts(order storage.Order, trade storage.Trade, baseCash decimal.Decimal, balance storage.CoinBalance) *Fill {
	return &Fill{
		OrderID:   order.ID,
		TradeID:   trade.ID,
		Side:      order.Side,
		Status:    order.Status,
		FillPrice: trade.Price,
		Quantity:  trade.Quantity,
		Fee:       trade.Fee,
		Total:     trade.Total,
		BaseCash:  baseCash,
		Balance:   balance,
	}
}

func (s *Settlement) publishTrade(ctx context.Context, fill *Fill) {
	if s.publisher == nil || s.tradeTopic == "" {
		return
	}
	envelope, err := events.NewEnvelope(events.EventTradeExecuted, 1, fill.OrderID.String())
	if err != nil {
		return
	}
	evt := events.TradeExecuted{
		Envelope: envelope,
		OrderID:  fill.OrderID.String(),
		TradeID:  fill.TradeID.String(),
		UserID:   fill.Balance.AccountID.String(),
		Symbol:   fill.Symbol,
		Side:     fill.Side,
		Price:    fill.FillPrice,
		Quantity: fill.Quantity,
		Fee:      fill.Fee,
	}
	if _, _, err := s.publisher.PublishJSON(ctx, s.tradeTopic, fill.OrderID.String(), evt); err != nil {
		s.logger.Warn("trade event publish failed", "order_id", fill.OrderID.String(), "error", err)
	}
}
