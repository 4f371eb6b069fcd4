package handlers

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"github.com/heodongun/DongunCoinHub/internal/pricing"
	"github.com/heodongun/DongunCoinHub/internal/storage"
)

type MarketStore interface {
	ListEnabledCoins(ctx context.Context) ([]storage.Coin, error)
	GetCoinBySymbol(ctx context.Context, symbol string) (*storage.Coin, error)
}

type TickerSource interface {
	Ticker(ctx context.Context, coin storage.Coin) (pricing.Quote, error)
}

type MarketHandler struct {
	store   MarketStore
	tickers TickerSource
	logger  *slog.Logger
}

func NewMarketHandler(store MarketStore, tickers TickerSource, logger *slog.Logger) *MarketHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &MarketHandler{store: store, tickers: tickers, logger: logger}
}

type tickerView struct {
	Symbol       string          `json:"symbol"`
	Name         string          `json:"name"`
	Price        decimal.Decimal `json:"price"`
	Volume24h    decimal.Decimal `json:"volume24h"`
	High24h      decimal.Decimal `json:"high24h"`
	Low24h       decimal.Decimal `json:"low24h"`
	ChangePct24h decimal.Decimal `json:"changePct24h"`
	MarketCap    decimal.Decimal `json:"marketCap"`
}

// Tickers returns a quote per enabled coin; coins without any resolvable
// price are omitted rather than failing the page.
func (h *MarketHandler) Tickers(c *gin.Context) {
	coins, err := h.store.ListEnabledCoins(c.Request.Context())
	if err != nil {
		writeError(c, h.logger, err)
		return
	}

	views := make([]tickerView, 0, len(coins))
	for _, coin := range coins {
		quote, err := h.tickers.Ticker(c.Request.Context(), coin)
		if err != nil {
			continue
		}
		views = append(views, tickerView{
			Symbol:       coin.Symbol,
			Name:         coin.Name,
			Price:        quote.Price,
			Volume24h:    quote.Volume24h,
			High24h:      quote.High24h,
			Low24h:       quote.Low24h,
			ChangePct24h: quote.ChangePct24h,
			MarketCap:    quote.MarketCap,
		})
	}
	c.JSON(http.StatusOK, gin.H{"tickers": views})
}

func (h *MarketHandler) CoinBySymbol(c *gin.Context) {
	coin, err := h.store.GetCoinBySymbol(c.Request.Context(), c.Param("symbol"))
	if err != nil {
		writeError(c, h.logger, err)
		return
	}

	view := tickerView{Symbol: coin.Symbol, Name: coin.Name}
	if quote, err := h.tickers.Ticker(c.Request.Context(), *coin); err == nil {
		view.Price = quote.Price
		view.Volume24h = quote.Volume24h
		view.High24h = quote.High24h
		view.Low24h = quote.Low24h
		view.ChangePct24h = quote.ChangePct24h
		view.MarketCap = quote.MarketCap
	}
	c.JSON(http.StatusOK, view)
}
