package handlers

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/heodongun/DongunCoinHub/internal/auth"
	"github.com/heodongun/DongunCoinHub/internal/storage"
)

type WatchlistStore interface {
	GetCoinBySymbol(ctx context.Context, symbol string) (*storage.Coin, error)
	AddWatchlistEntry(ctx context.Context, userID, coinID uuid.UUID) error
	RemoveWatchlistEntry(ctx context.Context, userID, coinID uuid.UUID) error
	ListWatchlist(ctx context.Context, userID uuid.UUID) ([]storage.Coin, error)
}

type WatchlistHandler struct {
	store  WatchlistStore
	logger *slog.Logger
}

func NewWatchlistHandler(store WatchlistStore, logger *slog.Logger) *WatchlistHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &WatchlistHandler{store: store, logger: logger}
}

type watchlistRequest struct {
	CoinSymbol string `json:"coinSymbol" binding:"required"`
}

func (h *WatchlistHandler) Add(c *gin.Context) {
	userID, ok := auth.UserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, errorResponse{Code: "UNAUTHORIZED", Message: "authentication required"})
		return
	}
	var req watchlistRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "coinSymbol is required")
		return
	}
	coin, err := h.store.GetCoinBySymbol(c.Request.Context(), req.CoinSymbol)
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	if err := h.store.AddWatchlistEntry(c.Request.Context(), userID, coin.ID); err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"coinSymbol": coin.Symbol})
}

func (h *WatchlistHandler) Remove(c *gin.Context) {
	userID, ok := auth.UserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, errorResponse{Code: "UNAUTHORIZED", Message: "authentication required"})
		return
	}
	coin, err := h.store.GetCoinBySymbol(c.Request.Context(), c.Param("symbol"))
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	if err := h.store.RemoveWatchlistEntry(c.Request.Context(), userID, coin.ID); err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *WatchlistHandler) List(c *gin.Context) {
	userID, ok := auth.UserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, errorResponse{Code: "UNAUTHORIZED", Message: "authentication required"})
		return
	}
	coins, err := h.store.ListWatchlist(c.Request.Context(), userID)
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	symbols := make([]gin.H, 0, len(coins))
	for _, coin := range coins {
		symbols = append(symbols, gin.H{"symbol": coin.Symbol, "name": coin.Name})
	}
	c.JSON(http.StatusOK, gin.H{"watchlist": symbols})
}
