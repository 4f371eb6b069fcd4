package handlers

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/heodongun/DongunCoinHub/internal/storage"
)

type OnchainStore interface {
	LatestOnchainMetric(ctx context.Context, chainName string) (*storage.OnchainMetric, error)
}

type OnchainHandler struct {
	store  OnchainStore
	logger *slog.Logger
}

func NewOnchainHandler(store OnchainStore, logger *slog.Logger) *OnchainHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &OnchainHandler{store: store, logger: logger}
}

func (h *OnchainHandler) ChainMetrics(c *gin.Context) {
	metric, err := h.store.LatestOnchainMetric(c.Request.Context(), c.Param("chainName"))
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"chainName":   metric.ChainName,
		"blockNumber": metric.BlockNumber,
		"gasPrice":    metric.GasPrice,
		"capturedAt":  metric.CapturedAt,
	})
}
