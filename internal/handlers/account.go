package handlers

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/heodongun/DongunCoinHub/internal/auth"
	"github.com/heodongun/DongunCoinHub/internal/engine"
)

type Summarizer interface {
	Summarize(ctx context.Context, userID uuid.UUID) (*engine.AccountSummary, error)
}

type AccountHandler struct {
	valuation Summarizer
	logger    *slog.Logger
}

func NewAccountHandler(valuation Summarizer, logger *slog.Logger) *AccountHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &AccountHandler{valuation: valuation, logger: logger}
}

func (h *AccountHandler) Summary(c *gin.Context) {
	userID, ok := auth.UserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, errorResponse{Code: "UNAUTHORIZED", Message: "authentication required"})
		return
	}

	summary, err := h.valuation.Summarize(c.Request.Context(), userID)
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, summary)
}
