package handlers

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/heodongun/DongunCoinHub/internal/auth"
	"github.com/heodongun/DongunCoinHub/internal/engine"
	"github.com/heodongun/DongunCoinHub/internal/storage"
)

type OrderExecutor interface {
	ExecuteOrder(ctx context.Context, req engine.OrderRequest) (*engine.Fill, error)
}

type OrderLister interface {
	ListOrdersByUser(ctx context.Context, userID uuid.UUID, limit int) ([]storage.Order, error)
}

type TradeHandler struct {
	settlement OrderExecutor
	orders     OrderLister
	logger     *slog.Logger
}

func NewTradeHandler(settlement OrderExecutor, orders OrderLister, logger *slog.Logger) *TradeHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &TradeHandler{settlement: settlement, orders: orders, logger: logger}
}

type orderRequest struct {
	CoinSymbol string          `json:"coinSymbol" binding:"required"`
	Side       string          `json:"side" binding:"required"`
	Type       string          `json:"type" binding:"required"`
	Quantity   decimal.Decimal `json:"quantity" binding:"required"`
	Price      decimal.Decimal `json:"price"`
}

type fillResponse struct {
	OrderID   string          `json:"orderId"`
	Status    string          `json:"status"`
	Side      string          `json:"side"`
	Symbol    string          `json:"symbol"`
	FillPrice decimal.Decimal `json:"fillPrice"`
	Quantity  decimal.Decimal `json:"quantity"`
	FeeAmount decimal.Decimal `json:"feeAmount"`
	Total     decimal.Decimal `json:"total"`
	BaseCash  decimal.Decimal `json:"baseCash"`
}

func (h *TradeHandler) PlaceOrder(c *gin.Context) {
	userID, ok := auth.UserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, errorResponse{Code: "UNAUTHORIZED", Message: "authentication required"})
		return
	}

	var req orderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "coinSymbol, side, type and quantity are required")
		return
	}

	fill, err := h.settlement.ExecuteOrder(c.Request.Context(), engine.OrderRequest{
		UserID:     userID,
		Symbol:     req.CoinSymbol,
		Side:       req.Side,
		Type:       req.Type,
		Quantity:   req.Quantity,
		LimitPrice: req.Price,
	})
	if err != nil {
		writeError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusCreated, fillResponse{
		OrderID:   fill.OrderID.String(),
		Status:    fill.Status,
		Side:      fill.Side,
		Symbol:    fill.Symbol,
		FillPrice: fill.FillPrice,
		Quantity:  fill.Quantity,
		FeeAmount: fill.Fee,
		Total:     fill.Total,
		BaseCash:  fill.BaseCash,
	})
}

type orderView struct {
	OrderID       string          `json:"orderId"`
	Side          string          `json:"side"`
	Type          string          `json:"type"`
	ExecutedPrice decimal.Decimal `json:"executedPrice"`
	Quantity      decimal.Decimal `json:"quantity"`
	Status        string          `json:"status"`
	CreatedAt     string          `json:"createdAt"`
}

func (h *TradeHandler) ListOrders(c *gin.Context) {
	userID, ok := auth.UserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, errorResponse{Code: "UNAUTHORIZED", Message: "authentication required"})
		return
	}

	orders, err := h.orders.ListOrdersByUser(c.Request.Context(), userID, 50)
	if err != nil {
		writeError(c, h.logger, err)
		return
	}

	views := make([]orderView, 0, len(orders))
	for _, o := range orders {
		views = append(views, orderView{
			OrderID:       o.ID.String(),
			Side:          o.Side,
			Type:          o.Type,
			ExecutedPrice: o.ExecutedPrice,
			Quantity:      o.Quantity,
			Status:        o.Status,
			CreatedAt:     o.CreatedAt.UTC().Format("2006-01-02T15:04:05Z07:00"),
		})
	}
	c.JSON(http.StatusOK, gin.H{"orders": views})
}
