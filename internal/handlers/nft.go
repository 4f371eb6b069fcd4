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

type CustodyEngine interface {
	Mint(ctx context.Context, req engine.MintRequest) (*storage.NFTToken, error)
	Buy(ctx context.Context, userID, tokenID uuid.UUID) (*storage.PurchaseResult, error)
	Sell(ctx context.Context, userID, inventoryID uuid.UUID, price decimal.Decimal) (*storage.NFTOrder, error)
	RequestWithdrawal(ctx context.Context, userID, tokenID uuid.UUID, targetWallet string) (*storage.NFTWithdrawalRequest, error)
}

type NFTBrowseStore interface {
	ListVaultTokens(ctx context.Context) ([]storage.NFTToken, error)
	ListInventoryByUser(ctx context.Context, userID uuid.UUID) ([]storage.InventoryItem, error)
	ListActiveNFTOrders(ctx context.Context) ([]storage.NFTOrder, error)
}

type NFTHandler struct {
	custody CustodyEngine
	store   NFTBrowseStore
	logger  *slog.Logger
}

func NewNFTHandler(custody CustodyEngine, store NFTBrowseStore, logger *slog.Logger) *NFTHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &NFTHandler{custody: custody, store: store, logger: logger}
}

type tokenView struct {
	TokenID      string          `json:"tokenId"`
	ContractID   string          `json:"contractId"`
	ChainTokenID string          `json:"chainTokenId"`
	Name         string          `json:"name"`
	Rarity       string          `json:"rarity"`
	ImageURL     string          `json:"imageUrl"`
	Price        decimal.Decimal `json:"price"`
	Status       string          `json:"status"`
}

func toTokenView(t storage.NFTToken) tokenView {
	return tokenView{
		TokenID:      t.ID.String(),
		ContractID:   t.ContractID.String(),
		ChainTokenID: t.TokenID,
		Name:         t.Name,
		Rarity:       t.Rarity,
		ImageURL:     t.ImageURL,
		Price:        t.Price,
		Status:       t.Status,
	}
}

func (h *NFTHandler) ListVault(c *gin.Context) {
	tokens, err := h.store.ListVaultTokens(c.Request.Context())
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	views := make([]tokenView, 0, len(tokens))
	for _, t := range tokens {
		views = append(views, toTokenView(t))
	}
	c.JSON(http.StatusOK, gin.H{"tokens": views})
}

type inventoryView struct {
	InventoryID   string          `json:"inventoryId"`
	Status        string          `json:"status"`
	PurchasePrice decimal.Decimal `json:"purchasePrice"`
	Token         tokenView       `json:"token"`
}

func (h *NFTHandler) ListMine(c *gin.Context) {
	userID, ok := auth.UserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, errorResponse{Code: "UNAUTHORIZED", Message: "authentication required"})
		return
	}
	items, err := h.store.ListInventoryByUser(c.Request.Context(), userID)
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	views := make([]inventoryView, 0, len(items))
	for _, item := range items {
		views = append(views, inventoryView{
			InventoryID:   item.Inventory.ID.String(),
			Status:        item.Inventory.Status,
			PurchasePrice: item.Inventory.PurchasePrice,
			Token:         toTokenView(item.Token),
		})
	}
	c.JSON(http.StatusOK, gin.H{"inventory": views})
}

func (h *NFTHandler) ListOrders(c *gin.Context) {
	orders, err := h.store.ListActiveNFTOrders(c.Request.Context())
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	type listingView struct {
		OrderID    string          `json:"orderId"`
		NFTTokenID string          `json:"nftTokenId"`
		Price      decimal.Decimal `json:"price"`
		Status     string          `json:"status"`
	}
	views := make([]listingView, 0, len(orders))
	for _, o := range orders {
		views = append(views, listingView{
			OrderID:    o.ID.String(),
			NFTTokenID: o.NFTTokenID.String(),
			Price:      o.Price,
			Status:     o.Status,
		})
	}
	c.JSON(http.StatusOK, gin.H{"orders": views})
}

type mintRequest struct {
	ContractID  string          `json:"contractId" binding:"required"`
	TokenID     string          `json:"tokenId" binding:"required"`
	Name        string          `json:"name" binding:"required"`
	Rarity      string          `json:"rarity"`
	ImageURL    string          `json:"imageUrl"`
	MetadataURL string          `json:"metadataUrl"`
	Price       decimal.Decimal `json:"price" binding:"required"`
}

func (h *NFTHandler) Mint(c *gin.Context) {
	var req mintRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "contractId, tokenId, name and price are required")
		return
	}
	contractID, err := uuid.Parse(req.ContractID)
	if err != nil {
		badRequest(c, "contractId must be a uuid")
		return
	}

	token, err := h.custody.Mint(c.Request.Context(), engine.MintRequest{
		ContractID:  contractID,
		TokenID:     req.TokenID,
		Name:        req.Name,
		Rarity:      req.Rarity,
		ImageURL:    req.ImageURL,
		MetadataURL: req.MetadataURL,
		Price:       req.Price,
	})
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusCreated, toTokenView(*token))
}

type buyRequest struct {
	NFTTokenID string `json:"nftTokenId" binding:"required"`
}

func (h *NFTHandler) Buy(c *gin.Context) {
	userID, ok := auth.UserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, errorResponse{Code: "UNAUTHORIZED", Message: "authentication required"})
		return
	}
	var req buyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "nftTokenId is required")
		return
	}
	tokenID, err := uuid.Parse(req.NFTTokenID)
	if err != nil {
		badRequest(c, "nftTokenId must be a uuid")
		return
	}

	res, err := h.custody.Buy(c.Request.Context(), userID, tokenID)
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{
		"inventoryId":   res.Inventory.ID.String(),
		"status":        res.Inventory.Status,
		"purchasePrice": res.Inventory.PurchasePrice,
		"baseCash":      res.BaseCash,
		"token":         toTokenView(res.Token),
	})
}

type sellRequest struct {
	InventoryID string          `json:"inventoryId" binding:"required"`
	Price       decimal.Decimal `json:"price" binding:"required"`
}

func (h *NFTHandler) Sell(c *gin.Context) {
	userID, ok := auth.UserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, errorResponse{Code: "UNAUTHORIZED", Message: "authentication required"})
		return
	}
	var req sellRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "inventoryId and price are required")
		return
	}
	inventoryID, err := uuid.Parse(req.InventoryID)
	if err != nil {
		badRequest(c, "inventoryId must be a uuid")
		return
	}

	order, err := h.custody.Sell(c.Request.Context(), userID, inventoryID, req.Price)
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{
		"orderId":    order.ID.String(),
		"nftTokenId": order.NFTTokenID.String(),
		"price":      order.Price,
		"status":     order.Status,
	})
}

type withdrawRequest struct {
	NFTTokenID   string `json:"nftTokenId" binding:"required"`
	TargetWallet string `json:"targetWallet" binding:"required"`
}

func (h *NFTHandler) Withdraw(c *gin.Context) {
	userID, ok := auth.UserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, errorResponse{Code: "UNAUTHORIZED", Message: "authentication required"})
		return
	}
	var req withdrawRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "nftTokenId and targetWallet are required")
		return
	}
	tokenID, err := uuid.Parse(req.NFTTokenID)
	if err != nil {
		badRequest(c, "nftTokenId must be a uuid")
		return
	}

	wr, err := h.custody.RequestWithdrawal(c.Request.Context(), userID, tokenID, req.TargetWallet)
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{
		"requestId":    wr.ID.String(),
		"status":       wr.Status,
		"targetWallet": wr.TargetWallet,
	})
}
