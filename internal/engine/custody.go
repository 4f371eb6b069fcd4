package engine

import (
	"context"
	"errors"
	"log/slog"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/heodongun/DongunCoinHub/internal/events"
	"github.com/heodongun/DongunCoinHub/internal/storage"
)

var walletPattern = regexp.MustCompile(`^0x[a-fA-F0-9]{40}$`)

// CustodyStore is the slice of the ledger store the custody engine needs.
type CustodyStore interface {
	GetToken(ctx context.Context, tokenID uuid.UUID) (*storage.NFTToken, error)
	GetContract(ctx context.Context, contractID uuid.UUID) (*storage.NFTContract, error)
	MintToken(ctx context.Context, contractID uuid.UUID, tokenID, name, rarity, imageURL, metadataURL string, price decimal.Decimal) (*storage.NFTToken, error)
	PurchaseToken(ctx context.Context, userID, tokenID uuid.UUID, feeRate decimal.Decimal) (*storage.PurchaseResult, error)
	ListInventoryForSale(ctx context.Context, userID, inventoryID uuid.UUID, price decimal.Decimal) (*storage.NFTOrder, error)
	CreateWithdrawalRequest(ctx context.Context, userID, tokenID uuid.UUID, targetWallet string) (*storage.NFTWithdrawalRequest, error)
	CompleteWithdrawal(ctx context.Context, requestID uuid.UUID, txHash string) error
	FailWithdrawal(ctx context.Context, requestID uuid.UUID, reason string) error
}

// ChainClient drives the on-chain transfer of a withdrawn token.
type ChainClient interface {
	Transfer(ctx context.Context, contractAddress, tokenID, toAddress string) (string, error)
	IsConfirmed(ctx context.Context, txHash string, minConfirmations int) (bool, error)
}

type CustodyConfig struct {
	MinConfirmations int
	ConfirmWait      time.Duration
	ConfirmPoll      time.Duration
}

type MintRequest struct {
	ContractID  uuid.UUID
	TokenID     string
	Name        string
	Rarity      string
	ImageURL    string
	MetadataURL string
	Price       decimal.Decimal
}

// Custody manages the NFT lifecycle: vault, ownership, listing and the
// asynchronous on-chain withdrawal.
type Custody struct {
	store          CustodyStore
	chain          ChainClient
	publisher      events.Publisher
	completedTopic string
	failedTopic    string
	cfg            CustodyConfig
	metrics        *Metrics
	logger         *slog.Logger
}

func NewCustody(store CustodyStore, chain ChainClient, publisher events.Publisher, completedTopic, failedTopic string, cfg CustodyConfig, metrics *Metrics, logger *slog.Logger) *Custody {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.MinConfirmations <= 0 {
		cfg.MinConfirmations = 3
	}
	if cfg.ConfirmWait <= 0 {
		cfg.ConfirmWait = 2 * time.Minute
	}
	if cfg.ConfirmPoll <= 0 {
		cfg.ConfirmPoll = 5 * time.Second
	}
	return &Custody{
		store:          store,
		chain:          chain,
		publisher:      publisher,
		completedTopic: completedTopic,
		failedTopic:    failedTopic,
		cfg:            cfg,
		metrics:        metrics,
		logger:         logger,
	}
}

// Mint places a new token in vault custody.
func (c *Custody) Mint(ctx context.Context, req MintRequest) (*storage.NFTToken, error) {
	if strings.TrimSpace(req.TokenID) == "" {
		return nil, invalid("token_id is required")
	}
	if req.Price.LessThanOrEqual(decimal.Zero) {
		return nil, invalid("price must be positive")
	}
	if _, err := c.store.GetContract(ctx, req.ContractID); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			c.metrics.incNFTAction("mint", "rejected")
			return nil, notFound("contract not found")
		}
		return nil, err
	}
	token, err := c.store.MintToken(ctx, req.ContractID, req.TokenID, req.Name, req.Rarity, req.ImageURL, req.MetadataURL, req.Price)
	if err != nil {
		c.metrics.incNFTAction("mint", "rejected")
		return nil, mapStoreError(err)
	}
	c.metrics.incNFTAction("mint", "ok")
	return token, nil
}

// Buy purchases a vault token or fills an active resale listing. The
// store serializes concurrent buyers; a loser surfaces as CONFLICT.
func (c *Custody) Buy(ctx context.Context, userID, tokenID uuid.UUID) (*storage.PurchaseResult, error) {
	res, err := c.store.PurchaseToken(ctx, userID, tokenID, FeeRate)
	if err != nil {
		c.metrics.incNFTAction("buy", "rejected")
		return nil, mapStoreError(err)
	}
	c.metrics.incNFTAction("buy", "ok")
	return res, nil
}

// Sell lists an owned token for resale at the asked price.
func (c *Custody) Sell(ctx context.Context, userID, inventoryID uuid.UUID, price decimal.Decimal) (*storage.NFTOrder, error) {
	if price.LessThanOrEqual(decimal.Zero) {
		return nil, invalid("price must be positive")
	}
	order, err := c.store.ListInventoryForSale(ctx, userID, inventoryID, price)
	if err != nil {
		c.metrics.incNFTAction("sell", "rejected")
		return nil, mapStoreError(err)
	}
	c.metrics.incNFTAction("sell", "ok")
	return order, nil
}

// RequestWithdrawal reserves an owned token for on-chain withdrawal.
func (c *Custody) RequestWithdrawal(ctx context.Context, userID, tokenID uuid.UUID, targetWallet string) (*storage.NFTWithdrawalRequest, error) {
	targetWallet = strings.TrimSpace(targetWallet)
	if !ValidWallet(targetWallet) {
		return nil, invalid("target wallet must be a 0x-prefixed 40-hex-char address")
	}
	req, err := c.store.CreateWithdrawalRequest(ctx, userID, tokenID, targetWallet)
	if err != nil {
		c.metrics.incNFTAction("withdraw_request", "rejected")
		return nil, mapStoreError(err)
	}
	c.metrics.incNFTAction("withdraw_request", "ok")
	return req, nil
}

// ProcessPendingWithdrawal drives one PENDING request through the chain
// transfer and confirmation poll. All chain I/O happens outside any
// database transaction; only the terminal status write touches the store.
// A failed or unconfirmed transfer reverts the inventory to OWNED.
func (c *Custody) ProcessPendingWithdrawal(ctx context.Context, req storage.NFTWithdrawalRequest) error {
	token, err := c.store.GetToken(ctx, req.NFTTokenID)
	if err != nil {
		return c.fail(ctx, req, "token lookup failed: "+err.Error())
	}
	contract, err := c.store.GetContract(ctx, token.ContractID)
	if err != nil {
		return c.fail(ctx, req, "contract lookup failed: "+err.Error())
	}

	txHash, err := c.chain.Transfer(ctx, contract.Address, token.TokenID, req.TargetWallet)
	if err != nil {
		return c.fail(ctx, req, "transfer failed: "+err.Error())
	}

	confirmed, err := c.awaitConfirmation(ctx, txHash)
	if err != nil {
		return c.fail(ctx, req, "confirmation check failed: "+err.Error())
	}
	if !confirmed {
		return c.fail(ctx, req, "transfer not confirmed within wait window")
	}

	if err := c.store.CompleteWithdrawal(ctx, req.ID, txHash); err != nil {
		return mapStoreError(err)
	}
	c.metrics.incWithdrawal("completed")
	c.publishWithdrawal(ctx, c.completedTopic, events.EventWithdrawalCompleted, req, txHash, "")
	c.logger.Info("withdrawal completed",
		"request_id", req.ID.String(), "token_id", req.NFTTokenID.String(), "tx_hash", txHash)
	return nil
}

func (c *Custody) awaitConfirmation(ctx context.Context, txHash string) (bool, error) {
	deadline := time.Now().Add(c.cfg.ConfirmWait)
	for {
		confirmed, err := c.chain.IsConfirmed(ctx, txHash, c.cfg.MinConfirmations)
		if err != nil {
			return false, err
		}
		if confirmed {
			return true, nil
		}
		if time.Now().After(deadline) {
			return false, nil
		}
		select {
		case <-ctx.Done():
			return false, ctx.Err()
		case <-time.After(c.cfg.ConfirmPoll):
		}
	}
}

func (c *Custody) fail(ctx context.Context, req storage.NFTWithdrawalRequest, reason string) error {
	if err := c.store.FailWithdrawal(ctx, req.ID, reason); err != nil {
		return mapStoreError(err)
	}
	c.metrics.incWithdrawal("failed")
	c.publishWithdrawal(ctx, c.failedTopic, events.EventWithdrawalFailed, req, "", reason)
	c.logger.Warn("withdrawal failed",
		"request_id", req.ID.String(), "token_id", req.NFTTokenID.String(), "reason", reason)
	return nil
}

func (c *Custody) publishWithdrawal(ctx context.Context, topic, eventType string, req storage.NFTWithdrawalRequest, txHash, reason string) {
	if c.publisher == nil || topic == "" {
		return
	}
	envelope, err := events.NewEnvelope(eventType, 1, req.ID.String())
	if err != nil {
		return
	}
	evt := events.WithdrawalFinished{
		Envelope:     envelope,
		RequestID:    req.ID.String(),
		UserID:       req.UserID.String(),
		NFTTokenID:   req.NFTTokenID.String(),
		TargetWallet: req.TargetWallet,
		TxHash:       txHash,
		Reason:       reason,
	}
	if _, _, err := c.publisher.PublishJSON(ctx, topic, req.ID.String(), evt); err != nil {
		c.logger.Warn("withdrawal event publish failed", "request_id", req.ID.String(), "error", err)
	}
}

// ValidWallet reports whether addr is a 0x-prefixed 40-hex-char address.
func ValidWallet(addr string) bool {
	return walletPattern.MatchString(addr)
}
