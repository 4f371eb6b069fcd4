package storage

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type User struct {
	ID           uuid.UUID
	Email        string
	PasswordHash string
	Nickname     string
	Role         string
	Active       bool
	CreatedAt    time.Time
}

type VirtualAccount struct {
	ID        uuid.UUID
	UserID    uuid.UUID
	BaseCash  decimal.Decimal
	UpdatedAt time.Time
}

type Coin struct {
	ID            uuid.UUID
	Symbol        string
	Name          string
	Enabled       bool
	PriceSourceID string
}

type CoinBalance struct {
	ID          uuid.UUID
	AccountID   uuid.UUID
	CoinID      uuid.UUID
	Amount      decimal.Decimal
	AvgBuyPrice decimal.Decimal
	UpdatedAt   time.Time
}

type PriceSnapshot struct {
	ID           uuid.UUID
	CoinID       uuid.UUID
	Price        decimal.Decimal
	Volume24h    decimal.Decimal
	High24h      decimal.Decimal
	Low24h       decimal.Decimal
	ChangePct24h decimal.Decimal
	MarketCap    decimal.Decimal
	CapturedAt   time.Time
}

type OnchainMetric struct {
	ID          uuid.UUID
	ChainName   string
	BlockNumber int64
	GasPrice    decimal.Decimal
	CapturedAt  time.Time
}

const (
	OrderSideBuy  = "BUY"
	OrderSideSell = "SELL"

	OrderTypeMarket = "MARKET"
	OrderTypeLimit  = "LIMIT"

	OrderStatusPending = "PENDING"
	OrderStatusFilled  = "FILLED"
	OrderStatusFailed  = "FAILED"
)

type Order struct {
	ID             uuid.UUID
	UserID         uuid.UUID
	CoinID         uuid.UUID
	Side           string
	Type           string
	RequestedPrice decimal.Decimal
	ExecutedPrice  decimal.Decimal
	Quantity       decimal.Decimal
	Status         string
	CreatedAt      time.Time
	FilledAt       time.Time
}

type Trade struct {
	ID        uuid.UUID
	OrderID   uuid.UUID
	UserID    uuid.UUID
	CoinID    uuid.UUID
	Side      string
	Price     decimal.Decimal
	Quantity  decimal.Decimal
	Fee       decimal.Decimal
	Total     decimal.Decimal
	CreatedAt time.Time
}

const (
	TokenStatusVault             = "VAULT"
	TokenStatusOwned             = "OWNED"
	TokenStatusListed            = "LISTED"
	TokenStatusWithdrawRequested = "WITHDRAW_REQUESTED"
	TokenStatusWithdrawn         = "WITHDRAWN"

	InventoryStatusOwned             = "OWNED"
	InventoryStatusListed            = "LISTED"
	InventoryStatusWithdrawRequested = "WITHDRAW_REQUESTED"
	InventoryStatusSold              = "SOLD"

	WithdrawalStatusPending   = "PENDING"
	WithdrawalStatusCompleted = "COMPLETED"
	WithdrawalStatusFailed    = "FAILED"

	NFTOrderStatusActive = "ACTIVE"
	NFTOrderStatusFilled = "FILLED"
)

type NFTContract struct {
	ID        uuid.UUID
	ChainName string
	Address   string
	Name      string
	Symbol    string
	CreatedAt time.Time
}

type NFTToken struct {
	ID           uuid.UUID
	ContractID   uuid.UUID
	TokenID      string
	Name         string
	Rarity       string
	ImageURL     string
	MetadataURL  string
	Price        decimal.Decimal
	Status       string
	CurrentOwner string
	CreatedAt    time.Time
}

type NFTInventory struct {
	ID            uuid.UUID
	UserID        uuid.UUID
	NFTTokenID    uuid.UUID
	PurchasePrice decimal.Decimal
	Status        string
	AcquiredAt    time.Time
	UpdatedAt     time.Time
}

type NFTWithdrawalRequest struct {
	ID            uuid.UUID
	UserID        uuid.UUID
	NFTTokenID    uuid.UUID
	TargetWallet  string
	Status        string
	TxHash        string
	FailureReason string
	RequestedAt   time.Time
	CompletedAt   time.Time
}

type NFTOrder struct {
	ID          uuid.UUID
	SellerID    uuid.UUID
	InventoryID uuid.UUID
	NFTTokenID  uuid.UUID
	Price       decimal.Decimal
	Status      string
	CreatedAt   time.Time
	FilledAt    time.Time
}

type NFTTrade struct {
	ID         uuid.UUID
	NFTOrderID uuid.UUID
	SellerID   uuid.UUID
	BuyerID    uuid.UUID
	NFTTokenID uuid.UUID
	Price      decimal.Decimal
	CreatedAt  time.Time
}

type WatchlistEntry struct {
	ID        uuid.UUID
	UserID    uuid.UUID
	CoinID    uuid.UUID
	CreatedAt time.Time
}

// BuyFill and SellFill carry the post-commit state of a settled order so
// callers never re-read rows they just wrote.
type BuyFill struct {
	Order    Order
	Trade    Trade
	BaseCash decimal.Decimal
	Balance  CoinBalance
}

type SellFill struct {
	Order    Order
	Trade    Trade
	BaseCash decimal.Decimal
	Balance  CoinBalance
}
