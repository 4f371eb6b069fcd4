package engine

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"log/slog"

	"github.com/heodongun/DongunCoinHub/internal/storage"
)

type fakeCustodyStore struct {
	token         *storage.NFTToken
	tokenErr      error
	contract      *storage.NFTContract
	contractErr   error
	mintErr       error
	purchase      *storage.PurchaseResult
	purchaseErr   error
	purchaseRate  decimal.Decimal
	listing       *storage.NFTOrder
	listErr       error
	withdrawal    *storage.NFTWithdrawalRequest
	withdrawErr   error
	completedID   uuid.UUID
	completedHash string
	failedID      uuid.UUID
	failedReason  string
}

func (f *fakeCustodyStore) GetToken(ctx context.Context, tokenID uuid.UUID) (*storage.NFTToken, error) {
	if f.tokenErr != nil {
		return nil, f.tokenErr
	}
	return f.token, nil
}

func (f *fakeCustodyStore) GetContract(ctx context.Context, contractID uuid.UUID) (*storage.NFTContract, error) {
	if f.contractErr != nil {
		return nil, f.contractErr
	}
	if f.contract == nil {
		return &storage.NFTContract{ID: contractID, Address: "0xabc"}, nil
	}
	return f.contract, nil
}

func (f *fakeCustodyStore) MintToken(ctx context.Context, contractID uuid.UUID, tokenID, name, rarity, imageURL, metadataURL string, price decimal.Decimal) (*storage.NFTToken, error) {
	if f.mintErr != nil {
		return nil, f.mintErr
	}
	return &storage.NFTToken{ID: uuid.New(), ContractID: contractID, TokenID: tokenID, Price: price, Status: storage.TokenStatusVault}, nil
}

func (f *fakeCustodyStore) PurchaseToken(ctx context.Context, userID, tokenID uuid.UUID, feeRate decimal.Decimal) (*storage.PurchaseResult, error) {
	f.purchaseRate = feeRate
	if f.purchaseErr != nil {
		return nil, f.purchaseErr
	}
	return f.purchase, nil
}

func (f *fakeCustodyStore) ListInventoryForSale(ctx context.Context, userID, inventoryID uuid.UUID, price decimal.Decimal) (*storage.NFTOrder, error) {
	if f.listErr != nil {
		return nil, f.listErr
	}
	return f.listing, nil
}

func (f *fakeCustodyStore) CreateWithdrawalRequest(ctx context.Context, userID, tokenID uuid.UUID, targetWallet string) (*storage.NFTWithdrawalRequest, error) {
	if f.withdrawErr != nil {
		return nil, f.withdrawErr
	}
	if f.withdrawal != nil {
		return f.withdrawal, nil
	}
	return &storage.NFTWithdrawalRequest{ID: uuid.New(), UserID: userID, NFTTokenID: tokenID, TargetWallet: targetWallet, Status: storage.WithdrawalStatusPending}, nil
}

func (f *fakeCustodyStore) CompleteWithdrawal(ctx context.Context, requestID uuid.UUID, txHash string) error {
	f.completedID = requestID
	f.completedHash = txHash
	return nil
}

func (f *fakeCustodyStore) FailWithdrawal(ctx context.Context, requestID uuid.UUID, reason string) error {
	f.failedID = requestID
	f.failedReason = reason
	return nil
}

type fakeChain struct {
	txHash        string
	transferErr   error
	confirmations []bool
	confirmErr    error
	confirmCalls  int
}

func (f *fakeChain) Transfer(ctx context.Context, contractAddress, tokenID, toAddress string) (string, error) {
	if f.transferErr != nil {
		return "", f.transferErr
	}
	return f.txHash, nil
}

func (f *fakeChain) IsConfirmed(ctx context.Context, txHash string, minConfirmations int) (bool, error) {
	idx := f.confirmCalls
	f.confirmCalls++
	if f.confirmErr != nil {
		return false, f.confirmErr
	}
	if idx >= len(f.confirmations) {
		return false, nil
	}
	return f.confirmations[idx], nil
}

func newTestCustody(store *fakeCustodyStore, chain *fakeChain) *Custody {
	cfg := CustodyConfig{MinConfirmations: 3, ConfirmWait: 50 * time.Millisecond, ConfirmPoll: time.Millisecond}
	return NewCustody(store, chain, nil, "", "", cfg, nil, slog.Default())
}

func pendingRequest() storage.NFTWithdrawalRequest {
	return storage.NFTWithdrawalRequest{
		ID:           uuid.New(),
		UserID:       uuid.New(),
		NFTTokenID:   uuid.New(),
		TargetWallet: "0x742d35Cc6634C0532925a3b844Bc454e4438f44e",
		Status:       storage.WithdrawalStatusPending,
	}
}

func TestValidWallet(t *testing.T) {
	cases := []struct {
		addr string
		want bool
	}{
		{"0x742d35Cc6634C0532925a3b844Bc454e4438f44e", true},
		{"0x0000000000000000000000000000000000000000", true},
		{"742d35Cc6634C0532925a3b844Bc454e4438f44e", false},
		{"0x742d35Cc6634C0532925a3b844Bc454e4438f44", false},
		{"0x742d35Cc6634C0532925a3b844Bc454e4438f44ez", false},
		{"", false},
	}
	for _, tc := range cases {
		if got := ValidWallet(tc.addr); got != tc.want {
			t.Fatalf("ValidWallet(%q) = %v, want %v", tc.addr, got, tc.want)
		}
	}
}

func TestMintRejectsMissingTokenID(t *testing.T) {
	c := newTestCustody(&fakeCustodyStore{}, &fakeChain{})
	_, err := c.Mint(context.Background(), MintRequest{ContractID: uuid.New(), Price: decimal.NewFromInt(100)})
	e, ok := AsEngineError(err)
	if !ok || e.Code != CodeInvalidRequest {
		t.Fatalf("expected INVALID_REQUEST, got %v", err)
	}
}

func TestMintRejectsDuplicateToken(t *testing.T) {
	c := newTestCustody(&fakeCustodyStore{mintErr: storage.ErrTokenExists}, &fakeChain{})
	_, err := c.Mint(context.Background(), MintRequest{ContractID: uuid.New(), TokenID: "1", Price: decimal.NewFromInt(100)})
	e, ok := AsEngineError(err)
	if !ok || e.Code != CodeConflict {
		t.Fatalf("expected CONFLICT, got %v", err)
	}
}

func TestBuyPassesFeeRate(t *testing.T) {
	store := &fakeCustodyStore{purchase: &storage.PurchaseResult{}}
	c := newTestCustody(store, &fakeChain{})
	if _, err := c.Buy(context.Background(), uuid.New(), uuid.New()); err != nil {
		t.Fatalf("expected purchase, got %v", err)
	}
	if !store.purchaseRate.Equal(FeeRate) {
		t.Fatalf("expected fee rate %s, got %s", FeeRate, store.purchaseRate)
	}
}

func TestBuyLoserGetsConflict(t *testing.T) {
	c := newTestCustody(&fakeCustodyStore{purchaseErr: storage.ErrAlreadyOwned}, &fakeChain{})
	_, err := c.Buy(context.Background(), uuid.New(), uuid.New())
	e, ok := AsEngineError(err)
	if !ok || e.Code != CodeConflict {
		t.Fatalf("expected CONFLICT, got %v", err)
	}
}

func TestSellRejectsNonPositivePrice(t *testing.T) {
	c := newTestCustody(&fakeCustodyStore{}, &fakeChain{})
	_, err := c.Sell(context.Background(), uuid.New(), uuid.New(), decimal.Zero)
	e, ok := AsEngineError(err)
	if !ok || e.Code != CodeInvalidRequest {
		t.Fatalf("expected INVALID_REQUEST, got %v", err)
	}
}

func TestSellRejectsNonOwner(t *testing.T) {
	c := newTestCustody(&fakeCustodyStore{listErr: storage.ErrNotTokenOwner}, &fakeChain{})
	_, err := c.Sell(context.Background(), uuid.New(), uuid.New(), decimal.NewFromInt(100))
	e, ok := AsEngineError(err)
	if !ok || e.Code != CodeConflict {
		t.Fatalf("expected CONFLICT, got %v", err)
	}
}

func TestRequestWithdrawalRejectsBadWallet(t *testing.T) {
	c := newTestCustody(&fakeCustodyStore{}, &fakeChain{})
	_, err := c.RequestWithdrawal(context.Background(), uuid.New(), uuid.New(), "not-a-wallet")
	e, ok := AsEngineError(err)
	if !ok || e.Code != CodeInvalidRequest {
		t.Fatalf("expected INVALID_REQUEST, got %v", err)
	}
}

func TestProcessPendingWithdrawalCompletes(t *testing.T) {
	req := pendingRequest()
	store := &fakeCustodyStore{
		token: &storage.NFTToken{ID: req.NFTTokenID, ContractID: uuid.New(), TokenID: "7"},
	}
	chain := &fakeChain{txHash: "0xdeadbeef", confirmations: []bool{false, true}}
	c := newTestCustody(store, chain)

	if err := c.ProcessPendingWithdrawal(context.Background(), req); err != nil {
		t.Fatalf("expected completion, got %v", err)
	}
	if store.completedID != req.ID {
		t.Fatalf("expected request %s completed, got %s", req.ID, store.completedID)
	}
	if store.completedHash != "0xdeadbeef" {
		t.Fatalf("expected tx hash recorded, got %q", store.completedHash)
	}
	if store.failedID != uuid.Nil {
		t.Fatalf("expected no failure, got %s", store.failedID)
	}
	if chain.confirmCalls != 2 {
		t.Fatalf("expected 2 confirmation polls, got %d", chain.confirmCalls)
	}
}

func TestProcessPendingWithdrawalTransferFailureReverts(t *testing.T) {
	req := pendingRequest()
	store := &fakeCustodyStore{
		token: &storage.NFTToken{ID: req.NFTTokenID, ContractID: uuid.New(), TokenID: "7"},
	}
	chain := &fakeChain{transferErr: errors.New("nonce too low")}
	c := newTestCustody(store, chain)

	if err := c.ProcessPendingWithdrawal(context.Background(), req); err != nil {
		t.Fatalf("a failed transfer is a handled outcome, got %v", err)
	}
	if store.failedID != req.ID {
		t.Fatalf("expected request marked failed")
	}
	if store.failedReason == "" {
		t.Fatalf("expected failure reason recorded")
	}
	if store.completedID != uuid.Nil {
		t.Fatalf("expected no completion")
	}
}

func TestProcessPendingWithdrawalTimesOut(t *testing.T) {
	req := pendingRequest()
	store := &fakeCustodyStore{
		token: &storage.NFTToken{ID: req.NFTTokenID, ContractID: uuid.New(), TokenID: "7"},
	}
	chain := &fakeChain{txHash: "0xabc"}
	c := newTestCustody(store, chain)

	if err := c.ProcessPendingWithdrawal(context.Background(), req); err != nil {
		t.Fatalf("expected handled timeout, got %v", err)
	}
	if store.failedID != req.ID {
		t.Fatalf("expected timed-out withdrawal marked failed")
	}
}

func TestProcessPendingWithdrawalTokenLookupFailure(t *testing.T) {
	req := pendingRequest()
	store := &fakeCustodyStore{tokenErr: storage.ErrNotFound}
	c := newTestCustody(store, &fakeChain{})

	if err := c.ProcessPendingWithdrawal(context.Background(), req); err != nil {
		t.Fatalf("expected handled failure, got %v", err)
	}
	if store.failedID != req.ID {
		t.Fatalf("expected request marked failed on lookup error")
	}
}
