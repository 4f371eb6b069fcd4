package storage

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/heodongun/DongunCoinHub/internal/testutil"
)

func setupIntegration(t *testing.T) (*pgxpool.Pool, *Store) {
	t.Helper()
	if os.Getenv("COINHUB_TEST_DB") == "" {
		t.Skip("set COINHUB_TEST_DB=1 to run")
	}

	pool, err := testutil.SetupTestDB()
	if err != nil {
		t.Skipf("db connection failed: %v", err)
	}
	t.Cleanup(pool.Close)

	ctx := context.Background()
	if err := Migrate(ctx, pool); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	if err := testutil.CleanupTestData(ctx, pool); err != nil {
		t.Fatalf("cleanup: %v", err)
	}
	return pool, New(pool, nil)
}

func createTrader(t *testing.T, ctx context.Context, store *Store, email string) (*User, *VirtualAccount) {
	t.Helper()
	user, account, err := store.CreateUserWithAccount(ctx, email, "hash", email[:4])
	if err != nil {
		t.Fatalf("create user: %v", err)
	}
	return user, account
}

func TestCreateUserSeedsStartingCash(t *testing.T) {
	_, store := setupIntegration(t)
	ctx := context.Background()

	_, account := createTrader(t, ctx, store, "cash@example.com")
	if !account.BaseCash.Equal(StartingCash) {
		t.Fatalf("expected %s starting cash, got %s", StartingCash, account.BaseCash)
	}
}

func TestBuyThenSellSettlement(t *testing.T) {
	_, store := setupIntegration(t)
	ctx := context.Background()

	user, _ := createTrader(t, ctx, store, "fill@example.com")
	coin, err := store.UpsertCoin(ctx, "BTC", "Bitcoin", "bitcoin")
	if err != nil {
		t.Fatalf("upsert coin: %v", err)
	}

	buy, err := store.ExecuteBuy(ctx, FillRequest{
		UserID:         user.ID,
		CoinID:         coin.ID,
		OrderType:      OrderTypeMarket,
		RequestedPrice: decimal.NewFromInt(100000),
		Price:          decimal.NewFromInt(100000),
		Quantity:       decimal.NewFromInt(1),
		Fee:            decimal.NewFromInt(100),
	})
	if err != nil {
		t.Fatalf("buy: %v", err)
	}
	if !buy.BaseCash.Equal(decimal.RequireFromString("9899900.00")) {
		t.Fatalf("expected cash 9899900.00, got %s", buy.BaseCash)
	}
	if !buy.Balance.AvgBuyPrice.Equal(decimal.NewFromInt(100000)) {
		t.Fatalf("expected basis 100000, got %s", buy.Balance.AvgBuyPrice)
	}
	if buy.Order.Status != OrderStatusFilled {
		t.Fatalf("expected FILLED, got %s", buy.Order.Status)
	}

	sell, err := store.ExecuteSell(ctx, FillRequest{
		UserID:         user.ID,
		CoinID:         coin.ID,
		OrderType:      OrderTypeMarket,
		RequestedPrice: decimal.NewFromInt(120000),
		Price:          decimal.NewFromInt(120000),
		Quantity:       decimal.RequireFromString("0.5"),
		Fee:            decimal.NewFromInt(60),
	})
	if err != nil {
		t.Fatalf("sell: %v", err)
	}
	if !sell.BaseCash.Equal(decimal.RequireFromString("9959840.00")) {
		t.Fatalf("expected cash 9959840.00, got %s", sell.BaseCash)
	}
	if !sell.Balance.AvgBuyPrice.Equal(decimal.NewFromInt(100000)) {
		t.Fatalf("selling must not move the basis, got %s", sell.Balance.AvgBuyPrice)
	}
	if !sell.Balance.Amount.Equal(decimal.RequireFromString("0.5")) {
		t.Fatalf("expected 0.5 remaining, got %s", sell.Balance.Amount)
	}
}

func TestAvgBuyPriceKeepsFullScaleAcrossFills(t *testing.T) {
	_, store := setupIntegration(t)
	ctx := context.Background()

	user, account := createTrader(t, ctx, store, "scale@example.com")
	coin, err := store.UpsertCoin(ctx, "SOL", "Solana", "solana")
	if err != nil {
		t.Fatalf("upsert coin: %v", err)
	}

	fill := func(qty, price string) {
		t.Helper()
		if _, err := store.ExecuteBuy(ctx, FillRequest{
			UserID:         user.ID,
			CoinID:         coin.ID,
			OrderType:      OrderTypeMarket,
			RequestedPrice: decimal.RequireFromString(price),
			Price:          decimal.RequireFromString(price),
			Quantity:       decimal.RequireFromString(qty),
			Fee:            decimal.Zero,
		}); err != nil {
			t.Fatalf("buy %s@%s: %v", qty, price, err)
		}
	}

	// 1@100 then 2@100.5 averages to 301/3, which has no finite decimal
	// expansion and must round half-up at eight fractional digits.
	fill("1", "100")
	fill("2", "100.5")

	bal, err := store.GetBalance(ctx, account.ID, coin.ID)
	if err != nil {
		t.Fatalf("get balance: %v", err)
	}
	want := decimal.RequireFromString("100.33333333")
	if !bal.AvgBuyPrice.Equal(want) {
		t.Fatalf("expected stored basis %s, got %s", want, bal.AvgBuyPrice)
	}

	// The next fill must compound from the stored scale-8 basis, not a
	// value the column rounded on write.
	fill("3", "110")
	bal, err = store.GetBalance(ctx, account.ID, coin.ID)
	if err != nil {
		t.Fatalf("get balance: %v", err)
	}
	want = decimal.RequireFromString("105.16666667")
	if !bal.AvgBuyPrice.Equal(want) {
		t.Fatalf("expected compounded basis %s, got %s", want, bal.AvgBuyPrice)
	}
}

func TestBuyInsufficientCashLeavesNoOrder(t *testing.T) {
	_, store := setupIntegration(t)
	ctx := context.Background()

	user, _ := createTrader(t, ctx, store, "poor@example.com")
	coin, err := store.UpsertCoin(ctx, "BTC", "Bitcoin", "bitcoin")
	if err != nil {
		t.Fatalf("upsert coin: %v", err)
	}

	_, err = store.ExecuteBuy(ctx, FillRequest{
		UserID:   user.ID,
		CoinID:   coin.ID,
		Price:    decimal.NewFromInt(100000000),
		Quantity: decimal.NewFromInt(1),
		Fee:      decimal.Zero,
	})
	if !errors.Is(err, ErrInsufficientCash) {
		t.Fatalf("expected ErrInsufficientCash, got %v", err)
	}

	orders, err := store.ListOrdersByUser(ctx, user.ID, 10)
	if err != nil {
		t.Fatalf("list orders: %v", err)
	}
	if len(orders) != 0 {
		t.Fatalf("rejected order must leave no row, found %d", len(orders))
	}
}

func TestSellWithoutHoldings(t *testing.T) {
	_, store := setupIntegration(t)
	ctx := context.Background()

	user, _ := createTrader(t, ctx, store, "empty@example.com")
	coin, err := store.UpsertCoin(ctx, "ETH", "Ethereum", "ethereum")
	if err != nil {
		t.Fatalf("upsert coin: %v", err)
	}

	_, err = store.ExecuteSell(ctx, FillRequest{
		UserID:   user.ID,
		CoinID:   coin.ID,
		Price:    decimal.NewFromInt(5000),
		Quantity: decimal.NewFromInt(1),
		Fee:      decimal.Zero,
	})
	if !errors.Is(err, ErrInsufficientHoldings) {
		t.Fatalf("expected ErrInsufficientHoldings, got %v", err)
	}
}

func TestNFTVaultPurchaseAndFailedWithdrawalReverts(t *testing.T) {
	_, store := setupIntegration(t)
	ctx := context.Background()

	user, _ := createTrader(t, ctx, store, "nft@example.com")
	contract, err := store.CreateContract(ctx, "ethereum", "0x1111111111111111111111111111111111111111", "Test", "TST")
	if err != nil {
		t.Fatalf("create contract: %v", err)
	}
	token, err := store.MintToken(ctx, contract.ID, "1", "Genesis #1", "RARE", "", "", decimal.NewFromInt(100000))
	if err != nil {
		t.Fatalf("mint: %v", err)
	}

	res, err := store.PurchaseToken(ctx, user.ID, token.ID, decimal.RequireFromString("0.001"))
	if err != nil {
		t.Fatalf("purchase: %v", err)
	}
	if res.Inventory.Status != InventoryStatusOwned {
		t.Fatalf("expected OWNED inventory, got %s", res.Inventory.Status)
	}
	if res.Token.Status != TokenStatusOwned {
		t.Fatalf("expected OWNED token, got %s", res.Token.Status)
	}

	// Double purchase of the same token is a conflict.
	other, _ := createTrader(t, ctx, store, "late@example.com")
	if _, err := store.PurchaseToken(ctx, other.ID, token.ID, decimal.RequireFromString("0.001")); err == nil {
		t.Fatalf("expected second purchase rejected")
	}

	req, err := store.CreateWithdrawalRequest(ctx, user.ID, token.ID, "0x742d35Cc6634C0532925a3b844Bc454e4438f44e")
	if err != nil {
		t.Fatalf("request withdrawal: %v", err)
	}
	if req.Status != WithdrawalStatusPending {
		t.Fatalf("expected PENDING, got %s", req.Status)
	}

	refreshed, err := store.GetToken(ctx, token.ID)
	if err != nil {
		t.Fatalf("get token: %v", err)
	}
	if refreshed.Status != TokenStatusWithdrawRequested {
		t.Fatalf("expected WITHDRAW_REQUESTED, got %s", refreshed.Status)
	}

	if err := store.FailWithdrawal(ctx, req.ID, "transfer failed"); err != nil {
		t.Fatalf("fail withdrawal: %v", err)
	}

	refreshed, err = store.GetToken(ctx, token.ID)
	if err != nil {
		t.Fatalf("get token: %v", err)
	}
	if refreshed.Status != TokenStatusOwned {
		t.Fatalf("failed withdrawal must revert token to OWNED, got %s", refreshed.Status)
	}

	items, err := store.ListInventoryByUser(ctx, user.ID)
	if err != nil {
		t.Fatalf("list inventory: %v", err)
	}
	if len(items) != 1 || items[0].Inventory.Status != InventoryStatusOwned {
		t.Fatalf("expected one OWNED inventory row after revert")
	}

	// A finished request cannot be finished again.
	if err := store.CompleteWithdrawal(ctx, req.ID, "0xabc"); !errors.Is(err, ErrWithdrawalClosed) {
		t.Fatalf("expected ErrWithdrawalClosed, got %v", err)
	}
}

func TestConcurrentBuyersExactlyOneWins(t *testing.T) {
	_, store := setupIntegration(t)
	ctx := context.Background()

	contract, err := store.CreateContract(ctx, "ethereum", "0x3333333333333333333333333333333333333333", "Race", "RC")
	if err != nil {
		t.Fatalf("create contract: %v", err)
	}
	token, err := store.MintToken(ctx, contract.ID, "9", "Genesis #9", "RARE", "", "", decimal.NewFromInt(100000))
	if err != nil {
		t.Fatalf("mint: %v", err)
	}

	buyers := make([]*User, 4)
	for i := range buyers {
		buyers[i], _ = createTrader(t, ctx, store, fmt.Sprintf("buy%d@example.com", i))
	}

	// All buyers hit the same vault token at once. The token row lock and
	// the partial unique index on active inventories must let exactly one
	// purchase through.
	results := make(chan error, len(buyers))
	var wg sync.WaitGroup
	for _, b := range buyers {
		wg.Add(1)
		go func(userID uuid.UUID) {
			defer wg.Done()
			_, err := store.PurchaseToken(ctx, userID, token.ID, decimal.RequireFromString("0.001"))
			results <- err
		}(b.ID)
	}
	wg.Wait()
	close(results)

	wins := 0
	for err := range results {
		if err == nil {
			wins++
		}
	}
	if wins != 1 {
		t.Fatalf("expected exactly one winning purchase, got %d", wins)
	}

	refreshed, err := store.GetToken(ctx, token.ID)
	if err != nil {
		t.Fatalf("get token: %v", err)
	}
	if refreshed.Status != TokenStatusOwned {
		t.Fatalf("expected OWNED token after the race, got %s", refreshed.Status)
	}
}

func TestUniqueNicknameAndEmail(t *testing.T) {
	_, store := setupIntegration(t)
	ctx := context.Background()

	if _, _, err := store.CreateUserWithAccount(ctx, "dup@example.com", "hash", "dupnick"); err != nil {
		t.Fatalf("create user: %v", err)
	}
	if _, _, err := store.CreateUserWithAccount(ctx, "dup@example.com", "hash", "other"); !errors.Is(err, ErrEmailTaken) {
		t.Fatalf("expected ErrEmailTaken, got %v", err)
	}
	if _, _, err := store.CreateUserWithAccount(ctx, "fresh@example.com", "hash", "dupnick"); !errors.Is(err, ErrNicknameTaken) {
		t.Fatalf("expected ErrNicknameTaken, got %v", err)
	}
}
