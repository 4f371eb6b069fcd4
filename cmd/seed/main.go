package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"strconv"
	"time"

	"github.com/shopspring/decimal"

	"github.com/heodongun/DongunCoinHub/internal/auth"
	"github.com/heodongun/DongunCoinHub/internal/storage"
)

func main() {
	env := getEnv("COINHUB_ENV", "dev")
	if env != "dev" && env != "test" {
		log.Fatalf("refusing to seed: COINHUB_ENV must be 'dev' or 'test' (got '%s')", env)
	}

	host := getEnv("POSTGRES_HOST", "localhost")
	port, err := strconv.Atoi(getEnv("POSTGRES_PORT", "5432"))
	if err != nil {
		log.Fatalf("invalid POSTGRES_PORT: %v", err)
	}
	name := getEnv("POSTGRES_DB", "coinhub")
	user := getEnv("POSTGRES_USER", "coinhub")
	password := getEnv("POSTGRES_PASSWORD", "coinhub")
	sslmode := getEnv("POSTGRES_SSLMODE", "disable")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	pool, err := storage.Connect(ctx, host, port, name, user, password, sslmode)
	if err != nil {
		log.Fatalf("connect db: %v", err)
	}
	defer pool.Close()

	if err := storage.Migrate(ctx, pool); err != nil {
		log.Fatalf("migrate: %v", err)
	}

	store := storage.New(pool, nil)

	fmt.Println("Seeding database...")

	if err := seedCoins(ctx, store); err != nil {
		log.Fatalf("seed coins: %v", err)
	}
	fmt.Println("✓ Coins seeded")

	if err := seedUsers(ctx, store); err != nil {
		log.Fatalf("seed users: %v", err)
	}
	fmt.Println("✓ Users seeded")

	if err := seedVault(ctx, store, env); err != nil {
		log.Fatalf("seed nft vault: %v", err)
	}
	fmt.Println("✓ NFT vault seeded")

	fmt.Println("\n=== Seed Complete ===")
	fmt.Println("\nDemo Credentials:")
	fmt.Println("  Email: demo@example.com")
	fmt.Println("  Password: demo1234")
	fmt.Println("  Email: trader@example.com")
	fmt.Println("  Password: trader1234")
}

func getEnv(key, defaultValue string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultValue
}

func seedCoins(ctx context.Context, store *storage.Store) error {
	coins := []struct {
		symbol   string
		name     string
		sourceID string
	}{
		{"BTC", "Bitcoin", "bitcoin"},
		{"ETH", "Ethereum", "ethereum"},
		{"SOL", "Solana", "solana"},
		{"XRP", "XRP", "ripple"},
		{"DOGE", "Dogecoin", "dogecoin"},
		{"ADA", "Cardano", "cardano"},
	}

	for _, coin := range coins {
		if _, err := store.UpsertCoin(ctx, coin.symbol, coin.name, coin.sourceID); err != nil {
			return fmt.Errorf("upsert %s: %w", coin.symbol, err)
		}
	}
	return nil
}

func seedUsers(ctx context.Context, store *storage.Store) error {
	users := []struct {
		email    string
		password string
		nickname string
	}{
		{"demo@example.com", "demo1234", "demo"},
		{"trader@example.com", "trader1234", "trader"},
	}

	for _, u := range users {
		hash, err := auth.HashPassword(u.password, auth.DefaultArgon2Params())
		if err != nil {
			return fmt.Errorf("hash password for %s: %w", u.email, err)
		}
		_, _, err = store.CreateUserWithAccount(ctx, u.email, hash, u.nickname)
		if err != nil && !errors.Is(err, storage.ErrEmailTaken) {
			return fmt.Errorf("create %s: %w", u.email, err)
		}
	}
	return nil
}

func seedVault(ctx context.Context, store *storage.Store, env string) error {
	chainName := getEnv("COINHUB_CHAIN_NAME", "ethereum")
	address := getEnv("NFT_CONTRACT_ADDRESS", "0x1111111111111111111111111111111111111111")
	if env == "test" {
		address = "0x2222222222222222222222222222222222222222"
	}

	contract, err := store.CreateContract(ctx, chainName, address, "DongunCoinHub Collection", "DCH")
	if err != nil {
		return fmt.Errorf("create contract: %w", err)
	}

	tokens := []struct {
		tokenID string
		name    string
		rarity  string
		price   string
	}{
		{"1", "Dongun Genesis #1", "LEGENDARY", "500000"},
		{"2", "Dongun Genesis #2", "EPIC", "250000"},
		{"3", "Dongun Genesis #3", "EPIC", "250000"},
		{"4", "Dongun Genesis #4", "RARE", "100000"},
		{"5", "Dongun Genesis #5", "RARE", "100000"},
		{"6", "Dongun Genesis #6", "COMMON", "50000"},
		{"7", "Dongun Genesis #7", "COMMON", "50000"},
		{"8", "Dongun Genesis #8", "COMMON", "50000"},
	}

	for _, tok := range tokens {
		imageURL := fmt.Sprintf("https://cdn.example.com/dch/%s.png", tok.tokenID)
		metadataURL := fmt.Sprintf("https://cdn.example.com/dch/%s.json", tok.tokenID)
		_, err := store.MintToken(ctx, contract.ID, tok.tokenID, tok.name, tok.rarity, imageURL, metadataURL, decimal.RequireFromString(tok.price))
		if err != nil && !errors.Is(err, storage.ErrTokenExists) {
			return fmt.Errorf("mint token %s: %w", tok.tokenID, err)
		}
	}
	return nil
}
