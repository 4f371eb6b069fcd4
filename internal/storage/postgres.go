package storage

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

var (
	ErrNotFound             = errors.New("not found")
	ErrEmailTaken           = errors.New("email already registered")
	ErrNicknameTaken        = errors.New("nickname already taken")
	ErrInsufficientCash     = errors.New("insufficient cash")
	ErrInsufficientHoldings = errors.New("insufficient holdings")
	ErrTokenExists          = errors.New("token already exists")
	ErrAlreadyOwned         = errors.New("nft already owned")
	ErrTxConflict           = errors.New("transaction conflict")
)

// StartingCash seeds every new virtual account.
var StartingCash = decimal.RequireFromString("10000000.00")

type Store struct {
	pool   *pgxpool.Pool
	logger *slog.Logger
}

func New(pool *pgxpool.Pool, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{pool: pool, logger: logger}
}

func Connect(ctx context.Context, host string, port int, name, user, password, sslMode string) (*pgxpool.Pool, error) {
	dsn := fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s", user, password, host, port, name, sslMode)
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse dsn: %w", err)
	}
	cfg.MaxConns = 10
	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, err
	}
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping: %w", err)
	}
	return pool, nil
}

func (s *Store) Pool() *pgxpool.Pool { return s.pool }

// CreateUserWithAccount registers a user and seeds the virtual account in
// one transaction.
func (s *Store) CreateUserWithAccount(ctx context.Context, email, passwordHash, nickname string) (*User, *VirtualAccount, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	nickname = strings.TrimSpace(nickname)
	if email == "" || passwordHash == "" || nickname == "" {
		return nil, nil, fmt.Errorf("email, password hash and nickname are required")
	}

	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return nil, nil, err
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback(ctx)
		}
	}()

	user := User{Email: email, PasswordHash: passwordHash, Nickname: nickname, Role: "user", Active: true}
	err = tx.QueryRow(ctx, `
		INSERT INTO users (email, password_hash, nickname)
		VALUES ($1, $2, $3)
		RETURNING id, role, active, created_at
	`, email, passwordHash, nickname).Scan(&user.ID, &user.Role, &user.Active, &user.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			if strings.Contains(err.Error(), "nickname") {
				return nil, nil, ErrNicknameTaken
			}
			return nil, nil, ErrEmailTaken
		}
		return nil, nil, err
	}

	acct := VirtualAccount{UserID: user.ID, BaseCash: StartingCash}
	err = tx.QueryRow(ctx, `
		INSERT INTO virtual_accounts (user_id, base_cash)
		VALUES ($1, $2)
		RETURNING id, updated_at
	`, user.ID, StartingCash.String()).Scan(&acct.ID, &acct.UpdatedAt)
	if err != nil {
		return nil, nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, nil, err
	}
	committed = true
	return &user, &acct, nil
}

func (s *Store) GetUserByEmail(ctx context.Context, email string) (*User, error) {
	var user User
	row := s.pool.QueryRow(ctx, `
		SELECT id, email, password_hash, nickname, role, active, created_at
		FROM users WHERE email = $1
	`, strings.ToLower(strings.TrimSpace(email)))
	if err := row.Scan(&user.ID, &user.Email, &user.PasswordHash, &user.Nickname, &user.Role, &user.Active, &user.CreatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &user, nil
}

func (s *Store) GetUserByID(ctx context.Context, userID uuid.UUID) (*User, error) {
	var user User
	row := s.pool.QueryRow(ctx, `
		SELECT id, email, password_hash, nickname, role, active, created_at
		FROM users WHERE id = $1
	`, userID)
	if err := row.Scan(&user.ID, &user.Email, &user.PasswordHash, &user.Nickname, &user.Role, &user.Active, &user.CreatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &user, nil
}

func (s *Store) GetAccountByUser(ctx context.Context, userID uuid.UUID) (*VirtualAccount, error) {
	var acct VirtualAccount
	var cashStr string
	row := s.pool.QueryRow(ctx, `
		SELECT id, user_id, base_cash::text, updated_at
		FROM virtual_accounts WHERE user_id = $1
	`, userID)
	if err := row.Scan(&acct.ID, &acct.UserID, &cashStr, &acct.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	var err error
	acct.BaseCash, err = decimal.NewFromString(cashStr)
	if err != nil {
		return nil, fmt.Errorf("parse base cash: %w", err)
	}
	return &acct, nil
}

func (s *Store) GetCoinBySymbol(ctx context.Context, symbol string) (*Coin, error) {
	var coin Coin
	var sourceID *string
	row := s.pool.QueryRow(ctx, `
		SELECT id, symbol, name, enabled, price_source_id
		FROM coins WHERE symbol = $1
	`, strings.ToUpper(strings.TrimSpace(symbol)))
	if err := row.Scan(&coin.ID, &coin.Symbol, &coin.Name, &coin.Enabled, &sourceID); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	if sourceID != nil {
		coin.PriceSourceID = *sourceID
	}
	return &coin, nil
}

func (s *Store) GetCoinByID(ctx context.Context, coinID uuid.UUID) (*Coin, error) {
	var coin Coin
	var sourceID *string
	row := s.pool.QueryRow(ctx, `
		SELECT id, symbol, name, enabled, price_source_id
		FROM coins WHERE id = $1
	`, coinID)
	if err := row.Scan(&coin.ID, &coin.Symbol, &coin.Name, &coin.Enabled, &sourceID); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	if sourceID != nil {
		coin.PriceSourceID = *sourceID
	}
	return &coin, nil
}

func (s *Store) ListEnabledCoins(ctx context.Context) ([]Coin, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, symbol, name, enabled, price_source_id
		FROM coins WHERE enabled ORDER BY symbol
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var coins []Coin
	for rows.Next() {
		var coin Coin
		var sourceID *string
		if err := rows.Scan(&coin.ID, &coin.Symbol, &coin.Name, &coin.Enabled, &sourceID); err != nil {
			return nil, err
		}
		if sourceID != nil {
			coin.PriceSourceID = *sourceID
		}
		coins = append(coins, coin)
	}
	return coins, rows.Err()
}

func (s *Store) UpsertCoin(ctx context.Context, symbol, name, priceSourceID string) (*Coin, error) {
	symbol = strings.ToUpper(strings.TrimSpace(symbol))
	if symbol == "" || name == "" {
		return nil, fmt.Errorf("symbol and name are required")
	}
	var sourceArg *string
	if priceSourceID != "" {
		sourceArg = &priceSourceID
	}
	coin := Coin{Symbol: symbol, Name: name, Enabled: true, PriceSourceID: priceSourceID}
	err := s.pool.QueryRow(ctx, `
		INSERT INTO coins (symbol, name, price_source_id)
		VALUES ($1, $2, $3)
		ON CONFLICT (symbol) DO UPDATE SET name = EXCLUDED.name, price_source_id = EXCLUDED.price_source_id
		RETURNING id
	`, symbol, name, sourceArg).Scan(&coin.ID)
	if err != nil {
		return nil, err
	}
	return &coin, nil
}

// GetBalances returns non-zero holdings for the account.
func (s *Store) GetBalances(ctx context.Context, accountID uuid.UUID) ([]CoinBalance, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, account_id, coin_id, amount::text, avg_buy_price::text, updated_at
		FROM account_balances
		WHERE account_id = $1 AND amount > 0
	`, accountID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var balances []CoinBalance
	for rows.Next() {
		bal, err := scanBalance(rows)
		if err != nil {
			return nil, err
		}
		balances = append(balances, bal)
	}
	return balances, rows.Err()
}

func (s *Store) GetBalance(ctx context.Context, accountID, coinID uuid.UUID) (*CoinBalance, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT id, account_id, coin_id, amount::text, avg_buy_price::text, updated_at
		FROM account_balances
		WHERE account_id = $1 AND coin_id = $2
	`, accountID, coinID)
	bal, err := scanBalance(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &bal, nil
}

func (s *Store) ListOrdersByUser(ctx context.Context, userID uuid.UUID, limit int) ([]Order, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	rows, err := s.pool.Query(ctx, `
		SELECT id, user_id, coin_id, side, order_type, requested_price::text, executed_price::text,
		       quantity::text, status, created_at, COALESCE(filled_at, 'epoch'::timestamptz)
		FROM orders
		WHERE user_id = $1
		ORDER BY created_at DESC
		LIMIT $2
	`, userID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var orders []Order
	for rows.Next() {
		var o Order
		var reqStr, execStr, qtyStr string
		if err := rows.Scan(&o.ID, &o.UserID, &o.CoinID, &o.Side, &o.Type, &reqStr, &execStr, &qtyStr, &o.Status, &o.CreatedAt, &o.FilledAt); err != nil {
			return nil, err
		}
		if o.RequestedPrice, err = decimal.NewFromString(reqStr); err != nil {
			return nil, fmt.Errorf("parse requested price: %w", err)
		}
		if o.ExecutedPrice, err = decimal.NewFromString(execStr); err != nil {
			return nil, fmt.Errorf("parse executed price: %w", err)
		}
		if o.Quantity, err = decimal.NewFromString(qtyStr); err != nil {
			return nil, fmt.Errorf("parse quantity: %w", err)
		}
		orders = append(orders, o)
	}
	return orders, rows.Err()
}

func (s *Store) AddWatchlistEntry(ctx context.Context, userID, coinID uuid.UUID) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO watchlists (user_id, coin_id)
		VALUES ($1, $2)
		ON CONFLICT (user_id, coin_id) DO NOTHING
	`, userID, coinID)
	return err
}

func (s *Store) RemoveWatchlistEntry(ctx context.Context, userID, coinID uuid.UUID) error {
	tag, err := s.pool.Exec(ctx, `
		DELETE FROM watchlists WHERE user_id = $1 AND coin_id = $2
	`, userID, coinID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *Store) ListWatchlist(ctx context.Context, userID uuid.UUID) ([]Coin, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT c.id, c.symbol, c.name, c.enabled, c.price_source_id
		FROM watchlists w
		JOIN coins c ON c.id = w.coin_id
		WHERE w.user_id = $1
		ORDER BY w.created_at
	`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var coins []Coin
	for rows.Next() {
		var coin Coin
		var sourceID *string
		if err := rows.Scan(&coin.ID, &coin.Symbol, &coin.Name, &coin.Enabled, &sourceID); err != nil {
			return nil, err
		}
		if sourceID != nil {
			coin.PriceSourceID = *sourceID
		}
		coins = append(coins, coin)
	}
	return coins, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanBalance(row rowScanner) (CoinBalance, error) {
	var bal CoinBalance
	var amountStr, avgStr string
	if err := row.Scan(&bal.ID, &bal.AccountID, &bal.CoinID, &amountStr, &avgStr, &bal.UpdatedAt); err != nil {
		return CoinBalance{}, err
	}
	var err error
	if bal.Amount, err = decimal.NewFromString(amountStr); err != nil {
		return CoinBalance{}, fmt.Errorf("parse balance amount: %w", err)
	}
	if bal.AvgBuyPrice, err = decimal.NewFromString(avgStr); err != nil {
		return CoinBalance{}, fmt.Errorf("parse avg buy price: %w", err)
	}
	return bal, nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}
	return false
}

func isSerializationFailure(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "40001" || pgErr.Code == "40P01"
	}
	return false
}
