package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
)

// avgPriceScale is the fixed scale for weighted-average cost division.
const avgPriceScale = 8

// FillRequest is a fully priced order ready to settle. Price and Fee are
// computed by the caller before the transaction opens.
type FillRequest struct {
	UserID         uuid.UUID
	CoinID         uuid.UUID
	OrderType      string
	RequestedPrice decimal.Decimal
	Price          decimal.Decimal
	Quantity       decimal.Decimal
	Fee            decimal.Decimal
}

// ExecuteBuy settles a BUY atomically: lock the account row, check funds,
// debit cash, fold the fill into the weighted-average cost basis, and
// record the order and trade. A rejection rolls everything back so no
// order row survives a failed attempt.
func (s *Store) ExecuteBuy(ctx context.Context, req FillRequest) (*BuyFill, error) {
	if err := req.validate(); err != nil {
		return nil, err
	}
	requiredCash := req.Quantity.Mul(req.Price).Add(req.Fee)

	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.RepeatableRead})
	if err != nil {
		return nil, err
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback(ctx)
		}
	}()

	acct, err := s.getAccountForUpdate(ctx, tx, req.UserID)
	if err != nil {
		return nil, err
	}
	if acct.BaseCash.LessThan(requiredCash) {
		return nil, ErrInsufficientCash
	}

	now := time.Now().UTC()
	newCash := acct.BaseCash.Sub(requiredCash)
	if _, err := tx.Exec(ctx, `
		UPDATE virtual_accounts SET base_cash = $1, updated_at = $2 WHERE id = $3
	`, newCash.String(), now, acct.ID); err != nil {
		return nil, translateTxErr(err)
	}

	bal, err := s.getBalanceForUpdate(ctx, tx, acct.ID, req.CoinID)
	if err != nil && !errors.Is(err, pgx.ErrNoRows) {
		return nil, err
	}
	if errors.Is(err, pgx.ErrNoRows) {
		bal = &CoinBalance{AccountID: acct.ID, CoinID: req.CoinID, Amount: decimal.Zero, AvgBuyPrice: decimal.Zero}
	}

	newAmount := bal.Amount.Add(req.Quantity)
	newAvg := nextAvgBuyPrice(bal.Amount, bal.AvgBuyPrice, req.Quantity, req.Price)
	if err := s.upsertBalance(ctx, tx, acct.ID, req.CoinID, newAmount, newAvg, now); err != nil {
		return nil, translateTxErr(err)
	}

	order, trade, err := s.insertFill(ctx, tx, OrderSideBuy, req, now)
	if err != nil {
		return nil, translateTxErr(err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, translateTxErr(err)
	}
	committed = true

	return &BuyFill{
		Order:    order,
		Trade:    trade,
		BaseCash: newCash,
		Balance: CoinBalance{
			AccountID:   acct.ID,
			CoinID:      req.CoinID,
			Amount:      newAmount,
			AvgBuyPrice: newAvg,
			UpdatedAt:   now,
		},
	}, nil
}

// ExecuteSell settles a SELL atomically: lock the account and balance rows,
// check holdings, decrement the position (cost basis unchanged), credit
// net revenue, and record the order and trade.
func (s *Store) ExecuteSell(ctx context.Context, req FillRequest) (*SellFill, error) {
	if err := req.validate(); err != nil {
		return nil, err
	}
	revenue := req.Quantity.Mul(req.Price)
	netCredit := revenue.Sub(req.Fee)

	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.RepeatableRead})
	if err != nil {
		return nil, err
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback(ctx)
		}
	}()

	acct, err := s.getAccountForUpdate(ctx, tx, req.UserID)
	if err != nil {
		return nil, err
	}

	bal, err := s.getBalanceForUpdate(ctx, tx, acct.ID, req.CoinID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrInsufficientHoldings
		}
		return nil, err
	}
	if bal.Amount.LessThan(req.Quantity) {
		return nil, ErrInsufficientHoldings
	}

	now := time.Now().UTC()
	newCash := acct.BaseCash.Add(netCredit)
	if _, err := tx.Exec(ctx, `
		UPDATE virtual_accounts SET base_cash = $1, updated_at = $2 WHERE id = $3
	`, newCash.String(), now, acct.ID); err != nil {
		return nil, translateTxErr(err)
	}

	newAmount := bal.Amount.Sub(req.Quantity)
	if err := s.upsertBalance(ctx, tx, acct.ID, req.CoinID, newAmount, bal.AvgBuyPrice, now); err != nil {
		return nil, translateTxErr(err)
	}

	order, trade, err := s.insertFill(ctx, tx, OrderSideSell, req, now)
	if err != nil {
		return nil, translateTxErr(err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, translateTxErr(err)
	}
	committed = true

	return &SellFill{
		Order:    order,
		Trade:    trade,
		BaseCash: newCash,
		Balance: CoinBalance{
			AccountID:   acct.ID,
			CoinID:      req.CoinID,
			Amount:      newAmount,
			AvgBuyPrice: bal.AvgBuyPrice,
			UpdatedAt:   now,
		},
	}, nil
}

func (r FillRequest) validate() error {
	if r.UserID == uuid.Nil || r.CoinID == uuid.Nil {
		return fmt.Errorf("user_id and coin_id are required")
	}
	if r.Quantity.LessThanOrEqual(decimal.Zero) {
		return fmt.Errorf("quantity must be positive")
	}
	if r.Price.LessThanOrEqual(decimal.Zero) {
		return fmt.Errorf("price must be positive")
	}
	if r.Fee.IsNegative() {
		return fmt.Errorf("fee must be non-negative")
	}
	return nil
}

// nextAvgBuyPrice folds one more fill into the running cost basis. The
// first purchase sets the basis to the fill price exactly.
func nextAvgBuyPrice(oldAmount, oldAvg, quantity, price decimal.Decimal) decimal.Decimal {
	if oldAmount.LessThanOrEqual(decimal.Zero) {
		return price
	}
	totalCost := oldAmount.Mul(oldAvg).Add(quantity.Mul(price))
	return totalCost.DivRound(oldAmount.Add(quantity), avgPriceScale)
}

func (s *Store) getAccountForUpdate(ctx context.Context, tx pgx.Tx, userID uuid.UUID) (*VirtualAccount, error) {
	var acct VirtualAccount
	var cashStr string
	row := tx.QueryRow(ctx, `
		SELECT id, user_id, base_cash::text, updated_at
		FROM virtual_accounts
		WHERE user_id = $1
		FOR UPDATE
	`, userID)
	if err := row.Scan(&acct.ID, &acct.UserID, &cashStr, &acct.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		// A deadlock between two settlements locking the same rows in
		// opposite order surfaces on this read.
		return nil, translateTxErr(err)
	}
	var err error
	acct.BaseCash, err = decimal.NewFromString(cashStr)
	if err != nil {
		return nil, fmt.Errorf("parse base cash: %w", err)
	}
	return &acct, nil
}

func (s *Store) getBalanceForUpdate(ctx context.Context, tx pgx.Tx, accountID, coinID uuid.UUID) (*CoinBalance, error) {
	row := tx.QueryRow(ctx, `
		SELECT id, account_id, coin_id, amount::text, avg_buy_price::text, updated_at
		FROM account_balances
		WHERE account_id = $1 AND coin_id = $2
		FOR UPDATE
	`, accountID, coinID)
	bal, err := scanBalance(row)
	if err != nil {
		return nil, translateTxErr(err)
	}
	return &bal, nil
}

func (s *Store) upsertBalance(ctx context.Context, tx pgx.Tx, accountID, coinID uuid.UUID, amount, avgBuyPrice decimal.Decimal, now time.Time) error {
	_, err := tx.Exec(ctx, `
		INSERT INTO account_balances (account_id, coin_id, amount, avg_buy_price, updated_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (account_id, coin_id)
		DO UPDATE SET amount = EXCLUDED.amount, avg_buy_price = EXCLUDED.avg_buy_price, updated_at = EXCLUDED.updated_at
	`, accountID, coinID, amount.String(), avgBuyPrice.String(), now)
	return err
}

func (s *Store) insertFill(ctx context.Context, tx pgx.Tx, side string, req FillRequest, now time.Time) (Order, Trade, error) {
	order := Order{
		ID:             uuid.New(),
		UserID:         req.UserID,
		CoinID:         req.CoinID,
		Side:           side,
		Type:           req.OrderType,
		RequestedPrice: req.RequestedPrice,
		ExecutedPrice:  req.Price,
		Quantity:       req.Quantity,
		Status:         OrderStatusFilled,
		CreatedAt:      now,
		FilledAt:       now,
	}
	if _, err := tx.Exec(ctx, `
		INSERT INTO orders (id, user_id, coin_id, side, order_type, requested_price, executed_price, quantity, status, created_at, filled_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $10)
	`, order.ID, order.UserID, order.CoinID, order.Side, order.Type,
		order.RequestedPrice.String(), order.ExecutedPrice.String(), order.Quantity.String(), order.Status, now); err != nil {
		return Order{}, Trade{}, err
	}

	total := req.Quantity.Mul(req.Price)
	trade := Trade{
		ID:        uuid.New(),
		OrderID:   order.ID,
		UserID:    req.UserID,
		CoinID:    req.CoinID,
		Side:      side,
		Price:     req.Price,
		Quantity:  req.Quantity,
		Fee:       req.Fee,
		Total:     total,
		CreatedAt: now,
	}
	if _, err := tx.Exec(ctx, `
		INSERT INTO trades (id, order_id, user_id, coin_id, side, price, quantity, fee, total, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`, trade.ID, trade.OrderID, trade.UserID, trade.CoinID, trade.Side,
		trade.Price.String(), trade.Quantity.String(), trade.Fee.String(), trade.Total.String(), now); err != nil {
		return Order{}, Trade{}, err
	}

	return order, trade, nil
}

func translateTxErr(err error) error {
	if isSerializationFailure(err) || isUniqueViolation(err) {
		return ErrTxConflict
	}
	return err
}
