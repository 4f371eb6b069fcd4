package storage

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
)

var (
	ErrTokenNotPurchasable = errors.New("token not purchasable")
	ErrNotTokenOwner       = errors.New("not token owner")
	ErrWithdrawalClosed    = errors.New("withdrawal request closed")
)

func (s *Store) CreateContract(ctx context.Context, chainName, address, name, symbol string) (*NFTContract, error) {
	address = strings.ToLower(strings.TrimSpace(address))
	if address == "" || name == "" {
		return nil, fmt.Errorf("address and name are required")
	}
	contract := NFTContract{ChainName: chainName, Address: address, Name: name, Symbol: symbol}
	err := s.pool.QueryRow(ctx, `
		INSERT INTO nft_contracts (chain_name, address, name, symbol)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (address) DO UPDATE SET name = EXCLUDED.name, symbol = EXCLUDED.symbol
		RETURNING id, created_at
	`, chainName, address, name, symbol).Scan(&contract.ID, &contract.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &contract, nil
}

func (s *Store) GetContract(ctx context.Context, contractID uuid.UUID) (*NFTContract, error) {
	var c NFTContract
	row := s.pool.QueryRow(ctx, `
		SELECT id, chain_name, address, name, symbol, created_at
		FROM nft_contracts WHERE id = $1
	`, contractID)
	if err := row.Scan(&c.ID, &c.ChainName, &c.Address, &c.Name, &c.Symbol, &c.CreatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &c, nil
}

// MintToken creates a token in VAULT custody with no owner.
func (s *Store) MintToken(ctx context.Context, contractID uuid.UUID, tokenID, name, rarity, imageURL, metadataURL string, price decimal.Decimal) (*NFTToken, error) {
	tokenID = strings.TrimSpace(tokenID)
	if tokenID == "" {
		return nil, fmt.Errorf("token_id is required")
	}
	if price.LessThanOrEqual(decimal.Zero) {
		return nil, fmt.Errorf("price must be positive")
	}

	token := NFTToken{
		ContractID:  contractID,
		TokenID:     tokenID,
		Name:        name,
		Rarity:      rarity,
		ImageURL:    imageURL,
		MetadataURL: metadataURL,
		Price:       price,
		Status:      TokenStatusVault,
	}
	err := s.pool.QueryRow(ctx, `
		INSERT INTO nft_tokens (contract_id, token_id, name, rarity, image_url, metadata_url, price, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id, created_at
	`, contractID, tokenID, name, rarity, imageURL, metadataURL, price.String(), TokenStatusVault).Scan(&token.ID, &token.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, ErrTokenExists
		}
		return nil, err
	}
	return &token, nil
}

func (s *Store) GetToken(ctx context.Context, tokenID uuid.UUID) (*NFTToken, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT id, contract_id, token_id, name, rarity, image_url, metadata_url,
		       price::text, status, COALESCE(current_owner, ''), created_at
		FROM nft_tokens WHERE id = $1
	`, tokenID)
	token, err := scanToken(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return token, nil
}

func (s *Store) ListVaultTokens(ctx context.Context) ([]NFTToken, error) {
	return s.listTokensByStatus(ctx, TokenStatusVault, TokenStatusListed)
}

func (s *Store) listTokensByStatus(ctx context.Context, statuses ...string) ([]NFTToken, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, contract_id, token_id, name, rarity, image_url, metadata_url,
		       price::text, status, COALESCE(current_owner, ''), created_at
		FROM nft_tokens
		WHERE status = ANY($1)
		ORDER BY created_at
	`, statuses)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var tokens []NFTToken
	for rows.Next() {
		token, err := scanToken(rows)
		if err != nil {
			return nil, err
		}
		tokens = append(tokens, *token)
	}
	return tokens, rows.Err()
}

// InventoryItem joins an inventory row with its token for the browse surface.
type InventoryItem struct {
	Inventory NFTInventory
	Token     NFTToken
}

func (s *Store) ListInventoryByUser(ctx context.Context, userID uuid.UUID) ([]InventoryItem, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT i.id, i.user_id, i.nft_token_id, i.purchase_price::text, i.status, i.acquired_at, i.updated_at,
		       t.id, t.contract_id, t.token_id, t.name, t.rarity, t.image_url, t.metadata_url,
		       t.price::text, t.status, COALESCE(t.current_owner, ''), t.created_at
		FROM user_nft_inventories i
		JOIN nft_tokens t ON t.id = i.nft_token_id
		WHERE i.user_id = $1 AND i.status != 'SOLD'
		ORDER BY i.acquired_at DESC
	`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []InventoryItem
	for rows.Next() {
		var item InventoryItem
		var purchaseStr, tokenPriceStr string
		if err := rows.Scan(
			&item.Inventory.ID, &item.Inventory.UserID, &item.Inventory.NFTTokenID, &purchaseStr,
			&item.Inventory.Status, &item.Inventory.AcquiredAt, &item.Inventory.UpdatedAt,
			&item.Token.ID, &item.Token.ContractID, &item.Token.TokenID, &item.Token.Name,
			&item.Token.Rarity, &item.Token.ImageURL, &item.Token.MetadataURL,
			&tokenPriceStr, &item.Token.Status, &item.Token.CurrentOwner, &item.Token.CreatedAt,
		); err != nil {
			return nil, err
		}
		if item.Inventory.PurchasePrice, err = decimal.NewFromString(purchaseStr); err != nil {
			return nil, fmt.Errorf("parse purchase price: %w", err)
		}
		if item.Token.Price, err = decimal.NewFromString(tokenPriceStr); err != nil {
			return nil, fmt.Errorf("parse token price: %w", err)
		}
		items = append(items, item)
	}
	return items, rows.Err()
}

// PurchaseResult carries the post-commit state of an NFT purchase.
type PurchaseResult struct {
	Inventory NFTInventory
	Token     NFTToken
	BaseCash  decimal.Decimal
	Trade     *NFTTrade
}

// PurchaseToken buys a token out of the vault, or fills an active resale
// listing when the token is LISTED. One transaction covers the token lock,
// funds check, cash movement and inventory handover; the partial unique
// index on active inventories breaks ties between concurrent buyers.
func (s *Store) PurchaseToken(ctx context.Context, userID, tokenID uuid.UUID, feeRate decimal.Decimal) (*PurchaseResult, error) {
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

	token, err := s.getTokenForUpdate(ctx, tx, tokenID)
	if err != nil {
		return nil, err
	}

	var listingPrice decimal.Decimal
	var listing *NFTOrder
	switch token.Status {
	case TokenStatusVault:
		listingPrice = token.Price
	case TokenStatusListed:
		listing, err = s.getActiveListingForUpdate(ctx, tx, tokenID)
		if err != nil {
			return nil, err
		}
		if listing.SellerID == userID {
			return nil, fmt.Errorf("cannot buy own listing")
		}
		listingPrice = listing.Price
	default:
		return nil, ErrTokenNotPurchasable
	}

	buyer, err := s.getAccountForUpdate(ctx, tx, userID)
	if err != nil {
		return nil, err
	}
	if buyer.BaseCash.LessThan(listingPrice) {
		return nil, ErrInsufficientCash
	}

	now := time.Now().UTC()
	newCash := buyer.BaseCash.Sub(listingPrice)
	if _, err := tx.Exec(ctx, `
		UPDATE virtual_accounts SET base_cash = $1, updated_at = $2 WHERE id = $3
	`, newCash.String(), now, buyer.ID); err != nil {
		return nil, translateTxErr(err)
	}

	var nftTrade *NFTTrade
	if listing != nil {
		// Resale: close out the seller side before handing the token over.
		if _, err := tx.Exec(ctx, `
			UPDATE user_nft_inventories SET status = 'SOLD', updated_at = $1 WHERE id = $2
		`, now, listing.InventoryID); err != nil {
			return nil, translateTxErr(err)
		}
		seller, err := s.getAccountForUpdate(ctx, tx, listing.SellerID)
		if err != nil {
			return nil, err
		}
		proceeds := listingPrice.Sub(listingPrice.Mul(feeRate))
		if _, err := tx.Exec(ctx, `
			UPDATE virtual_accounts SET base_cash = $1, updated_at = $2 WHERE id = $3
		`, seller.BaseCash.Add(proceeds).String(), now, seller.ID); err != nil {
			return nil, translateTxErr(err)
		}
		if _, err := tx.Exec(ctx, `
			UPDATE nft_orders SET status = 'FILLED', filled_at = $1 WHERE id = $2
		`, now, listing.ID); err != nil {
			return nil, translateTxErr(err)
		}
		nftTrade = &NFTTrade{
			ID:         uuid.New(),
			NFTOrderID: listing.ID,
			SellerID:   listing.SellerID,
			BuyerID:    userID,
			NFTTokenID: tokenID,
			Price:      listingPrice,
			CreatedAt:  now,
		}
		if _, err := tx.Exec(ctx, `
			INSERT INTO nft_trades (id, nft_order_id, seller_id, buyer_id, nft_token_id, price)
			VALUES ($1, $2, $3, $4, $5, $6)
		`, nftTrade.ID, nftTrade.NFTOrderID, nftTrade.SellerID, nftTrade.BuyerID, nftTrade.NFTTokenID, listingPrice.String()); err != nil {
			return nil, translateTxErr(err)
		}
	}

	inv := NFTInventory{
		ID:            uuid.New(),
		UserID:        userID,
		NFTTokenID:    tokenID,
		PurchasePrice: listingPrice,
		Status:        InventoryStatusOwned,
		AcquiredAt:    now,
		UpdatedAt:     now,
	}
	if _, err := tx.Exec(ctx, `
		INSERT INTO user_nft_inventories (id, user_id, nft_token_id, purchase_price, status, acquired_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $6)
	`, inv.ID, inv.UserID, inv.NFTTokenID, listingPrice.String(), InventoryStatusOwned, now); err != nil {
		if isUniqueViolation(err) {
			return nil, ErrAlreadyOwned
		}
		return nil, translateTxErr(err)
	}

	if _, err := tx.Exec(ctx, `
		UPDATE nft_tokens SET status = $1 WHERE id = $2
	`, TokenStatusOwned, tokenID); err != nil {
		return nil, translateTxErr(err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, translateTxErr(err)
	}
	committed = true

	token.Status = TokenStatusOwned
	return &PurchaseResult{Inventory: inv, Token: *token, BaseCash: newCash, Trade: nftTrade}, nil
}

// ListInventoryForSale flips an OWNED inventory to LISTED and opens an
// active resale order at the asked price.
func (s *Store) ListInventoryForSale(ctx context.Context, userID, inventoryID uuid.UUID, price decimal.Decimal) (*NFTOrder, error) {
	if price.LessThanOrEqual(decimal.Zero) {
		return nil, fmt.Errorf("price must be positive")
	}

	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return nil, err
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback(ctx)
		}
	}()

	inv, err := s.getInventoryForUpdate(ctx, tx, inventoryID)
	if err != nil {
		return nil, err
	}
	if inv.UserID != userID {
		return nil, ErrNotTokenOwner
	}
	if inv.Status != InventoryStatusOwned {
		return nil, ErrTokenNotPurchasable
	}

	now := time.Now().UTC()
	order := NFTOrder{
		ID:          uuid.New(),
		SellerID:    userID,
		InventoryID: inventoryID,
		NFTTokenID:  inv.NFTTokenID,
		Price:       price,
		Status:      NFTOrderStatusActive,
		CreatedAt:   now,
	}
	if _, err := tx.Exec(ctx, `
		INSERT INTO nft_orders (id, seller_id, inventory_id, nft_token_id, price, status)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, order.ID, order.SellerID, order.InventoryID, order.NFTTokenID, price.String(), NFTOrderStatusActive); err != nil {
		return nil, translateTxErr(err)
	}
	if _, err := tx.Exec(ctx, `
		UPDATE user_nft_inventories SET status = 'LISTED', updated_at = $1 WHERE id = $2
	`, now, inventoryID); err != nil {
		return nil, translateTxErr(err)
	}
	if _, err := tx.Exec(ctx, `
		UPDATE nft_tokens SET status = $1 WHERE id = $2
	`, TokenStatusListed, inv.NFTTokenID); err != nil {
		return nil, translateTxErr(err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, translateTxErr(err)
	}
	committed = true
	return &order, nil
}

// CreateWithdrawalRequest reserves the token for on-chain withdrawal. The
// WITHDRAW_REQUESTED status blocks concurrent sell or second withdrawal.
func (s *Store) CreateWithdrawalRequest(ctx context.Context, userID, tokenID uuid.UUID, targetWallet string) (*NFTWithdrawalRequest, error) {
	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return nil, err
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback(ctx)
		}
	}()

	inv, err := s.getActiveInventoryForUpdate(ctx, tx, tokenID)
	if err != nil {
		return nil, err
	}
	if inv.UserID != userID {
		return nil, ErrNotTokenOwner
	}
	if inv.Status != InventoryStatusOwned {
		return nil, ErrTokenNotPurchasable
	}

	now := time.Now().UTC()
	req := NFTWithdrawalRequest{
		ID:           uuid.New(),
		UserID:       userID,
		NFTTokenID:   tokenID,
		TargetWallet: targetWallet,
		Status:       WithdrawalStatusPending,
		RequestedAt:  now,
	}
	if _, err := tx.Exec(ctx, `
		INSERT INTO nft_withdrawal_requests (id, user_id, nft_token_id, target_wallet, status, requested_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, req.ID, userID, tokenID, targetWallet, WithdrawalStatusPending, now); err != nil {
		return nil, translateTxErr(err)
	}
	if _, err := tx.Exec(ctx, `
		UPDATE user_nft_inventories SET status = 'WITHDRAW_REQUESTED', updated_at = $1 WHERE id = $2
	`, now, inv.ID); err != nil {
		return nil, translateTxErr(err)
	}
	if _, err := tx.Exec(ctx, `
		UPDATE nft_tokens SET status = $1 WHERE id = $2
	`, TokenStatusWithdrawRequested, tokenID); err != nil {
		return nil, translateTxErr(err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, translateTxErr(err)
	}
	committed = true
	return &req, nil
}

func (s *Store) GetWithdrawalRequest(ctx context.Context, requestID uuid.UUID) (*NFTWithdrawalRequest, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT id, user_id, nft_token_id, target_wallet, status, tx_hash, failure_reason,
		       requested_at, COALESCE(completed_at, 'epoch'::timestamptz)
		FROM nft_withdrawal_requests WHERE id = $1
	`, requestID)
	req, err := scanWithdrawal(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return req, nil
}

func (s *Store) ListPendingWithdrawals(ctx context.Context, limit int) ([]NFTWithdrawalRequest, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.pool.Query(ctx, `
		SELECT id, user_id, nft_token_id, target_wallet, status, tx_hash, failure_reason,
		       requested_at, COALESCE(completed_at, 'epoch'::timestamptz)
		FROM nft_withdrawal_requests
		WHERE status = 'PENDING'
		ORDER BY requested_at
		LIMIT $1
	`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var requests []NFTWithdrawalRequest
	for rows.Next() {
		req, err := scanWithdrawal(rows)
		if err != nil {
			return nil, err
		}
		requests = append(requests, *req)
	}
	return requests, rows.Err()
}

// CompleteWithdrawal finalizes a confirmed on-chain transfer: the request
// records the tx hash, the inventory leaves active custody, and the token
// becomes externally owned.
func (s *Store) CompleteWithdrawal(ctx context.Context, requestID uuid.UUID, txHash string) error {
	return s.finishWithdrawal(ctx, requestID, func(tx pgx.Tx, req *NFTWithdrawalRequest, now time.Time) error {
		if _, err := tx.Exec(ctx, `
			UPDATE nft_withdrawal_requests
			SET status = 'COMPLETED', tx_hash = $1, completed_at = $2
			WHERE id = $3
		`, txHash, now, req.ID); err != nil {
			return err
		}
		if _, err := tx.Exec(ctx, `
			UPDATE user_nft_inventories SET status = 'SOLD', updated_at = $1
			WHERE nft_token_id = $2 AND user_id = $3 AND status = 'WITHDRAW_REQUESTED'
		`, now, req.NFTTokenID, req.UserID); err != nil {
			return err
		}
		_, err := tx.Exec(ctx, `
			UPDATE nft_tokens SET status = $1, current_owner = $2 WHERE id = $3
		`, TokenStatusWithdrawn, req.TargetWallet, req.NFTTokenID)
		return err
	})
}

// FailWithdrawal records the failure and reverts the inventory to OWNED so
// the user can retry. Leaving a token stranded in WITHDRAW_REQUESTED is
// never acceptable.
func (s *Store) FailWithdrawal(ctx context.Context, requestID uuid.UUID, reason string) error {
	return s.finishWithdrawal(ctx, requestID, func(tx pgx.Tx, req *NFTWithdrawalRequest, now time.Time) error {
		if _, err := tx.Exec(ctx, `
			UPDATE nft_withdrawal_requests
			SET status = 'FAILED', failure_reason = $1, completed_at = $2
			WHERE id = $3
		`, reason, now, req.ID); err != nil {
			return err
		}
		if _, err := tx.Exec(ctx, `
			UPDATE user_nft_inventories SET status = 'OWNED', updated_at = $1
			WHERE nft_token_id = $2 AND user_id = $3 AND status = 'WITHDRAW_REQUESTED'
		`, now, req.NFTTokenID, req.UserID); err != nil {
			return err
		}
		_, err := tx.Exec(ctx, `
			UPDATE nft_tokens SET status = $1 WHERE id = $2
		`, TokenStatusOwned, req.NFTTokenID)
		return err
	})
}

func (s *Store) finishWithdrawal(ctx context.Context, requestID uuid.UUID, apply func(pgx.Tx, *NFTWithdrawalRequest, time.Time) error) error {
	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback(ctx)
		}
	}()

	row := tx.QueryRow(ctx, `
		SELECT id, user_id, nft_token_id, target_wallet, status, tx_hash, failure_reason,
		       requested_at, COALESCE(completed_at, 'epoch'::timestamptz)
		FROM nft_withdrawal_requests
		WHERE id = $1
		FOR UPDATE
	`, requestID)
	req, err := scanWithdrawal(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrNotFound
		}
		return translateTxErr(err)
	}
	if req.Status != WithdrawalStatusPending {
		return ErrWithdrawalClosed
	}

	if err := apply(tx, req, time.Now().UTC()); err != nil {
		return translateTxErr(err)
	}
	if err := tx.Commit(ctx); err != nil {
		return translateTxErr(err)
	}
	committed = true
	return nil
}

func (s *Store) ListActiveNFTOrders(ctx context.Context) ([]NFTOrder, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, seller_id, inventory_id, nft_token_id, price::text, status,
		       created_at, COALESCE(filled_at, 'epoch'::timestamptz)
		FROM nft_orders
		WHERE status = 'ACTIVE'
		ORDER BY created_at DESC
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var orders []NFTOrder
	for rows.Next() {
		var o NFTOrder
		var priceStr string
		if err := rows.Scan(&o.ID, &o.SellerID, &o.InventoryID, &o.NFTTokenID, &priceStr, &o.Status, &o.CreatedAt, &o.FilledAt); err != nil {
			return nil, err
		}
		if o.Price, err = decimal.NewFromString(priceStr); err != nil {
			return nil, fmt.Errorf("parse listing price: %w", err)
		}
		orders = append(orders, o)
	}
	return orders, rows.Err()
}

func (s *Store) getTokenForUpdate(ctx context.Context, tx pgx.Tx, tokenID uuid.UUID) (*NFTToken, error) {
	row := tx.QueryRow(ctx, `
		SELECT id, contract_id, token_id, name, rarity, image_url, metadata_url,
		       price::text, status, COALESCE(current_owner, ''), created_at
		FROM nft_tokens
		WHERE id = $1
		FOR UPDATE
	`, tokenID)
	token, err := scanToken(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, translateTxErr(err)
	}
	return token, nil
}

func (s *Store) getInventoryForUpdate(ctx context.Context, tx pgx.Tx, inventoryID uuid.UUID) (*NFTInventory, error) {
	row := tx.QueryRow(ctx, `
		SELECT id, user_id, nft_token_id, purchase_price::text, status, acquired_at, updated_at
		FROM user_nft_inventories
		WHERE id = $1
		FOR UPDATE
	`, inventoryID)
	inv, err := scanInventory(row)
	if err != nil {
		return nil, translateTxErr(err)
	}
	return inv, nil
}

func (s *Store) getActiveInventoryForUpdate(ctx context.Context, tx pgx.Tx, tokenID uuid.UUID) (*NFTInventory, error) {
	row := tx.QueryRow(ctx, `
		SELECT id, user_id, nft_token_id, purchase_price::text, status, acquired_at, updated_at
		FROM user_nft_inventories
		WHERE nft_token_id = $1 AND status IN ('OWNED','LISTED','WITHDRAW_REQUESTED')
		FOR UPDATE
	`, tokenID)
	inv, err := scanInventory(row)
	if err != nil {
		return nil, translateTxErr(err)
	}
	return inv, nil
}

func (s *Store) getActiveListingForUpdate(ctx context.Context, tx pgx.Tx, tokenID uuid.UUID) (*NFTOrder, error) {
	var o NFTOrder
	var priceStr string
	row := tx.QueryRow(ctx, `
		SELECT id, seller_id, inventory_id, nft_token_id, price::text, status,
		       created_at, COALESCE(filled_at, 'epoch'::timestamptz)
		FROM nft_orders
		WHERE nft_token_id = $1 AND status = 'ACTIVE'
		FOR UPDATE
	`, tokenID)
	if err := row.Scan(&o.ID, &o.SellerID, &o.InventoryID, &o.NFTTokenID, &priceStr, &o.Status, &o.CreatedAt, &o.FilledAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrTokenNotPurchasable
		}
		return nil, translateTxErr(err)
	}
	var err error
	if o.Price, err = decimal.NewFromString(priceStr); err != nil {
		return nil, fmt.Errorf("parse listing price: %w", err)
	}
	return &o, nil
}

func scanToken(row rowScanner) (*NFTToken, error) {
	var t NFTToken
	var priceStr string
	if err := row.Scan(&t.ID, &t.ContractID, &t.TokenID, &t.Name, &t.Rarity, &t.ImageURL, &t.MetadataURL,
		&priceStr, &t.Status, &t.CurrentOwner, &t.CreatedAt); err != nil {
		return nil, err
	}
	var err error
	if t.Price, err = decimal.NewFromString(priceStr); err != nil {
		return nil, fmt.Errorf("parse token price: %w", err)
	}
	return &t, nil
}

func scanInventory(row rowScanner) (*NFTInventory, error) {
	var inv NFTInventory
	var priceStr string
	if err := row.Scan(&inv.ID, &inv.UserID, &inv.NFTTokenID, &priceStr, &inv.Status, &inv.AcquiredAt, &inv.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	var err error
	if inv.PurchasePrice, err = decimal.NewFromString(priceStr); err != nil {
		return nil, fmt.Errorf("parse purchase price: %w", err)
	}
	return &inv, nil
}

func scanWithdrawal(row rowScanner) (*NFTWithdrawalRequest, error) {
	var req NFTWithdrawalRequest
	if err := row.Scan(&req.ID, &req.UserID, &req.NFTTokenID, &req.TargetWallet, &req.Status,
		&req.TxHash, &req.FailureReason, &req.RequestedAt, &req.CompletedAt); err != nil {
		return nil, err
	}
	return &req, nil
}
