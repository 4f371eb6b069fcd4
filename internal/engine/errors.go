package engine

import (
	"errors"

	"github.com/heodongun/DongunCoinHub/internal/storage"
)

const (
	CodeInvalidRequest   = "INVALID_REQUEST"
	CodeNotFound         = "NOT_FOUND"
	CodeConflict         = "CONFLICT"
	CodePriceUnavailable = "PRICE_UNAVAILABLE"
	CodeTxConflict       = "TX_CONFLICT"
	CodeInternal         = "INTERNAL"
)

// Error is the typed rejection every engine operation returns on failure.
// Handlers map codes to HTTP statuses; the message is user-visible.
type Error struct {
	Code    string
	Message string
}

func (e *Error) Error() string { return e.Code + ": " + e.Message }

func invalid(msg string) *Error  { return &Error{Code: CodeInvalidRequest, Message: msg} }
func notFound(msg string) *Error { return &Error{Code: CodeNotFound, Message: msg} }
func conflict(msg string) *Error { return &Error{Code: CodeConflict, Message: msg} }

// AsEngineError extracts the typed error, if any.
func AsEngineError(err error) (*Error, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e, true
	}
	return nil, false
}

// mapStoreError translates storage sentinels into the engine taxonomy.
// Unknown errors pass through for the boundary to treat as internal.
func mapStoreError(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, storage.ErrNotFound):
		return notFound("resource not found")
	case errors.Is(err, storage.ErrInsufficientCash):
		return conflict("insufficient cash")
	case errors.Is(err, storage.ErrInsufficientHoldings):
		return conflict("insufficient holdings")
	case errors.Is(err, storage.ErrTokenExists):
		return conflict("token already exists")
	case errors.Is(err, storage.ErrAlreadyOwned):
		return conflict("nft already owned")
	case errors.Is(err, storage.ErrTokenNotPurchasable):
		return conflict("nft not available for this action")
	case errors.Is(err, storage.ErrNotTokenOwner):
		return conflict("caller does not own this nft")
	case errors.Is(err, storage.ErrWithdrawalClosed):
		return conflict("withdrawal request already finished")
	case errors.Is(err, storage.ErrTxConflict):
		return &Error{Code: CodeTxConflict, Message: "concurrent update, please retry"}
	default:
		return err
	}
}
