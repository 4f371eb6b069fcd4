package workers

import (
	"context"
	"log/slog"

	"github.com/heodongun/DongunCoinHub/internal/storage"
)

const withdrawalBatchSize = 20

type WithdrawalStore interface {
	ListPendingWithdrawals(ctx context.Context, limit int) ([]storage.NFTWithdrawalRequest, error)
}

type WithdrawalProcessor interface {
	ProcessPendingWithdrawal(ctx context.Context, req storage.NFTWithdrawalRequest) error
}

// WithdrawalDrainer feeds PENDING withdrawal requests through the custody
// engine. A per-request failure is its own FAILED outcome; the drainer
// moves on to the next request either way.
type WithdrawalDrainer struct {
	store     WithdrawalStore
	processor WithdrawalProcessor
	logger    *slog.Logger
}

func NewWithdrawalDrainer(store WithdrawalStore, processor WithdrawalProcessor, logger *slog.Logger) *WithdrawalDrainer {
	if logger == nil {
		logger = slog.Default()
	}
	return &WithdrawalDrainer{store: store, processor: processor, logger: logger}
}

func (d *WithdrawalDrainer) Run(ctx context.Context) error {
	pending, err := d.store.ListPendingWithdrawals(ctx, withdrawalBatchSize)
	if err != nil {
		return err
	}
	for _, req := range pending {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if err := d.processor.ProcessPendingWithdrawal(ctx, req); err != nil {
			d.logger.Warn("withdrawal processing failed", "request_id", req.ID.String(), "error", err)
		}
	}
	return nil
}
