package audit

import (
	"context"
	"errors"
	"sync"

	"github.com/alitto/pond/v2"
	"github.com/rwa-network/usdyx/pkg/models"
	"github.com/rwa-network/usdyx/pkg/retry"
	"github.com/rwa-network/usdyx/pkg/utils"
	"go.uber.org/zap"
)

// Writer buffers audit records off the event hot path and flushes them to
// ClickHouse in batches. Records are idempotent write-once facts, so a
// flush that fails and is retried later can never corrupt the log; the
// aggregates' exactly-once guarantee lives in the entity store's
// applied-event ledger, not here.
type Writer struct {
	db     *DB
	logger *zap.Logger
	pool   pond.Pool

	mu                  sync.Mutex
	transfers           []*models.TransferRecord
	transferShares      []*models.TransferSharesRecord
	approvals           []*models.ApprovalRecord
	mintRequested       []*models.MintRequestedRecord
	mintCompleted       []*models.MintCompletedRecord
	redemptionRequested []*models.RedemptionRequestedRecord
	redemptionCompleted []*models.RedemptionCompletedRecord
	rangeSets           []*models.RangeSetRecord
	rangeOverrides      []*models.RangeOverriddenRecord
	priceUpdates        []*models.PriceUpdateRecord

	maxBuffer int
}

// NewWriter creates a buffered audit writer. AUDIT_FLUSH_WORKERS bounds
// concurrent table flushes; AUDIT_MAX_BUFFER is the per-table high-water
// mark above which Buffered() pressure should trigger a flush.
func NewWriter(db *DB, logger *zap.Logger) *Writer {
	return &Writer{
		db:        db,
		logger:    logger.Named("audit"),
		pool:      pond.NewPool(utils.EnvInt("AUDIT_FLUSH_WORKERS", 4)),
		maxBuffer: utils.EnvInt("AUDIT_MAX_BUFFER", 5000),
	}
}

func (w *Writer) Transfer(r *models.TransferRecord) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.transfers = append(w.transfers, r)
}

func (w *Writer) TransferShares(r *models.TransferSharesRecord) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.transferShares = append(w.transferShares, r)
}

func (w *Writer) Approval(r *models.ApprovalRecord) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.approvals = append(w.approvals, r)
}

func (w *Writer) MintRequested(r *models.MintRequestedRecord) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.mintRequested = append(w.mintRequested, r)
}

func (w *Writer) MintCompleted(r *models.MintCompletedRecord) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.mintCompleted = append(w.mintCompleted, r)
}

func (w *Writer) RedemptionRequested(r *models.RedemptionRequestedRecord) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.redemptionRequested = append(w.redemptionRequested, r)
}

func (w *Writer) RedemptionCompleted(r *models.RedemptionCompletedRecord) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.redemptionCompleted = append(w.redemptionCompleted, r)
}

func (w *Writer) RangeSet(r *models.RangeSetRecord) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.rangeSets = append(w.rangeSets, r)
}

func (w *Writer) RangeOverridden(r *models.RangeOverriddenRecord) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.rangeOverrides = append(w.rangeOverrides, r)
}

func (w *Writer) PriceUpdate(r *models.PriceUpdateRecord) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.priceUpdates = append(w.priceUpdates, r)
}

// Buffered reports the total number of records awaiting flush.
func (w *Writer) Buffered() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return len(w.transfers) + len(w.transferShares) + len(w.approvals) +
		len(w.mintRequested) + len(w.mintCompleted) +
		len(w.redemptionRequested) + len(w.redemptionCompleted) +
		len(w.rangeSets) + len(w.rangeOverrides) + len(w.priceUpdates)
}

// NeedsFlush reports whether the buffer crossed the high-water mark.
func (w *Writer) NeedsFlush() bool {
	return w.Buffered() >= w.maxBuffer
}

// Flush drains the buffers and writes each table's batch through the pool.
// A failed batch is re-queued, so the next flush retries it.
func (w *Writer) Flush(ctx context.Context) error {
	w.mu.Lock()
	transfers := w.transfers
	transferShares := w.transferShares
	approvals := w.approvals
	mintRequested := w.mintRequested
	mintCompleted := w.mintCompleted
	redemptionRequested := w.redemptionRequested
	redemptionCompleted := w.redemptionCompleted
	rangeSets := w.rangeSets
	rangeOverrides := w.rangeOverrides
	priceUpdates := w.priceUpdates
	w.transfers = nil
	w.transferShares = nil
	w.approvals = nil
	w.mintRequested = nil
	w.mintCompleted = nil
	w.redemptionRequested = nil
	w.redemptionCompleted = nil
	w.rangeSets = nil
	w.rangeOverrides = nil
	w.priceUpdates = nil
	w.mu.Unlock()

	cfg := retry.StoreConfig()
	group := w.pool.NewGroupContext(ctx)

	group.SubmitErr(func() error {
		if err := retry.WithBackoff(ctx, cfg, w.logger, "flush_transfers", func() error {
			return w.db.InsertTransfers(ctx, transfers)
		}); err != nil {
			w.requeueTransfers(transfers)
			return err
		}
		return nil
	})
	group.SubmitErr(func() error {
		if err := retry.WithBackoff(ctx, cfg, w.logger, "flush_transfer_shares", func() error {
			return w.db.InsertTransferShares(ctx, transferShares)
		}); err != nil {
			w.requeueTransferShares(transferShares)
			return err
		}
		return nil
	})
	group.SubmitErr(func() error {
		if err := retry.WithBackoff(ctx, cfg, w.logger, "flush_approvals", func() error {
			return w.db.InsertApprovals(ctx, approvals)
		}); err != nil {
			w.requeueApprovals(approvals)
			return err
		}
		return nil
	})
	group.SubmitErr(func() error {
		if err := retry.WithBackoff(ctx, cfg, w.logger, "flush_mint_requested", func() error {
			return w.db.InsertMintRequested(ctx, mintRequested)
		}); err != nil {
			w.requeueMintRequested(mintRequested)
			return err
		}
		return nil
	})
	group.SubmitErr(func() error {
		if err := retry.WithBackoff(ctx, cfg, w.logger, "flush_mint_completed", func() error {
			return w.db.InsertMintCompleted(ctx, mintCompleted)
		}); err != nil {
			w.requeueMintCompleted(mintCompleted)
			return err
		}
		return nil
	})
	group.SubmitErr(func() error {
		if err := retry.WithBackoff(ctx, cfg, w.logger, "flush_redemption_requested", func() error {
			return w.db.InsertRedemptionRequested(ctx, redemptionRequested)
		}); err != nil {
			w.requeueRedemptionRequested(redemptionRequested)
			return err
		}
		return nil
	})
	group.SubmitErr(func() error {
		if err := retry.WithBackoff(ctx, cfg, w.logger, "flush_redemption_completed", func() error {
			return w.db.InsertRedemptionCompleted(ctx, redemptionCompleted)
		}); err != nil {
			w.requeueRedemptionCompleted(redemptionCompleted)
			return err
		}
		return nil
	})
	group.SubmitErr(func() error {
		if err := retry.WithBackoff(ctx, cfg, w.logger, "flush_range_sets", func() error {
			return w.db.InsertRangeSets(ctx, rangeSets)
		}); err != nil {
			w.requeueRangeSets(rangeSets)
			return err
		}
		return nil
	})
	group.SubmitErr(func() error {
		if err := retry.WithBackoff(ctx, cfg, w.logger, "flush_range_overrides", func() error {
			return w.db.InsertRangeOverrides(ctx, rangeOverrides)
		}); err != nil {
			w.requeueRangeOverrides(rangeOverrides)
			return err
		}
		return nil
	})
	group.SubmitErr(func() error {
		if err := retry.WithBackoff(ctx, cfg, w.logger, "flush_price_updates", func() error {
			return w.db.InsertPriceUpdates(ctx, priceUpdates)
		}); err != nil {
			w.requeuePriceUpdates(priceUpdates)
			return err
		}
		return nil
	})

	if err := group.Wait(); err != nil && !errors.Is(err, context.Canceled) && !errors.Is(err, pond.ErrGroupStopped) {
		w.logger.Warn("audit flush encountered error", zap.Error(err))
		return err
	}
	return nil
}

// Close flushes what remains and stops the pool.
func (w *Writer) Close(ctx context.Context) error {
	err := w.Flush(ctx)
	w.pool.StopAndWait()
	return err
}

func (w *Writer) requeueTransfers(rows []*models.TransferRecord) {
	if len(rows) == 0 {
		return
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	w.transfers = append(rows, w.transfers...)
}

func (w *Writer) requeueTransferShares(rows []*models.TransferSharesRecord) {
	if len(rows) == 0 {
		return
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	w.transferShares = append(rows, w.transferShares...)
}

func (w *Writer) requeueApprovals(rows []*models.ApprovalRecord) {
	if len(rows) == 0 {
		return
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	w.approvals = append(rows, w.approvals...)
}

func (w *Writer) requeueMintRequested(rows []*models.MintRequestedRecord) {
	if len(rows) == 0 {
		return
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	w.mintRequested = append(rows, w.mintRequested...)
}

func (w *Writer) requeueMintCompleted(rows []*models.MintCompletedRecord) {
	if len(rows) == 0 {
		return
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	w.mintCompleted = append(rows, w.mintCompleted...)
}

func (w *Writer) requeueRedemptionRequested(rows []*models.RedemptionRequestedRecord) {
	if len(rows) == 0 {
		return
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	w.redemptionRequested = append(rows, w.redemptionRequested...)
}

func (w *Writer) requeueRedemptionCompleted(rows []*models.RedemptionCompletedRecord) {
	if len(rows) == 0 {
		return
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	w.redemptionCompleted = append(rows, w.redemptionCompleted...)
}

func (w *Writer) requeueRangeSets(rows []*models.RangeSetRecord) {
	if len(rows) == 0 {
		return
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	w.rangeSets = append(rows, w.rangeSets...)
}

func (w *Writer) requeueRangeOverrides(rows []*models.RangeOverriddenRecord) {
	if len(rows) == 0 {
		return
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	w.rangeOverrides = append(rows, w.rangeOverrides...)
}

func (w *Writer) requeuePriceUpdates(rows []*models.PriceUpdateRecord) {
	if len(rows) == 0 {
		return
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	w.priceUpdates = append(rows, w.priceUpdates...)
}
