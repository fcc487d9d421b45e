// Package dispatcher routes each incoming event to the aggregator
// operations it triggers, in a fixed per-kind order, and commits the whole
// set of entity writes as one atomic unit. It owns the three correctness
// guards of the core: the replay guard (applied-event ledger), the
// zero-address filter, and the ordering high-water check.
package dispatcher

import (
	"context"
	"errors"
	"fmt"

	"github.com/rwa-network/usdyx/pkg/aggregator"
	"github.com/rwa-network/usdyx/pkg/events"
	"github.com/rwa-network/usdyx/pkg/models"
	"github.com/rwa-network/usdyx/pkg/store"
	"go.uber.org/zap"
)

// AuditLog receives the write-once records derived from each event.
// Appends must be cheap and infallible (buffered); persistence of the
// audit trail is idempotent and retried independently of event commits.
type AuditLog interface {
	Transfer(*models.TransferRecord)
	TransferShares(*models.TransferSharesRecord)
	Approval(*models.ApprovalRecord)
	MintRequested(*models.MintRequestedRecord)
	MintCompleted(*models.MintCompletedRecord)
	RedemptionRequested(*models.RedemptionRequestedRecord)
	RedemptionCompleted(*models.RedemptionCompletedRecord)
	RangeSet(*models.RangeSetRecord)
	RangeOverridden(*models.RangeOverriddenRecord)
	PriceUpdate(*models.PriceUpdateRecord)
}

// ErrDuplicate reports an event whose id is already in the applied ledger.
// Callers should acknowledge and move on; nothing was mutated.
var ErrDuplicate = errors.New("duplicate event")

type Dispatcher struct {
	Logger *zap.Logger
	Store  store.Store
	Audit  AuditLog

	accounts *aggregator.Accounts
	metrics  *aggregator.Metrics
	daily    *aggregator.Daily
	prices   *aggregator.Prices
}

func New(logger *zap.Logger, st store.Store, audit AuditLog) *Dispatcher {
	return &Dispatcher{
		Logger:   logger.Named("dispatcher"),
		Store:    st,
		Audit:    audit,
		accounts: &aggregator.Accounts{Logger: logger},
		metrics:  &aggregator.Metrics{Logger: logger},
		daily:    &aggregator.Daily{Logger: logger},
		prices:   &aggregator.Prices{Logger: logger, Log: audit},
	}
}

// Process applies one event. It is not safe for concurrent use: events
// must be applied strictly in stream order, one at a time.
//
// Error contract: a wrapped events.ErrMalformed means the event is
// rejected for good (ack and drop); ErrDuplicate means it was already
// applied (ack and drop); anything else is a store failure, nothing
// partial was committed, and the same event must be redelivered.
func (d *Dispatcher) Process(ctx context.Context, ev events.Event) error {
	prov := ev.Prov()

	if err := ev.Validate(); err != nil {
		d.Logger.Warn("rejecting malformed event",
			zap.String("kind", string(ev.Kind())),
			zap.Uint64("blockNumber", prov.BlockNumber),
			zap.String("txHash", prov.TxHash),
			zap.Uint32("logIndex", prov.LogIndex),
			zap.Error(err))
		return err
	}

	applied, err := d.Store.Applied(ctx, prov.ID())
	if err != nil {
		return err
	}
	if applied {
		d.Logger.Debug("skipping already applied event",
			zap.String("kind", string(ev.Kind())),
			zap.String("id", prov.ID()))
		return fmt.Errorf("%w: %s", ErrDuplicate, prov.ID())
	}

	tx := aggregator.Begin(d.Store, prov.ID())

	if err := d.advanceCheckpoint(ctx, tx, ev); err != nil {
		return err
	}

	switch e := ev.(type) {
	case *events.Transfer:
		err = d.handleTransfer(ctx, tx, e)
	case *events.TransferShares:
		err = d.handleTransferShares(ctx, tx, e)
	case *events.Approval:
		err = d.handleApproval(ctx, tx, e)
	case *events.MintRequested:
		err = d.handleMintRequested(ctx, tx, e)
	case *events.MintCompleted:
		err = d.handleMintCompleted(ctx, tx, e)
	case *events.RedemptionRequested:
		err = d.handleRedemptionRequested(ctx, tx, e)
	case *events.RedemptionCompleted:
		err = d.handleRedemptionCompleted(ctx, tx, e)
	case *events.RangeSet:
		err = d.handleRangeSet(ctx, tx, e)
	case *events.RangeOverridden:
		err = d.handleRangeOverridden(ctx, tx, e)
	default:
		return fmt.Errorf("%w: unhandled event kind %s", events.ErrMalformed, ev.Kind())
	}
	if err != nil {
		return fmt.Errorf("apply %s %s: %w", ev.Kind(), prov.ID(), err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit %s %s: %w", ev.Kind(), prov.ID(), err)
	}
	return nil
}

// advanceCheckpoint moves the (blockNumber, logIndex) high-water mark, or
// warns when the stream regressed. Late events still apply additively;
// there is no rollback path, so the warning is the contract.
func (d *Dispatcher) advanceCheckpoint(ctx context.Context, tx *aggregator.Tx, ev events.Event) error {
	prov := ev.Prov()
	cp, err := tx.Checkpoint(ctx)
	if err != nil {
		return err
	}
	if cp.Behind(prov) {
		d.Logger.Warn("ordering violation: event precedes last applied",
			zap.String("kind", string(ev.Kind())),
			zap.String("id", prov.ID()),
			zap.Uint64("eventBlock", prov.BlockNumber),
			zap.Uint64("checkpointBlock", cp.BlockNumber),
			zap.String("checkpointEvent", cp.EventID))
		return nil
	}
	cp.BlockNumber = prov.BlockNumber
	cp.LogIndex = prov.LogIndex
	cp.EventID = prov.ID()
	cp.UpdatedAt = prov.BlockTimestamp
	return nil
}

// signalUser fires the per-address bookkeeping shared by every event that
// references an account: the once-per-lifetime totalUsers increment and
// the once-per-day uniqueUsers/newUsers counts.
func (d *Dispatcher) signalUser(ctx context.Context, tx *aggregator.Tx, address string, created bool, dayIndex int64, timestamp int64) error {
	if created {
		m, err := tx.Metrics(ctx)
		if err != nil {
			return err
		}
		d.metrics.IncrementUserCount(m, timestamp)
	}
	seen, err := tx.MarkSeen(ctx, dayIndex, address)
	if err != nil {
		return err
	}
	if !seen {
		day, err := tx.Day(ctx, dayIndex)
		if err != nil {
			return err
		}
		d.daily.RecordUniqueUser(day, created)
	}
	return nil
}
