package dispatcher

import (
	"context"

	"github.com/rwa-network/usdyx/pkg/aggregator"
	"github.com/rwa-network/usdyx/pkg/events"
	"github.com/rwa-network/usdyx/pkg/models"
)

// handleTransfer applies an ERC-20 transfer. Legs touching the zero
// address are mint/burn side effects of the manager lifecycle: they skip
// balance deltas and record creation (the completion events carry the
// authoritative amounts) and only adjust circulating supply.
func (d *Dispatcher) handleTransfer(ctx context.Context, tx *aggregator.Tx, e *events.Transfer) error {
	ts := e.BlockTimestamp
	mintLeg := e.From == events.ZeroAddress
	burnLeg := e.To == events.ZeroAddress

	if mintLeg || burnLeg {
		m, err := tx.Metrics(ctx)
		if err != nil {
			return err
		}
		if mintLeg && !burnLeg {
			d.metrics.AdjustSupply(m, e.Token, e.Value, ts)
		}
		if burnLeg && !mintLeg {
			d.metrics.AdjustSupply(m, e.Token, e.Value.Neg(), ts)
		}
		return nil
	}

	d.Audit.Transfer(models.NewTransferRecord(e))

	field := aggregator.FieldUSDYBalance
	if e.Token == events.TokenRUSDY {
		field = aggregator.FieldRUSDYBalance
	}

	from, createdFrom, err := d.accounts.GetOrCreate(ctx, tx, e.From)
	if err != nil {
		return err
	}
	d.accounts.ApplyBalanceDelta(from, field, e.Value.Neg(), ts)

	to, createdTo, err := d.accounts.GetOrCreate(ctx, tx, e.To)
	if err != nil {
		return err
	}
	d.accounts.ApplyBalanceDelta(to, field, e.Value, ts)

	if err := d.signalUser(ctx, tx, e.From, createdFrom, e.DayIndex(), ts); err != nil {
		return err
	}
	if err := d.signalUser(ctx, tx, e.To, createdTo, e.DayIndex(), ts); err != nil {
		return err
	}

	// Daily transfer volume is tracked for the base token only; rUSDY
	// moves are a rebasing view over the same supply.
	if e.Token == events.TokenUSDY {
		day, err := tx.Day(ctx, e.DayIndex())
		if err != nil {
			return err
		}
		d.daily.RecordVolume(day, e.Value)
	}
	return nil
}

func (d *Dispatcher) handleTransferShares(ctx context.Context, tx *aggregator.Tx, e *events.TransferShares) error {
	ts := e.BlockTimestamp
	if e.From == events.ZeroAddress || e.To == events.ZeroAddress {
		return nil
	}

	d.Audit.TransferShares(models.NewTransferSharesRecord(e))

	from, createdFrom, err := d.accounts.GetOrCreate(ctx, tx, e.From)
	if err != nil {
		return err
	}
	d.accounts.ApplyBalanceDelta(from, aggregator.FieldRUSDYShares, e.SharesValue.Neg(), ts)

	to, createdTo, err := d.accounts.GetOrCreate(ctx, tx, e.To)
	if err != nil {
		return err
	}
	d.accounts.ApplyBalanceDelta(to, aggregator.FieldRUSDYShares, e.SharesValue, ts)

	if err := d.signalUser(ctx, tx, e.From, createdFrom, e.DayIndex(), ts); err != nil {
		return err
	}
	return d.signalUser(ctx, tx, e.To, createdTo, e.DayIndex(), ts)
}

// handleApproval creates the audit record and counts the parties as users;
// approvals move no balances.
func (d *Dispatcher) handleApproval(ctx context.Context, tx *aggregator.Tx, e *events.Approval) error {
	ts := e.BlockTimestamp

	d.Audit.Approval(models.NewApprovalRecord(e))

	owner, createdOwner, err := d.accounts.GetOrCreate(ctx, tx, e.Owner)
	if err != nil {
		return err
	}
	d.accounts.Touch(owner, ts)

	spender, createdSpender, err := d.accounts.GetOrCreate(ctx, tx, e.Spender)
	if err != nil {
		return err
	}
	d.accounts.Touch(spender, ts)

	if err := d.signalUser(ctx, tx, e.Owner, createdOwner, e.DayIndex(), ts); err != nil {
		return err
	}
	return d.signalUser(ctx, tx, e.Spender, createdSpender, e.DayIndex(), ts)
}

func (d *Dispatcher) handleMintRequested(ctx context.Context, tx *aggregator.Tx, e *events.MintRequested) error {
	ts := e.BlockTimestamp

	d.Audit.MintRequested(models.NewMintRequestedRecord(e))

	acct, created, err := d.accounts.GetOrCreate(ctx, tx, e.User)
	if err != nil {
		return err
	}
	d.accounts.Touch(acct, ts)
	return d.signalUser(ctx, tx, e.User, created, e.DayIndex(), ts)
}

// handleMintCompleted is the single authoritative mint settlement path:
// audit record, price point, account counters, protocol metrics, daily
// rollup — in that order.
func (d *Dispatcher) handleMintCompleted(ctx context.Context, tx *aggregator.Tx, e *events.MintCompleted) error {
	ts := e.BlockTimestamp

	d.Audit.MintCompleted(models.NewMintCompletedRecord(e))
	d.prices.RecordSettlementPrice(e.Provenance, e.Price)

	acct, created, err := d.accounts.GetOrCreate(ctx, tx, e.User)
	if err != nil {
		return err
	}
	d.accounts.ApplyMintCompletion(acct, e.RWAAmountOut, ts)
	if err := d.signalUser(ctx, tx, e.User, created, e.DayIndex(), ts); err != nil {
		return err
	}

	m, err := tx.Metrics(ctx)
	if err != nil {
		return err
	}
	d.metrics.RecordMint(m, e.CollateralAmountDeposited, e.Price, ts)

	day, err := tx.Day(ctx, e.DayIndex())
	if err != nil {
		return err
	}
	d.daily.RecordVolume(day, e.CollateralAmountDeposited)
	d.daily.RecordMintEvent(day)
	d.daily.RecordPrice(day, e.Price)
	return nil
}

func (d *Dispatcher) handleRedemptionRequested(ctx context.Context, tx *aggregator.Tx, e *events.RedemptionRequested) error {
	ts := e.BlockTimestamp

	d.Audit.RedemptionRequested(models.NewRedemptionRequestedRecord(e))

	acct, created, err := d.accounts.GetOrCreate(ctx, tx, e.User)
	if err != nil {
		return err
	}
	d.accounts.Touch(acct, ts)
	return d.signalUser(ctx, tx, e.User, created, e.DayIndex(), ts)
}

func (d *Dispatcher) handleRedemptionCompleted(ctx context.Context, tx *aggregator.Tx, e *events.RedemptionCompleted) error {
	ts := e.BlockTimestamp

	d.Audit.RedemptionCompleted(models.NewRedemptionCompletedRecord(e))
	d.prices.RecordSettlementPrice(e.Provenance, e.Price)

	acct, created, err := d.accounts.GetOrCreate(ctx, tx, e.User)
	if err != nil {
		return err
	}
	d.accounts.ApplyRedemptionCompletion(acct, e.RWAAmountRequested, ts)
	if err := d.signalUser(ctx, tx, e.User, created, e.DayIndex(), ts); err != nil {
		return err
	}

	m, err := tx.Metrics(ctx)
	if err != nil {
		return err
	}
	d.metrics.RecordRedemption(m, e.CollateralAmountReturned, e.Price, ts)

	day, err := tx.Day(ctx, e.DayIndex())
	if err != nil {
		return err
	}
	d.daily.RecordVolume(day, e.CollateralAmountReturned)
	d.daily.RecordRedemptionEvent(day)
	d.daily.RecordPrice(day, e.Price)
	return nil
}

// handleRangeSet applies an oracle range opening. The previous range's
// close price becomes the current protocol price.
func (d *Dispatcher) handleRangeSet(ctx context.Context, tx *aggregator.Tx, e *events.RangeSet) error {
	ts := e.BlockTimestamp

	d.Audit.RangeSet(models.NewRangeSetRecord(e))
	d.prices.RecordRangePrice(e.Provenance, e.PrevRangeClosePrice, e.Index)

	m, err := tx.Metrics(ctx)
	if err != nil {
		return err
	}
	d.metrics.SetCurrentPrice(m, e.PrevRangeClosePrice, ts)

	day, err := tx.Day(ctx, e.DayIndex())
	if err != nil {
		return err
	}
	d.daily.RecordPrice(day, e.PrevRangeClosePrice)
	return nil
}

func (d *Dispatcher) handleRangeOverridden(ctx context.Context, tx *aggregator.Tx, e *events.RangeOverridden) error {
	ts := e.BlockTimestamp

	d.Audit.RangeOverridden(models.NewRangeOverriddenRecord(e))
	d.prices.RecordRangePrice(e.Provenance, e.NewPrevRangeClosePrice, e.Index)

	m, err := tx.Metrics(ctx)
	if err != nil {
		return err
	}
	d.metrics.SetCurrentPrice(m, e.NewPrevRangeClosePrice, ts)

	day, err := tx.Day(ctx, e.DayIndex())
	if err != nil {
		return err
	}
	d.daily.RecordPrice(day, e.NewPrevRangeClosePrice)
	return nil
}
