// Package aggregator implements the derived-state core: per-address
// accounts, the protocol-wide metrics singleton, daily rollup buckets, and
// the price history tracker. Every operation runs inside a Tx, the
// per-event unit of work that gives all aggregators one consistent
// load-or-init view and commits their writes atomically.
package aggregator

import (
	"context"
	"fmt"

	"github.com/rwa-network/usdyx/pkg/models"
	"github.com/rwa-network/usdyx/pkg/store"
)

// Tx is the unit of work for a single event. Entities are loaded at most
// once and cached, so two operations touching the same account within one
// event observe each other's mutations. Commit stages every touched
// entity plus the applied-event mark and writes them as one atomic batch.
type Tx struct {
	st store.Store

	accounts    map[string]*models.Account
	newAccounts []string
	metrics     *models.ProtocolMetrics
	days        map[int64]*models.DailyBucket
	checkpoint  *models.Checkpoint
	seen        map[string]bool

	eventID string
}

// Begin opens a unit of work for the event with the given id.
func Begin(st store.Store, eventID string) *Tx {
	return &Tx{
		st:       st,
		accounts: make(map[string]*models.Account),
		days:     make(map[int64]*models.DailyBucket),
		seen:     make(map[string]bool),
		eventID:  eventID,
	}
}

// Account returns the aggregate for address, creating the zero-initialized
// record on first reference. The second return reports creation: it is
// true exactly once per address for the lifetime of the system, and it is
// the signal that drives totalUsers / newUsers.
func (tx *Tx) Account(ctx context.Context, address string) (*models.Account, bool, error) {
	if acct, ok := tx.accounts[address]; ok {
		return acct, false, nil
	}
	acct := models.NewAccount(address)
	found, err := tx.st.Get(ctx, models.AccountKey(address), acct)
	if err != nil {
		return nil, false, fmt.Errorf("load account %s: %w", address, err)
	}
	tx.accounts[address] = acct
	if !found {
		tx.newAccounts = append(tx.newAccounts, address)
	}
	return acct, !found, nil
}

// Metrics returns the protocol singleton, initialized lazily on first use.
func (tx *Tx) Metrics(ctx context.Context) (*models.ProtocolMetrics, error) {
	if tx.metrics != nil {
		return tx.metrics, nil
	}
	m := models.NewProtocolMetrics()
	if _, err := tx.st.Get(ctx, models.MetricsKey, m); err != nil {
		return nil, fmt.Errorf("load protocol metrics: %w", err)
	}
	tx.metrics = m
	return m, nil
}

// Day returns the rollup bucket for the UTC day index, created lazily.
func (tx *Tx) Day(ctx context.Context, dayIndex int64) (*models.DailyBucket, error) {
	if day, ok := tx.days[dayIndex]; ok {
		return day, nil
	}
	day := models.NewDailyBucket(dayIndex)
	if _, err := tx.st.Get(ctx, models.DayKey(dayIndex), day); err != nil {
		return nil, fmt.Errorf("load day bucket %d: %w", dayIndex, err)
	}
	tx.days[dayIndex] = day
	return day, nil
}

// Checkpoint returns the ordering high-water mark record.
func (tx *Tx) Checkpoint(ctx context.Context) (*models.Checkpoint, error) {
	if tx.checkpoint != nil {
		return tx.checkpoint, nil
	}
	cp := &models.Checkpoint{}
	if _, err := tx.st.Get(ctx, models.CheckpointKey, cp); err != nil {
		return nil, fmt.Errorf("load checkpoint: %w", err)
	}
	tx.checkpoint = cp
	return cp, nil
}

// MarkSeen records that an address was active on a day, reporting whether
// it had already been seen that day. The marker persists with the batch,
// so a day's unique-user count never double-counts across events.
func (tx *Tx) MarkSeen(ctx context.Context, dayIndex int64, address string) (bool, error) {
	key := models.SeenUserKey(dayIndex, address)
	if tx.seen[key] {
		return true, nil
	}
	marker := &models.SeenMarker{}
	found, err := tx.st.Get(ctx, key, marker)
	if err != nil {
		return false, fmt.Errorf("load seen marker %s: %w", key, err)
	}
	tx.seen[key] = true
	if found {
		return true, nil
	}
	return false, nil
}

// Commit writes every entity this Tx touched, the seen markers, and the
// applied mark for the event, all in one batch. Nothing becomes visible
// if any part fails.
func (tx *Tx) Commit(ctx context.Context) error {
	b := store.NewBatch()
	for addr, acct := range tx.accounts {
		if err := b.Put(models.AccountKey(addr), acct); err != nil {
			return err
		}
	}
	if tx.metrics != nil {
		if err := b.Put(models.MetricsKey, tx.metrics); err != nil {
			return err
		}
	}
	for idx, day := range tx.days {
		if err := b.Put(models.DayKey(idx), day); err != nil {
			return err
		}
	}
	if tx.checkpoint != nil {
		if err := b.Put(models.CheckpointKey, tx.checkpoint); err != nil {
			return err
		}
	}
	for key := range tx.seen {
		if err := b.Put(key, &models.SeenMarker{Seen: true}); err != nil {
			return err
		}
	}
	b.MarkApplied(tx.eventID)
	return tx.st.Commit(ctx, b)
}
