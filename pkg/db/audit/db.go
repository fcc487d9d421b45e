// Package audit is the append-only audit log backing the event-sourcing
// trail: one ClickHouse table per write-once record kind, ordered by
// (tx_hash, log_index). ReplacingMergeTree keyed on that pair makes every
// insert idempotent under duplicate delivery, so audit writes never need a
// read-before-write existence check.
package audit

import (
	"context"
	"fmt"
	"time"

	"github.com/rwa-network/usdyx/pkg/db/clickhouse"
	"github.com/rwa-network/usdyx/pkg/utils"
	"go.uber.org/zap"
)

// DB is the audit database handle. It implements the dispatcher's audit
// surface through the buffered Writer; direct Insert methods exist per
// table for backfills and tests.
type DB struct {
	clickhouse.Client
	Name string
}

// New connects and ensures the audit database and all record tables exist.
func New(ctx context.Context, logger *zap.Logger) (*DB, error) {
	dbName := clickhouse.SanitizeName(utils.Env("AUDIT_DB", "usdyx_audit"))

	client, err := clickhouse.New(ctx, logger.With(zap.String("db", dbName)), dbName)
	if err != nil {
		return nil, err
	}

	db := &DB{Client: client, Name: dbName}
	if err := db.InitializeDB(ctx); err != nil {
		return nil, err
	}
	return db, nil
}

// InitializeDB ensures the database and every record table exist.
func (db *DB) InitializeDB(ctx context.Context) error {
	initStart := time.Now()

	if err := db.CreateDbIfNotExists(ctx, db.Name); err != nil {
		return fmt.Errorf("failed to create database %s: %w", db.Name, err)
	}

	initOps := []struct {
		name string
		fn   func(context.Context) error
	}{
		{"transfers", db.initTransfers},
		{"transfer_shares", db.initTransferShares},
		{"approvals", db.initApprovals},
		{"mint_requested", db.initMintRequested},
		{"mint_completed", db.initMintCompleted},
		{"redemption_requested", db.initRedemptionRequested},
		{"redemption_completed", db.initRedemptionCompleted},
		{"range_sets", db.initRangeSets},
		{"range_overrides", db.initRangeOverrides},
		{"price_updates", db.initPriceUpdates},
	}

	for _, op := range initOps {
		if err := op.fn(ctx); err != nil {
			return fmt.Errorf("init %s: %w", op.name, err)
		}
	}

	db.Logger.Info("Audit tables initialized",
		zap.String("database", db.Name),
		zap.Int("tables", len(initOps)),
		zap.Duration("took", time.Since(initStart)))
	return nil
}

// Close terminates the underlying ClickHouse connection.
func (db *DB) Close() error {
	return db.Db.Close()
}

// clickhouseEngine is the engine for every record table. ReplacingMergeTree
// over the (tx_hash, log_index) ordering key absorbs duplicate inserts.
func clickhouseEngine() string {
	return clickhouse.ReplacingMergeTree
}
