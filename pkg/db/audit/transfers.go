package audit

import (
	"context"
	"fmt"

	"github.com/ClickHouse/clickhouse-go/v2/lib/driver"
	"github.com/rwa-network/usdyx/pkg/models"
)

// Amounts are stored as decimal strings: token base units routinely exceed
// UInt64 and the audit log never does arithmetic on them.

func (db *DB) initTransfers(ctx context.Context) error {
	query := fmt.Sprintf(`
        CREATE TABLE IF NOT EXISTS "%s"."%s" (
			id String CODEC(ZSTD(1)),
			token LowCardinality(String),
			from_address String CODEC(ZSTD(1)),
			to_address String CODEC(ZSTD(1)),
			amount String CODEC(ZSTD(1)),
			block_number UInt64 CODEC(DoubleDelta, LZ4),
			block_timestamp DateTime CODEC(DoubleDelta, LZ4),
			tx_hash String CODEC(ZSTD(1)),
			log_index UInt32 CODEC(DoubleDelta, LZ4)
		) ENGINE = %s
		ORDER BY (tx_hash, log_index)
	`, db.Name, models.TransfersTableName, clickhouseEngine())
	return db.Exec(ctx, query)
}

// InsertTransfers appends transfer records. Re-inserting the same
// (tx_hash, log_index) is harmless: the engine keeps a single row.
func (db *DB) InsertTransfers(ctx context.Context, rows []*models.TransferRecord) error {
	if len(rows) == 0 {
		return nil
	}

	query := fmt.Sprintf(
		`INSERT INTO "%s"."%s" (id, token, from_address, to_address, amount, block_number, block_timestamp, tx_hash, log_index) VALUES`,
		db.Name, models.TransfersTableName,
	)
	batch, err := db.PrepareBatch(ctx, query)
	if err != nil {
		return err
	}
	defer func(batch driver.Batch) {
		_ = batch.Abort()
	}(batch)

	for _, row := range rows {
		err = batch.Append(
			row.ID,
			row.Token,
			row.FromAddress,
			row.ToAddress,
			row.Amount,
			row.BlockNumber,
			row.BlockTimestamp,
			row.TxHash,
			row.LogIndex,
		)
		if err != nil {
			return err
		}
	}

	return batch.Send()
}

func (db *DB) initTransferShares(ctx context.Context) error {
	query := fmt.Sprintf(`
        CREATE TABLE IF NOT EXISTS "%s"."%s" (
			id String CODEC(ZSTD(1)),
			from_address String CODEC(ZSTD(1)),
			to_address String CODEC(ZSTD(1)),
			shares_value String CODEC(ZSTD(1)),
			block_number UInt64 CODEC(DoubleDelta, LZ4),
			block_timestamp DateTime CODEC(DoubleDelta, LZ4),
			tx_hash String CODEC(ZSTD(1)),
			log_index UInt32 CODEC(DoubleDelta, LZ4)
		) ENGINE = %s
		ORDER BY (tx_hash, log_index)
	`, db.Name, models.TransferSharesTableName, clickhouseEngine())
	return db.Exec(ctx, query)
}

func (db *DB) InsertTransferShares(ctx context.Context, rows []*models.TransferSharesRecord) error {
	if len(rows) == 0 {
		return nil
	}

	query := fmt.Sprintf(
		`INSERT INTO "%s"."%s" (id, from_address, to_address, shares_value, block_number, block_timestamp, tx_hash, log_index) VALUES`,
		db.Name, models.TransferSharesTableName,
	)
	batch, err := db.PrepareBatch(ctx, query)
	if err != nil {
		return err
	}
	defer func(batch driver.Batch) {
		_ = batch.Abort()
	}(batch)

	for _, row := range rows {
		err = batch.Append(
			row.ID,
			row.FromAddress,
			row.ToAddress,
			row.SharesValue,
			row.BlockNumber,
			row.BlockTimestamp,
			row.TxHash,
			row.LogIndex,
		)
		if err != nil {
			return err
		}
	}

	return batch.Send()
}
