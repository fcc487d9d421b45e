package audit

import (
	"context"
	"fmt"

	"github.com/ClickHouse/clickhouse-go/v2/lib/driver"
	"github.com/rwa-network/usdyx/pkg/models"
)

func (db *DB) initApprovals(ctx context.Context) error {
	query := fmt.Sprintf(`
        CREATE TABLE IF NOT EXISTS "%s"."%s" (
			id String CODEC(ZSTD(1)),
			token LowCardinality(String),
			owner_address String CODEC(ZSTD(1)),
			spender_address String CODEC(ZSTD(1)),
			amount String CODEC(ZSTD(1)),
			block_number UInt64 CODEC(DoubleDelta, LZ4),
			block_timestamp DateTime CODEC(DoubleDelta, LZ4),
			tx_hash String CODEC(ZSTD(1)),
			log_index UInt32 CODEC(DoubleDelta, LZ4)
		) ENGINE = %s
		ORDER BY (tx_hash, log_index)
	`, db.Name, models.ApprovalsTableName, clickhouseEngine())
	return db.Exec(ctx, query)
}

func (db *DB) InsertApprovals(ctx context.Context, rows []*models.ApprovalRecord) error {
	if len(rows) == 0 {
		return nil
	}

	query := fmt.Sprintf(
		`INSERT INTO "%s"."%s" (id, token, owner_address, spender_address, amount, block_number, block_timestamp, tx_hash, log_index) VALUES`,
		db.Name, models.ApprovalsTableName,
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
			row.OwnerAddress,
			row.SpenderAddress,
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
