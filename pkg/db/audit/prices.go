package audit

import (
	"context"
	"fmt"

	"github.com/ClickHouse/clickhouse-go/v2/lib/driver"
	"github.com/rwa-network/usdyx/pkg/models"
)

// Price updates are keyed like every other record; the "-price" id suffix
// keeps them distinct from the source event's own record.

func (db *DB) initPriceUpdates(ctx context.Context) error {
	query := fmt.Sprintf(`
        CREATE TABLE IF NOT EXISTS "%s"."%s" (
			id String CODEC(ZSTD(1)),
			price String CODEC(ZSTD(1)),
			timestamp Int64 CODEC(DoubleDelta, LZ4),
			price_range_index UInt64 CODEC(DoubleDelta, LZ4),
			block_number UInt64 CODEC(DoubleDelta, LZ4),
			block_timestamp DateTime CODEC(DoubleDelta, LZ4),
			tx_hash String CODEC(ZSTD(1)),
			log_index UInt32 CODEC(DoubleDelta, LZ4)
		) ENGINE = %s
		ORDER BY (tx_hash, log_index)
	`, db.Name, models.PriceUpdatesTableName, clickhouseEngine())
	return db.Exec(ctx, query)
}

func (db *DB) InsertPriceUpdates(ctx context.Context, rows []*models.PriceUpdateRecord) error {
	if len(rows) == 0 {
		return nil
	}

	query := fmt.Sprintf(
		`INSERT INTO "%s"."%s" (id, price, timestamp, price_range_index, block_number, block_timestamp, tx_hash, log_index) VALUES`,
		db.Name, models.PriceUpdatesTableName,
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
			row.Price,
			row.Timestamp,
			row.PriceRangeIndex,
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
