package audit

import (
	"context"
	"fmt"

	"github.com/ClickHouse/clickhouse-go/v2/lib/driver"
	"github.com/rwa-network/usdyx/pkg/models"
)

func (db *DB) initRangeSets(ctx context.Context) error {
	query := fmt.Sprintf(`
        CREATE TABLE IF NOT EXISTS "%s"."%s" (
			id String CODEC(ZSTD(1)),
			range_index UInt64 CODEC(DoubleDelta, LZ4),
			start UInt64 CODEC(DoubleDelta, LZ4),
			end UInt64 CODEC(DoubleDelta, LZ4),
			daily_interest_rate String CODEC(ZSTD(1)),
			prev_range_close_price String CODEC(ZSTD(1)),
			block_number UInt64 CODEC(DoubleDelta, LZ4),
			block_timestamp DateTime CODEC(DoubleDelta, LZ4),
			tx_hash String CODEC(ZSTD(1)),
			log_index UInt32 CODEC(DoubleDelta, LZ4)
		) ENGINE = %s
		ORDER BY (tx_hash, log_index)
	`, db.Name, models.RangeSetTableName, clickhouseEngine())
	return db.Exec(ctx, query)
}

func (db *DB) InsertRangeSets(ctx context.Context, rows []*models.RangeSetRecord) error {
	if len(rows) == 0 {
		return nil
	}

	query := fmt.Sprintf(
		`INSERT INTO "%s"."%s" (id, range_index, start, end, daily_interest_rate, prev_range_close_price, block_number, block_timestamp, tx_hash, log_index) VALUES`,
		db.Name, models.RangeSetTableName,
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
			row.RangeIndex,
			row.Start,
			row.End,
			row.DailyInterestRate,
			row.PrevRangeClosePrice,
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

func (db *DB) initRangeOverrides(ctx context.Context) error {
	query := fmt.Sprintf(`
        CREATE TABLE IF NOT EXISTS "%s"."%s" (
			id String CODEC(ZSTD(1)),
			range_index UInt64 CODEC(DoubleDelta, LZ4),
			new_start UInt64 CODEC(DoubleDelta, LZ4),
			new_end UInt64 CODEC(DoubleDelta, LZ4),
			new_daily_interest_rate String CODEC(ZSTD(1)),
			new_prev_range_close_price String CODEC(ZSTD(1)),
			block_number UInt64 CODEC(DoubleDelta, LZ4),
			block_timestamp DateTime CODEC(DoubleDelta, LZ4),
			tx_hash String CODEC(ZSTD(1)),
			log_index UInt32 CODEC(DoubleDelta, LZ4)
		) ENGINE = %s
		ORDER BY (tx_hash, log_index)
	`, db.Name, models.RangeOverriddenTableName, clickhouseEngine())
	return db.Exec(ctx, query)
}

func (db *DB) InsertRangeOverrides(ctx context.Context, rows []*models.RangeOverriddenRecord) error {
	if len(rows) == 0 {
		return nil
	}

	query := fmt.Sprintf(
		`INSERT INTO "%s"."%s" (id, range_index, new_start, new_end, new_daily_interest_rate, new_prev_range_close_price, block_number, block_timestamp, tx_hash, log_index) VALUES`,
		db.Name, models.RangeOverriddenTableName,
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
			row.RangeIndex,
			row.NewStart,
			row.NewEnd,
			row.NewDailyInterestRate,
			row.NewPrevRangeClosePrice,
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
