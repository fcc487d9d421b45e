package audit

import (
	"context"
	"fmt"

	"github.com/ClickHouse/clickhouse-go/v2/lib/driver"
	"github.com/rwa-network/usdyx/pkg/models"
)

func (db *DB) initRedemptionRequested(ctx context.Context) error {
	query := fmt.Sprintf(`
        CREATE TABLE IF NOT EXISTS "%s"."%s" (
			id String CODEC(ZSTD(1)),
			user_address String CODEC(ZSTD(1)),
			redemption_id String CODEC(ZSTD(1)),
			rwa_amount_in String CODEC(ZSTD(1)),
			block_number UInt64 CODEC(DoubleDelta, LZ4),
			block_timestamp DateTime CODEC(DoubleDelta, LZ4),
			tx_hash String CODEC(ZSTD(1)),
			log_index UInt32 CODEC(DoubleDelta, LZ4)
		) ENGINE = %s
		ORDER BY (tx_hash, log_index)
	`, db.Name, models.RedemptionRequestedTableName, clickhouseEngine())
	return db.Exec(ctx, query)
}

func (db *DB) InsertRedemptionRequested(ctx context.Context, rows []*models.RedemptionRequestedRecord) error {
	if len(rows) == 0 {
		return nil
	}

	query := fmt.Sprintf(
		`INSERT INTO "%s"."%s" (id, user_address, redemption_id, rwa_amount_in, block_number, block_timestamp, tx_hash, log_index) VALUES`,
		db.Name, models.RedemptionRequestedTableName,
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
			row.UserAddress,
			row.RedemptionID,
			row.RWAAmountIn,
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

func (db *DB) initRedemptionCompleted(ctx context.Context) error {
	query := fmt.Sprintf(`
        CREATE TABLE IF NOT EXISTS "%s"."%s" (
			id String CODEC(ZSTD(1)),
			user_address String CODEC(ZSTD(1)),
			redemption_id String CODEC(ZSTD(1)),
			rwa_amount_requested String CODEC(ZSTD(1)),
			collateral_amount_returned String CODEC(ZSTD(1)),
			price String CODEC(ZSTD(1)),
			block_number UInt64 CODEC(DoubleDelta, LZ4),
			block_timestamp DateTime CODEC(DoubleDelta, LZ4),
			tx_hash String CODEC(ZSTD(1)),
			log_index UInt32 CODEC(DoubleDelta, LZ4)
		) ENGINE = %s
		ORDER BY (tx_hash, log_index)
	`, db.Name, models.RedemptionCompletedTableName, clickhouseEngine())
	return db.Exec(ctx, query)
}

func (db *DB) InsertRedemptionCompleted(ctx context.Context, rows []*models.RedemptionCompletedRecord) error {
	if len(rows) == 0 {
		return nil
	}

	query := fmt.Sprintf(
		`INSERT INTO "%s"."%s" (id, user_address, redemption_id, rwa_amount_requested, collateral_amount_returned, price, block_number, block_timestamp, tx_hash, log_index) VALUES`,
		db.Name, models.RedemptionCompletedTableName,
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
			row.UserAddress,
			row.RedemptionID,
			row.RWAAmountRequested,
			row.CollateralAmountReturned,
			row.Price,
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
