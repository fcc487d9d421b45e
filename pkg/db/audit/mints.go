package audit

import (
	"context"
	"fmt"

	"github.com/ClickHouse/clickhouse-go/v2/lib/driver"
	"github.com/rwa-network/usdyx/pkg/models"
)

func (db *DB) initMintRequested(ctx context.Context) error {
	query := fmt.Sprintf(`
        CREATE TABLE IF NOT EXISTS "%s"."%s" (
			id String CODEC(ZSTD(1)),
			user_address String CODEC(ZSTD(1)),
			deposit_id String CODEC(ZSTD(1)),
			collateral_amount_deposited String CODEC(ZSTD(1)),
			deposit_amount_after_fee String CODEC(ZSTD(1)),
			fee_amount String CODEC(ZSTD(1)),
			block_number UInt64 CODEC(DoubleDelta, LZ4),
			block_timestamp DateTime CODEC(DoubleDelta, LZ4),
			tx_hash String CODEC(ZSTD(1)),
			log_index UInt32 CODEC(DoubleDelta, LZ4)
		) ENGINE = %s
		ORDER BY (tx_hash, log_index)
	`, db.Name, models.MintRequestedTableName, clickhouseEngine())
	return db.Exec(ctx, query)
}

func (db *DB) InsertMintRequested(ctx context.Context, rows []*models.MintRequestedRecord) error {
	if len(rows) == 0 {
		return nil
	}

	query := fmt.Sprintf(
		`INSERT INTO "%s"."%s" (id, user_address, deposit_id, collateral_amount_deposited, deposit_amount_after_fee, fee_amount, block_number, block_timestamp, tx_hash, log_index) VALUES`,
		db.Name, models.MintRequestedTableName,
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
			row.DepositID,
			row.CollateralAmountDeposited,
			row.DepositAmountAfterFee,
			row.FeeAmount,
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

func (db *DB) initMintCompleted(ctx context.Context) error {
	query := fmt.Sprintf(`
        CREATE TABLE IF NOT EXISTS "%s"."%s" (
			id String CODEC(ZSTD(1)),
			user_address String CODEC(ZSTD(1)),
			deposit_id String CODEC(ZSTD(1)),
			rwa_amount_out String CODEC(ZSTD(1)),
			collateral_amount_deposited String CODEC(ZSTD(1)),
			price String CODEC(ZSTD(1)),
			price_id UInt64 CODEC(DoubleDelta, LZ4),
			block_number UInt64 CODEC(DoubleDelta, LZ4),
			block_timestamp DateTime CODEC(DoubleDelta, LZ4),
			tx_hash String CODEC(ZSTD(1)),
			log_index UInt32 CODEC(DoubleDelta, LZ4)
		) ENGINE = %s
		ORDER BY (tx_hash, log_index)
	`, db.Name, models.MintCompletedTableName, clickhouseEngine())
	return db.Exec(ctx, query)
}

func (db *DB) InsertMintCompleted(ctx context.Context, rows []*models.MintCompletedRecord) error {
	if len(rows) == 0 {
		return nil
	}

	query := fmt.Sprintf(
		`INSERT INTO "%s"."%s" (id, user_address, deposit_id, rwa_amount_out, collateral_amount_deposited, price, price_id, block_number, block_timestamp, tx_hash, log_index) VALUES`,
		db.Name, models.MintCompletedTableName,
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
			row.DepositID,
			row.RWAAmountOut,
			row.CollateralAmountDeposited,
			row.Price,
			row.PriceID,
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
