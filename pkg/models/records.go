package models

import (
	"time"

	"github.com/rwa-network/usdyx/pkg/events"
)

// Audit table names. Each table stores one write-once record kind, ordered
// by (tx_hash, log_index) under ReplacingMergeTree so re-inserting the same
// record on redelivery is absorbed by the engine.
const (
	TransfersTableName            = "transfers"
	TransferSharesTableName       = "transfer_shares"
	ApprovalsTableName            = "approvals"
	MintRequestedTableName        = "mint_requested"
	MintCompletedTableName        = "mint_completed"
	RedemptionRequestedTableName  = "redemption_requested"
	RedemptionCompletedTableName  = "redemption_completed"
	RangeSetTableName             = "range_sets"
	RangeOverriddenTableName      = "range_overrides"
	PriceUpdatesTableName         = "price_updates"
)

func blockTime(p events.Provenance) time.Time {
	return time.Unix(p.BlockTimestamp, 0).UTC()
}

// TransferRecord mirrors a non-mint/burn Transfer event. Amounts are kept
// as decimal strings: token base units exceed UInt64.
type TransferRecord struct {
	ID             string    `ch:"id"`
	Token          string    `ch:"token"`
	FromAddress    string    `ch:"from_address"`
	ToAddress      string    `ch:"to_address"`
	Amount         string    `ch:"amount"`
	BlockNumber    uint64    `ch:"block_number"`
	BlockTimestamp time.Time `ch:"block_timestamp"`
	TxHash         string    `ch:"tx_hash"`
	LogIndex       uint32    `ch:"log_index"`
}

func NewTransferRecord(e *events.Transfer) *TransferRecord {
	return &TransferRecord{
		ID:             e.ID(),
		Token:          string(e.Token),
		FromAddress:    e.From,
		ToAddress:      e.To,
		Amount:         e.Value.String(),
		BlockNumber:    e.BlockNumber,
		BlockTimestamp: blockTime(e.Provenance),
		TxHash:         e.TxHash,
		LogIndex:       e.LogIndex,
	}
}

type TransferSharesRecord struct {
	ID             string    `ch:"id"`
	FromAddress    string    `ch:"from_address"`
	ToAddress      string    `ch:"to_address"`
	SharesValue    string    `ch:"shares_value"`
	BlockNumber    uint64    `ch:"block_number"`
	BlockTimestamp time.Time `ch:"block_timestamp"`
	TxHash         string    `ch:"tx_hash"`
	LogIndex       uint32    `ch:"log_index"`
}

func NewTransferSharesRecord(e *events.TransferShares) *TransferSharesRecord {
	return &TransferSharesRecord{
		ID:             e.ID(),
		FromAddress:    e.From,
		ToAddress:      e.To,
		SharesValue:    e.SharesValue.String(),
		BlockNumber:    e.BlockNumber,
		BlockTimestamp: blockTime(e.Provenance),
		TxHash:         e.TxHash,
		LogIndex:       e.LogIndex,
	}
}

type ApprovalRecord struct {
	ID             string    `ch:"id"`
	Token          string    `ch:"token"`
	OwnerAddress   string    `ch:"owner_address"`
	SpenderAddress string    `ch:"spender_address"`
	Amount         string    `ch:"amount"`
	BlockNumber    uint64    `ch:"block_number"`
	BlockTimestamp time.Time `ch:"block_timestamp"`
	TxHash         string    `ch:"tx_hash"`
	LogIndex       uint32    `ch:"log_index"`
}

func NewApprovalRecord(e *events.Approval) *ApprovalRecord {
	return &ApprovalRecord{
		ID:             e.ID(),
		Token:          string(e.Token),
		OwnerAddress:   e.Owner,
		SpenderAddress: e.Spender,
		Amount:         e.Value.String(),
		BlockNumber:    e.BlockNumber,
		BlockTimestamp: blockTime(e.Provenance),
		TxHash:         e.TxHash,
		LogIndex:       e.LogIndex,
	}
}

type MintRequestedRecord struct {
	ID                        string    `ch:"id"`
	UserAddress               string    `ch:"user_address"`
	DepositID                 string    `ch:"deposit_id"`
	CollateralAmountDeposited string    `ch:"collateral_amount_deposited"`
	DepositAmountAfterFee     string    `ch:"deposit_amount_after_fee"`
	FeeAmount                 string    `ch:"fee_amount"`
	BlockNumber               uint64    `ch:"block_number"`
	BlockTimestamp            time.Time `ch:"block_timestamp"`
	TxHash                    string    `ch:"tx_hash"`
	LogIndex                  uint32    `ch:"log_index"`
}

func NewMintRequestedRecord(e *events.MintRequested) *MintRequestedRecord {
	return &MintRequestedRecord{
		ID:                        e.ID(),
		UserAddress:               e.User,
		DepositID:                 e.DepositID,
		CollateralAmountDeposited: e.CollateralAmountDeposited.String(),
		DepositAmountAfterFee:     e.DepositAmountAfterFee.String(),
		FeeAmount:                 e.FeeAmount.String(),
		BlockNumber:               e.BlockNumber,
		BlockTimestamp:            blockTime(e.Provenance),
		TxHash:                    e.TxHash,
		LogIndex:                  e.LogIndex,
	}
}

type MintCompletedRecord struct {
	ID                        string    `ch:"id"`
	UserAddress               string    `ch:"user_address"`
	DepositID                 string    `ch:"deposit_id"`
	RWAAmountOut              string    `ch:"rwa_amount_out"`
	CollateralAmountDeposited string    `ch:"collateral_amount_deposited"`
	Price                     string    `ch:"price"`
	PriceID                   uint64    `ch:"price_id"`
	BlockNumber               uint64    `ch:"block_number"`
	BlockTimestamp            time.Time `ch:"block_timestamp"`
	TxHash                    string    `ch:"tx_hash"`
	LogIndex                  uint32    `ch:"log_index"`
}

func NewMintCompletedRecord(e *events.MintCompleted) *MintCompletedRecord {
	return &MintCompletedRecord{
		ID:                        e.ID(),
		UserAddress:               e.User,
		DepositID:                 e.DepositID,
		RWAAmountOut:              e.RWAAmountOut.String(),
		CollateralAmountDeposited: e.CollateralAmountDeposited.String(),
		Price:                     e.Price.String(),
		PriceID:                   e.PriceID,
		BlockNumber:               e.BlockNumber,
		BlockTimestamp:            blockTime(e.Provenance),
		TxHash:                    e.TxHash,
		LogIndex:                  e.LogIndex,
	}
}

type RedemptionRequestedRecord struct {
	ID             string    `ch:"id"`
	UserAddress    string    `ch:"user_address"`
	RedemptionID   string    `ch:"redemption_id"`
	RWAAmountIn    string    `ch:"rwa_amount_in"`
	BlockNumber    uint64    `ch:"block_number"`
	BlockTimestamp time.Time `ch:"block_timestamp"`
	TxHash         string    `ch:"tx_hash"`
	LogIndex       uint32    `ch:"log_index"`
}

func NewRedemptionRequestedRecord(e *events.RedemptionRequested) *RedemptionRequestedRecord {
	return &RedemptionRequestedRecord{
		ID:             e.ID(),
		UserAddress:    e.User,
		RedemptionID:   e.RedemptionID,
		RWAAmountIn:    e.RWAAmountIn.String(),
		BlockNumber:    e.BlockNumber,
		BlockTimestamp: blockTime(e.Provenance),
		TxHash:         e.TxHash,
		LogIndex:       e.LogIndex,
	}
}

type RedemptionCompletedRecord struct {
	ID                       string    `ch:"id"`
	UserAddress              string    `ch:"user_address"`
	RedemptionID             string    `ch:"redemption_id"`
	RWAAmountRequested       string    `ch:"rwa_amount_requested"`
	CollateralAmountReturned string    `ch:"collateral_amount_returned"`
	Price                    string    `ch:"price"`
	BlockNumber              uint64    `ch:"block_number"`
	BlockTimestamp           time.Time `ch:"block_timestamp"`
	TxHash                   string    `ch:"tx_hash"`
	LogIndex                 uint32    `ch:"log_index"`
}

func NewRedemptionCompletedRecord(e *events.RedemptionCompleted) *RedemptionCompletedRecord {
	return &RedemptionCompletedRecord{
		ID:                       e.ID(),
		UserAddress:              e.User,
		RedemptionID:             e.RedemptionID,
		RWAAmountRequested:       e.RWAAmountRequested.String(),
		CollateralAmountReturned: e.CollateralAmountReturned.String(),
		Price:                    e.Price.String(),
		BlockNumber:              e.BlockNumber,
		BlockTimestamp:           blockTime(e.Provenance),
		TxHash:                   e.TxHash,
		LogIndex:                 e.LogIndex,
	}
}

type RangeSetRecord struct {
	ID                  string    `ch:"id"`
	RangeIndex          uint64    `ch:"range_index"`
	Start               uint64    `ch:"start"`
	End                 uint64    `ch:"end"`
	DailyInterestRate   string    `ch:"daily_interest_rate"`
	PrevRangeClosePrice string    `ch:"prev_range_close_price"`
	BlockNumber         uint64    `ch:"block_number"`
	BlockTimestamp      time.Time `ch:"block_timestamp"`
	TxHash              string    `ch:"tx_hash"`
	LogIndex            uint32    `ch:"log_index"`
}

func NewRangeSetRecord(e *events.RangeSet) *RangeSetRecord {
	return &RangeSetRecord{
		ID:                  e.ID(),
		RangeIndex:          e.Index,
		Start:               e.Start,
		End:                 e.End,
		DailyInterestRate:   e.DailyInterestRate.String(),
		PrevRangeClosePrice: e.PrevRangeClosePrice.String(),
		BlockNumber:         e.BlockNumber,
		BlockTimestamp:      blockTime(e.Provenance),
		TxHash:              e.TxHash,
		LogIndex:            e.LogIndex,
	}
}

type RangeOverriddenRecord struct {
	ID                     string    `ch:"id"`
	RangeIndex             uint64    `ch:"range_index"`
	NewStart               uint64    `ch:"new_start"`
	NewEnd                 uint64    `ch:"new_end"`
	NewDailyInterestRate   string    `ch:"new_daily_interest_rate"`
	NewPrevRangeClosePrice string    `ch:"new_prev_range_close_price"`
	BlockNumber            uint64    `ch:"block_number"`
	BlockTimestamp         time.Time `ch:"block_timestamp"`
	TxHash                 string    `ch:"tx_hash"`
	LogIndex               uint32    `ch:"log_index"`
}

func NewRangeOverriddenRecord(e *events.RangeOverridden) *RangeOverriddenRecord {
	return &RangeOverriddenRecord{
		ID:                     e.ID(),
		RangeIndex:             e.Index,
		NewStart:               e.NewStart,
		NewEnd:                 e.NewEnd,
		NewDailyInterestRate:   e.NewDailyInterestRate.String(),
		NewPrevRangeClosePrice: e.NewPrevRangeClosePrice.String(),
		BlockNumber:            e.BlockNumber,
		BlockTimestamp:         blockTime(e.Provenance),
		TxHash:                 e.TxHash,
		LogIndex:               e.LogIndex,
	}
}

// PriceUpdateRecord is the immutable point-in-time price fact derived from
// every price-bearing event. Its id is the source event id suffixed with
// "-price"; PriceRangeIndex is the oracle range that produced the price,
// zero for settlement prices sampled at mint/redemption completion.
type PriceUpdateRecord struct {
	ID              string    `ch:"id"`
	Price           string    `ch:"price"`
	Timestamp       int64     `ch:"timestamp"`
	PriceRangeIndex uint64    `ch:"price_range_index"`
	BlockNumber     uint64    `ch:"block_number"`
	BlockTimestamp  time.Time `ch:"block_timestamp"`
	TxHash          string    `ch:"tx_hash"`
	LogIndex        uint32    `ch:"log_index"`
}

func NewPriceUpdateRecord(p events.Provenance, price string, rangeIndex uint64) *PriceUpdateRecord {
	return &PriceUpdateRecord{
		ID:              p.ID() + "-price",
		Price:           price,
		Timestamp:       p.BlockTimestamp,
		PriceRangeIndex: rangeIndex,
		BlockNumber:     p.BlockNumber,
		BlockTimestamp:  blockTime(p),
		TxHash:          p.TxHash,
		LogIndex:        p.LogIndex,
	}
}
