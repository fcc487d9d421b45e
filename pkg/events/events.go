// Package events defines the typed on-chain event stream consumed by the
// indexer: ERC-20 style transfers and approvals for USDY and rUSDY, the
// USDY manager's mint/redemption lifecycle, and the redemption price
// oracle's range updates. Every event carries block provenance and is
// identified by its (transaction hash, log index) pair.
package events

import (
	"errors"
	"fmt"
)

// Kind identifies the type of on-chain event.
type Kind string

const (
	KindTransfer            Kind = "transfer"
	KindTransferShares      Kind = "transfer-shares"
	KindApproval            Kind = "approval"
	KindMintRequested       Kind = "mint-requested"
	KindMintCompleted       Kind = "mint-completed"
	KindRedemptionRequested Kind = "redemption-requested"
	KindRedemptionCompleted Kind = "redemption-completed"
	KindRangeSet            Kind = "range-set"
	KindRangeOverridden     Kind = "range-overridden"
)

// Token distinguishes the two tracked ERC-20 contracts.
type Token string

const (
	TokenUSDY  Token = "USDY"
	TokenRUSDY Token = "rUSDY"
)

// ZeroAddress is the canonical null address. Transfer legs touching it are
// mint/burn side effects of the manager lifecycle and are not applied to
// account balances (the lifecycle events carry the authoritative amounts).
const ZeroAddress = "0x0000000000000000000000000000000000000000"

// SecondsPerDay is the UTC day-bucket width used for daily rollups.
const SecondsPerDay = 86400

// ErrMalformed tags validation failures. Events failing validation are
// rejected before any aggregate is touched.
var ErrMalformed = errors.New("malformed event")

// Provenance is the block-level identity every event carries. The upstream
// log source guarantees monotonic (BlockNumber, LogIndex) ordering.
type Provenance struct {
	BlockNumber    uint64 `json:"blockNumber"`
	BlockTimestamp int64  `json:"blockTimestamp"` // unix seconds
	TxHash         string `json:"transactionHash"`
	LogIndex       uint32 `json:"logIndex"`
}

// ID returns the canonical event identity, txHash-logIndex. It keys the
// write-once audit records and the applied-event ledger.
func (p Provenance) ID() string {
	return fmt.Sprintf("%s-%d", p.TxHash, p.LogIndex)
}

// Prov returns the embedded provenance; it satisfies the Event interface
// for every concrete event type.
func (p Provenance) Prov() Provenance {
	return p
}

// DayIndex returns the UTC epoch-day bucket of the event timestamp.
func (p Provenance) DayIndex() int64 {
	return p.BlockTimestamp / SecondsPerDay
}

func (p Provenance) validate() error {
	if p.TxHash == "" {
		return fmt.Errorf("%w: missing transaction hash", ErrMalformed)
	}
	if p.BlockTimestamp <= 0 {
		return fmt.Errorf("%w: missing block timestamp (tx %s)", ErrMalformed, p.TxHash)
	}
	return nil
}

// Event is the interface all event types implement. This enables
// polymorphic routing in the dispatcher while keeping per-kind payloads
// strongly typed.
type Event interface {
	Kind() Kind
	Prov() Provenance
	Validate() error
}
