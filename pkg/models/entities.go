// Package models holds the persisted shapes of the ledger: the mutable
// aggregate entities kept in the keyed entity store, and the write-once
// audit records appended to ClickHouse.
package models

import (
	"fmt"

	"github.com/rwa-network/usdyx/pkg/events"
	"github.com/rwa-network/usdyx/pkg/ledger"
)

// Store key namespaces. Aggregates live in a flat keyed store; these
// helpers are the only place keys are built so aggregators cannot drift.
const (
	MetricsKey    = "protocol"
	CheckpointKey = "checkpoint"
)

func AccountKey(address string) string {
	return "account:" + address
}

func DayKey(dayIndex int64) string {
	return fmt.Sprintf("day:%d", dayIndex)
}

// SeenUserKey marks that an address was active on a given day; it backs the
// per-day unique-user count.
func SeenUserKey(dayIndex int64, address string) string {
	return fmt.Sprintf("seen:%d:%s", dayIndex, address)
}

// Account is the per-address aggregate. Accounts are created lazily on
// first reference and never deleted. Balances are signed: they may go
// negative transiently when events arrive out of order, which the
// dispatcher surfaces as a warning rather than silently repairing.
type Account struct {
	Address         string     `json:"address"`
	USDYBalance     ledger.Int `json:"usdyBalance"`
	RUSDYBalance    ledger.Int `json:"rusdyBalance"`
	RUSDYShares     ledger.Int `json:"rusdyShares"`
	TotalMinted     ledger.Int `json:"totalMinted"`
	TotalRedeemed   ledger.Int `json:"totalRedeemed"`
	MintCount       uint64     `json:"mintCount"`
	RedemptionCount uint64     `json:"redemptionCount"`
	LastUpdated     int64      `json:"lastUpdated"`
}

// NewAccount returns the zero-initialized aggregate for an address. All
// lazy upserts go through here so defaults stay in one place.
func NewAccount(address string) *Account {
	return &Account{Address: address}
}

// ProtocolMetrics is the protocol-wide singleton aggregate. It is loaded
// once per event and passed by handle to every aggregator operation; the
// fixed store key is an implementation detail of persistence, not of the
// API.
type ProtocolMetrics struct {
	TotalSupplyUSDY  ledger.Int `json:"totalSupplyUSDY"`
	TotalSupplyRUSDY ledger.Int `json:"totalSupplyRUSDY"`
	TotalUsers       uint64     `json:"totalUsers"`
	TotalMints       uint64     `json:"totalMints"`
	TotalRedemptions uint64     `json:"totalRedemptions"`
	TotalVolumeUSD   ledger.Int `json:"totalVolumeUSD"`
	CurrentPrice     ledger.Int `json:"currentPrice"`
	LastUpdated      int64      `json:"lastUpdated"`
}

func NewProtocolMetrics() *ProtocolMetrics {
	return &ProtocolMetrics{}
}

// DailyBucket aggregates one UTC epoch day of activity. Buckets are
// created lazily on the first event of the day.
//
// ClosingPrice is the most recent price observed within the day, not a
// mean. The upstream schema named the column average_price; the serialized
// name is kept for compatibility but the Go name states the actual
// last-write-wins semantics.
type DailyBucket struct {
	DayIndex         int64      `json:"dayIndex"`
	Date             int64      `json:"date"` // dayIndex * 86400, unix seconds
	TotalMints       uint64     `json:"totalMints"`
	TotalRedemptions uint64     `json:"totalRedemptions"`
	VolumeUSD        ledger.Int `json:"volumeUSD"`
	ClosingPrice     ledger.Int `json:"average_price"`
	UniqueUsers      uint64     `json:"uniqueUsers"`
	NewUsers         uint64     `json:"newUsers"`
}

func NewDailyBucket(dayIndex int64) *DailyBucket {
	return &DailyBucket{
		DayIndex: dayIndex,
		Date:     dayIndex * events.SecondsPerDay,
	}
}

// Checkpoint records the ordering high-water mark of applied events. A
// regression against it means the upstream replayed or reordered the
// stream; aggregates still apply (there is no rollback), but the
// dispatcher logs it loudly.
type Checkpoint struct {
	BlockNumber uint64 `json:"blockNumber"`
	LogIndex    uint32 `json:"logIndex"`
	EventID     string `json:"eventId"`
	UpdatedAt   int64  `json:"updatedAt"`
}

// Behind reports whether the given provenance sorts before the checkpoint.
func (c *Checkpoint) Behind(p events.Provenance) bool {
	if c.EventID == "" {
		return false
	}
	if p.BlockNumber != c.BlockNumber {
		return p.BlockNumber < c.BlockNumber
	}
	return p.LogIndex < c.LogIndex
}

// SeenMarker is the value stored under SeenUserKey; existence is the signal.
type SeenMarker struct {
	Seen bool `json:"seen"`
}
