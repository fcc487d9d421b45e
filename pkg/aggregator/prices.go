package aggregator

import (
	"github.com/rwa-network/usdyx/pkg/events"
	"github.com/rwa-network/usdyx/pkg/ledger"
	"github.com/rwa-network/usdyx/pkg/models"
	"go.uber.org/zap"
)

// PriceLog is the slice of the audit log the price tracker appends to.
type PriceLog interface {
	PriceUpdate(*models.PriceUpdateRecord)
}

// Prices turns every price-bearing event into exactly one immutable
// PriceUpdate record, appended before any derived aggregate consumes the
// price. Two sources feed it: the oracle range stream (authoritative,
// carries a range index) and mint/redemption settlements (price sampled at
// settlement, no range attribution).
type Prices struct {
	Logger *zap.Logger
	Log    PriceLog
}

// RecordRangePrice captures an oracle range set/override close price.
func (p *Prices) RecordRangePrice(prov events.Provenance, price ledger.Int, rangeIndex uint64) {
	p.Log.PriceUpdate(models.NewPriceUpdateRecord(prov, price.String(), rangeIndex))
	p.Logger.Debug("oracle price point recorded",
		zap.String("id", prov.ID()),
		zap.Uint64("rangeIndex", rangeIndex),
		zap.String("price", price.String()))
}

// RecordSettlementPrice captures the price a mint or redemption settled at.
func (p *Prices) RecordSettlementPrice(prov events.Provenance, price ledger.Int) {
	p.Log.PriceUpdate(models.NewPriceUpdateRecord(prov, price.String(), 0))
	p.Logger.Debug("settlement price point recorded",
		zap.String("id", prov.ID()),
		zap.String("price", price.String()))
}
