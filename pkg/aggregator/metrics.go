package aggregator

import (
	"github.com/rwa-network/usdyx/pkg/events"
	"github.com/rwa-network/usdyx/pkg/ledger"
	"github.com/rwa-network/usdyx/pkg/models"
	"go.uber.org/zap"
)

// Metrics maintains the protocol-wide singleton. All operations are
// additive or overwrite mutations on the one record; the handle is always
// obtained through the event's Tx so concurrent events can never interleave
// on it.
type Metrics struct {
	Logger *zap.Logger
}

// IncrementUserCount counts one newly created account. It must be driven
// only by the GetOrCreate creation signal, which fires once per address.
func (m *Metrics) IncrementUserCount(metrics *models.ProtocolMetrics, timestamp int64) {
	metrics.TotalUsers++
	metrics.LastUpdated = timestamp
}

// RecordMint counts a settled mint and folds its collateral volume and
// settlement price into the totals.
func (m *Metrics) RecordMint(metrics *models.ProtocolMetrics, volumeUSD, price ledger.Int, timestamp int64) {
	metrics.TotalMints++
	metrics.TotalVolumeUSD = metrics.TotalVolumeUSD.Add(volumeUSD)
	metrics.CurrentPrice = price
	metrics.LastUpdated = timestamp
}

// RecordRedemption is the redemption-side symmetric update.
func (m *Metrics) RecordRedemption(metrics *models.ProtocolMetrics, volumeUSD, price ledger.Int, timestamp int64) {
	metrics.TotalRedemptions++
	metrics.TotalVolumeUSD = metrics.TotalVolumeUSD.Add(volumeUSD)
	metrics.CurrentPrice = price
	metrics.LastUpdated = timestamp
}

// SetCurrentPrice overwrites the protocol price from the oracle stream.
// Settlement events also write CurrentPrice via RecordMint/RecordRedemption;
// the two sources race by design, arbitration is arrival order.
func (m *Metrics) SetCurrentPrice(metrics *models.ProtocolMetrics, price ledger.Int, timestamp int64) {
	metrics.CurrentPrice = price
	metrics.LastUpdated = timestamp
}

// AdjustSupply applies a mint/burn side effect observed as a zero-address
// transfer leg. Those legs are excluded from account balances and transfer
// records, but they are the only continuous signal for circulating supply.
func (m *Metrics) AdjustSupply(metrics *models.ProtocolMetrics, token events.Token, delta ledger.Int, timestamp int64) {
	switch token {
	case events.TokenUSDY:
		metrics.TotalSupplyUSDY = metrics.TotalSupplyUSDY.Add(delta)
		if metrics.TotalSupplyUSDY.Sign() < 0 {
			m.Logger.Warn("USDY supply went negative", zap.String("supply", metrics.TotalSupplyUSDY.String()))
		}
	case events.TokenRUSDY:
		metrics.TotalSupplyRUSDY = metrics.TotalSupplyRUSDY.Add(delta)
		if metrics.TotalSupplyRUSDY.Sign() < 0 {
			m.Logger.Warn("rUSDY supply went negative", zap.String("supply", metrics.TotalSupplyRUSDY.String()))
		}
	}
	metrics.LastUpdated = timestamp
}
