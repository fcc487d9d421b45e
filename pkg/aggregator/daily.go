package aggregator

import (
	"github.com/rwa-network/usdyx/pkg/ledger"
	"github.com/rwa-network/usdyx/pkg/models"
	"go.uber.org/zap"
)

// Daily maintains the per-UTC-day rollup buckets. Day attribution is
// floor(eventTimestamp / 86400) with no timezone adjustment, so bucketing
// is deterministic regardless of arrival order within a day.
type Daily struct {
	Logger *zap.Logger
}

// RecordVolume adds collateral volume to the day.
func (d *Daily) RecordVolume(day *models.DailyBucket, amount ledger.Int) {
	day.VolumeUSD = day.VolumeUSD.Add(amount)
}

// RecordMintEvent counts one settled mint on the day.
func (d *Daily) RecordMintEvent(day *models.DailyBucket) {
	day.TotalMints++
}

// RecordRedemptionEvent counts one settled redemption on the day.
func (d *Daily) RecordRedemptionEvent(day *models.DailyBucket) {
	day.TotalRedemptions++
}

// RecordPrice sets the day's closing price. Last write wins within the
// day; this is not a mean.
func (d *Daily) RecordPrice(day *models.DailyBucket, price ledger.Int) {
	day.ClosingPrice = price
}

// RecordUniqueUser counts an address's first activity of the day, and its
// first activity ever when isNew is set.
func (d *Daily) RecordUniqueUser(day *models.DailyBucket, isNew bool) {
	day.UniqueUsers++
	if isNew {
		day.NewUsers++
	}
}
