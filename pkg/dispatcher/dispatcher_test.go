package dispatcher_test

import (
	"context"
	"fmt"
	"testing"

	"github.com/rwa-network/usdyx/pkg/dispatcher"
	"github.com/rwa-network/usdyx/pkg/events"
	"github.com/rwa-network/usdyx/pkg/ledger"
	"github.com/rwa-network/usdyx/pkg/models"
	"github.com/rwa-network/usdyx/pkg/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

// captureLog collects appended audit records in memory.
type captureLog struct {
	transfers             []*models.TransferRecord
	transferShares        []*models.TransferSharesRecord
	approvals             []*models.ApprovalRecord
	mintRequests          []*models.MintRequestedRecord
	mintCompletions       []*models.MintCompletedRecord
	redemptionRequests    []*models.RedemptionRequestedRecord
	redemptionCompletions []*models.RedemptionCompletedRecord
	rangeSets             []*models.RangeSetRecord
	rangeOverrides        []*models.RangeOverriddenRecord
	priceUpdates          []*models.PriceUpdateRecord
}

func (c *captureLog) Transfer(r *models.TransferRecord)             { c.transfers = append(c.transfers, r) }
func (c *captureLog) TransferShares(r *models.TransferSharesRecord) { c.transferShares = append(c.transferShares, r) }
func (c *captureLog) Approval(r *models.ApprovalRecord)             { c.approvals = append(c.approvals, r) }
func (c *captureLog) MintRequested(r *models.MintRequestedRecord) {
	c.mintRequests = append(c.mintRequests, r)
}
func (c *captureLog) MintCompleted(r *models.MintCompletedRecord) {
	c.mintCompletions = append(c.mintCompletions, r)
}
func (c *captureLog) RedemptionRequested(r *models.RedemptionRequestedRecord) {
	c.redemptionRequests = append(c.redemptionRequests, r)
}
func (c *captureLog) RedemptionCompleted(r *models.RedemptionCompletedRecord) {
	c.redemptionCompletions = append(c.redemptionCompletions, r)
}
func (c *captureLog) RangeSet(r *models.RangeSetRecord) { c.rangeSets = append(c.rangeSets, r) }
func (c *captureLog) RangeOverridden(r *models.RangeOverriddenRecord) {
	c.rangeOverrides = append(c.rangeOverrides, r)
}
func (c *captureLog) PriceUpdate(r *models.PriceUpdateRecord) {
	c.priceUpdates = append(c.priceUpdates, r)
}

func newTestDispatcher(t *testing.T) (*dispatcher.Dispatcher, *store.Memory, *captureLog) {
	st := store.NewMemory()
	audit := &captureLog{}
	return dispatcher.New(zaptest.NewLogger(t), st, audit), st, audit
}

var provSeq uint32

// prov returns a unique provenance at the given block and timestamp.
func prov(block uint64, timestamp int64) events.Provenance {
	provSeq++
	return events.Provenance{
		BlockNumber:    block,
		BlockTimestamp: timestamp,
		TxHash:         fmt.Sprintf("0xtx%d", provSeq),
		LogIndex:       provSeq,
	}
}

func transfer(p events.Provenance, from, to string, value int64) *events.Transfer {
	return &events.Transfer{
		Provenance: p,
		Token:      events.TokenUSDY,
		From:       from,
		To:         to,
		Value:      ledger.NewInt(value),
	}
}

func loadAccount(t *testing.T, st store.Store, address string) *models.Account {
	acct := models.NewAccount(address)
	found, err := st.Get(context.Background(), models.AccountKey(address), acct)
	require.NoError(t, err)
	require.True(t, found, "account %s not persisted", address)
	return acct
}

func loadMetrics(t *testing.T, st store.Store) *models.ProtocolMetrics {
	m := models.NewProtocolMetrics()
	_, err := st.Get(context.Background(), models.MetricsKey, m)
	require.NoError(t, err)
	return m
}

func loadDay(t *testing.T, st store.Store, dayIndex int64) *models.DailyBucket {
	day := models.NewDailyBucket(dayIndex)
	found, err := st.Get(context.Background(), models.DayKey(dayIndex), day)
	require.NoError(t, err)
	require.True(t, found, "day bucket %d not persisted", dayIndex)
	return day
}

func loadCheckpoint(t *testing.T, st store.Store) *models.Checkpoint {
	cp := &models.Checkpoint{}
	_, err := st.Get(context.Background(), models.CheckpointKey, cp)
	require.NoError(t, err)
	return cp
}

func TestTransferMovesBalances(t *testing.T) {
	ctx := context.Background()
	d, st, audit := newTestDispatcher(t)

	require.NoError(t, d.Process(ctx, transfer(prov(100, 1000), "0xa", "0xb", 250)))

	from := loadAccount(t, st, "0xa")
	to := loadAccount(t, st, "0xb")
	assert.Equal(t, "-250", from.USDYBalance.String())
	assert.Equal(t, "250", to.USDYBalance.String())

	// Conservation: the two legs cancel.
	assert.True(t, from.USDYBalance.Add(to.USDYBalance).IsZero())

	require.Len(t, audit.transfers, 1)
	assert.Equal(t, "250", audit.transfers[0].Amount)

	m := loadMetrics(t, st)
	assert.Equal(t, uint64(2), m.TotalUsers)

	day := loadDay(t, st, 0)
	assert.Equal(t, "250", day.VolumeUSD.String())
	assert.Equal(t, uint64(2), day.UniqueUsers)
	assert.Equal(t, uint64(2), day.NewUsers)
}

func TestRUSDYTransferSkipsDailyVolume(t *testing.T) {
	ctx := context.Background()
	d, st, _ := newTestDispatcher(t)

	ev := transfer(prov(100, 1000), "0xa", "0xb", 250)
	ev.Token = events.TokenRUSDY
	require.NoError(t, d.Process(ctx, ev))

	from := loadAccount(t, st, "0xa")
	assert.Equal(t, "-250", from.RUSDYBalance.String())
	assert.True(t, from.USDYBalance.IsZero())

	day := loadDay(t, st, 0)
	assert.True(t, day.VolumeUSD.IsZero())
}

func TestZeroAddressLegsAdjustSupplyOnly(t *testing.T) {
	ctx := context.Background()
	d, st, audit := newTestDispatcher(t)

	// Mint leg.
	require.NoError(t, d.Process(ctx, transfer(prov(100, 1000), events.ZeroAddress, "0xuser", 1000)))
	m := loadMetrics(t, st)
	assert.Equal(t, "1000", m.TotalSupplyUSDY.String())

	// Burn leg.
	require.NoError(t, d.Process(ctx, transfer(prov(101, 1010), "0xuser", events.ZeroAddress, 400)))
	m = loadMetrics(t, st)
	assert.Equal(t, "600", m.TotalSupplyUSDY.String())

	// No transfer records, no balances, no users from these legs.
	assert.Empty(t, audit.transfers)
	assert.Equal(t, uint64(0), m.TotalUsers)

	probe := models.NewAccount("0xuser")
	found, err := st.Get(ctx, models.AccountKey("0xuser"), probe)
	require.NoError(t, err)
	assert.False(t, found)
}

func TestZeroAddressSharesLegFullySkipped(t *testing.T) {
	ctx := context.Background()
	d, st, audit := newTestDispatcher(t)

	ev := &events.TransferShares{
		Provenance:  prov(100, 1000),
		From:        events.ZeroAddress,
		To:          "0xuser",
		SharesValue: ledger.NewInt(500),
	}
	require.NoError(t, d.Process(ctx, ev))

	assert.Empty(t, audit.transferShares)
	m := loadMetrics(t, st)
	assert.True(t, m.TotalSupplyRUSDY.IsZero())
}

func TestReplayIsRejected(t *testing.T) {
	ctx := context.Background()
	d, st, audit := newTestDispatcher(t)

	ev := transfer(prov(100, 1000), "0xa", "0xb", 250)
	require.NoError(t, d.Process(ctx, ev))

	err := d.Process(ctx, ev)
	require.Error(t, err)
	assert.ErrorIs(t, err, dispatcher.ErrDuplicate)

	// Aggregates unchanged by the replay.
	from := loadAccount(t, st, "0xa")
	assert.Equal(t, "-250", from.USDYBalance.String())
	day := loadDay(t, st, 0)
	assert.Equal(t, "250", day.VolumeUSD.String())
	assert.Equal(t, uint64(2), day.UniqueUsers)
	assert.Len(t, audit.transfers, 1)
}

func TestMintCompleted(t *testing.T) {
	ctx := context.Background()
	d, st, audit := newTestDispatcher(t)

	ev := &events.MintCompleted{
		Provenance:                prov(100, 100_000),
		User:                      "0xminter",
		DepositID:                 "dep-1",
		RWAAmountOut:              ledger.NewInt(1000),
		CollateralAmountDeposited: ledger.NewInt(1000),
		Price:                     ledger.NewInt(105),
		PriceID:                   7,
	}
	require.NoError(t, d.Process(ctx, ev))

	acct := loadAccount(t, st, "0xminter")
	assert.Equal(t, "1000", acct.TotalMinted.String())
	assert.Equal(t, uint64(1), acct.MintCount)
	assert.Equal(t, int64(100_000), acct.LastUpdated)

	m := loadMetrics(t, st)
	assert.Equal(t, uint64(1), m.TotalMints)
	assert.Equal(t, uint64(1), m.TotalUsers)
	assert.Equal(t, "1000", m.TotalVolumeUSD.String())
	assert.Equal(t, "105", m.CurrentPrice.String())

	// ts 100000 falls in day 1.
	day := loadDay(t, st, 1)
	assert.Equal(t, uint64(1), day.TotalMints)
	assert.Equal(t, "1000", day.VolumeUSD.String())
	assert.Equal(t, "105", day.ClosingPrice.String())
	assert.Equal(t, uint64(1), day.UniqueUsers)
	assert.Equal(t, uint64(1), day.NewUsers)

	require.Len(t, audit.mintCompletions, 1)
	require.Len(t, audit.priceUpdates, 1)
	assert.Equal(t, "105", audit.priceUpdates[0].Price)
}

func TestRedemptionCompleted(t *testing.T) {
	ctx := context.Background()
	d, st, audit := newTestDispatcher(t)

	ev := &events.RedemptionCompleted{
		Provenance:               prov(100, 100_000),
		User:                     "0xredeemer",
		RedemptionID:             "red-1",
		RWAAmountRequested:       ledger.NewInt(300),
		CollateralAmountReturned: ledger.NewInt(310),
		Price:                    ledger.NewInt(103),
	}
	require.NoError(t, d.Process(ctx, ev))

	acct := loadAccount(t, st, "0xredeemer")
	assert.Equal(t, "300", acct.TotalRedeemed.String())
	assert.Equal(t, uint64(1), acct.RedemptionCount)

	m := loadMetrics(t, st)
	assert.Equal(t, uint64(1), m.TotalRedemptions)
	assert.Equal(t, "310", m.TotalVolumeUSD.String())
	assert.Equal(t, "103", m.CurrentPrice.String())

	day := loadDay(t, st, 1)
	assert.Equal(t, uint64(1), day.TotalRedemptions)
	assert.Equal(t, "310", day.VolumeUSD.String())

	require.Len(t, audit.redemptionCompletions, 1)
	require.Len(t, audit.priceUpdates, 1)
}

func TestRangeSetPropagatesPrice(t *testing.T) {
	ctx := context.Background()
	d, st, audit := newTestDispatcher(t)

	ev := &events.RangeSet{
		Provenance:          prov(100, 1000),
		Index:               4,
		Start:               1000,
		End:                 2000,
		DailyInterestRate:   ledger.NewInt(13),
		PrevRangeClosePrice: ledger.NewInt(99),
	}
	require.NoError(t, d.Process(ctx, ev))

	m := loadMetrics(t, st)
	assert.Equal(t, "99", m.CurrentPrice.String())
	assert.Equal(t, uint64(0), m.TotalUsers)

	day := loadDay(t, st, 0)
	assert.Equal(t, "99", day.ClosingPrice.String())
	assert.Equal(t, uint64(0), day.UniqueUsers)

	require.Len(t, audit.rangeSets, 1)
	require.Len(t, audit.priceUpdates, 1)
	assert.Equal(t, "99", audit.priceUpdates[0].Price)
	assert.Equal(t, uint64(4), audit.priceUpdates[0].PriceRangeIndex)
}

func TestRangeOverrideReplacesPrice(t *testing.T) {
	ctx := context.Background()
	d, st, audit := newTestDispatcher(t)

	set := &events.RangeSet{
		Provenance:          prov(100, 1000),
		Index:               4,
		Start:               1000,
		End:                 2000,
		PrevRangeClosePrice: ledger.NewInt(99),
	}
	require.NoError(t, d.Process(ctx, set))

	override := &events.RangeOverridden{
		Provenance:             prov(101, 1100),
		Index:                  4,
		NewStart:               1000,
		NewEnd:                 2000,
		NewPrevRangeClosePrice: ledger.NewInt(101),
	}
	require.NoError(t, d.Process(ctx, override))

	m := loadMetrics(t, st)
	assert.Equal(t, "101", m.CurrentPrice.String())

	day := loadDay(t, st, 0)
	assert.Equal(t, "101", day.ClosingPrice.String())

	require.Len(t, audit.priceUpdates, 2)
}

func TestApprovalCountsPartiesWithoutBalances(t *testing.T) {
	ctx := context.Background()
	d, st, audit := newTestDispatcher(t)

	ev := &events.Approval{
		Provenance: prov(100, 1000),
		Token:      events.TokenUSDY,
		Owner:      "0xowner",
		Spender:    "0xspender",
		Value:      ledger.NewInt(10_000),
	}
	require.NoError(t, d.Process(ctx, ev))

	owner := loadAccount(t, st, "0xowner")
	assert.True(t, owner.USDYBalance.IsZero())
	assert.Equal(t, int64(1000), owner.LastUpdated)

	m := loadMetrics(t, st)
	assert.Equal(t, uint64(2), m.TotalUsers)
	require.Len(t, audit.approvals, 1)
}

func TestTotalUsersCountsDistinctAddresses(t *testing.T) {
	ctx := context.Background()
	d, st, _ := newTestDispatcher(t)

	require.NoError(t, d.Process(ctx, transfer(prov(100, 1000), "0xa", "0xb", 10)))
	require.NoError(t, d.Process(ctx, transfer(prov(101, 1010), "0xb", "0xc", 10)))
	require.NoError(t, d.Process(ctx, transfer(prov(102, 1020), "0xc", "0xa", 10)))

	m := loadMetrics(t, st)
	assert.Equal(t, uint64(3), m.TotalUsers)
}

func TestUniqueUsersOncePerDay(t *testing.T) {
	ctx := context.Background()
	d, st, _ := newTestDispatcher(t)

	// Back and forth within the same day: two unique users, not four.
	require.NoError(t, d.Process(ctx, transfer(prov(100, 1000), "0xa", "0xb", 10)))
	require.NoError(t, d.Process(ctx, transfer(prov(101, 2000), "0xb", "0xa", 10)))

	day := loadDay(t, st, 0)
	assert.Equal(t, uint64(2), day.UniqueUsers)
	assert.Equal(t, uint64(2), day.NewUsers)
}

func TestDailyBucketBoundary(t *testing.T) {
	ctx := context.Background()
	d, st, _ := newTestDispatcher(t)

	require.NoError(t, d.Process(ctx, transfer(prov(100, 86_399), "0xa", "0xb", 100)))
	require.NoError(t, d.Process(ctx, transfer(prov(101, 86_400), "0xa", "0xb", 200)))

	day0 := loadDay(t, st, 0)
	assert.Equal(t, "100", day0.VolumeUSD.String())
	assert.Equal(t, uint64(2), day0.NewUsers)
	assert.Equal(t, int64(0), day0.Date)

	day1 := loadDay(t, st, 1)
	assert.Equal(t, "200", day1.VolumeUSD.String())
	assert.Equal(t, uint64(2), day1.UniqueUsers)
	// Both addresses already existed, so day 1 gains no new users.
	assert.Equal(t, uint64(0), day1.NewUsers)
	assert.Equal(t, int64(86_400), day1.Date)
}

func TestMalformedEventLeavesStateUntouched(t *testing.T) {
	ctx := context.Background()
	d, st, audit := newTestDispatcher(t)

	ev := transfer(prov(100, 1000), "", "0xb", 250)
	err := d.Process(ctx, ev)
	require.Error(t, err)
	assert.ErrorIs(t, err, events.ErrMalformed)

	assert.Equal(t, 0, st.Len())
	assert.Empty(t, audit.transfers)
}

func TestOrderingRegressionStillApplies(t *testing.T) {
	ctx := context.Background()
	d, st, _ := newTestDispatcher(t)

	require.NoError(t, d.Process(ctx, transfer(prov(200, 2000), "0xa", "0xb", 100)))

	// An event from an earlier block still applies additively, but the
	// checkpoint does not move backwards.
	require.NoError(t, d.Process(ctx, transfer(prov(150, 1500), "0xa", "0xb", 50)))

	cp := loadCheckpoint(t, st)
	assert.Equal(t, uint64(200), cp.BlockNumber)

	to := loadAccount(t, st, "0xb")
	assert.Equal(t, "150", to.USDYBalance.String())
}

func TestCheckpointAdvances(t *testing.T) {
	ctx := context.Background()
	d, st, _ := newTestDispatcher(t)

	ev := transfer(prov(300, 3000), "0xa", "0xb", 1)
	require.NoError(t, d.Process(ctx, ev))

	cp := loadCheckpoint(t, st)
	assert.Equal(t, uint64(300), cp.BlockNumber)
	assert.Equal(t, ev.LogIndex, cp.LogIndex)
	assert.Equal(t, ev.ID(), cp.EventID)
}

func TestRequestPhaseEventsTouchOnly(t *testing.T) {
	ctx := context.Background()
	d, st, audit := newTestDispatcher(t)

	req := &events.MintRequested{
		Provenance:                prov(100, 1000),
		User:                      "0xminter",
		DepositID:                 "dep-1",
		CollateralAmountDeposited: ledger.NewInt(1000),
		DepositAmountAfterFee:     ledger.NewInt(995),
		FeeAmount:                 ledger.NewInt(5),
	}
	require.NoError(t, d.Process(ctx, req))

	acct := loadAccount(t, st, "0xminter")
	assert.True(t, acct.TotalMinted.IsZero())
	assert.Equal(t, uint64(0), acct.MintCount)
	assert.Equal(t, int64(1000), acct.LastUpdated)

	m := loadMetrics(t, st)
	assert.Equal(t, uint64(0), m.TotalMints)
	assert.Equal(t, uint64(1), m.TotalUsers)
	require.Len(t, audit.mintRequests, 1)
	assert.Empty(t, audit.priceUpdates)
}
