package aggregator_test

import (
	"context"
	"testing"

	"github.com/rwa-network/usdyx/pkg/aggregator"
	"github.com/rwa-network/usdyx/pkg/ledger"
	"github.com/rwa-network/usdyx/pkg/models"
	"github.com/rwa-network/usdyx/pkg/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func TestAccountCreatedOnceAcrossTxs(t *testing.T) {
	ctx := context.Background()
	st := store.NewMemory()

	tx := aggregator.Begin(st, "0xaaa-0")
	acct, created, err := tx.Account(ctx, "0xuser")
	require.NoError(t, err)
	assert.True(t, created)
	assert.Equal(t, "0xuser", acct.Address)
	require.NoError(t, tx.Commit(ctx))

	// Second unit of work sees the persisted account, not a fresh one.
	tx2 := aggregator.Begin(st, "0xaaa-1")
	_, created, err = tx2.Account(ctx, "0xuser")
	require.NoError(t, err)
	assert.False(t, created)
}

func TestAccountCachedWithinTx(t *testing.T) {
	ctx := context.Background()
	st := store.NewMemory()

	tx := aggregator.Begin(st, "0xbbb-0")
	a1, _, err := tx.Account(ctx, "0xuser")
	require.NoError(t, err)
	a1.MintCount = 5

	a2, created, err := tx.Account(ctx, "0xuser")
	require.NoError(t, err)
	assert.False(t, created)
	assert.Same(t, a1, a2)
	assert.Equal(t, uint64(5), a2.MintCount)
}

func TestCommitIncludesAppliedMark(t *testing.T) {
	ctx := context.Background()
	st := store.NewMemory()

	tx := aggregator.Begin(st, "0xccc-3")
	_, err := tx.Metrics(ctx)
	require.NoError(t, err)
	require.NoError(t, tx.Commit(ctx))

	applied, err := st.Applied(ctx, "0xccc-3")
	require.NoError(t, err)
	assert.True(t, applied)
}

func TestUncommittedTxLeavesStoreUntouched(t *testing.T) {
	ctx := context.Background()
	st := store.NewMemory()

	tx := aggregator.Begin(st, "0xddd-0")
	acct, _, err := tx.Account(ctx, "0xuser")
	require.NoError(t, err)
	acct.MintCount = 9
	// No Commit.

	probe := models.NewAccount("0xuser")
	found, err := st.Get(ctx, models.AccountKey("0xuser"), probe)
	require.NoError(t, err)
	assert.False(t, found)
	assert.Equal(t, 0, st.Len())
}

func TestMarkSeenOncePerDay(t *testing.T) {
	ctx := context.Background()
	st := store.NewMemory()

	tx := aggregator.Begin(st, "0xeee-0")
	seen, err := tx.MarkSeen(ctx, 17, "0xuser")
	require.NoError(t, err)
	assert.False(t, seen)

	// Same day, same tx.
	seen, err = tx.MarkSeen(ctx, 17, "0xuser")
	require.NoError(t, err)
	assert.True(t, seen)
	require.NoError(t, tx.Commit(ctx))

	// Same day, later tx: marker persisted.
	tx2 := aggregator.Begin(st, "0xeee-1")
	seen, err = tx2.MarkSeen(ctx, 17, "0xuser")
	require.NoError(t, err)
	assert.True(t, seen)

	// A different day starts fresh.
	seen, err = tx2.MarkSeen(ctx, 18, "0xuser")
	require.NoError(t, err)
	assert.False(t, seen)
}

func TestApplyBalanceDelta(t *testing.T) {
	accounts := &aggregator.Accounts{Logger: zaptest.NewLogger(t)}
	acct := models.NewAccount("0xuser")

	accounts.ApplyBalanceDelta(acct, aggregator.FieldUSDYBalance, ledger.NewInt(250), 1000)
	accounts.ApplyBalanceDelta(acct, aggregator.FieldUSDYBalance, ledger.NewInt(-100), 1001)

	assert.Equal(t, "150", acct.USDYBalance.String())
	assert.Equal(t, int64(1001), acct.LastUpdated)
	assert.True(t, acct.RUSDYBalance.IsZero())
}

func TestNegativeBalanceStillApplied(t *testing.T) {
	accounts := &aggregator.Accounts{Logger: zaptest.NewLogger(t)}
	acct := models.NewAccount("0xuser")

	accounts.ApplyBalanceDelta(acct, aggregator.FieldRUSDYShares, ledger.NewInt(-40), 1000)
	assert.Equal(t, "-40", acct.RUSDYShares.String())
}

func TestMintAndRedemptionCounters(t *testing.T) {
	accounts := &aggregator.Accounts{Logger: zaptest.NewLogger(t)}
	acct := models.NewAccount("0xuser")

	accounts.ApplyMintCompletion(acct, ledger.NewInt(1000), 2000)
	accounts.ApplyMintCompletion(acct, ledger.NewInt(500), 2001)
	accounts.ApplyRedemptionCompletion(acct, ledger.NewInt(300), 2002)

	assert.Equal(t, "1500", acct.TotalMinted.String())
	assert.Equal(t, uint64(2), acct.MintCount)
	assert.Equal(t, "300", acct.TotalRedeemed.String())
	assert.Equal(t, uint64(1), acct.RedemptionCount)
}

func TestTouchNeverRewindsTimestamp(t *testing.T) {
	accounts := &aggregator.Accounts{Logger: zaptest.NewLogger(t)}
	acct := models.NewAccount("0xuser")
	acct.LastUpdated = 5000

	accounts.Touch(acct, 4000)
	assert.Equal(t, int64(5000), acct.LastUpdated)

	accounts.Touch(acct, 6000)
	assert.Equal(t, int64(6000), acct.LastUpdated)
}
