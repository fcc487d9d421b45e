package aggregator

import (
	"context"

	"github.com/rwa-network/usdyx/pkg/ledger"
	"github.com/rwa-network/usdyx/pkg/models"
	"go.uber.org/zap"
)

// BalanceField names the account balance a delta applies to.
type BalanceField int

const (
	FieldUSDYBalance BalanceField = iota
	FieldRUSDYBalance
	FieldRUSDYShares
)

// Accounts maintains the per-address aggregates. There is exactly one
// implementation of each operation; the dispatcher is the only caller.
type Accounts struct {
	Logger *zap.Logger
}

// GetOrCreate loads or lazily creates the account, reporting whether it
// was newly created.
func (a *Accounts) GetOrCreate(ctx context.Context, tx *Tx, address string) (*models.Account, bool, error) {
	return tx.Account(ctx, address)
}

// ApplyBalanceDelta adds the signed delta to the named balance field. A
// resulting negative balance is legal only as an ordering artifact; it is
// logged so reconciliation can flag it.
func (a *Accounts) ApplyBalanceDelta(acct *models.Account, field BalanceField, delta ledger.Int, timestamp int64) {
	var updated ledger.Int
	switch field {
	case FieldUSDYBalance:
		acct.USDYBalance = acct.USDYBalance.Add(delta)
		updated = acct.USDYBalance
	case FieldRUSDYBalance:
		acct.RUSDYBalance = acct.RUSDYBalance.Add(delta)
		updated = acct.RUSDYBalance
	case FieldRUSDYShares:
		acct.RUSDYShares = acct.RUSDYShares.Add(delta)
		updated = acct.RUSDYShares
	}
	acct.LastUpdated = timestamp

	if updated.Sign() < 0 {
		a.Logger.Warn("account balance went negative",
			zap.String("address", acct.Address),
			zap.Int("field", int(field)),
			zap.String("balance", updated.String()))
	}
}

// ApplyMintCompletion credits a settled mint to the account's lifetime
// counters.
func (a *Accounts) ApplyMintCompletion(acct *models.Account, rwaAmountOut ledger.Int, timestamp int64) {
	acct.TotalMinted = acct.TotalMinted.Add(rwaAmountOut)
	acct.MintCount++
	acct.LastUpdated = timestamp
}

// ApplyRedemptionCompletion is the redemption-side symmetric update.
func (a *Accounts) ApplyRedemptionCompletion(acct *models.Account, rwaAmountRequested ledger.Int, timestamp int64) {
	acct.TotalRedeemed = acct.TotalRedeemed.Add(rwaAmountRequested)
	acct.RedemptionCount++
	acct.LastUpdated = timestamp
}

// Touch bumps lastUpdated without changing any aggregate; request-phase
// lifecycle events use it.
func (a *Accounts) Touch(acct *models.Account, timestamp int64) {
	if timestamp > acct.LastUpdated {
		acct.LastUpdated = timestamp
	}
}
