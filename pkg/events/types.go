package events

import (
	"fmt"

	"github.com/rwa-network/usdyx/pkg/ledger"
)

// Transfer is an ERC-20 Transfer on either token.
type Transfer struct {
	Provenance
	Token Token      `json:"token"`
	From  string     `json:"from"`
	To    string     `json:"to"`
	Value ledger.Int `json:"value"`
}

func (e *Transfer) Kind() Kind { return KindTransfer }

func (e *Transfer) Validate() error {
	if err := e.Provenance.validate(); err != nil {
		return err
	}
	if e.Token != TokenUSDY && e.Token != TokenRUSDY {
		return fmt.Errorf("%w: transfer %s: unknown token %q", ErrMalformed, e.ID(), e.Token)
	}
	if e.From == "" || e.To == "" {
		return fmt.Errorf("%w: transfer %s: missing from/to address", ErrMalformed, e.ID())
	}
	if e.Value.Sign() < 0 {
		return fmt.Errorf("%w: transfer %s: negative value %s", ErrMalformed, e.ID(), e.Value)
	}
	return nil
}

// TransferShares is the rUSDY rebasing-share movement that accompanies a
// share-denominated transfer.
type TransferShares struct {
	Provenance
	From        string     `json:"from"`
	To          string     `json:"to"`
	SharesValue ledger.Int `json:"sharesValue"`
}

func (e *TransferShares) Kind() Kind { return KindTransferShares }

func (e *TransferShares) Validate() error {
	if err := e.Provenance.validate(); err != nil {
		return err
	}
	if e.From == "" || e.To == "" {
		return fmt.Errorf("%w: transfer-shares %s: missing from/to address", ErrMalformed, e.ID())
	}
	if e.SharesValue.Sign() < 0 {
		return fmt.Errorf("%w: transfer-shares %s: negative shares %s", ErrMalformed, e.ID(), e.SharesValue)
	}
	return nil
}

// Approval is an ERC-20 Approval on either token.
type Approval struct {
	Provenance
	Token   Token      `json:"token"`
	Owner   string     `json:"owner"`
	Spender string     `json:"spender"`
	Value   ledger.Int `json:"value"`
}

func (e *Approval) Kind() Kind { return KindApproval }

func (e *Approval) Validate() error {
	if err := e.Provenance.validate(); err != nil {
		return err
	}
	if e.Token != TokenUSDY && e.Token != TokenRUSDY {
		return fmt.Errorf("%w: approval %s: unknown token %q", ErrMalformed, e.ID(), e.Token)
	}
	if e.Owner == "" || e.Spender == "" {
		return fmt.Errorf("%w: approval %s: missing owner/spender address", ErrMalformed, e.ID())
	}
	if e.Value.Sign() < 0 {
		return fmt.Errorf("%w: approval %s: negative value %s", ErrMalformed, e.ID(), e.Value)
	}
	return nil
}

// MintRequested records a user depositing collateral with the USDY manager.
type MintRequested struct {
	Provenance
	User                      string     `json:"user"`
	DepositID                 string     `json:"depositId"`
	CollateralAmountDeposited ledger.Int `json:"collateralAmountDeposited"`
	DepositAmountAfterFee     ledger.Int `json:"depositAmountAfterFee"`
	FeeAmount                 ledger.Int `json:"feeAmount"`
}

func (e *MintRequested) Kind() Kind { return KindMintRequested }

func (e *MintRequested) Validate() error {
	if err := e.Provenance.validate(); err != nil {
		return err
	}
	if e.User == "" {
		return fmt.Errorf("%w: mint-requested %s: missing user", ErrMalformed, e.ID())
	}
	if e.CollateralAmountDeposited.Sign() < 0 || e.DepositAmountAfterFee.Sign() < 0 || e.FeeAmount.Sign() < 0 {
		return fmt.Errorf("%w: mint-requested %s: negative amount", ErrMalformed, e.ID())
	}
	return nil
}

// MintCompleted settles a pending deposit, paying out RWA tokens at the
// oracle price identified by PriceID.
type MintCompleted struct {
	Provenance
	User                      string     `json:"user"`
	DepositID                 string     `json:"depositId"`
	RWAAmountOut              ledger.Int `json:"rwaAmountOut"`
	CollateralAmountDeposited ledger.Int `json:"collateralAmountDeposited"`
	Price                     ledger.Int `json:"price"`
	PriceID                   uint64     `json:"priceId"`
}

func (e *MintCompleted) Kind() Kind { return KindMintCompleted }

func (e *MintCompleted) Validate() error {
	if err := e.Provenance.validate(); err != nil {
		return err
	}
	if e.User == "" {
		return fmt.Errorf("%w: mint-completed %s: missing user", ErrMalformed, e.ID())
	}
	if e.RWAAmountOut.Sign() < 0 || e.CollateralAmountDeposited.Sign() < 0 {
		return fmt.Errorf("%w: mint-completed %s: negative amount", ErrMalformed, e.ID())
	}
	if e.Price.Sign() <= 0 {
		return fmt.Errorf("%w: mint-completed %s: non-positive price %s", ErrMalformed, e.ID(), e.Price)
	}
	return nil
}

// RedemptionRequested records a user handing RWA tokens back for redemption.
type RedemptionRequested struct {
	Provenance
	User         string     `json:"user"`
	RedemptionID string     `json:"redemptionId"`
	RWAAmountIn  ledger.Int `json:"rwaAmountIn"`
}

func (e *RedemptionRequested) Kind() Kind { return KindRedemptionRequested }

func (e *RedemptionRequested) Validate() error {
	if err := e.Provenance.validate(); err != nil {
		return err
	}
	if e.User == "" {
		return fmt.Errorf("%w: redemption-requested %s: missing user", ErrMalformed, e.ID())
	}
	if e.RWAAmountIn.Sign() < 0 {
		return fmt.Errorf("%w: redemption-requested %s: negative amount", ErrMalformed, e.ID())
	}
	return nil
}

// RedemptionCompleted settles a pending redemption, returning collateral at
// the settlement price.
type RedemptionCompleted struct {
	Provenance
	User                     string     `json:"user"`
	RedemptionID             string     `json:"redemptionId"`
	RWAAmountRequested       ledger.Int `json:"rwaAmountRequested"`
	CollateralAmountReturned ledger.Int `json:"collateralAmountReturned"`
	Price                    ledger.Int `json:"price"`
}

func (e *RedemptionCompleted) Kind() Kind { return KindRedemptionCompleted }

func (e *RedemptionCompleted) Validate() error {
	if err := e.Provenance.validate(); err != nil {
		return err
	}
	if e.User == "" {
		return fmt.Errorf("%w: redemption-completed %s: missing user", ErrMalformed, e.ID())
	}
	if e.RWAAmountRequested.Sign() < 0 || e.CollateralAmountReturned.Sign() < 0 {
		return fmt.Errorf("%w: redemption-completed %s: negative amount", ErrMalformed, e.ID())
	}
	if e.Price.Sign() <= 0 {
		return fmt.Errorf("%w: redemption-completed %s: non-positive price %s", ErrMalformed, e.ID(), e.Price)
	}
	return nil
}

// RangeSet is the oracle opening a new price range; PrevRangeClosePrice is
// the authoritative close of the previous range and defines the current
// protocol price.
type RangeSet struct {
	Provenance
	Index               uint64     `json:"index"`
	Start               uint64     `json:"start"`
	End                 uint64     `json:"end"`
	DailyInterestRate   ledger.Int `json:"dailyInterestRate"`
	PrevRangeClosePrice ledger.Int `json:"prevRangeClosePrice"`
}

func (e *RangeSet) Kind() Kind { return KindRangeSet }

func (e *RangeSet) Validate() error {
	if err := e.Provenance.validate(); err != nil {
		return err
	}
	if e.PrevRangeClosePrice.Sign() <= 0 {
		return fmt.Errorf("%w: range-set %s: non-positive close price %s", ErrMalformed, e.ID(), e.PrevRangeClosePrice)
	}
	if e.End != 0 && e.End < e.Start {
		return fmt.Errorf("%w: range-set %s: end %d before start %d", ErrMalformed, e.ID(), e.End, e.Start)
	}
	return nil
}

// RangeOverridden is the oracle correcting a previously set range in place.
type RangeOverridden struct {
	Provenance
	Index                  uint64     `json:"index"`
	NewStart               uint64     `json:"newStart"`
	NewEnd                 uint64     `json:"newEnd"`
	NewDailyInterestRate   ledger.Int `json:"newDailyInterestRate"`
	NewPrevRangeClosePrice ledger.Int `json:"newPrevRangeClosePrice"`
}

func (e *RangeOverridden) Kind() Kind { return KindRangeOverridden }

func (e *RangeOverridden) Validate() error {
	if err := e.Provenance.validate(); err != nil {
		return err
	}
	if e.NewPrevRangeClosePrice.Sign() <= 0 {
		return fmt.Errorf("%w: range-overridden %s: non-positive close price %s", ErrMalformed, e.ID(), e.NewPrevRangeClosePrice)
	}
	if e.NewEnd != 0 && e.NewEnd < e.NewStart {
		return fmt.Errorf("%w: range-overridden %s: end %d before start %d", ErrMalformed, e.ID(), e.NewEnd, e.NewStart)
	}
	return nil
}
