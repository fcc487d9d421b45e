package audit

import (
	"context"

	"github.com/rwa-network/usdyx/pkg/models"
)

// Nop discards all records. Used when the audit log is disabled
// (AUDIT_DISABLED=1) and by tests that only exercise aggregate state.
type Nop struct{}

func (Nop) Transfer(*models.TransferRecord)                       {}
func (Nop) TransferShares(*models.TransferSharesRecord)           {}
func (Nop) Approval(*models.ApprovalRecord)                       {}
func (Nop) MintRequested(*models.MintRequestedRecord)             {}
func (Nop) MintCompleted(*models.MintCompletedRecord)             {}
func (Nop) RedemptionRequested(*models.RedemptionRequestedRecord) {}
func (Nop) RedemptionCompleted(*models.RedemptionCompletedRecord) {}
func (Nop) RangeSet(*models.RangeSetRecord)                       {}
func (Nop) RangeOverridden(*models.RangeOverriddenRecord)         {}
func (Nop) PriceUpdate(*models.PriceUpdateRecord)                 {}

func (Nop) NeedsFlush() bool            { return false }
func (Nop) Flush(context.Context) error { return nil }
func (Nop) Close(context.Context) error { return nil }
