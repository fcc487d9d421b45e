package events_test

import (
	"testing"

	"github.com/rwa-network/usdyx/pkg/events"
	"github.com/rwa-network/usdyx/pkg/ledger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validProv() events.Provenance {
	return events.Provenance{
		BlockNumber:    18_500_000,
		BlockTimestamp: 1_700_000_000,
		TxHash:         "0xdeadbeef",
		LogIndex:       7,
	}
}

func TestProvenanceID(t *testing.T) {
	p := validProv()
	assert.Equal(t, "0xdeadbeef-7", p.ID())
}

func TestDayIndex(t *testing.T) {
	p := events.Provenance{BlockTimestamp: 100_000}
	assert.Equal(t, int64(1), p.DayIndex())

	p.BlockTimestamp = 86_399
	assert.Equal(t, int64(0), p.DayIndex())

	p.BlockTimestamp = 86_400
	assert.Equal(t, int64(1), p.DayIndex())
}

func TestEncodeDecodeRoundTrip(t *testing.T) {
	ev := &events.MintCompleted{
		Provenance:                validProv(),
		User:                      "0xu1",
		DepositID:                 "dep-1",
		RWAAmountOut:              ledger.NewInt(1000),
		CollateralAmountDeposited: ledger.NewInt(1000),
		Price:                     ledger.NewInt(105),
		PriceID:                   3,
	}

	values, err := events.Encode(ev)
	require.NoError(t, err)
	assert.Equal(t, string(events.KindMintCompleted), values[events.FieldKind])

	decoded, err := events.Decode(values)
	require.NoError(t, err)

	mc, ok := decoded.(*events.MintCompleted)
	require.True(t, ok)
	assert.Equal(t, ev.User, mc.User)
	assert.Equal(t, "1000", mc.RWAAmountOut.String())
	assert.Equal(t, ev.Prov(), mc.Prov())
}

func TestDecodeTransferKeepsBigValues(t *testing.T) {
	ev := &events.Transfer{
		Provenance: validProv(),
		Token:      events.TokenUSDY,
		From:       "0xa",
		To:         "0xb",
		Value:      ledger.MustParse("123456789012345678901234567890"),
	}
	values, err := events.Encode(ev)
	require.NoError(t, err)

	decoded, err := events.Decode(values)
	require.NoError(t, err)
	assert.Equal(t, "123456789012345678901234567890", decoded.(*events.Transfer).Value.String())
}

func TestDecodeRejectsUnknownKind(t *testing.T) {
	_, err := events.Decode(map[string]interface{}{
		events.FieldKind:    "governance-vote",
		events.FieldPayload: "{}",
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, events.ErrMalformed)
}

func TestDecodeRejectsMissingFields(t *testing.T) {
	_, err := events.Decode(map[string]interface{}{})
	assert.ErrorIs(t, err, events.ErrMalformed)
}

func TestValidateRejectsMissingAddresses(t *testing.T) {
	ev := &events.Transfer{
		Provenance: validProv(),
		Token:      events.TokenUSDY,
		From:       "",
		To:         "0xb",
		Value:      ledger.NewInt(1),
	}
	assert.ErrorIs(t, ev.Validate(), events.ErrMalformed)
}

func TestValidateRejectsNegativeAmounts(t *testing.T) {
	ev := &events.TransferShares{
		Provenance:  validProv(),
		From:        "0xa",
		To:          "0xb",
		SharesValue: ledger.NewInt(-5),
	}
	assert.ErrorIs(t, ev.Validate(), events.ErrMalformed)
}

func TestValidateRejectsMissingProvenance(t *testing.T) {
	ev := &events.Approval{
		Token:   events.TokenRUSDY,
		Owner:   "0xa",
		Spender: "0xb",
		Value:   ledger.NewInt(1),
	}
	assert.ErrorIs(t, ev.Validate(), events.ErrMalformed)
}

func TestValidateRejectsNonPositivePrices(t *testing.T) {
	ev := &events.RangeSet{
		Provenance:          validProv(),
		Index:               1,
		Start:               100,
		End:                 200,
		PrevRangeClosePrice: ledger.NewInt(0),
	}
	assert.ErrorIs(t, ev.Validate(), events.ErrMalformed)
}
