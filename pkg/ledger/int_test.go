package ledger_test

import (
	"encoding/json"
	"testing"

	"github.com/rwa-network/usdyx/pkg/ledger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestZeroValueUsable(t *testing.T) {
	var n ledger.Int
	assert.Equal(t, "0", n.String())
	assert.True(t, n.IsZero())
	assert.Equal(t, "5", n.Add(ledger.NewInt(5)).String())
}

func TestArithmetic(t *testing.T) {
	a := ledger.NewInt(100)
	b := ledger.NewInt(42)

	assert.Equal(t, "142", a.Add(b).String())
	assert.Equal(t, "58", a.Sub(b).String())
	assert.Equal(t, "-42", b.Neg().String())
	assert.Equal(t, "43", b.Inc().String())
	assert.Equal(t, 1, a.Cmp(b))
	assert.Equal(t, -1, b.Sub(a).Sign())

	// operands are not mutated
	assert.Equal(t, "100", a.String())
	assert.Equal(t, "42", b.String())
}

func TestParseBeyond64Bits(t *testing.T) {
	n, err := ledger.Parse("123456789012345678901234567890")
	require.NoError(t, err)
	assert.Equal(t, "123456789012345678901234567890", n.String())

	neg, err := ledger.Parse("-987654321098765432109876543210")
	require.NoError(t, err)
	assert.Equal(t, -1, neg.Sign())
}

func TestParseRejectsGarbage(t *testing.T) {
	for _, bad := range []string{"", "abc", "12.5", "0x10"} {
		_, err := ledger.Parse(bad)
		assert.Error(t, err, "expected %q to be rejected", bad)
	}
}

func TestJSONRoundTrip(t *testing.T) {
	n := ledger.MustParse("340282366920938463463374607431768211456") // 2^128

	data, err := json.Marshal(n)
	require.NoError(t, err)
	assert.Equal(t, `"340282366920938463463374607431768211456"`, string(data))

	var back ledger.Int
	require.NoError(t, json.Unmarshal(data, &back))
	assert.Equal(t, 0, n.Cmp(back))
}

func TestJSONAcceptsBareNumbers(t *testing.T) {
	var n ledger.Int
	require.NoError(t, json.Unmarshal([]byte(`12345`), &n))
	assert.Equal(t, "12345", n.String())
}
