// Package ledger provides the arbitrary-precision signed integers used for
// every balance, share, and volume figure in the system. Token base units
// routinely exceed 64 bits, so all aggregate math goes through Int.
package ledger

import (
	"fmt"
	"math/big"
)

// Int is an immutable arbitrary-precision signed integer. The zero value is
// usable and equals 0. Operations return new values; nothing mutates in place,
// which keeps aggregator read-modify-write sequences free of aliasing bugs.
type Int struct {
	v *big.Int
}

// NewInt returns an Int holding n.
func NewInt(n int64) Int {
	return Int{v: big.NewInt(n)}
}

// Parse converts a base-10 string into an Int. An optional leading '-' is
// accepted; anything else non-numeric is an error.
func Parse(s string) (Int, error) {
	if s == "" {
		return Int{}, fmt.Errorf("parse ledger int: empty string")
	}
	v, ok := new(big.Int).SetString(s, 10)
	if !ok {
		return Int{}, fmt.Errorf("parse ledger int: invalid value %q", s)
	}
	return Int{v: v}, nil
}

// MustParse is Parse for trusted literals; it panics on invalid input.
func MustParse(s string) Int {
	n, err := Parse(s)
	if err != nil {
		panic(err)
	}
	return n
}

func (n Int) big() *big.Int {
	if n.v == nil {
		return new(big.Int)
	}
	return n.v
}

// Add returns n + m.
func (n Int) Add(m Int) Int {
	return Int{v: new(big.Int).Add(n.big(), m.big())}
}

// Sub returns n - m.
func (n Int) Sub(m Int) Int {
	return Int{v: new(big.Int).Sub(n.big(), m.big())}
}

// Neg returns -n.
func (n Int) Neg() Int {
	return Int{v: new(big.Int).Neg(n.big())}
}

// Inc returns n + 1; counters use this.
func (n Int) Inc() Int {
	return Int{v: new(big.Int).Add(n.big(), big.NewInt(1))}
}

// Sign reports -1, 0, or 1.
func (n Int) Sign() int {
	return n.big().Sign()
}

// Cmp compares n and m, returning -1, 0, or 1.
func (n Int) Cmp(m Int) int {
	return n.big().Cmp(m.big())
}

// IsZero reports whether n == 0.
func (n Int) IsZero() bool {
	return n.big().Sign() == 0
}

func (n Int) String() string {
	return n.big().String()
}

// MarshalJSON encodes the value as a decimal string so precision survives
// any JSON round trip (float64 would truncate above 2^53).
func (n Int) MarshalJSON() ([]byte, error) {
	return []byte(`"` + n.big().String() + `"`), nil
}

// UnmarshalJSON accepts both string-wrapped and bare decimal forms.
func (n *Int) UnmarshalJSON(data []byte) error {
	s := string(data)
	if len(s) >= 2 && s[0] == '"' && s[len(s)-1] == '"' {
		s = s[1 : len(s)-1]
	}
	if s == "null" || s == "" {
		n.v = new(big.Int)
		return nil
	}
	parsed, err := Parse(s)
	if err != nil {
		return err
	}
	n.v = parsed.big()
	return nil
}
