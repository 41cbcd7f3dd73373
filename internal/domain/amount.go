package domain

import (
	"fmt"
	"math/big"
)

// Amount is an arbitrary-precision token amount. Raw swap legs arrive as
// signed decimal strings wider than 64 bits, so amounts are kept as big
// integers end to end and serialized as decimal strings. Sold/bought legs
// are non-negative after sign normalization; running nets may be negative.
type Amount struct {
	v big.Int
}

// NewAmount creates an Amount from an int64.
func NewAmount(x int64) Amount {
	var a Amount
	a.v.SetInt64(x)
	return a
}

// ParseAmount parses a decimal string into an Amount.
func ParseAmount(s string) (Amount, error) {
	var a Amount
	if _, ok := a.v.SetString(s, 10); !ok {
		return Amount{}, fmt.Errorf("parse amount %q: not a decimal integer", s)
	}
	return a, nil
}

// Add returns a + b.
func (a Amount) Add(b Amount) Amount {
	var r Amount
	r.v.Add(&a.v, &b.v)
	return r
}

// Sub returns a - b.
func (a Amount) Sub(b Amount) Amount {
	var r Amount
	r.v.Sub(&a.v, &b.v)
	return r
}

// Neg returns -a.
func (a Amount) Neg() Amount {
	var r Amount
	r.v.Neg(&a.v)
	return r
}

// Abs returns |a|.
func (a Amount) Abs() Amount {
	var r Amount
	r.v.Abs(&a.v)
	return r
}

// Sign returns -1, 0 or +1.
func (a Amount) Sign() int { return a.v.Sign() }

// Cmp compares a and b, returning -1, 0 or +1.
func (a Amount) Cmp(b Amount) int { return a.v.Cmp(&b.v) }

// IsZero reports whether a == 0.
func (a Amount) IsZero() bool { return a.v.Sign() == 0 }

// Float64 converts the amount to float64, losing precision beyond 53 bits.
// Scoring only needs relative magnitudes, so the loss is acceptable there.
func (a Amount) Float64() float64 {
	f, _ := new(big.Float).SetInt(&a.v).Float64()
	return f
}

// String returns the decimal representation.
func (a Amount) String() string { return a.v.String() }

// MarshalJSON encodes the amount as a decimal string to preserve precision
// across the cache round trip.
func (a Amount) MarshalJSON() ([]byte, error) {
	return []byte(`"` + a.v.String() + `"`), nil
}

// UnmarshalJSON decodes a decimal string (or bare number) into the amount.
func (a *Amount) UnmarshalJSON(data []byte) error {
	s := string(data)
	if len(s) >= 2 && s[0] == '"' && s[len(s)-1] == '"' {
		s = s[1 : len(s)-1]
	}
	if _, ok := a.v.SetString(s, 10); !ok {
		return fmt.Errorf("unmarshal amount %q: not a decimal integer", s)
	}
	return nil
}
