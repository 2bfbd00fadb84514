package ckbamount

import (
	"errors"
	"fmt"
	"math/big"
	"math/bits"

	"github.com/shopspring/decimal"
)

// Shannons is a CKB capacity expressed in its smallest unit.
type Shannons uint64

// ShannonsPerCKB is the number of shannons in one CKB.
const ShannonsPerCKB Shannons = 100_000_000

// FromCKB converts a whole CKB amount to shannons.
func FromCKB(ckb uint64) Shannons {
	return Shannons(ckb) * ShannonsPerCKB
}

// FromBig converts a non-negative big integer to shannons, saturating at MaxUint64.
func FromBig(v *big.Int) Shannons {
	if v.Sign() <= 0 {
		return 0
	}
	if !v.IsUint64() {
		return Shannons(^uint64(0))
	}
	return Shannons(v.Uint64())
}

func (s Shannons) Uint64() uint64 {
	return uint64(s)
}

// Big returns the amount as a freshly allocated big integer.
func (s Shannons) Big() *big.Int {
	return new(big.Int).SetUint64(uint64(s))
}

func (s Shannons) IsZero() bool {
	return s == 0
}

// Sub returns s - o, clamped at zero.
func (s Shannons) Sub(o Shannons) Shannons {
	if o > s {
		return 0
	}
	return s - o
}

// CKB renders the amount as a decimal CKB value.
func (s Shannons) CKB() decimal.Decimal {
	return decimal.NewFromBigInt(s.Big(), -8)
}

func (s Shannons) String() string {
	return s.CKB().StringFixed(8)
}

// MulDiv computes (a * b) / c with a 128-bit intermediate product.
// Returns MaxUint64 on overflow or division by zero.
func MulDiv(a, b, c uint64) uint64 {
	if c == 0 {
		return ^uint64(0)
	}
	hi, lo := bits.Mul64(a, b)
	if hi >= c {
		return ^uint64(0)
	}
	q, _ := bits.Div64(hi, lo, c)
	return q
}

// MulDivCeil is MulDiv rounded toward positive infinity.
func MulDivCeil(a, b, c uint64) uint64 {
	if c == 0 {
		return ^uint64(0)
	}
	hi, lo := bits.Mul64(a, b)
	if hi >= c {
		return ^uint64(0)
	}
	q, r := bits.Div64(hi, lo, c)
	if r != 0 {
		q++
	}
	return q
}

// ErrInvalidAmount is returned for amounts that are negative or finer than a shannon.
var ErrInvalidAmount = errors.New("invalid amount")

// ParseUnits parses a decimal amount with up to 8 fractional digits, like
// "1000.5", into base units. It serves both CKB and iCKB, which share the scale.
func ParseUnits(s string) (*big.Int, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return nil, fmt.Errorf("%w: %q: %v", ErrInvalidAmount, s, err)
	}
	if d.IsNegative() {
		return nil, fmt.Errorf("%w: %q is negative", ErrInvalidAmount, s)
	}
	units := d.Shift(8)
	if !units.IsInteger() {
		return nil, fmt.Errorf("%w: %q has more than 8 decimals", ErrInvalidAmount, s)
	}
	return units.BigInt(), nil
}
