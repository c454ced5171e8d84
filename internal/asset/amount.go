package asset

import (
	"errors"
	"math"
	"math/big"

	"github.com/shopspring/decimal"
)

// Decimals is the fixed-point precision of every ledger amount and price.
const Decimals = 7

// Scale is one whole unit expressed in the smallest denomination.
const Scale Amount = 10_000_000

// MaxAmount is the largest representable amount. It doubles as the
// "undefined" sentinel for basis-point computations.
const MaxAmount Amount = math.MaxInt64

var (
	ErrOverflow   = errors.New("asset: amount overflow")
	ErrDivByZero  = errors.New("asset: division by zero")
	ErrNotInteger = errors.New("asset: value has more than 7 decimal places")
)

// Amount is a signed fixed-point quantity with 7 implied decimals.
type Amount int64

// Units builds an amount from whole units.
func Units(n int64) Amount {
	return Amount(n) * Scale
}

func (a Amount) IsZero() bool     { return a == 0 }
func (a Amount) IsPositive() bool { return a > 0 }
func (a Amount) IsNegative() bool { return a < 0 }

// Abs returns |a|. MinInt64 saturates to MaxAmount.
func (a Amount) Abs() Amount {
	if a >= 0 {
		return a
	}
	if a == math.MinInt64 {
		return MaxAmount
	}
	return -a
}

// Add returns a+b or ErrOverflow.
func (a Amount) Add(b Amount) (Amount, error) {
	if (b > 0 && a > math.MaxInt64-b) || (b < 0 && a < math.MinInt64-b) {
		return 0, ErrOverflow
	}
	return a + b, nil
}

// Sub returns a-b or ErrOverflow.
func (a Amount) Sub(b Amount) (Amount, error) {
	if (b < 0 && a > math.MaxInt64+b) || (b > 0 && a < math.MinInt64+b) {
		return 0, ErrOverflow
	}
	return a - b, nil
}

// SaturatingSub returns a-b floored at zero.
func (a Amount) SaturatingSub(b Amount) Amount {
	if b >= a {
		return 0
	}
	return a - b
}

// MulDiv computes a*num/den with an arbitrary-precision intermediate,
// truncating toward zero.
func (a Amount) MulDiv(num, den int64) (Amount, error) {
	if den == 0 {
		return 0, ErrDivByZero
	}
	v := new(big.Int).Mul(big.NewInt(int64(a)), big.NewInt(num))
	v.Quo(v, big.NewInt(den))
	if !v.IsInt64() {
		return 0, ErrOverflow
	}
	return Amount(v.Int64()), nil
}

// MulDivAmount is MulDiv with an Amount numerator and denominator.
func MulDivAmount(a, num, den Amount) (Amount, error) {
	return a.MulDiv(int64(num), int64(den))
}

// Decimal converts to a decimal in whole units.
func (a Amount) Decimal() decimal.Decimal {
	return decimal.New(int64(a), -Decimals)
}

// Float64 is for metrics only.
func (a Amount) Float64() float64 {
	f, _ := a.Decimal().Float64()
	return f
}

func (a Amount) String() string {
	return a.Decimal().StringFixed(Decimals)
}

// FromDecimal converts whole units to an Amount, rejecting sub-stroop
// precision.
func FromDecimal(d decimal.Decimal) (Amount, error) {
	scaled := d.Shift(Decimals)
	if !scaled.Equal(scaled.Truncate(0)) {
		return 0, ErrNotInteger
	}
	bi := scaled.BigInt()
	if !bi.IsInt64() {
		return 0, ErrOverflow
	}
	return Amount(bi.Int64()), nil
}

// FromDecimalTruncate converts whole units to an Amount, dropping digits past
// the seventh decimal.
func FromDecimalTruncate(d decimal.Decimal) (Amount, error) {
	return FromDecimal(d.Truncate(Decimals))
}

// Parse reads a decimal string such as "1.0025".
func Parse(s string) (Amount, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return 0, err
	}
	return FromDecimal(d)
}
