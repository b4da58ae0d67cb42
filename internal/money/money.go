// Package money converts between human-readable decimal amounts and the
// integer minor units ("tiins") in which every amount is stored and
// computed. All arithmetic inside the service is integer-only; decimal
// values exist solely at the API boundary. Conversions go through
// shopspring/decimal so that no binary floating point rounding can leak
// into stored amounts.
package money

import (
	"errors"
	"math"

	"github.com/shopspring/decimal"
)

// ErrInvalidAmount is returned when a boundary amount is NaN, infinite,
// negative or too large to fit into int64 minor units.
var ErrInvalidAmount = errors.New("invalid money amount")

// maxAmount bounds boundary input so that amount*100 cannot overflow
// int64 (int64 max is ~9.2e18).
const maxAmount = 9e16

// ToMinorUnits converts a decimal amount (e.g. 12.34) into integer minor
// units (1234). The value is parsed through its shortest decimal
// representation and rounded half-away-from-zero, matching how humans
// round cents; banker's rounding is deliberately not used.
func ToMinorUnits(amount float64) (int64, error) {
	if math.IsNaN(amount) || math.IsInf(amount, 0) {
		return 0, ErrInvalidAmount
	}
	if amount < 0 {
		return 0, ErrInvalidAmount
	}
	if amount > maxAmount {
		return 0, ErrInvalidAmount
	}
	// NewFromFloat keeps the shortest decimal representation of the float,
	// so 0.1 stays 0.1 and not 0.1000000000000000055...
	d := decimal.NewFromFloat(amount)
	// Round performs half-away-from-zero rounding.
	return d.Mul(decimal.NewFromInt(100)).Round(0).IntPart(), nil
}

// FromMinorUnits converts integer minor units back to a decimal amount
// for display. 1234 -> 12.34. The division is exact: two decimal places
// always fit a float64 for any amount this service can store.
func FromMinorUnits(units int64) float64 {
	f, _ := decimal.New(units, -2).Float64()
	return f
}
