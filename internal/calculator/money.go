package calculator

import (
	"math"

	"github.com/shopspring/decimal"
)

// centsEpsilon biases conversions so values like 1.005, stored as 1.00499999...,
// round half up the way a person would expect.
const centsEpsilon = 1e-9

// maxAmount keeps amount*100 well inside int64.
const maxAmount = 9e16

// toCents converts a decimal amount to integer cents. ok is false for NaN, ±Inf,
// negative or overflowing amounts.
func toCents(amount float64) (cents int64, ok bool) {
	if math.IsNaN(amount) || math.IsInf(amount, 0) {
		return 0, false
	}
	if amount < 0 || amount > maxAmount {
		return 0, false
	}
	return int64(math.Round((amount + centsEpsilon) * 100)), true
}

// ToCents converts a decimal currency amount (e.g. 12.34) to cents.
// Returns ErrInvalidExpense for non-finite, negative or oversized amounts.
func ToCents(amount float64) (int64, error) {
	cents, ok := toCents(amount)
	if !ok {
		return 0, &ValidationError{Field: "amount", Reason: "must be a finite, non-negative amount"}
	}
	return cents, nil
}

// FromCents converts cents back to a decimal amount with exactly two decimal places.
func FromCents(cents int64) float64 {
	return decimal.New(cents, -2).InexactFloat64()
}

// FormatCents renders cents as a fixed two-decimal string, e.g. -1234 -> "-12.34".
func FormatCents(cents int64) string {
	return decimal.New(cents, -2).StringFixed(2)
}
