package utils

import (
	"github.com/shopspring/decimal"

	"bankcards/internal/apperrors"
)

// ParseAmount parses a monetary amount with at most two fractional digits.
// Amounts travel as JSON strings so no binary floating point is involved.
func ParseAmount(s string) (decimal.Decimal, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, apperrors.Validationf("invalid amount %q", s)
	}
	if d.Exponent() < -2 {
		return decimal.Zero, apperrors.Validation("amount must have at most 2 decimal places")
	}
	return d, nil
}

// ParsePositiveAmount parses an amount that must be strictly greater than zero.
func ParsePositiveAmount(s string) (decimal.Decimal, error) {
	d, err := ParseAmount(s)
	if err != nil {
		return decimal.Zero, err
	}
	if !d.IsPositive() {
		return decimal.Zero, apperrors.Validation("amount must be greater than zero")
	}
	return d, nil
}
