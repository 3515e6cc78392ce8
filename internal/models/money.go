package models

import (
	"fmt"
	"github.com/shopspring/decimal"
)

const MoneyScale = 2

// MaxAmount is the largest value a NUMERIC(14,2) money column holds.
var MaxAmount = decimal.RequireFromString("999999999999.99")

// ValidateAmount accepts strictly positive amounts with at most two fraction digits
// that fit the money columns.
func ValidateAmount(amount decimal.Decimal) error {
	if !amount.IsPositive() {
		return fmt.Errorf("%w: %s must be greater than zero", ErrInvalidAmount, amount.String())
	}
	if !amount.Equal(amount.Round(MoneyScale)) {
		return fmt.Errorf("%w: %s has more than %d fraction digits", ErrInvalidAmount, amount.String(), MoneyScale)
	}
	if amount.GreaterThan(MaxAmount) {
		return fmt.Errorf("%w: %s is above %s", ErrInvalidAmount, amount.String(), MaxAmount.String())
	}
	return nil
}

// Round2 rounds half away from zero, which is half-up for the non-negative amounts the ledger stores.
func Round2(d decimal.Decimal) decimal.Decimal {
	return d.Round(MoneyScale)
}

// MustAmount parses a decimal literal and panics on malformed input. Meant for constants and tests.
func MustAmount(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}
