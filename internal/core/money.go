// Package core provides the wallet/expense domain model and money helpers.
//
// All monetary values are held as shopspring decimals and rounded to two
// decimal places at every conversion or persistence boundary. SQLite stores
// them as REAL, so values coming back from the database are re-rounded before
// any comparison to keep float noise out of sufficiency checks.
package core

import (
	"strings"

	"github.com/shopspring/decimal"
)

// MoneyPlaces is the rounding precision applied to every persisted or
// compared monetary value.
const MoneyPlaces = 2

// Round2 rounds half-up to two decimal places.
func Round2(d decimal.Decimal) decimal.Decimal {
	return d.Round(MoneyPlaces)
}

// MoneyFromFloat converts a REAL read back from SQLite into a 2-decimal
// amount.
func MoneyFromFloat(f float64) decimal.Decimal {
	return decimal.NewFromFloat(f).Round(MoneyPlaces)
}

// MoneyToFloat converts an amount to the REAL representation persisted in
// SQLite.
func MoneyToFloat(d decimal.Decimal) float64 {
	return d.Round(MoneyPlaces).InexactFloat64()
}

// ParseAmount parses a user-entered amount. It accepts both dot (12.34) and
// comma (12,34) decimal separators and rejects negative values.
//
// Examples:
//
//	ParseAmount("12.34") -> 12.34, nil
//	ParseAmount("12,34") -> 12.34, nil
//	ParseAmount("-1")    -> 0, ErrInvalidAmount
func ParseAmount(s string) (decimal.Decimal, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return decimal.Zero, ErrInvalidAmount
	}
	s = strings.ReplaceAll(s, ",", ".")
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, ErrInvalidAmount
	}
	if d.IsNegative() {
		return decimal.Zero, ErrInvalidAmount
	}
	return d.Round(MoneyPlaces), nil
}
