// Package currency is the static reference table mapping currency codes to
// their fixed exchange rate against the reference currency and to display
// metadata. Rates are compile-time constants; nothing here mutates.
package currency

import (
	"fmt"

	"github.com/Rhymond/go-money"
	"github.com/shopspring/decimal"

	"portafoglio/internal/core"
)

// Reference is the common currency every amount is additionally expressed in
// for cross-wallet reporting.
const Reference = "USD"

// Entry describes one supported currency. Rate is the number of local units
// per one unit of the reference currency.
type Entry struct {
	Code string
	Name string
	Rate decimal.Decimal
}

// Table resolves rates and symbols for the supported currency set.
type Table struct {
	entries map[string]Entry
	codes   []string
}

// Default returns the built-in currency set.
func Default() *Table {
	return newTable(
		Entry{Code: "USD", Name: "US Dollar", Rate: decimal.NewFromInt(1)},
		Entry{Code: "EUR", Name: "Euro", Rate: decimal.RequireFromString("0.92")},
		Entry{Code: "GBP", Name: "British Pound", Rate: decimal.RequireFromString("0.79")},
		Entry{Code: "JPY", Name: "Japanese Yen", Rate: decimal.NewFromInt(155)},
		Entry{Code: "NGN", Name: "Nigerian Naira", Rate: decimal.NewFromInt(1450)},
		Entry{Code: "LBP", Name: "Lebanese Pound", Rate: decimal.NewFromInt(89500)},
	)
}

func newTable(entries ...Entry) *Table {
	t := &Table{entries: make(map[string]Entry, len(entries))}
	for _, e := range entries {
		t.entries[e.Code] = e
		t.codes = append(t.codes, e.Code)
	}
	return t
}

// Known reports whether code is present in the table.
func (t *Table) Known(code string) bool {
	_, ok := t.entries[code]
	return ok
}

// Codes returns the supported currency codes in declaration order.
func (t *Table) Codes() []string {
	out := make([]string, len(t.codes))
	copy(out, t.codes)
	return out
}

// RateToReference returns the fixed rate for code: local units per one unit
// of the reference currency. The rate is always positive.
func (t *Table) RateToReference(code string) (decimal.Decimal, error) {
	e, ok := t.entries[code]
	if !ok {
		return decimal.Zero, fmt.Errorf("%w: %q", core.ErrUnknownCurrency, code)
	}
	return e.Rate, nil
}

// ConvertToReference converts a local amount into the reference currency,
// rounded to two decimal places.
func (t *Table) ConvertToReference(amount decimal.Decimal, code string) (decimal.Decimal, error) {
	rate, err := t.RateToReference(code)
	if err != nil {
		return decimal.Zero, err
	}
	return core.Round2(amount.Div(rate)), nil
}

// SymbolOf returns the display symbol for code, falling back to the code
// itself when no symbol is registered.
func (t *Table) SymbolOf(code string) string {
	if !t.Known(code) {
		return code
	}
	cur := money.GetCurrency(code)
	if cur == nil || cur.Grapheme == "" {
		return code
	}
	return cur.Grapheme
}

// NameOf returns the human-readable currency name, or the code when unknown.
func (t *Table) NameOf(code string) string {
	if e, ok := t.entries[code]; ok {
		return e.Name
	}
	return code
}
