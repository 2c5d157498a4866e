package core

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// DateLayout is the persisted calendar-day format for expenses.
const DateLayout = "2006-01-02"

// DefaultCategory is applied when an expense is recorded without one.
const DefaultCategory = "General"

// CategoryAll is the sentinel meaning "no category filter" in listings.
const CategoryAll = "All"

// Categories is the closed label set an expense may carry.
var Categories = []string{
	"Food",
	"Transport",
	"Bills",
	"Entertainment",
	"Loan",
	"General",
}

type (
	// Wallet is a named pot of money in a single currency. Amount is the
	// balance in the wallet's own currency, NormalizedAmount the same balance
	// in the reference currency. The two are redundant mirrors and are only
	// ever written together.
	Wallet struct {
		ID               int64           `json:"id"`
		Name             string          `json:"name"`
		Amount           decimal.Decimal `json:"amount"`
		NormalizedAmount decimal.Decimal `json:"normalizedAmount"`
		Currency         string          `json:"currency"`
	}

	// Expense is a single spend against a wallet. NormalizedAmount is
	// computed from Amount and Currency when the row is written and is never
	// recomputed afterwards, even if the reference rates change.
	Expense struct {
		ID               int64           `json:"id"`
		Amount           decimal.Decimal `json:"amount"`
		NormalizedAmount decimal.Decimal `json:"normalizedAmount"`
		Note             string          `json:"note"`
		Date             string          `json:"date"`
		Category         string          `json:"category"`
		Currency         string          `json:"currency"`
		WalletID         int64           `json:"walletId"`
	}
)

// ValidCategory reports whether c belongs to the closed label set.
func ValidCategory(c string) bool {
	for _, known := range Categories {
		if c == known {
			return true
		}
	}
	return false
}

// ValidDate reports whether s is a real calendar day in YYYY-MM-DD form.
func ValidDate(s string) bool {
	_, err := time.Parse(DateLayout, s)
	return err == nil
}

func (w Wallet) Validate() error {
	if strings.TrimSpace(w.Name) == "" {
		return ErrEmptyName
	}
	if len(w.Name) > 100 {
		return ErrNameTooLong
	}
	if w.Amount.IsNegative() {
		return ErrInvalidAmount
	}
	return nil
}

func (e Expense) Validate() error {
	if !e.Amount.IsPositive() {
		return ErrInvalidAmount
	}
	if strings.TrimSpace(e.Note) == "" {
		return ErrEmptyNote
	}
	if len(e.Note) > 200 {
		return ErrNoteTooLong
	}
	if !ValidDate(e.Date) {
		return ErrInvalidDate
	}
	if e.Category != "" && !ValidCategory(e.Category) {
		return ErrInvalidCategory
	}
	return nil
}
