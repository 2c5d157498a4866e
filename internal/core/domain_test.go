package core

import (
	"errors"
	"strings"
	"testing"

	"github.com/shopspring/decimal"
)

func TestWalletValidate(t *testing.T) {
	valid := Wallet{Name: "Cash", Amount: decimal.NewFromInt(100), Currency: "USD"}

	t.Run("valid", func(t *testing.T) {
		if err := valid.Validate(); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	})

	t.Run("zero balance is allowed", func(t *testing.T) {
		w := valid
		w.Amount = decimal.Zero
		if err := w.Validate(); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	})

	t.Run("blank name", func(t *testing.T) {
		w := valid
		w.Name = "   "
		if err := w.Validate(); !errors.Is(err, ErrEmptyName) {
			t.Fatalf("expected ErrEmptyName, got %v", err)
		}
	})

	t.Run("name too long", func(t *testing.T) {
		w := valid
		w.Name = strings.Repeat("x", 101)
		if err := w.Validate(); !errors.Is(err, ErrNameTooLong) {
			t.Fatalf("expected ErrNameTooLong, got %v", err)
		}
	})

	t.Run("negative balance", func(t *testing.T) {
		w := valid
		w.Amount = decimal.NewFromInt(-1)
		if err := w.Validate(); !errors.Is(err, ErrInvalidAmount) {
			t.Fatalf("expected ErrInvalidAmount, got %v", err)
		}
	})
}

func TestExpenseValidate(t *testing.T) {
	valid := Expense{
		Amount:   decimal.NewFromInt(10),
		Note:     "groceries",
		Date:     "2025-03-10",
		Category: "Food",
		Currency: "USD",
		WalletID: 1,
	}

	t.Run("valid", func(t *testing.T) {
		if err := valid.Validate(); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	})

	t.Run("zero amount", func(t *testing.T) {
		e := valid
		e.Amount = decimal.Zero
		if err := e.Validate(); !errors.Is(err, ErrInvalidAmount) {
			t.Fatalf("expected ErrInvalidAmount, got %v", err)
		}
	})

	t.Run("blank note", func(t *testing.T) {
		e := valid
		e.Note = " "
		if err := e.Validate(); !errors.Is(err, ErrEmptyNote) {
			t.Fatalf("expected ErrEmptyNote, got %v", err)
		}
	})

	t.Run("note too long", func(t *testing.T) {
		e := valid
		e.Note = strings.Repeat("n", 201)
		if err := e.Validate(); !errors.Is(err, ErrNoteTooLong) {
			t.Fatalf("expected ErrNoteTooLong, got %v", err)
		}
	})

	t.Run("impossible calendar day", func(t *testing.T) {
		e := valid
		e.Date = "2025-02-30"
		if err := e.Validate(); !errors.Is(err, ErrInvalidDate) {
			t.Fatalf("expected ErrInvalidDate, got %v", err)
		}
	})

	t.Run("wrong date format", func(t *testing.T) {
		e := valid
		e.Date = "10/03/2025"
		if err := e.Validate(); !errors.Is(err, ErrInvalidDate) {
			t.Fatalf("expected ErrInvalidDate, got %v", err)
		}
	})

	t.Run("unknown category", func(t *testing.T) {
		e := valid
		e.Category = "Gadgets"
		if err := e.Validate(); !errors.Is(err, ErrInvalidCategory) {
			t.Fatalf("expected ErrInvalidCategory, got %v", err)
		}
	})
}

func TestValidCategory(t *testing.T) {
	for _, c := range Categories {
		if !ValidCategory(c) {
			t.Errorf("ValidCategory(%q) = false", c)
		}
	}
	if ValidCategory("All") {
		t.Error("the filter sentinel is not a storable category")
	}
	if ValidCategory("") {
		t.Error("empty string is not a category")
	}
}
