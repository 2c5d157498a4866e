package core

import (
	"errors"
	"fmt"
)

// Ledger failure taxonomy. Every ledger operation returns one of these (or a
// *StorageError) so the API layer can map failures without string matching.
var (
	ErrNotInitialized      = errors.New("ledger not initialized")
	ErrUnknownCurrency     = errors.New("unknown currency")
	ErrDuplicateName       = errors.New("wallet name already in use")
	ErrWalletNotFound      = errors.New("wallet not found")
	ErrExpenseNotFound     = errors.New("expense not found")
	ErrInsufficientBalance = errors.New("insufficient balance in wallet")
	ErrWalletRequired      = errors.New("a wallet is required for this expense")
	ErrWalletNotEmpty      = errors.New("wallet still has expenses")
)

// Input validation errors.
var (
	ErrInvalidAmount   = errors.New("invalid amount")
	ErrInvalidDate     = errors.New("invalid date")
	ErrInvalidCategory = errors.New("invalid category")
	ErrEmptyName       = errors.New("empty wallet name")
	ErrNameTooLong     = errors.New("wallet name too long (max 100 characters)")
	ErrEmptyNote       = errors.New("empty note")
	ErrNoteTooLong     = errors.New("note too long (max 200 characters)")
)

// StorageError wraps a driver-level failure that surfaced through a ledger
// operation after its transaction was rolled back.
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("storage: %s: %v", e.Op, e.Err)
}

func (e *StorageError) Unwrap() error { return e.Err }

// NewStorageError wraps err with the failing operation name. Returns nil for
// a nil err so call sites can wrap unconditionally.
func NewStorageError(op string, err error) error {
	if err == nil {
		return nil
	}
	return &StorageError{Op: op, Err: err}
}
