// Package ledger implements the money-conserving operations over wallets and
// expenses. Every mutation runs inside one transaction scope: the balance
// check, the expense write and the wallet adjustment either all commit or all
// roll back, so the conservation invariant (wallet.normalizedAmount equals
// initial funding minus the sum of its live expenses) holds after every
// committed operation.
package ledger

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"strings"

	"github.com/shopspring/decimal"

	"portafoglio/internal/core"
	"portafoglio/internal/currency"
	applog "portafoglio/internal/log"
	"portafoglio/internal/storage"
)

// Ledger is the only component allowed to mutate wallet balances.
type Ledger struct {
	db    *storage.DB
	rates *currency.Table
}

func New(db *storage.DB, rates *currency.Table) *Ledger {
	return &Ledger{db: db, rates: rates}
}

// Initialized reports whether the schema bootstrap has completed.
func (l *Ledger) Initialized() bool {
	return l.db.Ready()
}

// ready gates every operation on the completed schema bootstrap.
func (l *Ledger) ready() error {
	if !l.db.Ready() {
		return core.ErrNotInitialized
	}
	return nil
}

// CreateWallet funds a new wallet. The normalized mirror is computed from the
// local amount at the wallet's own rate.
func (l *Ledger) CreateWallet(ctx context.Context, name string, amount decimal.Decimal, currencyCode string) (core.Wallet, error) {
	if err := l.ready(); err != nil {
		return core.Wallet{}, err
	}

	w := core.Wallet{Name: name, Amount: core.Round2(amount), Currency: currencyCode}
	if err := w.Validate(); err != nil {
		return core.Wallet{}, err
	}

	normalized, err := l.rates.ConvertToReference(w.Amount, currencyCode)
	if err != nil {
		return core.Wallet{}, err
	}
	w.NormalizedAmount = normalized

	err = l.db.WithTx(ctx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx,
			`INSERT INTO wallets (name, amount, normalizedAmount, currency) VALUES (?, ?, ?, ?)`,
			w.Name, core.MoneyToFloat(w.Amount), core.MoneyToFloat(w.NormalizedAmount), w.Currency,
		)
		if err != nil {
			if isUniqueViolation(err) {
				return core.ErrDuplicateName
			}
			return core.NewStorageError("insert wallet", err)
		}
		id, err := res.LastInsertId()
		if err != nil {
			return core.NewStorageError("wallet insert id", err)
		}
		w.ID = id
		return nil
	})
	if err != nil {
		return core.Wallet{}, err
	}

	slog.InfoContext(ctx, "Wallet created",
		applog.FieldWalletID, w.ID,
		applog.FieldWalletName, w.Name,
		applog.FieldCurrency, w.Currency,
		applog.FieldAmount, w.Amount.String(),
		applog.FieldNormalizedAmount, w.NormalizedAmount.String())

	return w, nil
}

// UpdateWallet overwrites a wallet's name, balance and currency. The
// normalized mirror is recomputed from scratch: editing a wallet is an
// out-of-band correction, not a ledger transaction.
func (l *Ledger) UpdateWallet(ctx context.Context, id int64, name string, amount decimal.Decimal, currencyCode string) (core.Wallet, error) {
	if err := l.ready(); err != nil {
		return core.Wallet{}, err
	}

	w := core.Wallet{ID: id, Name: name, Amount: core.Round2(amount), Currency: currencyCode}
	if err := w.Validate(); err != nil {
		return core.Wallet{}, err
	}

	normalized, err := l.rates.ConvertToReference(w.Amount, currencyCode)
	if err != nil {
		return core.Wallet{}, err
	}
	w.NormalizedAmount = normalized

	err = l.db.WithTx(ctx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx,
			`UPDATE wallets SET name = ?, amount = ?, normalizedAmount = ?, currency = ? WHERE id = ?`,
			w.Name, core.MoneyToFloat(w.Amount), core.MoneyToFloat(w.NormalizedAmount), w.Currency, id,
		)
		if err != nil {
			if isUniqueViolation(err) {
				return core.ErrDuplicateName
			}
			return core.NewStorageError("update wallet", err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return core.NewStorageError("update wallet rows", err)
		}
		if n == 0 {
			return core.ErrWalletNotFound
		}
		return nil
	})
	if err != nil {
		return core.Wallet{}, err
	}

	slog.InfoContext(ctx, "Wallet updated",
		applog.FieldWalletID, id,
		applog.FieldWalletName, w.Name,
		applog.FieldCurrency, w.Currency,
		applog.FieldAmount, w.Amount.String())

	return w, nil
}

// DeleteWallet removes a wallet. Deletion is refused while any expense still
// references the wallet: orphaned expenses could never be refunded, which
// would break the conservation invariant the moment they were deleted.
func (l *Ledger) DeleteWallet(ctx context.Context, id int64) error {
	if err := l.ready(); err != nil {
		return err
	}

	err := l.db.WithTx(ctx, func(tx *sql.Tx) error {
		var n int64
		err := tx.QueryRowContext(ctx, `SELECT COUNT(*) FROM expenses WHERE walletId = ?`, id).Scan(&n)
		if err != nil {
			return core.NewStorageError("count wallet expenses", err)
		}
		if n > 0 {
			return core.ErrWalletNotEmpty
		}

		res, err := tx.ExecContext(ctx, `DELETE FROM wallets WHERE id = ?`, id)
		if err != nil {
			return core.NewStorageError("delete wallet", err)
		}
		rows, err := res.RowsAffected()
		if err != nil {
			return core.NewStorageError("delete wallet rows", err)
		}
		if rows == 0 {
			return core.ErrWalletNotFound
		}
		return nil
	})
	if err != nil {
		return err
	}

	slog.InfoContext(ctx, "Wallet deleted", applog.FieldWalletID, id)
	return nil
}

// GetWallet returns a single wallet by id.
func (l *Ledger) GetWallet(ctx context.Context, id int64) (core.Wallet, error) {
	if err := l.ready(); err != nil {
		return core.Wallet{}, err
	}

	row := l.db.QueryRow(ctx,
		`SELECT id, name, amount, normalizedAmount, currency FROM wallets WHERE id = ?`, id)
	w, err := scanWallet(row.Scan)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Wallet{}, core.ErrWalletNotFound
	}
	if err != nil {
		return core.Wallet{}, core.NewStorageError("get wallet", err)
	}
	return w, nil
}

// ListWallets returns every wallet, oldest first.
func (l *Ledger) ListWallets(ctx context.Context) ([]core.Wallet, error) {
	if err := l.ready(); err != nil {
		return nil, err
	}

	rows, err := l.db.Query(ctx,
		`SELECT id, name, amount, normalizedAmount, currency FROM wallets ORDER BY id`)
	if err != nil {
		return nil, core.NewStorageError("list wallets", err)
	}
	defer rows.Close()

	var wallets []core.Wallet
	for rows.Next() {
		w, err := scanWallet(rows.Scan)
		if err != nil {
			return nil, core.NewStorageError("scan wallet", err)
		}
		wallets = append(wallets, w)
	}
	if err := rows.Err(); err != nil {
		return nil, core.NewStorageError("iterate wallets", err)
	}
	return wallets, nil
}

// InsertExpense records a spend and debits its wallet, all in one
// transaction. The expense's normalized amount is frozen at write time; the
// wallet debit is that normalized amount converted into the wallet's own
// currency at the current rate.
func (l *Ledger) InsertExpense(ctx context.Context, in core.Expense) (core.Expense, error) {
	if err := l.ready(); err != nil {
		return core.Expense{}, err
	}
	if in.WalletID == 0 {
		return core.Expense{}, core.ErrWalletRequired
	}
	if in.Category == "" {
		in.Category = core.DefaultCategory
	}
	in.Amount = core.Round2(in.Amount)
	if err := in.Validate(); err != nil {
		return core.Expense{}, err
	}

	normalized, err := l.rates.ConvertToReference(in.Amount, in.Currency)
	if err != nil {
		return core.Expense{}, err
	}

	out := in
	out.NormalizedAmount = normalized

	err = l.db.WithTx(ctx, func(tx *sql.Tx) error {
		w, err := walletInTx(ctx, tx, in.WalletID)
		if err != nil {
			return err
		}

		rate, err := l.rates.RateToReference(w.Currency)
		if err != nil {
			return err
		}
		localDebit := core.Round2(normalized.Mul(rate))

		if w.Amount.LessThan(localDebit) {
			return core.ErrInsufficientBalance
		}

		res, err := tx.ExecContext(ctx,
			`INSERT INTO expenses (amount, normalizedAmount, note, date, category, currency, walletId)
			 VALUES (?, ?, ?, ?, ?, ?, ?)`,
			core.MoneyToFloat(in.Amount), core.MoneyToFloat(normalized),
			in.Note, in.Date, in.Category, in.Currency, in.WalletID,
		)
		if err != nil {
			return core.NewStorageError("insert expense", err)
		}
		id, err := res.LastInsertId()
		if err != nil {
			return core.NewStorageError("expense insert id", err)
		}
		out.ID = id

		return adjustWallet(ctx, tx, in.WalletID, localDebit, normalized)
	})
	if err != nil {
		return core.Expense{}, err
	}

	slog.InfoContext(ctx, "Expense recorded",
		applog.FieldExpenseID, out.ID,
		applog.FieldWalletID, out.WalletID,
		applog.FieldAmount, out.Amount.String(),
		applog.FieldCurrency, out.Currency,
		applog.FieldNormalizedAmount, out.NormalizedAmount.String(),
		applog.FieldCategory, out.Category,
		applog.FieldDate, out.Date)

	return out, nil
}

// UpdateExpense rewrites an expense. Within the same wallet only the delta
// moves; across wallets the old wallet is refunded in full and the new wallet
// debited in full. The new wallet's sufficiency is always checked against its
// balance before any refund, which matters only in the same-wallet case where
// the two would otherwise be the same row.
func (l *Ledger) UpdateExpense(ctx context.Context, id int64, in core.Expense) (core.Expense, error) {
	if err := l.ready(); err != nil {
		return core.Expense{}, err
	}
	if in.WalletID == 0 {
		return core.Expense{}, core.ErrWalletRequired
	}
	if in.Category == "" {
		in.Category = core.DefaultCategory
	}
	in.Amount = core.Round2(in.Amount)
	if err := in.Validate(); err != nil {
		return core.Expense{}, err
	}

	newNormalized, err := l.rates.ConvertToReference(in.Amount, in.Currency)
	if err != nil {
		return core.Expense{}, err
	}

	out := in
	out.ID = id
	out.NormalizedAmount = newNormalized

	err = l.db.WithTx(ctx, func(tx *sql.Tx) error {
		var (
			oldNormalizedF float64
			oldWalletID    sql.NullInt64
		)
		err := tx.QueryRowContext(ctx,
			`SELECT normalizedAmount, walletId FROM expenses WHERE id = ?`, id,
		).Scan(&oldNormalizedF, &oldWalletID)
		if errors.Is(err, sql.ErrNoRows) {
			return core.ErrExpenseNotFound
		}
		if err != nil {
			return core.NewStorageError("load expense", err)
		}
		oldNormalized := core.MoneyFromFloat(oldNormalizedF)

		if oldWalletID.Valid && oldWalletID.Int64 == in.WalletID {
			return l.updateExpenseSameWallet(ctx, tx, id, in, oldNormalized, newNormalized)
		}
		return l.updateExpenseMoveWallet(ctx, tx, id, in, oldNormalized, newNormalized, oldWalletID)
	})
	if err != nil {
		return core.Expense{}, err
	}

	slog.InfoContext(ctx, "Expense updated",
		applog.FieldExpenseID, id,
		applog.FieldWalletID, in.WalletID,
		applog.FieldAmount, in.Amount.String(),
		applog.FieldCurrency, in.Currency,
		applog.FieldNormalizedAmount, newNormalized.String())

	return out, nil
}

// updateExpenseSameWallet adjusts the wallet by the normalized delta only.
// The sufficiency check runs before any write and only when the spend grows.
func (l *Ledger) updateExpenseSameWallet(ctx context.Context, tx *sql.Tx, id int64, in core.Expense, oldNormalized, newNormalized decimal.Decimal) error {
	w, err := walletInTx(ctx, tx, in.WalletID)
	if err != nil {
		return err
	}

	rate, err := l.rates.RateToReference(w.Currency)
	if err != nil {
		return err
	}
	normalizedDelta := newNormalized.Sub(oldNormalized)
	localDelta := core.Round2(normalizedDelta.Mul(rate))

	if normalizedDelta.IsPositive() && w.Amount.LessThan(localDelta) {
		return core.ErrInsufficientBalance
	}

	if err := updateExpenseRow(ctx, tx, id, in, newNormalized, in.WalletID); err != nil {
		return err
	}
	if normalizedDelta.IsZero() && localDelta.IsZero() {
		return nil
	}
	return adjustWallet(ctx, tx, in.WalletID, localDelta, normalizedDelta)
}

// updateExpenseMoveWallet refunds the old wallet in full and debits the new
// one in full. The wallets are distinct rows, so the new wallet's balance
// read here can never include the refund.
func (l *Ledger) updateExpenseMoveWallet(ctx context.Context, tx *sql.Tx, id int64, in core.Expense, oldNormalized, newNormalized decimal.Decimal, oldWalletID sql.NullInt64) error {
	newWallet, err := walletInTx(ctx, tx, in.WalletID)
	if err != nil {
		return err
	}
	newRate, err := l.rates.RateToReference(newWallet.Currency)
	if err != nil {
		return err
	}
	newLocal := core.Round2(newNormalized.Mul(newRate))

	if newWallet.Amount.LessThan(newLocal) {
		return core.ErrInsufficientBalance
	}

	if err := updateExpenseRow(ctx, tx, id, in, newNormalized, in.WalletID); err != nil {
		return err
	}

	// Refund the previous wallet at its current rate. Expenses orphaned by
	// pre-history deletions carry no wallet to refund.
	if oldWalletID.Valid {
		oldWallet, err := walletInTx(ctx, tx, oldWalletID.Int64)
		if err != nil {
			return err
		}
		oldRate, err := l.rates.RateToReference(oldWallet.Currency)
		if err != nil {
			return err
		}
		oldLocal := core.Round2(oldNormalized.Mul(oldRate))
		if err := adjustWallet(ctx, tx, oldWalletID.Int64, oldLocal.Neg(), oldNormalized.Neg()); err != nil {
			return err
		}
	}

	return adjustWallet(ctx, tx, in.WalletID, newLocal, newNormalized)
}

// DeleteExpense removes an expense and refunds its wallet, converting the
// frozen normalized amount back into the wallet's currency at the current
// rate.
func (l *Ledger) DeleteExpense(ctx context.Context, id int64) error {
	if err := l.ready(); err != nil {
		return err
	}

	err := l.db.WithTx(ctx, func(tx *sql.Tx) error {
		var (
			normalizedF float64
			walletID    sql.NullInt64
		)
		err := tx.QueryRowContext(ctx,
			`SELECT normalizedAmount, walletId FROM expenses WHERE id = ?`, id,
		).Scan(&normalizedF, &walletID)
		if errors.Is(err, sql.ErrNoRows) {
			return core.ErrExpenseNotFound
		}
		if err != nil {
			return core.NewStorageError("load expense", err)
		}
		normalized := core.MoneyFromFloat(normalizedF)

		if _, err := tx.ExecContext(ctx, `DELETE FROM expenses WHERE id = ?`, id); err != nil {
			return core.NewStorageError("delete expense", err)
		}

		if !walletID.Valid {
			return nil
		}
		w, err := walletInTx(ctx, tx, walletID.Int64)
		if err != nil {
			return err
		}
		rate, err := l.rates.RateToReference(w.Currency)
		if err != nil {
			return err
		}
		refund := core.Round2(normalized.Mul(rate))
		return adjustWallet(ctx, tx, walletID.Int64, refund.Neg(), normalized.Neg())
	})
	if err != nil {
		return err
	}

	slog.InfoContext(ctx, "Expense deleted", applog.FieldExpenseID, id)
	return nil
}

// GetExpense returns a single expense by id.
func (l *Ledger) GetExpense(ctx context.Context, id int64) (core.Expense, error) {
	if err := l.ready(); err != nil {
		return core.Expense{}, err
	}

	row := l.db.QueryRow(ctx,
		`SELECT id, amount, normalizedAmount, note, date, category, currency, walletId
		 FROM expenses WHERE id = ?`, id)
	e, err := scanExpense(row.Scan)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Expense{}, core.ErrExpenseNotFound
	}
	if err != nil {
		return core.Expense{}, core.NewStorageError("get expense", err)
	}
	return e, nil
}

// walletInTx reads a wallet row inside the transaction scope.
func walletInTx(ctx context.Context, tx *sql.Tx, id int64) (core.Wallet, error) {
	row := tx.QueryRowContext(ctx,
		`SELECT id, name, amount, normalizedAmount, currency FROM wallets WHERE id = ?`, id)
	w, err := scanWallet(row.Scan)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Wallet{}, core.ErrWalletNotFound
	}
	if err != nil {
		return core.Wallet{}, core.NewStorageError("read wallet", err)
	}
	return w, nil
}

// adjustWallet debits both balance mirrors together. Negative deltas credit.
// ROUND keeps the stored REALs at two decimals.
func adjustWallet(ctx context.Context, tx *sql.Tx, id int64, localDelta, normalizedDelta decimal.Decimal) error {
	res, err := tx.ExecContext(ctx,
		`UPDATE wallets SET amount = ROUND(amount - ?, 2), normalizedAmount = ROUND(normalizedAmount - ?, 2) WHERE id = ?`,
		core.MoneyToFloat(localDelta), core.MoneyToFloat(normalizedDelta), id,
	)
	if err != nil {
		return core.NewStorageError("adjust wallet", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return core.NewStorageError("adjust wallet rows", err)
	}
	if n == 0 {
		return core.ErrWalletNotFound
	}
	return nil
}

func updateExpenseRow(ctx context.Context, tx *sql.Tx, id int64, in core.Expense, normalized decimal.Decimal, walletID int64) error {
	res, err := tx.ExecContext(ctx,
		`UPDATE expenses SET amount = ?, normalizedAmount = ?, note = ?, date = ?, category = ?, currency = ?, walletId = ?
		 WHERE id = ?`,
		core.MoneyToFloat(in.Amount), core.MoneyToFloat(normalized),
		in.Note, in.Date, in.Category, in.Currency, walletID, id,
	)
	if err != nil {
		return core.NewStorageError("update expense", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return core.NewStorageError("update expense rows", err)
	}
	if n == 0 {
		return core.ErrExpenseNotFound
	}
	return nil
}

type scanFunc func(dest ...any) error

func scanWallet(scan scanFunc) (core.Wallet, error) {
	var (
		w                    core.Wallet
		amount, normalizedAm float64
	)
	if err := scan(&w.ID, &w.Name, &amount, &normalizedAm, &w.Currency); err != nil {
		return core.Wallet{}, err
	}
	w.Amount = core.MoneyFromFloat(amount)
	w.NormalizedAmount = core.MoneyFromFloat(normalizedAm)
	return w, nil
}

func scanExpense(scan scanFunc) (core.Expense, error) {
	var (
		e                    core.Expense
		amount, normalizedAm float64
		category, curr       sql.NullString
		walletID             sql.NullInt64
	)
	if err := scan(&e.ID, &amount, &normalizedAm, &e.Note, &e.Date, &category, &curr, &walletID); err != nil {
		return core.Expense{}, err
	}
	e.Amount = core.MoneyFromFloat(amount)
	e.NormalizedAmount = core.MoneyFromFloat(normalizedAm)
	e.Category = category.String
	if e.Category == "" {
		e.Category = core.DefaultCategory
	}
	e.Currency = curr.String
	if e.Currency == "" {
		e.Currency = currency.Reference
	}
	e.WalletID = walletID.Int64
	return e, nil
}

// isUniqueViolation matches the sqlite UNIQUE constraint failure on
// wallets.name without depending on driver error types.
func isUniqueViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}
