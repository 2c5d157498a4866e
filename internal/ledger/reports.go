package ledger

import (
	"context"
	"database/sql"

	"github.com/shopspring/decimal"

	"portafoglio/internal/core"
)

// ExpenseFilter narrows FilteredExpenses. Category "All" (or empty) matches
// everything; StartDate/EndDate are inclusive YYYY-MM-DD bounds.
type ExpenseFilter struct {
	Category  string
	StartDate string
	EndDate   string
}

// FilteredExpenses returns expenses matching the filter, newest date first.
// Read-only: it takes no locks beyond the single query.
func (l *Ledger) FilteredExpenses(ctx context.Context, f ExpenseFilter) ([]core.Expense, error) {
	if err := l.ready(); err != nil {
		return nil, err
	}

	query := `SELECT id, amount, normalizedAmount, note, date, category, currency, walletId
	          FROM expenses WHERE 1=1`
	var args []any

	if f.StartDate != "" {
		query += ` AND date >= ?`
		args = append(args, f.StartDate)
	}
	if f.EndDate != "" {
		query += ` AND date <= ?`
		args = append(args, f.EndDate)
	}
	if f.Category != "" && f.Category != core.CategoryAll {
		query += ` AND category = ?`
		args = append(args, f.Category)
	}
	query += ` ORDER BY date DESC, id DESC`

	rows, err := l.db.Query(ctx, query, args...)
	if err != nil {
		return nil, core.NewStorageError("list expenses", err)
	}
	defer rows.Close()

	var expenses []core.Expense
	for rows.Next() {
		e, err := scanExpense(rows.Scan)
		if err != nil {
			return nil, core.NewStorageError("scan expense", err)
		}
		expenses = append(expenses, e)
	}
	if err := rows.Err(); err != nil {
		return nil, core.NewStorageError("iterate expenses", err)
	}
	return expenses, nil
}

// DailyTotal sums normalizedAmount over expenses on the exact date, rounded
// to two decimals, zero when no rows match. Normalized amounts are summed so
// mixed-currency days aggregate in the reference currency.
func (l *Ledger) DailyTotal(ctx context.Context, date string) (decimal.Decimal, error) {
	if err := l.ready(); err != nil {
		return decimal.Zero, err
	}
	if !core.ValidDate(date) {
		return decimal.Zero, core.ErrInvalidDate
	}
	return l.sumNormalized(ctx,
		`SELECT ROUND(SUM(normalizedAmount), 2) FROM expenses WHERE date = ?`, date)
}

// MonthlyTotal sums normalizedAmount over expenses whose date starts with the
// YYYY-MM prefix, rounded to two decimals, zero when no rows match.
func (l *Ledger) MonthlyTotal(ctx context.Context, monthPrefix string) (decimal.Decimal, error) {
	if err := l.ready(); err != nil {
		return decimal.Zero, err
	}
	return l.sumNormalized(ctx,
		`SELECT ROUND(SUM(normalizedAmount), 2) FROM expenses WHERE date LIKE ?`, monthPrefix+"%")
}

func (l *Ledger) sumNormalized(ctx context.Context, query string, arg string) (decimal.Decimal, error) {
	var total sql.NullFloat64
	if err := l.db.QueryRow(ctx, query, arg).Scan(&total); err != nil {
		return decimal.Zero, core.NewStorageError("sum expenses", err)
	}
	if !total.Valid {
		return decimal.Zero, nil
	}
	return core.MoneyFromFloat(total.Float64), nil
}
