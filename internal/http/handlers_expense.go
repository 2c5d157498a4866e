package http

import (
	"encoding/json"
	"net/http"

	"portafoglio/internal/core"
	"portafoglio/internal/ledger"
)

type expenseRequest struct {
	Amount   json.Number `json:"amount"`
	Note     string      `json:"note"`
	Date     string      `json:"date"`
	Category string      `json:"category"`
	Currency string      `json:"currency"`
	WalletID int64       `json:"walletId"`
}

func (r expenseRequest) toExpense() (core.Expense, error) {
	amount, err := core.ParseAmount(r.Amount.String())
	if err != nil {
		return core.Expense{}, err
	}
	return core.Expense{
		Amount:   amount,
		Note:     r.Note,
		Date:     r.Date,
		Category: r.Category,
		Currency: r.Currency,
		WalletID: r.WalletID,
	}, nil
}

func (s *Server) handleCreateExpense(w http.ResponseWriter, r *http.Request) {
	var req expenseRequest
	if !decodeBody(w, r, &req) {
		return
	}
	in, err := req.toExpense()
	if err != nil {
		writeError(w, err)
		return
	}

	expense, err := s.ledger.InsertExpense(r.Context(), in)
	observeLedgerOp("insert_expense", err)
	if err != nil {
		writeError(w, err)
		return
	}
	s.invalidateReports()
	writeJSON(w, http.StatusCreated, expense)
}

func (s *Server) handleListExpenses(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := ledger.ExpenseFilter{
		Category:  q.Get("category"),
		StartDate: q.Get("from"),
		EndDate:   q.Get("to"),
	}
	if filter.StartDate != "" && !core.ValidDate(filter.StartDate) {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid_input", "invalid 'from' date"))
		return
	}
	if filter.EndDate != "" && !core.ValidDate(filter.EndDate) {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid_input", "invalid 'to' date"))
		return
	}

	expenses, err := s.ledger.FilteredExpenses(r.Context(), filter)
	observeLedgerOp("list_expenses", err)
	if err != nil {
		writeError(w, err)
		return
	}
	if expenses == nil {
		expenses = []core.Expense{}
	}
	writeJSON(w, http.StatusOK, expenses)
}

func (s *Server) handleGetExpense(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid_input", "invalid expense id"))
		return
	}
	expense, err := s.ledger.GetExpense(r.Context(), id)
	observeLedgerOp("get_expense", err)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, expense)
}

func (s *Server) handleUpdateExpense(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid_input", "invalid expense id"))
		return
	}
	var req expenseRequest
	if !decodeBody(w, r, &req) {
		return
	}
	in, err := req.toExpense()
	if err != nil {
		writeError(w, err)
		return
	}

	expense, err := s.ledger.UpdateExpense(r.Context(), id, in)
	observeLedgerOp("update_expense", err)
	if err != nil {
		writeError(w, err)
		return
	}
	s.invalidateReports()
	writeJSON(w, http.StatusOK, expense)
}

func (s *Server) handleDeleteExpense(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid_input", "invalid expense id"))
		return
	}
	err := s.ledger.DeleteExpense(r.Context(), id)
	observeLedgerOp("delete_expense", err)
	if err != nil {
		writeError(w, err)
		return
	}
	s.invalidateReports()
	w.WriteHeader(http.StatusNoContent)
}
