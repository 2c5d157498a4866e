package http

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"portafoglio/internal/core"
)

type errorResponse struct {
	Error errorDetail `json:"error"`
}

type errorDetail struct {
	Kind    string `json:"kind"`
	Message string `json:"message"`
}

func errorBody(kind, message string) errorResponse {
	return errorResponse{Error: errorDetail{Kind: kind, Message: message}}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError maps the ledger failure taxonomy onto HTTP statuses. Storage
// failures and anything unrecognized surface as 500 without leaking driver
// detail.
func writeError(w http.ResponseWriter, err error) {
	kind, status := classify(err)
	msg := err.Error()
	if status == http.StatusInternalServerError {
		msg = "internal error"
	}
	writeJSON(w, status, errorBody(kind, msg))
}

func classify(err error) (kind string, status int) {
	switch {
	case errors.Is(err, core.ErrNotInitialized):
		return "not_initialized", http.StatusServiceUnavailable
	case errors.Is(err, core.ErrWalletNotFound):
		return "wallet_not_found", http.StatusNotFound
	case errors.Is(err, core.ErrExpenseNotFound):
		return "expense_not_found", http.StatusNotFound
	case errors.Is(err, core.ErrDuplicateName):
		return "duplicate_name", http.StatusConflict
	case errors.Is(err, core.ErrWalletNotEmpty):
		return "wallet_not_empty", http.StatusConflict
	case errors.Is(err, core.ErrInsufficientBalance):
		return "insufficient_balance", http.StatusUnprocessableEntity
	case errors.Is(err, core.ErrWalletRequired):
		return "wallet_required", http.StatusUnprocessableEntity
	case errors.Is(err, core.ErrUnknownCurrency):
		return "unknown_currency", http.StatusUnprocessableEntity
	case errors.Is(err, core.ErrInvalidAmount),
		errors.Is(err, core.ErrInvalidDate),
		errors.Is(err, core.ErrInvalidCategory),
		errors.Is(err, core.ErrEmptyName),
		errors.Is(err, core.ErrNameTooLong),
		errors.Is(err, core.ErrEmptyNote),
		errors.Is(err, core.ErrNoteTooLong):
		return "invalid_input", http.StatusBadRequest
	default:
		return "storage_failure", http.StatusInternalServerError
	}
}

func pathID(r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}

func decodeBody(w http.ResponseWriter, r *http.Request, dst any) bool {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid_input", "malformed request body"))
		return false
	}
	return true
}
