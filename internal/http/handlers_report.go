package http

import (
	"net/http"
	"regexp"

	"portafoglio/internal/core"
)

var monthPattern = regexp.MustCompile(`^\d{4}-\d{2}$`)

type totalResponse struct {
	Total    string `json:"total"`
	Currency string `json:"currency"`
}

func (s *Server) handleDailyTotal(w http.ResponseWriter, r *http.Request) {
	date := r.URL.Query().Get("date")
	if !core.ValidDate(date) {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid_input", "query parameter 'date' must be YYYY-MM-DD"))
		return
	}

	key := "daily:" + date
	if total, ok := s.reportCache.Get(key); ok {
		writeJSON(w, http.StatusOK, totalResponse{Total: total.StringFixed(2), Currency: s.referenceCurrency()})
		return
	}

	total, err := s.ledger.DailyTotal(r.Context(), date)
	observeLedgerOp("daily_total", err)
	if err != nil {
		writeError(w, err)
		return
	}
	s.reportCache.Set(key, total)
	writeJSON(w, http.StatusOK, totalResponse{Total: total.StringFixed(2), Currency: s.referenceCurrency()})
}

func (s *Server) handleMonthlyTotal(w http.ResponseWriter, r *http.Request) {
	month := r.URL.Query().Get("month")
	if !monthPattern.MatchString(month) {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid_input", "query parameter 'month' must be YYYY-MM"))
		return
	}

	key := "monthly:" + month
	if total, ok := s.reportCache.Get(key); ok {
		writeJSON(w, http.StatusOK, totalResponse{Total: total.StringFixed(2), Currency: s.referenceCurrency()})
		return
	}

	total, err := s.ledger.MonthlyTotal(r.Context(), month)
	observeLedgerOp("monthly_total", err)
	if err != nil {
		writeError(w, err)
		return
	}
	s.reportCache.Set(key, total)
	writeJSON(w, http.StatusOK, totalResponse{Total: total.StringFixed(2), Currency: s.referenceCurrency()})
}

type currencyResponse struct {
	Code   string `json:"code"`
	Symbol string `json:"symbol"`
	Name   string `json:"name"`
	Rate   string `json:"rateToReference"`
}

func (s *Server) handleListCurrencies(w http.ResponseWriter, r *http.Request) {
	codes := s.rates.Codes()
	out := make([]currencyResponse, 0, len(codes))
	for _, code := range codes {
		rate, err := s.rates.RateToReference(code)
		if err != nil {
			continue
		}
		out = append(out, currencyResponse{
			Code:   code,
			Symbol: s.rates.SymbolOf(code),
			Name:   s.rates.NameOf(code),
			Rate:   rate.String(),
		})
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	status := "ok"
	code := http.StatusOK
	if !s.ledger.Initialized() {
		status = "initializing"
		code = http.StatusServiceUnavailable
	}
	writeJSON(w, code, map[string]any{
		"status":      status,
		"initialized": s.ledger.Initialized(),
	})
}
