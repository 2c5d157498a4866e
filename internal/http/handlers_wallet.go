package http

import (
	"encoding/json"
	"net/http"

	"portafoglio/internal/core"
)

type walletRequest struct {
	Name     string      `json:"name"`
	Amount   json.Number `json:"amount"`
	Currency string      `json:"currency"`
}

func (s *Server) handleCreateWallet(w http.ResponseWriter, r *http.Request) {
	var req walletRequest
	if !decodeBody(w, r, &req) {
		return
	}
	amount, err := core.ParseAmount(req.Amount.String())
	if err != nil {
		writeError(w, err)
		return
	}

	wallet, err := s.ledger.CreateWallet(r.Context(), req.Name, amount, req.Currency)
	observeLedgerOp("create_wallet", err)
	if err != nil {
		writeError(w, err)
		return
	}
	s.invalidateReports()
	writeJSON(w, http.StatusCreated, wallet)
}

func (s *Server) handleListWallets(w http.ResponseWriter, r *http.Request) {
	wallets, err := s.ledger.ListWallets(r.Context())
	observeLedgerOp("list_wallets", err)
	if err != nil {
		writeError(w, err)
		return
	}
	if wallets == nil {
		wallets = []core.Wallet{}
	}
	writeJSON(w, http.StatusOK, wallets)
}

func (s *Server) handleGetWallet(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid_input", "invalid wallet id"))
		return
	}
	wallet, err := s.ledger.GetWallet(r.Context(), id)
	observeLedgerOp("get_wallet", err)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, wallet)
}

func (s *Server) handleUpdateWallet(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid_input", "invalid wallet id"))
		return
	}
	var req walletRequest
	if !decodeBody(w, r, &req) {
		return
	}
	amount, err := core.ParseAmount(req.Amount.String())
	if err != nil {
		writeError(w, err)
		return
	}

	wallet, err := s.ledger.UpdateWallet(r.Context(), id, req.Name, amount, req.Currency)
	observeLedgerOp("update_wallet", err)
	if err != nil {
		writeError(w, err)
		return
	}
	s.invalidateReports()
	writeJSON(w, http.StatusOK, wallet)
}

func (s *Server) handleDeleteWallet(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid_input", "invalid wallet id"))
		return
	}
	err := s.ledger.DeleteWallet(r.Context(), id)
	observeLedgerOp("delete_wallet", err)
	if err != nil {
		writeError(w, err)
		return
	}
	s.invalidateReports()
	w.WriteHeader(http.StatusNoContent)
}
