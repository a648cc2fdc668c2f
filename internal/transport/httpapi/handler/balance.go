package handler

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/kestrelpay/kestrel/pkg/money"
)

// BalanceResponse represents a derived balance
type BalanceResponse struct {
	UserID  string `json:"user_id"`
	Balance string `json:"balance"`
	AsOf    string `json:"as_of,omitempty"`
}

// GetBalance handles GET /users/{id}/balance
// An optional ?at=RFC3339 query derives the balance over the entries
// created at or before that instant.
func (h *LedgerHandler) GetBalance(w http.ResponseWriter, r *http.Request) {
	userID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "invalid user ID")
		return
	}

	resp := BalanceResponse{UserID: userID.String()}

	var balance int64
	if atParam := r.URL.Query().Get("at"); atParam != "" {
		at, err := time.Parse(time.RFC3339, atParam)
		if err != nil {
			respondWithError(w, http.StatusBadRequest, "invalid 'at' timestamp, expected RFC3339")
			return
		}
		balance, err = h.ledger.BalanceAt(r.Context(), userID, at)
		if err != nil {
			respondWithError(w, http.StatusInternalServerError, "failed to derive balance")
			return
		}
		resp.AsOf = at.Format(time.RFC3339)
	} else {
		balance, err = h.ledger.BalanceNow(r.Context(), userID)
		if err != nil {
			respondWithError(w, http.StatusInternalServerError, "failed to derive balance")
			return
		}
	}

	resp.Balance = money.FromUnits(balance, h.scale)
	respondWithJSON(w, http.StatusOK, resp)
}

// GetHistory handles GET /users/{id}/transactions
// Returns every entry the user sent or received, newest first.
func (h *LedgerHandler) GetHistory(w http.ResponseWriter, r *http.Request) {
	userID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "invalid user ID")
		return
	}

	entries, err := h.ledger.History(r.Context(), userID)
	if err != nil {
		respondWithError(w, http.StatusInternalServerError, "failed to fetch transactions")
		return
	}

	responses := make([]EntryResponse, 0, len(entries))
	for _, e := range entries {
		responses = append(responses, h.toEntryResponse(e))
	}

	respondWithJSON(w, http.StatusOK, responses)
}
