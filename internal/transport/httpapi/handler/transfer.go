package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/kestrelpay/kestrel/internal/ledger"
	"github.com/kestrelpay/kestrel/pkg/money"
)

// LedgerService defines the ledger operations the handlers need
type LedgerService interface {
	Transfer(ctx context.Context, key uuid.UUID, source, destination uuid.UUID, amount int64) (*ledger.Entry, bool, error)
	Deposit(ctx context.Context, key uuid.UUID, destination uuid.UUID, amount int64) (*ledger.Entry, bool, error)
	BalanceNow(ctx context.Context, userID uuid.UUID) (int64, error)
	BalanceAt(ctx context.Context, userID uuid.UUID, at time.Time) (int64, error)
	History(ctx context.Context, userID uuid.UUID) ([]*ledger.Entry, error)
}

// LedgerHandler handles money movement HTTP requests
type LedgerHandler struct {
	ledger LedgerService
	scale  int
}

// NewLedgerHandler creates a new ledger handler. scale is the number of
// decimal places amounts are stored with.
func NewLedgerHandler(svc LedgerService, scale int) *LedgerHandler {
	return &LedgerHandler{
		ledger: svc,
		scale:  scale,
	}
}

// TransferRequest represents the transfer creation request
type TransferRequest struct {
	IdempotencyKey    string `json:"idempotency_key"`
	SourceUserID      string `json:"source_user_id"`
	DestinationUserID string `json:"destination_user_id"`
	Amount            string `json:"amount"`
}

// DepositRequest represents the deposit creation request
type DepositRequest struct {
	IdempotencyKey    string `json:"idempotency_key"`
	DestinationUserID string `json:"destination_user_id"`
	Amount            string `json:"amount"`
}

// EntryResponse represents a committed ledger entry
type EntryResponse struct {
	ID                string  `json:"id"`
	IdempotencyKey    string  `json:"idempotency_key"`
	SourceUserID      *string `json:"source_user_id,omitempty"`
	DestinationUserID string  `json:"destination_user_id"`
	Amount            string  `json:"amount"`
	CreatedAt         string  `json:"created_at"`
}

// CreateTransfer handles POST /transfers
func (h *LedgerHandler) CreateTransfer(w http.ResponseWriter, r *http.Request) {
	var req TransferRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	key, ok := h.idempotencyKey(w, r, req.IdempotencyKey)
	if !ok {
		return
	}

	source, err := uuid.Parse(req.SourceUserID)
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "invalid source user ID")
		return
	}
	destination, err := uuid.Parse(req.DestinationUserID)
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "invalid destination user ID")
		return
	}
	amount, err := money.ToUnits(req.Amount, h.scale)
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "invalid amount")
		return
	}

	entry, replayed, err := h.ledger.Transfer(r.Context(), key, source, destination, amount)
	if err != nil {
		h.respondLedgerError(w, err)
		return
	}

	status := http.StatusCreated
	if replayed {
		status = http.StatusOK
	}
	respondWithJSON(w, status, h.toEntryResponse(entry))
}

// CreateDeposit handles POST /deposits
func (h *LedgerHandler) CreateDeposit(w http.ResponseWriter, r *http.Request) {
	var req DepositRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	key, ok := h.idempotencyKey(w, r, req.IdempotencyKey)
	if !ok {
		return
	}

	destination, err := uuid.Parse(req.DestinationUserID)
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "invalid destination user ID")
		return
	}
	amount, err := money.ToUnits(req.Amount, h.scale)
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "invalid amount")
		return
	}

	entry, replayed, err := h.ledger.Deposit(r.Context(), key, destination, amount)
	if err != nil {
		h.respondLedgerError(w, err)
		return
	}

	status := http.StatusCreated
	if replayed {
		status = http.StatusOK
	}
	respondWithJSON(w, status, h.toEntryResponse(entry))
}

// idempotencyKey resolves the client key from the body field or the
// Idempotency-Key header, writing a 400 when neither parses.
func (h *LedgerHandler) idempotencyKey(w http.ResponseWriter, r *http.Request, fromBody string) (uuid.UUID, bool) {
	raw := fromBody
	if raw == "" {
		raw = r.Header.Get("Idempotency-Key")
	}
	key, err := uuid.Parse(raw)
	if err != nil || key == uuid.Nil {
		respondWithError(w, http.StatusBadRequest, "missing or invalid idempotency key")
		return uuid.Nil, false
	}
	return key, true
}

// respondLedgerError maps domain errors to HTTP status codes
func (h *LedgerHandler) respondLedgerError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ledger.ErrInsufficientFunds):
		respondWithError(w, http.StatusUnprocessableEntity, "insufficient funds")
	case errors.Is(err, ledger.ErrUnknownUser):
		respondWithError(w, http.StatusNotFound, "unknown user")
	case errors.Is(err, ledger.ErrConflict):
		respondWithError(w, http.StatusConflict, "transaction could not be committed, please retry")
	case errors.Is(err, ledger.ErrMissingIdempotencyKey),
		errors.Is(err, ledger.ErrMissingDestination),
		errors.Is(err, ledger.ErrMissingSource),
		errors.Is(err, ledger.ErrNonPositiveAmount),
		errors.Is(err, ledger.ErrSameSourceDestination):
		respondWithError(w, http.StatusBadRequest, err.Error())
	default:
		respondWithError(w, http.StatusInternalServerError, "internal server error")
	}
}

func (h *LedgerHandler) toEntryResponse(e *ledger.Entry) EntryResponse {
	resp := EntryResponse{
		ID:                e.ID.String(),
		IdempotencyKey:    e.IdempotencyKey.String(),
		DestinationUserID: e.Destination.String(),
		Amount:            money.FromUnits(e.Amount, h.scale),
		CreatedAt:         e.CreatedAt.Format(time.RFC3339),
	}
	if src, ok := e.Source.UserID(); ok {
		s := src.String()
		resp.SourceUserID = &s
	}
	return resp
}
