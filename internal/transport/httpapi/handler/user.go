package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/kestrelpay/kestrel/internal/platform/user"
)

// UserService defines the user operations the handler needs
type UserService interface {
	Create(ctx context.Context, email string) (*user.User, error)
	GetByID(ctx context.Context, id uuid.UUID) (*user.User, error)
}

// UserHandler handles user-related HTTP requests
type UserHandler struct {
	users UserService
}

// NewUserHandler creates a new user handler
func NewUserHandler(users UserService) *UserHandler {
	return &UserHandler{
		users: users,
	}
}

// CreateUserRequest represents the user creation request
type CreateUserRequest struct {
	Email string `json:"email"`
}

// UserResponse represents a user response
type UserResponse struct {
	ID        string `json:"id"`
	Email     string `json:"email"`
	CreatedAt string `json:"created_at"`
}

// CreateUser handles POST /users
func (h *UserHandler) CreateUser(w http.ResponseWriter, r *http.Request) {
	var req CreateUserRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	created, err := h.users.Create(r.Context(), req.Email)
	if err != nil {
		switch {
		case errors.Is(err, user.ErrInvalidEmail):
			respondWithError(w, http.StatusBadRequest, "invalid email")
		case errors.Is(err, user.ErrEmailTaken):
			respondWithError(w, http.StatusConflict, "email already registered")
		default:
			respondWithError(w, http.StatusInternalServerError, "failed to create user")
		}
		return
	}

	respondWithJSON(w, http.StatusCreated, toUserResponse(created))
}

// GetUser handles GET /users/{id}
func (h *UserHandler) GetUser(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "invalid user ID")
		return
	}

	u, err := h.users.GetByID(r.Context(), id)
	if err != nil {
		if errors.Is(err, user.ErrUserNotFound) {
			respondWithError(w, http.StatusNotFound, "user not found")
			return
		}
		respondWithError(w, http.StatusInternalServerError, "failed to fetch user")
		return
	}

	respondWithJSON(w, http.StatusOK, toUserResponse(u))
}

func toUserResponse(u *user.User) UserResponse {
	return UserResponse{
		ID:        u.ID.String(),
		Email:     u.Email,
		CreatedAt: u.CreatedAt.Format(time.RFC3339),
	}
}
