package handler_test

import (
	"context"
	"io"
	"net/http"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kestrelpay/kestrel/internal/platform/user"
	"github.com/kestrelpay/kestrel/internal/transport/httpapi"
	"github.com/kestrelpay/kestrel/internal/transport/httpapi/handler"
	"github.com/kestrelpay/kestrel/pkg/logger"
)

type stubUsers struct {
	createFn  func(ctx context.Context, email string) (*user.User, error)
	getByIDFn func(ctx context.Context, id uuid.UUID) (*user.User, error)
}

func (s *stubUsers) Create(ctx context.Context, email string) (*user.User, error) {
	return s.createFn(ctx, email)
}

func (s *stubUsers) GetByID(ctx context.Context, id uuid.UUID) (*user.User, error) {
	return s.getByIDFn(ctx, id)
}

var _ handler.UserService = (*stubUsers)(nil)

func newUserRouter(svc handler.UserService) http.Handler {
	return httpapi.NewRouter(httpapi.Config{
		Logger:         logger.New("test", io.Discard),
		AllowedOrigins: []string{"*"},
		UserHandler:    handler.NewUserHandler(svc),
	})
}

func TestCreateUser(t *testing.T) {
	t.Run("created", func(t *testing.T) {
		u := &user.User{
			ID:        uuid.New(),
			Email:     "alice@example.com",
			CreatedAt: time.Now(),
		}
		svc := &stubUsers{
			createFn: func(ctx context.Context, email string) (*user.User, error) {
				assert.Equal(t, "alice@example.com", email)
				return u, nil
			},
		}

		rec := doJSON(t, newUserRouter(svc), http.MethodPost, "/api/v1/users", handler.CreateUserRequest{
			Email: "alice@example.com",
		})

		require.Equal(t, http.StatusCreated, rec.Code)
		resp := decodeBody[handler.UserResponse](t, rec)
		assert.Equal(t, u.ID.String(), resp.ID)
		assert.Equal(t, "alice@example.com", resp.Email)
	})

	t.Run("invalid email", func(t *testing.T) {
		svc := &stubUsers{
			createFn: func(ctx context.Context, email string) (*user.User, error) {
				return nil, user.ErrInvalidEmail
			},
		}

		rec := doJSON(t, newUserRouter(svc), http.MethodPost, "/api/v1/users", handler.CreateUserRequest{
			Email: "nope",
		})

		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("duplicate email", func(t *testing.T) {
		svc := &stubUsers{
			createFn: func(ctx context.Context, email string) (*user.User, error) {
				return nil, user.ErrEmailTaken
			},
		}

		rec := doJSON(t, newUserRouter(svc), http.MethodPost, "/api/v1/users", handler.CreateUserRequest{
			Email: "dup@example.com",
		})

		assert.Equal(t, http.StatusConflict, rec.Code)
	})
}

func TestGetUser(t *testing.T) {
	t.Run("found", func(t *testing.T) {
		u := &user.User{
			ID:        uuid.New(),
			Email:     "bob@example.com",
			CreatedAt: time.Now(),
		}
		svc := &stubUsers{
			getByIDFn: func(ctx context.Context, id uuid.UUID) (*user.User, error) {
				assert.Equal(t, u.ID, id)
				return u, nil
			},
		}

		rec := doJSON(t, newUserRouter(svc), http.MethodGet, "/api/v1/users/"+u.ID.String(), nil)

		require.Equal(t, http.StatusOK, rec.Code)
		resp := decodeBody[handler.UserResponse](t, rec)
		assert.Equal(t, "bob@example.com", resp.Email)
	})

	t.Run("not found", func(t *testing.T) {
		svc := &stubUsers{
			getByIDFn: func(ctx context.Context, id uuid.UUID) (*user.User, error) {
				return nil, user.ErrUserNotFound
			},
		}

		rec := doJSON(t, newUserRouter(svc), http.MethodGet, "/api/v1/users/"+uuid.New().String(), nil)

		assert.Equal(t, http.StatusNotFound, rec.Code)
	})

	t.Run("invalid id", func(t *testing.T) {
		svc := &stubUsers{}
		rec := doJSON(t, newUserRouter(svc), http.MethodGet, "/api/v1/users/not-a-uuid", nil)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}
