package user

import (
	"context"

	"github.com/google/uuid"
)

// Repository defines the storage surface for users
type Repository interface {
	Create(ctx context.Context, u *User) error
	GetByID(ctx context.Context, id uuid.UUID) (*User, error)
	GetByEmail(ctx context.Context, email string) (*User, error)
}
