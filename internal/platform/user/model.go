package user

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// User is a participant with one implicit account. The row exists mainly as
// a lockable anchor for the ledger's per-account write serialization; no
// balance is ever stored on it.
type User struct {
	ID        uuid.UUID `json:"id"`
	Email     string    `json:"email"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// NormalizeEmail lowercases and trims an email address.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// ValidEmail performs a minimal sanity check; real validation happens at the
// mail exchange, not here.
func ValidEmail(email string) bool {
	at := strings.Index(email, "@")
	return at > 0 && at < len(email)-1
}
