package ledger

import (
	"bytes"
	"time"

	"github.com/google/uuid"
)

// Source identifies where the value of a ledger entry comes from: either a
// user account or the outside world (a deposit). The zero value is a deposit.
type Source struct {
	userID uuid.UUID
	isUser bool
}

// DepositSource returns the source for value entering the system.
func DepositSource() Source {
	return Source{}
}

// UserSource returns the source for value leaving a user account.
func UserSource(id uuid.UUID) Source {
	return Source{userID: id, isUser: true}
}

// IsDeposit reports whether the source is external (a deposit).
func (s Source) IsDeposit() bool {
	return !s.isUser
}

// UserID returns the source user and true, or the zero UUID and false for
// deposits.
func (s Source) UserID() (uuid.UUID, bool) {
	return s.userID, s.isUser
}

// Entry is one immutable record of value movement. Entries are append-only;
// nothing in the system updates or deletes a committed entry.
type Entry struct {
	ID             uuid.UUID
	IdempotencyKey uuid.UUID
	Source         Source
	Destination    uuid.UUID
	Amount         int64
	CreatedAt      time.Time
}

// Validate checks the structural invariants of an entry before it is appended.
func (e *Entry) Validate() error {
	if e.IdempotencyKey == uuid.Nil {
		return ErrMissingIdempotencyKey
	}
	if e.Destination == uuid.Nil {
		return ErrMissingDestination
	}
	if e.Amount <= 0 {
		return ErrNonPositiveAmount
	}
	if src, ok := e.Source.UserID(); ok {
		if src == uuid.Nil {
			return ErrMissingSource
		}
		if src == e.Destination {
			return ErrSameSourceDestination
		}
	}
	return nil
}

// FailedAttempt is the audit record for a write that exhausted its retry
// budget. It is written best-effort after the operation has already failed.
type FailedAttempt struct {
	ID             uuid.UUID
	IdempotencyKey uuid.UUID
	Source         Source
	Destination    uuid.UUID
	Amount         int64
	ErrorMessage   string
	RetryCount     int
	FailedAt       time.Time
	ResolvedAt     *time.Time
}

// lockOrder returns the user ids involved in an operation sorted ascending.
// Every writer takes row locks in this order, which is the sole
// deadlock-prevention mechanism.
func lockOrder(ids ...uuid.UUID) []uuid.UUID {
	sorted := make([]uuid.UUID, len(ids))
	copy(sorted, ids)
	for i := 1; i < len(sorted); i++ {
		for j := i; j > 0 && bytes.Compare(sorted[j][:], sorted[j-1][:]) < 0; j-- {
			sorted[j], sorted[j-1] = sorted[j-1], sorted[j]
		}
	}
	return sorted
}
