package ledger

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Repository is the durable home of the ledger. Write primitives are meant
// to run inside a serializable transaction carried in the context
// (BeginSerializableTx / CommitTx / RollbackTx); reads work with or without
// one.
//
// Implementations translate their driver errors into the package sentinels:
// ErrSerialization for retryable isolation failures, ErrDuplicateIdempotencyKey
// for unique-key violations on append, ErrUnknownUser for foreign-key
// rejections, ErrEntryNotFound for empty lookups.
type Repository interface {
	// FindByIdempotencyKey is the deduplication point lookup. Used both
	// outside and inside transactions.
	FindByIdempotencyKey(ctx context.Context, key uuid.UUID) (*Entry, error)

	// LockUsers takes exclusive row locks on the given user rows, in the
	// order given. Callers pass ids in ascending order. Missing users are
	// a no-op; the subsequent balance derivation returns zero for them.
	LockUsers(ctx context.Context, ids []uuid.UUID) error

	// DeriveBalance computes incoming minus outgoing over the committed
	// prefix created_at <= at. A nil at means now. Unknown users derive
	// to zero.
	DeriveBalance(ctx context.Context, userID uuid.UUID, at *time.Time) (int64, error)

	// Append inserts a new entry. The store assigns CreatedAt and enforces
	// idempotency-key uniqueness.
	Append(ctx context.Context, entry *Entry) (*Entry, error)

	// ListHistory returns every entry where the user is source or
	// destination, newest first.
	ListHistory(ctx context.Context, userID uuid.UUID) ([]*Entry, error)

	// BeginSerializableTx opens a serializable transaction and returns a
	// context carrying it. CommitTx and RollbackTx close it.
	BeginSerializableTx(ctx context.Context) (context.Context, error)
	CommitTx(ctx context.Context) error
	RollbackTx(ctx context.Context) error
}

// AuditSink receives failed-attempt records after the retry budget is spent.
// Record runs outside the main transaction; its errors must never influence
// the user-visible outcome.
type AuditSink interface {
	Record(ctx context.Context, attempt *FailedAttempt) error
}
