package ledger

import "errors"

// Entry validation errors
var (
	ErrMissingIdempotencyKey = errors.New("idempotency key is required")
	ErrMissingDestination    = errors.New("destination user is required")
	ErrMissingSource         = errors.New("source user is required")
	ErrNonPositiveAmount     = errors.New("amount must be positive")
	ErrSameSourceDestination = errors.New("source and destination must differ")
)

// Operation outcomes
var (
	// ErrInsufficientFunds is a terminal business outcome: the derived
	// source balance is smaller than the requested amount. Never retried,
	// never audited.
	ErrInsufficientFunds = errors.New("insufficient funds")

	// ErrConflict is returned after the retry budget is exhausted on
	// repeated serialization failures.
	ErrConflict = errors.New("transaction conflict")

	// ErrUnknownUser is returned when the store rejects an entry because a
	// referenced user does not exist.
	ErrUnknownUser = errors.New("unknown user")
)

// Store-level sentinels. Repository implementations translate their driver
// errors into these so the coordinator and executor never inspect driver
// types.
var (
	// ErrSerialization marks a retryable isolation failure (serialization
	// conflict or deadlock victim). The coordinator re-runs the unit of
	// work from the idempotency probe.
	ErrSerialization = errors.New("serialization failure")

	// ErrDuplicateIdempotencyKey marks a unique-constraint violation on the
	// idempotency key: a concurrent winner committed first. The executor
	// re-probes and returns the committed entry.
	ErrDuplicateIdempotencyKey = errors.New("idempotency key already exists")

	// ErrEntryNotFound is returned by idempotency lookups that find nothing.
	ErrEntryNotFound = errors.New("entry not found")
)
