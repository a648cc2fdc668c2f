package ledger

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/kestrelpay/kestrel/pkg/logger"
)

// Config holds executor tuning knobs.
type Config struct {
	// MaxRetries is the number of additional attempts after the first one.
	MaxRetries int
	// InitialBackoff is the sleep before the first retry; it doubles on
	// each subsequent retry.
	InitialBackoff time.Duration
}

const (
	defaultMaxRetries     = 10
	defaultInitialBackoff = 10 * time.Millisecond
)

// Service executes ledger operations. It is stateless and safe for
// unbounded concurrent use; every write runs inside a serializable
// transaction with locks taken in ascending user-id order.
type Service struct {
	repo  Repository
	sink  AuditSink
	coord *coordinator
	log   *logger.Logger
}

// NewService creates a new ledger service. The sink may be nil, in which
// case retry-exhausted writes are only logged.
func NewService(repo Repository, sink AuditSink, cfg Config, log *logger.Logger) *Service {
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = defaultMaxRetries
	}
	if cfg.InitialBackoff <= 0 {
		cfg.InitialBackoff = defaultInitialBackoff
	}
	return &Service{
		repo:  repo,
		sink:  sink,
		coord: newCoordinator(cfg.MaxRetries, cfg.InitialBackoff, log),
		log:   log,
	}
}

// Transfer moves amount from source to destination. Replays of a previously
// committed idempotency key return the stored entry without side effects and
// report replayed=true; a derived source balance below amount aborts with
// ErrInsufficientFunds and no mutation.
func (s *Service) Transfer(ctx context.Context, key uuid.UUID, source, destination uuid.UUID, amount int64) (*Entry, bool, error) {
	req := &Entry{
		IdempotencyKey: key,
		Source:         UserSource(source),
		Destination:    destination,
		Amount:         amount,
	}
	if err := req.Validate(); err != nil {
		return nil, false, err
	}

	return s.execute(ctx, req)
}

// Deposit injects amount into destination from outside the system. No
// balance check applies; idempotency and isolation match Transfer.
func (s *Service) Deposit(ctx context.Context, key uuid.UUID, destination uuid.UUID, amount int64) (*Entry, bool, error) {
	req := &Entry{
		IdempotencyKey: key,
		Source:         DepositSource(),
		Destination:    destination,
		Amount:         amount,
	}
	if err := req.Validate(); err != nil {
		return nil, false, err
	}

	return s.execute(ctx, req)
}

// BalanceNow derives the user's current balance from the ledger. Unknown
// users derive to zero. No locks are taken.
func (s *Service) BalanceNow(ctx context.Context, userID uuid.UUID) (int64, error) {
	return s.repo.DeriveBalance(ctx, userID, nil)
}

// BalanceAt derives the user's balance over the prefix created_at <= at.
// A future at yields the current balance; an at before the user's first
// entry yields zero.
func (s *Service) BalanceAt(ctx context.Context, userID uuid.UUID, at time.Time) (int64, error) {
	return s.repo.DeriveBalance(ctx, userID, &at)
}

// History returns every entry the user sent or received, newest first.
func (s *Service) History(ctx context.Context, userID uuid.UUID) ([]*Entry, error) {
	return s.repo.ListHistory(ctx, userID)
}

// execute runs the full write protocol under the retry coordinator and
// audits the attempt if the outcome is a terminal store failure.
func (s *Service) execute(ctx context.Context, req *Entry) (*Entry, bool, error) {
	var replayed bool
	entry, attempts, err := s.coord.run(ctx, func(ctx context.Context) (*Entry, error) {
		return s.attempt(ctx, req, &replayed)
	})
	if err == nil {
		return entry, replayed, nil
	}

	if s.shouldAudit(err) {
		s.audit(ctx, req, attempts, err)
	}
	return nil, false, err
}

// attempt is one pass of the write protocol: probe, lock, derive, append,
// commit. The coordinator re-runs it from the probe on serialization
// failures. replayed is set when the idempotency key already names a
// committed entry.
func (s *Service) attempt(ctx context.Context, req *Entry, replayed *bool) (*Entry, error) {
	// Idempotency probe, outside any transaction. A prior attempt may have
	// committed before surfacing a conflict to us.
	existing, err := s.repo.FindByIdempotencyKey(ctx, req.IdempotencyKey)
	if err == nil {
		*replayed = true
		return existing, nil
	}
	if !errors.Is(err, ErrEntryNotFound) {
		return nil, err
	}

	txCtx, err := s.repo.BeginSerializableTx(ctx)
	if err != nil {
		return nil, err
	}
	committed := false
	defer func() {
		if !committed {
			if rbErr := s.repo.RollbackTx(txCtx); rbErr != nil {
				s.log.Warn("rollback failed", "error", rbErr)
			}
		}
	}()

	if srcID, ok := req.Source.UserID(); ok {
		if err := s.repo.LockUsers(txCtx, lockOrder(srcID, req.Destination)); err != nil {
			return nil, err
		}

		balance, err := s.repo.DeriveBalance(txCtx, srcID, nil)
		if err != nil {
			return nil, err
		}
		if balance < req.Amount {
			return nil, fmt.Errorf("%w: balance=%d requested=%d", ErrInsufficientFunds, balance, req.Amount)
		}
	} else {
		if err := s.repo.LockUsers(txCtx, []uuid.UUID{req.Destination}); err != nil {
			return nil, err
		}
	}

	inserted, err := s.repo.Append(txCtx, req)
	if err != nil {
		if errors.Is(err, ErrDuplicateIdempotencyKey) {
			// A concurrent winner committed between our probe and append.
			// Their entry is authoritative.
			if rbErr := s.repo.RollbackTx(txCtx); rbErr != nil {
				s.log.Warn("rollback failed", "error", rbErr)
			}
			committed = true
			*replayed = true
			return s.repo.FindByIdempotencyKey(ctx, req.IdempotencyKey)
		}
		return nil, err
	}

	if err := s.repo.CommitTx(txCtx); err != nil {
		return nil, err
	}
	committed = true

	return inserted, nil
}

// shouldAudit reports whether a terminal write failure belongs in the audit
// sink. Business outcomes, caller-side validation, and cancellation are
// expected and stay out.
func (s *Service) shouldAudit(err error) bool {
	switch {
	case errors.Is(err, ErrInsufficientFunds),
		errors.Is(err, ErrUnknownUser),
		errors.Is(err, context.Canceled),
		errors.Is(err, context.DeadlineExceeded):
		return false
	}
	return true
}

// audit records the exhausted attempt best-effort. It must never change the
// error returned to the caller, so sink failures are logged and dropped.
// The caller's context may already be cancelled by the time we get here.
func (s *Service) audit(ctx context.Context, req *Entry, attempts int, cause error) {
	attempt := &FailedAttempt{
		ID:             uuid.New(),
		IdempotencyKey: req.IdempotencyKey,
		Source:         req.Source,
		Destination:    req.Destination,
		Amount:         req.Amount,
		ErrorMessage:   cause.Error(),
		RetryCount:     attempts,
		FailedAt:       time.Now(),
	}

	s.log.Error("write exhausted retry budget",
		"idempotency_key", req.IdempotencyKey,
		"retry_count", attempts,
		"error", cause.Error(),
	)

	if s.sink == nil {
		return
	}
	if err := s.sink.Record(context.WithoutCancel(ctx), attempt); err != nil {
		s.log.Warn("failed to record audit entry", "error", err)
	}
}
