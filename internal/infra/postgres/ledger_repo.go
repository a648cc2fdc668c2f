package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/kestrelpay/kestrel/internal/ledger"
)

// LedgerRepository implements ledger.Repository using PostgreSQL. Write
// transactions are carried in the context; repository methods run against
// the transaction when one is present and against the pool otherwise.
type LedgerRepository struct {
	pool *pgxpool.Pool
}

// NewLedgerRepository creates a new PostgreSQL ledger repository
func NewLedgerRepository(pool *pgxpool.Pool) *LedgerRepository {
	return &LedgerRepository{pool: pool}
}

// FindByIdempotencyKey retrieves the entry committed under key, or
// ledger.ErrEntryNotFound.
func (r *LedgerRepository) FindByIdempotencyKey(ctx context.Context, key uuid.UUID) (*ledger.Entry, error) {
	query := `
		SELECT id, idempotency_key, source_user_id, destination_user_id, amount, created_at
		FROM transactions
		WHERE idempotency_key = $1
	`

	q := r.getQueryer(ctx)
	entry, err := scanEntry(q.QueryRow(ctx, query, key))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ledger.ErrEntryNotFound
		}
		return nil, translateErr("failed to look up idempotency key", err)
	}

	return entry, nil
}

// LockUsers takes exclusive row locks on the given user rows, one statement
// per user so the acquisition order is exactly the order given. Missing
// users lock nothing; their balance derives to zero downstream.
func (r *LedgerRepository) LockUsers(ctx context.Context, ids []uuid.UUID) error {
	q := r.getQueryer(ctx)
	for _, id := range ids {
		if _, err := q.Exec(ctx, `SELECT id FROM users WHERE id = $1 FOR UPDATE`, id); err != nil {
			return translateErr("failed to lock user row", err)
		}
	}
	return nil
}

// DeriveBalance computes incoming minus outgoing over the prefix
// created_at <= at (nil means now). The two partial sums are served by the
// (destination_user_id, created_at) and (source_user_id, created_at)
// indexes.
func (r *LedgerRepository) DeriveBalance(ctx context.Context, userID uuid.UUID, at *time.Time) (int64, error) {
	query := `
		SELECT
			COALESCE((SELECT SUM(amount) FROM transactions WHERE destination_user_id = $1), 0)
			-
			COALESCE((SELECT SUM(amount) FROM transactions WHERE source_user_id = $1), 0)
	`
	args := []any{userID}

	if at != nil {
		query = `
			SELECT
				COALESCE((SELECT SUM(amount) FROM transactions WHERE destination_user_id = $1 AND created_at <= $2), 0)
				-
				COALESCE((SELECT SUM(amount) FROM transactions WHERE source_user_id = $1 AND created_at <= $2), 0)
		`
		args = append(args, *at)
	}

	var balance int64
	q := r.getQueryer(ctx)
	if err := q.QueryRow(ctx, query, args...).Scan(&balance); err != nil {
		return 0, translateErr("failed to derive balance", err)
	}

	return balance, nil
}

// Append inserts a new ledger entry. The database assigns created_at and
// enforces idempotency-key uniqueness, amount positivity, and user foreign
// keys.
func (r *LedgerRepository) Append(ctx context.Context, entry *ledger.Entry) (*ledger.Entry, error) {
	if err := entry.Validate(); err != nil {
		return nil, fmt.Errorf("invalid entry: %w", err)
	}

	query := `
		INSERT INTO transactions (id, idempotency_key, source_user_id, destination_user_id, amount)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING created_at
	`

	inserted := &ledger.Entry{
		ID:             uuid.New(),
		IdempotencyKey: entry.IdempotencyKey,
		Source:         entry.Source,
		Destination:    entry.Destination,
		Amount:         entry.Amount,
	}

	var sourceID *uuid.UUID
	if id, ok := entry.Source.UserID(); ok {
		sourceID = &id
	}

	q := r.getQueryer(ctx)
	err := q.QueryRow(ctx, query,
		inserted.ID,
		inserted.IdempotencyKey,
		sourceID,
		inserted.Destination,
		inserted.Amount,
	).Scan(&inserted.CreatedAt)
	if err != nil {
		return nil, translateErr("failed to append entry", err)
	}

	return inserted, nil
}

// ListHistory returns every entry where the user is source or destination,
// newest first.
func (r *LedgerRepository) ListHistory(ctx context.Context, userID uuid.UUID) ([]*ledger.Entry, error) {
	query := `
		SELECT id, idempotency_key, source_user_id, destination_user_id, amount, created_at
		FROM transactions
		WHERE source_user_id = $1 OR destination_user_id = $1
		ORDER BY created_at DESC
	`

	q := r.getQueryer(ctx)
	rows, err := q.Query(ctx, query, userID)
	if err != nil {
		return nil, translateErr("failed to query history", err)
	}
	defer rows.Close()

	var entries []*ledger.Entry
	for rows.Next() {
		entry, err := scanEntry(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan entry: %w", err)
		}
		entries = append(entries, entry)
	}

	if err := rows.Err(); err != nil {
		return nil, translateErr("error iterating history", err)
	}

	return entries, nil
}

// scanEntry scans a single entry from a row
func scanEntry(row pgx.Row) (*ledger.Entry, error) {
	var entry ledger.Entry
	var sourceID *uuid.UUID

	err := row.Scan(
		&entry.ID,
		&entry.IdempotencyKey,
		&sourceID,
		&entry.Destination,
		&entry.Amount,
		&entry.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	if sourceID != nil {
		entry.Source = ledger.UserSource(*sourceID)
	} else {
		entry.Source = ledger.DepositSource()
	}

	return &entry, nil
}

// Transaction management. The open transaction travels in the context so
// every repository method works both inside and outside one.

type ctxKey string

const txContextKey ctxKey = "ledger_tx"

// BeginSerializableTx starts a serializable database transaction and stores
// it in the returned context.
func (r *LedgerRepository) BeginSerializableTx(ctx context.Context) (context.Context, error) {
	if tx := txFromContext(ctx); tx != nil {
		return ctx, fmt.Errorf("transaction already in progress")
	}

	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{
		IsoLevel:   pgx.Serializable,
		AccessMode: pgx.ReadWrite,
	})
	if err != nil {
		return ctx, translateErr("failed to begin transaction", err)
	}

	return context.WithValue(ctx, txContextKey, tx), nil
}

// CommitTx commits the database transaction from the context. Serialization
// failures frequently surface here rather than at statement time; they are
// translated like any other.
func (r *LedgerRepository) CommitTx(ctx context.Context) error {
	tx := txFromContext(ctx)
	if tx == nil {
		return fmt.Errorf("no transaction in context")
	}

	if err := tx.Commit(ctx); err != nil {
		return translateErr("failed to commit transaction", err)
	}

	return nil
}

// RollbackTx rolls back the database transaction from the context.
func (r *LedgerRepository) RollbackTx(ctx context.Context) error {
	tx := txFromContext(ctx)
	if tx == nil {
		return fmt.Errorf("no transaction in context")
	}

	if err := tx.Rollback(ctx); err != nil {
		// Already closed by a failed commit
		if errors.Is(err, pgx.ErrTxClosed) {
			return nil
		}
		return translateErr("failed to rollback transaction", err)
	}

	return nil
}

// txFromContext retrieves the transaction from context if one exists
func txFromContext(ctx context.Context) pgx.Tx {
	if tx, ok := ctx.Value(txContextKey).(pgx.Tx); ok {
		return tx
	}
	return nil
}

// getQueryer returns the transaction if one exists in context, otherwise the pool
func (r *LedgerRepository) getQueryer(ctx context.Context) interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
} {
	if tx := txFromContext(ctx); tx != nil {
		return tx
	}
	return r.pool
}

// SQLSTATE classes the executor cares about.
const (
	codeSerializationFailure = "40001"
	codeDeadlockDetected     = "40P01"
	codeUniqueViolation      = "23505"
	codeForeignKeyViolation  = "23503"
	codeCheckViolation       = "23514"
)

// translateErr maps driver errors onto the ledger package sentinels so the
// layers above never inspect pg error codes.
func translateErr(msg string, err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case codeSerializationFailure, codeDeadlockDetected:
			return fmt.Errorf("%s: %w: %s", msg, ledger.ErrSerialization, pgErr.Message)
		case codeUniqueViolation:
			return fmt.Errorf("%s: %w", msg, ledger.ErrDuplicateIdempotencyKey)
		case codeForeignKeyViolation:
			return fmt.Errorf("%s: %w", msg, ledger.ErrUnknownUser)
		case codeCheckViolation:
			return fmt.Errorf("%s: %w", msg, ledger.ErrNonPositiveAmount)
		}
	}
	return fmt.Errorf("%s: %w", msg, err)
}
