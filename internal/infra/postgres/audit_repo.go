package postgres

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/kestrelpay/kestrel/internal/ledger"
)

// AuditRepository writes failed-attempt records into the audit schema. It is
// append-only and runs outside the main ledger transaction; nothing on the
// hot path reads it back.
type AuditRepository struct {
	pool *pgxpool.Pool
}

// NewAuditRepository creates a new PostgreSQL audit repository
func NewAuditRepository(pool *pgxpool.Pool) *AuditRepository {
	return &AuditRepository{pool: pool}
}

// Record implements ledger.AuditSink.
func (r *AuditRepository) Record(ctx context.Context, attempt *ledger.FailedAttempt) error {
	query := `
		INSERT INTO audit.failed_transactions
			(id, idempotency_key, source_user_id, destination_user_id, amount, error_message, retry_count, failed_at, resolved_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`

	var sourceID *uuid.UUID
	if id, ok := attempt.Source.UserID(); ok {
		sourceID = &id
	}

	_, err := r.pool.Exec(ctx, query,
		attempt.ID,
		attempt.IdempotencyKey,
		sourceID,
		attempt.Destination,
		attempt.Amount,
		attempt.ErrorMessage,
		attempt.RetryCount,
		attempt.FailedAt,
		attempt.ResolvedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to record failed attempt: %w", err)
	}

	return nil
}
