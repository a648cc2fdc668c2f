package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/kestrelpay/kestrel/internal/ledger"
	"github.com/redis/go-redis/v9"
)

// DefaultChannel is the pub/sub channel operators subscribe to for
// retry-exhausted writes.
const DefaultChannel = "ledger.failed_attempts"

// FailureNotifier publishes failed-attempt records to a Redis channel so
// operators can react out-of-band without polling the audit table. It is a
// best-effort ledger.AuditSink; a lost message is acceptable because the
// durable record lives in the audit table.
type FailureNotifier struct {
	client  *redis.Client
	channel string
}

// NewFailureNotifier creates a notifier publishing on channel. An empty
// channel selects DefaultChannel.
func NewFailureNotifier(client *redis.Client, channel string) *FailureNotifier {
	if channel == "" {
		channel = DefaultChannel
	}
	return &FailureNotifier{client: client, channel: channel}
}

type failedAttemptMessage struct {
	ID             uuid.UUID  `json:"id"`
	IdempotencyKey uuid.UUID  `json:"idempotency_key"`
	SourceUserID   *uuid.UUID `json:"source_user_id,omitempty"`
	DestUserID     uuid.UUID  `json:"destination_user_id"`
	Amount         int64      `json:"amount"`
	ErrorMessage   string     `json:"error_message"`
	RetryCount     int        `json:"retry_count"`
	FailedAt       time.Time  `json:"failed_at"`
}

// Record implements ledger.AuditSink.
func (n *FailureNotifier) Record(ctx context.Context, attempt *ledger.FailedAttempt) error {
	msg := failedAttemptMessage{
		ID:             attempt.ID,
		IdempotencyKey: attempt.IdempotencyKey,
		DestUserID:     attempt.Destination,
		Amount:         attempt.Amount,
		ErrorMessage:   attempt.ErrorMessage,
		RetryCount:     attempt.RetryCount,
		FailedAt:       attempt.FailedAt,
	}
	if id, ok := attempt.Source.UserID(); ok {
		msg.SourceUserID = &id
	}

	payload, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("failed to marshal failed attempt: %w", err)
	}

	if err := n.client.Publish(ctx, n.channel, payload).Err(); err != nil {
		return fmt.Errorf("failed to publish failed attempt: %w", err)
	}

	return nil
}
