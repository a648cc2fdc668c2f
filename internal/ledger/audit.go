package ledger

import (
	"context"
	"errors"
)

// MultiSink fans a failed attempt out to several sinks. Every sink is
// attempted; errors are joined so the caller can log them, but a failing
// sink never stops the others.
type MultiSink []AuditSink

// Record implements AuditSink.
func (m MultiSink) Record(ctx context.Context, attempt *FailedAttempt) error {
	var errs []error
	for _, sink := range m {
		if sink == nil {
			continue
		}
		if err := sink.Record(ctx, attempt); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
