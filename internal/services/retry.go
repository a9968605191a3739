package services

import (
	"context"
	"time"

	"saku/internal/core"
	"saku/internal/log"
)

// RetryPolicy bounds how often a conflicting transaction is re-run.
type RetryPolicy struct {
	MaxAttempts int
	BaseDelay   time.Duration
	MaxDelay    time.Duration
}

func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxAttempts: 3,
		BaseDelay:   20 * time.Millisecond,
		MaxDelay:    500 * time.Millisecond,
	}
}

func (p RetryPolicy) normalized() RetryPolicy {
	def := DefaultRetryPolicy()
	if p.MaxAttempts < 1 {
		p.MaxAttempts = def.MaxAttempts
	}
	if p.BaseDelay <= 0 {
		p.BaseDelay = def.BaseDelay
	}
	if p.MaxDelay < p.BaseDelay {
		p.MaxDelay = p.BaseDelay * 16
	}
	return p
}

// backoff returns the wait after the given failed attempt (1-based):
// BaseDelay doubled per attempt, capped at MaxDelay.
func (p RetryPolicy) backoff(attempt int) time.Duration {
	d := p.BaseDelay
	for i := 1; i < attempt; i++ {
		d *= 2
		if d >= p.MaxDelay {
			return p.MaxDelay
		}
	}
	return d
}

// withRetry runs fn until it succeeds, fails with a non-conflict error, or
// the attempts run out. Each run of fn must be one whole transaction.
func (d *deps) withRetry(ctx context.Context, p RetryPolicy, op string, fn func() error) error {
	var last error
	for attempt := 1; attempt <= p.MaxAttempts; attempt++ {
		err := fn()
		if err == nil {
			return nil
		}
		if !core.IsRetryable(err) {
			return err
		}
		last = err
		if attempt == p.MaxAttempts {
			break
		}

		wait := p.backoff(attempt)
		d.logger.WarnContext(ctx, "Transaction conflict, retrying",
			log.FieldOperation, op,
			log.FieldAttempt, attempt,
			"backoff", wait)

		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return &core.StorageError{Op: op, Err: ctx.Err()}
		case <-timer.C:
		}
	}
	return &core.ConflictError{Op: op, Attempts: p.MaxAttempts, Err: last}
}
