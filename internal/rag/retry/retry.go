package retry

import (
	"context"
	"errors"
	"time"

	"github.com/akolanti/PdfRAG/internal/config"
	"github.com/akolanti/PdfRAG/internal/domain/ragErrors"
	"github.com/akolanti/PdfRAG/internal/metrics"
	"github.com/akolanti/PdfRAG/pkg/logger_i"
)

var logger = logger_i.NewLogger("retry")

type Policy struct {
	Attempts       int
	BaseDelay      time.Duration
	MaxDelay       time.Duration
	AttemptTimeout time.Duration
}

func FromConfig(c config.RetryConfig) Policy {
	return Policy{
		Attempts:       c.Attempts,
		BaseDelay:      c.BaseDelay.Std(),
		MaxDelay:       c.MaxDelay.Std(),
		AttemptTimeout: c.AttemptTimeout.Std(),
	}
}

// Delay is the wait before retry number attempt+1: base doubled per attempt, capped.
func (p Policy) Delay(attempt int) time.Duration {
	if p.BaseDelay <= 0 {
		return 0
	}
	d := p.BaseDelay
	for i := 0; i < attempt; i++ {
		d *= 2
		if p.MaxDelay > 0 && d >= p.MaxDelay {
			return p.MaxDelay
		}
	}
	if p.MaxDelay > 0 && d > p.MaxDelay {
		return p.MaxDelay
	}
	return d
}

// Do runs fn until it succeeds, fails with a non-transient error, or the attempts
// are used up. Each attempt gets its own timeout when AttemptTimeout is set.
func Do[T any](ctx context.Context, p Policy, op string, fn func(ctx context.Context) (T, error)) (T, error) {
	var zero T
	attempts := max(p.Attempts, 1)
	log := logger.FromContext(ctx).With("operation", op)

	var lastErr error
	for attempt := 0; attempt < attempts; attempt++ {
		callCtx, cancel := ctx, context.CancelFunc(func() {})
		if p.AttemptTimeout > 0 {
			callCtx, cancel = context.WithTimeout(ctx, p.AttemptTimeout)
		}
		result, err := fn(callCtx)
		cancel()
		if err == nil {
			return result, nil
		}
		lastErr = err

		if ctx.Err() != nil {
			return zero, asUpstream(op, err, false)
		}
		attemptTimedOut := errors.Is(err, context.DeadlineExceeded)
		if !ragErrors.IsTransient(err) && !attemptTimedOut {
			return zero, err
		}
		if attempt == attempts-1 {
			break
		}

		wait := p.Delay(attempt)
		metrics.IncrementRetry(op)
		log.Warn("transient upstream failure, retrying", "attempt", attempt+1, "wait", wait, "error", err)

		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return zero, asUpstream(op, err, false)
		case <-timer.C:
		}
	}
	log.Error("retries exhausted", "attempts", attempts, "error", lastErr)
	return zero, asUpstream(op, lastErr, true)
}

func asUpstream(op string, err error, transient bool) error {
	var e *ragErrors.Error
	if errors.As(err, &e) {
		return err
	}
	return ragErrors.Upstream(op, err, transient)
}
