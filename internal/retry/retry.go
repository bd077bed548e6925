// Package retry implements the bounded retry policy shared by both
// workers for their external AI calls: a fixed number of attempts with
// capped exponential backoff and jitter, stopping early on permanent
// errors or context cancellation.
package retry

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"math/rand"
	"time"

	"github.com/phrazzld/murmur-api/internal/platform/logger"
)

// ErrAttemptsExhausted wraps the final error once every attempt has
// failed. Callers apply their worker-specific failure policy when they
// see it.
var ErrAttemptsExhausted = errors.New("retry attempts exhausted")

// Policy configures the retry loop.
type Policy struct {
	// MaxAttempts is the total number of tries (1 initial + N-1
	// retries). Values below 1 are treated as 1.
	MaxAttempts int

	// BaseDelay seeds the exponential backoff.
	BaseDelay time.Duration

	// MaxDelay caps the backoff so a single task cannot monopolize the
	// worker for minutes.
	MaxDelay time.Duration
}

// DefaultPolicy mirrors the pipeline defaults: 3 attempts, several
// seconds of backoff, capped at 10s.
func DefaultPolicy() Policy {
	return Policy{
		MaxAttempts: 3,
		BaseDelay:   4 * time.Second,
		MaxDelay:    10 * time.Second,
	}
}

func (p Policy) normalized() Policy {
	if p.MaxAttempts < 1 {
		p.MaxAttempts = 1
	}
	if p.BaseDelay <= 0 {
		p.BaseDelay = 4 * time.Second
	}
	if p.MaxDelay < p.BaseDelay {
		p.MaxDelay = p.BaseDelay
	}
	return p
}

// permanentError marks an error as not worth retrying.
type permanentError struct {
	err error
}

func (e *permanentError) Error() string { return e.err.Error() }
func (e *permanentError) Unwrap() error { return e.err }

// Permanent wraps err so the retry loop stops immediately instead of
// burning the remaining attempts. Clients mark conditions a retry
// cannot fix (missing input file, empty text) this way; everything
// network-shaped stays retryable.
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return &permanentError{err: err}
}

// IsPermanent reports whether err (or anything it wraps) was marked
// with Permanent.
func IsPermanent(err error) bool {
	var pe *permanentError
	return errors.As(err, &pe)
}

// backoffDelay computes the wait before the next attempt:
// min(maxDelay, baseDelay * 2^attempt) scaled by a jitter factor in
// [0.5, 1.0). attempt is zero-based.
func backoffDelay(p Policy, attempt int, jitter float64) time.Duration {
	backoff := float64(p.BaseDelay) * math.Pow(2, float64(attempt))
	if capped := float64(p.MaxDelay); backoff > capped {
		backoff = capped
	}
	return time.Duration(backoff * (0.5 + jitter*0.5))
}

// Do runs op until it succeeds, a permanent error occurs, the attempt
// budget is exhausted, or ctx is cancelled. The final failure wraps
// ErrAttemptsExhausted together with the last error from op.
func Do(ctx context.Context, p Policy, op func(ctx context.Context) error) error {
	p = p.normalized()
	log := logger.FromContextOrDefault(ctx, slog.Default())
	rng := rand.New(rand.NewSource(time.Now().UnixNano()))

	var lastErr error
	for attempt := 0; attempt < p.MaxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("retry cancelled: %w", err)
		}

		lastErr = op(ctx)
		if lastErr == nil {
			return nil
		}

		if IsPermanent(lastErr) {
			log.Warn("permanent error, not retrying",
				"attempt", attempt+1,
				"error", lastErr)
			return lastErr
		}

		if attempt == p.MaxAttempts-1 {
			break
		}

		delay := backoffDelay(p, attempt, rng.Float64())
		log.Warn("attempt failed, retrying after backoff",
			"attempt", attempt+1,
			"max_attempts", p.MaxAttempts,
			"delay", delay,
			"error", lastErr)

		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return fmt.Errorf("retry cancelled during backoff: %w", ctx.Err())
		}
	}

	return fmt.Errorf("%w after %d attempts: %w", ErrAttemptsExhausted, p.MaxAttempts, lastErr)
}
