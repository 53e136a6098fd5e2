// Package retry runs an operation a bounded number of times, waiting between
// attempts for at least a minimum delay or the upstream's retry-after hint.
package retry

import (
	"context"
	"errors"
	"fmt"
	"net"
	"time"

	stderrors "sales-assistant/internal/common/errors"
)

// Policy bounds an operation's attempts.
type Policy struct {
	MaxAttempts int
	MinWait     time.Duration

	// Retryable decides whether err is worth another attempt. Defaults to IsRetryable.
	Retryable func(err error) bool
	// OnRetry is called before each wait.
	OnRetry func(attempt int, err error, wait time.Duration)
}

// DefaultPolicy is three attempts with a one second floor between them.
func DefaultPolicy() Policy {
	return Policy{MaxAttempts: 3, MinWait: time.Second}
}

// RetryAfterHinter is implemented by errors that carry the upstream's requested delay.
type RetryAfterHinter interface {
	RetryAfterHint() time.Duration
}

// StatusCoder is implemented by errors carrying an HTTP status code.
type StatusCoder interface {
	HTTPStatus() int
}

// Do calls fn until it succeeds, returns a non-retryable error, the attempts
// are exhausted or ctx is done.
func Do(ctx context.Context, p Policy, fn func(ctx context.Context) error) error {
	if p.MaxAttempts < 1 {
		p.MaxAttempts = 1
	}
	retryable := p.Retryable
	if retryable == nil {
		retryable = IsRetryable
	}

	var err error
	for attempt := 1; attempt <= p.MaxAttempts; attempt++ {
		err = fn(ctx)
		if err == nil {
			return nil
		}
		if ctx.Err() != nil || !retryable(err) || attempt == p.MaxAttempts {
			break
		}

		wait := Wait(p.MinWait, err)
		if p.OnRetry != nil {
			p.OnRetry(attempt, err, wait)
		}

		timer := time.NewTimer(wait)
		select {
		case <-timer.C:
		case <-ctx.Done():
			timer.Stop()
			return fmt.Errorf("retry cancelled after %d attempts: %w", attempt, err)
		}
	}

	return err
}

// Wait returns max(minWait, retry-after hint carried by err).
func Wait(minWait time.Duration, err error) time.Duration {
	var hinted RetryAfterHinter
	if errors.As(err, &hinted) {
		if hint := hinted.RetryAfterHint(); hint > minWait {
			return hint
		}
	}
	return minWait
}

// IsRetryable treats rate limits, timeouts, 5xx responses and retryable
// StandardErrors as transient.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) {
		return false
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}

	var hinted RetryAfterHinter
	if errors.As(err, &hinted) {
		return true
	}

	var coded StatusCoder
	if errors.As(err, &coded) {
		status := coded.HTTPStatus()
		return status == 429 || status >= 500
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}

	if stdErr, ok := stderrors.AsStandardError(err); ok {
		return stdErr.Retryable
	}

	return false
}
