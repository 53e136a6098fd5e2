package completion

import (
	"context"
	"time"

	"sales-assistant/internal/common/logger"
	"sales-assistant/internal/common/metrics"
	"sales-assistant/internal/common/retry"
)

type retryingCompleter struct {
	next   Completer
	policy retry.Policy
}

// WithRetry retries rate-limited and transient failures of next under policy.
// Workflow functions use it; the intent classifier calls the bare client.
func WithRetry(next Completer, policy retry.Policy, log logger.Logger) Completer {
	onRetry := policy.OnRetry
	policy.OnRetry = func(attempt int, err error, wait time.Duration) {
		metrics.CompletionRetries.Inc()
		log.Warn("completion failed, retrying", map[string]interface{}{
			"attempt":     attempt,
			"maxAttempts": policy.MaxAttempts,
			"nextRetryIn": wait.String(),
			"error":       err.Error(),
		})
		if onRetry != nil {
			onRetry(attempt, err, wait)
		}
	}
	return &retryingCompleter{next: next, policy: policy}
}

func (r *retryingCompleter) Complete(ctx context.Context, messages []Message) (*Response, error) {
	var resp *Response
	err := retry.Do(ctx, r.policy, func(ctx context.Context) error {
		var err error
		resp, err = r.next.Complete(ctx, messages)
		return err
	})
	if err != nil {
		return nil, err
	}
	return resp, nil
}
