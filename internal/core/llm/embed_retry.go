package llm

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/markdave123-py/integraldb/internal/core"
)

var _ core.EmbeddingProvider = (*RetryingEmbedder)(nil)

// RetryPolicy bounds the retries made on rate limiting.
type RetryPolicy struct {
	MaxRetries int           // retries after the first attempt, rate limiting only
	Backoff    time.Duration // fixed delay before each retry
}

// RetryingEmbedder wraps a provider with the shared limiter and a bounded rate-limit retry loop.
// Transient and fatal errors are returned at once; the caller drops the chunk.
type RetryingEmbedder struct {
	next    core.EmbeddingProvider
	limiter *RateLimiter
	policy  RetryPolicy
	logger  *slog.Logger
}

func NewRetryingEmbedder(next core.EmbeddingProvider, limiter *RateLimiter, policy RetryPolicy, logger *slog.Logger) *RetryingEmbedder {
	if limiter == nil {
		limiter = NewRateLimiter(0, 1)
	}
	if policy.MaxRetries < 0 {
		policy.MaxRetries = 0
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &RetryingEmbedder{next: next, limiter: limiter, policy: policy, logger: logger}
}

func (r *RetryingEmbedder) EmbedText(ctx context.Context, text string, task core.TaskType) ([]float32, error) {
	var lastErr error
	for attempt := 1; attempt <= r.policy.MaxRetries+1; attempt++ {
		if err := r.limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("%w: %w: %w", core.ErrEmbed, core.ErrTransient, err)
		}

		vec, err := r.next.EmbedText(ctx, text, task)
		if err == nil {
			if attempt > 1 {
				r.logger.Debug("embedding succeeded after retry", "attempt", attempt)
			}
			return vec, nil
		}
		lastErr = err

		if !errors.Is(err, core.ErrRateLimited) {
			return nil, err
		}
		if attempt > r.policy.MaxRetries {
			break
		}

		r.logger.Warn("embedding rate limited, backing off",
			"attempt", attempt, "max_retries", r.policy.MaxRetries, "backoff", r.policy.Backoff)
		r.limiter.Pause(r.policy.Backoff)
	}
	return nil, lastErr
}
