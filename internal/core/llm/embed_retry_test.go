package llm

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/markdave123-py/integraldb/internal/core"
)

type scriptedProvider struct {
	errs  []error
	calls int
	tasks []core.TaskType
}

func (p *scriptedProvider) EmbedText(_ context.Context, _ string, task core.TaskType) ([]float32, error) {
	p.calls++
	p.tasks = append(p.tasks, task)
	if p.calls <= len(p.errs) && p.errs[p.calls-1] != nil {
		return nil, p.errs[p.calls-1]
	}
	return []float32{1, 2, 3}, nil
}

func rateLimited() error {
	return fmt.Errorf("%w: %w: quota", core.ErrEmbed, core.ErrRateLimited)
}

func TestRetryingEmbedder_RetriesOnceOnRateLimit(t *testing.T) {
	p := &scriptedProvider{errs: []error{rateLimited()}}
	r := NewRetryingEmbedder(p, NewRateLimiter(0, 1), RetryPolicy{MaxRetries: 1, Backoff: time.Millisecond}, nil)

	vec, err := r.EmbedText(context.Background(), "hello", core.TaskDocument)
	require.NoError(t, err)
	assert.Equal(t, []float32{1, 2, 3}, vec)
	assert.Equal(t, 2, p.calls)
	assert.Equal(t, []core.TaskType{core.TaskDocument, core.TaskDocument}, p.tasks)
}

func TestRetryingEmbedder_BoundedAttempts(t *testing.T) {
	p := &scriptedProvider{errs: []error{rateLimited(), rateLimited(), rateLimited(), rateLimited()}}
	r := NewRetryingEmbedder(p, nil, RetryPolicy{MaxRetries: 2, Backoff: time.Millisecond}, nil)

	_, err := r.EmbedText(context.Background(), "hello", core.TaskDocument)
	require.Error(t, err)
	assert.ErrorIs(t, err, core.ErrRateLimited)
	assert.Equal(t, 3, p.calls)
}

func TestRetryingEmbedder_NoRetryOnTransientOrFatal(t *testing.T) {
	for _, class := range []error{core.ErrTransient, core.ErrFatal} {
		t.Run(class.Error(), func(t *testing.T) {
			p := &scriptedProvider{errs: []error{fmt.Errorf("%w: %w", core.ErrEmbed, class)}}
			r := NewRetryingEmbedder(p, nil, RetryPolicy{MaxRetries: 3, Backoff: time.Millisecond}, nil)

			_, err := r.EmbedText(context.Background(), "x", core.TaskDocument)
			assert.ErrorIs(t, err, class)
			assert.Equal(t, 1, p.calls)
		})
	}
}

func TestRetryingEmbedder_CanceledWhileBackingOff(t *testing.T) {
	p := &scriptedProvider{errs: []error{rateLimited(), rateLimited()}}
	r := NewRetryingEmbedder(p, nil, RetryPolicy{MaxRetries: 1, Backoff: time.Hour}, nil)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	start := time.Now()
	_, err := r.EmbedText(ctx, "x", core.TaskDocument)
	require.Error(t, err)
	assert.ErrorIs(t, err, core.ErrTransient)
	assert.True(t, errors.Is(err, context.DeadlineExceeded))
	assert.Less(t, time.Since(start), time.Second)
	assert.Equal(t, 1, p.calls)
}

func TestRateLimiter_PauseIsShared(t *testing.T) {
	rl := NewRateLimiter(0, 1)
	rl.Pause(30 * time.Millisecond)

	start := time.Now()
	require.NoError(t, rl.Wait(context.Background()))
	assert.GreaterOrEqual(t, time.Since(start), 25*time.Millisecond)

	// a shorter pause never overrides a longer one
	rl.Pause(time.Hour)
	rl.Pause(time.Millisecond)
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	assert.Error(t, rl.Wait(ctx))
}
