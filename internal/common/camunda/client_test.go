// internal/common/camunda/client_test.go
package camunda

import (
	"context"
	stderrors "errors"
	"testing"
	"time"

	"care-match-workers/internal/common/errors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var fastRetry = &RetryConfig{MaxRetries: 2, BaseDelay: time.Millisecond, MaxDelay: 2 * time.Millisecond}

func TestExecuteWithRetry_RecoversFromTransientError(t *testing.T) {
	calls := 0
	err := ExecuteWithRetry(context.Background(), fastRetry, "complete job", func(context.Context) error {
		calls++
		if calls < 2 {
			return stderrors.New("rpc error: code = Unavailable desc = connection refused")
		}
		return nil
	})

	assert.NoError(t, err)
	assert.Equal(t, 2, calls)
}

func TestExecuteWithRetry_GivesUpAfterMaxRetries(t *testing.T) {
	calls := 0
	err := ExecuteWithRetry(context.Background(), fastRetry, "complete job", func(context.Context) error {
		calls++
		return stderrors.New("context deadline exceeded")
	})

	require.Error(t, err)
	assert.Equal(t, 3, calls)
	stdErr, ok := errors.As(err)
	require.True(t, ok)
	assert.Equal(t, errors.ErrCodeWorkflowEngineFailed, stdErr.Code)
	assert.True(t, stdErr.Retryable)
	assert.Contains(t, stdErr.Details, "after 2 retries")
}

func TestExecuteWithRetry_PermanentErrorIsNotRetried(t *testing.T) {
	calls := 0
	err := ExecuteWithRetry(context.Background(), fastRetry, "complete job", func(context.Context) error {
		calls++
		return stderrors.New("rpc error: code = NotFound desc = job not found")
	})

	require.Error(t, err)
	assert.Equal(t, 1, calls)
	stdErr, _ := errors.As(err)
	assert.False(t, stdErr.Retryable)
}

func TestExecuteWithRetry_ContextCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	slow := &RetryConfig{MaxRetries: 5, BaseDelay: time.Hour, MaxDelay: time.Hour}

	err := ExecuteWithRetry(ctx, slow, "complete job", func(context.Context) error {
		cancel()
		return stderrors.New("connection reset by peer")
	})

	require.Error(t, err)
	assert.True(t, errors.HasCode(err, errors.ErrCodeWorkflowEngineFailed))
}
