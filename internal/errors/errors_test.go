package errors

import (
	"context"
	stderrors "errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewDerivesFromCode(t *testing.T) {
	err := New(CodeQueryEmpty, "query is empty", nil)

	assert.Equal(t, CategoryValidation, err.Category)
	assert.Equal(t, SeverityError, err.Severity)
	assert.False(t, err.Retryable)
	assert.Equal(t, "[ERR_401_QUERY_EMPTY] query is empty", err.Error())
}

func TestStoreErrorsAreRetryableWarnings(t *testing.T) {
	err := StoreError("index unreachable", nil)

	assert.Equal(t, CategoryInternal, err.Category)
	assert.Equal(t, SeverityWarning, err.Severity)
	assert.True(t, err.Retryable)
	assert.True(t, IsRetryable(err))
}

func TestWrapAndUnwrap(t *testing.T) {
	cause := stderrors.New("connection refused")
	err := Wrap(CodeEmbedUnavailable, cause)

	require.NotNil(t, err)
	assert.ErrorIs(t, err, cause)
	assert.ErrorIs(t, fmt.Errorf("embed: %w", err), New(CodeEmbedUnavailable, "", nil))
	assert.Nil(t, Wrap(CodeEmbedUnavailable, nil))
}

func TestWithDetail(t *testing.T) {
	err := New(CodeDictLoad, "bad dict", nil).
		WithDetail("path", "/tmp/user.tsv").
		WithSuggestion("check the file format")

	attrs := FormatForLog(err)
	assert.Equal(t, "/tmp/user.tsv", attrs["detail_path"])
	assert.Equal(t, "check the file format", attrs["suggestion"])
}

func TestRetrySucceedsAfterFailures(t *testing.T) {
	cfg := RetryConfig{MaxRetries: 3, InitialDelay: time.Millisecond, MaxDelay: 2 * time.Millisecond, Multiplier: 2}

	calls := 0
	got, err := RetryWithResult(context.Background(), cfg, func() (int, error) {
		calls++
		if calls < 3 {
			return 0, stderrors.New("transient")
		}
		return 42, nil
	})
	require.NoError(t, err)
	assert.Equal(t, 42, got)
	assert.Equal(t, 3, calls)
}

func TestRetryExhausted(t *testing.T) {
	cfg := RetryConfig{MaxRetries: 1, InitialDelay: time.Millisecond, MaxDelay: time.Millisecond, Multiplier: 1}

	err := Retry(context.Background(), cfg, func() error {
		return stderrors.New("down")
	})
	assert.Error(t, err)
}

func TestCircuitBreakerOpensAndRecovers(t *testing.T) {
	cb := NewCircuitBreaker("rerank", WithMaxFailures(2), WithResetTimeout(10*time.Millisecond))
	fail := func() error { return stderrors.New("boom") }

	assert.Error(t, cb.Execute(fail))
	assert.Error(t, cb.Execute(fail))
	assert.Equal(t, StateOpen, cb.State())
	assert.ErrorIs(t, cb.Execute(fail), ErrCircuitOpen)

	time.Sleep(15 * time.Millisecond)
	assert.Equal(t, StateHalfOpen, cb.State())
	require.NoError(t, cb.Execute(func() error { return nil }))
	assert.Equal(t, StateClosed, cb.State())
}
