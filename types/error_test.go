package types

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestError_Error(t *testing.T) {
	t.Parallel()
	err := NewError(ErrStepFailed, "completion failed")
	assert.Equal(t, "[STEP_FAILED] completion failed", err.Error())

	err = err.WithCause(errors.New("connection refused"))
	assert.Equal(t, "[STEP_FAILED] completion failed: connection refused", err.Error())
}

func TestError_Unwrap(t *testing.T) {
	t.Parallel()
	cause := errors.New("boom")
	err := NewError(ErrConfiguration, "missing schema").WithCause(cause)
	assert.True(t, errors.Is(err, cause))
}

func TestError_FluentBuilders(t *testing.T) {
	t.Parallel()
	err := NewError(ErrStepFailed, "rate limited").
		WithNode("gen-1").
		WithAttempts(3).
		WithRetryable(true)

	assert.Equal(t, "gen-1", err.NodeID)
	assert.Equal(t, 3, err.Attempts)
	assert.True(t, err.Retryable)
}

func TestAsError_WrappedChain(t *testing.T) {
	t.Parallel()
	inner := NewError(ErrCyclicGraph, "cycle involving node a")
	wrapped := fmt.Errorf("build failed: %w", inner)

	e, ok := AsError(wrapped)
	require.True(t, ok)
	assert.Equal(t, ErrCyclicGraph, e.Code)

	_, ok = AsError(errors.New("plain"))
	assert.False(t, ok)
}

func TestIsCode(t *testing.T) {
	t.Parallel()
	err := NewError(ErrNodeNotFound, "no such node")
	assert.True(t, IsCode(err, ErrNodeNotFound))
	assert.False(t, IsCode(err, ErrStepFailed))
	assert.False(t, IsCode(errors.New("plain"), ErrNodeNotFound))
}

func TestIsRetryable(t *testing.T) {
	t.Parallel()
	assert.True(t, IsRetryable(NewError(ErrStepFailed, "x").WithRetryable(true)))
	assert.False(t, IsRetryable(NewError(ErrStepFailed, "x")))
	assert.False(t, IsRetryable(errors.New("plain")))
}

func TestIsCancelled(t *testing.T) {
	t.Parallel()
	assert.True(t, IsCancelled(NewError(ErrCancelled, "stopped")))
	assert.True(t, IsCancelled(context.Canceled))
	assert.True(t, IsCancelled(fmt.Errorf("run aborted: %w", context.DeadlineExceeded)))
	assert.False(t, IsCancelled(NewError(ErrStepFailed, "x")))
}

func TestUsage_Add(t *testing.T) {
	t.Parallel()
	var u Usage
	assert.True(t, u.IsZero())

	u.Add(Usage{PromptTokens: 10, CompletionTokens: 5, TotalTokens: 15, Cost: 0.01})
	u.Add(Usage{PromptTokens: 2, CompletionTokens: 3, TotalTokens: 5, Cost: 0.002})

	assert.Equal(t, 12, u.PromptTokens)
	assert.Equal(t, 8, u.CompletionTokens)
	assert.Equal(t, 20, u.TotalTokens)
	assert.InDelta(t, 0.012, u.Cost, 1e-9)
	assert.False(t, u.IsZero())
}
