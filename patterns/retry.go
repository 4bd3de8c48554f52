package patterns

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/graphweave/graphweave/events"
	"github.com/graphweave/graphweave/types"
)

// Retry attempts a single task up to MaxRetries+1 times with exponential
// backoff between attempts: BaseDelay, 2*BaseDelay, 4*BaseDelay, and so on.
// Each wait is announced with a progress event. Success emits retry-complete
// with the attempt count; exhausting all attempts fails the run with the last
// error and the attempt count attached.
type Retry struct {
	// MaxRetries is the number of re-attempts after the first try.
	MaxRetries int
	// BaseDelay is the wait before the second attempt. Defaults to one
	// second.
	BaseDelay time.Duration
	// Prompt overrides the default task prompt.
	Prompt string

	// sleep is swapped out in tests.
	sleep func(ctx context.Context, d time.Duration) error
}

// NewRetry creates a retry pattern with three re-attempts and a one second
// base delay.
func NewRetry() *Retry {
	return &Retry{MaxRetries: 3, BaseDelay: time.Second}
}

func (p *Retry) Name() string { return "retry" }

func (p *Retry) Execute(ctx context.Context, rt *Runtime, req *Request) (*WorkflowResult, error) {
	baseDelay := p.BaseDelay
	if baseDelay <= 0 {
		baseDelay = time.Second
	}
	sleep := p.sleep
	if sleep == nil {
		sleep = waitFor
	}

	prompt := p.Prompt
	if prompt == "" {
		prompt = "Answer the following request:\n\n{{input}}"
	}
	prompt = strings.ReplaceAll(prompt, "{{input}}", req.Input)

	var lastErr error
	for attempt := 0; attempt <= p.MaxRetries; attempt++ {
		if err := checkCancelled(ctx); err != nil {
			return nil, err
		}

		text, usage, err := rt.complete(ctx, req.Model, prompt)
		if err == nil {
			attempts := attempt + 1
			rt.emit(events.KindRetryComplete, map[string]any{
				"attempts": attempts,
				"result":   text,
			})
			return &WorkflowResult{Output: text, Attempts: attempts, Usage: usage}, nil
		}
		lastErr = err
		if types.IsCancelled(err) {
			return nil, err
		}

		if attempt < p.MaxRetries {
			delay := baseDelay << attempt
			rt.emit(events.KindProgress, map[string]any{
				"status":  "backoff",
				"attempt": attempt + 1,
				"delayMs": delay.Milliseconds(),
			})
			if err := sleep(ctx, delay); err != nil {
				return nil, types.NewError(types.ErrCancelled, "run cancelled during backoff").WithCause(err)
			}
		}
	}

	attempts := p.MaxRetries + 1
	return nil, types.NewError(types.ErrStepFailed,
		fmt.Sprintf("task failed after %d attempts", attempts)).
		WithAttempts(attempts).
		WithCause(lastErr)
}

// waitFor blocks for d or until ctx is cancelled.
func waitFor(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
