package patterns

import (
	"context"
	"fmt"
	"strings"

	"github.com/graphweave/graphweave/events"
	"github.com/graphweave/graphweave/types"
)

// BranchStep is one of the two pre-declared branches of a conditional run.
type BranchStep struct {
	Name   string
	Prompt string
}

// Conditional evaluates a predicate over the input, then executes exactly one
// of two branches. It emits condition-evaluated with the boolean and the
// measured input length, then branch-executed with the branch tag and result.
type Conditional struct {
	// Predicate decides the branch. Nil defaults to "input longer than 100
	// characters".
	Predicate func(input string) bool

	TrueBranch  BranchStep
	FalseBranch BranchStep
}

// NewConditional creates a conditional pattern with the default
// length-predicate and summarize/expand branches.
func NewConditional() *Conditional {
	return &Conditional{
		TrueBranch: BranchStep{
			Name:   "summarize",
			Prompt: "The following text is long; summarize it in two sentences:\n\n{{input}}",
		},
		FalseBranch: BranchStep{
			Name:   "expand",
			Prompt: "The following text is short; expand it into a detailed paragraph:\n\n{{input}}",
		},
	}
}

func (p *Conditional) Name() string { return "conditional" }

func (p *Conditional) Execute(ctx context.Context, rt *Runtime, req *Request) (*WorkflowResult, error) {
	if err := checkCancelled(ctx); err != nil {
		return nil, err
	}

	predicate := p.Predicate
	if predicate == nil {
		predicate = func(input string) bool { return len(input) > 100 }
	}

	met := predicate(req.Input)
	rt.emit(events.KindConditionEvaluated, map[string]any{
		"conditionMet": met,
		"textLength":   len(req.Input),
	})

	branch, tag := p.FalseBranch, "false"
	if met {
		branch, tag = p.TrueBranch, "true"
	}

	prompt := strings.ReplaceAll(branch.Prompt, "{{input}}", req.Input)
	text, usage, err := rt.complete(ctx, req.Model, prompt)
	if err != nil {
		return nil, types.NewError(types.ErrStepFailed,
			fmt.Sprintf("branch %s (%s)", tag, branch.Name)).WithCause(err)
	}

	rt.emit(events.KindBranchExecuted, map[string]any{
		"branch": tag,
		"step":   branch.Name,
		"result": text,
	})

	return &WorkflowResult{Output: text, Usage: usage}, nil
}
