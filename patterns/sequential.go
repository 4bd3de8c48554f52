package patterns

import (
	"context"
	"fmt"
	"strings"

	"github.com/graphweave/graphweave/events"
	"github.com/graphweave/graphweave/types"
)

// SequentialStep is one stage of a sequential run. The prompt may reference
// the previous stage's output as {{input}}.
type SequentialStep struct {
	Name   string
	Prompt string
}

// Sequential runs a list of steps in order, threading each step's output
// forward as the next step's input. The first step failure aborts the run.
type Sequential struct {
	Steps []SequentialStep
}

// NewSequential creates a sequential pattern. With no steps it runs the
// default summarize, extract-keywords, generate-title chain.
func NewSequential(steps ...SequentialStep) *Sequential {
	if len(steps) == 0 {
		steps = []SequentialStep{
			{Name: "summarize", Prompt: "Summarize the following text in one short paragraph:\n\n{{input}}"},
			{Name: "extract-keywords", Prompt: "List the five most important keywords in the following text, comma separated:\n\n{{input}}"},
			{Name: "generate-title", Prompt: "Write a concise title for the following text:\n\n{{input}}"},
		}
	}
	return &Sequential{Steps: steps}
}

func (p *Sequential) Name() string { return "sequential" }

func (p *Sequential) Execute(ctx context.Context, rt *Runtime, req *Request) (*WorkflowResult, error) {
	result := &WorkflowResult{}
	current := req.Input

	for i, st := range p.Steps {
		if err := checkCancelled(ctx); err != nil {
			return nil, err
		}

		prompt := strings.ReplaceAll(st.Prompt, "{{input}}", current)
		text, usage, err := rt.complete(ctx, req.Model, prompt)
		if err != nil {
			return nil, types.NewError(types.ErrStepFailed,
				fmt.Sprintf("step %d (%s)", i+1, st.Name)).WithCause(err)
		}
		result.Usage.Add(usage)

		rt.emit(events.KindStepComplete, map[string]any{
			"step":      st.Name,
			"stepIndex": i,
			"output":    text,
		})
		current = text
	}

	result.Output = current
	return result, nil
}
