package patterns

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/graphweave/graphweave/events"
	"github.com/graphweave/graphweave/types"
)

// ParallelTask is one independent unit of a parallel fan-out.
type ParallelTask struct {
	Name   string
	Prompt string
}

// Parallel launches all tasks concurrently, emits a step-complete event per
// task in completion order, then joins every task before reporting.
//
// Failure semantics are collect-all-then-report: every task runs to its own
// completion, and the run fails only after the join, carrying the first
// failure as cause. A partial fan-out never leaks unreported goroutines.
type Parallel struct {
	Tasks []ParallelTask
}

// NewParallel creates a parallel pattern. With no tasks it runs the default
// three-way translation fan-out.
func NewParallel(tasks ...ParallelTask) *Parallel {
	if len(tasks) == 0 {
		tasks = []ParallelTask{
			{Name: "translate-french", Prompt: "Translate the following text to French:\n\n{{input}}"},
			{Name: "translate-spanish", Prompt: "Translate the following text to Spanish:\n\n{{input}}"},
			{Name: "translate-german", Prompt: "Translate the following text to German:\n\n{{input}}"},
		}
	}
	return &Parallel{Tasks: tasks}
}

func (p *Parallel) Name() string { return "parallel" }

type parallelOutcome struct {
	index  int
	task   string
	output string
	usage  types.Usage
	err    error
}

func (p *Parallel) Execute(ctx context.Context, rt *Runtime, req *Request) (*WorkflowResult, error) {
	if len(p.Tasks) == 0 {
		return nil, types.NewError(types.ErrConfiguration, "parallel pattern has no tasks")
	}
	if err := checkCancelled(ctx); err != nil {
		return nil, err
	}

	outcomes := make(chan parallelOutcome, len(p.Tasks))
	var wg sync.WaitGroup

	for i, task := range p.Tasks {
		wg.Add(1)
		go func(index int, t ParallelTask) {
			defer wg.Done()
			prompt := strings.ReplaceAll(t.Prompt, "{{input}}", req.Input)
			text, usage, err := rt.complete(ctx, req.Model, prompt)
			outcomes <- parallelOutcome{
				index:  index,
				task:   t.Name,
				output: text,
				usage:  usage,
				err:    err,
			}
		}(i, task)
	}

	go func() {
		wg.Wait()
		close(outcomes)
	}()

	// Drain in arrival order: a step-complete per finished task, attributed
	// by its declaration index.
	result := &WorkflowResult{}
	ordered := make([]parallelOutcome, len(p.Tasks))
	failed := 0

	for out := range outcomes {
		ordered[out.index] = out
		if out.err != nil {
			failed++
			continue
		}
		result.Usage.Add(out.usage)
		if ctx.Err() == nil {
			rt.emit(events.KindStepComplete, map[string]any{
				"taskIndex": out.index,
				"task":      out.task,
				"output":    out.output,
			})
		}
	}

	if err := checkCancelled(ctx); err != nil {
		return nil, err
	}

	if failed > 0 {
		// Report the first failure in declaration order as the cause.
		for _, out := range ordered {
			if out.err != nil {
				return nil, types.NewError(types.ErrStepFailed,
					fmt.Sprintf("%d of %d parallel tasks failed, first: %s", failed, len(p.Tasks), out.task)).
					WithCause(out.err)
			}
		}
	}

	// The join is complete: report results in task-declaration order
	// regardless of completion order.
	results := make([]any, len(ordered))
	for i, out := range ordered {
		results[i] = map[string]any{
			"task":   out.task,
			"output": out.output,
		}
	}
	rt.emit(events.KindParallelComplete, map[string]any{
		"results": results,
	})

	result.Output = results
	return result, nil
}
