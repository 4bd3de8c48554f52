package patterns

import (
	"context"
	"fmt"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/graphweave/graphweave/events"
	"github.com/graphweave/graphweave/types"
)

// Complex runs a technical and a business analysis over the input, reports
// both with parallel-analysis-complete, then synthesizes them into one
// conclusion. The analyses run sequentially by default; Concurrent runs them
// in parallel, in which case the per-analysis step-complete events reflect
// actual completion order while parallel-analysis-complete still waits for
// both.
type Complex struct {
	Concurrent bool
}

// NewComplex creates the complex pattern in sequential mode.
func NewComplex() *Complex {
	return &Complex{}
}

func (p *Complex) Name() string { return "complex" }

const (
	technicalPrompt = "Analyze the following text from a technical perspective:\n\n{{input}}"
	businessPrompt  = "Analyze the following text from a business perspective:\n\n{{input}}"
	synthesisPrompt = "Combine the two analyses below into one conclusion.\n\nTechnical analysis:\n{{technical}}\n\nBusiness analysis:\n{{business}}"
)

func (p *Complex) Execute(ctx context.Context, rt *Runtime, req *Request) (*WorkflowResult, error) {
	result := &WorkflowResult{}

	var technical, business string
	var err error
	if p.Concurrent {
		technical, business, err = p.analyzeConcurrently(ctx, rt, req, result)
	} else {
		technical, business, err = p.analyzeSequentially(ctx, rt, req, result)
	}
	if err != nil {
		return nil, err
	}

	rt.emit(events.KindParallelAnalysisComplete, map[string]any{
		"technical": technical,
		"business":  business,
	})

	if err := checkCancelled(ctx); err != nil {
		return nil, err
	}

	prompt := strings.NewReplacer(
		"{{technical}}", technical,
		"{{business}}", business,
	).Replace(synthesisPrompt)
	synthesis, usage, err := rt.complete(ctx, req.Model, prompt)
	if err != nil {
		return nil, types.NewError(types.ErrStepFailed, "synthesis step").WithCause(err)
	}
	result.Usage.Add(usage)

	rt.emit(events.KindSynthesisComplete, map[string]any{
		"result": synthesis,
	})

	result.Output = synthesis
	return result, nil
}

func (p *Complex) analyzeSequentially(ctx context.Context, rt *Runtime, req *Request, result *WorkflowResult) (string, string, error) {
	technical, tu, err := p.analyze(ctx, rt, req, "technical-analysis", technicalPrompt)
	if err != nil {
		return "", "", err
	}
	result.Usage.Add(tu)

	business, bu, err := p.analyze(ctx, rt, req, "business-analysis", businessPrompt)
	if err != nil {
		return "", "", err
	}
	result.Usage.Add(bu)
	return technical, business, nil
}

func (p *Complex) analyzeConcurrently(ctx context.Context, rt *Runtime, req *Request, result *WorkflowResult) (string, string, error) {
	var technical, business string
	var tu, bu types.Usage

	eg, egCtx := errgroup.WithContext(ctx)
	eg.Go(func() error {
		out, usage, err := p.analyze(egCtx, rt, req, "technical-analysis", technicalPrompt)
		if err != nil {
			return err
		}
		technical, tu = out, usage
		return nil
	})
	eg.Go(func() error {
		out, usage, err := p.analyze(egCtx, rt, req, "business-analysis", businessPrompt)
		if err != nil {
			return err
		}
		business, bu = out, usage
		return nil
	})

	if err := eg.Wait(); err != nil {
		return "", "", err
	}
	result.Usage.Add(tu)
	result.Usage.Add(bu)
	return technical, business, nil
}

func (p *Complex) analyze(ctx context.Context, rt *Runtime, req *Request, name, promptTemplate string) (string, types.Usage, error) {
	if err := checkCancelled(ctx); err != nil {
		return "", types.Usage{}, err
	}

	prompt := strings.ReplaceAll(promptTemplate, "{{input}}", req.Input)
	text, usage, err := rt.complete(ctx, req.Model, prompt)
	if err != nil {
		return "", types.Usage{}, types.NewError(types.ErrStepFailed, fmt.Sprintf("%s step", name)).WithCause(err)
	}

	rt.emit(events.KindStepComplete, map[string]any{
		"step":   name,
		"output": text,
	})
	return text, usage, nil
}
