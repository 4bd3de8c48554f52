// Package graphweave provides a top-level convenience entry point for
// building and running AI workflow graphs with minimal boilerplate.
//
// Usage:
//
//	import "github.com/graphweave/graphweave"
//
//	g, err := graphweave.NewBuilder("pipeline").
//		AddNode("in", graphweave.InputConfig{Value: "some text"}).Done().
//		AddNode("gen", graphweave.GenerateConfig{Model: "gpt-4o-mini"}).Done().
//		Connect("in", "gen").
//		Build()
//
//	ec := graphweave.NewExecutionContext(invoker)
//	results, err := graphweave.NewExecutor(nil).Execute(ctx, g, ec)
//
// This is a thin wrapper over the graph and patterns packages; both produce
// identical results. Use this package when you prefer the shorter import
// path.
package graphweave

import (
	"context"

	"github.com/graphweave/graphweave/graph"
	"github.com/graphweave/graphweave/patterns"
)

// Graph assembly.
type (
	Graph           = graph.Graph
	Builder         = graph.Builder
	Node            = graph.Node
	InputConfig     = graph.InputConfig
	GenerateConfig  = graph.GenerateConfig
	ExtractConfig   = graph.ExtractConfig
	TransformConfig = graph.TransformConfig
	MergeConfig     = graph.MergeConfig
	ConditionConfig = graph.ConditionConfig
	TemplateConfig  = graph.TemplateConfig
	OutputConfig    = graph.OutputConfig
)

// Execution.
type (
	Executor         = graph.Executor
	ExecutionContext = graph.ExecutionContext
)

// Patterns.
type (
	Request        = patterns.Request
	WorkflowResult = patterns.WorkflowResult
	Runtime        = patterns.Runtime
)

// NewBuilder starts assembling a graph.
func NewBuilder(name string) *Builder { return graph.NewBuilder(name) }

// NewExecutor creates a graph executor.
var NewExecutor = graph.NewExecutor

// NewExecutionContext creates the per-run state for one graph execution.
var NewExecutionContext = graph.NewExecutionContext

// NewRuntime creates the collaborator set for a pattern run.
var NewRuntime = patterns.NewRuntime

// RunPattern executes the built-in pattern selected by req.
func RunPattern(ctx context.Context, rt *Runtime, req *Request) (*WorkflowResult, error) {
	return patterns.Run(ctx, rt, req)
}
