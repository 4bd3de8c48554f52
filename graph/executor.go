package graph

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/graphweave/graphweave/types"
)

// Executor walks a graph in dependency order and produces a map of every
// node's result, executing each node at most once.
//
// The walk uses an explicit worklist rather than recursive pull-based
// evaluation: a node is executed only after all nodes wired into its input
// slots have finished, a visited state prevents re-entry, and a back edge
// surfaces as a CYCLIC_GRAPH error instead of unbounded recursion. A
// diamond-shaped dependency therefore executes the shared ancestor exactly
// once, and both dependents observe the same cached result.
type Executor struct {
	logger *zap.Logger
}

// NewExecutor creates an executor. A nil logger defaults to a no-op.
func NewExecutor(logger *zap.Logger) *Executor {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Executor{
		logger: logger.With(zap.String("component", "graph_executor")),
	}
}

type visitState uint8

const (
	stateUnvisited visitState = iota
	stateVisiting
	stateDone
)

// Execute runs every node of the graph and returns all results keyed by
// node id. A step failure aborts the whole run and propagates synchronously;
// the executor itself never retries or routes around a failed node.
// Cancellation stops the run before the next node is scheduled.
func (e *Executor) Execute(ctx context.Context, g *Graph, ec *ExecutionContext) (map[string]any, error) {
	if g == nil {
		return nil, types.NewError(types.ErrConfiguration, "graph cannot be nil")
	}
	if ec == nil || ec.Invoker == nil {
		return nil, types.NewError(types.ErrConfiguration, "execution context must carry an invoker")
	}
	if err := g.Validate(); err != nil {
		return nil, err
	}

	e.logger.Info("starting graph execution",
		zap.String("run_id", ec.RunID),
		zap.Int("nodes", g.Len()),
	)
	start := time.Now()

	state := make(map[string]visitState, g.Len())
	results := make(map[string]any, g.Len())

	for _, rootID := range g.order {
		if err := e.visit(ctx, g, ec, rootID, state, results); err != nil {
			e.logger.Error("graph execution failed",
				zap.String("run_id", ec.RunID),
				zap.Error(err),
			)
			return nil, err
		}
	}

	e.logger.Info("graph execution completed",
		zap.String("run_id", ec.RunID),
		zap.Int("nodes_executed", len(results)),
		zap.Duration("duration", time.Since(start)),
	)
	return results, nil
}

// visit drives one depth-first descent with an explicit stack.
func (e *Executor) visit(ctx context.Context, g *Graph, ec *ExecutionContext, rootID string, state map[string]visitState, results map[string]any) error {
	stack := []string{rootID}

	for len(stack) > 0 {
		id := stack[len(stack)-1]
		if state[id] == stateDone {
			stack = stack[:len(stack)-1]
			continue
		}

		n, ok := g.Node(id)
		if !ok {
			return types.NewError(types.ErrNodeNotFound, fmt.Sprintf("node %q not in graph", id))
		}

		// Memoized from an earlier pass over a non-reset graph.
		if n.executed {
			state[id] = stateDone
			results[id] = n.result
			stack = stack[:len(stack)-1]
			continue
		}

		state[id] = stateVisiting

		ready := true
		for _, slot := range n.inputOrder {
			depID := n.inputs[slot]
			switch state[depID] {
			case stateDone:
			case stateVisiting:
				return types.NewError(types.ErrCyclicGraph,
					fmt.Sprintf("cycle detected involving nodes %q and %q", id, depID)).WithNode(id)
			default:
				stack = append(stack, depID)
				ready = false
			}
			if !ready {
				break
			}
		}
		if !ready {
			continue
		}

		// No new work is scheduled once the run is cancelled; in-flight
		// step calls are interrupted by their own context handling.
		if err := ctx.Err(); err != nil {
			return types.NewError(types.ErrCancelled, "run cancelled").WithCause(err)
		}

		if err := e.executeNode(ctx, g, ec, n, results); err != nil {
			return err
		}
		state[id] = stateDone
		stack = stack[:len(stack)-1]
	}
	return nil
}

func (e *Executor) executeNode(ctx context.Context, g *Graph, ec *ExecutionContext, n *Node, results map[string]any) error {
	e.logger.Debug("executing node",
		zap.String("run_id", ec.RunID),
		zap.String("node_id", n.ID),
		zap.String("kind", string(n.Kind)),
	)
	start := time.Now()

	out, err := n.execute(ctx, ec, g)
	duration := time.Since(start)
	ec.Metrics.ObserveNode(n.Kind, duration, err)

	if err != nil {
		e.logger.Error("node execution failed",
			zap.String("node_id", n.ID),
			zap.String("kind", string(n.Kind)),
			zap.Duration("duration", duration),
			zap.Error(err),
		)
		return err
	}

	n.result = out
	n.executed = true
	results[n.ID] = out

	e.logger.Debug("node execution completed",
		zap.String("node_id", n.ID),
		zap.Duration("duration", duration),
	)
	return nil
}
