package graph

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"

	"github.com/graphweave/graphweave/types"
)

func TestProperty_DependencyOrdering(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100

	properties := gopter.NewProperties(parameters)

	properties.Property("linear chains execute in dependency order, each node once", prop.ForAll(
		func(nodeCount int) bool {
			executionOrder := make([]string, 0, nodeCount)

			builder := NewBuilder("dependency-test")
			builder.AddNode("seed", InputConfig{Value: "v"}).Done()
			prev := "seed"
			for i := 0; i < nodeCount; i++ {
				nodeID := fmt.Sprintf("n%d", i)
				id := nodeID
				builder.AddNode(nodeID, TransformConfig{
					Fn: func(ctx context.Context, input any) (any, error) {
						executionOrder = append(executionOrder, id)
						return input, nil
					},
				}).Done()
				builder.Connect(prev, nodeID)
				prev = nodeID
			}

			g, err := builder.Build()
			if err != nil {
				t.Logf("Build failed: %v", err)
				return false
			}

			ec, _ := newTestContext(&mockInvoker{})
			if _, err := NewExecutor(nil).Execute(context.Background(), g, ec); err != nil {
				t.Logf("Execute failed: %v", err)
				return false
			}

			if len(executionOrder) != nodeCount {
				t.Logf("Expected %d executions, got %d", nodeCount, len(executionOrder))
				return false
			}
			for i, id := range executionOrder {
				if id != fmt.Sprintf("n%d", i) {
					t.Logf("Expected n%d at position %d, got %s", i, i, id)
					return false
				}
			}
			return true
		},
		gen.IntRange(1, 10),
	))

	properties.TestingRun(t)
}

func TestProperty_SharedAncestorExecutesOnce(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100

	properties := gopter.NewProperties(parameters)

	properties.Property("a node reachable via multiple paths executes exactly once", prop.ForAll(
		func(fanOut int) bool {
			var calls atomic.Int32

			builder := NewBuilder("memo-test")
			builder.AddNode("seed", InputConfig{Value: "v"}).Done()
			builder.AddNode("shared", TransformConfig{
				Fn: func(ctx context.Context, input any) (any, error) {
					calls.Add(1)
					return input, nil
				},
			}).Done()
			builder.Connect("seed", "shared")

			builder.AddNode("join", MergeConfig{Strategy: MergeArray}).Done()
			for i := 0; i < fanOut; i++ {
				branchID := fmt.Sprintf("branch%d", i)
				builder.AddNode(branchID, TransformConfig{
					Fn: func(ctx context.Context, input any) (any, error) {
						return input, nil
					},
				}).Done()
				builder.Connect("shared", branchID)
				builder.ConnectSlots(branchID, "join", DefaultSlot, fmt.Sprintf("slot%d", i))
			}

			g, err := builder.Build()
			if err != nil {
				t.Logf("Build failed: %v", err)
				return false
			}

			ec, _ := newTestContext(&mockInvoker{})
			results, err := NewExecutor(nil).Execute(context.Background(), g, ec)
			if err != nil {
				t.Logf("Execute failed: %v", err)
				return false
			}

			if calls.Load() != 1 {
				t.Logf("Expected shared node to execute once, got %d", calls.Load())
				return false
			}
			joined, ok := results["join"].([]any)
			if !ok || len(joined) != fanOut {
				t.Logf("Expected %d joined values, got %v", fanOut, results["join"])
				return false
			}
			for _, v := range joined {
				if v != "v" {
					t.Logf("Dependent observed %v instead of the cached result", v)
					return false
				}
			}
			return true
		},
		gen.IntRange(2, 8),
	))

	properties.TestingRun(t)
}

func TestProperty_CycleDetection(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100

	properties := gopter.NewProperties(parameters)

	properties.Property("chains with a back-edge fail validation", prop.ForAll(
		func(nodeCount int) bool {
			g := New()
			for i := 0; i < nodeCount; i++ {
				if err := g.AddNode(NewNode(fmt.Sprintf("n%d", i), TemplateConfig{Template: "{{input}}"})); err != nil {
					t.Logf("AddNode failed: %v", err)
					return false
				}
			}
			for i := 0; i < nodeCount-1; i++ {
				if err := g.Connect(fmt.Sprintf("n%d", i), fmt.Sprintf("n%d", i+1)); err != nil {
					t.Logf("Connect failed: %v", err)
					return false
				}
			}
			if err := g.Connect(fmt.Sprintf("n%d", nodeCount-1), "n0"); err != nil {
				t.Logf("Back-edge wiring failed: %v", err)
				return false
			}

			err := g.Validate()
			if err == nil {
				t.Logf("Expected cycle detection error, got nil")
				return false
			}
			return types.IsCode(err, types.ErrCyclicGraph)
		},
		gen.IntRange(2, 10),
	))

	properties.TestingRun(t)
}

func TestProperty_ErrorPropagation(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 50

	properties := gopter.NewProperties(parameters)

	properties.Property("a failing node aborts the run and spares its dependents", prop.ForAll(
		func(failAt int) bool {
			const chainLen = 4
			failAt = failAt % chainLen
			if failAt < 0 {
				failAt = -failAt
			}

			expectedErr := errors.New("injected failure")
			executed := make(map[string]bool)

			builder := NewBuilder("error-test")
			builder.AddNode("seed", InputConfig{Value: "v"}).Done()
			prev := "seed"
			for i := 0; i < chainLen; i++ {
				nodeID := fmt.Sprintf("n%d", i)
				id, failing := nodeID, i == failAt
				builder.AddNode(nodeID, TransformConfig{
					Fn: func(ctx context.Context, input any) (any, error) {
						executed[id] = true
						if failing {
							return nil, expectedErr
						}
						return input, nil
					},
				}).Done()
				builder.Connect(prev, nodeID)
				prev = nodeID
			}

			g, err := builder.Build()
			if err != nil {
				t.Logf("Build failed: %v", err)
				return false
			}

			ec, _ := newTestContext(&mockInvoker{})
			_, err = NewExecutor(nil).Execute(context.Background(), g, ec)
			if err == nil {
				t.Logf("Expected error, got nil")
				return false
			}
			if !types.IsCode(err, types.ErrStepFailed) {
				t.Logf("Expected step failure, got %v", err)
				return false
			}
			if !errors.Is(err, expectedErr) {
				t.Logf("Cause not preserved: %v", err)
				return false
			}

			for i := failAt + 1; i < chainLen; i++ {
				if executed[fmt.Sprintf("n%d", i)] {
					t.Logf("Node n%d ran after upstream failure", i)
					return false
				}
			}
			return true
		},
		gen.Int(),
	))

	properties.TestingRun(t)
}
