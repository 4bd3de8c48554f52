package graph

import (
	"encoding/json"
	"fmt"

	"github.com/graphweave/graphweave/types"
)

// Graph is an owned collection of nodes; edges are implied by each node's
// input/output slot maps. A well-formed graph is a DAG: Validate and the
// executor both reject cycles explicitly.
type Graph struct {
	nodes map[string]*Node
	order []string // insertion order, for deterministic walks
}

// New creates an empty graph.
func New() *Graph {
	return &Graph{nodes: make(map[string]*Node)}
}

// AddNode adds a node. Duplicate ids are a configuration error.
func (g *Graph) AddNode(n *Node) error {
	if n == nil || n.ID == "" {
		return types.NewError(types.ErrConfiguration, "node must have an id")
	}
	if _, exists := g.nodes[n.ID]; exists {
		return types.NewError(types.ErrConfiguration, fmt.Sprintf("duplicate node id %q", n.ID))
	}
	g.nodes[n.ID] = n
	g.order = append(g.order, n.ID)
	return nil
}

// Node retrieves a node by id.
func (g *Graph) Node(id string) (*Node, bool) {
	n, ok := g.nodes[id]
	return n, ok
}

// Nodes returns all nodes in insertion order.
func (g *Graph) Nodes() []*Node {
	out := make([]*Node, 0, len(g.order))
	for _, id := range g.order {
		out = append(out, g.nodes[id])
	}
	return out
}

// Len returns the number of nodes.
func (g *Graph) Len() int {
	return len(g.nodes)
}

// Connect records an edge between the default output and input slots.
func (g *Graph) Connect(fromID, toID string) error {
	return g.ConnectSlots(fromID, toID, DefaultSlot, DefaultSlot)
}

// ConnectSlots records an edge from one node's output slot to another's
// input slot, bidirectionally: the source's outputs and the target's inputs
// both learn about it. Both nodes must already belong to the graph.
func (g *Graph) ConnectSlots(fromID, toID, outputSlot, inputSlot string) error {
	from, ok := g.nodes[fromID]
	if !ok {
		return types.NewError(types.ErrNodeNotFound, fmt.Sprintf("source node %q not in graph", fromID))
	}
	to, ok := g.nodes[toID]
	if !ok {
		return types.NewError(types.ErrNodeNotFound, fmt.Sprintf("target node %q not in graph", toID))
	}
	if fromID == toID {
		return types.NewError(types.ErrCyclicGraph, fmt.Sprintf("node %q cannot feed itself", fromID))
	}
	if outputSlot == "" {
		outputSlot = DefaultSlot
	}
	if inputSlot == "" {
		inputSlot = DefaultSlot
	}

	from.outputs[outputSlot] = append(from.outputs[outputSlot], SlotRef{NodeID: toID, Slot: inputSlot})
	if _, wired := to.inputs[inputSlot]; !wired {
		to.inputOrder = append(to.inputOrder, inputSlot)
	}
	to.inputs[inputSlot] = fromID
	return nil
}

// Reset clears every node's cached result for re-execution.
func (g *Graph) Reset() {
	for _, n := range g.nodes {
		n.reset()
	}
}

// OutputSnapshot returns the recorded outputs of every executed node,
// keyed by node id.
func (g *Graph) OutputSnapshot() map[string]any {
	out := make(map[string]any)
	for id, n := range g.nodes {
		if n.executed {
			out[id] = n.result
		}
	}
	return out
}

// Validate checks structural and configuration invariants: every edge
// references a node in the graph, every node's configuration is usable, and
// the graph contains no cycle.
func (g *Graph) Validate() error {
	if len(g.nodes) == 0 {
		return types.NewError(types.ErrConfiguration, "graph has no nodes")
	}

	for id, n := range g.nodes {
		for slot, srcID := range n.inputs {
			if _, ok := g.nodes[srcID]; !ok {
				return types.NewError(types.ErrNodeNotFound,
					fmt.Sprintf("node %q input slot %q references unknown node %q", id, slot, srcID))
			}
		}
		if err := g.validateNodeConfig(n); err != nil {
			return err
		}
	}

	return g.detectCycles()
}

func (g *Graph) validateNodeConfig(n *Node) error {
	switch cfg := n.Config.(type) {
	case InputConfig, OutputConfig, MergeConfig, GenerateConfig:
		// Usable as-is; generate falls back to wired prompt or empty.
	case ExtractConfig:
		if len(cfg.Schema) == 0 {
			return types.NewError(types.ErrConfiguration,
				fmt.Sprintf("extract node %q has no schema", n.ID)).WithNode(n.ID)
		}
		if !json.Valid(cfg.Schema) {
			return types.NewError(types.ErrConfiguration,
				fmt.Sprintf("extract node %q schema is not valid JSON", n.ID)).WithNode(n.ID)
		}
	case TransformConfig:
		if cfg.Fn == nil {
			return types.NewError(types.ErrConfiguration,
				fmt.Sprintf("transform node %q has no function", n.ID)).WithNode(n.ID)
		}
	case ConditionConfig:
		if cfg.Predicate == nil {
			return types.NewError(types.ErrConfiguration,
				fmt.Sprintf("condition node %q has no predicate", n.ID)).WithNode(n.ID)
		}
	case TemplateConfig:
		if cfg.Template == "" {
			return types.NewError(types.ErrConfiguration,
				fmt.Sprintf("template node %q has an empty template", n.ID)).WithNode(n.ID)
		}
	case nil:
		return types.NewError(types.ErrConfiguration,
			fmt.Sprintf("node %q has no configuration", n.ID)).WithNode(n.ID)
	default:
		return types.NewError(types.ErrConfiguration,
			fmt.Sprintf("node %q has unknown configuration %T", n.ID, cfg)).WithNode(n.ID)
	}
	return nil
}

// detectCycles walks input edges depth-first with an explicit recursion
// stack and fails fast on the first back edge.
func (g *Graph) detectCycles() error {
	const (
		unvisited = iota
		visiting
		finished
	)
	state := make(map[string]int, len(g.nodes))

	var walk func(id string) error
	walk = func(id string) error {
		state[id] = visiting
		n := g.nodes[id]
		for _, slot := range n.inputOrder {
			depID := n.inputs[slot]
			switch state[depID] {
			case visiting:
				return types.NewError(types.ErrCyclicGraph,
					fmt.Sprintf("cycle detected involving nodes %q and %q", id, depID)).WithNode(id)
			case unvisited:
				if err := walk(depID); err != nil {
					return err
				}
			}
		}
		state[id] = finished
		return nil
	}

	for _, id := range g.order {
		if state[id] == unvisited {
			if err := walk(id); err != nil {
				return err
			}
		}
	}
	return nil
}
