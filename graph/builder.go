package graph

import (
	"fmt"

	"go.uber.org/zap"
)

// Builder provides a fluent API for assembling graphs. Wiring errors are
// accumulated and surfaced by Build together with full graph validation.
type Builder struct {
	graph  *Graph
	name   string
	logger *zap.Logger
	errs   []error
}

// NewBuilder creates a graph builder.
func NewBuilder(name string) *Builder {
	return &Builder{
		graph:  New(),
		name:   name,
		logger: zap.NewNop(),
	}
}

// WithLogger sets a custom logger.
func (b *Builder) WithLogger(logger *zap.Logger) *Builder {
	if logger != nil {
		b.logger = logger.With(zap.String("component", "graph_builder"))
	}
	return b
}

// AddNode adds a node with the kind implied by cfg and returns a NodeBuilder
// for further configuration.
func (b *Builder) AddNode(id string, cfg Config) *NodeBuilder {
	node := NewNode(id, cfg)
	if err := b.graph.AddNode(node); err != nil {
		b.errs = append(b.errs, err)
	}
	return &NodeBuilder{node: node, parent: b}
}

// Connect wires the default output slot of one node into the default input
// slot of another.
func (b *Builder) Connect(fromID, toID string) *Builder {
	if err := b.graph.Connect(fromID, toID); err != nil {
		b.errs = append(b.errs, err)
	}
	return b
}

// ConnectSlots wires a named output slot into a named input slot.
func (b *Builder) ConnectSlots(fromID, toID, outputSlot, inputSlot string) *Builder {
	if err := b.graph.ConnectSlots(fromID, toID, outputSlot, inputSlot); err != nil {
		b.errs = append(b.errs, err)
	}
	return b
}

// Build validates the assembled graph and returns it.
func (b *Builder) Build() (*Graph, error) {
	if len(b.errs) > 0 {
		return nil, fmt.Errorf("graph %q assembly failed: %w", b.name, b.errs[0])
	}
	if err := b.graph.Validate(); err != nil {
		return nil, fmt.Errorf("graph %q validation failed: %w", b.name, err)
	}

	b.logger.Info("graph built",
		zap.String("name", b.name),
		zap.Int("nodes", b.graph.Len()),
	)
	return b.graph, nil
}

// NodeBuilder configures a single node within a Builder chain.
type NodeBuilder struct {
	node   *Node
	parent *Builder
}

// WithName sets the node's display name.
func (nb *NodeBuilder) WithName(name string) *NodeBuilder {
	nb.node.Name = name
	return nb
}

// WithLabel sets the node's display label.
func (nb *NodeBuilder) WithLabel(label string) *NodeBuilder {
	nb.node.Label = label
	return nb
}

// Done completes node configuration and returns to the Builder.
func (nb *NodeBuilder) Done() *Builder {
	return nb.parent
}
