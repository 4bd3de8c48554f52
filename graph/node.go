package graph

import (
	"context"
	"encoding/json"
	"time"
)

// Kind defines the type of a graph node.
type Kind string

const (
	// KindInput returns a fixed literal payload supplied at construction.
	KindInput Kind = "input"
	// KindGenerate invokes a text-completion step.
	KindGenerate Kind = "generate"
	// KindExtract invokes a structured-extraction step.
	KindExtract Kind = "extract"
	// KindTransform applies a caller-supplied pure function to its input.
	KindTransform Kind = "transform"
	// KindMerge combines every wired input per a configured strategy.
	KindMerge Kind = "merge"
	// KindCondition applies a predicate and reports the outcome.
	KindCondition Kind = "condition"
	// KindTemplate substitutes placeholders with properties of its input.
	KindTemplate Kind = "template"
	// KindOutput forwards its sole input as the graph's declared result.
	KindOutput Kind = "output"
)

// DefaultSlot is the slot name used when a connection does not name one.
const DefaultSlot = "default"

// PromptSlot is the input slot a generate node reads its prompt from.
const PromptSlot = "prompt"

// DataSlot is the input slot an extract node reads its data from.
const DataSlot = "data"

// Config is the kind-specific, immutable configuration of a node. Exactly
// one variant exists per kind.
type Config interface {
	configKind() Kind
}

// TransformFunc is a caller-supplied pure transform.
type TransformFunc func(ctx context.Context, input any) (any, error)

// PredicateFunc evaluates a condition over a node input.
type PredicateFunc func(ctx context.Context, input any) (bool, error)

// MergeStrategy selects how a merge node combines its inputs.
type MergeStrategy string

const (
	// MergeObject produces a map of slot name to value.
	MergeObject MergeStrategy = "object"
	// MergeArray produces values in slot-declaration order.
	MergeArray MergeStrategy = "array"
	// MergeConcat string-joins stringified values with a separator.
	MergeConcat MergeStrategy = "concat"
)

// InputConfig configures an input node.
type InputConfig struct {
	Value any `json:"value"`
}

// GenerateConfig configures a text-generation node. Prompt is a fallback
// literal used when no upstream node is wired into the prompt slot; it may
// reference other nodes' outputs with {{...}} placeholders.
type GenerateConfig struct {
	Model       string  `json:"model,omitempty"`
	Prompt      string  `json:"prompt,omitempty"`
	Temperature float64 `json:"temperature,omitempty"`
	MaxTokens   int     `json:"max_tokens,omitempty"`
	// CacheTTL enables completion caching through the run's KV store.
	// Zero disables caching for this node.
	CacheTTL time.Duration `json:"cache_ttl,omitempty"`
}

// ExtractConfig configures a structured-extraction node.
type ExtractConfig struct {
	Model  string          `json:"model,omitempty"`
	Data   string          `json:"data,omitempty"`
	Schema json.RawMessage `json:"schema,omitempty"`
}

// TransformConfig configures a transform node. FnName identifies the
// function in a FuncRegistry for serialized definitions; Fn itself does not
// round-trip.
type TransformConfig struct {
	Fn     TransformFunc `json:"-"`
	FnName string        `json:"fn,omitempty"`
}

// MergeConfig configures a merge node. Separator applies to MergeConcat and
// defaults to a newline.
type MergeConfig struct {
	Strategy  MergeStrategy `json:"strategy"`
	Separator string        `json:"separator,omitempty"`
}

// ConditionConfig configures a condition node. PredicateName identifies the
// predicate in a FuncRegistry for serialized definitions.
type ConditionConfig struct {
	Predicate     PredicateFunc `json:"-"`
	PredicateName string        `json:"predicate,omitempty"`
}

// TemplateConfig configures a template node.
type TemplateConfig struct {
	Template string `json:"template"`
}

// OutputConfig configures an output node.
type OutputConfig struct{}

func (InputConfig) configKind() Kind     { return KindInput }
func (GenerateConfig) configKind() Kind  { return KindGenerate }
func (ExtractConfig) configKind() Kind   { return KindExtract }
func (TransformConfig) configKind() Kind { return KindTransform }
func (MergeConfig) configKind() Kind     { return KindMerge }
func (ConditionConfig) configKind() Kind { return KindCondition }
func (TemplateConfig) configKind() Kind  { return KindTemplate }
func (OutputConfig) configKind() Kind    { return KindOutput }

// SlotRef names one end of an edge: a node and one of its slots.
type SlotRef struct {
	NodeID string `json:"node_id"`
	Slot   string `json:"slot"`
}

// Node is a single unit of computation in a graph.
type Node struct {
	// ID is unique within the owning graph.
	ID string
	// Name and Label are optional display identifiers; the variable
	// resolver matches placeholders against all three.
	Name  string
	Label string
	// Kind is derived from the Config variant.
	Kind Kind
	// Config is the kind-specific configuration, immutable after creation.
	Config Config

	// inputs maps input slot names to the id of the node supplying them.
	inputs map[string]string
	// inputOrder records slot wiring order; merge array/concat strategies
	// and "first upstream" resolution depend on it.
	inputOrder []string
	// outputs maps output slot names to downstream (node, slot) targets.
	outputs map[string][]SlotRef

	// result is set at most once per execution pass.
	result   any
	executed bool
}

// NewNode creates a node with the kind implied by cfg.
func NewNode(id string, cfg Config) *Node {
	return &Node{
		ID:      id,
		Kind:    cfg.configKind(),
		Config:  cfg,
		inputs:  make(map[string]string),
		outputs: make(map[string][]SlotRef),
	}
}

// WithName sets the display name.
func (n *Node) WithName(name string) *Node {
	n.Name = name
	return n
}

// WithLabel sets the display label.
func (n *Node) WithLabel(label string) *Node {
	n.Label = label
	return n
}

// Result returns the cached result and whether the node has executed.
func (n *Node) Result() (any, bool) {
	return n.result, n.executed
}

// InputSlots returns the wired input slot names in wiring order.
func (n *Node) InputSlots() []string {
	out := make([]string, len(n.inputOrder))
	copy(out, n.inputOrder)
	return out
}

// InputSource returns the id of the node wired into slot.
func (n *Node) InputSource(slot string) (string, bool) {
	id, ok := n.inputs[slot]
	return id, ok
}

// OutputTargets returns the downstream targets of an output slot.
func (n *Node) OutputTargets(slot string) []SlotRef {
	refs := n.outputs[slot]
	out := make([]SlotRef, len(refs))
	copy(out, refs)
	return out
}

// reset clears the cached result so the graph can be re-executed.
func (n *Node) reset() {
	n.result = nil
	n.executed = false
}

// firstInputSource returns the id of the first upstream node wired into any
// input slot, in wiring order.
func (n *Node) firstInputSource() (string, bool) {
	if len(n.inputOrder) == 0 {
		return "", false
	}
	return n.inputs[n.inputOrder[0]], true
}
