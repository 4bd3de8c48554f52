package graph

import (
	"encoding/json"
	"fmt"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/graphweave/graphweave/types"
)

// GraphDefinition is the serializable description of a graph: a list of
// node records plus a list of connection records.
type GraphDefinition struct {
	Name        string                 `json:"name,omitempty" yaml:"name,omitempty"`
	Nodes       []NodeDefinition       `json:"nodes" yaml:"nodes"`
	Connections []ConnectionDefinition `json:"connections,omitempty" yaml:"connections,omitempty"`
}

// NodeDefinition is one serialized node.
type NodeDefinition struct {
	ID     string         `json:"id" yaml:"id"`
	Kind   string         `json:"kind" yaml:"kind"`
	Name   string         `json:"name,omitempty" yaml:"name,omitempty"`
	Label  string         `json:"label,omitempty" yaml:"label,omitempty"`
	Config map[string]any `json:"config,omitempty" yaml:"config,omitempty"`
}

// ConnectionDefinition is one serialized edge.
type ConnectionDefinition struct {
	From       string `json:"from" yaml:"from"`
	To         string `json:"to" yaml:"to"`
	OutputSlot string `json:"outputSlot,omitempty" yaml:"output_slot,omitempty"`
	InputSlot  string `json:"inputSlot,omitempty" yaml:"input_slot,omitempty"`
}

// FuncRegistry re-supplies the functions that cannot round-trip through a
// serialized definition. Transform and Condition configs reference entries
// by name.
type FuncRegistry struct {
	Transforms map[string]TransformFunc
	Predicates map[string]PredicateFunc
}

// Definition exports the graph as a serializable description. Transform and
// Condition functions are represented only by their registered names; a
// function without a name is exported as an empty reference and must be
// re-supplied on import.
func (g *Graph) Definition(name string) *GraphDefinition {
	def := &GraphDefinition{Name: name}

	for _, n := range g.Nodes() {
		def.Nodes = append(def.Nodes, NodeDefinition{
			ID:     n.ID,
			Kind:   string(n.Kind),
			Name:   n.Name,
			Label:  n.Label,
			Config: encodeConfig(n.Config),
		})
	}

	for _, n := range g.Nodes() {
		for slot, srcID := range n.inputs {
			src := g.nodes[srcID]
			outSlot := DefaultSlot
			for outName, refs := range src.outputs {
				for _, ref := range refs {
					if ref.NodeID == n.ID && ref.Slot == slot {
						outSlot = outName
					}
				}
			}
			def.Connections = append(def.Connections, ConnectionDefinition{
				From:       srcID,
				To:         n.ID,
				OutputSlot: outSlot,
				InputSlot:  slot,
			})
		}
	}
	return def
}

// FromDefinition reconstructs a graph from a serialized description.
// Functions are looked up in reg by the names recorded in the definition.
func FromDefinition(def *GraphDefinition, reg *FuncRegistry) (*Graph, error) {
	if def == nil {
		return nil, types.NewError(types.ErrConfiguration, "definition cannot be nil")
	}

	g := New()
	for _, nd := range def.Nodes {
		cfg, err := decodeConfig(nd, reg)
		if err != nil {
			return nil, err
		}
		n := NewNode(nd.ID, cfg).WithName(nd.Name).WithLabel(nd.Label)
		if err := g.AddNode(n); err != nil {
			return nil, err
		}
	}

	for _, c := range def.Connections {
		if err := g.ConnectSlots(c.From, c.To, c.OutputSlot, c.InputSlot); err != nil {
			return nil, err
		}
	}

	if err := g.Validate(); err != nil {
		return nil, err
	}
	return g, nil
}

// ToJSON serializes the definition as JSON.
func (d *GraphDefinition) ToJSON() ([]byte, error) {
	return json.MarshalIndent(d, "", "  ")
}

// ToYAML serializes the definition as YAML.
func (d *GraphDefinition) ToYAML() ([]byte, error) {
	return yaml.Marshal(d)
}

// ParseDefinitionJSON parses a JSON-encoded definition.
func ParseDefinitionJSON(data []byte) (*GraphDefinition, error) {
	var def GraphDefinition
	if err := json.Unmarshal(data, &def); err != nil {
		return nil, types.NewError(types.ErrConfiguration, "parse graph definition").WithCause(err)
	}
	return &def, nil
}

// ParseDefinitionYAML parses a YAML-encoded definition.
func ParseDefinitionYAML(data []byte) (*GraphDefinition, error) {
	var def GraphDefinition
	if err := yaml.Unmarshal(data, &def); err != nil {
		return nil, types.NewError(types.ErrConfiguration, "parse graph definition").WithCause(err)
	}
	return &def, nil
}

func encodeConfig(cfg Config) map[string]any {
	out := make(map[string]any)
	switch c := cfg.(type) {
	case InputConfig:
		out["value"] = c.Value
	case GenerateConfig:
		if c.Model != "" {
			out["model"] = c.Model
		}
		if c.Prompt != "" {
			out["prompt"] = c.Prompt
		}
		if c.Temperature != 0 {
			out["temperature"] = c.Temperature
		}
		if c.MaxTokens != 0 {
			out["max_tokens"] = c.MaxTokens
		}
		if c.CacheTTL > 0 {
			out["cache_ttl"] = c.CacheTTL.String()
		}
	case ExtractConfig:
		if c.Model != "" {
			out["model"] = c.Model
		}
		if c.Data != "" {
			out["data"] = c.Data
		}
		if len(c.Schema) > 0 {
			out["schema"] = string(c.Schema)
		}
	case TransformConfig:
		out["fn"] = c.FnName
	case MergeConfig:
		out["strategy"] = string(c.Strategy)
		if c.Separator != "" {
			out["separator"] = c.Separator
		}
	case ConditionConfig:
		out["predicate"] = c.PredicateName
	case TemplateConfig:
		out["template"] = c.Template
	case OutputConfig:
	}
	return out
}

func decodeConfig(nd NodeDefinition, reg *FuncRegistry) (Config, error) {
	c := nd.Config
	switch Kind(nd.Kind) {
	case KindInput:
		return InputConfig{Value: c["value"]}, nil
	case KindGenerate:
		cfg := GenerateConfig{
			Model:       stringField(c, "model"),
			Prompt:      stringField(c, "prompt"),
			Temperature: floatField(c, "temperature"),
			MaxTokens:   intField(c, "max_tokens"),
		}
		if ttl := stringField(c, "cache_ttl"); ttl != "" {
			d, err := time.ParseDuration(ttl)
			if err != nil {
				return nil, types.NewError(types.ErrConfiguration,
					fmt.Sprintf("node %q has invalid cache_ttl %q", nd.ID, ttl)).WithCause(err)
			}
			cfg.CacheTTL = d
		}
		return cfg, nil
	case KindExtract:
		cfg := ExtractConfig{
			Model: stringField(c, "model"),
			Data:  stringField(c, "data"),
		}
		if s := stringField(c, "schema"); s != "" {
			cfg.Schema = json.RawMessage(s)
		}
		return cfg, nil
	case KindTransform:
		name := stringField(c, "fn")
		fn, ok := lookupTransform(reg, name)
		if !ok {
			return nil, types.NewError(types.ErrConfiguration,
				fmt.Sprintf("transform node %q references unregistered function %q", nd.ID, name))
		}
		return TransformConfig{Fn: fn, FnName: name}, nil
	case KindMerge:
		return MergeConfig{
			Strategy:  MergeStrategy(stringField(c, "strategy")),
			Separator: stringField(c, "separator"),
		}, nil
	case KindCondition:
		name := stringField(c, "predicate")
		pred, ok := lookupPredicate(reg, name)
		if !ok {
			return nil, types.NewError(types.ErrConfiguration,
				fmt.Sprintf("condition node %q references unregistered predicate %q", nd.ID, name))
		}
		return ConditionConfig{Predicate: pred, PredicateName: name}, nil
	case KindTemplate:
		return TemplateConfig{Template: stringField(c, "template")}, nil
	case KindOutput:
		return OutputConfig{}, nil
	default:
		return nil, types.NewError(types.ErrConfiguration,
			fmt.Sprintf("node %q has unknown kind %q", nd.ID, nd.Kind))
	}
}

func lookupTransform(reg *FuncRegistry, name string) (TransformFunc, bool) {
	if reg == nil || name == "" {
		return nil, false
	}
	fn, ok := reg.Transforms[name]
	return fn, ok
}

func lookupPredicate(reg *FuncRegistry, name string) (PredicateFunc, bool) {
	if reg == nil || name == "" {
		return nil, false
	}
	pred, ok := reg.Predicates[name]
	return pred, ok
}

func stringField(m map[string]any, key string) string {
	if v, ok := m[key].(string); ok {
		return v
	}
	return ""
}

func floatField(m map[string]any, key string) float64 {
	switch v := m[key].(type) {
	case float64:
		return v
	case int:
		return float64(v)
	}
	return 0
}

func intField(m map[string]any, key string) int {
	switch v := m[key].(type) {
	case int:
		return v
	case float64:
		return int(v)
	}
	return 0
}
