package graph

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
)

// placeholderRe matches {{name}} and {{name.property}} placeholders.
var placeholderRe = regexp.MustCompile(`\{\{\s*([^{}\s]+)\s*\}\}`)

// reservedDataProperty means "the whole output, serialized" when used as the
// property of a {{name.property}} placeholder.
const reservedDataProperty = "data"

// ResolveVariables substitutes {{...}} placeholders in template against a
// snapshot of node outputs. Recognized forms, in precedence order:
//
//  1. {{input}} — the output of the first upstream node wired into the
//     current node.
//  2. {{name}} — the output of a node whose id, name, or label matches,
//     case-sensitively first, then case-insensitively.
//  3. {{name.property}} — one property of a structured output; the reserved
//     property "data" yields the whole output serialized.
//
// Scalar values are stringified as-is; structured values are
// JSON-serialized. Unresolved placeholders are left verbatim so partially
// connected graphs remain inspectable — resolution never fails.
func ResolveVariables(template, currentID string, g *Graph, outputs map[string]any) string {
	if g == nil || !strings.Contains(template, "{{") {
		return template
	}

	return placeholderRe.ReplaceAllStringFunc(template, func(match string) string {
		name := placeholderRe.FindStringSubmatch(match)[1]

		if name == "input" {
			if cur, ok := g.Node(currentID); ok {
				if srcID, ok := cur.firstInputSource(); ok {
					if v, ok := outputs[srcID]; ok {
						return Stringify(v)
					}
				}
			}
			return match
		}

		name, property, hasProperty := strings.Cut(name, ".")
		v, ok := lookupOutput(g, outputs, name)
		if !ok {
			return match
		}
		if !hasProperty {
			return Stringify(v)
		}
		if property == reservedDataProperty {
			return Stringify(v)
		}
		if m, ok := asMap(v); ok {
			if pv, ok := m[property]; ok {
				return Stringify(pv)
			}
		}
		return match
	})
}

// lookupOutput finds a recorded output by node id, name, or label —
// case-sensitively first, then case-insensitively.
func lookupOutput(g *Graph, outputs map[string]any, name string) (any, bool) {
	for _, n := range g.Nodes() {
		if n.ID == name || n.Name == name || n.Label == name {
			if v, ok := outputs[n.ID]; ok {
				return v, true
			}
		}
	}
	for _, n := range g.Nodes() {
		if strings.EqualFold(n.ID, name) || strings.EqualFold(n.Name, name) || strings.EqualFold(n.Label, name) {
			if v, ok := outputs[n.ID]; ok {
				return v, true
			}
		}
	}
	return nil, false
}

// Stringify renders a node output for substitution: strings pass through,
// other scalars format naturally, structured values JSON-serialize.
func Stringify(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case []byte:
		return string(t)
	case bool, int, int8, int16, int32, int64,
		uint, uint8, uint16, uint32, uint64,
		float32, float64:
		return fmt.Sprintf("%v", t)
	default:
		data, err := json.Marshal(t)
		if err != nil {
			return fmt.Sprintf("%v", t)
		}
		return string(data)
	}
}

// asMap coerces a structured value into a map, using a JSON round-trip for
// struct types.
func asMap(v any) (map[string]any, bool) {
	if m, ok := v.(map[string]any); ok {
		return m, true
	}
	switch v.(type) {
	case nil, string, []byte, bool, int, int8, int16, int32, int64,
		uint, uint8, uint16, uint32, uint64, float32, float64:
		return nil, false
	}
	data, err := json.Marshal(v)
	if err != nil {
		return nil, false
	}
	var m map[string]any
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, false
	}
	return m, true
}
