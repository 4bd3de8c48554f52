// Package step defines the capability boundary between the graph engine and
// the external generative collaborators that do the actual work: text
// completion, structured extraction, image and speech synthesis, web search.
//
// The engine only ever sees the Invoker interface. Provider selection,
// authentication, and rate limiting live behind it and are not the engine's
// concern. Implementations must be safe to call concurrently from multiple
// runs.
package step

import (
	"context"
	"encoding/json"

	"github.com/graphweave/graphweave/types"
)

// Operation selects which capability an invocation exercises.
type Operation string

const (
	// OpComplete produces free-form text from a prompt.
	OpComplete Operation = "complete"
	// OpExtract produces structured data matching a JSON schema.
	OpExtract Operation = "extract"
	// OpImage synthesizes an image from a prompt.
	OpImage Operation = "image"
	// OpSpeech synthesizes speech audio from text.
	OpSpeech Operation = "speech"
	// OpSearch performs a web search.
	OpSearch Operation = "search"
)

// Request describes a single step invocation.
type Request struct {
	Operation Operation       `json:"operation"`
	Model     string          `json:"model,omitempty"`
	Prompt    string          `json:"prompt"`
	Schema    json.RawMessage `json:"schema,omitempty"` // required for OpExtract
	Options   map[string]any  `json:"options,omitempty"`
}

// Result is the outcome of a successful invocation. Text carries the textual
// payload for completion-style operations; Output carries structured payloads
// (extraction results, search hits, media references).
type Result struct {
	Text   string      `json:"text,omitempty"`
	Output any         `json:"output,omitempty"`
	Usage  types.Usage `json:"usage,omitempty"`
}

// Value returns the payload a downstream node should observe: the structured
// output when present, otherwise the text.
func (r *Result) Value() any {
	if r.Output != nil {
		return r.Output
	}
	return r.Text
}

// Invoker is the capability interface implemented by external collaborators:
// given parameters, produce a result or fail.
type Invoker interface {
	Invoke(ctx context.Context, req Request) (*Result, error)
}

// InvokerFunc adapts a function to the Invoker interface.
type InvokerFunc func(ctx context.Context, req Request) (*Result, error)

func (f InvokerFunc) Invoke(ctx context.Context, req Request) (*Result, error) {
	return f(ctx, req)
}

// Chunk is one incremental text delta from a still-running generation.
type Chunk struct {
	Text  string `json:"text"`
	Index int    `json:"index"`
	Final bool   `json:"final"`
}

// StreamingInvoker is implemented by collaborators that can deliver partial
// text incrementally. InvokeStream returns a lazy, finite, non-restartable
// sequence of deltas; the channel is closed by the producer when the
// generation finishes or the context is cancelled. The caller drains it,
// which makes back-pressure and cancellation explicit.
type StreamingInvoker interface {
	Invoker
	InvokeStream(ctx context.Context, req Request) (<-chan Chunk, error)
}
