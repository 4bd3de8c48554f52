package step

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/graphweave/graphweave/types"
)

// StubInvoker is an offline Invoker for demos and tests. It produces
// deterministic canned responses derived from the request, with an optional
// artificial delay, and reports synthetic usage proportional to the prompt
// length.
type StubInvoker struct {
	// Delay is applied before every response.
	Delay time.Duration
	// ChunkSize controls how many characters each streamed chunk carries.
	// Zero means 16.
	ChunkSize int
}

func (s *StubInvoker) Invoke(ctx context.Context, req Request) (*Result, error) {
	if s.Delay > 0 {
		select {
		case <-time.After(s.Delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	usage := types.Usage{
		PromptTokens:     len(req.Prompt) / 4,
		CompletionTokens: 24,
	}
	usage.TotalTokens = usage.PromptTokens + usage.CompletionTokens

	switch req.Operation {
	case OpExtract:
		if len(req.Schema) == 0 {
			return nil, types.NewError(types.ErrConfiguration, "extract request has no schema")
		}
		return &Result{
			Output: map[string]any{"source": firstLine(req.Prompt)},
			Usage:  usage,
		}, nil
	case OpSearch:
		return &Result{
			Output: []any{
				map[string]any{"title": "Result for " + firstLine(req.Prompt), "url": "https://example.com"},
			},
			Usage: usage,
		}, nil
	case OpImage, OpSpeech:
		return &Result{
			Output: map[string]any{"uri": fmt.Sprintf("stub://%s/%d", req.Operation, len(req.Prompt))},
			Usage:  usage,
		}, nil
	default:
		return &Result{
			Text:  fmt.Sprintf("[%s] %s", req.Model, firstLine(req.Prompt)),
			Usage: usage,
		}, nil
	}
}

// InvokeStream delivers the completion text as a sequence of chunks.
func (s *StubInvoker) InvokeStream(ctx context.Context, req Request) (<-chan Chunk, error) {
	res, err := s.Invoke(ctx, req)
	if err != nil {
		return nil, err
	}

	size := s.ChunkSize
	if size <= 0 {
		size = 16
	}

	out := make(chan Chunk)
	go func() {
		defer close(out)
		text := res.Text
		index := 0
		for len(text) > 0 {
			n := size
			if n > len(text) {
				n = len(text)
			}
			chunk := Chunk{Text: text[:n], Index: index, Final: n == len(text)}
			select {
			case out <- chunk:
			case <-ctx.Done():
				return
			}
			text = text[n:]
			index++
		}
	}()
	return out, nil
}

func firstLine(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i]
	}
	return s
}
