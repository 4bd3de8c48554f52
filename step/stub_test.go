package step

import (
	"context"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStubInvoker_Complete(t *testing.T) {
	t.Parallel()
	inv := &StubInvoker{}
	res, err := inv.Invoke(context.Background(), Request{
		Operation: OpComplete,
		Model:     "test-model",
		Prompt:    "Summarize this text",
	})
	require.NoError(t, err)
	assert.Contains(t, res.Text, "Summarize this text")
	assert.Greater(t, res.Usage.TotalTokens, 0)
	assert.Equal(t, res.Text, res.Value())
}

func TestStubInvoker_ExtractRequiresSchema(t *testing.T) {
	t.Parallel()
	inv := &StubInvoker{}
	_, err := inv.Invoke(context.Background(), Request{Operation: OpExtract, Prompt: "x"})
	require.Error(t, err)

	res, err := inv.Invoke(context.Background(), Request{
		Operation: OpExtract,
		Prompt:    "extract me",
		Schema:    json.RawMessage(`{"type":"object"}`),
	})
	require.NoError(t, err)
	assert.NotNil(t, res.Output)
	assert.Equal(t, res.Output, res.Value())
}

func TestStubInvoker_DelayRespectsCancellation(t *testing.T) {
	t.Parallel()
	inv := &StubInvoker{Delay: time.Minute}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := inv.Invoke(ctx, Request{Operation: OpComplete, Prompt: "x"})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestStubInvoker_Stream(t *testing.T) {
	t.Parallel()
	inv := &StubInvoker{ChunkSize: 4}
	ch, err := inv.InvokeStream(context.Background(), Request{
		Operation: OpComplete,
		Model:     "m",
		Prompt:    "stream me please",
	})
	require.NoError(t, err)

	var sb strings.Builder
	last := Chunk{Index: -1}
	for c := range ch {
		assert.Equal(t, last.Index+1, c.Index)
		sb.WriteString(c.Text)
		last = c
	}
	assert.True(t, last.Final)
	assert.Contains(t, sb.String(), "stream me please")
}

func TestInvokerFunc(t *testing.T) {
	t.Parallel()
	inv := InvokerFunc(func(ctx context.Context, req Request) (*Result, error) {
		return &Result{Text: "ok"}, nil
	})
	res, err := inv.Invoke(context.Background(), Request{})
	require.NoError(t, err)
	assert.Equal(t, "ok", res.Text)
}
