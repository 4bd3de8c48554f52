package events

import (
	"bytes"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWire_RoundTrip(t *testing.T) {
	t.Parallel()
	var buf bytes.Buffer
	w := NewWireWriter(&buf)

	require.NoError(t, w.Write(Event{Type: KindStart, Timestamp: 1}))
	require.NoError(t, w.Write(Event{
		Type:      KindStepComplete,
		Data:      map[string]any{"step": "summarize", "index": float64(0)},
		Timestamp: 2,
	}))
	require.NoError(t, w.Write(Event{Type: KindComplete, Timestamp: 3}))

	r := NewWireReader(&buf, nil)
	evs, err := r.ReadAll()
	require.NoError(t, err)
	require.Len(t, evs, 3)
	assert.Equal(t, KindStart, evs[0].Type)
	assert.Equal(t, "summarize", evs[1].Data["step"])
	assert.Equal(t, int64(3), evs[2].Timestamp)
	assert.Zero(t, r.Malformed())
}

func TestWire_RecordShape(t *testing.T) {
	t.Parallel()
	var buf bytes.Buffer
	w := NewWireWriter(&buf)
	require.NoError(t, w.Write(Event{Type: KindProgress, Timestamp: 7}))

	out := buf.String()
	assert.True(t, strings.HasPrefix(out, RecordPrefix))
	assert.True(t, strings.HasSuffix(out, "\n\n"))
}

func TestWireReader_SkipsMalformedRecords(t *testing.T) {
	t.Parallel()
	stream := strings.Join([]string{
		`data: {"type":"start","timestamp":1}`,
		`data: {this is not json`,
		`noise without prefix`,
		`data: {"type":"complete","timestamp":2}`,
	}, "\n")

	r := NewWireReader(strings.NewReader(stream), nil)
	evs, err := r.ReadAll()
	require.NoError(t, err)
	require.Len(t, evs, 2)
	assert.Equal(t, KindStart, evs[0].Type)
	assert.Equal(t, KindComplete, evs[1].Type)
	assert.Equal(t, 2, r.Malformed())
}

func TestWireReader_EmptyStream(t *testing.T) {
	t.Parallel()
	r := NewWireReader(strings.NewReader(""), nil)
	_, err := r.Next()
	assert.Equal(t, io.EOF, err)
}

func TestWireWriter_AsChannelSink(t *testing.T) {
	t.Parallel()
	var buf bytes.Buffer
	w := NewWireWriter(&buf)
	ch := NewChannel(nil).WithSink(w.Sink(nil))

	ch.Emit(KindStart, nil)
	ch.Emit(KindError, map[string]any{"message": "boom"})
	ch.Close()

	evs, err := NewWireReader(&buf, nil).ReadAll()
	require.NoError(t, err)
	require.Len(t, evs, 2)
	assert.Equal(t, "boom", evs[1].Data["message"])
}
