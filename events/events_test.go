package events

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestChannel_EmitOrdering(t *testing.T) {
	t.Parallel()
	ch := NewChannel(nil)

	ch.Emit(KindStart, map[string]any{"pattern": "sequential"})
	ch.Emit(KindStepComplete, map[string]any{"step": "summarize"})
	ch.Emit(KindComplete, map[string]any{"finalOutput": "done"})

	evs := ch.Events()
	require.Len(t, evs, 3)
	assert.Equal(t, KindStart, evs[0].Type)
	assert.Equal(t, KindStepComplete, evs[1].Type)
	assert.Equal(t, KindComplete, evs[2].Type)
}

func TestChannel_TimestampsStrictlyIncrease(t *testing.T) {
	t.Parallel()
	ch := NewChannel(nil)
	for i := 0; i < 100; i++ {
		ch.Emit(KindProgress, nil)
	}

	evs := ch.Events()
	for i := 1; i < len(evs); i++ {
		assert.Greater(t, evs[i].Timestamp, evs[i-1].Timestamp)
	}
}

func TestChannel_SinkSynchronous(t *testing.T) {
	t.Parallel()
	var seen []Kind
	ch := NewChannel(nil).WithSink(func(ev Event) {
		seen = append(seen, ev.Type)
	})

	ch.Emit(KindStart, nil)
	// The sink must already have observed the event when Emit returns.
	require.Len(t, seen, 1)
	assert.Equal(t, KindStart, seen[0])
}

func TestChannel_NoEmissionAfterClose(t *testing.T) {
	t.Parallel()
	ch := NewChannel(nil)
	ch.Emit(KindStart, nil)
	ch.Close()
	ch.Close() // idempotent
	ch.Emit(KindComplete, nil)

	assert.True(t, ch.Closed())
	assert.Equal(t, 1, ch.Len())
}

func TestChannel_ConcurrentWritersSerialized(t *testing.T) {
	t.Parallel()
	ch := NewChannel(nil)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(task int) {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				ch.Emit(KindStepComplete, map[string]any{"taskIndex": task})
			}
		}(i)
	}
	wg.Wait()

	evs := ch.Events()
	require.Len(t, evs, 400)
	// Serialization shows up as strictly increasing timestamps and
	// self-describing payloads surviving intact.
	for i := 1; i < len(evs); i++ {
		assert.Greater(t, evs[i].Timestamp, evs[i-1].Timestamp)
		assert.Contains(t, evs[i].Data, "taskIndex")
	}
}

func TestKind_Terminal(t *testing.T) {
	t.Parallel()
	assert.True(t, KindComplete.Terminal())
	assert.True(t, KindError.Terminal())
	assert.False(t, KindStart.Terminal())
	assert.False(t, KindStepComplete.Terminal())
}
