// Package events implements the ordered progress-event protocol through
// which a workflow run is observed.
//
// A Channel is a single-consumer, append-only sink. Emission is synchronous:
// the writer does not proceed past Emit until the event has been recorded and
// handed to the sink, and concurrent writers (the parallel pattern's tasks)
// are serialized so no payload is ever interleaved mid-record.
package events

import (
	"sync"
	"time"

	"go.uber.org/zap"
)

// Kind identifies the type of a progress event.
type Kind string

const (
	KindStart                    Kind = "start"
	KindProgress                 Kind = "progress"
	KindStepComplete             Kind = "step-complete"
	KindParallelComplete         Kind = "parallel-complete"
	KindParallelAnalysisComplete Kind = "parallel-analysis-complete"
	KindConditionEvaluated       Kind = "condition-evaluated"
	KindBranchExecuted           Kind = "branch-executed"
	KindSynthesisComplete        Kind = "synthesis-complete"
	KindRetryComplete            Kind = "retry-complete"
	KindTextChunk                Kind = "text-chunk"
	KindComplete                 Kind = "complete"
	KindError                    Kind = "error"
)

// Terminal reports whether k ends a run. Every run emits exactly one
// terminal event short of process termination.
func (k Kind) Terminal() bool {
	return k == KindComplete || k == KindError
}

// Event is a single progress record.
type Event struct {
	Type Kind           `json:"type"`
	Data map[string]any `json:"data,omitempty"`
	// Timestamp is milliseconds since the Unix epoch, strictly increasing
	// within one channel.
	Timestamp int64 `json:"timestamp"`
}

// Emitter is the write side of a progress channel.
type Emitter interface {
	Emit(kind Kind, data map[string]any)
}

// Sink receives each event synchronously as it is emitted.
type Sink func(Event)

// Channel is an append-only, ordered progress-event sink for one run.
// The zero value is not usable; use NewChannel.
type Channel struct {
	mu     sync.Mutex
	logger *zap.Logger
	sink   Sink
	events []Event
	lastTS int64
	closed bool
}

// NewChannel creates a progress channel. A nil logger defaults to a no-op.
func NewChannel(logger *zap.Logger) *Channel {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Channel{
		logger: logger.With(zap.String("component", "progress_channel")),
	}
}

// WithSink attaches a consumer callback invoked synchronously for every
// emitted event, in emission order.
func (c *Channel) WithSink(sink Sink) *Channel {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sink = sink
	return c
}

// Emit appends an event with a strictly increasing timestamp and hands it to
// the sink before returning. Events emitted after Close are dropped.
func (c *Channel) Emit(kind Kind, data map[string]any) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		c.logger.Debug("event dropped after close", zap.String("type", string(kind)))
		return
	}

	ts := time.Now().UnixMilli()
	if ts <= c.lastTS {
		ts = c.lastTS + 1
	}
	c.lastTS = ts

	ev := Event{Type: kind, Data: data, Timestamp: ts}
	c.events = append(c.events, ev)
	if c.sink != nil {
		c.sink(ev)
	}
}

// Close seals the channel. Closing twice is a no-op. The owner closes the
// channel exactly once, after the terminal event has been emitted.
func (c *Channel) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
}

// Closed reports whether the channel has been sealed.
func (c *Channel) Closed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

// Events returns a snapshot of all events emitted so far, in order.
func (c *Channel) Events() []Event {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]Event, len(c.events))
	copy(out, c.events)
	return out
}

// Len returns the number of emitted events.
func (c *Channel) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.events)
}
