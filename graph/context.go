package graph

import (
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/graphweave/graphweave/events"
	"github.com/graphweave/graphweave/step"
	"github.com/graphweave/graphweave/store"
	"github.com/graphweave/graphweave/types"
)

// ExecutionContext carries per-run ephemeral state: the step invoker, the
// progress emitter, an optional KV store for step-result caching, and
// run-level usage accounting. It is created at run start, passed by
// reference into every node execution, and discarded at run end.
type ExecutionContext struct {
	RunID   string
	Invoker step.Invoker
	Events  events.Emitter
	Store   store.Store
	Logger  *zap.Logger
	Metrics *Collector

	mu    sync.Mutex
	usage types.Usage
}

// NewExecutionContext creates a context for one run. Events, Store, Logger,
// and Metrics are optional and attached with the fluent WithX methods.
func NewExecutionContext(invoker step.Invoker) *ExecutionContext {
	return &ExecutionContext{
		RunID:   uuid.NewString(),
		Invoker: invoker,
		Logger:  zap.NewNop(),
	}
}

// WithEvents attaches a progress emitter.
func (ec *ExecutionContext) WithEvents(emitter events.Emitter) *ExecutionContext {
	ec.Events = emitter
	return ec
}

// WithStore attaches the run-scoped KV store.
func (ec *ExecutionContext) WithStore(s store.Store) *ExecutionContext {
	ec.Store = s
	return ec
}

// WithLogger attaches a logger.
func (ec *ExecutionContext) WithLogger(logger *zap.Logger) *ExecutionContext {
	if logger != nil {
		ec.Logger = logger
	}
	return ec
}

// WithMetrics attaches a metrics collector.
func (ec *ExecutionContext) WithMetrics(m *Collector) *ExecutionContext {
	ec.Metrics = m
	return ec
}

// AddUsage accumulates usage reported by a step invocation.
func (ec *ExecutionContext) AddUsage(u types.Usage) {
	ec.mu.Lock()
	defer ec.mu.Unlock()
	ec.usage.Add(u)
}

// Usage returns the accumulated usage for this run.
func (ec *ExecutionContext) Usage() types.Usage {
	ec.mu.Lock()
	defer ec.mu.Unlock()
	return ec.usage
}

// emit forwards a progress event when an emitter is attached.
func (ec *ExecutionContext) emit(kind events.Kind, data map[string]any) {
	if ec.Events != nil {
		ec.Events.Emit(kind, data)
	}
}
