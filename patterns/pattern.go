package patterns

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/graphweave/graphweave/events"
	"github.com/graphweave/graphweave/graph"
	"github.com/graphweave/graphweave/step"
	"github.com/graphweave/graphweave/store"
	"github.com/graphweave/graphweave/types"
)

// Request selects a pattern and seeds it with input.
type Request struct {
	Pattern string `json:"patternName"`
	Model   string `json:"model,omitempty"`
	Input   string `json:"input"`
}

// ParseRequest decodes a JSON run request.
func ParseRequest(data []byte) (*Request, error) {
	var req Request
	if err := json.Unmarshal(data, &req); err != nil {
		return nil, types.NewError(types.ErrConfiguration, "parse run request").WithCause(err)
	}
	if req.Pattern == "" {
		return nil, types.NewError(types.ErrConfiguration, "run request has no patternName")
	}
	return &req, nil
}

// WorkflowResult is the terminal outcome of a successful pattern run.
type WorkflowResult struct {
	Pattern  string
	Output   any
	Attempts int
	Usage    types.Usage
	Duration time.Duration
}

// Runtime carries the collaborators shared by every pattern run: the step
// invoker, the progress emitter, and the optional logger, metrics, and store.
type Runtime struct {
	Invoker step.Invoker
	Events  events.Emitter
	Logger  *zap.Logger
	Metrics *graph.Collector
	Store   store.Store
}

// NewRuntime creates a pattern runtime around an invoker. Collaborators are
// attached with the fluent WithX methods.
func NewRuntime(invoker step.Invoker) *Runtime {
	return &Runtime{
		Invoker: invoker,
		Logger:  zap.NewNop(),
	}
}

// WithEvents attaches a progress emitter.
func (rt *Runtime) WithEvents(emitter events.Emitter) *Runtime {
	rt.Events = emitter
	return rt
}

// WithLogger attaches a logger.
func (rt *Runtime) WithLogger(logger *zap.Logger) *Runtime {
	if logger != nil {
		rt.Logger = logger.With(zap.String("component", "patterns"))
	}
	return rt
}

// WithMetrics attaches a metrics collector.
func (rt *Runtime) WithMetrics(m *graph.Collector) *Runtime {
	rt.Metrics = m
	return rt
}

// WithStore attaches a KV store.
func (rt *Runtime) WithStore(s store.Store) *Runtime {
	rt.Store = s
	return rt
}

// emit forwards a progress event when an emitter is attached.
func (rt *Runtime) emit(kind events.Kind, data map[string]any) {
	if rt.Events != nil {
		rt.Events.Emit(kind, data)
	}
}

// complete performs one text-completion step call.
func (rt *Runtime) complete(ctx context.Context, model, prompt string) (string, types.Usage, error) {
	res, err := rt.Invoker.Invoke(ctx, step.Request{
		Operation: step.OpComplete,
		Model:     model,
		Prompt:    prompt,
	})
	if err != nil {
		return "", types.Usage{}, err
	}
	return res.Text, res.Usage, nil
}

// Pattern is one orchestration strategy. Execute emits the pattern's
// intermediate events; the start and terminal events are owned by Run.
type Pattern interface {
	Name() string
	Execute(ctx context.Context, rt *Runtime, req *Request) (*WorkflowResult, error)
}

// Registry maps pattern names to implementations.
type Registry struct {
	mu       sync.RWMutex
	patterns map[string]Pattern
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{patterns: make(map[string]Pattern)}
}

// Register adds a pattern, replacing any previous entry with the same name.
func (r *Registry) Register(p Pattern) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.patterns[p.Name()] = p
}

// Get returns the pattern registered under name.
func (r *Registry) Get(name string) (Pattern, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.patterns[name]
	return p, ok
}

// Names returns the registered pattern names, sorted.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.patterns))
	for name := range r.patterns {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// DefaultRegistry returns a registry with the five built-in patterns.
func DefaultRegistry() *Registry {
	r := NewRegistry()
	r.Register(NewSequential())
	r.Register(NewParallel())
	r.Register(NewConditional())
	r.Register(NewRetry())
	r.Register(NewComplex())
	return r
}

// Run executes the pattern selected by req against the default registry.
func Run(ctx context.Context, rt *Runtime, req *Request) (*WorkflowResult, error) {
	return RunWith(ctx, DefaultRegistry(), rt, req)
}

// RunWith resolves req against reg and drives one full pattern run: it emits
// the start event, executes the pattern, and finishes with exactly one
// terminal event. A cancelled run returns the cancellation error without
// emitting anything further.
func RunWith(ctx context.Context, reg *Registry, rt *Runtime, req *Request) (*WorkflowResult, error) {
	if rt == nil || rt.Invoker == nil {
		return nil, types.NewError(types.ErrConfiguration, "runtime must carry an invoker")
	}
	if req == nil {
		return nil, types.NewError(types.ErrConfiguration, "request cannot be nil")
	}

	p, ok := reg.Get(req.Pattern)
	if !ok {
		return nil, types.NewError(types.ErrPatternNotFound,
			fmt.Sprintf("unknown pattern %q, available: %v", req.Pattern, reg.Names()))
	}

	rt.Logger.Info("pattern run starting",
		zap.String("pattern", p.Name()),
		zap.String("model", req.Model),
	)
	start := time.Now()

	rt.emit(events.KindStart, map[string]any{
		"pattern": p.Name(),
		"model":   req.Model,
	})

	result, err := p.Execute(ctx, rt, req)
	duration := time.Since(start)
	rt.Metrics.ObservePattern(p.Name(), err)

	if err != nil {
		if cancelled(ctx, err) {
			rt.Logger.Info("pattern run cancelled",
				zap.String("pattern", p.Name()),
				zap.Duration("duration", duration),
			)
			return nil, err
		}

		data := map[string]any{
			"pattern": p.Name(),
			"message": err.Error(),
		}
		var perr *types.Error
		if errors.As(err, &perr) && perr.Attempts > 0 {
			data["attempts"] = perr.Attempts
		}
		rt.emit(events.KindError, data)

		rt.Logger.Error("pattern run failed",
			zap.String("pattern", p.Name()),
			zap.Duration("duration", duration),
			zap.Error(err),
		)
		return nil, err
	}

	result.Pattern = p.Name()
	result.Duration = duration

	rt.emit(events.KindComplete, map[string]any{
		"pattern":     p.Name(),
		"finalOutput": result.Output,
		"usage":       result.Usage,
	})

	rt.Logger.Info("pattern run completed",
		zap.String("pattern", p.Name()),
		zap.Duration("duration", duration),
	)
	return result, nil
}

// cancelled reports whether err stems from a consumer-initiated stop rather
// than a step failure.
func cancelled(ctx context.Context, err error) bool {
	return types.IsCancelled(err) || ctx.Err() != nil
}

// checkCancelled returns a cancellation error when the run has been stopped.
func checkCancelled(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return types.NewError(types.ErrCancelled, "run cancelled").WithCause(err)
	}
	return nil
}
