package graph

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/graphweave/graphweave/events"
	"github.com/graphweave/graphweave/step"
	"github.com/graphweave/graphweave/types"
)

// execute runs one node. The executor guarantees every upstream node has
// already executed, so input slots resolve from cached results.
func (n *Node) execute(ctx context.Context, ec *ExecutionContext, g *Graph) (any, error) {
	switch cfg := n.Config.(type) {
	case InputConfig:
		return cfg.Value, nil
	case GenerateConfig:
		return n.executeGenerate(ctx, ec, g, cfg)
	case ExtractConfig:
		return n.executeExtract(ctx, ec, g, cfg)
	case TransformConfig:
		return n.executeTransform(ctx, g, cfg)
	case MergeConfig:
		return n.executeMerge(g, cfg)
	case ConditionConfig:
		return n.executeCondition(ctx, ec, g, cfg)
	case TemplateConfig:
		return n.executeTemplate(g, cfg)
	case OutputConfig:
		return n.soleInput(g)
	default:
		return nil, types.NewError(types.ErrConfiguration,
			fmt.Sprintf("node %q has unknown configuration %T", n.ID, cfg)).WithNode(n.ID)
	}
}

// inputValue returns the cached result of the node wired into slot.
func (n *Node) inputValue(g *Graph, slot string) (any, bool) {
	srcID, ok := n.inputs[slot]
	if !ok {
		return nil, false
	}
	src, ok := g.Node(srcID)
	if !ok || !src.executed {
		return nil, false
	}
	return src.result, true
}

// soleInput returns the first wired input's value.
func (n *Node) soleInput(g *Graph) (any, error) {
	if len(n.inputOrder) == 0 {
		return nil, types.NewError(types.ErrConfiguration,
			fmt.Sprintf("node %q has no wired input", n.ID)).WithNode(n.ID)
	}
	v, ok := n.inputValue(g, n.inputOrder[0])
	if !ok {
		return nil, types.NewError(types.ErrConfiguration,
			fmt.Sprintf("node %q input %q has no recorded result", n.ID, n.inputOrder[0])).WithNode(n.ID)
	}
	return v, nil
}

func (n *Node) executeGenerate(ctx context.Context, ec *ExecutionContext, g *Graph, cfg GenerateConfig) (any, error) {
	prompt := cfg.Prompt
	if v, ok := n.inputValue(g, PromptSlot); ok {
		prompt = Stringify(v)
	} else if v, ok := n.inputValue(g, DefaultSlot); ok {
		prompt = Stringify(v)
	}
	prompt = ResolveVariables(prompt, n.ID, g, g.OutputSnapshot())

	cacheKey := ""
	if ec.Store != nil && cfg.CacheTTL > 0 {
		cacheKey = completionCacheKey(cfg.Model, prompt)
		if v, ok, err := ec.Store.Get(ctx, cacheKey); err == nil && ok {
			ec.Metrics.ObserveCache(true)
			ec.Logger.Debug("completion cache hit", zap.String("node_id", n.ID))
			return v, nil
		}
		ec.Metrics.ObserveCache(false)
	}

	ec.emit(events.KindProgress, map[string]any{
		"nodeId": n.ID, "kind": string(n.Kind), "status": "started",
	})

	req := step.Request{
		Operation: step.OpComplete,
		Model:     cfg.Model,
		Prompt:    prompt,
	}
	if cfg.Temperature != 0 || cfg.MaxTokens != 0 {
		req.Options = map[string]any{}
		if cfg.Temperature != 0 {
			req.Options["temperature"] = cfg.Temperature
		}
		if cfg.MaxTokens != 0 {
			req.Options["max_tokens"] = cfg.MaxTokens
		}
	}

	text, usage, err := n.invokeCompletion(ctx, ec, req)
	if err != nil {
		return nil, types.NewError(types.ErrStepFailed,
			fmt.Sprintf("generate node %q", n.ID)).WithNode(n.ID).WithCause(err)
	}

	ec.AddUsage(usage)
	ec.emit(events.KindProgress, map[string]any{
		"nodeId": n.ID, "kind": string(n.Kind), "status": "completed", "usage": usage,
	})

	if cacheKey != "" {
		if err := ec.Store.Set(ctx, cacheKey, text, cfg.CacheTTL); err != nil {
			ec.Logger.Warn("completion cache write failed", zap.String("node_id", n.ID), zap.Error(err))
		}
	}
	return text, nil
}

// invokeCompletion prefers the streaming capability when the invoker offers
// it, forwarding each delta as a text-chunk event while accumulating the
// full text.
func (n *Node) invokeCompletion(ctx context.Context, ec *ExecutionContext, req step.Request) (string, types.Usage, error) {
	if streamer, ok := ec.Invoker.(step.StreamingInvoker); ok && ec.Events != nil {
		ch, err := streamer.InvokeStream(ctx, req)
		if err != nil {
			return "", types.Usage{}, err
		}
		var sb strings.Builder
		for chunk := range ch {
			sb.WriteString(chunk.Text)
			ec.emit(events.KindTextChunk, map[string]any{
				"nodeId": n.ID, "text": chunk.Text, "index": chunk.Index,
			})
		}
		if err := ctx.Err(); err != nil {
			return "", types.Usage{}, err
		}
		return sb.String(), types.Usage{}, nil
	}

	res, err := ec.Invoker.Invoke(ctx, req)
	if err != nil {
		return "", types.Usage{}, err
	}
	return res.Text, res.Usage, nil
}

func (n *Node) executeExtract(ctx context.Context, ec *ExecutionContext, g *Graph, cfg ExtractConfig) (any, error) {
	if len(cfg.Schema) == 0 {
		return nil, types.NewError(types.ErrConfiguration,
			fmt.Sprintf("extract node %q has no schema", n.ID)).WithNode(n.ID)
	}

	data := cfg.Data
	if v, ok := n.inputValue(g, DataSlot); ok {
		data = Stringify(v)
	} else if v, ok := n.inputValue(g, DefaultSlot); ok {
		data = Stringify(v)
	}
	data = ResolveVariables(data, n.ID, g, g.OutputSnapshot())

	ec.emit(events.KindProgress, map[string]any{
		"nodeId": n.ID, "kind": string(n.Kind), "status": "started",
	})

	res, err := ec.Invoker.Invoke(ctx, step.Request{
		Operation: step.OpExtract,
		Model:     cfg.Model,
		Prompt:    data,
		Schema:    cfg.Schema,
	})
	if err != nil {
		return nil, types.NewError(types.ErrStepFailed,
			fmt.Sprintf("extract node %q", n.ID)).WithNode(n.ID).WithCause(err)
	}

	ec.AddUsage(res.Usage)
	ec.emit(events.KindProgress, map[string]any{
		"nodeId": n.ID, "kind": string(n.Kind), "status": "completed", "usage": res.Usage,
	})
	return res.Value(), nil
}

func (n *Node) executeTransform(ctx context.Context, g *Graph, cfg TransformConfig) (any, error) {
	if cfg.Fn == nil {
		return nil, types.NewError(types.ErrConfiguration,
			fmt.Sprintf("transform node %q has no function", n.ID)).WithNode(n.ID)
	}
	input, err := n.soleInput(g)
	if err != nil {
		return nil, err
	}
	out, err := cfg.Fn(ctx, input)
	if err != nil {
		return nil, types.NewError(types.ErrStepFailed,
			fmt.Sprintf("transform node %q", n.ID)).WithNode(n.ID).WithCause(err)
	}
	return out, nil
}

func (n *Node) executeMerge(g *Graph, cfg MergeConfig) (any, error) {
	values := make([]any, 0, len(n.inputOrder))
	slots := make([]string, 0, len(n.inputOrder))
	for _, slot := range n.inputOrder {
		v, ok := n.inputValue(g, slot)
		if !ok {
			return nil, types.NewError(types.ErrConfiguration,
				fmt.Sprintf("merge node %q input slot %q has no recorded result", n.ID, slot)).WithNode(n.ID)
		}
		values = append(values, v)
		slots = append(slots, slot)
	}

	switch cfg.Strategy {
	case MergeArray:
		return values, nil
	case MergeConcat:
		sep := cfg.Separator
		if sep == "" {
			sep = "\n"
		}
		parts := make([]string, len(values))
		for i, v := range values {
			parts[i] = Stringify(v)
		}
		return strings.Join(parts, sep), nil
	case MergeObject, "":
		out := make(map[string]any, len(values))
		for i, slot := range slots {
			out[slot] = values[i]
		}
		return out, nil
	default:
		return nil, types.NewError(types.ErrConfiguration,
			fmt.Sprintf("merge node %q has unknown strategy %q", n.ID, cfg.Strategy)).WithNode(n.ID)
	}
}

func (n *Node) executeCondition(ctx context.Context, ec *ExecutionContext, g *Graph, cfg ConditionConfig) (any, error) {
	if cfg.Predicate == nil {
		return nil, types.NewError(types.ErrConfiguration,
			fmt.Sprintf("condition node %q has no predicate", n.ID)).WithNode(n.ID)
	}
	input, err := n.soleInput(g)
	if err != nil {
		return nil, err
	}
	met, err := cfg.Predicate(ctx, input)
	if err != nil {
		return nil, types.NewError(types.ErrStepFailed,
			fmt.Sprintf("condition node %q", n.ID)).WithNode(n.ID).WithCause(err)
	}

	ec.emit(events.KindConditionEvaluated, map[string]any{
		"nodeId": n.ID, "conditionMet": met,
	})
	return map[string]any{"conditionMet": met, "data": input}, nil
}

func (n *Node) executeTemplate(g *Graph, cfg TemplateConfig) (any, error) {
	input, err := n.soleInput(g)
	if err != nil {
		return nil, err
	}

	if m, ok := asMap(input); ok {
		return placeholderRe.ReplaceAllStringFunc(cfg.Template, func(match string) string {
			key := placeholderRe.FindStringSubmatch(match)[1]
			if v, ok := m[key]; ok {
				return Stringify(v)
			}
			return match
		}), nil
	}
	return strings.ReplaceAll(cfg.Template, "{{input}}", Stringify(input)), nil
}

func completionCacheKey(model, prompt string) string {
	sum := sha256.Sum256([]byte(model + "\x00" + prompt))
	return "completion:" + hex.EncodeToString(sum[:16])
}
