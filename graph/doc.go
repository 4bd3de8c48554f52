// Copyright (c) GraphWeave Authors.
// Licensed under the MIT License.

/*
Package graph implements the node/edge data model and the execution engine
for typed computation graphs.

A Graph owns a set of Nodes keyed by id. Each Node carries a kind-specific
configuration (one Config variant per kind) and named input/output slots
wired to other nodes. The Executor walks the graph with an explicit worklist
in dependency order, executing every node at most once and memoizing its
result; cycles are rejected with a descriptive CYCLIC_GRAPH error instead of
unbounded recursion.

# Core types

  - Node / Graph        — structural model with slot-based connections
  - Config variants     — InputConfig, GenerateConfig, ExtractConfig,
    TransformConfig, MergeConfig, ConditionConfig, TemplateConfig,
    OutputConfig
  - Builder             — fluent graph assembly with build-time validation
  - Executor            — worklist topological walk with per-node memoization
  - ExecutionContext    — per-run state: invoker, progress emitter, KV store
  - ResolveVariables    — {{...}} template substitution against node outputs
  - GraphDefinition     — JSON/YAML import and export

Transform and Condition functions cannot round-trip through a serialized
definition; they are re-supplied on import through a FuncRegistry.
*/
package graph
