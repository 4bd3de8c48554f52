// Copyright (c) GraphWeave Authors.
// Licensed under the MIT License.

// Package types provides the shared type contracts of the graphweave engine.
//
// types is the lowest-level package of the module and depends on nothing
// else inside it. It defines the structured error model (Error / ErrorCode),
// the usage accounting type reported by step invokers, and small helpers
// shared across graph, engine, and pattern code.
package types
