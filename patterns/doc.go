// Copyright (c) GraphWeave Authors.
// Licensed under the MIT License.

// Package patterns provides the five built-in orchestration strategies:
// sequential, parallel, conditional, retry, and complex. Each pattern is a
// standalone procedure over a step invoker and a progress channel; none
// requires assembling a full graph.
//
// Every run emits a start event, then intermediate events specific to the
// pattern, then exactly one terminal complete or error event. Cancellation is
// not a failure: a cancelled run stops scheduling work and emits no further
// events, including no error event.
package patterns
