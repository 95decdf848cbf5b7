// Package pipeline provides the message pipeline execution engine.
//
// Stages are registered by name with before/after ordering constraints
// relative to other stages. The registry resolves the constraints into a
// deterministic linear order with a stable topological sort (ties broken by
// registration order) the first time the pipeline runs, and is sealed from
// then on. A constraint cycle is a configuration error reported at
// finalize time, never at run time.
//
// # Control signals
//
// Each stage handler returns one of three signals:
//   - Continue: proceed to the next stage
//   - Stop: end the pipeline; the context's current message is sent as the
//     final reply
//   - Skipped: the stage declined to act; the pipeline proceeds but the
//     signal stays observable on the execution context
//
// ReplyWith(msg) is shorthand for setting the context message and
// stopping, used by validation stages that answer with a single error
// message.
//
// One execution context exists per inbound message. Handlers run
// sequentially within a run; concurrent runs share only the sealed
// registry.
package pipeline
