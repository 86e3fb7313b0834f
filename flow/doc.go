// Package flow implements the per-message pipeline stages between the
// engine and the model:
//
//   - ContextAssembler builds the transcript (preamble, recent turns, the
//     new message).
//   - Selector lets the model pick zero or more operations.
//   - Executor runs the selected invocations concurrently against a
//     tool.Handler and returns one Result per invocation, in order.
//   - TaskHandler implements tool.Handler on top of a task.Store.
//   - Composer turns results into the final prose reply.
//
// Each stage is constructed with its collaborators and is safe for
// concurrent use by multiple requests.
package flow
