// Package engine implements the message orchestrator of taskmesh.
//
// The Engine owns one request end to end:
//
//	user message
//	  -> validate input, resolve the user (Directory)
//	  -> flow.ContextAssembler   (preamble + recent turns + message)
//	  -> flow.Selector           (model picks 0..N operations)
//	  -> flow.Executor           (parallel, independent, ordered results)
//	  -> flow.Composer           (prose reply)
//	  -> format.Formatter        (schema validated structured payload)
//	  -> TurnWriter              (user and assistant turns, best effort)
//
// # Failure Model
//
// Empty input and unknown users are rejected before any model or store call
// (ErrInvalidInput, session.ErrInvalidUser). A provider failure during
// selection is the only failure that aborts a request: SendMessage then
// returns ErrInternal together with a Reply carrying ErrorReply. Everything
// after selection degrades instead of failing: invocation errors become
// unsuccessful results, composer errors yield the fallback reply, and a
// structured payload that cannot be validated is either passed through as
// an explicit fallback or, in strict mode, omitted.
//
// # Persistence
//
// Conversation turns are handed to a TurnWriter, a single goroutine with a
// bounded queue. Writes never block or fail a request; write errors are
// logged, counted and published on TurnWriter.Errors. Close drains the
// queue.
//
// # Hooks
//
// A CallbackManager lets callers observe (and, before a message is handled,
// veto) the request lifecycle without touching the pipeline.
package engine
