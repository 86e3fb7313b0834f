// Package logging exposes the Logger interface used across taskmesh together
// with slog and zap backed implementations.
//
// Messages follow a dotted event naming convention (e.g.
// "flow.executor.invocation") with key/value attributes:
//
//	logger.Info("engine.send.complete", "user_id", uid, "invocations", n)
//
// NoOpLogger is the default everywhere a logger is optional.
package logging
