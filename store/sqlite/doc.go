// Package sqlite provides durable implementations of task.Store,
// session.Store and session.Directory on a single SQLite database using the
// pure Go modernc.org/sqlite driver.
//
// The database runs in WAL mode with a busy timeout so the request goroutine
// and the background turn writer can share one file. Schema changes are
// applied as ordered, append-only migrations recorded in schema_version.
package sqlite
