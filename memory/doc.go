// Package memory provides a volatile task.Store. Rows and the action journal
// live in process local maps; nothing survives a restart. Use store/sqlite
// for durable storage.
package memory
