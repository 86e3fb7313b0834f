// Package testutil contains helper builders and a shared conformance suite
// used across tests to reduce boilerplate when constructing conversation
// content and tasks, and to check every task.Store implementation against the
// same expectations. It is not intended for production usage.
package testutil
