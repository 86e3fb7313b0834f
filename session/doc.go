// Package session defines conversation turns, the turn Store and the user
// Directory, together with volatile in-memory implementations suitable for
// tests and local development.
package session
