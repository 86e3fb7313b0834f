// Package format implements the Response Schema Registry and the Structured
// Formatter.
//
// Every catalog operation owns an output schema (schemas/<op>.schema.json)
// and an example raw output (schemas/<op>.example.json). Both are embedded
// and loaded once. A Formatter turns raw operation output into a Structured
// response that either validates against the operation's schema or is an
// explicit, logged fallback carrying the raw output.
//
// Two strategies exist: MappingFormatter renames store-native fields and
// synthesizes ai_summary; ModelFormatter asks a model for schema constrained
// JSON and falls back to mapping when that fails.
package format
