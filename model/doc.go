// Package model defines the provider‑agnostic abstractions for talking to
// language models inside taskmesh.
//
// Core goals:
//   - Unify streaming + non‑streaming generation behind a single interface
//   - Normalize tool / function call representation (ToolDefinition)
//   - Carry per request sampling (temperature, tool choice) and structured
//     output constraints (ResponseFormat)
//   - Keep transient failures away from callers (RetryModel)
//   - Facilitate deterministic fakes for tests (ScriptedModel)
//
// Providers (OpenAI, Anthropic, Gemini) implement the Model interface from
// this package so the orchestrator stays decoupled from vendor SDKs.
package model
