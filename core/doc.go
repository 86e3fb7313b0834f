// Package core defines the conversation content model shared by the model
// adapters, the flow components and the engine.
//
// Content is a role plus an ordered list of parts. The part set is closed:
//   - TextPart: plain text
//   - FunctionCallPart: an operation invocation proposed by a model
//   - FunctionResponsePart: the result of executing that invocation
//
// Model adapters translate Content to and from provider specific message
// formats so the rest of the system never branches on the provider.
package core
