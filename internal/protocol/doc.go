// Package protocol defines the wire model of the agent session protocol.
//
// The backend streams turn events as newline-delimited records of the form
//
//	data: {"type": "text_chunk", "content": "..."}
//
// where "type" is one of text_chunk, tool_call, interrupt, completed or error.
// Exactly one of interrupt, completed and error terminates a turn.
//
// Event is a sealed interface: the only implementations are the five event
// types declared in this package, so a type switch over them is exhaustive.
// Status reports, turn responses and request bodies used by the blocking
// endpoints live here as well.
package protocol
