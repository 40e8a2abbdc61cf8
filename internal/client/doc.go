// Package client implements the session Client behind the public API.
//
// A Client resolves who it acts for and which session it drives, then runs
// turns through a session driver:
//   - The user ID defaults to a generated user_<unix seconds> value
//   - The session defaults to the user's active session, or a new UUID
//   - Interrupts are settled by a negotiator, or interactively by an operator
//
// Clients are single-use. After Close, create a new one.
package client
