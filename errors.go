package hitlclient

import "github.com/wagiedev/hitl-agent-client-go/internal/errors"

// Re-export error types from internal package

// TransportError indicates a backend request could not be completed.
type TransportError = errors.TransportError

// ProtocolError indicates the backend violated the session protocol.
type ProtocolError = errors.ProtocolError

// DirectiveError indicates a resume directive failed local validation.
type DirectiveError = errors.DirectiveError

// SessionError carries a failure reported by the backend for a turn.
type SessionError = errors.SessionError

// RecordDecodeError describes a stream record that could not be decoded.
type RecordDecodeError = errors.RecordDecodeError

// AgentClientError is the base interface for all client errors.
type AgentClientError = errors.AgentClientError

// Re-export sentinel errors from internal package.
var (
	// ErrTurnInFlight indicates a query was submitted while another turn was outstanding.
	ErrTurnInFlight = errors.ErrTurnInFlight

	// ErrNoTerminalEvent indicates a stream closed without completed, interrupt or error.
	ErrNoTerminalEvent = errors.ErrNoTerminalEvent

	// ErrOperatorAborted indicates the operator closed input while a decision was pending.
	ErrOperatorAborted = errors.ErrOperatorAborted

	// ErrBackendUnavailable indicates the backend is failing and calls fail fast.
	ErrBackendUnavailable = errors.ErrBackendUnavailable

	// ErrClientNotStarted indicates the client was used before Start.
	ErrClientNotStarted = errors.ErrClientNotStarted

	// ErrClientAlreadyStarted indicates Start was called twice.
	ErrClientAlreadyStarted = errors.ErrClientAlreadyStarted

	// ErrClientClosed indicates the client has been closed and cannot be reused.
	ErrClientClosed = errors.ErrClientClosed
)
