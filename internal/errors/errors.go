package errors

import (
	"errors"
	"fmt"
)

// AgentClientError is the base interface for all client errors.
type AgentClientError interface {
	error
	IsAgentClientError() bool
}

// Compile-time verification that all error types implement AgentClientError.
var (
	_ AgentClientError = (*TransportError)(nil)
	_ AgentClientError = (*RecordDecodeError)(nil)
	_ AgentClientError = (*ProtocolError)(nil)
	_ AgentClientError = (*DirectiveError)(nil)
	_ AgentClientError = (*SessionError)(nil)
)

// Sentinel errors for commonly checked conditions.
var (
	// ErrTurnInFlight indicates a query was submitted while another turn was outstanding.
	ErrTurnInFlight = errors.New("turn already in flight for this session")

	// ErrStreamConsumed indicates an event stream was iterated a second time.
	ErrStreamConsumed = errors.New("event stream already consumed")

	// ErrNoTerminalEvent indicates a stream closed without completed, interrupt or error.
	ErrNoTerminalEvent = errors.New("stream ended without a terminal event")

	// ErrOperatorAborted indicates the operator closed input while a decision was pending.
	ErrOperatorAborted = errors.New("operator aborted")

	// ErrInvalidTransition indicates the driver was asked to make an illegal state change.
	ErrInvalidTransition = errors.New("invalid session state transition")

	// ErrBackendUnavailable indicates the backend circuit is open and calls are failing fast.
	ErrBackendUnavailable = errors.New("backend unavailable")

	// ErrClientNotStarted indicates the client was used before Start.
	ErrClientNotStarted = errors.New("client not started")

	// ErrClientAlreadyStarted indicates Start was called twice.
	ErrClientAlreadyStarted = errors.New("client already started")

	// ErrClientClosed indicates the client has been closed and cannot be reused.
	ErrClientClosed = errors.New("client closed")

	// ErrUnknownEventType indicates the event type is not recognized by the client.
	// Callers should skip these events rather than treating them as fatal.
	ErrUnknownEventType = errors.New("unknown event type")
)

// TransportError indicates a backend request could not be completed.
type TransportError struct {
	Op         string
	StatusCode int
	Body       string
	Err        error
}

func (e *TransportError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Op, e.Err)
	}

	return fmt.Sprintf("%s: status %d: %s", e.Op, e.StatusCode, e.Body)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// IsAgentClientError implements AgentClientError.
func (e *TransportError) IsAgentClientError() bool { return true }

// RecordDecodeError indicates a single stream record could not be decoded.
// The decoder logs these and keeps going.
type RecordDecodeError struct {
	Line string
	Err  error
}

func (e *RecordDecodeError) Error() string {
	return fmt.Sprintf("malformed stream record: %v", e.Err)
}

func (e *RecordDecodeError) Unwrap() error {
	return e.Err
}

// IsAgentClientError implements AgentClientError.
func (e *RecordDecodeError) IsAgentClientError() bool { return true }

// ProtocolError indicates the backend violated the turn protocol.
type ProtocolError struct {
	SessionID string
	Err       error
}

func (e *ProtocolError) Error() string {
	return fmt.Sprintf("protocol error on session %s: %v", e.SessionID, e.Err)
}

func (e *ProtocolError) Unwrap() error {
	return e.Err
}

// IsAgentClientError implements AgentClientError.
func (e *ProtocolError) IsAgentClientError() bool { return true }

// DirectiveError indicates a resume directive failed local validation.
// It is never sent to the backend.
type DirectiveError struct {
	Kind   string
	Reason string
	Err    error
}

func (e *DirectiveError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("invalid %s directive: %s: %v", e.Kind, e.Reason, e.Err)
	}

	return fmt.Sprintf("invalid %s directive: %s", e.Kind, e.Reason)
}

func (e *DirectiveError) Unwrap() error {
	return e.Err
}

// IsAgentClientError implements AgentClientError.
func (e *DirectiveError) IsAgentClientError() bool { return true }

// SessionError carries a failure reported by the backend for a turn.
type SessionError struct {
	SessionID string
	Message   string
}

func (e *SessionError) Error() string {
	return fmt.Sprintf("session %s failed: %s", e.SessionID, e.Message)
}

// IsAgentClientError implements AgentClientError.
func (e *SessionError) IsAgentClientError() bool { return true }

// AsTransportError reports whether err wraps a *TransportError and returns it.
func AsTransportError(err error) (*TransportError, bool) {
	return errors.AsType[*TransportError](err)
}

// IsStatus reports whether err is a TransportError carrying the given HTTP status code.
func IsStatus(err error, code int) bool {
	transportErr, ok := AsTransportError(err)

	return ok && transportErr.StatusCode == code
}
