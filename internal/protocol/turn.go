package protocol

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

var (
	// ErrMissingInterruptData indicates an interrupted response without a payload.
	ErrMissingInterruptData = errors.New("interrupted response carries no interrupt data")

	// ErrNotTerminal indicates a response whose status does not end a turn.
	ErrNotTerminal = errors.New("response status is not terminal")
)

// TurnResponse is the structured result of a blocking invoke or resume call.
// Streamed turns carry the same shape inside their completed event.
//
//nolint:tagliatelle // backend uses snake_case
type TurnResponse struct {
	SessionID     string            `json:"session_id"`
	Status        SessionStatus     `json:"status"`
	Result        map[string]any    `json:"result,omitempty"`
	InterruptData *InterruptPayload `json:"interrupt_data,omitempty"`
	Message       string            `json:"message,omitempty"`
	Timestamp     float64           `json:"timestamp,omitempty"`
}

// Time converts the response timestamp.
func (r *TurnResponse) Time() time.Time {
	return unixSeconds(r.Timestamp)
}

// Terminal converts the response into the terminal event it represents.
func (r *TurnResponse) Terminal() (Event, error) {
	switch r.Status {
	case StatusInterrupted:
		if r.InterruptData == nil {
			return nil, ErrMissingInterruptData
		}

		return &Interrupt{SessionID: r.SessionID, Payload: r.InterruptData, Timestamp: r.Timestamp}, nil
	case StatusCompleted:
		return &Completed{Response: *r}, nil
	case StatusError:
		return &Failure{SessionID: r.SessionID, Message: r.Message, Timestamp: r.Timestamp}, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrNotTerminal, r.Status)
	}
}

// FinalMessage returns the content of the last message in the result, if any.
func (r *TurnResponse) FinalMessage() (string, bool) {
	if r == nil || r.Result == nil {
		return "", false
	}

	messages, ok := r.Result["messages"].([]any)
	if !ok || len(messages) == 0 {
		return "", false
	}

	last, ok := messages[len(messages)-1].(map[string]any)
	if !ok {
		return "", false
	}

	switch content := last["content"].(type) {
	case string:
		return content, true
	case nil:
		return "", false
	default:
		data, err := json.Marshal(content)
		if err != nil {
			return "", false
		}

		return string(data), true
	}
}

// QueryRequest submits a query on a session.
//
//nolint:tagliatelle // backend uses snake_case
type QueryRequest struct {
	UserID        string `json:"user_id"`
	SessionID     string `json:"session_id"`
	Query         string `json:"query"`
	SystemMessage string `json:"system_message"`
}

// ResumeRequest answers a pending interrupt.
//
//nolint:tagliatelle // backend uses snake_case
type ResumeRequest struct {
	UserID       string         `json:"user_id"`
	SessionID    string         `json:"session_id"`
	ResponseType string         `json:"response_type"`
	Args         map[string]any `json:"args"`
}

// LongTermMemoryRequest stores operator preferences in the backend's long-term memory.
//
//nolint:tagliatelle // backend uses snake_case
type LongTermMemoryRequest struct {
	UserID     string `json:"user_id"`
	MemoryInfo string `json:"memory_info"`
}

// SystemInfo summarizes the sessions known to the backend.
//
//nolint:tagliatelle // backend uses snake_case
type SystemInfo struct {
	SessionsCount int `json:"sessions_count"`
	ActiveUsers   any `json:"active_users"`
}

// ActiveSessionResponse is the response of the active session lookup.
//
//nolint:tagliatelle // backend uses snake_case
type ActiveSessionResponse struct {
	ActiveSessionID string `json:"active_session_id"`
}

// SessionIDsResponse lists a user's sessions.
//
//nolint:tagliatelle // backend uses snake_case
type SessionIDsResponse struct {
	SessionIDs []string `json:"session_ids"`
}
