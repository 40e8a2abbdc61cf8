package protocol

import (
	"math"
	"time"
)

// SessionStatus is the backend's view of a session.
type SessionStatus string

const (
	// StatusNotFound means the backend has no record of the session.
	StatusNotFound SessionStatus = "not_found"
	// StatusIdle means the session exists and has no turn in progress.
	StatusIdle SessionStatus = "idle"
	// StatusRunning means a turn is executing, possibly for another client.
	StatusRunning SessionStatus = "running"
	// StatusInterrupted means the agent is waiting for an operator decision.
	StatusInterrupted SessionStatus = "interrupted"
	// StatusCompleted means the last turn finished with a result.
	StatusCompleted SessionStatus = "completed"
	// StatusError means the last turn failed.
	StatusError SessionStatus = "error"
)

// Known reports whether s is one of the statuses defined by the protocol.
func (s SessionStatus) Known() bool {
	switch s {
	case StatusNotFound, StatusIdle, StatusRunning, StatusInterrupted, StatusCompleted, StatusError:
		return true
	default:
		return false
	}
}

// StatusReport is the response of the status endpoint.
//
//nolint:tagliatelle // backend uses snake_case
type StatusReport struct {
	UserID       string        `json:"user_id"`
	SessionID    string        `json:"session_id"`
	Status       SessionStatus `json:"status"`
	LastQuery    string        `json:"last_query,omitempty"`
	LastUpdated  float64       `json:"last_updated,omitempty"`
	LastResponse *TurnResponse `json:"last_response,omitempty"`
}

// UpdatedAt converts the fractional unix timestamp of the last update.
// The zero time is returned when the backend did not report one.
func (r *StatusReport) UpdatedAt() time.Time {
	return unixSeconds(r.LastUpdated)
}

// InterruptData returns the pending interrupt carried by the last exchange, if any.
func (r *StatusReport) InterruptData() *InterruptPayload {
	if r.LastResponse == nil {
		return nil
	}

	return r.LastResponse.InterruptData
}

func unixSeconds(ts float64) time.Time {
	if ts <= 0 {
		return time.Time{}
	}

	sec, frac := math.Modf(ts)

	return time.Unix(int64(sec), int64(frac*float64(time.Second)))
}
