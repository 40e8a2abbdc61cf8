// Package backend is the client's boundary to the agent session service.
package backend

import (
	"context"
	"io"

	"github.com/wagiedev/hitl-agent-client-go/internal/protocol"
)

// Backend is the agent session service.
//
// Implementations must be safe for concurrent use. Failures to reach the
// service are reported as *errors.TransportError.
type Backend interface {
	// Invoke runs a turn and blocks until it completes, fails or is interrupted.
	Invoke(ctx context.Context, req *protocol.QueryRequest) (*protocol.TurnResponse, error)

	// InvokeStream runs a turn and returns its newline-delimited event stream.
	// The caller must close the returned reader.
	InvokeStream(ctx context.Context, req *protocol.QueryRequest) (io.ReadCloser, error)

	// Resume answers a pending interrupt and blocks until the turn pauses or ends.
	Resume(ctx context.Context, req *protocol.ResumeRequest) (*protocol.TurnResponse, error)

	// Status returns the authoritative status of a session.
	Status(ctx context.Context, userID, sessionID string) (*protocol.StatusReport, error)

	// ActiveSessionID returns the user's most recent session, or "" if none.
	ActiveSessionID(ctx context.Context, userID string) (string, error)

	// SessionIDs lists every session the backend holds for the user.
	SessionIDs(ctx context.Context, userID string) ([]string, error)

	// SystemInfo reports global session counts.
	SystemInfo(ctx context.Context) (*protocol.SystemInfo, error)

	// DeleteSession removes a session. Deleting an unknown session succeeds.
	DeleteSession(ctx context.Context, userID, sessionID string) error

	// WriteLongTermMemory stores free-form user preferences.
	WriteLongTermMemory(ctx context.Context, userID, memoryInfo string) error
}
