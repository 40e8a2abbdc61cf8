package driver

import (
	"strings"

	"github.com/wagiedev/hitl-agent-client-go/internal/errors"
	"github.com/wagiedev/hitl-agent-client-go/internal/protocol"
)

// Outcome is how a turn ended.
type Outcome string

const (
	// OutcomeCompleted means the agent produced a final result.
	OutcomeCompleted Outcome = "completed"
	// OutcomeError means the backend reported a failure. The query is not retried.
	OutcomeError Outcome = "error"
)

// TurnResult describes one finished turn, including any interrupts answered
// along the way.
type TurnResult struct {
	TurnID    string
	SessionID string
	Query     string
	Outcome   Outcome

	// Text is the concatenated streamed text. Empty for blocking turns.
	Text string

	// ToolCalls lists actions announced while streaming, in order.
	ToolCalls []string

	// Interrupts counts the interrupts answered during the turn.
	Interrupts int

	// Response is the backend's final response for completed turns.
	Response *protocol.TurnResponse

	// Message is the failure message for error turns.
	Message string
}

// FinalMessage returns the agent's answer: the last result message when the
// backend sent one, otherwise the streamed text.
func (r *TurnResult) FinalMessage() string {
	if msg, ok := r.Response.FinalMessage(); ok {
		return msg
	}

	return strings.TrimSpace(r.Text)
}

// Err returns a *errors.SessionError for error turns and nil otherwise.
func (r *TurnResult) Err() error {
	if r.Outcome != OutcomeError {
		return nil
	}

	return &errors.SessionError{SessionID: r.SessionID, Message: r.Message}
}
