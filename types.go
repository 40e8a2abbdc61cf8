package hitlclient

import (
	"github.com/wagiedev/hitl-agent-client-go/internal/backend"
	"github.com/wagiedev/hitl-agent-client-go/internal/config"
	"github.com/wagiedev/hitl-agent-client-go/internal/directive"
	"github.com/wagiedev/hitl-agent-client-go/internal/driver"
	"github.com/wagiedev/hitl-agent-client-go/internal/negotiator"
	"github.com/wagiedev/hitl-agent-client-go/internal/protocol"
	"github.com/wagiedev/hitl-agent-client-go/internal/recovery"
	"github.com/wagiedev/hitl-agent-client-go/internal/statuscache"
)

// Re-export types from internal packages

// ===== Options and Configuration =====

// Options configures a Client.
type Options = config.Options

// Mode selects streamed or blocking turns.
type Mode = config.Mode

const (
	// ModeStream consumes the event stream of each turn.
	ModeStream = config.ModeStream
	// ModeNormal waits for each turn's final response.
	ModeNormal = config.ModeNormal
)

// DefaultBaseURL is where the session service listens by default.
const DefaultBaseURL = config.DefaultBaseURL

// ===== Backend =====

// Backend is the agent session service.
// Implement this to provide custom backends for testing or alternative transports.
type Backend = backend.Backend

// QueryRequest submits a query on a session.
type QueryRequest = protocol.QueryRequest

// ResumeRequest answers a pending interrupt.
type ResumeRequest = protocol.ResumeRequest

// SystemInfo summarizes the sessions known to the backend.
type SystemInfo = protocol.SystemInfo

// ===== Session Status =====

// SessionStatus is the backend's view of a session.
type SessionStatus = protocol.SessionStatus

const (
	StatusNotFound    = protocol.StatusNotFound
	StatusIdle        = protocol.StatusIdle
	StatusRunning     = protocol.StatusRunning
	StatusInterrupted = protocol.StatusInterrupted
	StatusCompleted   = protocol.StatusCompleted
	StatusError       = protocol.StatusError
)

// StatusReport is the authoritative status of a session.
type StatusReport = protocol.StatusReport

// TurnResponse is the backend's structured result of a turn.
type TurnResponse = protocol.TurnResponse

// StatusCache remembers the last status observed per session.
type StatusCache = statuscache.Cache

// NewStatusCache creates an empty status cache.
func NewStatusCache() *StatusCache {
	return statuscache.New()
}

// ===== Turns =====

// TurnResult describes one finished turn.
type TurnResult = driver.TurnResult

// Outcome is how a turn ended.
type Outcome = driver.Outcome

const (
	// OutcomeCompleted means the agent produced a final result.
	OutcomeCompleted = driver.OutcomeCompleted
	// OutcomeError means the backend reported a failure.
	OutcomeError = driver.OutcomeError
)

// Presenter shows turn progress.
type Presenter = driver.Presenter

// NopPresenter discards all progress.
type NopPresenter = driver.NopPresenter

// ===== Interrupts =====

// InterruptPayload is the action the agent paused on.
type InterruptPayload = protocol.InterruptPayload

// ActionRequest is the tool call awaiting approval.
type ActionRequest = protocol.ActionRequest

// Directive is the decision that resumes an interrupted turn.
// Use a type switch to determine the concrete type.
type Directive = directive.Directive

// Accept approves the proposed action as-is.
type Accept = directive.Accept

// Reject declines the proposed action.
type Reject = directive.Reject

// Edit approves the action with replacement arguments.
type Edit = directive.Edit

// Respond declines the action and answers the agent in free text.
type Respond = directive.Respond

// Negotiator decides how to resume an interrupted turn.
type Negotiator = negotiator.Negotiator

// NegotiatorFunc adapts a function to Negotiator. Its directives are validated
// before they are sent.
type NegotiatorFunc = negotiator.Func

// Operator is the human answering interactive interrupt prompts.
type Operator = negotiator.Operator

// AcceptAll approves every interrupt unchanged.
func AcceptAll() NegotiatorFunc {
	return negotiator.AcceptAll()
}

// ===== Recovery =====

// RecoveryOutcome is the result of reconciling a session.
type RecoveryOutcome = recovery.Outcome

// RecoveryKind classifies a reconciled session.
type RecoveryKind = recovery.Kind

const (
	RecoveryFresh       = recovery.KindFresh
	RecoveryIdle        = recovery.KindIdle
	RecoveryInterrupted = recovery.KindInterrupted
	RecoveryCompleted   = recovery.KindCompleted
	RecoveryErrored     = recovery.KindErrored
	RecoveryAbandoned   = recovery.KindAbandoned
)

// PollPolicy bounds how long recovery waits on a session running elsewhere.
type PollPolicy = recovery.PollPolicy

// DefaultPollPolicy polls 30 times at one-second intervals.
func DefaultPollPolicy() PollPolicy {
	return recovery.DefaultPollPolicy()
}
