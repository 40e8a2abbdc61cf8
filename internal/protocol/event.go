package protocol

// Event type discriminators as they appear on the wire.
const (
	TypeTextChunk = "text_chunk"
	TypeToolCall  = "tool_call"
	TypeInterrupt = "interrupt"
	TypeCompleted = "completed"
	TypeError     = "error"
)

// Event is one decoded record of a streamed turn.
// Use a type switch to determine the concrete type.
type Event interface {
	EventType() string
	IsTerminal() bool
	sealed()
}

// Compile-time verification that all event types implement Event.
var (
	_ Event = (*TextChunk)(nil)
	_ Event = (*ToolCall)(nil)
	_ Event = (*Interrupt)(nil)
	_ Event = (*Completed)(nil)
	_ Event = (*Failure)(nil)
)

// TextChunk is incremental assistant text. Chunks are concatenated in order.
type TextChunk struct {
	Content string `json:"content"`
}

// EventType implements the Event interface.
func (e *TextChunk) EventType() string { return TypeTextChunk }

// IsTerminal implements the Event interface.
func (e *TextChunk) IsTerminal() bool { return false }

func (e *TextChunk) sealed() {}

// ToolCall announces actions the agent is about to invoke. It does not pause the turn.
type ToolCall struct {
	Names []string       `json:"names"`
	Raw   map[string]any `json:"-"`
}

// EventType implements the Event interface.
func (e *ToolCall) EventType() string { return TypeToolCall }

// IsTerminal implements the Event interface.
func (e *ToolCall) IsTerminal() bool { return false }

func (e *ToolCall) sealed() {}

// Interrupt pauses the turn pending an operator decision.
//
//nolint:tagliatelle // backend uses snake_case
type Interrupt struct {
	SessionID string            `json:"session_id"`
	Payload   *InterruptPayload `json:"interrupt_data"`
	Timestamp float64           `json:"timestamp,omitempty"`
}

// EventType implements the Event interface.
func (e *Interrupt) EventType() string { return TypeInterrupt }

// IsTerminal implements the Event interface.
func (e *Interrupt) IsTerminal() bool { return true }

func (e *Interrupt) sealed() {}

// Completed ends the turn with the agent's final result.
type Completed struct {
	Response TurnResponse `json:"data"`
}

// EventType implements the Event interface.
func (e *Completed) EventType() string { return TypeCompleted }

// IsTerminal implements the Event interface.
func (e *Completed) IsTerminal() bool { return true }

func (e *Completed) sealed() {}

// Failure ends the turn with a backend-reported error.
//
//nolint:tagliatelle // backend uses snake_case
type Failure struct {
	SessionID string  `json:"session_id"`
	Message   string  `json:"error_message"`
	Timestamp float64 `json:"timestamp,omitempty"`
}

// EventType implements the Event interface.
func (e *Failure) EventType() string { return TypeError }

// IsTerminal implements the Event interface.
func (e *Failure) IsTerminal() bool { return true }

func (e *Failure) sealed() {}
