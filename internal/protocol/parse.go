package protocol

import (
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/wagiedev/hitl-agent-client-go/internal/errors"
)

// defaultErrorMessage is used when an error event omits its message.
const defaultErrorMessage = "unknown error"

// Parse converts a raw JSON record into a typed Event.
//
// Returns errors.ErrUnknownEventType for records whose type is not part of the
// protocol; callers skip those. Any other error means the record is malformed.
func Parse(log *slog.Logger, data map[string]any) (Event, error) {
	log = log.With("component", "event_parser")

	eventType, ok := data["type"].(string)
	if !ok {
		log.Debug("Record missing 'type' field")

		return nil, fmt.Errorf("missing or invalid 'type' field")
	}

	switch eventType {
	case TypeTextChunk:
		return parseTextChunk(data)
	case TypeToolCall:
		return parseToolCall(data)
	case TypeInterrupt:
		return parseInterrupt(data)
	case TypeCompleted:
		return parseCompleted(data)
	case TypeError:
		return parseFailure(data)
	default:
		log.Debug("Skipping unknown event type", "event_type", eventType)

		return nil, errors.ErrUnknownEventType
	}
}

func parseTextChunk(data map[string]any) (*TextChunk, error) {
	raw, present := data["content"]
	if !present || raw == nil {
		return &TextChunk{}, nil
	}

	content, ok := raw.(string)
	if !ok {
		return nil, fmt.Errorf("text_chunk: 'content' is %T, want string", raw)
	}

	return &TextChunk{Content: content}, nil
}

// parseToolCall reads action names from data.tool_calls[].name.
func parseToolCall(data map[string]any) (*ToolCall, error) {
	event := &ToolCall{Raw: data}

	payload, ok := data["data"].(map[string]any)
	if !ok {
		return event, nil
	}

	calls, ok := payload["tool_calls"].([]any)
	if !ok {
		return event, nil
	}

	event.Names = make([]string, 0, len(calls))

	for i, call := range calls {
		callData, ok := call.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("tool_call %d: not an object", i)
		}

		name, _ := callData["name"].(string)
		if name == "" {
			name = "unknown"
		}

		event.Names = append(event.Names, name)
	}

	return event, nil
}

func parseInterrupt(data map[string]any) (*Interrupt, error) {
	if _, ok := data["interrupt_data"].(map[string]any); !ok {
		return nil, fmt.Errorf("interrupt: missing or invalid 'interrupt_data' field")
	}

	var event Interrupt
	if err := remarshal(data, &event); err != nil {
		return nil, fmt.Errorf("interrupt: %w", err)
	}

	return &event, nil
}

func parseCompleted(data map[string]any) (*Completed, error) {
	if _, ok := data["data"].(map[string]any); !ok {
		return nil, fmt.Errorf("completed: missing or invalid 'data' field")
	}

	var event Completed
	if err := remarshal(data, &event); err != nil {
		return nil, fmt.Errorf("completed: %w", err)
	}

	if event.Response.Status == "" {
		event.Response.Status = StatusCompleted
	}

	return &event, nil
}

func parseFailure(data map[string]any) (*Failure, error) {
	var event Failure
	if err := remarshal(data, &event); err != nil {
		return nil, fmt.Errorf("error: %w", err)
	}

	if event.Message == "" {
		event.Message = defaultErrorMessage
	}

	return &event, nil
}

// remarshal round-trips data through JSON to use the struct tags of v.
func remarshal(data map[string]any, v any) error {
	jsonBytes, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("marshal: %w", err)
	}

	if err := json.Unmarshal(jsonBytes, v); err != nil {
		return fmt.Errorf("unmarshal: %w", err)
	}

	return nil
}
