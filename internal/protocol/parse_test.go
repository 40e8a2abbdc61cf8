package protocol

import (
	"errors"
	"log/slog"
	"testing"

	clienterrors "github.com/wagiedev/hitl-agent-client-go/internal/errors"

	"github.com/stretchr/testify/require"
)

func TestParse(t *testing.T) {
	logger := slog.Default()

	tests := []struct {
		name         string
		data         map[string]any
		wantType     string
		wantTerminal bool
		wantErr      bool
	}{
		{
			name:     "text chunk",
			data:     map[string]any{"type": "text_chunk", "content": "hel"},
			wantType: TypeTextChunk,
		},
		{
			name:     "text chunk without content",
			data:     map[string]any{"type": "text_chunk"},
			wantType: TypeTextChunk,
		},
		{
			name:    "text chunk with non-string content",
			data:    map[string]any{"type": "text_chunk", "content": 42.0},
			wantErr: true,
		},
		{
			name: "tool call",
			data: map[string]any{
				"type": "tool_call",
				"data": map[string]any{"tool_calls": []any{
					map[string]any{"name": "book_hotel"},
				}},
			},
			wantType: TypeToolCall,
		},
		{
			name: "interrupt",
			data: map[string]any{
				"type":       "interrupt",
				"session_id": "s-1",
				"interrupt_data": map[string]any{
					"description": "approve?",
					"action_request": map[string]any{
						"action": "book_hotel",
						"args":   map[string]any{"hotel_name": "Hilton"},
					},
				},
			},
			wantType:     TypeInterrupt,
			wantTerminal: true,
		},
		{
			name:    "interrupt without payload",
			data:    map[string]any{"type": "interrupt", "session_id": "s-1"},
			wantErr: true,
		},
		{
			name: "completed",
			data: map[string]any{
				"type": "completed",
				"data": map[string]any{"session_id": "s-1", "status": "completed"},
			},
			wantType:     TypeCompleted,
			wantTerminal: true,
		},
		{
			name:    "completed without data",
			data:    map[string]any{"type": "completed"},
			wantErr: true,
		},
		{
			name:         "error",
			data:         map[string]any{"type": "error", "error_message": "boom"},
			wantType:     TypeError,
			wantTerminal: true,
		},
		{
			name:    "missing type",
			data:    map[string]any{"content": "x"},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			event, err := Parse(logger, tt.data)
			if tt.wantErr {
				require.Error(t, err)
				require.Nil(t, event)

				return
			}

			require.NoError(t, err)
			require.Equal(t, tt.wantType, event.EventType())
			require.Equal(t, tt.wantTerminal, event.IsTerminal())
		})
	}
}

func TestParse_UnknownType(t *testing.T) {
	event, err := Parse(slog.Default(), map[string]any{"type": "heartbeat"})

	require.Nil(t, event)
	require.True(t, errors.Is(err, clienterrors.ErrUnknownEventType))
}

func TestParse_InterruptFields(t *testing.T) {
	event, err := Parse(slog.Default(), map[string]any{
		"type":       "interrupt",
		"session_id": "s-9",
		"timestamp":  1700000000.5,
		"interrupt_data": map[string]any{
			"description": "Book the Hilton?",
			"action_request": map[string]any{
				"action": "book_hotel",
				"args":   map[string]any{"hotel_name": "Hilton", "nights": 2.0},
			},
		},
	})
	require.NoError(t, err)

	interrupt, ok := event.(*Interrupt)
	require.True(t, ok)
	require.Equal(t, "s-9", interrupt.SessionID)
	require.Equal(t, "Book the Hilton?", interrupt.Payload.Description)
	require.Equal(t, "book_hotel", interrupt.Payload.ActionRequest.Action)
	require.Equal(t, map[string]any{"hotel_name": "Hilton", "nights": 2.0}, interrupt.Payload.ActionRequest.Args)
}

func TestParse_ToolCallNames(t *testing.T) {
	event, err := Parse(slog.Default(), map[string]any{
		"type": "tool_call",
		"data": map[string]any{"tool_calls": []any{
			map[string]any{"name": "search"},
			map[string]any{"id": "x"},
		}},
	})
	require.NoError(t, err)

	call, ok := event.(*ToolCall)
	require.True(t, ok)
	require.Equal(t, []string{"search", "unknown"}, call.Names)
}

func TestParse_FailureDefaultsMessage(t *testing.T) {
	event, err := Parse(slog.Default(), map[string]any{"type": "error"})
	require.NoError(t, err)

	failure, ok := event.(*Failure)
	require.True(t, ok)
	require.Equal(t, "unknown error", failure.Message)
}
