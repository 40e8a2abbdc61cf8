package protocol

import (
	"encoding/json"
	"maps"
)

// InterruptPayload is produced by the backend when the agent pauses for approval.
//
//nolint:tagliatelle // backend uses snake_case
type InterruptPayload struct {
	Description   string        `json:"description"`
	ActionRequest ActionRequest `json:"action_request"`
}

// ActionRequest is the tool call awaiting approval.
type ActionRequest struct {
	Action string         `json:"action"`
	Args   map[string]any `json:"args"`
}

// CloneArgs returns a shallow copy of the proposed arguments.
func (a *ActionRequest) CloneArgs() map[string]any {
	if a.Args == nil {
		return nil
	}

	return maps.Clone(a.Args)
}

// ArgsJSON renders the proposed arguments for display.
func (a *ActionRequest) ArgsJSON() string {
	if len(a.Args) == 0 {
		return "{}"
	}

	data, err := json.MarshalIndent(a.Args, "", "  ")
	if err != nil {
		return "{}"
	}

	return string(data)
}
