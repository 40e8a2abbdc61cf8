package config

import (
	"fmt"
	"strings"
)

// Mode selects how turns are submitted.
type Mode string

const (
	// ModeStream consumes the event stream of each turn.
	ModeStream Mode = "stream"
	// ModeNormal waits for each turn's final response.
	ModeNormal Mode = "normal"
)

// ParseMode accepts a mode name, case-insensitively.
//
// Aliases:
//   - "streaming" -> "stream"
//   - "blocking", "sync" -> "normal"
func ParseMode(s string) (Mode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "stream", "streaming":
		return ModeStream, nil
	case "normal", "blocking", "sync":
		return ModeNormal, nil
	default:
		return "", fmt.Errorf("unknown mode %q (want stream or normal)", s)
	}
}
