// Package config holds the client's configuration types.
package config

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/wagiedev/hitl-agent-client-go/internal/backend"
	"github.com/wagiedev/hitl-agent-client-go/internal/driver"
	"github.com/wagiedev/hitl-agent-client-go/internal/negotiator"
	"github.com/wagiedev/hitl-agent-client-go/internal/recovery"
	"github.com/wagiedev/hitl-agent-client-go/internal/statuscache"
)

// DefaultBaseURL is where the session service listens by default.
const DefaultBaseURL = "http://localhost:8001"

// DefaultSystemMessage is sent with every query unless overridden.
const DefaultSystemMessage = "You can use tools to help the user. If a tool call is rejected, tell the user."

// Options configures a session client.
type Options struct {
	// Logger is the slog logger for debug output.
	// If nil, logging is disabled (silent operation).
	Logger *slog.Logger

	// BaseURL is the root URL of the session service.
	BaseURL string

	// UserID owns the session. If empty, one is generated.
	UserID string

	// SessionID selects the session. If empty, the user's active session is
	// reused, or a new one is generated.
	SessionID string

	// Mode selects streamed or blocking turns. Defaults to ModeStream.
	Mode Mode

	// SystemMessage is the system instruction sent with every query.
	SystemMessage string

	// PollPolicy bounds how long recovery waits for a session running elsewhere.
	// A zero value uses recovery.DefaultPollPolicy.
	PollPolicy recovery.PollPolicy

	// HTTPClient is used by the default HTTP backend.
	HTTPClient *http.Client

	// BreakerFailures is how many consecutive failures open the backend
	// circuit breaker. Zero uses the backend default.
	BreakerFailures int

	// BreakerTimeout is how long the open breaker rejects calls.
	BreakerTimeout time.Duration

	// Backend replaces the HTTP backend, mainly for testing.
	// This field is not serialized to JSON.
	Backend backend.Backend `json:"-"`

	// Negotiator decides every interrupt. If nil, an interactive negotiator
	// over Operator is used.
	Negotiator negotiator.Negotiator `json:"-"`

	// Operator answers interactive interrupt prompts.
	Operator negotiator.Operator `json:"-"`

	// Presenter shows turn progress. If nil, nothing is shown.
	Presenter driver.Presenter `json:"-"`

	// StatusCache is shared between clients. If nil, each client has its own.
	StatusCache *statuscache.Cache `json:"-"`
}

// Streaming reports whether turns use the streamed endpoint.
func (o *Options) Streaming() bool {
	return o.Mode != ModeNormal
}
