package hitlclient

import (
	"log/slog"
	"net/http"
	"time"
)

// Option configures Options using the functional options pattern.
type Option func(*Options)

// applyOptions applies functional options to an Options struct.
func applyOptions(opts []Option) *Options {
	options := &Options{}
	for _, opt := range opts {
		opt(options)
	}

	return options
}

// ===== Basic Configuration =====

// WithLogger sets the logger for debug output.
// If not set, logging is disabled (silent operation).
func WithLogger(logger *slog.Logger) Option {
	return func(o *Options) {
		o.Logger = logger
	}
}

// WithBaseURL sets the root URL of the session service.
// Defaults to DefaultBaseURL.
func WithBaseURL(url string) Option {
	return func(o *Options) {
		o.BaseURL = url
	}
}

// WithUserID sets the user the client acts for.
// If not set, a user_<unix seconds> ID is generated.
func WithUserID(userID string) Option {
	return func(o *Options) {
		o.UserID = userID
	}
}

// WithSessionID selects the session to drive.
// If not set, the user's active session is reused or a new one generated.
func WithSessionID(sessionID string) Option {
	return func(o *Options) {
		o.SessionID = sessionID
	}
}

// WithStreaming selects streamed turns (true, the default) or blocking turns.
func WithStreaming(streaming bool) Option {
	return func(o *Options) {
		if streaming {
			o.Mode = ModeStream
		} else {
			o.Mode = ModeNormal
		}
	}
}

// WithMode sets the turn mode directly.
func WithMode(mode Mode) Option {
	return func(o *Options) {
		o.Mode = mode
	}
}

// WithSystemMessage sets the system instruction sent with every query.
func WithSystemMessage(message string) Option {
	return func(o *Options) {
		o.SystemMessage = message
	}
}

// ===== Recovery =====

// WithPollPolicy bounds how long recovery waits for a session that is
// running elsewhere before giving up on it and starting fresh.
func WithPollPolicy(policy PollPolicy) Option {
	return func(o *Options) {
		o.PollPolicy = policy
	}
}

// WithStatusCache shares a status cache between clients.
func WithStatusCache(cache *StatusCache) Option {
	return func(o *Options) {
		o.StatusCache = cache
	}
}

// ===== Backend =====

// WithHTTPClient sets the HTTP client of the default backend.
// It must not set a total request timeout, since streamed turns stay open
// for as long as the agent runs.
func WithHTTPClient(client *http.Client) Option {
	return func(o *Options) {
		o.HTTPClient = client
	}
}

// WithCircuitBreaker sets how many consecutive backend failures make calls
// fail fast with ErrBackendUnavailable, and for how long.
func WithCircuitBreaker(failures int, timeout time.Duration) Option {
	return func(o *Options) {
		o.BreakerFailures = failures
		o.BreakerTimeout = timeout
	}
}

// WithBackend replaces the HTTP backend.
// This is primarily useful for testing with mock backends.
func WithBackend(backend Backend) Option {
	return func(o *Options) {
		o.Backend = backend
	}
}

// ===== Interrupts =====

// WithNegotiator sets how interrupts are decided.
// Takes precedence over WithOperator.
func WithNegotiator(negotiator Negotiator) Option {
	return func(o *Options) {
		o.Negotiator = negotiator
	}
}

// WithOperator settles interrupts interactively through op. Invalid answers
// are re-asked and never reach the backend.
func WithOperator(op Operator) Option {
	return func(o *Options) {
		o.Operator = op
	}
}

// WithPresenter sets where turn progress is shown.
func WithPresenter(presenter Presenter) Option {
	return func(o *Options) {
		o.Presenter = presenter
	}
}
