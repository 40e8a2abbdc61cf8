package hitlclient

import "context"

// Client drives one user's agent session, answering every interrupt the agent
// raises until each query completes or fails.
//
// Lifecycle: Clients are single-use. After Close(), create a new client with NewClient().
//
// Example usage:
//
//	client := NewClient()
//	defer client.Close()
//
//	err := client.Start(ctx,
//	    WithLogger(slog.Default()),
//	    WithUserID("alice"),
//	    WithNegotiator(AcceptAll()),
//	)
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	// Settle anything an earlier run left pending
//	if _, err := client.Reconcile(ctx); err != nil {
//	    log.Fatal(err)
//	}
//
//	result, err := client.Query(ctx, "Book a hotel in Beijing")
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	fmt.Println(result.FinalMessage())
type Client interface {
	// Start resolves the user and session and prepares the client.
	// Must be called before any other method.
	// Without WithSessionID, the user's active session is reused or a new one generated.
	Start(ctx context.Context, opts ...Option) error

	// Query runs one turn and blocks until the agent completes or fails.
	// Interrupts raised during the turn are negotiated and resumed in place.
	// A backend-reported failure is a result with OutcomeError, not an error.
	// Returns ErrTurnInFlight if another turn is outstanding on this client.
	Query(ctx context.Context, query string) (*TurnResult, error)

	// Reconcile checks the session against the backend. A pending interrupt is
	// negotiated and resumed; a previous result or failure is reported.
	Reconcile(ctx context.Context) (RecoveryOutcome, error)

	// Status returns the backend's status for the current session.
	Status(ctx context.Context) (*StatusReport, error)

	// NewSession switches to a freshly generated session and returns its ID.
	NewSession() (string, error)

	// UseSession switches to an existing session. Call Reconcile afterwards
	// to pick up where that session left off.
	UseSession(sessionID string) error

	// Sessions lists the user's session IDs.
	Sessions(ctx context.Context) ([]string, error)

	// DeleteSession deletes the current session and switches to a new one.
	// Deleting a session the backend no longer knows succeeds.
	DeleteSession(ctx context.Context) (string, error)

	// Remember stores a preference in the user's long-term memory.
	Remember(ctx context.Context, info string) error

	// SystemInfo returns the backend's session summary.
	SystemInfo(ctx context.Context) (*SystemInfo, error)

	// UserID returns the user the client acts for.
	UserID() string

	// SessionID returns the current session ID.
	SessionID() string

	// Close releases resources. Safe to call multiple times.
	Close() error
}

// NewClient creates a new session client.
//
// Call Start() with options to begin:
//
//	client := NewClient()
//	err := client.Start(ctx,
//	    WithBaseURL("http://localhost:8001"),
//	    WithOperator(myOperator),
//	)
func NewClient() Client {
	return newClientImpl()
}
