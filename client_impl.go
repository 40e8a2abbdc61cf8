package hitlclient

import (
	"context"

	"github.com/wagiedev/hitl-agent-client-go/internal/client"
	"github.com/wagiedev/hitl-agent-client-go/internal/config"
)

// clientWrapper wraps the internal client to adapt it to the public interface.
type clientWrapper struct {
	impl *client.Client
}

// Compile-time check that *clientWrapper implements the Client interface.
var _ Client = (*clientWrapper)(nil)

// newClientImpl creates the internal client implementation.
func newClientImpl() Client {
	return &clientWrapper{impl: client.New()}
}

// Start resolves the user and session and prepares the client.
func (c *clientWrapper) Start(ctx context.Context, opts ...Option) error {
	return c.impl.Start(ctx, applyOptionsToConfig(opts))
}

// Query runs one turn.
func (c *clientWrapper) Query(ctx context.Context, query string) (*TurnResult, error) {
	return c.impl.Query(ctx, query)
}

// Reconcile checks the session against the backend.
func (c *clientWrapper) Reconcile(ctx context.Context) (RecoveryOutcome, error) {
	return c.impl.Reconcile(ctx)
}

// Status returns the backend's status for the current session.
func (c *clientWrapper) Status(ctx context.Context) (*StatusReport, error) {
	return c.impl.Status(ctx)
}

// NewSession switches to a freshly generated session.
func (c *clientWrapper) NewSession() (string, error) {
	return c.impl.NewSession()
}

// UseSession switches to an existing session.
func (c *clientWrapper) UseSession(sessionID string) error {
	return c.impl.UseSession(sessionID)
}

// Sessions lists the user's session IDs.
func (c *clientWrapper) Sessions(ctx context.Context) ([]string, error) {
	return c.impl.Sessions(ctx)
}

// DeleteSession deletes the current session and switches to a new one.
func (c *clientWrapper) DeleteSession(ctx context.Context) (string, error) {
	return c.impl.DeleteSession(ctx)
}

// Remember stores a preference in long-term memory.
func (c *clientWrapper) Remember(ctx context.Context, info string) error {
	return c.impl.Remember(ctx, info)
}

// SystemInfo returns the backend's session summary.
func (c *clientWrapper) SystemInfo(ctx context.Context) (*SystemInfo, error) {
	return c.impl.SystemInfo(ctx)
}

// UserID returns the user the client acts for.
func (c *clientWrapper) UserID() string {
	return c.impl.UserID()
}

// SessionID returns the current session ID.
func (c *clientWrapper) SessionID() string {
	return c.impl.SessionID()
}

// Close releases resources.
func (c *clientWrapper) Close() error {
	return c.impl.Close()
}

// applyOptionsToConfig converts public options to internal config.Options.
func applyOptionsToConfig(opts []Option) *config.Options {
	// Options is a type alias to config.Options, so no conversion is needed
	return applyOptions(opts)
}
