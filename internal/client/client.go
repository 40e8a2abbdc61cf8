package client

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/wagiedev/hitl-agent-client-go/internal/backend"
	"github.com/wagiedev/hitl-agent-client-go/internal/config"
	"github.com/wagiedev/hitl-agent-client-go/internal/driver"
	"github.com/wagiedev/hitl-agent-client-go/internal/errors"
	"github.com/wagiedev/hitl-agent-client-go/internal/negotiator"
	"github.com/wagiedev/hitl-agent-client-go/internal/protocol"
	"github.com/wagiedev/hitl-agent-client-go/internal/recovery"
)

// sessionLookupTimeout bounds the active session lookup during Start.
const sessionLookupTimeout = 10 * time.Second

// Client owns a backend connection and the driver for one user's session.
type Client struct {
	log     *slog.Logger
	options *config.Options
	backend backend.Backend
	driver  *driver.Driver
	userID  string

	// ownsBackend is set when Start created the backend and Close must release it.
	ownsBackend bool

	// Lifecycle management
	mu        sync.Mutex
	started   bool
	closed    bool
	closeOnce sync.Once
}

// New creates a client. Call Start before using it.
func New() *Client {
	return &Client{}
}

// initializeCore resolves identities and builds the backend and driver.
// Caller must hold c.mu.
func (c *Client) initializeCore(ctx context.Context, options *config.Options) error {
	if options == nil {
		options = &config.Options{}
	}

	log := options.Logger
	if log == nil {
		log = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	c.log = log.With("component", "client")
	c.options = options

	n, err := buildNegotiator(log, options)
	if err != nil {
		return err
	}

	if options.Backend != nil {
		c.backend = options.Backend

		c.log.Debug("Using injected custom backend")
	} else {
		c.backend = buildHTTPBackend(log, options)
		c.ownsBackend = true
	}

	c.userID = options.UserID
	if c.userID == "" {
		c.userID = DefaultUserID(time.Now())
	}

	sessionID := options.SessionID
	if sessionID == "" {
		sessionID = c.resolveSession(ctx)
	}

	systemMessage := options.SystemMessage
	if systemMessage == "" {
		systemMessage = config.DefaultSystemMessage
	}

	opts := []driver.Option{
		driver.WithPresenter(options.Presenter),
		driver.WithStatusCache(options.StatusCache),
	}

	if p := options.PollPolicy; p.MaxAttempts > 0 || p.Interval > 0 || p.Sleep != nil {
		opts = append(opts, driver.WithPollPolicy(options.PollPolicy))
	}

	c.driver = driver.New(log, driver.Config{
		UserID:        c.userID,
		SessionID:     sessionID,
		SystemMessage: systemMessage,
		Streaming:     options.Streaming(),
	}, c.backend, n, opts...)

	c.log = c.log.With("user_id", c.userID)

	return nil
}

func buildNegotiator(log *slog.Logger, options *config.Options) (negotiator.Negotiator, error) {
	switch {
	case options.Negotiator != nil:
		return options.Negotiator, nil
	case options.Operator != nil:
		return negotiator.NewInteractive(log, options.Operator), nil
	default:
		return nil, fmt.Errorf("interrupts need a negotiator or an operator")
	}
}

func buildHTTPBackend(log *slog.Logger, options *config.Options) *backend.HTTPBackend {
	baseURL := options.BaseURL
	if baseURL == "" {
		baseURL = config.DefaultBaseURL
	}

	return backend.NewHTTP(log, baseURL,
		backend.WithHTTPClient(options.HTTPClient),
		backend.WithCircuitBreaker(options.BreakerFailures, options.BreakerTimeout),
	)
}

// resolveSession reuses the user's active session, or starts a new one when
// there is none or the lookup fails.
func (c *Client) resolveSession(ctx context.Context) string {
	lookupCtx, cancel := context.WithTimeout(ctx, sessionLookupTimeout)
	defer cancel()

	id, err := c.backend.ActiveSessionID(lookupCtx, c.userID)
	if err != nil {
		c.log.Warn("Active session lookup failed, starting a new session", "error", err)

		return uuid.NewString()
	}

	if id == "" {
		return uuid.NewString()
	}

	c.log.Debug("Reusing active session", "session_id", id)

	return id
}

// DefaultUserID is the user ID generated when none is configured.
func DefaultUserID(now time.Time) string {
	return fmt.Sprintf("user_%d", now.Unix())
}

// Start resolves the user and session and prepares the driver.
//
// Start does not reconcile the session. Call Reconcile before the first query
// to settle an interrupt left pending by an earlier run.
func (c *Client) Start(ctx context.Context, options *config.Options) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return errors.ErrClientClosed
	}

	if c.started {
		return errors.ErrClientAlreadyStarted
	}

	if err := c.initializeCore(ctx, options); err != nil {
		return err
	}

	c.started = true
	c.log.Info("Client started", "session_id", c.driver.Session())

	return nil
}

// active returns the driver, or an error if the client is not usable.
func (c *Client) active() (*driver.Driver, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return nil, errors.ErrClientClosed
	}

	if !c.started {
		return nil, errors.ErrClientNotStarted
	}

	return c.driver, nil
}

// Query runs one turn. Interrupts are negotiated until the agent completes
// or fails.
func (c *Client) Query(ctx context.Context, query string) (*driver.TurnResult, error) {
	d, err := c.active()
	if err != nil {
		return nil, err
	}

	return d.Submit(ctx, query)
}

// Reconcile checks the current session against the backend and settles any
// pending interrupt.
func (c *Client) Reconcile(ctx context.Context) (recovery.Outcome, error) {
	d, err := c.active()
	if err != nil {
		return recovery.Outcome{}, err
	}

	return d.Reconcile(ctx)
}

// Status returns the backend's status for the current session.
func (c *Client) Status(ctx context.Context) (*protocol.StatusReport, error) {
	d, err := c.active()
	if err != nil {
		return nil, err
	}

	return d.Status(ctx)
}

// NewSession switches to a freshly generated session and returns its ID.
func (c *Client) NewSession() (string, error) {
	id := uuid.NewString()
	if err := c.UseSession(id); err != nil {
		return "", err
	}

	return id, nil
}

// UseSession switches to an existing session.
func (c *Client) UseSession(sessionID string) error {
	d, err := c.active()
	if err != nil {
		return err
	}

	if sessionID == "" {
		return fmt.Errorf("use session: empty session ID")
	}

	return d.UseSession(sessionID)
}

// Sessions lists the user's session IDs.
func (c *Client) Sessions(ctx context.Context) ([]string, error) {
	if _, err := c.active(); err != nil {
		return nil, err
	}

	return c.backend.SessionIDs(ctx, c.userID)
}

// DeleteSession deletes the current session and switches to a new one,
// returning the new session ID.
func (c *Client) DeleteSession(ctx context.Context) (string, error) {
	d, err := c.active()
	if err != nil {
		return "", err
	}

	current := d.Session()
	if err := c.backend.DeleteSession(ctx, c.userID, current); err != nil {
		return "", err
	}

	c.log.Info("Deleted session", "session_id", current)

	return c.NewSession()
}

// Remember stores a preference in the user's long-term memory.
func (c *Client) Remember(ctx context.Context, info string) error {
	if _, err := c.active(); err != nil {
		return err
	}

	return c.backend.WriteLongTermMemory(ctx, c.userID, info)
}

// SystemInfo returns the backend's session summary.
func (c *Client) SystemInfo(ctx context.Context) (*protocol.SystemInfo, error) {
	if _, err := c.active(); err != nil {
		return nil, err
	}

	return c.backend.SystemInfo(ctx)
}

// UserID returns the resolved user ID. Empty before Start.
func (c *Client) UserID() string {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.userID
}

// SessionID returns the current session ID. Empty before Start.
func (c *Client) SessionID() string {
	d, err := c.active()
	if err != nil {
		return ""
	}

	return d.Session()
}

// Driver returns the session driver. Nil before Start.
func (c *Client) Driver() *driver.Driver {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.driver
}

// Backend returns the backend in use. Nil before Start.
func (c *Client) Backend() backend.Backend {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.backend
}

// Close releases the backend. The client cannot be restarted. Safe to call
// multiple times.
func (c *Client) Close() error {
	var err error

	c.closeOnce.Do(func() {
		c.mu.Lock()
		defer c.mu.Unlock()

		c.closed = true

		if !c.ownsBackend {
			return
		}

		if closer, ok := c.backend.(io.Closer); ok {
			err = closer.Close()
		}

		if c.log != nil {
			c.log.Info("Client closed")
		}
	})

	return err
}
