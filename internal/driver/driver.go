// Package driver runs turns on one agent session.
//
// A Driver submits queries, consumes the resulting events, hands interrupts to
// a negotiator and resumes the turn with the chosen directive, repeating until
// the agent completes or fails. Faults send the session through recovery so
// local state never outlives what the backend confirms.
package driver

import (
	"context"
	stderrors "errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/oklog/ulid/v2"

	"github.com/wagiedev/hitl-agent-client-go/internal/backend"
	"github.com/wagiedev/hitl-agent-client-go/internal/directive"
	"github.com/wagiedev/hitl-agent-client-go/internal/errors"
	"github.com/wagiedev/hitl-agent-client-go/internal/metrics"
	"github.com/wagiedev/hitl-agent-client-go/internal/negotiator"
	"github.com/wagiedev/hitl-agent-client-go/internal/protocol"
	"github.com/wagiedev/hitl-agent-client-go/internal/recovery"
	"github.com/wagiedev/hitl-agent-client-go/internal/statuscache"
	"github.com/wagiedev/hitl-agent-client-go/internal/stream"
)

// Config identifies the session and how turns are run.
type Config struct {
	UserID        string
	SessionID     string
	SystemMessage string

	// Streaming selects the streamed invoke endpoint over the blocking one.
	Streaming bool
}

// Option configures a Driver.
type Option func(*Driver)

// WithPresenter sets where turn progress is shown.
func WithPresenter(p Presenter) Option {
	return func(d *Driver) {
		if p != nil {
			d.presenter = p
		}
	}
}

// WithStatusCache shares a status cache between drivers.
func WithStatusCache(c *statuscache.Cache) Option {
	return func(d *Driver) {
		if c != nil {
			d.cache = c
		}
	}
}

// WithPollPolicy overrides the recovery poll policy.
func WithPollPolicy(p recovery.PollPolicy) Option {
	return func(d *Driver) {
		d.policy = p
	}
}

// Driver runs turns on one session. At most one turn is outstanding at a time.
type Driver struct {
	log        *slog.Logger
	cfg        Config
	backend    backend.Backend
	negotiator negotiator.Negotiator
	presenter  Presenter
	cache      *statuscache.Cache
	policy     recovery.PollPolicy
	recovery   *recovery.Coordinator

	// turnMu is held for the whole of a turn or reconciliation.
	turnMu sync.Mutex

	mu            sync.RWMutex
	state         State
	sessionID     string
	needsRecovery bool
}

// New creates a driver for cfg.UserID and cfg.SessionID.
func New(
	log *slog.Logger,
	cfg Config,
	b backend.Backend,
	n negotiator.Negotiator,
	opts ...Option,
) *Driver {
	d := &Driver{
		log:        log.With("component", "driver", "user_id", cfg.UserID),
		cfg:        cfg,
		backend:    b,
		negotiator: n,
		presenter:  NopPresenter{},
		cache:      statuscache.New(),
		policy:     recovery.DefaultPollPolicy(),
		state:      StateIdle,
		sessionID:  cfg.SessionID,
	}

	for _, opt := range opts {
		opt(d)
	}

	d.recovery = recovery.New(log, b, d.cache, d.policy)

	return d
}

// State returns the current driver state.
func (d *Driver) State() State {
	d.mu.RLock()
	defer d.mu.RUnlock()

	return d.state
}

// Session returns the current session ID.
func (d *Driver) Session() string {
	d.mu.RLock()
	defer d.mu.RUnlock()

	return d.sessionID
}

// NeedsRecovery reports whether the next turn will reconcile first.
func (d *Driver) NeedsRecovery() bool {
	d.mu.RLock()
	defer d.mu.RUnlock()

	return d.needsRecovery
}

// UseSession switches the driver to another session. It fails with
// errors.ErrTurnInFlight while a turn is outstanding.
func (d *Driver) UseSession(sessionID string) error {
	if !d.turnMu.TryLock() {
		return errors.ErrTurnInFlight
	}
	defer d.turnMu.Unlock()

	d.mu.Lock()
	defer d.mu.Unlock()

	d.log.Debug("Switching session", "from", d.sessionID, "to", sessionID)
	d.sessionID = sessionID
	d.state = StateIdle
	d.needsRecovery = false
	metrics.SetDriverState(string(StateIdle), allStates)

	return nil
}

// Status fetches the authoritative status of the current session and caches it.
func (d *Driver) Status(ctx context.Context) (*protocol.StatusReport, error) {
	key := d.key()

	report, err := d.backend.Status(ctx, key.UserID, key.SessionID)
	if err != nil {
		return nil, err
	}

	d.cache.ObserveReport(key, report)

	return report, nil
}

// Reconcile runs recovery on the current session.
//
// A pending interrupt is negotiated and resumed immediately; completed and
// failed sessions are presented. The driver ends idle.
func (d *Driver) Reconcile(ctx context.Context) (recovery.Outcome, error) {
	if !d.turnMu.TryLock() {
		return recovery.Outcome{}, errors.ErrTurnInFlight
	}
	defer d.turnMu.Unlock()

	return d.reconcile(ctx)
}

// Submit runs one turn for query and returns how it ended.
//
// Interrupts raised during the turn are negotiated and resumed in place. A
// backend-reported failure is returned as a result with OutcomeError, not as
// an error. Errors mean the turn's fate is unknown: the session is reconciled
// now (transport failures) or before the next turn (cancellation, protocol
// violations).
func (d *Driver) Submit(ctx context.Context, query string) (*TurnResult, error) {
	if !d.turnMu.TryLock() {
		return nil, errors.ErrTurnInFlight
	}
	defer d.turnMu.Unlock()

	query = strings.TrimSpace(query)
	if query == "" {
		return nil, fmt.Errorf("submit: empty query")
	}

	if d.NeedsRecovery() {
		if _, err := d.reconcile(ctx); err != nil {
			return nil, fmt.Errorf("recover session before submit: %w", err)
		}
	}

	key := d.key()
	result := &TurnResult{
		TurnID:    ulid.Make().String(),
		SessionID: key.SessionID,
		Query:     query,
	}
	log := d.log.With("turn_id", result.TurnID, "session_id", key.SessionID)

	if err := d.moveTo(StateSubmitting); err != nil {
		return nil, err
	}

	log.Debug("Submitting query", "streaming", d.cfg.Streaming)

	req := &protocol.QueryRequest{
		UserID:        key.UserID,
		SessionID:     key.SessionID,
		Query:         query,
		SystemMessage: d.cfg.SystemMessage,
	}

	var (
		terminal protocol.Event
		err      error
	)

	if d.cfg.Streaming {
		terminal, err = d.streamTurn(ctx, log, req, result)
	} else {
		terminal, err = d.invokeTurn(ctx, req)
	}

	if err != nil {
		return nil, d.fail(ctx, log, err)
	}

	return d.drive(ctx, log, result, terminal)
}

func (d *Driver) mode() string {
	if d.cfg.Streaming {
		return "stream"
	}

	return "normal"
}

func (d *Driver) key() statuscache.Key {
	d.mu.RLock()
	defer d.mu.RUnlock()

	return statuscache.Key{UserID: d.cfg.UserID, SessionID: d.sessionID}
}

func (d *Driver) invokeTurn(ctx context.Context, req *protocol.QueryRequest) (protocol.Event, error) {
	resp, err := d.backend.Invoke(ctx, req)
	if err != nil {
		return nil, err
	}

	return terminalOf(req.SessionID, resp)
}

// streamTurn consumes the event stream of a query and returns its terminal event.
func (d *Driver) streamTurn(
	ctx context.Context,
	log *slog.Logger,
	req *protocol.QueryRequest,
	result *TurnResult,
) (protocol.Event, error) {
	body, err := d.backend.InvokeStream(ctx, req)
	if err != nil {
		return nil, err
	}
	defer body.Close()

	var (
		text     strings.Builder
		terminal protocol.Event
	)

	decoder := stream.NewDecoder(log, body)

	for event, err := range decoder.Events(ctx) {
		if err != nil {
			if ctx.Err() != nil {
				return nil, err
			}

			return nil, &errors.TransportError{Op: "invoke_stream", Err: err}
		}

		switch e := event.(type) {
		case *protocol.TextChunk:
			text.WriteString(e.Content)
			d.presenter.Text(e.Content)
		case *protocol.ToolCall:
			result.ToolCalls = append(result.ToolCalls, e.Names...)
			d.presenter.ToolCalls(e.Names)
		case *protocol.Interrupt, *protocol.Completed, *protocol.Failure:
			terminal = e
		}
	}

	result.Text = text.String()

	if terminal == nil {
		return nil, &errors.ProtocolError{SessionID: req.SessionID, Err: errors.ErrNoTerminalEvent}
	}

	return terminal, nil
}

// drive handles terminal events until the turn completes or fails, answering
// every interrupt on the way.
func (d *Driver) drive(
	ctx context.Context,
	log *slog.Logger,
	result *TurnResult,
	terminal protocol.Event,
) (*TurnResult, error) {
	key := d.key()

	for {
		switch e := terminal.(type) {
		case *protocol.Completed:
			if err := d.moveTo(StateIdle); err != nil {
				return nil, err
			}

			result.Outcome = OutcomeCompleted
			result.Response = &e.Response
			d.cache.Observe(key, protocol.StatusCompleted, result.Query, &e.Response)
			metrics.RecordTurn(d.mode(), string(OutcomeCompleted))
			log.Debug("Turn completed", "interrupts", result.Interrupts)
			d.presenter.Completed(result)

			return result, nil

		case *protocol.Failure:
			if err := d.moveTo(StateIdle); err != nil {
				return nil, err
			}

			result.Outcome = OutcomeError
			result.Message = e.Message
			d.cache.Observe(key, protocol.StatusError, result.Query, nil)
			metrics.RecordTurn(d.mode(), string(OutcomeError))
			log.Info("Turn failed on backend", "message", e.Message)
			d.presenter.Failed(result)

			return result, nil

		case *protocol.Interrupt:
			next, err := d.answer(ctx, log, key, result, e)
			if err != nil {
				return nil, err
			}

			terminal = next

		default:
			return nil, d.fail(ctx, log, &errors.ProtocolError{
				SessionID: key.SessionID,
				Err:       fmt.Errorf("unexpected terminal event %T", terminal),
			})
		}
	}
}

// answer negotiates one interrupt and resumes the turn with the directive.
// It returns the terminal event of the resumed turn.
func (d *Driver) answer(
	ctx context.Context,
	log *slog.Logger,
	key statuscache.Key,
	result *TurnResult,
	interrupt *protocol.Interrupt,
) (protocol.Event, error) {
	if err := d.moveTo(StateInterrupted); err != nil {
		return nil, err
	}

	result.Interrupts++
	metrics.InterruptsTotal.WithLabelValues(interrupt.Payload.ActionRequest.Action).Inc()
	d.cache.Observe(key, protocol.StatusInterrupted, result.Query, &protocol.TurnResponse{
		SessionID:     key.SessionID,
		Status:        protocol.StatusInterrupted,
		InterruptData: interrupt.Payload,
	})

	log.Debug("Turn interrupted", "action", interrupt.Payload.ActionRequest.Action)

	decision, err := d.negotiator.Negotiate(ctx, interrupt.Payload)
	if err != nil {
		// The interrupt is still pending on the backend; recovery offers it again.
		d.abandon(log, err)

		return nil, err
	}

	req, err := directive.Request(key.UserID, key.SessionID, decision)
	if err != nil {
		d.abandon(log, err)

		return nil, err
	}

	if err := d.moveTo(StateResuming); err != nil {
		return nil, err
	}

	metrics.DirectivesTotal.WithLabelValues(req.ResponseType).Inc()
	log.Debug("Resuming turn", "response_type", req.ResponseType)
	d.presenter.Resumed(decision)

	resp, err := d.backend.Resume(ctx, req)
	if err != nil {
		return nil, d.fail(ctx, log, err)
	}

	if err := d.moveTo(StateSubmitting); err != nil {
		return nil, err
	}

	next, err := terminalOf(key.SessionID, resp)
	if err != nil {
		return nil, d.fail(ctx, log, err)
	}

	return next, nil
}

// abandon returns to idle after a turn was given up locally.
func (d *Driver) abandon(log *slog.Logger, err error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	_ = d.transition(StateIdle)
	d.needsRecovery = true

	metrics.RecordTurn(d.mode(), "aborted")
	log.Info("Turn abandoned, session will be reconciled", "error", err)
}

// fail handles a fault during a turn. The driver returns to idle.
// Transport failures are reconciled right away; other faults, and
// reconciliations that fail themselves, are deferred to the next turn.
func (d *Driver) fail(ctx context.Context, log *slog.Logger, err error) error {
	d.mu.Lock()
	_ = d.transition(StateIdle)
	d.needsRecovery = true
	d.mu.Unlock()

	metrics.RecordTurn(d.mode(), "failed")

	if ctx.Err() != nil {
		log.Info("Turn cancelled, session will be reconciled", "error", err)

		return err
	}

	if _, ok := errors.AsTransportError(err); !ok {
		log.Warn("Turn failed", "error", err)

		return err
	}

	log.Warn("Transport failure, reconciling session", "error", err)

	if _, recErr := d.reconcile(ctx); recErr != nil {
		return stderrors.Join(err, fmt.Errorf("reconcile after failure: %w", recErr))
	}

	return err
}

// reconcile runs recovery. Callers must hold turnMu.
func (d *Driver) reconcile(ctx context.Context) (recovery.Outcome, error) {
	key := d.key()
	log := d.log.With("session_id", key.SessionID)

	outcome, err := d.recovery.Reconcile(ctx, key)
	if err != nil {
		d.mu.Lock()
		d.needsRecovery = true
		d.mu.Unlock()

		return outcome, err
	}

	d.mu.Lock()
	d.needsRecovery = false
	_ = d.transition(StateIdle)
	d.mu.Unlock()

	// An idle session the cache already knew about needs no announcement.
	if !(outcome.CacheAgreed && outcome.Kind == recovery.KindIdle) {
		d.presenter.Recovered(outcome)
	}

	if outcome.Kind != recovery.KindInterrupted {
		return outcome, nil
	}

	result := &TurnResult{
		TurnID:    ulid.Make().String(),
		SessionID: key.SessionID,
		Query:     outcome.Report.LastQuery,
	}
	log = log.With("turn_id", result.TurnID)
	log.Info("Resuming interrupted session")

	interrupt := &protocol.Interrupt{SessionID: key.SessionID, Payload: outcome.Interrupt}
	if _, err := d.drive(ctx, log, result, interrupt); err != nil {
		return outcome, err
	}

	return outcome, nil
}

// terminalOf converts a blocking response into its terminal event.
func terminalOf(sessionID string, resp *protocol.TurnResponse) (protocol.Event, error) {
	event, err := resp.Terminal()
	if err != nil {
		return nil, &errors.ProtocolError{SessionID: sessionID, Err: err}
	}

	return event, nil
}
