// Package recovery reconciles the client's view of a session with the backend.
//
// Reconciliation runs when a session is (re)opened and after any fault. It
// never trusts local state: the backend's status report decides whether a
// pending interrupt must be answered, a previous result surfaced, or a fresh
// query started.
package recovery

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/wagiedev/hitl-agent-client-go/internal/metrics"
	"github.com/wagiedev/hitl-agent-client-go/internal/protocol"
	"github.com/wagiedev/hitl-agent-client-go/internal/statuscache"
)

// Kind classifies a reconciled session.
type Kind string

const (
	// KindFresh means nothing usable is pending; start a new query.
	KindFresh Kind = "fresh"
	// KindIdle means the session exists and is ready for a new query.
	KindIdle Kind = "idle"
	// KindInterrupted means an interrupt awaits a decision. The original
	// query must not be re-issued.
	KindInterrupted Kind = "interrupted"
	// KindCompleted means the last turn finished; surface it, then start fresh.
	KindCompleted Kind = "completed"
	// KindErrored means the last turn failed; surface it, then start fresh.
	KindErrored Kind = "errored"
	// KindAbandoned means the session stayed busy past the poll cap. The other
	// actor's work is left alone and a fresh query starts.
	KindAbandoned Kind = "abandoned"
)

// Outcome is the result of one reconciliation.
type Outcome struct {
	Kind Kind

	// Report is the last authoritative status report.
	Report *protocol.StatusReport

	// Interrupt is set for KindInterrupted.
	Interrupt *protocol.InterruptPayload

	// LastResponse is set for KindCompleted, and for KindErrored when the
	// backend reported one.
	LastResponse *protocol.TurnResponse

	// Message is the failure message for KindErrored.
	Message string

	// Polls is how many extra status checks were made while the session ran.
	Polls int

	// CacheAgreed reports whether a cached status existed and matched the
	// first authoritative report.
	CacheAgreed bool
}

// FreshQuery reports whether the next step is a brand-new query rather than
// answering a pending interrupt.
func (o Outcome) FreshQuery() bool {
	return o.Kind != KindInterrupted
}

// StatusSource fetches authoritative session status.
type StatusSource interface {
	Status(ctx context.Context, userID, sessionID string) (*protocol.StatusReport, error)
}

// Coordinator runs reconciliations. It is safe for concurrent use.
type Coordinator struct {
	log    *slog.Logger
	source StatusSource
	cache  *statuscache.Cache
	policy PollPolicy
}

// New creates a coordinator. A nil cache disables caching.
func New(log *slog.Logger, source StatusSource, cache *statuscache.Cache, policy PollPolicy) *Coordinator {
	return &Coordinator{
		log:    log.With("component", "recovery"),
		source: source,
		cache:  cache,
		policy: policy.withDefaults(),
	}
}

// Reconcile fetches the status of key and classifies it.
//
// A running session is polled per the PollPolicy; the first non-running report
// is classified in full. Failing to fetch status is returned as an error and
// leaves the session unreconciled.
func (c *Coordinator) Reconcile(ctx context.Context, key statuscache.Key) (Outcome, error) {
	log := c.log.With("user_id", key.UserID, "session_id", key.SessionID)

	var (
		cached    statuscache.Entry
		hadCached bool
	)

	if c.cache != nil {
		cached, hadCached = c.cache.Take(key)
	}

	report, err := c.fetch(ctx, key)
	if err != nil {
		return Outcome{}, err
	}

	agreed := hadCached && cached.Status == report.Status
	if hadCached && !agreed {
		metrics.CacheMismatches.Inc()
		log.Debug("Cached status contradicted by backend",
			"cached", cached.Status,
			"actual", report.Status)
	}

	polls := 0

	if report.Status == protocol.StatusRunning {
		report, polls, err = c.poll(ctx, key, report)
		if err != nil {
			return Outcome{}, err
		}
	}

	outcome := classify(report)
	outcome.Polls = polls
	outcome.CacheAgreed = agreed

	if outcome.Kind == KindFresh && !report.Status.Known() {
		log.Warn("Unknown session status, starting fresh", "status", report.Status)
	}

	metrics.RecoveryOutcomes.WithLabelValues(string(outcome.Kind)).Inc()
	log.Debug("Session reconciled",
		"status", report.Status,
		"outcome", outcome.Kind,
		"polls", polls,
		"cache_agreed", agreed)

	return outcome, nil
}

// poll re-checks a running session until it stops running or the policy is
// exhausted. The last report seen is returned either way.
func (c *Coordinator) poll(
	ctx context.Context,
	key statuscache.Key,
	report *protocol.StatusReport,
) (*protocol.StatusReport, int, error) {
	for attempt := 1; attempt <= c.policy.MaxAttempts; attempt++ {
		if err := c.policy.Sleep(ctx, c.policy.Interval); err != nil {
			return nil, attempt - 1, err
		}

		metrics.PollAttempts.Inc()

		next, err := c.fetch(ctx, key)
		if err != nil {
			return nil, attempt, err
		}

		report = next
		if report.Status != protocol.StatusRunning {
			c.log.Debug("Session stopped running", "status", report.Status, "attempt", attempt)

			return report, attempt, nil
		}
	}

	return report, c.policy.MaxAttempts, nil
}

func (c *Coordinator) fetch(ctx context.Context, key statuscache.Key) (*protocol.StatusReport, error) {
	report, err := c.source.Status(ctx, key.UserID, key.SessionID)
	if err != nil {
		return nil, fmt.Errorf("fetch session status: %w", err)
	}

	if c.cache != nil {
		c.cache.ObserveReport(key, report)
	}

	return report, nil
}

// classify maps an authoritative report to an outcome.
func classify(report *protocol.StatusReport) Outcome {
	outcome := Outcome{Report: report}

	switch report.Status {
	case protocol.StatusIdle:
		outcome.Kind = KindIdle
	case protocol.StatusInterrupted:
		if payload := report.InterruptData(); payload != nil {
			outcome.Kind = KindInterrupted
			outcome.Interrupt = payload
		} else {
			outcome.Kind = KindFresh
		}
	case protocol.StatusCompleted:
		outcome.Kind = KindCompleted
		outcome.LastResponse = report.LastResponse
	case protocol.StatusError:
		outcome.Kind = KindErrored
		outcome.LastResponse = report.LastResponse
		outcome.Message = "unknown error"

		if report.LastResponse != nil && report.LastResponse.Message != "" {
			outcome.Message = report.LastResponse.Message
		}
	case protocol.StatusRunning:
		outcome.Kind = KindAbandoned
	default:
		// not_found and statuses this client does not know.
		outcome.Kind = KindFresh
	}

	return outcome
}
