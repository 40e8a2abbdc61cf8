package driver

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wagiedev/hitl-agent-client-go/internal/directive"
	clienterrors "github.com/wagiedev/hitl-agent-client-go/internal/errors"
	"github.com/wagiedev/hitl-agent-client-go/internal/negotiator"
	"github.com/wagiedev/hitl-agent-client-go/internal/protocol"
	"github.com/wagiedev/hitl-agent-client-go/internal/recovery"
)

const (
	hiChunk       = `{"type": "text_chunk", "content": "Let me check. "}`
	toolCallEvent = `{"type": "tool_call", "data": {"tool_calls": [{"name": "book_hotel"}]}}`
	lateChunk     = `{"type": "text_chunk", "content": "should never be seen"}`
	interruptEvt  = `{"type": "interrupt", "session_id": "s1", "interrupt_data": {"description": "Approve booking?", "action_request": {"action": "book_hotel", "args": {"hotel_name": "Hilton", "nights": 2}}}}`
	completedEvt  = `{"type": "completed", "data": {"session_id": "s1", "status": "completed", "result": {"messages": [{"content": "All done"}]}}}`
	errorEvt      = `{"type": "error", "session_id": "s1", "error_message": "tool crashed"}`
)

// decisions returns a negotiator that answers with ds in order and records the
// payloads it was shown.
func decisions(seen *[]*protocol.InterruptPayload, ds ...directive.Directive) negotiator.Func {
	return func(_ context.Context, payload *protocol.InterruptPayload) (directive.Directive, error) {
		*seen = append(*seen, payload)

		d := ds[0]
		ds = ds[1:]

		return d, nil
	}
}

func noPoll() recovery.PollPolicy {
	return recovery.PollPolicy{
		MaxAttempts: 3,
		Interval:    time.Second,
		Sleep:       func(ctx context.Context, _ time.Duration) error { return ctx.Err() },
	}
}

func newDriver(
	b *fakeBackend,
	n negotiator.Negotiator,
	streaming bool,
) (*Driver, *recordingPresenter) {
	p := &recordingPresenter{}
	d := New(discardLogger(),
		Config{UserID: "u1", SessionID: "s1", Streaming: streaming, SystemMessage: "be helpful"},
		b, n,
		WithPresenter(p),
		WithPollPolicy(noPoll()),
	)

	return d, p
}

func TestSubmit_StreamCompleted(t *testing.T) {
	b := &fakeBackend{streams: []string{sse(hiChunk, completedEvt)}}
	d, p := newDriver(b, negotiator.AcceptAll(), true)

	result, err := d.Submit(context.Background(), "  book me a hotel ")
	require.NoError(t, err)

	assert.Equal(t, OutcomeCompleted, result.Outcome)
	assert.Equal(t, "All done", result.FinalMessage())
	assert.Equal(t, "Let me check. ", result.Text)
	assert.NotEmpty(t, result.TurnID)
	assert.NoError(t, result.Err())
	assert.Equal(t, StateIdle, d.State())
	assert.Equal(t, []string{"Let me check. "}, p.text)
	require.Len(t, p.completed, 1)

	require.Len(t, b.invokes, 1)
	assert.Equal(t, "book me a hotel", b.invokes[0].Query)
	assert.Equal(t, "be helpful", b.invokes[0].SystemMessage)
}

func TestSubmit_ToolCallThenInterrupt(t *testing.T) {
	b := &fakeBackend{
		streams:         []string{sse(hiChunk, toolCallEvent, interruptEvt, lateChunk, completedEvt)},
		resumeResponses: []*protocol.TurnResponse{completedResponse("Booked the Hilton")},
	}

	var seen []*protocol.InterruptPayload

	var statesDuringNegotiation []State

	var d *Driver

	n := negotiator.Func(func(_ context.Context, payload *protocol.InterruptPayload) (directive.Directive, error) {
		seen = append(seen, payload)
		statesDuringNegotiation = append(statesDuringNegotiation, d.State())

		return &directive.Accept{}, nil
	})

	d, p := newDriver(b, n, true)

	result, err := d.Submit(context.Background(), "book a hotel")
	require.NoError(t, err)

	assert.Equal(t, []State{StateInterrupted}, statesDuringNegotiation)
	require.Len(t, seen, 1)
	assert.Equal(t, "book_hotel", seen[0].ActionRequest.Action)
	assert.Equal(t, map[string]any{"hotel_name": "Hilton", "nights": float64(2)}, seen[0].ActionRequest.Args)

	assert.Equal(t, []string{"Let me check. "}, p.text, "no text after the interrupt")
	assert.Equal(t, []string{"book_hotel"}, result.ToolCalls)
	assert.Equal(t, 1, result.Interrupts)
	assert.Equal(t, "Booked the Hilton", result.FinalMessage())
	assert.Equal(t, []directive.Kind{directive.KindAccept}, p.resumed)

	resumes := b.resumeRequests()
	require.Len(t, resumes, 1)
	assert.Equal(t, "accept", resumes[0].ResponseType)
	assert.Nil(t, resumes[0].Args, "accept leaves the proposed action untouched")
	assert.Equal(t, StateIdle, d.State())
}

func TestSubmit_ChainedInterrupts(t *testing.T) {
	b := &fakeBackend{
		invokeResponses: []*protocol.TurnResponse{interruptedResponse("search_flights", map[string]any{"to": "Paris"})},
		resumeResponses: []*protocol.TurnResponse{
			interruptedResponse("book_hotel", map[string]any{"hotel_name": "Hilton"}),
			interruptedResponse("send_email", map[string]any{"to": "me"}),
			completedResponse("Trip planned"),
		},
	}

	var seen []*protocol.InterruptPayload

	n := decisions(&seen,
		&directive.Accept{},
		&directive.Edit{Args: map[string]any{"hotel_name": "Marriott"}},
		&directive.Respond{Text: "Do not email me"},
	)
	d, _ := newDriver(b, n, false)

	result, err := d.Submit(context.Background(), "plan a trip")
	require.NoError(t, err)

	assert.Equal(t, 3, result.Interrupts)
	assert.Equal(t, "Trip planned", result.FinalMessage())

	resumes := b.resumeRequests()
	require.Len(t, resumes, 3)
	assert.Equal(t, "accept", resumes[0].ResponseType)
	assert.Equal(t, "edit", resumes[1].ResponseType)
	assert.Equal(t, map[string]any{"args": map[string]any{"hotel_name": "Marriott"}}, resumes[1].Args)
	assert.Equal(t, "response", resumes[2].ResponseType)
	assert.Equal(t, map[string]any{"args": "Do not email me"}, resumes[2].Args)
}

func TestSubmit_BackendErrorIsAResult(t *testing.T) {
	b := &fakeBackend{streams: []string{sse(hiChunk, errorEvt)}}
	d, p := newDriver(b, negotiator.AcceptAll(), true)

	result, err := d.Submit(context.Background(), "do something risky")
	require.NoError(t, err)

	assert.Equal(t, OutcomeError, result.Outcome)
	assert.Equal(t, "tool crashed", result.Message)

	sessionErr, ok := errors.AsType[*clienterrors.SessionError](result.Err())
	require.True(t, ok)
	assert.Equal(t, "tool crashed", sessionErr.Message)

	require.Len(t, p.failed, 1)
	assert.Equal(t, StateIdle, d.State())
	assert.Len(t, b.invokes, 1, "failed queries are not retried")
	assert.False(t, d.NeedsRecovery())
}

func TestSubmit_EditRejectedByBackend(t *testing.T) {
	b := &fakeBackend{
		invokeResponses: []*protocol.TurnResponse{interruptedResponse("book_hotel", map[string]any{"hotel_name": "Hilton"})},
		resumeResponses: []*protocol.TurnResponse{{SessionID: "s1", Status: protocol.StatusError, Message: "no such hotel"}},
	}

	var seen []*protocol.InterruptPayload

	d, _ := newDriver(b, decisions(&seen, &directive.Edit{Args: map[string]any{"hotel_name": "Atlantis"}}), false)

	result, err := d.Submit(context.Background(), "book a hotel")
	require.NoError(t, err)
	assert.Equal(t, OutcomeError, result.Outcome)
	assert.Equal(t, "no such hotel", result.Message)
}

func TestSubmit_InvalidEditNeverReachesBackend(t *testing.T) {
	b := &fakeBackend{
		streams:         []string{sse(interruptEvt)},
		resumeResponses: []*protocol.TurnResponse{completedResponse("Booked")},
	}

	op := &lineOperator{answers: []string{"edit", `{"hotel_name": Marriott}`, `{"nights": "many"}`, `{"hotel_name": "Marriott"}`}}
	d, _ := newDriver(b, negotiator.NewInteractive(discardLogger(), op), true)

	result, err := d.Submit(context.Background(), "book a hotel")
	require.NoError(t, err)
	assert.Equal(t, OutcomeCompleted, result.Outcome)

	resumes := b.resumeRequests()
	require.Len(t, resumes, 1)
	assert.Equal(t, map[string]any{"args": map[string]any{"hotel_name": "Marriott"}}, resumes[0].Args)
	assert.Len(t, op.warnings, 2)
}

func TestSubmit_MissingTerminalEvent(t *testing.T) {
	b := &fakeBackend{
		streams:  []string{sse(hiChunk, toolCallEvent), sse(completedEvt)},
		statuses: []*protocol.StatusReport{{UserID: "u1", SessionID: "s1", Status: protocol.StatusIdle}},
	}
	d, _ := newDriver(b, negotiator.AcceptAll(), true)

	_, err := d.Submit(context.Background(), "hello")
	require.ErrorIs(t, err, clienterrors.ErrNoTerminalEvent)

	_, ok := errors.AsType[*clienterrors.ProtocolError](err)
	require.True(t, ok)
	assert.Equal(t, StateIdle, d.State())
	assert.True(t, d.NeedsRecovery())
	assert.Equal(t, 0, b.statusCalls, "recovery is deferred to the next turn")

	result, err := d.Submit(context.Background(), "hello again")
	require.NoError(t, err)
	assert.Equal(t, OutcomeCompleted, result.Outcome)
	assert.Equal(t, 1, b.statusCalls)
	assert.False(t, d.NeedsRecovery())
}

func TestSubmit_NonTerminalBlockingResponse(t *testing.T) {
	b := &fakeBackend{invokeResponses: []*protocol.TurnResponse{{SessionID: "s1", Status: protocol.StatusRunning}}}
	d, _ := newDriver(b, negotiator.AcceptAll(), false)

	_, err := d.Submit(context.Background(), "hello")
	require.ErrorIs(t, err, protocol.ErrNotTerminal)
	assert.True(t, d.NeedsRecovery())
}

func TestSubmit_TransportFailureRunsRecovery(t *testing.T) {
	transportErr := &clienterrors.TransportError{Op: "invoke_stream", Err: errors.New("connection reset")}
	b := &fakeBackend{
		streamErr: transportErr,
		statuses:  []*protocol.StatusReport{{UserID: "u1", SessionID: "s1", Status: protocol.StatusIdle}},
	}
	d, p := newDriver(b, negotiator.AcceptAll(), true)

	_, err := d.Submit(context.Background(), "hello")
	require.ErrorIs(t, err, transportErr)
	assert.Equal(t, 1, b.statusCalls)
	assert.False(t, d.NeedsRecovery())
	require.Len(t, p.recovered, 1)
	assert.Equal(t, recovery.KindIdle, p.recovered[0].Kind)
}

func TestSubmit_TransportFailureWithUnreachableStatus(t *testing.T) {
	transportErr := &clienterrors.TransportError{Op: "invoke", Err: errors.New("connection refused")}
	b := &fakeBackend{invokeErr: transportErr, statusErr: errors.New("still down")}
	d, _ := newDriver(b, negotiator.AcceptAll(), false)

	_, err := d.Submit(context.Background(), "hello")
	require.ErrorIs(t, err, transportErr)
	assert.True(t, d.NeedsRecovery())
	assert.Equal(t, StateIdle, d.State())
}

func TestSubmit_TurnInFlight(t *testing.T) {
	b := &fakeBackend{
		streams:         []string{sse(interruptEvt)},
		resumeResponses: []*protocol.TurnResponse{completedResponse("ok")},
	}

	entered := make(chan struct{})
	release := make(chan struct{})

	n := negotiator.Func(func(context.Context, *protocol.InterruptPayload) (directive.Directive, error) {
		close(entered)
		<-release

		return &directive.Accept{}, nil
	})

	d, _ := newDriver(b, n, true)

	done := make(chan error, 1)

	go func() {
		_, err := d.Submit(context.Background(), "first")
		done <- err
	}()

	<-entered

	_, err := d.Submit(context.Background(), "second")
	require.ErrorIs(t, err, clienterrors.ErrTurnInFlight)

	_, err = d.Reconcile(context.Background())
	require.ErrorIs(t, err, clienterrors.ErrTurnInFlight)
	require.ErrorIs(t, d.UseSession("s2"), clienterrors.ErrTurnInFlight)

	close(release)
	require.NoError(t, <-done)
	assert.Len(t, b.invokes, 1)
}

func TestSubmit_CancelledDuringNegotiation(t *testing.T) {
	b := &fakeBackend{streams: []string{sse(interruptEvt)}}

	ctx, cancel := context.WithCancel(context.Background())

	n := negotiator.Func(func(ctx context.Context, _ *protocol.InterruptPayload) (directive.Directive, error) {
		cancel()

		return nil, ctx.Err()
	})

	d, _ := newDriver(b, n, true)

	_, err := d.Submit(ctx, "book a hotel")
	require.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, StateIdle, d.State())
	assert.True(t, d.NeedsRecovery())
	assert.Empty(t, b.resumeRequests())
}

func TestSubmit_CancelledStream(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	b := &fakeBackend{streams: []string{sse(hiChunk, completedEvt)}}
	d, _ := newDriver(b, negotiator.AcceptAll(), true)

	_, err := d.Submit(ctx, "hello")
	require.ErrorIs(t, err, context.Canceled)
	assert.True(t, d.NeedsRecovery())
	assert.Equal(t, 0, b.statusCalls)
}

func TestSubmit_EmptyQuery(t *testing.T) {
	d, _ := newDriver(&fakeBackend{}, negotiator.AcceptAll(), true)

	_, err := d.Submit(context.Background(), "   ")
	require.Error(t, err)
}

func TestReconcile_NotFoundStartsFresh(t *testing.T) {
	b := &fakeBackend{}
	d, p := newDriver(b, negotiator.AcceptAll(), true)

	outcome, err := d.Reconcile(context.Background())
	require.NoError(t, err)
	assert.Equal(t, recovery.KindFresh, outcome.Kind)
	assert.True(t, outcome.FreshQuery())
	assert.Empty(t, b.resumeRequests(), "no resume for an unknown session")
	assert.Equal(t, StateIdle, d.State())
	require.Len(t, p.recovered, 1)
}

func TestReconcile_ResumesPendingInterrupt(t *testing.T) {
	interrupted := interruptedResponse("book_hotel", map[string]any{"hotel_name": "Hilton"})
	b := &fakeBackend{
		statuses: []*protocol.StatusReport{{
			UserID: "u1", SessionID: "s1", Status: protocol.StatusInterrupted,
			LastQuery: "book a hotel", LastResponse: interrupted,
		}},
		resumeResponses: []*protocol.TurnResponse{completedResponse("Booked")},
	}

	var seen []*protocol.InterruptPayload

	d, p := newDriver(b, decisions(&seen, &directive.Reject{}), true)

	outcome, err := d.Reconcile(context.Background())
	require.NoError(t, err)
	assert.Equal(t, recovery.KindInterrupted, outcome.Kind)
	assert.Empty(t, b.invokes, "the original query is not re-issued")

	resumes := b.resumeRequests()
	require.Len(t, resumes, 1)
	assert.Equal(t, "reject", resumes[0].ResponseType)
	require.Len(t, p.completed, 1)
	assert.Equal(t, "book a hotel", p.completed[0].Query)
	assert.Equal(t, StateIdle, d.State())
}

func TestReconcile_CompletedPermitsFreshQuery(t *testing.T) {
	for _, status := range []protocol.SessionStatus{protocol.StatusCompleted, protocol.StatusError} {
		t.Run(string(status), func(t *testing.T) {
			b := &fakeBackend{
				statuses: []*protocol.StatusReport{{UserID: "u1", SessionID: "s1", Status: status}},
				streams:  []string{sse(completedEvt)},
			}
			d, _ := newDriver(b, negotiator.AcceptAll(), true)

			outcome, err := d.Reconcile(context.Background())
			require.NoError(t, err)
			assert.True(t, outcome.FreshQuery())
			assert.Equal(t, StateIdle, d.State())

			result, err := d.Submit(context.Background(), "next question")
			require.NoError(t, err)
			assert.Equal(t, OutcomeCompleted, result.Outcome)
			assert.Empty(t, b.resumeRequests())
		})
	}
}

func TestReconcile_RunningPastCapStartsFresh(t *testing.T) {
	b := &fakeBackend{statuses: []*protocol.StatusReport{{UserID: "u1", SessionID: "s1", Status: protocol.StatusRunning}}}
	d, _ := newDriver(b, negotiator.AcceptAll(), true)

	outcome, err := d.Reconcile(context.Background())
	require.NoError(t, err)
	assert.Equal(t, recovery.KindAbandoned, outcome.Kind)
	assert.True(t, outcome.FreshQuery())
	assert.Equal(t, 4, b.statusCalls)
}

func TestStatusAndUseSession(t *testing.T) {
	b := &fakeBackend{statuses: []*protocol.StatusReport{{UserID: "u1", SessionID: "s1", Status: protocol.StatusIdle, LastQuery: "hi"}}}
	d, _ := newDriver(b, negotiator.AcceptAll(), true)

	report, err := d.Status(context.Background())
	require.NoError(t, err)
	assert.Equal(t, protocol.StatusIdle, report.Status)

	entry, ok := d.cache.Peek(d.key())
	require.True(t, ok)
	assert.Equal(t, "hi", entry.LastQuery)

	require.NoError(t, d.UseSession("s2"))
	assert.Equal(t, "s2", d.Session())
	assert.False(t, d.NeedsRecovery())
}

func TestTransitionTable(t *testing.T) {
	d, _ := newDriver(&fakeBackend{}, negotiator.AcceptAll(), true)

	d.mu.Lock()
	defer d.mu.Unlock()

	require.ErrorIs(t, d.transition(StateResuming), clienterrors.ErrInvalidTransition)
	require.NoError(t, d.transition(StateSubmitting))
	require.ErrorIs(t, d.transition(StateResuming), clienterrors.ErrInvalidTransition)
	require.NoError(t, d.transition(StateInterrupted))
	require.ErrorIs(t, d.transition(StateSubmitting), clienterrors.ErrInvalidTransition)
	require.NoError(t, d.transition(StateResuming))
	require.NoError(t, d.transition(StateSubmitting))
	require.NoError(t, d.transition(StateIdle))
}

// lineOperator answers prompts from a fixed list.
type lineOperator struct {
	answers  []string
	warnings []string
}

func (o *lineOperator) ShowInterrupt(context.Context, *protocol.InterruptPayload) {}

func (o *lineOperator) Ask(context.Context, string) (string, error) {
	if len(o.answers) == 0 {
		return "", io.EOF
	}

	answer := o.answers[0]
	o.answers = o.answers[1:]

	return answer, nil
}

func (o *lineOperator) Warn(_ context.Context, message string) {
	o.warnings = append(o.warnings, message)
}
