package hitlclient_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	hitlclient "github.com/wagiedev/hitl-agent-client-go"
)

func blockingOptions(b *mockBackend, n hitlclient.Negotiator) []hitlclient.Option {
	return []hitlclient.Option{
		hitlclient.WithBackend(b),
		hitlclient.WithUserID("alice"),
		hitlclient.WithSessionID("s1"),
		hitlclient.WithStreaming(false),
		hitlclient.WithNegotiator(n),
	}
}

func TestQuery_EditedInterrupt(t *testing.T) {
	b := newMockBackend()
	b.invokeResponses = []*hitlclient.TurnResponse{interrupted("book_hotel", map[string]any{"city": "Beijing"})}
	b.resumeResponses = []*hitlclient.TurnResponse{completed("Booked in Shanghai")}

	var seen []string

	n := hitlclient.NegotiatorFunc(func(_ context.Context, p *hitlclient.InterruptPayload) (hitlclient.Directive, error) {
		seen = append(seen, p.ActionRequest.Action)

		return &hitlclient.Edit{Args: map[string]any{"city": "Shanghai"}}, nil
	})

	result, err := hitlclient.Query(context.Background(), "Book a hotel", blockingOptions(b, n)...)
	require.NoError(t, err)

	assert.Equal(t, hitlclient.OutcomeCompleted, result.Outcome)
	assert.Equal(t, "Booked in Shanghai", result.FinalMessage())
	assert.Equal(t, 1, result.Interrupts)
	assert.Equal(t, []string{"book_hotel"}, seen)

	require.Len(t, b.resumes, 1)
	assert.Equal(t, "edit", b.resumes[0].ResponseType)
	assert.Equal(t, map[string]any{"args": map[string]any{"city": "Shanghai"}}, b.resumes[0].Args)
}

func TestQuery_ResumesPendingInterruptBeforeSubmitting(t *testing.T) {
	b := newMockBackend()
	b.status = &hitlclient.StatusReport{
		UserID:       "alice",
		SessionID:    "s1",
		Status:       hitlclient.StatusInterrupted,
		LastQuery:    "earlier question",
		LastResponse: interrupted("send_email", map[string]any{"to": "ops@example.com"}),
	}
	b.resumeResponses = []*hitlclient.TurnResponse{completed("Email sent")}
	b.invokeResponses = []*hitlclient.TurnResponse{completed("New answer")}

	result, err := hitlclient.Query(context.Background(), "new question",
		blockingOptions(b, hitlclient.AcceptAll())...)
	require.NoError(t, err)
	assert.Equal(t, "New answer", result.FinalMessage())

	require.Len(t, b.resumes, 1)
	assert.Equal(t, "accept", b.resumes[0].ResponseType)
	assert.Nil(t, b.resumes[0].Args)

	require.Len(t, b.invokes, 1)
	assert.Equal(t, "new question", b.invokes[0].Query, "the earlier query is never re-issued")
}

func TestQuery_InvalidEditNeverReachesBackend(t *testing.T) {
	b := newMockBackend()
	b.invokeResponses = []*hitlclient.TurnResponse{interrupted("book_hotel", map[string]any{"nights": 2.0})}

	n := hitlclient.NegotiatorFunc(func(context.Context, *hitlclient.InterruptPayload) (hitlclient.Directive, error) {
		return &hitlclient.Edit{Args: map[string]any{"nights": "two"}}, nil
	})

	_, err := hitlclient.Query(context.Background(), "Book a hotel", blockingOptions(b, n)...)
	require.Error(t, err)

	_, ok := errors.AsType[*hitlclient.DirectiveError](err)
	assert.True(t, ok, "got %v", err)
	assert.Empty(t, b.resumes)
}

func TestQuery_BackendFailureIsAResult(t *testing.T) {
	b := newMockBackend()
	b.invokeResponses = []*hitlclient.TurnResponse{{
		SessionID: "s1",
		Status:    hitlclient.StatusError,
		Message:   "tool crashed",
	}}

	result, err := hitlclient.Query(context.Background(), "Do it", blockingOptions(b, hitlclient.AcceptAll())...)
	require.NoError(t, err)
	assert.Equal(t, hitlclient.OutcomeError, result.Outcome)

	sessionErr, ok := errors.AsType[*hitlclient.SessionError](result.Err())
	require.True(t, ok)
	assert.Equal(t, "tool crashed", sessionErr.Message)
}

func TestClient_NotStarted(t *testing.T) {
	c := hitlclient.NewClient()

	_, err := c.Query(context.Background(), "hello")
	require.ErrorIs(t, err, hitlclient.ErrClientNotStarted)
	require.NoError(t, c.Close())
}

func TestClient_Sessions(t *testing.T) {
	c := hitlclient.NewClient()
	require.NoError(t, c.Start(context.Background(), blockingOptions(newMockBackend(), hitlclient.AcceptAll())...))

	defer c.Close()

	assert.Equal(t, "s1", c.SessionID())

	id, err := c.NewSession()
	require.NoError(t, err)
	assert.Equal(t, id, c.SessionID())

	report, err := c.Status(context.Background())
	require.NoError(t, err)
	assert.Equal(t, hitlclient.StatusNotFound, report.Status)
}
