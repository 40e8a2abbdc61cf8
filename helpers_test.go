package hitlclient_test

import (
	"context"
	"fmt"
	"io"
	"sync"

	hitlclient "github.com/wagiedev/hitl-agent-client-go"
)

// mockBackend implements hitlclient.Backend with scripted blocking responses.
type mockBackend struct {
	mu sync.Mutex

	status          *hitlclient.StatusReport
	invokeResponses []*hitlclient.TurnResponse
	resumeResponses []*hitlclient.TurnResponse

	invokes []*hitlclient.QueryRequest
	resumes []*hitlclient.ResumeRequest
}

var _ hitlclient.Backend = (*mockBackend)(nil)

func newMockBackend() *mockBackend {
	return &mockBackend{}
}

func (m *mockBackend) Invoke(_ context.Context, req *hitlclient.QueryRequest) (*hitlclient.TurnResponse, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.invokes = append(m.invokes, req)

	if len(m.invokeResponses) == 0 {
		return nil, fmt.Errorf("no scripted invoke response")
	}

	resp := m.invokeResponses[0]
	m.invokeResponses = m.invokeResponses[1:]

	return resp, nil
}

func (m *mockBackend) InvokeStream(context.Context, *hitlclient.QueryRequest) (io.ReadCloser, error) {
	return nil, fmt.Errorf("streaming not scripted")
}

func (m *mockBackend) Resume(_ context.Context, req *hitlclient.ResumeRequest) (*hitlclient.TurnResponse, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.resumes = append(m.resumes, req)

	if len(m.resumeResponses) == 0 {
		return nil, fmt.Errorf("no scripted resume response")
	}

	resp := m.resumeResponses[0]
	m.resumeResponses = m.resumeResponses[1:]

	return resp, nil
}

func (m *mockBackend) Status(_ context.Context, userID, sessionID string) (*hitlclient.StatusReport, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.status != nil {
		report := m.status
		// Report the pending interrupt once, then the session is idle.
		m.status = nil

		return report, nil
	}

	return &hitlclient.StatusReport{UserID: userID, SessionID: sessionID, Status: hitlclient.StatusNotFound}, nil
}

func (m *mockBackend) ActiveSessionID(context.Context, string) (string, error) { return "", nil }

func (m *mockBackend) SessionIDs(context.Context, string) ([]string, error) { return nil, nil }

func (m *mockBackend) SystemInfo(context.Context) (*hitlclient.SystemInfo, error) {
	return &hitlclient.SystemInfo{}, nil
}

func (m *mockBackend) DeleteSession(context.Context, string, string) error { return nil }

func (m *mockBackend) WriteLongTermMemory(context.Context, string, string) error { return nil }

func completed(content string) *hitlclient.TurnResponse {
	return &hitlclient.TurnResponse{
		SessionID: "s1",
		Status:    hitlclient.StatusCompleted,
		Result:    map[string]any{"messages": []any{map[string]any{"content": content}}},
	}
}

func interrupted(action string, args map[string]any) *hitlclient.TurnResponse {
	return &hitlclient.TurnResponse{
		SessionID: "s1",
		Status:    hitlclient.StatusInterrupted,
		InterruptData: &hitlclient.InterruptPayload{
			Description:   "Approve " + action,
			ActionRequest: hitlclient.ActionRequest{Action: action, Args: args},
		},
	}
}
