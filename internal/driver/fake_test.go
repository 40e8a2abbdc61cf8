package driver

import (
	"context"
	"io"
	"log/slog"
	"strings"
	"sync"

	"github.com/wagiedev/hitl-agent-client-go/internal/backend"
	"github.com/wagiedev/hitl-agent-client-go/internal/directive"
	"github.com/wagiedev/hitl-agent-client-go/internal/protocol"
	"github.com/wagiedev/hitl-agent-client-go/internal/recovery"
)

// fakeBackend replays scripted responses and records requests.
type fakeBackend struct {
	mu sync.Mutex

	invokeResponses []*protocol.TurnResponse
	invokeErr       error
	streams         []string
	streamErr       error
	resumeResponses []*protocol.TurnResponse
	resumeErr       error
	statuses        []*protocol.StatusReport
	statusErr       error

	invokes     []*protocol.QueryRequest
	resumes     []*protocol.ResumeRequest
	statusCalls int
}

var _ backend.Backend = (*fakeBackend)(nil)

func (f *fakeBackend) Invoke(_ context.Context, req *protocol.QueryRequest) (*protocol.TurnResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.invokes = append(f.invokes, req)

	if f.invokeErr != nil {
		return nil, f.invokeErr
	}

	resp := f.invokeResponses[0]
	f.invokeResponses = f.invokeResponses[1:]

	return resp, nil
}

func (f *fakeBackend) InvokeStream(_ context.Context, req *protocol.QueryRequest) (io.ReadCloser, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.invokes = append(f.invokes, req)

	if f.streamErr != nil {
		return nil, f.streamErr
	}

	body := f.streams[0]
	f.streams = f.streams[1:]

	return io.NopCloser(strings.NewReader(body)), nil
}

func (f *fakeBackend) Resume(_ context.Context, req *protocol.ResumeRequest) (*protocol.TurnResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.resumes = append(f.resumes, req)

	if f.resumeErr != nil {
		return nil, f.resumeErr
	}

	resp := f.resumeResponses[0]
	f.resumeResponses = f.resumeResponses[1:]

	return resp, nil
}

func (f *fakeBackend) Status(_ context.Context, userID, sessionID string) (*protocol.StatusReport, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.statusCalls++

	if f.statusErr != nil {
		return nil, f.statusErr
	}

	if len(f.statuses) == 0 {
		return &protocol.StatusReport{UserID: userID, SessionID: sessionID, Status: protocol.StatusNotFound}, nil
	}

	report := f.statuses[0]
	if len(f.statuses) > 1 {
		f.statuses = f.statuses[1:]
	}

	return report, nil
}

func (f *fakeBackend) ActiveSessionID(context.Context, string) (string, error) { return "", nil }

func (f *fakeBackend) SessionIDs(context.Context, string) ([]string, error) { return nil, nil }

func (f *fakeBackend) SystemInfo(context.Context) (*protocol.SystemInfo, error) {
	return &protocol.SystemInfo{}, nil
}

func (f *fakeBackend) DeleteSession(context.Context, string, string) error { return nil }

func (f *fakeBackend) WriteLongTermMemory(context.Context, string, string) error { return nil }

func (f *fakeBackend) resumeRequests() []*protocol.ResumeRequest {
	f.mu.Lock()
	defer f.mu.Unlock()

	return append([]*protocol.ResumeRequest(nil), f.resumes...)
}

// recordingPresenter keeps everything it was asked to show.
type recordingPresenter struct {
	mu        sync.Mutex
	text      []string
	tools     []string
	resumed   []directive.Kind
	completed []*TurnResult
	failed    []*TurnResult
	recovered []recovery.Outcome
}

func (p *recordingPresenter) Text(content string) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.text = append(p.text, content)
}

func (p *recordingPresenter) ToolCalls(names []string) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.tools = append(p.tools, names...)
}

func (p *recordingPresenter) Resumed(d directive.Directive) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.resumed = append(p.resumed, d.Kind())
}

func (p *recordingPresenter) Completed(result *TurnResult) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.completed = append(p.completed, result)
}

func (p *recordingPresenter) Failed(result *TurnResult) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.failed = append(p.failed, result)
}

func (p *recordingPresenter) Recovered(outcome recovery.Outcome) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.recovered = append(p.recovered, outcome)
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func sse(lines ...string) string {
	var b strings.Builder

	for _, line := range lines {
		b.WriteString("data: ")
		b.WriteString(line)
		b.WriteString("\n\n")
	}

	return b.String()
}

func completedResponse(content string) *protocol.TurnResponse {
	return &protocol.TurnResponse{
		SessionID: "s1",
		Status:    protocol.StatusCompleted,
		Result:    map[string]any{"messages": []any{map[string]any{"content": content}}},
	}
}

func interruptedResponse(action string, args map[string]any) *protocol.TurnResponse {
	return &protocol.TurnResponse{
		SessionID: "s1",
		Status:    protocol.StatusInterrupted,
		InterruptData: &protocol.InterruptPayload{
			Description:   "approve " + action + "?",
			ActionRequest: protocol.ActionRequest{Action: action, Args: args},
		},
	}
}
