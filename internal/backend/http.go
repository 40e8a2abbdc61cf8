package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/felixgeelhaar/fortify/circuitbreaker"

	"github.com/wagiedev/hitl-agent-client-go/internal/errors"
	"github.com/wagiedev/hitl-agent-client-go/internal/metrics"
	"github.com/wagiedev/hitl-agent-client-go/internal/protocol"
)

const (
	// maxErrorBody bounds how much of a failed response is kept for diagnostics.
	maxErrorBody = 4 * 1024

	defaultBreakerFailures = 5
	defaultBreakerTimeout  = 30 * time.Second
)

// HTTPBackend talks to the session service over HTTP.
//
// Every request passes through a circuit breaker: once the service fails
// repeatedly, calls fail fast with errors.ErrBackendUnavailable until the
// breaker half-opens again. Requests are never retried here.
type HTTPBackend struct {
	log     *slog.Logger
	baseURL string
	client  *http.Client
	breaker circuitbreaker.CircuitBreaker[*http.Response]

	breakerFailures int
	breakerTimeout  time.Duration
}

// Compile-time verification that HTTPBackend implements Backend.
var _ Backend = (*HTTPBackend)(nil)

// HTTPOption configures an HTTPBackend.
type HTTPOption func(*HTTPBackend)

// WithHTTPClient sets the HTTP client. It must not set a total request
// timeout, since streamed turns stay open for as long as the agent runs.
func WithHTTPClient(client *http.Client) HTTPOption {
	return func(b *HTTPBackend) {
		if client != nil {
			b.client = client
		}
	}
}

// WithCircuitBreaker sets how many consecutive failures open the breaker and
// how long it stays open.
func WithCircuitBreaker(failures int, timeout time.Duration) HTTPOption {
	return func(b *HTTPBackend) {
		if failures > 0 {
			b.breakerFailures = failures
		}

		if timeout > 0 {
			b.breakerTimeout = timeout
		}
	}
}

// NewHTTP creates a backend rooted at baseURL, e.g. "http://localhost:8001".
func NewHTTP(log *slog.Logger, baseURL string, opts ...HTTPOption) *HTTPBackend {
	b := &HTTPBackend{
		log:             log.With("component", "http_backend"),
		baseURL:         strings.TrimRight(baseURL, "/"),
		client:          &http.Client{},
		breakerFailures: defaultBreakerFailures,
		breakerTimeout:  defaultBreakerTimeout,
	}

	for _, opt := range opts {
		opt(b)
	}

	b.breaker = circuitbreaker.New[*http.Response](circuitbreaker.Config{
		MaxRequests: 1,
		Interval:    time.Minute,
		Timeout:     b.breakerTimeout,
		ReadyToTrip: func(counts circuitbreaker.Counts) bool {
			return int(counts.ConsecutiveFailures) >= b.breakerFailures
		},
		OnStateChange: func(from, to circuitbreaker.State) {
			b.log.Warn("Backend circuit breaker state change",
				"from", from.String(),
				"to", to.String())
		},
	})

	return b
}

// Close releases idle connections.
func (b *HTTPBackend) Close() error {
	b.client.CloseIdleConnections()

	return nil
}

// Invoke implements Backend.
func (b *HTTPBackend) Invoke(ctx context.Context, req *protocol.QueryRequest) (*protocol.TurnResponse, error) {
	var resp protocol.TurnResponse
	if err := b.doJSON(ctx, "invoke", http.MethodPost, "/agent/invoke", req, &resp); err != nil {
		return nil, err
	}

	return &resp, nil
}

// InvokeStream implements Backend.
func (b *HTTPBackend) InvokeStream(ctx context.Context, req *protocol.QueryRequest) (io.ReadCloser, error) {
	resp, err := b.do(ctx, "invoke_stream", http.MethodPost, "/agent/invoke/stream", req)
	if err != nil {
		return nil, err
	}

	return resp.Body, nil
}

// Resume implements Backend.
func (b *HTTPBackend) Resume(ctx context.Context, req *protocol.ResumeRequest) (*protocol.TurnResponse, error) {
	var resp protocol.TurnResponse
	if err := b.doJSON(ctx, "resume", http.MethodPost, "/agent/resume", req, &resp); err != nil {
		return nil, err
	}

	return &resp, nil
}

// Status implements Backend.
func (b *HTTPBackend) Status(ctx context.Context, userID, sessionID string) (*protocol.StatusReport, error) {
	var report protocol.StatusReport

	path := "/agent/status/" + url.PathEscape(userID) + "/" + url.PathEscape(sessionID)
	if err := b.doJSON(ctx, "status", http.MethodGet, path, nil, &report); err != nil {
		return nil, err
	}

	return &report, nil
}

// ActiveSessionID implements Backend.
func (b *HTTPBackend) ActiveSessionID(ctx context.Context, userID string) (string, error) {
	var resp protocol.ActiveSessionResponse

	path := "/agent/active/sessionid/" + url.PathEscape(userID)
	if err := b.doJSON(ctx, "active_session", http.MethodGet, path, nil, &resp); err != nil {
		return "", err
	}

	return resp.ActiveSessionID, nil
}

// SessionIDs implements Backend.
func (b *HTTPBackend) SessionIDs(ctx context.Context, userID string) ([]string, error) {
	var resp protocol.SessionIDsResponse

	path := "/agent/sessionids/" + url.PathEscape(userID)
	if err := b.doJSON(ctx, "session_ids", http.MethodGet, path, nil, &resp); err != nil {
		return nil, err
	}

	return resp.SessionIDs, nil
}

// SystemInfo implements Backend.
func (b *HTTPBackend) SystemInfo(ctx context.Context) (*protocol.SystemInfo, error) {
	var info protocol.SystemInfo
	if err := b.doJSON(ctx, "system_info", http.MethodGet, "/system/info", nil, &info); err != nil {
		return nil, err
	}

	return &info, nil
}

// DeleteSession implements Backend.
func (b *HTTPBackend) DeleteSession(ctx context.Context, userID, sessionID string) error {
	path := "/agent/session/" + url.PathEscape(userID) + "/" + url.PathEscape(sessionID)

	err := b.doJSON(ctx, "delete_session", http.MethodDelete, path, nil, nil)
	if errors.IsStatus(err, http.StatusNotFound) {
		b.log.Debug("Session already gone", "user_id", userID, "session_id", sessionID)

		return nil
	}

	return err
}

// WriteLongTermMemory implements Backend.
func (b *HTTPBackend) WriteLongTermMemory(ctx context.Context, userID, memoryInfo string) error {
	req := &protocol.LongTermMemoryRequest{UserID: userID, MemoryInfo: memoryInfo}

	return b.doJSON(ctx, "write_longterm", http.MethodPost, "/agent/write/longterm", req, nil)
}

// doJSON performs a request and decodes a JSON response into out, if non-nil.
func (b *HTTPBackend) doJSON(ctx context.Context, op, method, path string, in, out any) error {
	resp, err := b.do(ctx, op, method, path, in)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)

		return nil
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return &errors.TransportError{Op: op, StatusCode: resp.StatusCode, Err: fmt.Errorf("decode response: %w", err)}
	}

	return nil
}

// do sends one request through the circuit breaker. On success the caller
// owns the response body. Non-2xx responses are returned as *errors.TransportError;
// only server errors and unreachable hosts count as breaker failures.
func (b *HTTPBackend) do(ctx context.Context, op, method, path string, in any) (*http.Response, error) {
	var body io.Reader

	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return nil, fmt.Errorf("%s: encode request: %w", op, err)
		}

		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, b.baseURL+path, body)
	if err != nil {
		return nil, &errors.TransportError{Op: op, Err: err}
	}

	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	attempted := false

	resp, err := b.breaker.Execute(ctx, func(_ context.Context) (*http.Response, error) {
		attempted = true
		start := time.Now()

		resp, err := b.client.Do(req)
		if err != nil {
			metrics.RecordBackendRequest(op, 0, time.Since(start))

			return nil, &errors.TransportError{Op: op, Err: err}
		}

		metrics.RecordBackendRequest(op, resp.StatusCode, time.Since(start))

		if resp.StatusCode >= http.StatusInternalServerError {
			return nil, statusError(op, resp)
		}

		return resp, nil
	})
	if err != nil {
		if !attempted {
			b.log.Debug("Backend call rejected by circuit breaker", "op", op, "error", err)

			return nil, &errors.TransportError{Op: op, Err: fmt.Errorf("%w: %w", errors.ErrBackendUnavailable, err)}
		}

		return nil, err
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, statusError(op, resp)
	}

	return resp, nil
}

// statusError consumes and closes resp.
func statusError(op string, resp *http.Response) error {
	defer resp.Body.Close()

	data, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))

	return &errors.TransportError{
		Op:         op,
		StatusCode: resp.StatusCode,
		Body:       strings.TrimSpace(string(data)),
	}
}
