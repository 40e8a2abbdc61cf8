package render

import (
	"context"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/wagiedev/hitl-agent-client-go/internal/directive"
	"github.com/wagiedev/hitl-agent-client-go/internal/driver"
	"github.com/wagiedev/hitl-agent-client-go/internal/negotiator"
	"github.com/wagiedev/hitl-agent-client-go/internal/protocol"
	"github.com/wagiedev/hitl-agent-client-go/internal/recovery"
)

// Compile-time verification that Console serves both sides of a turn.
var (
	_ driver.Presenter    = (*Console)(nil)
	_ negotiator.Operator = (*Console)(nil)
)

// Console is the terminal the operator works in. It presents turn progress
// and collects interrupt decisions.
type Console struct {
	out   io.Writer
	lines *LineReader

	mu sync.Mutex
	// midLine is set while streamed text has left the cursor mid-line.
	midLine bool
}

// NewConsole reads operator input from in and draws to out.
func NewConsole(in io.Reader, out io.Writer) *Console {
	return &Console{
		out:   out,
		lines: NewLineReader(in),
	}
}

// ReadLine reads one line of operator input.
func (c *Console) ReadLine(ctx context.Context) (string, error) {
	return c.lines.ReadLine(ctx)
}

// Prompt writes the REPL prompt.
func (c *Console) Prompt(sessionID string) {
	c.write(dimStyle.Render("["+shortID(sessionID)+"]") + " " + highlightStyle.Render(">") + " ")
}

// Info prints an informational line.
func (c *Console) Info(msg string) {
	c.println(infoStyle.Render(msg))
}

// Warning prints a warning line.
func (c *Console) Warning(msg string) {
	c.println(warnStyle.Render("! " + msg))
}

// Error prints an error line.
func (c *Console) Error(msg string) {
	c.println(errorStyle.Render("✗ " + msg))
}

// Success prints a confirmation line.
func (c *Console) Success(msg string) {
	c.println(successStyle.Render("✓ " + msg))
}

// Text implements driver.Presenter.
func (c *Console) Text(content string) {
	if content == "" {
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	fmt.Fprint(c.out, content)

	c.midLine = !strings.HasSuffix(content, "\n")
}

// ToolCalls implements driver.Presenter.
func (c *Console) ToolCalls(names []string) {
	for _, name := range names {
		c.println(highlightStyle.Render("→ calling tool: " + name))
	}
}

// Resumed implements driver.Presenter.
func (c *Console) Resumed(d directive.Directive) {
	c.println(dimStyle.Render("resuming with " + string(d.Kind())))
}

// Completed implements driver.Presenter.
func (c *Console) Completed(result *driver.TurnResult) {
	answer := result.FinalMessage()
	if answer == "" {
		answer = dimStyle.Render("(no message)")
	}

	c.println(panel("Agent answer", answer, colorSuccess))
}

// Failed implements driver.Presenter.
func (c *Console) Failed(result *driver.TurnResult) {
	msg := result.Message
	if msg == "" {
		msg = "unknown error"
	}

	c.println(panel("Agent error", msg, colorError))
}

// Recovered implements driver.Presenter.
func (c *Console) Recovered(outcome recovery.Outcome) {
	if outcome.Report != nil && outcome.Report.Status != protocol.StatusNotFound {
		c.Status(outcome.Report)
	}

	switch outcome.Kind {
	case recovery.KindInterrupted:
		c.Warning("session has a pending interrupt; resuming it")
	case recovery.KindCompleted:
		msg, _ := outcome.LastResponse.FinalMessage()
		if msg == "" {
			msg = dimStyle.Render("(no message)")
		}

		c.println(panel("Previous answer", msg, colorSuccess))
		c.Info("previous turn had completed; starting a new query")
	case recovery.KindErrored:
		c.println(panel("Previous error", outcome.Message, colorError))
		c.Info("previous turn had failed; starting a new query")
	case recovery.KindAbandoned:
		c.Warning(fmt.Sprintf("session stayed busy after %d checks; starting a new query", outcome.Polls))
	case recovery.KindIdle:
		c.Info("session is idle; ready for a new query")
	default:
		c.Info("no pending work on this session; starting fresh")
	}
}

// ShowInterrupt implements negotiator.Operator.
func (c *Console) ShowInterrupt(_ context.Context, payload *protocol.InterruptPayload) {
	var body strings.Builder

	if payload.Description != "" {
		body.WriteString(payload.Description + "\n\n")
	}

	body.WriteString(highlightStyle.Render("action: ") + payload.ActionRequest.Action + "\n")
	body.WriteString(highlightStyle.Render("args:") + "\n" + payload.ActionRequest.ArgsJSON())

	c.println(panel("Approval required", body.String(), colorWarn))
}

// Ask implements negotiator.Operator.
func (c *Console) Ask(ctx context.Context, prompt string) (string, error) {
	c.write(highlightStyle.Render(prompt) + ": ")

	return c.lines.ReadLine(ctx)
}

// Warn implements negotiator.Operator.
func (c *Console) Warn(_ context.Context, message string) {
	c.Warning(message)
}

// Status draws a session status report.
func (c *Console) Status(report *protocol.StatusReport) {
	var body strings.Builder

	fmt.Fprintf(&body, "user:    %s\n", report.UserID)
	fmt.Fprintf(&body, "session: %s\n", report.SessionID)
	fmt.Fprintf(&body, "status:  %s", report.Status)

	if report.LastQuery != "" {
		fmt.Fprintf(&body, "\nquery:   %s", report.LastQuery)
	}

	if updated := report.UpdatedAt(); !updated.IsZero() {
		fmt.Fprintf(&body, "\nupdated: %s", updated.Format("2006-01-02 15:04:05"))
	}

	c.println(panel("Session status", body.String(), statusColor(report.Status)))
}

// SystemInfo draws the backend summary.
func (c *Console) SystemInfo(info *protocol.SystemInfo) {
	body := fmt.Sprintf("sessions:     %d\nactive users: %v", info.SessionsCount, info.ActiveUsers)

	c.println(panel("Backend", body, colorInfo))
}

// Sessions lists session IDs with the current one marked.
func (c *Console) Sessions(ids []string, current string) {
	if len(ids) == 0 {
		c.Info("no sessions found")

		return
	}

	var body strings.Builder

	for i, id := range ids {
		marker := "  "
		if id == current {
			marker = "* "
		}

		fmt.Fprintf(&body, "%s%d. %s\n", marker, i+1, id)
	}

	c.println(panel("Sessions", body.String(), colorInfo))
}

// Help lists the REPL commands.
func (c *Console) Help(commands [][2]string) {
	var body strings.Builder

	for _, cmd := range commands {
		fmt.Fprintf(&body, "%-10s %s\n", cmd[0], cmd[1])
	}

	c.println(panel("Commands", body.String(), colorInfo))
}

func (c *Console) println(line string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.midLine {
		fmt.Fprintln(c.out)

		c.midLine = false
	}

	fmt.Fprintln(c.out, line)
}

func (c *Console) write(s string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.midLine {
		fmt.Fprintln(c.out)

		c.midLine = false
	}

	fmt.Fprint(c.out, s)
}

func shortID(id string) string {
	if len(id) <= 8 {
		return id
	}

	return id[:8]
}
