// Package repl implements the operator's prompt loop.
package repl

import (
	"context"
	stderrors "errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strconv"
	"strings"

	"github.com/google/uuid"

	"github.com/wagiedev/hitl-agent-client-go/internal/driver"
	"github.com/wagiedev/hitl-agent-client-go/internal/protocol"
	"github.com/wagiedev/hitl-agent-client-go/internal/recovery"
	"github.com/wagiedev/hitl-agent-client-go/internal/render"
)

// Driver runs turns on the current session.
type Driver interface {
	Session() string
	Submit(ctx context.Context, query string) (*driver.TurnResult, error)
	Status(ctx context.Context) (*protocol.StatusReport, error)
	Reconcile(ctx context.Context) (recovery.Outcome, error)
	UseSession(sessionID string) error
}

// Directory manages the user's sessions and preferences on the backend.
type Directory interface {
	SessionIDs(ctx context.Context, userID string) ([]string, error)
	DeleteSession(ctx context.Context, userID, sessionID string) error
	WriteLongTermMemory(ctx context.Context, userID, memoryInfo string) error
}

// Config configures a REPL.
type Config struct {
	UserID string

	// NewSessionID generates IDs for new sessions. Defaults to random UUIDs.
	NewSessionID func() string

	// TurnContext derives the context of one turn. The default cancels the
	// turn on SIGINT.
	TurnContext func(ctx context.Context) (context.Context, context.CancelFunc)
}

var commands = [][2]string{
	{"status", "show the current session's status"},
	{"new", "start a new session"},
	{"history", "resume one of your previous sessions"},
	{"setting", "store a preference in long-term memory"},
	{"delete", "delete the current session and start a new one"},
	{"help", "show this list"},
	{"exit", "quit"},
}

// REPL reads operator input. Reserved commands are handled locally; any
// other line is submitted as a query.
type REPL struct {
	log       *slog.Logger
	console   *render.Console
	driver    Driver
	directory Directory
	cfg       Config
}

// New creates a REPL.
func New(log *slog.Logger, console *render.Console, d Driver, dir Directory, cfg Config) *REPL {
	if cfg.NewSessionID == nil {
		cfg.NewSessionID = uuid.NewString
	}

	if cfg.TurnContext == nil {
		cfg.TurnContext = func(ctx context.Context) (context.Context, context.CancelFunc) {
			return signal.NotifyContext(ctx, os.Interrupt)
		}
	}

	return &REPL{
		log:       log.With("component", "repl"),
		console:   console,
		driver:    d,
		directory: dir,
		cfg:       cfg,
	}
}

// Run reads commands until exit, end of input, or ctx is done.
func (r *REPL) Run(ctx context.Context) error {
	r.console.Info(fmt.Sprintf("User %s, session %s", r.cfg.UserID, r.driver.Session()))
	r.console.Info("Ask a question, or type 'help' for commands.")

	for {
		r.console.Prompt(r.driver.Session())

		line, err := r.console.ReadLine(ctx)
		if err != nil {
			if stderrors.Is(err, io.EOF) || ctx.Err() != nil {
				r.console.Info("Bye!")

				return nil
			}

			return fmt.Errorf("read input: %w", err)
		}

		input := strings.TrimSpace(line)
		if input == "" {
			continue
		}

		quit, err := r.executeCommand(ctx, input)
		if err != nil {
			r.console.Error(err.Error())
		}

		if quit {
			r.console.Info("Bye!")

			return nil
		}
	}
}

// executeCommand handles one line of input. It reports whether to quit.
func (r *REPL) executeCommand(ctx context.Context, input string) (bool, error) {
	switch strings.ToLower(input) {
	case "exit", "quit":
		return true, nil
	case "help", "?":
		r.console.Help(commands)

		return false, nil
	case "status":
		return false, r.cmdStatus(ctx)
	case "new":
		return false, r.cmdNew()
	case "history":
		return false, r.cmdHistory(ctx)
	case "setting":
		return false, r.cmdSetting(ctx)
	case "delete":
		return false, r.cmdDelete(ctx)
	default:
		return false, r.submit(ctx, input)
	}
}

func (r *REPL) submit(ctx context.Context, query string) error {
	turnCtx, stop := r.cfg.TurnContext(ctx)
	defer stop()

	r.console.Info("Submitting query...")

	result, err := r.driver.Submit(turnCtx, query)
	if err != nil {
		if turnCtx.Err() != nil && ctx.Err() == nil {
			r.console.Warning("Turn cancelled; the session will be checked before your next query")

			return nil
		}

		return fmt.Errorf("query failed: %w", err)
	}

	r.log.Debug("Turn finished",
		"turn_id", result.TurnID,
		"outcome", result.Outcome,
		"interrupts", result.Interrupts,
	)

	return nil
}

func (r *REPL) cmdStatus(ctx context.Context) error {
	report, err := r.driver.Status(ctx)
	if err != nil {
		return fmt.Errorf("status: %w", err)
	}

	r.console.Status(report)

	return nil
}

func (r *REPL) cmdNew() error {
	id := r.cfg.NewSessionID()
	if err := r.driver.UseSession(id); err != nil {
		return fmt.Errorf("new session: %w", err)
	}

	r.console.Info("Started new session " + id)

	return nil
}

func (r *REPL) cmdHistory(ctx context.Context) error {
	ids, err := r.directory.SessionIDs(ctx, r.cfg.UserID)
	if err != nil {
		r.console.Warning(fmt.Sprintf("Could not list sessions: %v", err))

		return nil
	}

	if len(ids) == 0 {
		r.console.Info("No previous sessions")

		return r.cmdNew()
	}

	r.console.Sessions(ids, r.driver.Session())

	choice, err := r.console.Ask(ctx, "Session number or ID (blank to stay)")
	if err != nil {
		return fmt.Errorf("history: %w", err)
	}

	id := pickSession(ids, strings.TrimSpace(choice))
	if id == "" {
		return nil
	}

	if err := r.driver.UseSession(id); err != nil {
		return fmt.Errorf("history: %w", err)
	}

	r.console.Info("Resuming session " + id)

	turnCtx, stop := r.cfg.TurnContext(ctx)
	defer stop()

	if _, err := r.driver.Reconcile(turnCtx); err != nil {
		return fmt.Errorf("recover session %s: %w", id, err)
	}

	return nil
}

func (r *REPL) cmdSetting(ctx context.Context) error {
	info, err := r.console.Ask(ctx, "Preference to remember")
	if err != nil {
		return fmt.Errorf("setting: %w", err)
	}

	info = strings.TrimSpace(info)
	if info == "" {
		r.console.Info("Nothing stored")

		return nil
	}

	if err := r.directory.WriteLongTermMemory(ctx, r.cfg.UserID, info); err != nil {
		r.console.Warning(fmt.Sprintf("Could not store preference: %v", err))

		return nil
	}

	r.console.Success("Preference stored")

	return nil
}

func (r *REPL) cmdDelete(ctx context.Context) error {
	current := r.driver.Session()

	if err := r.directory.DeleteSession(ctx, r.cfg.UserID, current); err != nil {
		return fmt.Errorf("delete session %s: %w", current, err)
	}

	r.console.Success("Deleted session " + current)

	return r.cmdNew()
}

// pickSession resolves a 1-based index or a literal session ID.
func pickSession(ids []string, choice string) string {
	if choice == "" {
		return ""
	}

	if n, err := strconv.Atoi(choice); err == nil && n >= 1 && n <= len(ids) {
		return ids[n-1]
	}

	return choice
}
