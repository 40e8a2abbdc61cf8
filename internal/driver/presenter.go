package driver

import (
	"github.com/wagiedev/hitl-agent-client-go/internal/directive"
	"github.com/wagiedev/hitl-agent-client-go/internal/recovery"
)

// Presenter shows turn progress to the operator.
//
// Calls are made from the goroutine running the turn, in event order.
type Presenter interface {
	// Text shows an incremental chunk of streamed assistant text.
	Text(content string)
	// ToolCalls announces actions the agent is about to run.
	ToolCalls(names []string)
	// Resumed confirms the directive sent for an interrupt.
	Resumed(d directive.Directive)
	// Completed shows the final result of a turn.
	Completed(result *TurnResult)
	// Failed shows a backend-reported failure.
	Failed(result *TurnResult)
	// Recovered shows what reconciliation found.
	Recovered(outcome recovery.Outcome)
}

// NopPresenter discards everything.
type NopPresenter struct{}

// Compile-time verification that NopPresenter implements Presenter.
var _ Presenter = NopPresenter{}

// Text implements Presenter.
func (NopPresenter) Text(string) {}

// ToolCalls implements Presenter.
func (NopPresenter) ToolCalls([]string) {}

// Resumed implements Presenter.
func (NopPresenter) Resumed(directive.Directive) {}

// Completed implements Presenter.
func (NopPresenter) Completed(*TurnResult) {}

// Failed implements Presenter.
func (NopPresenter) Failed(*TurnResult) {}

// Recovered implements Presenter.
func (NopPresenter) Recovered(recovery.Outcome) {}
