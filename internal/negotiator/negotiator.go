// Package negotiator turns a pending interrupt into exactly one resume directive.
package negotiator

import (
	"context"
	stderrors "errors"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/wagiedev/hitl-agent-client-go/internal/directive"
	"github.com/wagiedev/hitl-agent-client-go/internal/errors"
	"github.com/wagiedev/hitl-agent-client-go/internal/metrics"
	"github.com/wagiedev/hitl-agent-client-go/internal/protocol"
)

// Negotiator decides how to resume an interrupted turn.
//
// Negotiate is called once per interrupt and must return exactly one valid
// directive, or an error if no decision could be obtained. It blocks until a
// decision is made; there is no timeout besides ctx.
type Negotiator interface {
	Negotiate(ctx context.Context, payload *protocol.InterruptPayload) (directive.Directive, error)
}

// Operator is the human on the other side of an interactive negotiation.
type Operator interface {
	// ShowInterrupt presents the paused action.
	ShowInterrupt(ctx context.Context, payload *protocol.InterruptPayload)
	// Ask prompts for one line of input. io.EOF means the operator closed input.
	Ask(ctx context.Context, prompt string) (string, error)
	// Warn reports a rejected input before asking again.
	Warn(ctx context.Context, message string)
}

// Prompts shown by Interactive.
const (
	PromptChoice  = "Approve this action? [yes/no/edit/response]"
	PromptEdit    = "Enter the edited arguments as a JSON object (blank to go back)"
	PromptRespond = "Enter your response to the agent"
)

// Interactive negotiates with an Operator.
type Interactive struct {
	log *slog.Logger
	op  Operator
}

// Compile-time verification that Interactive implements Negotiator.
var _ Negotiator = (*Interactive)(nil)

// NewInteractive creates a negotiator that asks op for every decision.
func NewInteractive(log *slog.Logger, op Operator) *Interactive {
	return &Interactive{
		log: log.With("component", "negotiator"),
		op:  op,
	}
}

// Negotiate implements Negotiator.
//
// Invalid input is reported through Operator.Warn and asked again; the
// interrupt stays pending until a valid directive is produced.
func (n *Interactive) Negotiate(
	ctx context.Context,
	payload *protocol.InterruptPayload,
) (directive.Directive, error) {
	if payload == nil {
		return nil, fmt.Errorf("negotiate: %w", protocol.ErrMissingInterruptData)
	}

	n.op.ShowInterrupt(ctx, payload)

	for {
		choice, err := n.ask(ctx, PromptChoice)
		if err != nil {
			return nil, err
		}

		switch strings.ToLower(strings.TrimSpace(choice)) {
		case "yes", "y", "accept":
			return &directive.Accept{}, nil
		case "no", "n", "reject":
			return &directive.Reject{}, nil
		case "edit", "e":
			edit, err := n.askEdit(ctx, payload.ActionRequest.Args)
			if err != nil {
				return nil, err
			}

			if edit != nil {
				return edit, nil
			}
		case "response", "respond", "r":
			respond, err := n.askRespond(ctx)
			if err != nil {
				return nil, err
			}

			if respond != nil {
				return respond, nil
			}
		default:
			n.op.Warn(ctx, fmt.Sprintf("Unknown choice %q. Enter yes, no, edit or response.", choice))
		}
	}
}

// askEdit returns nil without error when the operator backs out to the choice prompt.
func (n *Interactive) askEdit(ctx context.Context, proposed map[string]any) (*directive.Edit, error) {
	for {
		line, err := n.ask(ctx, PromptEdit)
		if err != nil {
			return nil, err
		}

		if strings.TrimSpace(line) == "" {
			return nil, nil
		}

		edit, err := directive.ParseEdit(line, proposed)
		if err != nil {
			metrics.DirectiveRejections.WithLabelValues(string(directive.KindEdit)).Inc()
			n.log.Debug("Rejected edited arguments", "error", err)
			n.op.Warn(ctx, err.Error())

			continue
		}

		return edit, nil
	}
}

func (n *Interactive) askRespond(ctx context.Context) (*directive.Respond, error) {
	line, err := n.ask(ctx, PromptRespond)
	if err != nil {
		return nil, err
	}

	respond := &directive.Respond{Text: strings.TrimSpace(line)}
	if err := respond.Validate(); err != nil {
		metrics.DirectiveRejections.WithLabelValues(string(directive.KindRespond)).Inc()
		n.op.Warn(ctx, err.Error())

		return nil, nil
	}

	return respond, nil
}

func (n *Interactive) ask(ctx context.Context, prompt string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	line, err := n.op.Ask(ctx, prompt)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return "", ctxErr
		}

		if stderrors.Is(err, io.EOF) {
			return "", errors.ErrOperatorAborted
		}

		return "", fmt.Errorf("read operator input: %w", err)
	}

	return line, nil
}

// Func adapts a decision function to the Negotiator interface.
//
// The returned directive is validated before use; edits are also checked
// against the shape of the proposed arguments.
type Func func(ctx context.Context, payload *protocol.InterruptPayload) (directive.Directive, error)

// Compile-time verification that Func implements Negotiator.
var _ Negotiator = Func(nil)

// Negotiate implements Negotiator.
func (f Func) Negotiate(ctx context.Context, payload *protocol.InterruptPayload) (directive.Directive, error) {
	if payload == nil {
		return nil, fmt.Errorf("negotiate: %w", protocol.ErrMissingInterruptData)
	}

	d, err := f(ctx, payload)
	if err != nil {
		return nil, err
	}

	if d == nil {
		return nil, &errors.DirectiveError{Kind: "unknown", Reason: "no directive returned"}
	}

	if edit, ok := d.(*directive.Edit); ok {
		err = directive.CheckEdit(edit, payload.ActionRequest.Args)
	} else {
		err = d.Validate()
	}

	if err != nil {
		metrics.DirectiveRejections.WithLabelValues(string(d.Kind())).Inc()

		return nil, err
	}

	return d, nil
}

// AcceptAll approves every interrupt.
func AcceptAll() Func {
	return func(context.Context, *protocol.InterruptPayload) (directive.Directive, error) {
		return &directive.Accept{}, nil
	}
}
