// Package directive defines the operator decisions that resume an interrupted turn.
package directive

import (
	"strings"

	"github.com/wagiedev/hitl-agent-client-go/internal/errors"
	"github.com/wagiedev/hitl-agent-client-go/internal/protocol"
)

// Kind is the wire value of a directive's response_type.
type Kind string

const (
	// KindAccept approves the proposed action unchanged.
	KindAccept Kind = "accept"
	// KindReject declines the proposed action.
	KindReject Kind = "reject"
	// KindEdit approves the action with replacement arguments.
	KindEdit Kind = "edit"
	// KindRespond declines the action and answers the agent in free text.
	KindRespond Kind = "response"
)

// Directive is the operator's answer to one interrupt.
// Use a type switch to determine the concrete type.
type Directive interface {
	Kind() Kind
	// Validate checks the payload shape. Invalid directives never reach the backend.
	Validate() error
	sealed()
}

// Compile-time verification that all directive types implement Directive.
var (
	_ Directive = (*Accept)(nil)
	_ Directive = (*Reject)(nil)
	_ Directive = (*Edit)(nil)
	_ Directive = (*Respond)(nil)
)

// Accept approves the proposed action as-is.
type Accept struct{}

// Kind implements the Directive interface.
func (d *Accept) Kind() Kind { return KindAccept }

// Validate implements the Directive interface.
func (d *Accept) Validate() error { return nil }

func (d *Accept) sealed() {}

// Reject declines the proposed action.
type Reject struct{}

// Kind implements the Directive interface.
func (d *Reject) Kind() Kind { return KindReject }

// Validate implements the Directive interface.
func (d *Reject) Validate() error { return nil }

func (d *Reject) sealed() {}

// Edit approves the action with operator-supplied arguments.
type Edit struct {
	Args map[string]any
}

// Kind implements the Directive interface.
func (d *Edit) Kind() Kind { return KindEdit }

// Validate implements the Directive interface.
func (d *Edit) Validate() error {
	if d.Args == nil {
		return &errors.DirectiveError{Kind: string(KindEdit), Reason: "arguments must be a JSON object"}
	}

	return nil
}

func (d *Edit) sealed() {}

// Respond answers the agent with free text instead of running the action.
type Respond struct {
	Text string
}

// Kind implements the Directive interface.
func (d *Respond) Kind() Kind { return KindRespond }

// Validate implements the Directive interface.
func (d *Respond) Validate() error {
	if strings.TrimSpace(d.Text) == "" {
		return &errors.DirectiveError{Kind: string(KindRespond), Reason: "response text is empty"}
	}

	return nil
}

func (d *Respond) sealed() {}

// Encode converts d into its wire response_type and args.
//
// Accept and reject carry no args. Edit sends {"args": {...}} and respond sends
// {"args": "<text>"}.
func Encode(d Directive) (Kind, map[string]any, error) {
	if d == nil {
		return "", nil, &errors.DirectiveError{Kind: "unknown", Reason: "no directive"}
	}

	if err := d.Validate(); err != nil {
		return "", nil, err
	}

	switch v := d.(type) {
	case *Accept, *Reject:
		return v.Kind(), nil, nil
	case *Edit:
		return KindEdit, map[string]any{"args": v.Args}, nil
	case *Respond:
		return KindRespond, map[string]any{"args": v.Text}, nil
	default:
		return "", nil, &errors.DirectiveError{Kind: string(d.Kind()), Reason: "unsupported directive type"}
	}
}

// Request builds the resume request answering an interrupt on a session.
func Request(userID, sessionID string, d Directive) (*protocol.ResumeRequest, error) {
	kind, args, err := Encode(d)
	if err != nil {
		return nil, err
	}

	return &protocol.ResumeRequest{
		UserID:       userID,
		SessionID:    sessionID,
		ResponseType: string(kind),
		Args:         args,
	}, nil
}
