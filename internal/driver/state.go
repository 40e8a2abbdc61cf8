package driver

import (
	"fmt"
	"slices"

	"github.com/wagiedev/hitl-agent-client-go/internal/errors"
	"github.com/wagiedev/hitl-agent-client-go/internal/metrics"
)

// State is the driver's local view of the session.
type State string

const (
	// StateIdle accepts a new query.
	StateIdle State = "idle"
	// StateSubmitting waits for the terminal event of a query or resumed turn.
	StateSubmitting State = "submitting"
	// StateInterrupted waits for the operator's decision.
	StateInterrupted State = "interrupted"
	// StateResuming waits for the backend to accept a directive.
	StateResuming State = "resuming"
)

var allStates = []string{
	string(StateIdle),
	string(StateSubmitting),
	string(StateInterrupted),
	string(StateResuming),
}

// transitions lists the legal moves. Every state may fall back to idle so
// that failures always return control to the operator or to recovery.
var transitions = map[State][]State{
	StateIdle:        {StateSubmitting, StateInterrupted},
	StateSubmitting:  {StateInterrupted, StateIdle},
	StateInterrupted: {StateResuming, StateIdle},
	StateResuming:    {StateSubmitting, StateIdle},
}

// transition moves the driver to next. Callers must hold d.mu.
func (d *Driver) transition(next State) error {
	if d.state == next {
		return nil
	}

	if !slices.Contains(transitions[d.state], next) {
		return fmt.Errorf("%w: %s -> %s", errors.ErrInvalidTransition, d.state, next)
	}

	d.log.Debug("State transition", "from", d.state, "to", next)
	d.state = next
	metrics.SetDriverState(string(next), allStates)

	return nil
}

// moveTo locks the driver and transitions.
func (d *Driver) moveTo(next State) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	return d.transition(next)
}
