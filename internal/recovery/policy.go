package recovery

import (
	"context"
	"time"
)

// Default poll bounds for sessions that are running elsewhere.
const (
	DefaultMaxAttempts = 30
	DefaultInterval    = time.Second
)

// SleepFunc waits for d or until ctx is done.
type SleepFunc func(ctx context.Context, d time.Duration) error

// PollPolicy bounds how long reconciliation waits for a running session.
//
// The session is checked once, then up to MaxAttempts more times with
// Interval between checks. No wait follows the final check.
type PollPolicy struct {
	MaxAttempts int
	Interval    time.Duration

	// Sleep replaces the real clock, mainly in tests. Nil means SleepContext.
	Sleep SleepFunc
}

// DefaultPollPolicy waits up to 30 seconds in one second steps.
func DefaultPollPolicy() PollPolicy {
	return PollPolicy{
		MaxAttempts: DefaultMaxAttempts,
		Interval:    DefaultInterval,
	}
}

func (p PollPolicy) withDefaults() PollPolicy {
	if p.MaxAttempts <= 0 {
		p.MaxAttempts = DefaultMaxAttempts
	}

	if p.Interval < 0 {
		p.Interval = 0
	}

	if p.Sleep == nil {
		p.Sleep = SleepContext
	}

	return p
}

// SleepContext sleeps for d unless ctx is cancelled first.
func SleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}

	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
