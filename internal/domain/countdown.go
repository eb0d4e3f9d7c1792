package domain

import "time"

// CountdownState is the observable state of the countdown engine.
type CountdownState struct {
	Remaining int
	Running   bool
}

// RemainingDuration returns Remaining as a time.Duration.
func (s CountdownState) RemainingDuration() time.Duration {
	return time.Duration(s.Remaining) * time.Second
}

// Completion is the one-shot event emitted when a countdown activation ends.
// Fault is set when the countdown ended because ticking could not be
// scheduled rather than because time ran out.
type Completion struct {
	Activation uint64
	Fault      error
}

// Faulted reports whether the countdown ended abnormally.
func (c Completion) Faulted() bool {
	return c.Fault != nil
}
