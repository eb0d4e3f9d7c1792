// Package ports defines the interfaces (driven and driving ports)
// between the Flow Reader services and the platform they run on:
// clocks, the terminal, the PDF renderer and desktop notifications.
package ports

import (
	"time"
)

// Ticker is a handle to periodic work started by a Scheduler.
type Ticker interface {
	// Stop cancels the periodic work. It never blocks and is safe to call
	// more than once, including from inside the scheduled function.
	Stop()
}

// Scheduler runs a function periodically.
// This is a driven port (implemented by adapters).
type Scheduler interface {
	// Every calls fn once per interval until the returned Ticker is stopped.
	// Calls for one Ticker never overlap and fn is never called from inside
	// Every itself. An error means nothing was scheduled.
	Every(interval time.Duration, fn func()) (Ticker, error)
}
