package ports

import (
	"context"
)

// Display is the platform's exclusive presentation (fullscreen) primitive.
// This is a driven port (implemented by adapters).
type Display interface {
	// RequestFullscreen asks the platform to enter fullscreen. A nil error
	// means the request was accepted; the change itself is reported through
	// Subscribe once it has happened.
	RequestFullscreen(ctx context.Context) error

	// ExitFullscreen asks the platform to leave fullscreen.
	ExitFullscreen(ctx context.Context) error

	// IsFullscreen reports the platform's current fullscreen status.
	IsFullscreen() bool

	// Subscribe registers fn to be called on every fullscreen change,
	// whoever caused it. The returned function removes the subscription.
	Subscribe(fn func(active bool)) (unsubscribe func())
}
