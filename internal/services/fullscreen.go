package services

import (
	"context"
	"sync"

	"github.com/rs/zerolog"

	"github.com/xvierd/flow-reader/internal/ports"
)

// FullscreenCoordinator mirrors the platform's fullscreen status and
// forwards lock and unlock requests to it.
//
// Active only changes when the platform reports a change. A request that
// the platform refuses is logged and otherwise ignored.
type FullscreenCoordinator struct {
	display ports.Display
	logger  zerolog.Logger

	mu          sync.Mutex
	active      bool
	requested   bool
	unsubscribe func()
	listeners   map[int]func(bool)
	nextID      int
}

// NewFullscreenCoordinator subscribes to display changes until Close.
func NewFullscreenCoordinator(display ports.Display, logger zerolog.Logger) *FullscreenCoordinator {
	c := &FullscreenCoordinator{
		display:   display,
		logger:    logger.With().Str("component", "fullscreen").Logger(),
		active:    display.IsFullscreen(),
		listeners: make(map[int]func(bool)),
	}
	c.unsubscribe = display.Subscribe(c.handleChange)
	return c
}

// Active reports the last status the platform announced.
func (c *FullscreenCoordinator) Active() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.active
}

// Enter asks the platform for fullscreen. Refusal is not an error.
func (c *FullscreenCoordinator) Enter(ctx context.Context) {
	if c.Active() {
		return
	}
	if err := c.display.RequestFullscreen(ctx); err != nil {
		c.logger.Warn().Err(err).Msg("fullscreen request denied")
		return
	}

	c.mu.Lock()
	c.requested = true
	c.mu.Unlock()

	// A platform that switched synchronously may not notify.
	if c.display.IsFullscreen() {
		c.handleChange(true)
	}
}

// Exit leaves fullscreen if it is active or has been requested.
func (c *FullscreenCoordinator) Exit(ctx context.Context) {
	c.mu.Lock()
	pending := c.active || c.requested
	c.requested = false
	c.mu.Unlock()
	if !pending {
		return
	}

	if err := c.display.ExitFullscreen(ctx); err != nil {
		c.logger.Error().Err(err).Msg("failed to exit fullscreen")
	}
}

// Subscribe registers fn for every change of Active.
func (c *FullscreenCoordinator) Subscribe(fn func(active bool)) func() {
	c.mu.Lock()
	defer c.mu.Unlock()
	id := c.nextID
	c.nextID++
	c.listeners[id] = fn
	return func() {
		c.mu.Lock()
		defer c.mu.Unlock()
		delete(c.listeners, id)
	}
}

// Close drops the display subscription.
func (c *FullscreenCoordinator) Close() {
	c.mu.Lock()
	unsubscribe := c.unsubscribe
	c.unsubscribe = nil
	c.mu.Unlock()
	if unsubscribe != nil {
		unsubscribe()
	}
}

func (c *FullscreenCoordinator) handleChange(active bool) {
	c.mu.Lock()
	if c.active == active {
		c.mu.Unlock()
		return
	}
	c.active = active
	if !active {
		c.requested = false
	}
	fns := make([]func(bool), 0, len(c.listeners))
	for _, fn := range c.listeners {
		fns = append(fns, fn)
	}
	c.mu.Unlock()

	c.logger.Debug().Bool("active", active).Msg("fullscreen changed")
	for _, fn := range fns {
		fn(active)
	}
}
