package services

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/xvierd/flow-reader/internal/domain"
	"github.com/xvierd/flow-reader/internal/ports"
)

// DefaultFullscreenTimeout bounds how long StartSession waits on the
// platform to answer a fullscreen request.
const DefaultFullscreenTimeout = 2 * time.Second

// SessionOptions tunes a SessionController.
type SessionOptions struct {
	// DurationSeconds is the initial focus duration.
	DurationSeconds int
	// FullscreenTimeout bounds each fullscreen request.
	FullscreenTimeout time.Duration
	// Notifier announces finished sessions. Nil disables notifications.
	Notifier ports.Notifier
	// Now returns the current time.
	Now func() time.Time
}

// SessionController drives a focus session from setup to completion.
//
// A session moves setup -> active on StartSession and back to setup only
// when its countdown completes. While active the user cannot pick another
// document or change the duration.
type SessionController struct {
	engine      *CountdownEngine
	coordinator *FullscreenCoordinator
	surface     *RenderSurface
	notifier    ports.Notifier
	logger      zerolog.Logger
	timeout     time.Duration
	now         func() time.Time

	mu         sync.Mutex
	session    *domain.Session
	activation uint64
	ending     bool
	closed     bool
	lastResult *domain.SessionResult

	hooksMu      sync.RWMutex
	onChange     func()
	onSessionEnd func(domain.SessionResult)
	unsubscribe  func()
}

// NewSessionController wires the three collaborators together. The
// controller takes over the engine's and the surface's hooks.
func NewSessionController(
	engine *CountdownEngine,
	coordinator *FullscreenCoordinator,
	surface *RenderSurface,
	logger zerolog.Logger,
	opts SessionOptions,
) *SessionController {
	if opts.FullscreenTimeout <= 0 {
		opts.FullscreenTimeout = DefaultFullscreenTimeout
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}

	c := &SessionController{
		engine:      engine,
		coordinator: coordinator,
		surface:     surface,
		notifier:    opts.Notifier,
		logger:      logger.With().Str("component", "session").Logger(),
		timeout:     opts.FullscreenTimeout,
		now:         opts.Now,
		session:     domain.NewSession(opts.DurationSeconds),
	}

	engine.OnComplete(c.handleCompletion)
	engine.OnTick(func(domain.CountdownState) { c.changed() })
	surface.OnChange(c.changed)
	c.unsubscribe = coordinator.Subscribe(func(bool) { c.changed() })
	return c
}

// OnChange sets the function called whenever the snapshot may have changed.
// It runs on whichever goroutine made the change and must not block.
func (c *SessionController) OnChange(fn func()) {
	c.hooksMu.Lock()
	defer c.hooksMu.Unlock()
	c.onChange = fn
}

// OnSessionEnd sets the function called once per finished session.
func (c *SessionController) OnSessionEnd(fn func(domain.SessionResult)) {
	c.hooksMu.Lock()
	defer c.hooksMu.Unlock()
	c.onSessionEnd = fn
}

// SelectDocument stages doc for the next session.
func (c *SessionController) SelectDocument(doc *domain.Document) error {
	if doc == nil {
		return domain.ErrNoDocument
	}

	c.mu.Lock()
	if c.session.Phase != domain.PhaseSetup {
		c.mu.Unlock()
		return fmt.Errorf("select document: %w", domain.ErrInvalidPhase)
	}
	if prev := c.session.Pending; prev != nil && prev != doc {
		prev.Release()
	}
	c.session.Pending = doc
	c.mu.Unlock()

	c.logger.Debug().Str("document", doc.Name).Msg("document selected")
	c.changed()
	return nil
}

// SetDuration sets the focus duration of the next session.
func (c *SessionController) SetDuration(seconds int) error {
	if seconds <= 0 {
		return domain.ErrInvalidDuration
	}

	c.mu.Lock()
	if c.session.Phase != domain.PhaseSetup {
		c.mu.Unlock()
		return fmt.Errorf("set duration: %w", domain.ErrInvalidPhase)
	}
	c.session.DurationSeconds = seconds
	c.mu.Unlock()

	c.changed()
	return nil
}

// StartSession locks the reader in with the staged document.
//
// Fullscreen refusal does not stop the session. If the countdown cannot be
// scheduled the session ends at once and the error wraps
// domain.ErrScheduleFailed.
func (c *SessionController) StartSession(ctx context.Context) error {
	c.mu.Lock()
	if c.closed || c.session.Phase != domain.PhaseSetup {
		c.mu.Unlock()
		return fmt.Errorf("start session: %w", domain.ErrInvalidPhase)
	}
	if c.session.Pending == nil {
		c.mu.Unlock()
		return domain.ErrNoDocument
	}

	c.engine.Reset(c.session.DurationSeconds)
	c.activation = c.engine.Activation()
	c.session.Begin(c.now())
	c.ending = false
	doc := c.session.Document
	id := c.session.ID
	duration := c.session.DurationSeconds
	c.mu.Unlock()

	c.logger.Info().
		Str("session_id", id).
		Str("document", doc.Name).
		Int("duration_seconds", duration).
		Msg("focus session started")

	c.surface.Load(context.WithoutCancel(ctx), doc)
	c.changed()

	enterCtx, cancel := context.WithTimeout(ctx, c.timeout)
	c.coordinator.Enter(enterCtx)
	cancel()

	if err := c.engine.Start(); err != nil {
		return fmt.Errorf("start session: %w", err)
	}
	c.changed()
	return nil
}

// NextPage turns to the next page of the active document.
func (c *SessionController) NextPage() {
	if c.isActive() {
		c.surface.NextPage()
	}
}

// PrevPage turns to the previous page of the active document.
func (c *SessionController) PrevPage() {
	if c.isActive() {
		c.surface.PrevPage()
	}
}

// GoToPage jumps to page n of the active document.
func (c *SessionController) GoToPage(n int) {
	if c.isActive() {
		c.surface.GoToPage(n)
	}
}

// ZoomIn enlarges the active document.
func (c *SessionController) ZoomIn() {
	if c.isActive() {
		c.surface.ZoomIn()
	}
}

// ZoomOut shrinks the active document.
func (c *SessionController) ZoomOut() {
	if c.isActive() {
		c.surface.ZoomOut()
	}
}

// Relock asks for fullscreen again after the user left it.
func (c *SessionController) Relock(ctx context.Context) {
	if !c.isActive() {
		return
	}
	enterCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()
	c.coordinator.Enter(enterCtx)
}

// Snapshot returns everything the UI needs to draw one frame.
func (c *SessionController) Snapshot() domain.Snapshot {
	c.mu.Lock()
	session := *c.session
	var last *domain.SessionResult
	if c.lastResult != nil {
		r := *c.lastResult
		last = &r
	}
	c.mu.Unlock()

	return domain.Snapshot{
		Session:    session,
		Countdown:  c.engine.State(),
		Fullscreen: c.coordinator.Active(),
		Viewer:     c.surface.State(),
		LastResult: last,
	}
}

// Close tears the controller down when the application exits. An active
// session is abandoned without a result.
func (c *SessionController) Close(ctx context.Context) {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	active := c.session.IsActive()
	c.mu.Unlock()

	c.engine.Close()
	if active {
		c.coordinator.Exit(ctx)
	}

	c.mu.Lock()
	c.session.End()
	if c.session.Pending != nil {
		c.session.Pending.Release()
		c.session.Pending = nil
	}
	c.mu.Unlock()

	c.surface.Release()
	c.surface.Wait()

	c.hooksMu.Lock()
	unsubscribe := c.unsubscribe
	c.unsubscribe = nil
	c.hooksMu.Unlock()
	if unsubscribe != nil {
		unsubscribe()
	}
	c.coordinator.Close()
}

func (c *SessionController) handleCompletion(done domain.Completion) {
	c.mu.Lock()
	if !c.session.IsActive() || done.Activation != c.activation || c.ending {
		c.mu.Unlock()
		c.logger.Debug().Uint64("activation", done.Activation).Msg("completion ignored")
		return
	}
	c.ending = true
	c.mu.Unlock()

	exitCtx, cancel := context.WithTimeout(context.Background(), c.timeout)
	c.coordinator.Exit(exitCtx)
	cancel()

	c.mu.Lock()
	id := c.session.ID
	duration := c.session.Duration()
	doc := c.session.End()
	result := domain.SessionResult{
		SessionID: id,
		Document:  documentName(doc),
		Duration:  duration,
		EndedAt:   c.now(),
		Fault:     done.Fault,
	}
	c.lastResult = &result
	c.ending = false
	c.mu.Unlock()

	c.surface.Release()

	event := c.logger.Info()
	if result.Fault != nil {
		event = c.logger.Error().Err(result.Fault)
	}
	event.Str("session_id", id).Str("document", result.Document).Msg("focus session ended")

	c.announce(result)

	c.hooksMu.RLock()
	onSessionEnd := c.onSessionEnd
	c.hooksMu.RUnlock()
	if onSessionEnd != nil {
		onSessionEnd(result)
	}
	c.changed()
}

func (c *SessionController) announce(result domain.SessionResult) {
	if c.notifier == nil {
		return
	}
	title := "Focus session complete"
	message := fmt.Sprintf("%s of focused reading on %s", formatMinutes(result.Duration), result.Document)
	if result.Fault != nil {
		title = "Focus session ended early"
		message = "The countdown could not be scheduled."
	}
	if err := c.notifier.Notify(title, message); err != nil {
		c.logger.Warn().Err(err).Msg("failed to send notification")
	}
}

func (c *SessionController) isActive() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.session.IsActive()
}

func (c *SessionController) changed() {
	c.hooksMu.RLock()
	fn := c.onChange
	c.hooksMu.RUnlock()
	notify(fn)
}

func formatMinutes(d time.Duration) string {
	minutes := int(d.Round(time.Minute) / time.Minute)
	switch {
	case d < time.Minute:
		return fmt.Sprintf("%ds", int(d/time.Second))
	case minutes == 1:
		return "1 minute"
	default:
		return fmt.Sprintf("%d minutes", minutes)
	}
}
