package services

import (
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/xvierd/flow-reader/internal/domain"
	"github.com/xvierd/flow-reader/internal/ports"
)

// TickInterval is the countdown resolution.
const TickInterval = time.Second

// CountdownEngine counts a focus duration down in whole seconds.
//
// Every Reset starts a new activation. Ticks and completions carry the
// activation they were scheduled for, so work left over from an earlier
// activation can never touch the current one. Each ticker also carries its
// own run number, so a tick queued before Pause is dropped after the next
// Start. Completion fires at most once per activation.
type CountdownEngine struct {
	scheduler ports.Scheduler
	logger    zerolog.Logger

	mu         sync.Mutex
	state      domain.CountdownState
	activation uint64
	run        uint64
	completed  bool
	ticker     ports.Ticker
	closed     bool
	onComplete func(domain.Completion)
	onTick     func(domain.CountdownState)
}

// NewCountdownEngine creates an idle engine with nothing remaining.
func NewCountdownEngine(scheduler ports.Scheduler, logger zerolog.Logger) *CountdownEngine {
	return &CountdownEngine{
		scheduler: scheduler,
		logger:    logger.With().Str("component", "countdown").Logger(),
	}
}

// OnComplete sets the function called when an activation finishes.
func (e *CountdownEngine) OnComplete(fn func(domain.Completion)) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.onComplete = fn
}

// OnTick sets the function called after every accepted tick.
func (e *CountdownEngine) OnTick(fn func(domain.CountdownState)) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.onTick = fn
}

// State returns a copy of the current countdown state.
func (e *CountdownEngine) State() domain.CountdownState {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state
}

// Activation returns the id of the current activation.
func (e *CountdownEngine) Activation() uint64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.activation
}

// Reset stops any running countdown and loads durationSeconds.
func (e *CountdownEngine) Reset(durationSeconds int) {
	if durationSeconds < 0 {
		durationSeconds = 0
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	e.stopTickerLocked()
	e.activation++
	e.completed = false
	e.state = domain.CountdownState{Remaining: durationSeconds}
	e.logger.Debug().Uint64("activation", e.activation).Int("remaining", durationSeconds).Msg("countdown reset")
}

// Start begins ticking. It does nothing if the countdown is already
// running, has nothing left, or the engine is closed.
//
// If ticking cannot be scheduled, the activation completes immediately
// with a fault and the returned error wraps domain.ErrScheduleFailed.
func (e *CountdownEngine) Start() error {
	e.mu.Lock()
	if e.closed || e.state.Running || e.state.Remaining == 0 || e.completed {
		e.mu.Unlock()
		return nil
	}

	activation := e.activation
	e.run++
	run := e.run
	ticker, err := e.scheduler.Every(TickInterval, func() { e.tick(activation, run) })
	if err != nil {
		fault := fmt.Errorf("%w: %w", domain.ErrScheduleFailed, err)
		e.state = domain.CountdownState{}
		e.completed = true
		onComplete := e.onComplete
		e.mu.Unlock()

		e.logger.Error().Err(err).Uint64("activation", activation).Msg("countdown could not be scheduled")
		if onComplete != nil {
			onComplete(domain.Completion{Activation: activation, Fault: fault})
		}
		return fault
	}

	e.ticker = ticker
	e.state.Running = true
	e.mu.Unlock()
	return nil
}

// Pause stops ticking and keeps the remaining time.
func (e *CountdownEngine) Pause() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.state.Running {
		return
	}
	e.stopTickerLocked()
	e.state.Running = false
}

// Close stops ticking for good. Later Start calls do nothing.
func (e *CountdownEngine) Close() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.stopTickerLocked()
	e.closed = true
	e.activation++
	e.state.Running = false
}

func (e *CountdownEngine) tick(activation, run uint64) {
	e.mu.Lock()
	if activation != e.activation || run != e.run || !e.state.Running {
		e.mu.Unlock()
		e.logger.Debug().Uint64("activation", activation).Msg("stale tick discarded")
		return
	}

	e.state.Remaining--
	fire := false
	if e.state.Remaining <= 0 {
		e.state.Remaining = 0
		e.state.Running = false
		e.stopTickerLocked()
		fire = !e.completed
		e.completed = true
	}
	state := e.state
	onTick := e.onTick
	onComplete := e.onComplete
	e.mu.Unlock()

	if onTick != nil {
		onTick(state)
	}
	if fire {
		e.logger.Debug().Uint64("activation", activation).Msg("countdown complete")
		if onComplete != nil {
			onComplete(domain.Completion{Activation: activation})
		}
	}
}

func (e *CountdownEngine) stopTickerLocked() {
	e.run++
	if e.ticker != nil {
		e.ticker.Stop()
		e.ticker = nil
	}
}
