// Package clock implements ports.Scheduler on top of time.Ticker.
package clock

import (
	"errors"
	"sync"
	"time"

	"github.com/xvierd/flow-reader/internal/ports"
)

// ErrSchedulerClosed is returned by Every after Close.
var ErrSchedulerClosed = errors.New("scheduler closed")

// Scheduler runs each schedule on its own goroutine.
type Scheduler struct {
	mu      sync.Mutex
	closed  bool
	tickers map[*ticker]struct{}
	wg      sync.WaitGroup
}

var _ ports.Scheduler = (*Scheduler)(nil)

// NewScheduler creates a scheduler.
func NewScheduler() *Scheduler {
	return &Scheduler{tickers: make(map[*ticker]struct{})}
}

// Every implements ports.Scheduler.
func (s *Scheduler) Every(interval time.Duration, fn func()) (ports.Ticker, error) {
	if interval <= 0 {
		return nil, errors.New("interval must be positive")
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil, ErrSchedulerClosed
	}

	t := &ticker{
		ticker: time.NewTicker(interval),
		done:   make(chan struct{}),
	}
	s.tickers[t] = struct{}{}
	s.wg.Add(1)
	go s.run(t, fn)
	return t, nil
}

// Close stops every schedule and waits for running callbacks to return.
// It must not be called from inside a scheduled function.
func (s *Scheduler) Close() {
	s.mu.Lock()
	s.closed = true
	for t := range s.tickers {
		t.Stop()
	}
	s.mu.Unlock()
	s.wg.Wait()
}

func (s *Scheduler) run(t *ticker, fn func()) {
	defer func() {
		t.ticker.Stop()
		s.mu.Lock()
		delete(s.tickers, t)
		s.mu.Unlock()
		s.wg.Done()
	}()

	for {
		select {
		case <-t.done:
			return
		case <-t.ticker.C:
			// Stop may race with a tick that is already queued.
			select {
			case <-t.done:
				return
			default:
			}
			fn()
		}
	}
}

type ticker struct {
	ticker *time.Ticker
	once   sync.Once
	done   chan struct{}
}

// Stop implements ports.Ticker. It never blocks.
func (t *ticker) Stop() {
	t.once.Do(func() { close(t.done) })
}
