package tui

import (
	"context"
	"os"
	"sync"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/x/term"

	"github.com/xvierd/flow-reader/internal/domain"
	"github.com/xvierd/flow-reader/internal/ports"
)

// enterFullscreenMsg asks the model to switch to the alternate screen.
type enterFullscreenMsg struct{}

// exitFullscreenMsg asks the model to leave the alternate screen.
type exitFullscreenMsg struct{}

// Sender delivers messages to a running program. *tea.Program implements it.
type Sender interface {
	Send(msg tea.Msg)
}

// Display implements ports.Display with the terminal's alternate screen.
//
// Requests are queued and delivered to the program in order by a single
// pump goroutine, so they never block the caller. The status only changes
// when the model calls SetFullscreen after the terminal has switched.
type Display struct {
	supported bool

	mu        sync.Mutex
	active    bool
	queue     chan tea.Msg
	done      chan struct{}
	pump      sync.WaitGroup
	attached  bool
	listeners map[int]func(bool)
	nextID    int
}

var _ ports.Display = (*Display)(nil)

// TerminalSupported reports whether f is a terminal that can show an
// alternate screen.
func TerminalSupported(f *os.File) bool {
	return f != nil && term.IsTerminal(f.Fd())
}

// NewDisplay creates a display. An unsupported display refuses every
// fullscreen request.
func NewDisplay(supported bool) *Display {
	return &Display{
		supported: supported,
		listeners: make(map[int]func(bool)),
	}
}

// Attach starts delivering requests to s.
func (d *Display) Attach(s Sender) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.attached {
		return
	}
	d.attached = true
	d.queue = make(chan tea.Msg, 8)
	d.done = make(chan struct{})

	queue, done := d.queue, d.done
	d.pump.Add(1)
	go func() {
		defer d.pump.Done()
		for {
			select {
			case <-done:
				return
			case msg := <-queue:
				s.Send(msg)
			}
		}
	}()
}

// Detach stops delivery. Pending requests are dropped and the display is
// reported as not fullscreen.
func (d *Display) Detach() {
	d.mu.Lock()
	if !d.attached {
		d.mu.Unlock()
		return
	}
	d.attached = false
	close(d.done)
	d.mu.Unlock()

	d.pump.Wait()
	d.SetFullscreen(false)
}

// RequestFullscreen implements ports.Display.
func (d *Display) RequestFullscreen(ctx context.Context) error {
	if !d.supported {
		return domain.ErrFullscreenUnsupported
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	return d.enqueue(enterFullscreenMsg{})
}

// ExitFullscreen implements ports.Display.
func (d *Display) ExitFullscreen(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := d.enqueue(exitFullscreenMsg{}); err != nil {
		// Without a running program there is no alternate screen to leave.
		d.SetFullscreen(false)
	}
	return nil
}

// IsFullscreen implements ports.Display.
func (d *Display) IsFullscreen() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.active
}

// Subscribe implements ports.Display.
func (d *Display) Subscribe(fn func(bool)) func() {
	d.mu.Lock()
	defer d.mu.Unlock()
	id := d.nextID
	d.nextID++
	d.listeners[id] = fn
	return func() {
		d.mu.Lock()
		defer d.mu.Unlock()
		delete(d.listeners, id)
	}
}

// SetFullscreen records that the terminal has switched screens and
// notifies subscribers if the status changed.
func (d *Display) SetFullscreen(active bool) {
	d.mu.Lock()
	if d.active == active {
		d.mu.Unlock()
		return
	}
	d.active = active
	fns := make([]func(bool), 0, len(d.listeners))
	for _, fn := range d.listeners {
		fns = append(fns, fn)
	}
	d.mu.Unlock()

	for _, fn := range fns {
		fn(active)
	}
}

func (d *Display) enqueue(msg tea.Msg) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if !d.attached {
		return domain.ErrFullscreenUnavailable
	}
	select {
	case d.queue <- msg:
		return nil
	default:
		return domain.ErrFullscreenUnavailable
	}
}
