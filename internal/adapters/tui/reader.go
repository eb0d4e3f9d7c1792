package tui

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/rs/zerolog"
)

// SessionSource is a Controller that reports snapshot changes.
// *services.SessionController implements it.
type SessionSource interface {
	Controller
	OnChange(fn func())
}

// Watcher reports changes to the document library.
type Watcher interface {
	Watch(ctx context.Context) (<-chan struct{}, error)
}

// ReaderOptions configures a Reader.
type ReaderOptions struct {
	Options
	// Watcher makes the picker follow the library directory. Nil disables it.
	Watcher Watcher
	// ProgramOptions are passed to tea.NewProgram.
	ProgramOptions []tea.ProgramOption
}

// Reader runs the interactive reading UI.
type Reader struct {
	source  SessionSource
	display *Display
	opts    ReaderOptions
	logger  zerolog.Logger
}

// NewReader creates the UI around source. The display is driven by the
// program while Run is active.
func NewReader(source SessionSource, display *Display, opts ReaderOptions, logger zerolog.Logger) *Reader {
	return &Reader{
		source:  source,
		display: display,
		opts:    opts,
		logger:  logger.With().Str("component", "tui").Logger(),
	}
}

// Run starts the interface and blocks until the user quits or ctx is done.
func (r *Reader) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	opts := r.opts.Options
	opts.Screen = r.display
	program := tea.NewProgram(NewModel(r.source, opts), r.opts.ProgramOptions...)

	r.display.Attach(program)
	defer r.display.Detach()

	r.source.OnChange(newRefresher(program.Send))
	defer r.source.OnChange(nil)

	var wg sync.WaitGroup

	if r.opts.Watcher != nil {
		changes, err := r.opts.Watcher.Watch(ctx)
		if err != nil {
			r.logger.Warn().Err(err).Msg("library watch disabled")
		} else {
			wg.Add(1)
			go func() {
				defer wg.Done()
				for {
					select {
					case <-ctx.Done():
						return
					case _, ok := <-changes:
						if !ok {
							return
						}
						program.Send(libraryChangedMsg{})
					}
				}
			}()
		}
	}

	// Handle context cancellation
	wg.Add(1)
	go func() {
		defer wg.Done()
		<-ctx.Done()
		program.Quit()
	}()

	r.logger.Debug().Msg("starting interface")
	_, err := program.Run()

	cancel()
	wg.Wait()

	if err != nil && !errors.Is(err, tea.ErrProgramKilled) {
		return fmt.Errorf("failed to run TUI: %w", err)
	}
	return nil
}

// newRefresher returns a change hook that never blocks its caller. Bursts
// of changes collapse into one pending refresh.
func newRefresher(send func(tea.Msg)) func() {
	var pending atomic.Bool
	return func() {
		if !pending.CompareAndSwap(false, true) {
			return
		}
		go func() {
			pending.Store(false)
			send(refreshMsg{})
		}()
	}
}
