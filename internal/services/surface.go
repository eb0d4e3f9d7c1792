package services

import (
	"context"
	"fmt"
	"sync"

	"github.com/rs/zerolog"

	"github.com/xvierd/flow-reader/internal/domain"
	"github.com/xvierd/flow-reader/internal/ports"
)

// DefaultInitialZoom is the zoom factor a freshly loaded document opens at.
const DefaultInitialZoom = 1.5

// RenderSurface shows one page of a document at a time.
//
// Loading and rendering run in the background. Each load and each render
// request takes a generation number; a result is applied only while its
// generation is still current, so a slow render of an old page can never
// overwrite a newer one.
type RenderSurface struct {
	opener      ports.DocumentOpener
	logger      zerolog.Logger
	initialZoom float64

	mu        sync.Mutex
	state     domain.ViewerState
	status    domain.LoadStatus
	loadErr   error
	renderErr error
	output    *domain.Surface
	handle    ports.DocumentHandle
	loadGen   uint64
	renderGen uint64
	cancel    context.CancelFunc
	renderCtx context.Context
	onChange  func()

	wg sync.WaitGroup
}

// NewRenderSurface creates an idle surface. initialZoom is clamped into
// the supported range; zero selects DefaultInitialZoom.
func NewRenderSurface(opener ports.DocumentOpener, initialZoom float64, logger zerolog.Logger) *RenderSurface {
	if initialZoom == 0 {
		initialZoom = DefaultInitialZoom
	}
	initialZoom = domain.ClampZoom(initialZoom)
	return &RenderSurface{
		opener:      opener,
		logger:      logger.With().Str("component", "surface").Logger(),
		initialZoom: initialZoom,
		state:       domain.ViewerState{Zoom: initialZoom},
		status:      domain.LoadStatusIdle,
	}
}

// OnChange sets the function called after every visible state change.
func (s *RenderSurface) OnChange(fn func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onChange = fn
}

// State returns a consistent copy of the surface.
func (s *RenderSurface) State() domain.ViewerSnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return domain.ViewerSnapshot{
		State:       s.state,
		Status:      s.status,
		LoadError:   s.loadErr,
		RenderError: s.renderErr,
		Output:      s.output,
	}
}

// Load replaces the current document with doc and parses it in the
// background. It returns immediately.
func (s *RenderSurface) Load(ctx context.Context, doc *domain.Document) {
	s.mu.Lock()
	s.resetLocked()
	s.status = domain.LoadStatusLoading
	loadCtx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	s.renderCtx = loadCtx
	gen := s.loadGen
	s.wg.Add(1)
	onChange := s.onChange
	s.mu.Unlock()

	notify(onChange)
	go s.load(loadCtx, gen, doc)
}

// GoToPage shows page n, clamped to the document.
func (s *RenderSurface) GoToPage(n int) {
	s.moveTo(func(int) int { return n })
}

// NextPage moves one page forward, stopping at the last page.
func (s *RenderSurface) NextPage() {
	s.moveTo(func(page int) int { return page + 1 })
}

// PrevPage moves one page back, stopping at the first page.
func (s *RenderSurface) PrevPage() {
	s.moveTo(func(page int) int { return page - 1 })
}

// moveTo resolves the target from the current page under the same lock
// that applies it.
func (s *RenderSurface) moveTo(target func(page int) int) {
	s.mu.Lock()
	if s.status != domain.LoadStatusReady || s.state.TotalPages == 0 {
		s.mu.Unlock()
		return
	}
	n := domain.ClampPage(target(s.state.Page), s.state.TotalPages)
	if n == s.state.Page {
		s.mu.Unlock()
		return
	}
	s.state.Page = n
	s.requestRenderLocked()
	onChange := s.onChange
	s.mu.Unlock()

	notify(onChange)
}

// ZoomIn enlarges the page by one zoom step.
func (s *RenderSurface) ZoomIn() {
	s.zoomBy(domain.ZoomStep)
}

// ZoomOut shrinks the page by one zoom step.
func (s *RenderSurface) ZoomOut() {
	s.zoomBy(-domain.ZoomStep)
}

// Release drops the document and returns to idle. In-flight work is
// cancelled and its results ignored.
func (s *RenderSurface) Release() {
	s.mu.Lock()
	s.resetLocked()
	onChange := s.onChange
	s.mu.Unlock()

	notify(onChange)
}

// Wait blocks until background loads and renders have returned.
func (s *RenderSurface) Wait() {
	s.wg.Wait()
}

func (s *RenderSurface) zoomBy(delta float64) {
	s.mu.Lock()
	zoom := domain.ClampZoom(s.state.Zoom + delta)
	if zoom == s.state.Zoom {
		s.mu.Unlock()
		return
	}
	s.state.Zoom = zoom
	if s.handle != nil && s.state.Page > 0 {
		s.requestRenderLocked()
	}
	onChange := s.onChange
	s.mu.Unlock()

	notify(onChange)
}

func (s *RenderSurface) load(ctx context.Context, gen uint64, doc *domain.Document) {
	defer s.wg.Done()

	handle, err := s.open(ctx, doc)
	if err == nil && handle.PageCount() <= 0 {
		_ = handle.Close()
		handle, err = nil, domain.ErrEmptyDocument
	}

	s.mu.Lock()
	if gen != s.loadGen {
		s.mu.Unlock()
		if handle != nil {
			_ = handle.Close()
		}
		s.logger.Debug().Uint64("generation", gen).Msg("stale load discarded")
		return
	}

	if err != nil {
		s.status = domain.LoadStatusFailed
		s.loadErr = err
		s.state.TotalPages = 0
		s.state.Page = 0
		onChange := s.onChange
		s.mu.Unlock()

		s.logger.Warn().Err(err).Str("document", documentName(doc)).Msg("document failed to load")
		notify(onChange)
		return
	}

	s.handle = handle
	s.state.TotalPages = handle.PageCount()
	s.state.Page = 1
	s.status = domain.LoadStatusReady
	s.requestRenderLocked()
	onChange := s.onChange
	s.mu.Unlock()

	s.logger.Info().Str("document", documentName(doc)).Int("pages", handle.PageCount()).Msg("document loaded")
	notify(onChange)
}

func (s *RenderSurface) open(ctx context.Context, doc *domain.Document) (handle ports.DocumentHandle, err error) {
	if doc == nil {
		return nil, domain.ErrNoDocument
	}
	if doc.MediaType != domain.MediaTypePDF {
		return nil, fmt.Errorf("%w: %q", domain.ErrUnsupportedMediaType, doc.MediaType)
	}
	defer func() {
		if r := recover(); r != nil {
			handle, err = nil, fmt.Errorf("%w: %v", domain.ErrCorruptDocument, r)
		}
	}()
	return s.opener.Open(ctx, doc)
}

func (s *RenderSurface) requestRenderLocked() {
	s.renderGen++
	gen := s.renderGen
	page, zoom := s.state.Page, s.state.Zoom
	handle, ctx := s.handle, s.renderCtx
	s.wg.Add(1)
	go s.render(ctx, handle, gen, page, zoom)
}

func (s *RenderSurface) render(ctx context.Context, handle ports.DocumentHandle, gen uint64, page int, zoom float64) {
	defer s.wg.Done()

	out, err := renderPage(ctx, handle, page, zoom)

	s.mu.Lock()
	if gen != s.renderGen {
		s.mu.Unlock()
		s.logger.Debug().Uint64("generation", gen).Int("page", page).Msg("superseded render discarded")
		return
	}
	if err != nil {
		s.output = nil
		s.renderErr = err
	} else {
		s.output = out
		s.renderErr = nil
	}
	onChange := s.onChange
	s.mu.Unlock()

	if err != nil {
		s.logger.Warn().Err(err).Int("page", page).Msg("page render failed")
	}
	notify(onChange)
}

func renderPage(ctx context.Context, handle ports.DocumentHandle, page int, zoom float64) (out *domain.Surface, err error) {
	defer func() {
		if r := recover(); r != nil {
			out, err = nil, fmt.Errorf("%w: %v", domain.ErrCorruptDocument, r)
		}
	}()
	return handle.RenderPage(ctx, page, zoom)
}

// resetLocked invalidates outstanding work and clears the surface.
func (s *RenderSurface) resetLocked() {
	s.loadGen++
	s.renderGen++
	if s.cancel != nil {
		s.cancel()
		s.cancel = nil
	}
	s.renderCtx = nil
	if s.handle != nil {
		if err := s.handle.Close(); err != nil {
			s.logger.Debug().Err(err).Msg("failed to close document handle")
		}
		s.handle = nil
	}
	s.state = domain.ViewerState{Zoom: s.initialZoom}
	s.status = domain.LoadStatusIdle
	s.loadErr = nil
	s.renderErr = nil
	s.output = nil
}

func documentName(doc *domain.Document) string {
	if doc == nil {
		return ""
	}
	return doc.Name
}

func notify(fn func()) {
	if fn != nil {
		fn()
	}
}
