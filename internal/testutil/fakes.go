// Package testutil provides in-memory implementations of the ports for tests.
package testutil

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/xvierd/flow-reader/internal/domain"
	"github.com/xvierd/flow-reader/internal/ports"
)

// ManualScheduler is a ports.Scheduler whose ticks are fired by the test.
type ManualScheduler struct {
	mu      sync.Mutex
	tickers []*ManualTicker
	err     error
}

// ManualTicker is a ticker created by ManualScheduler.
type ManualTicker struct {
	mu       sync.Mutex
	fn       func()
	interval time.Duration
	stopped  bool
}

var _ ports.Scheduler = (*ManualScheduler)(nil)

// NewManualScheduler returns a scheduler that never fires on its own.
func NewManualScheduler() *ManualScheduler {
	return &ManualScheduler{}
}

// FailWith makes subsequent Every calls return err.
func (s *ManualScheduler) FailWith(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.err = err
}

// Every implements ports.Scheduler.
func (s *ManualScheduler) Every(interval time.Duration, fn func()) (ports.Ticker, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return nil, s.err
	}
	t := &ManualTicker{fn: fn, interval: interval}
	s.tickers = append(s.tickers, t)
	return t, nil
}

// Advance fires every live ticker n times, one tick at a time.
func (s *ManualScheduler) Advance(n int) {
	for i := 0; i < n; i++ {
		for _, t := range s.snapshot() {
			t.Fire()
		}
	}
}

// Tickers returns every ticker created so far, stopped or not.
func (s *ManualScheduler) Tickers() []*ManualTicker {
	return s.snapshot()
}

// Live returns the number of tickers that have not been stopped.
func (s *ManualScheduler) Live() int {
	n := 0
	for _, t := range s.snapshot() {
		if !t.Stopped() {
			n++
		}
	}
	return n
}

func (s *ManualScheduler) snapshot() []*ManualTicker {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*ManualTicker, len(s.tickers))
	copy(out, s.tickers)
	return out
}

// Fire runs the scheduled function once if the ticker is live.
func (t *ManualTicker) Fire() {
	t.mu.Lock()
	stopped := t.stopped
	fn := t.fn
	t.mu.Unlock()
	if !stopped {
		fn()
	}
}

// FireStale runs the scheduled function even after Stop, the way a tick
// already queued by a real clock would arrive late.
func (t *ManualTicker) FireStale() {
	t.mu.Lock()
	fn := t.fn
	t.mu.Unlock()
	fn()
}

// Stop implements ports.Ticker.
func (t *ManualTicker) Stop() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.stopped = true
}

// Stopped reports whether Stop was called.
func (t *ManualTicker) Stopped() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.stopped
}

// Interval returns the interval the ticker was scheduled with.
func (t *ManualTicker) Interval() time.Duration {
	return t.interval
}

// FakeDisplay is a ports.Display that switches state synchronously.
type FakeDisplay struct {
	mu        sync.Mutex
	active    bool
	denyErr   error
	requests  int
	exits     int
	listeners map[int]func(bool)
	nextID    int
}

var _ ports.Display = (*FakeDisplay)(nil)

// NewFakeDisplay returns a display that accepts every request.
func NewFakeDisplay() *FakeDisplay {
	return &FakeDisplay{listeners: make(map[int]func(bool))}
}

// Deny makes subsequent fullscreen requests fail with err.
func (d *FakeDisplay) Deny(err error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.denyErr = err
}

// RequestFullscreen implements ports.Display.
func (d *FakeDisplay) RequestFullscreen(ctx context.Context) error {
	d.mu.Lock()
	d.requests++
	if d.denyErr != nil {
		err := d.denyErr
		d.mu.Unlock()
		return err
	}
	d.mu.Unlock()
	if err := ctx.Err(); err != nil {
		return err
	}
	d.set(true)
	return nil
}

// ExitFullscreen implements ports.Display.
func (d *FakeDisplay) ExitFullscreen(ctx context.Context) error {
	d.mu.Lock()
	d.exits++
	d.mu.Unlock()
	d.set(false)
	return nil
}

// IsFullscreen implements ports.Display.
func (d *FakeDisplay) IsFullscreen() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.active
}

// Subscribe implements ports.Display.
func (d *FakeDisplay) Subscribe(fn func(bool)) func() {
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

// SetFullscreen reports a platform-side change, as a terminal does once it
// has switched screens.
func (d *FakeDisplay) SetFullscreen(active bool) {
	d.set(active)
}

// SimulateExternalExit leaves fullscreen as if the user pressed Escape.
func (d *FakeDisplay) SimulateExternalExit() {
	d.set(false)
}

// Requests returns how many times RequestFullscreen was called.
func (d *FakeDisplay) Requests() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.requests
}

// Exits returns how many times ExitFullscreen was called.
func (d *FakeDisplay) Exits() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.exits
}

// Subscribers returns the number of live subscriptions.
func (d *FakeDisplay) Subscribers() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.listeners)
}

func (d *FakeDisplay) set(active bool) {
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

// ErrCorrupt is returned by FakeOpener for documents registered as corrupt.
var ErrCorrupt = fmt.Errorf("fake: %w", domain.ErrCorruptDocument)

// FakeOpener is a ports.DocumentOpener keyed by document name.
type FakeOpener struct {
	mu       sync.Mutex
	pages    map[string]int
	corrupt  map[string]bool
	blocking bool
	handles  []*FakeHandle
}

var _ ports.DocumentOpener = (*FakeOpener)(nil)

// NewFakeOpener returns an opener that knows no documents yet.
func NewFakeOpener() *FakeOpener {
	return &FakeOpener{
		pages:   make(map[string]int),
		corrupt: make(map[string]bool),
	}
}

// AddDocument registers a document name with a page count.
func (o *FakeOpener) AddDocument(name string, pages int) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.pages[name] = pages
}

// AddCorrupt registers a document name that fails to parse.
func (o *FakeOpener) AddCorrupt(name string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.corrupt[name] = true
}

// BlockRenders makes every render of handles opened afterwards wait for
// FakeHandle.Unblock.
func (o *FakeOpener) BlockRenders() {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.blocking = true
}

// Handles returns every handle opened so far.
func (o *FakeOpener) Handles() []*FakeHandle {
	o.mu.Lock()
	defer o.mu.Unlock()
	out := make([]*FakeHandle, len(o.handles))
	copy(out, o.handles)
	return out
}

// Open implements ports.DocumentOpener.
func (o *FakeOpener) Open(ctx context.Context, doc *domain.Document) (ports.DocumentHandle, error) {
	if _, err := doc.Bytes(); err != nil {
		return nil, err
	}
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.corrupt[doc.Name] {
		return nil, ErrCorrupt
	}
	pages, ok := o.pages[doc.Name]
	if !ok {
		return nil, fmt.Errorf("fake: unknown document %q: %w", doc.Name, domain.ErrCorruptDocument)
	}
	if pages == 0 {
		return nil, domain.ErrEmptyDocument
	}
	h := &FakeHandle{pages: pages, blocking: o.blocking, started: make(chan RenderCall, 64)}
	o.handles = append(o.handles, h)
	return h, nil
}

// RenderCall records one RenderPage invocation.
type RenderCall struct {
	Page int
	Zoom float64
}

// FakeHandle is a ports.DocumentHandle that renders placeholder text.
type FakeHandle struct {
	mu       sync.Mutex
	pages    int
	blocking bool
	gates    []chan struct{}
	calls    []RenderCall
	closed   bool
	started  chan RenderCall
}

// PageCount implements ports.DocumentHandle.
func (h *FakeHandle) PageCount() int {
	return h.pages
}

// RenderPage implements ports.DocumentHandle.
func (h *FakeHandle) RenderPage(ctx context.Context, index int, zoom float64) (*domain.Surface, error) {
	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		return nil, errors.New("fake: handle closed")
	}
	call := RenderCall{Page: index, Zoom: zoom}
	h.calls = append(h.calls, call)
	var gate chan struct{}
	if h.blocking {
		gate = make(chan struct{})
		h.gates = append(h.gates, gate)
	}
	h.mu.Unlock()

	select {
	case h.started <- call:
	default:
	}

	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	if index < 1 || index > h.pages {
		return nil, domain.ErrPageOutOfRange
	}
	return &domain.Surface{
		Page:  index,
		Zoom:  zoom,
		Width: 40,
		Lines: []string{PageText(index, zoom)},
	}, nil
}

// PageText is the single line FakeHandle paints for a page.
func PageText(index int, zoom float64) string {
	return strings.TrimSpace(fmt.Sprintf("page %d @ %.2f", index, zoom))
}

// Started delivers each render call as it begins.
func (h *FakeHandle) Started() <-chan RenderCall {
	return h.started
}

// Unblock lets the i-th render call (0-based) finish.
func (h *FakeHandle) Unblock(i int) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if i < len(h.gates) {
		close(h.gates[i])
	}
}

// Calls returns the render calls made so far.
func (h *FakeHandle) Calls() []RenderCall {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := make([]RenderCall, len(h.calls))
	copy(out, h.calls)
	return out
}

// Close implements ports.DocumentHandle.
func (h *FakeHandle) Close() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.closed = true
	return nil
}

// Closed reports whether Close was called.
func (h *FakeHandle) Closed() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.closed
}

// FakeNotifier records notifications.
type FakeNotifier struct {
	mu       sync.Mutex
	Messages []string
}

var _ ports.Notifier = (*FakeNotifier)(nil)

// Notify implements ports.Notifier.
func (n *FakeNotifier) Notify(title, message string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.Messages = append(n.Messages, title+": "+message)
	return nil
}

// Count returns the number of notifications sent.
func (n *FakeNotifier) Count() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.Messages)
}

// Document builds a valid domain.Document with the given name.
func Document(name string) *domain.Document {
	doc, err := domain.NewDocument(name, []byte("%PDF-1.4 fake"))
	if err != nil {
		panic(err)
	}
	return doc
}
