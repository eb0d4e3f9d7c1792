package tui

// Key-flow tests drive Model with a real session controller over fake
// platform adapters, so regressions in key dispatch or controller wiring
// fail here.

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/rs/zerolog"

	"github.com/xvierd/flow-reader/internal/adapters/library"
	"github.com/xvierd/flow-reader/internal/config"
	"github.com/xvierd/flow-reader/internal/domain"
	"github.com/xvierd/flow-reader/internal/services"
	"github.com/xvierd/flow-reader/internal/testutil"
)

// ---------------------------------------------------------------------------
// Helpers
// ---------------------------------------------------------------------------

func keyMsg(s string) tea.Msg {
	switch s {
	case "enter":
		return tea.KeyMsg{Type: tea.KeyEnter}
	case "esc":
		return tea.KeyMsg{Type: tea.KeyEsc}
	case "tab":
		return tea.KeyMsg{Type: tea.KeyTab}
	case "up":
		return tea.KeyMsg{Type: tea.KeyUp}
	case "down":
		return tea.KeyMsg{Type: tea.KeyDown}
	case "left":
		return tea.KeyMsg{Type: tea.KeyLeft}
	case "right":
		return tea.KeyMsg{Type: tea.KeyRight}
	case "ctrl+c":
		return tea.KeyMsg{Type: tea.KeyCtrlC}
	default:
		return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
	}
}

type stubLibrary struct {
	entries []library.Entry
	err     error
}

func (l stubLibrary) Dir() string { return "/books" }

func (l stubLibrary) Scan() ([]library.Entry, error) { return l.entries, l.err }

type flow struct {
	scheduler  *testutil.ManualScheduler
	display    *testutil.FakeDisplay
	surface    *services.RenderSurface
	controller *services.SessionController
}

func newFlow(t *testing.T) *flow {
	t.Helper()
	opener := testutil.NewFakeOpener()
	opener.AddDocument("book.pdf", 3)
	opener.AddDocument("other.pdf", 1)

	f := &flow{
		scheduler: testutil.NewManualScheduler(),
		display:   testutil.NewFakeDisplay(),
	}
	logger := zerolog.Nop()
	engine := services.NewCountdownEngine(f.scheduler, logger)
	coordinator := services.NewFullscreenCoordinator(f.display, logger)
	f.surface = services.NewRenderSurface(opener, 0, logger)
	f.controller = services.NewSessionController(engine, coordinator, f.surface, logger, services.SessionOptions{})
	t.Cleanup(func() { f.controller.Close(context.Background()) })
	return f
}

func (f *flow) model(lib Library) Model {
	m := NewModel(f.controller, Options{
		Open: func(path string) (*domain.Document, error) {
			if filepath.Base(path) == "bad.pdf" {
				return nil, domain.ErrUnsupportedMediaType
			}
			return testutil.Document(filepath.Base(path)), nil
		},
		Presets: config.DefaultConfig().Session.PresetDurations(),
		Library: lib,
		Screen:  f.display,
	})
	next, _ := m.Update(tea.WindowSizeMsg{Width: 100, Height: 40})
	return next.(Model)
}

func books() stubLibrary {
	return stubLibrary{entries: []library.Entry{
		{Name: "book.pdf", Path: "/books/book.pdf", Size: 2048},
		{Name: "other.pdf", Path: "/books/other.pdf", Size: 4096},
		{Name: "bad.pdf", Path: "/books/bad.pdf", Size: 10},
	}}
}

// press sends one key and returns the updated model and its command.
func press(m Model, k string) (Model, tea.Cmd) {
	next, cmd := m.Update(keyMsg(k))
	return next.(Model), cmd
}

// exec runs cmd and feeds the messages the model reacts to back into it.
func exec(m Model, cmd tea.Cmd) Model {
	if cmd == nil {
		return m
	}
	switch msg := cmd().(type) {
	case tea.BatchMsg:
		for _, c := range msg {
			m = exec(m, c)
		}
	case startedMsg, refreshMsg, libraryMsg:
		next, c := m.Update(msg)
		m = exec(next.(Model), c)
	}
	return m
}

// settle waits for pending renders and pulls a fresh snapshot.
func (f *flow) settle(m Model) Model {
	f.surface.Wait()
	next, _ := m.Update(refreshMsg{})
	return next.(Model)
}

// startedModel returns a model with an active session on book.pdf.
func (f *flow) startedModel(t *testing.T, seconds int) Model {
	t.Helper()
	if err := f.controller.SelectDocument(testutil.Document("book.pdf")); err != nil {
		t.Fatal(err)
	}
	if err := f.controller.SetDuration(seconds); err != nil {
		t.Fatal(err)
	}
	m := f.model(nil)
	m, cmd := press(m, "s")
	m = exec(m, cmd)
	return f.settle(m)
}

// ---------------------------------------------------------------------------
// Setup
// ---------------------------------------------------------------------------

func TestModel_View_LoadingBeforeWindowSize(t *testing.T) {
	f := newFlow(t)
	m := NewModel(f.controller, Options{})
	if got := m.View(); got != "Loading..." {
		t.Errorf("View() = %q, want Loading...", got)
	}
}

func TestModel_SelectFromLibraryAndStart(t *testing.T) {
	f := newFlow(t)
	m := f.model(books())
	m = exec(m, m.Init())

	if !strings.Contains(m.View(), "book.pdf") {
		t.Fatal("setup view should list the library")
	}

	m, _ = press(m, "down")
	m, _ = press(m, "enter")
	if m.snap.Session.Pending == nil || m.snap.Session.Pending.Name != "other.pdf" {
		t.Fatalf("pending = %v, want other.pdf", m.snap.Session.Pending)
	}
	if m.focus != focusDuration {
		t.Error("selecting a document should move focus to the duration row")
	}

	m, cmd := press(m, "s")
	if !m.starting {
		t.Error("[s] should mark the model as starting")
	}
	m = f.settle(exec(m, cmd))

	if !m.snap.Session.IsActive() {
		t.Fatal("session should be active after [s]")
	}
	if !m.snap.Fullscreen {
		t.Error("session should have entered fullscreen")
	}
	view := m.View()
	for _, want := range []string{"Page 1 of 1", "Focus Mode Active", "Locked in Focus Mode", "zoom 150%"} {
		if !strings.Contains(view, want) {
			t.Errorf("session view missing %q", want)
		}
	}
}

func TestModel_FilterNarrowsLibrary(t *testing.T) {
	f := newFlow(t)
	m := f.model(books())
	m = exec(m, m.Init())

	m, _ = press(m, "oth")
	entry, ok := m.picker.Current()
	if !ok || entry.Name != "other.pdf" {
		t.Errorf("Current() = %v, %v; want other.pdf", entry, ok)
	}

	m, _ = press(m, "esc")
	if len(m.picker.filtered) != 3 {
		t.Errorf("[esc] should clear the filter, got %d entries", len(m.picker.filtered))
	}
}

func TestModel_SelectUnreadableDocumentShowsError(t *testing.T) {
	f := newFlow(t)
	m := f.model(books())
	m = exec(m, m.Init())

	m, _ = press(m, "bad")
	m, _ = press(m, "enter")

	if !errors.Is(m.err, domain.ErrUnsupportedMediaType) {
		t.Fatalf("err = %v, want ErrUnsupportedMediaType", m.err)
	}
	if m.snap.Session.Pending != nil {
		t.Error("a rejected document must not be staged")
	}
	if !strings.Contains(m.View(), "bad.pdf") {
		t.Error("view should name the rejected file")
	}
}

func TestModel_StartWithoutDocument(t *testing.T) {
	f := newFlow(t)
	m := f.model(nil)

	m, cmd := press(m, "s")
	if cmd != nil {
		t.Error("[s] without a document should not start anything")
	}
	if !errors.Is(m.err, domain.ErrNoDocument) {
		t.Errorf("err = %v, want ErrNoDocument", m.err)
	}
	if !strings.Contains(m.View(), domain.ErrNoDocument.Error()) {
		t.Error("view should show the validation error")
	}
}

func TestModel_DurationKeys(t *testing.T) {
	f := newFlow(t)
	m := f.model(nil)

	steps := []struct {
		key  string
		want time.Duration
	}{
		{"right", 30 * time.Minute},
		{"right", 45 * time.Minute},
		{"left", 30 * time.Minute},
		{"left", 25 * time.Minute},
		{"left", 15 * time.Minute},
		{"+", 16 * time.Minute},
		{"right", 25 * time.Minute},
		{"-", 24 * time.Minute},
		{"left", 15 * time.Minute},
	}
	for i, step := range steps {
		m, _ = press(m, step.key)
		if got := m.snap.Session.Duration(); got != step.want {
			t.Fatalf("step %d [%s]: duration = %v, want %v", i, step.key, got, step.want)
		}
	}
}

func TestModel_CustomDurationBounds(t *testing.T) {
	f := newFlow(t)
	m := f.model(nil)

	if err := f.controller.SetDuration(2 * 60); err != nil {
		t.Fatal(err)
	}
	m = f.settle(m)
	for range 3 {
		m, _ = press(m, "-")
	}
	if got := m.snap.Session.Duration(); got != time.Minute {
		t.Errorf("duration = %v, want lower bound 1m", got)
	}

	if err := f.controller.SetDuration(MaxCustomMinutes * 60); err != nil {
		t.Fatal(err)
	}
	m = f.settle(m)
	m, _ = press(m, "+")
	if got := m.snap.Session.Duration(); got != MaxCustomMinutes*time.Minute {
		t.Errorf("duration = %v, want upper bound %dm", got, MaxCustomMinutes)
	}
	if !strings.Contains(m.View(), "[180]") {
		t.Error("view should highlight the custom duration")
	}
}

func TestModel_CtrlCQuits(t *testing.T) {
	f := newFlow(t)
	m := f.model(nil)

	_, cmd := press(m, "ctrl+c")
	if cmd == nil {
		t.Fatal("ctrl+c should return a command")
	}
	if _, ok := cmd().(tea.QuitMsg); !ok {
		t.Error("ctrl+c should quit")
	}
}

func TestModel_AutoStart(t *testing.T) {
	f := newFlow(t)
	if err := f.controller.SelectDocument(testutil.Document("book.pdf")); err != nil {
		t.Fatal(err)
	}
	m := NewModel(f.controller, Options{AutoStart: true, Screen: f.display})
	m = f.settle(exec(m, m.Init()))

	if !m.snap.Session.IsActive() {
		t.Error("AutoStart with a staged document should start the session")
	}
}

// ---------------------------------------------------------------------------
// Session
// ---------------------------------------------------------------------------

func TestModel_SessionNavigation(t *testing.T) {
	f := newFlow(t)
	m := f.startedModel(t, 60)

	steps := []struct {
		key  string
		page int
	}{
		{"right", 2},
		{"l", 3},
		{"right", 3},
		{"g", 1},
		{"left", 1},
		{"G", 3},
		{"pgup", 2},
	}
	for _, step := range steps {
		m, _ = press(m, step.key)
		m = f.settle(m)
		if got := m.snap.Viewer.State.Page; got != step.page {
			t.Fatalf("[%s]: page = %d, want %d", step.key, got, step.page)
		}
	}
	if !strings.Contains(m.View(), "Page 2 of 3") {
		t.Error("header should show the current page")
	}
	if !strings.Contains(m.View(), testutil.PageText(2, 1.5)) {
		t.Error("viewport should show the painted page")
	}
}

func TestModel_SessionZoom(t *testing.T) {
	f := newFlow(t)
	m := f.startedModel(t, 60)

	m, _ = press(m, "+")
	m = f.settle(m)
	if !strings.Contains(m.View(), "zoom 175%") {
		t.Error("[+] should zoom in one step")
	}

	m, _ = press(m, "-")
	m, _ = press(m, "-")
	m = f.settle(m)
	if !strings.Contains(m.View(), "zoom 125%") {
		t.Error("[-] should zoom out one step")
	}
}

func TestModel_SetupKeysIgnoredDuringSession(t *testing.T) {
	f := newFlow(t)
	m := f.startedModel(t, 60)

	for _, k := range []string{"s", "q", "tab", "enter"} {
		var cmd tea.Cmd
		m, cmd = press(m, k)
		if cmd != nil {
			if _, quit := cmd().(tea.QuitMsg); quit {
				t.Errorf("[%s] must not quit during a session", k)
			}
		}
	}
	if !m.snap.Session.IsActive() {
		t.Error("session should still be active")
	}
	if got := m.snap.Session.Duration(); got != time.Minute {
		t.Errorf("duration changed to %v during a session", got)
	}
}

func TestModel_LeaveAndRelock(t *testing.T) {
	f := newFlow(t)
	m := f.startedModel(t, 60)

	_, cmd := press(m, "esc")
	if cmd == nil {
		t.Fatal("[esc] in fullscreen should leave the alternate screen")
	}

	// The terminal confirms the switch.
	f.display.SimulateExternalExit()
	m = f.settle(m)

	if m.snap.Fullscreen {
		t.Fatal("fullscreen should be off after leaving it")
	}
	if !m.snap.Session.IsActive() {
		t.Fatal("leaving fullscreen must not end the session")
	}
	if !strings.Contains(m.View(), "press [f] to lock again") {
		t.Error("view should offer to relock")
	}
	if _, cmd := press(m, "esc"); cmd != nil {
		t.Error("[esc] outside fullscreen should do nothing")
	}

	m, cmd = press(m, "f")
	m = exec(m, cmd)
	if !m.snap.Fullscreen {
		t.Error("[f] should relock")
	}
	if got := f.display.Requests(); got != 2 {
		t.Errorf("fullscreen requests = %d, want 2", got)
	}
}

func TestModel_SessionCompletesToSetup(t *testing.T) {
	f := newFlow(t)
	m := f.startedModel(t, 60)

	f.scheduler.Advance(30)
	m = f.settle(m)
	if got := m.snap.Progress(); got != 0.5 {
		t.Errorf("Progress() = %v, want 0.5", got)
	}

	f.scheduler.Advance(30)
	m = f.settle(m)

	if m.snap.Session.IsActive() {
		t.Fatal("session should end when the countdown completes")
	}
	if m.snap.Fullscreen {
		t.Error("fullscreen should be released on completion")
	}
	view := m.View()
	if !strings.Contains(view, "Finished 1m0s of focused reading on book.pdf") {
		t.Errorf("setup view should report the finished session, got:\n%s", view)
	}
}

func TestModel_FullscreenRequestsSwitchScreens(t *testing.T) {
	f := newFlow(t)
	m := f.model(nil)

	if _, cmd := m.Update(enterFullscreenMsg{}); cmd == nil {
		t.Error("enter request should switch to the alternate screen")
	}
	if _, cmd := m.Update(exitFullscreenMsg{}); cmd == nil {
		t.Error("exit request should leave the alternate screen")
	}
}

func TestModel_ConfirmReportsToScreen(t *testing.T) {
	f := newFlow(t)
	m := f.model(nil)

	if msg := m.confirmCmd(true)(); msg != nil {
		t.Errorf("confirm should not produce a message, got %v", msg)
	}
	if !f.display.IsFullscreen() {
		t.Error("confirm(true) should mark the screen fullscreen")
	}
	m.confirmCmd(false)()
	if f.display.IsFullscreen() {
		t.Error("confirm(false) should clear fullscreen")
	}
}
