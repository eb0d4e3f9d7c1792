// Package tui provides the terminal user interface implementation
// using the Bubbletea framework.
package tui

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/xvierd/flow-reader/internal/adapters/library"
	"github.com/xvierd/flow-reader/internal/config"
	"github.com/xvierd/flow-reader/internal/domain"
)

// Custom duration bounds, in minutes.
const (
	MinCustomMinutes = 1
	MaxCustomMinutes = 180
)

// chromeHeight is the number of rows the session view uses around the
// document viewport.
const chromeHeight = 10

// Controller is the part of the session controller the UI drives.
type Controller interface {
	Snapshot() domain.Snapshot
	SelectDocument(doc *domain.Document) error
	SetDuration(seconds int) error
	StartSession(ctx context.Context) error
	NextPage()
	PrevPage()
	GoToPage(n int)
	ZoomIn()
	ZoomOut()
	Relock(ctx context.Context)
}

// Screen receives confirmation that the terminal switched screens.
// *Display implements it.
type Screen interface {
	SetFullscreen(active bool)
}

// Library lists the documents offered in setup.
type Library interface {
	Dir() string
	Scan() ([]library.Entry, error)
}

// Options configures a Model.
type Options struct {
	// Open reads the document at path. Defaults to library.ReadDocument.
	Open func(path string) (*domain.Document, error)
	// Presets are the selectable focus durations.
	Presets []time.Duration
	// Library feeds the document picker. Nil hides it.
	Library Library
	// Screen is told when the alternate screen is entered or left.
	Screen Screen
	// Theme overrides colors and icons. Empty fields use defaults.
	Theme *config.ThemeConfig
	// AutoStart starts a session right away if a document is selected.
	AutoStart bool
}

// resolveTheme fills any empty string fields in the given ThemeConfig with defaults.
// If theme is nil, returns the full default theme.
func resolveTheme(theme *config.ThemeConfig) config.ThemeConfig {
	defaults := config.DefaultThemeConfig()
	if theme == nil {
		return defaults
	}
	resolved := *theme
	rv := reflect.ValueOf(&resolved).Elem()
	dv := reflect.ValueOf(defaults)
	for i := 0; i < rv.NumField(); i++ {
		f := rv.Field(i)
		if f.Kind() == reflect.String && f.String() == "" {
			f.SetString(dv.Field(i).String())
		}
	}
	return resolved
}

// refreshMsg tells the model that the controller's snapshot changed.
type refreshMsg struct{}

// libraryChangedMsg tells the model that the library directory changed.
type libraryChangedMsg struct{}

// libraryMsg carries a fresh scan of the library.
type libraryMsg struct {
	entries []library.Entry
	err     error
}

// startedMsg reports the outcome of StartSession.
type startedMsg struct {
	err error
}

type setupFocus int

const (
	focusLibrary setupFocus = iota
	focusDuration
)

// Model represents the TUI state.
type Model struct {
	ctrl      Controller
	lib       Library
	screen    Screen
	open      func(string) (*domain.Document, error)
	presets   []time.Duration
	theme     config.ThemeConfig
	autoStart bool

	snap     domain.Snapshot
	picker   libraryPicker
	focus    setupFocus
	starting bool
	err      error

	viewport  viewport.Model
	progress  progress.Model
	shownPage int
	shownZoom float64
	width     int
	height    int
}

// NewModel creates a new TUI model.
func NewModel(ctrl Controller, opts Options) Model {
	if opts.Open == nil {
		opts.Open = library.ReadDocument
	}
	theme := resolveTheme(opts.Theme)

	vp := viewport.New(0, 0)
	vp.KeyMap = viewport.KeyMap{
		Up:   key.NewBinding(key.WithKeys("up", "k")),
		Down: key.NewBinding(key.WithKeys("down", "j")),
	}

	m := Model{
		ctrl:      ctrl,
		lib:       opts.Library,
		screen:    opts.Screen,
		open:      opts.Open,
		presets:   opts.Presets,
		theme:     theme,
		autoStart: opts.AutoStart,
		picker:    newLibraryPicker(),
		viewport:  vp,
		progress:  progress.New(progress.WithGradient(theme.GradientStart, theme.GradientEnd), progress.WithoutPercentage()),
	}
	if opts.Library == nil {
		m.focus = focusDuration
	}
	m.snap = ctrl.Snapshot()
	return m
}

// Init initializes the TUI.
func (m Model) Init() tea.Cmd {
	var cmds []tea.Cmd
	if m.lib != nil {
		cmds = append(cmds, m.scanCmd())
	}
	if m.autoStart && m.snap.Session.CanStart() {
		cmds = append(cmds, m.startCmd())
	}
	return tea.Batch(cmds...)
}

// Update handles messages and updates the model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.progress.Width = max(10, msg.Width-4)
		return m.layout(), nil

	case refreshMsg:
		return m.refresh(), nil

	case startedMsg:
		m.starting = false
		if msg.err != nil && !errors.Is(msg.err, domain.ErrScheduleFailed) {
			m.err = msg.err
		}
		return m.refresh(), nil

	case libraryChangedMsg:
		if m.lib == nil {
			return m, nil
		}
		return m, m.scanCmd()

	case libraryMsg:
		m.picker = m.picker.SetEntries(msg.entries, msg.err)
		return m, nil

	case enterFullscreenMsg:
		return m, tea.Sequence(tea.EnterAltScreen, m.confirmCmd(true))

	case exitFullscreenMsg:
		return m, tea.Sequence(tea.ExitAltScreen, m.confirmCmd(false))

	case tea.KeyMsg:
		if msg.String() == "ctrl+c" {
			return m, tea.Quit
		}
		if m.snap.Session.IsActive() {
			return m.updateSession(msg)
		}
		return m.updateSetup(msg)
	}

	if m.focus == focusLibrary && !m.snap.Session.IsActive() {
		var cmd tea.Cmd
		m.picker, cmd = m.picker.Update(msg)
		return m, cmd
	}
	return m, nil
}

// updateSession handles keys while a focus session is running.
func (m Model) updateSession(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "right", "l", "pgdown", "n":
		m.ctrl.NextPage()
	case "left", "h", "pgup", "p":
		m.ctrl.PrevPage()
	case "home", "g":
		m.ctrl.GoToPage(1)
	case "end", "G":
		m.ctrl.GoToPage(m.snap.Viewer.State.TotalPages)
	case "+", "=":
		m.ctrl.ZoomIn()
	case "-", "_":
		m.ctrl.ZoomOut()
	case "f":
		if !m.snap.Fullscreen {
			return m, m.relockCmd()
		}
		return m, nil
	case "esc":
		if m.snap.Fullscreen {
			return m, tea.Sequence(tea.ExitAltScreen, m.confirmCmd(false))
		}
		return m, nil
	default:
		var cmd tea.Cmd
		m.viewport, cmd = m.viewport.Update(msg)
		return m, cmd
	}
	return m.refresh(), nil
}

// updateSetup handles keys on the setup screen.
func (m Model) updateSetup(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if msg.String() == "tab" || msg.String() == "shift+tab" {
		if m.lib != nil {
			if m.focus == focusLibrary {
				m.focus = focusDuration
			} else {
				m.focus = focusLibrary
			}
		}
		return m, nil
	}

	if m.focus == focusLibrary {
		if msg.String() == "enter" {
			return m.selectCurrent(), nil
		}
		var cmd tea.Cmd
		m.picker, cmd = m.picker.Update(msg)
		return m, cmd
	}

	switch msg.String() {
	case "q":
		return m, tea.Quit
	case "left", "h":
		m = m.setDuration(m.prevPreset())
	case "right", "l":
		m = m.setDuration(m.nextPreset())
	case "+", "=", "up", "k":
		m = m.setDuration(m.snap.Session.Duration() + time.Minute)
	case "-", "_", "down", "j":
		m = m.setDuration(m.snap.Session.Duration() - time.Minute)
	case "s", "enter":
		return m.start()
	}
	return m, nil
}

// selectCurrent reads the highlighted library entry and stages it.
func (m Model) selectCurrent() Model {
	entry, ok := m.picker.Current()
	if !ok {
		return m
	}
	doc, err := m.open(entry.Path)
	if err == nil {
		err = m.ctrl.SelectDocument(doc)
	}
	if err != nil {
		m.err = fmt.Errorf("%s: %w", entry.Name, err)
		return m.refresh()
	}
	m.err = nil
	m.focus = focusDuration
	return m.refresh()
}

// setDuration applies d, rounded to whole minutes within the custom bounds.
func (m Model) setDuration(d time.Duration) Model {
	minutes := int(d / time.Minute)
	minutes = min(MaxCustomMinutes, max(MinCustomMinutes, minutes))
	if err := m.ctrl.SetDuration(minutes * 60); err != nil {
		m.err = err
	} else {
		m.err = nil
	}
	return m.refresh()
}

// prevPreset returns the largest preset below the current duration.
func (m Model) prevPreset() time.Duration {
	current := m.snap.Session.Duration()
	best := current
	for _, p := range m.presets {
		if p < current && (best == current || p > best) {
			best = p
		}
	}
	return best
}

// nextPreset returns the smallest preset above the current duration.
func (m Model) nextPreset() time.Duration {
	current := m.snap.Session.Duration()
	best := current
	for _, p := range m.presets {
		if p > current && (best == current || p < best) {
			best = p
		}
	}
	return best
}

func (m Model) start() (tea.Model, tea.Cmd) {
	if m.starting {
		return m, nil
	}
	if m.snap.Session.Pending == nil {
		m.err = domain.ErrNoDocument
		return m, nil
	}
	m.starting = true
	m.err = nil
	return m, m.startCmd()
}

func (m Model) startCmd() tea.Cmd {
	ctrl := m.ctrl
	return func() tea.Msg {
		return startedMsg{err: ctrl.StartSession(context.Background())}
	}
}

func (m Model) relockCmd() tea.Cmd {
	ctrl := m.ctrl
	return func() tea.Msg {
		ctrl.Relock(context.Background())
		return refreshMsg{}
	}
}

func (m Model) scanCmd() tea.Cmd {
	lib := m.lib
	return func() tea.Msg {
		entries, err := lib.Scan()
		return libraryMsg{entries: entries, err: err}
	}
}

// confirmCmd reports the finished screen switch once the terminal has
// processed it.
func (m Model) confirmCmd(active bool) tea.Cmd {
	screen := m.screen
	return func() tea.Msg {
		if screen != nil {
			screen.SetFullscreen(active)
		}
		return nil
	}
}

// refresh pulls a new snapshot and updates the viewport from it.
func (m Model) refresh() Model {
	m.snap = m.ctrl.Snapshot()

	out := m.snap.Viewer.Output
	if out == nil {
		m.shownPage, m.shownZoom = 0, 0
		m.viewport.SetContent("")
		return m
	}
	if out.Page != m.shownPage || out.Zoom != m.shownZoom {
		m.viewport.SetContent(m.pageContent(out))
		m.viewport.GotoTop()
		m.shownPage, m.shownZoom = out.Page, out.Zoom
	}
	return m
}

// layout sizes the viewport to the window.
func (m Model) layout() Model {
	m.viewport.Width = m.width
	m.viewport.Height = max(3, m.height-chromeHeight)
	if out := m.snap.Viewer.Output; out != nil {
		m.viewport.SetContent(m.pageContent(out))
	}
	return m
}

// pageContent centers the painted page in the window.
func (m Model) pageContent(out *domain.Surface) string {
	page := strings.Join(out.Lines, "\n")
	if m.width > out.Width {
		return lipgloss.PlaceHorizontal(m.width, lipgloss.Center, lipgloss.NewStyle().Width(out.Width).Render(page))
	}
	return page
}

// View renders the TUI.
func (m Model) View() string {
	if m.width == 0 {
		return "Loading..."
	}
	if m.snap.Session.IsActive() {
		return m.viewSession()
	}
	return m.viewSetup()
}

func (m Model) viewSession() string {
	snap := m.snap
	viewer := snap.Viewer

	titleStyle := lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color(m.theme.ColorTitle))
	accentStyle := lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color(m.theme.ColorAccent))
	helpStyle := lipgloss.NewStyle().Foreground(lipgloss.Color(m.theme.ColorHelp))
	errStyle := lipgloss.NewStyle().Foreground(lipgloss.Color(m.theme.ColorError))

	name := ""
	if snap.Session.Document != nil {
		name = snap.Session.Document.Name
	}
	pageLabel := "Page - of -"
	if viewer.State.TotalPages > 0 {
		pageLabel = fmt.Sprintf("Page %d of %d", viewer.State.Page, viewer.State.TotalPages)
	}
	left := titleStyle.Render(fmt.Sprintf("%s %s  %s", m.theme.IconDocument, name, pageLabel))
	right := accentStyle.Render(domain.GetPhaseLabel(snap.Session.Phase))
	gap := max(1, m.width-lipgloss.Width(left)-lipgloss.Width(right))
	header := left + strings.Repeat(" ", gap) + right

	clockColor := lipgloss.Color(m.theme.ColorUnlocked)
	if snap.Fullscreen {
		clockColor = lipgloss.Color(m.theme.ColorLocked)
	}
	clock := renderClock(formatClock(snap.Countdown.Remaining), clockColor, m.width)

	var badge string
	if snap.Fullscreen {
		badge = lipgloss.NewStyle().Foreground(lipgloss.Color(m.theme.ColorLocked)).
			Render(fmt.Sprintf("%s Locked in Focus Mode", m.theme.IconLock))
	} else {
		badge = lipgloss.NewStyle().Foreground(lipgloss.Color(m.theme.ColorUnlocked)).
			Render("Fullscreen off, press [f] to lock again")
	}

	var body string
	switch {
	case viewer.Status == domain.LoadStatusFailed:
		body = errStyle.Render(fmt.Sprintf("Could not open %s: %v", name, viewer.LoadError))
	case viewer.Status == domain.LoadStatusLoading || viewer.Status == domain.LoadStatusIdle:
		body = helpStyle.Render("Loading document...")
	case viewer.RenderError != nil:
		body = errStyle.Render(fmt.Sprintf("Could not render page %d: %v", viewer.State.Page, viewer.RenderError))
	case viewer.Output == nil:
		body = helpStyle.Render(fmt.Sprintf("Rendering page %d...", viewer.State.Page))
	default:
		body = m.viewport.View()
	}
	body = lipgloss.NewStyle().Height(m.viewport.Height).Render(body)

	controls := fmt.Sprintf("[←/→] page  [-/+] zoom %d%%  [↑/↓] scroll", viewer.State.ZoomPercent())
	if viewer.State.TotalPages == 0 {
		controls = fmt.Sprintf("[-/+] zoom %d%%", viewer.State.ZoomPercent())
	}
	if snap.Fullscreen {
		controls += "  [esc] leave fullscreen"
	}

	sections := []string{
		header,
		lipgloss.PlaceHorizontal(m.width, lipgloss.Center, clock),
		lipgloss.PlaceHorizontal(m.width, lipgloss.Center, badge),
		body,
		m.progress.ViewAs(snap.Progress()),
		helpStyle.Render(controls),
	}
	return lipgloss.JoinVertical(lipgloss.Left, sections...)
}

func (m Model) viewSetup() string {
	snap := m.snap

	titleStyle := lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color(m.theme.ColorTitle)).MarginBottom(1)
	accentStyle := lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color(m.theme.ColorAccent))
	helpStyle := lipgloss.NewStyle().Foreground(lipgloss.Color(m.theme.ColorHelp))
	errStyle := lipgloss.NewStyle().Foreground(lipgloss.Color(m.theme.ColorError))

	var sections []string
	sections = append(sections, titleStyle.Render(fmt.Sprintf("%s Flow Reader", m.theme.IconApp)))

	if r := snap.LastResult; r != nil {
		var banner string
		if r.Fault != nil {
			banner = errStyle.Render(fmt.Sprintf("Session on %s ended early: %v", r.Document, r.Fault))
		} else {
			banner = lipgloss.NewStyle().Foreground(lipgloss.Color(m.theme.ColorLocked)).
				Render(fmt.Sprintf("Finished %s of focused reading on %s", r.Duration, r.Document))
		}
		sections = append(sections, banner, "")
	}

	if m.lib != nil {
		sections = append(sections, m.picker.View(m.theme, m.lib.Dir()))
	}

	if snap.Session.Pending != nil {
		sections = append(sections, accentStyle.Render(fmt.Sprintf("%s %s", m.theme.IconDocument, snap.Session.Pending.Name)))
	} else {
		sections = append(sections, helpStyle.Render("No document selected"))
	}
	sections = append(sections, "")

	durationLabel := "Duration"
	if m.focus == focusDuration {
		durationLabel = accentStyle.Render("▸ Duration")
	}
	sections = append(sections, fmt.Sprintf("%s: %s", durationLabel, m.viewDurations()))

	if m.starting {
		sections = append(sections, helpStyle.Render("Starting..."))
	}
	if m.err != nil {
		sections = append(sections, errStyle.Render(fmt.Sprintf("Error: %v", m.err)))
	}

	sections = append(sections, "")
	help := "[←/→] preset  [+/-] minute  [s]tart  [q]uit"
	if m.lib != nil {
		if m.focus == focusLibrary {
			help = "[↑/↓] choose  [enter] select  [tab] duration  [ctrl+c] quit"
		} else {
			help = "[←/→] preset  [+/-] minute  [s]tart  [tab] library  [q]uit"
		}
	}
	sections = append(sections, helpStyle.Render(help))

	return lipgloss.JoinVertical(lipgloss.Left, sections...)
}

// viewDurations lists the presets with the current duration highlighted.
func (m Model) viewDurations() string {
	current := m.snap.Session.Duration()
	activeStyle := lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color(m.theme.ColorAccent))
	dimStyle := lipgloss.NewStyle().Foreground(lipgloss.Color(m.theme.ColorHelp))

	parts := make([]string, 0, len(m.presets)+1)
	matched := false
	for _, p := range m.presets {
		label := fmt.Sprintf("%d", int(p/time.Minute))
		if p == current {
			parts = append(parts, activeStyle.Render("["+label+"]"))
			matched = true
		} else {
			parts = append(parts, dimStyle.Render(label))
		}
	}
	if !matched {
		parts = append(parts, activeStyle.Render(fmt.Sprintf("[%s]", formatMinutes(current))))
	}
	return strings.Join(parts, " ") + " min"
}

// formatClock renders seconds as MM:SS. Minutes are not capped at 59.
func formatClock(seconds int) string {
	if seconds < 0 {
		seconds = 0
	}
	return fmt.Sprintf("%02d:%02d", seconds/60, seconds%60)
}

// formatMinutes renders a custom duration, keeping odd seconds visible.
func formatMinutes(d time.Duration) string {
	if d%time.Minute == 0 {
		return fmt.Sprintf("%d", int(d/time.Minute))
	}
	return d.String()
}
