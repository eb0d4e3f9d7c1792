package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/xvierd/flow-reader/internal/adapters/library"
	"github.com/xvierd/flow-reader/internal/config"
)

// pickerRows is how many library entries are listed at once.
const pickerRows = 8

// libraryPicker lists library entries under a fuzzy filter input.
type libraryPicker struct {
	entries  []library.Entry
	filtered []library.Entry
	filter   textinput.Model
	cursor   int
	offset   int
	err      error
}

func newLibraryPicker() libraryPicker {
	ti := textinput.New()
	ti.Placeholder = "type to filter"
	ti.Prompt = "/ "
	ti.CharLimit = 64
	ti.Width = 30
	ti.Focus()
	return libraryPicker{filter: ti}
}

// SetEntries replaces the listed entries, keeping the filter and, where
// possible, the highlighted entry.
func (p libraryPicker) SetEntries(entries []library.Entry, err error) libraryPicker {
	current, hadCurrent := p.Current()
	p.entries = entries
	p.err = err
	p = p.refilter()
	if hadCurrent {
		for i, e := range p.filtered {
			if e.Path == current.Path {
				p.cursor = i
				break
			}
		}
	}
	return p.clampCursor()
}

// Current returns the highlighted entry.
func (p libraryPicker) Current() (library.Entry, bool) {
	if p.cursor < 0 || p.cursor >= len(p.filtered) {
		return library.Entry{}, false
	}
	return p.filtered[p.cursor], true
}

func (p libraryPicker) Update(msg tea.Msg) (libraryPicker, tea.Cmd) {
	if msg, ok := msg.(tea.KeyMsg); ok {
		switch msg.String() {
		case "up", "ctrl+p":
			if p.cursor > 0 {
				p.cursor--
			}
			return p.clampCursor(), nil
		case "down", "ctrl+n":
			if p.cursor < len(p.filtered)-1 {
				p.cursor++
			}
			return p.clampCursor(), nil
		case "esc":
			p.filter.SetValue("")
			return p.refilter(), nil
		}
	}

	before := p.filter.Value()
	var cmd tea.Cmd
	p.filter, cmd = p.filter.Update(msg)
	if p.filter.Value() != before {
		p.cursor = 0
		p = p.refilter()
	}
	return p, cmd
}

func (p libraryPicker) View(theme config.ThemeConfig, dir string) string {
	var b strings.Builder

	activeStyle := lipgloss.NewStyle().Foreground(lipgloss.Color(theme.ColorAccent)).Bold(true)
	dimStyle := lipgloss.NewStyle().Foreground(lipgloss.Color(theme.ColorHelp))
	errStyle := lipgloss.NewStyle().Foreground(lipgloss.Color(theme.ColorError))

	b.WriteString(dimStyle.Render(fmt.Sprintf("Library: %s", dir)) + "\n")
	b.WriteString(p.filter.View() + "\n")

	switch {
	case p.err != nil:
		b.WriteString(errStyle.Render(fmt.Sprintf("  %v", p.err)) + "\n")
	case len(p.entries) == 0:
		b.WriteString(dimStyle.Render("  No PDF files here") + "\n")
	case len(p.filtered) == 0:
		b.WriteString(dimStyle.Render("  No matches") + "\n")
	}

	end := p.offset + pickerRows
	if end > len(p.filtered) {
		end = len(p.filtered)
	}
	for i := p.offset; i < end; i++ {
		e := p.filtered[i]
		line := fmt.Sprintf("%s %s", theme.IconDocument, e.Name)
		size := formatSize(e.Size)
		if i == p.cursor {
			b.WriteString(activeStyle.Render(fmt.Sprintf(" ▸ %s  %s", line, size)) + "\n")
		} else {
			b.WriteString(dimStyle.Render(fmt.Sprintf("   %s  %s", line, size)) + "\n")
		}
	}
	if len(p.filtered) > end {
		b.WriteString(dimStyle.Render(fmt.Sprintf("   … %d more", len(p.filtered)-end)) + "\n")
	}

	return b.String()
}

func (p libraryPicker) refilter() libraryPicker {
	p.filtered = library.Filter(p.entries, p.filter.Value())
	return p.clampCursor()
}

func (p libraryPicker) clampCursor() libraryPicker {
	if p.cursor >= len(p.filtered) {
		p.cursor = len(p.filtered) - 1
	}
	if p.cursor < 0 {
		p.cursor = 0
	}
	if p.cursor < p.offset {
		p.offset = p.cursor
	}
	if p.cursor >= p.offset+pickerRows {
		p.offset = p.cursor - pickerRows + 1
	}
	if p.offset > 0 && p.offset > len(p.filtered)-pickerRows {
		p.offset = max(0, len(p.filtered)-pickerRows)
	}
	return p
}

// formatSize renders a byte count for humans.
func formatSize(n int64) string {
	switch {
	case n >= 1<<20:
		return fmt.Sprintf("%.1f MB", float64(n)/(1<<20))
	case n >= 1<<10:
		return fmt.Sprintf("%.0f KB", float64(n)/(1<<10))
	default:
		return fmt.Sprintf("%d B", n)
	}
}
