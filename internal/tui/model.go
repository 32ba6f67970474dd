// Package tui renders a view's rows in the terminal and turns key presses
// into row gestures.
package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/x/ansi"
	"github.com/google/uuid"

	"github.com/munkhbileg/openproject/internal/gesture"
	"github.com/munkhbileg/openproject/internal/publish"
	"github.com/munkhbileg/openproject/internal/reorder"
	"github.com/munkhbileg/openproject/internal/rows"
)

// redrawDelay gives asynchronous inserts time to land before redrawing.
const redrawDelay = 50 * time.Millisecond

// View is the read side of an attached view.
type View interface {
	Snapshot() rows.Sequence
	Stats() publish.Stats
}

// Producer publishes gestures towards the view.
type Producer interface {
	Move(container string, m gesture.Moved)
	Remove(container string, r gesture.Removed)
}

// Creator announces rows created inline.
type Creator interface {
	Publish(c reorder.Created)
}

// Options configures a Model.
type Options struct {
	Title       string
	Container   string
	LeadingRows int
	View        View
	Gestures    Producer
	Creations   Creator
	// Teardown is called once when the user quits.
	Teardown func()
	NewID    func() string
}

// Model is the bubbletea model of the row table.
type Model struct {
	title     string
	container string
	leading   int
	view      View
	gestures  Producer
	creations Creator
	teardown  func()
	newID     func() string

	keys   keyMap
	help   help.Model
	cursor int
	seq    rows.Sequence
	status string
	level  statusLevel
	width  int
	quit   bool
}

type statusLevel int

const (
	statusInfo statusLevel = iota
	statusOK
	statusWarn
	statusError
)

// New creates a Model.
func New(opts Options) Model {
	newID := opts.NewID
	if newID == nil {
		newID = uuid.NewString
	}
	title := opts.Title
	if title == "" {
		title = "Work packages"
	}
	m := Model{
		title:     title,
		container: opts.Container,
		leading:   max(opts.LeadingRows, 0),
		view:      opts.View,
		gestures:  opts.Gestures,
		creations: opts.Creations,
		teardown:  opts.Teardown,
		newID:     newID,
		keys:      defaultKeys(),
		help:      help.New(),
		status:    "ready",
	}
	m.reload()
	return m
}

// Init implements tea.Model.
func (m Model) Init() tea.Cmd {
	return nil
}

// Update implements tea.Model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.help.Width = msg.Width
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)

	case PublishedMsg:
		m.reload()
		m.setStatus(statusOK, fmt.Sprintf("order saved (v%d, %d rows)", msg.Version, len(msg.OrderedIDs)))
		return m, nil

	case PublishFailedMsg:
		m.reload()
		m.setStatus(statusError, fmt.Sprintf("saving order v%d failed: %s", msg.Version, msg.Err))
		return m, nil

	case DesyncMsg:
		m.reload()
		m.setStatus(statusWarn, fmt.Sprintf("%s ignored: %s is gone", msg.Op, msg.Identifier))
		return m, nil

	case RefreshMsg:
		m.reload()
		return m, nil
	}
	return m, nil
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Quit):
		m.quit = true
		if m.teardown != nil {
			m.teardown()
		}
		return m, tea.Quit

	case key.Matches(msg, m.keys.Help):
		m.help.ShowAll = !m.help.ShowAll

	case key.Matches(msg, m.keys.Up):
		if m.cursor > 0 {
			m.cursor--
		}

	case key.Matches(msg, m.keys.Down):
		if m.cursor < len(m.seq)-1 {
			m.cursor++
		}

	case key.Matches(msg, m.keys.MoveUp):
		m.moveSelected(-1)

	case key.Matches(msg, m.keys.MoveDown):
		m.moveSelected(1)

	case key.Matches(msg, m.keys.Remove):
		m.removeSelected()

	case key.Matches(msg, m.keys.Create):
		return m, m.createRow()
	}
	return m, nil
}

// moveSelected emits a move of the selected row by delta positions.
func (m *Model) moveSelected(delta int) {
	if len(m.seq) == 0 {
		return
	}
	target := m.cursor + delta
	if target < 0 || target >= len(m.seq) {
		return
	}
	row := m.seq[m.cursor]
	m.gestures.Move(m.container, gesture.Moved{
		Element: gesture.Element{
			Identifier: row.Identifier,
			EntityID:   row.EntityID,
			RowIndex:   target + m.leading,
		},
	})
	m.reload()
	if i := m.seq.IndexOf(row.Identifier); i >= 0 {
		m.cursor = i
	}
	m.setStatus(statusInfo, "moved "+label(row))
}

func (m *Model) removeSelected() {
	if len(m.seq) == 0 {
		return
	}
	row := m.seq[m.cursor]
	m.gestures.Remove(m.container, gesture.Removed{
		Element: gesture.Element{Identifier: row.Identifier, EntityID: row.EntityID},
	})
	m.reload()
	m.setStatus(statusInfo, "removed "+label(row))
}

func (m *Model) createRow() tea.Cmd {
	if m.creations == nil {
		m.setStatus(statusWarn, "inline creation is not enabled")
		return nil
	}
	identifier := reorder.IdentifierPrefix + "new-" + m.newID()
	m.creations.Publish(reorder.Created{Identifier: identifier})
	m.setStatus(statusInfo, "created new row")
	return tea.Tick(redrawDelay, func(time.Time) tea.Msg { return RefreshMsg{} })
}

func (m *Model) reload() {
	if m.view == nil {
		m.seq = nil
		return
	}
	m.seq = m.view.Snapshot()
	m.cursor = min(m.cursor, max(len(m.seq)-1, 0))
}

func (m *Model) setStatus(level statusLevel, text string) {
	m.level = level
	m.status = text
}

// Cursor returns the selected row index.
func (m Model) Cursor() int {
	return m.cursor
}

// Status returns the footer message.
func (m Model) Status() string {
	return m.status
}

func label(d rows.Descriptor) string {
	if d.Persisted() {
		return "#" + d.EntityID
	}
	return "new row"
}

// View implements tea.Model.
func (m Model) View() string {
	if m.quit {
		return ""
	}

	var b strings.Builder
	b.WriteString(titleStyle.Render(m.title))
	b.WriteString("\n\n")
	b.WriteString(headerStyle.Render(fmt.Sprintf("%-4s %s", "#", "Work package")))
	b.WriteString("\n")

	if len(m.seq) == 0 {
		b.WriteString(mutedStyle.Render(" no rows"))
		b.WriteString("\n")
	}
	for i, d := range m.seq {
		marker := "  "
		style := rowStyle
		if i == m.cursor {
			marker = "> "
			style = selectedStyle
		}
		text := fmt.Sprintf("%s%-4d %s", marker, i+1, d.Identifier)
		if !d.Persisted() {
			text = fmt.Sprintf("%s%-4d %s", marker, i+1, transientText.Render("new row"))
		}
		if d.Hidden {
			text += mutedStyle.Render(" (hidden)")
		}
		b.WriteString(m.fit(style.Render(text)))
		b.WriteString("\n")
	}

	b.WriteString("\n")
	b.WriteString(m.renderStatus())
	b.WriteString("\n")
	b.WriteString(m.help.View(m.keys))
	return b.String()
}

// fit truncates a styled line to the terminal width.
func (m Model) fit(s string) string {
	if m.width <= 3 || lipgloss.Width(s) <= m.width {
		return s
	}
	return ansi.Truncate(s, m.width, "...")
}

func (m Model) renderStatus() string {
	var stats publish.Stats
	if m.view != nil {
		stats = m.view.Stats()
	}
	counters := mutedStyle.Render(fmt.Sprintf("  sent %d · failed %d · skipped %d", stats.Sent, stats.Failed, stats.Skipped))

	switch m.level {
	case statusOK:
		return okStyle.Render(m.status) + counters
	case statusWarn:
		return warnStyle.Render(m.status) + counters
	case statusError:
		return errorStyle.Render(m.status) + counters
	default:
		return m.status + counters
	}
}
