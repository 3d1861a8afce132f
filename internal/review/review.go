// Package review is the terminal UI for accepting or rejecting the
// pending changes of a finished agent run.
package review

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"codeloom/internal/highlight"
	"codeloom/internal/overlay"
)

var (
	colorAccent  = lipgloss.Color("#06B6D4")
	colorSuccess = lipgloss.Color("#10B981")
	colorError   = lipgloss.Color("#EF4444")
	colorMuted   = lipgloss.Color("#9CA3AF")
	colorDim     = lipgloss.Color("#6B7280")
	colorFocus   = lipgloss.Color("#A78BFA")
)

// Model is the interactive review over a changeset. The file list sits
// on the left, the current change's diff on the right.
type Model struct {
	changes []overlay.PendingChange
	cursor  int

	viewport    viewport.Model
	highlighter *highlight.Highlighter
	focusOnList bool
	width       int
	height      int
	done        bool
}

// New creates a review model over the given changes. Every change
// starts out pending.
func New(changes []overlay.PendingChange) Model {
	vp := viewport.New(80, 20)
	vp.MouseWheelEnabled = true

	m := Model{
		changes:     changes,
		viewport:    vp,
		highlighter: highlight.New(""),
		focusOnList: true,
	}
	m.refreshViewport()
	return m
}

// Changes returns the changes with their review decisions applied.
func (m Model) Changes() []overlay.PendingChange { return m.changes }

// Done reports whether the user confirmed their decisions. False means
// the review was cancelled and nothing should be applied.
func (m Model) Done() bool { return m.done }

func (m *Model) setSize(width, height int) {
	if width < 40 {
		width = 80
	}
	if height < 12 {
		height = 24
	}
	m.width = width
	m.height = height
	m.viewport.Width = (width * 2 / 3) - 4
	m.viewport.Height = height - 9
}

func (m *Model) refreshViewport() {
	if m.cursor < 0 || m.cursor >= len(m.changes) {
		m.viewport.SetContent("")
		return
	}
	c := m.changes[m.cursor]
	if c.Action == overlay.ActionCreate {
		// New files have no old side, show the content highlighted
		// instead of an all-plus diff.
		m.viewport.SetContent(m.highlighter.File(c.NewContent, c.FilePath))
	} else {
		m.viewport.SetContent(renderDiff(c))
	}
	m.viewport.GotoTop()
}

func (m *Model) decide(status overlay.ChangeStatus) {
	if m.cursor < 0 || m.cursor >= len(m.changes) {
		return
	}
	m.changes[m.cursor].Status = status
	m.advanceToPending()
}

// advanceToPending moves the cursor to the next undecided change,
// wrapping around once.
func (m *Model) advanceToPending() {
	for i := m.cursor + 1; i < len(m.changes); i++ {
		if m.changes[i].Status == overlay.ChangePending {
			m.cursor = i
			m.refreshViewport()
			return
		}
	}
	for i := 0; i < m.cursor; i++ {
		if m.changes[i].Status == overlay.ChangePending {
			m.cursor = i
			m.refreshViewport()
			return
		}
	}
}

func (m *Model) decideAll(status overlay.ChangeStatus) {
	for i := range m.changes {
		m.changes[i].Status = status
	}
}

func (m Model) Init() tea.Cmd { return nil }

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd

	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "tab":
			m.focusOnList = !m.focusOnList
			return m, nil

		case "up", "k":
			if m.focusOnList {
				if m.cursor > 0 {
					m.cursor--
					m.refreshViewport()
				}
			} else {
				m.viewport, cmd = m.viewport.Update(tea.KeyMsg{Type: tea.KeyUp})
			}
			return m, cmd

		case "down", "j":
			if m.focusOnList {
				if m.cursor < len(m.changes)-1 {
					m.cursor++
					m.refreshViewport()
				}
			} else {
				m.viewport, cmd = m.viewport.Update(tea.KeyMsg{Type: tea.KeyDown})
			}
			return m, cmd

		case "y":
			m.decide(overlay.ChangeAccepted)
			return m, nil

		case "n":
			m.decide(overlay.ChangeRejected)
			return m, nil

		case "Y":
			m.decideAll(overlay.ChangeAccepted)
			m.done = true
			return m, tea.Quit

		case "N":
			m.decideAll(overlay.ChangeRejected)
			m.done = true
			return m, tea.Quit

		case "enter":
			m.done = true
			return m, tea.Quit

		case "esc", "q", "ctrl+c":
			m.decideAll(overlay.ChangeRejected)
			return m, tea.Quit

		case "g":
			if !m.focusOnList {
				m.viewport.GotoTop()
			}
			return m, nil

		case "G":
			if !m.focusOnList {
				m.viewport.GotoBottom()
			}
			return m, nil

		case "ctrl+d":
			if !m.focusOnList {
				m.viewport.HalfViewDown()
			}
			return m, nil

		case "ctrl+u":
			if !m.focusOnList {
				m.viewport.HalfViewUp()
			}
			return m, nil
		}

	case tea.MouseMsg:
		if !m.focusOnList {
			m.viewport, cmd = m.viewport.Update(msg)
		}
		return m, cmd

	case tea.WindowSizeMsg:
		m.setSize(msg.Width, msg.Height)
		return m, nil
	}

	return m, nil
}

func (m Model) View() string {
	if len(m.changes) == 0 {
		return lipgloss.NewStyle().Foreground(colorMuted).Render("No pending changes.\n")
	}

	var b strings.Builder

	bullet := lipgloss.NewStyle().Foreground(colorAccent).Bold(true)
	title := lipgloss.NewStyle().Bold(true)
	b.WriteString(bullet.Render("● ") + title.Render(fmt.Sprintf("Review changes (%d)", len(m.changes))))
	b.WriteString("\n\n")

	listWidth := m.width / 3
	if listWidth < 24 {
		listWidth = 24
	}

	listStyle := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(colorDim).
		Width(listWidth - 2)
	diffStyle := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(colorDim).
		Padding(0, 1)
	if m.focusOnList {
		listStyle = listStyle.BorderForeground(colorFocus)
	} else {
		diffStyle = diffStyle.BorderForeground(colorFocus)
	}

	var list strings.Builder
	for i, c := range m.changes {
		var icon string
		switch c.Status {
		case overlay.ChangeAccepted:
			icon = lipgloss.NewStyle().Foreground(colorSuccess).Render("✓")
		case overlay.ChangeRejected:
			icon = lipgloss.NewStyle().Foreground(colorError).Render("✗")
		default:
			icon = lipgloss.NewStyle().Foreground(colorMuted).Render("?")
		}

		label := fmt.Sprintf(" %s %s %s", icon, actionBadge(c.Action), c.FilePath)
		line := lipgloss.NewStyle()
		if i == m.cursor {
			line = line.Background(lipgloss.Color("#374151")).Bold(true)
		}
		list.WriteString(line.Render(label))
		list.WriteString("\n")
	}

	b.WriteString(lipgloss.JoinHorizontal(lipgloss.Top,
		listStyle.Render(list.String()), " ", diffStyle.Render(m.viewport.View())))
	b.WriteString("\n")

	accepted, rejected, pending := 0, 0, 0
	for _, c := range m.changes {
		switch c.Status {
		case overlay.ChangeAccepted:
			accepted++
		case overlay.ChangeRejected:
			rejected++
		default:
			pending++
		}
	}
	status := lipgloss.NewStyle().Foreground(colorMuted)
	b.WriteString(status.Render(fmt.Sprintf("accepted %d · rejected %d · pending %d", accepted, rejected, pending)))
	b.WriteString("\n")

	hint := lipgloss.NewStyle().Foreground(colorDim)
	b.WriteString(hint.Render("y/n decide · Y/N all · Enter confirm · Tab focus · j/k move · Esc cancel"))
	b.WriteString("\n")

	return b.String()
}

func actionBadge(a overlay.ChangeAction) string {
	switch a {
	case overlay.ActionCreate:
		return lipgloss.NewStyle().Foreground(colorSuccess).Render("[+]")
	case overlay.ActionDelete:
		return lipgloss.NewStyle().Foreground(colorError).Render("[-]")
	default:
		return lipgloss.NewStyle().Foreground(colorAccent).Render("[~]")
	}
}

// renderDiff renders the old→new diff of a change with a file header.
func renderDiff(c overlay.PendingChange) string {
	headerStyle := lipgloss.NewStyle().Foreground(colorAccent).Bold(true)
	addedStyle := lipgloss.NewStyle().Foreground(colorSuccess)
	removedStyle := lipgloss.NewStyle().Foreground(colorError)
	contextStyle := lipgloss.NewStyle().Foreground(colorMuted)

	var b strings.Builder
	b.WriteString(headerStyle.Render("--- " + c.FilePath))
	b.WriteString("\n")
	b.WriteString(headerStyle.Render("+++ " + c.FilePath))
	b.WriteString("\n")

	for _, line := range overlay.DiffLines(c.OldContent, c.NewContent) {
		switch line.Status {
		case overlay.LineAdded:
			b.WriteString(addedStyle.Render("+" + line.Text))
		case overlay.LineRemoved:
			b.WriteString(removedStyle.Render("-" + line.Text))
		default:
			b.WriteString(contextStyle.Render(" " + line.Text))
		}
		b.WriteString("\n")
	}
	return b.String()
}

// Run drives the review interactively and returns the decided changes.
// A cancelled review returns ok == false with every change rejected.
func Run(changes []overlay.PendingChange) ([]overlay.PendingChange, bool, error) {
	p := tea.NewProgram(New(changes), tea.WithAltScreen())
	final, err := p.Run()
	if err != nil {
		return nil, false, fmt.Errorf("review ui failed: %w", err)
	}
	m, ok := final.(Model)
	if !ok {
		return nil, false, fmt.Errorf("review ui returned unexpected model")
	}
	return m.Changes(), m.Done(), nil
}
