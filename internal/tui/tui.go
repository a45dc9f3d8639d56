// Package tui provides an optional live-updating terminal view of a
// Cord run's coordination tree: a single scrollable tree that polls the
// store on a fixed tick and quits once the run has terminated.
package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/kimjune01/cord/internal/store"
	"github.com/kimjune01/cord/pkg/cordmodel"
)

var (
	headerStyle = lipgloss.NewStyle().Bold(true).Padding(0, 1)
	footerStyle = lipgloss.NewStyle().Faint(true).Padding(0, 1)

	statusColors = map[cordmodel.Status]lipgloss.Color{
		cordmodel.StatusPending:   lipgloss.Color("8"),
		cordmodel.StatusActive:    lipgloss.Color("4"),
		cordmodel.StatusComplete:  lipgloss.Color("2"),
		cordmodel.StatusFailed:    lipgloss.Color("1"),
		cordmodel.StatusCancelled: lipgloss.Color("3"),
		cordmodel.StatusPaused:    lipgloss.Color("6"),
	}
)

// tickMsg triggers a re-read of the store snapshot.
type tickMsg time.Time

// Model is the bubbletea model driving the --tui live view.
type Model struct {
	store    *store.Store
	period   time.Duration
	viewport viewport.Model
	ready    bool
	err      error
}

// New constructs a Model polling st's snapshot every period.
func New(st *store.Store, period time.Duration) Model {
	return Model{store: st, period: period}
}

func (m Model) Init() tea.Cmd {
	return tick(m.period)
}

func tick(period time.Duration) tea.Cmd {
	return tea.Tick(period, func(t time.Time) tea.Msg { return tickMsg(t) })
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		if !m.ready {
			m.viewport = viewport.New(msg.Width, msg.Height-2)
			m.ready = true
		} else {
			m.viewport.Width = msg.Width
			m.viewport.Height = msg.Height - 2
		}
		return m, nil

	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			return m, tea.Quit
		}
		var cmd tea.Cmd
		m.viewport, cmd = m.viewport.Update(msg)
		return m, cmd

	case tickMsg:
		tree, err := m.store.Snapshot()
		if err != nil {
			m.err = err
			return m, tick(m.period)
		}
		terminated, _ := m.store.Terminated()
		if m.ready {
			m.viewport.SetContent(renderTree(tree))
		}
		if terminated {
			return m, tea.Quit
		}
		return m, tick(m.period)
	}
	return m, nil
}

func (m Model) View() string {
	if !m.ready {
		return "loading cord run...\n"
	}
	header := headerStyle.Render("cord run")
	footer := footerStyle.Render("q to quit")
	if m.err != nil {
		footer = footerStyle.Render(fmt.Sprintf("last read error: %v", m.err))
	}
	return fmt.Sprintf("%s\n%s\n%s", header, m.viewport.View(), footer)
}

func renderTree(tree *cordmodel.Tree) string {
	var b strings.Builder
	renderNode(&b, tree, 0)
	return b.String()
}

func renderNode(b *strings.Builder, n *cordmodel.Tree, depth int) {
	style := lipgloss.NewStyle().Foreground(statusColors[n.Status])
	indent := strings.Repeat("  ", depth)
	fmt.Fprintf(b, "%s%s %s\n", indent, style.Render(fmt.Sprintf("%s [%s]", cordmodel.RenderID(n.ID), n.Status)), n.Goal)
	for _, c := range n.Children {
		renderNode(b, c, depth+1)
	}
}
