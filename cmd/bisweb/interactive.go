package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"golang.org/x/term"
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FAFAFA")).
			Background(lipgloss.Color("#7D56F4")).
			Padding(0, 1)

	selectedStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FAFAFA")).
			Background(lipgloss.Color("#7D56F4"))

	sizeStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#87CEEB"))

	detailStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("#666666")).
			Padding(0, 1)

	helpStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#666666"))
)

// detailHeight is the number of lines the detail pane shows.
const detailHeight = 6

type inspectModel struct {
	root     *treeNode
	filename string
	rows     []treeRow
	detail   viewport.Model
	selected int
}

func newInspectModel(filename string, root *treeNode) *inspectModel {
	m := &inspectModel{
		root:     root,
		filename: filename,
		rows:     visibleRows(root),
		detail:   viewport.New(72, detailHeight),
	}
	m.showDetail()
	return m
}

func (m *inspectModel) Init() tea.Cmd {
	return nil
}

func (m *inspectModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "q":
			return m, tea.Quit

		case "up", "k":
			if m.selected > 0 {
				m.selected--
				m.showDetail()
			}

		case "down", "j":
			if m.selected < len(m.rows)-1 {
				m.selected++
				m.showDetail()
			}

		case "enter", " ":
			n := m.rows[m.selected].node
			if len(n.children) > 0 {
				n.expanded = !n.expanded
				m.rows = visibleRows(m.root)
			}

		case "pgdown", "pgup":
			var cmd tea.Cmd
			m.detail, cmd = m.detail.Update(msg)
			return m, cmd
		}

	case tea.WindowSizeMsg:
		m.detail.Width = msg.Width - detailStyle.GetHorizontalFrameSize()
	}
	return m, nil
}

func (m *inspectModel) showDetail() {
	m.detail.SetContent(strings.Join(m.rows[m.selected].node.detail, "\n"))
	m.detail.GotoTop()
}

func (m *inspectModel) View() string {
	var b strings.Builder

	b.WriteString(titleStyle.Render("bisweb inspect"))
	b.WriteString(" ")
	b.WriteString(m.filename)
	b.WriteString("\n\n")

	for i, r := range m.rows {
		marker := " "
		if len(r.node.children) > 0 {
			marker = "▾"
			if !r.node.expanded {
				marker = "▸"
			}
		}
		line := strings.Repeat("  ", r.depth) + marker + " " + r.node.label
		if i == m.selected {
			b.WriteString(selectedStyle.Render(line))
		} else {
			b.WriteString(line)
		}
		b.WriteString(" ")
		b.WriteString(sizeStyle.Render(fmt.Sprintf("%d B", r.node.size)))
		b.WriteString("\n")
	}

	b.WriteString("\n")
	b.WriteString(detailStyle.Render(m.detail.View()))
	b.WriteString("\n")
	b.WriteString(helpStyle.Render("↑/↓ select • enter fold • pgup/pgdn scroll • q quit"))
	return b.String()
}

func isTerminal(f *os.File) bool {
	return term.IsTerminal(int(f.Fd())) //nolint:gosec // G115: file descriptor fits in int
}

func runInteractive(filename string, root *treeNode) error {
	p := tea.NewProgram(newInspectModel(filename, root), tea.WithAltScreen())
	_, err := p.Run()
	return err
}
