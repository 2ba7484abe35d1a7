package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

func (m *Model) resize() {
	if m.width <= 0 || m.height <= 0 {
		return
	}
	left, right := m.paneWidths()

	bodyHeight := m.height - 2
	if bodyHeight < 8 {
		bodyHeight = 8
	}

	m.list.SetSize(left-2, bodyHeight-2)
	m.viewport.Width = right - 2
	m.viewport.Height = bodyHeight - 2
	m.help.Width = m.width
	inputWidth := m.width - 12
	if inputWidth < 10 {
		inputWidth = 10
	}
	m.command.Width = inputWidth
	m.note.Width = inputWidth
	m.path.Width = inputWidth
	m.search.Width = inputWidth
}

func (m Model) View() string {
	if m.width == 0 || m.height == 0 {
		return "Starting..."
	}

	status := m.statusLine()
	if m.alert != "" {
		box := alertStyle.Width(min(60, m.width-4)).Render(m.alert + "\n\n" + dimStyle.Render("press any key"))
		body := lipgloss.Place(m.width, m.height-2, lipgloss.Center, lipgloss.Center, box)
		return lipgloss.JoinVertical(lipgloss.Left, status, body, "")
	}

	left, right := m.paneWidths()
	leftPane := panelStyle(m.focusOnList).Width(left).Height(m.height - 2).Render(m.list.View())
	rightPane := panelStyle(!m.focusOnList).Width(right).Height(m.height - 2).Render(m.viewport.View())
	body := lipgloss.JoinHorizontal(lipgloss.Top, leftPane, rightPane)

	bottom := m.help.View(m.keys)
	if in := m.inputView(); in != "" {
		bottom = in + "  " + dimStyle.Render("enter: confirm  esc: cancel")
	} else if m.searchQuery != "" {
		bottom = "search: " + m.searchQuery + "  " + bottom
	}

	return lipgloss.JoinVertical(lipgloss.Left,
		status,
		body,
		bottom,
	)
}

func (m Model) inputView() string {
	switch m.mode {
	case modeCommand:
		return m.command.View()
	case modeNote:
		return m.note.View()
	case modeOpen:
		return m.path.View()
	case modeSearch:
		return m.search.View()
	}
	return ""
}

// searchEngine names what answers queries: the FTS5 index, the index's
// LIKE fallback, or the in-memory row filter.
func (m Model) searchEngine() string {
	switch {
	case m.indexer == nil:
		return "memory"
	case m.indexer.FTSEnabled():
		return "fts"
	default:
		return "like"
	}
}

func (m Model) statusLine() string {
	status := ""
	if m.store != nil {
		status = fmt.Sprintf("log=%s  rows=%d", logName(m.store.Path()), len(m.rows))
	}
	if m.busy() {
		status = m.spinner.View() + " " + status
	}
	if m.running > 0 {
		status += fmt.Sprintf("  [running %d]", m.running)
	}
	if m.summarizing {
		status += "  [summarizing]"
	}
	if m.selectedID != "" {
		if r, ok := m.byID[m.selectedID]; ok {
			status += "  at=" + r.Timestamp
		}
	}
	status += "  [" + strings.ToLower(m.focus.String()) + "]"
	if m.searchQuery != "" || m.mode == modeSearch {
		status += "  [search " + m.searchEngine() + "]"
		if strings.TrimSpace(m.searchQuery) != "" {
			status += fmt.Sprintf("  [hits %d]", len(m.visibleRows()))
			if m.matchCount > 0 {
				cur := m.matchIndex + 1
				if cur < 1 {
					cur = 1
				}
				status += fmt.Sprintf("  [match %d/%d]", cur, m.matchCount)
			}
		}
	}
	if m.rendering {
		status += "  [rendering]"
	}
	if strings.TrimSpace(m.status) != "" {
		status += "  " + shorten(m.status, 80)
	}
	if m.err != nil {
		status += "  err=" + shorten(m.err.Error(), 60)
	}
	return statusStyle.Render(status)
}

func (m *Model) paneWidths() (int, int) {
	left := m.width / 3
	if left < 32 {
		left = 32
	}
	if left > m.width-32 {
		left = m.width - 32
	}
	if left < 20 {
		left = 20
	}
	right := m.width - left - 1
	if right < 20 {
		right = 20
	}
	return left, right
}

var (
	statusStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("252")).
			Background(lipgloss.Color("24")).
			Padding(0, 1)
	searchMatchStyle = lipgloss.NewStyle().
				Bold(true).
				Foreground(lipgloss.Color("16")).
				Background(lipgloss.Color("220"))
	alertStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder(), true).
			BorderForeground(lipgloss.Color("203")).
			Padding(1, 2)
	dimStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("244"))
)

func panelStyle(active bool) lipgloss.Style {
	border := lipgloss.NormalBorder()
	if active {
		return lipgloss.NewStyle().
			Border(border, true).
			BorderForeground(lipgloss.Color("39")).
			Padding(0, 1)
	}
	return lipgloss.NewStyle().
		Border(border, true).
		BorderForeground(lipgloss.Color("240")).
		Padding(0, 1)
}
