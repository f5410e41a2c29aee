package statsui

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/table"
	"github.com/charmbracelet/lipgloss"

	"github.com/verte-zerg/typeme/internal/model"
	"github.com/verte-zerg/typeme/internal/stats"
	"github.com/verte-zerg/typeme/internal/viewmodel"
)

func renderOverview(snap viewmodel.Snapshot, width int) string {
	if snap.Profile == nil {
		return "No results yet. Finish a timed test to start your profile."
	}
	scope := snap.Stats()
	cards := []string{
		metricCard("Tests", fmt.Sprintf("%d", scope.TotalTests)),
		metricCard("Best WPM", fmt.Sprintf("%.0f", scope.BestWPM)),
		metricCard("Avg WPM", fmt.Sprintf("%.1f", scope.AverageWPM)),
		metricCard("Time Typed", stats.FormatSeconds(scope.TotalTime)),
	}
	title := cardTitleStyle.Render("Scope: " + snap.Filter.String())
	var grid string
	if width < 80 {
		grid = strings.Join(cards, "\n")
	} else {
		grid = lipgloss.JoinHorizontal(lipgloss.Top, cards...)
	}
	out := title + "\n" + grid
	if trend := renderTrend(snap.Results); trend != "" {
		out += "\n\n" + trend
	}
	return out
}

func metricCard(label, value string) string {
	content := fmt.Sprintf("%s\n%s", cardTitleStyle.Render(label), cardValueStyle.Render(value))
	return cardStyle.Render(content)
}

func renderTrend(results []model.TypingResult) string {
	if len(results) < 2 {
		return ""
	}
	wpms := make([]float64, len(results))
	for i, r := range results {
		wpms[len(results)-1-i] = float64(r.WPM)
	}
	smoothed := stats.MovingAverage(wpms, 3)
	return headerStyle.Render("Recent WPM ") + stats.Sparkline(smoothed)
}

func renderHistory(results []model.TypingResult) string {
	var buf bytes.Buffer
	if err := stats.RenderResults(&buf, results); err != nil {
		return fmt.Sprintf("Failed to render results: %v", err)
	}
	return strings.TrimRight(buf.String(), "\n")
}

func boardColumns() []table.Column {
	return []table.Column{
		{Title: "#", Width: 4},
		{Title: "Name", Width: 30},
		{Title: "WPM", Width: 5},
		{Title: "Accuracy", Width: 9},
		{Title: "Mode", Width: 6},
	}
}

func boardRows(entries []model.LeaderboardEntry, offset int) []table.Row {
	rows := make([]table.Row, 0, len(entries))
	for _, r := range stats.LeaderboardRows(entries, offset) {
		rows = append(rows, table.Row(r))
	}
	return rows
}

func buildBoardTable(entries []model.LeaderboardEntry, offset, width, height int) table.Model {
	t := table.New(
		table.WithColumns(boardColumns()),
		table.WithRows(boardRows(entries, offset)),
		table.WithFocused(false),
	)
	t.SetStyles(boardStyles())
	if width > 0 {
		t.SetWidth(width)
	}
	t.SetHeight(maxInt(1, height))
	return t
}

func (m *Model) applyBoard(width, height int) {
	rows := boardRows(m.snap.Entries, 0)
	cursor := m.board.Cursor()
	m.board.SetRows(rows)
	if len(rows) > 0 {
		m.board.SetCursor(minInt(maxInt(cursor, 0), len(rows)-1))
	}
	m.layout.rowCount = len(rows)
	m.setBoardSize(width, height)
}

func (m *Model) setBoardSize(width, height int) {
	// The header row and the end-of-list marker sit outside the table viewport.
	viewportHeight := maxInt(1, height-2)
	if m.layout.width == width && m.layout.height == viewportHeight {
		return
	}
	m.layout.width = width
	m.layout.height = viewportHeight
	m.board.SetWidth(width)
	m.board.SetHeight(viewportHeight)
}

func boardStyles() table.Styles {
	styles := table.DefaultStyles()
	styles.Header = styles.Header.
		Border(lipgloss.NormalBorder(), false, false, true, false).
		BorderForeground(lipgloss.Color("#4A4A4A")).
		Foreground(lipgloss.Color("#C0C0C0")).
		Bold(true).
		Padding(0, 1).
		PaddingLeft(0)
	styles.Cell = styles.Cell.
		Padding(0, 1).
		PaddingLeft(0)
	styles.Selected = styles.Cell.
		Foreground(lipgloss.Color("#F0F0F0")).
		Bold(true)
	return styles
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}

func minInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}

func modalWidth(width int) int {
	return maxInt(40, minInt(width-4, 80))
}

func modalInnerWidth(width int) int {
	w := modalWidth(width)
	w -= 6 // 2 border + 4 padding
	if w < 10 {
		return 10
	}
	return w
}

func padLines(s string, width int) string {
	if width <= 0 || s == "" {
		return s
	}
	lines := strings.Split(s, "\n")
	for i, line := range lines {
		lines[i] = padLine(line, width)
	}
	return strings.Join(lines, "\n")
}

func padLine(line string, width int) string {
	lineWidth := lipgloss.Width(line)
	if lineWidth < width {
		return line + strings.Repeat(" ", width-lineWidth)
	}
	return line
}

func fitLines(s string, width, height int) string {
	if width <= 0 || height <= 0 {
		return s
	}
	lines := strings.Split(s, "\n")
	for i, line := range lines {
		lines[i] = padLine(line, width)
	}
	if len(lines) > height {
		lines = lines[:height]
	}
	for len(lines) < height {
		lines = append(lines, strings.Repeat(" ", width))
	}
	return strings.Join(lines, "\n")
}

func truncateLine(s string, width int) string {
	if width <= 0 {
		return s
	}
	runes := []rune(s)
	if len(runes) <= width {
		return s
	}
	if width <= 3 {
		return string(runes[:width])
	}
	return string(runes[:width-3]) + "..."
}
