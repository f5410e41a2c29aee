package stats

import (
	"strings"

	"github.com/mattn/go-runewidth"
)

// Column describes one column of a plain-text table.
type Column struct {
	Title string
	Right bool
	// Max caps the column width; longer cells end in an ellipsis. Zero means no cap.
	Max int
}

const ellipsis = "…"

// Table lays out rows under columns separated by single spaces.
type Table struct {
	Columns []Column
	Rows    [][]string
}

// Lines returns the header followed by one line per row. Cells beyond the
// declared columns are dropped.
func (t Table) Lines() []string {
	if len(t.Columns) == 0 {
		return nil
	}
	widths := make([]int, len(t.Columns))
	for i, c := range t.Columns {
		widths[i] = runewidth.StringWidth(c.Title)
	}
	cells := make([][]string, len(t.Rows))
	for r, row := range t.Rows {
		cells[r] = make([]string, len(t.Columns))
		for i, c := range t.Columns {
			if i >= len(row) {
				continue
			}
			cell := row[i]
			if c.Max > 0 && runewidth.StringWidth(cell) > c.Max {
				cell = runewidth.Truncate(cell, c.Max, ellipsis)
			}
			cells[r][i] = cell
			if w := runewidth.StringWidth(cell); w > widths[i] {
				widths[i] = w
			}
		}
	}

	lines := make([]string, 0, len(cells)+1)
	header := make([]string, len(t.Columns))
	for i, c := range t.Columns {
		header[i] = c.Title
	}
	lines = append(lines, t.line(header, widths))
	for _, row := range cells {
		lines = append(lines, t.line(row, widths))
	}
	return lines
}

func (t Table) line(cells []string, widths []int) string {
	var b strings.Builder
	for i, cell := range cells {
		if i > 0 {
			b.WriteByte(' ')
		}
		pad := strings.Repeat(" ", widths[i]-runewidth.StringWidth(cell))
		if t.Columns[i].Right {
			b.WriteString(pad + cell)
		} else if i < len(cells)-1 {
			b.WriteString(cell + pad)
		} else {
			b.WriteString(cell)
		}
	}
	return b.String()
}
