// Package window wraps practice text into lines and tracks the visible slice of them.
package window

import (
	"math"

	"github.com/mattn/go-runewidth"
)

// DefaultLines is the number of visible lines.
const DefaultLines = 3

// CharsPerLine converts a container width into a per-line character budget.
func CharsPerLine(width int, avgCharWidth float64) int {
	if width <= 0 {
		return 1
	}
	if avgCharWidth <= 0 {
		avgCharWidth = 1
	}
	n := int(math.Floor(float64(width) / avgCharWidth))
	if n < 1 {
		return 1
	}
	return n
}

// Line is the half-open rune range [Start, End) of one wrapped line.
// End includes the space that separates it from the next line.
type Line struct {
	Start int
	End   int
}

// Layout is text wrapped to a budget with an offset to line index map.
type Layout struct {
	Lines  []Line
	lineOf []int
}

// Wrap greedily packs words onto lines until the next word would exceed budget.
// Words wider than budget are split.
func Wrap(text []rune, budget int) Layout {
	if budget < 1 {
		budget = 1
	}
	l := Layout{lineOf: make([]int, len(text)+1)}
	if len(text) == 0 {
		l.Lines = []Line{{}}
		return l
	}

	start, width := 0, 0
	flush := func(end int) {
		for i := start; i < end; i++ {
			l.lineOf[i] = len(l.Lines)
		}
		l.Lines = append(l.Lines, Line{Start: start, End: end})
		start, width = end, 0
	}

	for i := 0; i < len(text); {
		if text[i] == ' ' {
			// Trailing spaces stay on the line they end.
			width += runewidth.RuneWidth(' ')
			i++
			continue
		}
		j := i
		wordWidth := 0
		for j < len(text) && text[j] != ' ' {
			wordWidth += runewidth.RuneWidth(text[j])
			j++
		}
		if width > 0 && width+wordWidth > budget {
			flush(i)
		}
		if wordWidth <= budget-width {
			width += wordWidth
			i = j
			continue
		}
		// Split an oversized word at the budget.
		for i < j {
			w := runewidth.RuneWidth(text[i])
			if width > 0 && width+w > budget {
				flush(i)
			}
			width += w
			i++
		}
	}
	flush(len(text))
	l.lineOf[len(text)] = len(l.Lines) - 1
	return l
}

// LineOf returns the line index holding offset. Offsets past the end map to the last line.
func (l Layout) LineOf(offset int) int {
	if offset <= 0 || len(l.lineOf) == 0 {
		return 0
	}
	if offset >= len(l.lineOf) {
		offset = len(l.lineOf) - 1
	}
	return l.lineOf[offset]
}

// View is the visible part of a layout.
type View struct {
	Lines      []Line
	First      int
	CursorLine int
}

// Window scrolls a fixed number of lines forward as the cursor advances.
// It never scrolls backward unless reset or the budget changes.
type Window struct {
	size   int
	start  int
	budget int
}

// New returns a Window showing size lines.
func New(size int) *Window {
	if size < 2 {
		size = 2
	}
	return &Window{size: size}
}

// Size returns the number of visible lines.
func (w *Window) Size() int { return w.size }

// Start returns the first visible line index.
func (w *Window) Start() int { return w.start }

// Reset scrolls back to the first line.
func (w *Window) Reset() {
	w.start = 0
	w.budget = 0
}

// Follow advances the window so cursorLine is within its last two lines
// once it reaches past the second-to-last visible line.
func (w *Window) Follow(cursorLine int) int {
	if limit := w.start + w.size - 2; cursorLine > limit {
		w.start = cursorLine - (w.size - 2)
	}
	return w.start
}

// Update wraps text to budget and returns the window around cursor.
func (w *Window) Update(text []rune, budget, cursor int) View {
	layout := Wrap(text, budget)
	line := layout.LineOf(cursor)
	if budget != w.budget {
		// Line indexes are meaningless across budgets.
		w.budget = budget
		w.start = 0
	}
	w.Follow(line)

	end := w.start + w.size
	if end > len(layout.Lines) {
		end = len(layout.Lines)
	}
	v := View{First: w.start, CursorLine: line}
	if w.start < end {
		v.Lines = layout.Lines[w.start:end]
	}
	return v
}
