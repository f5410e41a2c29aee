// Package stats contains typing metric calculations and text rendering helpers.
package stats

import (
	"fmt"
	"io"
	"strconv"

	"github.com/verte-zerg/typeme/internal/model"
)

const timeFormat = "2006-01-02 15:04"

// NameWidth caps display names in plain-text leaderboards.
const NameWidth = 24

var resultColumns = []Column{
	{Title: "Date"},
	{Title: "Mode"},
	{Title: "WPM", Right: true},
	{Title: "Accuracy", Right: true},
	{Title: "Correct", Right: true},
}

var leaderboardColumns = []Column{
	{Title: "#", Right: true},
	{Title: "Name", Max: NameWidth},
	{Title: "WPM", Right: true},
	{Title: "Accuracy", Right: true},
	{Title: "Mode"},
}

// ResultRows formats results as table rows: date, mode, WPM, accuracy, chars.
func ResultRows(results []model.TypingResult) [][]string {
	rows := make([][]string, 0, len(results))
	for _, r := range results {
		when := "-"
		if !r.CreatedAt.IsZero() {
			when = r.CreatedAt.Local().Format(timeFormat)
		}
		rows = append(rows, []string{
			when,
			ModeLabel(r),
			strconv.Itoa(r.WPM),
			fmt.Sprintf("%.2f%%", r.Accuracy),
			fmt.Sprintf("%d/%d", r.CorrectCharacters, r.CharactersTyped),
		})
	}
	return rows
}

// ModeLabel renders "30s", "60s" or "words". Timed results whose duration
// is unknown render as "timed".
func ModeLabel(r model.TypingResult) string {
	if r.TestType == model.TestWords {
		return string(model.TestWords)
	}
	if r.TestDuration == nil {
		return string(model.TestTimed)
	}
	return fmt.Sprintf("%ds", *r.TestDuration)
}

// RenderResults prints recent results as an aligned table.
func RenderResults(w io.Writer, results []model.TypingResult) error {
	if len(results) == 0 {
		_, err := fmt.Fprintln(w, "No results yet.")
		return err
	}
	tbl := Table{Columns: resultColumns, Rows: ResultRows(results)}
	for _, line := range tbl.Lines() {
		if _, err := fmt.Fprintln(w, line); err != nil {
			return err
		}
	}
	wpms := make([]float64, len(results))
	for i, r := range results {
		// Oldest first so the sparkline reads left to right.
		wpms[len(results)-1-i] = float64(r.WPM)
	}
	if len(wpms) > 1 {
		if _, err := fmt.Fprintf(w, "\nTrend %s\n", Sparkline(wpms)); err != nil {
			return err
		}
	}
	return nil
}

// LeaderboardRows formats entries as rows: rank, name, WPM, accuracy, mode.
func LeaderboardRows(entries []model.LeaderboardEntry, offset int) [][]string {
	rows := make([][]string, 0, len(entries))
	for i, e := range entries {
		acc := "-"
		if e.CharactersTyped > 0 {
			acc = fmt.Sprintf("%.2f%%", e.Accuracy)
		}
		rows = append(rows, []string{
			strconv.Itoa(offset + i + 1),
			e.Label(),
			strconv.Itoa(e.WPM),
			acc,
			ModeLabel(e.TypingResult),
		})
	}
	return rows
}

// RenderLeaderboard prints one leaderboard page ranked from offset+1.
func RenderLeaderboard(w io.Writer, entries []model.LeaderboardEntry, offset int) error {
	if len(entries) == 0 {
		_, err := fmt.Fprintln(w, "No results yet.")
		return err
	}
	tbl := Table{Columns: leaderboardColumns, Rows: LeaderboardRows(entries, offset)}
	for _, line := range tbl.Lines() {
		if _, err := fmt.Fprintln(w, line); err != nil {
			return err
		}
	}
	return nil
}
