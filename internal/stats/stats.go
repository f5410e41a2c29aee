// Package stats contains typing metric calculations and text rendering helpers.
package stats

import (
	"fmt"
	"math"
	"strings"
)

const sparkChars = " .:-=+*#%@"

// CharsPerWord is the standard word length used for WPM.
const CharsPerWord = 5

// WPM returns round((correct/5) / minutes) for the elapsed seconds, or 0 when no time has elapsed.
func WPM(correct int, elapsedSeconds float64) int {
	if elapsedSeconds <= 0 || correct <= 0 {
		return 0
	}
	minutes := elapsedSeconds / 60.0
	return int(math.Round((float64(correct) / CharsPerWord) / minutes))
}

// Accuracy returns 100*correct/typed rounded to two decimals and clamped to [0,100].
func Accuracy(correct, typed int) float64 {
	if typed <= 0 {
		return 0
	}
	acc := math.Round(float64(correct)/float64(typed)*100*100) / 100
	return math.Max(0, math.Min(100, acc))
}

// WordsTyped returns floor(correct/5).
func WordsTyped(correct int) int {
	if correct <= 0 {
		return 0
	}
	return correct / CharsPerWord
}

// FormatSeconds renders a duration as "45s" or "2m 5s".
func FormatSeconds(seconds int) string {
	if seconds < 0 {
		seconds = 0
	}
	mins := seconds / 60
	secs := seconds % 60
	if mins > 0 {
		return fmt.Sprintf("%dm %ds", mins, secs)
	}
	return fmt.Sprintf("%ds", secs)
}

// MovingAverage computes a rolling mean over the provided window size.
func MovingAverage(values []float64, window int) []float64 {
	if window <= 1 || len(values) == 0 {
		out := make([]float64, len(values))
		copy(out, values)
		return out
	}
	out := make([]float64, len(values))
	var sum float64
	for i := 0; i < len(values); i++ {
		sum += values[i]
		if i >= window {
			sum -= values[i-window]
		}
		den := float64(i + 1)
		if i >= window {
			den = float64(window)
		}
		out[i] = sum / den
	}
	return out
}

// Sparkline renders a single-line ASCII sparkline for the values.
func Sparkline(values []float64) string {
	if len(values) == 0 {
		return ""
	}
	minVal, maxVal := values[0], values[0]
	for _, v := range values[1:] {
		minVal = math.Min(minVal, v)
		maxVal = math.Max(maxVal, v)
	}
	if math.Abs(maxVal-minVal) < 1e-9 {
		return strings.Repeat(string(sparkChars[len(sparkChars)/2]), len(values))
	}
	var b strings.Builder
	for _, v := range values {
		pos := (v - minVal) / (maxVal - minVal)
		idx := int(math.Round(pos * float64(len(sparkChars)-1)))
		if idx < 0 {
			idx = 0
		}
		if idx >= len(sparkChars) {
			idx = len(sparkChars) - 1
		}
		b.WriteByte(sparkChars[idx])
	}
	return b.String()
}
