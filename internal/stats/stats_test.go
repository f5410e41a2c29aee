package stats

import "testing"

func TestWPM(t *testing.T) {
	cases := []struct {
		correct int
		elapsed float64
		want    int
	}{
		{correct: 10, elapsed: 0, want: 0},
		{correct: 10, elapsed: 30, want: 4},
		{correct: 250, elapsed: 60, want: 50},
		{correct: 7, elapsed: 1, want: 84},
		{correct: 0, elapsed: 12, want: 0},
	}
	for _, tc := range cases {
		if got := WPM(tc.correct, tc.elapsed); got != tc.want {
			t.Fatalf("WPM(%d, %v) = %d, want %d", tc.correct, tc.elapsed, got, tc.want)
		}
	}
}

func TestAccuracy(t *testing.T) {
	if got := Accuracy(10, 10); got != 100 {
		t.Fatalf("expected 100, got %v", got)
	}
	if got := Accuracy(2, 3); got != 66.67 {
		t.Fatalf("expected 66.67, got %v", got)
	}
	if got := Accuracy(0, 0); got != 0 {
		t.Fatalf("expected 0 for empty attempt, got %v", got)
	}
	if got := Accuracy(5, 4); got != 100 {
		t.Fatalf("expected clamp to 100, got %v", got)
	}
}

func TestWordsTypedAndFormat(t *testing.T) {
	if got := WordsTyped(14); got != 2 {
		t.Fatalf("expected 2 words, got %d", got)
	}
	if got := FormatSeconds(45); got != "45s" {
		t.Fatalf("unexpected %q", got)
	}
	if got := FormatSeconds(125); got != "2m 5s" {
		t.Fatalf("unexpected %q", got)
	}
}

func TestSparkline(t *testing.T) {
	if got := Sparkline([]float64{1, 1, 1}); got != "+++" {
		t.Fatalf("unexpected flat sparkline %q", got)
	}
	if got := Sparkline([]float64{0, 10}); got != " @" {
		t.Fatalf("unexpected sparkline %q", got)
	}
}

func TestMovingAverage(t *testing.T) {
	got := MovingAverage([]float64{2, 4, 6, 8}, 2)
	want := []float64{2, 3, 5, 7}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("index %d: got %v want %v", i, got[i], want[i])
		}
	}
}
