// Package model defines shared data structures.
package model

import "time"

// TestType identifies how an attempt ends.
type TestType string

const (
	// TestTimed ends when the countdown reaches zero.
	TestTimed TestType = "timed"
	// TestWords ends when the whole fixed text has been typed.
	TestWords TestType = "words"
)

// Valid reports whether t is a known test type.
func (t TestType) Valid() bool {
	return t == TestTimed || t == TestWords
}

// Supported timed durations in seconds.
const (
	Duration30 = 30
	Duration60 = 60
)

// DurationFilter scopes leaderboards and profile stats to a test duration.
// Zero means all durations.
type DurationFilter int

const (
	// FilterAll disables duration filtering.
	FilterAll DurationFilter = 0
	// Filter30 keeps 30 second results.
	Filter30 DurationFilter = Duration30
	// Filter60 keeps 60 second results.
	Filter60 DurationFilter = Duration60
)

// String returns the label used in the UI.
func (f DurationFilter) String() string {
	switch f {
	case Filter30:
		return "30s"
	case Filter60:
		return "60s"
	default:
		return "all"
	}
}

// Next cycles 30 -> 60 -> all -> 30.
func (f DurationFilter) Next() DurationFilter {
	switch f {
	case Filter30:
		return Filter60
	case Filter60:
		return FilterAll
	default:
		return Filter30
	}
}

// TypingResult is one completed test attempt.
type TypingResult struct {
	ID                string    `json:"id,omitempty"`
	UserID            string    `json:"user_id"`
	WPM               int       `json:"wpm"`
	Accuracy          float64   `json:"accuracy"`
	TestDuration      *int      `json:"test_duration,omitempty"`
	CharactersTyped   int       `json:"characters_typed"`
	CorrectCharacters int       `json:"correct_characters"`
	WordsTyped        int       `json:"words_typed"`
	TestType          TestType  `json:"test_type"`
	CreatedAt         time.Time `json:"created_at,omitempty"`
}

// Duration returns the test duration or 0 when unset.
func (r TypingResult) Duration() int {
	if r.TestDuration == nil {
		return 0
	}
	return *r.TestDuration
}

// UserProfile aggregates statistics for a session identifier.
type UserProfile struct {
	ID             string    `json:"id"`
	DisplayName    *string   `json:"display_name"`
	TotalTests     int       `json:"total_tests"`
	BestWPM        float64   `json:"best_wpm"`
	AverageWPM     float64   `json:"average_wpm"`
	TotalTimeTyped int       `json:"total_time_typed"`
	TotalTests30s  int       `json:"total_tests_30s"`
	BestWPM30s     float64   `json:"best_wpm_30s"`
	AverageWPM30s  float64   `json:"average_wpm_30s"`
	TotalTime30s   int       `json:"total_time_30s"`
	TotalTests60s  int       `json:"total_tests_60s"`
	BestWPM60s     float64   `json:"best_wpm_60s"`
	AverageWPM60s  float64   `json:"average_wpm_60s"`
	TotalTime60s   int       `json:"total_time_60s"`
	CreatedAt      time.Time `json:"created_at,omitempty"`
	UpdatedAt      time.Time `json:"updated_at,omitempty"`
}

// ScopeStats holds the counters for one duration scope.
type ScopeStats struct {
	TotalTests int
	BestWPM    float64
	AverageWPM float64
	TotalTime  int
}

// Scope returns the counters for the given duration filter.
func (p UserProfile) Scope(f DurationFilter) ScopeStats {
	switch f {
	case Filter30:
		return ScopeStats{TotalTests: p.TotalTests30s, BestWPM: p.BestWPM30s, AverageWPM: p.AverageWPM30s, TotalTime: p.TotalTime30s}
	case Filter60:
		return ScopeStats{TotalTests: p.TotalTests60s, BestWPM: p.BestWPM60s, AverageWPM: p.AverageWPM60s, TotalTime: p.TotalTime60s}
	default:
		return ScopeStats{TotalTests: p.TotalTests, BestWPM: p.BestWPM, AverageWPM: p.AverageWPM, TotalTime: p.TotalTimeTyped}
	}
}

// Name returns the display name or an empty string.
func (p UserProfile) Name() string {
	if p.DisplayName == nil {
		return ""
	}
	return *p.DisplayName
}

// AnonymousName is shown when a leaderboard entry has no display name.
const AnonymousName = "Anonymous User"

// LeaderboardEntry is a result joined with the submitter's display name.
type LeaderboardEntry struct {
	TypingResult
	DisplayName *string `json:"display_name"`
}

// Label returns the display name or AnonymousName.
func (e LeaderboardEntry) Label() string {
	if e.DisplayName == nil || *e.DisplayName == "" {
		return AnonymousName
	}
	return *e.DisplayName
}

// Config defines practice settings.
type Config struct {
	Mode         TestType
	Duration     int
	Words        int
	WordListPath string
}
