// Package session implements the typing attempt state machine and scoring.
package session

import (
	"strings"
	"time"

	"github.com/verte-zerg/typeme/internal/model"
	"github.com/verte-zerg/typeme/internal/stats"
)

// State of one practice attempt.
type State int

const (
	// Idle waits for the first keystroke.
	Idle State = iota
	// Running counts down and scores input.
	Running
	// Complete is terminal until Restart.
	Complete
)

func (s State) String() string {
	switch s {
	case Running:
		return "running"
	case Complete:
		return "complete"
	default:
		return "idle"
	}
}

// Lookahead is the minimum untyped text kept ahead of the cursor in timed mode.
const Lookahead = 20

// DefaultBatch is the number of words generated per text batch.
const DefaultBatch = 50

// Words produces practice words.
type Words interface {
	Generate(count int) []string
}

// Config selects the attempt kind.
type Config struct {
	Mode     model.TestType
	Duration int
	Batch    int
}

// Option configures an Engine.
type Option func(*Engine)

// WithClock replaces the system clock.
func WithClock(c Clock) Option {
	return func(e *Engine) { e.clock = c }
}

// OnComplete registers the callback that receives the finalized result.
func OnComplete(fn func(model.TypingResult)) Option {
	return func(e *Engine) { e.onComplete = fn }
}

// Engine owns the text buffer, input, counters and countdown of one attempt.
// It is not safe for concurrent use; the UI loop drives it.
type Engine struct {
	cfg        Config
	words      Words
	clock      Clock
	onComplete func(model.TypingResult)

	state     State
	target    []rune
	input     []rune
	correct   int
	remaining int
	elapsed   int
	wpm       int
	startedAt time.Time
	endedAt   time.Time

	attempt uint64
	ticker  Ticker
	stop    chan struct{}
}

// New returns an Idle engine with freshly generated text.
func New(cfg Config, words Words, opts ...Option) *Engine {
	if cfg.Mode == "" {
		cfg.Mode = model.TestTimed
	}
	if cfg.Duration != model.Duration60 {
		cfg.Duration = model.Duration30
	}
	if cfg.Batch <= 0 {
		cfg.Batch = DefaultBatch
	}
	e := &Engine{cfg: cfg, words: words, clock: SystemClock{}}
	for _, opt := range opts {
		opt(e)
	}
	e.Restart()
	return e
}

// State returns the current state.
func (e *Engine) State() State { return e.state }

// Mode returns the configured test type.
func (e *Engine) Mode() model.TestType { return e.cfg.Mode }

// Duration returns the configured countdown in seconds.
func (e *Engine) Duration() int { return e.cfg.Duration }

// Remaining returns the countdown value in seconds.
func (e *Engine) Remaining() int { return e.remaining }

// Elapsed returns whole seconds since the attempt started.
func (e *Engine) Elapsed() int { return e.elapsed }

// WPM returns the live words-per-minute value.
func (e *Engine) WPM() int { return e.wpm }

// Correct returns the number of input positions matching the text.
func (e *Engine) Correct() int { return e.correct }

// Typed returns the current input length.
func (e *Engine) Typed() int { return len(e.input) }

// Accuracy returns the live accuracy percentage.
func (e *Engine) Accuracy() float64 { return stats.Accuracy(e.correct, len(e.input)) }

// Target returns the practice text.
func (e *Engine) Target() []rune { return e.target }

// Input returns the typed text.
func (e *Engine) Input() []rune { return e.input }

// Attempt identifies the current attempt; it changes on every Restart.
func (e *Engine) Attempt() uint64 { return e.attempt }

// TickSource returns the running countdown's tick channel and a channel that
// is closed when the countdown is cancelled. Both are nil unless Running.
func (e *Engine) TickSource() (<-chan time.Time, <-chan struct{}) {
	if e.ticker == nil {
		return nil, nil
	}
	return e.ticker.C(), e.stop
}

// Restart regenerates the text, resets counters and the countdown, and returns to Idle.
func (e *Engine) Restart() {
	e.cancelTicker()
	e.attempt++
	e.state = Idle
	e.input = nil
	e.correct = 0
	e.elapsed = 0
	e.wpm = 0
	e.remaining = e.cfg.Duration
	e.startedAt = time.Time{}
	e.endedAt = time.Time{}
	e.target = []rune(e.generate())
}

// ToggleDuration switches between 30 and 60 seconds. It is a no-op while Running.
// From Complete it starts a fresh attempt with the new duration.
func (e *Engine) ToggleDuration() bool {
	return e.SetDuration(otherDuration(e.cfg.Duration))
}

// SetDuration sets the countdown length when not Running.
func (e *Engine) SetDuration(seconds int) bool {
	if e.state == Running || (seconds != model.Duration30 && seconds != model.Duration60) {
		return false
	}
	e.cfg.Duration = seconds
	if e.state == Complete {
		e.Restart()
		return true
	}
	e.remaining = seconds
	return true
}

// SetMode switches between timed and words mode when not Running.
func (e *Engine) SetMode(mode model.TestType) bool {
	if e.state == Running || !mode.Valid() {
		return false
	}
	e.cfg.Mode = mode
	e.Restart()
	return true
}

func otherDuration(d int) int {
	if d == model.Duration60 {
		return model.Duration30
	}
	return model.Duration60
}

func (e *Engine) generate() string {
	if e.words == nil {
		return ""
	}
	return strings.Join(e.words.Generate(e.cfg.Batch), " ")
}

// Type appends r to the input.
func (e *Engine) Type(r rune) {
	e.SetInput(string(append(append([]rune(nil), e.input...), r)))
}

// Backspace removes the last input rune.
func (e *Engine) Backspace() {
	if len(e.input) == 0 {
		return
	}
	e.SetInput(string(e.input[:len(e.input)-1]))
}

// SetInput replaces the input with value and rescores the changed positions.
func (e *Engine) SetInput(value string) {
	if e.state == Complete {
		return
	}
	next := []rune(value)
	if len(next) > len(e.target) {
		next = next[:len(e.target)]
	}
	if e.state == Idle {
		if len(next) == 0 {
			return
		}
		e.start()
	}

	prev := e.input
	common := commonPrefix(prev, next)
	for i := common; i < len(prev); i++ {
		if prev[i] == e.target[i] {
			e.correct--
		}
	}
	for i := common; i < len(next); i++ {
		if next[i] == e.target[i] {
			e.correct++
		}
	}
	e.input = next

	e.recomputeWPM()
	switch e.cfg.Mode {
	case model.TestWords:
		if len(e.input) == len(e.target) {
			e.complete()
		}
	default:
		e.extend()
	}
}

func commonPrefix(a, b []rune) int {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	for i := 0; i < n; i++ {
		if a[i] != b[i] {
			return i
		}
	}
	return n
}

func (e *Engine) extend() {
	if e.state != Running || len(e.target)-len(e.input) >= Lookahead {
		return
	}
	more := e.generate()
	if more == "" {
		return
	}
	e.target = append(e.target, ' ')
	e.target = append(e.target, []rune(more)...)
}

func (e *Engine) start() {
	e.state = Running
	e.startedAt = e.clock.Now()
	e.ticker = e.clock.NewTicker(time.Second)
	e.stop = make(chan struct{})
}

func (e *Engine) cancelTicker() {
	if e.ticker == nil {
		return
	}
	e.ticker.Stop()
	close(e.stop)
	e.ticker = nil
	e.stop = nil
}

// Tick advances the countdown by one second for the given attempt.
// Ticks for another attempt or outside Running are ignored.
// It reports whether this tick completed the attempt.
func (e *Engine) Tick(attempt uint64) bool {
	if attempt != e.attempt || e.state != Running {
		return false
	}
	e.elapsed++
	if e.cfg.Mode == model.TestWords {
		e.recomputeWPM()
		return false
	}
	if e.remaining > 0 {
		e.remaining--
	}
	if e.remaining == 0 {
		e.complete()
		return true
	}
	e.recomputeWPM()
	return false
}

func (e *Engine) elapsedSeconds() float64 {
	if e.cfg.Mode == model.TestWords {
		return float64(e.elapsed)
	}
	return float64(e.cfg.Duration - e.remaining)
}

func (e *Engine) recomputeWPM() {
	if e.state != Running {
		return
	}
	if elapsed := e.elapsedSeconds(); elapsed > 0 {
		e.wpm = stats.WPM(e.correct, elapsed)
	}
}

func (e *Engine) complete() {
	e.state = Complete
	e.endedAt = e.clock.Now()
	e.cancelTicker()
	if len(e.input) == 0 {
		return
	}
	result := e.result()
	e.wpm = result.WPM
	if e.onComplete != nil {
		e.onComplete(result)
	}
}

func (e *Engine) result() model.TypingResult {
	r := model.TypingResult{
		Accuracy:          stats.Accuracy(e.correct, len(e.input)),
		CharactersTyped:   len(e.input),
		CorrectCharacters: e.correct,
		WordsTyped:        stats.WordsTyped(e.correct),
		TestType:          e.cfg.Mode,
	}
	if e.cfg.Mode == model.TestWords {
		r.WPM = stats.WPM(e.correct, e.endedAt.Sub(e.startedAt).Seconds())
		return r
	}
	d := e.cfg.Duration
	r.TestDuration = &d
	r.WPM = stats.WPM(e.correct, float64(d))
	return r
}
