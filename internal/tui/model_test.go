package tui

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/verte-zerg/typeme/internal/model"
	"github.com/verte-zerg/typeme/internal/session"
	"github.com/verte-zerg/typeme/internal/viewmodel"
)

type manualTicker struct {
	c chan time.Time
}

func (t *manualTicker) C() <-chan time.Time { return t.c }
func (t *manualTicker) Stop()               {}

type manualClock struct {
	now time.Time
}

func (c *manualClock) Now() time.Time { return c.now }

func (c *manualClock) NewTicker(time.Duration) session.Ticker {
	return &manualTicker{c: make(chan time.Time, 1)}
}

type repeatWords struct{}

func (repeatWords) Generate(count int) []string {
	out := make([]string, count)
	for i := range out {
		out[i] = "hello"
	}
	return out
}

type fakeResults struct {
	mu        sync.Mutex
	submitted []model.TypingResult
	profile   *model.UserProfile
	err       error
}

func (f *fakeResults) Submit(_ context.Context, r model.TypingResult) (model.TypingResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.submitted = append(f.submitted, r)
	return r, f.err
}

func (f *fakeResults) LoadProfile(context.Context) error { return nil }

func (f *fakeResults) Snapshot() viewmodel.Snapshot {
	f.mu.Lock()
	defer f.mu.Unlock()
	return viewmodel.Snapshot{Profile: f.profile}
}

func newTestModel(results Results) *Model {
	return NewModel(session.Config{Duration: 30}, repeatWords{}, results, WithClock(&manualClock{now: time.Unix(0, 0)}))
}

func typeKeys(m *Model, s string) []tea.Cmd {
	var cmds []tea.Cmd
	for _, r := range s {
		var msg tea.KeyMsg
		if r == ' ' {
			msg = tea.KeyMsg{Type: tea.KeySpace}
		} else {
			msg = tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{r}}
		}
		_, cmd := m.Update(msg)
		if cmd != nil {
			cmds = append(cmds, cmd)
		}
	}
	return cmds
}

func runCmd(cmd tea.Cmd) tea.Msg {
	if cmd == nil {
		return nil
	}
	msg := cmd()
	if batch, ok := msg.(tea.BatchMsg); ok {
		var last tea.Msg
		for _, c := range batch {
			if c == nil {
				continue
			}
			if m := c(); m != nil {
				last = m
			}
		}
		return last
	}
	return msg
}

func expire(m *Model) tea.Msg {
	var out tea.Msg
	for m.Engine().State() == session.Running {
		_, cmd := m.Update(tickMsg{attempt: m.Engine().Attempt()})
		if m.Engine().State() != session.Running {
			out = runCmd(cmd)
		}
	}
	return out
}

func TestTimedAttemptSubmitsOnce(t *testing.T) {
	results := &fakeResults{}
	m := newTestModel(results)
	typeKeys(m, "hello hell")

	msg := expire(m)
	done, ok := msg.(submittedMsg)
	if !ok {
		t.Fatalf("expected submittedMsg, got %T", msg)
	}
	m.Update(done)

	if len(results.submitted) != 1 {
		t.Fatalf("expected 1 submission, got %d", len(results.submitted))
	}
	got := results.submitted[0]
	if got.CharactersTyped != 10 || got.CorrectCharacters != 10 || got.Accuracy != 100 {
		t.Fatalf("unexpected result %+v", got)
	}
	if got.TestDuration == nil || *got.TestDuration != 30 || got.TestType != model.TestTimed {
		t.Fatalf("unexpected duration/type %+v", got)
	}
	if m.status != submitSaved {
		t.Fatalf("expected saved status, got %v", m.status)
	}
	if !strings.Contains(m.View(), "Result saved") {
		t.Fatalf("expected saved notice in view")
	}
}

func TestFirstKeystrokeSchedulesTick(t *testing.T) {
	m := newTestModel(nil)
	cmds := typeKeys(m, "h")
	if len(cmds) == 0 {
		t.Fatalf("expected tick command after first keystroke")
	}
	cmds = typeKeys(m, "e")
	if len(cmds) != 0 {
		t.Fatalf("expected no new tick command while running")
	}
}

func TestRestartCancelsPendingTick(t *testing.T) {
	m := newTestModel(nil)
	cmds := typeKeys(m, "h")
	m.Update(tea.KeyMsg{Type: tea.KeyEsc})

	if msg := runCmd(cmds[0]); msg != nil {
		t.Fatalf("expected cancelled tick to yield no message, got %T", msg)
	}
	if m.Engine().State() != session.Idle {
		t.Fatalf("expected idle after restart")
	}
}

func TestStaleSubmitIgnoredAfterRestart(t *testing.T) {
	results := &fakeResults{}
	m := newTestModel(results)
	typeKeys(m, "h")
	msg := expire(m)
	m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	m.Update(msg)
	if m.status != submitNone {
		t.Fatalf("expected stale submit to be ignored, got %v", m.status)
	}
}

func TestFailedSubmitKeepsPracticing(t *testing.T) {
	results := &fakeResults{err: context.DeadlineExceeded}
	m := newTestModel(results)
	typeKeys(m, "h")
	m.Update(expire(m))
	if m.status != submitFailed {
		t.Fatalf("expected failed status")
	}
	if !strings.Contains(m.View(), "result not saved") {
		t.Fatalf("expected offline notice")
	}
	m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	typeKeys(m, "h")
	if m.Engine().State() != session.Running {
		t.Fatalf("expected a new attempt to start")
	}
}

func TestTabTogglesDurationOnlyWhenIdle(t *testing.T) {
	m := newTestModel(nil)
	m.Update(tea.KeyMsg{Type: tea.KeyTab})
	if m.Engine().Duration() != 60 || m.Engine().Remaining() != 60 {
		t.Fatalf("expected 60s after toggle")
	}
	typeKeys(m, "h")
	m.Update(tea.KeyMsg{Type: tea.KeyTab})
	if m.Engine().Duration() != 60 {
		t.Fatalf("expected toggle to be ignored while running")
	}
}

func TestShiftTabSwitchesMode(t *testing.T) {
	m := newTestModel(nil)
	m.Update(tea.KeyMsg{Type: tea.KeyShiftTab})
	if m.Engine().Mode() != model.TestWords {
		t.Fatalf("expected words mode")
	}
	if !strings.Contains(m.renderFooter(), "words 0s") {
		t.Fatalf("unexpected footer %q", m.renderFooter())
	}
}

func TestRenderFooterFormats(t *testing.T) {
	best := &model.UserProfile{BestWPM30s: 72, BestWPM: 90}
	m := newTestModel(&fakeResults{profile: best})
	typeKeys(m, "hellx")
	m.Update(tickMsg{attempt: m.Engine().Attempt()})

	out := m.renderFooter()
	for _, want := range []string{"29s left", "48 WPM", "80.00%", "Best 72 WPM"} {
		if !strings.Contains(out, want) {
			t.Fatalf("footer missing %q: %s", want, out)
		}
	}
	if strings.Contains(out, "esc restart") {
		t.Fatalf("expected key hints hidden while running: %s", out)
	}
}

func TestViewShowsThreeLines(t *testing.T) {
	m := newTestModel(nil)
	m.Update(tea.WindowSizeMsg{Width: 40, Height: 20})
	if m.View() == "" {
		t.Fatalf("expected view output")
	}
	if !strings.Contains(m.View(), "30") {
		t.Fatalf("expected countdown in view")
	}
}
