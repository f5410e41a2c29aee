package statsui

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/verte-zerg/typeme/internal/model"
	"github.com/verte-zerg/typeme/internal/viewmodel"
)

type fakeView struct {
	snap      viewmodel.Snapshot
	refreshes int
	cycles    int
	loadMores int
	names     []string
	nameErr   error
	dismissed int
}

func (f *fakeView) Snapshot() viewmodel.Snapshot { return f.snap }

func (f *fakeView) Refresh(context.Context) error {
	f.refreshes++
	return nil
}

func (f *fakeView) CycleFilter(context.Context) error {
	f.cycles++
	f.snap.Filter = f.snap.Filter.Next()
	return nil
}

func (f *fakeView) LoadMore(context.Context) error {
	f.loadMores++
	return nil
}

func (f *fakeView) UpdateDisplayName(_ context.Context, name string) error {
	f.names = append(f.names, name)
	if f.nameErr != nil {
		return f.nameErr
	}
	f.snap.Profile.DisplayName = &name
	return nil
}

func (f *fakeView) DismissError() {
	f.dismissed++
	f.snap.Err = ""
}

func entries(n int) []model.LeaderboardEntry {
	out := make([]model.LeaderboardEntry, n)
	for i := range out {
		d := 30
		out[i] = model.LeaderboardEntry{TypingResult: model.TypingResult{
			WPM:             100 - i,
			Accuracy:        97.5,
			CharactersTyped: 200,
			TestType:        model.TestTimed,
			TestDuration:    &d,
		}}
	}
	return out
}

func newTestModel(t *testing.T, v *fakeView) *Model {
	t.Helper()
	m := NewModel(v, time.Second)
	m.Update(tea.WindowSizeMsg{Width: 100, Height: 30})
	return m
}

func runKey(t *testing.T, m *Model, msg tea.KeyMsg) tea.Cmd {
	t.Helper()
	_, cmd := m.Update(msg)
	return cmd
}

func drain(t *testing.T, m *Model, cmd tea.Cmd) {
	t.Helper()
	if cmd == nil {
		return
	}
	msg := cmd()
	if batch, ok := msg.(tea.BatchMsg); ok {
		for _, c := range batch {
			drain(t, m, c)
		}
		return
	}
	if msg != nil {
		_, next := m.Update(msg)
		if _, ok := msg.(loadedMsg); !ok {
			drain(t, m, next)
		}
	}
}

func keyRunes(s string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func TestInitRefreshes(t *testing.T) {
	v := &fakeView{}
	m := newTestModel(t, v)
	drain(t, m, m.Init())
	if v.refreshes != 1 {
		t.Fatalf("expected one refresh, got %d", v.refreshes)
	}
}

func TestCycleFilterUpdatesSummary(t *testing.T) {
	v := &fakeView{snap: viewmodel.Snapshot{Filter: model.Filter30}}
	m := newTestModel(t, v)
	drain(t, m, runKey(t, m, keyRunes("f")))
	if v.cycles != 1 {
		t.Fatalf("expected one cycle, got %d", v.cycles)
	}
	if !strings.Contains(m.View(), "Duration: 60s") {
		t.Fatalf("expected summary to show the new filter:\n%s", m.View())
	}
}

func TestLeaderboardRendersEntries(t *testing.T) {
	v := &fakeView{snap: viewmodel.Snapshot{Entries: entries(3), Filter: model.Filter30}}
	m := newTestModel(t, v)
	runKey(t, m, tea.KeyMsg{Type: tea.KeyRight})
	out := m.View()
	if !strings.Contains(out, model.AnonymousName) {
		t.Fatalf("expected anonymous label in leaderboard:\n%s", out)
	}
	if !strings.Contains(out, "End of leaderboard") {
		t.Fatalf("expected end marker without more pages:\n%s", out)
	}
}

func TestLoadMoreOnlyWhenMoreAvailable(t *testing.T) {
	v := &fakeView{snap: viewmodel.Snapshot{Entries: entries(10), HasMore: false}}
	m := newTestModel(t, v)
	if cmd := runKey(t, m, keyRunes("m")); cmd != nil {
		t.Fatal("expected no load without more pages")
	}

	v.snap.HasMore = true
	drain(t, m, m.Init())
	drain(t, m, runKey(t, m, keyRunes("m")))
	if v.loadMores != 1 {
		t.Fatalf("expected one load more, got %d", v.loadMores)
	}

	v.snap.LoadingMore = true
	drain(t, m, m.Init())
	if cmd := runKey(t, m, keyRunes("m")); cmd != nil {
		t.Fatal("expected no load while a page is loading")
	}
}

func TestScrollingToBottomLoadsMore(t *testing.T) {
	v := &fakeView{snap: viewmodel.Snapshot{Entries: entries(10), HasMore: true}}
	m := newTestModel(t, v)
	runKey(t, m, tea.KeyMsg{Type: tea.KeyRight})
	drain(t, m, runKey(t, m, keyRunes("G")))
	if v.loadMores != 1 {
		t.Fatalf("expected bottom to trigger load more, got %d", v.loadMores)
	}
}

func TestErrorBannerDismisses(t *testing.T) {
	v := &fakeView{snap: viewmodel.Snapshot{Err: viewmodel.ErrLoadLeaderboard}}
	m := newTestModel(t, v)
	if !strings.Contains(m.View(), viewmodel.ErrLoadLeaderboard) {
		t.Fatalf("expected error banner:\n%s", m.View())
	}
	runKey(t, m, tea.KeyMsg{Type: tea.KeyEsc})
	if v.dismissed != 1 {
		t.Fatalf("expected dismiss, got %d", v.dismissed)
	}
	if strings.Contains(m.View(), viewmodel.ErrLoadLeaderboard) {
		t.Fatal("expected banner cleared")
	}
}

func TestNameModalRejectsLongName(t *testing.T) {
	v := &fakeView{snap: viewmodel.Snapshot{Profile: &model.UserProfile{ID: "anon_1"}}}
	m := newTestModel(t, v)
	runKey(t, m, keyRunes("n"))
	if !m.nameMode {
		t.Fatal("expected name modal")
	}
	m.nameInput.SetValue(strings.Repeat("x", 31))
	if cmd := runKey(t, m, tea.KeyMsg{Type: tea.KeyEnter}); cmd != nil {
		t.Fatal("expected validation to stop the save")
	}
	if len(v.names) != 0 {
		t.Fatal("expected no backend call")
	}
	if !strings.Contains(m.nameError, "30 characters") {
		t.Fatalf("unexpected error %q", m.nameError)
	}
}

func TestNameModalSaves(t *testing.T) {
	v := &fakeView{snap: viewmodel.Snapshot{Profile: &model.UserProfile{ID: "anon_1"}}}
	m := newTestModel(t, v)
	runKey(t, m, keyRunes("n"))
	m.nameInput.SetValue("ada")
	drain(t, m, runKey(t, m, tea.KeyMsg{Type: tea.KeyEnter}))
	if len(v.names) != 1 || v.names[0] != "ada" {
		t.Fatalf("unexpected names %v", v.names)
	}
	if m.nameMode {
		t.Fatal("expected modal closed after save")
	}
	if !strings.Contains(m.View(), "Player: ada") {
		t.Fatalf("expected new name in summary:\n%s", m.View())
	}
}

func TestNameModalKeepsOpenOnFailure(t *testing.T) {
	v := &fakeView{
		snap:    viewmodel.Snapshot{Profile: &model.UserProfile{ID: "anon_1"}},
		nameErr: errors.New("boom"),
	}
	m := newTestModel(t, v)
	runKey(t, m, keyRunes("n"))
	m.nameInput.SetValue("ada")
	drain(t, m, runKey(t, m, tea.KeyMsg{Type: tea.KeyEnter}))
	if !m.nameMode {
		t.Fatal("expected modal to stay open")
	}
	if m.nameError != viewmodel.ErrUpdateName {
		t.Fatalf("unexpected error %q", m.nameError)
	}
}

func TestOverviewWithoutProfile(t *testing.T) {
	out := renderOverview(viewmodel.Snapshot{}, 100)
	if !strings.Contains(out, "No results yet") {
		t.Fatalf("unexpected overview %q", out)
	}
}

func TestOverviewUsesFilterScope(t *testing.T) {
	snap := viewmodel.Snapshot{
		Filter:  model.Filter60,
		Profile: &model.UserProfile{BestWPM: 90, BestWPM60s: 72, TotalTests60s: 4, TotalTime60s: 240},
	}
	out := renderOverview(snap, 100)
	if !strings.Contains(out, "72") || strings.Contains(out, "90") {
		t.Fatalf("expected 60s scope values:\n%s", out)
	}
	if !strings.Contains(out, "4m 0s") {
		t.Fatalf("expected formatted time:\n%s", out)
	}
}

func TestTruncateLine(t *testing.T) {
	if got := truncateLine("abcdefgh", 6); got != "abc..." {
		t.Fatalf("unexpected %q", got)
	}
	if got := truncateLine("abc", 6); got != "abc" {
		t.Fatalf("unexpected %q", got)
	}
}

func TestFitLines(t *testing.T) {
	got := fitLines("a\nb\nc", 2, 2)
	if got != "a \nb " {
		t.Fatalf("unexpected %q", got)
	}
}
