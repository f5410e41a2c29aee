// Package tui provides the Bubble Tea typing interface.
package tui

import (
	"context"
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"go.uber.org/zap"

	"github.com/verte-zerg/typeme/internal/model"
	"github.com/verte-zerg/typeme/internal/session"
	"github.com/verte-zerg/typeme/internal/stats"
	"github.com/verte-zerg/typeme/internal/viewmodel"
	"github.com/verte-zerg/typeme/internal/window"
)

// Results stores finished attempts and exposes the refreshed profile.
type Results interface {
	Submit(ctx context.Context, result model.TypingResult) (model.TypingResult, error)
	LoadProfile(ctx context.Context) error
	Snapshot() viewmodel.Snapshot
}

var _ Results = (*viewmodel.Model)(nil)

type submitStatus int

const (
	submitNone submitStatus = iota
	submitPending
	submitSaved
	submitFailed
)

type tickMsg struct {
	attempt uint64
}

type submittedMsg struct {
	attempt uint64
	err     error
}

type profileMsg struct{}

// Option configures a Model.
type Option func(*options)

type options struct {
	clock   session.Clock
	logger  *zap.Logger
	timeout time.Duration
}

// WithClock replaces the engine clock.
func WithClock(c session.Clock) Option {
	return func(o *options) { o.clock = c }
}

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(o *options) { o.logger = l }
}

// WithTimeout bounds each backend call.
func WithTimeout(d time.Duration) Option {
	return func(o *options) { o.timeout = d }
}

// Model implements the Bubble Tea typing UI.
type Model struct {
	engine  *session.Engine
	window  *window.Window
	results Results
	logger  *zap.Logger
	timeout time.Duration

	width  int
	height int

	// pending holds a result emitted by the engine until the submit command is issued.
	pending *model.TypingResult
	last    *model.TypingResult
	status  submitStatus
}

var (
	correctStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("#F0F0F0"))
	incorrectStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#FF4D4F"))
	pendingStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("#8C8C8C"))
	currentWordStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#C89A3A"))
	cursorStyle      = pendingStyle.Underline(true)
	footerStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("#6E6E6E"))
	timerStyle       = lipgloss.NewStyle().Foreground(lipgloss.Color("#C89A3A")).Bold(true)
	resultStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("#F0F0F0")).Bold(true)
)

// NewModel constructs a typing TUI model.
func NewModel(cfg session.Config, words session.Words, results Results, opts ...Option) *Model {
	o := options{logger: zap.NewNop(), timeout: 10 * time.Second}
	for _, opt := range opts {
		opt(&o)
	}
	m := &Model{
		window:  window.New(window.DefaultLines),
		results: results,
		logger:  o.logger,
		timeout: o.timeout,
	}
	engineOpts := []session.Option{session.OnComplete(m.onComplete)}
	if o.clock != nil {
		engineOpts = append(engineOpts, session.WithClock(o.clock))
	}
	m.engine = session.New(cfg, words, engineOpts...)
	return m
}

// Engine exposes the underlying session engine.
func (m *Model) Engine() *session.Engine {
	return m.engine
}

func (m *Model) onComplete(result model.TypingResult) {
	m.pending = &result
}

// Init implements tea.Model.
func (m *Model) Init() tea.Cmd {
	return m.loadProfile()
}

// Update implements tea.Model.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil
	case tickMsg:
		m.engine.Tick(msg.attempt)
		return m, m.afterChange(msg.attempt)
	case submittedMsg:
		if msg.attempt != m.engine.Attempt() {
			return m, nil
		}
		if msg.err != nil {
			m.status = submitFailed
		} else {
			m.status = submitSaved
		}
		return m, nil
	case profileMsg:
		return m, nil
	case tea.KeyMsg:
		return m.handleKey(msg)
	default:
		return m, nil
	}
}

func (m *Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	attempt := m.engine.Attempt()
	wasRunning := m.engine.State() == session.Running
	switch msg.Type {
	case tea.KeyCtrlC:
		return m, tea.Quit
	case tea.KeyEsc:
		m.restart()
		return m, nil
	case tea.KeyEnter:
		if m.engine.State() == session.Complete {
			m.restart()
		}
		return m, nil
	case tea.KeyTab:
		if m.engine.ToggleDuration() {
			m.window.Reset()
		}
		return m, nil
	case tea.KeyShiftTab:
		next := model.TestWords
		if m.engine.Mode() == model.TestWords {
			next = model.TestTimed
		}
		if m.engine.SetMode(next) {
			m.window.Reset()
		}
		return m, nil
	case tea.KeyBackspace, tea.KeyDelete:
		m.engine.Backspace()
	case tea.KeySpace:
		m.engine.Type(' ')
	case tea.KeyRunes:
		for _, r := range msg.Runes {
			m.engine.Type(r)
		}
	default:
		return m, nil
	}
	var cmds []tea.Cmd
	if !wasRunning && m.engine.State() == session.Running {
		cmds = append(cmds, m.waitTick())
	}
	cmds = append(cmds, m.submitPending(attempt))
	return m, tea.Batch(cmds...)
}

func (m *Model) restart() {
	m.engine.Restart()
	m.window.Reset()
	m.pending = nil
	m.last = nil
	m.status = submitNone
}

// afterChange schedules the next tick while running and submits a finished attempt.
func (m *Model) afterChange(attempt uint64) tea.Cmd {
	if attempt != m.engine.Attempt() {
		return nil
	}
	if m.engine.State() == session.Running {
		return m.waitTick()
	}
	return m.submitPending(attempt)
}

func (m *Model) waitTick() tea.Cmd {
	tick, done := m.engine.TickSource()
	if tick == nil {
		return nil
	}
	attempt := m.engine.Attempt()
	return func() tea.Msg {
		select {
		case <-tick:
			return tickMsg{attempt: attempt}
		case <-done:
			return nil
		}
	}
}

func (m *Model) submitPending(attempt uint64) tea.Cmd {
	if m.pending == nil {
		return nil
	}
	result := *m.pending
	m.pending = nil
	m.last = &result
	if m.results == nil {
		return nil
	}
	m.status = submitPending
	results, timeout, logger := m.results, m.timeout, m.logger
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()
		_, err := results.Submit(ctx, result)
		if err != nil {
			logger.Warn("result not saved", zap.Error(err))
		}
		return submittedMsg{attempt: attempt, err: err}
	}
}

func (m *Model) loadProfile() tea.Cmd {
	if m.results == nil {
		return nil
	}
	results, timeout := m.results, m.timeout
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()
		// Failures are recorded by the view model.
		_ = results.LoadProfile(ctx)
		return profileMsg{}
	}
}

// View implements tea.Model.
func (m *Model) View() string {
	target := m.engine.Target()
	if len(target) == 0 {
		return ""
	}
	input := m.engine.Input()
	cursorIndex := -1
	if m.engine.State() != session.Complete && len(input) < len(target) {
		cursorIndex = len(input)
	}
	styled := buildStyledRunes(target, input, cursorIndex)

	contentWidth := 80
	if m.width > 0 {
		contentWidth = int(float64(m.width) * 0.70)
	}
	if contentWidth < 2 {
		contentWidth = 2
	}
	budget := window.CharsPerLine(contentWidth-1, 1)
	cursor := len(input)
	view := m.window.Update(target, budget, cursor)

	var body string
	if m.engine.State() == session.Complete {
		body = m.renderResult()
	} else {
		body = renderLines(styled, view, m.window.Size())
	}
	header := timerStyle.Render(m.renderTimer())
	content := lipgloss.NewStyle().Width(contentWidth).Render(header + "\n\n" + body)
	footer := m.renderFooter()
	if m.width == 0 || m.height == 0 {
		return content + "\n" + footer
	}
	if m.height < 3 {
		return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center, content)
	}
	bodyHeight := m.height - 1
	placed := lipgloss.Place(m.width, bodyHeight, lipgloss.Center, lipgloss.Center, content)
	footerLine := lipgloss.Place(m.width, 1, lipgloss.Center, lipgloss.Center, footer)
	return placed + "\n" + footerLine
}

func (m *Model) renderTimer() string {
	if m.engine.Mode() == model.TestWords {
		return fmt.Sprintf("%d/%d", m.engine.Typed(), len(m.engine.Target()))
	}
	return fmt.Sprintf("%d", m.engine.Remaining())
}

func (m *Model) renderResult() string {
	if m.last == nil {
		return footerStyle.Render("Nothing typed. Press esc to try again.")
	}
	r := m.last
	lines := []string{
		resultStyle.Render(fmt.Sprintf("%d WPM", r.WPM)),
		fmt.Sprintf("Accuracy %.2f%%", r.Accuracy),
		fmt.Sprintf("Characters %d/%d", r.CorrectCharacters, r.CharactersTyped),
		fmt.Sprintf("Words %d", r.WordsTyped),
	}
	if d := r.Duration(); d > 0 {
		lines = append(lines, fmt.Sprintf("Time %s", stats.FormatSeconds(d)))
	}
	switch m.status {
	case submitPending:
		lines = append(lines, footerStyle.Render("Saving result..."))
	case submitSaved:
		lines = append(lines, footerStyle.Render("Result saved"))
	case submitFailed:
		lines = append(lines, footerStyle.Render("Offline: result not saved"))
	}
	lines = append(lines, "", footerStyle.Render("enter or esc to restart"))
	return strings.Join(lines, "\n")
}

func (m *Model) renderFooter() string {
	segments := []string{}
	if m.engine.Mode() == model.TestWords {
		segments = append(segments, fmt.Sprintf("words %s", stats.FormatSeconds(m.engine.Elapsed())))
	} else {
		segments = append(segments, fmt.Sprintf("%ds left", m.engine.Remaining()))
	}
	segments = append(segments,
		fmt.Sprintf("%d WPM", m.engine.WPM()),
		fmt.Sprintf("%.2f%%", m.engine.Accuracy()),
	)
	if best := m.best(); best > 0 {
		segments = append(segments, fmt.Sprintf("Best %.0f WPM", best))
	}
	if m.engine.State() != session.Running {
		segments = append(segments, "tab 30/60", "shift+tab mode", "esc restart")
	}
	return footerStyle.Render(strings.Join(segments, " · "))
}

func (m *Model) best() float64 {
	if m.results == nil {
		return 0
	}
	snap := m.results.Snapshot()
	if snap.Profile == nil {
		return 0
	}
	filter := model.FilterAll
	if m.engine.Mode() == model.TestTimed {
		filter = model.DurationFilter(m.engine.Duration())
	}
	return snap.Profile.Scope(filter).BestWPM
}
