// Package statsui provides the Bubble Tea stats interface.
package statsui

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/cursor"
	"github.com/charmbracelet/bubbles/table"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/verte-zerg/typeme/internal/backend"
	"github.com/verte-zerg/typeme/internal/gateway"
	"github.com/verte-zerg/typeme/internal/model"
	"github.com/verte-zerg/typeme/internal/viewmodel"
)

const (
	tabOverview = iota
	tabLeaderboard
	tabHistory
)

var (
	activeNavStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#F0F0F0")).
			Bold(true).
			Padding(0, 1).
			Border(lipgloss.RoundedBorder(), true).
			BorderForeground(lipgloss.Color("#C89A3A"))
	inactiveNavStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("#B0B0B0")).
				Padding(0, 1).
				Border(lipgloss.RoundedBorder(), true).
				BorderForeground(lipgloss.Color("#4A4A4A"))
	headerStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#6E6E6E"))
	errorStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#FF4D4F"))
	cardStyle   = lipgloss.NewStyle().
			Padding(0, 1).
			Border(lipgloss.RoundedBorder(), true).
			BorderForeground(lipgloss.Color("#4A4A4A"))
	cardTitleStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#8C8C8C"))
	cardValueStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#F0F0F0")).Bold(true)
	tableMutedStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#B8B8B8"))
	modalStyle      = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder(), true).
			BorderForeground(lipgloss.Color("#C89A3A")).
			Padding(1, 2)
)

// View is the view model the stats screen renders.
type View interface {
	Snapshot() viewmodel.Snapshot
	Refresh(ctx context.Context) error
	CycleFilter(ctx context.Context) error
	LoadMore(ctx context.Context) error
	UpdateDisplayName(ctx context.Context, name string) error
	DismissError()
}

var _ View = (*viewmodel.Model)(nil)

type loadedMsg struct{}

type nameMsg struct {
	err error
}

// Model implements the Bubble Tea stats UI.
type Model struct {
	vm      View
	timeout time.Duration
	snap    viewmodel.Snapshot

	tabs      []string
	activeTab int
	viewports []viewport.Model
	board     table.Model
	layout    tableLayout

	width  int
	height int

	nameMode  bool
	nameInput textinput.Model
	nameError string
	saving    bool
}

type tableLayout struct {
	width    int
	height   int
	rowCount int
}

// NewModel constructs a stats UI model.
func NewModel(vm View, timeout time.Duration) *Model {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	m := &Model{
		vm:      vm,
		timeout: timeout,
		tabs:    []string{"Overview", "Leaderboard", "History"},
	}
	m.initNameInput()
	m.board = buildBoardTable(nil, 0, 0, 1)
	m.initViewports()
	m.sync()
	return m
}

// Init implements tea.Model.
func (m *Model) Init() tea.Cmd {
	return m.run(m.vm.Refresh)
}

func (m *Model) run(fn func(context.Context) error) tea.Cmd {
	timeout := m.timeout
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()
		// Errors are recorded in the snapshot.
		_ = fn(ctx)
		return loadedMsg{}
	}
}

// Update implements tea.Model.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.updateLayout()
		m.renderTabContents()
		return m, nil
	case loadedMsg:
		m.sync()
		return m, nil
	case nameMsg:
		m.saving = false
		if msg.err != nil {
			var ve *backend.ValidationError
			if errors.As(msg.err, &ve) {
				m.nameError = ve.Message
			} else {
				m.nameError = viewmodel.ErrUpdateName
			}
			m.sync()
			return m, nil
		}
		m.nameMode = false
		m.nameError = ""
		m.nameInput.Blur()
		m.sync()
		return m, nil
	case tea.KeyMsg:
		if msg.Type == tea.KeyCtrlC {
			return m, tea.Quit
		}
		if m.nameMode {
			return m.updateNameInput(msg)
		}
		return m.handleKey(msg)
	}
	return m, nil
}

func (m *Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q":
		return m, tea.Quit
	case "left", "h":
		m.moveTab(-1)
		return m, tea.ClearScreen
	case "right", "l":
		m.moveTab(1)
		return m, tea.ClearScreen
	case "f":
		return m, m.run(m.vm.CycleFilter)
	case "r":
		return m, m.run(m.vm.Refresh)
	case "m":
		return m, m.loadMore()
	case "n":
		return m.startNameInput()
	case "esc":
		m.vm.DismissError()
		m.sync()
		return m, nil
	case "g", "home":
		if m.activeTab == tabLeaderboard {
			m.board.GotoTop()
		} else {
			m.viewports[m.activeTab].GotoTop()
		}
		return m, nil
	case "G", "end":
		if m.activeTab == tabLeaderboard {
			m.board.GotoBottom()
			return m, m.loadMore()
		}
		m.viewports[m.activeTab].GotoBottom()
		return m, nil
	}
	if m.activeTab == tabLeaderboard {
		var cmd tea.Cmd
		m.board, cmd = m.board.Update(msg)
		if m.board.Cursor() >= len(m.board.Rows())-1 {
			return m, tea.Batch(cmd, m.loadMore())
		}
		return m, cmd
	}
	vp := m.viewports[m.activeTab]
	var cmd tea.Cmd
	vp, cmd = vp.Update(msg)
	m.viewports[m.activeTab] = vp
	return m, cmd
}

func (m *Model) loadMore() tea.Cmd {
	if !m.snap.HasMore || m.snap.LoadingMore || m.snap.Loading {
		return nil
	}
	return m.run(m.vm.LoadMore)
}

// View implements tea.Model.
func (m *Model) View() string {
	if m.width == 0 || m.height == 0 {
		return ""
	}
	if m.nameMode {
		return fitLines(m.renderNameModal(), m.width, m.height)
	}
	headerHeight, bodyHeight, footerHeight := m.layoutHeights()
	header := fitLines(m.renderHeader(), m.width, headerHeight)
	body := fitLines(m.renderBody(bodyHeight), m.width, bodyHeight)
	footer := fitLines(m.renderFooter(), m.width, footerHeight)
	return strings.Join([]string{header, body, footer}, "\n")
}

func (m *Model) initViewports() {
	m.viewports = make([]viewport.Model, len(m.tabs))
	for i := range m.viewports {
		m.viewports[i] = viewport.New(0, 0)
	}
}

func (m *Model) initNameInput() {
	input := textinput.New()
	input.Prompt = "Name: "
	input.Placeholder = model.AnonymousName
	input.CharLimit = 0
	input.Cursor.SetMode(cursor.CursorBlink)
	m.nameInput = input
}

func (m *Model) layoutHeights() (headerHeight, bodyHeight, footerHeight int) {
	tabsHeight := lipgloss.Height(activeNavStyle.Render("X"))
	if tabsHeight < 1 {
		tabsHeight = 1
	}
	headerHeight = tabsHeight + 1
	footerHeight = 1
	if m.snap.Err != "" {
		footerHeight++
	}
	bodyHeight = m.height - headerHeight - footerHeight
	if bodyHeight < 1 {
		bodyHeight = 1
	}
	return headerHeight, bodyHeight, footerHeight
}

func (m *Model) updateLayout() {
	if m.width <= 0 || m.height <= 0 {
		return
	}
	_, vpHeight, _ := m.layoutHeights()
	for i := range m.viewports {
		m.viewports[i].Width = m.width
		m.viewports[i].Height = vpHeight
	}
	m.setBoardSize(m.width, vpHeight)
	promptWidth := lipgloss.Width(m.nameInput.Prompt)
	m.nameInput.Width = maxInt(10, modalInnerWidth(m.width)-promptWidth)
}

func (m *Model) moveTab(delta int) {
	count := len(m.tabs)
	if count == 0 {
		return
	}
	next := m.activeTab + delta
	if next < 0 {
		next = count - 1
	}
	if next >= count {
		next = 0
	}
	m.activeTab = next
	if m.activeTab == tabLeaderboard {
		m.board.Focus()
	} else {
		m.board.Blur()
	}
}

// sync copies the view model state and rebuilds what depends on it.
func (m *Model) sync() {
	m.snap = m.vm.Snapshot()
	width := m.width
	if width <= 0 {
		width = 80
	}
	_, bodyHeight, _ := m.layoutHeights()
	m.applyBoard(width, bodyHeight)
	m.updateLayout()
	m.renderTabContents()
}

func (m *Model) renderTabContents() {
	if len(m.viewports) == 0 {
		return
	}
	width := m.width
	if width <= 0 {
		width = 80
	}
	m.viewports[tabOverview].SetContent(renderOverview(m.snap, width))
	m.viewports[tabHistory].SetContent(renderHistory(m.snap.Results))
}

func (m *Model) renderTabs() string {
	parts := make([]string, 0, len(m.tabs))
	for i, tab := range m.tabs {
		if i == m.activeTab {
			parts = append(parts, activeNavStyle.Render(tab))
		} else {
			parts = append(parts, inactiveNavStyle.Render(tab))
		}
	}
	return lipgloss.JoinHorizontal(lipgloss.Top, parts...)
}

func (m *Model) renderHeader() string {
	tabs := padLines(m.renderTabs(), m.width)
	summary := padLines(m.renderSummary(), m.width)
	return tabs + "\n" + summary
}

func (m *Model) renderSummary() string {
	name := model.AnonymousName
	if m.snap.Profile != nil && m.snap.Profile.Name() != "" {
		name = m.snap.Profile.Name()
	}
	parts := []string{"Player: " + name, "Duration: " + m.snap.Filter.String()}
	if m.snap.Loading || m.snap.LoadingMore {
		parts = append(parts, "loading...")
	}
	return headerStyle.Render(truncateLine(strings.Join(parts, "  "), m.width))
}

func (m *Model) renderHelp() string {
	help := "Nav: left/right  Duration: f  Name: n  Refresh: r  Quit: q"
	if m.activeTab == tabLeaderboard {
		help = "Nav: left/right  Scroll: up/down  More: m  Duration: f  Name: n  Quit: q"
	}
	return headerStyle.Render(help)
}

func (m *Model) renderFooter() string {
	if m.snap.Err != "" {
		return m.renderHelp() + "\n" + errorStyle.Render(m.snap.Err+" (esc to dismiss)")
	}
	return m.renderHelp()
}

func (m *Model) renderBody(height int) string {
	if m.activeTab == tabLeaderboard {
		if len(m.snap.Entries) == 0 {
			if m.snap.Loading {
				return fitLines("Loading leaderboard...", m.width, height)
			}
			return fitLines("No results yet.", m.width, height)
		}
		view := tableMutedStyle.Render(m.board.View())
		if !m.snap.HasMore {
			view += "\n" + headerStyle.Render("End of leaderboard")
		}
		return fitLines(view, m.width, height)
	}
	return fitLines(m.viewports[m.activeTab].View(), m.width, height)
}

func (m *Model) startNameInput() (tea.Model, tea.Cmd) {
	m.nameMode = true
	m.nameError = ""
	name := ""
	if m.snap.Profile != nil {
		name = m.snap.Profile.Name()
	}
	m.nameInput.SetValue(name)
	m.nameInput.CursorEnd()
	return m, m.nameInput.Focus()
}

func (m *Model) updateNameInput(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyEsc:
		m.nameMode = false
		m.nameError = ""
		m.nameInput.Blur()
		return m, nil
	case tea.KeyEnter:
		if m.saving {
			return m, nil
		}
		name := m.nameInput.Value()
		if _, err := gateway.ValidateDisplayName(name); err != nil {
			m.nameError = err.Error()
			return m, nil
		}
		m.saving = true
		m.nameError = ""
		vm, timeout := m.vm, m.timeout
		return m, func() tea.Msg {
			ctx, cancel := context.WithTimeout(context.Background(), timeout)
			defer cancel()
			return nameMsg{err: vm.UpdateDisplayName(ctx, name)}
		}
	}
	var cmd tea.Cmd
	m.nameInput, cmd = m.nameInput.Update(msg)
	return m, cmd
}

func (m *Model) renderNameModal() string {
	body := []string{
		cardValueStyle.Render("Display Name"),
		m.nameInput.View(),
		headerStyle.Render("Up to 30 characters. Leave empty to appear as " + model.AnonymousName + "."),
		headerStyle.Render("Enter to save / Esc to cancel"),
	}
	if m.saving {
		body = append(body, headerStyle.Render("Saving..."))
	}
	if m.nameError != "" {
		body = append(body, errorStyle.Render(m.nameError))
	}
	box := modalStyle.Width(modalWidth(m.width)).Render(strings.Join(body, "\n"))
	return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center, box)
}
