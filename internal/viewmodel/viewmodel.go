// Package viewmodel aggregates gateway responses into paginated views for the stats screen.
package viewmodel

import (
	"context"
	"errors"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/verte-zerg/typeme/internal/backend"
	"github.com/verte-zerg/typeme/internal/gateway"
	"github.com/verte-zerg/typeme/internal/model"
)

// Pagination limits.
const (
	PageSize    = 10
	MaxEntries  = 50
	RecentLimit = 20
)

// Messages shown for failed loads.
const (
	ErrLoadLeaderboard = "Failed to load leaderboard"
	ErrLoadMore        = "Failed to load more entries"
	ErrLoadResults     = "Failed to load results"
	ErrLoadProfile     = "Failed to load profile"
	ErrUpdateName      = "Failed to update display name"
)

// Gateway is the subset of gateway.Gateway the view model reads from.
type Gateway interface {
	SessionID(ctx context.Context) (string, error)
	SubmitResult(ctx context.Context, result model.TypingResult) (model.TypingResult, error)
	FetchUserResults(ctx context.Context, sessionID string, limit int) ([]model.TypingResult, error)
	FetchLeaderboard(ctx context.Context, q gateway.LeaderboardQuery) ([]model.LeaderboardEntry, error)
	FetchBestLeaderboard(ctx context.Context, q gateway.LeaderboardQuery) ([]model.LeaderboardEntry, error)
	FetchProfile(ctx context.Context, sessionID string) (model.UserProfile, error)
	UpsertDisplayName(ctx context.Context, sessionID, name string) (model.UserProfile, error)
}

var _ Gateway = (*gateway.Gateway)(nil)

// Snapshot is a copy of the view state.
type Snapshot struct {
	SessionID   string
	Profile     *model.UserProfile
	Results     []model.TypingResult
	Entries     []model.LeaderboardEntry
	TestType    model.TestType
	Filter      model.DurationFilter
	Offset      int
	HasMore     bool
	Loading     bool
	LoadingMore bool
	Err         string
}

// Stats returns the profile counters for the current filter.
func (s Snapshot) Stats() model.ScopeStats {
	if s.Profile == nil {
		return model.ScopeStats{}
	}
	return s.Profile.Scope(s.Filter)
}

// Option configures a Model.
type Option func(*Model)

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(m *Model) { m.logger = l }
}

// WithBestPerSession shows only the best result of each session on the leaderboard.
func WithBestPerSession(best bool) Option {
	return func(m *Model) { m.best = best }
}

// Model holds the stats screen state. It is safe for concurrent use.
type Model struct {
	gw     Gateway
	logger *zap.Logger
	best   bool

	mu    sync.Mutex
	state Snapshot
	// gen increases on every leaderboard reload; responses from older generations are dropped.
	gen uint64
}

// New returns a Model over gw with an empty timed leaderboard.
func New(gw Gateway, opts ...Option) *Model {
	m := &Model{gw: gw, logger: zap.NewNop()}
	m.state.TestType = model.TestTimed
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Snapshot returns a copy of the current state.
func (m *Model) Snapshot() Snapshot {
	m.mu.Lock()
	defer m.mu.Unlock()
	s := m.state
	s.Results = append([]model.TypingResult(nil), m.state.Results...)
	s.Entries = append([]model.LeaderboardEntry(nil), m.state.Entries...)
	if m.state.Profile != nil {
		p := *m.state.Profile
		s.Profile = &p
	}
	return s
}

// DismissError clears the inline error message.
func (m *Model) DismissError() {
	m.mu.Lock()
	m.state.Err = ""
	m.mu.Unlock()
}

func (m *Model) sessionID(ctx context.Context) (string, error) {
	m.mu.Lock()
	id := m.state.SessionID
	m.mu.Unlock()
	if id != "" {
		return id, nil
	}
	id, err := m.gw.SessionID(ctx)
	if err != nil {
		return "", err
	}
	m.mu.Lock()
	m.state.SessionID = id
	m.mu.Unlock()
	return id, nil
}

func (m *Model) fail(msg string, err error) {
	m.logger.Warn(msg, zap.Error(err))
	m.mu.Lock()
	m.state.Err = msg
	m.mu.Unlock()
}

func (m *Model) fetch(ctx context.Context, q gateway.LeaderboardQuery) ([]model.LeaderboardEntry, error) {
	if m.best {
		return m.gw.FetchBestLeaderboard(ctx, q)
	}
	return m.gw.FetchLeaderboard(ctx, q)
}

// LoadLeaderboard resets pagination and replaces the leaderboard with its first page.
func (m *Model) LoadLeaderboard(ctx context.Context, testType model.TestType, filter model.DurationFilter) error {
	if testType == "" {
		testType = model.TestTimed
	}
	m.mu.Lock()
	m.gen++
	gen := m.gen
	m.state.TestType = testType
	m.state.Filter = filter
	m.state.Loading = true
	m.state.LoadingMore = false
	m.state.Err = ""
	m.mu.Unlock()

	entries, err := m.fetch(ctx, gateway.LeaderboardQuery{TestType: testType, Limit: PageSize, Duration: filter})

	m.mu.Lock()
	defer m.mu.Unlock()
	if gen != m.gen {
		m.logger.Debug("dropped stale leaderboard response", zap.Uint64("generation", gen))
		return nil
	}
	m.state.Loading = false
	if err != nil {
		m.logger.Warn(ErrLoadLeaderboard, zap.Error(err))
		m.state.Err = ErrLoadLeaderboard
		m.state.Entries = nil
		m.state.Offset = 0
		m.state.HasMore = false
		return err
	}
	if len(entries) > MaxEntries {
		entries = entries[:MaxEntries]
	}
	m.state.Entries = entries
	m.state.Offset = PageSize
	m.state.HasMore = len(entries) == PageSize
	return nil
}

// SetFilter reloads the leaderboard for filter. Profile stats switch immediately.
func (m *Model) SetFilter(ctx context.Context, filter model.DurationFilter) error {
	m.mu.Lock()
	testType := m.state.TestType
	m.mu.Unlock()
	return m.LoadLeaderboard(ctx, testType, filter)
}

// CycleFilter advances 30s -> 60s -> all and reloads.
func (m *Model) CycleFilter(ctx context.Context) error {
	m.mu.Lock()
	next := m.state.Filter.Next()
	m.mu.Unlock()
	return m.SetFilter(ctx, next)
}

// LoadMore appends the next page. It does nothing without more pages, while a
// load is in flight, or once the entry cap is reached.
func (m *Model) LoadMore(ctx context.Context) error {
	m.mu.Lock()
	if !m.state.HasMore || m.state.Loading || m.state.LoadingMore || m.state.Offset >= MaxEntries {
		m.mu.Unlock()
		return nil
	}
	gen := m.gen
	offset := m.state.Offset
	q := gateway.LeaderboardQuery{TestType: m.state.TestType, Limit: PageSize, Offset: offset, Duration: m.state.Filter}
	m.state.LoadingMore = true
	m.mu.Unlock()

	more, err := m.fetch(ctx, q)

	m.mu.Lock()
	defer m.mu.Unlock()
	if gen != m.gen {
		return nil
	}
	m.state.LoadingMore = false
	if err != nil {
		m.logger.Warn(ErrLoadMore, zap.Error(err))
		m.state.Err = ErrLoadMore
		return err
	}
	if len(more) == 0 {
		m.state.HasMore = false
		return nil
	}
	if room := MaxEntries - len(m.state.Entries); len(more) > room {
		more = more[:room]
	}
	m.state.Entries = append(m.state.Entries, more...)
	m.state.Offset = offset + PageSize
	m.state.HasMore = len(more) == PageSize && m.state.Offset < MaxEntries && len(m.state.Entries) < MaxEntries
	return nil
}

// LoadResults replaces the recent results list.
func (m *Model) LoadResults(ctx context.Context) error {
	id, err := m.sessionID(ctx)
	if err != nil {
		m.fail(ErrLoadResults, err)
		return err
	}
	results, err := m.gw.FetchUserResults(ctx, id, RecentLimit)
	if err != nil {
		m.fail(ErrLoadResults, err)
		return err
	}
	m.mu.Lock()
	m.state.Results = results
	m.mu.Unlock()
	return nil
}

// LoadProfile refreshes the profile. A missing profile is normal for new sessions.
func (m *Model) LoadProfile(ctx context.Context) error {
	id, err := m.sessionID(ctx)
	if err != nil {
		m.fail(ErrLoadProfile, err)
		return err
	}
	profile, err := m.gw.FetchProfile(ctx, id)
	if errors.Is(err, backend.ErrNotFound) {
		m.logger.Debug("no profile yet", zap.String("session", id))
		m.mu.Lock()
		m.state.Profile = nil
		m.mu.Unlock()
		return nil
	}
	if err != nil {
		m.fail(ErrLoadProfile, err)
		return err
	}
	m.mu.Lock()
	m.state.Profile = &profile
	m.mu.Unlock()
	return nil
}

// Refresh reloads results, profile and the first leaderboard page in parallel.
func (m *Model) Refresh(ctx context.Context) error {
	m.mu.Lock()
	testType, filter := m.state.TestType, m.state.Filter
	m.mu.Unlock()

	// Loads are independent; one failing must not cancel the others.
	var g errgroup.Group
	g.Go(func() error { return m.LoadResults(ctx) })
	g.Go(func() error { return m.LoadProfile(ctx) })
	g.Go(func() error { return m.LoadLeaderboard(ctx, testType, filter) })
	return g.Wait()
}

// Submit stores a finished attempt and refreshes the views. Failures are
// logged and returned but never recorded as a user-facing error.
func (m *Model) Submit(ctx context.Context, result model.TypingResult) (model.TypingResult, error) {
	stored, err := m.gw.SubmitResult(ctx, result)
	if err != nil {
		m.logger.Error("failed to submit result", zap.Error(err))
		return model.TypingResult{}, err
	}
	if err := m.Refresh(ctx); err != nil {
		m.logger.Warn("refresh after submit failed", zap.Error(err))
	}
	return stored, nil
}

// UpdateDisplayName sets or clears the display name.
// Validation errors are returned for inline display and leave the state untouched.
func (m *Model) UpdateDisplayName(ctx context.Context, name string) error {
	id, err := m.sessionID(ctx)
	if err != nil {
		m.fail(ErrUpdateName, err)
		return err
	}
	profile, err := m.gw.UpsertDisplayName(ctx, id, name)
	if backend.IsValidation(err) {
		return err
	}
	if err != nil {
		m.fail(ErrUpdateName, err)
		return err
	}
	m.mu.Lock()
	m.state.Profile = &profile
	testType, filter := m.state.TestType, m.state.Filter
	m.mu.Unlock()
	if err := m.LoadLeaderboard(ctx, testType, filter); err != nil {
		m.logger.Warn("refresh after name update failed", zap.Error(err))
	}
	return nil
}
