// Package gateway is the typed request layer over the backend data service.
package gateway

import (
	"context"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"go.uber.org/zap"

	"github.com/verte-zerg/typeme/internal/backend"
	"github.com/verte-zerg/typeme/internal/model"
	"github.com/verte-zerg/typeme/internal/ranking"
)

// Defaults for paginated reads.
const (
	DefaultLimit      = 10
	MaxDisplayNameLen = 30
)

// Identity supplies the caller's session and mirrors the display name locally.
type Identity interface {
	SessionID(ctx context.Context) (string, error)
	SetDisplayName(ctx context.Context, name string) error
}

// Ranker is a backend-side best-score-per-session aggregation.
type Ranker interface {
	Record(ctx context.Context, result model.TypingResult) error
	Top(ctx context.Context, testType model.TestType, filter model.DurationFilter, limit, offset int) ([]ranking.Entry, error)
	Count(ctx context.Context, testType model.TestType, filter model.DurationFilter) (int64, error)
	Backfill(ctx context.Context, testType model.TestType, filter model.DurationFilter, results []model.TypingResult) error
}

// LeaderboardQuery selects one leaderboard page.
type LeaderboardQuery struct {
	TestType model.TestType
	Limit    int
	Offset   int
	Duration model.DurationFilter
}

func (q LeaderboardQuery) normalized() LeaderboardQuery {
	if q.TestType == "" {
		q.TestType = model.TestTimed
	}
	if q.Limit <= 0 {
		q.Limit = DefaultLimit
	}
	if q.Offset < 0 {
		q.Offset = 0
	}
	return q
}

// Gateway shapes requests to the backend and joins display names.
type Gateway struct {
	backend  backend.Backend
	identity Identity
	ranker   Ranker
	logger   *zap.Logger
	now      func() time.Time
}

// Option configures a Gateway.
type Option func(*Gateway)

// WithRanker enables backend-side best score aggregation.
func WithRanker(r Ranker) Option {
	return func(g *Gateway) { g.ranker = r }
}

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(g *Gateway) { g.logger = l }
}

// New returns a Gateway.
func New(b backend.Backend, id Identity, opts ...Option) *Gateway {
	g := &Gateway{
		backend:  b,
		identity: id,
		logger:   zap.NewNop(),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// SessionID returns the caller's session identifier.
func (g *Gateway) SessionID(ctx context.Context) (string, error) {
	return g.identity.SessionID(ctx)
}

// SubmitResult persists a finished attempt owned by the caller's session.
func (g *Gateway) SubmitResult(ctx context.Context, result model.TypingResult) (model.TypingResult, error) {
	if result.UserID == "" {
		id, err := g.identity.SessionID(ctx)
		if err != nil {
			return model.TypingResult{}, err
		}
		result.UserID = id
	}
	if err := validateResult(result); err != nil {
		return model.TypingResult{}, err
	}
	result.ID = ""
	result.CreatedAt = time.Time{}
	stored, err := g.backend.InsertResult(ctx, result)
	if err != nil {
		return model.TypingResult{}, backend.Wrap("insert result", err)
	}
	if g.ranker != nil {
		if err := g.ranker.Record(ctx, stored); err != nil {
			g.logger.Warn("failed to record best score", zap.String("session", stored.UserID), zap.Error(err))
		}
	}
	g.logger.Info("result submitted",
		zap.String("session", stored.UserID),
		zap.Int("wpm", stored.WPM),
		zap.Float64("accuracy", stored.Accuracy),
		zap.Int("duration", stored.Duration()))
	return stored, nil
}

func validateResult(r model.TypingResult) error {
	switch {
	case !r.TestType.Valid():
		return &backend.ValidationError{Field: "test_type", Message: fmt.Sprintf("unknown test type %q", r.TestType)}
	case r.WPM < 0:
		return &backend.ValidationError{Field: "wpm", Message: "wpm must be non-negative"}
	case r.CorrectCharacters < 0 || r.CorrectCharacters > r.CharactersTyped:
		return &backend.ValidationError{Field: "correct_characters", Message: "correct characters must be between 0 and characters typed"}
	case r.Accuracy < 0 || r.Accuracy > 100:
		return &backend.ValidationError{Field: "accuracy", Message: "accuracy must be between 0 and 100"}
	}
	return nil
}

// FetchUserResults returns the session's results, newest first.
func (g *Gateway) FetchUserResults(ctx context.Context, sessionID string, limit int) ([]model.TypingResult, error) {
	if limit <= 0 {
		limit = DefaultLimit
	}
	results, err := g.backend.SelectResults(ctx, backend.ResultQuery{
		UserID: sessionID,
		Order:  backend.OrderNewest,
		Limit:  limit,
	})
	if err != nil {
		return nil, backend.Wrap("select results", err)
	}
	return results, nil
}

// FetchLeaderboard returns one page of results ranked by WPM with display names attached.
func (g *Gateway) FetchLeaderboard(ctx context.Context, q LeaderboardQuery) ([]model.LeaderboardEntry, error) {
	q = q.normalized()
	results, err := g.backend.SelectResults(ctx, backend.ResultQuery{
		TestType: q.TestType,
		Duration: int(q.Duration),
		Order:    backend.OrderWPM,
		Limit:    q.Limit,
		Offset:   q.Offset,
	})
	if err != nil {
		return nil, backend.Wrap("select leaderboard", err)
	}
	return g.join(ctx, results)
}

// FetchBestLeaderboard returns one page with only the best result per session.
// Without a ranker, or while the ranker's scope is still empty, it ranks the
// full result set client-side and seeds the ranker from it.
func (g *Gateway) FetchBestLeaderboard(ctx context.Context, q LeaderboardQuery) ([]model.LeaderboardEntry, error) {
	q = q.normalized()
	seed := false
	if g.ranker != nil {
		n, err := g.ranker.Count(ctx, q.TestType, q.Duration)
		switch {
		case err != nil:
			g.logger.Warn("best score ranking unavailable, ranking client-side", zap.Error(err))
		case n == 0:
			seed = true
		default:
			entries, err := g.rankedPage(ctx, q)
			if err == nil {
				return entries, nil
			}
			g.logger.Warn("best score ranking unavailable, ranking client-side", zap.Error(err))
		}
	}
	all, err := g.backend.SelectResults(ctx, backend.ResultQuery{
		TestType: q.TestType,
		Duration: int(q.Duration),
		Order:    backend.OrderWPM,
	})
	if err != nil {
		return nil, backend.Wrap("select leaderboard", err)
	}
	best := BestPerSession(all)
	if seed && len(best) > 0 {
		if err := g.ranker.Backfill(ctx, q.TestType, q.Duration, best); err != nil {
			g.logger.Warn("failed to backfill best scores", zap.Error(err))
		} else {
			g.logger.Info("backfilled best scores",
				zap.String("test_type", string(q.TestType)),
				zap.String("scope", q.Duration.String()),
				zap.Int("sessions", len(best)))
		}
	}
	return g.join(ctx, paginate(best, q.Offset, q.Limit))
}

func (g *Gateway) rankedPage(ctx context.Context, q LeaderboardQuery) ([]model.LeaderboardEntry, error) {
	ranked, err := g.ranker.Top(ctx, q.TestType, q.Duration, q.Limit, q.Offset)
	if err != nil {
		return nil, err
	}
	results := make([]model.TypingResult, len(ranked))
	for i, r := range ranked {
		results[i] = model.TypingResult{UserID: r.SessionID, WPM: r.WPM, TestType: q.TestType}
		if q.Duration != model.FilterAll {
			d := int(q.Duration)
			results[i].TestDuration = &d
		}
	}
	return g.join(ctx, results)
}

// join attaches display names from one batched profile lookup.
func (g *Gateway) join(ctx context.Context, results []model.TypingResult) ([]model.LeaderboardEntry, error) {
	entries := make([]model.LeaderboardEntry, len(results))
	if len(results) == 0 {
		return entries, nil
	}
	ids := DistinctSessions(results)
	names, err := g.backend.SelectDisplayNames(ctx, ids)
	if err != nil {
		return nil, backend.Wrap("select display names", err)
	}
	for i, r := range results {
		entries[i] = model.LeaderboardEntry{TypingResult: r, DisplayName: names[r.UserID]}
	}
	return entries, nil
}

// FetchProfile returns the profile for sessionID or backend.ErrNotFound.
func (g *Gateway) FetchProfile(ctx context.Context, sessionID string) (model.UserProfile, error) {
	profile, err := g.backend.SelectProfile(ctx, sessionID)
	if err != nil {
		return model.UserProfile{}, backend.Wrap("select profile", err)
	}
	return profile, nil
}

// ValidateDisplayName trims name and checks its length. An empty result clears the name.
func ValidateDisplayName(name string) (string, error) {
	trimmed := strings.TrimSpace(name)
	if utf8.RuneCountInString(trimmed) > MaxDisplayNameLen {
		return "", &backend.ValidationError{
			Field:   "display_name",
			Message: fmt.Sprintf("Display name must be between 1 and %d characters", MaxDisplayNameLen),
		}
	}
	return trimmed, nil
}

// UpsertDisplayName sets or clears the session's display name and returns the refreshed profile.
func (g *Gateway) UpsertDisplayName(ctx context.Context, sessionID, name string) (model.UserProfile, error) {
	trimmed, err := ValidateDisplayName(name)
	if err != nil {
		return model.UserProfile{}, err
	}
	update := backend.ProfileUpdate{ID: sessionID, UpdatedAt: g.now().UTC()}
	if trimmed != "" {
		update.DisplayName = &trimmed
	}
	if err := g.backend.UpsertProfile(ctx, update); err != nil {
		return model.UserProfile{}, backend.Wrap("upsert profile", err)
	}
	if err := g.identity.SetDisplayName(ctx, trimmed); err != nil {
		g.logger.Warn("failed to mirror display name", zap.Error(err))
	}
	return g.FetchProfile(ctx, sessionID)
}
