// Package ranking keeps best-score-per-session sorted sets in Redis.
package ranking

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/verte-zerg/typeme/internal/model"
)

const keyPrefix = "typeme:best"

// Entry is one ranked session.
type Entry struct {
	SessionID string
	WPM       int
}

// Ranker stores the highest WPM per session for each test type and duration scope.
type Ranker struct {
	rdb *redis.Client
}

// Config holds Redis connection settings.
type Config struct {
	Addr        string
	Password    string
	DB          int
	DialTimeout time.Duration
}

// New connects to Redis and verifies the connection.
func New(ctx context.Context, cfg Config) (*Ranker, error) {
	dial := cfg.DialTimeout
	if dial <= 0 {
		dial = 5 * time.Second
	}
	rdb := redis.NewClient(&redis.Options{
		Addr:        cfg.Addr,
		Password:    cfg.Password,
		DB:          cfg.DB,
		DialTimeout: dial,
	})
	pingCtx, cancel := context.WithTimeout(ctx, dial)
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		if cerr := rdb.Close(); cerr != nil {
			// Best-effort close on failed ping.
			_ = cerr
		}
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}
	return &Ranker{rdb: rdb}, nil
}

// NewWithClient wraps an existing client.
func NewWithClient(rdb *redis.Client) *Ranker {
	return &Ranker{rdb: rdb}
}

// Close closes the Redis client.
func (r *Ranker) Close() error {
	return r.rdb.Close()
}

// Key returns the sorted set key for a test type and duration filter.
func Key(testType model.TestType, filter model.DurationFilter) string {
	return fmt.Sprintf("%s:%s:%s", keyPrefix, testType, filter)
}

// Record raises the session's best score in the combined and duration scopes.
// Lower scores never replace a higher one.
func (r *Ranker) Record(ctx context.Context, result model.TypingResult) error {
	member := redis.Z{Score: float64(result.WPM), Member: result.UserID}
	pipe := r.rdb.Pipeline()
	pipe.ZAddGT(ctx, Key(result.TestType, model.FilterAll), member)
	if d := model.DurationFilter(result.Duration()); d == model.Filter30 || d == model.Filter60 {
		pipe.ZAddGT(ctx, Key(result.TestType, d), member)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to record best score: %w", err)
	}
	return nil
}

// Count returns the number of ranked sessions in a scope.
func (r *Ranker) Count(ctx context.Context, testType model.TestType, filter model.DurationFilter) (int64, error) {
	n, err := r.rdb.ZCard(ctx, Key(testType, filter)).Result()
	if err != nil {
		return 0, fmt.Errorf("failed to count best scores: %w", err)
	}
	return n, nil
}

// Backfill seeds one scope from existing results, keeping each session's highest WPM.
func (r *Ranker) Backfill(ctx context.Context, testType model.TestType, filter model.DurationFilter, results []model.TypingResult) error {
	if len(results) == 0 {
		return nil
	}
	members := make([]redis.Z, 0, len(results))
	for _, res := range results {
		members = append(members, redis.Z{Score: float64(res.WPM), Member: res.UserID})
	}
	if err := r.rdb.ZAddGT(ctx, Key(testType, filter), members...).Err(); err != nil {
		return fmt.Errorf("failed to backfill best scores: %w", err)
	}
	return nil
}

// Top returns ranked sessions, highest WPM first.
func (r *Ranker) Top(ctx context.Context, testType model.TestType, filter model.DurationFilter, limit, offset int) ([]Entry, error) {
	if limit <= 0 {
		return nil, nil
	}
	start := int64(offset)
	stop := start + int64(limit) - 1
	zs, err := r.rdb.ZRevRangeWithScores(ctx, Key(testType, filter), start, stop).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read best scores: %w", err)
	}
	entries := make([]Entry, 0, len(zs))
	for _, z := range zs {
		id, ok := z.Member.(string)
		if !ok {
			continue
		}
		entries = append(entries, Entry{SessionID: id, WPM: int(z.Score)})
	}
	return entries, nil
}
