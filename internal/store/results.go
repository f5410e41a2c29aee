package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/verte-zerg/typeme/internal/backend"
	"github.com/verte-zerg/typeme/internal/model"
)

const resultColumns = `id, user_id, wpm, accuracy, test_duration, characters_typed, correct_characters, words_typed, test_type, created_at`

const profileColumns = `id, display_name, total_tests, best_wpm, average_wpm, total_time_typed,
	total_tests_30s, best_wpm_30s, average_wpm_30s, total_time_30s,
	total_tests_60s, best_wpm_60s, average_wpm_60s, total_time_60s,
	created_at, updated_at`

var _ backend.Backend = (*Store)(nil)

// InsertResult stores a result and folds it into the owner's profile counters.
func (s *Store) InsertResult(ctx context.Context, result model.TypingResult) (_ model.TypingResult, err error) {
	result.ID = uuid.NewString()
	result.CreatedAt = s.now().UTC()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return model.TypingResult{}, backend.Wrap("insert result", err)
	}
	defer func() {
		if err != nil {
			if rerr := tx.Rollback(); rerr != nil {
				// Best-effort rollback.
				_ = rerr
			}
		}
	}()

	var duration sql.NullInt64
	if result.TestDuration != nil {
		duration = sql.NullInt64{Int64: int64(*result.TestDuration), Valid: true}
	}
	_, err = tx.ExecContext(ctx, s.rebind(`INSERT INTO typing_results (`+resultColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`),
		result.ID,
		result.UserID,
		result.WPM,
		result.Accuracy,
		duration,
		result.CharactersTyped,
		result.CorrectCharacters,
		result.WordsTyped,
		string(result.TestType),
		formatTime(result.CreatedAt),
	)
	if err != nil {
		return model.TypingResult{}, backend.Wrap("insert result", err)
	}
	if err = s.aggregate(ctx, tx, result); err != nil {
		return model.TypingResult{}, backend.Wrap("aggregate profile", err)
	}
	if err = tx.Commit(); err != nil {
		return model.TypingResult{}, backend.Wrap("insert result", err)
	}
	return result, nil
}

func (s *Store) aggregate(ctx context.Context, tx *sql.Tx, result model.TypingResult) error {
	stamp := formatTime(result.CreatedAt)
	if _, err := tx.ExecContext(ctx, s.rebind(`INSERT INTO profiles (id, created_at, updated_at)
		VALUES (?, ?, ?) ON CONFLICT(id) DO NOTHING`), result.UserID, stamp, stamp); err != nil {
		return err
	}
	profile, err := scanProfile(tx.QueryRowContext(ctx, s.rebind(`SELECT `+profileColumns+` FROM profiles WHERE id = ?`), result.UserID))
	if err != nil {
		return err
	}
	ApplyResult(&profile, result)
	_, err = tx.ExecContext(ctx, s.rebind(`UPDATE profiles SET
		total_tests = ?, best_wpm = ?, average_wpm = ?, total_time_typed = ?,
		total_tests_30s = ?, best_wpm_30s = ?, average_wpm_30s = ?, total_time_30s = ?,
		total_tests_60s = ?, best_wpm_60s = ?, average_wpm_60s = ?, total_time_60s = ?,
		updated_at = ?
		WHERE id = ?`),
		profile.TotalTests, profile.BestWPM, profile.AverageWPM, profile.TotalTimeTyped,
		profile.TotalTests30s, profile.BestWPM30s, profile.AverageWPM30s, profile.TotalTime30s,
		profile.TotalTests60s, profile.BestWPM60s, profile.AverageWPM60s, profile.TotalTime60s,
		stamp,
		result.UserID,
	)
	return err
}

// ApplyResult folds one result into the combined and per-duration counters.
func ApplyResult(p *model.UserProfile, r model.TypingResult) {
	wpm := float64(r.WPM)
	duration := r.Duration()
	foldScope(&p.TotalTests, &p.BestWPM, &p.AverageWPM, &p.TotalTimeTyped, wpm, duration)
	switch duration {
	case model.Duration30:
		foldScope(&p.TotalTests30s, &p.BestWPM30s, &p.AverageWPM30s, &p.TotalTime30s, wpm, duration)
	case model.Duration60:
		foldScope(&p.TotalTests60s, &p.BestWPM60s, &p.AverageWPM60s, &p.TotalTime60s, wpm, duration)
	}
}

func foldScope(total *int, best, avg *float64, totalTime *int, wpm float64, duration int) {
	*avg = (*avg*float64(*total) + wpm) / float64(*total+1)
	*total++
	if wpm > *best {
		*best = wpm
	}
	*totalTime += duration
}

// SelectResults returns results filtered, ordered and paginated by q.
func (s *Store) SelectResults(ctx context.Context, q backend.ResultQuery) ([]model.TypingResult, error) {
	clauses := []string{"1=1"}
	args := []any{}
	if q.UserID != "" {
		clauses = append(clauses, "user_id = ?")
		args = append(args, q.UserID)
	}
	if q.TestType != "" {
		clauses = append(clauses, "test_type = ?")
		args = append(args, string(q.TestType))
	}
	if q.Duration > 0 {
		clauses = append(clauses, "test_duration = ?")
		args = append(args, q.Duration)
	}
	order := "created_at DESC"
	if q.Order == backend.OrderWPM {
		order = "wpm DESC, created_at ASC"
	}
	query := fmt.Sprintf(`SELECT %s FROM typing_results WHERE %s ORDER BY %s`,
		resultColumns, strings.Join(clauses, " AND "), order)
	if q.Limit > 0 {
		query += " LIMIT ? OFFSET ?"
		args = append(args, q.Limit, q.Offset)
	}
	rows, err := s.db.QueryContext(ctx, s.rebind(query), args...)
	if err != nil {
		return nil, backend.Wrap("select results", err)
	}
	defer func() {
		if cerr := rows.Close(); cerr != nil {
			// Best-effort rows close.
			_ = cerr
		}
	}()

	var results []model.TypingResult
	for rows.Next() {
		var r model.TypingResult
		var duration sql.NullInt64
		var testType, createdAt string
		if err := rows.Scan(&r.ID, &r.UserID, &r.WPM, &r.Accuracy, &duration, &r.CharactersTyped,
			&r.CorrectCharacters, &r.WordsTyped, &testType, &createdAt); err != nil {
			return nil, backend.Wrap("select results", err)
		}
		if duration.Valid {
			d := int(duration.Int64)
			r.TestDuration = &d
		}
		r.TestType = model.TestType(testType)
		parsed, err := parseTime(createdAt)
		if err != nil {
			return nil, backend.Wrap("select results", err)
		}
		r.CreatedAt = parsed
		results = append(results, r)
	}
	if err := rows.Err(); err != nil {
		return nil, backend.Wrap("select results", err)
	}
	return results, nil
}

// SelectDisplayNames returns display names keyed by profile id for the ids that have a profile.
func (s *Store) SelectDisplayNames(ctx context.Context, ids []string) (map[string]*string, error) {
	names := map[string]*string{}
	if len(ids) == 0 {
		return names, nil
	}
	args := make([]any, len(ids))
	for i, id := range ids {
		args[i] = id
	}
	query := fmt.Sprintf(`SELECT id, display_name FROM profiles WHERE id IN (%s)`, placeholders(len(ids)))
	rows, err := s.db.QueryContext(ctx, s.rebind(query), args...)
	if err != nil {
		return nil, backend.Wrap("select display names", err)
	}
	defer func() {
		if cerr := rows.Close(); cerr != nil {
			// Best-effort rows close.
			_ = cerr
		}
	}()
	for rows.Next() {
		var id string
		var name sql.NullString
		if err := rows.Scan(&id, &name); err != nil {
			return nil, backend.Wrap("select display names", err)
		}
		if name.Valid {
			v := name.String
			names[id] = &v
		} else {
			names[id] = nil
		}
	}
	if err := rows.Err(); err != nil {
		return nil, backend.Wrap("select display names", err)
	}
	return names, nil
}

// SelectProfile returns the profile for id or backend.ErrNotFound.
func (s *Store) SelectProfile(ctx context.Context, id string) (model.UserProfile, error) {
	row := s.db.QueryRowContext(ctx, s.rebind(`SELECT `+profileColumns+` FROM profiles WHERE id = ?`), id)
	profile, err := scanProfile(row)
	if errors.Is(err, sql.ErrNoRows) {
		return model.UserProfile{}, backend.ErrNotFound
	}
	if err != nil {
		return model.UserProfile{}, backend.Wrap("select profile", err)
	}
	return profile, nil
}

// UpsertProfile creates the profile or updates its display name and timestamp.
func (s *Store) UpsertProfile(ctx context.Context, update backend.ProfileUpdate) error {
	stamp := formatTime(update.UpdatedAt)
	var name sql.NullString
	if update.DisplayName != nil {
		name = sql.NullString{String: *update.DisplayName, Valid: true}
	}
	_, err := s.db.ExecContext(ctx, s.rebind(`INSERT INTO profiles (id, display_name, created_at, updated_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET display_name = excluded.display_name, updated_at = excluded.updated_at`),
		update.ID, name, stamp, stamp)
	return backend.Wrap("upsert profile", err)
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanProfile(row rowScanner) (model.UserProfile, error) {
	var p model.UserProfile
	var name sql.NullString
	var createdAt, updatedAt string
	err := row.Scan(&p.ID, &name,
		&p.TotalTests, &p.BestWPM, &p.AverageWPM, &p.TotalTimeTyped,
		&p.TotalTests30s, &p.BestWPM30s, &p.AverageWPM30s, &p.TotalTime30s,
		&p.TotalTests60s, &p.BestWPM60s, &p.AverageWPM60s, &p.TotalTime60s,
		&createdAt, &updatedAt)
	if err != nil {
		return model.UserProfile{}, err
	}
	if name.Valid {
		v := name.String
		p.DisplayName = &v
	}
	if p.CreatedAt, err = parseTime(createdAt); err != nil {
		return model.UserProfile{}, err
	}
	if p.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return model.UserProfile{}, err
	}
	return p, nil
}
