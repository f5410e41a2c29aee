package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/verte-zerg/typeme/internal/backend"
	"github.com/verte-zerg/typeme/internal/model"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	st, err := OpenSQLite(filepath.Join(t.TempDir(), "typeme.db"))
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = st.Close()
	})
	return st
}

func timed(user string, wpm, duration int) model.TypingResult {
	d := duration
	return model.TypingResult{
		UserID:            user,
		WPM:               wpm,
		Accuracy:          100,
		TestDuration:      &d,
		CharactersTyped:   wpm * 5,
		CorrectCharacters: wpm * 5,
		WordsTyped:        wpm,
		TestType:          model.TestTimed,
	}
}

func TestKV(t *testing.T) {
	st := openTestStore(t)
	ctx := context.Background()

	_, ok, err := st.Get(ctx, "session_id")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, st.Set(ctx, "session_id", "anon_1"))
	require.NoError(t, st.Set(ctx, "session_id", "anon_2"))
	value, ok, err := st.Get(ctx, "session_id")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "anon_2", value)
}

func TestOpenLocalCreatesOnlyKV(t *testing.T) {
	st, err := OpenLocal(filepath.Join(t.TempDir(), "local.db"))
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = st.Close()
	})
	ctx := context.Background()
	require.NoError(t, st.Set(ctx, "session_id", "anon_1"))

	rows, err := st.db.QueryContext(ctx, "SELECT name FROM sqlite_master WHERE type = 'table' ORDER BY name")
	require.NoError(t, err)
	defer rows.Close()
	var tables []string
	for rows.Next() {
		var name string
		require.NoError(t, rows.Scan(&name))
		tables = append(tables, name)
	}
	require.NoError(t, rows.Err())
	assert.Equal(t, []string{"kv"}, tables)
}

func TestInsertResultAssignsIDAndAggregates(t *testing.T) {
	st := openTestStore(t)
	ctx := context.Background()
	base := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)
	tick := 0
	st.now = func() time.Time {
		tick++
		return base.Add(time.Duration(tick) * time.Second)
	}

	first, err := st.InsertResult(ctx, timed("anon_a", 40, 30))
	require.NoError(t, err)
	assert.NotEmpty(t, first.ID)
	assert.Equal(t, base.Add(time.Second), first.CreatedAt)

	_, err = st.InsertResult(ctx, timed("anon_a", 60, 60))
	require.NoError(t, err)
	_, err = st.InsertResult(ctx, timed("anon_a", 50, 30))
	require.NoError(t, err)

	profile, err := st.SelectProfile(ctx, "anon_a")
	require.NoError(t, err)
	assert.Equal(t, 3, profile.TotalTests)
	assert.Equal(t, 60.0, profile.BestWPM)
	assert.InDelta(t, 50.0, profile.AverageWPM, 1e-9)
	assert.Equal(t, 120, profile.TotalTimeTyped)

	assert.Equal(t, 2, profile.TotalTests30s)
	assert.Equal(t, 50.0, profile.BestWPM30s)
	assert.InDelta(t, 45.0, profile.AverageWPM30s, 1e-9)
	assert.Equal(t, 60, profile.TotalTime30s)

	assert.Equal(t, 1, profile.TotalTests60s)
	assert.Equal(t, 60.0, profile.BestWPM60s)
	assert.Equal(t, 60, profile.TotalTime60s)
}

func TestSelectResultsOrderingAndPagination(t *testing.T) {
	st := openTestStore(t)
	ctx := context.Background()
	for i, wpm := range []int{30, 80, 55, 70} {
		_, err := st.InsertResult(ctx, timed("anon_"+string(rune('a'+i)), wpm, 30))
		require.NoError(t, err)
	}
	_, err := st.InsertResult(ctx, timed("anon_z", 99, 60))
	require.NoError(t, err)

	page, err := st.SelectResults(ctx, backend.ResultQuery{
		TestType: model.TestTimed,
		Duration: 30,
		Order:    backend.OrderWPM,
		Limit:    2,
		Offset:   1,
	})
	require.NoError(t, err)
	require.Len(t, page, 2)
	assert.Equal(t, 70, page[0].WPM)
	assert.Equal(t, 55, page[1].WPM)
	require.NotNil(t, page[0].TestDuration)
	assert.Equal(t, 30, *page[0].TestDuration)

	all, err := st.SelectResults(ctx, backend.ResultQuery{TestType: model.TestTimed, Order: backend.OrderWPM, Limit: 10})
	require.NoError(t, err)
	require.Len(t, all, 5)
	assert.Equal(t, 99, all[0].WPM)
}

func TestSelectResultsNewestFirstForUser(t *testing.T) {
	st := openTestStore(t)
	ctx := context.Background()
	base := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	tick := 0
	st.now = func() time.Time {
		tick++
		return base.Add(time.Duration(tick) * time.Minute)
	}
	for _, wpm := range []int{10, 20, 30} {
		_, err := st.InsertResult(ctx, timed("anon_me", wpm, 30))
		require.NoError(t, err)
	}
	_, err := st.InsertResult(ctx, timed("anon_other", 99, 30))
	require.NoError(t, err)

	results, err := st.SelectResults(ctx, backend.ResultQuery{UserID: "anon_me", Order: backend.OrderNewest, Limit: 2})
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, 30, results[0].WPM)
	assert.Equal(t, 20, results[1].WPM)
}

func TestWordsResultHasNoDuration(t *testing.T) {
	st := openTestStore(t)
	ctx := context.Background()
	_, err := st.InsertResult(ctx, model.TypingResult{
		UserID: "anon_w", WPM: 42, Accuracy: 97.5, CharactersTyped: 120, CorrectCharacters: 117,
		WordsTyped: 23, TestType: model.TestWords,
	})
	require.NoError(t, err)

	results, err := st.SelectResults(ctx, backend.ResultQuery{UserID: "anon_w"})
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Nil(t, results[0].TestDuration)
	assert.Equal(t, model.TestWords, results[0].TestType)

	profile, err := st.SelectProfile(ctx, "anon_w")
	require.NoError(t, err)
	assert.Equal(t, 1, profile.TotalTests)
	assert.Equal(t, 0, profile.TotalTests30s)
	assert.Equal(t, 0, profile.TotalTests60s)
}

func TestProfileUpsertAndNames(t *testing.T) {
	st := openTestStore(t)
	ctx := context.Background()

	_, err := st.SelectProfile(ctx, "anon_new")
	assert.ErrorIs(t, err, backend.ErrNotFound)

	name := "speedy"
	now := time.Date(2025, 2, 3, 4, 5, 6, 0, time.UTC)
	require.NoError(t, st.UpsertProfile(ctx, backend.ProfileUpdate{ID: "anon_new", DisplayName: &name, UpdatedAt: now}))

	profile, err := st.SelectProfile(ctx, "anon_new")
	require.NoError(t, err)
	assert.Equal(t, "speedy", profile.Name())
	assert.Equal(t, now, profile.UpdatedAt)

	require.NoError(t, st.UpsertProfile(ctx, backend.ProfileUpdate{ID: "anon_new", UpdatedAt: now.Add(time.Hour)}))
	profile, err = st.SelectProfile(ctx, "anon_new")
	require.NoError(t, err)
	assert.Nil(t, profile.DisplayName)
	assert.Equal(t, now, profile.CreatedAt)

	require.NoError(t, st.UpsertProfile(ctx, backend.ProfileUpdate{ID: "anon_named", DisplayName: &name, UpdatedAt: now}))
	names, err := st.SelectDisplayNames(ctx, []string{"anon_new", "anon_named", "anon_missing"})
	require.NoError(t, err)
	assert.Len(t, names, 2)
	assert.Nil(t, names["anon_new"])
	require.NotNil(t, names["anon_named"])
	assert.Equal(t, "speedy", *names["anon_named"])
}

func TestRebindPostgres(t *testing.T) {
	st := &Store{driver: DriverPostgres}
	assert.Equal(t, "SELECT a FROM t WHERE x = $1 AND y IN ($2,$3)", st.rebind("SELECT a FROM t WHERE x = ? AND y IN ("+placeholders(2)+")"))
	sqlite := &Store{driver: DriverSQLite}
	assert.Equal(t, "x = ?", sqlite.rebind("x = ?"))
}
