package storage

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gt11799/sync-google-calendar/internal/domain"
)

func newTestStorage(t *testing.T) *Storage {
	t.Helper()
	s, err := New(filepath.Join(t.TempDir(), "sync.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestKVRoundTrip(t *testing.T) {
	s := newTestStorage(t)

	require.NoError(t, s.Set("sync:cal|ev", `{"destinationEventId":"d1"}`))

	v, ok, err := s.Get("sync:cal|ev")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, `{"destinationEventId":"d1"}`, v)
}

func TestKVGetAbsent(t *testing.T) {
	s := newTestStorage(t)

	v, ok, err := s.Get("nope")
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Empty(t, v)
}

func TestKVSetOverwrites(t *testing.T) {
	s := newTestStorage(t)

	require.NoError(t, s.Set("k", "one"))
	require.NoError(t, s.Set("k", "two"))

	v, ok, err := s.Get("k")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "two", v)
}

func TestKVDelete(t *testing.T) {
	s := newTestStorage(t)

	require.NoError(t, s.Set("k", "v"))
	require.NoError(t, s.Delete("k"))
	require.NoError(t, s.Delete("k"), "deleting an absent key is fine")

	_, ok, err := s.Get("k")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestKVListByPrefix(t *testing.T) {
	s := newTestStorage(t)

	require.NoError(t, s.Set("sync:a|1", "v1"))
	require.NoError(t, s.Set("sync:b|2", "v2"))
	require.NoError(t, s.Set("other:c|3", "v3"))

	got, err := s.List("sync:")
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"sync:a|1": "v1", "sync:b|2": "v2"}, got)
}

func TestKVListEscapesLikeMetacharacters(t *testing.T) {
	s := newTestStorage(t)

	require.NoError(t, s.Set("a_b:k", "match"))
	require.NoError(t, s.Set("axb:k", "wildcard bait"))
	require.NoError(t, s.Set("a%b:k", "more bait"))

	got, err := s.List("a_b:")
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"a_b:k": "match"}, got)
}

func TestKVSurvivesReopen(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "sync.db")

	s, err := New(path)
	require.NoError(t, err)
	require.NoError(t, s.Set("k", "v"))
	require.NoError(t, s.Close())

	s2, err := New(path)
	require.NoError(t, err)
	defer s2.Close()

	v, ok, err := s2.Get("k")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "v", v)
}

func TestRunLog(t *testing.T) {
	s := newTestStorage(t)

	started := time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC)
	first := &domain.RunReport{
		StartedAt:        started,
		FinishedAt:       started.Add(40 * time.Second),
		CalendarsScanned: 3,
		EventsSeen:       120,
		Added:            5,
		Updated:          2,
		Deleted:          1,
		Skipped:          112,
		Status:           domain.RunStatusOK,
	}
	second := &domain.RunReport{
		StartedAt:  started.Add(15 * time.Minute),
		FinishedAt: started.Add(16 * time.Minute),
		Errors:     []string{"list events of cal-a: 403"},
		Status:     domain.RunStatusPartial,
	}

	require.NoError(t, s.SaveRun(first))
	require.NoError(t, s.SaveRun(second))

	last, err := s.LastRun()
	require.NoError(t, err)
	require.NotNil(t, last)
	assert.Equal(t, domain.RunStatusPartial, last.Status)
	assert.Equal(t, []string{"list events of cal-a: 403"}, last.Errors)

	runs, err := s.ListRuns(10)
	require.NoError(t, err)
	require.Len(t, runs, 2)
	assert.Equal(t, domain.RunStatusPartial, runs[0].Status, "most recent first")
	assert.Equal(t, domain.RunStatusOK, runs[1].Status)
	assert.Equal(t, 120, runs[1].EventsSeen)
	assert.True(t, runs[1].StartedAt.Equal(started))
}

func TestRunLogLimit(t *testing.T) {
	s := newTestStorage(t)

	for i := 0; i < 5; i++ {
		require.NoError(t, s.SaveRun(&domain.RunReport{
			StartedAt:  time.Now(),
			FinishedAt: time.Now(),
			Status:     domain.RunStatusOK,
		}))
	}

	runs, err := s.ListRuns(3)
	require.NoError(t, err)
	assert.Len(t, runs, 3)
}

func TestLastRunWhenEmpty(t *testing.T) {
	s := newTestStorage(t)

	last, err := s.LastRun()
	require.NoError(t, err)
	assert.Nil(t, last)
}

func TestMigrateIsIdempotent(t *testing.T) {
	s := newTestStorage(t)
	require.NoError(t, s.migrate())
	require.NoError(t, s.migrate())
}
