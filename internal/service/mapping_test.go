package service

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gt11799/sync-google-calendar/internal/domain"
)

func TestMappingStoreRoundTrip(t *testing.T) {
	store := NewMappingStore(newMemKV(), "sync:")
	rec := domain.SyncRecord{DestinationEventID: "dest-9", LastModified: "2026-01-02T03:04:05.000Z"}

	require.NoError(t, store.Put("cal-a", "ev-1", rec))

	got, ok, err := store.Get("cal-a", "ev-1")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, rec, got)
}

func TestMappingStoreAbsentKey(t *testing.T) {
	store := NewMappingStore(newMemKV(), "sync:")

	_, ok, err := store.Get("cal-a", "ev-1")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestMappingStoreKeyLayout(t *testing.T) {
	kv := newMemKV()
	store := NewMappingStore(kv, "sync:")

	require.NoError(t, store.Put("cal-a", "ev-1", domain.SyncRecord{DestinationEventID: "d"}))

	_, ok := kv.data["sync:cal-a|ev-1"]
	assert.True(t, ok, "keys are prefix + calendar id + | + event id")
}

func TestMappingStoreCorruptValueIsAbsent(t *testing.T) {
	kv := newMemKV()
	kv.data["sync:cal-a|ev-1"] = "{not json"
	store := NewMappingStore(kv, "sync:")

	_, ok, err := store.Get("cal-a", "ev-1")
	require.NoError(t, err)
	assert.False(t, ok, "a corrupt record behaves like a missing one")
}

func TestMappingStoreDeleteIsIdempotent(t *testing.T) {
	store := NewMappingStore(newMemKV(), "sync:")

	require.NoError(t, store.Put("cal-a", "ev-1", domain.SyncRecord{DestinationEventID: "d"}))
	require.NoError(t, store.Delete("cal-a", "ev-1"))
	require.NoError(t, store.Delete("cal-a", "ev-1"))

	_, ok, err := store.Get("cal-a", "ev-1")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestMappingStoreList(t *testing.T) {
	kv := newMemKV()
	store := NewMappingStore(kv, "sync:")

	require.NoError(t, store.Put("cal-a", "ev-1", domain.SyncRecord{DestinationEventID: "d1", LastModified: "s1"}))
	require.NoError(t, store.Put("cal-b", "ev-2", domain.SyncRecord{DestinationEventID: "d2", LastModified: "s2"}))

	// Unrelated and broken entries under the prefix are skipped.
	kv.data["sync:no-separator"] = `{"destinationEventId":"x"}`
	kv.data["sync:cal-c|ev-3"] = "{corrupt"
	kv.data["other:cal-d|ev-4"] = `{"destinationEventId":"y"}`

	mappings, err := store.List()
	require.NoError(t, err)
	require.Len(t, mappings, 2)

	byCal := map[string]domain.Mapping{}
	for _, m := range mappings {
		byCal[m.SourceCalendarID] = m
	}
	assert.Equal(t, "ev-1", byCal["cal-a"].SourceEventID)
	assert.Equal(t, "d1", byCal["cal-a"].Record.DestinationEventID)
	assert.Equal(t, "ev-2", byCal["cal-b"].SourceEventID)
	assert.Equal(t, "s2", byCal["cal-b"].Record.LastModified)
}

func TestMappingStoreEventIDMayContainSeparator(t *testing.T) {
	store := NewMappingStore(newMemKV(), "sync:")

	// Only the first separator splits the key, so event ids may carry one.
	require.NoError(t, store.Put("cal-a", "uid|20260101T000000Z", domain.SyncRecord{DestinationEventID: "d"}))

	mappings, err := store.List()
	require.NoError(t, err)
	require.Len(t, mappings, 1)
	assert.Equal(t, "cal-a", mappings[0].SourceCalendarID)
	assert.Equal(t, "uid|20260101T000000Z", mappings[0].SourceEventID)
}
