package service

import (
	"encoding/json"
	"fmt"
	"log"
	"strings"

	"github.com/gt11799/sync-google-calendar/internal/domain"
)

// PropertyStore is the key/value surface the mapping store persists through.
// *storage.Storage satisfies it.
type PropertyStore interface {
	Get(key string) (string, bool, error)
	Set(key, value string) error
	Delete(key string) error
	List(prefix string) (map[string]string, error)
}

// MappingStore records which destination event each source event was
// translated into. Keys are namespaced with a fixed prefix so the mappings
// can share the store with unrelated properties.
type MappingStore struct {
	kv     PropertyStore
	prefix string
}

func NewMappingStore(kv PropertyStore, prefix string) *MappingStore {
	return &MappingStore{kv: kv, prefix: prefix}
}

func (m *MappingStore) key(calendarID, eventID string) string {
	return m.prefix + calendarID + "|" + eventID
}

// Get returns the sync record for the source event, if one exists. A stored
// value that no longer parses is treated as absent so the event gets
// re-created instead of wedging the run.
func (m *MappingStore) Get(calendarID, eventID string) (domain.SyncRecord, bool, error) {
	raw, ok, err := m.kv.Get(m.key(calendarID, eventID))
	if err != nil || !ok {
		return domain.SyncRecord{}, false, err
	}

	var rec domain.SyncRecord
	if err := json.Unmarshal([]byte(raw), &rec); err != nil {
		log.Printf("Mapping for %s/%s is corrupt, ignoring: %v", calendarID, eventID, err)
		return domain.SyncRecord{}, false, nil
	}
	return rec, true, nil
}

func (m *MappingStore) Put(calendarID, eventID string, rec domain.SyncRecord) error {
	raw, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("marshal sync record: %w", err)
	}
	return m.kv.Set(m.key(calendarID, eventID), string(raw))
}

func (m *MappingStore) Delete(calendarID, eventID string) error {
	return m.kv.Delete(m.key(calendarID, eventID))
}

// List returns every stored mapping. Entries whose key or value no longer
// parse are skipped.
func (m *MappingStore) List() ([]domain.Mapping, error) {
	pairs, err := m.kv.List(m.prefix)
	if err != nil {
		return nil, err
	}

	out := make([]domain.Mapping, 0, len(pairs))
	for k, v := range pairs {
		parts := strings.SplitN(strings.TrimPrefix(k, m.prefix), "|", 2)
		if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
			log.Printf("Skipping malformed mapping key %q", k)
			continue
		}

		var rec domain.SyncRecord
		if err := json.Unmarshal([]byte(v), &rec); err != nil {
			log.Printf("Mapping for %s/%s is corrupt, skipping: %v", parts[0], parts[1], err)
			continue
		}

		out = append(out, domain.Mapping{
			SourceCalendarID: parts[0],
			SourceEventID:    parts[1],
			Record:           rec,
		})
	}
	return out, nil
}
