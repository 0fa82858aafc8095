package service

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/gt11799/sync-google-calendar/internal/domain"
)

// memKV is an in-memory PropertyStore.
type memKV struct {
	data   map[string]string
	getErr error
	setErr error
}

func newMemKV() *memKV {
	return &memKV{data: make(map[string]string)}
}

func (m *memKV) Get(key string) (string, bool, error) {
	if m.getErr != nil {
		return "", false, m.getErr
	}
	v, ok := m.data[key]
	return v, ok, nil
}

func (m *memKV) Set(key, value string) error {
	if m.setErr != nil {
		return m.setErr
	}
	m.data[key] = value
	return nil
}

func (m *memKV) Delete(key string) error {
	delete(m.data, key)
	return nil
}

func (m *memKV) List(prefix string) (map[string]string, error) {
	out := make(map[string]string)
	for k, v := range m.data {
		if strings.HasPrefix(k, prefix) {
			out[k] = v
		}
	}
	return out, nil
}

// fakeCalendar is a scripted CalendarClient. Destination events live in
// inserted, keyed by generated ids, so tests can watch the merged calendar
// converge.
type fakeCalendar struct {
	calendars        []domain.CalendarInfo
	calendarPageSize int
	events           map[string][]domain.SourceEvent
	eventPageSize    int

	destID        string
	findErr       error
	listCalErr    error
	listEventsErr map[string]error
	insertErr     error
	insertErrFor  map[string]error // source event id -> error
	patchErr      map[string]error // destination event id -> error
	removeErr     map[string]error

	inserted map[string]domain.MergedEvent
	nextID   int

	insertCalls     int
	patchCalls      int
	removeCalls     int
	listEventsCalls int

	lastFrom   time.Time
	lastTo     time.Time
	lastExpand bool
}

func newFakeCalendar() *fakeCalendar {
	return &fakeCalendar{
		events:        make(map[string][]domain.SourceEvent),
		listEventsErr: make(map[string]error),
		insertErrFor:  make(map[string]error),
		patchErr:      make(map[string]error),
		removeErr:     make(map[string]error),
		inserted:      make(map[string]domain.MergedEvent),
		destID:        "dest-1",
	}
}

func (f *fakeCalendar) ListCalendars(ctx context.Context, pageToken string) (CalendarPage, error) {
	if f.listCalErr != nil {
		return CalendarPage{}, f.listCalErr
	}
	items, next, err := pageOf(f.calendars, f.calendarPageSize, pageToken)
	if err != nil {
		return CalendarPage{}, err
	}
	return CalendarPage{Items: items, NextPageToken: next}, nil
}

func (f *fakeCalendar) ListEvents(ctx context.Context, calendarID string, from, to time.Time, expand bool, pageToken string) (EventPage, error) {
	f.listEventsCalls++
	f.lastFrom, f.lastTo, f.lastExpand = from, to, expand
	if err := f.listEventsErr[calendarID]; err != nil {
		return EventPage{}, err
	}
	items, next, err := pageOf(f.events[calendarID], f.eventPageSize, pageToken)
	if err != nil {
		return EventPage{}, err
	}
	return EventPage{Items: items, NextPageToken: next}, nil
}

func (f *fakeCalendar) InsertEvent(ctx context.Context, calendarID string, ev domain.MergedEvent) (string, error) {
	f.insertCalls++
	if f.insertErr != nil {
		return "", f.insertErr
	}
	if err := f.insertErrFor[ev.SourceEventID]; err != nil {
		return "", err
	}
	f.nextID++
	id := fmt.Sprintf("dest-ev-%d", f.nextID)
	f.inserted[id] = ev
	return id, nil
}

func (f *fakeCalendar) PatchEvent(ctx context.Context, calendarID, eventID string, ev domain.MergedEvent) error {
	f.patchCalls++
	if err := f.patchErr[eventID]; err != nil {
		return err
	}
	if _, ok := f.inserted[eventID]; !ok {
		return fmt.Errorf("patch %s: %w", eventID, ErrNotFound)
	}
	f.inserted[eventID] = ev
	return nil
}

func (f *fakeCalendar) RemoveEvent(ctx context.Context, calendarID, eventID string) error {
	f.removeCalls++
	if err := f.removeErr[eventID]; err != nil {
		return err
	}
	if _, ok := f.inserted[eventID]; !ok {
		return fmt.Errorf("remove %s: %w", eventID, ErrNotFound)
	}
	delete(f.inserted, eventID)
	return nil
}

func (f *fakeCalendar) FindOrCreateCalendarByName(ctx context.Context, name string) (string, error) {
	if f.findErr != nil {
		return "", f.findErr
	}
	return f.destID, nil
}

// pageOf slices items into fixed-size pages addressed by numeric tokens.
func pageOf[T any](items []T, size int, token string) ([]T, string, error) {
	start := 0
	if token != "" {
		n, err := strconv.Atoi(token)
		if err != nil {
			return nil, "", fmt.Errorf("bad page token %q", token)
		}
		start = n
	}
	if size <= 0 || start+size >= len(items) {
		return items[start:], "", nil
	}
	return items[start : start+size], strconv.Itoa(start + size), nil
}

func srcEvent(calendarID, id, updated string) domain.SourceEvent {
	start := time.Date(2026, 3, 14, 10, 0, 0, 0, time.UTC)
	return domain.SourceEvent{
		ID:         id,
		CalendarID: calendarID,
		Status:     domain.StatusConfirmed,
		Summary:    "Event " + id,
		StartTime:  start,
		EndTime:    start.Add(time.Hour),
		Updated:    updated,
	}
}
