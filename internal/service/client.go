package service

import (
	"context"
	"errors"
	"time"

	"github.com/gt11799/sync-google-calendar/internal/domain"
)

// ErrNotFound reports that the event addressed by a patch or remove no
// longer exists on the destination calendar.
var ErrNotFound = errors.New("event not found")

// CalendarPage is one page of a calendar listing.
type CalendarPage struct {
	Items         []domain.CalendarInfo
	NextPageToken string
}

// EventPage is one page of an event listing.
type EventPage struct {
	Items         []domain.SourceEvent
	NextPageToken string
}

// CalendarClient is the provider surface the sync engine runs against.
// Implementations exist for the Google Calendar API and for CalDAV servers.
type CalendarClient interface {
	// ListCalendars returns one page of the calendars visible to the account.
	ListCalendars(ctx context.Context, pageToken string) (CalendarPage, error)

	// ListEvents returns one page of events from calendarID overlapping the
	// [from, to) window. When expand is true, recurring events are returned
	// as individual instances instead of a single master event.
	ListEvents(ctx context.Context, calendarID string, from, to time.Time, expand bool, pageToken string) (EventPage, error)

	// InsertEvent creates ev on calendarID and returns the new event ID.
	InsertEvent(ctx context.Context, calendarID string, ev domain.MergedEvent) (string, error)

	// PatchEvent overwrites the synced fields of eventID with ev.
	// Returns ErrNotFound when the event no longer exists.
	PatchEvent(ctx context.Context, calendarID, eventID string, ev domain.MergedEvent) error

	// RemoveEvent deletes eventID. Returns ErrNotFound when it is already gone.
	RemoveEvent(ctx context.Context, calendarID, eventID string) error

	// FindOrCreateCalendarByName resolves the calendar named name, creating
	// it when the account does not have one yet, and returns its ID.
	FindOrCreateCalendarByName(ctx context.Context, name string) (string, error)
}
