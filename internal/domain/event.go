package domain

import "time"

// Event status values as reported by the calendar provider.
const (
	StatusConfirmed = "confirmed"
	StatusTentative = "tentative"
	StatusCancelled = "cancelled"
)

// Attendee response status values.
const (
	ResponseNeedsAction = "needsAction"
	ResponseDeclined    = "declined"
	ResponseTentative   = "tentative"
	ResponseAccepted    = "accepted"
)

// SourceEvent is a single event instance read from a source calendar.
// Recurring events arrive already expanded, one SourceEvent per occurrence.
type SourceEvent struct {
	ID           string // unique per instance within the calendar
	CalendarID   string
	Status       string
	Summary      string
	Description  string
	Location     string
	StartTime    time.Time
	EndTime      time.Time
	AllDay       bool
	Attendees    []Attendee
	Recurrence   []string // raw RRULE/EXDATE lines; empty on expanded instances
	Reminders    []ReminderOverride
	Transparency string
	Visibility   string
	Updated      string // provider modification stamp, compared byte-for-byte
}

// Cancelled reports whether the source event has been cancelled or deleted.
func (e *SourceEvent) Cancelled() bool {
	return e.Status == StatusCancelled
}

// MergedEvent is the write payload for the destination calendar,
// produced by the translator. It never carries organizer, conferencing
// or attachment data. An empty Reminders slice means the destination
// calendar's default reminders apply.
type MergedEvent struct {
	Summary      string
	Description  string // source description plus provenance footer
	Location     string
	StartTime    time.Time
	EndTime      time.Time
	AllDay       bool
	Status       string
	Attendees    []Attendee
	Recurrence   []string
	Reminders    []ReminderOverride
	Transparency string
	Visibility   string

	// Provenance, rendered by the provider as private machine-readable
	// properties alongside the human-readable footer.
	SourceCalendarID string
	SourceEventID    string
}

// Attendee is the projected attendee shape carried into merged events.
type Attendee struct {
	Email          string
	DisplayName    string
	ResponseStatus string
}

// ReminderOverride is a single event-level reminder, minutes before start.
type ReminderOverride struct {
	Method  string
	Minutes int64
}
