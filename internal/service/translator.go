package service

import (
	"fmt"

	"github.com/gt11799/sync-google-calendar/internal/domain"
)

// Translate projects a source event into the body written to the merged
// calendar. Pure: same input, same output, no side effects.
//
// The description gains a provenance footer naming the source calendar and
// event, and the same pair rides along in SourceCalendarID/SourceEventID for
// the provider to store as machine-readable private properties. Organizer
// identity, conferencing data and attachments stay behind: they only make
// sense on the original calendar.
func Translate(src domain.SourceEvent) domain.MergedEvent {
	dst := domain.MergedEvent{
		Summary:          src.Summary,
		Description:      withProvenance(src.Description, src.CalendarID, src.ID),
		Location:         src.Location,
		StartTime:        src.StartTime,
		EndTime:          src.EndTime,
		AllDay:           src.AllDay,
		Status:           src.Status,
		Transparency:     src.Transparency,
		Visibility:       src.Visibility,
		SourceCalendarID: src.CalendarID,
		SourceEventID:    src.ID,
	}

	if len(src.Attendees) > 0 {
		dst.Attendees = make([]domain.Attendee, len(src.Attendees))
		for i, a := range src.Attendees {
			dst.Attendees[i] = domain.Attendee{
				Email:          a.Email,
				DisplayName:    a.DisplayName,
				ResponseStatus: a.ResponseStatus,
			}
		}
	}

	if len(src.Recurrence) > 0 {
		dst.Recurrence = append([]string(nil), src.Recurrence...)
	}

	// Absent overrides mean the destination calendar's defaults apply.
	if len(src.Reminders) > 0 {
		dst.Reminders = append([]domain.ReminderOverride(nil), src.Reminders...)
	}

	return dst
}

func withProvenance(description, calendarID, eventID string) string {
	footer := fmt.Sprintf("[SyncedFrom] %s | sourceEventId: %s", calendarID, eventID)
	if description == "" {
		return footer
	}
	return description + "\n\n" + footer
}
