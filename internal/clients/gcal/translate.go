package gcal

import (
	"time"

	"google.golang.org/api/calendar/v3"

	"github.com/gt11799/sync-google-calendar/internal/domain"
)

const (
	propSourceCalendar = "sourceCalendarId"
	propSourceEvent    = "sourceEventId"
)

func eventFromAPI(calendarID string, item *calendar.Event) domain.SourceEvent {
	ev := domain.SourceEvent{
		ID:          item.Id,
		CalendarID:  calendarID,
		Status:      item.Status,
		Summary:     item.Summary,
		Description: item.Description,
		Location:    item.Location,
		Recurrence:  item.Recurrence,
		Updated:     item.Updated,
	}

	// Cancelled items arrive as tombstones and may carry no times at all.
	ev.StartTime, ev.AllDay = parseEventTime(item.Start)
	ev.EndTime, _ = parseEventTime(item.End)

	// The API omits these when they hold the default value.
	ev.Transparency = item.Transparency
	if ev.Transparency == "" {
		ev.Transparency = "opaque"
	}
	ev.Visibility = item.Visibility
	if ev.Visibility == "" {
		ev.Visibility = "default"
	}

	for _, a := range item.Attendees {
		ev.Attendees = append(ev.Attendees, domain.Attendee{
			Email:          a.Email,
			DisplayName:    a.DisplayName,
			ResponseStatus: a.ResponseStatus,
		})
	}

	if item.Reminders != nil && !item.Reminders.UseDefault {
		for _, r := range item.Reminders.Overrides {
			ev.Reminders = append(ev.Reminders, domain.ReminderOverride{
				Method:  r.Method,
				Minutes: r.Minutes,
			})
		}
	}

	return ev
}

func parseEventTime(edt *calendar.EventDateTime) (time.Time, bool) {
	if edt == nil {
		return time.Time{}, false
	}
	if edt.Date != "" {
		t, _ := time.Parse("2006-01-02", edt.Date)
		return t, true
	}
	t, _ := time.Parse(time.RFC3339, edt.DateTime)
	return t, false
}

func eventToAPI(ev domain.MergedEvent) *calendar.Event {
	out := &calendar.Event{
		Summary:      ev.Summary,
		Description:  ev.Description,
		Location:     ev.Location,
		Status:       ev.Status,
		Transparency: ev.Transparency,
		Visibility:   ev.Visibility,
		Recurrence:   ev.Recurrence,
		Start:        toEventDateTime(ev.StartTime, ev.AllDay),
		End:          toEventDateTime(ev.EndTime, ev.AllDay),
		ExtendedProperties: &calendar.EventExtendedProperties{
			Private: map[string]string{
				propSourceCalendar: ev.SourceCalendarID,
				propSourceEvent:    ev.SourceEventID,
			},
		},
	}

	for _, a := range ev.Attendees {
		out.Attendees = append(out.Attendees, &calendar.EventAttendee{
			Email:          a.Email,
			DisplayName:    a.DisplayName,
			ResponseStatus: a.ResponseStatus,
		})
	}

	if len(ev.Reminders) > 0 {
		rem := &calendar.EventReminders{
			UseDefault:      false,
			ForceSendFields: []string{"UseDefault"},
		}
		for _, r := range ev.Reminders {
			rem.Overrides = append(rem.Overrides, &calendar.EventReminder{
				Method:  r.Method,
				Minutes: r.Minutes,
			})
		}
		out.Reminders = rem
	}

	return out
}

func toEventDateTime(t time.Time, allDay bool) *calendar.EventDateTime {
	if allDay {
		return &calendar.EventDateTime{Date: t.Format("2006-01-02")}
	}
	return &calendar.EventDateTime{DateTime: t.Format(time.RFC3339)}
}
