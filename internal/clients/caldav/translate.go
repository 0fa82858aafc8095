package caldav

import (
	"fmt"
	"strings"
	"time"

	"github.com/emersion/go-ical"
	"github.com/emersion/go-webdav/caldav"

	"github.com/gt11799/sync-google-calendar/internal/domain"
)

const (
	propSourceCalendar = "X-SYNC-SOURCE-CALENDAR"
	propSourceEvent    = "X-SYNC-SOURCE-EVENT"
)

// parsedEvent is one VEVENT lifted out of a calendar object, before
// recurrence expansion. recurrenceID is non-zero for detached overrides.
type parsedEvent struct {
	base         domain.SourceEvent
	rrule        string
	exDates      []time.Time
	recurrenceID time.Time
}

// parseObject extracts every VEVENT of a calendar object. Components that
// cannot be parsed are skipped.
func parseObject(calendarID string, obj *caldav.CalendarObject) []parsedEvent {
	if obj.Data == nil {
		return nil
	}

	var out []parsedEvent
	for _, comp := range obj.Data.Children {
		if comp.Name != ical.CompEvent {
			continue
		}
		p, err := eventFromComponent(calendarID, comp)
		if err != nil {
			continue
		}
		out = append(out, p)
	}
	return out
}

func eventFromComponent(calendarID string, comp *ical.Component) (parsedEvent, error) {
	p := parsedEvent{base: domain.SourceEvent{CalendarID: calendarID}}

	prop := comp.Props.Get(ical.PropUID)
	if prop == nil || prop.Value == "" {
		return p, fmt.Errorf("event has no UID")
	}
	p.base.ID = prop.Value

	p.base.Summary, _ = comp.Props.Text(ical.PropSummary)
	p.base.Description, _ = comp.Props.Text(ical.PropDescription)
	p.base.Location, _ = comp.Props.Text(ical.PropLocation)

	if prop := comp.Props.Get(ical.PropDateTimeStart); prop != nil {
		t, err := prop.DateTime(time.UTC)
		if err != nil {
			return p, fmt.Errorf("parse DTSTART: %w", err)
		}
		p.base.StartTime = t
		if prop.Params.Get(ical.ParamValue) == string(ical.ValueDate) {
			p.base.AllDay = true
		}
	} else {
		return p, fmt.Errorf("event has no DTSTART")
	}

	if prop := comp.Props.Get(ical.PropDateTimeEnd); prop != nil {
		if t, err := prop.DateTime(time.UTC); err == nil {
			p.base.EndTime = t
		}
	}
	if p.base.EndTime.IsZero() {
		// No DTEND: timed events are points, all-day events span the day.
		p.base.EndTime = p.base.StartTime
		if p.base.AllDay {
			p.base.EndTime = p.base.StartTime.AddDate(0, 0, 1)
		}
	}

	p.base.Status = statusFromICal(propValue(comp, "STATUS"))
	p.base.Transparency = transparencyFromICal(propValue(comp, "TRANSP"))
	p.base.Visibility = visibilityFromICal(propValue(comp, "CLASS"))

	// The raw stamp string is what the engine compares, so no parsing here.
	if prop := comp.Props.Get(ical.PropLastModified); prop != nil {
		p.base.Updated = prop.Value
	} else if prop := comp.Props.Get(ical.PropDateTimeStamp); prop != nil {
		p.base.Updated = prop.Value
	}

	for _, prop := range comp.Props["ATTENDEE"] {
		p.base.Attendees = append(p.base.Attendees, domain.Attendee{
			Email:          strings.TrimPrefix(prop.Value, "mailto:"),
			DisplayName:    prop.Params.Get("CN"),
			ResponseStatus: responseFromPartstat(prop.Params.Get("PARTSTAT")),
		})
	}

	if prop := comp.Props.Get(ical.PropRecurrenceRule); prop != nil {
		p.rrule = prop.Value
	}
	for _, prop := range comp.Props["EXDATE"] {
		for _, raw := range strings.Split(prop.Value, ",") {
			if t, ok := parseICalTime(raw); ok {
				p.exDates = append(p.exDates, t)
			}
		}
	}
	if prop := comp.Props.Get("RECURRENCE-ID"); prop != nil {
		if t, err := prop.DateTime(time.UTC); err == nil {
			p.recurrenceID = t
		}
	}

	for _, alarm := range comp.Children {
		if alarm.Name != "VALARM" {
			continue
		}
		trigger := alarm.Props.Get("TRIGGER")
		if trigger == nil {
			continue
		}
		minutes, ok := parseTrigger(trigger.Value)
		if !ok {
			continue
		}
		p.base.Reminders = append(p.base.Reminders, domain.ReminderOverride{
			Method:  methodFromAction(propValue(alarm, "ACTION")),
			Minutes: minutes,
		})
	}

	return p, nil
}

// renderEvent builds the iCalendar object stored for a merged event.
func renderEvent(uid string, ev domain.MergedEvent) *ical.Calendar {
	cal := ical.NewCalendar()
	cal.Props.SetText(ical.PropVersion, "2.0")
	cal.Props.SetText(ical.PropProductID, "-//synccal//CalDAV//EN")

	vevent := ical.NewEvent()
	vevent.Props.SetText(ical.PropUID, uid)
	vevent.Props.SetText(ical.PropSummary, ev.Summary)
	vevent.Props.SetDateTime(ical.PropDateTimeStamp, time.Now().UTC())

	if ev.Description != "" {
		vevent.Props.SetText(ical.PropDescription, ev.Description)
	}
	if ev.Location != "" {
		vevent.Props.SetText(ical.PropLocation, ev.Location)
	}

	if ev.AllDay {
		vevent.Props.SetDate(ical.PropDateTimeStart, ev.StartTime)
		if !ev.EndTime.IsZero() {
			vevent.Props.SetDate(ical.PropDateTimeEnd, ev.EndTime)
		}
	} else {
		// Convert to UTC explicitly - iCalendar will use Z suffix
		vevent.Props.SetDateTime(ical.PropDateTimeStart, ev.StartTime.UTC())
		if !ev.EndTime.IsZero() {
			vevent.Props.SetDateTime(ical.PropDateTimeEnd, ev.EndTime.UTC())
		}
	}

	if ev.Status != "" {
		vevent.Props.SetText("STATUS", strings.ToUpper(ev.Status))
	}
	if ev.Transparency != "" {
		vevent.Props.SetText("TRANSP", strings.ToUpper(ev.Transparency))
	}
	if class := classFromVisibility(ev.Visibility); class != "" {
		vevent.Props.SetText("CLASS", class)
	}

	// The engine syncs expanded instances, so recurrence rules only pass
	// through when expansion is off.
	for _, line := range ev.Recurrence {
		if rule, ok := strings.CutPrefix(line, "RRULE:"); ok {
			vevent.Props.SetText(ical.PropRecurrenceRule, rule)
		}
	}

	for _, a := range ev.Attendees {
		prop := ical.NewProp("ATTENDEE")
		prop.Value = "mailto:" + a.Email
		if a.DisplayName != "" {
			prop.Params.Set("CN", a.DisplayName)
		}
		if ps := partstatFromResponse(a.ResponseStatus); ps != "" {
			prop.Params.Set("PARTSTAT", ps)
		}
		vevent.Props["ATTENDEE"] = append(vevent.Props["ATTENDEE"], *prop)
	}

	for _, r := range ev.Reminders {
		alarm := ical.NewComponent("VALARM")
		alarm.Props.SetText("ACTION", actionFromMethod(r.Method))
		alarm.Props.SetText(ical.PropDescription, "Reminder")
		trigger := ical.NewProp("TRIGGER")
		trigger.Value = fmt.Sprintf("-PT%dM", r.Minutes)
		alarm.Props["TRIGGER"] = append(alarm.Props["TRIGGER"], *trigger)
		vevent.Children = append(vevent.Children, alarm)
	}

	vevent.Props.SetText(propSourceCalendar, ev.SourceCalendarID)
	vevent.Props.SetText(propSourceEvent, ev.SourceEventID)

	cal.Children = append(cal.Children, vevent.Component)
	return cal
}

// === Value mappings ===

func propValue(comp *ical.Component, name string) string {
	if prop := comp.Props.Get(name); prop != nil {
		return prop.Value
	}
	return ""
}

func statusFromICal(v string) string {
	switch strings.ToUpper(v) {
	case "CANCELLED":
		return domain.StatusCancelled
	case "TENTATIVE":
		return domain.StatusTentative
	default:
		return domain.StatusConfirmed
	}
}

func transparencyFromICal(v string) string {
	if strings.EqualFold(v, "TRANSPARENT") {
		return "transparent"
	}
	return "opaque"
}

func visibilityFromICal(v string) string {
	switch strings.ToUpper(v) {
	case "PUBLIC":
		return "public"
	case "PRIVATE":
		return "private"
	case "CONFIDENTIAL":
		return "confidential"
	default:
		return "default"
	}
}

func classFromVisibility(v string) string {
	switch v {
	case "public", "private", "confidential":
		return strings.ToUpper(v)
	default:
		return ""
	}
}

func responseFromPartstat(v string) string {
	switch strings.ToUpper(v) {
	case "ACCEPTED":
		return domain.ResponseAccepted
	case "DECLINED":
		return domain.ResponseDeclined
	case "TENTATIVE":
		return domain.ResponseTentative
	default:
		return domain.ResponseNeedsAction
	}
}

func partstatFromResponse(v string) string {
	switch v {
	case domain.ResponseAccepted:
		return "ACCEPTED"
	case domain.ResponseDeclined:
		return "DECLINED"
	case domain.ResponseTentative:
		return "TENTATIVE"
	case domain.ResponseNeedsAction:
		return "NEEDS-ACTION"
	default:
		return ""
	}
}

func methodFromAction(action string) string {
	if strings.EqualFold(action, "EMAIL") {
		return "email"
	}
	return "popup"
}

func actionFromMethod(method string) string {
	if strings.EqualFold(method, "email") {
		return "EMAIL"
	}
	return "DISPLAY"
}

// parseICalTime parses the date-time forms EXDATE values come in.
func parseICalTime(raw string) (time.Time, bool) {
	raw = strings.TrimSpace(raw)
	for _, layout := range []string{"20060102T150405Z", "20060102T150405", "20060102"} {
		if t, err := time.ParseInLocation(layout, raw, time.UTC); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// parseTrigger converts a relative VALARM trigger (-PT15M, -PT1H, -P1D) into
// minutes before the event start. Absolute and after-start triggers have no
// reminder equivalent and are reported as unsupported.
func parseTrigger(v string) (int64, bool) {
	s := strings.ToUpper(strings.TrimSpace(v))
	if !strings.HasPrefix(s, "-P") {
		return 0, false
	}
	s = strings.TrimPrefix(s, "-P")

	var minutes, num int64
	inTime := false
	for _, r := range s {
		switch {
		case r >= '0' && r <= '9':
			num = num*10 + int64(r-'0')
		case r == 'T':
			inTime = true
		case r == 'W':
			minutes += num * 7 * 24 * 60
			num = 0
		case r == 'D':
			minutes += num * 24 * 60
			num = 0
		case r == 'H':
			minutes += num * 60
			num = 0
		case r == 'M' && inTime:
			minutes += num
			num = 0
		case r == 'S':
			num = 0
		default:
			return 0, false
		}
	}
	return minutes, true
}
