package caldav

import (
	"log"
	"time"

	"github.com/teambition/rrule-go"

	"github.com/gt11799/sync-google-calendar/internal/domain"
)

// maxInstancesPerEvent caps runaway rules (e.g. unbounded secondly rules).
const maxInstancesPerEvent = 1000

// expandParsed turns the VEVENTs of one calendar object into the events the
// engine sees. Single events pass through; with expand set, recurring masters
// become one event per instance within [from, to), with detached overrides
// (RECURRENCE-ID) replacing the instances they modify.
func expandParsed(parsed []parsedEvent, from, to time.Time, expand bool) []domain.SourceEvent {
	var masters []parsedEvent
	var overrides []parsedEvent
	for _, p := range parsed {
		if p.recurrenceID.IsZero() {
			masters = append(masters, p)
		} else {
			overrides = append(overrides, p)
		}
	}

	var out []domain.SourceEvent
	for _, m := range masters {
		if m.rrule == "" {
			out = append(out, m.base)
			continue
		}
		if !expand {
			ev := m.base
			ev.Recurrence = []string{"RRULE:" + m.rrule}
			out = append(out, ev)
			continue
		}
		out = append(out, expandRecurring(m, overrides, from, to)...)
	}
	return out
}

func expandRecurring(m parsedEvent, overrides []parsedEvent, from, to time.Time) []domain.SourceEvent {
	r, err := rrule.StrToRRule(m.rrule)
	if err != nil {
		log.Printf("Bad RRULE on %s, keeping only the first instance: %v", m.base.ID, err)
		return []domain.SourceEvent{m.base}
	}
	r.DTStart(m.base.StartTime)

	var set rrule.Set
	set.RRule(r)
	for _, ex := range m.exDates {
		set.ExDate(ex.In(m.base.StartTime.Location()))
	}

	loc := m.base.StartTime.Location()
	slots := set.Between(from.In(loc), to.In(loc), true)
	if len(slots) > maxInstancesPerEvent {
		log.Printf("Rule on %s expands to %d instances, capping at %d", m.base.ID, len(slots), maxInstancesPerEvent)
		slots = slots[:maxInstancesPerEvent]
	}

	duration := m.base.EndTime.Sub(m.base.StartTime)

	out := make([]domain.SourceEvent, 0, len(slots))
	for _, slot := range slots {
		// The instance is identified by its recurrence slot, so an override
		// that moves the time keeps the same identity.
		ev := m.base
		start, end := slot, slot.Add(duration)
		if o, ok := findOverride(overrides, m.base.ID, slot); ok {
			ev = o.base
			start, end = o.base.StartTime, o.base.EndTime
		}
		ev.ID = instanceID(m.base.ID, slot)
		ev.CalendarID = m.base.CalendarID
		ev.StartTime = start
		ev.EndTime = end
		ev.Recurrence = nil
		out = append(out, ev)
	}
	return out
}

func findOverride(overrides []parsedEvent, uid string, slot time.Time) (parsedEvent, bool) {
	for _, o := range overrides {
		if o.base.ID == uid && o.recurrenceID.Equal(slot) {
			return o, true
		}
	}
	return parsedEvent{}, false
}

func instanceID(uid string, slot time.Time) string {
	return uid + "_" + slot.UTC().Format("20060102T150405Z")
}
