package service

import (
	"context"
	"fmt"
	"time"

	"github.com/gt11799/sync-google-calendar/internal/domain"
)

// TimeWindow bounds which events a run looks at.
type TimeWindow struct {
	From time.Time
	To   time.Time
}

// NewTimeWindow computes the sync window around now: lookbackDays into the
// past, lookaheadDays into the future, anchored to the start of now's day so
// repeated runs within a day scan the same range.
func NewTimeWindow(now time.Time, lookbackDays, lookaheadDays int) TimeWindow {
	day := now.Truncate(24 * time.Hour)
	return TimeWindow{
		From: day.AddDate(0, 0, -lookbackDays),
		To:   day.AddDate(0, 0, lookaheadDays),
	}
}

// Driver walks one source calendar page by page and feeds every event in the
// window to the reconciler.
type Driver struct {
	client     CalendarClient
	reconciler *Reconciler
}

func NewDriver(client CalendarClient, reconciler *Reconciler) *Driver {
	return &Driver{client: client, reconciler: reconciler}
}

// SyncCalendar reconciles every event of srcCalendarID within win against the
// destination, tallying outcomes into report. Event-level failures are
// recorded and skipped; only a failure to list a page aborts the calendar.
func (d *Driver) SyncCalendar(ctx context.Context, srcCalendarID, destCalendarID string, win TimeWindow, report *domain.RunReport) error {
	pageToken := ""
	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		page, err := d.client.ListEvents(ctx, srcCalendarID, win.From, win.To, true, pageToken)
		if err != nil {
			return fmt.Errorf("list events of %s: %w", srcCalendarID, err)
		}

		for _, ev := range page.Items {
			report.EventsSeen++
			action, err := d.reconciler.ReconcileEvent(ctx, destCalendarID, ev)
			if err != nil {
				report.Errors = append(report.Errors, err.Error())
			}
			switch action {
			case ActionInsert:
				report.Added++
			case ActionPatch:
				report.Updated++
			case ActionDelete:
				report.Deleted++
			case ActionSkip:
				report.Skipped++
			}
		}

		if page.NextPageToken == "" {
			return nil
		}
		pageToken = page.NextPageToken
	}
}
