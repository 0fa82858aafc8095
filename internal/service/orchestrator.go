package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/gt11799/sync-google-calendar/internal/domain"
)

// Options tune a sync run.
type Options struct {
	MergedCalendarName string
	LookbackDays       int
	LookaheadDays      int
}

// Orchestrator runs whole sync passes: it resolves the merged calendar,
// picks the read-only calendars as sources and pulls each one through the
// driver, collecting everything into a run report.
type Orchestrator struct {
	client CalendarClient
	store  *MappingStore
	driver *Driver
	opts   Options
}

func NewOrchestrator(client CalendarClient, store *MappingStore, opts Options) *Orchestrator {
	rec := NewReconciler(ReconcilerConfig{Client: client, Store: store})
	return &Orchestrator{
		client: client,
		store:  store,
		driver: NewDriver(client, rec),
		opts:   opts,
	}
}

// Run executes one sync pass. The returned report is always non-nil; the
// error is non-nil only for the single fatal condition, failing to resolve
// the destination calendar.
func (o *Orchestrator) Run(ctx context.Context) (*domain.RunReport, error) {
	report := &domain.RunReport{StartedAt: time.Now(), Status: domain.RunStatusOK}
	defer func() {
		report.FinishedAt = time.Now()
	}()

	destID, err := o.client.FindOrCreateCalendarByName(ctx, o.opts.MergedCalendarName)
	if err != nil {
		report.Status = domain.RunStatusFailed
		report.Errors = append(report.Errors, err.Error())
		return report, fmt.Errorf("resolve destination calendar %q: %w", o.opts.MergedCalendarName, err)
	}

	sources, err := o.eligibleSources(ctx, destID)
	if err != nil {
		// Partial enumeration: sync what we saw, record the rest.
		report.Errors = append(report.Errors, err.Error())
	}

	win := NewTimeWindow(time.Now(), o.opts.LookbackDays, o.opts.LookaheadDays)

	for _, cal := range sources {
		if ctx.Err() != nil {
			report.Errors = append(report.Errors, "run stopped early: deadline reached")
			break
		}

		report.CalendarsScanned++
		log.Printf("Syncing calendar %q (%s)", cal.Name, cal.ID)
		if err := o.driver.SyncCalendar(ctx, cal.ID, destID, win, report); err != nil {
			report.Errors = append(report.Errors, err.Error())
		}
	}

	if len(report.Errors) > 0 {
		report.Status = domain.RunStatusPartial
	}
	return report, nil
}

// eligibleSources enumerates the account's calendars and keeps the read-only
// ones, minus the destination itself.
func (o *Orchestrator) eligibleSources(ctx context.Context, destID string) ([]domain.CalendarInfo, error) {
	var sources []domain.CalendarInfo
	pageToken := ""
	for {
		page, err := o.client.ListCalendars(ctx, pageToken)
		if err != nil {
			return sources, fmt.Errorf("list calendars: %w", err)
		}
		for _, cal := range page.Items {
			if cal.ID == destID {
				// Never sync the merged calendar into itself.
				continue
			}
			if !cal.ReadOnly() {
				continue
			}
			sources = append(sources, cal)
		}
		if page.NextPageToken == "" {
			return sources, nil
		}
		pageToken = page.NextPageToken
	}
}

// Sweep removes merged events whose source calendar is no longer in the
// eligible set, e.g. after the account unsubscribed from it. Regular runs
// never see those events again, so this is the explicit housekeeping pass.
func (o *Orchestrator) Sweep(ctx context.Context) (*domain.RunReport, error) {
	report := &domain.RunReport{StartedAt: time.Now(), Status: domain.RunStatusOK}
	defer func() {
		report.FinishedAt = time.Now()
	}()

	destID, err := o.client.FindOrCreateCalendarByName(ctx, o.opts.MergedCalendarName)
	if err != nil {
		report.Status = domain.RunStatusFailed
		report.Errors = append(report.Errors, err.Error())
		return report, fmt.Errorf("resolve destination calendar %q: %w", o.opts.MergedCalendarName, err)
	}

	sources, err := o.eligibleSources(ctx, destID)
	if err != nil {
		report.Status = domain.RunStatusFailed
		report.Errors = append(report.Errors, err.Error())
		return report, err
	}
	eligible := make(map[string]bool, len(sources))
	for _, cal := range sources {
		eligible[cal.ID] = true
	}

	mappings, err := o.store.List()
	if err != nil {
		report.Status = domain.RunStatusFailed
		report.Errors = append(report.Errors, err.Error())
		return report, fmt.Errorf("list mappings: %w", err)
	}

	for _, m := range mappings {
		if eligible[m.SourceCalendarID] {
			continue
		}
		if ctx.Err() != nil {
			report.Errors = append(report.Errors, "sweep stopped early: deadline reached")
			break
		}

		err := o.client.RemoveEvent(ctx, destID, m.Record.DestinationEventID)
		if err != nil && !errors.Is(err, ErrNotFound) {
			report.Errors = append(report.Errors, fmt.Sprintf("sweep %s/%s: %v", m.SourceCalendarID, m.SourceEventID, err))
			continue
		}
		if err := o.store.Delete(m.SourceCalendarID, m.SourceEventID); err != nil {
			report.Errors = append(report.Errors, fmt.Sprintf("sweep mapping %s/%s: %v", m.SourceCalendarID, m.SourceEventID, err))
			continue
		}
		report.Deleted++
	}

	if len(report.Errors) > 0 && report.Status == domain.RunStatusOK {
		report.Status = domain.RunStatusPartial
	}
	return report, nil
}
