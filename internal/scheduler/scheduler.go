package scheduler

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/gt11799/sync-google-calendar/config"
	"github.com/gt11799/sync-google-calendar/internal/domain"
)

// Runner is the sync engine surface the scheduler drives.
type Runner interface {
	Run(ctx context.Context) (*domain.RunReport, error)
}

// ReportStore persists run reports.
type ReportStore interface {
	SaveRun(r *domain.RunReport) error
}

// Notifier delivers a run summary to a human.
type Notifier interface {
	NotifyReport(r *domain.RunReport) error
}

type Scheduler struct {
	cron     *cron.Cron
	cfg      *config.Config
	runner   Runner
	reports  ReportStore
	notifier Notifier
}

func New(cfg *config.Config, runner Runner, reports ReportStore) *Scheduler {
	// SkipIfStillRunning keeps at most one run in flight.
	c := cron.New(
		cron.WithLocation(cfg.Timezone),
		cron.WithChain(cron.SkipIfStillRunning(cron.DefaultLogger)),
	)

	return &Scheduler{
		cron:    c,
		cfg:     cfg,
		runner:  runner,
		reports: reports,
	}
}

func (s *Scheduler) SetNotifier(n Notifier) {
	s.notifier = n
}

func (s *Scheduler) Start(ctx context.Context) error {
	if _, err := s.cron.AddFunc(s.cfg.SyncSchedule, s.runOnce); err != nil {
		return fmt.Errorf("add sync job: %w", err)
	}

	s.cron.Start()
	log.Printf("Scheduler started (schedule: %s, TZ: %s)", s.cfg.SyncSchedule, s.cfg.Timezone)

	<-ctx.Done()
	return nil
}

func (s *Scheduler) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
	log.Println("Scheduler stopped")
}

func (s *Scheduler) runOnce() {
	ctx, cancel := context.WithTimeout(context.Background(), s.cfg.RunTimeout)
	defer cancel()

	report, err := s.runner.Run(ctx)
	if err != nil {
		log.Printf("Sync run failed: %v", err)
	}
	if report == nil {
		return
	}

	log.Printf("Sync run %s: %d calendars, %d events, added %d, updated %d, deleted %d, skipped %d, %d errors in %s",
		report.Status, report.CalendarsScanned, report.EventsSeen,
		report.Added, report.Updated, report.Deleted, report.Skipped,
		len(report.Errors), report.Duration().Round(time.Millisecond))

	if err := s.reports.SaveRun(report); err != nil {
		log.Printf("Error saving run report: %v", err)
	}

	if s.notifier != nil {
		if err := s.notifier.NotifyReport(report); err != nil {
			log.Printf("Error sending run notification: %v", err)
		}
	}
}
