package scheduler

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gt11799/sync-google-calendar/config"
	"github.com/gt11799/sync-google-calendar/internal/domain"
)

type fakeRunner struct {
	report *domain.RunReport
	err    error

	calls       int
	hadDeadline bool
}

func (f *fakeRunner) Run(ctx context.Context) (*domain.RunReport, error) {
	f.calls++
	_, f.hadDeadline = ctx.Deadline()
	return f.report, f.err
}

type fakeReports struct {
	saved []*domain.RunReport
	err   error
}

func (f *fakeReports) SaveRun(r *domain.RunReport) error {
	f.saved = append(f.saved, r)
	return f.err
}

type fakeNotifier struct {
	notified []*domain.RunReport
	err      error
}

func (f *fakeNotifier) NotifyReport(r *domain.RunReport) error {
	f.notified = append(f.notified, r)
	return f.err
}

func testScheduler(runner *fakeRunner, reports *fakeReports) *Scheduler {
	return &Scheduler{
		cfg:     &config.Config{RunTimeout: time.Minute, Timezone: time.UTC},
		runner:  runner,
		reports: reports,
	}
}

func TestRunOnceSavesAndNotifies(t *testing.T) {
	report := &domain.RunReport{Status: domain.RunStatusOK, Added: 2}
	runner := &fakeRunner{report: report}
	reports := &fakeReports{}
	notifier := &fakeNotifier{}

	s := testScheduler(runner, reports)
	s.SetNotifier(notifier)
	s.runOnce()

	assert.Equal(t, 1, runner.calls)
	require.Len(t, reports.saved, 1)
	assert.Same(t, report, reports.saved[0])
	require.Len(t, notifier.notified, 1)
	assert.Same(t, report, notifier.notified[0])
}

func TestRunOnceWithoutNotifier(t *testing.T) {
	runner := &fakeRunner{report: &domain.RunReport{Status: domain.RunStatusOK}}
	reports := &fakeReports{}

	testScheduler(runner, reports).runOnce()

	assert.Len(t, reports.saved, 1)
}

func TestRunOnceSkipsNilReport(t *testing.T) {
	runner := &fakeRunner{err: errors.New("config broken")}
	reports := &fakeReports{}
	notifier := &fakeNotifier{}

	s := testScheduler(runner, reports)
	s.SetNotifier(notifier)
	s.runOnce()

	assert.Empty(t, reports.saved)
	assert.Empty(t, notifier.notified)
}

func TestRunOnceSavesReportDespiteRunError(t *testing.T) {
	report := &domain.RunReport{Status: domain.RunStatusFailed}
	runner := &fakeRunner{report: report, err: errors.New("destination gone")}
	reports := &fakeReports{}

	testScheduler(runner, reports).runOnce()

	require.Len(t, reports.saved, 1)
	assert.Same(t, report, reports.saved[0])
}

func TestRunOnceToleratesSaveAndNotifyErrors(t *testing.T) {
	runner := &fakeRunner{report: &domain.RunReport{Status: domain.RunStatusOK}}
	reports := &fakeReports{err: errors.New("db locked")}
	notifier := &fakeNotifier{err: errors.New("telegram down")}

	s := testScheduler(runner, reports)
	s.SetNotifier(notifier)
	s.runOnce()

	// The notifier still runs after a failed save.
	assert.Len(t, notifier.notified, 1)
}

func TestRunOnceAppliesRunTimeout(t *testing.T) {
	runner := &fakeRunner{report: &domain.RunReport{Status: domain.RunStatusOK}}

	testScheduler(runner, &fakeReports{}).runOnce()

	assert.True(t, runner.hadDeadline)
}

func TestStartRejectsBadSchedule(t *testing.T) {
	cfg := &config.Config{SyncSchedule: "not a schedule", Timezone: time.UTC}
	s := New(cfg, &fakeRunner{}, &fakeReports{})

	err := s.Start(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "add sync job")
}

func TestStartBlocksUntilCancelled(t *testing.T) {
	cfg := &config.Config{SyncSchedule: "@every 1h", RunTimeout: time.Minute, Timezone: time.UTC}
	s := New(cfg, &fakeRunner{}, &fakeReports{})

	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() { errCh <- s.Start(ctx) }()

	cancel()
	select {
	case err := <-errCh:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("Start did not return after cancel")
	}
	s.Stop()
}
