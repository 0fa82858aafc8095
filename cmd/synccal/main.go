package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/gt11799/sync-google-calendar/config"
	"github.com/gt11799/sync-google-calendar/internal/clients/caldav"
	"github.com/gt11799/sync-google-calendar/internal/clients/gcal"
	"github.com/gt11799/sync-google-calendar/internal/domain"
	"github.com/gt11799/sync-google-calendar/internal/service"
	"github.com/gt11799/sync-google-calendar/internal/storage"
)

func main() {
	log.SetFlags(log.LstdFlags | log.Lshortfile)

	once := flag.Bool("once", false, "run one sync pass and exit")
	sweep := flag.Bool("sweep", false, "remove merged events whose source calendar is no longer synced")
	calendars := flag.Bool("calendars", false, "list the account's calendars and exit")
	flag.Parse()

	if !*once && !*sweep && !*calendars {
		flag.Usage()
		os.Exit(2)
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	client, err := newClient(cfg)
	if err != nil {
		log.Fatalf("Failed to init %s client: %v", cfg.Provider, err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), cfg.RunTimeout)
	defer cancel()

	if *calendars {
		listCalendars(ctx, client)
		return
	}

	store, err := storage.New(cfg.DatabasePath)
	if err != nil {
		log.Fatalf("Failed to init storage: %v", err)
	}
	defer store.Close()

	mappings := service.NewMappingStore(store, cfg.KeyPrefix)
	orch := service.NewOrchestrator(client, mappings, service.Options{
		MergedCalendarName: cfg.MergedCalendarName,
		LookbackDays:       cfg.LookbackDays,
		LookaheadDays:      cfg.LookaheadDays,
	})

	var report *domain.RunReport
	var runErr error
	if *sweep {
		report, runErr = orch.Sweep(ctx)
	} else {
		report, runErr = orch.Run(ctx)
	}

	if report != nil {
		if err := store.SaveRun(report); err != nil {
			log.Printf("Error saving run report: %v", err)
		}
		log.Printf("Run %s: %d calendars, %d events, added %d, updated %d, deleted %d, skipped %d",
			report.Status, report.CalendarsScanned, report.EventsSeen,
			report.Added, report.Updated, report.Deleted, report.Skipped)
		for _, e := range report.Errors {
			log.Printf("Run error: %s", e)
		}
	}
	if runErr != nil {
		log.Fatalf("Run failed: %v", runErr)
	}
}

func listCalendars(ctx context.Context, client service.CalendarClient) {
	pageToken := ""
	for {
		page, err := client.ListCalendars(ctx, pageToken)
		if err != nil {
			log.Fatalf("Failed to list calendars: %v", err)
		}
		for _, cal := range page.Items {
			fmt.Printf("%-16s %-32s %s\n", cal.AccessRole, cal.Name, cal.ID)
		}
		if page.NextPageToken == "" {
			return
		}
		pageToken = page.NextPageToken
	}
}

func newClient(cfg *config.Config) (service.CalendarClient, error) {
	switch cfg.Provider {
	case config.ProviderCalDAV:
		return caldav.New(cfg.CalDAVURL, cfg.CalDAVUsername, cfg.CalDAVPassword, cfg.CalDAVSourcePaths), nil
	default:
		return gcal.New(context.Background(), cfg.GoogleCredentialsFile, cfg.GoogleAccessToken)
	}
}
