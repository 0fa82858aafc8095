package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gt11799/sync-google-calendar/config"
	"github.com/gt11799/sync-google-calendar/internal/clients/caldav"
	"github.com/gt11799/sync-google-calendar/internal/clients/gcal"
	"github.com/gt11799/sync-google-calendar/internal/notify"
	"github.com/gt11799/sync-google-calendar/internal/scheduler"
	"github.com/gt11799/sync-google-calendar/internal/service"
	"github.com/gt11799/sync-google-calendar/internal/storage"
	"github.com/gt11799/sync-google-calendar/internal/web"
)

func main() {
	log.SetFlags(log.LstdFlags | log.Lshortfile)

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	store, err := storage.New(cfg.DatabasePath)
	if err != nil {
		log.Fatalf("Failed to init storage: %v", err)
	}
	defer store.Close()

	client, err := newClient(cfg)
	if err != nil {
		log.Fatalf("Failed to init %s client: %v", cfg.Provider, err)
	}

	mappings := service.NewMappingStore(store, cfg.KeyPrefix)
	orch := service.NewOrchestrator(client, mappings, service.Options{
		MergedCalendarName: cfg.MergedCalendarName,
		LookbackDays:       cfg.LookbackDays,
		LookaheadDays:      cfg.LookaheadDays,
	})

	sched := scheduler.New(cfg, orch, store)
	if cfg.NotifyEnabled() {
		tg, err := notify.NewTelegram(cfg.TelegramToken, cfg.TelegramChatID)
		if err != nil {
			log.Fatalf("Failed to init telegram: %v", err)
		}
		sched.SetNotifier(tg)
	}

	srv := web.NewServer(cfg.ServerPort, store)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go func() {
		if err := sched.Start(ctx); err != nil {
			log.Printf("Scheduler error: %v", err)
		}
	}()

	srv.Start()

	log.Println("Calendar sync daemon started")

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	log.Println("Shutting down...")

	cancel()
	sched.Stop()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Stop(shutdownCtx); err != nil {
		log.Printf("Error stopping server: %v", err)
	}

	log.Println("Calendar sync daemon stopped")
}

func newClient(cfg *config.Config) (service.CalendarClient, error) {
	switch cfg.Provider {
	case config.ProviderCalDAV:
		return caldav.New(cfg.CalDAVURL, cfg.CalDAVUsername, cfg.CalDAVPassword, cfg.CalDAVSourcePaths), nil
	default:
		return gcal.New(context.Background(), cfg.GoogleCredentialsFile, cfg.GoogleAccessToken)
	}
}
