package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

const (
	ProviderGoogle = "google"
	ProviderCalDAV = "caldav"
)

type Config struct {
	Provider string

	// Google Calendar auth (one of the two is required for the google provider)
	GoogleCredentialsFile string
	GoogleAccessToken     string

	// CalDAV auth
	CalDAVURL         string
	CalDAVUsername    string
	CalDAVPassword    string
	CalDAVSourcePaths []string

	MergedCalendarName string
	LookbackDays       int
	LookaheadDays      int

	SyncSchedule string
	RunTimeout   time.Duration

	DatabasePath string
	KeyPrefix    string
	Timezone     *time.Location
	ServerPort   string

	// Optional run-report notifications
	TelegramToken  string
	TelegramChatID int64
}

func Load() (*Config, error) {
	provider := os.Getenv("SYNC_PROVIDER")
	if provider == "" {
		provider = ProviderGoogle
	}
	if provider != ProviderGoogle && provider != ProviderCalDAV {
		return nil, fmt.Errorf("SYNC_PROVIDER must be %q or %q", ProviderGoogle, ProviderCalDAV)
	}

	credsFile := os.Getenv("GOOGLE_CREDENTIALS_FILE")
	accessToken := os.Getenv("GOOGLE_ACCESS_TOKEN")
	if provider == ProviderGoogle && credsFile == "" && accessToken == "" {
		return nil, fmt.Errorf("GOOGLE_CREDENTIALS_FILE or GOOGLE_ACCESS_TOKEN is required")
	}

	caldavURL := os.Getenv("CALDAV_URL")
	caldavUser := os.Getenv("CALDAV_USERNAME")
	caldavPass := os.Getenv("CALDAV_PASSWORD")
	if provider == ProviderCalDAV && (caldavUser == "" || caldavPass == "") {
		return nil, fmt.Errorf("CALDAV_USERNAME and CALDAV_PASSWORD are required")
	}

	var sourcePaths []string
	for _, p := range strings.Split(os.Getenv("CALDAV_SOURCE_PATHS"), ",") {
		if p = strings.TrimSpace(p); p != "" {
			sourcePaths = append(sourcePaths, p)
		}
	}

	mergedName := os.Getenv("MERGED_CALENDAR_NAME")
	if mergedName == "" {
		mergedName = "Merged"
	}

	lookback, err := intEnv("LOOKBACK_DAYS", 30)
	if err != nil {
		return nil, err
	}
	lookahead, err := intEnv("LOOKAHEAD_DAYS", 365)
	if err != nil {
		return nil, err
	}

	schedule := os.Getenv("SYNC_SCHEDULE")
	if schedule == "" {
		schedule = "*/15 * * * *"
	}

	runTimeout := 10 * time.Minute
	if v := os.Getenv("RUN_TIMEOUT"); v != "" {
		runTimeout, err = time.ParseDuration(v)
		if err != nil {
			return nil, fmt.Errorf("invalid RUN_TIMEOUT: %w", err)
		}
	}

	dbPath := os.Getenv("DATABASE_PATH")
	if dbPath == "" {
		dbPath = "./data/sync.db"
	}

	keyPrefix := os.Getenv("KEY_PREFIX")
	if keyPrefix == "" {
		keyPrefix = "sync:"
	}

	tzName := os.Getenv("TIMEZONE")
	if tzName == "" {
		tzName = "UTC"
	}
	tz, err := time.LoadLocation(tzName)
	if err != nil {
		return nil, fmt.Errorf("invalid TIMEZONE: %w", err)
	}

	serverPort := os.Getenv("SERVER_PORT")
	if serverPort == "" {
		serverPort = "8080"
	}

	var chatID int64
	if v := os.Getenv("TELEGRAM_CHAT_ID"); v != "" {
		chatID, err = strconv.ParseInt(v, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("TELEGRAM_CHAT_ID must be a number")
		}
	}

	return &Config{
		Provider:              provider,
		GoogleCredentialsFile: credsFile,
		GoogleAccessToken:     accessToken,
		CalDAVURL:             caldavURL,
		CalDAVUsername:        caldavUser,
		CalDAVPassword:        caldavPass,
		CalDAVSourcePaths:     sourcePaths,
		MergedCalendarName:    mergedName,
		LookbackDays:          lookback,
		LookaheadDays:         lookahead,
		SyncSchedule:          schedule,
		RunTimeout:            runTimeout,
		DatabasePath:          dbPath,
		KeyPrefix:             keyPrefix,
		Timezone:              tz,
		ServerPort:            serverPort,
		TelegramToken:         os.Getenv("TELEGRAM_BOT_TOKEN"),
		TelegramChatID:        chatID,
	}, nil
}

// NotifyEnabled reports whether run reports should be sent to Telegram.
func (c *Config) NotifyEnabled() bool {
	return c.TelegramToken != "" && c.TelegramChatID != 0
}

func intEnv(name string, def int) (int, error) {
	v := os.Getenv(name)
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 0 {
		return 0, fmt.Errorf("%s must be a non-negative number", name)
	}
	return n, nil
}
