package caldav

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/emersion/go-webdav/caldav"

	"github.com/gt11799/sync-google-calendar/internal/domain"
	"github.com/gt11799/sync-google-calendar/internal/service"
)

const (
	// Apple iCloud CalDAV endpoint
	DefaultiCloudURL = "https://caldav.icloud.com"
)

// Client adapts a CalDAV server to the sync engine. CalDAV has no notion of
// access roles, so the calendars listed in sourcePaths are reported as
// read-only sources and everything else as writable.
type Client struct {
	baseURL     string
	username    string
	password    string
	sourcePaths map[string]bool
	client      *caldav.Client
}

func New(baseURL, username, password string, sourcePaths []string) *Client {
	if baseURL == "" {
		baseURL = DefaultiCloudURL
	}
	paths := make(map[string]bool, len(sourcePaths))
	for _, p := range sourcePaths {
		paths[normalizePath(p)] = true
	}
	return &Client{
		baseURL:     baseURL,
		username:    username,
		password:    password,
		sourcePaths: paths,
	}
}

// connect establishes connection to the CalDAV server
func (c *Client) connect() (*caldav.Client, error) {
	if c.client != nil {
		return c.client, nil
	}

	httpClient := &http.Client{
		Transport: &basicAuthTransport{
			username: c.username,
			password: c.password,
		},
		Timeout: 30 * time.Second,
	}

	client, err := caldav.NewClient(httpClient, c.baseURL)
	if err != nil {
		return nil, fmt.Errorf("connect to CalDAV: %w", err)
	}

	c.client = client
	return client, nil
}

// basicAuthTransport adds Basic Auth to HTTP requests
type basicAuthTransport struct {
	username string
	password string
}

func (t *basicAuthTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	req.SetBasicAuth(t.username, t.password)
	return http.DefaultTransport.RoundTrip(req)
}

// ListCalendars discovers the account's calendars. CalDAV discovery is not
// paginated; the whole list comes back in one page.
func (c *Client) ListCalendars(ctx context.Context, pageToken string) (service.CalendarPage, error) {
	cals, err := c.discover(ctx)
	if err != nil {
		return service.CalendarPage{}, err
	}

	var page service.CalendarPage
	for _, cal := range cals {
		role := domain.AccessRoleWriter
		if c.sourcePaths[normalizePath(cal.Path)] {
			role = domain.AccessRoleReader
		}
		page.Items = append(page.Items, domain.CalendarInfo{
			ID:         cal.Path,
			Name:       cal.Name,
			AccessRole: role,
		})
	}
	return page, nil
}

func (c *Client) discover(ctx context.Context) ([]caldav.Calendar, error) {
	client, err := c.connect()
	if err != nil {
		return nil, err
	}

	principal, err := client.FindCurrentUserPrincipal(ctx)
	if err != nil {
		return nil, fmt.Errorf("find principal: %w", err)
	}

	homeSet, err := client.FindCalendarHomeSet(ctx, principal)
	if err != nil {
		return nil, fmt.Errorf("find home set: %w", err)
	}

	cals, err := client.FindCalendars(ctx, homeSet)
	if err != nil {
		return nil, fmt.Errorf("find calendars: %w", err)
	}
	return cals, nil
}

// ListEvents queries calendarID for VEVENTs overlapping [from, to). Recurring
// events are expanded client side: the server only filters whole objects by
// the time range.
func (c *Client) ListEvents(ctx context.Context, calendarID string, from, to time.Time, expand bool, pageToken string) (service.EventPage, error) {
	client, err := c.connect()
	if err != nil {
		return service.EventPage{}, err
	}

	query := &caldav.CalendarQuery{
		CompFilter: caldav.CompFilter{
			Name: "VCALENDAR",
			Comps: []caldav.CompFilter{
				{
					Name:  "VEVENT",
					Start: from,
					End:   to,
				},
			},
		},
	}

	objects, err := client.QueryCalendar(ctx, calendarID, query)
	if err != nil {
		return service.EventPage{}, fmt.Errorf("query calendar %s: %w", calendarID, err)
	}

	var page service.EventPage
	for _, obj := range objects {
		parsed := parseObject(calendarID, &obj)
		page.Items = append(page.Items, expandParsed(parsed, from, to, expand)...)
	}
	return page, nil
}

func (c *Client) InsertEvent(ctx context.Context, calendarID string, ev domain.MergedEvent) (string, error) {
	client, err := c.connect()
	if err != nil {
		return "", err
	}

	uid := generateUID()
	cal := renderEvent(uid, ev)
	if _, err := client.PutCalendarObject(ctx, objectPath(calendarID, uid), cal); err != nil {
		return "", fmt.Errorf("put event: %w", err)
	}
	return uid, nil
}

// PatchEvent replaces the stored object. A PUT recreates a deleted object, so
// this never reports ErrNotFound.
func (c *Client) PatchEvent(ctx context.Context, calendarID, eventID string, ev domain.MergedEvent) error {
	client, err := c.connect()
	if err != nil {
		return err
	}

	cal := renderEvent(eventID, ev)
	if _, err := client.PutCalendarObject(ctx, objectPath(calendarID, eventID), cal); err != nil {
		return fmt.Errorf("put event %s: %w", eventID, err)
	}
	return nil
}

func (c *Client) RemoveEvent(ctx context.Context, calendarID, eventID string) error {
	client, err := c.connect()
	if err != nil {
		return err
	}

	if err := client.RemoveAll(ctx, objectPath(calendarID, eventID)); err != nil {
		if strings.Contains(err.Error(), "404") {
			return fmt.Errorf("delete event %s: %w", eventID, service.ErrNotFound)
		}
		return fmt.Errorf("delete event %s: %w", eventID, err)
	}
	return nil
}

// FindOrCreateCalendarByName resolves a calendar by display name. Most CalDAV
// servers (iCloud included) do not let clients create calendars, so a missing
// calendar is an error telling the operator to create it.
func (c *Client) FindOrCreateCalendarByName(ctx context.Context, name string) (string, error) {
	cals, err := c.discover(ctx)
	if err != nil {
		return "", err
	}

	for _, cal := range cals {
		if cal.Name == name {
			return cal.Path, nil
		}
	}
	return "", fmt.Errorf("calendar %q not found; create it manually on the CalDAV server", name)
}

func objectPath(calendarPath, uid string) string {
	if !strings.HasSuffix(calendarPath, "/") {
		calendarPath += "/"
	}
	return calendarPath + uid + ".ics"
}

func normalizePath(p string) string {
	return strings.TrimSuffix(p, "/")
}

// generateUID generates a unique event ID
func generateUID() string {
	return fmt.Sprintf("%d-%d@synccal", time.Now().UnixNano(), time.Now().Unix())
}
