package gcal

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"golang.org/x/oauth2"
	"google.golang.org/api/calendar/v3"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"

	"github.com/gt11799/sync-google-calendar/internal/domain"
	"github.com/gt11799/sync-google-calendar/internal/service"
)

// Client adapts the Google Calendar v3 API to the sync engine.
type Client struct {
	svc *calendar.Service
}

// New builds a client from a service-account credentials file or, when that
// is not configured, a raw OAuth access token.
func New(ctx context.Context, credentialsFile, accessToken string) (*Client, error) {
	var opts []option.ClientOption
	switch {
	case credentialsFile != "":
		opts = append(opts, option.WithCredentialsFile(credentialsFile))
	case accessToken != "":
		ts := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: accessToken})
		opts = append(opts, option.WithTokenSource(ts))
	default:
		return nil, errors.New("google calendar needs GOOGLE_CREDENTIALS_FILE or GOOGLE_ACCESS_TOKEN")
	}

	svc, err := calendar.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("create calendar service: %w", err)
	}
	return &Client{svc: svc}, nil
}

func (c *Client) ListCalendars(ctx context.Context, pageToken string) (service.CalendarPage, error) {
	call := c.svc.CalendarList.List().Context(ctx)
	if pageToken != "" {
		call = call.PageToken(pageToken)
	}
	list, err := call.Do()
	if err != nil {
		return service.CalendarPage{}, fmt.Errorf("list calendars: %w", err)
	}

	page := service.CalendarPage{NextPageToken: list.NextPageToken}
	for _, entry := range list.Items {
		page.Items = append(page.Items, domain.CalendarInfo{
			ID:         entry.Id,
			Name:       entry.Summary,
			AccessRole: entry.AccessRole,
		})
	}
	return page, nil
}

func (c *Client) ListEvents(ctx context.Context, calendarID string, from, to time.Time, expand bool, pageToken string) (service.EventPage, error) {
	call := c.svc.Events.List(calendarID).
		TimeMin(from.Format(time.RFC3339)).
		TimeMax(to.Format(time.RFC3339)).
		SingleEvents(expand).
		ShowDeleted(true).
		Context(ctx)
	if pageToken != "" {
		call = call.PageToken(pageToken)
	}
	list, err := call.Do()
	if err != nil {
		return service.EventPage{}, fmt.Errorf("list events of %s: %w", calendarID, err)
	}

	page := service.EventPage{NextPageToken: list.NextPageToken}
	for _, item := range list.Items {
		page.Items = append(page.Items, eventFromAPI(calendarID, item))
	}
	return page, nil
}

func (c *Client) InsertEvent(ctx context.Context, calendarID string, ev domain.MergedEvent) (string, error) {
	created, err := c.svc.Events.Insert(calendarID, eventToAPI(ev)).Context(ctx).Do()
	if err != nil {
		return "", fmt.Errorf("insert event: %w", err)
	}
	return created.Id, nil
}

func (c *Client) PatchEvent(ctx context.Context, calendarID, eventID string, ev domain.MergedEvent) error {
	body := eventToAPI(ev)
	// Patch skips empty fields unless forced, which would leave a cleared
	// title or location stuck at its old value.
	body.ForceSendFields = []string{"Summary", "Description", "Location"}
	if _, err := c.svc.Events.Patch(calendarID, eventID, body).Context(ctx).Do(); err != nil {
		if isGone(err) {
			return fmt.Errorf("patch event %s: %w", eventID, service.ErrNotFound)
		}
		return fmt.Errorf("patch event %s: %w", eventID, err)
	}
	return nil
}

func (c *Client) RemoveEvent(ctx context.Context, calendarID, eventID string) error {
	if err := c.svc.Events.Delete(calendarID, eventID).Context(ctx).Do(); err != nil {
		if isGone(err) {
			return fmt.Errorf("delete event %s: %w", eventID, service.ErrNotFound)
		}
		return fmt.Errorf("delete event %s: %w", eventID, err)
	}
	return nil
}

func (c *Client) FindOrCreateCalendarByName(ctx context.Context, name string) (string, error) {
	pageToken := ""
	for {
		call := c.svc.CalendarList.List().Context(ctx)
		if pageToken != "" {
			call = call.PageToken(pageToken)
		}
		list, err := call.Do()
		if err != nil {
			return "", fmt.Errorf("list calendars: %w", err)
		}
		for _, entry := range list.Items {
			if entry.Summary == name {
				return entry.Id, nil
			}
		}
		if list.NextPageToken == "" {
			break
		}
		pageToken = list.NextPageToken
	}

	created, err := c.svc.Calendars.Insert(&calendar.Calendar{Summary: name}).Context(ctx).Do()
	if err != nil {
		return "", fmt.Errorf("create calendar %q: %w", name, err)
	}
	return created.Id, nil
}

// isGone reports whether err is the API saying the resource does not exist
// anymore (404) or was deleted (410).
func isGone(err error) bool {
	var apiErr *googleapi.Error
	if errors.As(err, &apiErr) {
		return apiErr.Code == http.StatusNotFound || apiErr.Code == http.StatusGone
	}
	return false
}
