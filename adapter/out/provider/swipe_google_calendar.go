package provider

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/calendar/v3"
	"google.golang.org/api/option"

	"swipe_server/core/domain"
	"swipe_server/core/port/out"
)

// GoogleCalendarConfig reuses the server Gmail credential for Calendar v3.
type GoogleCalendarConfig struct {
	ClientID     string
	ClientSecret string
	RefreshToken string
	CalendarID   string // default "primary"
	Endpoint     string
}

// GoogleCalendarAdapter inserts events through the Calendar API.
type GoogleCalendarAdapter struct {
	oauthConfig  *oauth2.Config
	refreshToken string
	calendarID   string
	endpoint     string
}

var _ out.CalendarPort = (*GoogleCalendarAdapter)(nil)

func NewGoogleCalendarAdapter(cfg *GoogleCalendarConfig) *GoogleCalendarAdapter {
	calendarID := cfg.CalendarID
	if calendarID == "" {
		calendarID = "primary"
	}
	return &GoogleCalendarAdapter{
		oauthConfig: &oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			Scopes:       []string{calendar.CalendarEventsScope},
			Endpoint:     google.Endpoint,
		},
		refreshToken: cfg.RefreshToken,
		calendarID:   calendarID,
		endpoint:     cfg.Endpoint,
	}
}

// getService creates a Calendar service with the server token.
func (a *GoogleCalendarAdapter) getService(ctx context.Context) (*calendar.Service, error) {
	client := a.oauthConfig.Client(ctx, &oauth2.Token{RefreshToken: a.refreshToken})
	opts := []option.ClientOption{option.WithHTTPClient(client)}
	if a.endpoint != "" {
		opts = append(opts, option.WithEndpoint(a.endpoint))
	}
	return calendar.NewService(ctx, opts...)
}

// CreateEvent inserts a timed event without notifying attendees.
func (a *GoogleCalendarAdapter) CreateEvent(ctx context.Context, input domain.CalendarEventInput) (string, error) {
	svc, err := a.getService(ctx)
	if err != nil {
		return "", fmt.Errorf("failed to create calendar service: %w", err)
	}

	created, err := svc.Events.Insert(a.calendarID, &calendar.Event{
		Summary:     input.Title,
		Description: input.Description,
		Location:    input.Location,
		Start:       &calendar.EventDateTime{DateTime: input.Start.UTC().Format(time.RFC3339), TimeZone: "UTC"},
		End:         &calendar.EventDateTime{DateTime: input.End.UTC().Format(time.RFC3339), TimeZone: "UTC"},
	}).SendUpdates("none").Context(ctx).Do()
	if err != nil {
		return "", fmt.Errorf("failed to create event: %w", err)
	}
	return created.Id, nil
}
