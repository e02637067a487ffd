package provider

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/goccy/go-json"
	"github.com/rs/zerolog"
	"github.com/sony/gobreaker"

	"swipe_server/core/domain"
	"swipe_server/core/port/out"
	"swipe_server/pkg/httputil"
)

// =============================================================================
// HTTP Calendar (MCP webhook)
// =============================================================================

// StatusError is a non-2xx reply from an HTTP collaborator.
type StatusError struct {
	Code int
	Body string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("failed to create calendar event: %d %s", e.Code, e.Body)
}

// HTTPCalendarAdapter posts events to an external calendar service.
type HTTPCalendarAdapter struct {
	baseURL string
	apiKey  string
	client  *http.Client
	cb      *gobreaker.CircuitBreaker
}

var _ out.CalendarPort = (*HTTPCalendarAdapter)(nil)

func NewHTTPCalendarAdapter(baseURL, apiKey string, log zerolog.Logger) *HTTPCalendarAdapter {
	return &HTTPCalendarAdapter{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		client:  httputil.NewClient(httputil.CalendarClientConfig()),
		cb:      newBreaker("calendar-http", log.With().Str("adapter", "calendar_http").Logger()),
	}
}

type httpEventRequest struct {
	Title       string `json:"title"`
	Description string `json:"description,omitempty"`
	Start       string `json:"start"`
	End         string `json:"end"`
	Location    string `json:"location,omitempty"`
}

type httpEventResponse struct {
	ID      string `json:"id"`
	EventID string `json:"eventId"`
}

// CreateEvent posts input to <base>/events and returns the reply's id.
func (a *HTTPCalendarAdapter) CreateEvent(ctx context.Context, input domain.CalendarEventInput) (string, error) {
	payload, err := json.Marshal(httpEventRequest{
		Title:       input.Title,
		Description: input.Description,
		Start:       domain.FormatTimestamp(input.Start),
		End:         domain.FormatTimestamp(input.End),
		Location:    input.Location,
	})
	if err != nil {
		return "", err
	}

	id, err := a.cb.Execute(func() (interface{}, error) {
		return a.post(ctx, payload)
	})
	if err != nil {
		return "", err
	}
	return id.(string), nil
}

func (a *HTTPCalendarAdapter) post(ctx context.Context, payload []byte) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.baseURL+"/events", bytes.NewReader(payload))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")
	if a.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+a.apiKey)
	}

	resp, err := a.client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", &StatusError{Code: resp.StatusCode, Body: strings.TrimSpace(string(body))}
	}

	var parsed httpEventResponse
	if len(bytes.TrimSpace(body)) > 0 {
		_ = json.Unmarshal(body, &parsed)
	}
	switch {
	case parsed.ID != "":
		return parsed.ID, nil
	case parsed.EventID != "":
		return parsed.EventID, nil
	default:
		return "mock-event", nil
	}
}

// =============================================================================
// Mock Calendar
// =============================================================================

// MockCalendar fabricates event ids when no calendar is configured.
type MockCalendar struct {
	now func() time.Time
}

var _ out.CalendarPort = (*MockCalendar)(nil)

func NewMockCalendar(now func() time.Time) *MockCalendar {
	if now == nil {
		now = time.Now
	}
	return &MockCalendar{now: now}
}

// CreateEvent returns mock-event-<unix-ms>.
func (c *MockCalendar) CreateEvent(ctx context.Context, input domain.CalendarEventInput) (string, error) {
	return "mock-event-" + strconv.FormatInt(c.now().UnixMilli(), 10), nil
}
