package http

import (
	"context"
	"errors"
	"io"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/goccy/go-json"
	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"swipe_server/core/domain"
	"swipe_server/core/port/in"
	"swipe_server/infra/middleware"
	"swipe_server/pkg/apperr"
)

type fakeCardService struct {
	mu        sync.Mutex
	cards     []*domain.EventCard
	listErr   error
	applyErr  error
	listReqs  []*in.ListCardsRequest
	applyReqs []*in.ApplyCardRequest
}

func (f *fakeCardService) ListCards(ctx context.Context, req *in.ListCardsRequest) ([]*domain.EventCard, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.listReqs = append(f.listReqs, req)
	if f.listErr != nil {
		return nil, f.listErr
	}
	var out []*domain.EventCard
	for _, c := range f.cards {
		if req.Filter.Matches(c) {
			out = append(out, c)
		}
	}
	return out, nil
}

func (f *fakeCardService) ApplyCard(ctx context.Context, req *in.ApplyCardRequest) (*in.ApplyCardResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.applyReqs = append(f.applyReqs, req)
	if f.applyErr != nil {
		return nil, f.applyErr
	}
	for _, c := range f.cards {
		if c.ID == req.CardID {
			return &in.ApplyCardResult{CalendarEventID: "evt-" + c.ID}, nil
		}
	}
	return nil, apperr.NotFound("card")
}

func newHandlerApp(svc in.CardService) *fiber.App {
	app := fiber.New(fiber.Config{
		ErrorHandler: middleware.ErrorHandler(),
		JSONEncoder:  json.Marshal,
		JSONDecoder:  json.Unmarshal,
	})
	app.Use(middleware.RequestID())
	NewCardHandler(svc).Register(app.Group("/api"))
	NewHealthHandler().Register(app)
	return app
}

func sampleCards() []*domain.EventCard {
	return []*domain.EventCard{
		{ID: "e1", Subject: "Founders Summit", Type: domain.CardTypeEvent, Tags: []string{"Event"}},
		{ID: "c1", Subject: "Chess Club", Type: domain.CardTypeClub, Tags: []string{"Club"}},
	}
}

func TestCardHandler_ListCards(t *testing.T) {
	svc := &fakeCardService{cards: sampleCards()}
	app := newHandlerApp(svc)

	tests := []struct {
		name       string
		query      string
		wantStatus int
		wantIDs    []string
	}{
		{"all", "", 200, []string{"e1", "c1"}},
		{"events", "?type=event", 200, []string{"e1"}},
		{"clubs", "?type=club", 200, []string{"c1"}},
		{"invalid type", "?type=party", 400, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, err := app.Test(httptest.NewRequest("GET", "/api/cards"+tt.query, nil))
			require.NoError(t, err)
			assert.Equal(t, tt.wantStatus, resp.StatusCode)
			if tt.wantStatus != 200 {
				return
			}

			var body struct {
				Data []*domain.EventCard `json:"data"`
			}
			require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
			ids := make([]string, 0, len(body.Data))
			for _, c := range body.Data {
				ids = append(ids, c.ID)
			}
			assert.Equal(t, tt.wantIDs, ids)
		})
	}
}

func TestCardHandler_ListCards_EmptyIsArray(t *testing.T) {
	app := newHandlerApp(&fakeCardService{})

	resp, err := app.Test(httptest.NewRequest("GET", "/api/cards", nil))
	require.NoError(t, err)
	raw := new(strings.Builder)
	_, _ = io.Copy(raw, resp.Body)
	assert.JSONEq(t, `{"data":[]}`, raw.String())
}

func TestCardHandler_ListCards_AccessToken(t *testing.T) {
	svc := &fakeCardService{cards: sampleCards()}
	app := newHandlerApp(svc)

	req := httptest.NewRequest("GET", "/api/cards", nil)
	req.Header.Set(AccessTokenHeader, "Bearer ya29.token")
	_, err := app.Test(req)
	require.NoError(t, err)

	require.Len(t, svc.listReqs, 1)
	assert.Equal(t, "ya29.token", svc.listReqs[0].AccessToken)
}

func TestCardHandler_ListCards_SourceError(t *testing.T) {
	svc := &fakeCardService{listErr: apperr.ExternalError("gmail", errors.New("quota"))}
	app := newHandlerApp(svc)

	resp, err := app.Test(httptest.NewRequest("GET", "/api/cards", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusBadGateway, resp.StatusCode)

	var body middleware.ErrorResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, apperr.CodeExternalError, body.Error.Code)
}

func postApply(t *testing.T, app *fiber.App, id, body string) (int, map[string]any) {
	t.Helper()
	req := httptest.NewRequest("POST", "/api/cards/"+id+"/apply", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	resp, err := app.Test(req)
	require.NoError(t, err)

	var out map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	return resp.StatusCode, out
}

func TestCardHandler_ApplyCard(t *testing.T) {
	tests := []struct {
		name       string
		id         string
		body       string
		wantStatus int
		wantCode   string
	}{
		{"ok", "e1", `{"status":"applied"}`, 200, ""},
		{"with calendar", "e1", `{"status":"applied","calendar":{"start":"2025-03-20T17:00:00Z"}}`, 200, ""},
		{"unknown card", "nope", `{"status":"applied"}`, 404, apperr.CodeNotFound},
		{"wrong status", "e1", `{"status":"rejected"}`, 400, apperr.CodeValidationFailed},
		{"missing status", "e1", `{}`, 400, apperr.CodeValidationFailed},
		{"bad json", "e1", `{"status":`, 400, apperr.CodeBadRequest},
		{"bad start", "e1", `{"status":"applied","calendar":{"start":"tomorrow"}}`, 400, apperr.CodeValidationFailed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			app := newHandlerApp(&fakeCardService{cards: sampleCards()})
			status, body := postApply(t, app, tt.id, tt.body)
			assert.Equal(t, tt.wantStatus, status)
			if tt.wantCode == "" {
				assert.Equal(t, "ok", body["status"])
				assert.Equal(t, "evt-"+tt.id, body["calendarEventId"])
				return
			}
			errBody, _ := body["error"].(map[string]any)
			assert.Equal(t, tt.wantCode, errBody["code"])
		})
	}
}

func TestCardHandler_ApplyCard_PassesWindow(t *testing.T) {
	svc := &fakeCardService{cards: sampleCards()}
	app := newHandlerApp(svc)

	status, _ := postApply(t, app, "e1",
		`{"status":"applied","calendar":{"start":"2025-03-20T17:00:00Z","end":"2025-03-20T19:30:00Z"}}`)
	require.Equal(t, 200, status)

	require.Len(t, svc.applyReqs, 1)
	req := svc.applyReqs[0]
	require.NotNil(t, req.Start)
	require.NotNil(t, req.End)
	assert.True(t, req.Start.Equal(time.Date(2025, 3, 20, 17, 0, 0, 0, time.UTC)))
	assert.Equal(t, 150*time.Minute, req.End.Sub(*req.Start))
}

func TestCardHandler_ApplyCard_CalendarFailure(t *testing.T) {
	svc := &fakeCardService{cards: sampleCards(), applyErr: apperr.ExternalError("calendar", errors.New("503"))}
	app := newHandlerApp(svc)

	status, body := postApply(t, app, "e1", `{"status":"applied"}`)
	assert.Equal(t, fiber.StatusBadGateway, status)
	assert.Equal(t, false, body["success"])
}

func TestHealthHandler(t *testing.T) {
	app := fiber.New()
	NewHealthHandler().
		WithCheck("redis", PingFunc(func(ctx context.Context) error { return nil })).
		WithCheck("postgres", nil).
		Register(app)

	resp, err := app.Test(httptest.NewRequest("GET", "/health", nil))
	require.NoError(t, err)
	assert.Equal(t, 200, resp.StatusCode)

	resp, err = app.Test(httptest.NewRequest("GET", "/ready", nil))
	require.NoError(t, err)
	assert.Equal(t, 200, resp.StatusCode)

	var body struct {
		Checks map[string]string `json:"checks"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, map[string]string{"redis": "healthy"}, body.Checks)
}

func TestHealthHandler_NotReady(t *testing.T) {
	app := fiber.New()
	NewHealthHandler().
		WithCheck("redis", PingFunc(func(ctx context.Context) error { return errors.New("refused") })).
		Register(app)

	resp, err := app.Test(httptest.NewRequest("GET", "/ready", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusServiceUnavailable, resp.StatusCode)
}

func TestHealthHandler_Metrics(t *testing.T) {
	app := fiber.New()
	NewHealthHandler().Register(app)

	resp, err := app.Test(httptest.NewRequest("GET", "/metrics", nil))
	require.NoError(t, err)
	assert.Equal(t, 200, resp.StatusCode)
}
