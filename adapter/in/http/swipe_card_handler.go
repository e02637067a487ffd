package http

import (
	"strings"
	"time"

	"swipe_server/core/domain"
	"swipe_server/core/port/in"
	"swipe_server/pkg/apperr"

	"github.com/gofiber/fiber/v2"
)

// AccessTokenHeader carries a caller's Gmail access token.
const AccessTokenHeader = "X-Gmail-Access-Token"

type CardHandler struct {
	cardService  in.CardService
	applyLimiter fiber.Handler
}

func NewCardHandler(cardService in.CardService) *CardHandler {
	return &CardHandler{cardService: cardService}
}

// WithApplyLimiter guards the apply route, which reaches the calendar.
func (h *CardHandler) WithApplyLimiter(limiter fiber.Handler) *CardHandler {
	h.applyLimiter = limiter
	return h
}

func (h *CardHandler) Register(app fiber.Router) {
	cards := app.Group("/cards")
	cards.Get("/", h.ListCards)
	if h.applyLimiter != nil {
		cards.Post("/:id/apply", h.applyLimiter, h.ApplyCard)
	} else {
		cards.Post("/:id/apply", h.ApplyCard)
	}
}

func (h *CardHandler) ListCards(c *fiber.Ctx) error {
	filter := domain.CardFilter{}
	if raw := c.Query("type"); raw != "" {
		cardType, ok := domain.ParseCardType(raw)
		if !ok {
			return apperr.ValidationFailed("type must be event or club").WithDetail("type", raw)
		}
		filter.Type = cardType
	}

	cards, err := h.cardService.ListCards(c.UserContext(), &in.ListCardsRequest{
		Filter:      filter,
		AccessToken: accessToken(c),
	})
	if err != nil {
		return err
	}
	if cards == nil {
		cards = []*domain.EventCard{}
	}

	return c.JSON(fiber.Map{"data": cards})
}

type applyCalendarBody struct {
	Start string `json:"start,omitempty"`
	End   string `json:"end,omitempty"`
}

type applyCardBody struct {
	Status   string             `json:"status"`
	Calendar *applyCalendarBody `json:"calendar,omitempty"`
}

type applyCardResponse struct {
	Status          string `json:"status"`
	CalendarEventID string `json:"calendarEventId,omitempty"`
}

func (h *CardHandler) ApplyCard(c *fiber.Ctx) error {
	cardID := c.Params("id")
	if cardID == "" {
		return apperr.BadRequest("card id is required")
	}

	var body applyCardBody
	if err := c.BodyParser(&body); err != nil {
		return apperr.BadRequest("invalid request body")
	}
	if body.Status != "applied" {
		return apperr.ValidationFailed(`status must be "applied"`).WithDetail("status", body.Status)
	}

	req := &in.ApplyCardRequest{
		CardID:      cardID,
		AccessToken: accessToken(c),
	}
	if body.Calendar != nil {
		var err error
		if req.Start, err = parseOptionalTime("calendar.start", body.Calendar.Start); err != nil {
			return err
		}
		if req.End, err = parseOptionalTime("calendar.end", body.Calendar.End); err != nil {
			return err
		}
	}

	result, err := h.cardService.ApplyCard(c.UserContext(), req)
	if err != nil {
		return err
	}

	return c.JSON(applyCardResponse{
		Status:          "ok",
		CalendarEventID: result.CalendarEventID,
	})
}

func accessToken(c *fiber.Ctx) string {
	token := strings.TrimSpace(c.Get(AccessTokenHeader))
	return strings.TrimSpace(strings.TrimPrefix(token, "Bearer "))
}

func parseOptionalTime(field, value string) (*time.Time, error) {
	if value == "" {
		return nil, nil
	}
	t, err := time.Parse(time.RFC3339, value)
	if err != nil {
		return nil, apperr.ValidationFailed(field+" must be an RFC 3339 timestamp").WithDetail("field", field)
	}
	return &t, nil
}
