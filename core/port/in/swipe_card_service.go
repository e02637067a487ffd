package in

import (
	"context"
	"time"

	"swipe_server/core/domain"
)

// CardService exposes the deck to the HTTP layer.
type CardService interface {
	ListCards(ctx context.Context, req *ListCardsRequest) ([]*domain.EventCard, error)
	ApplyCard(ctx context.Context, req *ApplyCardRequest) (*ApplyCardResult, error)
}

type ListCardsRequest struct {
	Filter domain.CardFilter
	// AccessToken, when set, reads the caller's own inbox and bypasses the shared deck.
	AccessToken string
}

type ApplyCardRequest struct {
	CardID      string
	AccessToken string
	Start       *time.Time
	End         *time.Time
}

type ApplyCardResult struct {
	CalendarEventID string `json:"calendarEventId,omitempty"`
	AlreadyApplied  bool   `json:"-"`
}
