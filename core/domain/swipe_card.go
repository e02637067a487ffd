package domain

import "time"

// PreviewLength caps EventCard.Preview and the heuristic summary.
const PreviewLength = 180

// EventCard is the user-facing unit of the deck.
type EventCard struct {
	ID         string     `json:"id"`
	Subject    string     `json:"subject"`
	Sender     string     `json:"sender"`
	Preview    string     `json:"preview"`
	Type       CardType   `json:"type"`
	ApplyLink  string     `json:"applyLink"`
	EventDate  string     `json:"eventDate,omitempty"`
	Location   string     `json:"location,omitempty"`
	Tags       []string   `json:"tags"`
	ReceivedAt string     `json:"receivedAt"`
	EventType  EventType  `json:"eventType,omitempty"`
	ClubType   ClubType   `json:"clubType,omitempty"`
	Atmosphere Atmosphere `json:"atmosphere,omitempty"`
}

// Clone copies the card including its tag slice.
func (c *EventCard) Clone() *EventCard {
	if c == nil {
		return nil
	}
	cp := *c
	cp.Tags = append([]string(nil), c.Tags...)
	return &cp
}

// CardFilter narrows a deck listing. An empty Type means all cards.
type CardFilter struct {
	Type CardType
}

// Matches reports whether card passes the filter.
func (f CardFilter) Matches(card *EventCard) bool {
	return f.Type == "" || card.Type == f.Type
}

// ApplyRecord remembers a confirmed application for a card.
type ApplyRecord struct {
	CardID          string    `json:"cardId" db:"card_id"`
	Subject         string    `json:"subject" db:"subject"`
	Tags            []string  `json:"tags" db:"-"`
	AppliedAt       time.Time `json:"appliedAt" db:"applied_at"`
	CalendarEventID string    `json:"calendarEventId,omitempty" db:"calendar_event_id"`
}

// CalendarEventInput is what gets scheduled when a card is applied to.
type CalendarEventInput struct {
	Title       string    `json:"title"`
	Description string    `json:"description,omitempty"`
	Start       time.Time `json:"start"`
	End         time.Time `json:"end"`
	Location    string    `json:"location,omitempty"`
}
