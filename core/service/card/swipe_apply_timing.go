package card

import (
	"strconv"
	"strings"
	"time"

	"swipe_server/core/domain"
)

const (
	inferredEventLength = 2 * time.Hour
	defaultEventLength  = time.Hour
)

var eventDateLayouts = []string{"January 2 2006", "Jan 2 2006"}

// InferTimes resolves the calendar window for card. Explicit edges win; a missing edge
// is derived from the card's event date or, failing that, from now.
func InferTimes(card *domain.EventCard, start, end *time.Time, now time.Time) (time.Time, time.Time) {
	if start != nil && end != nil {
		return *start, *end
	}

	inferredStart, length := now, defaultEventLength
	if parsed, ok := parseEventDate(card.EventDate, card.ReceivedAt, now); ok {
		inferredStart, length = parsed, inferredEventLength
	}

	switch {
	case start != nil:
		return *start, start.Add(length)
	case end != nil:
		return end.Add(-length), *end
	default:
		return inferredStart, inferredStart.Add(length)
	}
}

// parseEventDate reads "March 20" style dates in the year the email was received.
func parseEventDate(eventDate, receivedAt string, now time.Time) (time.Time, bool) {
	eventDate = strings.TrimSpace(eventDate)
	if eventDate == "" {
		return time.Time{}, false
	}

	year := now.UTC().Year()
	if received := domain.ParseTimestamp(receivedAt); !received.IsZero() {
		year = received.UTC().Year()
	}

	value := strings.Join(strings.Fields(eventDate), " ") + " " + strconv.Itoa(year)
	for _, layout := range eventDateLayouts {
		if t, err := time.ParseInLocation(layout, value, time.UTC); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// EventDescription renders the calendar description for card.
func EventDescription(card *domain.EventCard) string {
	return card.Sender + " • " + card.Preview
}
