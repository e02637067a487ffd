package out

import (
	"context"

	"swipe_server/core/domain"
)

// CalendarPort schedules an event and returns the provider's opaque id.
type CalendarPort interface {
	CreateEvent(ctx context.Context, input domain.CalendarEventInput) (string, error)
}
