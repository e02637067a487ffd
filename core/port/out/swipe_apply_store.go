package out

import (
	"context"

	"swipe_server/core/domain"
)

// ApplyStore persists ApplyRecords keyed by card id.
type ApplyStore interface {
	// Get returns nil, nil when the card has not been applied to.
	Get(ctx context.Context, cardID string) (*domain.ApplyRecord, error)
	// PutIfAbsent atomically stores rec unless a record already exists.
	// It returns the stored record and whether rec was the one inserted.
	PutIfAbsent(ctx context.Context, rec *domain.ApplyRecord) (*domain.ApplyRecord, bool, error)
}
