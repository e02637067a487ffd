package out

import (
	"context"

	"swipe_server/core/domain"
)

// =============================================================================
// Email Source Port (Gmail, mock dataset)
// =============================================================================

// EmailSource supplies a normalized batch of inbox messages.
type EmailSource interface {
	Name() string
	Fetch(ctx context.Context, max int) ([]domain.NormalizedEmail, error)
}

// TokenEmailSource fetches on behalf of a user with their own access token.
// Results are user-specific and must not be shared across requests.
type TokenEmailSource interface {
	FetchWithToken(ctx context.Context, accessToken string, max int) ([]domain.NormalizedEmail, error)
}
