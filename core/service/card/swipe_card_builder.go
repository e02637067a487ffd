// Package card turns classified emails into swipe cards and serves the deck.
package card

import (
	"context"
	"net/url"
	"strings"

	"swipe_server/core/domain"
	"swipe_server/core/service/classification"
)

// DefaultRedirectBase is the apply link used when an email carries no link at all.
const DefaultRedirectBase = "https://tigerswipe.local/apply"

// Classifier produces the final classification for one email.
type Classifier interface {
	Classify(ctx context.Context, email *domain.NormalizedEmail) domain.ClassificationResult
}

// Builder assembles EventCards from classified emails.
type Builder struct {
	classifier   Classifier
	redirectBase string
}

func NewBuilder(classifier Classifier, redirectBase string) *Builder {
	if redirectBase == "" {
		redirectBase = DefaultRedirectBase
	}
	return &Builder{
		classifier:   classifier,
		redirectBase: strings.TrimRight(redirectBase, "?"),
	}
}

// Build classifies email and returns its card. ok is false when the email was skipped.
func (b *Builder) Build(ctx context.Context, email *domain.NormalizedEmail) (*domain.EventCard, bool) {
	result := b.classifier.Classify(ctx, email)
	if result.Skip {
		return nil, false
	}

	preview := classification.Preview(result.Summary)
	if preview == "" {
		preview = classification.Preview(email.Body)
	}

	return &domain.EventCard{
		ID:         email.ID,
		Subject:    email.Subject,
		Sender:     email.From,
		Preview:    preview,
		Type:       result.Type,
		ApplyLink:  b.applyLink(email, result.GoogleFormURL),
		EventDate:  result.EventDate,
		Location:   result.Location,
		Tags:       append([]string(nil), result.Tags...),
		ReceivedAt: email.ReceivedAt,
		EventType:  result.EventType,
		ClubType:   result.ClubType,
		Atmosphere: result.Atmosphere,
	}, true
}

// applyLink picks the first of: classified form URL, a form URL in the raw email,
// the first link, the redirect fallback.
func (b *Builder) applyLink(email *domain.NormalizedEmail, formURL string) string {
	if formURL != "" {
		return formURL
	}
	if found := classification.FindGoogleFormURL(email.Body, email.Links); found != "" {
		return found
	}
	if len(email.Links) > 0 {
		return email.Links[0]
	}
	return b.redirectBase + "?rid=" + url.QueryEscape(email.ID)
}
