// Package classification implements the heuristic-then-LLM email classification pipeline.
package classification

import (
	"regexp"
	"strings"

	"swipe_server/core/domain"
)

// =============================================================================
// Heuristic Classifier (Stage 1)
// =============================================================================

type keyword struct {
	re        *regexp.Regexp
	eventType domain.EventType
}

var (
	eventKeywords = []keyword{
		{regexp.MustCompile(`(?i)summit`), domain.EventTypeSummit},
		{regexp.MustCompile(`(?i)conference`), domain.EventTypeConference},
		{regexp.MustCompile(`(?i)fellowship`), domain.EventTypeFellowship},
		{regexp.MustCompile(`(?i)hackathon`), domain.EventTypeHackathon},
		{regexp.MustCompile(`(?i)expo`), domain.EventTypeExpo},
		{regexp.MustCompile(`(?i)festival`), domain.EventTypeFestival},
	}

	clubKeywords = []*regexp.Regexp{
		regexp.MustCompile(`(?i)club`),
		regexp.MustCompile(`(?i)collective`),
		regexp.MustCompile(`(?i)chapter`),
		regexp.MustCompile(`(?i)cohort`),
		regexp.MustCompile(`(?i)meetup`),
		regexp.MustCompile(`(?i)guild`),
	}

	dateRe     = regexp.MustCompile(`(?i)(january|february|march|april|may|june|july|august|september|october|november|december)\s+\d{1,2}`)
	locationRe = regexp.MustCompile(`\b(?:in|at)\s+([A-Z][A-Za-z]+(?:\s[A-Z][A-Za-z]+)*|\b[A-Z]{2,}\b)`)

	aiTagRe      = regexp.MustCompile(`(?i)ai`)
	designTagRe  = regexp.MustCompile(`(?i)design`)
	founderTagRe = regexp.MustCompile(`(?i)founder`)
)

// HeuristicClassifier classifies with keyword regexes only. It never fails and never skips.
type HeuristicClassifier struct{}

// NewHeuristicClassifier creates a heuristic classifier.
func NewHeuristicClassifier() *HeuristicClassifier {
	return &HeuristicClassifier{}
}

// Name returns the classifier name.
func (c *HeuristicClassifier) Name() string {
	return "heuristic"
}

// Stage returns the pipeline stage number.
func (c *HeuristicClassifier) Stage() int {
	return 1
}

// Classify produces a fallback classification for email.
func (c *HeuristicClassifier) Classify(email *domain.NormalizedEmail) domain.ClassificationResult {
	cardType, eventType := detectCategory(email)

	result := domain.ClassificationResult{
		Type:          cardType,
		EventType:     eventType,
		EventDate:     dateRe.FindString(email.Body),
		Location:      detectLocation(email.Body),
		Tags:          buildTags(email, cardType),
		Summary:       Preview(email.Body),
		GoogleFormURL: FindGoogleFormURL(email.Body, email.Links),
	}
	result.Normalize()
	return result
}

// detectCategory counts distinct keyword hits per category. Ties go to event.
func detectCategory(email *domain.NormalizedEmail) (domain.CardType, domain.EventType) {
	haystack := email.Subject + " " + email.Body

	eventScore := 0
	var firstEvent domain.EventType
	for _, kw := range eventKeywords {
		if kw.re.MatchString(haystack) {
			eventScore++
			if firstEvent == "" {
				firstEvent = kw.eventType
			}
		}
	}

	clubScore := 0
	for _, re := range clubKeywords {
		if re.MatchString(haystack) {
			clubScore++
		}
	}

	if eventScore >= clubScore {
		return domain.CardTypeEvent, firstEvent
	}
	return domain.CardTypeClub, ""
}

func detectLocation(body string) string {
	m := locationRe.FindStringSubmatch(body)
	if len(m) < 2 {
		return ""
	}
	return m[1]
}

func buildTags(email *domain.NormalizedEmail, cardType domain.CardType) []string {
	tags := make([]string, 0, 4)
	if aiTagRe.MatchString(email.Subject) {
		tags = append(tags, "AI")
	}
	if designTagRe.MatchString(email.Subject) {
		tags = append(tags, "Design")
	}
	if founderTagRe.MatchString(email.Body) {
		tags = append(tags, "Founder")
	}
	if cardType == domain.CardTypeClub {
		tags = append(tags, "Club")
	} else {
		tags = append(tags, "Event")
	}
	return dedupe(tags)
}

// Preview returns the first PreviewLength runes of body, trimmed.
func Preview(body string) string {
	runes := []rune(body)
	if len(runes) > domain.PreviewLength {
		runes = runes[:domain.PreviewLength]
	}
	return strings.TrimSpace(string(runes))
}

// dedupe drops empty strings and repeats, keeping the first occurrence.
func dedupe(values []string) []string {
	seen := make(map[string]bool, len(values))
	out := make([]string, 0, len(values))
	for _, v := range values {
		if v == "" || seen[v] {
			continue
		}
		seen[v] = true
		out = append(out, v)
	}
	return out
}
