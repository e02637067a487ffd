package classification

import (
	"errors"
	"strings"

	"github.com/goccy/go-json"

	"swipe_server/core/domain"
)

// =============================================================================
// Reply validation
// =============================================================================
//
// The model reply is never trusted as a shape. Only a top-level parse failure rejects
// the reply; every field is then validated on its own and falls back to the heuristic
// value when missing or invalid.

// ErrNoJSONObject is returned when the reply contains no JSON object.
var ErrNoJSONObject = errors.New("reply contains no JSON object")

// ParseReply validates a model reply and merges it over fallback.
func ParseReply(reply string, fallback domain.ClassificationResult) (domain.ClassificationResult, error) {
	payload := extractJSONObject(reply)
	if payload == "" {
		return fallback, ErrNoJSONObject
	}

	var fields map[string]json.RawMessage
	if err := json.Unmarshal([]byte(payload), &fields); err != nil {
		return fallback, err
	}

	result := domain.ClassificationResult{
		Skip:          boolField(fields["skip"]),
		Type:          domain.CardTypeEvent,
		EventDate:     stringField(fields["eventDate"], fallback.EventDate),
		Location:      stringField(fields["location"], fallback.Location),
		Summary:       stringField(fields["summary"], fallback.Summary),
		GoogleFormURL: urlField(fields["googleFormUrl"], fallback.GoogleFormURL),
		Tags:          sanitizeTags(fields["tags"], fallback.Tags),
	}

	if t, ok := domain.ParseCardType(strings.ToLower(rawString(fields["type"]))); ok {
		result.Type = t
	}
	if et := domain.EventType(strings.ToLower(rawString(fields["eventType"]))); et.IsValid() {
		result.EventType = et
	}
	if ct := domain.ClubType(strings.ToLower(rawString(fields["clubType"]))); ct.IsValid() {
		result.ClubType = ct
	}
	if at := domain.Atmosphere(strings.ToLower(rawString(fields["atmosphere"]))); at.IsValid() {
		result.Atmosphere = at
	}

	result.Normalize()
	return result, nil
}

// extractJSONObject strips code fences and returns the outermost {...} span.
func extractJSONObject(reply string) string {
	text := strings.TrimSpace(reply)
	text = strings.TrimPrefix(text, "```json")
	text = strings.TrimPrefix(text, "```")
	text = strings.TrimSuffix(text, "```")

	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start < 0 || end <= start {
		return ""
	}
	return text[start : end+1]
}

// rawString decodes a JSON string, returning "" for null or non-strings.
func rawString(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return ""
	}
	return strings.TrimSpace(s)
}

func stringField(raw json.RawMessage, fallback string) string {
	if s := rawString(raw); s != "" && !strings.EqualFold(s, "null") {
		return s
	}
	return fallback
}

func urlField(raw json.RawMessage, fallback string) string {
	s := rawString(raw)
	if s == "" || strings.EqualFold(s, "null") {
		return fallback
	}
	lower := strings.ToLower(s)
	if !strings.HasPrefix(lower, "http://") && !strings.HasPrefix(lower, "https://") {
		return fallback
	}
	return s
}

func boolField(raw json.RawMessage) bool {
	if len(raw) == 0 {
		return false
	}
	var b bool
	if err := json.Unmarshal(raw, &b); err != nil {
		return false
	}
	return b
}

// sanitizeTags keeps up to MaxTags trimmed, non-empty, distinct strings.
func sanitizeTags(raw json.RawMessage, fallback []string) []string {
	if len(raw) == 0 {
		return append([]string(nil), fallback...)
	}
	var items []any
	if err := json.Unmarshal(raw, &items); err != nil {
		return append([]string(nil), fallback...)
	}

	tags := make([]string, 0, domain.MaxTags)
	for _, item := range items {
		s, ok := item.(string)
		if !ok {
			continue
		}
		tags = append(tags, strings.TrimSpace(s))
	}
	tags = dedupe(tags)
	if len(tags) > domain.MaxTags {
		tags = tags[:domain.MaxTags]
	}
	if len(tags) == 0 {
		return append([]string(nil), fallback...)
	}
	return tags
}
