package domain

import "time"

// NormalizedEmail is the provider-agnostic message the pipeline consumes.
// Body is always plaintext; Links preserves extraction order and may repeat.
type NormalizedEmail struct {
	ID         string   `json:"id" yaml:"id"`
	From       string   `json:"from" yaml:"from"`
	Subject    string   `json:"subject" yaml:"subject"`
	Body       string   `json:"body" yaml:"body"`
	ReceivedAt string   `json:"receivedAt" yaml:"receivedAt"`
	Links      []string `json:"links" yaml:"links"`
}

const (
	DefaultSender  = "Unknown Sender"
	DefaultSubject = "Untitled"
)

// ReceivedTime parses ReceivedAt. Unparseable values sort as the zero time.
func (e *NormalizedEmail) ReceivedTime() time.Time {
	return ParseTimestamp(e.ReceivedAt)
}

// ParseTimestamp parses an ISO-8601 timestamp, returning the zero time on failure.
func ParseTimestamp(s string) time.Time {
	if s == "" {
		return time.Time{}
	}
	for _, layout := range []string{time.RFC3339Nano, time.RFC3339, "2006-01-02T15:04:05", "2006-01-02"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t
		}
	}
	return time.Time{}
}

// FormatTimestamp renders t the way ReceivedAt is stored.
func FormatTimestamp(t time.Time) string {
	return t.UTC().Format("2006-01-02T15:04:05.000Z07:00")
}
