package normalize

import (
	"encoding/base64"
	"testing"
	"time"

	"swipe_server/core/domain"
)

func enc(s string) string {
	return base64.RawURLEncoding.EncodeToString([]byte(s))
}

func fixedClock() func() time.Time {
	t := time.Date(2025, 1, 2, 12, 0, 0, 0, time.UTC)
	return func() time.Time { return t }
}

func TestHTMLToText(t *testing.T) {
	tests := []struct {
		name     string
		html     string
		expected string
	}{
		{"plain tags", "<p>Hello <b>world</b></p>", "Hello world"},
		{"entities", "Tom&nbsp;&amp;&nbsp;Jerry &lt;3 &quot;hi&quot; &gt;", `Tom & Jerry <3 "hi" >`},
		{"script removed", "<script>var x = 1;</script><div>Body</div>", "Body"},
		{"style removed", "<style>.a{}</style>Text", "Text"},
		{"escaped entity kept literal", "&amp;lt;", "&lt;"},
		{"empty", "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := HTMLToText(tt.html); got != tt.expected {
				t.Errorf("expected %q, got %q", tt.expected, got)
			}
		})
	}
}

func TestExtractLinks(t *testing.T) {
	body := "Apply at https://test.org/apply (or http://b.io/x) and https://test.org/apply again"
	links := ExtractLinks(body)

	expected := []string{"https://test.org/apply", "http://b.io/x", "https://test.org/apply"}
	if len(links) != len(expected) {
		t.Fatalf("expected %d links, got %d: %v", len(expected), len(links), links)
	}
	for i := range expected {
		if links[i] != expected[i] {
			t.Errorf("link %d: expected %q, got %q", i, expected[i], links[i])
		}
	}
}

func TestDecodeBase64URL(t *testing.T) {
	tests := []struct {
		name     string
		data     string
		expected string
	}{
		{"unpadded url-safe", enc("hello?>>"), "hello?>>"},
		{"padded", base64.URLEncoding.EncodeToString([]byte("hi")), "hi"},
		{"standard alphabet", base64.StdEncoding.EncodeToString([]byte("??>>")), "??>>"},
		{"garbage", "!!!not base64!!!", ""},
		{"empty", "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := DecodeBase64URL(tt.data); got != tt.expected {
				t.Errorf("expected %q, got %q", tt.expected, got)
			}
		})
	}
}

func TestExtractBody(t *testing.T) {
	tests := []struct {
		name     string
		payload  *Part
		expected string
	}{
		{
			name:     "single part text",
			payload:  &Part{MimeType: "text/plain", Data: enc("Just text")},
			expected: "Just text",
		},
		{
			name:     "single part html is stripped",
			payload:  &Part{MimeType: "text/html", Data: enc("<p>Hi&nbsp;there</p>")},
			expected: "Hi there",
		},
		{
			name: "prefers plaintext over html",
			payload: &Part{MimeType: "multipart/alternative", Parts: []Part{
				{MimeType: "text/plain", Data: enc("plain")},
				{MimeType: "text/html", Data: enc("<b>html</b>")},
			}},
			expected: "plain",
		},
		{
			name: "html only",
			payload: &Part{MimeType: "multipart/alternative", Parts: []Part{
				{MimeType: "text/html", Data: enc("<b>html</b> body")},
			}},
			expected: "html body",
		},
		{
			name: "nested parts concatenated in order",
			payload: &Part{MimeType: "multipart/mixed", Parts: []Part{
				{MimeType: "multipart/alternative", Parts: []Part{
					{MimeType: "text/plain", Data: enc("one ")},
				}},
				{MimeType: "text/plain", Data: enc("two")},
				{MimeType: "image/png", Data: enc("binary")},
			}},
			expected: "one two",
		},
		{
			name: "broken part becomes empty",
			payload: &Part{MimeType: "multipart/mixed", Parts: []Part{
				{MimeType: "text/plain", Data: "%%%"},
				{MimeType: "text/plain", Data: enc("ok")},
			}},
			expected: "ok",
		},
		{
			name:     "nil payload",
			payload:  nil,
			expected: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ExtractBody(tt.payload); got != tt.expected {
				t.Errorf("expected %q, got %q", tt.expected, got)
			}
		})
	}
}

func TestFromRaw(t *testing.T) {
	n := New(fixedClock())

	t.Run("headers and links", func(t *testing.T) {
		msg := &RawMessage{
			ID: "m1",
			Headers: map[string]string{
				"from":    "Org <team@org.com>",
				"Subject": "Hackathon",
				"Date":    "Mon, 06 Jan 2025 10:00:00 +0000",
			},
			Payload: &Part{MimeType: "text/plain", Data: enc("Register https://forms.gle/abc now")},
		}
		email := n.FromRaw(msg)

		if email.From != "Org <team@org.com>" {
			t.Errorf("unexpected from %q", email.From)
		}
		if email.ReceivedAt != "2025-01-06T10:00:00.000Z" {
			t.Errorf("unexpected receivedAt %q", email.ReceivedAt)
		}
		if len(email.Links) != 1 || email.Links[0] != "https://forms.gle/abc" {
			t.Errorf("unexpected links %v", email.Links)
		}
	})

	t.Run("defaults", func(t *testing.T) {
		email := n.FromRaw(&RawMessage{ID: "m2", Headers: map[string]string{"Date": "not a date"}})
		if email.From != domain.DefaultSender {
			t.Errorf("expected default sender, got %q", email.From)
		}
		if email.Subject != domain.DefaultSubject {
			t.Errorf("expected default subject, got %q", email.Subject)
		}
		if email.ReceivedAt != "2025-01-02T12:00:00.000Z" {
			t.Errorf("expected clock time, got %q", email.ReceivedAt)
		}
	})
}

func TestFromRecordAndDropEmpty(t *testing.T) {
	n := New(fixedClock())

	emails := []domain.NormalizedEmail{
		n.FromRecord(Record{Body: "Club meetup each week"}, 0),
		n.FromRecord(Record{ID: "x", Body: "   "}, 1),
		n.FromRecord(Record{ID: "y", Subject: "S", Body: "see https://a.b/c"}, 2),
	}

	if emails[0].ID != "mock-0" {
		t.Errorf("expected mock-0, got %q", emails[0].ID)
	}
	if emails[0].Subject != domain.DefaultSubject || emails[0].From != domain.DefaultSender {
		t.Errorf("expected defaults, got %+v", emails[0])
	}

	kept := DropEmpty(emails)
	if len(kept) != 2 {
		t.Fatalf("expected 2 emails, got %d", len(kept))
	}
	if kept[0].ID != "mock-0" || kept[1].ID != "y" {
		t.Errorf("order not preserved: %q, %q", kept[0].ID, kept[1].ID)
	}
	if len(kept[1].Links) != 1 {
		t.Errorf("expected 1 link, got %v", kept[1].Links)
	}
}
