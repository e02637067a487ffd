// Package normalize converts provider payloads into domain.NormalizedEmail.
package normalize

import (
	"encoding/base64"
	"net/mail"
	"regexp"
	"strconv"
	"strings"
	"time"

	"swipe_server/core/domain"
)

// =============================================================================
// Provider-agnostic raw shapes
// =============================================================================

// Part is one node of a MIME tree. Data is URL-safe base64 as delivered by the provider.
type Part struct {
	MimeType string
	Data     string
	Parts    []Part
}

// RawMessage is a provider message before normalization.
// Header names are matched case-insensitively.
type RawMessage struct {
	ID      string
	Headers map[string]string
	Payload *Part
}

// Header returns the first header matching name, ignoring case.
func (m *RawMessage) Header(name string) string {
	if v, ok := m.Headers[name]; ok {
		return v
	}
	for k, v := range m.Headers {
		if strings.EqualFold(k, name) {
			return v
		}
	}
	return ""
}

// Record is a flat dataset entry. Empty fields take defaults.
type Record struct {
	ID         string `json:"id" yaml:"id"`
	From       string `json:"from" yaml:"from"`
	Subject    string `json:"subject" yaml:"subject"`
	Body       string `json:"body" yaml:"body"`
	ReceivedAt string `json:"receivedAt" yaml:"receivedAt"`
}

// =============================================================================
// Normalizer
// =============================================================================

// Normalizer builds NormalizedEmail values. now supplies the fallback receive time.
type Normalizer struct {
	now func() time.Time
}

// New creates a normalizer. A nil clock uses time.Now.
func New(now func() time.Time) *Normalizer {
	if now == nil {
		now = time.Now
	}
	return &Normalizer{now: now}
}

// FromRaw normalizes a MIME message.
func (n *Normalizer) FromRaw(msg *RawMessage) domain.NormalizedEmail {
	from := strings.TrimSpace(msg.Header("From"))
	if from == "" {
		from = domain.DefaultSender
	}
	subject := strings.TrimSpace(msg.Header("Subject"))
	if subject == "" {
		subject = domain.DefaultSubject
	}

	receivedAt := domain.FormatTimestamp(n.now())
	if date := msg.Header("Date"); date != "" {
		if t, err := mail.ParseDate(date); err == nil {
			receivedAt = domain.FormatTimestamp(t)
		}
	}

	body := ExtractBody(msg.Payload)
	return domain.NormalizedEmail{
		ID:         msg.ID,
		From:       from,
		Subject:    subject,
		Body:       body,
		ReceivedAt: receivedAt,
		Links:      ExtractLinks(body),
	}
}

// FromRecord normalizes a flat dataset entry at position index.
func (n *Normalizer) FromRecord(rec Record, index int) domain.NormalizedEmail {
	email := domain.NormalizedEmail{
		ID:         rec.ID,
		From:       rec.From,
		Subject:    rec.Subject,
		Body:       rec.Body,
		ReceivedAt: rec.ReceivedAt,
	}
	if email.ID == "" {
		email.ID = "mock-" + strconv.Itoa(index)
	}
	if email.From == "" {
		email.From = domain.DefaultSender
	}
	if email.Subject == "" {
		email.Subject = domain.DefaultSubject
	}
	if email.ReceivedAt == "" {
		email.ReceivedAt = domain.FormatTimestamp(n.now())
	}
	email.Links = ExtractLinks(email.Body)
	return email
}

// DropEmpty removes emails whose body has no content. Order is preserved.
func DropEmpty(emails []domain.NormalizedEmail) []domain.NormalizedEmail {
	kept := make([]domain.NormalizedEmail, 0, len(emails))
	for _, e := range emails {
		if strings.TrimSpace(e.Body) == "" {
			continue
		}
		kept = append(kept, e)
	}
	return kept
}

// =============================================================================
// Body extraction
// =============================================================================

// ExtractBody returns the plaintext body of a MIME tree.
// A single-part payload is decoded directly; multipart payloads prefer text/plain leaves.
func ExtractBody(payload *Part) string {
	if payload == nil {
		return ""
	}
	if payload.Data != "" {
		decoded := DecodeBase64URL(payload.Data)
		if strings.EqualFold(payload.MimeType, "text/html") {
			return HTMLToText(decoded)
		}
		return decoded
	}
	text, html := Flatten(payload.Parts)
	if text != "" {
		return text
	}
	return HTMLToText(html)
}

// Flatten concatenates text/plain and text/html leaves in traversal order.
func Flatten(parts []Part) (text, html string) {
	var tb, hb strings.Builder
	flatten(parts, &tb, &hb)
	return tb.String(), hb.String()
}

func flatten(parts []Part, tb, hb *strings.Builder) {
	for i := range parts {
		p := &parts[i]
		if len(p.Parts) > 0 {
			flatten(p.Parts, tb, hb)
			continue
		}
		switch strings.ToLower(p.MimeType) {
		case "text/plain":
			tb.WriteString(DecodeBase64URL(p.Data))
		case "text/html":
			hb.WriteString(DecodeBase64URL(p.Data))
		}
	}
}

// DecodeBase64URL decodes padded or unpadded URL-safe base64. Failures yield "".
func DecodeBase64URL(data string) string {
	if data == "" {
		return ""
	}
	raw := strings.TrimRight(data, "=")
	decoded, err := base64.RawURLEncoding.DecodeString(raw)
	if err != nil {
		// some senders use the standard alphabet
		decoded, err = base64.RawStdEncoding.DecodeString(raw)
		if err != nil {
			return ""
		}
	}
	return string(decoded)
}

// =============================================================================
// HTML and links
// =============================================================================

var (
	scriptStyleRe = regexp.MustCompile(`(?is)<(script|style)[^>]*>.*?</(script|style)>`)
	tagRe         = regexp.MustCompile(`<[^>]+>`)
	linkRe        = regexp.MustCompile(`(?i)https?://[^\s)]+`)

	entityReplacer = strings.NewReplacer(
		"&nbsp;", " ",
		"&lt;", "<",
		"&gt;", ">",
		"&quot;", `"`,
	)
)

// HTMLToText strips markup and decodes the common entities.
func HTMLToText(html string) string {
	if html == "" {
		return ""
	}
	text := scriptStyleRe.ReplaceAllString(html, "")
	text = tagRe.ReplaceAllString(text, "")
	text = entityReplacer.Replace(text)
	// &amp; last so "&amp;lt;" stays literal
	text = strings.ReplaceAll(text, "&amp;", "&")
	return strings.TrimSpace(text)
}

// ExtractLinks returns every URL in text in order of appearance.
func ExtractLinks(text string) []string {
	matches := linkRe.FindAllString(text, -1)
	links := make([]string, 0, len(matches))
	for _, m := range matches {
		links = append(links, strings.TrimSpace(m))
	}
	return links
}
