package classification

import (
	"regexp"
	"strings"
)

// =============================================================================
// Application form links
// =============================================================================

var googleFormRe = regexp.MustCompile(`(?i)https?://(?:docs\.google\.com/forms/[^\s)"'<>]+|forms\.gle/[^\s)"'<>]+)`)

// DefaultFormPrefixes are host+path prefixes treated as application forms.
var DefaultFormPrefixes = []string{"docs.google.com/forms", "forms.gle"}

// FindGoogleFormURL returns the first Google Form URL found in body, then links.
func FindGoogleFormURL(body string, links []string) string {
	forms := GoogleFormURLs(body, links)
	if len(forms) == 0 {
		return ""
	}
	return forms[0]
}

// GoogleFormURLs returns every distinct Google Form URL in body and links, in order.
func GoogleFormURLs(body string, links []string) []string {
	seen := make(map[string]bool)
	var out []string

	add := func(text string) {
		for _, m := range googleFormRe.FindAllString(text, -1) {
			m = strings.TrimRight(m, ".,;")
			if !seen[m] {
				seen[m] = true
				out = append(out, m)
			}
		}
	}

	add(body)
	for _, link := range links {
		add(link)
	}
	return out
}

// IsApplicationForm reports whether link points at one of the recognized form prefixes.
func IsApplicationForm(link string, prefixes []string) bool {
	if len(prefixes) == 0 {
		prefixes = DefaultFormPrefixes
	}
	rest := strings.ToLower(link)
	switch {
	case strings.HasPrefix(rest, "https://"):
		rest = rest[len("https://"):]
	case strings.HasPrefix(rest, "http://"):
		rest = rest[len("http://"):]
	default:
		return false
	}
	rest = strings.TrimPrefix(rest, "www.")
	for _, p := range prefixes {
		p = strings.ToLower(strings.TrimSpace(p))
		if p != "" && strings.HasPrefix(rest, p) {
			return true
		}
	}
	return false
}
