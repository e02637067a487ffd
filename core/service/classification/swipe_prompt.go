package classification

import (
	"fmt"
	"strings"

	"swipe_server/core/domain"
)

// PromptVersion is folded into the cache key; bump it whenever the prompt changes.
const PromptVersion = "v2"

const maxPromptBody = 4000

// BuildPrompt renders the classification prompt for email.
func BuildPrompt(email *domain.NormalizedEmail) string {
	links := "none"
	if len(email.Links) > 0 {
		links = strings.Join(email.Links, ", ")
	}

	return fmt.Sprintf(`You triage inbox messages for a student who is looking for events and clubs to join.
Classify the email below and respond with ONE JSON object only, no prose, using exactly these fields:

{
  "skip": boolean,          // true when this is not a genuine event or club opportunity (receipts, newsletters, spam)
  "type": "event" | "club",
  "eventType": %s | null,   // only when type is "event"
  "clubType": %s | null,    // only when type is "club"
  "atmosphere": %s | null,
  "eventDate": string | null, // e.g. "March 20"
  "location": string | null,
  "tags": string[],         // at most 6 short tags
  "summary": string,        // one or two sentences, under 180 characters
  "googleFormUrl": string | null // a docs.google.com/forms or forms.gle link from the email, if any
}

From: %s
Subject: %s
Body:
%s

Links found: %s`,
		enumList(eventTypeValues()),
		enumList(clubTypeValues()),
		enumList(atmosphereValues()),
		email.From,
		email.Subject,
		truncateBody(email.Body, maxPromptBody),
		links,
	)
}

func enumList(values []string) string {
	quoted := make([]string, len(values))
	for i, v := range values {
		quoted[i] = `"` + v + `"`
	}
	return strings.Join(quoted, " | ")
}

func eventTypeValues() []string {
	return []string{
		string(domain.EventTypeHackathon), string(domain.EventTypeConference), string(domain.EventTypeSummit),
		string(domain.EventTypeWorkshop), string(domain.EventTypeFellowship), string(domain.EventTypeNetworking),
		string(domain.EventTypeCompetition), string(domain.EventTypeFestival), string(domain.EventTypeExpo),
		string(domain.EventTypeInfoSession), string(domain.EventTypeOther),
	}
}

func clubTypeValues() []string {
	return []string{
		string(domain.ClubTypeStartup), string(domain.ClubTypeTech), string(domain.ClubTypeDesign),
		string(domain.ClubTypeBusiness), string(domain.ClubTypeSocial), string(domain.ClubTypeAcademic),
		string(domain.ClubTypeCreative), string(domain.ClubTypeCommunity), string(domain.ClubTypeOther),
	}
}

func atmosphereValues() []string {
	return []string{
		string(domain.AtmosphereCasual), string(domain.AtmosphereProfessional), string(domain.AtmosphereCompetitive),
		string(domain.AtmosphereSocial), string(domain.AtmosphereAcademic), string(domain.AtmosphereCreative),
	}
}

// truncateBody cuts body to maxLen runes and marks the cut.
func truncateBody(body string, maxLen int) string {
	runes := []rune(body)
	if len(runes) <= maxLen {
		return body
	}
	return string(runes[:maxLen]) + "..."
}
