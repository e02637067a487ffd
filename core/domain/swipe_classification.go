package domain

// CardType is the top-level category of a card.
type CardType string

const (
	CardTypeEvent CardType = "event"
	CardTypeClub  CardType = "club"
)

// ParseCardType returns the matching type and whether s was recognized.
func ParseCardType(s string) (CardType, bool) {
	switch CardType(s) {
	case CardTypeEvent:
		return CardTypeEvent, true
	case CardTypeClub:
		return CardTypeClub, true
	}
	return "", false
}

// EventType narrows an event card.
type EventType string

const (
	EventTypeHackathon   EventType = "hackathon"
	EventTypeConference  EventType = "conference"
	EventTypeSummit      EventType = "summit"
	EventTypeWorkshop    EventType = "workshop"
	EventTypeFellowship  EventType = "fellowship"
	EventTypeNetworking  EventType = "networking"
	EventTypeCompetition EventType = "competition"
	EventTypeFestival    EventType = "festival"
	EventTypeExpo        EventType = "expo"
	EventTypeInfoSession EventType = "info_session"
	EventTypeOther       EventType = "other"
)

var validEventTypes = map[EventType]bool{
	EventTypeHackathon:   true,
	EventTypeConference:  true,
	EventTypeSummit:      true,
	EventTypeWorkshop:    true,
	EventTypeFellowship:  true,
	EventTypeNetworking:  true,
	EventTypeCompetition: true,
	EventTypeFestival:    true,
	EventTypeExpo:        true,
	EventTypeInfoSession: true,
	EventTypeOther:       true,
}

func (t EventType) IsValid() bool { return validEventTypes[t] }

// ClubType narrows a club card.
type ClubType string

const (
	ClubTypeStartup   ClubType = "startup"
	ClubTypeTech      ClubType = "tech"
	ClubTypeDesign    ClubType = "design"
	ClubTypeBusiness  ClubType = "business"
	ClubTypeSocial    ClubType = "social"
	ClubTypeAcademic  ClubType = "academic"
	ClubTypeCreative  ClubType = "creative"
	ClubTypeCommunity ClubType = "community"
	ClubTypeOther     ClubType = "other"
)

var validClubTypes = map[ClubType]bool{
	ClubTypeStartup:   true,
	ClubTypeTech:      true,
	ClubTypeDesign:    true,
	ClubTypeBusiness:  true,
	ClubTypeSocial:    true,
	ClubTypeAcademic:  true,
	ClubTypeCreative:  true,
	ClubTypeCommunity: true,
	ClubTypeOther:     true,
}

func (t ClubType) IsValid() bool { return validClubTypes[t] }

// Atmosphere describes the expected vibe of an event or club.
type Atmosphere string

const (
	AtmosphereCasual       Atmosphere = "casual"
	AtmosphereProfessional Atmosphere = "professional"
	AtmosphereCompetitive  Atmosphere = "competitive"
	AtmosphereSocial       Atmosphere = "social"
	AtmosphereAcademic     Atmosphere = "academic"
	AtmosphereCreative     Atmosphere = "creative"
)

var validAtmospheres = map[Atmosphere]bool{
	AtmosphereCasual:       true,
	AtmosphereProfessional: true,
	AtmosphereCompetitive:  true,
	AtmosphereSocial:       true,
	AtmosphereAcademic:     true,
	AtmosphereCreative:     true,
}

func (a Atmosphere) IsValid() bool { return validAtmospheres[a] }

// MaxTags bounds ClassificationResult.Tags.
const MaxTags = 6

// ClassificationResult is the output of the heuristic or enriched classifier.
// EventType is only set for events and ClubType only for clubs.
type ClassificationResult struct {
	Type          CardType   `json:"type"`
	Tags          []string   `json:"tags"`
	EventType     EventType  `json:"eventType,omitempty"`
	ClubType      ClubType   `json:"clubType,omitempty"`
	Atmosphere    Atmosphere `json:"atmosphere,omitempty"`
	EventDate     string     `json:"eventDate,omitempty"`
	Location      string     `json:"location,omitempty"`
	Summary       string     `json:"summary,omitempty"`
	GoogleFormURL string     `json:"googleFormUrl,omitempty"`
	Skip          bool       `json:"skip"`
}

// Normalize clears subtype fields that contradict Type.
func (r *ClassificationResult) Normalize() {
	switch r.Type {
	case CardTypeClub:
		r.EventType = ""
	default:
		r.Type = CardTypeEvent
		r.ClubType = ""
	}
}

// Clone returns a deep copy so cached results are never shared.
func (r ClassificationResult) Clone() ClassificationResult {
	if r.Tags != nil {
		r.Tags = append([]string(nil), r.Tags...)
	}
	return r
}
