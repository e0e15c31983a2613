package models

import "encoding/json"

// ZoneSpec carries per-zone overrides for the matcher in multi-zone requests.
type ZoneSpec struct {
	Name       string   `json:"name"`
	Energy     int      `json:"energy,omitempty"`
	Vibes      []string `json:"vibes,omitempty"`
	Hours      string   `json:"hours,omitempty"`
	GenreHints []string `json:"genreHints,omitempty"`
}

// ExtractedBrief is the structured brief the conversational engine accumulates
// over a consultation. Zone-level overrides live in Zones; WeekendMode holds
// the weekend-variant overrides when the venue programs weekends differently.
type ExtractedBrief struct {
	VenueName   string     `json:"venueName,omitempty"`
	VenueType   string     `json:"venueType,omitempty"`
	Location    string     `json:"location,omitempty"`
	Vibes       []string   `json:"vibes,omitempty"`
	Energy      int        `json:"energy,omitempty"`
	Hours       string     `json:"hours,omitempty"`
	Vocals      string     `json:"vocals,omitempty"`
	AvoidList   string     `json:"avoidList,omitempty"`
	GenreHints  []string   `json:"genreHints,omitempty"`
	Zones       []ZoneSpec `json:"zones,omitempty"`
	WeekendMode *ZoneSpec  `json:"weekendMode,omitempty"`
}

// SubmitRequest is the POST /submit payload. Website is a honeypot field: a
// non-empty value gets a 200 and a silent drop.
type SubmitRequest struct {
	VenueName            string           `json:"venueName"`
	VenueType            string           `json:"venueType"`
	Location             string           `json:"location"`
	ContactName          string           `json:"contactName"`
	ContactEmail         string           `json:"contactEmail"`
	ContactPhone         string           `json:"contactPhone"`
	Product              string           `json:"product"`
	Vibes                []string         `json:"vibes"`
	Energy               int              `json:"energy"`
	Hours                string           `json:"hours"`
	Vocals               string           `json:"vocals"`
	AvoidList            string           `json:"avoidList"`
	GuestProfile         string           `json:"guestProfile"`
	AgeRange             string           `json:"ageRange"`
	Nationality          string           `json:"nationality"`
	MoodChanges          string           `json:"moodChanges"`
	LikedPlaylists       []string         `json:"likedPlaylists"`
	AllRecommendations   []Recommendation `json:"allRecommendations"`
	DaypartsMetadata     []Daypart        `json:"daypartsMetadata"`
	ExtractedBrief       *ExtractedBrief  `json:"extractedBrief"`
	ConversationSummary  string           `json:"conversationSummary"`
	MultiZone            bool             `json:"multiZone"`
	ZoneNames            []string         `json:"zoneNames"`
	WeekendDayparts      *Dayparts        `json:"weekendDayparts"`
	WeekendRecommends    []Recommendation `json:"weekendRecommendations"`
	WeekendLiked         []string         `json:"weekendLikedPlaylists"`
	SybAccountID         string           `json:"sybAccountId"`
	Website              string           `json:"website"`
}

// RawJSON renders the request back to JSON for the brief's raw_data snapshot.
func (r SubmitRequest) RawJSON() json.RawMessage {
	b, err := json.Marshal(r)
	if err != nil {
		return json.RawMessage("{}")
	}
	return b
}
