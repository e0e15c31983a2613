package models

// Playlist is one entry of the immutable catalog loaded at startup.
// SybID is the opaque identifier the music platform uses in assignments;
// catalog entries without one can be recommended but never scheduled remotely.
type Playlist struct {
	ID          string   `json:"id"`
	Name        string   `json:"name"`
	Description string   `json:"description"`
	Categories  []string `json:"categories"`
	SybID       string   `json:"sybId,omitempty"`
}

// HasCategory reports whether the playlist carries the given category tag.
func (p Playlist) HasCategory(cat string) bool {
	for _, c := range p.Categories {
		if c == cat {
			return true
		}
	}
	return false
}

// Daypart is a contiguous block of a venue's operating hours with a target
// energy. Ordering within a generated list is significant downstream.
type Daypart struct {
	Key       string `json:"key"`
	Label     string `json:"label"`
	TimeRange string `json:"timeRange"` // "HH:MM-HH:MM" local wall clock
	Icon      string `json:"icon"`      // sunrise|sun|sunset|moon|stars
	Energy    int    `json:"energy"`    // 1-10
}

// Recommendation is one matcher pick: a playlist bound to a daypart with a
// normalized match score in [55,95].
type Recommendation struct {
	PlaylistID   string `json:"playlistId"`
	PlaylistName string `json:"playlistName"`
	SybID        string `json:"sybId,omitempty"`
	Daypart      string `json:"daypart"`
	Reason       string `json:"reason"`
	MatchScore   int    `json:"matchScore"`
	Zone         string `json:"zone,omitempty"`
	ScheduleType string `json:"scheduleType,omitempty"` // "weekend" on weekend-variant picks
}

// MatchInput is the slice of a brief the deterministic matcher scores against.
type MatchInput struct {
	VenueType  string
	Vibes      []string
	Energy     int
	AvoidList  string
	Vocals     string // instrumental|mostly-instrumental|mix|vocals
	GenreHints []string
}

// DesignerBrief is the synthesized genre/BPM summary used for email rendering
// and as a companion to the matcher output.
type DesignerBrief struct {
	TopGenres     []string            `json:"topGenres"`
	BPMRanges     []string            `json:"bpmRanges"`
	DaypartGenres map[string][]string `json:"daypartGenres"`
	DaypartOrder  []string            `json:"daypartOrder"`
}
