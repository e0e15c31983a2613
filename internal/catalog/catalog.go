package catalog

import (
	"encoding/json"
	"fmt"
	"io/fs"
	"os"
	"sort"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"

	"music-brief-scheduler/internal/models"
	errs "music-brief-scheduler/pkg/errors"
)

// Catalog holds the playlist catalog loaded once at startup. The backing file
// is read-only at runtime; nothing in the schema evolves it.
type Catalog struct {
	mu        sync.RWMutex
	playlists []models.Playlist
	byID      map[string]models.Playlist
}

// Load reads syb_playlists.json from the provided filesystem (normally the
// embedded config FS).
func Load(fsys fs.FS) (*Catalog, error) {
	data, err := fs.ReadFile(fsys, "syb_playlists.json")
	if err != nil {
		return nil, errs.NewValidation("catalog.Load", "catalog file missing", err)
	}
	return Parse(data)
}

// Parse builds a catalog from raw JSON. Split out of Load for tests.
func Parse(data []byte) (*Catalog, error) {
	var playlists []models.Playlist
	if err := json.Unmarshal(data, &playlists); err != nil {
		return nil, errs.NewValidation("catalog.Parse", "invalid catalog JSON", err)
	}
	if len(playlists) == 0 {
		return nil, errs.NewValidation("catalog.Parse", "catalog is empty", nil)
	}
	byID := make(map[string]models.Playlist, len(playlists))
	for _, p := range playlists {
		if p.ID == "" || p.Name == "" {
			return nil, errs.NewValidation("catalog.Parse", fmt.Sprintf("playlist missing id or name: %+v", p), nil)
		}
		byID[p.ID] = p
	}
	return &Catalog{playlists: playlists, byID: byID}, nil
}

// All returns the playlists in catalog order. Callers must not mutate.
func (c *Catalog) All() []models.Playlist {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.playlists
}

// ByID looks a playlist up by its internal id.
func (c *Catalog) ByID(id string) (models.Playlist, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	p, ok := c.byID[id]
	return p, ok
}

// ByName resolves a playlist by exact name, falling back to a
// case-insensitive match. The engine round-trips names through the LLM, so
// casing is not reliable.
func (c *Catalog) ByName(name string) (models.Playlist, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	for _, p := range c.playlists {
		if p.Name == name {
			return p, true
		}
	}
	lower := strings.ToLower(name)
	for _, p := range c.playlists {
		if strings.ToLower(p.Name) == lower {
			return p, true
		}
	}
	return models.Playlist{}, false
}

// Resolve accepts either an internal id or a playlist name.
func (c *Catalog) Resolve(idOrName string) (models.Playlist, bool) {
	if p, ok := c.ByID(idOrName); ok {
		return p, true
	}
	return c.ByName(idOrName)
}

// Size returns the number of catalog playlists.
func (c *Catalog) Size() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.playlists)
}

// VibeProfile maps a vibe to the genres it implies and a BPM range.
type VibeProfile struct {
	Genres []string `yaml:"genres"`
	BPM    string   `yaml:"bpm"`
}

// Tables holds the static vibe/venue lookup tables the matcher and the brief
// synthesizer score against. An external YAML file can extend them at startup
// (CATALOG_OVERRIDE_PATH), mirroring how prompt templates are overridable.
type Tables struct {
	VibeGenres      map[string]VibeProfile `yaml:"vibe_genres"`
	VibeKeywords    map[string][]string    `yaml:"vibe_keywords"`
	VenueCategories map[string][]string    `yaml:"venue_categories"`
	VenueGenres     map[string][]string    `yaml:"venue_genres"`
}

// DefaultTables returns the built-in tables.
func DefaultTables() *Tables {
	return &Tables{
		VibeGenres: map[string]VibeProfile{
			"sophisticated": {Genres: []string{"jazz", "lounge", "deep house", "nu-disco", "soul"}, BPM: "100-120"},
			"trendy":        {Genres: []string{"nu-disco", "indie dance", "deep house", "electronica"}, BPM: "110-122"},
			"warm":          {Genres: []string{"acoustic", "soul", "folk", "jazz"}, BPM: "80-100"},
			"relaxed":       {Genres: []string{"chillout", "acoustic", "ambient", "bossa nova"}, BPM: "70-95"},
			"zen":           {Genres: []string{"ambient", "nature", "piano", "new age"}, BPM: "60-80"},
			"tropical":      {Genres: []string{"tropical house", "reggae", "latin", "balearic"}, BPM: "100-118"},
			"energetic":     {Genres: []string{"house", "funk", "disco", "pop"}, BPM: "118-128"},
			"romantic":      {Genres: []string{"soul", "jazz", "acoustic"}, BPM: "70-90"},
			"luxurious":     {Genres: []string{"lounge", "deep house", "jazz", "orchestral"}, BPM: "95-115"},
			"playful":       {Genres: []string{"pop", "funk", "indie dance"}, BPM: "110-125"},
		},
		VibeKeywords: map[string][]string{
			"sophisticated": {"sophisticated", "elegant", "refined", "classy", "upscale"},
			"trendy":        {"trendy", "modern", "stylish", "hip", "contemporary"},
			"warm":          {"warm", "cozy", "inviting", "comfort", "intimate"},
			"relaxed":       {"relaxed", "laid back", "chill", "mellow", "easy"},
			"zen":           {"zen", "calm", "serene", "tranquil", "peaceful"},
			"tropical":      {"tropical", "island", "beach", "summer", "sunset"},
			"energetic":     {"energetic", "upbeat", "vibrant", "lively", "party"},
			"romantic":      {"romantic", "intimate", "candlelit", "smooth"},
			"luxurious":     {"luxurious", "premium", "opulent", "five-star"},
			"playful":       {"playful", "fun", "cheerful", "bright"},
		},
		VenueCategories: map[string][]string{
			"hotel-lobby": {"hotel", "lounge"},
			"hotel":       {"hotel", "lounge"},
			"resort":      {"hotel", "spa", "lounge"},
			"bar-lounge":  {"bar", "lounge"},
			"bar":         {"bar"},
			"rooftop-bar": {"bar", "lounge"},
			"cafe":        {"cafe"},
			"coffee-shop": {"cafe"},
			"restaurant":  {"restaurant"},
			"fine-dining": {"restaurant", "lounge"},
			"spa":         {"spa"},
			"wellness":    {"spa"},
			"retail":      {"store"},
			"store":       {"store"},
		},
		VenueGenres: map[string][]string{
			"hotel-lobby": {"jazz", "lounge", "piano"},
			"hotel":       {"jazz", "lounge", "piano"},
			"resort":      {"tropical house", "chillout", "balearic"},
			"bar-lounge":  {"deep house", "nu-disco", "lounge"},
			"bar":         {"funk", "disco", "house"},
			"rooftop-bar": {"deep house", "nu-disco", "balearic"},
			"cafe":        {"acoustic", "bossa nova", "folk"},
			"coffee-shop": {"acoustic", "indie dance", "folk"},
			"restaurant":  {"jazz", "soul", "bossa nova"},
			"fine-dining": {"jazz", "piano", "orchestral"},
			"spa":         {"ambient", "nature", "piano"},
			"wellness":    {"ambient", "new age", "piano"},
			"retail":      {"pop", "indie dance", "funk"},
			"store":       {"pop", "indie dance", "funk"},
		},
	}
}

// LoadTables returns the default tables extended by the optional YAML override
// file. A missing path is not an error; a malformed file is.
func LoadTables(overridePath string) (*Tables, error) {
	t := DefaultTables()
	if overridePath == "" {
		return t, nil
	}
	data, err := os.ReadFile(overridePath)
	if err != nil {
		if os.IsNotExist(err) {
			return t, nil
		}
		return nil, errs.NewValidation("catalog.LoadTables", "cannot read override file", err)
	}
	var over Tables
	if err := yaml.Unmarshal(data, &over); err != nil {
		return nil, errs.NewValidation("catalog.LoadTables", "invalid override YAML", err)
	}
	t.merge(&over)
	return t, nil
}

func (t *Tables) merge(over *Tables) {
	for vibe, prof := range over.VibeGenres {
		t.VibeGenres[vibe] = prof
	}
	for vibe, kws := range over.VibeKeywords {
		t.VibeKeywords[vibe] = append(t.VibeKeywords[vibe], kws...)
	}
	for vt, cats := range over.VenueCategories {
		t.VenueCategories[vt] = cats
	}
	for vt, genres := range over.VenueGenres {
		t.VenueGenres[vt] = genres
	}
}

// CategoriesFor returns the target platform categories for a venue type.
// Unknown types get an empty set, which simply removes the category signal.
func (t *Tables) CategoriesFor(venueType string) []string {
	return t.VenueCategories[normalizeVenueType(venueType)]
}

// GenresFor returns the booster genres for a venue type.
func (t *Tables) GenresFor(venueType string) []string {
	return t.VenueGenres[normalizeVenueType(venueType)]
}

// KeywordsFor returns the keyword list for a vibe, or nil.
func (t *Tables) KeywordsFor(vibe string) []string {
	return t.VibeKeywords[strings.ToLower(strings.TrimSpace(vibe))]
}

// ProfileFor returns the genre/BPM profile for a vibe.
func (t *Tables) ProfileFor(vibe string) (VibeProfile, bool) {
	p, ok := t.VibeGenres[strings.ToLower(strings.TrimSpace(vibe))]
	return p, ok
}

// Vibes returns the known vibe names sorted, for prompt construction.
func (t *Tables) Vibes() []string {
	out := make([]string, 0, len(t.VibeGenres))
	for v := range t.VibeGenres {
		out = append(out, v)
	}
	sort.Strings(out)
	return out
}

func normalizeVenueType(vt string) string {
	vt = strings.ToLower(strings.TrimSpace(vt))
	return strings.ReplaceAll(vt, " ", "-")
}

// HumanizeVenueType renders "hotel-lobby" as "hotel lobby" for reason strings.
func HumanizeVenueType(vt string) string {
	return strings.ReplaceAll(normalizeVenueType(vt), "-", " ")
}
