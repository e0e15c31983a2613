package matcher

import (
	"strings"
	"testing"

	"music-brief-scheduler/internal/catalog"
	"music-brief-scheduler/internal/models"
)

const testCatalog = `[
  {"id": "jazz-lounge", "name": "Jazz Lounge Classics", "description": "Elegant jazz for a sophisticated lounge evening", "categories": ["hotel", "lounge"], "sybId": "syb-1"},
  {"id": "deep-house", "name": "Deep House Sessions", "description": "Stylish deep house grooves for a trendy bar", "categories": ["bar", "lounge"], "sybId": "syb-2"},
  {"id": "edm-bangers", "name": "EDM Bangers", "description": "High energy edm anthems for the party peak", "categories": ["bar"], "sybId": "syb-3"},
  {"id": "piano-calm", "name": "Calm Piano", "description": "Serene instrumental piano, tranquil and peaceful", "categories": ["spa", "lounge"], "sybId": "syb-4"},
  {"id": "acoustic-cafe", "name": "Acoustic Mornings", "description": "Warm acoustic songs, cozy and inviting", "categories": ["cafe"], "sybId": "syb-5"},
  {"id": "hiphop-heat", "name": "Hip-Hop Heat", "description": "Hard hitting hip-hop and rap", "categories": ["bar", "store"], "sybId": "syb-6"}
]`

func newTestMatcher(t *testing.T) *Matcher {
	t.Helper()
	cat, err := catalog.Parse([]byte(testCatalog))
	if err != nil {
		t.Fatalf("parse test catalog: %v", err)
	}
	return New(cat, catalog.DefaultTables())
}

func testParts() []models.Daypart {
	return []models.Daypart{
		{Key: "opening", Label: "Opening", TimeRange: "17:00-20:00", Energy: 4},
		{Key: "peak", Label: "Peak", TimeRange: "20:00-23:00", Energy: 7},
	}
}

func TestMatch_VenueCategoryDominates(t *testing.T) {
	m := newTestMatcher(t)
	res := m.Match(models.MatchInput{
		VenueType: "hotel-lobby",
		Vibes:     []string{"sophisticated"},
		Energy:    4,
	}, testParts())

	if len(res.Recommendations) == 0 {
		t.Fatal("expected recommendations")
	}
	top := res.Recommendations[0]
	if top.PlaylistID != "jazz-lounge" {
		t.Fatalf("expected jazz-lounge first for a sophisticated hotel lobby, got %s", top.PlaylistID)
	}
	if top.MatchScore < 55 || top.MatchScore > 95 {
		t.Fatalf("score out of band: %d", top.MatchScore)
	}
}

func TestMatch_AvoidListSuppresses(t *testing.T) {
	m := newTestMatcher(t)
	res := m.Match(models.MatchInput{
		VenueType: "bar",
		Vibes:     []string{"energetic"},
		Energy:    8,
		AvoidList: "no hip-hop or rap",
	}, testParts())

	for _, r := range res.Recommendations {
		if r.PlaylistID == "hiphop-heat" {
			t.Fatalf("avoided playlist still recommended: %+v", r)
		}
	}
}

func TestMatch_GenreHintBoosts(t *testing.T) {
	m := newTestMatcher(t)
	base := m.Match(models.MatchInput{VenueType: "bar", Vibes: []string{"trendy"}, Energy: 7}, testParts())
	hinted := m.Match(models.MatchInput{
		VenueType: "bar", Vibes: []string{"trendy"}, Energy: 7,
		GenreHints: []string{"deep house"},
	}, testParts())

	rank := func(res Result, id string) int {
		for i, r := range res.Recommendations {
			if r.PlaylistID == id {
				return i
			}
		}
		return len(res.Recommendations)
	}
	if rank(hinted, "deep-house") > rank(base, "deep-house") {
		t.Fatal("genre hint should not worsen the hinted playlist's rank")
	}
	if rank(hinted, "deep-house") != 0 {
		t.Fatalf("expected deep-house first with a matching hint, got rank %d", rank(hinted, "deep-house"))
	}
}

func TestMatch_InstrumentalPreference(t *testing.T) {
	m := newTestMatcher(t)
	res := m.Match(models.MatchInput{
		VenueType: "spa",
		Vibes:     []string{"zen"},
		Energy:    2,
		Vocals:    "instrumental",
	}, []models.Daypart{{Key: "all-day", Label: "All Day", Energy: 2}})

	if len(res.Recommendations) == 0 {
		t.Fatal("expected recommendations")
	}
	if res.Recommendations[0].PlaylistID != "piano-calm" {
		t.Fatalf("expected piano-calm for an instrumental zen spa, got %s", res.Recommendations[0].PlaylistID)
	}
}

func TestMatch_NoDuplicatePicksAcrossDayparts(t *testing.T) {
	m := newTestMatcher(t)
	res := m.Match(models.MatchInput{VenueType: "bar-lounge", Vibes: []string{"trendy"}, Energy: 6}, testParts())

	seen := make(map[string]bool)
	for _, r := range res.Recommendations {
		if seen[r.PlaylistID] {
			t.Fatalf("playlist %s picked twice", r.PlaylistID)
		}
		seen[r.PlaylistID] = true
	}
}

func TestMatch_DesignerNotesMentionVenue(t *testing.T) {
	m := newTestMatcher(t)
	res := m.Match(models.MatchInput{VenueType: "hotel-lobby", Vibes: []string{"warm"}, Energy: 5}, testParts())
	if !strings.Contains(res.DesignerNotes, "hotel lobby") {
		t.Fatalf("notes should humanize the venue type: %s", res.DesignerNotes)
	}
}

func TestParseAvoidList(t *testing.T) {
	got := parseAvoidList("no hip-hop or rap, heavy metal; no EDM")
	want := []string{"hip hop", "rap", "heavy metal", "edm"}
	if len(got) != len(want) {
		t.Fatalf("got %v want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("term %d: got %q want %q", i, got[i], want[i])
		}
	}
}

func TestNormalize_Band(t *testing.T) {
	if normalize(10, 10) != 95 {
		t.Fatalf("max score must normalize to 95, got %d", normalize(10, 10))
	}
	if got := normalize(0, 10); got != 55 {
		t.Fatalf("zero score must normalize to 55, got %d", got)
	}
	if normalize(5, 0) != 55 {
		t.Fatal("no positive scores collapses to the floor")
	}
}
