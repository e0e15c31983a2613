package brief

import (
	"testing"

	"music-brief-scheduler/internal/catalog"
	"music-brief-scheduler/internal/models"
)

func TestSynthesize_RanksSharedGenresFirst(t *testing.T) {
	s := New(catalog.DefaultTables())
	db := s.Synthesize(models.MatchInput{
		VenueType: "hotel-lobby",
		Vibes:     []string{"sophisticated", "warm"},
		Energy:    5,
	}, nil)

	if len(db.TopGenres) == 0 || len(db.TopGenres) > 8 {
		t.Fatalf("expected 1-8 top genres, got %d", len(db.TopGenres))
	}
	// jazz appears in both vibes plus the venue boost, so it must win.
	if db.TopGenres[0] != "jazz" {
		t.Fatalf("expected jazz first, got %v", db.TopGenres)
	}
	if len(db.BPMRanges) != 2 {
		t.Fatalf("expected one BPM range per distinct vibe, got %v", db.BPMRanges)
	}
}

func TestSynthesize_DaypartGenreCounts(t *testing.T) {
	s := New(catalog.DefaultTables())
	parts := []models.Daypart{
		{Key: "opening", Energy: 4},
		{Key: "peak", Energy: 7},
	}
	db := s.Synthesize(models.MatchInput{
		VenueType: "bar-lounge",
		Vibes:     []string{"trendy", "energetic"},
		Energy:    6,
	}, parts)

	if got := len(db.DaypartGenres["opening"]); got != 5 {
		t.Fatalf("below-base daypart should get 5 genres, got %d", got)
	}
	if got := len(db.DaypartGenres["peak"]); got != 6 {
		t.Fatalf("at-or-above-base daypart should get 6 genres, got %d", got)
	}
	if len(db.DaypartOrder) != 2 || db.DaypartOrder[0] != "opening" {
		t.Fatalf("daypart order must follow input order: %v", db.DaypartOrder)
	}
}

func TestSynthesize_UnknownVibeIgnored(t *testing.T) {
	s := New(catalog.DefaultTables())
	db := s.Synthesize(models.MatchInput{
		VenueType: "cafe",
		Vibes:     []string{"interdimensional"},
		Energy:    5,
	}, nil)

	// Only the venue booster genres remain.
	if len(db.TopGenres) != 3 {
		t.Fatalf("expected the 3 cafe booster genres, got %v", db.TopGenres)
	}
	if len(db.BPMRanges) != 0 {
		t.Fatalf("no known vibe, no BPM ranges: %v", db.BPMRanges)
	}
}
