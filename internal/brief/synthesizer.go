// Package brief condenses structured consultation inputs into a designer
// brief: top genres, BPM ranges and a per-daypart genre map. The matcher is
// the authority on playlist picks; this exists for email rendering and as a
// sanity companion to those picks.
package brief

import (
	"sort"

	"music-brief-scheduler/internal/catalog"
	"music-brief-scheduler/internal/models"
)

const topGenreCount = 8

// Synthesizer builds designer briefs from vibe and venue tables.
type Synthesizer struct {
	tables *catalog.Tables
}

// New creates a synthesizer over the given tables.
func New(t *catalog.Tables) *Synthesizer {
	return &Synthesizer{tables: t}
}

// Synthesize scores genres from the selected vibes and the venue booster
// list, then distributes the winners across dayparts. Higher-energy dayparts
// get one extra genre.
func (s *Synthesizer) Synthesize(in models.MatchInput, parts []models.Daypart) models.DesignerBrief {
	type genreScore struct {
		genre string
		score float64
		order int
	}
	scores := map[string]*genreScore{}
	order := 0
	bump := func(genre string, amount float64) {
		gs, ok := scores[genre]
		if !ok {
			gs = &genreScore{genre: genre, order: order}
			order++
			scores[genre] = gs
		}
		gs.score += amount
	}

	var bpm []string
	seenBPM := map[string]bool{}
	for _, vibe := range in.Vibes {
		prof, ok := s.tables.ProfileFor(vibe)
		if !ok {
			continue
		}
		for _, g := range prof.Genres {
			bump(g, 1.0)
		}
		if prof.BPM != "" && !seenBPM[prof.BPM] {
			seenBPM[prof.BPM] = true
			bpm = append(bpm, prof.BPM)
		}
	}
	for _, g := range s.tables.GenresFor(in.VenueType) {
		bump(g, 0.5)
	}

	ranked := make([]*genreScore, 0, len(scores))
	for _, gs := range scores {
		ranked = append(ranked, gs)
	}
	sort.SliceStable(ranked, func(i, j int) bool {
		if ranked[i].score != ranked[j].score {
			return ranked[i].score > ranked[j].score
		}
		return ranked[i].order < ranked[j].order
	})

	top := make([]string, 0, topGenreCount)
	for _, gs := range ranked {
		if len(top) == topGenreCount {
			break
		}
		top = append(top, gs.genre)
	}

	daypartGenres := make(map[string][]string, len(parts))
	daypartOrder := make([]string, 0, len(parts))
	for _, dp := range parts {
		n := 5
		if dp.Energy >= in.Energy {
			n = 6
		}
		if n > len(top) {
			n = len(top)
		}
		daypartGenres[dp.Key] = top[:n]
		daypartOrder = append(daypartOrder, dp.Key)
	}

	return models.DesignerBrief{
		TopGenres:     top,
		BPMRanges:     bpm,
		DaypartGenres: daypartGenres,
		DaypartOrder:  daypartOrder,
	}
}
