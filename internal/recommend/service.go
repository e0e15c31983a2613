// Package recommend orchestrates the deterministic pipeline end to end:
// dayparts per zone, matcher picks, weekend variants and the designer brief.
// Both the chat engine's generate_recommendations tool and POST
// /api/recommend run through it.
package recommend

import (
	"music-brief-scheduler/internal/brief"
	"music-brief-scheduler/internal/dayparts"
	"music-brief-scheduler/internal/matcher"
	"music-brief-scheduler/internal/models"
)

const defaultEnergy = 5

// Service runs the matcher across zones and weekend variants.
type Service struct {
	matcher *matcher.Matcher
	synth   *brief.Synthesizer
}

func NewService(m *matcher.Matcher, s *brief.Synthesizer) *Service {
	return &Service{matcher: m, synth: s}
}

// Output is the full recommendation payload, shaped for the SSE
// recommendations event and the /api/recommend response.
type Output struct {
	Recommendations []models.Recommendation `json:"recommendations"`
	Dayparts        models.Dayparts         `json:"dayparts"`
	DaypartOrder    []string                `json:"daypartOrder,omitempty"`
	DesignerNotes   string                  `json:"designerNotes"`
	ExtractedBrief  models.ExtractedBrief   `json:"extractedBrief"`
	MultiZone       bool                    `json:"multiZone"`
	ZoneNames       []string                `json:"zoneNames,omitempty"`
	WeekendDayparts *models.Dayparts        `json:"weekendDayparts"`
	WeekendRecs     []models.Recommendation `json:"weekendRecommendations"`
	DesignerBrief   models.DesignerBrief    `json:"designerBrief"`
}

// Run produces recommendations for the extracted brief. Multi-zone briefs
// run the matcher once per zone with the zone's overrides merged atop the
// base; a weekendMode spec triggers a second pass whose picks carry
// scheduleType "weekend".
func (s *Service) Run(in models.ExtractedBrief) Output {
	base := matchInput(in)

	zones := in.Zones
	multiZone := len(zones) > 0
	if !multiZone {
		zones = []models.ZoneSpec{{Name: "", Hours: in.Hours, Energy: in.Energy}}
	}

	out := Output{ExtractedBrief: in, MultiZone: multiZone}
	multiParts := make(map[string][]models.Daypart, len(zones))

	for _, zone := range zones {
		zin, hours := mergeZone(base, in.Hours, zone)
		parts := dayparts.Generate(hours, zin.Energy)
		res := s.matcher.Match(zin, parts)
		for i := range res.Recommendations {
			res.Recommendations[i].Zone = zone.Name
		}
		out.Recommendations = append(out.Recommendations, res.Recommendations...)
		if out.DesignerNotes == "" {
			out.DesignerNotes = res.DesignerNotes
		}
		multiParts[zone.Name] = parts
		if multiZone {
			out.ZoneNames = append(out.ZoneNames, zone.Name)
		}
	}

	if multiZone {
		out.Dayparts = models.Dayparts{Multi: multiParts}
	} else {
		out.Dayparts = models.Dayparts{Single: multiParts[""]}
	}
	firstParts := multiParts[firstZoneName(zones)]
	out.DaypartOrder = daypartOrder(firstParts)
	out.DesignerBrief = s.synth.Synthesize(base, firstParts)

	if in.WeekendMode != nil {
		out.WeekendDayparts, out.WeekendRecs = s.weekendPass(base, in, zones)
	}
	return out
}

// weekendPass reruns every zone with the weekendMode overrides stacked on
// top of the zone overrides.
func (s *Service) weekendPass(base models.MatchInput, in models.ExtractedBrief, zones []models.ZoneSpec) (*models.Dayparts, []models.Recommendation) {
	wk := *in.WeekendMode
	multiParts := make(map[string][]models.Daypart, len(zones))
	var recs []models.Recommendation

	for _, zone := range zones {
		zin, hours := mergeZone(base, in.Hours, zone)
		zin, hours = mergeZone(zin, hours, wk)
		parts := dayparts.Generate(hours, zin.Energy)
		res := s.matcher.Match(zin, parts)
		for i := range res.Recommendations {
			res.Recommendations[i].Zone = zone.Name
			res.Recommendations[i].ScheduleType = "weekend"
		}
		recs = append(recs, res.Recommendations...)
		multiParts[zone.Name] = parts
	}

	if len(in.Zones) > 0 {
		return &models.Dayparts{Multi: multiParts}, recs
	}
	return &models.Dayparts{Single: multiParts[""]}, recs
}

func matchInput(in models.ExtractedBrief) models.MatchInput {
	energy := in.Energy
	if energy <= 0 {
		energy = defaultEnergy
	}
	return models.MatchInput{
		VenueType:  in.VenueType,
		Vibes:      in.Vibes,
		Energy:     energy,
		AvoidList:  in.AvoidList,
		Vocals:     in.Vocals,
		GenreHints: in.GenreHints,
	}
}

// mergeZone stacks a zone's overrides atop the base input and returns the
// effective hours string alongside.
func mergeZone(base models.MatchInput, baseHours string, zone models.ZoneSpec) (models.MatchInput, string) {
	out := base
	if zone.Energy > 0 {
		out.Energy = zone.Energy
	}
	if len(zone.Vibes) > 0 {
		out.Vibes = zone.Vibes
	}
	if len(zone.GenreHints) > 0 {
		out.GenreHints = zone.GenreHints
	}
	hours := baseHours
	if zone.Hours != "" {
		hours = zone.Hours
	}
	return out, hours
}

func firstZoneName(zones []models.ZoneSpec) string {
	if len(zones) == 0 {
		return ""
	}
	return zones[0].Name
}

func daypartOrder(parts []models.Daypart) []string {
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		out = append(out, p.Key)
	}
	return out
}
