package approval

import (
	"testing"

	"music-brief-scheduler/internal/models"
)

func submitFixture() models.SubmitRequest {
	return models.SubmitRequest{
		VenueName: "Vertigo Rooftop",
		Hours:     "17:00-01:00",
		DaypartsMetadata: []models.Daypart{
			{Key: "opening", Label: "Opening", TimeRange: "17:00-20:00"},
			{Key: "peak", Label: "Peak", TimeRange: "20:00-01:00"},
		},
		LikedPlaylists: []string{"p1", "p2/peak"},
		AllRecommendations: []models.Recommendation{
			{PlaylistID: "p1", PlaylistName: "Sunset Grooves", SybID: "syb-1", Daypart: "opening"},
			{PlaylistID: "p2", PlaylistName: "Night Pulse", SybID: "syb-2", Daypart: "peak"},
			{PlaylistID: "p2", PlaylistName: "Night Pulse", SybID: "syb-2", Daypart: "opening"},
			{PlaylistID: "p3", PlaylistName: "Unpicked", SybID: "syb-3", Daypart: "peak"},
		},
	}
}

func TestBuildScheduleData_SingleZone(t *testing.T) {
	sd := buildScheduleData(submitFixture())

	if sd.Dayparts.IsMulti() {
		t.Fatal("single zone submissions keep the flat daypart shape")
	}
	if len(sd.DaypartOrder) != 2 || sd.DaypartOrder[0] != "opening" {
		t.Fatalf("daypart order: %v", sd.DaypartOrder)
	}

	picks := sd.LikedPlaylists[""]
	if len(picks) != 2 {
		t.Fatalf("expected 2 picks, got %+v", picks)
	}
	// "p2/peak" selects the peak placement only, not the opening one.
	for _, p := range picks {
		if p.PlaylistID == "p2" && p.Daypart != "peak" {
			t.Fatalf("composite id must pin the daypart: %+v", p)
		}
		if p.PlaylistID == "p3" {
			t.Fatalf("unliked playlist leaked in: %+v", p)
		}
	}
	if sd.WeekendDayparts != nil || len(sd.WeekendLiked) != 0 {
		t.Fatal("no weekend variant submitted")
	}
}

func TestBuildScheduleData_MultiZoneReplicatesDayparts(t *testing.T) {
	req := submitFixture()
	req.MultiZone = true
	req.ZoneNames = []string{"Lobby", "Bar"}
	req.AllRecommendations[0].Zone = "Lobby"
	req.AllRecommendations[1].Zone = "Bar"

	sd := buildScheduleData(req)
	if !sd.Dayparts.IsMulti() {
		t.Fatal("multi zone submissions use the per-zone shape")
	}
	for _, z := range req.ZoneNames {
		if len(sd.Dayparts.ForZone(z)) != 2 {
			t.Fatalf("zone %s missing dayparts", z)
		}
	}
	if len(sd.LikedPlaylists["Lobby"]) != 1 || len(sd.LikedPlaylists["Bar"]) != 1 {
		t.Fatalf("picks not grouped by zone: %v", sd.LikedPlaylists)
	}
}

func TestBuildScheduleData_WeekendVariant(t *testing.T) {
	req := submitFixture()
	req.WeekendLiked = []string{"p9"}
	req.WeekendRecommends = []models.Recommendation{
		{PlaylistID: "p9", PlaylistName: "Weekend Heat", SybID: "syb-9", Daypart: "peak", ScheduleType: models.DaysWeekend},
	}
	req.WeekendDayparts = &models.Dayparts{Single: []models.Daypart{
		{Key: "peak", TimeRange: "20:00-02:00"},
	}}

	sd := buildScheduleData(req)
	if sd.WeekendDayparts == nil {
		t.Fatal("weekend dayparts must carry over")
	}
	if len(sd.WeekendLiked[""]) != 1 || sd.WeekendLiked[""][0].SybID != "syb-9" {
		t.Fatalf("weekend picks: %v", sd.WeekendLiked)
	}
}

func TestMaterializeEntries_DailyWhenNoWeekend(t *testing.T) {
	sd := buildScheduleData(submitFixture())
	mappings := map[string]models.ZoneMapping{
		"Main": {BriefZoneName: "Main", SybZoneID: "z1", SybZoneName: "Ground Floor"},
	}

	entries := materializeEntries(42, sd, mappings, "Asia/Bangkok")
	if len(entries) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(entries))
	}
	for _, e := range entries {
		if e.Days != models.DaysDaily {
			t.Fatalf("no weekend variant means daily entries: %+v", e)
		}
		if e.BriefID != 42 || e.ZoneID != "z1" || e.Timezone != "Asia/Bangkok" {
			t.Fatalf("entry fields: %+v", e)
		}
		if e.Status != models.EntryStatusActive {
			t.Fatalf("entries start active: %+v", e)
		}
	}
}

func TestMaterializeEntries_WeekendVariantKeepsBaseDaily(t *testing.T) {
	req := submitFixture()
	req.WeekendLiked = []string{"p9", "p10"}
	req.WeekendRecommends = []models.Recommendation{
		{PlaylistID: "p9", PlaylistName: "Weekend Heat", SybID: "syb-9", Daypart: "opening"},
		{PlaylistID: "p10", PlaylistName: "Late Shift", SybID: "syb-10", Daypart: "peak"},
	}
	req.WeekendDayparts = &models.Dayparts{Single: []models.Daypart{
		{Key: "opening", TimeRange: "17:00-20:00"},
		{Key: "peak", TimeRange: "20:00-02:00"},
	}}
	sd := buildScheduleData(req)
	mappings := map[string]models.ZoneMapping{
		"Main": {BriefZoneName: "Main", SybZoneID: "z1", SybZoneName: "Ground Floor"},
	}

	entries := materializeEntries(7, sd, mappings, "Asia/Bangkok")
	if len(entries) != 4 {
		t.Fatalf("expected 4 entries, got %d", len(entries))
	}
	daily, weekend := 0, 0
	for _, e := range entries {
		switch e.Days {
		case models.DaysDaily:
			daily++
		case models.DaysWeekend:
			weekend++
		default:
			// Base picks run every day; the weekend variant overlays
			// Saturday and Sunday. Nothing gets a weekday filter.
			t.Fatalf("unexpected days value: %+v", e)
		}
		if e.Timezone != "Asia/Bangkok" {
			t.Fatalf("timezone not carried: %+v", e)
		}
	}
	if daily != 2 || weekend != 2 {
		t.Fatalf("split %d daily / %d weekend, want 2/2", daily, weekend)
	}
}

func TestMaterializeEntries_SkipsUnmappedAndUnschedulable(t *testing.T) {
	req := submitFixture()
	req.MultiZone = true
	req.ZoneNames = []string{"Lobby", "Bar"}
	req.AllRecommendations = []models.Recommendation{
		{PlaylistID: "p1", PlaylistName: "A", SybID: "syb-1", Daypart: "opening", Zone: "Lobby"},
		{PlaylistID: "p2", PlaylistName: "B", SybID: "", Daypart: "peak", Zone: "Lobby"},         // no platform id
		{PlaylistID: "p4", PlaylistName: "C", SybID: "syb-4", Daypart: "ghost", Zone: "Lobby"},  // unknown daypart
		{PlaylistID: "p5", PlaylistName: "D", SybID: "syb-5", Daypart: "opening", Zone: "Bar"},  // zone unmapped
	}
	req.LikedPlaylists = []string{"p1", "p2", "p4", "p5"}
	sd := buildScheduleData(req)

	mappings := map[string]models.ZoneMapping{
		"Lobby": {BriefZoneName: "Lobby", SybZoneID: "z1", SybZoneName: "Lobby"},
	}
	entries := materializeEntries(1, sd, mappings, "UTC")
	if len(entries) != 1 {
		t.Fatalf("only the mapped, schedulable pick survives, got %d", len(entries))
	}
	if entries[0].PlaylistSybID != "syb-1" {
		t.Fatalf("wrong survivor: %+v", entries[0])
	}
}

func TestZoneKey(t *testing.T) {
	if zoneKey("") != DefaultZoneName || zoneKey("  ") != DefaultZoneName {
		t.Fatal("blank zones map to the default name")
	}
	if zoneKey("Pool Bar") != "Pool Bar" {
		t.Fatal("named zones pass through")
	}
}

func TestSplitTimeRange(t *testing.T) {
	cases := []struct {
		in         string
		start, end string
		ok         bool
	}{
		{"17:00-20:00", "17:00", "20:00", true},
		{" 9:00 - 12:30 ", "9:00", "12:30", true},
		{"17:00", "", "", false},
		{"-20:00", "", "", false},
	}
	for _, c := range cases {
		start, end, ok := splitTimeRange(c.in)
		if ok != c.ok || start != c.start || end != c.end {
			t.Fatalf("splitTimeRange(%q) = %q %q %v", c.in, start, end, ok)
		}
	}
}

func TestCoversAllZones(t *testing.T) {
	sd := &models.ScheduleData{ZoneNames: []string{"Lobby", "Bar"}}
	partial := map[string]models.ZoneMapping{"Lobby": {}}
	if coversAllZones(sd, partial) {
		t.Fatal("missing Bar mapping must fail the gate")
	}
	full := map[string]models.ZoneMapping{"Lobby": {}, "Bar": {}}
	if !coversAllZones(sd, full) {
		t.Fatal("full coverage must pass")
	}

	single := &models.ScheduleData{}
	if !coversAllZones(single, map[string]models.ZoneMapping{"Main": {}}) {
		t.Fatal("single zone covered under the default name")
	}
	if coversAllZones(single, map[string]models.ZoneMapping{}) {
		t.Fatal("no mappings at all must fail")
	}
}

func TestNewToken(t *testing.T) {
	a, err := newToken()
	if err != nil {
		t.Fatal(err)
	}
	if len(a) != tokenBytes*2 {
		t.Fatalf("token length %d, want %d hex chars", len(a), tokenBytes*2)
	}
	b, err := newToken()
	if err != nil {
		t.Fatal(err)
	}
	if a == b {
		t.Fatal("tokens must not repeat")
	}
}

func TestFlattenForSlots_TagsScheduleTypes(t *testing.T) {
	req := submitFixture()
	req.WeekendLiked = []string{"p9"}
	req.WeekendRecommends = []models.Recommendation{
		{PlaylistID: "p9", PlaylistName: "Weekend Heat", SybID: "syb-9", Daypart: "peak"},
	}
	req.WeekendDayparts = &models.Dayparts{Single: []models.Daypart{
		{Key: "late", TimeRange: "23:00-03:00"},
	}}
	sd := buildScheduleData(req)

	liked, parts := flattenForSlots(sd)
	if len(liked) != 3 {
		t.Fatalf("expected 3 flattened picks, got %d", len(liked))
	}
	for _, lp := range liked {
		switch lp.SybID {
		case "syb-9":
			if lp.ScheduleType != models.DaysWeekend {
				t.Fatalf("weekend pick mistagged: %+v", lp)
			}
		default:
			// Untyped base picks expand across all seven days downstream.
			if lp.ScheduleType != "" {
				t.Fatalf("base pick must stay untyped: %+v", lp)
			}
		}
	}
	// Base and weekend dayparts merge into one timing index.
	for _, key := range []string{"opening", "peak", "late"} {
		if _, ok := parts[key]; !ok {
			t.Fatalf("missing daypart %s in %v", key, parts)
		}
	}
}

func TestDistinctSybIDs(t *testing.T) {
	ids := distinctSybIDs([]models.LikedPlaylist{
		{SybID: "a"}, {SybID: "b"}, {SybID: "a"}, {SybID: ""},
	})
	if len(ids) != 2 || ids[0] != "a" || ids[1] != "b" {
		t.Fatalf("unexpected ids: %v", ids)
	}
}
