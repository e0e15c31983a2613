package syb

import (
	"testing"

	"music-brief-scheduler/internal/models"
)

func slotParts() map[string]models.Daypart {
	return map[string]models.Daypart{
		"opening": {Key: "opening", TimeRange: "09:00-12:30"},
		"late":    {Key: "late", TimeRange: "22:00-02:00"},
	}
}

func TestWeeklySlots_DailyExpansion(t *testing.T) {
	liked := []models.LikedPlaylist{
		{PlaylistID: "p1", SybID: "syb-1", Daypart: "opening"},
	}
	slots := WeeklySlots(liked, slotParts())
	if len(slots) != 7 {
		t.Fatalf("daily pick must expand to 7 slots, got %d", len(slots))
	}
	s := slots[0]
	if s.Start != "090000" {
		t.Fatalf("unexpected start: %s", s.Start)
	}
	if want := int64(3*60+30) * 60 * 1000; s.Duration != want {
		t.Fatalf("duration %d, want %d", s.Duration, want)
	}
	if s.RRule != "FREQ=WEEKLY;BYDAY=MO" {
		t.Fatalf("unexpected rrule: %s", s.RRule)
	}
	if len(s.PlaylistIDs) != 1 || s.PlaylistIDs[0] != "syb-1" {
		t.Fatalf("unexpected playlist ids: %v", s.PlaylistIDs)
	}
}

func TestWeeklySlots_WeekdayWeekendSplit(t *testing.T) {
	liked := []models.LikedPlaylist{
		{PlaylistID: "p1", SybID: "syb-1", Daypart: "opening", ScheduleType: models.DaysWeekday},
		{PlaylistID: "p2", SybID: "syb-2", Daypart: "opening", ScheduleType: models.DaysWeekend},
	}
	slots := WeeklySlots(liked, slotParts())
	if len(slots) != 7 {
		t.Fatalf("5 weekday + 2 weekend slots expected, got %d", len(slots))
	}
	weekend := 0
	for _, s := range slots {
		if s.RRule == "FREQ=WEEKLY;BYDAY=SA" || s.RRule == "FREQ=WEEKLY;BYDAY=SU" {
			weekend++
			if s.PlaylistIDs[0] != "syb-2" {
				t.Fatalf("weekend slot carries the wrong playlist: %v", s.PlaylistIDs)
			}
		}
	}
	if weekend != 2 {
		t.Fatalf("expected 2 weekend slots, got %d", weekend)
	}
}

func TestWeeklySlots_MidnightWrap(t *testing.T) {
	liked := []models.LikedPlaylist{
		{PlaylistID: "p1", SybID: "syb-1", Daypart: "late"},
	}
	slots := WeeklySlots(liked, slotParts())
	if len(slots) == 0 {
		t.Fatal("expected slots")
	}
	// 22:00 to 02:00 wraps to a 4 hour duration.
	if want := int64(4*60) * 60 * 1000; slots[0].Duration != want {
		t.Fatalf("duration %d, want %d", slots[0].Duration, want)
	}
}

func TestWeeklySlots_SkipsUnschedulable(t *testing.T) {
	liked := []models.LikedPlaylist{
		{PlaylistID: "p1", SybID: "", Daypart: "opening"},          // no platform id
		{PlaylistID: "p2", SybID: "syb-2", Daypart: "nonexistent"}, // unknown daypart
	}
	if slots := WeeklySlots(liked, slotParts()); len(slots) != 0 {
		t.Fatalf("unschedulable picks must be skipped, got %d slots", len(slots))
	}
}
