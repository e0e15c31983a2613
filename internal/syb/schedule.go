package syb

import (
	"fmt"
	"strconv"
	"strings"

	"music-brief-scheduler/internal/models"
)

var (
	allDays     = []string{"MO", "TU", "WE", "TH", "FR", "SA", "SU"}
	weekdayDays = []string{"MO", "TU", "WE", "TH", "FR"}
	weekendDays = []string{"SA", "SU"}
)

// WeeklySlots expands liked playlists into weekly RRULE slots, one per
// day-of-week. Times come from each playlist's daypart timeRange, read as
// venue-local wall clock.
func WeeklySlots(liked []models.LikedPlaylist, parts map[string]models.Daypart) []Slot {
	var slots []Slot
	for _, lp := range liked {
		if lp.SybID == "" {
			continue
		}
		dp, ok := parts[lp.Daypart]
		if !ok {
			continue
		}
		start, duration, ok := slotTiming(dp.TimeRange)
		if !ok {
			continue
		}
		for _, day := range daysFor(lp.ScheduleType) {
			slots = append(slots, Slot{
				RRule:       "FREQ=WEEKLY;BYDAY=" + day,
				Start:       start,
				Duration:    duration,
				PlaylistIDs: []string{lp.SybID},
			})
		}
	}
	return slots
}

func daysFor(scheduleType string) []string {
	switch scheduleType {
	case models.DaysWeekday:
		return weekdayDays
	case models.DaysWeekend:
		return weekendDays
	default:
		return allDays
	}
}

// slotTiming converts "HH:MM-HH:MM" into an HHMMSS start and a duration in
// milliseconds, wrapping through midnight when the range closes earlier than
// it opens.
func slotTiming(timeRange string) (start string, durationMS int64, ok bool) {
	open, close, ok := splitRange(timeRange)
	if !ok {
		return "", 0, false
	}
	minutes := close - open
	if minutes <= 0 {
		minutes += 24 * 60
	}
	return fmt.Sprintf("%02d%02d00", open/60, open%60), int64(minutes) * 60 * 1000, true
}

func splitRange(timeRange string) (open, close int, ok bool) {
	halves := strings.SplitN(timeRange, "-", 2)
	if len(halves) != 2 {
		return 0, 0, false
	}
	open, ok = clockMinutes(halves[0])
	if !ok {
		return 0, 0, false
	}
	close, ok = clockMinutes(halves[1])
	return open, close, ok
}

func clockMinutes(s string) (int, bool) {
	parts := strings.SplitN(strings.TrimSpace(s), ":", 2)
	if len(parts) != 2 {
		return 0, false
	}
	h, err1 := strconv.Atoi(parts[0])
	m, err2 := strconv.Atoi(parts[1])
	if err1 != nil || err2 != nil || h < 0 || h > 23 || m < 0 || m > 59 {
		return 0, false
	}
	return h*60 + m, true
}
