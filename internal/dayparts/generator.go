// Package dayparts segments a venue's operating hours into 2-4 labeled,
// time-bounded parts with per-part energy targets.
package dayparts

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"music-brief-scheduler/internal/models"
)

const minutesPerDay = 24 * 60

// clockToken matches "7", "7pm", "19:30", "0730" and similar.
var clockToken = regexp.MustCompile(`(?i)(\d{1,2})(?::?([0-5]\d))?\s*(am|pm)?`)

// labelsByCount maps segment count to base labels, in order.
var labelsByCount = map[int][]string{
	2: {"Opening", "Peak"},
	3: {"Opening", "Peak Hours", "Wind Down"},
	4: {"Opening", "Build Up", "Peak Hours", "Wind Down"},
}

// energyOffsets maps segment count to per-segment energy deltas.
var energyOffsets = map[int][]int{
	2: {-1, +1},
	3: {-2, 0, +1},
	4: {-2, -1, +1, 0},
}

// Generate derives an ordered daypart list from a free-text operating-hours
// string and a base energy in [1,10]. Unparseable input falls back to three
// fixed parts. Ordering is significant downstream.
func Generate(hours string, baseEnergy int) []models.Daypart {
	baseEnergy = clampEnergy(baseEnergy)

	open, close, ok := ParseHours(hours)
	if !ok {
		return fallback(baseEnergy)
	}

	total := close - open
	if total <= 0 {
		// Interval wraps past midnight.
		total = minutesPerDay - open + close
	}

	count := segmentCount(total)
	segLen := (total + count/2) / count

	labels := labelsByCount[count]
	offsets := energyOffsets[count]

	parts := make([]models.Daypart, 0, count)
	for i := 0; i < count; i++ {
		start := (open + i*segLen) % minutesPerDay
		var end int
		if i == count-1 {
			end = close % minutesPerDay
		} else {
			end = (open + (i+1)*segLen) % minutesPerDay
		}
		parts = append(parts, models.Daypart{
			Key:       slug(labels[i]),
			Label:     fmt.Sprintf("%s (%s–%s)", labels[i], fmtClock(start), fmtClock(end)),
			TimeRange: fmt.Sprintf("%s-%s", fmtClock(start), fmtClock(end)),
			Icon:      iconFor(start / 60),
			Energy:    clampEnergy(baseEnergy + offsets[i]),
		})
	}
	return parts
}

// ParseHours extracts the opening window as minutes-since-midnight. The
// second return is the closing minute, which may be <= the first when the
// window wraps past midnight.
func ParseHours(hours string) (open, close int, ok bool) {
	if strings.TrimSpace(hours) == "" {
		return 0, 0, false
	}
	matches := clockToken.FindAllStringSubmatch(hours, -1)
	var clocks []int
	for _, m := range matches {
		if v, valid := toMinutes(m[1], m[2], m[3]); valid {
			clocks = append(clocks, v)
		}
		if len(clocks) == 2 {
			break
		}
	}
	if len(clocks) < 2 {
		return 0, 0, false
	}
	return clocks[0], clocks[1], true
}

func toMinutes(hh, mm, ampm string) (int, bool) {
	h, err := strconv.Atoi(hh)
	if err != nil || h > 24 {
		return 0, false
	}
	m := 0
	if mm != "" {
		m, _ = strconv.Atoi(mm)
	}
	switch strings.ToLower(ampm) {
	case "am":
		if h == 12 {
			h = 0
		}
	case "pm":
		if h < 12 {
			h += 12
		}
	}
	return (h*60 + m) % minutesPerDay, true
}

func segmentCount(totalMinutes int) int {
	switch {
	case totalMinutes <= 6*60:
		return 2
	case totalMinutes <= 12*60:
		return 3
	default:
		return 4
	}
}

// iconFor picks an icon from the local hour a segment starts at.
func iconFor(hour int) string {
	switch {
	case hour >= 5 && hour <= 10:
		return "sunrise"
	case hour >= 11 && hour <= 15:
		return "sun"
	case hour >= 16 && hour <= 18:
		return "sunset"
	case hour >= 19 && hour <= 23:
		return "moon"
	default:
		return "stars"
	}
}

func fallback(baseEnergy int) []models.Daypart {
	fixed := []struct {
		key, label, timeRange, icon string
		offset                      int
	}{
		{"morning", "Morning", "08:00-12:00", "sunrise", -2},
		{"afternoon", "Afternoon", "12:00-17:00", "sun", 0},
		{"evening", "Evening", "17:00-22:00", "moon", +1},
	}
	parts := make([]models.Daypart, 0, len(fixed))
	for _, f := range fixed {
		parts = append(parts, models.Daypart{
			Key:       f.key,
			Label:     f.label,
			TimeRange: f.timeRange,
			Icon:      f.icon,
			Energy:    clampEnergy(baseEnergy + f.offset),
		})
	}
	return parts
}

func clampEnergy(e int) int {
	if e < 1 {
		return 1
	}
	if e > 10 {
		return 10
	}
	return e
}

func fmtClock(minutes int) string {
	minutes = ((minutes % minutesPerDay) + minutesPerDay) % minutesPerDay
	return fmt.Sprintf("%02d:%02d", minutes/60, minutes%60)
}

func slug(label string) string {
	return strings.ReplaceAll(strings.ToLower(label), " ", "-")
}
