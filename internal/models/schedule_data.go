package models

import (
	"encoding/json"
	"fmt"
)

// Dayparts is either a flat list (single zone) or a zone->list map (multi
// zone). The JSON shape is preserved on the wire: a list marshals as a JSON
// array, a map as a JSON object.
type Dayparts struct {
	Single []Daypart
	Multi  map[string][]Daypart
}

// IsMulti reports whether the multi-zone shape is populated.
func (d Dayparts) IsMulti() bool { return d.Multi != nil }

// ForZone returns the daypart list for the given zone. Single-zone values
// ignore the zone argument.
func (d Dayparts) ForZone(zone string) []Daypart {
	if d.Multi != nil {
		return d.Multi[zone]
	}
	return d.Single
}

// Each calls fn once per zone with its ordered daypart list. Single-zone
// values are visited under the empty zone name.
func (d Dayparts) Each(fn func(zone string, parts []Daypart)) {
	if d.Multi != nil {
		for zone, parts := range d.Multi {
			fn(zone, parts)
		}
		return
	}
	fn("", d.Single)
}

func (d Dayparts) MarshalJSON() ([]byte, error) {
	if d.Multi != nil {
		return json.Marshal(d.Multi)
	}
	return json.Marshal(d.Single)
}

func (d *Dayparts) UnmarshalJSON(b []byte) error {
	if len(b) == 0 || string(b) == "null" {
		*d = Dayparts{}
		return nil
	}
	switch b[0] {
	case '[':
		return json.Unmarshal(b, &d.Single)
	case '{':
		return json.Unmarshal(b, &d.Multi)
	}
	return fmt.Errorf("dayparts: unexpected JSON shape %q", b[0])
}

// LikedPlaylist is one customer-approved pick inside schedule data.
type LikedPlaylist struct {
	PlaylistID   string `json:"playlistId"`
	Name         string `json:"name"`
	SybID        string `json:"sybId,omitempty"`
	Daypart      string `json:"daypart"`
	ScheduleType string `json:"scheduleType,omitempty"`
}

// ScheduleData is the JSON blob persisted on a brief that the approval step
// materializes into schedule entries.
type ScheduleData struct {
	Dayparts        Dayparts                   `json:"dayparts"`
	DaypartOrder    []string                   `json:"daypartOrder,omitempty"`
	LikedPlaylists  map[string][]LikedPlaylist `json:"likedPlaylists"`
	WeekendDayparts *Dayparts                  `json:"weekendDayparts,omitempty"`
	WeekendLiked    map[string][]LikedPlaylist `json:"weekendLikedPlaylists,omitempty"`
	ZoneNames       []string                   `json:"zoneNames,omitempty"`
	MultiZone       bool                       `json:"multiZone"`
	Hours           string                     `json:"hours,omitempty"`
}

// Zones returns the logical zone names covered by the schedule data. Single
// zone data yields one empty name, which callers render as "Main".
func (s ScheduleData) Zones() []string {
	if len(s.ZoneNames) > 0 {
		return s.ZoneNames
	}
	return []string{""}
}
