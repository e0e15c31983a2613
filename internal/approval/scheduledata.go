package approval

import (
	"strings"

	"music-brief-scheduler/internal/models"
)

// DefaultZoneName stands in for the unnamed zone of single-zone venues, both
// in zone mappings and on the approval page.
const DefaultZoneName = "Main"

// zoneKey normalizes a logical zone name for mapping storage.
func zoneKey(name string) string {
	if strings.TrimSpace(name) == "" {
		return DefaultZoneName
	}
	return name
}

// buildScheduleData condenses a submission into the durable schedule blob:
// dayparts, the customer's picks grouped by zone, and the weekend variant
// when one exists.
func buildScheduleData(req models.SubmitRequest) *models.ScheduleData {
	sd := &models.ScheduleData{
		LikedPlaylists: groupLiked(req.LikedPlaylists, req.AllRecommendations),
		MultiZone:      req.MultiZone,
		ZoneNames:      req.ZoneNames,
		Hours:          req.Hours,
	}
	for _, p := range req.DaypartsMetadata {
		sd.DaypartOrder = append(sd.DaypartOrder, p.Key)
	}

	if req.MultiZone && len(req.ZoneNames) > 0 {
		multi := make(map[string][]models.Daypart, len(req.ZoneNames))
		for _, z := range req.ZoneNames {
			multi[z] = req.DaypartsMetadata
		}
		sd.Dayparts = models.Dayparts{Multi: multi}
	} else {
		sd.Dayparts = models.Dayparts{Single: req.DaypartsMetadata}
	}

	if len(req.WeekendLiked) > 0 {
		sd.WeekendLiked = groupLiked(req.WeekendLiked, req.WeekendRecommends)
		sd.WeekendDayparts = req.WeekendDayparts
	}
	return sd
}

// groupLiked resolves liked playlist IDs against the recommendation set and
// groups the hits by zone. IDs may arrive bare or as "playlistId/daypart"
// when the client disambiguates a playlist picked in one daypart only.
func groupLiked(likedIDs []string, recs []models.Recommendation) map[string][]models.LikedPlaylist {
	if len(likedIDs) == 0 {
		return map[string][]models.LikedPlaylist{}
	}
	liked := make(map[string]bool, len(likedIDs))
	for _, id := range likedIDs {
		liked[id] = true
	}

	out := make(map[string][]models.LikedPlaylist)
	for _, r := range recs {
		if !liked[r.PlaylistID] && !liked[r.PlaylistID+"/"+r.Daypart] {
			continue
		}
		out[r.Zone] = append(out[r.Zone], models.LikedPlaylist{
			PlaylistID:   r.PlaylistID,
			Name:         r.PlaylistName,
			SybID:        r.SybID,
			Daypart:      r.Daypart,
			ScheduleType: r.ScheduleType,
		})
	}
	return out
}

// daypartIndex keys a zone's dayparts for timing lookups.
func daypartIndex(parts []models.Daypart) map[string]models.Daypart {
	idx := make(map[string]models.Daypart, len(parts))
	for _, p := range parts {
		idx[p.Key] = p
	}
	return idx
}

// materializeEntries turns schedule data into executor rows, one per zone and
// liked playlist. Base picks always run daily; a weekend variant overlays its
// picks on Saturday and Sunday, and the executor's latest-start-per-zone
// collapse arbitrates the overlap.
func materializeEntries(briefID int64, sd *models.ScheduleData, mappings map[string]models.ZoneMapping, tz string) []models.ScheduleEntry {
	hasWeekend := len(sd.WeekendLiked) > 0

	var entries []models.ScheduleEntry
	for _, zone := range sd.Zones() {
		mapping, ok := mappings[zoneKey(zone)]
		if !ok {
			continue
		}
		idx := daypartIndex(sd.Dayparts.ForZone(zone))
		entries = append(entries, zoneEntries(briefID, sd.LikedPlaylists[zone], idx, mapping, models.DaysDaily, tz)...)

		if hasWeekend && sd.WeekendDayparts != nil {
			widx := daypartIndex(sd.WeekendDayparts.ForZone(zone))
			entries = append(entries, zoneEntries(briefID, sd.WeekendLiked[zone], widx, mapping, models.DaysWeekend, tz)...)
		}
	}
	return entries
}

func zoneEntries(briefID int64, liked []models.LikedPlaylist, parts map[string]models.Daypart,
	mapping models.ZoneMapping, days, tz string) []models.ScheduleEntry {
	var out []models.ScheduleEntry
	for _, lp := range liked {
		if lp.SybID == "" {
			continue
		}
		dp, ok := parts[lp.Daypart]
		if !ok {
			continue
		}
		start, end, ok := splitTimeRange(dp.TimeRange)
		if !ok {
			continue
		}
		out = append(out, models.ScheduleEntry{
			BriefID:       briefID,
			ZoneID:        mapping.SybZoneID,
			ZoneName:      mapping.SybZoneName,
			PlaylistSybID: lp.SybID,
			PlaylistName:  lp.Name,
			StartTime:     start,
			EndTime:       end,
			Days:          days,
			Timezone:      tz,
			Status:        models.EntryStatusActive,
		})
	}
	return out
}

func splitTimeRange(timeRange string) (start, end string, ok bool) {
	halves := strings.SplitN(timeRange, "-", 2)
	if len(halves) != 2 {
		return "", "", false
	}
	start = strings.TrimSpace(halves[0])
	end = strings.TrimSpace(halves[1])
	return start, end, start != "" && end != ""
}
