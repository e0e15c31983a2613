package models

import (
	"encoding/json"
	"time"
)

// Brief statuses. Transitions only move forward:
// submitted -> approved -> scheduled -> completed.
const (
	BriefStatusSubmitted = "submitted"
	BriefStatusApproved  = "approved"
	BriefStatusScheduled = "scheduled"
	BriefStatusCompleted = "completed"
)

// Products a brief can target.
const (
	ProductSYB        = "syb"
	ProductBeatBreeze = "beatbreeze"
)

// Brief is the persisted snapshot of one consultation.
type Brief struct {
	ID                  int64           `json:"id" db:"id"`
	VenueName           string          `json:"venue_name" db:"venue_name"`
	VenueType           string          `json:"venue_type" db:"venue_type"`
	Location            string          `json:"location" db:"location"`
	ContactName         string          `json:"contact_name" db:"contact_name"`
	ContactEmail        string          `json:"contact_email" db:"contact_email"`
	ContactPhone        string          `json:"contact_phone" db:"contact_phone"`
	Product             string          `json:"product" db:"product"`
	LikedPlaylistIDs    []string        `json:"liked_playlist_ids" db:"liked_playlist_ids"`
	ConversationSummary string          `json:"conversation_summary" db:"conversation_summary"`
	RawData             json.RawMessage `json:"raw_data" db:"raw_data"`
	ScheduleData        *ScheduleData   `json:"schedule_data" db:"schedule_data"`
	Status              string          `json:"status" db:"status"`
	SybAccountID        *string         `json:"syb_account_id,omitempty" db:"syb_account_id"`
	SybScheduleID       *string         `json:"syb_schedule_id,omitempty" db:"syb_schedule_id"`
	AutomationTier      *string         `json:"automation_tier,omitempty" db:"automation_tier"`
	CreatedAt           time.Time       `json:"created_at" db:"created_at"`
}

// Venue is one row per unique venue name, carrying what later briefs and the
// executor need without re-asking: platform account, timezone and the
// auto-schedule gate.
type Venue struct {
	ID                 int64     `json:"id" db:"id"`
	VenueName          string    `json:"venue_name" db:"venue_name"`
	Location           string    `json:"location" db:"location"`
	VenueType          string    `json:"venue_type" db:"venue_type"`
	SybAccountID       *string   `json:"syb_account_id,omitempty" db:"syb_account_id"`
	LatestBriefID      *int64    `json:"latest_brief_id,omitempty" db:"latest_brief_id"`
	AutoSchedule       bool      `json:"auto_schedule" db:"auto_schedule"`
	ApprovedBriefCount int       `json:"approved_brief_count" db:"approved_brief_count"`
	Timezone           string    `json:"timezone" db:"timezone"`
	CreatedAt          time.Time `json:"created_at" db:"created_at"`
	UpdatedAt          time.Time `json:"updated_at" db:"updated_at"`
}

// ZoneMapping associates a logical zone name used in conversation with a
// platform sound zone. Learned at first approval, reused thereafter.
type ZoneMapping struct {
	ID            int64     `json:"id" db:"id"`
	VenueName     string    `json:"venue_name" db:"venue_name"`
	BriefZoneName string    `json:"brief_zone_name" db:"brief_zone_name"`
	SybZoneID     string    `json:"syb_zone_id" db:"syb_zone_id"`
	SybZoneName   string    `json:"syb_zone_name" db:"syb_zone_name"`
	SybAccountID  string    `json:"syb_account_id" db:"syb_account_id"`
	CreatedAt     time.Time `json:"created_at" db:"created_at"`
}

// ScheduleEntry statuses.
const (
	EntryStatusActive    = "active"
	EntryStatusPaused    = "paused"
	EntryStatusCompleted = "completed"
	EntryStatusError     = "error"
)

// Day filters for schedule entries.
const (
	DaysDaily   = "daily"
	DaysWeekday = "weekday"
	DaysWeekend = "weekend"
)

// ScheduleEntry is the durable unit the executor runs against: put this
// playlist on this zone at this local wall-clock time on these days.
type ScheduleEntry struct {
	ID             int64      `json:"id" db:"id"`
	BriefID        int64      `json:"brief_id" db:"brief_id"`
	ZoneID         string     `json:"zone_id" db:"zone_id"`
	ZoneName       string     `json:"zone_name" db:"zone_name"`
	PlaylistSybID  string     `json:"playlist_syb_id" db:"playlist_syb_id"`
	PlaylistName   string     `json:"playlist_name" db:"playlist_name"`
	StartTime      string     `json:"start_time" db:"start_time"` // "HH:MM" local
	EndTime        string     `json:"end_time" db:"end_time"`     // informational
	Days           string     `json:"days" db:"days"`
	Timezone       string     `json:"timezone" db:"timezone"`
	Status         string     `json:"status" db:"status"`
	LastAssignedAt *time.Time `json:"last_assigned_at,omitempty" db:"last_assigned_at"`
	RetryCount     int        `json:"retry_count" db:"retry_count"`
}

// MatchesDay reports whether the entry's day filter admits the given weekday.
func (e ScheduleEntry) MatchesDay(d time.Weekday) bool {
	switch e.Days {
	case DaysWeekday:
		return d >= time.Monday && d <= time.Friday
	case DaysWeekend:
		return d == time.Saturday || d == time.Sunday
	default:
		return true
	}
}

// ApprovalToken is a single-use capability embedded in the approval URL.
type ApprovalToken struct {
	ID        int64      `json:"id" db:"id"`
	BriefID   int64      `json:"brief_id" db:"brief_id"`
	Token     string     `json:"token" db:"token"`
	ExpiresAt time.Time  `json:"expires_at" db:"expires_at"`
	UsedAt    *time.Time `json:"used_at,omitempty" db:"used_at"`
	CreatedAt time.Time  `json:"created_at" db:"created_at"`
}

// Valid reports whether the token is still redeemable at the given instant.
func (t ApprovalToken) Valid(now time.Time) bool {
	return t.UsedAt == nil && now.Before(t.ExpiresAt)
}

// Follow-up types.
const (
	FollowUp7Day  = "7day"
	FollowUp30Day = "30day"
)

// FollowUp is a scheduled check-in email tied to a brief.
type FollowUp struct {
	ID           int64      `json:"id" db:"id"`
	BriefID      int64      `json:"brief_id" db:"brief_id"`
	Type         string     `json:"type" db:"type"`
	ScheduledFor time.Time  `json:"scheduled_for" db:"scheduled_for"`
	SentAt       *time.Time `json:"sent_at,omitempty" db:"sent_at"`
	OpenedAt     *time.Time `json:"opened_at,omitempty" db:"opened_at"`
	TrackingID   string     `json:"tracking_id" db:"tracking_id"`
	ContactEmail string     `json:"contact_email" db:"contact_email"`
	VenueName    string     `json:"venue_name" db:"venue_name"`
	ContactName  string     `json:"contact_name" db:"contact_name"`
}

// PipelineEvent is an audit record of a significant transition.
type PipelineEvent struct {
	ID        int64           `json:"id" db:"id"`
	BriefID   *int64          `json:"brief_id,omitempty" db:"brief_id"`
	Kind      string          `json:"kind" db:"kind"`
	Payload   json.RawMessage `json:"payload,omitempty" db:"payload"`
	CreatedAt time.Time       `json:"created_at" db:"created_at"`
}
