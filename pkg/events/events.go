// Package events records the pipeline's lifecycle as an append-only audit
// trail keyed by brief. Payloads stay small and JSON-friendly so the trail
// survives schema changes in the main tables.
package events

import (
	"context"
	"encoding/json"
	"time"
)

// Event is the base interface for pipeline audit events.
type Event interface {
	Type() string
	BriefID() int64
	Timestamp() time.Time
	MarshalData() ([]byte, error)
}

// Base contains common event metadata.
type Base struct {
	Ts  time.Time `json:"ts"`
	BID int64     `json:"brief_id"`
}

func (b Base) Timestamp() time.Time { return b.Ts }
func (b Base) BriefID() int64       { return b.BID }

const (
	TypeBriefSubmitted    = "brief.submitted"
	TypeBriefApproved     = "brief.approved"
	TypeScheduleAssigned  = "schedule.assigned"
	TypeScheduleError     = "schedule.error"
	TypeFollowUpSent      = "followup.sent"
	TypeEmailOpened       = "email.opened"
)

// BriefSubmitted is emitted when a submission lands and persists.
type BriefSubmitted struct {
	Base
	VenueName    string `json:"venue_name"`
	Product      string `json:"product"`
	AutoEligible bool   `json:"auto_eligible"`
}

func (e BriefSubmitted) Type() string                 { return TypeBriefSubmitted }
func (e BriefSubmitted) MarshalData() ([]byte, error) { return json.Marshal(e) }

// BriefApproved captures the approval decision and how many schedule entries
// were materialized from it.
type BriefApproved struct {
	Base
	Zones        []string `json:"zones,omitempty"`
	EntryCount   int      `json:"entry_count"`
	AutoApproved bool     `json:"auto_approved"`
}

func (e BriefApproved) Type() string                 { return TypeBriefApproved }
func (e BriefApproved) MarshalData() ([]byte, error) { return json.Marshal(e) }

// ScheduleAssigned is emitted per successful zone assignment.
type ScheduleAssigned struct {
	Base
	ZoneID       string `json:"zone_id"`
	ScheduleName string `json:"schedule_name"`
	CatchUp      bool   `json:"catch_up"`
}

func (e ScheduleAssigned) Type() string                 { return TypeScheduleAssigned }
func (e ScheduleAssigned) MarshalData() ([]byte, error) { return json.Marshal(e) }

// ScheduleError is emitted when an entry exhausts its retries.
type ScheduleError struct {
	Base
	ZoneID  string `json:"zone_id"`
	Retries int    `json:"retries"`
	Reason  string `json:"reason"`
}

func (e ScheduleError) Type() string                 { return TypeScheduleError }
func (e ScheduleError) MarshalData() ([]byte, error) { return json.Marshal(e) }

// FollowUpSent is emitted when a follow-up email leaves (or fails and is
// marked sent anyway so it never repeats).
type FollowUpSent struct {
	Base
	Kind       string `json:"kind"` // 7day or 30day
	TrackingID string `json:"tracking_id"`
	Delivered  bool   `json:"delivered"`
}

func (e FollowUpSent) Type() string                 { return TypeFollowUpSent }
func (e FollowUpSent) MarshalData() ([]byte, error) { return json.Marshal(e) }

// EmailOpened is emitted when a tracking pixel fires.
type EmailOpened struct {
	Base
	TrackingID string `json:"tracking_id"`
}

func (e EmailOpened) Type() string                 { return TypeEmailOpened }
func (e EmailOpened) MarshalData() ([]byte, error) { return json.Marshal(e) }

// Store defines persistence for the audit trail. Implementations must keep
// per-brief ordering.
type Store interface {
	Append(ctx context.Context, e Event) error
	ListByBrief(ctx context.Context, briefID int64) ([]StoredEvent, error)
}

// StoredEvent is the durable representation. Seq is a monotonic DB sequence.
type StoredEvent struct {
	Seq     int64           `json:"seq"`
	BriefID int64           `json:"brief_id"`
	Type    string          `json:"type"`
	Ts      time.Time       `json:"ts"`
	Payload json.RawMessage `json:"payload"`
}
