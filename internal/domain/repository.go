// Package domain declares the persistence interfaces the pipeline depends
// on. Services talk to these, never to SQL directly, so tests can substitute
// sqlmock or plain fakes.
package domain

import (
	"context"
	"time"

	"music-brief-scheduler/internal/models"
)

// BriefRepository defines data access for briefs.
type BriefRepository interface {
	CreateBrief(ctx context.Context, b *models.Brief) (int64, error)
	GetBrief(ctx context.Context, id int64) (*models.Brief, error)
	UpdateBriefStatus(ctx context.Context, id int64, status string) error
	SetBriefRemoteSchedule(ctx context.Context, id int64, sybScheduleID string) error
	// RecentBriefsByVenue backs the existing-client lookup when the
	// platform account search comes up empty.
	RecentBriefsByVenue(ctx context.Context, venueName string, limit int) ([]models.Brief, error)
}

// VenueRepository defines data access for venues.
type VenueRepository interface {
	UpsertVenue(ctx context.Context, v *models.Venue) (*models.Venue, error)
	GetVenueByName(ctx context.Context, venueName string) (*models.Venue, error)
	IncrementApprovedCount(ctx context.Context, venueName string) error
	SetVenueTimezone(ctx context.Context, venueName, tz string) error
}

// ZoneMappingRepository persists learned logical-zone to platform-zone pairs.
type ZoneMappingRepository interface {
	UpsertZoneMapping(ctx context.Context, m *models.ZoneMapping) error
	ZoneMappingsForVenue(ctx context.Context, venueName string) ([]models.ZoneMapping, error)
}

// ScheduleRepository is what the executor and approval flow run against.
type ScheduleRepository interface {
	CreateScheduleEntries(ctx context.Context, entries []models.ScheduleEntry) error
	// ActiveEntries returns every status='active' row; due-now and catch-up
	// filtering is local-timezone arithmetic and happens in the executor.
	ActiveEntries(ctx context.Context) ([]models.ScheduleEntry, error)
	MarkAssigned(ctx context.Context, entryID int64, at time.Time) error
	// RecordFailure increments retry_count and flips status to 'error' at
	// the given limit. Returns the new retry count.
	RecordFailure(ctx context.Context, entryID int64, maxRetries int) (int, error)
	CountActiveEntries(ctx context.Context) (int, error)
}

// TokenRepository issues and redeems approval capability tokens.
type TokenRepository interface {
	CreateToken(ctx context.Context, t *models.ApprovalToken) error
	GetToken(ctx context.Context, token string) (*models.ApprovalToken, error)
}

// FollowUpRepository drives the 7-day and 30-day check-in emails.
type FollowUpRepository interface {
	CreateFollowUps(ctx context.Context, fus []models.FollowUp) error
	DueFollowUps(ctx context.Context, now time.Time, limit int) ([]models.FollowUp, error)
	MarkFollowUpSent(ctx context.Context, id int64, at time.Time) error
	MarkFollowUpOpened(ctx context.Context, trackingID string, at time.Time) error
}

// Repository aggregates everything services need outside a transaction.
type Repository interface {
	BriefRepository
	VenueRepository
	ZoneMappingRepository
	ScheduleRepository
	TokenRepository
	FollowUpRepository
}
