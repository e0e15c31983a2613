// Package repository implements the domain persistence interfaces on
// Postgres. All statements live in queries.go and run against either the
// pool or a transaction.
package repository

import (
	"context"
	"time"

	"music-brief-scheduler/internal/domain"
	"music-brief-scheduler/internal/models"
	"music-brief-scheduler/pkg/database"
)

// SQLRepository serves non-transactional access over the pool.
type SQLRepository struct {
	db *database.DB
	q  queries
}

func NewSQLRepository(db *database.DB) *SQLRepository {
	return &SQLRepository{db: db, q: queries{r: db.Conn()}}
}

var _ domain.Repository = (*SQLRepository)(nil)

func (r *SQLRepository) CreateBrief(ctx context.Context, b *models.Brief) (int64, error) {
	ctx, cancel := r.db.WriteContext(ctx)
	defer cancel()
	return r.q.createBrief(ctx, b)
}

func (r *SQLRepository) GetBrief(ctx context.Context, id int64) (*models.Brief, error) {
	ctx, cancel := r.db.ReadContext(ctx)
	defer cancel()
	return r.q.getBrief(ctx, id)
}

func (r *SQLRepository) UpdateBriefStatus(ctx context.Context, id int64, status string) error {
	ctx, cancel := r.db.WriteContext(ctx)
	defer cancel()
	return r.q.updateBriefStatus(ctx, id, status)
}

func (r *SQLRepository) SetBriefRemoteSchedule(ctx context.Context, id int64, sybScheduleID string) error {
	ctx, cancel := r.db.WriteContext(ctx)
	defer cancel()
	return r.q.setBriefRemoteSchedule(ctx, id, sybScheduleID)
}

func (r *SQLRepository) RecentBriefsByVenue(ctx context.Context, venueName string, limit int) ([]models.Brief, error) {
	ctx, cancel := r.db.ReadContext(ctx)
	defer cancel()
	return r.q.recentBriefsByVenue(ctx, venueName, limit)
}

func (r *SQLRepository) UpsertVenue(ctx context.Context, v *models.Venue) (*models.Venue, error) {
	ctx, cancel := r.db.WriteContext(ctx)
	defer cancel()
	return r.q.upsertVenue(ctx, v)
}

func (r *SQLRepository) GetVenueByName(ctx context.Context, venueName string) (*models.Venue, error) {
	ctx, cancel := r.db.ReadContext(ctx)
	defer cancel()
	return r.q.getVenueByName(ctx, venueName)
}

func (r *SQLRepository) IncrementApprovedCount(ctx context.Context, venueName string) error {
	ctx, cancel := r.db.WriteContext(ctx)
	defer cancel()
	return r.q.incrementApprovedCount(ctx, venueName)
}

func (r *SQLRepository) SetVenueTimezone(ctx context.Context, venueName, tz string) error {
	ctx, cancel := r.db.WriteContext(ctx)
	defer cancel()
	return r.q.setVenueTimezone(ctx, venueName, tz)
}

func (r *SQLRepository) UpsertZoneMapping(ctx context.Context, m *models.ZoneMapping) error {
	ctx, cancel := r.db.WriteContext(ctx)
	defer cancel()
	return r.q.upsertZoneMapping(ctx, m)
}

func (r *SQLRepository) ZoneMappingsForVenue(ctx context.Context, venueName string) ([]models.ZoneMapping, error) {
	ctx, cancel := r.db.ReadContext(ctx)
	defer cancel()
	return r.q.zoneMappingsForVenue(ctx, venueName)
}

func (r *SQLRepository) CreateScheduleEntries(ctx context.Context, entries []models.ScheduleEntry) error {
	ctx, cancel := r.db.WriteContext(ctx)
	defer cancel()
	return r.q.createScheduleEntries(ctx, entries)
}

func (r *SQLRepository) ActiveEntries(ctx context.Context) ([]models.ScheduleEntry, error) {
	ctx, cancel := r.db.ReadContext(ctx)
	defer cancel()
	return r.q.activeEntries(ctx)
}

func (r *SQLRepository) MarkAssigned(ctx context.Context, entryID int64, at time.Time) error {
	ctx, cancel := r.db.WriteContext(ctx)
	defer cancel()
	return r.q.markAssigned(ctx, entryID, at)
}

func (r *SQLRepository) RecordFailure(ctx context.Context, entryID int64, maxRetries int) (int, error) {
	ctx, cancel := r.db.WriteContext(ctx)
	defer cancel()
	return r.q.recordFailure(ctx, entryID, maxRetries)
}

func (r *SQLRepository) CountActiveEntries(ctx context.Context) (int, error) {
	ctx, cancel := r.db.ReadContext(ctx)
	defer cancel()
	return r.q.countActiveEntries(ctx)
}

func (r *SQLRepository) CreateToken(ctx context.Context, t *models.ApprovalToken) error {
	ctx, cancel := r.db.WriteContext(ctx)
	defer cancel()
	return r.q.createToken(ctx, t)
}

func (r *SQLRepository) GetToken(ctx context.Context, token string) (*models.ApprovalToken, error) {
	ctx, cancel := r.db.ReadContext(ctx)
	defer cancel()
	return r.q.getToken(ctx, token)
}

func (r *SQLRepository) CreateFollowUps(ctx context.Context, fus []models.FollowUp) error {
	ctx, cancel := r.db.WriteContext(ctx)
	defer cancel()
	return r.q.createFollowUps(ctx, fus)
}

func (r *SQLRepository) DueFollowUps(ctx context.Context, now time.Time, limit int) ([]models.FollowUp, error) {
	ctx, cancel := r.db.ReadContext(ctx)
	defer cancel()
	return r.q.dueFollowUps(ctx, now, limit)
}

func (r *SQLRepository) MarkFollowUpSent(ctx context.Context, id int64, at time.Time) error {
	ctx, cancel := r.db.WriteContext(ctx)
	defer cancel()
	return r.q.markFollowUpSent(ctx, id, at)
}

func (r *SQLRepository) MarkFollowUpOpened(ctx context.Context, trackingID string, at time.Time) error {
	ctx, cancel := r.db.WriteContext(ctx)
	defer cancel()
	return r.q.markFollowUpOpened(ctx, trackingID, at)
}
