package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"music-brief-scheduler/internal/domain"
	"music-brief-scheduler/internal/models"
	"music-brief-scheduler/pkg/database"
)

// SQLUnitOfWorkFactory starts SQL-backed transactions.
type SQLUnitOfWorkFactory struct {
	db *database.DB
}

func NewSQLUnitOfWorkFactory(db *database.DB) *SQLUnitOfWorkFactory {
	return &SQLUnitOfWorkFactory{db: db}
}

var _ domain.UnitOfWorkFactory = (*SQLUnitOfWorkFactory)(nil)

func (f *SQLUnitOfWorkFactory) Begin(ctx context.Context) (domain.UnitOfWork, error) {
	tx, err := f.db.Conn().BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("uow: begin tx: %w", err)
	}
	return &SQLUnitOfWork{tx: tx, q: queries{r: tx}}, nil
}

// SQLUnitOfWork runs every operation on one *sql.Tx.
type SQLUnitOfWork struct {
	tx     *sql.Tx
	q      queries
	closed bool
}

var _ domain.UnitOfWork = (*SQLUnitOfWork)(nil)

func (u *SQLUnitOfWork) Commit() error {
	if u.closed {
		return nil
	}
	u.closed = true
	return u.tx.Commit()
}

// Rollback after Commit is a no-op, which makes `defer uow.Rollback()` safe.
func (u *SQLUnitOfWork) Rollback() error {
	if u.closed {
		return nil
	}
	u.closed = true
	return u.tx.Rollback()
}

func (u *SQLUnitOfWork) ConsumeToken(ctx context.Context, token string, at time.Time) (bool, error) {
	return u.q.consumeToken(ctx, token, at)
}

// BriefRepository

func (u *SQLUnitOfWork) CreateBrief(ctx context.Context, b *models.Brief) (int64, error) {
	return u.q.createBrief(ctx, b)
}

func (u *SQLUnitOfWork) GetBrief(ctx context.Context, id int64) (*models.Brief, error) {
	return u.q.getBrief(ctx, id)
}

func (u *SQLUnitOfWork) UpdateBriefStatus(ctx context.Context, id int64, status string) error {
	return u.q.updateBriefStatus(ctx, id, status)
}

func (u *SQLUnitOfWork) SetBriefRemoteSchedule(ctx context.Context, id int64, sybScheduleID string) error {
	return u.q.setBriefRemoteSchedule(ctx, id, sybScheduleID)
}

func (u *SQLUnitOfWork) RecentBriefsByVenue(ctx context.Context, venueName string, limit int) ([]models.Brief, error) {
	return u.q.recentBriefsByVenue(ctx, venueName, limit)
}

// VenueRepository

func (u *SQLUnitOfWork) UpsertVenue(ctx context.Context, v *models.Venue) (*models.Venue, error) {
	return u.q.upsertVenue(ctx, v)
}

func (u *SQLUnitOfWork) GetVenueByName(ctx context.Context, venueName string) (*models.Venue, error) {
	return u.q.getVenueByName(ctx, venueName)
}

func (u *SQLUnitOfWork) IncrementApprovedCount(ctx context.Context, venueName string) error {
	return u.q.incrementApprovedCount(ctx, venueName)
}

func (u *SQLUnitOfWork) SetVenueTimezone(ctx context.Context, venueName, tz string) error {
	return u.q.setVenueTimezone(ctx, venueName, tz)
}

// ZoneMappingRepository

func (u *SQLUnitOfWork) UpsertZoneMapping(ctx context.Context, m *models.ZoneMapping) error {
	return u.q.upsertZoneMapping(ctx, m)
}

func (u *SQLUnitOfWork) ZoneMappingsForVenue(ctx context.Context, venueName string) ([]models.ZoneMapping, error) {
	return u.q.zoneMappingsForVenue(ctx, venueName)
}

// ScheduleRepository

func (u *SQLUnitOfWork) CreateScheduleEntries(ctx context.Context, entries []models.ScheduleEntry) error {
	return u.q.createScheduleEntries(ctx, entries)
}

func (u *SQLUnitOfWork) ActiveEntries(ctx context.Context) ([]models.ScheduleEntry, error) {
	return u.q.activeEntries(ctx)
}

func (u *SQLUnitOfWork) MarkAssigned(ctx context.Context, entryID int64, at time.Time) error {
	return u.q.markAssigned(ctx, entryID, at)
}

func (u *SQLUnitOfWork) RecordFailure(ctx context.Context, entryID int64, maxRetries int) (int, error) {
	return u.q.recordFailure(ctx, entryID, maxRetries)
}

func (u *SQLUnitOfWork) CountActiveEntries(ctx context.Context) (int, error) {
	return u.q.countActiveEntries(ctx)
}
