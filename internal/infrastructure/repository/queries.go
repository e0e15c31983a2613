package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"music-brief-scheduler/internal/models"
	apperrors "music-brief-scheduler/pkg/errors"
)

// runner is satisfied by both *sql.DB and *sql.Tx so the same queries serve
// the plain repository and the unit of work.
type runner interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
}

// queries holds every SQL statement in one place.
type queries struct {
	r runner
}

// --- briefs ---

const briefColumns = `id, venue_name, venue_type, location, contact_name, contact_email,
	contact_phone, product, liked_playlist_ids, conversation_summary, raw_data,
	schedule_data, status, syb_account_id, syb_schedule_id, automation_tier, created_at`

func (q queries) createBrief(ctx context.Context, b *models.Brief) (int64, error) {
	liked, err := json.Marshal(b.LikedPlaylistIDs)
	if err != nil {
		return 0, apperrors.NewDB("repository.createBrief", "marshal liked playlists", err)
	}
	var scheduleData interface{}
	if b.ScheduleData != nil {
		sd, err := json.Marshal(b.ScheduleData)
		if err != nil {
			return 0, apperrors.NewDB("repository.createBrief", "marshal schedule data", err)
		}
		scheduleData = string(sd)
	}
	var rawData interface{}
	if len(b.RawData) > 0 {
		rawData = string(b.RawData)
	}

	var id int64
	err = q.r.QueryRowContext(ctx, `
		INSERT INTO briefs (venue_name, venue_type, location, contact_name, contact_email,
			contact_phone, product, liked_playlist_ids, conversation_summary, raw_data,
			schedule_data, status, syb_account_id)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13)
		RETURNING id`,
		b.VenueName, b.VenueType, b.Location, b.ContactName, b.ContactEmail,
		b.ContactPhone, b.Product, string(liked), b.ConversationSummary, rawData,
		scheduleData, b.Status, b.SybAccountID).Scan(&id)
	if err != nil {
		return 0, apperrors.NewDB("repository.createBrief", "insert brief", err)
	}
	return id, nil
}

func (q queries) getBrief(ctx context.Context, id int64) (*models.Brief, error) {
	row := q.r.QueryRowContext(ctx,
		`SELECT `+briefColumns+` FROM briefs WHERE id = $1`, id)
	return scanBrief(row)
}

func (q queries) updateBriefStatus(ctx context.Context, id int64, status string) error {
	_, err := q.r.ExecContext(ctx, `UPDATE briefs SET status = $1 WHERE id = $2`, status, id)
	if err != nil {
		return apperrors.NewDB("repository.updateBriefStatus", "update status", err)
	}
	return nil
}

func (q queries) setBriefRemoteSchedule(ctx context.Context, id int64, sybScheduleID string) error {
	_, err := q.r.ExecContext(ctx,
		`UPDATE briefs SET syb_schedule_id = $1 WHERE id = $2`, sybScheduleID, id)
	if err != nil {
		return apperrors.NewDB("repository.setBriefRemoteSchedule", "update schedule id", err)
	}
	return nil
}

func (q queries) recentBriefsByVenue(ctx context.Context, venueName string, limit int) ([]models.Brief, error) {
	rows, err := q.r.QueryContext(ctx,
		`SELECT `+briefColumns+` FROM briefs
		 WHERE LOWER(venue_name) = LOWER($1) ORDER BY created_at DESC LIMIT $2`,
		venueName, limit)
	if err != nil {
		return nil, apperrors.NewDB("repository.recentBriefsByVenue", "query briefs", err)
	}
	defer rows.Close()

	var out []models.Brief
	for rows.Next() {
		b, err := scanBriefRows(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *b)
	}
	return out, rows.Err()
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanBriefFrom(s rowScanner) (*models.Brief, error) {
	var b models.Brief
	var venueType, location, contactName, contactEmail, contactPhone sql.NullString
	var liked, rawData, scheduleData, summary sql.NullString
	var sybAccountID, sybScheduleID, automationTier sql.NullString

	err := s.Scan(&b.ID, &b.VenueName, &venueType, &location, &contactName, &contactEmail,
		&contactPhone, &b.Product, &liked, &summary, &rawData,
		&scheduleData, &b.Status, &sybAccountID, &sybScheduleID, &automationTier, &b.CreatedAt)
	if err != nil {
		return nil, err
	}

	b.VenueType = venueType.String
	b.Location = location.String
	b.ContactName = contactName.String
	b.ContactEmail = contactEmail.String
	b.ContactPhone = contactPhone.String
	b.ConversationSummary = summary.String
	if liked.Valid && liked.String != "" {
		if err := json.Unmarshal([]byte(liked.String), &b.LikedPlaylistIDs); err != nil {
			return nil, fmt.Errorf("unmarshal liked playlists: %w", err)
		}
	}
	if rawData.Valid {
		b.RawData = json.RawMessage(rawData.String)
	}
	if scheduleData.Valid && scheduleData.String != "" {
		var sd models.ScheduleData
		if err := json.Unmarshal([]byte(scheduleData.String), &sd); err != nil {
			return nil, fmt.Errorf("unmarshal schedule data: %w", err)
		}
		b.ScheduleData = &sd
	}
	if sybAccountID.Valid {
		b.SybAccountID = &sybAccountID.String
	}
	if sybScheduleID.Valid {
		b.SybScheduleID = &sybScheduleID.String
	}
	if automationTier.Valid {
		b.AutomationTier = &automationTier.String
	}
	return &b, nil
}

func scanBrief(row *sql.Row) (*models.Brief, error) {
	b, err := scanBriefFrom(row)
	if err == sql.ErrNoRows {
		return nil, apperrors.NewBiz("repository.getBrief", "brief not found", err)
	}
	if err != nil {
		return nil, apperrors.NewDB("repository.getBrief", "scan brief", err)
	}
	return b, nil
}

func scanBriefRows(rows *sql.Rows) (*models.Brief, error) {
	b, err := scanBriefFrom(rows)
	if err != nil {
		return nil, apperrors.NewDB("repository.scanBrief", "scan brief", err)
	}
	return b, nil
}

// --- venues ---

const venueColumns = `id, venue_name, location, venue_type, syb_account_id, latest_brief_id,
	auto_schedule, approved_brief_count, timezone, created_at, updated_at`

func (q queries) upsertVenue(ctx context.Context, v *models.Venue) (*models.Venue, error) {
	row := q.r.QueryRowContext(ctx, `
		INSERT INTO venues (venue_name, location, venue_type, syb_account_id, latest_brief_id, timezone)
		VALUES ($1, $2, $3, $4, $5, COALESCE(NULLIF($6, ''), 'Asia/Bangkok'))
		ON CONFLICT (venue_name) DO UPDATE SET
			location = COALESCE(NULLIF(EXCLUDED.location, ''), venues.location),
			venue_type = COALESCE(NULLIF(EXCLUDED.venue_type, ''), venues.venue_type),
			syb_account_id = COALESCE(EXCLUDED.syb_account_id, venues.syb_account_id),
			latest_brief_id = COALESCE(EXCLUDED.latest_brief_id, venues.latest_brief_id),
			updated_at = NOW()
		RETURNING `+venueColumns,
		v.VenueName, v.Location, v.VenueType, v.SybAccountID, v.LatestBriefID, v.Timezone)
	out, err := scanVenueFrom(row)
	if err != nil {
		return nil, apperrors.NewDB("repository.upsertVenue", "upsert venue", err)
	}
	return out, nil
}

func (q queries) getVenueByName(ctx context.Context, venueName string) (*models.Venue, error) {
	row := q.r.QueryRowContext(ctx,
		`SELECT `+venueColumns+` FROM venues WHERE LOWER(venue_name) = LOWER($1)`, venueName)
	v, err := scanVenueFrom(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, apperrors.NewDB("repository.getVenueByName", "scan venue", err)
	}
	return v, nil
}

func scanVenueFrom(s rowScanner) (*models.Venue, error) {
	var v models.Venue
	var location, venueType, sybAccountID sql.NullString
	var latestBriefID sql.NullInt64
	err := s.Scan(&v.ID, &v.VenueName, &location, &venueType, &sybAccountID, &latestBriefID,
		&v.AutoSchedule, &v.ApprovedBriefCount, &v.Timezone, &v.CreatedAt, &v.UpdatedAt)
	if err != nil {
		return nil, err
	}
	v.Location = location.String
	v.VenueType = venueType.String
	if sybAccountID.Valid {
		v.SybAccountID = &sybAccountID.String
	}
	if latestBriefID.Valid {
		v.LatestBriefID = &latestBriefID.Int64
	}
	return &v, nil
}

func (q queries) incrementApprovedCount(ctx context.Context, venueName string) error {
	_, err := q.r.ExecContext(ctx, `
		UPDATE venues SET approved_brief_count = approved_brief_count + 1, updated_at = NOW()
		WHERE LOWER(venue_name) = LOWER($1)`, venueName)
	if err != nil {
		return apperrors.NewDB("repository.incrementApprovedCount", "update venue", err)
	}
	return nil
}

func (q queries) setVenueTimezone(ctx context.Context, venueName, tz string) error {
	_, err := q.r.ExecContext(ctx, `
		UPDATE venues SET timezone = $1, updated_at = NOW()
		WHERE LOWER(venue_name) = LOWER($2)`, tz, venueName)
	if err != nil {
		return apperrors.NewDB("repository.setVenueTimezone", "update timezone", err)
	}
	return nil
}

// --- zone mappings ---

func (q queries) upsertZoneMapping(ctx context.Context, m *models.ZoneMapping) error {
	_, err := q.r.ExecContext(ctx, `
		INSERT INTO zone_mappings (venue_name, brief_zone_name, syb_zone_id, syb_zone_name, syb_account_id)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (venue_name, brief_zone_name) DO UPDATE SET
			syb_zone_id = EXCLUDED.syb_zone_id,
			syb_zone_name = EXCLUDED.syb_zone_name,
			syb_account_id = EXCLUDED.syb_account_id`,
		m.VenueName, m.BriefZoneName, m.SybZoneID, m.SybZoneName, m.SybAccountID)
	if err != nil {
		return apperrors.NewDB("repository.upsertZoneMapping", "upsert mapping", err)
	}
	return nil
}

func (q queries) zoneMappingsForVenue(ctx context.Context, venueName string) ([]models.ZoneMapping, error) {
	rows, err := q.r.QueryContext(ctx, `
		SELECT id, venue_name, brief_zone_name, syb_zone_id, syb_zone_name, syb_account_id, created_at
		FROM zone_mappings WHERE LOWER(venue_name) = LOWER($1) ORDER BY brief_zone_name`,
		venueName)
	if err != nil {
		return nil, apperrors.NewDB("repository.zoneMappingsForVenue", "query mappings", err)
	}
	defer rows.Close()

	var out []models.ZoneMapping
	for rows.Next() {
		var m models.ZoneMapping
		var zoneName, accountID sql.NullString
		if err := rows.Scan(&m.ID, &m.VenueName, &m.BriefZoneName, &m.SybZoneID,
			&zoneName, &accountID, &m.CreatedAt); err != nil {
			return nil, apperrors.NewDB("repository.zoneMappingsForVenue", "scan mapping", err)
		}
		m.SybZoneName = zoneName.String
		m.SybAccountID = accountID.String
		out = append(out, m)
	}
	return out, rows.Err()
}

// --- schedule entries ---

const entryColumns = `id, brief_id, zone_id, zone_name, playlist_syb_id, playlist_name,
	start_time, end_time, days, timezone, status, last_assigned_at, retry_count`

func (q queries) createScheduleEntries(ctx context.Context, entries []models.ScheduleEntry) error {
	for _, e := range entries {
		_, err := q.r.ExecContext(ctx, `
			INSERT INTO schedule_entries (brief_id, zone_id, zone_name, playlist_syb_id,
				playlist_name, start_time, end_time, days, timezone, status)
			VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)`,
			e.BriefID, e.ZoneID, e.ZoneName, e.PlaylistSybID,
			e.PlaylistName, e.StartTime, e.EndTime, e.Days, e.Timezone, e.Status)
		if err != nil {
			return apperrors.NewDB("repository.createScheduleEntries", "insert entry", err)
		}
	}
	return nil
}

func (q queries) activeEntries(ctx context.Context) ([]models.ScheduleEntry, error) {
	rows, err := q.r.QueryContext(ctx,
		`SELECT `+entryColumns+` FROM schedule_entries WHERE status = 'active' ORDER BY id`)
	if err != nil {
		return nil, apperrors.NewDB("repository.activeEntries", "query entries", err)
	}
	defer rows.Close()

	var out []models.ScheduleEntry
	for rows.Next() {
		var e models.ScheduleEntry
		var zoneName, playlistName, endTime sql.NullString
		var lastAssigned sql.NullTime
		if err := rows.Scan(&e.ID, &e.BriefID, &e.ZoneID, &zoneName, &e.PlaylistSybID,
			&playlistName, &e.StartTime, &endTime, &e.Days, &e.Timezone, &e.Status,
			&lastAssigned, &e.RetryCount); err != nil {
			return nil, apperrors.NewDB("repository.activeEntries", "scan entry", err)
		}
		e.ZoneName = zoneName.String
		e.PlaylistName = playlistName.String
		e.EndTime = endTime.String
		if lastAssigned.Valid {
			t := lastAssigned.Time
			e.LastAssignedAt = &t
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

func (q queries) markAssigned(ctx context.Context, entryID int64, at time.Time) error {
	_, err := q.r.ExecContext(ctx, `
		UPDATE schedule_entries SET last_assigned_at = $1, retry_count = 0 WHERE id = $2`,
		at, entryID)
	if err != nil {
		return apperrors.NewDB("repository.markAssigned", "update entry", err)
	}
	return nil
}

func (q queries) recordFailure(ctx context.Context, entryID int64, maxRetries int) (int, error) {
	var count int
	err := q.r.QueryRowContext(ctx, `
		UPDATE schedule_entries
		SET retry_count = retry_count + 1,
		    status = CASE WHEN retry_count + 1 >= $1 THEN 'error' ELSE status END
		WHERE id = $2
		RETURNING retry_count`,
		maxRetries, entryID).Scan(&count)
	if err != nil {
		return 0, apperrors.NewDB("repository.recordFailure", "update entry", err)
	}
	return count, nil
}

func (q queries) countActiveEntries(ctx context.Context) (int, error) {
	var n int
	err := q.r.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM schedule_entries WHERE status = 'active'`).Scan(&n)
	if err != nil {
		return 0, apperrors.NewDB("repository.countActiveEntries", "count entries", err)
	}
	return n, nil
}

// --- approval tokens ---

func (q queries) createToken(ctx context.Context, t *models.ApprovalToken) error {
	_, err := q.r.ExecContext(ctx, `
		INSERT INTO approval_tokens (brief_id, token, expires_at) VALUES ($1, $2, $3)`,
		t.BriefID, t.Token, t.ExpiresAt)
	if err != nil {
		return apperrors.NewDB("repository.createToken", "insert token", err)
	}
	return nil
}

func (q queries) getToken(ctx context.Context, token string) (*models.ApprovalToken, error) {
	var t models.ApprovalToken
	var usedAt sql.NullTime
	err := q.r.QueryRowContext(ctx, `
		SELECT id, brief_id, token, expires_at, used_at, created_at
		FROM approval_tokens WHERE token = $1`, token).
		Scan(&t.ID, &t.BriefID, &t.Token, &t.ExpiresAt, &usedAt, &t.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, apperrors.NewDB("repository.getToken", "scan token", err)
	}
	if usedAt.Valid {
		tm := usedAt.Time
		t.UsedAt = &tm
	}
	return &t, nil
}

func (q queries) consumeToken(ctx context.Context, token string, at time.Time) (bool, error) {
	res, err := q.r.ExecContext(ctx, `
		UPDATE approval_tokens SET used_at = $1
		WHERE token = $2 AND used_at IS NULL AND expires_at > $1`,
		at, token)
	if err != nil {
		return false, apperrors.NewDB("repository.consumeToken", "update token", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, apperrors.NewDB("repository.consumeToken", "rows affected", err)
	}
	return n == 1, nil
}

// --- follow-ups ---

func (q queries) createFollowUps(ctx context.Context, fus []models.FollowUp) error {
	for _, f := range fus {
		_, err := q.r.ExecContext(ctx, `
			INSERT INTO follow_ups (brief_id, type, scheduled_for, tracking_id,
				contact_email, venue_name, contact_name)
			VALUES ($1,$2,$3,$4,$5,$6,$7)`,
			f.BriefID, f.Type, f.ScheduledFor, f.TrackingID,
			f.ContactEmail, f.VenueName, f.ContactName)
		if err != nil {
			return apperrors.NewDB("repository.createFollowUps", "insert follow-up", err)
		}
	}
	return nil
}

func (q queries) dueFollowUps(ctx context.Context, now time.Time, limit int) ([]models.FollowUp, error) {
	rows, err := q.r.QueryContext(ctx, `
		SELECT id, brief_id, type, scheduled_for, sent_at, opened_at, tracking_id,
			contact_email, venue_name, contact_name
		FROM follow_ups
		WHERE sent_at IS NULL AND scheduled_for <= $1
		ORDER BY scheduled_for LIMIT $2`, now, limit)
	if err != nil {
		return nil, apperrors.NewDB("repository.dueFollowUps", "query follow-ups", err)
	}
	defer rows.Close()

	var out []models.FollowUp
	for rows.Next() {
		var f models.FollowUp
		var sentAt, openedAt sql.NullTime
		var email, venueName, contactName sql.NullString
		if err := rows.Scan(&f.ID, &f.BriefID, &f.Type, &f.ScheduledFor, &sentAt, &openedAt,
			&f.TrackingID, &email, &venueName, &contactName); err != nil {
			return nil, apperrors.NewDB("repository.dueFollowUps", "scan follow-up", err)
		}
		if sentAt.Valid {
			t := sentAt.Time
			f.SentAt = &t
		}
		if openedAt.Valid {
			t := openedAt.Time
			f.OpenedAt = &t
		}
		f.ContactEmail = email.String
		f.VenueName = venueName.String
		f.ContactName = contactName.String
		out = append(out, f)
	}
	return out, rows.Err()
}

func (q queries) markFollowUpSent(ctx context.Context, id int64, at time.Time) error {
	_, err := q.r.ExecContext(ctx,
		`UPDATE follow_ups SET sent_at = $1 WHERE id = $2`, at, id)
	if err != nil {
		return apperrors.NewDB("repository.markFollowUpSent", "update follow-up", err)
	}
	return nil
}

func (q queries) markFollowUpOpened(ctx context.Context, trackingID string, at time.Time) error {
	_, err := q.r.ExecContext(ctx, `
		UPDATE follow_ups SET opened_at = $1
		WHERE tracking_id = $2 AND opened_at IS NULL`, at, trackingID)
	if err != nil {
		return apperrors.NewDB("repository.markFollowUpOpened", "update follow-up", err)
	}
	return nil
}
