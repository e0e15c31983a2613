package database

import (
	"fmt"
)

// Migrate applies the schema idempotently at startup. Every statement is a
// CREATE ... IF NOT EXISTS or ADD COLUMN IF NOT EXISTS so restarts against an
// existing database are no-ops.
func (d *DB) Migrate() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS briefs (
			id BIGSERIAL PRIMARY KEY,
			venue_name VARCHAR(255) NOT NULL,
			venue_type VARCHAR(100),
			location VARCHAR(255),
			contact_name VARCHAR(255),
			contact_email VARCHAR(255),
			contact_phone VARCHAR(100),
			product VARCHAR(20) NOT NULL DEFAULT 'syb',
			liked_playlist_ids JSONB,
			conversation_summary TEXT,
			raw_data JSONB,
			schedule_data JSONB,
			status VARCHAR(20) NOT NULL DEFAULT 'submitted',
			syb_account_id VARCHAR(255),
			syb_schedule_id VARCHAR(255),
			automation_tier VARCHAR(50),
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`,
		`CREATE TABLE IF NOT EXISTS venues (
			id BIGSERIAL PRIMARY KEY,
			venue_name VARCHAR(255) NOT NULL UNIQUE,
			location VARCHAR(255),
			venue_type VARCHAR(100),
			syb_account_id VARCHAR(255),
			latest_brief_id BIGINT,
			auto_schedule BOOLEAN NOT NULL DEFAULT FALSE,
			approved_brief_count INT NOT NULL DEFAULT 0,
			timezone VARCHAR(64) NOT NULL DEFAULT 'Asia/Bangkok',
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`,
		`CREATE TABLE IF NOT EXISTS zone_mappings (
			id BIGSERIAL PRIMARY KEY,
			venue_name VARCHAR(255) NOT NULL,
			brief_zone_name VARCHAR(255) NOT NULL,
			syb_zone_id VARCHAR(255) NOT NULL,
			syb_zone_name VARCHAR(255),
			syb_account_id VARCHAR(255),
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			UNIQUE (venue_name, brief_zone_name)
		)`,
		`CREATE TABLE IF NOT EXISTS schedule_entries (
			id BIGSERIAL PRIMARY KEY,
			brief_id BIGINT NOT NULL REFERENCES briefs(id),
			zone_id VARCHAR(255) NOT NULL,
			zone_name VARCHAR(255),
			playlist_syb_id VARCHAR(255) NOT NULL,
			playlist_name VARCHAR(255),
			start_time VARCHAR(5) NOT NULL,
			end_time VARCHAR(5),
			days VARCHAR(10) NOT NULL DEFAULT 'daily',
			timezone VARCHAR(64) NOT NULL DEFAULT 'Asia/Bangkok',
			status VARCHAR(20) NOT NULL DEFAULT 'active',
			last_assigned_at TIMESTAMPTZ,
			retry_count INT NOT NULL DEFAULT 0,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`,
		`CREATE TABLE IF NOT EXISTS approval_tokens (
			id BIGSERIAL PRIMARY KEY,
			brief_id BIGINT NOT NULL REFERENCES briefs(id),
			token VARCHAR(64) NOT NULL,
			expires_at TIMESTAMPTZ NOT NULL,
			used_at TIMESTAMPTZ,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`,
		`CREATE TABLE IF NOT EXISTS follow_ups (
			id BIGSERIAL PRIMARY KEY,
			brief_id BIGINT NOT NULL REFERENCES briefs(id),
			type VARCHAR(10) NOT NULL,
			scheduled_for TIMESTAMPTZ NOT NULL,
			sent_at TIMESTAMPTZ,
			opened_at TIMESTAMPTZ,
			tracking_id VARCHAR(64) NOT NULL,
			contact_email VARCHAR(255),
			venue_name VARCHAR(255),
			contact_name VARCHAR(255),
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`,

		// Columns added after initial deploys.
		`ALTER TABLE briefs ADD COLUMN IF NOT EXISTS syb_schedule_id VARCHAR(255)`,
		`ALTER TABLE briefs ADD COLUMN IF NOT EXISTS automation_tier VARCHAR(50)`,
		`ALTER TABLE venues ADD COLUMN IF NOT EXISTS timezone VARCHAR(64) NOT NULL DEFAULT 'Asia/Bangkok'`,
		`ALTER TABLE venues ADD COLUMN IF NOT EXISTS auto_schedule BOOLEAN NOT NULL DEFAULT FALSE`,
		`ALTER TABLE venues ADD COLUMN IF NOT EXISTS approved_brief_count INT NOT NULL DEFAULT 0`,
		`ALTER TABLE schedule_entries ADD COLUMN IF NOT EXISTS retry_count INT NOT NULL DEFAULT 0`,
		`ALTER TABLE follow_ups ADD COLUMN IF NOT EXISTS opened_at TIMESTAMPTZ`,
		`ALTER TABLE follow_ups ADD COLUMN IF NOT EXISTS contact_email VARCHAR(255)`,
		`ALTER TABLE follow_ups ADD COLUMN IF NOT EXISTS venue_name VARCHAR(255)`,
		`ALTER TABLE follow_ups ADD COLUMN IF NOT EXISTS contact_name VARCHAR(255)`,

		`CREATE INDEX IF NOT EXISTS idx_venues_name ON venues (venue_name)`,
		`CREATE INDEX IF NOT EXISTS idx_briefs_venue ON briefs (venue_name)`,
		`CREATE INDEX IF NOT EXISTS idx_briefs_email ON briefs (contact_email)`,
		`CREATE INDEX IF NOT EXISTS idx_entries_due ON schedule_entries (status, start_time) WHERE status = 'active'`,
		`CREATE UNIQUE INDEX IF NOT EXISTS idx_tokens_token ON approval_tokens (token)`,
		`CREATE INDEX IF NOT EXISTS idx_followups_pending ON follow_ups (scheduled_for) WHERE sent_at IS NULL`,
	}

	for _, stmt := range stmts {
		if _, err := d.conn.Exec(stmt); err != nil {
			return fmt.Errorf("database: migrate: %w", err)
		}
	}
	return nil
}
