package events

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"music-brief-scheduler/pkg/database"
)

// SQLStore persists events in a pipeline_events table ordered by BIGSERIAL id.
type SQLStore struct {
	db *database.DB
}

func NewSQLStore(db *database.DB) *SQLStore {
	s := &SQLStore{db: db}
	if err := s.ensureTable(); err != nil {
		// Best effort; the audit trail must not block app start.
		fmt.Printf("[events] ensure table error: %v\n", err)
	}
	return s
}

func (s *SQLStore) ensureTable() error {
	qry := `CREATE TABLE IF NOT EXISTS pipeline_events (
		id BIGSERIAL PRIMARY KEY,
		brief_id BIGINT NOT NULL,
		type VARCHAR(64) NOT NULL,
		at TIMESTAMPTZ NOT NULL,
		data JSONB NOT NULL
	)`
	if _, err := s.db.Conn().Exec(qry); err != nil {
		return err
	}
	_, err := s.db.Conn().Exec(`CREATE INDEX IF NOT EXISTS idx_pipeline_events_brief ON pipeline_events (brief_id, id)`)
	return err
}

func (s *SQLStore) Append(ctx context.Context, e Event) error {
	payload, err := e.MarshalData()
	if err != nil {
		return fmt.Errorf("marshal payload: %w", err)
	}
	at := e.Timestamp()
	if at.IsZero() {
		at = time.Now()
	}
	_, err = s.db.Conn().ExecContext(ctx,
		`INSERT INTO pipeline_events (brief_id, type, at, data) VALUES ($1, $2, $3, $4)`,
		e.BriefID(), e.Type(), at, string(payload))
	if err != nil {
		return fmt.Errorf("insert event: %w", err)
	}
	return nil
}

func (s *SQLStore) ListByBrief(ctx context.Context, briefID int64) ([]StoredEvent, error) {
	rows, err := s.db.Conn().QueryContext(ctx,
		`SELECT id, brief_id, type, at, data FROM pipeline_events WHERE brief_id = $1 ORDER BY id ASC`,
		briefID)
	if err != nil {
		return nil, fmt.Errorf("query events: %w", err)
	}
	defer rows.Close()

	var out []StoredEvent
	for rows.Next() {
		var se StoredEvent
		var dataStr string
		if err := rows.Scan(&se.Seq, &se.BriefID, &se.Type, &se.Ts, &dataStr); err != nil {
			return nil, fmt.Errorf("scan event: %w", err)
		}
		se.Payload = json.RawMessage(dataStr)
		out = append(out, se)
	}
	return out, rows.Err()
}

// NopStore satisfies Store when no database is configured.
type NopStore struct{}

func (NopStore) Append(ctx context.Context, e Event) error { return nil }
func (NopStore) ListByBrief(ctx context.Context, briefID int64) ([]StoredEvent, error) {
	return nil, sql.ErrNoRows
}
