// Package database owns the Postgres connection pool and startup migrations.
// All query code lives in the repository layer; this package only hands out
// the pool and timeout-scoped contexts.
package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/lib/pq"

	"music-brief-scheduler/pkg/config"
)

type DB struct {
	conn         *sql.DB
	readTimeout  time.Duration
	writeTimeout time.Duration
}

// New opens the pool and verifies connectivity. Callers must handle a nil
// config.DatabaseURL before calling; an empty URL is a programmer error here.
func New(cfg *config.Config) (*DB, error) {
	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("database: DATABASE_URL is empty")
	}
	conn, err := sql.Open("postgres", cfg.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("database: open: %w", err)
	}

	conn.SetMaxOpenConns(cfg.DBMaxOpenConns)
	conn.SetMaxIdleConns(cfg.DBMaxIdleConns)
	conn.SetConnMaxLifetime(time.Duration(cfg.DBConnMaxLifetime) * time.Minute)
	conn.SetConnMaxIdleTime(time.Duration(cfg.DBConnMaxIdleTime) * time.Minute)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := conn.PingContext(ctx); err != nil {
		conn.Close()
		return nil, fmt.Errorf("database: ping: %w", err)
	}

	return &DB{
		conn:         conn,
		readTimeout:  cfg.DBReadTimeout,
		writeTimeout: cfg.DBWriteTimeout,
	}, nil
}

// NewFromConn wraps an existing connection, used by tests with sqlmock.
func NewFromConn(conn *sql.DB, readTimeout, writeTimeout time.Duration) *DB {
	return &DB{conn: conn, readTimeout: readTimeout, writeTimeout: writeTimeout}
}

// Conn exposes the raw pool for the repository layer.
func (d *DB) Conn() *sql.DB { return d.conn }

// ReadContext derives a context bounded by the configured read timeout.
func (d *DB) ReadContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if d.readTimeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, d.readTimeout)
}

// WriteContext derives a context bounded by the configured write timeout.
func (d *DB) WriteContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if d.writeTimeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, d.writeTimeout)
}

// Health pings the pool with a short deadline.
func (d *DB) Health(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	return d.conn.PingContext(ctx)
}

func (d *DB) Close() error { return d.conn.Close() }
