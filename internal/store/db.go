package store

import (
	"context"
	"database/sql"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
)

// DB wraps sql.DB for Postgres using pgx.
type DB struct {
	Client *sql.DB
}

// NewDB creates a Postgres connection with sane defaults.
func NewDB(connString string) (*DB, error) {
	db, err := sql.Open("pgx", connString)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(time.Hour)
	return &DB{Client: db}, db.PingContext(context.Background())
}

// Close closes the underlying connection.
func (d *DB) Close() error {
	if d == nil || d.Client == nil {
		return nil
	}
	return d.Client.Close()
}

// EnsureSchema creates the tables on first run. Statements are idempotent so
// a restart against an existing database is a no-op.
func (d *DB) EnsureSchema(ctx context.Context) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS profiles (
			id UUID PRIMARY KEY,
			student_id TEXT NOT NULL UNIQUE,
			name TEXT NOT NULL DEFAULT '',
			phone TEXT NOT NULL DEFAULT '',
			email TEXT NOT NULL DEFAULT '',
			address TEXT NOT NULL DEFAULT '',
			institution TEXT NOT NULL DEFAULT '',
			parent TEXT NOT NULL DEFAULT '',
			roll TEXT NOT NULL DEFAULT '',
			fb_name TEXT NOT NULL DEFAULT '',
			fb_link TEXT NOT NULL DEFAULT '',
			hsc TEXT NOT NULL DEFAULT '',
			photo TEXT NOT NULL DEFAULT '',
			branch TEXT NOT NULL DEFAULT '',
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`,
		`CREATE TABLE IF NOT EXISTS course_enrollments (
			id UUID PRIMARY KEY,
			profile_id UUID NOT NULL REFERENCES profiles(id) ON DELETE CASCADE,
			course_name TEXT NOT NULL,
			course_code TEXT NOT NULL DEFAULT '',
			branch_code TEXT NOT NULL DEFAULT '',
			branch_name TEXT NOT NULL DEFAULT '',
			batch_code TEXT NOT NULL DEFAULT '',
			batch_name TEXT NOT NULL DEFAULT '',
			enrolled_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			has_access BOOLEAN NOT NULL DEFAULT TRUE
		)`,
		`CREATE INDEX IF NOT EXISTS course_enrollments_profile_idx
			ON course_enrollments (profile_id)`,
		`CREATE TABLE IF NOT EXISTS attendance_events (
			id UUID PRIMARY KEY,
			student_id TEXT NOT NULL,
			name TEXT NOT NULL DEFAULT '',
			roll TEXT NOT NULL DEFAULT '',
			phone TEXT NOT NULL DEFAULT '',
			institution TEXT NOT NULL DEFAULT '',
			batch TEXT NOT NULL DEFAULT '',
			branch TEXT NOT NULL DEFAULT '',
			occurred_at TIMESTAMPTZ NOT NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`,
		`CREATE INDEX IF NOT EXISTS attendance_events_branch_time_idx
			ON attendance_events (branch, occurred_at)`,
		`CREATE TABLE IF NOT EXISTS absences (
			id UUID PRIMARY KEY,
			student_id TEXT NOT NULL,
			name TEXT NOT NULL DEFAULT '',
			phone TEXT NOT NULL DEFAULT '',
			email TEXT NOT NULL DEFAULT '',
			address TEXT NOT NULL DEFAULT '',
			institution TEXT NOT NULL DEFAULT '',
			parent TEXT NOT NULL DEFAULT '',
			roll TEXT NOT NULL DEFAULT '',
			batch TEXT NOT NULL DEFAULT '',
			course TEXT NOT NULL,
			branch TEXT NOT NULL,
			status TEXT NOT NULL DEFAULT 'absent',
			date DATE NOT NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			UNIQUE (student_id, course, date, branch)
		)`,
		`CREATE INDEX IF NOT EXISTS absences_branch_date_idx
			ON absences (branch, date)`,
	}
	for _, stmt := range stmts {
		if _, err := d.Client.ExecContext(ctx, stmt); err != nil {
			return err
		}
	}
	return nil
}
