// Package sqlite implements the repository interfaces on SQLite through the
// pure-Go modernc.org/sqlite driver (no cgo).
//
// Every collection lives in its own table. Uniqueness that the core relies on
// is declared in the schema, never checked in Go:
//   - user_profiles.id is the primary key (one profile per identity)
//   - user_volunteer_preferences.user_id is UNIQUE (one preference row per user)
//   - accounts.email is UNIQUE
//
// Timestamps are written in UTC so the TEXT representation sorts in time
// order. The one exception is volunteer_opportunities.date, which keeps its
// UTC offset as RFC 3339 text: the weekday an opportunity falls on is the
// local one, and that column is never sorted.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

// DB wraps the connection pool and implements every repository interface.
type DB struct {
	conn *sql.DB
	now  func() time.Time
}

// New opens (or creates) the database at dbPath and migrates it. Use
// ":memory:" in tests.
func New(dbPath string) (*DB, error) {
	conn, err := sql.Open("sqlite", dsn(dbPath))
	if err != nil {
		return nil, fmt.Errorf("sqlite: opening database: %w", err)
	}

	// Each connection to ":memory:" is its own empty database, so the pool
	// must never grow past one.
	if dbPath == ":memory:" {
		conn.SetMaxOpenConns(1)
	}

	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: pinging database: %w", err)
	}

	db := &DB{conn: conn, now: func() time.Time { return time.Now().UTC() }}

	if err := db.migrate(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: running migrations: %w", err)
	}

	return db, nil
}

// dsn carries the connection pragmas as _pragma parameters so the driver
// applies them to every pooled connection, not only the first one. busy_timeout
// comes first so the WAL switch itself waits on a locked file. _txlock makes
// BeginTx take the write lock up front.
func dsn(dbPath string) string {
	params := []string{"_pragma=busy_timeout(5000)", "_pragma=foreign_keys(1)"}
	if dbPath != ":memory:" {
		params = append(params, "_pragma=journal_mode(WAL)")
	}
	params = append(params, "_txlock=immediate")

	sep := "?"
	if strings.Contains(dbPath, "?") {
		sep = "&"
	}
	return dbPath + sep + strings.Join(params, "&")
}

func (db *DB) Close() error {
	return db.conn.Close()
}

// Ping checks that the database is reachable.
func (db *DB) Ping(ctx context.Context) error {
	return db.conn.PingContext(ctx)
}

func (db *DB) migrate() error {
	statements := []struct {
		name string
		sql  string
	}{
		{"accounts", `
			CREATE TABLE IF NOT EXISTS accounts (
				id            TEXT PRIMARY KEY,
				email         TEXT NOT NULL UNIQUE,
				name          TEXT NOT NULL DEFAULT '',
				password_hash TEXT NOT NULL,
				created_at    DATETIME NOT NULL,
				updated_at    DATETIME NOT NULL
			);`},
		{"user_profiles", `
			CREATE TABLE IF NOT EXISTS user_profiles (
				id              TEXT PRIMARY KEY,
				name            TEXT NOT NULL,
				email           TEXT NOT NULL DEFAULT '',
				avatar_url      TEXT NOT NULL DEFAULT '',
				volunteer_hours INTEGER NOT NULL DEFAULT 0 CHECK (volunteer_hours >= 0),
				events_attended INTEGER NOT NULL DEFAULT 0 CHECK (events_attended >= 0),
				donations_made  INTEGER NOT NULL DEFAULT 0 CHECK (donations_made >= 0),
				created_at      DATETIME NOT NULL,
				updated_at      DATETIME NOT NULL
			);`},
		{"user_volunteer_preferences", `
			CREATE TABLE IF NOT EXISTS user_volunteer_preferences (
				id                        TEXT PRIMARY KEY,
				user_id                   TEXT NOT NULL UNIQUE,
				interest_areas            TEXT NOT NULL DEFAULT '[]',
				time_preferences          TEXT NOT NULL DEFAULT '[]',
				commitment_levels         TEXT NOT NULL DEFAULT '[]',
				notify_email              INTEGER NOT NULL DEFAULT 1,
				notify_push               INTEGER NOT NULL DEFAULT 1,
				notify_weekly_digest      INTEGER NOT NULL DEFAULT 1,
				notify_opportunity_alerts INTEGER NOT NULL DEFAULT 1,
				notify_reminders          INTEGER NOT NULL DEFAULT 1,
				created_at                DATETIME NOT NULL,
				updated_at                DATETIME NOT NULL
			);`},
		{"volunteer_opportunities", `
			CREATE TABLE IF NOT EXISTS volunteer_opportunities (
				id            TEXT PRIMARY KEY,
				title         TEXT NOT NULL,
				interest_area TEXT,
				location      TEXT NOT NULL DEFAULT '',
				date          TEXT,
				description   TEXT NOT NULL DEFAULT '',
				created_at    DATETIME NOT NULL
			);
			CREATE INDEX IF NOT EXISTS idx_opportunities_created_at ON volunteer_opportunities(created_at);
			CREATE INDEX IF NOT EXISTS idx_opportunities_interest_area ON volunteer_opportunities(interest_area);`},
		{"user_volunteer_sessions", `
			CREATE TABLE IF NOT EXISTS user_volunteer_sessions (
				id             TEXT PRIMARY KEY,
				user_id        TEXT NOT NULL,
				opportunity_id TEXT NOT NULL DEFAULT '',
				title          TEXT NOT NULL,
				description    TEXT NOT NULL DEFAULT '',
				hours_worked   REAL NOT NULL DEFAULT 0 CHECK (hours_worked >= 0),
				session_date   DATETIME NOT NULL,
				location       TEXT NOT NULL DEFAULT '',
				status         TEXT NOT NULL CHECK (status IN ('registered', 'completed', 'cancelled')),
				created_at     DATETIME NOT NULL,
				updated_at     DATETIME NOT NULL
			);
			CREATE INDEX IF NOT EXISTS idx_sessions_user_date ON user_volunteer_sessions(user_id, session_date);`},
		{"user_event_registrations", `
			CREATE TABLE IF NOT EXISTS user_event_registrations (
				id                TEXT PRIMARY KEY,
				user_id           TEXT NOT NULL,
				event_id          TEXT NOT NULL DEFAULT '',
				event_title       TEXT NOT NULL,
				registration_date DATETIME NOT NULL,
				attendance_status TEXT NOT NULL CHECK (attendance_status IN ('registered', 'attended', 'no_show', 'cancelled')),
				created_at        DATETIME NOT NULL,
				updated_at        DATETIME NOT NULL
			);
			CREATE INDEX IF NOT EXISTS idx_registrations_user_date ON user_event_registrations(user_id, registration_date);`},
		{"user_donations", `
			CREATE TABLE IF NOT EXISTS user_donations (
				id            TEXT PRIMARY KEY,
				user_id       TEXT NOT NULL,
				amount        REAL NOT NULL CHECK (amount >= 0),
				currency      TEXT NOT NULL DEFAULT 'USD',
				donation_type TEXT NOT NULL CHECK (donation_type IN ('monetary', 'in_kind')),
				description   TEXT NOT NULL DEFAULT '',
				donation_date DATETIME NOT NULL,
				status        TEXT NOT NULL CHECK (status IN ('completed', 'pending', 'cancelled')),
				created_at    DATETIME NOT NULL,
				updated_at    DATETIME NOT NULL
			);
			CREATE INDEX IF NOT EXISTS idx_donations_user_date ON user_donations(user_id, donation_date);`},
	}

	for _, st := range statements {
		if _, err := db.conn.Exec(st.sql); err != nil {
			return fmt.Errorf("creating %s table: %w", st.name, err)
		}
	}
	return nil
}

// isUniqueViolation reports whether err is a PRIMARY KEY or UNIQUE
// constraint failure. CHECK and NOT NULL failures are not.
func isUniqueViolation(err error) bool {
	var sqliteErr *sqlite.Error
	if errors.As(err, &sqliteErr) {
		switch sqliteErr.Code() {
		case sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY, sqlite3.SQLITE_CONSTRAINT_UNIQUE:
			return true
		}
	}
	return strings.Contains(err.Error(), "UNIQUE constraint failed")
}

// clampLimit applies the store-wide page bounds.
func clampLimit(limit int) int {
	if limit <= 0 {
		return 20
	}
	if limit > 500 {
		return 500
	}
	return limit
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

// nullBool binds an omitted flag as NULL so COALESCE can pick the fallback.
func nullBool(b *bool) any {
	if b == nil {
		return nil
	}
	return *b
}

// placeholders returns "?, ?, ?" for n arguments.
func placeholders(n int) string {
	return strings.TrimSuffix(strings.Repeat("?, ", n), ", ")
}
