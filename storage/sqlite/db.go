// Package sqlite implements storage.Store on SQLite via database/sql. No
// cgo involved; the driver is modernc.org/sqlite.
package sqlite

import (
	"database/sql"
	"fmt"
	"strings"

	_ "modernc.org/sqlite"
)

// Store implements storage.Store backed by a SQLite database.
type Store struct {
	db *sql.DB
}

// Open opens (creating if necessary) the database at path and applies the
// schema. Use ":memory:" for an ephemeral database.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enable foreign keys: %w", err)
	}

	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func (s *Store) migrate() error {
	schema := `
CREATE TABLE IF NOT EXISTS rules (
    id TEXT NOT NULL,
    ministry_id TEXT NOT NULL,
    title TEXT NOT NULL,
    type TEXT NOT NULL,
    weekday INTEGER,
    date TEXT,
    time TEXT NOT NULL,
    active INTEGER NOT NULL DEFAULT 1,
    created_at TIMESTAMP NOT NULL,
    updated_at TIMESTAMP NOT NULL,
    PRIMARY KEY (ministry_id, id)
);
CREATE INDEX IF NOT EXISTS idx_rules_ministry_active ON rules(ministry_id, active);

CREATE TABLE IF NOT EXISTS members (
    id TEXT NOT NULL,
    ministry_id TEXT NOT NULL,
    name TEXT NOT NULL,
    email TEXT NOT NULL DEFAULT '',
    roles TEXT NOT NULL DEFAULT '',
    created_at TIMESTAMP NOT NULL,
    PRIMARY KEY (ministry_id, id)
);

CREATE TABLE IF NOT EXISTS assignments (
    ministry_id TEXT NOT NULL,
    occurrence_id TEXT NOT NULL,
    role TEXT NOT NULL,
    member_id TEXT NOT NULL,
    created_at TIMESTAMP NOT NULL,
    PRIMARY KEY (ministry_id, occurrence_id, role)
);
CREATE INDEX IF NOT EXISTS idx_assignments_member ON assignments(ministry_id, member_id);

CREATE TABLE IF NOT EXISTS availability (
    ministry_id TEXT NOT NULL,
    member_id TEXT NOT NULL,
    date TEXT NOT NULL,
    available INTEGER NOT NULL,
    note TEXT NOT NULL DEFAULT '',
    PRIMARY KEY (ministry_id, member_id, date)
);
CREATE INDEX IF NOT EXISTS idx_availability_date ON availability(ministry_id, date);

CREATE TABLE IF NOT EXISTS songs (
    id TEXT NOT NULL,
    ministry_id TEXT NOT NULL,
    title TEXT NOT NULL,
    artist TEXT NOT NULL DEFAULT '',
    song_key TEXT NOT NULL DEFAULT '',
    reference TEXT NOT NULL DEFAULT '',
    created_at TIMESTAMP NOT NULL,
    PRIMARY KEY (ministry_id, id)
);

CREATE TABLE IF NOT EXISTS setlist_entries (
    ministry_id TEXT NOT NULL,
    occurrence_id TEXT NOT NULL,
    song_id TEXT NOT NULL,
    position INTEGER NOT NULL,
    PRIMARY KEY (ministry_id, occurrence_id, position)
);

CREATE TABLE IF NOT EXISTS swap_requests (
    id TEXT NOT NULL,
    ministry_id TEXT NOT NULL,
    occurrence_id TEXT NOT NULL,
    role TEXT NOT NULL,
    from_member_id TEXT NOT NULL,
    to_member_id TEXT NOT NULL,
    status TEXT NOT NULL CHECK(status IN ('pending', 'accepted', 'declined', 'cancelled')),
    note TEXT NOT NULL DEFAULT '',
    created_at TIMESTAMP NOT NULL,
    resolved_at TIMESTAMP,
    PRIMARY KEY (ministry_id, id)
);
CREATE INDEX IF NOT EXISTS idx_swaps_status ON swap_requests(ministry_id, status);

CREATE TABLE IF NOT EXISTS announcements (
    id TEXT NOT NULL,
    ministry_id TEXT NOT NULL,
    subject TEXT NOT NULL,
    body TEXT NOT NULL,
    source TEXT NOT NULL DEFAULT 'user',
    created_at TIMESTAMP NOT NULL,
    PRIMARY KEY (ministry_id, id)
);
CREATE INDEX IF NOT EXISTS idx_announcements_created ON announcements(ministry_id, created_at);
`
	if _, err := s.db.Exec(schema); err != nil {
		return fmt.Errorf("apply schema: %w", err)
	}
	return nil
}

// Close releases the underlying database handle.
func (s *Store) Close() error {
	return s.db.Close()
}

func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	return strings.Contains(err.Error(), "UNIQUE constraint failed")
}

// joinRoles and splitRoles store a member's role list in one text column.
func joinRoles(roles []string) string {
	return strings.Join(roles, ",")
}

func splitRoles(s string) []string {
	if s == "" {
		return nil
	}
	return strings.Split(s, ",")
}
