// Package flightlog persists recorder events to SQLite so flights can be
// reviewed after the fact. Each process run is one session, identified by
// a UUID, and every recorder action is appended as an event row.
package flightlog

import (
	"database/sql"
	"fmt"
	"sync"
	"time"

	"github.com/golang/geo/r3"
	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/driftline/safereturn/internal/breadcrumb"
	"github.com/driftline/safereturn/internal/monitoring"
)

// Store is a SQLite-backed event log. It implements breadcrumb.EventSink.
type Store struct {
	db        *sql.DB
	sessionID string

	mu sync.Mutex
}

// Session is one recorded process run.
type Session struct {
	ID        string
	StartedAt time.Time
}

// Event is one recorder action within a session.
type Event struct {
	SessionID  string
	Action     string
	Position   r3.Vector
	RecordedAt time.Time
}

// Open opens (creating if necessary) the database at path, applies schema
// migrations, and registers a new session.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open flight log %q: %w", path, err)
	}

	if err := migrateUp(db); err != nil {
		db.Close()
		return nil, err
	}

	s := &Store{db: db, sessionID: uuid.NewString()}
	if _, err := db.Exec(`INSERT INTO sessions (session_id) VALUES (?)`, s.sessionID); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to register session: %w", err)
	}
	return s, nil
}

// SessionID returns the identifier of the session this store writes to.
func (s *Store) SessionID() string {
	return s.sessionID
}

// RecordAction implements breadcrumb.EventSink. Failures are logged rather
// than surfaced so a full disk cannot stall the recorder.
func (s *Store) RecordAction(action breadcrumb.Action, pos r3.Vector) {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.Exec(
		`INSERT INTO events (session_id, action, north_m, east_m, down_m) VALUES (?, ?, ?, ?, ?)`,
		s.sessionID, action.String(), pos.X, pos.Y, pos.Z,
	)
	if err != nil {
		monitoring.Logf("flightlog: failed to record %s: %v", action, err)
	}
}

// Sessions lists all sessions, newest first.
func (s *Store) Sessions() ([]Session, error) {
	rows, err := s.db.Query(`SELECT session_id, started_at FROM sessions ORDER BY started_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("failed to query sessions: %w", err)
	}
	defer rows.Close()

	var out []Session
	for rows.Next() {
		var sess Session
		if err := rows.Scan(&sess.ID, &sess.StartedAt); err != nil {
			return nil, fmt.Errorf("failed to scan session: %w", err)
		}
		out = append(out, sess)
	}
	return out, rows.Err()
}

// Events returns the events of one session in insertion order.
func (s *Store) Events(sessionID string) ([]Event, error) {
	rows, err := s.db.Query(
		`SELECT session_id, action, north_m, east_m, down_m, recorded_at
		 FROM events WHERE session_id = ? ORDER BY event_id`,
		sessionID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query events: %w", err)
	}
	defer rows.Close()

	var out []Event
	for rows.Next() {
		var ev Event
		if err := rows.Scan(&ev.SessionID, &ev.Action, &ev.Position.X, &ev.Position.Y, &ev.Position.Z, &ev.RecordedAt); err != nil {
			return nil, fmt.Errorf("failed to scan event: %w", err)
		}
		out = append(out, ev)
	}
	return out, rows.Err()
}

// ActionCounts tallies events per action for one session.
func (s *Store) ActionCounts(sessionID string) (map[string]int, error) {
	rows, err := s.db.Query(
		`SELECT action, COUNT(*) FROM events WHERE session_id = ? GROUP BY action`,
		sessionID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to count actions: %w", err)
	}
	defer rows.Close()

	counts := make(map[string]int)
	for rows.Next() {
		var action string
		var n int
		if err := rows.Scan(&action, &n); err != nil {
			return nil, fmt.Errorf("failed to scan count: %w", err)
		}
		counts[action] = n
	}
	return counts, rows.Err()
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}
