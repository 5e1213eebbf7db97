// Package store keeps a queryable SQLite history of elevator events.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/ppiankov/clearlift/internal/model"

	_ "modernc.org/sqlite" // pure Go SQLite driver
)

// ErrClosed is returned by Record after Close.
var ErrClosed = errors.New("store: closed")

// Store is a model.Recorder backed by a single SQLite file.
type Store struct {
	mu   sync.RWMutex
	db   *sql.DB
	path string
}

// Filter narrows an Events query. Zero fields match everything.
type Filter struct {
	AgentID   string
	RequestID string
	Kind      model.EventKind
	Limit     int // 0 = no limit
}

// Counts aggregates door decisions over the whole history.
//
// Granted and Denied count requests, not door events: a denied request's
// Ground retry opens a door but is not a grant.
type Counts struct {
	Events   int `json:"events"`
	Requests int `json:"requests"`
	Agents   int `json:"agents"`
	Granted  int `json:"granted"`
	Denied   int `json:"denied"`
	Retries  int `json:"retries"`
}

// Open opens (or creates) the database at path and applies the schema.
func Open(path string) (*Store, error) {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0700); err != nil {
			return nil, fmt.Errorf("store: create directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("store: open database: %w", err)
	}

	// SQLite allows one writer; a single connection also keeps ":memory:"
	// databases shared across calls.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA temp_store=MEMORY",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("store: set pragma: %w", err)
		}
	}

	if _, err := db.Exec(Schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("store: initialize schema: %w", err)
	}

	return &Store{db: db, path: path}, nil
}

// Path returns the database file.
func (s *Store) Path() string { return s.path }

// Record inserts one event.
func (s *Store) Record(ev model.Event) error {
	return s.RecordContext(context.Background(), ev)
}

// RecordContext inserts one event, honoring ctx.
func (s *Store) RecordContext(ctx context.Context, ev model.Event) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.db == nil {
		return ErrClosed
	}
	ev = ev.Stamp()
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO events (ts, kind, request_id, agent_id, clearance, origin, target, elevator, reason)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		ev.Timestamp, string(ev.Kind), ev.RequestID, ev.AgentID,
		ev.Clearance.String(), ev.Origin.String(), ev.Target.String(), ev.Elevator.String(), ev.Reason,
	)
	if err != nil {
		return fmt.Errorf("store: insert event: %w", err)
	}
	return nil
}

// Events returns matching events in insertion order.
func (s *Store) Events(ctx context.Context, f Filter) ([]model.Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.db == nil {
		return nil, ErrClosed
	}

	var (
		where []string
		args  []any
	)
	if f.AgentID != "" {
		where = append(where, "agent_id = ?")
		args = append(args, f.AgentID)
	}
	if f.RequestID != "" {
		where = append(where, "request_id = ?")
		args = append(args, f.RequestID)
	}
	if f.Kind != "" {
		where = append(where, "kind = ?")
		args = append(args, string(f.Kind))
	}

	query := "SELECT ts, kind, request_id, agent_id, clearance, origin, target, elevator, reason FROM events"
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY id"
	if f.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, f.Limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("store: query events: %w", err)
	}
	defer rows.Close()

	var events []model.Event
	for rows.Next() {
		var (
			ev                                  model.Event
			kind, clearance, origin, target, el string
		)
		if err := rows.Scan(&ev.Timestamp, &kind, &ev.RequestID, &ev.AgentID, &clearance, &origin, &target, &el, &ev.Reason); err != nil {
			return nil, fmt.Errorf("store: scan event: %w", err)
		}
		ev.Kind = model.EventKind(kind)
		if ev.Clearance, err = model.ParseSecurityLevel(clearance); err != nil {
			return nil, fmt.Errorf("store: event clearance: %w", err)
		}
		for _, p := range []struct {
			dst *model.Floor
			raw string
		}{{&ev.Origin, origin}, {&ev.Target, target}, {&ev.Elevator, el}} {
			if *p.dst, err = model.ParseFloor(p.raw); err != nil {
				return nil, fmt.Errorf("store: event floor: %w", err)
			}
		}
		events = append(events, ev)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("store: read events: %w", err)
	}
	return events, nil
}

// Counts summarizes the stored history.
func (s *Store) Counts(ctx context.Context) (Counts, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var c Counts
	if s.db == nil {
		return c, ErrClosed
	}
	row := s.db.QueryRowContext(ctx, `
SELECT
    COUNT(*),
    COUNT(DISTINCT request_id),
    COUNT(DISTINCT agent_id),
    COUNT(DISTINCT CASE WHEN kind = ? AND request_id NOT IN (
        SELECT request_id FROM events WHERE kind = ?) THEN request_id END),
    COUNT(DISTINCT CASE WHEN kind = ? THEN request_id END),
    COALESCE(SUM(CASE WHEN kind = ? THEN 1 ELSE 0 END), 0)
FROM events`,
		string(model.EventDoorOpened), string(model.EventDoorStayedClosed),
		string(model.EventDoorStayedClosed), string(model.EventRetry))
	if err := row.Scan(&c.Events, &c.Requests, &c.Agents, &c.Granted, &c.Denied, &c.Retries); err != nil {
		return c, fmt.Errorf("store: count events: %w", err)
	}
	return c, nil
}

// Close releases the database. Further calls return ErrClosed.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.db == nil {
		return nil
	}
	err := s.db.Close()
	s.db = nil
	return err
}
