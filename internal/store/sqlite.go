// Package store keeps privacy-conscious visitor records and profile image
// event counters in SQLite. Image bytes and data URIs are never stored.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "modernc.org/sqlite"
)

// Event kinds recorded in image_events.
const (
	EventUpload           = "upload"
	EventUploadFailed     = "upload_failed"
	EventProbeAvailable   = "probe_available"
	EventProbeUnavailable = "probe_unavailable"
	EventLoadError        = "load_error"
)

// Privacy-conscious visitor tracking record
type VisitorMetric struct {
	ID        int       `json:"id"`
	HashedIP  string    `json:"hashed_ip"` // Hashed instead of raw IP for privacy
	UserAgent string    `json:"user_agent"`
	Path      string    `json:"path"`
	Timestamp time.Time `json:"timestamp"`
}

// ImageEvent is one profile image occurrence. Format and size are only
// filled for uploads whose header could be read.
type ImageEvent struct {
	ID        int       `json:"id"`
	Kind      string    `json:"kind"`
	Format    string    `json:"format,omitempty"`
	Width     int       `json:"width,omitempty"`
	Height    int       `json:"height,omitempty"`
	Bytes     int64     `json:"bytes,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

type Stats struct {
	TotalVisitors    int64            `json:"total_visitors"`
	UniqueVisitors   int64            `json:"unique_visitors"`
	VisitorsToday    int64            `json:"visitors_today"`
	VisitorsThisWeek int64            `json:"visitors_this_week"`
	EventCounts      map[string]int64 `json:"event_counts"`
	RecentVisitors   []VisitorMetric  `json:"recent_visitors"`
	RecentUploads    []ImageEvent     `json:"recent_uploads"`
}

// Store wraps the SQLite database.
type Store struct {
	db *sql.DB
}

// Open opens (or creates) the database at path and applies the schema.
// Use ":memory:" for an in-memory database.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite %q: %w", path, err)
	}
	// Each connection to ":memory:" is its own database.
	if path == ":memory:" {
		db.SetMaxOpenConns(1)
	} else if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("set WAL mode: %w", err)
	}

	schema := `
	CREATE TABLE IF NOT EXISTS visitors (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		hashed_ip TEXT NOT NULL,
		user_agent TEXT,
		path TEXT,
		timestamp DATETIME DEFAULT CURRENT_TIMESTAMP
	);
	CREATE TABLE IF NOT EXISTS image_events (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		kind TEXT NOT NULL,
		format TEXT,
		width INTEGER DEFAULT 0,
		height INTEGER DEFAULT 0,
		bytes INTEGER DEFAULT 0,
		timestamp DATETIME DEFAULT CURRENT_TIMESTAMP
	);
	CREATE INDEX IF NOT EXISTS idx_visitors_timestamp ON visitors(timestamp);
	CREATE INDEX IF NOT EXISTS idx_image_events_kind ON image_events(kind);`

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}
	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

// RecordVisit stores one page view. hashedIP must already be hashed.
func (s *Store) RecordVisit(ctx context.Context, hashedIP, userAgent, path string) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO visitors (hashed_ip, user_agent, path) VALUES (?, ?, ?)`,
		hashedIP, userAgent, path)
	if err != nil {
		return fmt.Errorf("record visit: %w", err)
	}
	return nil
}

// RecordImageEvent stores a profile image event.
func (s *Store) RecordImageEvent(ctx context.Context, ev ImageEvent) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO image_events (kind, format, width, height, bytes) VALUES (?, ?, ?, ?, ?)`,
		ev.Kind, ev.Format, ev.Width, ev.Height, ev.Bytes)
	if err != nil {
		return fmt.Errorf("record image event %q: %w", ev.Kind, err)
	}
	return nil
}

// CleanupOldVisitors removes visitor records older than 12 months.
func (s *Store) CleanupOldVisitors(ctx context.Context) (int64, error) {
	result, err := s.db.ExecContext(ctx, `
		DELETE FROM visitors
		WHERE timestamp < datetime('now', '-12 months')
	`)
	if err != nil {
		return 0, fmt.Errorf("cleanup visitors: %w", err)
	}
	return result.RowsAffected()
}

// Stats gathers the admin dashboard numbers.
func (s *Store) Stats(ctx context.Context) (*Stats, error) {
	stats := &Stats{EventCounts: make(map[string]int64)}

	counts := []struct {
		query string
		dest  *int64
	}{
		{"SELECT COUNT(*) FROM visitors", &stats.TotalVisitors},
		{"SELECT COUNT(DISTINCT hashed_ip) FROM visitors", &stats.UniqueVisitors},
		{"SELECT COUNT(*) FROM visitors WHERE DATE(timestamp) = DATE('now')", &stats.VisitorsToday},
		{"SELECT COUNT(*) FROM visitors WHERE timestamp >= datetime('now', '-7 days')", &stats.VisitorsThisWeek},
	}
	for _, q := range counts {
		if err := s.db.QueryRowContext(ctx, q.query).Scan(q.dest); err != nil {
			return nil, fmt.Errorf("stats: %w", err)
		}
	}

	rows, err := s.db.QueryContext(ctx, `SELECT kind, COUNT(*) FROM image_events GROUP BY kind`)
	if err != nil {
		return nil, fmt.Errorf("stats: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var kind string
		var n int64
		if err := rows.Scan(&kind, &n); err != nil {
			return nil, fmt.Errorf("stats: %w", err)
		}
		stats.EventCounts[kind] = n
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("stats: %w", err)
	}

	if stats.RecentVisitors, err = s.RecentVisitors(ctx, 50); err != nil {
		return nil, err
	}
	if stats.RecentUploads, err = s.recentUploads(ctx, 20); err != nil {
		return nil, err
	}
	return stats, nil
}

// RecentVisitors returns the newest visitor records, newest first.
func (s *Store) RecentVisitors(ctx context.Context, limit int) ([]VisitorMetric, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, hashed_ip, COALESCE(user_agent, ''), COALESCE(path, ''), timestamp
		FROM visitors
		ORDER BY timestamp DESC, id DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("recent visitors: %w", err)
	}
	defer rows.Close()

	var visitors []VisitorMetric
	for rows.Next() {
		var v VisitorMetric
		if err := rows.Scan(&v.ID, &v.HashedIP, &v.UserAgent, &v.Path, &v.Timestamp); err != nil {
			return nil, fmt.Errorf("recent visitors: %w", err)
		}
		visitors = append(visitors, v)
	}
	return visitors, rows.Err()
}

func (s *Store) recentUploads(ctx context.Context, limit int) ([]ImageEvent, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, kind, COALESCE(format, ''), width, height, bytes, timestamp
		FROM image_events
		WHERE kind = ?
		ORDER BY timestamp DESC, id DESC
		LIMIT ?
	`, EventUpload, limit)
	if err != nil {
		return nil, fmt.Errorf("recent uploads: %w", err)
	}
	defer rows.Close()

	var events []ImageEvent
	for rows.Next() {
		var ev ImageEvent
		if err := rows.Scan(&ev.ID, &ev.Kind, &ev.Format, &ev.Width, &ev.Height, &ev.Bytes, &ev.Timestamp); err != nil {
			return nil, fmt.Errorf("recent uploads: %w", err)
		}
		events = append(events, ev)
	}
	return events, rows.Err()
}
