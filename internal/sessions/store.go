// Package sessions stores historical session records in SQLite.
//
// Closed sessions embed a snapshot of the open-thread list as a JSON
// blob. Older versions of the client wrote that blob in several
// encodings (see thread.NormalizeLegacy); this store hands the raw
// decoded entries back and lets the reconciler normalize them.
package sessions

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

// openDB is a package-level var to allow test injection.
var openDB = sql.Open

// Config holds session store configuration.
type Config struct {
	DataDir string
}

// Record is one historical session with its embedded thread snapshot.
type Record struct {
	ID              string     `json:"id"`
	Project         string     `json:"project"`
	StartedAt       time.Time  `json:"started_at"`
	EndedAt         *time.Time `json:"ended_at,omitempty"`
	Summary         string     `json:"summary,omitempty"`
	CloseCompliance bool       `json:"close_compliance"`

	// Threads is the raw embedded list: a mix of decoded objects and
	// legacy string encodings. Never consumed directly; run it through
	// thread.NormalizeLegacy first.
	Threads []any `json:"threads,omitempty"`
}

// CloseParams holds the input for recording a closed session.
type CloseParams struct {
	ID              string
	Project         string
	Summary         string
	CloseCompliance bool

	// Threads is marshaled to JSON as-is. Well-behaved callers pass
	// []thread.Thread; legacy data may carry mixed string shapes.
	Threads any
}

// Store is the session-record store backed by SQLite.
type Store struct {
	db *sql.DB
}

// New opens (creating if needed) the session database under cfg.DataDir
// with WAL mode and runs migrations.
func New(cfg Config) (*Store, error) {
	if err := os.MkdirAll(cfg.DataDir, 0700); err != nil {
		return nil, fmt.Errorf("sessions: create data dir: %w", err)
	}

	dbPath := filepath.Join(cfg.DataDir, "sessions.db")
	db, err := openDB("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("sessions: open database: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA busy_timeout = 5000",
		"PRAGMA synchronous = NORMAL",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			return nil, fmt.Errorf("sessions: pragma %q: %w", p, err)
		}
	}

	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		return nil, fmt.Errorf("sessions: migration: %w", err)
	}
	return s, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) migrate() error {
	schema := `
		CREATE TABLE IF NOT EXISTS sessions (
			id               TEXT PRIMARY KEY,
			project          TEXT NOT NULL DEFAULT '',
			started_at       TEXT NOT NULL DEFAULT (datetime('now')),
			ended_at         TEXT,
			summary          TEXT,
			close_compliance INTEGER NOT NULL DEFAULT 0,
			threads          TEXT
		);

		CREATE INDEX IF NOT EXISTS idx_sessions_project ON sessions(project);
		CREATE INDEX IF NOT EXISTS idx_sessions_ended   ON sessions(ended_at DESC);
	`
	_, err := s.db.Exec(schema)
	return err
}

// Start registers a new session. Re-registering an existing id is a
// no-op.
func (s *Store) Start(id, project string) error {
	_, err := s.db.Exec(
		`INSERT OR IGNORE INTO sessions (id, project) VALUES (?, ?)`,
		id, project,
	)
	return err
}

// RecordClose marks a session closed, storing its summary, compliance
// flag, and embedded thread snapshot. Unknown sessions are inserted so a
// close from a client that never called Start still lands.
func (s *Store) RecordClose(p CloseParams) error {
	var blob any
	if p.Threads != nil {
		encoded, err := json.Marshal(p.Threads)
		if err != nil {
			return fmt.Errorf("sessions: marshal threads: %w", err)
		}
		blob = string(encoded)
	}

	_, err := s.db.Exec(
		`INSERT INTO sessions (id, project, ended_at, summary, close_compliance, threads)
		 VALUES (?, ?, datetime('now'), ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET
			ended_at         = datetime('now'),
			summary          = excluded.summary,
			close_compliance = excluded.close_compliance,
			threads          = excluded.threads`,
		p.ID, p.Project, nullableString(p.Summary), boolToInt(p.CloseCompliance), blob,
	)
	if err != nil {
		return fmt.Errorf("sessions: record close: %w", err)
	}
	return nil
}

// RecentClosed returns the most recently closed sessions, newest first.
// Open sessions (ended_at is NULL) are excluded.
func (s *Store) RecentClosed(project string, limit int) ([]Record, error) {
	if limit <= 0 {
		limit = 10
	}

	query := `
		SELECT id, project, started_at, ended_at, summary, close_compliance, threads
		FROM sessions
		WHERE ended_at IS NOT NULL
	`
	args := []any{}
	if project != "" {
		query += " AND project = ?"
		args = append(args, project)
	}
	query += " ORDER BY datetime(ended_at) DESC LIMIT ?"
	args = append(args, limit)

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("sessions: query recent: %w", err)
	}
	defer rows.Close()

	var records []Record
	for rows.Next() {
		var (
			rec        Record
			startedAt  string
			endedAt    sql.NullString
			summary    sql.NullString
			compliance int
			blob       sql.NullString
		)
		if err := rows.Scan(&rec.ID, &rec.Project, &startedAt, &endedAt, &summary, &compliance, &blob); err != nil {
			return nil, fmt.Errorf("sessions: scan: %w", err)
		}
		rec.StartedAt = parseSQLiteTime(startedAt)
		if endedAt.Valid {
			t := parseSQLiteTime(endedAt.String)
			rec.EndedAt = &t
		}
		rec.Summary = summary.String
		rec.CloseCompliance = compliance != 0
		if blob.Valid && blob.String != "" {
			// Malformed blobs degrade to an empty snapshot; the session
			// itself still counts.
			_ = json.Unmarshal([]byte(blob.String), &rec.Threads)
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

// parseSQLiteTime handles both RFC3339 and SQLite's datetime('now')
// format.
func parseSQLiteTime(s string) time.Time {
	for _, layout := range []string{time.RFC3339, "2006-01-02 15:04:05"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t
		}
	}
	return time.Time{}
}

func nullableString(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
