package report

import (
	"database/sql"
	"encoding/json"
	"fmt"

	_ "modernc.org/sqlite"

	"github.com/wardenjs/warden/event"
)

// SQLiteSink mirrors every appended event into a durable SQLite database,
// keyed by a caller-chosen run id, so that `warden inspect <db> --run <id>`
// can examine past runs after the process exits. It never participates in
// query evaluation - Store.Find/FindAll/Has always scan the in-memory log,
// per the "no indexing" contract in §4.2; this sink is purely an append-only
// mirror, grounded on the same modernc.org/sqlite driver used elsewhere in
// the example pack for lightweight embedded persistence.
type SQLiteSink struct {
	db    *sql.DB
	runID string
}

// OpenSQLiteSink opens (creating if absent) a SQLite database at path and
// prepares the runs/events tables.
func OpenSQLiteSink(path, runID string) (*SQLiteSink, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("report: open sqlite: %w", err)
	}

	schema := []string{
		`CREATE TABLE IF NOT EXISTS runs (id TEXT PRIMARY KEY, started_at INTEGER)`,
		`CREATE TABLE IF NOT EXISTS events (
			run_id TEXT NOT NULL,
			seq INTEGER NOT NULL,
			type TEXT NOT NULL,
			path TEXT NOT NULL,
			payload TEXT NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS events_run_id_idx ON events(run_id)`,
	}
	for _, stmt := range schema {
		if _, err := db.Exec(stmt); err != nil {
			db.Close()
			return nil, fmt.Errorf("report: migrate sqlite: %w", err)
		}
	}

	if _, err := db.Exec(`INSERT OR IGNORE INTO runs(id, started_at) VALUES (?, strftime('%s','now'))`, runID); err != nil {
		db.Close()
		return nil, fmt.Errorf("report: record run: %w", err)
	}

	return &SQLiteSink{db: db, runID: runID}, nil
}

// Append implements Sink. Marshal and insert errors are discarded: they are
// not surfaced to the guest evaluation, so a durability failure never aborts
// a sandboxed run, and they are not reported by Close either.
func (s *SQLiteSink) Append(e event.Event) {
	payload, err := json.Marshal(e)
	if err != nil {
		return
	}
	var seq int
	row := s.db.QueryRow(`SELECT COUNT(*) FROM events WHERE run_id = ?`, s.runID)
	_ = row.Scan(&seq)
	_, _ = s.db.Exec(
		`INSERT INTO events(run_id, seq, type, path, payload) VALUES (?, ?, ?, ?, ?)`,
		s.runID, seq, string(e.Type), e.Path, string(payload),
	)
}

// Count returns the number of events mirrored for this sink's run id,
// used by tests to check §8.3 invariant 12 (no async lag).
func (s *SQLiteSink) Count() (int, error) {
	var n int
	err := s.db.QueryRow(`SELECT COUNT(*) FROM events WHERE run_id = ?`, s.runID).Scan(&n)
	return n, err
}

// Close releases the underlying database handle.
func (s *SQLiteSink) Close() error {
	return s.db.Close()
}
