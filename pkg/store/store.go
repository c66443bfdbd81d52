// Package store persists post-hoc scan-run metrics snapshots to a
// SQLite database, for long-running daemons that want scan history
// across restarts. It never persists documents or compiled queries —
// only the aggregate counters pkg/metrics produces once a run (or a
// periodic slice of one) finishes.
package store

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"sort"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/shaneisley/ieql/pkg/metrics"
)

// Store is a thread-safe SQLite-backed sink for metrics.Snapshot
// values. The underlying *sql.DB already serializes concurrent access,
// so Store needs no additional locking of its own.
type Store struct {
	db *sql.DB
}

// Record is one stored snapshot row.
type Record struct {
	ID       int64            `json:"id"`
	Snapshot metrics.Snapshot `json:"snapshot"`
}

// Open creates (if necessary) and opens a SQLite database at path. An
// empty path opens an in-memory database, useful for tests and for
// runs that don't want history across restarts but still want the
// aggregation queries below.
func Open(path string) (*Store, error) {
	dsn := path
	if dsn == "" {
		dsn = ":memory:"
	}
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("open metrics store: %w", err)
	}
	const schema = `
CREATE TABLE IF NOT EXISTS run_snapshots (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	started_at TEXT NOT NULL,
	recorded_at TEXT NOT NULL,
	payload TEXT NOT NULL
);`
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("create metrics schema: %w", err)
	}
	return &Store{db: db}, nil
}

// Close releases the underlying database handle.
func (s *Store) Close() error {
	return s.db.Close()
}

// Record stores one snapshot, timestamped at recordedAt.
func (s *Store) Record(snap metrics.Snapshot, recordedAt time.Time) error {
	payload, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("marshal snapshot: %w", err)
	}
	_, err = s.db.Exec(
		`INSERT INTO run_snapshots (started_at, recorded_at, payload) VALUES (?, ?, ?)`,
		snap.StartedAt.Format(time.RFC3339Nano),
		recordedAt.Format(time.RFC3339Nano),
		string(payload),
	)
	if err != nil {
		return fmt.Errorf("insert snapshot: %w", err)
	}
	return nil
}

// Recent returns the most recently recorded snapshots, newest first,
// capped at limit.
func (s *Store) Recent(limit int) ([]Record, error) {
	if limit <= 0 {
		limit = 1
	}
	rows, err := s.db.Query(
		`SELECT id, payload FROM run_snapshots ORDER BY id DESC LIMIT ?`, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("query recent snapshots: %w", err)
	}
	defer rows.Close()
	return scanRecords(rows)
}

// Since returns every snapshot recorded at or after start, oldest
// first.
func (s *Store) Since(start time.Time) ([]Record, error) {
	rows, err := s.db.Query(
		`SELECT id, payload FROM run_snapshots WHERE recorded_at >= ? ORDER BY id ASC`,
		start.Format(time.RFC3339Nano),
	)
	if err != nil {
		return nil, fmt.Errorf("query snapshots since %s: %w", start, err)
	}
	defer rows.Close()
	return scanRecords(rows)
}

func scanRecords(rows *sql.Rows) ([]Record, error) {
	var out []Record
	for rows.Next() {
		var id int64
		var payload string
		if err := rows.Scan(&id, &payload); err != nil {
			return nil, fmt.Errorf("scan snapshot row: %w", err)
		}
		var snap metrics.Snapshot
		if err := json.Unmarshal([]byte(payload), &snap); err != nil {
			return nil, fmt.Errorf("decode snapshot payload: %w", err)
		}
		out = append(out, Record{ID: id, Snapshot: snap})
	}
	return out, rows.Err()
}

// Totals sums documents, matches, and errors across every snapshot
// recorded at or after start, for a coarse "how has the fleet been
// doing" view without loading every row into the caller.
type Totals struct {
	Runs               int
	DocumentsProcessed int
	DocumentsSkipped   int
	MatchesProduced    int
	ErrorsByKind       map[string]int
}

// AggregateSince computes Totals over every snapshot since start.
func (s *Store) AggregateSince(start time.Time) (Totals, error) {
	records, err := s.Since(start)
	if err != nil {
		return Totals{}, err
	}
	totals := Totals{ErrorsByKind: make(map[string]int)}
	for _, r := range records {
		totals.Runs++
		totals.DocumentsProcessed += r.Snapshot.DocumentsProcessed
		totals.DocumentsSkipped += r.Snapshot.DocumentsSkipped
		totals.MatchesProduced += r.Snapshot.MatchesProduced
		for kind, count := range r.Snapshot.Errors {
			totals.ErrorsByKind[kind] += count
		}
	}
	return totals, nil
}

// sortedErrorKinds is a small helper for deterministic debug printing;
// map iteration order in Go is intentionally randomized.
func sortedErrorKinds(m map[string]int) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// PrintSummary writes a one-line-per-kind human summary of t, in
// deterministic order, for `ieqlscan scan --debug-config`-style output.
func (t Totals) PrintSummary() {
	fmt.Printf("runs=%d documents=%d skipped=%d matches=%d\n", t.Runs, t.DocumentsProcessed, t.DocumentsSkipped, t.MatchesProduced)
	for _, kind := range sortedErrorKinds(t.ErrorsByKind) {
		fmt.Printf("  %s: %d\n", kind, t.ErrorsByKind[kind])
	}
}
