// Package metrics accumulates operational counters for a single scan
// run: documents seen, matches produced, errors encountered, and
// timing. It never caches document or query state, only aggregate
// counts, so it carries no conflict with the engine's no-persistence
// policy for intermediate scan state.
package metrics

import (
	"encoding/json"
	"sync"
	"time"
)

// ErrorKind classifies why a document or query failed to process,
// mirroring the engine's own skip categories rather than inventing new
// ones.
type ErrorKind string

const (
	ErrorDocumentLoad    ErrorKind = "document_load"
	ErrorDocumentCompile ErrorKind = "document_compile"
	ErrorQueryLoad       ErrorKind = "query_load"
	ErrorWorkerPanic     ErrorKind = "worker_panic"
)

// RunMetrics is the accumulated, thread-safe counter set for one scan
// run. Zero value is ready to use.
type RunMetrics struct {
	mu sync.Mutex

	started  time.Time
	finished time.Time

	documentsProcessed int
	documentsSkipped   int
	matchesProduced    int
	errorCounts        map[ErrorKind]int
}

// New starts a RunMetrics with its clock running.
func New(startedAt time.Time) *RunMetrics {
	return &RunMetrics{
		started:     startedAt,
		errorCounts: make(map[ErrorKind]int),
	}
}

// RecordDocument records one successfully scanned document and the
// number of outputs it produced.
func (m *RunMetrics) RecordDocument(outputCount int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.documentsProcessed++
	m.matchesProduced += outputCount
}

// RecordMatches adds n to the run's match count without counting a
// document as processed, for callers that learn about matches and
// documents at different points (e.g. a CLI streaming per-query output
// records back from an engine that does not report non-matching
// documents at all).
func (m *RunMetrics) RecordMatches(n int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.matchesProduced += n
}

// RecordError records one skipped document or query of the given kind.
func (m *RunMetrics) RecordError(kind ErrorKind) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.documentsSkipped++
	m.errorCounts[kind]++
}

// Finish stops the run's clock. Calling Snapshot before Finish is
// valid and reports an in-progress run's duration as elapsed-so-far.
func (m *RunMetrics) Finish(finishedAt time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.finished = finishedAt
}

// Snapshot is an immutable, JSON-serializable view of a RunMetrics at
// a point in time, suitable for passing to pkg/store.
type Snapshot struct {
	StartedAt          time.Time      `json:"started_at"`
	FinishedAt         time.Time      `json:"finished_at,omitempty"`
	DurationSeconds    float64        `json:"duration_seconds"`
	DocumentsProcessed int            `json:"documents_processed"`
	DocumentsSkipped   int            `json:"documents_skipped"`
	MatchesProduced    int            `json:"matches_produced"`
	Errors             map[string]int `json:"errors,omitempty"`
}

// Snapshot captures the current counters. If Finish has not been
// called, duration is measured against now.
func (m *RunMetrics) Snapshot(now time.Time) Snapshot {
	m.mu.Lock()
	defer m.mu.Unlock()

	end := m.finished
	if end.IsZero() {
		end = now
	}
	errs := make(map[string]int, len(m.errorCounts))
	for k, v := range m.errorCounts {
		errs[string(k)] = v
	}

	return Snapshot{
		StartedAt:          m.started,
		FinishedAt:         m.finished,
		DurationSeconds:    end.Sub(m.started).Seconds(),
		DocumentsProcessed: m.documentsProcessed,
		DocumentsSkipped:   m.documentsSkipped,
		MatchesProduced:    m.matchesProduced,
		Errors:             errs,
	}
}

// MarshalJSON lets a Snapshot serialize directly for `ieqlscan scan
// --debug-config`-style diagnostics or pkg/store export.
func (s Snapshot) MarshalJSON() ([]byte, error) {
	type alias Snapshot
	return json.Marshal(alias(s))
}
