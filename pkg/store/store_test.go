package store

import (
	"testing"
	"time"

	"github.com/shaneisley/ieql/pkg/metrics"
)

func testSnapshot(started time.Time, docs, skipped, matches int) metrics.Snapshot {
	return metrics.Snapshot{
		StartedAt:          started,
		DurationSeconds:    1.5,
		DocumentsProcessed: docs,
		DocumentsSkipped:   skipped,
		MatchesProduced:    matches,
		Errors:             map[string]int{"document_load": skipped},
	}
}

func TestRecordAndRecent(t *testing.T) {
	s, err := Open("")
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer s.Close()

	now := time.Now()
	if err := s.Record(testSnapshot(now, 10, 1, 3), now); err != nil {
		t.Fatalf("record: %v", err)
	}
	if err := s.Record(testSnapshot(now.Add(time.Minute), 20, 2, 5), now.Add(time.Minute)); err != nil {
		t.Fatalf("record: %v", err)
	}

	recent, err := s.Recent(1)
	if err != nil {
		t.Fatalf("recent: %v", err)
	}
	if len(recent) != 1 {
		t.Fatalf("expected 1 record, got %d", len(recent))
	}
	if recent[0].Snapshot.DocumentsProcessed != 20 {
		t.Fatalf("expected the most recent snapshot first, got %+v", recent[0].Snapshot)
	}
}

func TestSinceFiltersByRecordedAt(t *testing.T) {
	s, err := Open("")
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer s.Close()

	base := time.Now()
	if err := s.Record(testSnapshot(base, 1, 0, 0), base.Add(-time.Hour)); err != nil {
		t.Fatalf("record: %v", err)
	}
	if err := s.Record(testSnapshot(base, 2, 0, 0), base); err != nil {
		t.Fatalf("record: %v", err)
	}

	records, err := s.Since(base.Add(-time.Minute))
	if err != nil {
		t.Fatalf("since: %v", err)
	}
	if len(records) != 1 || records[0].Snapshot.DocumentsProcessed != 2 {
		t.Fatalf("expected only the record at base, got %+v", records)
	}
}

func TestAggregateSinceSumsAcrossSnapshots(t *testing.T) {
	s, err := Open("")
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer s.Close()

	base := time.Now()
	if err := s.Record(testSnapshot(base, 10, 1, 3), base); err != nil {
		t.Fatalf("record: %v", err)
	}
	if err := s.Record(testSnapshot(base, 20, 2, 5), base.Add(time.Second)); err != nil {
		t.Fatalf("record: %v", err)
	}

	totals, err := s.AggregateSince(base.Add(-time.Minute))
	if err != nil {
		t.Fatalf("aggregate: %v", err)
	}
	if totals.Runs != 2 {
		t.Fatalf("expected 2 runs, got %d", totals.Runs)
	}
	if totals.DocumentsProcessed != 30 {
		t.Fatalf("expected 30 documents processed, got %d", totals.DocumentsProcessed)
	}
	if totals.ErrorsByKind["document_load"] != 3 {
		t.Fatalf("expected 3 document_load errors, got %d", totals.ErrorsByKind["document_load"])
	}
}
