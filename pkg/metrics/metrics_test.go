package metrics

import (
	"testing"
	"time"
)

func TestRecordDocumentAccumulatesCounts(t *testing.T) {
	start := time.Now()
	m := New(start)
	m.RecordDocument(2)
	m.RecordDocument(0)

	snap := m.Snapshot(start.Add(time.Second))
	if snap.DocumentsProcessed != 2 {
		t.Fatalf("expected 2 documents processed, got %d", snap.DocumentsProcessed)
	}
	if snap.MatchesProduced != 2 {
		t.Fatalf("expected 2 matches produced, got %d", snap.MatchesProduced)
	}
}

func TestRecordMatchesAddsToMatchesWithoutCountingADocument(t *testing.T) {
	m := New(time.Now())
	m.RecordDocument(0)
	m.RecordMatches(3)
	m.RecordMatches(1)

	snap := m.Snapshot(time.Now())
	if snap.DocumentsProcessed != 1 {
		t.Fatalf("expected 1 document processed, got %d", snap.DocumentsProcessed)
	}
	if snap.MatchesProduced != 4 {
		t.Fatalf("expected 4 matches produced, got %d", snap.MatchesProduced)
	}
}

func TestRecordErrorAccumulatesByKind(t *testing.T) {
	m := New(time.Now())
	m.RecordError(ErrorDocumentLoad)
	m.RecordError(ErrorDocumentLoad)
	m.RecordError(ErrorWorkerPanic)

	snap := m.Snapshot(time.Now())
	if snap.DocumentsSkipped != 3 {
		t.Fatalf("expected 3 skipped, got %d", snap.DocumentsSkipped)
	}
	if snap.Errors[string(ErrorDocumentLoad)] != 2 {
		t.Fatalf("expected 2 document_load errors, got %d", snap.Errors[string(ErrorDocumentLoad)])
	}
	if snap.Errors[string(ErrorWorkerPanic)] != 1 {
		t.Fatalf("expected 1 worker_panic error, got %d", snap.Errors[string(ErrorWorkerPanic)])
	}
}

func TestSnapshotBeforeFinishMeasuresElapsedSoFar(t *testing.T) {
	start := time.Now()
	m := New(start)
	snap := m.Snapshot(start.Add(5 * time.Second))
	if snap.DurationSeconds < 4.9 || snap.DurationSeconds > 5.1 {
		t.Fatalf("expected ~5s elapsed, got %f", snap.DurationSeconds)
	}
	if !snap.FinishedAt.IsZero() {
		t.Fatalf("expected zero FinishedAt before Finish is called")
	}
}

func TestFinishFixesDuration(t *testing.T) {
	start := time.Now()
	m := New(start)
	m.Finish(start.Add(2 * time.Second))

	snap := m.Snapshot(start.Add(100 * time.Second))
	if snap.DurationSeconds < 1.9 || snap.DurationSeconds > 2.1 {
		t.Fatalf("expected duration fixed at ~2s after Finish, got %f", snap.DurationSeconds)
	}
}
