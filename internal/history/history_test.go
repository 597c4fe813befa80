// Package history provides unit tests for the local job history.
package history

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/codescope/internal/domain"
	"github.com/codescope/internal/logger"
)

func openTestStore(t *testing.T, maxEntries int) *Store {
	t.Helper()

	store, err := Open(filepath.Join(t.TempDir(), "history.db"), maxEntries, logger.NewNop())
	if err != nil {
		t.Fatalf("Open() error: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

func TestStore_RecordAndRecent(t *testing.T) {
	store := openTestStore(t, 10)

	if err := store.RecordStart("job-1", "src/ (3 files)"); err != nil {
		t.Fatalf("RecordStart() error: %v", err)
	}

	completed := time.Now()
	if err := store.RecordTerminal("job-1", domain.StatusCompleted, 88, 6, completed); err != nil {
		t.Fatalf("RecordTerminal() error: %v", err)
	}

	entries, err := store.Recent(10)
	if err != nil {
		t.Fatalf("Recent() error: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("Recent() returned %d entries, want 1", len(entries))
	}

	entry := entries[0]
	if entry.JobID != "job-1" || entry.Status != domain.StatusCompleted {
		t.Errorf("entry = %+v, want completed job-1", entry)
	}
	if entry.OverallScore != 88 || entry.TotalIssues != 6 {
		t.Errorf("entry scores = %d/%d, want 88/6", entry.OverallScore, entry.TotalIssues)
	}
	if entry.CompletedAt == nil {
		t.Error("CompletedAt not set on terminal entry")
	}
}

func TestStore_RejectsNonTerminalRecord(t *testing.T) {
	store := openTestStore(t, 10)

	if err := store.RecordTerminal("job-1", domain.StatusProcessing, 0, 0, time.Now()); err == nil {
		t.Error("RecordTerminal accepted a non-terminal status")
	}
}

func TestStore_PrunesOldest(t *testing.T) {
	store := openTestStore(t, 3)

	base := time.Now().Unix()
	for i, id := range []string{"a", "b", "c", "d", "e"} {
		// Distinct created_at values so pruning order is well-defined.
		_, err := store.db.Exec(
			`INSERT INTO jobs (job_id, input, status, created_at) VALUES (?, ?, ?, ?)`,
			id, "input", string(domain.StatusPending), base+int64(i),
		)
		if err != nil {
			t.Fatalf("insert: %v", err)
		}
	}
	store.prune()

	entries, err := store.Recent(10)
	if err != nil {
		t.Fatalf("Recent() error: %v", err)
	}
	if len(entries) != 3 {
		t.Fatalf("after prune %d entries remain, want 3", len(entries))
	}
	if entries[0].JobID != "e" || entries[2].JobID != "c" {
		t.Errorf("kept %v, want newest three (e,d,c)", entries)
	}
}

func TestStore_Get(t *testing.T) {
	store := openTestStore(t, 10)

	if err := store.RecordStart("job-7", "repo:github.com/acme/app"); err != nil {
		t.Fatalf("RecordStart() error: %v", err)
	}

	entry, err := store.Get("job-7")
	if err != nil {
		t.Fatalf("Get() error: %v", err)
	}
	if entry.Input != "repo:github.com/acme/app" {
		t.Errorf("Input = %q", entry.Input)
	}

	if _, err := store.Get("nope"); err == nil {
		t.Error("Get() found a job that was never recorded")
	}
}
