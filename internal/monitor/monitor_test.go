// Package monitor provides unit tests for the job lifecycle monitor.
package monitor

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/codescope/internal/api"
	"github.com/codescope/internal/domain"
	"github.com/codescope/internal/logger"
)

// fakeBackend scripts status snapshots and counts results fetches.
type fakeBackend struct {
	mu        sync.Mutex
	snapshots []domain.AnalysisJob
	index     int

	statusErr    error
	resultsErr   error
	fetchCount   int32
	channelErr   error
	channel      *fakeChannel
	pushedEvents []api.ProgressEvent

	// autoProgress makes every status call report one percent more
	// than the last, so updates keep flowing indefinitely.
	autoProgress bool
	progress     int
}

func (f *fakeBackend) GetAnalysisStatus(ctx context.Context, jobID string) (*domain.AnalysisJob, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.statusErr != nil {
		return nil, f.statusErr
	}
	if f.autoProgress {
		f.progress++
		return &domain.AnalysisJob{JobID: jobID, Status: domain.StatusProcessing, Progress: f.progress}, nil
	}
	if len(f.snapshots) == 0 {
		return &domain.AnalysisJob{JobID: jobID, Status: domain.StatusPending}, nil
	}

	snapshot := f.snapshots[f.index]
	if f.index < len(f.snapshots)-1 {
		f.index++
	}
	return &snapshot, nil
}

func (f *fakeBackend) GetAnalysisResults(ctx context.Context, jobID string) (*domain.AnalysisResult, error) {
	atomic.AddInt32(&f.fetchCount, 1)
	if f.resultsErr != nil {
		return nil, f.resultsErr
	}
	return &domain.AnalysisResult{JobID: jobID}, nil
}

func (f *fakeBackend) OpenProgressChannel(ctx context.Context, jobID string, onEvent func(api.ProgressEvent), onError func(error)) (ProgressHandle, error) {
	if f.channelErr != nil {
		return nil, f.channelErr
	}
	ch := &fakeChannel{}
	f.mu.Lock()
	f.channel = ch
	f.mu.Unlock()

	go func() {
		for _, ev := range f.pushedEvents {
			select {
			case <-ctx.Done():
				return
			default:
				onEvent(ev)
			}
		}
	}()
	return ch, nil
}

type fakeChannel struct {
	closed atomic.Bool
}

func (c *fakeChannel) Close() { c.closed.Store(true) }

func collect(t *testing.T, updates <-chan Update, timeout time.Duration) []Update {
	t.Helper()

	var got []Update
	deadline := time.After(timeout)
	for {
		select {
		case u, ok := <-updates:
			if !ok {
				return got
			}
			got = append(got, u)
		case <-deadline:
			t.Fatalf("timed out collecting updates, got %d so far", len(got))
		}
	}
}

func TestMonitor_CompletedOnFirstSnapshot(t *testing.T) {
	backend := &fakeBackend{
		snapshots: []domain.AnalysisJob{
			{JobID: "job-1", Status: domain.StatusCompleted, Progress: 100},
		},
	}
	m := New(backend, "job-1", 10*time.Millisecond, logger.NewNop())

	updates := collect(t, m.Run(context.Background()), time.Second)

	if len(updates) != 1 || updates[0].Kind != KindCompleted {
		t.Fatalf("updates = %+v, want single KindCompleted", updates)
	}
	if updates[0].Result == nil {
		t.Error("completed update carries no result")
	}
	if got := atomic.LoadInt32(&backend.fetchCount); got != 1 {
		t.Errorf("results fetched %d times, want exactly 1", got)
	}
}

func TestMonitor_PollsToCompletion(t *testing.T) {
	backend := &fakeBackend{
		channelErr: domain.ErrTransport, // force polling-only fallback
		snapshots: []domain.AnalysisJob{
			{JobID: "job-1", Status: domain.StatusProcessing, Progress: 10},
			{JobID: "job-1", Status: domain.StatusProcessing, Progress: 60},
			{JobID: "job-1", Status: domain.StatusCompleted, Progress: 100},
		},
	}
	m := New(backend, "job-1", 5*time.Millisecond, logger.NewNop())

	updates := collect(t, m.Run(context.Background()), 2*time.Second)

	last := updates[len(updates)-1]
	if last.Kind != KindCompleted {
		t.Fatalf("last update kind = %v, want KindCompleted", last.Kind)
	}
	if got := atomic.LoadInt32(&backend.fetchCount); got != 1 {
		t.Errorf("results fetched %d times, want exactly 1", got)
	}
}

func TestMonitor_ProgressIsMonotonic(t *testing.T) {
	backend := &fakeBackend{
		channelErr: domain.ErrTransport,
		snapshots: []domain.AnalysisJob{
			{JobID: "job-1", Status: domain.StatusProcessing, Progress: 50},
			{JobID: "job-1", Status: domain.StatusProcessing, Progress: 30}, // stale
			{JobID: "job-1", Status: domain.StatusProcessing, Progress: 70},
			{JobID: "job-1", Status: domain.StatusCompleted, Progress: 100},
		},
	}
	m := New(backend, "job-1", 5*time.Millisecond, logger.NewNop())

	updates := collect(t, m.Run(context.Background()), 2*time.Second)

	prev := -1
	for _, u := range updates {
		if u.Job.Progress < prev {
			t.Errorf("progress regressed: %d after %d", u.Job.Progress, prev)
		}
		prev = u.Job.Progress
	}
}

func TestMonitor_FailureIsTerminal(t *testing.T) {
	backend := &fakeBackend{
		channelErr: domain.ErrTransport,
		snapshots: []domain.AnalysisJob{
			{JobID: "job-1", Status: domain.StatusFailed, Message: "analysis crashed"},
			{JobID: "job-1", Status: domain.StatusProcessing, Progress: 10}, // must never surface
		},
	}
	m := New(backend, "job-1", 5*time.Millisecond, logger.NewNop())

	updates := collect(t, m.Run(context.Background()), time.Second)

	last := updates[len(updates)-1]
	if last.Kind != KindFailed {
		t.Fatalf("last update kind = %v, want KindFailed", last.Kind)
	}
	if last.Job.Message != "analysis crashed" {
		t.Errorf("failure message = %q, want backend message", last.Job.Message)
	}
	if got := atomic.LoadInt32(&backend.fetchCount); got != 0 {
		t.Errorf("results fetched %d times after failure, want 0", got)
	}
}

func TestMonitor_ResultsErrorIsNonFatal(t *testing.T) {
	backend := &fakeBackend{
		snapshots: []domain.AnalysisJob{
			{JobID: "job-1", Status: domain.StatusCompleted, Progress: 100},
		},
		resultsErr: domain.WrapError("get_results", domain.ErrResultsFetch, true),
	}
	m := New(backend, "job-1", 5*time.Millisecond, logger.NewNop())

	updates := collect(t, m.Run(context.Background()), time.Second)

	last := updates[len(updates)-1]
	if last.Kind != KindResultsError {
		t.Fatalf("last update kind = %v, want KindResultsError", last.Kind)
	}
	// The job itself is still completed, not failed.
	if last.Job.Status != domain.StatusCompleted {
		t.Errorf("job status = %v, want completed", last.Job.Status)
	}

	// Refresh retries the fetch independently.
	backend.resultsErr = nil
	result, err := m.Refresh(context.Background())
	if err != nil || result == nil {
		t.Fatalf("Refresh() = %v, %v, want result", result, err)
	}
}

func TestMonitor_PushEventsDriveProgress(t *testing.T) {
	backend := &fakeBackend{
		snapshots: []domain.AnalysisJob{
			{JobID: "job-1", Status: domain.StatusProcessing, Progress: 5},
			{JobID: "job-1", Status: domain.StatusCompleted, Progress: 100},
		},
		pushedEvents: []api.ProgressEvent{
			{Type: "progress", Progress: 25, Message: "scanning"},
			{Type: "progress", Progress: 75, Message: "aggregating"},
		},
	}
	// Slow polling so pushed events land first.
	m := New(backend, "job-1", 50*time.Millisecond, logger.NewNop())

	updates := collect(t, m.Run(context.Background()), 2*time.Second)

	sawPush := false
	for _, u := range updates {
		if u.Kind == KindProgress && u.Job.Message == "aggregating" {
			sawPush = true
		}
	}
	if !sawPush {
		t.Error("push channel progress never surfaced")
	}
	if updates[len(updates)-1].Kind != KindCompleted {
		t.Errorf("job never completed via polling backstop")
	}
}

func TestMonitor_TeardownStopsAllUpdates(t *testing.T) {
	backend := &fakeBackend{
		channelErr:   domain.ErrTransport,
		autoProgress: true,
	}
	m := New(backend, "job-1", 5*time.Millisecond, logger.NewNop())

	ctx, cancel := context.WithCancel(context.Background())
	updates := m.Run(ctx)

	// Let the monitor produce at least one update, then tear down.
	select {
	case <-updates:
	case <-time.After(time.Second):
		t.Fatal("no update before teardown")
	}
	cancel()

	// The stream must close promptly; drain whatever was already
	// buffered before the cancel landed.
	deadline := time.After(200 * time.Millisecond)
	for {
		select {
		case _, ok := <-updates:
			if !ok {
				// Closed. Several poll intervals later the backend must
				// not have been polled again.
				backend.mu.Lock()
				settled := backend.progress
				backend.mu.Unlock()

				time.Sleep(50 * time.Millisecond)

				backend.mu.Lock()
				final := backend.progress
				backend.mu.Unlock()
				if final != settled {
					t.Errorf("backend polled after teardown: %d -> %d", settled, final)
				}
				return
			}
		case <-deadline:
			t.Fatal("update stream never closed after cancellation")
		}
	}
}

func TestMonitor_ClosesChannelOnCompletion(t *testing.T) {
	backend := &fakeBackend{
		snapshots: []domain.AnalysisJob{
			{JobID: "job-1", Status: domain.StatusProcessing, Progress: 10},
			{JobID: "job-1", Status: domain.StatusCompleted, Progress: 100},
		},
	}
	m := New(backend, "job-1", 5*time.Millisecond, logger.NewNop())

	collect(t, m.Run(context.Background()), 2*time.Second)

	backend.mu.Lock()
	ch := backend.channel
	backend.mu.Unlock()
	if ch == nil {
		t.Fatal("push channel was never opened")
	}
	if !ch.closed.Load() {
		t.Error("push channel not closed after terminal state")
	}
}

func TestMonitor_InitialStatusErrorIsTerminal(t *testing.T) {
	backend := &fakeBackend{
		statusErr: domain.WrapDetail("get_status", domain.ErrStatusFetch, "job not found", false),
	}
	m := New(backend, "missing", 5*time.Millisecond, logger.NewNop())

	updates := collect(t, m.Run(context.Background()), time.Second)

	if len(updates) != 1 || updates[0].Kind != KindFailed {
		t.Fatalf("updates = %+v, want single KindFailed", updates)
	}
	if updates[0].Job.Message != "job not found" {
		t.Errorf("message = %q, want backend detail", updates[0].Job.Message)
	}
}
