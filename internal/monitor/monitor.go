// Package monitor orchestrates the lifecycle of one analysis job from
// submission to terminal state. It reconciles two producers of the
// same monotonic status record, a WebSocket push channel and an
// interval polling backstop, and guarantees that no update is emitted
// after teardown.
package monitor

import (
	"context"
	"time"

	"github.com/codescope/internal/api"
	"github.com/codescope/internal/domain"
	"go.uber.org/zap"
)

// ProgressHandle is the closeable side of an open push channel.
type ProgressHandle interface {
	Close()
}

// Backend is the slice of the API client the monitor needs. Accepting
// an interface keeps the lifecycle testable against fakes.
type Backend interface {
	GetAnalysisStatus(ctx context.Context, jobID string) (*domain.AnalysisJob, error)
	GetAnalysisResults(ctx context.Context, jobID string) (*domain.AnalysisResult, error)
	OpenProgressChannel(ctx context.Context, jobID string, onEvent func(api.ProgressEvent), onError func(error)) (ProgressHandle, error)
}

// Kind classifies an Update.
type Kind int

const (
	// KindProgress reports a non-terminal status change.
	KindProgress Kind = iota

	// KindCompleted reports the terminal completed state; Result is
	// set when the results fetch succeeded.
	KindCompleted

	// KindFailed reports the terminal failed state with the backend's
	// failure message on the job snapshot.
	KindFailed

	// KindResultsError reports a failed results fetch after a
	// completed job. The job itself is still completed; the fetch is
	// retryable via Refresh.
	KindResultsError
)

// Update is one observation the monitor hands to its owning view.
type Update struct {
	Kind   Kind
	Job    domain.AnalysisJob
	Result *domain.AnalysisResult
	Err    error
}

// Monitor tracks exactly one job. Construct one per dashboard view
// instance; it must not be shared.
type Monitor struct {
	backend      Backend
	jobID        string
	pollInterval time.Duration
	resultsTO    time.Duration
	logger       *zap.Logger

	// current is only touched by the run goroutine.
	current domain.AnalysisJob
	fetched bool
}

// Option configures a Monitor.
type Option func(*Monitor)

// WithResultsTimeout bounds the post-completion results fetch.
func WithResultsTimeout(d time.Duration) Option {
	return func(m *Monitor) { m.resultsTO = d }
}

// New creates a monitor for one job.
func New(backend Backend, jobID string, pollInterval time.Duration, logger *zap.Logger, opts ...Option) *Monitor {
	m := &Monitor{
		backend:      backend,
		jobID:        jobID,
		pollInterval: pollInterval,
		resultsTO:    30 * time.Second,
		logger:       logger.Named("monitor").With(zap.String("job_id", jobID)),
		current: domain.AnalysisJob{
			JobID:  jobID,
			Status: domain.StatusPending,
		},
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// NewForClient creates a monitor backed by the real API client.
func NewForClient(client *api.Client, jobID string, pollInterval time.Duration, logger *zap.Logger, opts ...Option) *Monitor {
	return New(clientBackend{client}, jobID, pollInterval, logger, opts...)
}

// Run drives the job to a terminal state and returns the update
// stream. The stream is closed when the job is done or the context is
// cancelled; after cancellation no further update is emitted.
func (m *Monitor) Run(ctx context.Context) <-chan Update {
	updates := make(chan Update, 8)
	go m.run(ctx, updates)
	return updates
}

// Refresh re-fetches and re-derives the result wholesale. It is the
// user-triggered idempotent re-fetch for a completed job.
func (m *Monitor) Refresh(ctx context.Context) (*domain.AnalysisResult, error) {
	ctx, cancel := context.WithTimeout(ctx, m.resultsTO)
	defer cancel()
	return m.backend.GetAnalysisResults(ctx, m.jobID)
}

func (m *Monitor) run(ctx context.Context, updates chan<- Update) {
	defer close(updates)

	// Step 1: initial snapshot. A job may have completed between page
	// loads, in which case monitoring collapses to one results fetch.
	snapshot, err := m.backend.GetAnalysisStatus(ctx, m.jobID)
	if err != nil {
		if ctx.Err() != nil {
			return
		}
		// Unknown job or persistent backend error: terminal.
		m.logger.Warn("initial status fetch failed", zap.Error(err))
		m.current.Status = domain.StatusFailed
		m.current.Message = domain.UserMessage(err)
		m.emit(ctx, updates, Update{Kind: KindFailed, Job: m.current, Err: err})
		return
	}

	if done := m.apply(ctx, updates, snapshot); done {
		return
	}

	// Step 2: push channel plus polling backstop. Both report the same
	// monotonic record; the reducer reconciles them. A failed dial is
	// only logged because polling covers for the channel.
	events := make(chan api.ProgressEvent, 16)
	handle, chErr := m.backend.OpenProgressChannel(ctx, m.jobID,
		func(ev api.ProgressEvent) {
			select {
			case events <- ev:
			case <-ctx.Done():
			}
		},
		func(err error) {
			m.logger.Debug("push channel failed, polling continues", zap.Error(err))
		},
	)
	if chErr != nil {
		m.logger.Debug("push channel unavailable, polling only", zap.Error(chErr))
	} else {
		defer handle.Close()
	}

	ticker := time.NewTicker(m.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return

		case ev := <-events:
			snapshot := m.current
			snapshot.Status = domain.StatusProcessing
			snapshot.Progress = int(ev.Progress)
			snapshot.Message = ev.Message
			if done := m.apply(ctx, updates, &snapshot); done {
				return
			}

		case <-ticker.C:
			snapshot, err := m.backend.GetAnalysisStatus(ctx, m.jobID)
			if err != nil {
				// Polling is self-healing: swallow and retry next tick.
				m.logger.Debug("status poll failed", zap.Error(err))
				continue
			}
			if done := m.apply(ctx, updates, snapshot); done {
				return
			}
		}
	}
}

// apply is the reducer: last write wins under a monotonic guard. It
// returns true when the job reached a terminal state and monitoring
// must stop.
func (m *Monitor) apply(ctx context.Context, updates chan<- Update, snapshot *domain.AnalysisJob) bool {
	// No transition ever leaves a terminal state.
	if m.current.Status.Terminal() {
		return true
	}

	changed := false

	if snapshot.Status != m.current.Status {
		// pending may not reappear after processing.
		if !(m.current.Status == domain.StatusProcessing && snapshot.Status == domain.StatusPending) {
			m.current.Status = snapshot.Status
			changed = true
		}
	}

	// Progress is non-decreasing while processing.
	if snapshot.Progress > m.current.Progress {
		m.current.Progress = snapshot.Progress
		changed = true
	}

	if snapshot.Message != "" && snapshot.Message != m.current.Message {
		m.current.Message = snapshot.Message
		changed = true
	}

	if !snapshot.StartTime.IsZero() {
		m.current.StartTime = snapshot.StartTime
	}
	if snapshot.CompletionTime != nil {
		m.current.CompletionTime = snapshot.CompletionTime
	}

	switch m.current.Status {
	case domain.StatusFailed:
		m.logger.Info("job failed", zap.String("message", m.current.Message))
		m.emit(ctx, updates, Update{Kind: KindFailed, Job: m.current})
		return true

	case domain.StatusCompleted:
		m.logger.Info("job completed", zap.Int("progress", m.current.Progress))
		m.fetchResults(ctx, updates)
		return true

	default:
		if changed {
			m.emit(ctx, updates, Update{Kind: KindProgress, Job: m.current})
		}
		return false
	}
}

// fetchResults performs the exactly-once post-completion fetch. A
// fetch failure is a non-fatal results error: the job is still
// completed and the fetch can be retried via Refresh.
func (m *Monitor) fetchResults(ctx context.Context, updates chan<- Update) {
	if m.fetched {
		return
	}
	m.fetched = true

	fetchCtx, cancel := context.WithTimeout(ctx, m.resultsTO)
	defer cancel()

	result, err := m.backend.GetAnalysisResults(fetchCtx, m.jobID)
	if err != nil {
		m.logger.Warn("results fetch failed", zap.Error(err))
		m.emit(ctx, updates, Update{Kind: KindResultsError, Job: m.current, Err: err})
		return
	}

	m.emit(ctx, updates, Update{Kind: KindCompleted, Job: m.current, Result: result})
}

// emit delivers an update unless the owner is already gone.
func (m *Monitor) emit(ctx context.Context, updates chan<- Update, u Update) {
	select {
	case updates <- u:
	case <-ctx.Done():
	}
}

// clientBackend adapts *api.Client to the Backend interface; the
// concrete progress channel type narrows to ProgressHandle here.
type clientBackend struct {
	client *api.Client
}

func (b clientBackend) GetAnalysisStatus(ctx context.Context, jobID string) (*domain.AnalysisJob, error) {
	return b.client.GetAnalysisStatus(ctx, jobID)
}

func (b clientBackend) GetAnalysisResults(ctx context.Context, jobID string) (*domain.AnalysisResult, error) {
	return b.client.GetAnalysisResults(ctx, jobID)
}

func (b clientBackend) OpenProgressChannel(ctx context.Context, jobID string, onEvent func(api.ProgressEvent), onError func(error)) (ProgressHandle, error) {
	ch, err := b.client.OpenProgressChannel(ctx, jobID, onEvent, onError)
	if err != nil {
		return nil, err
	}
	return ch, nil
}
