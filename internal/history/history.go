// Package history keeps a small local record of analysis jobs so the
// sidebar can list recent runs and a completed job's report can be
// re-entered after a restart. Chat sessions are deliberately not
// persisted; they live only as long as their view.
package history

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/codescope/internal/domain"
	"go.uber.org/zap"

	_ "github.com/ncruces/go-sqlite3/driver"
	_ "github.com/ncruces/go-sqlite3/embed"
)

// Entry is one recorded job.
type Entry struct {
	JobID        string
	Input        string
	Status       domain.JobStatus
	OverallScore int
	TotalIssues  int
	CreatedAt    time.Time
	CompletedAt  *time.Time
}

// Store is the sqlite-backed job history.
type Store struct {
	db         *sql.DB
	maxEntries int
	logger     *zap.Logger
}

// Open opens (or creates) the history database at path.
func Open(path string, maxEntries int, logger *zap.Logger) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, fmt.Errorf("creating history directory: %w", err)
	}

	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("opening history database: %w", err)
	}

	// Single connection; sqlite does the locking.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA busy_timeout=5000",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("executing %s: %w", pragma, err)
		}
	}

	store := &Store{
		db:         db,
		maxEntries: maxEntries,
		logger:     logger.Named("history"),
	}
	if err := store.initSchema(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("initializing history schema: %w", err)
	}

	return store, nil
}

func (s *Store) initSchema() error {
	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS jobs (
			job_id        TEXT PRIMARY KEY,
			input         TEXT NOT NULL,
			status        TEXT NOT NULL,
			overall_score INTEGER NOT NULL DEFAULT 0,
			total_issues  INTEGER NOT NULL DEFAULT 0,
			created_at    INTEGER NOT NULL,
			completed_at  INTEGER
		);
		CREATE INDEX IF NOT EXISTS idx_jobs_created ON jobs(created_at DESC);
	`)
	return err
}

// Close releases the database.
func (s *Store) Close() error {
	return s.db.Close()
}

// RecordStart inserts a freshly submitted job.
func (s *Store) RecordStart(jobID, input string) error {
	_, err := s.db.Exec(
		`INSERT OR REPLACE INTO jobs (job_id, input, status, created_at) VALUES (?, ?, ?, ?)`,
		jobID, input, string(domain.StatusPending), time.Now().Unix(),
	)
	if err != nil {
		return fmt.Errorf("recording job start: %w", err)
	}
	s.prune()
	return nil
}

// RecordTerminal updates a job that reached a terminal state.
func (s *Store) RecordTerminal(jobID string, status domain.JobStatus, score, issues int, completedAt time.Time) error {
	if !status.Terminal() {
		return fmt.Errorf("recording non-terminal status %q", status)
	}
	_, err := s.db.Exec(
		`UPDATE jobs SET status = ?, overall_score = ?, total_issues = ?, completed_at = ? WHERE job_id = ?`,
		string(status), score, issues, completedAt.Unix(), jobID,
	)
	if err != nil {
		return fmt.Errorf("recording job completion: %w", err)
	}
	return nil
}

// Recent returns the newest entries, most recent first.
func (s *Store) Recent(limit int) ([]Entry, error) {
	if limit <= 0 || limit > s.maxEntries {
		limit = s.maxEntries
	}

	rows, err := s.db.Query(
		`SELECT job_id, input, status, overall_score, total_issues, created_at, completed_at
		 FROM jobs ORDER BY created_at DESC, job_id LIMIT ?`, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("querying history: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var (
			entry     Entry
			status    string
			created   int64
			completed sql.NullInt64
		)
		if err := rows.Scan(&entry.JobID, &entry.Input, &status, &entry.OverallScore,
			&entry.TotalIssues, &created, &completed); err != nil {
			return nil, fmt.Errorf("scanning history row: %w", err)
		}
		entry.Status = domain.JobStatus(status)
		entry.CreatedAt = time.Unix(created, 0)
		if completed.Valid {
			t := time.Unix(completed.Int64, 0)
			entry.CompletedAt = &t
		}
		entries = append(entries, entry)
	}
	return entries, rows.Err()
}

// Get looks up one job by id.
func (s *Store) Get(jobID string) (*Entry, error) {
	rows, err := s.Recent(s.maxEntries)
	if err != nil {
		return nil, err
	}
	for i := range rows {
		if rows[i].JobID == jobID {
			return &rows[i], nil
		}
	}
	return nil, fmt.Errorf("job %s not in history", jobID)
}

// prune drops the oldest rows beyond the retention cap. Failures are
// logged and ignored; history is best-effort.
func (s *Store) prune() {
	_, err := s.db.Exec(
		`DELETE FROM jobs WHERE job_id NOT IN (
			SELECT job_id FROM jobs ORDER BY created_at DESC, job_id LIMIT ?
		)`, s.maxEntries,
	)
	if err != nil {
		s.logger.Warn("history prune failed", zap.Error(err))
	}
}
