// Package domain contains the core domain models and types.
// These models represent the client-side view of the analysis service
// and are independent of any transport or presentation concerns.
package domain

import (
	"strings"
	"time"
)

// Severity represents the urgency bucket of an identified issue.
type Severity string

const (
	SeverityCritical Severity = "critical"
	SeverityHigh     Severity = "high"
	SeverityMedium   Severity = "medium"
	SeverityLow      Severity = "low"
)

// ParseSeverity normalizes a wire severity value. The backend is not
// consistent about casing, and unrecognized values must never fault:
// they bucket as the lowest severity.
func ParseSeverity(s string) Severity {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "critical":
		return SeverityCritical
	case "high":
		return SeverityHigh
	case "medium":
		return SeverityMedium
	default:
		return SeverityLow
	}
}

// Rank returns the sort weight of a severity: critical=4 down to low=1.
func (s Severity) Rank() int {
	switch s {
	case SeverityCritical:
		return 4
	case SeverityHigh:
		return 3
	case SeverityMedium:
		return 2
	default:
		return 1
	}
}

// JobStatus represents the lifecycle state of an analysis job.
type JobStatus string

const (
	StatusPending    JobStatus = "pending"
	StatusProcessing JobStatus = "processing"
	StatusCompleted  JobStatus = "completed"
	StatusFailed     JobStatus = "failed"
)

// ParseJobStatus normalizes a wire status value. Unknown values are
// treated as pending so a newer backend cannot wedge the client.
func ParseJobStatus(s string) JobStatus {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "processing", "running":
		return StatusProcessing
	case "completed":
		return StatusCompleted
	case "failed":
		return StatusFailed
	default:
		return StatusPending
	}
}

// Terminal reports whether the status is a terminal state.
func (s JobStatus) Terminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

// UploadState represents the lifecycle of a single uploaded file.
type UploadState string

const (
	UploadInProgress UploadState = "uploading"
	UploadCompleted  UploadState = "completed"
	UploadError      UploadState = "error"
)

// UploadedItem tracks one local file through the upload flow.
type UploadedItem struct {
	// ID uniquely identifies the item within the upload view.
	ID string

	// Name is the display name of the file.
	Name string

	// Size is the file size in bytes.
	Size int64

	// MIMEType is the detected content type, if any.
	MIMEType string

	// State is the upload lifecycle state.
	State UploadState

	// Progress is the upload progress in percent [0,100].
	Progress int

	// ServerPath is the backend-side path, set once the upload completes.
	ServerPath string
}

// UploadResponse is the outcome of a multi-file upload.
type UploadResponse struct {
	// Files are the uploaded items as acknowledged by the backend.
	Files []UploadedItem

	// UploadDir is the backend directory holding this upload batch.
	UploadDir string
}

// AnalysisJob is a point-in-time snapshot of one analysis run.
// Job identifiers are client-generated and must be unique within a
// session to avoid progress-channel and polling cross-talk.
type AnalysisJob struct {
	// JobID is the client-generated unique identifier.
	JobID string

	// InputPaths are the server-side file paths or a repository reference.
	InputPaths []string

	// Status is the lifecycle state. Transitions are monotonic:
	// pending -> processing -> {completed | failed}.
	Status JobStatus

	// Progress is in percent [0,100], non-decreasing while processing.
	Progress int

	// Message is the human-readable status line from the backend.
	Message string

	// StartTime is when the backend accepted the job.
	StartTime time.Time

	// CompletionTime is set once the job reaches a terminal state.
	CompletionTime *time.Time
}

// Issue is one finding reported by an analysis agent.
type Issue struct {
	Title       string
	Description string
	Severity    Severity

	// Agent names the backend analysis pass that produced the issue
	// (security, performance, complexity, documentation).
	Agent string

	// Line is the 1-based line number the issue points at, 0 if unknown.
	Line int

	// Fix is the suggested remediation, if the agent produced one.
	Fix string

	// FilePath is set when the issue overrides its file's path, and is
	// always populated on flattened top-issue lists.
	FilePath string
}

// FileResult holds the per-file analysis outcome.
type FileResult struct {
	FilePath   string
	Language   string
	LineCount  int
	Issues     []Issue
	IssueCount int
}

// Summary aggregates job-level totals for the dashboard.
type Summary struct {
	TotalFiles  int
	TotalIssues int

	// CriticalCount is derived client-side from the detailed issue
	// lists; the remaining subtotals come from the backend as-is.
	CriticalCount int
	HighCount     int
	MediumCount   int
	LowCount      int

	// AgentBreakdown maps normalized agent names to issue counts.
	AgentBreakdown map[string]int

	// OverallScore is a 0-100 display heuristic.
	OverallScore int
}

// Metrics are the four 0-100 display sub-scores.
type Metrics struct {
	Security      int
	Performance   int
	CodeQuality   int
	Documentation int
}

// AnalysisResult is the display-oriented aggregate for one completed
// job. It is derived exactly once per results fetch and immutable after
// creation; a refresh replaces it wholesale.
type AnalysisResult struct {
	JobID   string
	Summary Summary
	Metrics Metrics

	// Files holds the per-file results in backend order.
	Files []FileResult

	// TopIssues is every file's issues flattened and stable-sorted by
	// severity rank, descending.
	TopIssues []Issue

	// TotalTime is the wall-clock analysis duration.
	TotalTime time.Duration

	// CompletedAt is when the job finished.
	CompletedAt time.Time
}

// ChatRole identifies the author of a chat message.
type ChatRole string

const (
	RoleUser      ChatRole = "user"
	RoleAssistant ChatRole = "assistant"
)

// ChatSession is a conversational context, optionally scoped to an
// uploaded or cloned codebase. Sessions live only as long as the view.
type ChatSession struct {
	SessionID    string
	CodebaseInfo string
}

// ChatMessage is one entry in the append-only chat transcript.
type ChatMessage struct {
	ID        string
	Role      ChatRole
	Content   string
	CreatedAt time.Time
}

// ChatResponse is the assistant's full reply to one message. Replies
// arrive as a single payload; any typewriter reveal is local animation.
type ChatResponse struct {
	Content        string
	Confidence     float64
	Source         string
	ProcessingTime float64
	FollowUps      []string
	RelatedFiles   []string
}
