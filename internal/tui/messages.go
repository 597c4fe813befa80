// Package tui contains the terminal views: upload, dashboard, chat
// and the recent-jobs sidebar. Views are presentation only; all job
// lifecycle logic stays in the monitor and all network calls in the
// API client.
package tui

import (
	"github.com/codescope/internal/domain"
	"github.com/codescope/internal/history"
	"github.com/codescope/internal/monitor"
)

// uploadProgressMsg reports overall upload percent.
type uploadProgressMsg int

// uploadDoneMsg carries the completed upload batch.
type uploadDoneMsg struct {
	resp *domain.UploadResponse
}

// uploadErrMsg reports a failed upload.
type uploadErrMsg struct {
	err error
}

// analysisStartedMsg reports a submitted job.
type analysisStartedMsg struct {
	jobID string
}

// jobUpdateMsg wraps one monitor update.
type jobUpdateMsg struct {
	update monitor.Update
}

// jobStreamClosedMsg signals the monitor's update stream ended.
type jobStreamClosedMsg struct{}

// refreshedMsg carries a wholesale re-fetched result.
type refreshedMsg struct {
	result *domain.AnalysisResult
	err    error
}

// chatSessionMsg reports an opened chat session.
type chatSessionMsg struct {
	session *domain.ChatSession
	err     error
}

// chatReplyMsg carries one full assistant reply. Replies always
// arrive whole; the view reveals them with typingTickMsg.
type chatReplyMsg struct {
	reply *domain.ChatResponse
	err   error
}

// typingTickMsg advances the local reveal animation.
type typingTickMsg struct{}

// historyLoadedMsg delivers the sidebar's recent-job entries.
type historyLoadedMsg struct {
	entries []history.Entry
}

// errMsg is a generic surfaced error for the status line.
type errMsg struct {
	err error
}
