package tui

import (
	"errors"
	"strings"
	"testing"

	"github.com/codescope/internal/domain"
	"github.com/codescope/internal/monitor"
)

func processingUpdate(progress int, message string) jobUpdateMsg {
	return jobUpdateMsg{update: monitor.Update{
		Kind: monitor.KindProgress,
		Job: domain.AnalysisJob{
			JobID:    "job-1",
			Status:   domain.StatusProcessing,
			Progress: progress,
			Message:  message,
		},
	}}
}

func TestDashboard_ProgressView(t *testing.T) {
	m := newDashboardModel("job-1")

	m, _ = m.Update(processingUpdate(40, "security agent running"))

	view := m.View()
	if !strings.Contains(view, "40%") {
		t.Errorf("view missing progress percent:\n%s", view)
	}
	if !strings.Contains(view, "security agent running") {
		t.Errorf("view missing status message:\n%s", view)
	}
}

func TestDashboard_CompletedShowsReport(t *testing.T) {
	m := newDashboardModel("job-1")

	result := &domain.AnalysisResult{
		JobID: "job-1",
		Summary: domain.Summary{
			TotalFiles:   2,
			TotalIssues:  3,
			OverallScore: 94,
		},
		Metrics: domain.Metrics{Security: 90, Performance: 96, CodeQuality: 97, Documentation: 100},
		TopIssues: []domain.Issue{
			{Title: "SQL injection risk", Severity: domain.SeverityHigh, FilePath: "db.py", Line: 42, Agent: "security"},
		},
	}

	m, _ = m.Update(jobUpdateMsg{update: monitor.Update{
		Kind:   monitor.KindCompleted,
		Job:    domain.AnalysisJob{JobID: "job-1", Status: domain.StatusCompleted, Progress: 100},
		Result: result,
	}})

	view := m.View()
	if !strings.Contains(view, "94") {
		t.Errorf("view missing overall score:\n%s", view)
	}
	if !strings.Contains(view, "SQL injection risk") {
		t.Errorf("view missing top issue:\n%s", view)
	}
}

func TestDashboard_FailedView(t *testing.T) {
	m := newDashboardModel("job-1")

	m, _ = m.Update(jobUpdateMsg{update: monitor.Update{
		Kind: monitor.KindFailed,
		Job: domain.AnalysisJob{
			JobID:   "job-1",
			Status:  domain.StatusFailed,
			Message: "backend worker crashed",
		},
	}})

	view := m.View()
	if !strings.Contains(view, "failed") {
		t.Errorf("view missing failure banner:\n%s", view)
	}
	if !strings.Contains(view, "backend worker crashed") {
		t.Errorf("view missing failure message:\n%s", view)
	}
}

func TestDashboard_ResultsErrorThenRefresh(t *testing.T) {
	m := newDashboardModel("job-1")

	m, _ = m.Update(jobUpdateMsg{update: monitor.Update{
		Kind: monitor.KindResultsError,
		Job:  domain.AnalysisJob{JobID: "job-1", Status: domain.StatusCompleted, Progress: 100},
		Err:  errors.New("results fetch timed out"),
	}})

	if view := m.View(); !strings.Contains(view, "fetching the report failed") {
		t.Errorf("view missing results-error banner:\n%s", view)
	}

	// A successful refresh replaces the error with the report wholesale.
	m, _ = m.Update(refreshedMsg{result: &domain.AnalysisResult{
		JobID:   "job-1",
		Summary: domain.Summary{OverallScore: 88, TotalFiles: 1},
	}})

	view := m.View()
	if strings.Contains(view, "fetching the report failed") {
		t.Errorf("stale error still shown after refresh:\n%s", view)
	}
	if !strings.Contains(view, "88") {
		t.Errorf("view missing refreshed score:\n%s", view)
	}
}
