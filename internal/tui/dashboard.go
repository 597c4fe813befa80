package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/progress"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/codescope/internal/domain"
	"github.com/codescope/internal/monitor"
)

// topIssueDisplayLimit bounds the dashboard issue list; the full set
// stays available per file.
const topIssueDisplayLimit = 10

// dashboardModel renders one job from submission to report.
type dashboardModel struct {
	bar        progress.Model
	job        domain.AnalysisJob
	result     *domain.AnalysisResult
	resultsErr error
	width      int
}

func newDashboardModel(jobID string) dashboardModel {
	bar := progress.New(progress.WithDefaultGradient())
	return dashboardModel{
		bar: bar,
		job: domain.AnalysisJob{JobID: jobID, Status: domain.StatusPending},
	}
}

func (m dashboardModel) Update(msg tea.Msg) (dashboardModel, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.bar.Width = min(msg.Width-36, 60)
		return m, nil

	case jobUpdateMsg:
		m.job = msg.update.Job
		switch msg.update.Kind {
		case monitor.KindCompleted:
			m.result = msg.update.Result
			m.resultsErr = nil
		case monitor.KindResultsError:
			m.resultsErr = msg.update.Err
		}
		return m, nil

	case refreshedMsg:
		if msg.err != nil {
			m.resultsErr = msg.err
			return m, nil
		}
		// Wholesale replacement, never a merge.
		m.result = msg.result
		m.resultsErr = nil
		return m, nil
	}

	return m, nil
}

func (m dashboardModel) View() string {
	switch {
	case m.job.Status == domain.StatusFailed:
		return m.viewFailed()
	case m.result != nil:
		return m.viewReport()
	case m.resultsErr != nil:
		return m.viewResultsError()
	default:
		return m.viewProgress()
	}
}

func (m dashboardModel) viewProgress() string {
	var b strings.Builder

	b.WriteString(titleStyle.Render("Analysis in progress"))
	b.WriteString("\n\n")
	b.WriteString(fmt.Sprintf(" job %s\n\n", dimStyle.Render(m.job.JobID)))
	b.WriteString(" " + m.bar.ViewAs(float64(m.job.Progress)/100))
	b.WriteString(fmt.Sprintf(" %d%%\n", m.job.Progress))
	if m.job.Message != "" {
		b.WriteString("\n " + dimStyle.Render(m.job.Message) + "\n")
	}

	return b.String()
}

func (m dashboardModel) viewFailed() string {
	var b strings.Builder

	b.WriteString(errorStyle.Render("Analysis failed"))
	b.WriteString("\n\n")
	if m.job.Message != "" {
		b.WriteString(" " + m.job.Message + "\n")
	}
	b.WriteString("\n" + dimStyle.Render(" q quit") + "\n")

	return b.String()
}

func (m dashboardModel) viewResultsError() string {
	var b strings.Builder

	b.WriteString(warnStyle.Render("Analysis completed, but fetching the report failed"))
	b.WriteString("\n\n")
	b.WriteString(" " + domain.UserMessage(m.resultsErr) + "\n")
	b.WriteString("\n" + dimStyle.Render(" r retry fetch · q quit") + "\n")

	return b.String()
}

func (m dashboardModel) viewReport() string {
	r := m.result
	var b strings.Builder

	b.WriteString(titleStyle.Render("Analysis report"))
	b.WriteString(dimStyle.Render(fmt.Sprintf("  %s · %d files · %s",
		r.JobID, r.Summary.TotalFiles, r.TotalTime.Round(100*time.Millisecond))))
	b.WriteString("\n\n")

	score := r.Summary.OverallScore
	b.WriteString(fmt.Sprintf(" Overall %s    Issues %d  (", scoreStyle(score).Render(fmt.Sprintf("%3d", score)), r.Summary.TotalIssues))
	b.WriteString(severityStyle(domain.SeverityCritical).Render(fmt.Sprintf("%d critical", r.Summary.CriticalCount)))
	b.WriteString(fmt.Sprintf(", %d high, %d medium, %d low)\n\n",
		r.Summary.HighCount, r.Summary.MediumCount, r.Summary.LowCount))

	b.WriteString(" " + renderMetric("Security", r.Metrics.Security))
	b.WriteString("  " + renderMetric("Performance", r.Metrics.Performance))
	b.WriteString("  " + renderMetric("Code quality", r.Metrics.CodeQuality))
	b.WriteString("  " + renderMetric("Docs", r.Metrics.Documentation))
	b.WriteString("\n\n")

	if len(r.TopIssues) > 0 {
		b.WriteString(lipgloss.NewStyle().Bold(true).Render(" Top issues"))
		b.WriteString("\n")
		limit := min(len(r.TopIssues), topIssueDisplayLimit)
		for _, issue := range r.TopIssues[:limit] {
			b.WriteString(fmt.Sprintf("  %s %s",
				severityStyle(issue.Severity).Render(fmt.Sprintf("%-8s", issue.Severity)),
				issue.Title))
			b.WriteString(dimStyle.Render(fmt.Sprintf("  %s:%d · %s", issue.FilePath, issue.Line, issue.Agent)))
			b.WriteString("\n")
		}
		if len(r.TopIssues) > limit {
			b.WriteString(dimStyle.Render(fmt.Sprintf("  … %d more\n", len(r.TopIssues)-limit)))
		}
		b.WriteString("\n")
	}

	b.WriteString(lipgloss.NewStyle().Bold(true).Render(" Files"))
	b.WriteString("\n")
	for _, file := range r.Files {
		b.WriteString(fmt.Sprintf("  %-40s %s %5d lines  %d issues\n",
			file.FilePath, dimStyle.Render(file.Language), file.LineCount, file.IssueCount))
	}

	b.WriteString("\n" + dimStyle.Render(" c chat · r refresh · q quit") + "\n")

	return b.String()
}

func renderMetric(label string, score int) string {
	return fmt.Sprintf("%s %s", label, scoreStyle(score).Render(fmt.Sprintf("%d", score)))
}
