// Package report turns the backend's raw per-file analysis payload
// into the display-oriented aggregate model. The transform is a pure
// function: the same payload always yields an identical result.
package report

import (
	"sort"
	"strings"
	"time"

	"github.com/codescope/internal/domain"
)

// Wire shapes as the backend emits them. Field names follow the
// backend contract and are decoded verbatim before transformation.

// IssueRecord is one entry of a file's detailed_issues array.
type IssueRecord struct {
	Title       string `json:"title"`
	Severity    string `json:"severity"`
	Agent       string `json:"agent"`
	File        string `json:"file,omitempty"`
	Line        int    `json:"line"`
	Description string `json:"description"`
	Fix         string `json:"fix"`
}

// AgentPerformance is one entry of a file's agent performance array.
type AgentPerformance struct {
	Agent       string  `json:"agent"`
	IssuesFound int     `json:"issues_found"`
	Duration    float64 `json:"duration"`
}

// FileRecord is the backend's per-file result record. The backend
// reports high/medium/low subtotals but no critical subtotal; that one
// is recomputed here from the detailed issue list.
type FileRecord struct {
	FilePath         string             `json:"file_path"`
	Language         string             `json:"language"`
	LineCount        int                `json:"line_count"`
	IssuesFound      int                `json:"issues_found"`
	HighCount        int                `json:"high_count"`
	MediumCount      int                `json:"medium_count"`
	LowCount         int                `json:"low_count"`
	AgentBreakdown   map[string]int     `json:"agent_breakdown"`
	AgentPerformance []AgentPerformance `json:"agent_performance"`
	DetailedIssues   []IssueRecord      `json:"detailed_issues"`
	AnalysisTime     float64            `json:"analysis_time"`
}

// Score penalty coefficients per issue type. Deliberately simple
// display heuristics; the exact values are part of the compatibility
// contract with the original frontend.
const (
	overallPenalty       = 2
	securityPenalty      = 5
	performancePenalty   = 4
	codeQualityPenalty   = 3
	documentationPenalty = 2
)

// Canonical agent-breakdown keys after normalization.
const (
	AgentSecurity      = "security"
	AgentPerformanceK  = "performance"
	AgentComplexity    = "complexity"
	AgentDocumentation = "documentation"
)

// Build derives the immutable AnalysisResult from one results fetch.
func Build(jobID string, records []FileRecord, totalTime time.Duration, completedAt time.Time) *domain.AnalysisResult {
	summary := domain.Summary{
		TotalFiles:     len(records),
		AgentBreakdown: map[string]int{},
	}

	files := make([]domain.FileResult, 0, len(records))
	var flat []domain.Issue

	for _, rec := range records {
		summary.TotalIssues += rec.IssuesFound
		summary.HighCount += rec.HighCount
		summary.MediumCount += rec.MediumCount
		summary.LowCount += rec.LowCount

		issues := make([]domain.Issue, 0, len(rec.DetailedIssues))
		for _, raw := range rec.DetailedIssues {
			issue := domain.Issue{
				Title:       raw.Title,
				Description: raw.Description,
				Severity:    domain.ParseSeverity(raw.Severity),
				Agent:       raw.Agent,
				Line:        raw.Line,
				Fix:         raw.Fix,
				FilePath:    raw.File,
			}
			if issue.Severity == domain.SeverityCritical {
				summary.CriticalCount++
			}
			issues = append(issues, issue)

			// Flattened copy carries its owning file's path when the
			// issue itself does not override it.
			tagged := issue
			if tagged.FilePath == "" {
				tagged.FilePath = rec.FilePath
			}
			flat = append(flat, tagged)
		}

		files = append(files, domain.FileResult{
			FilePath:   rec.FilePath,
			Language:   rec.Language,
			LineCount:  rec.LineCount,
			Issues:     issues,
			IssueCount: rec.IssuesFound,
		})
	}

	// The backend reports a representative agent breakdown on every
	// file record; the first file's map is used as the job-level
	// figure. Known simplification inherited from the original
	// frontend, kept for compatibility (see DESIGN.md).
	if len(records) > 0 {
		summary.AgentBreakdown = normalizeAgentBreakdown(records[0].AgentBreakdown)
	}

	summary.OverallScore = clampScore(100 - overallPenalty*summary.TotalIssues)

	metrics := domain.Metrics{
		Security:      clampScore(100 - securityPenalty*summary.AgentBreakdown[AgentSecurity]),
		Performance:   clampScore(100 - performancePenalty*summary.AgentBreakdown[AgentPerformanceK]),
		CodeQuality:   clampScore(100 - codeQualityPenalty*summary.AgentBreakdown[AgentComplexity]),
		Documentation: clampScore(100 - documentationPenalty*summary.AgentBreakdown[AgentDocumentation]),
	}

	// Stable: equal severities keep backend encounter order.
	sort.SliceStable(flat, func(i, j int) bool {
		return flat[i].Severity.Rank() > flat[j].Severity.Rank()
	})

	return &domain.AnalysisResult{
		JobID:       jobID,
		Summary:     summary,
		Metrics:     metrics,
		Files:       files,
		TopIssues:   flat,
		TotalTime:   totalTime,
		CompletedAt: completedAt,
	}
}

// normalizeAgentBreakdown lowercases the backend's inconsistently
// cased agent keys once, at the transform boundary, so render sites
// never have to check both variants.
func normalizeAgentBreakdown(raw map[string]int) map[string]int {
	out := make(map[string]int, len(raw))
	for key, count := range raw {
		out[strings.ToLower(strings.TrimSpace(key))] += count
	}
	return out
}

func clampScore(score int) int {
	if score < 0 {
		return 0
	}
	return score
}
