// Package report provides unit tests for the result transform.
package report

import (
	"reflect"
	"testing"
	"time"

	"github.com/codescope/internal/domain"
)

func sampleRecords() []FileRecord {
	return []FileRecord{
		{
			FilePath:    "src/main.py",
			Language:    "python",
			LineCount:   240,
			IssuesFound: 4,
			HighCount:   1,
			MediumCount: 1,
			LowCount:    1,
			AgentBreakdown: map[string]int{
				"Security":      2,
				"performance":   1,
				"Complexity":    1,
				"documentation": 0,
			},
			DetailedIssues: []IssueRecord{
				{Title: "SQL injection", Severity: "CRITICAL", Agent: "security", Line: 42},
				{Title: "Hardcoded secret", Severity: "high", Agent: "security", Line: 10},
				{Title: "N+1 query", Severity: "medium", Agent: "performance", Line: 88},
				{Title: "Missing docstring", Severity: "info", Agent: "documentation", Line: 1},
			},
		},
		{
			FilePath:    "src/util.py",
			Language:    "python",
			LineCount:   80,
			IssuesFound: 2,
			HighCount:   0,
			MediumCount: 2,
			LowCount:    0,
			AgentBreakdown: map[string]int{
				// Present on every record, but only the first file's map
				// feeds the job-level breakdown.
				"security": 9,
			},
			DetailedIssues: []IssueRecord{
				{Title: "Deep nesting", Severity: "medium", Agent: "complexity", Line: 12},
				{Title: "Long function", Severity: "medium", Agent: "complexity", Line: 30},
			},
		},
	}
}

func TestBuild_SummaryTotals(t *testing.T) {
	result := Build("job-1", sampleRecords(), 3*time.Second, time.Unix(1700000000, 0))

	if result.Summary.TotalFiles != 2 {
		t.Errorf("TotalFiles = %d, want 2", result.Summary.TotalFiles)
	}
	if result.Summary.TotalIssues != 6 {
		t.Errorf("TotalIssues = %d, want 6", result.Summary.TotalIssues)
	}

	// Critical is recomputed from detailed issues, case-insensitively;
	// high/medium/low come from the backend subtotals as-is.
	if result.Summary.CriticalCount != 1 {
		t.Errorf("CriticalCount = %d, want 1", result.Summary.CriticalCount)
	}
	if result.Summary.HighCount != 1 {
		t.Errorf("HighCount = %d, want 1", result.Summary.HighCount)
	}
	if result.Summary.MediumCount != 3 {
		t.Errorf("MediumCount = %d, want 3", result.Summary.MediumCount)
	}
	if result.Summary.LowCount != 1 {
		t.Errorf("LowCount = %d, want 1", result.Summary.LowCount)
	}
}

func TestBuild_AgentBreakdownFromFirstFile(t *testing.T) {
	result := Build("job-1", sampleRecords(), 0, time.Time{})

	want := map[string]int{
		"security":      2,
		"performance":   1,
		"complexity":    1,
		"documentation": 0,
	}
	if !reflect.DeepEqual(result.Summary.AgentBreakdown, want) {
		t.Errorf("AgentBreakdown = %v, want %v", result.Summary.AgentBreakdown, want)
	}
}

func TestBuild_Scores(t *testing.T) {
	result := Build("job-1", sampleRecords(), 0, time.Time{})

	// overall = 100 - 2*6, security = 100 - 5*2, performance = 100 - 4*1,
	// codeQuality = 100 - 3*1, documentation = 100 - 2*0.
	if result.Summary.OverallScore != 88 {
		t.Errorf("OverallScore = %d, want 88", result.Summary.OverallScore)
	}
	if result.Metrics.Security != 90 {
		t.Errorf("Security = %d, want 90", result.Metrics.Security)
	}
	if result.Metrics.Performance != 96 {
		t.Errorf("Performance = %d, want 96", result.Metrics.Performance)
	}
	if result.Metrics.CodeQuality != 97 {
		t.Errorf("CodeQuality = %d, want 97", result.Metrics.CodeQuality)
	}
	if result.Metrics.Documentation != 100 {
		t.Errorf("Documentation = %d, want 100", result.Metrics.Documentation)
	}
}

func TestBuild_ScoresClampAtZero(t *testing.T) {
	records := []FileRecord{
		{
			FilePath:       "big.go",
			IssuesFound:    60,
			AgentBreakdown: map[string]int{"security": 25},
		},
	}

	result := Build("job-1", records, 0, time.Time{})

	if result.Summary.OverallScore != 0 {
		t.Errorf("OverallScore = %d, want 0 (clamped)", result.Summary.OverallScore)
	}
	if result.Metrics.Security != 0 {
		t.Errorf("Security = %d, want 0 (clamped)", result.Metrics.Security)
	}
}

func TestBuild_ScoreFormulaExamples(t *testing.T) {
	// totalIssues=10 must score exactly 80.
	records := []FileRecord{{FilePath: "a.go", IssuesFound: 10}}
	result := Build("job-1", records, 0, time.Time{})
	if result.Summary.OverallScore != 80 {
		t.Errorf("OverallScore = %d, want 80", result.Summary.OverallScore)
	}
}

func TestBuild_TopIssuesStableSeveritySort(t *testing.T) {
	records := []FileRecord{
		{
			FilePath: "a.go",
			DetailedIssues: []IssueRecord{
				{Title: "low-1", Severity: "low"},
				{Title: "high-1", Severity: "high"},
				{Title: "medium-1", Severity: "medium"},
			},
		},
		{
			FilePath: "b.go",
			DetailedIssues: []IssueRecord{
				{Title: "high-2", Severity: "High"},
				{Title: "critical-1", Severity: "critical"},
				{Title: "weird", Severity: "banana"}, // unknown ranks as low
			},
		},
	}

	result := Build("job-1", records, 0, time.Time{})

	gotTitles := make([]string, 0, len(result.TopIssues))
	for _, issue := range result.TopIssues {
		gotTitles = append(gotTitles, issue.Title)
	}

	// Severity descending; ties keep encounter order (high-1 before
	// high-2, low-1 before weird).
	want := []string{"critical-1", "high-1", "high-2", "medium-1", "low-1", "weird"}
	if !reflect.DeepEqual(gotTitles, want) {
		t.Errorf("TopIssues order = %v, want %v", gotTitles, want)
	}
}

func TestBuild_TopIssuesTaggedWithFilePath(t *testing.T) {
	records := []FileRecord{
		{
			FilePath: "pkg/app.go",
			DetailedIssues: []IssueRecord{
				{Title: "untagged", Severity: "low"},
				{Title: "override", Severity: "low", File: "pkg/other.go"},
			},
		},
	}

	result := Build("job-1", records, 0, time.Time{})

	if got := result.TopIssues[0].FilePath; got != "pkg/app.go" {
		t.Errorf("untagged issue FilePath = %q, want owning file path", got)
	}
	if got := result.TopIssues[1].FilePath; got != "pkg/other.go" {
		t.Errorf("override issue FilePath = %q, want explicit override kept", got)
	}

	// The per-file issue list keeps the raw override semantics.
	if got := result.Files[0].Issues[0].FilePath; got != "" {
		t.Errorf("per-file issue FilePath = %q, want empty", got)
	}
}

func TestBuild_Deterministic(t *testing.T) {
	completed := time.Unix(1700000000, 0)

	first := Build("job-1", sampleRecords(), 5*time.Second, completed)
	second := Build("job-1", sampleRecords(), 5*time.Second, completed)

	if !reflect.DeepEqual(first, second) {
		t.Error("Build is not deterministic for identical payloads")
	}
}

func TestBuild_EmptyPayload(t *testing.T) {
	result := Build("job-1", nil, 0, time.Time{})

	if result.Summary.TotalFiles != 0 || result.Summary.TotalIssues != 0 {
		t.Errorf("empty payload produced totals %+v", result.Summary)
	}
	if result.Summary.OverallScore != 100 {
		t.Errorf("OverallScore = %d, want 100 for no issues", result.Summary.OverallScore)
	}
	if len(result.TopIssues) != 0 {
		t.Errorf("TopIssues = %v, want empty", result.TopIssues)
	}
}

func TestParseSeverity_UnknownBucketsAsLow(t *testing.T) {
	tests := []struct {
		in   string
		want domain.Severity
	}{
		{"critical", domain.SeverityCritical},
		{"Critical", domain.SeverityCritical},
		{"HIGH", domain.SeverityHigh},
		{" medium ", domain.SeverityMedium},
		{"low", domain.SeverityLow},
		{"", domain.SeverityLow},
		{"blocker", domain.SeverityLow},
	}

	for _, tt := range tests {
		if got := domain.ParseSeverity(tt.in); got != tt.want {
			t.Errorf("ParseSeverity(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
