package tui

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/codescope/internal/domain"
)

// uploadModel renders the upload batch while it is in flight.
type uploadModel struct {
	spinner  spinner.Model
	items    []domain.UploadedItem
	warnings []string
	percent  int
	done     bool
	err      error
}

// newUploadModel seeds one uploading item per selected local path.
func newUploadModel(paths []string) uploadModel {
	sp := spinner.New()
	sp.Spinner = spinner.Dot

	items := make([]domain.UploadedItem, 0, len(paths))
	for _, path := range paths {
		items = append(items, domain.UploadedItem{
			ID:    path,
			Name:  filepath.Base(path),
			State: domain.UploadInProgress,
		})
	}

	return uploadModel{spinner: sp, items: items}
}

func (m uploadModel) Init() tea.Cmd {
	return m.spinner.Tick
}

func (m uploadModel) Update(msg tea.Msg) (uploadModel, tea.Cmd) {
	switch msg := msg.(type) {
	case uploadProgressMsg:
		m.percent = int(msg)
		for i := range m.items {
			m.items[i].Progress = m.percent
		}
		return m, nil

	case uploadDoneMsg:
		m.done = true
		m.percent = 100
		m.items = msg.resp.Files
		return m, nil

	case uploadErrMsg:
		m.err = msg.err
		for i := range m.items {
			m.items[i].State = domain.UploadError
		}
		return m, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}

	return m, nil
}

func (m uploadModel) View() string {
	var b strings.Builder

	b.WriteString(titleStyle.Render("Uploading files"))
	b.WriteString("\n\n")

	for _, item := range m.items {
		var marker string
		switch item.State {
		case domain.UploadCompleted:
			marker = okStyle.Render("✓")
		case domain.UploadError:
			marker = errorStyle.Render("✗")
		default:
			marker = m.spinner.View()
		}
		b.WriteString(fmt.Sprintf(" %s %s", marker, item.Name))
		if item.Size > 0 {
			b.WriteString(dimStyle.Render(fmt.Sprintf("  %s", formatSize(item.Size))))
		}
		b.WriteString("\n")
	}

	if len(m.warnings) > 0 {
		b.WriteString("\n")
		for _, warning := range m.warnings {
			b.WriteString(warnStyle.Render(" ! "+warning) + "\n")
		}
	}

	b.WriteString("\n")
	switch {
	case m.err != nil:
		b.WriteString(errorStyle.Render("upload failed: " + domain.UserMessage(m.err)))
	case m.done:
		b.WriteString(okStyle.Render("upload complete, starting analysis..."))
	default:
		b.WriteString(dimStyle.Render(fmt.Sprintf("%d%% sent", m.percent)))
	}
	b.WriteString("\n")

	return b.String()
}

func formatSize(size int64) string {
	switch {
	case size >= 1<<20:
		return fmt.Sprintf("%.1f MB", float64(size)/(1<<20))
	case size >= 1<<10:
		return fmt.Sprintf("%.1f KB", float64(size)/(1<<10))
	default:
		return fmt.Sprintf("%d B", size)
	}
}
