package tui

import (
	"context"
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/codescope/internal/api"
	"github.com/codescope/internal/config"
	"github.com/codescope/internal/domain"
	"github.com/codescope/internal/history"
	"github.com/codescope/internal/monitor"
)

// view identifies the active main pane.
type view int

const (
	viewUpload view = iota
	viewDashboard
	viewChat
)

// App is the root model. It owns the client, the job monitor lifecycle
// and the history store; the sub-views are presentation only and talk
// back through messages.
type App struct {
	cfg    *config.Config
	client *api.Client
	store  *history.Store
	logger *zap.Logger

	paths []string
	jobID string

	activeView view
	upload     uploadModel
	dashboard  dashboardModel
	chat       chatModel

	// sidebar
	entries  []history.Entry
	selected int

	uploadDir string

	mon           *monitor.Monitor
	monitorCancel context.CancelFunc
	updates       <-chan monitor.Update
	uploadEvents  <-chan tea.Msg

	width  int
	height int
	status string
}

// NewApp builds the root model for a fresh analysis of local paths.
// The store may be nil when history is unavailable.
func NewApp(cfg *config.Config, client *api.Client, store *history.Store, logger *zap.Logger, paths []string) *App {
	return &App{
		cfg:        cfg,
		client:     client,
		store:      store,
		logger:     logger.Named("tui"),
		paths:      paths,
		jobID:      uuid.NewString(),
		activeView: viewUpload,
		upload:     newUploadModel(paths),
		chat:       newChatModel(cfg.Chat.TypingInterval),
	}
}

// NewAppForJob builds the root model attached to an existing job,
// skipping the upload flow. Used to re-enter a previous analysis.
func NewAppForJob(cfg *config.Config, client *api.Client, store *history.Store, logger *zap.Logger, jobID string) *App {
	a := &App{
		cfg:        cfg,
		client:     client,
		store:      store,
		logger:     logger.Named("tui"),
		jobID:      jobID,
		activeView: viewDashboard,
		chat:       newChatModel(cfg.Chat.TypingInterval),
	}
	a.dashboard = newDashboardModel(jobID)
	return a
}

// SetUploadWarnings attaches pre-upload scan warnings to the upload
// view. Must be called before the program starts.
func (a *App) SetUploadWarnings(warnings []string) {
	a.upload.warnings = warnings
}

// Shutdown releases the monitor. Call after the program exits.
func (a *App) Shutdown() {
	if a.monitorCancel != nil {
		a.monitorCancel()
	}
}

func (a *App) Init() tea.Cmd {
	cmds := []tea.Cmd{a.loadHistory()}
	if a.activeView == viewUpload {
		cmds = append(cmds, a.upload.Init(), a.beginUpload())
	} else {
		cmds = append(cmds, a.attachMonitor())
	}
	return tea.Batch(cmds...)
}

func (a *App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		a.width = msg.Width
		a.height = msg.Height
		var cmds []tea.Cmd
		var cmd tea.Cmd
		a.dashboard, cmd = a.dashboard.Update(msg)
		cmds = append(cmds, cmd)
		a.chat, cmd = a.chat.Update(msg)
		cmds = append(cmds, cmd)
		return a, tea.Batch(cmds...)

	case tea.KeyMsg:
		return a.handleKey(msg)

	case historyLoadedMsg:
		a.entries = msg.entries
		return a, nil

	case uploadProgressMsg:
		var cmd tea.Cmd
		a.upload, cmd = a.upload.Update(msg)
		return a, tea.Batch(cmd, a.listenUpload())

	case uploadDoneMsg:
		var cmd tea.Cmd
		a.upload, cmd = a.upload.Update(msg)
		a.uploadDir = msg.resp.UploadDir
		return a, tea.Batch(cmd, a.startAnalysis(msg.resp))

	case uploadErrMsg:
		var cmd tea.Cmd
		a.upload, cmd = a.upload.Update(msg)
		return a, cmd

	case analysisStartedMsg:
		a.jobID = msg.jobID
		a.dashboard = newDashboardModel(msg.jobID)
		a.activeView = viewDashboard
		if a.store != nil {
			input := strings.Join(a.paths, ", ")
			if err := a.store.RecordStart(msg.jobID, input); err != nil {
				a.logger.Warn("history record failed", zap.Error(err))
			}
		}
		return a, tea.Batch(a.attachMonitor(), a.loadHistory())

	case jobUpdateMsg:
		var cmd tea.Cmd
		a.dashboard, cmd = a.dashboard.Update(msg)
		cmds := []tea.Cmd{cmd, a.listenUpdates()}
		if msg.update.Kind == monitor.KindCompleted || msg.update.Kind == monitor.KindFailed {
			a.recordTerminal(msg.update)
			cmds = append(cmds, a.loadHistory())
		}
		return a, tea.Batch(cmds...)

	case jobStreamClosedMsg:
		return a, nil

	case refreshedMsg:
		var cmd tea.Cmd
		a.dashboard, cmd = a.dashboard.Update(msg)
		return a, cmd

	case chatSessionMsg:
		var cmd tea.Cmd
		a.chat, cmd = a.chat.Update(msg)
		return a, cmd

	case sendChatMsg:
		return a, a.sendChat(msg)

	case chatReplyMsg, typingTickMsg:
		var cmd tea.Cmd
		a.chat, cmd = a.chat.Update(msg)
		return a, cmd

	case errMsg:
		a.status = domain.UserMessage(msg.err)
		return a, nil
	}

	// Everything else (spinner ticks, textinput blink, mouse wheel)
	// goes to the active view.
	return a.updateActive(msg)
}

func (a *App) updateActive(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd
	switch a.activeView {
	case viewUpload:
		a.upload, cmd = a.upload.Update(msg)
	case viewDashboard:
		a.dashboard, cmd = a.dashboard.Update(msg)
	case viewChat:
		a.chat, cmd = a.chat.Update(msg)
	}
	return a, cmd
}

func (a *App) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	key := msg.String()

	// Global keys.
	switch key {
	case "ctrl+c":
		a.Shutdown()
		return a, tea.Quit
	case "q":
		if a.activeView != viewChat {
			a.Shutdown()
			return a, tea.Quit
		}
	}

	switch a.activeView {
	case viewDashboard:
		switch key {
		case "c":
			if a.dashboard.result != nil {
				a.activeView = viewChat
				return a, a.openChatSession()
			}
		case "r":
			return a, a.refreshResults()
		case "up", "k":
			if a.selected > 0 {
				a.selected--
			}
			return a, nil
		case "down", "j":
			if a.selected < len(a.entries)-1 {
				a.selected++
			}
			return a, nil
		case "enter":
			return a, a.reenterSelected()
		}

	case viewChat:
		if key == "esc" {
			a.activeView = viewDashboard
			return a, nil
		}
	}

	return a.updateActive(msg)
}

// reenterSelected tears down the current monitor and attaches to the
// job highlighted in the sidebar.
func (a *App) reenterSelected() tea.Cmd {
	if a.selected >= len(a.entries) {
		return nil
	}
	entry := a.entries[a.selected]
	if entry.JobID == a.jobID {
		return nil
	}

	if a.monitorCancel != nil {
		a.monitorCancel()
		a.monitorCancel = nil
	}
	a.jobID = entry.JobID
	a.dashboard = newDashboardModel(entry.JobID)
	a.chat = newChatModel(a.cfg.Chat.TypingInterval)
	a.activeView = viewDashboard
	return a.attachMonitor()
}

// beginUpload streams upload progress through a channel so the view
// can animate while the multipart request is in flight.
func (a *App) beginUpload() tea.Cmd {
	events := make(chan tea.Msg, 16)
	a.uploadEvents = events

	paths := a.paths
	client := a.client
	timeout := a.cfg.Backend.UploadTimeout

	go func() {
		defer close(events)
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()

		resp, err := client.UploadFiles(ctx, paths, func(percent int) {
			events <- uploadProgressMsg(percent)
		})
		if err != nil {
			events <- uploadErrMsg{err: err}
			return
		}
		events <- uploadDoneMsg{resp: resp}
	}()

	return a.listenUpload()
}

func (a *App) listenUpload() tea.Cmd {
	ch := a.uploadEvents
	if ch == nil {
		return nil
	}
	return func() tea.Msg {
		msg, ok := <-ch
		if !ok {
			return nil
		}
		return msg
	}
}

func (a *App) startAnalysis(resp *domain.UploadResponse) tea.Cmd {
	serverPaths := make([]string, 0, len(resp.Files))
	for _, f := range resp.Files {
		if f.ServerPath != "" {
			serverPaths = append(serverPaths, f.ServerPath)
		}
	}

	client := a.client
	jobID := a.jobID
	timeout := a.cfg.Backend.Timeout

	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()

		start, err := client.StartAnalysis(ctx, serverPaths, jobID)
		if err != nil {
			return errMsg{err: err}
		}
		return analysisStartedMsg{jobID: start.JobID}
	}
}

// attachMonitor starts the job monitor and begins draining its update
// stream. The cancel func is the single teardown handle.
func (a *App) attachMonitor() tea.Cmd {
	ctx, cancel := context.WithCancel(context.Background())
	a.monitorCancel = cancel

	a.mon = monitor.NewForClient(a.client, a.jobID, a.cfg.Monitor.PollInterval, a.logger,
		monitor.WithResultsTimeout(a.cfg.Monitor.ResultsTimeout))
	a.updates = a.mon.Run(ctx)

	return a.listenUpdates()
}

func (a *App) listenUpdates() tea.Cmd {
	ch := a.updates
	if ch == nil {
		return nil
	}
	return func() tea.Msg {
		update, ok := <-ch
		if !ok {
			return jobStreamClosedMsg{}
		}
		return jobUpdateMsg{update: update}
	}
}

// recordTerminal persists the outcome of a finished job.
func (a *App) recordTerminal(u monitor.Update) {
	if a.store == nil {
		return
	}
	completedAt := time.Now()
	if u.Job.CompletionTime != nil {
		completedAt = *u.Job.CompletionTime
	}

	switch u.Kind {
	case monitor.KindCompleted:
		score, issues := 0, 0
		if u.Result != nil {
			score = u.Result.Summary.OverallScore
			issues = u.Result.Summary.TotalIssues
		}
		if err := a.store.RecordTerminal(u.Job.JobID, domain.StatusCompleted, score, issues, completedAt); err != nil {
			a.logger.Warn("history record failed", zap.Error(err))
		}
	case monitor.KindFailed:
		if err := a.store.RecordTerminal(u.Job.JobID, domain.StatusFailed, 0, 0, completedAt); err != nil {
			a.logger.Warn("history record failed", zap.Error(err))
		}
	}
}

func (a *App) refreshResults() tea.Cmd {
	mon := a.mon
	if mon == nil {
		return nil
	}
	timeout := a.cfg.Monitor.ResultsTimeout
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()

		result, err := mon.Refresh(ctx)
		return refreshedMsg{result: result, err: err}
	}
}

func (a *App) openChatSession() tea.Cmd {
	if a.chat.session != nil {
		return nil
	}
	client := a.client
	uploadDir := a.uploadDir
	timeout := a.cfg.Chat.Timeout
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()

		session, err := client.StartChatSession(ctx, uploadDir)
		return chatSessionMsg{session: session, err: err}
	}
}

func (a *App) sendChat(msg sendChatMsg) tea.Cmd {
	client := a.client
	timeout := a.cfg.Chat.Timeout
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()

		reply, err := client.SendChatMessage(ctx, msg.sessionID, msg.text)
		return chatReplyMsg{reply: reply, err: err}
	}
}

func (a *App) loadHistory() tea.Cmd {
	store := a.store
	if store == nil {
		return nil
	}
	return func() tea.Msg {
		entries, err := store.Recent(20)
		if err != nil {
			return historyLoadedMsg{}
		}
		return historyLoadedMsg{entries: entries}
	}
}

func (a *App) View() string {
	var main string
	switch a.activeView {
	case viewUpload:
		main = a.upload.View()
	case viewDashboard:
		main = a.dashboard.View()
	case viewChat:
		main = a.chat.View()
	}

	body := lipgloss.JoinHorizontal(lipgloss.Top, a.viewSidebar(), " "+main)
	if a.status != "" {
		body += "\n" + errorStyle.Render(" "+a.status)
	}
	return body
}

func (a *App) viewSidebar() string {
	var b strings.Builder

	b.WriteString(titleStyle.Render("Recent jobs"))
	b.WriteString("\n\n")

	if len(a.entries) == 0 {
		b.WriteString(dimStyle.Render("no history yet"))
	}

	for i, entry := range a.entries {
		line := fmt.Sprintf("%s · %s", shortID(entry.JobID), entry.Status)
		if entry.Status == domain.StatusCompleted {
			line = fmt.Sprintf("%s · %d", shortID(entry.JobID), entry.OverallScore)
		}
		switch {
		case entry.JobID == a.jobID:
			b.WriteString(okStyle.Render("● " + line))
		case i == a.selected && a.activeView == viewDashboard:
			b.WriteString(selectedStyle.Render("> " + line))
		default:
			b.WriteString(dimStyle.Render("  " + line))
		}
		b.WriteString("\n")
	}

	return sidebarStyle.Render(b.String())
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
