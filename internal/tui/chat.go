package tui

import (
	"strings"
	"time"

	"github.com/atotto/clipboard"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/google/uuid"

	"github.com/codescope/internal/domain"
	"github.com/codescope/pkg/markdown"
)

// typingRevealStep is how many runes each typing tick uncovers.
const typingRevealStep = 3

// chatModel hosts the transcript and input for one chat session.
// The transcript is append-only; only the reveal offset of the newest
// assistant message ever changes after creation.
type chatModel struct {
	input    textinput.Model
	viewport viewport.Model
	renderer *markdown.Renderer

	session  *domain.ChatSession
	messages []domain.ChatMessage

	pending   bool
	revealing bool
	revealed  int
	interval  time.Duration
	status    string
	ready     bool
}

func newChatModel(interval time.Duration) chatModel {
	input := textinput.New()
	input.Placeholder = "ask about the codebase..."
	input.CharLimit = 2000
	input.Focus()

	return chatModel{
		input:    input,
		renderer: markdown.NewRenderer(),
		interval: interval,
	}
}

func (m chatModel) Update(msg tea.Msg) (chatModel, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		if !m.ready {
			m.viewport = viewport.New(msg.Width-34, msg.Height-6)
			m.ready = true
		} else {
			m.viewport.Width = msg.Width - 34
			m.viewport.Height = msg.Height - 6
		}
		m.refreshTranscript()
		return m, nil

	case chatSessionMsg:
		if msg.err != nil {
			m.status = "chat unavailable: " + domain.UserMessage(msg.err)
			return m, nil
		}
		m.session = msg.session
		if msg.session.CodebaseInfo != "" {
			m.status = msg.session.CodebaseInfo
		}
		return m, nil

	case chatReplyMsg:
		m.pending = false
		content := ""
		if msg.err != nil {
			// Degrade to a local fallback reply instead of leaving the
			// user without an answer.
			content = "I could not reach the analysis service just now (" +
				domain.UserMessage(msg.err) + "). Please try again."
		} else {
			content = msg.reply.Content
		}
		m.messages = append(m.messages, domain.ChatMessage{
			ID:        uuid.NewString(),
			Role:      domain.RoleAssistant,
			Content:   content,
			CreatedAt: time.Now(),
		})
		m.revealing = true
		m.revealed = 0
		m.refreshTranscript()
		return m, m.typingTick()

	case typingTickMsg:
		if !m.revealing {
			return m, nil
		}
		m.revealed += typingRevealStep
		if last := m.lastAssistant(); last != nil && m.revealed >= len([]rune(last.Content)) {
			m.revealing = false
		}
		m.refreshTranscript()
		if m.revealing {
			return m, m.typingTick()
		}
		return m, nil

	case tea.KeyMsg:
		switch msg.String() {
		case "enter":
			return m.submit()
		case "ctrl+y":
			m.yankLastCodeBlock()
			return m, nil
		}
	}

	var cmds []tea.Cmd
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	cmds = append(cmds, cmd)
	m.viewport, cmd = m.viewport.Update(msg)
	cmds = append(cmds, cmd)
	return m, tea.Batch(cmds...)
}

// submit appends the user message and asks the app to send it.
func (m chatModel) submit() (chatModel, tea.Cmd) {
	text := strings.TrimSpace(m.input.Value())
	if text == "" || m.pending || m.session == nil {
		return m, nil
	}

	m.messages = append(m.messages, domain.ChatMessage{
		ID:        uuid.NewString(),
		Role:      domain.RoleUser,
		Content:   text,
		CreatedAt: time.Now(),
	})
	m.input.Reset()
	m.pending = true
	m.refreshTranscript()

	sessionID := m.session.SessionID
	return m, func() tea.Msg {
		return sendChatMsg{sessionID: sessionID, text: text}
	}
}

// sendChatMsg asks the app model to perform the network exchange; the
// chat model itself never touches the client.
type sendChatMsg struct {
	sessionID string
	text      string
}

func (m *chatModel) typingTick() tea.Cmd {
	return tea.Tick(m.interval, func(time.Time) tea.Msg {
		return typingTickMsg{}
	})
}

func (m *chatModel) lastAssistant() *domain.ChatMessage {
	for i := len(m.messages) - 1; i >= 0; i-- {
		if m.messages[i].Role == domain.RoleAssistant {
			return &m.messages[i]
		}
	}
	return nil
}

// yankLastCodeBlock copies the newest assistant code block.
func (m *chatModel) yankLastCodeBlock() {
	last := m.lastAssistant()
	if last == nil {
		return
	}
	blocks := markdown.CodeBlocks(last.Content)
	if len(blocks) == 0 {
		m.status = "no code block to copy"
		return
	}
	if err := clipboard.WriteAll(blocks[len(blocks)-1]); err != nil {
		m.status = "clipboard unavailable"
		return
	}
	m.status = "code block copied"
}

func (m *chatModel) refreshTranscript() {
	if !m.ready {
		return
	}

	var b strings.Builder
	for i, message := range m.messages {
		if i > 0 {
			b.WriteString("\n\n")
		}

		content := message.Content
		// Reveal animation applies only to the in-flight newest
		// assistant message.
		if m.revealing && message.Role == domain.RoleAssistant && i == len(m.messages)-1 {
			runes := []rune(content)
			if m.revealed < len(runes) {
				content = string(runes[:m.revealed])
			}
		}

		switch message.Role {
		case domain.RoleUser:
			b.WriteString(selectedStyle.Render("you ") + content)
		default:
			b.WriteString(okStyle.Render("codescope ") + "\n" + m.renderer.Render(content))
		}
	}

	m.viewport.SetContent(b.String())
	m.viewport.GotoBottom()
}

func (m chatModel) View() string {
	var b strings.Builder

	b.WriteString(titleStyle.Render("Chat"))
	if m.status != "" {
		b.WriteString(dimStyle.Render("  " + m.status))
	}
	b.WriteString("\n")

	if m.ready {
		b.WriteString(m.viewport.View())
	}
	b.WriteString("\n")

	if m.pending {
		b.WriteString(dimStyle.Render(" thinking..."))
		b.WriteString("\n")
	}
	b.WriteString(" " + m.input.View())
	b.WriteString("\n" + dimStyle.Render(" enter send · ctrl+y copy code · esc dashboard · q quit"))

	return b.String()
}
