package markdown

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// Renderer turns parsed blocks into styled terminal text.
type Renderer struct {
	heading  lipgloss.Style
	bold     lipgloss.Style
	italic   lipgloss.Style
	code     lipgloss.Style
	filename lipgloss.Style
	fence    lipgloss.Style
	fenceBar lipgloss.Style
}

// NewRenderer creates a renderer with the default transcript styles.
func NewRenderer() *Renderer {
	return &Renderer{
		heading:  lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("81")),
		bold:     lipgloss.NewStyle().Bold(true),
		italic:   lipgloss.NewStyle().Italic(true),
		code:     lipgloss.NewStyle().Foreground(lipgloss.Color("213")).Background(lipgloss.Color("236")),
		filename: lipgloss.NewStyle().Foreground(lipgloss.Color("150")).Underline(true),
		fence:    lipgloss.NewStyle().Foreground(lipgloss.Color("252")).Background(lipgloss.Color("235")).Padding(0, 1),
		fenceBar: lipgloss.NewStyle().Foreground(lipgloss.Color("243")),
	}
}

// Render renders a full message.
func (r *Renderer) Render(text string) string {
	var b strings.Builder
	for i, block := range Parse(text) {
		if i > 0 {
			b.WriteString("\n")
		}
		b.WriteString(r.renderBlock(block))
	}
	return b.String()
}

func (r *Renderer) renderBlock(block Block) string {
	switch block.Kind {
	case BlockCode:
		label := block.Language
		if label == "" {
			label = "code"
		}
		// The copy affordance: the chat view binds ctrl+y to yank the
		// most recent code block.
		header := r.fenceBar.Render("── " + label + " ── ctrl+y to copy")
		return header + "\n" + r.fence.Render(block.Text)

	case BlockHeading:
		prefix := strings.Repeat("#", block.Level) + " "
		return r.heading.Render(prefix + r.renderSpansPlain(block.Spans))

	case BlockBullet:
		return "  • " + r.renderSpans(block.Spans)

	case BlockOrdered:
		return "  " + block.Number + ". " + r.renderSpans(block.Spans)

	default:
		return r.renderSpans(block.Spans)
	}
}

func (r *Renderer) renderSpans(spans []Span) string {
	var b strings.Builder
	for _, span := range spans {
		switch span.Kind {
		case SpanBold:
			b.WriteString(r.bold.Render(span.Text))
		case SpanItalic:
			b.WriteString(r.italic.Render(span.Text))
		case SpanCode:
			b.WriteString(r.code.Render(span.Text))
		case SpanFilename:
			b.WriteString(r.filename.Render(span.Text))
		default:
			b.WriteString(span.Text)
		}
	}
	return b.String()
}

// renderSpansPlain flattens spans without inline styling; headings get
// one uniform style instead.
func (r *Renderer) renderSpansPlain(spans []Span) string {
	var b strings.Builder
	for _, span := range spans {
		b.WriteString(span.Text)
	}
	return b.String()
}

// CodeBlocks extracts the raw contents of every fenced block in
// message order, for the copy affordance.
func CodeBlocks(text string) []string {
	var out []string
	for _, block := range Parse(text) {
		if block.Kind == BlockCode {
			out = append(out, block.Text)
		}
	}
	return out
}
