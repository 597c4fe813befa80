// Package markdown implements the minimal markdown subset used by
// chat transcripts: fenced code blocks, headings, bullet and ordered
// lists, bold, italic, inline code, and filename-token highlighting.
// The parser is line-oriented and pure; rendering is a separate pass.
package markdown

import (
	"regexp"
	"strings"
)

// BlockKind classifies a parsed block.
type BlockKind int

const (
	BlockParagraph BlockKind = iota
	BlockHeading
	BlockBullet
	BlockOrdered
	BlockCode
)

// SpanKind classifies an inline span.
type SpanKind int

const (
	SpanText SpanKind = iota
	SpanBold
	SpanItalic
	SpanCode
	SpanFilename
)

// Span is one inline run of styled text.
type Span struct {
	Kind SpanKind
	Text string
}

// Block is one parsed line or fenced region.
type Block struct {
	Kind BlockKind

	// Level is the heading level (1-3) for BlockHeading.
	Level int

	// Language is the fence tag for BlockCode, may be empty.
	Language string

	// Number is the item number for BlockOrdered.
	Number string

	// Text is the raw content: the full body for code blocks, the
	// item text for lists, the line for everything else.
	Text string

	// Spans is the inline breakdown of Text; empty for code blocks.
	Spans []Span
}

var (
	headingRe = regexp.MustCompile(`^(#{1,3})\s+(.*)$`)
	bulletRe  = regexp.MustCompile(`^[-*]\s+(.*)$`)
	orderedRe = regexp.MustCompile(`^(\d+)\.\s+(.*)$`)

	boldRe   = regexp.MustCompile(`\*\*(.+?)\*\*`)
	italicRe = regexp.MustCompile(`\*([^*]+)\*`)
	codeRe   = regexp.MustCompile("`([^`]+)`")

	// Bare filename-like tokens: word.ext with a 1-4 letter extension.
	filenameRe = regexp.MustCompile(`[A-Za-z0-9_][A-Za-z0-9_.\-/]*\.[A-Za-z]{1,4}\b`)
)

// Parse splits markdown text into blocks. Fenced code has the highest
// precedence: inside a fence every line is raw content.
func Parse(text string) []Block {
	var blocks []Block

	lines := strings.Split(text, "\n")
	for i := 0; i < len(lines); i++ {
		line := lines[i]
		trimmed := strings.TrimSpace(line)

		if strings.HasPrefix(trimmed, "```") {
			language := strings.TrimSpace(strings.TrimPrefix(trimmed, "```"))
			var body []string
			for i++; i < len(lines); i++ {
				if strings.HasPrefix(strings.TrimSpace(lines[i]), "```") {
					break
				}
				body = append(body, lines[i])
			}
			blocks = append(blocks, Block{
				Kind:     BlockCode,
				Language: language,
				Text:     strings.Join(body, "\n"),
			})
			continue
		}

		if trimmed == "" {
			continue
		}

		if m := headingRe.FindStringSubmatch(trimmed); m != nil {
			blocks = append(blocks, Block{
				Kind:  BlockHeading,
				Level: len(m[1]),
				Text:  m[2],
				Spans: ParseInline(m[2]),
			})
			continue
		}

		if m := bulletRe.FindStringSubmatch(trimmed); m != nil {
			blocks = append(blocks, Block{
				Kind:  BlockBullet,
				Text:  m[1],
				Spans: ParseInline(m[1]),
			})
			continue
		}

		if m := orderedRe.FindStringSubmatch(trimmed); m != nil {
			blocks = append(blocks, Block{
				Kind:   BlockOrdered,
				Number: m[1],
				Text:   m[2],
				Spans:  ParseInline(m[2]),
			})
			continue
		}

		blocks = append(blocks, Block{
			Kind:  BlockParagraph,
			Text:  trimmed,
			Spans: ParseInline(trimmed),
		})
	}

	return blocks
}

// ParseInline breaks a line into styled spans. Code spans are carved
// out first; the remaining passes (bold, italic, filename) only ever
// touch plain-text spans, so a filename inside backticks is never
// double-highlighted.
func ParseInline(text string) []Span {
	spans := []Span{{Kind: SpanText, Text: text}}

	spans = applyPattern(spans, codeRe, SpanCode, true)
	spans = applyPattern(spans, boldRe, SpanBold, true)
	spans = applyPattern(spans, italicRe, SpanItalic, true)
	spans = applyPattern(spans, filenameRe, SpanFilename, false)

	// Drop empty text runs left over from splitting.
	out := spans[:0]
	for _, s := range spans {
		if s.Text != "" {
			out = append(out, s)
		}
	}
	return out
}

// applyPattern rewrites SpanText runs, carving matches of re into
// spans of the given kind. When stripDelims is set the first capture
// group is kept instead of the whole match.
func applyPattern(spans []Span, re *regexp.Regexp, kind SpanKind, stripDelims bool) []Span {
	var out []Span
	for _, span := range spans {
		if span.Kind != SpanText {
			out = append(out, span)
			continue
		}

		rest := span.Text
		for {
			loc := re.FindStringSubmatchIndex(rest)
			if loc == nil {
				break
			}
			if loc[0] > 0 {
				out = append(out, Span{Kind: SpanText, Text: rest[:loc[0]]})
			}

			matched := rest[loc[0]:loc[1]]
			if stripDelims && len(loc) >= 4 && loc[2] >= 0 {
				matched = rest[loc[2]:loc[3]]
			}
			out = append(out, Span{Kind: kind, Text: matched})

			rest = rest[loc[1]:]
		}
		if rest != "" {
			out = append(out, Span{Kind: SpanText, Text: rest})
		}
	}
	return out
}
