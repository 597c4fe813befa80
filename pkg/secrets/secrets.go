// Package secrets scans file content for credential-looking material
// before it leaves the machine. Uploads are never blocked; the scanner
// only produces warnings the caller can surface.
package secrets

import (
	"fmt"
	"regexp"
	"strings"
)

// Finding is one suspected secret in a scanned file.
type Finding struct {
	// Kind names the matched pattern family.
	Kind string

	// Line is the 1-based line number of the first match.
	Line int

	// Excerpt is a masked fragment of the match, safe to display.
	Excerpt string
}

type pattern struct {
	kind string
	re   *regexp.Regexp
}

// Pattern definitions for common secrets and sensitive data.
var defaultPatterns = []pattern{
	{"api key", regexp.MustCompile(`(?i)(api[_-]?key|apikey)\s*[:=]\s*['"]?([a-zA-Z0-9_\-]{20,})['"]?`)},
	{"secret key", regexp.MustCompile(`(?i)(secret[_-]?key|secretkey)\s*[:=]\s*['"]?([a-zA-Z0-9_\-]{20,})['"]?`)},
	{"access key", regexp.MustCompile(`(?i)(access[_-]?key|accesskey)\s*[:=]\s*['"]?([a-zA-Z0-9_\-]{16,})['"]?`)},

	{"bearer token", regexp.MustCompile(`(?i)(bearer\s+)[a-zA-Z0-9_\-\.]+`)},
	{"auth token", regexp.MustCompile(`(?i)(token|auth[_-]?token)\s*[:=]\s*['"]?([a-zA-Z0-9_\-\.]{20,})['"]?`)},

	{"password", regexp.MustCompile(`(?i)(password|passwd|pwd)\s*[:=]\s*['"]?([^\s'"]{4,})['"]?`)},

	{"aws access key", regexp.MustCompile(`AKIA[0-9A-Z]{16}`)},
	{"aws secret key", regexp.MustCompile(`(?i)(aws[_-]?secret[_-]?access[_-]?key)\s*[:=]\s*['"]?([a-zA-Z0-9/+=]{40})['"]?`)},

	{"private key", regexp.MustCompile(`-----BEGIN\s+(RSA|DSA|EC|OPENSSH)?\s*PRIVATE KEY-----`)},

	{"connection string", regexp.MustCompile(`(?i)(mongodb|mysql|postgres|postgresql|redis):\/\/[^@\s]+@[^\s]+`)},

	{"github token", regexp.MustCompile(`gh[pousr]_[a-zA-Z0-9]{36}`)},
	{"jwt", regexp.MustCompile(`eyJ[a-zA-Z0-9_-]*\.eyJ[a-zA-Z0-9_-]*\.[a-zA-Z0-9_-]*`)},
	{"slack token", regexp.MustCompile(`xox[baprs]-[0-9a-zA-Z-]+`)},
}

// Scanner matches file content against a set of secret patterns.
type Scanner struct {
	patterns []pattern
}

// NewScanner creates a Scanner with the default pattern set.
func NewScanner() *Scanner {
	return &Scanner{patterns: defaultPatterns}
}

// Scan returns one Finding per pattern family that matches, pointing
// at the first matching line.
func (s *Scanner) Scan(content string) []Finding {
	var findings []Finding

	lines := strings.Split(content, "\n")
	for _, p := range s.patterns {
		for i, line := range lines {
			match := p.re.FindString(line)
			if match == "" {
				continue
			}
			findings = append(findings, Finding{
				Kind:    p.kind,
				Line:    i + 1,
				Excerpt: mask(match),
			})
			break
		}
	}

	return findings
}

// Describe formats a finding for a warning line.
func (f Finding) Describe(path string) string {
	return fmt.Sprintf("%s:%d looks like a %s (%s)", path, f.Line, f.Kind, f.Excerpt)
}

// mask hides the value while keeping enough shape to locate it.
func mask(match string) string {
	if idx := strings.IndexAny(match, ":="); idx != -1 {
		return match[:idx+1] + "[REDACTED]"
	}
	if len(match) > 10 {
		return match[:4] + "****" + match[len(match)-4:]
	}
	return "[REDACTED]"
}
