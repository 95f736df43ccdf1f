// Package security keeps the Chatwork API token out of log output and
// configuration dumps.
package security

import (
	"regexp"
	"strings"
	"sync"
)

// RedactPlaceholder is the replacement string for redacted secrets.
const RedactPlaceholder = "***REDACTED***"

// Redactor replaces secret values in strings with RedactPlaceholder.
// It combines regex patterns for credential-shaped text with literal values
// registered at runtime, such as the configured API token.
// All methods are safe for concurrent use.
type Redactor struct {
	mu       sync.RWMutex
	patterns []*regexp.Regexp
	literals []string
}

// NewRedactor creates a Redactor pre-loaded with DefaultPatterns.
func NewRedactor() *Redactor {
	return &Redactor{
		patterns: DefaultPatterns(),
	}
}

// AddPattern adds a compiled regex pattern to the redactor.
func (r *Redactor) AddPattern(pattern *regexp.Regexp) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.patterns = append(r.patterns, pattern)
}

// AddLiteral adds a literal secret value that should be redacted on sight.
// Blank strings are ignored.
func (r *Redactor) AddLiteral(secret string) {
	if strings.TrimSpace(secret) == "" {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.literals = append(r.literals, secret)
}

// Redact replaces all known secret patterns and literal values in s.
func (r *Redactor) Redact(s string) string {
	if s == "" {
		return s
	}

	r.mu.RLock()
	patterns := r.patterns
	literals := r.literals
	r.mu.RUnlock()

	// Literals first: a pattern rewrite could split a literal apart.
	for _, lit := range literals {
		if strings.Contains(s, lit) {
			s = strings.ReplaceAll(s, lit, RedactPlaceholder)
		}
	}

	for _, p := range patterns {
		s = p.ReplaceAllStringFunc(s, func(match string) string {
			sub := p.FindStringSubmatch(match)
			if len(sub) > 1 {
				return sub[1] + RedactPlaceholder
			}
			return RedactPlaceholder
		})
	}

	return s
}

// DefaultPatterns returns compiled patterns for credential-shaped text.
// When a pattern has a capture group, the group is kept as a prefix and
// only the remainder is masked.
func DefaultPatterns() []*regexp.Regexp {
	return []*regexp.Regexp{
		// Chatwork token header, as it appears in dumped requests.
		regexp.MustCompile(`(?i)(x-chatworktoken["']?\s*[:=]\s*["'\[]?)[^\s"',}\]]+`),
		// Config keys and query parameters.
		regexp.MustCompile(`(?i)(api_token["']?\s*[:=]\s*["']?)[^\s"',}&]+`),
		// Authorization headers.
		regexp.MustCompile(`(?i)(bearer\s+)[a-z0-9\-._~+/]{8,}=*`),
	}
}
