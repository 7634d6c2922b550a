package safety

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/careloop/retrieval-engine/internal/core/domain"
)

// DetectorConfig lists the patterns that mark content as sensitive and
// the crisis phrases that force an uncached retrieval path. Empty
// slices fall back to the built-in defaults.
type DetectorConfig struct {
	SensitivePatterns []string
	CrisisTerms       []string
}

func defaultSensitivePatterns() []string {
	return []string{
		// US SSN
		`\b\d{3}-\d{2}-\d{4}\b`,
		// phone numbers
		`\b\d{3}[-.\s]?\d{3}[-.\s]?\d{4}\b`,
		// email addresses
		`\b[A-Za-z0-9._%+-]+@[A-Za-z0-9.-]+\.[A-Za-z]{2,}\b`,
		// 13-16 digit card numbers, optionally grouped
		`\b(?:\d[ -]?){13,16}\b`,
	}
}

func defaultCrisisTerms() []string {
	return []string{
		"suicide",
		"kill myself",
		"end my life",
		"self harm",
		"hurt myself",
		"overdose",
	}
}

// Detector flags sensitive content before cache writes and detects
// crisis language in queries. Matching is regex-based and pluggable
// behind the ports; richer classifiers slot in without touching the
// retrieval path.
type Detector struct {
	sensitive []*regexp.Regexp
	crisis    *regexp.Regexp
}

func NewDetector(cfg DetectorConfig) (*Detector, error) {
	patterns := cfg.SensitivePatterns
	if len(patterns) == 0 {
		patterns = defaultSensitivePatterns()
	}
	compiled := make([]*regexp.Regexp, 0, len(patterns))
	for _, p := range patterns {
		re, err := regexp.Compile(`(?i)` + p)
		if err != nil {
			return nil, fmt.Errorf("compile sensitive pattern %q: %w", p, err)
		}
		compiled = append(compiled, re)
	}

	terms := cfg.CrisisTerms
	if len(terms) == 0 {
		terms = defaultCrisisTerms()
	}
	quoted := make([]string, 0, len(terms))
	for _, term := range terms {
		term = strings.TrimSpace(strings.ToLower(term))
		if term != "" {
			quoted = append(quoted, regexp.QuoteMeta(term))
		}
	}
	crisis := regexp.MustCompile(`\b(` + strings.Join(quoted, "|") + `)\b`)

	return &Detector{sensitive: compiled, crisis: crisis}, nil
}

// ContainsSensitive reports whether text matches any sensitive
// pattern. Consulted before every cache write.
func (d *Detector) ContainsSensitive(text string) bool {
	if text == "" {
		return false
	}
	for _, re := range d.sensitive {
		if re.MatchString(text) {
			return true
		}
	}
	return false
}

// BypassCache reports whether a query contains crisis language and
// must take a fresh, uncached path.
func (d *Detector) BypassCache(query domain.Query) bool {
	return d.crisis.MatchString(strings.ToLower(query.Text))
}
