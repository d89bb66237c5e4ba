package trigger

import (
	"fmt"
	"regexp"
	"strings"
)

// regexMeta marks a configured pattern as a regular expression rather than a
// literal phrase. Plain words and phrases never contain these characters.
const regexMeta = `\.+*?()[]{}|^$`

// Pattern is a single configured matcher: either a literal phrase or a
// regular expression, both matched case-insensitively. Mixed lists of both
// forms are allowed in one trigger definition.
type Pattern struct {
	raw     string
	literal bool
	re      *regexp.Regexp
}

// CompilePattern validates and compiles one configured pattern string.
// Patterns containing regex metacharacters are treated as regular
// expressions; everything else matches as a literal phrase. Both forms
// compile to a case-folding regexp so match offsets always index the
// original text: offsets into a ToLower copy do not survive runes whose
// byte length changes under folding. Invalid regex syntax is a
// configuration error.
func CompilePattern(raw string) (Pattern, error) {
	if raw == "" {
		return Pattern{}, fmt.Errorf("trigger pattern must not be empty")
	}
	expr := raw
	literal := !strings.ContainsAny(raw, regexMeta)
	if literal {
		expr = regexp.QuoteMeta(raw)
	}
	re, err := regexp.Compile("(?i)" + expr)
	if err != nil {
		return Pattern{}, fmt.Errorf("compile trigger pattern %q: %w", raw, err)
	}
	return Pattern{raw: raw, literal: literal, re: re}, nil
}

// CompilePatterns compiles an ordered pattern list, failing on the first
// invalid entry.
func CompilePatterns(raw []string) ([]Pattern, error) {
	patterns := make([]Pattern, 0, len(raw))
	for _, r := range raw {
		p, err := CompilePattern(r)
		if err != nil {
			return nil, err
		}
		patterns = append(patterns, p)
	}
	return patterns, nil
}

// String returns the pattern as configured.
func (p Pattern) String() string { return p.raw }

// IsRegex reports whether the pattern was configured as a regular expression.
func (p Pattern) IsRegex() bool { return !p.literal }

// Find locates the first match of the pattern in text, case-insensitively.
// It returns the match bounds as byte offsets into text.
func (p Pattern) Find(text string) (start, end int, ok bool) {
	loc := p.re.FindStringIndex(text)
	if loc == nil {
		return 0, 0, false
	}
	return loc[0], loc[1], true
}
