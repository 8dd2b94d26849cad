package text

import (
	"regexp"
	"regexp/syntax"
	"strings"

	"gitlab.com/tozd/go/errors"
)

// Mode selects how a search pattern is interpreted
type Mode int

const (
	// ModeLiteral matches the pattern as an exact substring
	ModeLiteral Mode = iota
	// ModeRegex matches the pattern as an RE2 regular expression
	ModeRegex
)

// String returns the mode name
func (m Mode) String() string {
	switch m {
	case ModeRegex:
		return "regex"
	default:
		return "literal"
	}
}

// ModeFor returns ModeRegex when regex is true.
func ModeFor(regex bool) Mode {
	if regex {
		return ModeRegex
	}
	return ModeLiteral
}

var (
	// ErrEmptyPattern is returned for a zero-length search pattern
	ErrEmptyPattern = errors.Base("pattern must not be empty")
	// ErrMatchesEmpty is returned for a regex that can match the empty string,
	// including zero-width assertions such as \b or ^ on their own
	ErrMatchesEmpty = errors.Base("pattern matches the empty string")
)

// Matcher performs global, non-overlapping, left-to-right substitution.
type Matcher interface {
	// Replace substitutes every match in s and returns the result with the number of matches
	Replace(s, replacement string) (string, int)
	// Pattern returns the pattern as given
	Pattern() string
	// Mode returns how the pattern is interpreted
	Mode() Mode
}

// NewMatcher validates the pattern and builds a matcher for the mode.
func NewMatcher(pattern string, mode Mode) (Matcher, error) {
	if pattern == "" {
		return nil, ErrEmptyPattern
	}

	if mode != ModeRegex {
		return &literalMatcher{pattern: pattern}, nil
	}

	re, err := regexp.Compile(pattern)
	if err != nil {
		return nil, errors.Errorf("compiling pattern: %w", err)
	}
	parsed, err := syntax.Parse(pattern, syntax.Perl)
	if err != nil {
		return nil, errors.Errorf("parsing pattern: %w", err)
	}
	if re.MatchString("") || matchesEmpty(parsed.Simplify()) {
		return nil, ErrMatchesEmpty
	}
	return &regexMatcher{pattern: pattern, re: re}, nil
}

// matchesEmpty reports whether re can produce a zero-length match anywhere in
// some input. Empty-width assertions count, since \b matches between "a" and " ".
func matchesEmpty(re *syntax.Regexp) bool {
	switch re.Op {
	case syntax.OpEmptyMatch,
		syntax.OpBeginLine, syntax.OpEndLine,
		syntax.OpBeginText, syntax.OpEndText,
		syntax.OpWordBoundary, syntax.OpNoWordBoundary,
		syntax.OpStar, syntax.OpQuest:
		return true
	case syntax.OpLiteral:
		return len(re.Rune) == 0
	case syntax.OpRepeat:
		return re.Min == 0 || matchesEmpty(re.Sub[0])
	case syntax.OpPlus, syntax.OpCapture:
		return matchesEmpty(re.Sub[0])
	case syntax.OpConcat:
		for _, sub := range re.Sub {
			if !matchesEmpty(sub) {
				return false
			}
		}
		return true
	case syntax.OpAlternate:
		for _, sub := range re.Sub {
			if matchesEmpty(sub) {
				return true
			}
		}
		return false
	default:
		return false
	}
}

type literalMatcher struct {
	pattern string
}

func (m *literalMatcher) Replace(s, replacement string) (string, int) {
	n := strings.Count(s, m.pattern)
	if n == 0 {
		return s, 0
	}
	return strings.ReplaceAll(s, m.pattern, replacement), n
}

func (m *literalMatcher) Pattern() string { return m.pattern }
func (m *literalMatcher) Mode() Mode      { return ModeLiteral }

// regexMatcher expands $1 / ${name} references in the replacement.
type regexMatcher struct {
	pattern string
	re      *regexp.Regexp
}

func (m *regexMatcher) Replace(s, replacement string) (string, int) {
	n := len(m.re.FindAllStringIndex(s, -1))
	if n == 0 {
		return s, 0
	}
	return m.re.ReplaceAllString(s, replacement), n
}

func (m *regexMatcher) Pattern() string { return m.pattern }
func (m *regexMatcher) Mode() Mode      { return ModeRegex }
