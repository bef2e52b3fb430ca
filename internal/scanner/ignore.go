package scanner

import (
	"path/filepath"
	"regexp"
	"strings"
)

// Pattern is a single file-matching pattern as coverage configurations
// spell them: shell-style globs where `*` also crosses path separators
// (so `*/vendor/*` matches at any depth), `?` matches one character and
// `[seq]` a character class. A leading `!` negates, a trailing `/`
// matches the directory and everything below it.
type Pattern struct {
	raw         string
	isNegation  bool
	isDirectory bool
	re          *regexp.Regexp
}

// ParsePattern parses a pattern string. The zero Pattern matches nothing,
// which is also what an unparsable character class compiles to.
func ParsePattern(pattern string) Pattern {
	p := Pattern{raw: pattern}

	if strings.HasPrefix(pattern, "!") {
		p.isNegation = true
		pattern = pattern[1:]
	}
	if strings.HasSuffix(pattern, "/") {
		p.isDirectory = true
		pattern = strings.TrimSuffix(pattern, "/")
	}

	p.re = compileGlob(pattern, p.isDirectory)
	return p
}

// Match reports whether the given slash-normalized path matches.
func (p Pattern) Match(path string) bool {
	if p.re == nil {
		return false
	}
	return p.re.MatchString(filepath.ToSlash(path))
}

// IsNegation returns true if this pattern is a negation pattern.
func (p Pattern) IsNegation() bool {
	return p.isNegation
}

// String returns the original pattern text.
func (p Pattern) String() string {
	return p.raw
}

// compileGlob translates a glob into an anchored regular expression.
// Patterns without a slash may match at any depth; patterns with one
// are matched against the whole path, with a leading `/` stripped.
func compileGlob(pattern string, directory bool) *regexp.Regexp {
	pattern = strings.TrimPrefix(pattern, "/")

	var sb strings.Builder
	if strings.Contains(pattern, "/") {
		sb.WriteString(`^`)
	} else {
		sb.WriteString(`(^|.*/)`)
	}

	for i := 0; i < len(pattern); i++ {
		switch c := pattern[i]; c {
		case '*':
			sb.WriteString(`.*`)
		case '?':
			sb.WriteString(`.`)
		case '[':
			end := strings.IndexByte(pattern[i:], ']')
			if end <= 1 {
				// No closing bracket: treat the rest literally.
				sb.WriteString(regexp.QuoteMeta(pattern[i:]))
				i = len(pattern)
				break
			}
			sb.WriteString(`[`)
			sb.WriteString(pattern[i+1 : i+end])
			sb.WriteString(`]`)
			i += end
		default:
			sb.WriteString(regexp.QuoteMeta(string(c)))
		}
	}

	if directory {
		sb.WriteString(`(/.*)?$`)
	} else {
		sb.WriteString(`$`)
	}

	re, err := regexp.Compile(sb.String())
	if err != nil {
		return nil
	}
	return re
}

// Matches applies patterns in order and reports whether the path ends up
// excluded. Negation patterns override earlier positive matches.
func Matches(path string, patterns []Pattern) bool {
	excluded := false
	for _, pattern := range patterns {
		if pattern.Match(path) {
			if pattern.IsNegation() {
				excluded = false
			} else {
				excluded = true
			}
		}
	}
	return excluded
}

// ParsePatterns parses a list of pattern strings, skipping blanks and
// comment lines.
func ParsePatterns(raw []string) []Pattern {
	var patterns []Pattern
	for _, line := range raw {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		patterns = append(patterns, ParsePattern(line))
	}
	return patterns
}
