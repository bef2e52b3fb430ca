package source

import (
	"bufio"
	"bytes"
	"regexp"

	"github.com/vitaliy-khomyn/minicov/internal/log"
)

// markerRe is the built-in inline suppression marker. It is always
// active and checked before any configured pattern.
var markerRe = regexp.MustCompile(`(?i)#.*pragma:\s*no\s*cover`)

// SuppressionSet holds the 1-based line numbers excluded from every
// coverage metric.
type SuppressionSet map[int]struct{}

// Has reports whether line is suppressed.
func (s SuppressionSet) Has(line int) bool {
	_, ok := s[line]
	return ok
}

// Add marks line as suppressed.
func (s SuppressionSet) Add(line int) {
	s[line] = struct{}{}
}

// compilePatterns compiles exclusion regexes in order, skipping any that
// do not compile. The skip is diagnosed, never fatal: one bad pattern
// must not disable the rest of the configuration.
func compilePatterns(patterns []string, logger log.Logger) []*regexp.Regexp {
	var compiled []*regexp.Regexp
	for _, pat := range patterns {
		re, err := regexp.Compile(pat)
		if err != nil {
			logger.Warn("skipping invalid exclusion pattern", "pattern", pat, "error", err)
			continue
		}
		compiled = append(compiled, re)
	}
	return compiled
}

// Suppressed computes the suppression set for src. Per line, the inline
// marker is tested first, then each configured pattern in order,
// short-circuiting on the first match. The result depends only on the
// source text and the pattern list.
func (p *Parser) Suppressed(src []byte) SuppressionSet {
	set := make(SuppressionSet)

	scanner := bufio.NewScanner(bytes.NewReader(src))
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	lineno := 0
	for scanner.Scan() {
		lineno++
		line := scanner.Bytes()
		if markerRe.Match(line) {
			set.Add(lineno)
			continue
		}
		for _, re := range p.exclude {
			if re.Match(line) {
				set.Add(lineno)
				break
			}
		}
	}

	return set
}
