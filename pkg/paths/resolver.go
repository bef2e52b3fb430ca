// Package paths maps the file spellings found in trace data onto the
// canonical report keys. Recording happens wherever the traced program
// ran, so the same file can show up as a relative path, an absolute
// path, a symlinked path, or a prefix from another machine entirely.
package paths

import (
	"path/filepath"
	"runtime"
	"sort"
	"strings"

	"github.com/vitaliy-khomyn/minicov/internal/config"
	"github.com/vitaliy-khomyn/minicov/internal/scanner"
)

// Resolver canonicalizes recorded paths, rewrites them through the
// configured alias groups, and decides which files belong in a report.
type Resolver struct {
	roots   []string
	groups  []aliasGroup
	omit    []scanner.Pattern
	include []scanner.Pattern
}

type aliasGroup struct {
	canonical string
	prefixes  []string
}

// NewResolver builds a Resolver from configuration. A nil config means
// no roots, no aliases and no filters.
func NewResolver(cfg *config.Config) *Resolver {
	r := &Resolver{}
	if cfg == nil {
		return r
	}

	for _, root := range cfg.Source {
		r.roots = append(r.roots, canonicalize(root))
	}
	r.omit = scanner.ParsePatterns(cfg.Omit)
	r.include = scanner.ParsePatterns(cfg.Include)

	// Map iteration order is random; sorting the canonical prefixes
	// keeps Resolve deterministic across runs.
	keys := make([]string, 0, len(cfg.Paths))
	for key := range cfg.Paths {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	for _, key := range keys {
		group := aliasGroup{canonical: normalizePrefix(key)}
		for _, prefix := range cfg.Paths[key] {
			group.prefixes = append(group.prefixes, normalizePrefix(prefix))
		}
		r.groups = append(r.groups, group)
	}

	return r
}

// Canonicalize converts a path to its canonical form: absolute,
// symlinks resolved where possible, case folded on platforms that
// ignore it, forward slashes throughout.
func (r *Resolver) Canonicalize(p string) string {
	return canonicalize(p)
}

// Resolve canonicalizes a path and rewrites it through the first alias
// group holding a matching equivalent prefix. Spellings recorded on
// other machines or under other mount points collapse onto one key.
func (r *Resolver) Resolve(p string) string {
	canon := r.Canonicalize(p)
	for _, group := range r.groups {
		for _, prefix := range group.prefixes {
			if rest, ok := underPrefix(canon, prefix); ok {
				return group.canonical + rest
			}
		}
	}
	return canon
}

// ShouldTrace reports whether a file belongs in the analysis. A file is
// out when it lies outside every configured source root, when it hits
// an omit pattern, or when include patterns exist and none match it.
func (r *Resolver) ShouldTrace(p string) bool {
	canon := r.Canonicalize(p)

	match := canon
	if len(r.roots) > 0 {
		rel, ok := r.relativeToRoot(canon)
		if !ok {
			return false
		}
		match = rel
	}

	if scanner.Matches(match, r.omit) {
		return false
	}
	if len(r.include) > 0 && !scanner.Matches(match, r.include) {
		return false
	}
	return true
}

// Roots returns the canonicalized source roots.
func (r *Resolver) Roots() []string {
	return append([]string(nil), r.roots...)
}

func (r *Resolver) relativeToRoot(canon string) (string, bool) {
	for _, root := range r.roots {
		if rest, ok := underPrefix(canon, root); ok {
			return strings.TrimPrefix(rest, "/"), true
		}
	}
	return "", false
}

// underPrefix matches at directory boundaries so that "/a/src" does not
// claim "/a/srclib/x.py". It returns the remainder including its
// leading slash.
func underPrefix(path, prefix string) (string, bool) {
	if path == prefix {
		return "", true
	}
	if strings.HasPrefix(path, prefix+"/") {
		return path[len(prefix):], true
	}
	return "", false
}

// canonicalize resolves symlinks when the path exists; otherwise it
// resolves the directory part, so files that are gone by report time
// still compare equal to their recorded spellings.
func canonicalize(p string) string {
	abs, err := filepath.Abs(p)
	if err != nil {
		return normalizeCase(filepath.ToSlash(filepath.Clean(p)))
	}
	if resolved, err := filepath.EvalSymlinks(abs); err == nil {
		return normalizeCase(filepath.ToSlash(resolved))
	}
	dir, base := filepath.Split(abs)
	if resolvedDir, err := filepath.EvalSymlinks(dir); err == nil {
		return normalizeCase(filepath.ToSlash(filepath.Join(resolvedDir, base)))
	}
	return normalizeCase(filepath.ToSlash(abs))
}

func normalizePrefix(p string) string {
	return normalizeCase(filepath.ToSlash(filepath.Clean(p)))
}

func normalizeCase(p string) string {
	if runtime.GOOS == "windows" {
		return strings.ToLower(p)
	}
	return p
}
