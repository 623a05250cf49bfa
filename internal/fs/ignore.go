package fs

import (
	"bufio"
	"bytes"
	"path/filepath"
	"strings"
)

// IgnoreFileName is the per-vault ignore file read by scans.
const IgnoreFileName = ".mdageignore"

// defaultIgnorePatterns are always applied regardless of config or .mdageignore.
var defaultIgnorePatterns = []string{".obsidian/*", ".trash/*"}

// ignorePattern is a parsed ignore pattern with its matching strategy.
type ignorePattern struct {
	pattern   string
	matchPath bool // true = match against relative path; false = match against basename only
}

// IgnoreMatcher checks file paths against a set of ignore patterns.
// Patterns without '/' match against the file's basename only.
// Patterns with '/' match against the full relative path from the directory root
// or any of its parent directories, so "dir/*" ignores everything below dir.
type IgnoreMatcher struct {
	patterns []ignorePattern
}

// NewIgnoreMatcher creates an IgnoreMatcher from raw pattern strings.
// Blank lines and lines starting with '#' are skipped.
// The default patterns are always included.
func NewIgnoreMatcher(rawPatterns []string) *IgnoreMatcher {
	var patterns []ignorePattern
	for _, raw := range append(append([]string{}, defaultIgnorePatterns...), rawPatterns...) {
		raw = strings.TrimSpace(raw)
		if raw == "" || strings.HasPrefix(raw, "#") {
			continue
		}
		patterns = append(patterns, ignorePattern{
			pattern:   raw,
			matchPath: strings.Contains(raw, "/"),
		})
	}
	return &IgnoreMatcher{patterns: patterns}
}

// Match reports whether the given relative path should be ignored.
// relativePath is relative to the vault root.
func (m *IgnoreMatcher) Match(relativePath string) bool {
	if len(m.patterns) == 0 {
		return false
	}

	// Normalize to forward slashes for consistent matching.
	normalized := filepath.ToSlash(relativePath)
	basename := filepath.Base(relativePath)

	for _, p := range m.patterns {
		var matched bool
		var err error
		if p.matchPath {
			matched, err = matchPathOrParent(p.pattern, normalized)
		} else {
			matched, err = filepath.Match(p.pattern, basename)
		}
		if err != nil {
			// Bad pattern, skip it.
			continue
		}
		if matched {
			return true
		}
	}
	return false
}

// matchPathOrParent matches pattern against rel and each of its parent
// directories.
func matchPathOrParent(pattern, rel string) (bool, error) {
	for {
		matched, err := filepath.Match(pattern, rel)
		if err != nil || matched {
			return matched, err
		}
		i := strings.LastIndex(rel, "/")
		if i < 0 {
			return false, nil
		}
		rel = rel[:i]
	}
}

// ParseIgnorePatterns splits the contents of an ignore file into raw
// pattern lines. Filtering happens in NewIgnoreMatcher.
func ParseIgnorePatterns(data []byte) []string {
	var patterns []string
	scanner := bufio.NewScanner(bytes.NewReader(data))
	for scanner.Scan() {
		patterns = append(patterns, scanner.Text())
	}
	return patterns
}
