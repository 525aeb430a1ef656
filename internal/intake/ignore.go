package intake

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path"
	"strings"
)

// IgnoreFileName is the per-archive ignore file read from the archive root.
const IgnoreFileName = ".folioignore"

// vcsDirs are skipped in every archive.
var vcsDirs = map[string]bool{".git": true, ".hg": true, ".svn": true, ".bzr": true}

type ignorePattern struct {
	pattern   string
	matchPath bool // match against the archive-relative path instead of a single name
}

// IgnoreMatcher checks archive paths against ignore patterns.
// Patterns without '/' match any single path element, so "node_modules"
// excludes the directory and everything under it. Patterns with '/' match
// the full slash-separated path relative to the archive root.
type IgnoreMatcher struct {
	patterns []ignorePattern
}

// NewIgnoreMatcher creates an IgnoreMatcher from raw pattern strings.
// Blank lines and lines starting with '#' are skipped. The ignore file
// itself is always ignored.
func NewIgnoreMatcher(rawPatterns []string) *IgnoreMatcher {
	m := &IgnoreMatcher{}
	m.add([]string{IgnoreFileName})
	m.add(rawPatterns)
	return m
}

func (m *IgnoreMatcher) add(rawPatterns []string) {
	for _, raw := range rawPatterns {
		raw = strings.TrimSpace(raw)
		if raw == "" || strings.HasPrefix(raw, "#") {
			continue
		}
		raw = strings.TrimSuffix(raw, "/")
		m.patterns = append(m.patterns, ignorePattern{
			pattern:   raw,
			matchPath: strings.Contains(raw, "/"),
		})
	}
}

// With returns a matcher carrying m's patterns plus rawPatterns.
func (m *IgnoreMatcher) With(rawPatterns []string) *IgnoreMatcher {
	out := &IgnoreMatcher{patterns: append([]ignorePattern(nil), m.patterns...)}
	out.add(rawPatterns)
	return out
}

// Match reports whether rel, a slash-separated path relative to the archive
// root, or any of its parent directories is ignored.
func (m *IgnoreMatcher) Match(rel string) bool {
	if rel == "" || rel == "." {
		return false
	}
	elems := strings.Split(rel, "/")
	for i := range elems {
		if m.matchOne(strings.Join(elems[:i+1], "/"), elems[i]) {
			return true
		}
	}
	return false
}

func (m *IgnoreMatcher) matchOne(full, name string) bool {
	if vcsDirs[name] {
		return true
	}
	for _, p := range m.patterns {
		target := name
		if p.matchPath {
			target = full
		}
		matched, err := path.Match(p.pattern, target)
		if err != nil {
			continue
		}
		if matched {
			return true
		}
	}
	return false
}

// ParseIgnore reads raw pattern lines from r.
func ParseIgnore(r io.Reader) ([]string, error) {
	var patterns []string
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		patterns = append(patterns, scanner.Text())
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading ignore file: %w", err)
	}
	return patterns, nil
}

// ParseIgnoreFile reads an ignore file. Returns nil and no error if the file
// does not exist.
func ParseIgnoreFile(name string) ([]string, error) {
	f, err := os.Open(name)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("opening ignore file: %w", err)
	}
	defer f.Close()
	return ParseIgnore(f)
}
