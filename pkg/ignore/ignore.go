// Package ignore provides gitignore-compatible path matching for the
// indexer and watcher.
//
// It loads patterns from a project's .codeindexignore file (if present),
// merges them with built-in defaults for generated code, build artifacts,
// and common non-source directories, and exposes a single ShouldIgnore
// method consulted before cfg.Include/cfg.Exclude are evaluated (§4.5,
// §4.7).
//
// Pattern syntax mirrors .gitignore:
//
//	# comment
//	*.pb.go          — match files by extension
//	vendor/          — match directories by name (trailing slash)
//	**/test/         — match at any depth
//	!important.go    — negate a previous pattern
//	build/           — directory name anywhere in tree
//	/rootonly        — anchored to project root (leading slash)
package ignore

import (
	"bufio"
	"os"
	"path/filepath"
	"strings"
)

// Matcher tests whether a path should be ignored.
type Matcher struct {
	rules []rule
}

type rule struct {
	pattern  string
	negation bool
	dirOnly  bool
	anchored bool // pattern contains '/' (other than trailing) — anchored to root
}

// DefaultPatterns are patterns applied even when no .codeindexignore file
// exists. They cover common non-source directories and generated files
// across the languages this indexer understands.
var DefaultPatterns = []string{
	// ── Version control ──────────────────────────────────────────────
	".git/",
	".svn/",
	".hg/",

	// ── codeindex internal ───────────────────────────────────────────
	".codeindex/",

	// ── Node / JavaScript / TypeScript ───────────────────────────────
	"node_modules/",
	"dist/",
	".next/",
	".nuxt/",
	"coverage/",
	".cache/",

	// ── Python ───────────────────────────────────────────────────────
	"__pycache__/",
	".venv/",
	"venv/",
	".tox/",
	".mypy_cache/",
	".pytest_cache/",
	"*.egg-info/",
	"site-packages/",

	// ── Go ───────────────────────────────────────────────────────────
	"vendor/",

	// ── Rust ─────────────────────────────────────────────────────────
	"target/",

	// ── Java / Kotlin / Gradle ───────────────────────────────────────
	"build/",
	".gradle/",
	"out/",

	// ── IDE / Editor ─────────────────────────────────────────────────
	".idea/",
	".vscode/",

	// ── OS artefacts ─────────────────────────────────────────────────
	".DS_Store",

	// ── Generated code ────────────────────────────────────────────────
	"*.pb.go",
	"*_generated.go",
	"*.gen.go",
	"*.pb.ts",
	"*.pb.js",

	// ── Fixtures (noisy for symbol extraction) ────────────────────────
	"**/testdata/",
	"**/fixtures/",

	// ── Lock files ─────────────────────────────────────────────────────
	"*.lock",
}

// New creates a Matcher from the built-in defaults plus an optional
// .codeindexignore file located at <projectRoot>/.codeindexignore. If the
// file does not exist the Matcher still works using only the defaults.
func New(projectRoot string) (*Matcher, error) {
	m := &Matcher{}
	for _, p := range DefaultPatterns {
		m.rules = append(m.rules, parsePattern(p))
	}

	ignoreFile := filepath.Join(projectRoot, ".codeindexignore")
	if err := m.loadFile(ignoreFile); err != nil && !os.IsNotExist(err) {
		return nil, err
	}
	return m, nil
}

// NewFromDefaults creates a Matcher using only the built-in defaults (no
// project file).
func NewFromDefaults() *Matcher {
	m := &Matcher{}
	for _, p := range DefaultPatterns {
		m.rules = append(m.rules, parsePattern(p))
	}
	return m
}

// ShouldIgnore reports whether path (relative to the project root) should
// be ignored. isDir must be true when path refers to a directory.
func (m *Matcher) ShouldIgnore(path string, isDir bool) bool {
	path = filepath.ToSlash(path)
	path = strings.TrimSuffix(path, "/")
	if path == "" || path == "." {
		return false
	}

	// Evaluate rules in order — last matching rule wins.
	ignored := false
	matched := false
	for _, r := range m.rules {
		if r.dirOnly && !isDir {
			continue
		}
		if r.match(path) {
			ignored = !r.negation
			matched = true
		}
	}
	if ignored {
		return true
	}
	if matched {
		return false
	}

	// A file under an ignored directory is ignored even when the walk
	// never reaches the directory node itself (e.g. a single-path watch
	// event for "vendor/github.com/foo/bar.go").
	if !isDir {
		parts := strings.Split(path, "/")
		for i := 1; i <= len(parts)-1; i++ {
			if m.ShouldIgnore(strings.Join(parts[:i], "/"), true) {
				return true
			}
		}
	}
	return false
}

// ShouldIgnoreDir is a convenience for ShouldIgnore(path, true).
func (m *Matcher) ShouldIgnoreDir(path string) bool {
	return m.ShouldIgnore(path, true)
}

// ShouldIgnoreFile is a convenience for ShouldIgnore(path, false).
func (m *Matcher) ShouldIgnoreFile(path string) bool {
	return m.ShouldIgnore(path, false)
}

func (m *Matcher) loadFile(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		m.rules = append(m.rules, parsePattern(line))
	}
	return scanner.Err()
}

func parsePattern(pattern string) rule {
	r := rule{}
	if strings.HasPrefix(pattern, "!") {
		r.negation = true
		pattern = pattern[1:]
	}
	if strings.HasSuffix(pattern, "/") {
		r.dirOnly = true
		pattern = strings.TrimSuffix(pattern, "/")
	}
	if strings.HasPrefix(pattern, "/") {
		r.anchored = true
		pattern = strings.TrimPrefix(pattern, "/")
	}
	if !r.anchored && strings.Contains(pattern, "/") {
		r.anchored = true
	}
	r.pattern = pattern
	return r
}

// match tests whether a rule matches path, which is relative to the
// project root, forward-slash separated, with no trailing slash.
func (r *rule) match(path string) bool {
	pattern := r.pattern

	if strings.HasPrefix(pattern, "**/") {
		rest := pattern[3:]
		return matchGlob(rest, path) || matchGlob(rest, basename(path)) || matchPathSuffix(rest, path)
	}
	if strings.HasSuffix(pattern, "/**") {
		prefix := pattern[:len(pattern)-3]
		return path == prefix || strings.HasPrefix(path, prefix+"/")
	}
	if strings.Contains(pattern, "/**/") {
		parts := strings.SplitN(pattern, "/**/", 2)
		if matchGlob(parts[0], path) {
			return true
		}
		return matchDoublestar(parts[0], parts[1], path)
	}
	if r.anchored {
		return matchGlob(pattern, path)
	}
	if matchGlob(pattern, basename(path)) {
		return true
	}
	return matchGlob(pattern, path)
}

// matchGlob performs filepath.Match segment-by-segment for patterns
// containing "/", so "foo/*.go" properly matches "foo/bar.go".
func matchGlob(pattern, name string) bool {
	if !strings.Contains(pattern, "/") {
		ok, _ := filepath.Match(pattern, name)
		return ok
	}
	patParts := strings.Split(pattern, "/")
	nameParts := strings.Split(name, "/")
	if len(patParts) != len(nameParts) {
		return false
	}
	for i, pp := range patParts {
		ok, _ := filepath.Match(pp, nameParts[i])
		if !ok {
			return false
		}
	}
	return true
}

// matchPathSuffix checks whether pattern matches any window of path's
// slash-separated parts, e.g. "test/*.go" matching "a/b/test/foo.go".
func matchPathSuffix(pattern, path string) bool {
	parts := strings.Split(path, "/")
	patParts := strings.Split(pattern, "/")
	if len(patParts) > len(parts) {
		return false
	}
	for i := 0; i <= len(parts)-len(patParts); i++ {
		if matchGlob(pattern, strings.Join(parts[i:i+len(patParts)], "/")) {
			return true
		}
	}
	return false
}

// matchDoublestar matches "left/**/right" against path.
func matchDoublestar(left, right, path string) bool {
	parts := strings.Split(path, "/")
	for i := 0; i <= len(parts); i++ {
		leftCandidate := strings.Join(parts[:i], "/")
		if !matchGlob(left, leftCandidate) {
			continue
		}
		for j := i; j <= len(parts); j++ {
			if matchGlob(right, strings.Join(parts[j:], "/")) {
				return true
			}
		}
	}
	return false
}

func basename(path string) string {
	if i := strings.LastIndex(path, "/"); i >= 0 {
		return path[i+1:]
	}
	return path
}
