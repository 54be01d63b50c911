// Package grammar maps file extensions to language tags and loads the
// matching tree-sitter grammar for each tag on demand.
package grammar

import (
	"fmt"
	"path/filepath"
	"strings"

	tree_sitter "github.com/tree-sitter/go-tree-sitter"
)

// GrammarNotFoundError is returned when a requested grammar tag is not
// registered.
type GrammarNotFoundError struct {
	Name string
}

func (e *GrammarNotFoundError) Error() string {
	return fmt.Sprintf("grammar %q not found", e.Name)
}

// extensionTags is the fixed extension → language-tag mapping (§4.1).
// Extensions not present here are unsupported and skipped by callers.
var extensionTags = map[string]string{
	".js":   "js",
	".mjs":  "js",
	".cjs":  "js",
	".jsx":  "jsx",
	".ts":   "ts",
	".mts":  "ts",
	".cts":  "ts",
	".tsx":  "tsx",
	".go":   "go",
	".py":   "python",
	".pyw":  "python",
	".rs":   "rust",
	".java": "java",
	".html": "html",
	".htm":  "html",
}

// tagGrammar maps a language tag to the name of the compiled-in grammar
// that parses it. js/jsx share the JavaScript grammar; ts/tsx use distinct
// dialects of the TypeScript grammar.
var tagGrammar = map[string]string{
	"js":     "javascript",
	"jsx":    "javascript",
	"ts":     "typescript",
	"tsx":    "tsx",
	"go":     "go",
	"python": "python",
	"rust":   "rust",
	"java":   "java",
	"html":   "html",
}

// LanguageForExtension returns the language tag for a file path, and false
// if the extension is unsupported.
func LanguageForExtension(path string) (string, bool) {
	ext := strings.ToLower(filepath.Ext(path))
	tag, ok := extensionTags[ext]
	return tag, ok
}

// Tags returns every recognized language tag, sorted is not guaranteed.
func Tags() []string {
	tags := make([]string, 0, len(tagGrammar))
	for t := range tagGrammar {
		tags = append(tags, t)
	}
	return tags
}

// Loader resolves tree-sitter grammars for language tags. It combines the
// extension map with the compiled-in grammar Registry.
type Loader struct {
	registry *Registry
}

// NewLoader constructs a Loader backed by the compiled-in grammar registry.
func NewLoader() *Loader {
	return &Loader{registry: NewRegistry()}
}

// Grammar returns the tree-sitter Language for a language tag, loading and
// caching it on first use. Unknown tags and tags whose grammar is not
// compiled in both report GrammarNotFoundError.
func (l *Loader) Grammar(tag string) (*tree_sitter.Language, error) {
	grammarName, ok := tagGrammar[tag]
	if !ok {
		return nil, &GrammarNotFoundError{Name: tag}
	}
	lang, err := l.registry.Load(grammarName)
	if err != nil {
		return nil, err
	}
	return lang, nil
}

// Supports reports whether tag names a language this registry can parse.
func (l *Loader) Supports(tag string) bool {
	_, ok := tagGrammar[tag]
	return ok
}
