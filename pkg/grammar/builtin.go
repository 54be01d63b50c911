package grammar

import (
	"sync"
	"unsafe"

	tree_sitter "github.com/tree-sitter/go-tree-sitter"

	// Compiled-in grammar bindings, one per supported language tag.
	tree_sitter_go "github.com/tree-sitter/tree-sitter-go/bindings/go"
	tree_sitter_html "github.com/tree-sitter/tree-sitter-html/bindings/go"
	tree_sitter_java "github.com/tree-sitter/tree-sitter-java/bindings/go"
	tree_sitter_javascript "github.com/tree-sitter/tree-sitter-javascript/bindings/go"
	tree_sitter_python "github.com/tree-sitter/tree-sitter-python/bindings/go"
	tree_sitter_rust "github.com/tree-sitter/tree-sitter-rust/bindings/go"
	tree_sitter_typescript "github.com/tree-sitter/tree-sitter-typescript/bindings/go"
)

// builtinGrammar holds a compiled-in grammar provider.
type builtinGrammar struct {
	name     string
	provider BuiltinProvider
}

// Registry maps a language tag to its compiled-in tree-sitter grammar.
// All grammars recognized by this package are linked in at build time —
// there is no dynamic download or plugin-loading path, since the set of
// languages this system extracts from is closed (see Tags).
type Registry struct {
	mu       sync.RWMutex
	grammars map[string]*builtinGrammar
	loaded   map[string]*tree_sitter.Language
}

// NewRegistry creates a registry with all compiled-in grammars registered.
func NewRegistry() *Registry {
	r := &Registry{
		grammars: make(map[string]*builtinGrammar),
		loaded:   make(map[string]*tree_sitter.Language),
	}
	registerBuiltins(r)
	return r
}

// Register adds a compiled-in grammar to the registry.
func (r *Registry) Register(name string, provider BuiltinProvider) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.grammars[name] = &builtinGrammar{name: name, provider: provider}
}

// Load returns the Language for a registered grammar tag, loading and
// caching it on first use.
func (r *Registry) Load(name string) (*tree_sitter.Language, error) {
	r.mu.RLock()
	if lang, ok := r.loaded[name]; ok {
		r.mu.RUnlock()
		return lang, nil
	}
	r.mu.RUnlock()

	r.mu.Lock()
	defer r.mu.Unlock()

	if lang, ok := r.loaded[name]; ok {
		return lang, nil
	}

	g, ok := r.grammars[name]
	if !ok {
		return nil, &GrammarNotFoundError{Name: name}
	}

	ptr := g.provider()
	lang := tree_sitter.NewLanguage(ptr)
	if lang == nil {
		return nil, &GrammarNotFoundError{Name: name}
	}
	r.loaded[name] = lang
	return lang, nil
}

// Has returns true if the grammar tag is registered.
func (r *Registry) Has(name string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.grammars[name]
	return ok
}

// Names returns the tags of all registered grammars.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.grammars))
	for name := range r.grammars {
		names = append(names, name)
	}
	return names
}

// registerBuiltins wires up the grammars compiled into the binary.
// Each grammar Go binding exposes a function returning unsafe.Pointer to a
// TSLanguage; TypeScript additionally exposes a TSX dialect under a
// separate entry point.
func registerBuiltins(r *Registry) {
	r.Register("go", tree_sitter_go.Language)
	r.Register("typescript", func() unsafe.Pointer {
		return tree_sitter_typescript.LanguageTypescript()
	})
	r.Register("tsx", func() unsafe.Pointer {
		return tree_sitter_typescript.LanguageTSX()
	})
	r.Register("javascript", tree_sitter_javascript.Language)
	r.Register("python", tree_sitter_python.Language)
	r.Register("rust", tree_sitter_rust.Language)
	r.Register("java", tree_sitter_java.Language)
	r.Register("html", tree_sitter_html.Language)
}
