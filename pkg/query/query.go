// Package query answers structural and semantic questions against an
// indexed store: name lookup, definition/reference resolution, call-chain
// traversal, object-member enumeration, and embedding similarity search
// (§4.6).
package query

import (
	"sort"
	"strings"

	"github.com/jmylchreest/codeindex/pkg/store"
)

// Engine answers queries against one store.
type Engine struct {
	store *store.Store
}

func New(st *store.Store) *Engine {
	return &Engine{store: st}
}

// FindSymbols returns every symbol matching name, optionally filtered by
// language and kind; ranking is lexicographic by qualified name, not
// scored (§4.6).
func (e *Engine) FindSymbols(name, language, kind string) ([]store.Symbol, error) {
	syms, err := e.store.FindSymbolsByName(name, language, kind)
	if err != nil {
		return nil, err
	}
	sort.Slice(syms, func(i, j int) bool { return syms[i].QualifiedName < syms[j].QualifiedName })
	return syms, nil
}

// FindSymbol is FindSymbols' single-match convenience: it applies an
// inFile substring filter, then a kind filter, in that order, and returns
// the first remaining row (§4.6).
func (e *Engine) FindSymbol(name, language, inFile, kind string) (*store.Symbol, error) {
	candidates, err := e.store.FindSymbolsByName(name, language, "")
	if err != nil {
		return nil, err
	}
	if inFile != "" {
		var filtered []store.Symbol
		for _, s := range candidates {
			loc, err := e.store.GetLocation(s.ID)
			if err != nil {
				return nil, err
			}
			if loc != nil && strings.Contains(loc.Path, inFile) {
				filtered = append(filtered, s)
			}
		}
		candidates = filtered
	}
	if kind != "" {
		var filtered []store.Symbol
		for _, s := range candidates {
			if s.Kind == kind {
				filtered = append(filtered, s)
			}
		}
		candidates = filtered
	}
	if len(candidates) == 0 {
		return nil, nil
	}
	return &candidates[0], nil
}

// GetDefinition resolves a symbol to its file and span (§4.6).
func (e *Engine) GetDefinition(symbolID string) (*store.Location, error) {
	return e.store.GetLocation(symbolID)
}

// ReferenceHit is one reference result with its resolved source location
// attached, satisfying the "resolve, don't leave blank" decision recorded
// in DESIGN.md for the path-resolution open question.
type ReferenceHit struct {
	store.Reference
	SourcePath string
}

// GetReferences returns every reference targeting symbolID, each with its
// source file's path resolved (§4.6, §9 open question).
func (e *Engine) GetReferences(symbolID string) ([]ReferenceHit, error) {
	refs, err := e.store.ReferencesTo(symbolID)
	if err != nil {
		return nil, err
	}
	out := make([]ReferenceHit, 0, len(refs))
	for _, r := range refs {
		hit := ReferenceHit{Reference: r}
		if f, err := e.store.GetFile(r.SourceFileID); err == nil && f != nil {
			hit.SourcePath = f.Path
		}
		out = append(out, hit)
	}
	return out, nil
}
