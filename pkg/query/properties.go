package query

import (
	"strings"

	"github.com/jmylchreest/codeindex/pkg/store"
)

// GetObjectProperties resolves a class/interface/struct symbol by short
// name, then enumerates its method/property/field members. For Go an
// additional heuristic pass picks up methods declared in other files
// whose qualified name contains `Recv.`, `(*Recv).`, or `.Recv.` (§4.6,
// §9: documented best-effort, can false-positive on coincidental
// substrings).
func (e *Engine) GetObjectProperties(name, language string) ([]store.Symbol, error) {
	container, err := e.findContainer(name, language)
	if err != nil {
		return nil, err
	}
	if container == nil {
		return nil, nil
	}

	seen := map[string]bool{}
	var out []store.Symbol

	all, err := e.store.ListSymbols()
	if err != nil {
		return nil, err
	}

	prefix := container.QualifiedName + "."
	for _, s := range all {
		if !isMember(s.Kind) {
			continue
		}
		if strings.HasPrefix(s.QualifiedName, prefix) && !seen[s.ID] {
			seen[s.ID] = true
			out = append(out, s)
		}
	}

	if container.Language == "go" {
		for _, pattern := range []string{name + ".", "(*" + name + ").", "." + name + "."} {
			for _, s := range all {
				if s.Kind != store.KindMethod {
					continue
				}
				if strings.Contains(s.QualifiedName, pattern) && !seen[s.ID] {
					seen[s.ID] = true
					out = append(out, s)
				}
			}
		}
	}

	return out, nil
}

func (e *Engine) findContainer(name, language string) (*store.Symbol, error) {
	for _, kind := range []string{store.KindClass, store.KindInterface, store.KindStruct} {
		syms, err := e.store.FindSymbolsByName(name, language, kind)
		if err != nil {
			return nil, err
		}
		if len(syms) > 0 {
			return &syms[0], nil
		}
	}
	return nil, nil
}

func isMember(kind string) bool {
	switch kind {
	case store.KindMethod, store.KindProperty, store.KindField:
		return true
	}
	return false
}
