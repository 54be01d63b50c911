// Package indexer walks a source tree, extracts its symbols/calls/
// references per language, and keeps the store's view of the tree
// current (§4.5).
package indexer

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/oklog/ulid/v2"

	"github.com/jmylchreest/codeindex/pkg/config"
	"github.com/jmylchreest/codeindex/pkg/extract"
	"github.com/jmylchreest/codeindex/pkg/grammar"
	"github.com/jmylchreest/codeindex/pkg/ignore"
	"github.com/jmylchreest/codeindex/pkg/store"
)

var logger = log.New(os.Stderr, "[index:indexer] ", log.Ltime)

// Progress reports indexAll's sweep as it happens; OnFile may be nil.
type Progress struct {
	// OnFile is called once per file considered, with the relative path
	// and whether it was actually re-indexed (false when skipped or
	// unchanged). A file whose indexing fails is logged and not reported.
	OnFile func(path string, reindexed bool)
}

// Indexer drives the extraction pipeline against one store and source
// tree (§4.5).
type Indexer struct {
	cfg     config.Config
	store   *store.Store
	loader  *grammar.Loader
	ignores *ignore.Matcher
}

// New builds an Indexer. cfg is normalized with defaults applied. The
// ignore matcher loads RootDir/.codeindexignore if present; a load error
// falls back to built-in defaults rather than failing construction.
func New(cfg config.Config, st *store.Store) *Indexer {
	cfg = cfg.WithDefaults()
	matcher, err := ignore.New(cfg.RootDir)
	if err != nil {
		logger.Printf("load .codeindexignore: %v, using built-in defaults", err)
		matcher = ignore.NewFromDefaults()
	}
	return &Indexer{cfg: cfg, store: st, loader: grammar.NewLoader(), ignores: matcher}
}

// Close releases the indexer's store handle (§4.5).
func (ix *Indexer) Close() error {
	return ix.store.Close()
}

// IndexAll enumerates every path under RootDir matching the include
// globs minus the exclude globs, and re-indexes any that changed (§4.5).
func (ix *Indexer) IndexAll(progress *Progress) error {
	paths, err := ix.matchingPaths()
	if err != nil {
		return fmt.Errorf("indexer: enumerate paths: %w", err)
	}
	for _, rel := range paths {
		reindexed, err := ix.indexOne(rel)
		if err != nil {
			logger.Printf("skipping %s: %v", rel, err)
			continue
		}
		if progress != nil && progress.OnFile != nil {
			progress.OnFile(rel, reindexed)
		}
	}
	return nil
}

// IndexFile re-indexes a single path relative to RootDir, for live
// updates from the watcher (§4.5).
func (ix *Indexer) IndexFile(relPath string) error {
	_, err := ix.indexOne(relPath)
	return err
}

// Rebuild clears the store, re-indexes everything, then compacts (§4.5).
func (ix *Indexer) Rebuild(progress *Progress) error {
	if err := ix.store.Clear(); err != nil {
		return fmt.Errorf("indexer: clear: %w", err)
	}
	if err := ix.IndexAll(progress); err != nil {
		return err
	}
	if err := ix.store.Compact(); err != nil {
		return fmt.Errorf("indexer: compact: %w", err)
	}
	return nil
}

func (ix *Indexer) matchingPaths() ([]string, error) {
	includes := ix.cfg.Include
	if len(includes) == 0 {
		includes = []string{config.DefaultInclude}
	}

	seen := make(map[string]bool)
	var matched []string
	err := filepath.WalkDir(ix.cfg.RootDir, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if path == ix.cfg.RootDir {
			return nil
		}
		rel, relErr := filepath.Rel(ix.cfg.RootDir, path)
		if relErr != nil {
			return nil
		}
		rel = filepath.ToSlash(rel)

		if d.IsDir() {
			if ix.ignores.ShouldIgnoreDir(rel) {
				return filepath.SkipDir
			}
			return nil
		}
		if ix.ignores.ShouldIgnoreFile(rel) {
			return nil
		}
		if !matchesAny(includes, rel) || matchesAny(ix.cfg.Exclude, rel) {
			return nil
		}
		if seen[rel] {
			return nil
		}
		seen[rel] = true
		matched = append(matched, rel)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return matched, nil
}

func matchesAny(globs []string, rel string) bool {
	for _, g := range globs {
		if ok, _ := doublestar.Match(g, rel); ok {
			return true
		}
	}
	return false
}

// indexOne re-indexes relPath and reports whether it actually re-indexed
// (as opposed to skipping an unsupported language or unchanged hash).
func (ix *Indexer) indexOne(relPath string) (bool, error) {
	tag, ok := grammar.LanguageForExtension(relPath)
	if !ok {
		return false, nil
	}
	if !ix.languageEnabled(tag) {
		return false, nil
	}

	absPath := filepath.Join(ix.cfg.RootDir, relPath)
	content, err := os.ReadFile(absPath)
	if err != nil {
		return false, fmt.Errorf("read %s: %w", relPath, err)
	}
	info, err := os.Stat(absPath)
	if err != nil {
		return false, fmt.Errorf("stat %s: %w", relPath, err)
	}

	hash := sha256.Sum256(content)
	hashHex := hex.EncodeToString(hash[:])

	existing, err := ix.store.GetFileByPath(relPath)
	if err != nil {
		return false, fmt.Errorf("lookup %s: %w", relPath, err)
	}
	if existing != nil && existing.ContentHash == hashHex {
		return false, nil
	}

	result, err := extract.File(ix.loader, tag, content, ix.cfg.MaxNestedStructDepth)
	if err != nil {
		return false, fmt.Errorf("extract %s: %w", relPath, err)
	}

	fileID := ulid.Make().String()
	if existing != nil {
		fileID = existing.ID
	}
	now := time.Now().Unix()

	file := store.File{
		ID:          fileID,
		Path:        relPath,
		Language:    tag,
		ContentHash: hashHex,
		MTime:       info.ModTime().Unix(),
		Size:        info.Size(),
		IndexedAt:   now,
	}

	symbols := ix.materializeSymbols(fileID, tag, result.Symbols)
	calls := ix.resolveCalls(fileID, result.Calls, symbols)
	refs := ix.resolveReferences(fileID, result.References, symbols)

	if _, err := ix.store.ReplaceFile(file, symbols, calls, refs); err != nil {
		return false, fmt.Errorf("replace file %s: %w", relPath, err)
	}
	return true, nil
}

func (ix *Indexer) languageEnabled(tag string) bool {
	if len(ix.cfg.Languages) == 0 {
		return true
	}
	for _, l := range ix.cfg.Languages {
		if l == tag {
			return true
		}
	}
	return false
}

func (ix *Indexer) materializeSymbols(fileID, tag string, extracted []extract.Symbol) []store.Symbol {
	out := make([]store.Symbol, 0, len(extracted))
	for _, s := range extracted {
		out = append(out, store.Symbol{
			ID:            ulid.Make().String(),
			FileID:        fileID,
			Language:      tag,
			Kind:          s.Kind,
			Name:          s.Name,
			QualifiedName: s.QualifiedName,
			StartLine:     s.StartLine,
			StartCol:      s.StartCol,
			EndLine:       s.EndLine,
			EndCol:        s.EndCol,
			Signature:     s.Signature,
			DocComment:    s.DocComment,
			Exported:      s.Exported,
		})
	}
	return out
}

// resolveCalls implements §4.5's best-effort call resolution: the caller
// is the innermost symbol of the current file whose span contains the
// call site's start line (smallest span wins); the callee is the first
// matching symbol by short name. Calls with no resolvable caller are
// dropped.
//
// The whole file's symbols, calls, and references are written in one
// store transaction (store.ReplaceFile), so the callee/target
// lookup cannot be a live store query mid-transaction without a second
// connection to the same locked database. Instead it checks the file's
// own freshly extracted symbols first — reproducing same-file
// resolution exactly — and falls back to the store-wide first-match
// query for names defined elsewhere, which only sees already-committed
// files (an acceptable instance of the approximation §9 already
// acknowledges for cross-file resolution).
func (ix *Indexer) resolveCalls(fileID string, extracted []extract.Call, symbols []store.Symbol) []store.Call {
	var out []store.Call
	for _, c := range extracted {
		caller := innermostSymbol(symbols, c.StartLine)
		if caller == nil {
			continue
		}
		calleeID, ok := ix.resolveName(c.CalleeName, symbols)
		if !ok {
			continue
		}
		out = append(out, store.Call{
			ID:         ulid.Make().String(),
			CallerID:   caller.ID,
			CalleeID:   calleeID,
			SiteFileID: fileID,
			StartLine:  c.StartLine,
			StartCol:   c.StartCol,
			EndLine:    c.EndLine,
			EndCol:     c.EndCol,
		})
	}
	return out
}

// resolveReferences resolves each reference's target analogously to a
// call's callee (§4.5).
func (ix *Indexer) resolveReferences(fileID string, extracted []extract.Reference, symbols []store.Symbol) []store.Reference {
	var out []store.Reference
	for _, r := range extracted {
		targetID, ok := ix.resolveName(r.TargetName, symbols)
		if !ok {
			continue
		}
		out = append(out, store.Reference{
			ID:           ulid.Make().String(),
			SourceFileID: fileID,
			TargetID:     targetID,
			Kind:         r.Kind,
			StartLine:    r.StartLine,
			StartCol:     r.StartCol,
			EndLine:      r.EndLine,
			EndCol:       r.EndCol,
		})
	}
	return out
}

// resolveName finds the first symbol matching name, preferring the
// current file's own freshly extracted symbols (in extraction order)
// before falling back to a store-wide lookup among already-committed
// files.
func (ix *Indexer) resolveName(name string, local []store.Symbol) (string, bool) {
	for _, s := range local {
		if s.Name == name {
			return s.ID, true
		}
	}
	match, err := ix.store.FindFirstSymbolByName(name)
	if err != nil {
		logger.Printf("resolve %q: %v", name, err)
		return "", false
	}
	if match == nil {
		return "", false
	}
	return match.ID, true
}

// innermostSymbol returns the symbol among symbols whose span contains
// line, preferring the smallest span when several qualify (§4.5, §9).
func innermostSymbol(symbols []store.Symbol, line int) *store.Symbol {
	var best *store.Symbol
	bestSpan := -1
	for i := range symbols {
		sym := &symbols[i]
		if line < sym.StartLine || line > sym.EndLine {
			continue
		}
		span := sym.EndLine - sym.StartLine
		if best == nil || span < bestSpan {
			best = sym
			bestSpan = span
		}
	}
	return best
}

// DirOf returns the slash-separated directory portion of a relative path,
// with a trailing slash, or "" for a path at the root.
func DirOf(relPath string) string {
	dir := filepath.ToSlash(filepath.Dir(relPath))
	if dir == "." {
		return ""
	}
	return strings.TrimSuffix(dir, "/") + "/"
}
