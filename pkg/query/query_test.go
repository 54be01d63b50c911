package query

import (
	"path/filepath"
	"testing"

	"github.com/jmylchreest/codeindex/pkg/store"
)

func newTestEngine(t *testing.T) (*Engine, *store.Store) {
	t.Helper()
	st, err := store.Open(filepath.Join(t.TempDir(), "index.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { st.Close() })
	return New(st), st
}

func mustUpsertFile(t *testing.T, st *store.Store, id, path string) string {
	t.Helper()
	fileID, err := st.UpsertFile(store.File{ID: id, Path: path, Language: "go", ContentHash: "h", MTime: 1, Size: 1, IndexedAt: 1})
	if err != nil {
		t.Fatalf("upsert file: %v", err)
	}
	return fileID
}

func TestBuildCallChainSuppressesCycles(t *testing.T) {
	eng, st := newTestEngine(t)
	fileID := mustUpsertFile(t, st, "f1", "a.go")

	a := store.Symbol{ID: "a", FileID: fileID, Language: "go", Kind: store.KindFunction, Name: "a", QualifiedName: "pkg.a"}
	b := store.Symbol{ID: "b", FileID: fileID, Language: "go", Kind: store.KindFunction, Name: "b", QualifiedName: "pkg.b"}
	callAB := store.Call{ID: "c1", CallerID: "a", CalleeID: "b", SiteFileID: fileID}
	callBA := store.Call{ID: "c2", CallerID: "b", CalleeID: "a", SiteFileID: fileID}

	if err := st.ReplaceFileSymbols(fileID, []store.Symbol{a, b}, []store.Call{callAB, callBA}, nil); err != nil {
		t.Fatalf("replace file symbols: %v", err)
	}

	tree, err := eng.BuildCallChain("a", Forward, 5)
	if err != nil {
		t.Fatalf("build call chain: %v", err)
	}
	if tree.SymbolID != "a" {
		t.Fatalf("expected root a, got %s", tree.SymbolID)
	}
	if len(tree.Children) != 1 || tree.Children[0].SymbolID != "b" {
		t.Fatalf("expected a -> b, got children %+v", tree.Children)
	}
	if len(tree.Children[0].Children) != 0 {
		t.Errorf("expected cycle back to a to be suppressed, got children %+v", tree.Children[0].Children)
	}
}

func TestSemanticSearchOrdersAndFilters(t *testing.T) {
	eng, st := newTestEngine(t)
	fileID := mustUpsertFile(t, st, "f1", "a.go")

	syms := []store.Symbol{
		{ID: "s1", FileID: fileID, Language: "go", Kind: store.KindFunction, Name: "A", QualifiedName: "pkg.A", SummaryHash: "h1"},
		{ID: "s2", FileID: fileID, Language: "go", Kind: store.KindFunction, Name: "B", QualifiedName: "pkg.B", SummaryHash: "h2"},
		{ID: "s3", FileID: fileID, Language: "go", Kind: store.KindFunction, Name: "C", QualifiedName: "pkg.C", SummaryHash: "h3"},
	}
	if err := st.ReplaceFileSymbols(fileID, syms, nil, nil); err != nil {
		t.Fatalf("replace file symbols: %v", err)
	}

	vectors := map[string][]float32{
		"s1": {1, 0},
		"s2": {0, 1},
		"s3": {0.707, 0.707},
	}
	for id, v := range vectors {
		if err := st.UpsertEmbedding(store.Embedding{SymbolID: id, Model: "m", Dim: 2, Payload: EncodeFloat32LE(v), ChunkHash: "h", CreatedAt: 1, UpdatedAt: 1}); err != nil {
			t.Fatalf("upsert embedding %s: %v", id, err)
		}
	}

	hits, err := eng.SemanticSearch([]float32{1, 0}, "m", 3, "", "", 0.7)
	if err != nil {
		t.Fatalf("semantic search: %v", err)
	}
	if len(hits) != 2 {
		t.Fatalf("expected 2 hits above threshold (s2 maps to 0.5), got %d: %+v", len(hits), hits)
	}
	if hits[0].Symbol.ID != "s1" {
		t.Errorf("expected s1 (similarity 1.0) first, got %s", hits[0].Symbol.ID)
	}
	if hits[0].Similarity < 0.99 {
		t.Errorf("expected top similarity ~1.0, got %f", hits[0].Similarity)
	}
	last := hits[len(hits)-1]
	if last.Similarity < 0.85 || last.Similarity > 0.86 {
		t.Errorf("expected last result similarity ~0.854, got %f", last.Similarity)
	}
}

func TestFindSymbolFilterPriority(t *testing.T) {
	eng, st := newTestEngine(t)
	fileA := mustUpsertFile(t, st, "fa", "a.go")
	fileB := mustUpsertFile(t, st, "fb", "b.go")

	inA := store.Symbol{ID: "sa", FileID: fileA, Language: "go", Kind: store.KindFunction, Name: "Run", QualifiedName: "a.Run"}
	inB := store.Symbol{ID: "sb", FileID: fileB, Language: "go", Kind: store.KindMethod, Name: "Run", QualifiedName: "b.Widget.Run"}
	if err := st.ReplaceFileSymbols(fileA, []store.Symbol{inA}, nil, nil); err != nil {
		t.Fatalf("replace a: %v", err)
	}
	if err := st.ReplaceFileSymbols(fileB, []store.Symbol{inB}, nil, nil); err != nil {
		t.Fatalf("replace b: %v", err)
	}

	got, err := eng.FindSymbol("Run", "", "b.go", "")
	if err != nil {
		t.Fatalf("find symbol: %v", err)
	}
	if got == nil || got.ID != "sb" {
		t.Fatalf("expected inFile filter to select sb, got %+v", got)
	}
}
