package store

import (
	"path/filepath"
	"testing"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	dir := t.TempDir()
	s, err := Open(filepath.Join(dir, "index.db"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestUpsertFileInsertsThenUpdates(t *testing.T) {
	s := newTestStore(t)

	id1, err := s.UpsertFile(File{ID: "file-1", Path: "a.go", Language: "go", ContentHash: "h1", MTime: 1, Size: 10, IndexedAt: 1})
	if err != nil {
		t.Fatalf("upsert insert: %v", err)
	}

	id2, err := s.UpsertFile(File{ID: "file-2", Path: "a.go", Language: "go", ContentHash: "h2", MTime: 2, Size: 20, IndexedAt: 2})
	if err != nil {
		t.Fatalf("upsert update: %v", err)
	}
	if id1 != id2 {
		t.Errorf("expected upsert by path to keep the original id, got %q then %q", id1, id2)
	}

	f, err := s.GetFileByPath("a.go")
	if err != nil {
		t.Fatalf("get file by path: %v", err)
	}
	if f.ContentHash != "h2" || f.Size != 20 {
		t.Errorf("expected updated row, got %+v", f)
	}
}

func TestReplaceFileSymbolsCascadesOldCalls(t *testing.T) {
	s := newTestStore(t)

	fileID, err := s.UpsertFile(File{ID: "f1", Path: "a.go", Language: "go", ContentHash: "h1", MTime: 1, Size: 1, IndexedAt: 1})
	if err != nil {
		t.Fatalf("upsert file: %v", err)
	}

	caller := Symbol{ID: "sym-caller", FileID: fileID, Language: "go", Kind: KindFunction, Name: "Caller", QualifiedName: "pkg.Caller"}
	callee := Symbol{ID: "sym-callee", FileID: fileID, Language: "go", Kind: KindFunction, Name: "Callee", QualifiedName: "pkg.Callee"}
	call := Call{ID: "call-1", CallerID: "sym-caller", CalleeID: "sym-callee", StartLine: 1, StartCol: 0, EndLine: 1, EndCol: 5}

	if err := s.ReplaceFileSymbols(fileID, []Symbol{caller, callee}, []Call{call}, nil); err != nil {
		t.Fatalf("replace file symbols: %v", err)
	}

	outgoing, err := s.OutgoingCalls("sym-caller")
	if err != nil {
		t.Fatalf("outgoing calls: %v", err)
	}
	if len(outgoing) != 1 {
		t.Fatalf("expected 1 outgoing call, got %d", len(outgoing))
	}

	// Reindex the file with no symbols at all (e.g. file emptied out).
	if err := s.ReplaceFileSymbols(fileID, nil, nil, nil); err != nil {
		t.Fatalf("replace file symbols (empty): %v", err)
	}

	if _, err := s.GetSymbol("sym-caller"); err != nil {
		t.Fatalf("get symbol after clear: %v", err)
	}
	remaining, err := s.OutgoingCalls("sym-caller")
	if err != nil {
		t.Fatalf("outgoing calls after clear: %v", err)
	}
	if len(remaining) != 0 {
		t.Errorf("expected calls to cascade away with their symbols, got %+v", remaining)
	}
}

func TestReplaceFileUpsertsFileAndSymbolsTogether(t *testing.T) {
	s := newTestStore(t)

	sym := Symbol{ID: "sym-1", Language: "go", Kind: KindFunction, Name: "F", QualifiedName: "pkg.F"}
	fileID, err := s.ReplaceFile(File{ID: "f1", Path: "a.go", Language: "go", ContentHash: "h1", MTime: 1, Size: 1, IndexedAt: 1}, []Symbol{sym}, nil, nil)
	if err != nil {
		t.Fatalf("replace file: %v", err)
	}

	f, err := s.GetFileByPath("a.go")
	if err != nil {
		t.Fatalf("get file by path: %v", err)
	}
	if f.ContentHash != "h1" {
		t.Errorf("expected file row to be written, got %+v", f)
	}

	got, err := s.GetSymbol("sym-1")
	if err != nil {
		t.Fatalf("get symbol: %v", err)
	}
	if got == nil || got.FileID != fileID {
		t.Errorf("expected symbol attributed to the new file id, got %+v", got)
	}

	// Re-replacing the same path updates the existing row rather than
	// inserting a second one, and swaps its symbols in the same call.
	sym2 := Symbol{ID: "sym-2", Language: "go", Kind: KindFunction, Name: "G", QualifiedName: "pkg.G"}
	fileID2, err := s.ReplaceFile(File{ID: "ignored", Path: "a.go", Language: "go", ContentHash: "h2", MTime: 2, Size: 2, IndexedAt: 2}, []Symbol{sym2}, nil, nil)
	if err != nil {
		t.Fatalf("replace file (second): %v", err)
	}
	if fileID2 != fileID {
		t.Errorf("expected replace-by-path to keep the original file id, got %q then %q", fileID, fileID2)
	}

	if got, err := s.GetSymbol("sym-1"); err != nil {
		t.Fatalf("get symbol after replace: %v", err)
	} else if got != nil {
		t.Errorf("expected old symbol to be replaced, got %+v", got)
	}
	if got, err := s.GetSymbol("sym-2"); err != nil {
		t.Fatalf("get symbol after replace: %v", err)
	} else if got == nil {
		t.Errorf("expected new symbol to be present")
	}
}

func TestDeleteFileCascadesSymbols(t *testing.T) {
	s := newTestStore(t)
	fileID, err := s.UpsertFile(File{ID: "f1", Path: "a.go", Language: "go", ContentHash: "h1", MTime: 1, Size: 1, IndexedAt: 1})
	if err != nil {
		t.Fatalf("upsert file: %v", err)
	}
	sym := Symbol{ID: "sym-1", FileID: fileID, Language: "go", Kind: KindFunction, Name: "F", QualifiedName: "pkg.F"}
	if err := s.ReplaceFileSymbols(fileID, []Symbol{sym}, nil, nil); err != nil {
		t.Fatalf("replace file symbols: %v", err)
	}

	if err := s.DeleteFile(fileID); err != nil {
		t.Fatalf("delete file: %v", err)
	}

	got, err := s.GetSymbol("sym-1")
	if err != nil {
		t.Fatalf("get symbol: %v", err)
	}
	if got != nil {
		t.Errorf("expected symbol to be cascade-deleted with its file, got %+v", got)
	}
}

func TestDeleteSubtreeRemovesNestedFiles(t *testing.T) {
	s := newTestStore(t)
	paths := []string{"pkg/a.go", "pkg/sub/b.go", "other/c.go"}
	for i, p := range paths {
		if _, err := s.UpsertFile(File{ID: p, Path: p, Language: "go", ContentHash: "h", MTime: int64(i), Size: 1, IndexedAt: int64(i)}); err != nil {
			t.Fatalf("upsert file %s: %v", p, err)
		}
	}

	n, err := s.DeleteSubtree("pkg/")
	if err != nil {
		t.Fatalf("delete subtree: %v", err)
	}
	if n != 2 {
		t.Errorf("expected 2 files removed under pkg/, got %d", n)
	}

	remaining, err := s.ListFiles()
	if err != nil {
		t.Fatalf("list files: %v", err)
	}
	if len(remaining) != 1 || remaining[0].Path != "other/c.go" {
		t.Errorf("expected only other/c.go to remain, got %+v", remaining)
	}
}

func TestFindSymbolsByNameFilters(t *testing.T) {
	s := newTestStore(t)
	fileID, err := s.UpsertFile(File{ID: "f1", Path: "a.go", Language: "go", ContentHash: "h1", MTime: 1, Size: 1, IndexedAt: 1})
	if err != nil {
		t.Fatalf("upsert file: %v", err)
	}
	syms := []Symbol{
		{ID: "s1", FileID: fileID, Language: "go", Kind: KindFunction, Name: "Run", QualifiedName: "pkg.Run"},
		{ID: "s2", FileID: fileID, Language: "go", Kind: KindMethod, Name: "Run", QualifiedName: "pkg.Widget.Run"},
	}
	if err := s.ReplaceFileSymbols(fileID, syms, nil, nil); err != nil {
		t.Fatalf("replace file symbols: %v", err)
	}

	all, err := s.FindSymbolsByName("Run", "", "")
	if err != nil {
		t.Fatalf("find symbols by name: %v", err)
	}
	if len(all) != 2 {
		t.Errorf("expected 2 matches for Run, got %d", len(all))
	}

	methods, err := s.FindSymbolsByName("Run", "", KindMethod)
	if err != nil {
		t.Fatalf("find symbols by name+kind: %v", err)
	}
	if len(methods) != 1 || methods[0].QualifiedName != "pkg.Widget.Run" {
		t.Errorf("expected only the method match, got %+v", methods)
	}
}

func TestUpsertEmbeddingAndListNeedingEmbedding(t *testing.T) {
	s := newTestStore(t)
	fileID, err := s.UpsertFile(File{ID: "f1", Path: "a.go", Language: "go", ContentHash: "h1", MTime: 1, Size: 1, IndexedAt: 1})
	if err != nil {
		t.Fatalf("upsert file: %v", err)
	}
	sym := Symbol{ID: "s1", FileID: fileID, Language: "go", Kind: KindFunction, Name: "F", QualifiedName: "pkg.F", SummaryHash: "hash-1"}
	if err := s.ReplaceFileSymbols(fileID, []Symbol{sym}, nil, nil); err != nil {
		t.Fatalf("replace file symbols: %v", err)
	}

	needing, err := s.ListSymbolsNeedingEmbedding("model-a")
	if err != nil {
		t.Fatalf("list symbols needing embedding: %v", err)
	}
	if len(needing) != 1 {
		t.Fatalf("expected 1 symbol needing embedding, got %d", len(needing))
	}

	if err := s.UpsertEmbedding(Embedding{SymbolID: "s1", Model: "model-a", Dim: 3, Payload: []byte{0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0}, ChunkHash: "hash-1", CreatedAt: 1, UpdatedAt: 1}); err != nil {
		t.Fatalf("upsert embedding: %v", err)
	}

	needing, err = s.ListSymbolsNeedingEmbedding("model-a")
	if err != nil {
		t.Fatalf("list symbols needing embedding after upsert: %v", err)
	}
	if len(needing) != 0 {
		t.Errorf("expected no symbols needing embedding once chunk hash matches, got %+v", needing)
	}
}
