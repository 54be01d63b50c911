package indexer

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/jmylchreest/codeindex/pkg/config"
	"github.com/jmylchreest/codeindex/pkg/store"
)

func newTestIndexer(t *testing.T, files map[string]string) (*Indexer, string) {
	t.Helper()
	root := t.TempDir()
	for rel, content := range files {
		full := filepath.Join(root, rel)
		if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
			t.Fatalf("mkdir: %v", err)
		}
		if err := os.WriteFile(full, []byte(content), 0o644); err != nil {
			t.Fatalf("write %s: %v", rel, err)
		}
	}

	st, err := store.Open(filepath.Join(t.TempDir(), "index.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { st.Close() })

	ix := New(config.Config{RootDir: root}, st)
	t.Cleanup(func() { ix.Close() })
	return ix, root
}

func TestIndexAllExtractsSymbolsAndResolvesSameFileCall(t *testing.T) {
	ix, _ := newTestIndexer(t, map[string]string{
		"main.go": "package sample\n\nfunc Outer() {\n\tinner()\n}\n\nfunc inner() {}\n",
	})

	if err := ix.IndexAll(nil); err != nil {
		t.Fatalf("index all: %v", err)
	}

	outer, err := ix.store.FindSymbolsByName("Outer", "", "")
	if err != nil {
		t.Fatalf("find Outer: %v", err)
	}
	if len(outer) != 1 {
		t.Fatalf("expected exactly one Outer symbol, got %d", len(outer))
	}

	calls, err := ix.store.OutgoingCalls(outer[0].ID)
	if err != nil {
		t.Fatalf("outgoing calls: %v", err)
	}
	if len(calls) != 1 {
		t.Fatalf("expected Outer to have one resolved outgoing call, got %d", len(calls))
	}
}

func TestIndexAllSkipsUnchangedFiles(t *testing.T) {
	ix, root := newTestIndexer(t, map[string]string{
		"main.go": "package sample\n\nfunc A() {}\n",
	})

	if err := ix.IndexAll(nil); err != nil {
		t.Fatalf("first index: %v", err)
	}

	reindexedCount := 0
	progress := &Progress{OnFile: func(path string, reindexed bool) {
		if reindexed {
			reindexedCount++
		}
	}}
	if err := ix.IndexAll(progress); err != nil {
		t.Fatalf("second index: %v", err)
	}
	if reindexedCount != 0 {
		t.Errorf("expected no files re-indexed on unchanged content, got %d", reindexedCount)
	}

	// Touch content to change the hash; it must be picked up.
	if err := os.WriteFile(filepath.Join(root, "main.go"), []byte("package sample\n\nfunc A() {}\nfunc B() {}\n"), 0o644); err != nil {
		t.Fatalf("rewrite file: %v", err)
	}
	reindexedCount = 0
	if err := ix.IndexAll(progress); err != nil {
		t.Fatalf("third index: %v", err)
	}
	if reindexedCount != 1 {
		t.Errorf("expected 1 file re-indexed after content change, got %d", reindexedCount)
	}
}

func TestRebuildClearsBeforeReindexing(t *testing.T) {
	ix, _ := newTestIndexer(t, map[string]string{
		"main.go": "package sample\n\nfunc A() {}\n",
	})
	if err := ix.IndexAll(nil); err != nil {
		t.Fatalf("index all: %v", err)
	}
	if err := ix.Rebuild(nil); err != nil {
		t.Fatalf("rebuild: %v", err)
	}

	syms, err := ix.store.FindSymbolsByName("A", "", "")
	if err != nil {
		t.Fatalf("find A: %v", err)
	}
	if len(syms) != 1 {
		t.Errorf("expected exactly one A symbol after rebuild, got %d", len(syms))
	}
}

func TestIndexAllSkipsIgnoredDirectories(t *testing.T) {
	ix, _ := newTestIndexer(t, map[string]string{
		"main.go":                 "package sample\n\nfunc A() {}\n",
		"vendor/dep/dep.go":       "package dep\n\nfunc Dep() {}\n",
		"node_modules/lib/lib.go": "package lib\n\nfunc Lib() {}\n",
	})

	if err := ix.IndexAll(nil); err != nil {
		t.Fatalf("index all: %v", err)
	}

	if syms, err := ix.store.FindSymbolsByName("A", "", ""); err != nil || len(syms) != 1 {
		t.Fatalf("expected A to be indexed, got %v syms, err %v", syms, err)
	}
	if syms, err := ix.store.FindSymbolsByName("Dep", "", ""); err != nil || len(syms) != 0 {
		t.Fatalf("expected vendor/ to be skipped, got %v syms, err %v", syms, err)
	}
	if syms, err := ix.store.FindSymbolsByName("Lib", "", ""); err != nil || len(syms) != 0 {
		t.Fatalf("expected node_modules/ to be skipped, got %v syms, err %v", syms, err)
	}
}

func TestDirOf(t *testing.T) {
	tests := []struct{ path, want string }{
		{"pkg/a.go", "pkg/"},
		{"pkg/sub/b.go", "pkg/sub/"},
		{"main.go", ""},
	}
	for _, tt := range tests {
		if got := DirOf(tt.path); got != tt.want {
			t.Errorf("DirOf(%q) = %q, want %q", tt.path, got, tt.want)
		}
	}
}
