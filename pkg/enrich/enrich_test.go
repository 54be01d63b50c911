package enrich

import (
	"context"
	"errors"
	"path/filepath"
	"sync/atomic"
	"testing"

	"github.com/jmylchreest/codeindex/pkg/config"
	"github.com/jmylchreest/codeindex/pkg/store"
)

type fakeSummarizer struct {
	calls int32
	fail  int32 // number of leading calls to fail before succeeding
}

func (f *fakeSummarizer) Summarize(_ context.Context, sym store.Symbol) (string, int, error) {
	n := atomic.AddInt32(&f.calls, 1)
	if n <= atomic.LoadInt32(&f.fail) {
		return "", 0, errors.New("transient failure")
	}
	return "summary of " + sym.Name, 3, nil
}

type fakeEmbedder struct {
	model string
}

func (f *fakeEmbedder) Model() string { return f.model }

func (f *fakeEmbedder) Embed(_ context.Context, text string) ([]float32, error) {
	return []float32{1, 0}, nil
}

func newTestStore(t *testing.T) *store.Store {
	t.Helper()
	st, err := store.Open(filepath.Join(t.TempDir(), "index.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { st.Close() })
	return st
}

func seedSymbol(t *testing.T, st *store.Store, id, name string) {
	t.Helper()
	fileID, err := st.UpsertFile(store.File{ID: "f1", Path: "a.go", Language: "go", ContentHash: "h", MTime: 1, Size: 1, IndexedAt: 1})
	if err != nil {
		t.Fatalf("upsert file: %v", err)
	}
	sym := store.Symbol{ID: id, FileID: fileID, Language: "go", Kind: store.KindFunction, Name: name, QualifiedName: "pkg." + name, Signature: "func " + name + "()"}
	if err := st.ReplaceFileSymbols(fileID, []store.Symbol{sym}, nil, nil); err != nil {
		t.Fatalf("replace file symbols: %v", err)
	}
}

func TestSummarizeAllFillsSummaryAndHash(t *testing.T) {
	st := newTestStore(t)
	seedSymbol(t, st, "s1", "A")

	e := New(config.Config{Concurrency: 2, MaxRetries: 1, RequestTimeoutSeconds: 5}, st, &fakeSummarizer{}, nil)
	if err := e.SummarizeAll(context.Background()); err != nil {
		t.Fatalf("summarize all: %v", err)
	}

	sym, err := st.GetSymbol("s1")
	if err != nil {
		t.Fatalf("get symbol: %v", err)
	}
	if sym.Summary != "summary of A" {
		t.Errorf("expected summary to be set, got %q", sym.Summary)
	}
	if sym.SummaryHash == "" {
		t.Error("expected a non-empty summary hash after summarization")
	}
}

func TestSummarizeAllRetriesTransientFailures(t *testing.T) {
	st := newTestStore(t)
	seedSymbol(t, st, "s1", "A")

	summarizer := &fakeSummarizer{fail: 2}
	e := New(config.Config{Concurrency: 1, MaxRetries: 3, RequestTimeoutSeconds: 5}, st, summarizer, nil)
	if err := e.SummarizeAll(context.Background()); err != nil {
		t.Fatalf("summarize all: %v", err)
	}

	sym, err := st.GetSymbol("s1")
	if err != nil {
		t.Fatalf("get symbol: %v", err)
	}
	if sym.Summary == "" {
		t.Error("expected summarization to eventually succeed within retry budget")
	}
}

func TestEmbedAllSkipsWithoutSummary(t *testing.T) {
	st := newTestStore(t)
	seedSymbol(t, st, "s1", "A")

	e := New(config.Config{Concurrency: 2, MaxRetries: 1, RequestTimeoutSeconds: 5}, st, nil, &fakeEmbedder{model: "m"})
	if err := e.EmbedAll(context.Background()); err != nil {
		t.Fatalf("embed all: %v", err)
	}

	embs, err := st.EmbeddingsByModel("m", "", "")
	if err != nil {
		t.Fatalf("embeddings by model: %v", err)
	}
	if len(embs) != 0 {
		t.Errorf("expected no embeddings for a symbol with no summary yet, got %d", len(embs))
	}
}

func TestEmbedAllEmbedsSummarizedSymbols(t *testing.T) {
	st := newTestStore(t)
	seedSymbol(t, st, "s1", "A")
	if err := st.UpdateSummary("s1", "hash1", "summary of A", 3, 1); err != nil {
		t.Fatalf("update summary: %v", err)
	}

	e := New(config.Config{Concurrency: 2, MaxRetries: 1, RequestTimeoutSeconds: 5}, st, nil, &fakeEmbedder{model: "m"})
	if err := e.EmbedAll(context.Background()); err != nil {
		t.Fatalf("embed all: %v", err)
	}

	embs, err := st.EmbeddingsByModel("m", "", "")
	if err != nil {
		t.Fatalf("embeddings by model: %v", err)
	}
	if len(embs) != 1 {
		t.Fatalf("expected exactly one embedding, got %d", len(embs))
	}
	if embs[0].ChunkHash != "hash1" {
		t.Errorf("expected chunk hash to track the summary hash, got %q", embs[0].ChunkHash)
	}
}
