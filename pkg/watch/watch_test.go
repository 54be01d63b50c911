package watch

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/jmylchreest/codeindex/pkg/config"
	"github.com/jmylchreest/codeindex/pkg/indexer"
	"github.com/jmylchreest/codeindex/pkg/store"
)

func newTestWatcher(t *testing.T, cfg config.Config) (*Watcher, string, *store.Store) {
	t.Helper()
	root := t.TempDir()
	cfg.RootDir = root

	st, err := store.Open(filepath.Join(t.TempDir(), "index.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { st.Close() })

	ix := indexer.New(cfg, st)
	w, err := New(cfg, ix, st)
	if err != nil {
		t.Fatalf("new watcher: %v", err)
	}
	return w, root, st
}

func TestMatchesGlobsHonorsIncludeAndExclude(t *testing.T) {
	w, _, _ := newTestWatcher(t, config.Config{
		Include: []string{"**/*.go"},
		Exclude: []string{"**/*_test.go"},
	})

	cases := []struct {
		rel  string
		want bool
	}{
		{"main.go", true},
		{"pkg/sub/thing.go", true},
		{"pkg/sub/thing_test.go", false},
		{"README.md", false},
	}
	for _, c := range cases {
		if got := w.matchesGlobs(c.rel); got != c.want {
			t.Errorf("matchesGlobs(%q) = %v, want %v", c.rel, got, c.want)
		}
	}
}

func TestMatchesGlobsHonorsIgnoreRules(t *testing.T) {
	w, _, _ := newTestWatcher(t, config.Config{
		Include: []string{"**/*.go"},
	})
	if w.matchesGlobs("vendor/dep/dep.go") {
		t.Error("expected a path under vendor/ to be ignored even though it matches the include glob")
	}
}

func TestSignificantChangeFirstSightAlwaysSignificant(t *testing.T) {
	w, root, _ := newTestWatcher(t, config.Config{MinChangeLines: 5})
	path := filepath.Join(root, "a.go")
	if err := os.WriteFile(path, []byte("package a\n"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	if !w.significantChange("a.go") {
		t.Error("expected first observation of a.go to be significant")
	}
}

func TestSignificantChangeBelowThresholdIsDropped(t *testing.T) {
	w, root, _ := newTestWatcher(t, config.Config{MinChangeLines: 5})
	path := filepath.Join(root, "a.go")
	if err := os.WriteFile(path, []byte("package a\n\nfunc A() {}\n"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	w.significantChange("a.go") // seed the snapshot

	if err := os.WriteFile(path, []byte("package a\n\nfunc A() {}\n// one comment added\n"), 0o644); err != nil {
		t.Fatalf("rewrite: %v", err)
	}
	if w.significantChange("a.go") {
		t.Error("expected a one-line delta below the threshold of 5 to be insignificant")
	}
}

func TestSignificantChangeAtOrAboveThresholdFires(t *testing.T) {
	w, root, _ := newTestWatcher(t, config.Config{MinChangeLines: 2})
	path := filepath.Join(root, "a.go")
	if err := os.WriteFile(path, []byte("package a\n"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	w.significantChange("a.go")

	if err := os.WriteFile(path, []byte("package a\n\nfunc A() {}\nfunc B() {}\n"), 0o644); err != nil {
		t.Fatalf("rewrite: %v", err)
	}
	if !w.significantChange("a.go") {
		t.Error("expected a three-line delta to clear the threshold of 2")
	}
}

func TestArmBatchTimerIsIdempotentUntilFlush(t *testing.T) {
	w, _, _ := newTestWatcher(t, config.Config{BatchIntervalMinutes: 1})
	w.armBatchTimer()
	first := w.batchTimer
	w.armBatchTimer()
	if w.batchTimer != first {
		t.Error("expected armBatchTimer to be a no-op once already armed")
	}
	first.Stop()
	w.wg.Done() // balance the Add from the first arm, since we stopped it before it fired
}

func TestHandleFileUnlinkRemovesStoreRecord(t *testing.T) {
	w, _, st := newTestWatcher(t, config.Config{})
	id, err := st.UpsertFile(store.File{ID: "f1", Path: "a.go", Language: "go", ContentHash: "h", MTime: 1, Size: 1, IndexedAt: 1})
	if err != nil {
		t.Fatalf("upsert file: %v", err)
	}

	w.handleFileUnlink("a.go")

	got, err := st.GetFile(id)
	if err != nil {
		t.Fatalf("get file: %v", err)
	}
	if got != nil {
		t.Error("expected file record to be removed after handleFileUnlink")
	}
}

func TestHandleDirectoryUnlinkRemovesNestedFiles(t *testing.T) {
	w, _, st := newTestWatcher(t, config.Config{})
	if _, err := st.UpsertFile(store.File{ID: "f1", Path: "pkg/a.go", Language: "go", ContentHash: "h", MTime: 1, Size: 1, IndexedAt: 1}); err != nil {
		t.Fatalf("upsert a: %v", err)
	}
	if _, err := st.UpsertFile(store.File{ID: "f2", Path: "pkg/sub/b.go", Language: "go", ContentHash: "h", MTime: 1, Size: 1, IndexedAt: 1}); err != nil {
		t.Fatalf("upsert b: %v", err)
	}
	if _, err := st.UpsertFile(store.File{ID: "f3", Path: "other/c.go", Language: "go", ContentHash: "h", MTime: 1, Size: 1, IndexedAt: 1}); err != nil {
		t.Fatalf("upsert c: %v", err)
	}

	w.handleDirectoryUnlink("pkg")

	files, err := st.ListFiles()
	if err != nil {
		t.Fatalf("list files: %v", err)
	}
	if len(files) != 1 || files[0].Path != "other/c.go" {
		t.Fatalf("expected only other/c.go to survive the pkg/ directory unlink, got %+v", files)
	}
}

func TestStopFlushesPendingBatchWithoutWaitingForTimer(t *testing.T) {
	w, root, st := newTestWatcher(t, config.Config{
		Include:              []string{"**/*.go"},
		DebounceMillis:       20,
		BatchIntervalMinutes: 10,
		MinChangeLines:       1,
	})

	if err := w.Start(); err != nil {
		t.Fatalf("start: %v", err)
	}

	path := filepath.Join(root, "a.go")
	if err := os.WriteFile(path, []byte("package a\n\nfunc A() {}\n"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	// Wait for the per-path debounce to enqueue a.go and arm the (10
	// minute) batch timer, then stop. Stop must flush immediately rather
	// than block until the batch timer fires on its own.
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		w.mu.Lock()
		pending := len(w.pending)
		w.mu.Unlock()
		if pending > 0 {
			break
		}
		time.Sleep(20 * time.Millisecond)
	}

	done := make(chan struct{})
	go func() {
		w.Stop()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Stop did not return promptly; it likely waited on the batch timer")
	}

	if f, _ := st.GetFileByPath("a.go"); f == nil {
		t.Error("expected a.go to be indexed by Stop's flush")
	}
}

func TestWatcherReindexesOnBatchFlush(t *testing.T) {
	w, root, st := newTestWatcher(t, config.Config{
		Include:              []string{"**/*.go"},
		DebounceMillis:       20,
		BatchIntervalMinutes: 1,
		MinChangeLines:       1,
	})
	// Shrink the batch window directly so the test doesn't wait a minute.
	w.cfg.BatchIntervalMinutes = 0
	w.cfg.DebounceMillis = 20

	if err := w.Start(); err != nil {
		t.Fatalf("start: %v", err)
	}
	defer w.Stop()

	path := filepath.Join(root, "a.go")
	if err := os.WriteFile(path, []byte("package a\n\nfunc A() {}\n"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if f, _ := st.GetFileByPath("a.go"); f != nil {
			return
		}
		time.Sleep(50 * time.Millisecond)
	}
	t.Fatal("expected a.go to be indexed after create + batch flush")
}
