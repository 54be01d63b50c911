// Package watch observes a source tree for changes and keeps an Indexer
// current, with a two-level debounce: a per-path timer that coalesces
// rapid edits to one file, and a batch timer that coalesces many files'
// worth of edits into one reindex sweep (§4.7).
package watch

import (
	"bytes"
	"log"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/fsnotify/fsnotify"

	"github.com/jmylchreest/codeindex/pkg/config"
	"github.com/jmylchreest/codeindex/pkg/ignore"
	"github.com/jmylchreest/codeindex/pkg/indexer"
	"github.com/jmylchreest/codeindex/pkg/store"
)

var logger = log.New(os.Stderr, "[index:watch] ", log.Ltime)

type snapshot struct {
	mtime int64
	size  int64
	lines int
}

// Watcher observes RootDir and reindexes changed files (§4.7).
type Watcher struct {
	cfg     config.Config
	fsw     *fsnotify.Watcher
	indexer *indexer.Indexer
	store   *store.Store
	ignores *ignore.Matcher

	stop     chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup

	mu          sync.Mutex
	snapshots   map[string]snapshot
	pathTimers  map[string]*time.Timer
	pending     map[string]bool
	batchOnce   sync.Once
	batchTimer  *time.Timer
	watchedDirs map[string]bool
}

// New builds a Watcher. cfg is normalized with defaults applied.
func New(cfg config.Config, ix *indexer.Indexer, st *store.Store) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	cfg = cfg.WithDefaults()
	matcher, err := ignore.New(cfg.RootDir)
	if err != nil {
		logger.Printf("load .codeindexignore: %v, using built-in defaults", err)
		matcher = ignore.NewFromDefaults()
	}
	return &Watcher{
		cfg:         cfg,
		fsw:         fsw,
		indexer:     ix,
		store:       st,
		ignores:     matcher,
		stop:        make(chan struct{}),
		snapshots:   make(map[string]snapshot),
		pathTimers:  make(map[string]*time.Timer),
		pending:     make(map[string]bool),
		watchedDirs: make(map[string]bool),
	}, nil
}

// Start arms the recursive directory watch and begins processing events.
func (w *Watcher) Start() error {
	err := filepath.Walk(w.cfg.RootDir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return nil
		}
		if info.IsDir() {
			if path != w.cfg.RootDir {
				rel, relErr := filepath.Rel(w.cfg.RootDir, path)
				if relErr == nil && w.ignores.ShouldIgnoreDir(filepath.ToSlash(rel)) {
					return filepath.SkipDir
				}
			}
			w.watchedDirs[path] = true
			return w.fsw.Add(path)
		}
		return nil
	})
	if err != nil {
		return err
	}

	w.wg.Add(1)
	go w.processEvents()
	return nil
}

// Stop drains pending work and releases the underlying fsnotify watcher.
// A pending batch timer is cancelled rather than waited out, so shutdown
// does not block for up to BatchIntervalMinutes with files still queued.
// Safe to call multiple times.
func (w *Watcher) Stop() error {
	w.stopOnce.Do(func() {
		close(w.stop)
	})

	w.mu.Lock()
	if w.batchTimer != nil && w.batchTimer.Stop() {
		w.wg.Done()
	}
	w.mu.Unlock()

	w.wg.Wait()
	w.flushBatch()
	return w.fsw.Close()
}

func (w *Watcher) processEvents() {
	defer w.wg.Done()
	for {
		select {
		case <-w.stop:
			return
		case event, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			w.handleEvent(event)
		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			logger.Printf("error: %v", err)
		}
	}
}

func (w *Watcher) handleEvent(event fsnotify.Event) {
	if event.Op&fsnotify.Create != 0 {
		if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
			if rel, relErr := filepath.Rel(w.cfg.RootDir, event.Name); relErr == nil && !w.ignores.ShouldIgnoreDir(filepath.ToSlash(rel)) {
				w.mu.Lock()
				w.watchedDirs[event.Name] = true
				w.mu.Unlock()
				_ = w.fsw.Add(event.Name)
			}
			return
		}
	}

	rel, err := filepath.Rel(w.cfg.RootDir, event.Name)
	if err != nil {
		return
	}
	rel = filepath.ToSlash(rel)

	if event.Op&(fsnotify.Remove|fsnotify.Rename) != 0 {
		w.mu.Lock()
		_, wasDir := w.watchedDirs[event.Name]
		delete(w.watchedDirs, event.Name)
		w.mu.Unlock()
		if wasDir {
			w.handleDirectoryUnlink(rel)
			return
		}
	}

	if !w.matchesGlobs(rel) {
		return
	}

	switch {
	case event.Op&(fsnotify.Remove|fsnotify.Rename) != 0:
		w.handleFileUnlink(rel)
	case event.Op&(fsnotify.Write|fsnotify.Create) != 0:
		w.armPathDebounce(rel)
	}
}

func (w *Watcher) matchesGlobs(rel string) bool {
	if w.ignores.ShouldIgnoreFile(rel) {
		return false
	}
	included := false
	for _, g := range w.cfg.Include {
		if ok, _ := doublestar.Match(g, rel); ok {
			included = true
			break
		}
	}
	if !included {
		return false
	}
	for _, g := range w.cfg.Exclude {
		if ok, _ := doublestar.Match(g, rel); ok {
			return false
		}
	}
	return true
}

// armPathDebounce (re)starts rel's per-path debounce timer. Firing
// measures the line delta against the last known snapshot and, if it
// clears the threshold, enqueues rel into the pending set and arms the
// batch timer (§4.7).
func (w *Watcher) armPathDebounce(rel string) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if t, ok := w.pathTimers[rel]; ok {
		t.Stop()
	}
	w.pathTimers[rel] = time.AfterFunc(time.Duration(w.cfg.DebounceMillis)*time.Millisecond, func() {
		w.onPathDebounceFired(rel)
	})
}

func (w *Watcher) onPathDebounceFired(rel string) {
	if w.significantChange(rel) {
		w.mu.Lock()
		w.pending[rel] = true
		w.armBatchTimer()
		w.mu.Unlock()
	}
}

// significantChange compares the current (mtime, size, line count)
// against the last snapshot observed for rel. A file not previously seen
// is always significant; an existing file whose line delta is below
// MinChangeLines is not (§4.7).
func (w *Watcher) significantChange(rel string) bool {
	abs := filepath.Join(w.cfg.RootDir, rel)
	info, err := os.Stat(abs)
	if err != nil {
		return true
	}
	content, err := os.ReadFile(abs)
	if err != nil {
		return true
	}
	lines := bytes.Count(content, []byte("\n")) + 1

	w.mu.Lock()
	prev, known := w.snapshots[rel]
	w.snapshots[rel] = snapshot{mtime: info.ModTime().Unix(), size: info.Size(), lines: lines}
	w.mu.Unlock()

	if !known {
		return true
	}
	delta := lines - prev.lines
	if delta < 0 {
		delta = -delta
	}
	return delta >= w.cfg.MinChangeLines
}

// armBatchTimer arms the batch-flush timer exactly once until the next
// flush — subsequent enqueues during the same window do not restart it
// (§4.7, §9: deliberate, not a bug).
func (w *Watcher) armBatchTimer() {
	w.batchOnce.Do(func() {
		w.wg.Add(1)
		w.batchTimer = time.AfterFunc(time.Duration(w.cfg.BatchIntervalMinutes)*time.Minute, func() {
			defer w.wg.Done()
			w.flushBatch()
		})
	})
}

func (w *Watcher) flushBatch() {
	w.mu.Lock()
	pending := w.pending
	w.pending = make(map[string]bool)
	w.batchOnce = sync.Once{}
	w.mu.Unlock()

	if len(pending) == 0 {
		return
	}
	logger.Printf("reindexing %d changed files", len(pending))
	for rel := range pending {
		if err := w.indexer.IndexFile(rel); err != nil {
			logger.Printf("reindex %s: %v", rel, err)
		}
	}
}

// handleFileUnlink removes the store's record of a single deleted file.
// Directory removal is handled separately via handleDirectoryUnlink,
// since by the time a Remove event fires the path no longer exists for
// os.Stat to classify (§4.7).
func (w *Watcher) handleFileUnlink(rel string) {
	f, err := w.store.GetFileByPath(rel)
	if err != nil {
		logger.Printf("lookup %s on unlink: %v", rel, err)
		return
	}
	if f == nil {
		return
	}
	if err := w.store.DeleteFile(f.ID); err != nil {
		logger.Printf("delete %s: %v", rel, err)
	}

	w.mu.Lock()
	delete(w.snapshots, rel)
	w.mu.Unlock()
}

// handleDirectoryUnlink removes every stored file whose path lies under
// rel, i.e. starts with rel + "/" (§4.7).
func (w *Watcher) handleDirectoryUnlink(rel string) {
	prefix := strings.TrimSuffix(rel, "/") + "/"
	n, err := w.store.DeleteSubtree(prefix)
	if err != nil {
		logger.Printf("delete subtree %s: %v", rel, err)
		return
	}
	if n > 0 {
		logger.Printf("removed %d files under deleted directory %s", n, rel)
	}
}
