// Package store persists the extracted code graph — files, symbols,
// calls, references, and embeddings — in an embedded SQLite database
// and exposes the narrow set of typed operations the indexer and query
// engine need (§3, §4.4).
package store

import (
	"database/sql"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

var logger = log.New(os.Stderr, "[index:store] ", log.Ltime)

const maxLockRetries = 5

// Store wraps a SQLite connection configured for a single-writer,
// many-reader workload (WAL journal, NORMAL sync) and serializes the
// narrow operation set the rest of the module needs.
type Store struct {
	db *sql.DB
}

// Open opens (creating if absent) the SQLite database at path and applies
// schema migrations. The DSN mirrors the WAL/busy-timeout/foreign-key
// pragma combination used across the corpus for single-process embedded
// stores (§4.4).
func Open(path string) (*Store, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("store: create db directory: %w", err)
		}
	}

	dsn := fmt.Sprintf(
		"%s?_busy_timeout=5000&_foreign_keys=ON&_journal_mode=WAL&_synchronous=NORMAL&_temp_store=MEMORY",
		path,
	)
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("store: open db: %w", err)
	}
	db.SetMaxOpenConns(1)

	s := &Store{db: db}
	if err := migrate(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("store: migrate: %w", err)
	}
	if err := s.QuickCheck(); err != nil {
		db.Close()
		return nil, fmt.Errorf("store: initial quick check: %w", err)
	}
	return s, nil
}

// QuickCheck runs PRAGMA quick_check and reports any integrity failure.
func (s *Store) QuickCheck() error {
	row := s.db.QueryRow("PRAGMA quick_check;")
	var result string
	if err := row.Scan(&result); err != nil {
		return fmt.Errorf("quick_check scan: %w", err)
	}
	if result != "ok" {
		return fmt.Errorf("quick_check failed: %s", result)
	}
	return nil
}

// Close runs a final integrity check and closes the underlying connection.
func (s *Store) Close() error {
	if err := s.QuickCheck(); err != nil {
		logger.Printf("quick_check failed on close: %v", err)
	}
	return s.db.Close()
}

// Compact reclaims space freed by deletes; callers run it periodically,
// not on every write (§4.4).
func (s *Store) Compact() error {
	_, err := s.db.Exec("VACUUM;")
	if err != nil {
		return fmt.Errorf("store: vacuum: %w", err)
	}
	return nil
}

// execWithRetry retries a write against a transient "database is locked"
// error, which WAL-mode SQLite can surface under concurrent writers even
// with a busy_timeout set.
func execWithRetry(execer interface {
	Exec(query string, args ...any) (sql.Result, error)
}, query string, args ...any) (sql.Result, error) {
	var (
		res sql.Result
		err error
	)
	for i := 0; i < maxLockRetries; i++ {
		res, err = execer.Exec(query, args...)
		if err == nil {
			return res, nil
		}
		if strings.Contains(err.Error(), "database is locked") {
			time.Sleep(200 * time.Millisecond)
			continue
		}
		return nil, err
	}
	return nil, fmt.Errorf("database is locked after %d retries: %w", maxLockRetries, err)
}
