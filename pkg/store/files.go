package store

import (
	"database/sql"
	"fmt"
)

// UpsertFile inserts a new file row or updates an existing one matched by
// path, returning the (possibly pre-existing) file ID (§4.4).
func (s *Store) UpsertFile(f File) (string, error) {
	return upsertFile(s.db, f)
}

// execer is satisfied by both *sql.DB and *sql.Tx, letting the upsert run
// either standalone or as part of a larger transaction.
type execer interface {
	Exec(query string, args ...any) (sql.Result, error)
	Query(query string, args ...any) (*sql.Rows, error)
	QueryRow(query string, args ...any) *sql.Row
}

func upsertFile(ex execer, f File) (string, error) {
	existing, err := getFileByPath(ex, f.Path)
	if err != nil {
		return "", err
	}
	if existing != nil {
		f.ID = existing.ID
		_, err := execWithRetry(ex, `
			UPDATE files SET language=?, content_hash=?, mtime=?, size=?, indexed_at=?
			WHERE id=?`,
			f.Language, f.ContentHash, f.MTime, f.Size, f.IndexedAt, f.ID,
		)
		if err != nil {
			return "", fmt.Errorf("update file: %w", err)
		}
		return f.ID, nil
	}

	_, err = execWithRetry(ex, `
		INSERT INTO files (id, path, language, content_hash, mtime, size, indexed_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		f.ID, f.Path, f.Language, f.ContentHash, f.MTime, f.Size, f.IndexedAt,
	)
	if err != nil {
		return "", fmt.Errorf("insert file: %w", err)
	}
	return f.ID, nil
}

// GetFileByPath returns the file row for path, or nil if no such file has
// been indexed.
func (s *Store) GetFileByPath(path string) (*File, error) {
	return getFileByPath(s.db, path)
}

func getFileByPath(ex execer, path string) (*File, error) {
	row := ex.QueryRow(`
		SELECT id, path, language, content_hash, mtime, size, indexed_at
		FROM files WHERE path = ?`, path)
	var f File
	if err := row.Scan(&f.ID, &f.Path, &f.Language, &f.ContentHash, &f.MTime, &f.Size, &f.IndexedAt); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("get file by path: %w", err)
	}
	return &f, nil
}

// GetFile returns the file row by ID, or nil if absent.
func (s *Store) GetFile(id string) (*File, error) {
	row := s.db.QueryRow(`
		SELECT id, path, language, content_hash, mtime, size, indexed_at
		FROM files WHERE id = ?`, id)
	var f File
	if err := row.Scan(&f.ID, &f.Path, &f.Language, &f.ContentHash, &f.MTime, &f.Size, &f.IndexedAt); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("get file: %w", err)
	}
	return &f, nil
}

// ListFiles returns every indexed file, ordered by path.
func (s *Store) ListFiles() ([]File, error) {
	rows, err := s.db.Query(`
		SELECT id, path, language, content_hash, mtime, size, indexed_at
		FROM files ORDER BY path`)
	if err != nil {
		return nil, fmt.Errorf("list files: %w", err)
	}
	defer rows.Close()

	var out []File
	for rows.Next() {
		var f File
		if err := rows.Scan(&f.ID, &f.Path, &f.Language, &f.ContentHash, &f.MTime, &f.Size, &f.IndexedAt); err != nil {
			return nil, fmt.Errorf("scan file: %w", err)
		}
		out = append(out, f)
	}
	return out, rows.Err()
}

// DeleteFile removes a file and cascades to its symbols, calls, and
// references (§4.4 delete-by-file).
func (s *Store) DeleteFile(id string) error {
	_, err := execWithRetry(s.db, `DELETE FROM files WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete file: %w", err)
	}
	return nil
}

// DeleteSubtree removes every file whose path starts with pathPrefix,
// cascading through symbols/calls/references, and returns the count of
// files removed. Used when a watched directory is unlinked (§4.7).
func (s *Store) DeleteSubtree(pathPrefix string) (int64, error) {
	res, err := execWithRetry(s.db, `DELETE FROM files WHERE path LIKE ? ESCAPE '\'`, escapeLike(pathPrefix)+"%")
	if err != nil {
		return 0, fmt.Errorf("delete subtree: %w", err)
	}
	return res.RowsAffected()
}

// Clear removes all indexed data, leaving an empty schema in place.
func (s *Store) Clear() error {
	_, err := s.db.Exec(`DELETE FROM files;`)
	if err != nil {
		return fmt.Errorf("clear: %w", err)
	}
	return nil
}

func escapeLike(s string) string {
	r := make([]byte, 0, len(s))
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case '\\', '%', '_':
			r = append(r, '\\')
		}
		r = append(r, s[i])
	}
	return string(r)
}
