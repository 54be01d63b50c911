package store

import (
	"database/sql"
	"fmt"
)

// migrate creates the schema if absent and evolves older databases in
// place. Table/index layout follows §3/§4.4 exactly: files, symbols,
// calls, and references cascade-delete from their owning file; embeddings
// cascade-delete from their owning symbol.
func migrate(db *sql.DB) error {
	if _, err := db.Exec("PRAGMA foreign_keys = ON;"); err != nil {
		return fmt.Errorf("enable foreign keys: %w", err)
	}

	schema := `
	CREATE TABLE IF NOT EXISTS files (
		id TEXT PRIMARY KEY,
		path TEXT NOT NULL UNIQUE,
		language TEXT NOT NULL,
		content_hash TEXT NOT NULL,
		mtime INTEGER NOT NULL,
		size INTEGER NOT NULL,
		indexed_at INTEGER NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_files_path ON files (path);
	CREATE INDEX IF NOT EXISTS idx_files_content_hash ON files (content_hash);

	CREATE TABLE IF NOT EXISTS symbols (
		id TEXT PRIMARY KEY,
		file_id TEXT NOT NULL,
		language TEXT NOT NULL,
		kind TEXT NOT NULL,
		name TEXT NOT NULL,
		qualified_name TEXT NOT NULL,
		start_line INTEGER NOT NULL,
		start_col INTEGER NOT NULL,
		end_line INTEGER NOT NULL,
		end_col INTEGER NOT NULL,
		signature TEXT,
		doc_comment TEXT,
		exported INTEGER NOT NULL,
		FOREIGN KEY (file_id) REFERENCES files(id) ON DELETE CASCADE
	);
	CREATE INDEX IF NOT EXISTS idx_symbols_name ON symbols (name);
	CREATE INDEX IF NOT EXISTS idx_symbols_qualified_name ON symbols (qualified_name);
	CREATE INDEX IF NOT EXISTS idx_symbols_file_id ON symbols (file_id);
	CREATE INDEX IF NOT EXISTS idx_symbols_kind ON symbols (kind);

	CREATE TABLE IF NOT EXISTS calls (
		id TEXT PRIMARY KEY,
		caller_id TEXT NOT NULL,
		callee_id TEXT NOT NULL,
		site_file_id TEXT NOT NULL,
		start_line INTEGER NOT NULL,
		start_col INTEGER NOT NULL,
		end_line INTEGER NOT NULL,
		end_col INTEGER NOT NULL,
		FOREIGN KEY (caller_id) REFERENCES symbols(id) ON DELETE CASCADE,
		FOREIGN KEY (callee_id) REFERENCES symbols(id) ON DELETE CASCADE,
		FOREIGN KEY (site_file_id) REFERENCES files(id) ON DELETE CASCADE
	);
	CREATE INDEX IF NOT EXISTS idx_calls_caller_id ON calls (caller_id);
	CREATE INDEX IF NOT EXISTS idx_calls_callee_id ON calls (callee_id);

	CREATE TABLE IF NOT EXISTS "references" (
		id TEXT PRIMARY KEY,
		source_file_id TEXT NOT NULL,
		target_id TEXT NOT NULL,
		kind TEXT NOT NULL,
		start_line INTEGER NOT NULL,
		start_col INTEGER NOT NULL,
		end_line INTEGER NOT NULL,
		end_col INTEGER NOT NULL,
		FOREIGN KEY (source_file_id) REFERENCES files(id) ON DELETE CASCADE,
		FOREIGN KEY (target_id) REFERENCES symbols(id) ON DELETE CASCADE
	);
	CREATE INDEX IF NOT EXISTS idx_references_target_id ON "references" (target_id);
	CREATE INDEX IF NOT EXISTS idx_references_source_file_id ON "references" (source_file_id);

	CREATE TABLE IF NOT EXISTS embeddings (
		symbol_id TEXT NOT NULL,
		model TEXT NOT NULL,
		dim INTEGER NOT NULL,
		payload BLOB NOT NULL,
		chunk_hash TEXT NOT NULL,
		created_at INTEGER NOT NULL,
		updated_at INTEGER NOT NULL,
		PRIMARY KEY (symbol_id, model),
		FOREIGN KEY (symbol_id) REFERENCES symbols(id) ON DELETE CASCADE
	);
	CREATE INDEX IF NOT EXISTS idx_embeddings_model ON embeddings (model);
	CREATE INDEX IF NOT EXISTS idx_embeddings_chunk_hash ON embeddings (chunk_hash);
	`
	if _, err := db.Exec(schema); err != nil {
		return fmt.Errorf("create schema: %w", err)
	}

	return evolveSummaryColumns(db)
}

// evolveSummaryColumns adds the four summarization columns to symbols if
// an older database predates them (§4.10: summaries were supplemented
// onto the original schema, not present from day one).
func evolveSummaryColumns(db *sql.DB) error {
	existing := map[string]bool{}
	rows, err := db.Query("PRAGMA table_info(symbols);")
	if err != nil {
		return fmt.Errorf("inspect symbols columns: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			cid        int
			name       string
			colType    string
			notNull    int
			dfltValue  sql.NullString
			primaryKey int
		)
		if err := rows.Scan(&cid, &name, &colType, &notNull, &dfltValue, &primaryKey); err != nil {
			return fmt.Errorf("scan symbols column: %w", err)
		}
		existing[name] = true
	}
	if err := rows.Err(); err != nil {
		return err
	}

	additions := []struct {
		name string
		ddl  string
	}{
		{"summary_hash", "ALTER TABLE symbols ADD COLUMN summary_hash TEXT"},
		{"summary", "ALTER TABLE symbols ADD COLUMN summary TEXT"},
		{"summary_tokens", "ALTER TABLE symbols ADD COLUMN summary_tokens INTEGER NOT NULL DEFAULT 0"},
		{"summarized_at", "ALTER TABLE symbols ADD COLUMN summarized_at INTEGER NOT NULL DEFAULT 0"},
	}
	for _, a := range additions {
		if existing[a.name] {
			continue
		}
		if _, err := db.Exec(a.ddl); err != nil {
			return fmt.Errorf("add column %s: %w", a.name, err)
		}
	}
	return nil
}
