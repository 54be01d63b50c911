package store

import (
	"database/sql"
	"fmt"
)

// ReplaceFileSymbols atomically swaps every symbol, call, and reference
// attributed to fileID for a freshly extracted set, as a single
// transaction (§4.4 per-file reindex discipline, §5 concurrency model).
// Deleting the old symbols cascades to calls/references that pointed at
// them, including ones recorded from other files that had already
// resolved against the old versions; those re-resolve on their own next
// reindex.
func (s *Store) ReplaceFileSymbols(fileID string, symbols []Symbol, calls []Call, refs []Reference) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("begin reindex tx: %w", err)
	}
	defer tx.Rollback()

	if err := replaceFileSymbolsTx(tx, fileID, symbols, calls, refs); err != nil {
		return err
	}
	return tx.Commit()
}

// ReplaceFile upserts a file row and replaces its symbols, calls, and
// references as one transaction (§4.4): "insert the new file row... in the
// same transaction" as the delete/insert of its downstream edges, so a
// partial failure rolls back the file row along with them instead of
// leaving it pointing at stale or missing data.
func (s *Store) ReplaceFile(f File, symbols []Symbol, calls []Call, refs []Reference) (string, error) {
	tx, err := s.db.Begin()
	if err != nil {
		return "", fmt.Errorf("begin reindex tx: %w", err)
	}
	defer tx.Rollback()

	fileID, err := upsertFile(tx, f)
	if err != nil {
		return "", err
	}
	if err := replaceFileSymbolsTx(tx, fileID, symbols, calls, refs); err != nil {
		return "", err
	}
	if err := tx.Commit(); err != nil {
		return "", fmt.Errorf("commit reindex tx: %w", err)
	}
	return fileID, nil
}

func replaceFileSymbolsTx(tx *sql.Tx, fileID string, symbols []Symbol, calls []Call, refs []Reference) error {
	if _, err := execWithRetry(tx, `DELETE FROM symbols WHERE file_id = ?`, fileID); err != nil {
		return fmt.Errorf("clear old symbols: %w", err)
	}

	insertSym, err := tx.Prepare(`
		INSERT INTO symbols (
			id, file_id, language, kind, name, qualified_name,
			start_line, start_col, end_line, end_col,
			signature, doc_comment, exported,
			summary_hash, summary, summary_tokens, summarized_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare symbol insert: %w", err)
	}
	defer insertSym.Close()

	for _, sym := range symbols {
		_, err := insertSym.Exec(
			sym.ID, fileID, sym.Language, sym.Kind, sym.Name, sym.QualifiedName,
			sym.StartLine, sym.StartCol, sym.EndLine, sym.EndCol,
			sym.Signature, sym.DocComment, boolToInt(sym.Exported),
			sym.SummaryHash, sym.Summary, sym.SummaryTokens, sym.SummarizedAt,
		)
		if err != nil {
			return fmt.Errorf("insert symbol %s: %w", sym.QualifiedName, err)
		}
	}

	insertCall, err := tx.Prepare(`
		INSERT INTO calls (id, caller_id, callee_id, site_file_id, start_line, start_col, end_line, end_col)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare call insert: %w", err)
	}
	defer insertCall.Close()

	if _, err := execWithRetry(tx, `DELETE FROM calls WHERE site_file_id = ?`, fileID); err != nil {
		return fmt.Errorf("clear old calls: %w", err)
	}
	for _, c := range calls {
		_, err := insertCall.Exec(c.ID, c.CallerID, c.CalleeID, fileID, c.StartLine, c.StartCol, c.EndLine, c.EndCol)
		if err != nil {
			return fmt.Errorf("insert call: %w", err)
		}
	}

	insertRef, err := tx.Prepare(`
		INSERT INTO "references" (id, source_file_id, target_id, kind, start_line, start_col, end_line, end_col)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare reference insert: %w", err)
	}
	defer insertRef.Close()

	if _, err := execWithRetry(tx, `DELETE FROM "references" WHERE source_file_id = ?`, fileID); err != nil {
		return fmt.Errorf("clear old references: %w", err)
	}
	for _, r := range refs {
		_, err := insertRef.Exec(r.ID, fileID, r.TargetID, r.Kind, r.StartLine, r.StartCol, r.EndLine, r.EndCol)
		if err != nil {
			return fmt.Errorf("insert reference: %w", err)
		}
	}

	return nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

const symbolColumns = `
	id, file_id, language, kind, name, qualified_name,
	start_line, start_col, end_line, end_col,
	signature, doc_comment, exported,
	summary_hash, summary, summary_tokens, summarized_at`

func scanSymbol(row interface {
	Scan(dest ...any) error
}) (Symbol, error) {
	var (
		sym       Symbol
		exported  int
		docC      sql.NullString
		sig       sql.NullString
		sumHash   sql.NullString
		summary   sql.NullString
	)
	err := row.Scan(
		&sym.ID, &sym.FileID, &sym.Language, &sym.Kind, &sym.Name, &sym.QualifiedName,
		&sym.StartLine, &sym.StartCol, &sym.EndLine, &sym.EndCol,
		&sig, &docC, &exported,
		&sumHash, &summary, &sym.SummaryTokens, &sym.SummarizedAt,
	)
	if err != nil {
		return Symbol{}, err
	}
	sym.Signature = sig.String
	sym.DocComment = docC.String
	sym.Exported = exported != 0
	sym.SummaryHash = sumHash.String
	sym.Summary = summary.String
	return sym, nil
}

// GetSymbol returns a symbol by ID, or nil if absent.
func (s *Store) GetSymbol(id string) (*Symbol, error) {
	row := s.db.QueryRow(`SELECT `+symbolColumns+` FROM symbols WHERE id = ?`, id)
	sym, err := scanSymbol(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get symbol: %w", err)
	}
	return &sym, nil
}

// FindSymbolsByName returns every symbol whose short name matches, most
// useful for findSymbols (§4.6). language and kind are optional filters;
// empty strings mean "any".
func (s *Store) FindSymbolsByName(name, language, kind string) ([]Symbol, error) {
	query := `SELECT ` + symbolColumns + ` FROM symbols WHERE name = ?`
	args := []any{name}
	if language != "" {
		query += ` AND language = ?`
		args = append(args, language)
	}
	if kind != "" {
		query += ` AND kind = ?`
		args = append(args, kind)
	}
	query += ` ORDER BY qualified_name`

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("find symbols by name: %w", err)
	}
	defer rows.Close()
	return scanSymbolRows(rows)
}

// FindSymbolByQualifiedName looks up the unique symbol matching a fully
// qualified name (§9: first match wins when qualified names collide, so
// this returns the first row SQLite yields with no secondary ordering
// tiebreak). The indexer's name resolution does not call it.
func (s *Store) FindSymbolByQualifiedName(qualifiedName string) (*Symbol, error) {
	row := s.db.QueryRow(`SELECT `+symbolColumns+` FROM symbols WHERE qualified_name = ? LIMIT 1`, qualifiedName)
	sym, err := scanSymbol(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find symbol by qualified name: %w", err)
	}
	return &sym, nil
}

// FindFirstSymbolByName returns the first store-wide symbol matching name
// by id order, used for best-effort callee/reference target resolution
// when only a short name is available (§4.5, §9).
func (s *Store) FindFirstSymbolByName(name string) (*Symbol, error) {
	row := s.db.QueryRow(`SELECT `+symbolColumns+` FROM symbols WHERE name = ? ORDER BY id LIMIT 1`, name)
	sym, err := scanSymbol(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find first symbol by name: %w", err)
	}
	return &sym, nil
}

// ListSymbolsInFile returns every symbol belonging to fileID ordered by
// start position. The indexer's caller resolution does not call it; it
// works from the file's freshly extracted symbols instead.
func (s *Store) ListSymbolsInFile(fileID string) ([]Symbol, error) {
	rows, err := s.db.Query(`SELECT `+symbolColumns+` FROM symbols WHERE file_id = ? ORDER BY start_line, start_col`, fileID)
	if err != nil {
		return nil, fmt.Errorf("list symbols in file: %w", err)
	}
	defer rows.Close()
	return scanSymbolRows(rows)
}

// ListSymbols enumerates every symbol in the store.
func (s *Store) ListSymbols() ([]Symbol, error) {
	rows, err := s.db.Query(`SELECT ` + symbolColumns + ` FROM symbols ORDER BY qualified_name`)
	if err != nil {
		return nil, fmt.Errorf("list symbols: %w", err)
	}
	defer rows.Close()
	return scanSymbolRows(rows)
}

// ListSymbolsWithoutSummary returns symbols with no stored summary hash,
// used to drive the summarizer fan-out (§4.10, §6). It does not compare a
// stored summary hash against the symbol's current content.
func (s *Store) ListSymbolsWithoutSummary() ([]Symbol, error) {
	rows, err := s.db.Query(`SELECT ` + symbolColumns + ` FROM symbols WHERE summary_hash IS NULL OR summary_hash = '' ORDER BY qualified_name`)
	if err != nil {
		return nil, fmt.Errorf("list symbols without summary: %w", err)
	}
	defer rows.Close()
	return scanSymbolRows(rows)
}

// UpdateSummary stores a generated summary and its content hash, so a
// future pass can detect the symbol changed underneath it (§4.10).
func (s *Store) UpdateSummary(symbolID, hash, summary string, tokens int, at int64) error {
	_, err := execWithRetry(s.db, `
		UPDATE symbols SET summary_hash=?, summary=?, summary_tokens=?, summarized_at=?
		WHERE id=?`, hash, summary, tokens, at, symbolID)
	if err != nil {
		return fmt.Errorf("update summary: %w", err)
	}
	return nil
}

func scanSymbolRows(rows *sql.Rows) ([]Symbol, error) {
	var out []Symbol
	for rows.Next() {
		sym, err := scanSymbol(rows)
		if err != nil {
			return nil, fmt.Errorf("scan symbol: %w", err)
		}
		out = append(out, sym)
	}
	return out, rows.Err()
}
