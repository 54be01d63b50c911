package store

import (
	"fmt"
)

// UpsertEmbedding stores or replaces the vector for (symbolID, model).
// The payload is the caller's responsibility to encode as packed
// little-endian float32 bytes (§3, §9).
func (s *Store) UpsertEmbedding(e Embedding) error {
	_, err := execWithRetry(s.db, `
		INSERT INTO embeddings (symbol_id, model, dim, payload, chunk_hash, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(symbol_id, model) DO UPDATE SET
			dim=excluded.dim, payload=excluded.payload, chunk_hash=excluded.chunk_hash, updated_at=excluded.updated_at`,
		e.SymbolID, e.Model, e.Dim, e.Payload, e.ChunkHash, e.CreatedAt, e.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("upsert embedding: %w", err)
	}
	return nil
}

// EmbeddingsByModel returns every embedding for model, optionally
// filtered to symbols of a given language and/or kind, for semanticSearch
// to scan (§4.6).
func (s *Store) EmbeddingsByModel(model, language, kind string) ([]Embedding, error) {
	query := `
		SELECT e.symbol_id, e.model, e.dim, e.payload, e.chunk_hash, e.created_at, e.updated_at
		FROM embeddings e
		JOIN symbols s ON s.id = e.symbol_id
		WHERE e.model = ?`
	args := []any{model}
	if language != "" {
		query += ` AND s.language = ?`
		args = append(args, language)
	}
	if kind != "" {
		query += ` AND s.kind = ?`
		args = append(args, kind)
	}

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("embeddings by model: %w", err)
	}
	defer rows.Close()

	var out []Embedding
	for rows.Next() {
		var e Embedding
		if err := rows.Scan(&e.SymbolID, &e.Model, &e.Dim, &e.Payload, &e.ChunkHash, &e.CreatedAt, &e.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan embedding: %w", err)
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// ListSymbolsNeedingEmbedding returns symbols whose current summary hash
// has no corresponding embedding row for model — either never embedded,
// or embedded against a now-stale chunk hash (§4.10, §6).
func (s *Store) ListSymbolsNeedingEmbedding(model string) ([]Symbol, error) {
	rows, err := s.db.Query(`
		SELECT `+symbolColumns+`
		FROM symbols s
		WHERE s.summary_hash IS NOT NULL AND s.summary_hash != ''
		AND NOT EXISTS (
			SELECT 1 FROM embeddings e
			WHERE e.symbol_id = s.id AND e.model = ? AND e.chunk_hash = s.summary_hash
		)
		ORDER BY s.qualified_name`, model)
	if err != nil {
		return nil, fmt.Errorf("list symbols needing embedding: %w", err)
	}
	defer rows.Close()
	return scanSymbolRows(rows)
}
