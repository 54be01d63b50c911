package store

import (
	"fmt"
)

const referenceColumns = `id, source_file_id, target_id, kind, start_line, start_col, end_line, end_col`

// ReferencesTo returns every reference that resolved to symbolID, used by
// getReferences (§4.6). The source file path is joined in by the caller
// via GetFile/GetLocation since a reference only stores the file ID.
func (s *Store) ReferencesTo(symbolID string) ([]Reference, error) {
	rows, err := s.db.Query(`SELECT `+referenceColumns+` FROM "references" WHERE target_id = ? ORDER BY start_line, start_col`, symbolID)
	if err != nil {
		return nil, fmt.Errorf("references to: %w", err)
	}
	defer rows.Close()

	var out []Reference
	for rows.Next() {
		var r Reference
		if err := rows.Scan(&r.ID, &r.SourceFileID, &r.TargetID, &r.Kind, &r.StartLine, &r.StartCol, &r.EndLine, &r.EndCol); err != nil {
			return nil, fmt.Errorf("scan reference: %w", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}
