package store

import (
	"database/sql"
	"fmt"
)

// GetLocation joins a symbol to its owning file's path, the shape
// getDefinition and getReferences return (§4.6).
func (s *Store) GetLocation(symbolID string) (*Location, error) {
	row := s.db.QueryRow(`
		SELECT f.path, s.start_line, s.start_col, s.end_line, s.end_col
		FROM symbols s JOIN files f ON f.id = s.file_id
		WHERE s.id = ?`, symbolID)
	var loc Location
	if err := row.Scan(&loc.Path, &loc.StartLine, &loc.StartCol, &loc.EndLine, &loc.EndCol); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("get location: %w", err)
	}
	return &loc, nil
}
