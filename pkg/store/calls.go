package store

import (
	"database/sql"
	"fmt"
)

const callColumns = `id, caller_id, callee_id, site_file_id, start_line, start_col, end_line, end_col`

func scanCall(row interface{ Scan(dest ...any) error }) (Call, error) {
	var c Call
	err := row.Scan(&c.ID, &c.CallerID, &c.CalleeID, &c.SiteFileID, &c.StartLine, &c.StartCol, &c.EndLine, &c.EndCol)
	return c, err
}

// OutgoingCalls returns every call site where symbolID is the caller,
// used to walk call chains downward (§4.6).
func (s *Store) OutgoingCalls(symbolID string) ([]Call, error) {
	rows, err := s.db.Query(`SELECT `+callColumns+` FROM calls WHERE caller_id = ? ORDER BY start_line, start_col`, symbolID)
	if err != nil {
		return nil, fmt.Errorf("outgoing calls: %w", err)
	}
	defer rows.Close()
	return scanCallRows(rows)
}

// IncomingCalls returns every call site where symbolID is the callee,
// used to walk call chains upward and find all callers of a symbol
// (§4.6).
func (s *Store) IncomingCalls(symbolID string) ([]Call, error) {
	rows, err := s.db.Query(`SELECT `+callColumns+` FROM calls WHERE callee_id = ? ORDER BY start_line, start_col`, symbolID)
	if err != nil {
		return nil, fmt.Errorf("incoming calls: %w", err)
	}
	defer rows.Close()
	return scanCallRows(rows)
}

func scanCallRows(rows *sql.Rows) ([]Call, error) {
	var out []Call
	for rows.Next() {
		c, err := scanCall(rows)
		if err != nil {
			return nil, fmt.Errorf("scan call: %w", err)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}
