package store

import (
	"fmt"
	"strings"
)

// Search tokenizes query on whitespace and returns symbols where every token
// is a case-insensitive substring of the symbol name or its container name.
// LIKE wildcard characters in tokens are escaped so they match literally.
// Results are ordered by symbol name, then file path, for deterministic
// pagination via limit/offset. An empty token list yields no results.
func (s *Store) Search(query string, limit, offset int) ([]*SearchResult, error) {
	tokens := strings.Fields(query)
	if len(tokens) == 0 {
		return nil, nil
	}

	var sb strings.Builder
	sb.WriteString(`SELECT s.id, s.file_id, s.name, s.detail, s.kind,
		s.start_line, s.start_col, s.end_line, s.end_col,
		s.sel_start_line, s.sel_start_col, s.sel_end_line, s.sel_end_col,
		s.container_name, f.path
	 FROM symbols s JOIN files f ON f.id = s.file_id
	 WHERE `)

	args := make([]any, 0, len(tokens)*2+2)
	for i, tok := range tokens {
		if i > 0 {
			sb.WriteString(" AND ")
		}
		sb.WriteString(`(s.name LIKE ? ESCAPE '\' OR s.container_name LIKE ? ESCAPE '\')`)
		pattern := "%" + escapeLike(tok) + "%"
		args = append(args, pattern, pattern)
	}
	sb.WriteString(" ORDER BY s.name ASC, f.path ASC LIMIT ? OFFSET ?")
	args = append(args, limit, offset)

	rows, err := s.db.Query(sb.String(), args...)
	if err != nil {
		return nil, fmt.Errorf("search: %w", err)
	}
	defer rows.Close()

	var results []*SearchResult
	for rows.Next() {
		r := &SearchResult{}
		if err := rows.Scan(
			&r.ID, &r.FileID, &r.Name, &r.Detail, &r.Kind,
			&r.Range.StartLine, &r.Range.StartCol, &r.Range.EndLine, &r.Range.EndCol,
			&r.SelectionRange.StartLine, &r.SelectionRange.StartCol,
			&r.SelectionRange.EndLine, &r.SelectionRange.EndCol,
			&r.ContainerName, &r.Path,
		); err != nil {
			return nil, fmt.Errorf("scan search result: %w", err)
		}
		results = append(results, r)
	}
	return results, rows.Err()
}

// escapeLike escapes LIKE pattern metacharacters so tokens match literally.
func escapeLike(s string) string {
	var sb strings.Builder
	for _, r := range s {
		switch r {
		case '\\', '%', '_':
			sb.WriteByte('\\')
		}
		sb.WriteRune(r)
	}
	return sb.String()
}
