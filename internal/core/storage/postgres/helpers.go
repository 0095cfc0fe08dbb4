package postgres

import (
	"database/sql"
	"fmt"

	v1 "github.com/aevon-lab/activity-archive/internal/api/v1"
)

type scanner interface {
	Scan(dest ...interface{}) error
}

// scanActivityRow scans one activities row into an ArchiveItem.
// Compatible with both sql.Row (single) and sql.Rows (multiple).
func scanActivityRow(row scanner) (v1.ArchiveItem, error) {
	var item v1.ArchiveItem
	var kind, title sql.NullString

	err := row.Scan(
		&item.ID,
		&item.SubjectID,
		&kind,
		&title,
		&item.Value,
		&item.OrderDate,
	)
	if err != nil {
		return v1.ArchiveItem{}, fmt.Errorf("failed to scan activity row: %w", err)
	}

	item.Kind = kind.String
	item.Title = title.String
	item.OrderDate = item.OrderDate.UTC()
	return item, nil
}

// collectActivities drains rows into a slice, always closing rows.
func collectActivities(rows *sql.Rows) ([]v1.ArchiveItem, error) {
	defer rows.Close()

	var items []v1.ArchiveItem
	for rows.Next() {
		item, err := scanActivityRow(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, item)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating activities: %w", err)
	}
	return items, nil
}

// nullIfEmpty stores empty display strings as SQL NULL.
func nullIfEmpty(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
