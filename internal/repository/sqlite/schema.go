package sqlite

import (
	"context"
	"fmt"

	"github.com/StarterX4/steamlinuxchecker/internal/apperror"
	"github.com/StarterX4/steamlinuxchecker/internal/model"
)

const (
	createdColumn = "created"
	updatedColumn = "updated"
)

// tableInfo is what the store learns about a table from SQLite itself.
type tableInfo struct {
	name       string
	primaryKey string
	columns    map[string]bool

	// keyIndex is the position of primaryKey within the entity mapping.
	keyIndex int
}

// upsertable tables track updates; all others are append-only.
func (t *tableInfo) upsertable() bool { return t.columns[updatedColumn] }

// inspect introspects the mapping's table once and caches the result.
// The caller must hold db.mu.
//
// A table without a primary key, or a mapped column the table does not have,
// is a schema error and fails with apperror.ErrIntegrity.
func (db *DB) inspect(ctx context.Context, m *model.Mapping) (*tableInfo, error) {
	if info, ok := db.tables[m.Table]; ok {
		return info, nil
	}

	rows, err := db.conn.QueryContext(ctx,
		`SELECT name, pk FROM pragma_table_info(?) ORDER BY cid`, m.Table)
	if err != nil {
		return nil, fmt.Errorf("sqlite: inspecting table %s: %w", m.Table, err)
	}
	defer rows.Close()

	info := &tableInfo{name: m.Table, columns: make(map[string]bool), keyIndex: -1}
	for rows.Next() {
		var (
			name string
			pk   int
		)
		if err := rows.Scan(&name, &pk); err != nil {
			return nil, fmt.Errorf("sqlite: reading table info for %s: %w", m.Table, err)
		}
		info.columns[name] = true
		// pk is the 1-based position within the primary key; 1 is the first
		// (and, for every table here, only) key column.
		if pk == 1 {
			info.primaryKey = name
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: reading table info for %s: %w", m.Table, err)
	}

	if len(info.columns) == 0 {
		return nil, apperror.Integrity(fmt.Sprintf("table %s does not exist", m.Table))
	}
	if info.primaryKey == "" {
		return nil, apperror.Integrity(fmt.Sprintf("primary key for table %s not found", m.Table))
	}
	for i, column := range m.Columns {
		if !info.columns[column] {
			return nil, apperror.Integrity(fmt.Sprintf("table %s has no column %s", m.Table, column))
		}
		if column == info.primaryKey {
			info.keyIndex = i
		}
	}
	if info.keyIndex < 0 {
		return nil, apperror.Integrity(fmt.Sprintf("mapping for %s does not include primary key %s", m.Table, info.primaryKey))
	}

	db.tables[m.Table] = info
	return info, nil
}
