package sqlite

import (
	"context"
	"fmt"
	"strings"

	"github.com/StarterX4/steamlinuxchecker/internal/model"
	"github.com/StarterX4/steamlinuxchecker/internal/repository"
)

// compile-time check that *DB implements repository.ScanRepository
var _ repository.ScanRepository = (*DB)(nil)

// ListScans returns a user's scans, newest first.
//
// PAGINATION:
// LIMIT -1 means "no limit" in SQLite, so a zero opts.Limit returns all rows.
func (db *DB) ListScans(ctx context.Context, userID int64, opts repository.ListOptions) ([]model.Scan, error) {
	limit := opts.Limit
	if limit <= 0 {
		limit = -1
	}

	entities, err := db.list(ctx, &model.Scan{},
		`user_id = ? ORDER BY id DESC LIMIT ? OFFSET ?`, userID, limit, opts.Offset)
	if err != nil {
		return nil, fmt.Errorf("sqlite: listing scans for user %d: %w", userID, err)
	}

	scans := make([]model.Scan, 0, len(entities))
	for _, e := range entities {
		scans = append(scans, *e.(*model.Scan))
	}
	return scans, nil
}

// ListPlaytimes returns the playtime rows of one scan in insertion order.
func (db *DB) ListPlaytimes(ctx context.Context, scanID int64) ([]model.Playtime, error) {
	entities, err := db.list(ctx, &model.Playtime{}, `scan_id = ? ORDER BY id`, scanID)
	if err != nil {
		return nil, fmt.Errorf("sqlite: listing playtimes for scan %d: %w", scanID, err)
	}

	playtimes := make([]model.Playtime, 0, len(entities))
	for _, e := range entities {
		playtimes = append(playtimes, *e.(*model.Playtime))
	}
	return playtimes, nil
}

// list selects every row of proto's table matching the given WHERE tail and
// scans each into a fresh entity of proto's kind.
func (db *DB) list(ctx context.Context, proto model.Entity, where string, args ...any) ([]model.Entity, error) {
	db.mu.Lock()
	defer db.mu.Unlock()

	info, err := db.inspect(ctx, proto.Mapping())
	if err != nil {
		return nil, err
	}

	query := fmt.Sprintf(`SELECT %s FROM %s WHERE %s`,
		strings.Join(selectColumns(info, proto.Mapping()), ", "), info.name, where)

	rows, err := db.conn.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entities []model.Entity
	for rows.Next() {
		e := proto.Blank()
		if err := rows.Scan(scanTargets(info, e)...); err != nil {
			return nil, err
		}
		entities = append(entities, e)
	}
	return entities, rows.Err()
}
