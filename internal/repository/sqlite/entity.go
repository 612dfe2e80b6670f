package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"reflect"
	"strings"
	"time"

	"github.com/StarterX4/steamlinuxchecker/internal/apperror"
	"github.com/StarterX4/steamlinuxchecker/internal/model"
)

// compile-time check that *DB implements model.Store
var _ model.Store = (*DB)(nil)

// timeLayout is how timestamps are written. SQLite's own date functions and
// the driver's TIMESTAMP parsing both understand it.
const timeLayout = "2006-01-02 15:04:05.999999999-07:00"

// Read loads the row whose primary key matches e's and returns it as a NEW
// entity; e itself is never modified.
//
// It returns apperror.ErrNotFound when e's key is unset (without running a
// query) or when no row matches, and apperror.ErrIntegrity when more than one
// row matches.
func (db *DB) Read(ctx context.Context, e model.Entity) (model.Entity, error) {
	db.mu.Lock()
	defer db.mu.Unlock()

	info, err := db.inspect(ctx, e.Mapping())
	if err != nil {
		return nil, err
	}
	key := keyOf(info, e)
	if key == nil {
		return nil, apperror.NotFound(info.name, "<unset>")
	}
	return db.read(ctx, info, e, key)
}

// Save writes e to its table.
//
// SAVE SEMANTICS:
//   - e's key is set and a row with that key exists: the mapped columns are
//     compared with the stored row. Only the columns that differ are
//     updated, and `updated` is stamped if the table has it. If nothing
//     differs no statement runs and the outcome is model.Unchanged.
//   - otherwise a row is inserted. `created`/`updated` are stamped when the
//     table has them, and an unset key is generated by SQLite and copied
//     back into e.
//
// Users and games (tables with `updated`) behave as upserts. Scans and
// playtimes are append-only: a new entity has no key, so every Save of a new
// one inserts. A Scan is saved a second time exactly once, to write its final
// totals; that is the update path above.
func (db *DB) Save(ctx context.Context, e model.Entity) (model.SaveOutcome, error) {
	db.mu.Lock()
	defer db.mu.Unlock()

	info, err := db.inspect(ctx, e.Mapping())
	if err != nil {
		return model.Unchanged, err
	}

	key := keyOf(info, e)
	if key != nil {
		existing, err := db.read(ctx, info, e, key)
		switch {
		case err == nil:
			return db.update(ctx, info, e, existing, key)
		case !errors.Is(err, apperror.ErrNotFound):
			return model.Unchanged, err
		}
	}
	return db.insert(ctx, info, e, key)
}

func (db *DB) read(ctx context.Context, info *tableInfo, e model.Entity, key any) (model.Entity, error) {
	query := fmt.Sprintf(`SELECT %s FROM %s WHERE %s = ?`,
		strings.Join(selectColumns(info, e.Mapping()), ", "), info.name, info.primaryKey)

	rows, err := db.conn.QueryContext(ctx, query, key)
	if err != nil {
		return nil, fmt.Errorf("sqlite: reading %s %v: %w", info.name, key, err)
	}
	defer rows.Close()

	var found model.Entity
	for rows.Next() {
		if found != nil {
			return nil, apperror.Integrity(fmt.Sprintf("table %s has more than one row with %s = %v",
				info.name, info.primaryKey, key))
		}
		fresh := e.Blank()
		if err := rows.Scan(scanTargets(info, fresh)...); err != nil {
			return nil, fmt.Errorf("sqlite: scanning %s %v: %w", info.name, key, err)
		}
		found = fresh
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: reading %s %v: %w", info.name, key, err)
	}
	if found == nil {
		return nil, apperror.NotFound(info.name, key)
	}
	return found, nil
}

func (db *DB) insert(ctx context.Context, info *tableInfo, e model.Entity, key any) (model.SaveOutcome, error) {
	m := e.Mapping()
	values := e.Values()

	columns := make([]string, 0, len(m.Columns)+2)
	args := make([]any, 0, len(m.Columns)+2)
	for i, column := range m.Columns {
		// An unset key is left out so SQLite generates one.
		if i == info.keyIndex && key == nil {
			continue
		}
		columns = append(columns, column)
		args = append(args, bindValue(values[i]))
	}

	now := db.now()
	if info.columns[createdColumn] {
		columns = append(columns, createdColumn)
		args = append(args, now.Format(timeLayout))
	}
	if info.columns[updatedColumn] {
		columns = append(columns, updatedColumn)
		args = append(args, now.Format(timeLayout))
	}

	placeholders := strings.TrimSuffix(strings.Repeat("?, ", len(columns)), ", ")
	query := fmt.Sprintf(`INSERT INTO %s (%s) VALUES (%s)`,
		info.name, strings.Join(columns, ", "), placeholders)

	res, err := db.conn.ExecContext(ctx, query, args...)
	if err != nil {
		return model.Unchanged, fmt.Errorf("sqlite: inserting into %s: %w", info.name, err)
	}

	if key == nil {
		id, err := res.LastInsertId()
		if err != nil {
			return model.Unchanged, fmt.Errorf("sqlite: reading generated %s.%s: %w", info.name, info.primaryKey, err)
		}
		e.SetKey(id)
	}

	if s, ok := e.(model.Stamped); ok {
		if info.columns[createdColumn] {
			s.Stamps().Created = now
		}
		if info.columns[updatedColumn] {
			s.Stamps().Updated = now
		}
	}
	return model.Inserted, nil
}

func (db *DB) update(ctx context.Context, info *tableInfo, e, existing model.Entity, key any) (model.SaveOutcome, error) {
	changed := changedColumns(e.Mapping().Columns, e.Values(), existing.Values())
	if len(changed) == 0 {
		copyStamps(existing, e)
		return model.Unchanged, nil
	}

	values := e.Values()
	sets := make([]string, 0, len(changed)+1)
	args := make([]any, 0, len(changed)+2)
	for _, i := range changed {
		sets = append(sets, e.Mapping().Columns[i]+" = ?")
		args = append(args, bindValue(values[i]))
	}

	now := db.now()
	if info.upsertable() {
		sets = append(sets, updatedColumn+" = ?")
		args = append(args, now.Format(timeLayout))
	}
	args = append(args, key)

	query := fmt.Sprintf(`UPDATE %s SET %s WHERE %s = ?`,
		info.name, strings.Join(sets, ", "), info.primaryKey)

	res, err := db.conn.ExecContext(ctx, query, args...)
	if err != nil {
		return model.Unchanged, fmt.Errorf("sqlite: updating %s %v: %w", info.name, key, err)
	}
	if n, err := res.RowsAffected(); err == nil && n != 1 {
		return model.Unchanged, apperror.Integrity(fmt.Sprintf("update of %s %v touched %d rows", info.name, key, n))
	}

	copyStamps(existing, e)
	if s, ok := e.(model.Stamped); ok && info.upsertable() {
		s.Stamps().Updated = now
	}
	return model.Updated, nil
}

func (db *DB) now() time.Time {
	return db.clock.Now().UTC()
}

// keyOf returns e's bound primary key value, or nil if it is unset.
// Keys are never zero or empty once assigned.
func keyOf(info *tableInfo, e model.Entity) any {
	v := bindValue(e.Values()[info.keyIndex])
	switch k := v.(type) {
	case int64:
		if k == 0 {
			return nil
		}
	case string:
		if k == "" {
			return nil
		}
	}
	return v
}

// changedColumns returns the indexes of the columns whose bound values differ.
func changedColumns(columns []string, next, prev []any) []int {
	var changed []int
	for i := range columns {
		if bindValue(next[i]) != bindValue(prev[i]) {
			changed = append(changed, i)
		}
	}
	return changed
}

// Changed lists the mapped columns in which a and b differ. Both must be the
// same kind of entity.
func Changed(a, b model.Entity) []string {
	columns := a.Mapping().Columns
	var names []string
	for _, i := range changedColumns(columns, a.Values(), b.Values()) {
		names = append(names, columns[i])
	}
	return names
}

// bindValue turns a field value into a statement parameter.
//
// VALUE ENCODING:
//   - nil and nil pointers → NULL (never an empty string)
//   - pointers are dereferenced
//   - booleans → integer 0/1 (the column is declared BOOLEAN)
//   - every integer kind → int64, every float kind → float64
//   - strings (and named string types) → TEXT
//
// Every result is comparable, which changedColumns relies on.
func bindValue(v any) any {
	if v == nil {
		return nil
	}
	rv := reflect.ValueOf(v)
	for rv.Kind() == reflect.Pointer {
		if rv.IsNil() {
			return nil
		}
		rv = rv.Elem()
	}

	switch rv.Kind() {
	case reflect.Bool:
		if rv.Bool() {
			return int64(1)
		}
		return int64(0)
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return rv.Int()
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return int64(rv.Uint())
	case reflect.Float32, reflect.Float64:
		return rv.Float()
	case reflect.String:
		return rv.String()
	}

	if t, ok := rv.Interface().(time.Time); ok {
		return t.UTC().Format(timeLayout)
	}
	return fmt.Sprint(rv.Interface())
}

// selectColumns is the mapping plus whichever timestamp columns the table has.
func selectColumns(info *tableInfo, m *model.Mapping) []string {
	columns := append([]string(nil), m.Columns...)
	if info.columns[createdColumn] {
		columns = append(columns, createdColumn)
	}
	if info.columns[updatedColumn] {
		columns = append(columns, updatedColumn)
	}
	return columns
}

// scanTargets mirrors selectColumns for rows.Scan.
func scanTargets(info *tableInfo, e model.Entity) []any {
	targets := e.Targets()
	stamps := &model.Timestamps{}
	if s, ok := e.(model.Stamped); ok {
		stamps = s.Stamps()
	}
	if info.columns[createdColumn] {
		targets = append(targets, timeTarget{&stamps.Created})
	}
	if info.columns[updatedColumn] {
		targets = append(targets, timeTarget{&stamps.Updated})
	}
	return targets
}

func copyStamps(from, to model.Entity) {
	src, ok := from.(model.Stamped)
	if !ok {
		return
	}
	if dst, ok := to.(model.Stamped); ok {
		*dst.Stamps() = *src.Stamps()
	}
}

// timeTarget scans a nullable timestamp column into a time.Time. The driver
// hands back time.Time for TIMESTAMP columns it can parse and the raw text
// otherwise.
type timeTarget struct {
	dst *time.Time
}

var _ sql.Scanner = timeTarget{}

func (t timeTarget) Scan(src any) error {
	switch v := src.(type) {
	case nil:
		*t.dst = time.Time{}
	case time.Time:
		*t.dst = v.UTC()
	case string:
		return t.parse(v)
	case []byte:
		return t.parse(string(v))
	default:
		return fmt.Errorf("sqlite: cannot scan %T into a timestamp", src)
	}
	return nil
}

func (t timeTarget) parse(s string) error {
	for _, layout := range []string{timeLayout, time.RFC3339Nano, "2006-01-02 15:04:05"} {
		if parsed, err := time.Parse(layout, s); err == nil {
			*t.dst = parsed.UTC()
			return nil
		}
	}
	return fmt.Errorf("sqlite: unrecognised timestamp %q", s)
}
