// Package model defines the records persisted by the checker and the contract
// between those records and the store.
//
// STATIC MAPPING:
// Every entity declares its table and ordered column list exactly once, as a
// package-level Mapping. Values and Targets return the entity's fields in the
// same order, so the store can bind them to statements and scan rows back into
// them without reflection over struct fields.
//
// The timestamp columns (created, updated) are not part of a Mapping. The
// store discovers them by inspecting the table and fills them in itself.
package model

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/StarterX4/steamlinuxchecker/internal/apperror"
)

// Mapping ties an entity kind to its table.
type Mapping struct {
	Table   string
	Columns []string
}

// Entity is a record that maps onto exactly one row of its table.
type Entity interface {
	Mapping() *Mapping
	// Values returns the field values in Mapping().Columns order.
	Values() []any
	// Targets returns pointers to the fields in Mapping().Columns order.
	Targets() []any
	// Blank returns a new zero-valued entity of the same kind.
	Blank() Entity
	// SetKey stores a primary key generated by the store.
	SetKey(id int64)
}

// Timestamps holds the store-maintained columns. Callers never set them.
type Timestamps struct {
	Created time.Time `json:"created"`
	Updated time.Time `json:"updated,omitzero"`
}

// Stamps exposes the timestamps to the store.
func (t *Timestamps) Stamps() *Timestamps { return t }

// Stamped is implemented by entities whose tables carry created/updated.
type Stamped interface {
	Stamps() *Timestamps
}

// SaveOutcome reports which statement, if any, Save issued.
type SaveOutcome int

const (
	Unchanged SaveOutcome = iota
	Inserted
	Updated
)

func (o SaveOutcome) String() string {
	switch o {
	case Inserted:
		return "inserted"
	case Updated:
		return "updated"
	default:
		return "unchanged"
	}
}

// Store is the persistence contract the entities are bound to.
// *sqlite.DB implements it.
type Store interface {
	Save(ctx context.Context, e Entity) (SaveOutcome, error)
	Read(ctx context.Context, e Entity) (Entity, error)
}

// save backs the Save method of every entity.
func save(ctx context.Context, s Store, e Entity) error {
	_, err := s.Save(ctx, e)
	return err
}

// read backs the Read method of every entity. When no row exists the
// receiver itself is returned, unchanged.
func read[T Entity](ctx context.Context, s Store, e T) (T, error) {
	found, err := s.Read(ctx, e)
	if errors.Is(err, apperror.ErrNotFound) {
		return e, nil
	}
	if err != nil {
		return e, err
	}
	fresh, ok := found.(T)
	if !ok {
		return e, fmt.Errorf("model: store returned %T for %T", found, e)
	}
	return fresh, nil
}

// Ptr returns a pointer to v. Optional fields are pointers, so building
// entities in place needs this often.
func Ptr[T any](v T) *T {
	return &v
}
