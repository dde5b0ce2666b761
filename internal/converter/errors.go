package converter

import (
	"errors"
	"fmt"
)

var (
	// ErrUnknownStorageType matches every UnknownStorageTypeError.
	ErrUnknownStorageType = errors.New("unknown storage type")
	// ErrInvalidRelationConfig matches every InvalidRelationConfigError.
	ErrInvalidRelationConfig = errors.New("invalid relation config")
	// ErrIndexKeyTooLong matches every IndexKeyTooLongError.
	ErrIndexKeyTooLong = errors.New("index key too long")
	// ErrDuplicateIndex matches every DuplicateIndexError.
	ErrDuplicateIndex = errors.New("duplicate index name")
)

// UnknownStorageTypeError is reported when a field's storage type has no
// mapping for the target dialect. The field is skipped, the build goes on.
type UnknownStorageTypeError struct {
	Entity string
	Field  string
	Type   string
}

func (e *UnknownStorageTypeError) Error() string {
	return fmt.Sprintf("%s.%s: field type %q does not exist", e.Entity, e.Field, e.Type)
}

func (e *UnknownStorageTypeError) Unwrap() error { return ErrUnknownStorageType }

// InvalidRelationConfigError aborts the build: a join table cannot be derived
// from the relation.
type InvalidRelationConfigError struct {
	Entity   string
	Relation string
	Reason   string
}

func (e *InvalidRelationConfigError) Error() string {
	return fmt.Sprintf("relation %s.%s: %s", e.Entity, e.Relation, e.Reason)
}

func (e *InvalidRelationConfigError) Unwrap() error { return ErrInvalidRelationConfig }

// IndexKeyTooLongError is returned when an index exceeds the key length limit
// even with its string columns stored in the narrow encoding.
type IndexKeyTooLongError struct {
	Table   string
	Index   string
	Columns []string
	Length  int
	Max     int
}

func (e *IndexKeyTooLongError) Error() string {
	return fmt.Sprintf("table %s: index %s %v needs %d bytes, limit is %d", e.Table, e.Index, e.Columns, e.Length, e.Max)
}

func (e *IndexKeyTooLongError) Unwrap() error { return ErrIndexKeyTooLong }

// DuplicateIndexError is returned when two different indexes of a table
// resolve to the same name.
type DuplicateIndexError struct {
	Table string
	Index string
}

func (e *DuplicateIndexError) Error() string {
	return fmt.Sprintf("table %s: index %s is defined twice with different columns", e.Table, e.Index)
}

func (e *DuplicateIndexError) Unwrap() error { return ErrDuplicateIndex }
