// Package docstore defines the document collection contract the quiz core
// depends on, plus the merge and query helpers every backend shares.
package docstore

import (
	"context"
	"errors"
)

// ErrNotFound is returned by Get when the document does not exist.
var ErrNotFound = errors.New("document not found")

// Document is a keyed set of fields in JSON canonical form (see Normalize).
type Document struct {
	ID     string
	Fields map[string]any
}

// Query selects documents by equality on Field. An empty Field selects the
// whole collection. Without OrderBy the result order is backend-defined and
// may differ between calls.
type Query struct {
	Field   string
	Value   any
	OrderBy string
}

// Store is a key/value document collection with query-by-field, ordered read
// and atomic field-merge writes.
type Store interface {
	Get(ctx context.Context, collection, id string) (Document, error)
	Query(ctx context.Context, collection string, q Query) ([]Document, error)
	// MergeWrite sets only the given fields, creating the document if absent.
	// ArrayUnion and ArrayRemove values apply set semantics to array fields.
	MergeWrite(ctx context.Context, collection, id string, fields map[string]any) error
	Delete(ctx context.Context, collection, id string) error
}

// ArrayUnionOp appends values missing from an array field.
type ArrayUnionOp struct {
	Values []any
}

// ArrayRemoveOp removes every occurrence of values from an array field.
type ArrayRemoveOp struct {
	Values []any
}

func ArrayUnion(values ...any) ArrayUnionOp {
	return ArrayUnionOp{Values: values}
}

func ArrayRemove(values ...any) ArrayRemoveOp {
	return ArrayRemoveOp{Values: values}
}
