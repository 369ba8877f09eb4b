// Package tablestore provides row-oriented storage keyed by named tables
// with header-defined columns. Rows keep insertion order; a missing table
// is a distinguishable condition, never an empty result.
package tablestore

import (
	"context"
	"errors"
)

// Row maps column names to cell values. Columns absent from a row read back
// as empty cells.
type Row map[string]any

var (
	// ErrMissingTable indicates a required table does not exist.
	ErrMissingTable = errors.New("tablestore: table missing")
	// ErrStoreUnavailable indicates a transient backend failure; the whole
	// operation is safe to retry.
	ErrStoreUnavailable = errors.New("tablestore: store unavailable")
)

// Store is the storage contract consumed by the workflow core.
type Store interface {
	// Rows returns all rows of the table in insertion order. An empty table
	// yields an empty slice, a missing table yields ErrMissingTable.
	Rows(ctx context.Context, table string) ([]Row, error)
	// Append adds one row at the end of the table.
	Append(ctx context.Context, table string, row Row) error
	// UpdateCell sets a single column of the row at rowIndex (zero based,
	// insertion order) in place.
	UpdateCell(ctx context.Context, table string, rowIndex int, column string, value any) error
}

// Clone returns a shallow copy of the row.
func (r Row) Clone() Row {
	out := make(Row, len(r))
	for k, v := range r {
		out[k] = v
	}
	return out
}
