// Package table defines the two representations of tabular data the
// summarize layer moves between: an in-memory Frame and a file-backed
// Table resident on a storage engine, either as a single object or as
// a composite of shard objects under a common prefix.
package table

import (
	"fmt"

	"github.com/stratadb/strata/pkg/storage"
)

// Frame is an in-memory table with a fixed column order.  Rows are
// value slices aligned to Columns.  Keys carries the grouping metadata
// of the data, ordered outermost first.
type Frame struct {
	Columns []string
	Rows    [][]interface{}
	Keys    []string
}

func NewFrame(columns ...string) *Frame {
	return &Frame{Columns: columns}
}

func (f *Frame) Append(row ...interface{}) *Frame {
	f.Rows = append(f.Rows, row)
	return f
}

func (f *Frame) Len() int {
	return len(f.Rows)
}

// ColumnIndex returns the position of name in the column order.
func (f *Frame) ColumnIndex(name string) (int, bool) {
	for i, c := range f.Columns {
		if c == name {
			return i, true
		}
	}
	return 0, false
}

// Column returns the values of the named column.
func (f *Frame) Column(name string) ([]interface{}, error) {
	i, ok := f.ColumnIndex(name)
	if !ok {
		return nil, fmt.Errorf("no such column: %q", name)
	}
	vals := make([]interface{}, len(f.Rows))
	for k, row := range f.Rows {
		vals[k] = row[i]
	}
	return vals, nil
}

// Table describes a file-backed table.  The URI names a single object,
// or a prefix holding shard objects when Composite is set.  Keys
// carries the grouping metadata, as on Frame.
type Table struct {
	URI       *storage.URI
	Composite bool
	Keys      []string
}

func New(u *storage.URI, composite bool, keys []string) *Table {
	return &Table{URI: u, Composite: composite, Keys: keys}
}
