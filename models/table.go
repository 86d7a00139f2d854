package models

import (
	"encoding/json"
	"math"
	"sort"
)

// Row is one record of a Table keyed by column name. A nil value (or a NaN
// float) is a missing value.
type Row map[string]any

// Table is an ordered collection of rows sharing one column schema. Every
// row carries every column; absent values are stored as explicit nils.
type Table struct {
	Columns []string
	Rows    []Row
}

// NewTable creates an empty table with the given columns.
func NewTable(columns ...string) *Table {
	cols := make([]string, len(columns))
	copy(cols, columns)
	return &Table{Columns: cols}
}

// Len returns the number of rows.
func (t *Table) Len() int { return len(t.Rows) }

// HasColumn reports whether name is part of the schema.
func (t *Table) HasColumn(name string) bool {
	return t.columnIndex(name) >= 0
}

func (t *Table) columnIndex(name string) int {
	for i, c := range t.Columns {
		if c == name {
			return i
		}
	}
	return -1
}

// AppendRow adds r at the end of the table. Keys unknown to the schema become
// new columns (missing in earlier rows); schema columns absent from r are set
// to nil.
func (t *Table) AppendRow(r Row) {
	var added []string
	for k := range r {
		if !t.HasColumn(k) {
			added = append(added, k)
		}
	}
	sortColumns(added)
	for _, k := range added {
		t.Columns = append(t.Columns, k)
		for _, existing := range t.Rows {
			existing[k] = nil
		}
	}

	row := make(Row, len(t.Columns))
	for _, c := range t.Columns {
		row[c] = r[c]
	}
	t.Rows = append(t.Rows, row)
}

// SetColumn computes fn for every row and stores the result under name,
// appending name to the schema when it is new.
func (t *Table) SetColumn(name string, fn func(Row) any) {
	if !t.HasColumn(name) {
		t.Columns = append(t.Columns, name)
	}
	for _, r := range t.Rows {
		r[name] = fn(r)
	}
}

// DropColumns removes the named columns from the schema and from every row.
// Unknown names are ignored.
func (t *Table) DropColumns(names ...string) {
	drop := make(map[string]struct{}, len(names))
	for _, n := range names {
		drop[n] = struct{}{}
	}

	kept := t.Columns[:0]
	for _, c := range t.Columns {
		if _, ok := drop[c]; !ok {
			kept = append(kept, c)
		}
	}
	t.Columns = kept

	for _, r := range t.Rows {
		for n := range drop {
			delete(r, n)
		}
	}
}

// Column returns the values of one column in row order.
func (t *Table) Column(name string) []any {
	values := make([]any, len(t.Rows))
	for i, r := range t.Rows {
		values[i] = r[name]
	}
	return values
}

// IsMissing reports whether v is an absent value.
func IsMissing(v any) bool {
	switch x := v.(type) {
	case nil:
		return true
	case float64:
		return math.IsNaN(x)
	case float32:
		return math.IsNaN(float64(x))
	}
	return false
}

// ToFloat converts numeric values to float64. Booleans, strings and missing
// values are not numeric.
func ToFloat(v any) (float64, bool) {
	switch x := v.(type) {
	case float64:
		return x, !math.IsNaN(x)
	case float32:
		return float64(x), !math.IsNaN(float64(x))
	case int:
		return float64(x), true
	case int32:
		return float64(x), true
	case int64:
		return float64(x), true
	case json.Number:
		f, err := x.Float64()
		return f, err == nil
	}
	return 0, false
}

// sortColumns orders new columns by their position in ElementColumns, then
// alphabetically, so schemas built from unordered JSON objects are stable.
func sortColumns(cols []string) {
	sort.SliceStable(cols, func(i, j int) bool {
		ri, rj := columnRank(cols[i]), columnRank(cols[j])
		if ri != rj {
			return ri < rj
		}
		return cols[i] < cols[j]
	})
}

func columnRank(name string) int {
	for i, c := range ElementColumns {
		if c == name {
			return i
		}
	}
	return len(ElementColumns)
}
