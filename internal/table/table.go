// Package table holds the typed row-record model shared by ingestion, the summary
// generator and the plot generator. Column kinds are inferred once when a table is
// built and carried with the dataset afterwards.
package table

import (
	"fmt"
	"math"
	"sort"
	"strconv"
)

// Kind is the inferred scalar type of a column.
type Kind string

const (
	KindNull    Kind = "null"
	KindNumeric Kind = "numeric"
	KindBoolean Kind = "boolean"
	KindText    Kind = "text"
)

// Row is a single record keyed by column name. Values are nil, string, bool,
// int64 or float64 after normalization.
type Row map[string]any

// Column describes one column of a table.
type Column struct {
	Name string `json:"name"`
	Kind Kind   `json:"kind"`
}

// Table is an ordered set of columns over a sequence of rows. Rows may omit
// columns (schema-on-read); a missing key reads as null.
type Table struct {
	Columns []Column
	Rows    []Row
}

// New builds a table with the given column order and infers each column's kind.
func New(names []string, rows []Row) *Table {
	t := &Table{Columns: make([]Column, len(names)), Rows: rows}
	for i, name := range names {
		t.Columns[i] = Column{Name: name, Kind: inferKind(rows, name)}
	}
	return t
}

// FromRecords normalizes loosely typed records and builds a table whose column
// order is the order in which keys first appear across rows.
func FromRecords(rows []Row) *Table {
	return New(columnOrder(rows), NormalizeRows(rows))
}

// WithColumns rebuilds a table from a persisted schema. Without a schema the
// columns are re-inferred from the rows.
func WithColumns(cols []Column, rows []Row) *Table {
	if len(cols) == 0 {
		return FromRecords(rows)
	}
	out := make([]Column, len(cols))
	copy(out, cols)
	return &Table{Columns: out, Rows: NormalizeRows(rows)}
}

// Len returns the number of rows.
func (t *Table) Len() int {
	if t == nil {
		return 0
	}
	return len(t.Rows)
}

// Names returns column names in native order.
func (t *Table) Names() []string {
	names := make([]string, len(t.Columns))
	for i, c := range t.Columns {
		names[i] = c.Name
	}
	return names
}

// NumericColumns returns the numeric columns in native order.
func (t *Table) NumericColumns() []Column {
	var out []Column
	for _, c := range t.Columns {
		if c.Kind == KindNumeric {
			out = append(out, c)
		}
	}
	return out
}

// NonNull counts rows holding a non-null value for the column.
func (t *Table) NonNull(name string) int {
	n := 0
	for _, r := range t.Rows {
		if r[name] != nil {
			n++
		}
	}
	return n
}

// Floats returns the column's non-null numeric values in row order.
func (t *Table) Floats(name string) []float64 {
	out := make([]float64, 0, len(t.Rows))
	for _, r := range t.Rows {
		if x, ok := AsFloat(r[name]); ok {
			out = append(out, x)
		}
	}
	return out
}

// Ints returns the column's non-null values when every one of them is an
// int64. ok is false when any value is a float.
func (t *Table) Ints(name string) (out []int64, ok bool) {
	out = make([]int64, 0, len(t.Rows))
	for _, r := range t.Rows {
		switch x := r[name].(type) {
		case nil:
		case int64:
			out = append(out, x)
		default:
			return nil, false
		}
	}
	return out, true
}

// AsFloat converts a normalized numeric value to float64.
func AsFloat(v any) (float64, bool) {
	switch x := v.(type) {
	case int64:
		return float64(x), true
	case float64:
		return x, true
	}
	return 0, false
}

// FormatNumber renders a number at its native precision: integers without a
// fractional part, floats with the shortest representation that round-trips.
func FormatNumber(x float64) string {
	return strconv.FormatFloat(x, 'f', -1, 64)
}

func inferKind(rows []Row, name string) Kind {
	var num, boolean, text int
	for _, r := range rows {
		switch r[name].(type) {
		case nil:
		case int64, float64:
			num++
		case bool:
			boolean++
		default:
			text++
		}
	}
	switch {
	case num == 0 && boolean == 0 && text == 0:
		return KindNull
	case boolean == 0 && text == 0:
		return KindNumeric
	case num == 0 && text == 0:
		return KindBoolean
	default:
		return KindText
	}
}

func columnOrder(rows []Row) []string {
	seen := map[string]struct{}{}
	var names []string
	for _, r := range rows {
		// map iteration is random; keys new to this row are appended sorted so the
		// order stays deterministic for record input without an explicit header.
		var fresh []string
		for k := range r {
			if _, ok := seen[k]; !ok {
				seen[k] = struct{}{}
				fresh = append(fresh, k)
			}
		}
		sort.Strings(fresh)
		names = append(names, fresh...)
	}
	return names
}

// NormalizeRows returns copies of rows with every value normalized.
func NormalizeRows(rows []Row) []Row {
	out := make([]Row, len(rows))
	for i, r := range rows {
		nr := make(Row, len(r))
		for k, v := range r {
			nr[k] = Normalize(v)
		}
		out[i] = nr
	}
	return out
}

type jsonNumber interface {
	String() string
	Int64() (int64, error)
	Float64() (float64, error)
}

// Normalize maps decoded scalars onto the table's value set. NaN and ±Inf read
// as null; nested values are flattened to their string form.
func Normalize(v any) any {
	switch x := v.(type) {
	case nil, string, bool, int64:
		return x
	case float64:
		if math.IsNaN(x) || math.IsInf(x, 0) {
			return nil
		}
		return x
	case float32:
		return Normalize(float64(x))
	case int:
		return int64(x)
	case int8:
		return int64(x)
	case int16:
		return int64(x)
	case int32:
		return int64(x)
	case uint:
		return Normalize(float64(x))
	case uint8:
		return int64(x)
	case uint16:
		return int64(x)
	case uint32:
		return int64(x)
	case uint64:
		return Normalize(float64(x))
	case jsonNumber:
		if i, err := x.Int64(); err == nil {
			return i
		}
		if f, err := x.Float64(); err == nil {
			return Normalize(f)
		}
		return x.String()
	default:
		return fmt.Sprint(x)
	}
}
