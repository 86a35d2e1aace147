package schema

import (
	"fmt"
	"strings"
	"time"
)

// Kind is the storage type of a column once cleaning has coerced it.
type Kind int

const (
	KindString Kind = iota
	KindInt
	KindFloat
	KindDate
)

func (k Kind) String() string {
	switch k {
	case KindInt:
		return "int"
	case KindFloat:
		return "float"
	case KindDate:
		return "date"
	default:
		return "string"
	}
}

// Table is an in-memory tabular record set.
// A cell is nil (null) or one of string, int64, float64, time.Time.
type Table struct {
	Columns []string
	Kinds   []Kind
	Rows    [][]any
}

// NewTable returns an empty table with string-typed columns.
func NewTable(columns ...string) *Table {
	cols := make([]string, len(columns))
	copy(cols, columns)
	return &Table{
		Columns: cols,
		Kinds:   make([]Kind, len(cols)),
		Rows:    make([][]any, 0),
	}
}

// Len returns the number of rows.
func (t *Table) Len() int {
	if t == nil {
		return 0
	}
	return len(t.Rows)
}

// ColumnIndex returns the position of an exactly named column, or -1.
func (t *Table) ColumnIndex(name string) int {
	for i, c := range t.Columns {
		if c == name {
			return i
		}
	}
	return -1
}

// Column returns a copy of the named column's cells. ok is false when the
// column does not exist.
func (t *Table) Column(name string) (cells []any, ok bool) {
	idx := t.ColumnIndex(name)
	if idx < 0 {
		return nil, false
	}
	cells = make([]any, len(t.Rows))
	for i, row := range t.Rows {
		cells[i] = row[idx]
	}
	return cells, true
}

// Value returns the cell at row r of the named column.
func (t *Table) Value(r int, name string) any {
	idx := t.ColumnIndex(name)
	if idx < 0 || r < 0 || r >= len(t.Rows) {
		return nil
	}
	return t.Rows[r][idx]
}

// Append adds a row. It panics if the row width differs from the column count.
func (t *Table) Append(row ...any) {
	if len(row) != len(t.Columns) {
		panic(fmt.Sprintf("schema: row has %d cells, table has %d columns", len(row), len(t.Columns)))
	}
	cp := make([]any, len(row))
	copy(cp, row)
	t.Rows = append(t.Rows, cp)
}

// AddColumn appends a column of the given kind with every cell set to fill.
func (t *Table) AddColumn(name string, kind Kind, fill any) {
	t.Columns = append(t.Columns, name)
	t.Kinds = append(t.Kinds, kind)
	for i := range t.Rows {
		t.Rows[i] = append(t.Rows[i], fill)
	}
}

// RenameColumn renames a column in place and reports whether it existed.
func (t *Table) RenameColumn(from, to string) bool {
	idx := t.ColumnIndex(from)
	if idx < 0 {
		return false
	}
	t.Columns[idx] = to
	return true
}

// HasColumnFold reports whether a column with the given name exists,
// ignoring case.
func (t *Table) HasColumnFold(name string) bool {
	for _, c := range t.Columns {
		if strings.EqualFold(c, name) {
			return true
		}
	}
	return false
}

// Clone returns a deep copy of the table structure. Cell values are
// immutable so they are shared.
func (t *Table) Clone() *Table {
	out := &Table{
		Columns: append([]string(nil), t.Columns...),
		Kinds:   append([]Kind(nil), t.Kinds...),
		Rows:    make([][]any, len(t.Rows)),
	}
	for i, row := range t.Rows {
		out.Rows[i] = append([]any(nil), row...)
	}
	return out
}

// Head returns a table holding at most the first n rows.
func (t *Table) Head(n int) *Table {
	if n > len(t.Rows) {
		n = len(t.Rows)
	}
	if n < 0 {
		n = 0
	}
	out := &Table{
		Columns: append([]string(nil), t.Columns...),
		Kinds:   append([]Kind(nil), t.Kinds...),
		Rows:    t.Rows[:n:n],
	}
	return out
}

// InferKinds sets each column's kind from the first non-null cell.
// Columns with no non-null cells stay KindString.
func (t *Table) InferKinds() {
	if len(t.Kinds) != len(t.Columns) {
		t.Kinds = make([]Kind, len(t.Columns))
	}
	for c := range t.Columns {
		t.Kinds[c] = KindString
		for _, row := range t.Rows {
			if row[c] == nil {
				continue
			}
			t.Kinds[c] = kindOf(row[c])
			break
		}
	}
}

func kindOf(v any) Kind {
	switch v.(type) {
	case int64:
		return KindInt
	case float64:
		return KindFloat
	case time.Time:
		return KindDate
	default:
		return KindString
	}
}

// rowKey encodes a row so that two rows share a key only when every cell has
// the same type and value.
func rowKey(row []any) string {
	var b strings.Builder
	for i, v := range row {
		if i > 0 {
			b.WriteByte(0x1f)
		}
		switch x := v.(type) {
		case nil:
			b.WriteByte(0)
		case string:
			fmt.Fprintf(&b, "s%d:", len(x))
			b.WriteString(x)
		case time.Time:
			b.WriteByte('d')
			b.WriteString(x.UTC().Format(time.RFC3339Nano))
		default:
			fmt.Fprintf(&b, "%T:%v", x, x)
		}
	}
	return b.String()
}
