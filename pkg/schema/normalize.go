package schema

import (
	"math"
	"strconv"
	"strings"
	"time"
)

// Epoch is the default for missing dates.
var Epoch = time.Date(1970, time.January, 1, 0, 0, 0, 0, time.UTC)

const defaultDateFormat = "2006-01-02"

// CleanStats counts what each cleaning rule changed.
type CleanStats struct {
	Entity            string `json:"entity"`
	RowsIn            int    `json:"rowsIn"`
	RowsOut           int    `json:"rowsOut"`
	DefaultsFilled    int    `json:"defaultsFilled"`
	DuplicatesDropped int    `json:"duplicatesDropped"`
	BadDates          int    `json:"badDates"`
	NegativesNulled   int    `json:"negativesNulled"`
	ZeroFilled        int    `json:"zeroFilled"`
	BadKeys           int    `json:"badKeys"`
}

// Clean applies the cleaning rules for an entity in their fixed order:
//  1. fill nulls in declared columns with defaults
//  2. drop duplicate rows
//  3. parse the date column, unparsable values become null
//  4. null out negative monetary values
//  5. cast monetary columns to float64
//  6. cast quantities to int64 and zero-fill quantity and monetary nulls
//  7. rename the product reference column to product_id
//  8. cast product_id to a 32-bit integer, unparsable values become null
//
// The input table is not modified.
func Clean(t *Table, e Entity) (*Table, CleanStats) {
	out := t.Clone()
	stats := CleanStats{Entity: e.Name, RowsIn: t.Len()}

	stats.DefaultsFilled = FillDefaults(out, e)
	stats.DuplicatesDropped = DropDuplicates(out)
	stats.BadDates = ParseDates(out, e)
	stats.NegativesNulled = NullNegatives(out, e)
	CastFloat(out, e)
	stats.ZeroFilled = FillZero(out, e)
	RenameKey(out, e)
	stats.BadKeys = CastKey(out)

	stats.RowsOut = out.Len()
	return out, stats
}

// DefaultFor returns the fill value for a declared column before any type
// coercion has happened, so every default is a string.
func DefaultFor(spec ColumnSpec, e Entity) string {
	switch spec.Role {
	case RoleQuantity:
		return "0"
	case RoleMoney:
		return "0.0"
	case RoleDate:
		return Epoch.Format(dateFormat(e))
	default:
		return Unknown
	}
}

// FillDefaults replaces nulls in declared columns with their defaults.
// Declared columns absent from the table are added. It returns the number
// of cells filled.
func FillDefaults(t *Table, e Entity) int {
	filled := 0
	for _, spec := range e.Columns {
		def := DefaultFor(spec, e)
		idx := findColumn(t, spec.Name)
		if idx < 0 {
			t.AddColumn(spec.Name, KindString, def)
			filled += t.Len()
			continue
		}
		for _, row := range t.Rows {
			if row[idx] == nil {
				row[idx] = def
				filled++
			}
		}
	}
	return filled
}

// DropDuplicates removes rows equal across every column, keeping the first
// occurrence. It returns the number of rows removed.
func DropDuplicates(t *Table) int {
	seen := make(map[string]struct{}, len(t.Rows))
	kept := t.Rows[:0]
	for _, row := range t.Rows {
		key := rowKey(row)
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		kept = append(kept, row)
	}
	dropped := len(t.Rows) - len(kept)
	for i := len(kept); i < len(t.Rows); i++ {
		t.Rows[i] = nil
	}
	t.Rows = kept
	return dropped
}

// ParseDates parses the entity's date columns with its layout. Values that
// do not match become null. It returns how many non-null values failed.
func ParseDates(t *Table, e Entity) int {
	bad := 0
	layout := dateFormat(e)
	for _, idx := range columnsWithRole(t, e, RoleDate) {
		for _, row := range t.Rows {
			if row[idx] == nil {
				continue
			}
			d, ok := parseDate(row[idx], layout)
			if !ok {
				bad++
				row[idx] = nil
				continue
			}
			row[idx] = d
		}
		t.Kinds[idx] = KindDate
	}
	return bad
}

// NullNegatives sets negative monetary values to null. Values that are not
// numeric are left for CastFloat.
func NullNegatives(t *Table, e Entity) int {
	nulled := 0
	for _, idx := range columnsWithRole(t, e, RoleMoney) {
		for _, row := range t.Rows {
			if f, ok := toFloat(row[idx]); ok && f < 0 {
				row[idx] = nil
				nulled++
			}
		}
	}
	return nulled
}

// CastFloat converts monetary columns to float64. Unparsable values become null.
func CastFloat(t *Table, e Entity) {
	for _, idx := range columnsWithRole(t, e, RoleMoney) {
		for _, row := range t.Rows {
			if row[idx] == nil {
				continue
			}
			if f, ok := toFloat(row[idx]); ok {
				row[idx] = f
			} else {
				row[idx] = nil
			}
		}
		t.Kinds[idx] = KindFloat
	}
}

// FillZero casts quantity columns to int64 and replaces nulls in quantity
// and monetary columns with zero. It returns the number of cells zeroed.
func FillZero(t *Table, e Entity) int {
	zeroed := 0
	for _, idx := range columnsWithRole(t, e, RoleQuantity) {
		for _, row := range t.Rows {
			n, ok := toInt(row[idx])
			if !ok {
				row[idx] = int64(0)
				zeroed++
				continue
			}
			row[idx] = n
		}
		t.Kinds[idx] = KindInt
	}
	for _, idx := range columnsWithRole(t, e, RoleMoney) {
		for _, row := range t.Rows {
			if row[idx] == nil {
				row[idx] = float64(0)
				zeroed++
			}
		}
	}
	return zeroed
}

// RenameKey renames the entity's product reference column to product_id.
func RenameKey(t *Table, e Entity) {
	for _, spec := range e.Columns {
		if spec.Role != RoleKey {
			continue
		}
		if idx := findColumn(t, spec.Name); idx >= 0 {
			t.Columns[idx] = KeyColumn
		}
		return
	}
}

// CastKey converts product_id to an integer within the 32-bit signed range.
// Values that cannot be converted become null. It returns how many non-null
// values failed.
func CastKey(t *Table) int {
	idx := t.ColumnIndex(KeyColumn)
	if idx < 0 {
		return 0
	}
	bad := 0
	for _, row := range t.Rows {
		if row[idx] == nil {
			continue
		}
		n, ok := toInt(row[idx])
		if !ok || n < math.MinInt32 || n > math.MaxInt32 {
			row[idx] = nil
			bad++
			continue
		}
		row[idx] = n
	}
	t.Kinds[idx] = KindInt
	return bad
}

// columnsWithRole returns the positions of declared columns with the given role.
func columnsWithRole(t *Table, e Entity, role Role) []int {
	var out []int
	for _, spec := range e.Columns {
		if spec.Role != role {
			continue
		}
		if idx := findColumn(t, spec.Name); idx >= 0 {
			out = append(out, idx)
		}
	}
	return out
}

func dateFormat(e Entity) string {
	if e.DateFormat == "" {
		return defaultDateFormat
	}
	return e.DateFormat
}

func parseDate(v any, layout string) (time.Time, bool) {
	switch x := v.(type) {
	case time.Time:
		y, m, d := x.Date()
		return time.Date(y, m, d, 0, 0, 0, 0, time.UTC), true
	case string:
		d, err := time.Parse(layout, strings.TrimSpace(x))
		if err != nil {
			return time.Time{}, false
		}
		return d, true
	default:
		return time.Time{}, false
	}
}

// toFloat parses a cell as a finite float64.
func toFloat(v any) (float64, bool) {
	switch x := v.(type) {
	case float64:
		return x, !math.IsNaN(x) && !math.IsInf(x, 0)
	case int64:
		return float64(x), true
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(x), 64)
		if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
			return 0, false
		}
		return f, true
	default:
		return 0, false
	}
}

// toInt parses a cell as an integer. Decimal strings are truncated toward zero.
func toInt(v any) (int64, bool) {
	switch x := v.(type) {
	case int64:
		return x, true
	case float64:
		return truncate(x)
	case string:
		s := strings.TrimSpace(x)
		if n, err := strconv.ParseInt(s, 10, 64); err == nil {
			return n, true
		}
		f, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return 0, false
		}
		return truncate(f)
	default:
		return 0, false
	}
}

func truncate(f float64) (int64, bool) {
	if math.IsNaN(f) || math.IsInf(f, 0) || f >= math.MaxInt64 || f < math.MinInt64 {
		return 0, false
	}
	return int64(f), true
}
