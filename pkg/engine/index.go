package engine

import (
	"salesetl/pkg/schema"
)

// KeyIndex provides lookup of a table's rows by the value of one column.
type KeyIndex struct {
	Key   string        `json:"key"`
	Rows  map[any][]int `json:"-"`
	Order []any         `json:"-"`
	Stats IndexStats    `json:"stats"`
}

// IndexStats contains aggregate statistics about a key index.
type IndexStats struct {
	TotalRows     int `json:"totalRows"`
	NullKeys      int `json:"nullKeys"`
	DistinctKeys  int `json:"distinctKeys"`
	DuplicateKeys int `json:"duplicateKeys"`
}

// BuildKeyIndex indexes the rows of t by the named column. Rows whose key is
// null are counted but not indexed, so they never match in a join. Row
// positions for a key are kept in table order.
func BuildKeyIndex(t *schema.Table, key string) *KeyIndex {
	index := &KeyIndex{
		Key:  key,
		Rows: make(map[any][]int, t.Len()),
	}
	col := t.ColumnIndex(key)

	for i, row := range t.Rows {
		var v any
		if col >= 0 {
			v = row[col]
		}
		if v == nil {
			index.Stats.NullKeys++
			continue
		}
		if _, exists := index.Rows[v]; !exists {
			index.Order = append(index.Order, v)
		}
		index.Rows[v] = append(index.Rows[v], i)
	}

	duplicates := 0
	for _, rows := range index.Rows {
		if len(rows) > 1 {
			duplicates++
		}
	}

	index.Stats.TotalRows = t.Len()
	index.Stats.DistinctKeys = len(index.Rows)
	index.Stats.DuplicateKeys = duplicates
	return index
}

// Lookup returns the row positions holding key, in table order.
func (idx *KeyIndex) Lookup(key any) []int {
	if key == nil {
		return nil
	}
	return idx.Rows[key]
}
