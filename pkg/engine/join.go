package engine

import (
	"fmt"

	"salesetl/pkg/schema"
)

// JoinStats contains aggregate statistics about one left join.
type JoinStats struct {
	Right         string `json:"right"`
	LeftRows      int    `json:"leftRows"`
	OutputRows    int    `json:"outputRows"`
	Matched       int    `json:"matched"`
	Unmatched     int    `json:"unmatched"`
	DuplicateKeys int    `json:"duplicateKeys"`
}

// MergeResult is the output of joining sales with products and transactions.
type MergeResult struct {
	Table                 *schema.Table  `json:"-"`
	Products              JoinStats      `json:"products"`
	Transactions          JoinStats      `json:"transactions"`
	DuplicateProducts     []DuplicateKey `json:"duplicateProducts,omitempty"`
	DuplicateTransactions []DuplicateKey `json:"duplicateTransactions,omitempty"`
}

// LeftJoin joins left to right on the key column, keeping every left row.
// Left rows without a match get null right columns. A left row matching n
// right rows appears n times, in right-table order.
//
// The key column appears once, from the left side. Right columns whose name
// already exists in the output (ignoring case) are renamed prefix_name.
func LeftJoin(left, right *schema.Table, key, prefix string) (*schema.Table, JoinStats) {
	index := BuildKeyIndex(right, key)
	stats := JoinStats{
		Right:         prefix,
		LeftRows:      left.Len(),
		DuplicateKeys: index.Stats.DuplicateKeys,
	}

	out := &schema.Table{
		Columns: append([]string(nil), left.Columns...),
		Kinds:   append([]schema.Kind(nil), left.Kinds...),
	}
	rightKey := right.ColumnIndex(key)
	var rightCols []int
	for c, name := range right.Columns {
		if c == rightKey {
			continue
		}
		rightCols = append(rightCols, c)
		out.Columns = append(out.Columns, outputName(out, prefix, name))
		out.Kinds = append(out.Kinds, kindAt(right, c))
	}

	leftKey := left.ColumnIndex(key)
	width := len(out.Columns)
	out.Rows = make([][]any, 0, left.Len())

	for _, lrow := range left.Rows {
		var k any
		if leftKey >= 0 {
			k = lrow[leftKey]
		}
		matches := index.Lookup(k)
		if len(matches) == 0 {
			row := make([]any, width)
			copy(row, lrow)
			out.Rows = append(out.Rows, row)
			stats.Unmatched++
			continue
		}
		for _, r := range matches {
			row := make([]any, width)
			n := copy(row, lrow)
			rrow := right.Rows[r]
			for i, c := range rightCols {
				row[n+i] = rrow[c]
			}
			out.Rows = append(out.Rows, row)
		}
		stats.Matched++
	}

	stats.OutputRows = out.Len()
	return out, stats
}

// Merge left-joins sales with products and then with transactions on
// product_id. Duplicate right-side keys are reported but not resolved.
func Merge(sales, products, transactions *schema.Table) *MergeResult {
	result := &MergeResult{
		DuplicateProducts:     DetectDuplicateKeys(BuildKeyIndex(products, schema.KeyColumn)),
		DuplicateTransactions: DetectDuplicateKeys(BuildKeyIndex(transactions, schema.KeyColumn)),
	}

	withProducts, pstats := LeftJoin(sales, products, schema.KeyColumn, schema.Products.Name)
	merged, tstats := LeftJoin(withProducts, transactions, schema.KeyColumn, schema.Transactions.Name)

	result.Table = merged
	result.Products = pstats
	result.Transactions = tstats
	return result
}

// outputName picks a column name for a right-side column that does not clash
// with the columns already in out.
func outputName(out *schema.Table, prefix, name string) string {
	if !out.HasColumnFold(name) {
		return name
	}
	candidate := prefix + "_" + name
	for n := 2; out.HasColumnFold(candidate); n++ {
		candidate = fmt.Sprintf("%s_%s_%d", prefix, name, n)
	}
	return candidate
}

func kindAt(t *schema.Table, c int) schema.Kind {
	if c < len(t.Kinds) {
		return t.Kinds[c]
	}
	return schema.KindString
}
