package engine

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"salesetl/pkg/schema"
)

func table(cols []string, rows ...[]any) *schema.Table {
	t := schema.NewTable(cols...)
	for _, r := range rows {
		t.Append(r...)
	}
	t.InferKinds()
	return t
}

func TestLeftJoin_PreservesEveryLeftRow(t *testing.T) {
	left := table([]string{"Transaction_ID", "product_id", "Price"},
		[]any{"T1", int64(1), 2.0},
		[]any{"T2", int64(2), 3.0},
		[]any{"T3", nil, 4.0},
		[]any{"T4", int64(9), 5.0},
	)
	right := table([]string{"product_id", "product_name", "price"},
		[]any{int64(2), "Gadget", 30.0},
		[]any{int64(1), "Widget", 20.0},
		[]any{nil, "Orphan", 1.0},
	)

	out, stats := LeftJoin(left, right, "product_id", "products")

	assert.Equal(t, []string{"Transaction_ID", "product_id", "Price", "product_name", "products_price"}, out.Columns)
	want := [][]any{
		{"T1", int64(1), 2.0, "Widget", 20.0},
		{"T2", int64(2), 3.0, "Gadget", 30.0},
		{"T3", nil, 4.0, nil, nil},
		{"T4", int64(9), 5.0, nil, nil},
	}
	if diff := cmp.Diff(want, out.Rows); diff != "" {
		t.Errorf("rows mismatch (-want +got):\n%s", diff)
	}
	assert.Equal(t, JoinStats{Right: "products", LeftRows: 4, OutputRows: 4, Matched: 2, Unmatched: 2}, stats)
	assert.Equal(t, []schema.Kind{schema.KindString, schema.KindInt, schema.KindFloat, schema.KindString, schema.KindFloat}, out.Kinds)
}

func TestLeftJoin_DuplicateRightKeysMultiplyRows(t *testing.T) {
	left := table([]string{"id", "product_id"},
		[]any{"a", int64(1)},
		[]any{"b", int64(2)},
	)
	right := table([]string{"product_id", "v"},
		[]any{int64(1), "x"},
		[]any{int64(1), "y"},
		[]any{int64(2), "z"},
	)

	out, stats := LeftJoin(left, right, "product_id", "r")

	require.Equal(t, 3, out.Len())
	assert.Equal(t, []any{"a", int64(1), "x"}, out.Rows[0])
	assert.Equal(t, []any{"a", int64(1), "y"}, out.Rows[1])
	assert.Equal(t, 1, stats.DuplicateKeys)
	assert.Equal(t, 3, stats.OutputRows)
}

func TestLeftJoin_RightWithoutKeyColumn(t *testing.T) {
	left := table([]string{"product_id"}, []any{int64(1)})
	right := table([]string{"other"}, []any{"x"})

	out, stats := LeftJoin(left, right, "product_id", "r")

	assert.Equal(t, []string{"product_id", "other"}, out.Columns)
	assert.Equal(t, []any{int64(1), nil}, out.Rows[0])
	assert.Equal(t, 1, stats.Unmatched)
}

func TestMerge_RowCountEqualsSalesWithUniqueKeys(t *testing.T) {
	sales := table([]string{"Transaction_ID", "product_id", "Quantity"},
		[]any{"T1", int64(1), int64(1)},
		[]any{"T2", int64(1), int64(2)},
		[]any{"T3", int64(3), int64(3)},
		[]any{"T4", nil, int64(4)},
	)
	products := table([]string{"product_id", "product_name"},
		[]any{int64(1), "Widget"},
		[]any{int64(3), "Lamp"},
	)
	transactions := table([]string{"transaction_id", "product_id", "quantity"},
		[]any{"TX1", int64(1), int64(5)},
	)

	res := Merge(sales, products, transactions)

	assert.Equal(t, sales.Len(), res.Table.Len())
	assert.Empty(t, res.DuplicateProducts)
	assert.Empty(t, res.DuplicateTransactions)
	assert.Equal(t, []string{
		"Transaction_ID", "product_id", "Quantity", "product_name",
		"transactions_transaction_id", "transactions_quantity",
	}, res.Table.Columns)
	assert.Equal(t, 2, res.Transactions.Matched)
	assert.Equal(t, 2, res.Transactions.Unmatched)
}

func TestMerge_ReportsDuplicateKeys(t *testing.T) {
	sales := table([]string{"product_id"}, []any{int64(1)})
	products := table([]string{"product_id"}, []any{int64(1)})
	transactions := table([]string{"product_id", "transaction_id"},
		[]any{int64(1), "a"},
		[]any{int64(1), "b"},
		[]any{int64(1), "c"},
	)

	res := Merge(sales, products, transactions)

	assert.Equal(t, []DuplicateKey{{Key: int64(1), Count: 3}}, res.DuplicateTransactions)
	assert.Equal(t, 3, res.Table.Len())
}

func TestBuildKeyIndex(t *testing.T) {
	tbl := table([]string{"product_id"},
		[]any{int64(5)},
		[]any{nil},
		[]any{int64(5)},
		[]any{int64(6)},
	)

	idx := BuildKeyIndex(tbl, "product_id")

	assert.Equal(t, IndexStats{TotalRows: 4, NullKeys: 1, DistinctKeys: 2, DuplicateKeys: 1}, idx.Stats)
	assert.Equal(t, []int{0, 2}, idx.Lookup(int64(5)))
	assert.Nil(t, idx.Lookup(nil))
	assert.Equal(t, []any{int64(5), int64(6)}, idx.Order)
}

func TestOutputName(t *testing.T) {
	out := schema.NewTable("Price", "products_price")
	assert.Equal(t, "products_price_2", outputName(out, "products", "price"))
	assert.Equal(t, "category", outputName(out, "products", "category"))
}
