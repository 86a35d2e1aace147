package pipeline

import (
	"context"
	"database/sql"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest"
	"go.uber.org/zap/zaptest/observer"

	"salesetl/pkg/config"
	"salesetl/pkg/parser"
	"salesetl/pkg/schema"
	"salesetl/pkg/store"
)

const salesCSV = `Transaction_ID,Product_ID,Quantity,Price,Transaction_Date
T1,1,2,-5.00,13/01/2024
T2,2,1,4.50,01/15/2024
T3,99,3,2.00,02/01/2024
T3,99,3,2.00,02/01/2024
T4,abc,,,
`

func testConfig(dir string) *config.Config {
	cfg := config.DefaultConfig()
	cfg.Source = config.DatabaseConfig{Driver: "sqlite", Database: filepath.Join(dir, "source.db")}
	cfg.Sink.DatabaseConfig = config.DatabaseConfig{Driver: "sqlite", Database: filepath.Join(dir, "sink.db")}
	cfg.Sink.Table = "merged_sales"
	cfg.Files.Dir = dir
	return cfg
}

func seedSource(t *testing.T, path string) {
	t.Helper()
	db, err := sql.Open("sqlite", path)
	require.NoError(t, err)
	defer db.Close()

	stmts := []string{
		`CREATE TABLE products (product_id INTEGER, product_name TEXT, category TEXT, price REAL, stock_available INTEGER)`,
		`INSERT INTO products VALUES (1, 'Widget', 'Tools', 9.99, NULL), (2, 'Gadget', 'Toys', -3.0, 5)`,
		`CREATE TABLE transactions (transaction_id TEXT, customer_id TEXT, product_id INTEGER, quantity INTEGER, transaction_date TEXT, total_amount REAL)`,
		`INSERT INTO transactions VALUES
			('TX1', 'C1', 1, 2, '2024-01-05', 19.98),
			('TX1', 'C1', 1, 2, '2024-01-05', 19.98),
			('TX2', 'C2', 2, 1, 'not-a-date', -1.0)`,
	}
	for _, s := range stmts {
		_, err := db.Exec(s)
		require.NoError(t, err)
	}
}

func newSession(t *testing.T, cfg *config.Config, log *zap.Logger) *Session {
	t.Helper()
	s, err := NewSession(cfg, log)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestRun_EndToEnd(t *testing.T) {
	dir := t.TempDir()
	cfg := testConfig(dir)
	seedSource(t, cfg.Source.Database)
	require.NoError(t, os.WriteFile(cfg.Files.SalesPath(), []byte(salesCSV), 0644))

	s := newSession(t, cfg, zaptest.NewLogger(t))
	require.NoError(t, s.Run(context.Background()))

	products, err := parser.ReadFile(cfg.Files.ProductsPath())
	require.NoError(t, err)
	assert.Equal(t, []string{"product_id", "product_name", "category", "price", "stock_available"}, products.Table.Columns)
	assert.Equal(t, []any{"1", "Widget", "Tools", "9.99", nil}, products.Table.Rows[0])

	db, err := sql.Open("sqlite", cfg.Sink.Database)
	require.NoError(t, err)
	defer db.Close()

	var count int
	require.NoError(t, db.QueryRow(`SELECT COUNT(*) FROM merged_sales`).Scan(&count))
	assert.Equal(t, 4, count, "one row per deduplicated sale")

	type merged struct {
		productID      sql.NullInt64
		quantity       int64
		price          float64
		productsPrice  sql.NullFloat64
		stock          sql.NullInt64
		customer       sql.NullString
		totalAmount    sql.NullFloat64
		transactionDay sql.NullString
	}
	got := map[string]merged{}
	rows, err := db.Query(`SELECT "Transaction_ID", "product_id", "Quantity", "Price", "products_price",
		"stock_available", "customer_id", "total_amount", "Transaction_Date" IS NULL
		FROM merged_sales`)
	require.NoError(t, err)
	for rows.Next() {
		var id string
		var m merged
		var dateNull bool
		require.NoError(t, rows.Scan(&id, &m.productID, &m.quantity, &m.price, &m.productsPrice,
			&m.stock, &m.customer, &m.totalAmount, &dateNull))
		if dateNull {
			m.transactionDay = sql.NullString{}
		} else {
			m.transactionDay = sql.NullString{String: "set", Valid: true}
		}
		got[id] = m
	}
	require.NoError(t, rows.Err())
	require.NoError(t, rows.Close())

	// Invalid date and negative price.
	t1 := got["T1"]
	assert.Equal(t, int64(1), t1.productID.Int64)
	assert.Equal(t, int64(2), t1.quantity)
	assert.Equal(t, 0.0, t1.price)
	assert.False(t, t1.transactionDay.Valid)
	// Null stock_available was defaulted before the join.
	assert.Equal(t, sql.NullInt64{Int64: 0, Valid: true}, t1.stock)
	assert.Equal(t, sql.NullFloat64{Float64: 19.98, Valid: true}, t1.totalAmount)

	t2 := got["T2"]
	assert.Equal(t, 4.5, t2.price)
	assert.True(t, t2.transactionDay.Valid)
	assert.Equal(t, sql.NullFloat64{Float64: 0, Valid: true}, t2.productsPrice, "negative product price zeroed")
	assert.Equal(t, sql.NullFloat64{Float64: 0, Valid: true}, t2.totalAmount, "negative total zeroed")

	t3 := got["T3"]
	assert.False(t, t3.productsPrice.Valid, "no product 99")
	assert.False(t, t3.customer.Valid)

	t4 := got["T4"]
	assert.False(t, t4.productID.Valid, "non-numeric product reference is null")
	assert.Equal(t, int64(0), t4.quantity)
	assert.Equal(t, 0.0, t4.price)
	assert.True(t, t4.transactionDay.Valid, "missing date defaults to epoch")
}

func TestRun_ExtractionFailureSkipsTransform(t *testing.T) {
	dir := t.TempDir()
	cfg := testConfig(dir)
	cfg.Source.Database = filepath.Join(dir, "missing", "source.db")
	require.NoError(t, os.WriteFile(cfg.Files.SalesPath(), []byte(salesCSV), 0644))

	core, logs := observer.New(zapcore.ErrorLevel)
	s := newSession(t, cfg, zap.New(core))

	err := s.Run(context.Background())
	require.Error(t, err)
	assert.ErrorContains(t, err, "products")
	assert.ErrorContains(t, err, "transactions")

	assert.NoFileExists(t, cfg.Files.ProductsPath())
	assert.NoFileExists(t, cfg.Files.TransactionsPath())
	assert.NoFileExists(t, cfg.Sink.Database)
	assert.Equal(t, 2, logs.FilterMessage("Error connecting to source database").Len())
	assert.Equal(t, 1, logs.FilterMessage("Skipping transform after failed extraction").Len())
}

func TestExtract_PartialFailureWritesSuccessfulTable(t *testing.T) {
	dir := t.TempDir()
	cfg := testConfig(dir)
	s := newSession(t, cfg, nil)

	products := schema.NewTable("product_id", "product_name")
	products.Append(int64(1), "Widget")
	s.extract = func(_ context.Context, _ config.DatabaseConfig, query string, _ *zap.Logger) store.Result {
		if query == store.ProductsQuery {
			return store.Succeeded(query, products)
		}
		return store.Failed(query, errors.New("permission denied"))
	}

	rep, err := s.Extract(context.Background())
	require.Error(t, err)
	assert.ErrorContains(t, err, "transactions: permission denied")
	assert.NotContains(t, err.Error(), "products:")

	require.Len(t, rep.Tables, 2)
	assert.True(t, rep.Tables[0].Succeeded())
	assert.Equal(t, 1, rep.Tables[0].Rows)
	require.Len(t, rep.Failed(), 1)
	assert.Equal(t, "transactions", rep.Failed()[0].Table)

	assert.FileExists(t, cfg.Files.ProductsPath())
	assert.NoFileExists(t, cfg.Files.TransactionsPath())
}

func TestTransform_MissingInputFile(t *testing.T) {
	cfg := testConfig(t.TempDir())
	s := newSession(t, cfg, nil)

	_, err := s.Transform(context.Background())
	assert.ErrorContains(t, err, "sales_data.csv")
}

func TestTransform_WarnsOnDuplicateProductKeys(t *testing.T) {
	dir := t.TempDir()
	cfg := testConfig(dir)
	require.NoError(t, os.WriteFile(cfg.Files.SalesPath(), []byte("Transaction_ID,Product_ID,Quantity,Price,Transaction_Date\nT1,1,1,1,01/01/2024\n"), 0644))
	require.NoError(t, os.WriteFile(cfg.Files.ProductsPath(), []byte("product_id,product_name,category,price,stock_available\n1,A,c,1,1\n1,B,c,1,1\n"), 0644))
	require.NoError(t, os.WriteFile(cfg.Files.TransactionsPath(), []byte("transaction_id,customer_id,product_id,quantity,transaction_date,total_amount\n"), 0644))

	core, logs := observer.New(zapcore.WarnLevel)
	s := newSession(t, cfg, zap.New(core))

	rep, err := s.Transform(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, rep.RowsWritten, "duplicate product keys multiply rows")
	assert.Equal(t, 1, logs.FilterMessage("product_id is not unique in products; merged rows will multiply").Len())
}

func TestNewSession(t *testing.T) {
	_, err := NewSession(nil, nil)
	assert.Error(t, err)

	cfg := testConfig(t.TempDir())
	cfg.Sink.Table = ""
	_, err = NewSession(cfg, nil)
	assert.ErrorContains(t, err, "sink.table")

	s := newSession(t, testConfig(t.TempDir()), nil)
	assert.NotEmpty(t, s.RunID())
	assert.NoError(t, s.Close())
	assert.NoError(t, s.Close(), "closing twice is safe")
}
