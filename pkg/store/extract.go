package store

import (
	"context"
	"fmt"
	"math"
	"strconv"
	"time"

	"go.uber.org/zap"

	"salesetl/pkg/config"
	"salesetl/pkg/schema"
)

// Fixed extraction queries.
const (
	ProductsQuery     = "SELECT * FROM products"
	TransactionsQuery = "SELECT * FROM transactions"
)

// ExtractError reports which step of an extraction failed.
type ExtractError struct {
	Query string
	Stage string // open, connect, query, scan
	Err   error
}

func (e *ExtractError) Error() string {
	return fmt.Sprintf("extract %q: %s: %v", e.Query, e.Stage, e.Err)
}

func (e *ExtractError) Unwrap() error { return e.Err }

// Result is the outcome of one extraction: either a table or the reason
// there is none. The table is only reachable through Table, which returns
// the failure alongside it.
type Result struct {
	Query string
	table *schema.Table
	err   error
}

// Succeeded wraps a table as a successful result.
func Succeeded(query string, t *schema.Table) Result {
	return Result{Query: query, table: t}
}

// Failed wraps an error as a failed result.
func Failed(query string, err error) Result {
	return Result{Query: query, err: err}
}

// OK reports whether the extraction produced a table.
func (r Result) OK() bool { return r.err == nil && r.table != nil }

// Err returns the failure reason, or nil on success.
func (r Result) Err() error {
	if r.err == nil && r.table == nil {
		return &ExtractError{Query: r.Query, Stage: "query", Err: fmt.Errorf("no result")}
	}
	return r.err
}

// Table returns the extracted table, or the failure reason.
func (r Result) Table() (*schema.Table, error) {
	if err := r.Err(); err != nil {
		return nil, err
	}
	return r.table, nil
}

// Extract runs query against the source and returns the full result set.
// One connection is opened per call and released on every path. Failures
// are logged and returned as a failed Result.
func Extract(ctx context.Context, conn config.DatabaseConfig, query string, log *zap.Logger) Result {
	if log == nil {
		log = zap.NewNop()
	}
	start := time.Now()

	t, err := extract(ctx, conn, query)
	if err != nil {
		log.Error("Error connecting to source database",
			zap.String("driver", conn.Driver),
			zap.String("host", conn.Host),
			zap.String("database", conn.Database),
			zap.String("query", query),
			zap.Error(err))
		return Failed(query, err)
	}

	log.Info("Extracted table",
		zap.String("query", query),
		zap.Int("rows", t.Len()),
		zap.Strings("columns", t.Columns),
		zap.Duration("elapsed", time.Since(start)))
	return Succeeded(query, t)
}

func extract(ctx context.Context, conn config.DatabaseConfig, query string) (*schema.Table, error) {
	db, _, err := Open(conn)
	if err != nil {
		return nil, &ExtractError{Query: query, Stage: "open", Err: err}
	}
	defer db.Close()
	db.SetMaxOpenConns(1)

	if err := db.PingContext(ctx); err != nil {
		return nil, &ExtractError{Query: query, Stage: "connect", Err: err}
	}

	rows, err := db.QueryContext(ctx, query)
	if err != nil {
		return nil, &ExtractError{Query: query, Stage: "query", Err: err}
	}
	defer rows.Close()

	cols, err := rows.Columns()
	if err != nil {
		return nil, &ExtractError{Query: query, Stage: "query", Err: err}
	}

	t := schema.NewTable(cols...)
	for rows.Next() {
		values := make([]any, len(cols))
		ptrs := make([]any, len(cols))
		for i := range values {
			ptrs[i] = &values[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, &ExtractError{Query: query, Stage: "scan", Err: err}
		}
		for i, v := range values {
			values[i] = normalizeValue(v)
		}
		t.Rows = append(t.Rows, values)
	}
	if err := rows.Err(); err != nil {
		return nil, &ExtractError{Query: query, Stage: "scan", Err: err}
	}

	t.InferKinds()
	return t, nil
}

// normalizeValue converts driver values to the cell types a Table holds.
func normalizeValue(v any) any {
	switch x := v.(type) {
	case nil:
		return nil
	case []byte:
		return string(x)
	case int:
		return int64(x)
	case int32:
		return int64(x)
	case int16:
		return int64(x)
	case int8:
		return int64(x)
	case uint8:
		return int64(x)
	case uint16:
		return int64(x)
	case uint32:
		return int64(x)
	case uint64:
		if x > math.MaxInt64 {
			return strconv.FormatUint(x, 10)
		}
		return int64(x)
	case float32:
		return float64(x)
	case bool:
		if x {
			return "True"
		}
		return "False"
	default:
		return x
	}
}
