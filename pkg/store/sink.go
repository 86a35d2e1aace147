package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"salesetl/pkg/config"
	"salesetl/pkg/schema"
)

const defaultBatchSize = 500

// Sink writes tables to a relational database, replacing any existing table
// of the same name.
type Sink struct {
	db        *sql.DB
	dialect   Dialect
	batchSize int
	log       *zap.Logger
}

// OpenSink opens a sink handle from configuration.
func OpenSink(c config.SinkConfig, log *zap.Logger) (*Sink, error) {
	db, d, err := Open(c.DatabaseConfig)
	if err != nil {
		return nil, err
	}
	return NewSink(db, d, c.BatchSize, log), nil
}

// NewSink wraps an existing handle. A non-positive batch size uses the default.
func NewSink(db *sql.DB, d Dialect, batchSize int, log *zap.Logger) *Sink {
	if batchSize <= 0 {
		batchSize = defaultBatchSize
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Sink{db: db, dialect: d, batchSize: batchSize, log: log}
}

// DB returns the underlying handle.
func (s *Sink) DB() *sql.DB { return s.db }

// Close releases the handle.
func (s *Sink) Close() error { return s.db.Close() }

// Replace drops any table called name, recreates it from the column kinds of
// t and inserts every row. It returns the number of rows written. On MySQL
// the DROP and CREATE commit implicitly; the inserts are still atomic.
func (s *Sink) Replace(ctx context.Context, name string, t *schema.Table) (int, error) {
	if name == "" {
		return 0, fmt.Errorf("sink table name is empty")
	}
	if len(t.Columns) == 0 {
		return 0, fmt.Errorf("table %s has no columns", name)
	}
	start := time.Now()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, "DROP TABLE IF EXISTS "+s.dialect.Quote(name)); err != nil {
		return 0, fmt.Errorf("failed to drop table %s: %w", name, err)
	}
	if _, err := tx.ExecContext(ctx, s.createStatement(name, t)); err != nil {
		return 0, fmt.Errorf("failed to create table %s: %w", name, err)
	}

	batch := s.rowsPerStatement(len(t.Columns))
	written := 0
	for lo := 0; lo < len(t.Rows); lo += batch {
		hi := lo + batch
		if hi > len(t.Rows) {
			hi = len(t.Rows)
		}
		stmt, args := s.insertStatement(name, t, t.Rows[lo:hi])
		if _, err := tx.ExecContext(ctx, stmt, args...); err != nil {
			return 0, fmt.Errorf("failed to insert rows %d-%d into %s: %w", lo+1, hi, name, err)
		}
		written += hi - lo
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit table %s: %w", name, err)
	}

	s.log.Info("Replaced sink table",
		zap.String("dialect", s.dialect.Name),
		zap.String("table", name),
		zap.Int("rows", written),
		zap.Duration("elapsed", time.Since(start)))
	return written, nil
}

func (s *Sink) createStatement(name string, t *schema.Table) string {
	defs := make([]string, len(t.Columns))
	for i, c := range t.Columns {
		kind := schema.KindString
		if i < len(t.Kinds) {
			kind = t.Kinds[i]
		}
		defs[i] = s.dialect.Quote(c) + " " + s.dialect.ColumnType(kind)
	}
	return fmt.Sprintf("CREATE TABLE %s (%s)", s.dialect.Quote(name), strings.Join(defs, ", "))
}

func (s *Sink) insertStatement(name string, t *schema.Table, rows [][]any) (string, []any) {
	cols := make([]string, len(t.Columns))
	for i, c := range t.Columns {
		cols[i] = s.dialect.Quote(c)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "INSERT INTO %s (%s) VALUES ", s.dialect.Quote(name), strings.Join(cols, ", "))

	args := make([]any, 0, len(rows)*len(cols))
	n := 0
	for r, row := range rows {
		if r > 0 {
			b.WriteString(", ")
		}
		b.WriteByte('(')
		for c, v := range row {
			if c > 0 {
				b.WriteString(", ")
			}
			n++
			b.WriteString(s.dialect.Placeholder(n))
			args = append(args, s.bindValue(v))
		}
		b.WriteByte(')')
	}
	return b.String(), args
}

// bindValue adapts a cell for the driver. SQLite has no native date type, so
// dates are stored in ISO form.
func (s *Sink) bindValue(v any) any {
	if d, ok := v.(time.Time); ok && s.dialect.Name == SQLite.Name {
		return d.Format("2006-01-02")
	}
	return v
}

func (s *Sink) rowsPerStatement(width int) int {
	batch := s.batchSize
	if limit := s.dialect.maxParams() / width; batch > limit {
		batch = limit
	}
	if batch < 1 {
		batch = 1
	}
	return batch
}
