package report

import (
	"strings"
	"text/tabwriter"

	"go.uber.org/zap/zapcore"

	"salesetl/pkg/engine"
	"salesetl/pkg/parser"
	"salesetl/pkg/schema"
)

// TableExtract is the outcome of extracting one source table to a file.
type TableExtract struct {
	Table   string   `json:"table"`
	Query   string   `json:"query"`
	File    string   `json:"file"`
	Rows    int      `json:"rows"`
	Columns []string `json:"columns"`
	Err     error    `json:"-"`
}

// Succeeded reports whether the table was extracted and written.
func (e TableExtract) Succeeded() bool { return e.Err == nil }

// MarshalLogObject implements zapcore.ObjectMarshaler.
func (e TableExtract) MarshalLogObject(enc zapcore.ObjectEncoder) error {
	enc.AddString("table", e.Table)
	enc.AddString("file", e.File)
	enc.AddInt("rows", e.Rows)
	if e.Err != nil {
		enc.AddString("error", e.Err.Error())
	}
	return nil
}

// ExtractReport summarizes an extraction flow run.
type ExtractReport struct {
	Tables []TableExtract `json:"tables"`
}

// Failed returns the tables that could not be extracted.
func (r *ExtractReport) Failed() []TableExtract {
	var out []TableExtract
	for _, t := range r.Tables {
		if !t.Succeeded() {
			out = append(out, t)
		}
	}
	return out
}

// MarshalLogObject implements zapcore.ObjectMarshaler.
func (r *ExtractReport) MarshalLogObject(enc zapcore.ObjectEncoder) error {
	return enc.AddArray("tables", zapcore.ArrayMarshalerFunc(func(arr zapcore.ArrayEncoder) error {
		for _, t := range r.Tables {
			if err := arr.AppendObject(t); err != nil {
				return err
			}
		}
		return nil
	}))
}

// RunReport summarizes a transform flow run.
type RunReport struct {
	Sales        schema.CleanStats   `json:"sales"`
	Products     schema.CleanStats   `json:"products"`
	Transactions schema.CleanStats   `json:"transactions"`
	Merge        *engine.MergeResult `json:"merge"`
	SinkTable    string              `json:"sinkTable"`
	RowsWritten  int                 `json:"rowsWritten"`
}

// MarshalLogObject implements zapcore.ObjectMarshaler.
func (r *RunReport) MarshalLogObject(enc zapcore.ObjectEncoder) error {
	for _, s := range []schema.CleanStats{r.Sales, r.Products, r.Transactions} {
		if err := enc.AddObject(s.Entity, cleanStats(s)); err != nil {
			return err
		}
	}
	if r.Merge != nil {
		if err := enc.AddObject("join_products", joinStats(r.Merge.Products)); err != nil {
			return err
		}
		if err := enc.AddObject("join_transactions", joinStats(r.Merge.Transactions)); err != nil {
			return err
		}
	}
	enc.AddString("sink_table", r.SinkTable)
	enc.AddInt("rows_written", r.RowsWritten)
	return nil
}

type cleanStats schema.CleanStats

func (s cleanStats) MarshalLogObject(enc zapcore.ObjectEncoder) error {
	enc.AddInt("rows_in", s.RowsIn)
	enc.AddInt("rows_out", s.RowsOut)
	enc.AddInt("defaults_filled", s.DefaultsFilled)
	enc.AddInt("duplicates_dropped", s.DuplicatesDropped)
	enc.AddInt("bad_dates", s.BadDates)
	enc.AddInt("negatives_nulled", s.NegativesNulled)
	enc.AddInt("zero_filled", s.ZeroFilled)
	enc.AddInt("bad_keys", s.BadKeys)
	return nil
}

type joinStats engine.JoinStats

func (s joinStats) MarshalLogObject(enc zapcore.ObjectEncoder) error {
	enc.AddInt("left_rows", s.LeftRows)
	enc.AddInt("output_rows", s.OutputRows)
	enc.AddInt("matched", s.Matched)
	enc.AddInt("unmatched", s.Unmatched)
	enc.AddInt("duplicate_keys", s.DuplicateKeys)
	return nil
}

// Preview renders the first n rows of a table as aligned text.
func Preview(t *schema.Table, n int) string {
	var b strings.Builder
	w := tabwriter.NewWriter(&b, 0, 4, 2, ' ', 0)
	_, _ = w.Write([]byte(strings.Join(t.Columns, "\t") + "\n"))
	head := t.Head(n)
	cells := make([]string, len(t.Columns))
	for _, row := range head.Rows {
		for i, v := range row {
			if v == nil {
				cells[i] = "null"
				continue
			}
			cells[i] = parser.FormatCell(v)
		}
		_, _ = w.Write([]byte(strings.Join(cells, "\t") + "\n"))
	}
	_ = w.Flush()
	return b.String()
}
