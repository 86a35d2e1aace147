package pipeline

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"salesetl/pkg/parser"
	"salesetl/pkg/report"
	"salesetl/pkg/store"
)

const previewRows = 5

type extractJob struct {
	table string
	query string
	file  string
}

// Extract reads the products and transactions tables from the source and
// writes each to its flat file, replacing any previous file. A failure on
// one table does not stop the other; the returned error names every table
// that failed and no file is written for it.
func (s *Session) Extract(ctx context.Context) (*report.ExtractReport, error) {
	log := s.log.Named("extract")
	jobs := []extractJob{
		{table: "products", query: store.ProductsQuery, file: s.cfg.Files.ProductsPath()},
		{table: "transactions", query: store.TransactionsQuery, file: s.cfg.Files.TransactionsPath()},
	}

	rep := &report.ExtractReport{}
	var errs []error
	for _, job := range jobs {
		entry := report.TableExtract{Table: job.table, Query: job.query, File: job.file}

		t, err := s.extract(ctx, s.cfg.Source, job.query, log).Table()
		if err == nil {
			entry.Rows = t.Len()
			entry.Columns = t.Columns
			log.Debug("Data from table", zap.String("table", job.table), zap.String("head", report.Preview(t, previewRows)))
			err = parser.WriteFile(job.file, t)
		}
		if err != nil {
			entry.Err = err
			errs = append(errs, fmt.Errorf("%s: %w", job.table, err))
		}
		rep.Tables = append(rep.Tables, entry)
	}

	log.Info("Extraction finished", zap.Object("report", rep))
	return rep, errors.Join(errs...)
}
