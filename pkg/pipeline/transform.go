package pipeline

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"salesetl/pkg/engine"
	"salesetl/pkg/parser"
	"salesetl/pkg/report"
	"salesetl/pkg/schema"
)

// Transform reads the three flat files, cleans each entity, merges them and
// replaces the sink table with the result.
func (s *Session) Transform(ctx context.Context) (*report.RunReport, error) {
	log := s.log.Named("transform")
	rep := &report.RunReport{SinkTable: s.cfg.Sink.Table}

	inputs := []struct {
		path   string
		entity schema.Entity
		stats  *schema.CleanStats
	}{
		{s.cfg.Files.SalesPath(), schema.Sales, &rep.Sales},
		{s.cfg.Files.ProductsPath(), schema.Products, &rep.Products},
		{s.cfg.Files.TransactionsPath(), schema.Transactions, &rep.Transactions},
	}

	cleaned := make([]*schema.Table, len(inputs))
	for i, in := range inputs {
		t, err := s.load(in.path, log)
		if err != nil {
			return rep, err
		}
		cleaned[i], *in.stats = schema.Clean(t, in.entity)
	}

	merged := engine.Merge(cleaned[0], cleaned[1], cleaned[2])
	rep.Merge = merged
	if len(merged.DuplicateProducts) > 0 {
		log.Warn("product_id is not unique in products; merged rows will multiply",
			zap.Int("keys", len(merged.DuplicateProducts)),
			zap.Any("duplicates", merged.DuplicateProducts))
	}
	if len(merged.DuplicateTransactions) > 0 {
		log.Warn("product_id is not unique in transactions; merged rows will multiply",
			zap.Int("keys", len(merged.DuplicateTransactions)),
			zap.Any("duplicates", merged.DuplicateTransactions))
	}

	if err := ctx.Err(); err != nil {
		return rep, err
	}

	n, err := s.sink.Replace(ctx, s.cfg.Sink.Table, merged.Table)
	if err != nil {
		return rep, fmt.Errorf("failed to write sink table: %w", err)
	}
	rep.RowsWritten = n

	log.Info("Transform finished", zap.Object("report", rep))
	return rep, nil
}

func (s *Session) load(path string, log *zap.Logger) (*schema.Table, error) {
	res, err := parser.ReadFile(path)
	if err != nil {
		return nil, err
	}
	for _, w := range res.Warnings {
		log.Warn("CSV row repaired", zap.String("file", path), zap.Int("row", w.Row), zap.String("reason", w.Message))
	}
	log.Debug("Loaded file",
		zap.String("file", path),
		zap.String("encoding", res.Encoding),
		zap.Int("rows", res.Table.Len()))
	return res.Table, nil
}
