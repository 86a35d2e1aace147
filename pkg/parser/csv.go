package parser

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/text/unicode/norm"

	"salesetl/pkg/schema"
)

// ParseWarning represents a non-fatal issue encountered during CSV parsing.
type ParseWarning struct {
	Row     int    `json:"row"`
	Message string `json:"message"`
}

// ParseResult contains the parsed table alongside any warnings.
type ParseResult struct {
	Table    *schema.Table  `json:"table"`
	Warnings []ParseWarning `json:"warnings"`
	Encoding string         `json:"encoding"`
}

// StreamParse parses CSV bytes into a table of string cells. Empty fields
// are null. It handles mismatched column counts (pad/truncate) and
// non-UTF-8 input.
func StreamParse(data []byte) (*schema.Table, error) {
	result, err := StreamParseWithWarnings(data)
	if err != nil {
		return nil, err
	}
	return result.Table, nil
}

// StreamParseWithWarnings parses CSV bytes and returns both the table and any warnings.
func StreamParseWithWarnings(data []byte) (*ParseResult, error) {
	decoded, enc, err := DetectAndDecode(data)
	if err != nil {
		return nil, fmt.Errorf("encoding detection failed: %w", err)
	}

	reader := csv.NewReader(bytes.NewReader(decoded))
	// We handle padding/truncation ourselves.
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true

	headers, err := reader.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("empty file: no header row found")
		}
		return nil, fmt.Errorf("failed to read header row: %w", err)
	}

	for i, h := range headers {
		headers[i] = norm.NFC.String(strings.TrimSpace(h))
	}

	table := schema.NewTable(headers...)
	headerCount := len(headers)
	var warnings []ParseWarning
	rowNum := 1 // header is row 1

	for {
		row, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		rowNum++

		if err != nil {
			warnings = append(warnings, ParseWarning{
				Row:     rowNum,
				Message: fmt.Sprintf("parse error: %v", err),
			})
			continue
		}

		if len(row) != headerCount {
			if len(row) < headerCount {
				warnings = append(warnings, ParseWarning{
					Row:     rowNum,
					Message: fmt.Sprintf("row has %d columns, expected %d; padding with nulls", len(row), headerCount),
				})
				padded := make([]string, headerCount)
				copy(padded, row)
				row = padded
			} else {
				warnings = append(warnings, ParseWarning{
					Row:     rowNum,
					Message: fmt.Sprintf("row has %d columns, expected %d; truncating extra columns", len(row), headerCount),
				})
				row = row[:headerCount]
			}
		}

		cells := make([]any, headerCount)
		for i, v := range row {
			if v == "" {
				continue
			}
			cells[i] = norm.NFC.String(v)
		}
		table.Rows = append(table.Rows, cells)
	}

	return &ParseResult{
		Table:    table,
		Warnings: warnings,
		Encoding: enc,
	}, nil
}

// ReadFile parses the CSV file at path.
func ReadFile(path string) (*ParseResult, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	result, err := StreamParseWithWarnings(data)
	if err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}
	return result, nil
}
