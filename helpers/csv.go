package helpers

import (
	"bufio"
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"

	"github.com/sirupsen/logrus"

	"github.com/spektr-org/meditrack/logger"
	"github.com/spektr-org/meditrack/schema"
)

// ============================================================================
// CSV HELPER — Parses CSV data into a schema.RawTable
// ============================================================================
// Consumer reads the CSV from wherever it lives (file, upload, pipe).
// This helper only splits cells; typing happens in schema.Normalize.
//
// Tolerances:
//   - UTF-8 BOM on the header is dropped
//   - Stray quotes are accepted (LazyQuotes)
//   - Short rows are kept; missing cells are null
//   - Rows longer than the header and malformed rows are skipped
// ============================================================================

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// ErrNoHeader is returned for input without a header row.
var ErrNoHeader = errors.New("no header row")

// ReadCSV parses CSV input into a RawTable.
func ReadCSV(r io.Reader) (schema.RawTable, error) {
	br := bufio.NewReader(r)
	if head, err := br.Peek(len(utf8BOM)); err == nil && bytes.Equal(head, utf8BOM) {
		_, _ = br.Discard(len(utf8BOM))
	}

	reader := csv.NewReader(br)
	reader.LazyQuotes = true
	reader.FieldsPerRecord = -1

	// Read header
	headers, err := reader.Read()
	if err == io.EOF {
		return schema.RawTable{}, ErrNoHeader
	}
	if err != nil {
		return schema.RawTable{}, fmt.Errorf("failed to read CSV headers: %w", err)
	}

	table := schema.RawTable{Headers: headers, Rows: [][]string{}}
	skipped := 0
	for {
		row, err := reader.Read()
		if err == io.EOF {
			break
		}
		var parseErr *csv.ParseError
		if errors.As(err, &parseErr) {
			skipped++
			logger.WithField("error", err.Error()).Debug("Skipping malformed CSV row")
			continue
		}
		if err != nil {
			return schema.RawTable{}, fmt.Errorf("failed to read CSV row: %w", err)
		}
		if len(row) > len(headers) {
			skipped++
			line, _ := reader.FieldPos(0)
			logger.WithFields(logrus.Fields{
				"line":   line,
				"fields": len(row),
				"header": len(headers),
			}).Debug("Skipping CSV row wider than header")
			continue
		}
		table.Rows = append(table.Rows, row)
	}

	if skipped > 0 {
		logger.WithFields(logrus.Fields{"skipped": skipped, "kept": len(table.Rows)}).
			Warn("Skipped malformed CSV rows")
	}
	return table, nil
}

// ParseCSV parses CSV bytes into a RawTable (convenience wrapper).
func ParseCSV(data []byte) (schema.RawTable, error) {
	return ReadCSV(bytes.NewReader(data))
}
