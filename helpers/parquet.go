package helpers

import (
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/parquet-go/parquet-go"

	"github.com/spektr-org/meditrack/engine"
	"github.com/spektr-org/meditrack/schema"
)

// ============================================================================
// PARQUET HELPER — Reads a flat Parquet file into a schema.RawTable
// ============================================================================
// Every leaf column becomes a header (nested paths joined with "."). Values
// are rendered to the same text a CSV export of the file would carry, so the
// two loaders feed Normalize identically:
//
//   numbers  → shortest decimal form (30, 22.5)
//   DATE     → 2006-01-02
//   TIMESTAMP→ RFC 3339, UTC
//   null     → empty cell
// ============================================================================

const parquetBatch = 512

// ReadParquet reads a Parquet file of the given size into a RawTable.
func ReadParquet(r io.ReaderAt, size int64) (schema.RawTable, error) {
	file, err := parquet.OpenFile(r, size)
	if err != nil {
		return schema.RawTable{}, fmt.Errorf("failed to open parquet: %w", err)
	}

	sch := file.Schema()
	paths := sch.Columns()
	headers := make([]string, len(paths))
	render := make([]func(parquet.Value) string, len(paths))
	for i, path := range paths {
		headers[i] = strings.Join(path, ".")
		leaf, _ := sch.Lookup(path...)
		render[i] = valueRenderer(leaf.Node)
	}

	reader := parquet.NewReader(file)
	defer reader.Close()

	table := schema.RawTable{Headers: headers, Rows: make([][]string, 0, file.NumRows())}
	buf := make([]parquet.Row, parquetBatch)
	for {
		n, err := reader.ReadRows(buf)
		for _, row := range buf[:n] {
			cells := make([]string, len(headers))
			for _, v := range row {
				col := v.Column()
				if col < 0 || col >= len(cells) || v.IsNull() {
					continue
				}
				cells[col] = render[col](v)
			}
			table.Rows = append(table.Rows, cells)
		}
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return schema.RawTable{}, fmt.Errorf("failed to read parquet rows: %w", err)
		}
		if n == 0 {
			break
		}
	}
	return table, nil
}

// valueRenderer picks the text rendering of one leaf column.
func valueRenderer(node parquet.Node) func(parquet.Value) string {
	if node != nil {
		if lt := node.Type().LogicalType(); lt != nil {
			switch {
			case lt.Date != nil:
				return func(v parquet.Value) string {
					return time.Unix(int64(v.Int32())*86400, 0).UTC().Format(engine.DateLayout)
				}
			case lt.Timestamp != nil:
				unit := time.Nanosecond
				switch {
				case lt.Timestamp.Unit.Millis != nil:
					unit = time.Millisecond
				case lt.Timestamp.Unit.Micros != nil:
					unit = time.Microsecond
				}
				return func(v parquet.Value) string {
					return time.Unix(0, v.Int64()*int64(unit)).UTC().Format(time.RFC3339)
				}
			}
		}
	}
	return renderValue
}

func renderValue(v parquet.Value) string {
	switch v.Kind() {
	case parquet.Boolean:
		return strconv.FormatBool(v.Boolean())
	case parquet.Int32:
		return strconv.FormatInt(int64(v.Int32()), 10)
	case parquet.Int64:
		return strconv.FormatInt(v.Int64(), 10)
	case parquet.Float:
		return strconv.FormatFloat(float64(v.Float()), 'f', -1, 32)
	case parquet.Double:
		return strconv.FormatFloat(v.Double(), 'f', -1, 64)
	case parquet.ByteArray, parquet.FixedLenByteArray:
		return string(v.ByteArray())
	}
	return v.String()
}
