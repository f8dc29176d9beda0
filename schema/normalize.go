package schema

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/spektr-org/meditrack/engine"
	"github.com/spektr-org/meditrack/logger"
)

// ============================================================================
// NORMALIZE — RawTable → typed engine.Dataset
// ============================================================================
// Pipeline:
//   1. Clean headers (trim, de-duplicate) and null tokens
//   2. Coerce NumericColumns to numbers (unparseable → null)
//   3. Derive age_group from age
//   4. Title-case gender, expand M/F
//   5. Resolve the time axis: visit_date from the first "date" column,
//      else visit_order from load position
//   6. patient_id stays text
//
// Never fails on a malformed cell. Running Normalize on ToRaw of its own
// output yields the same dataset.
// ============================================================================

// Normalize builds a Dataset from raw tabular input.
func Normalize(raw RawTable) *engine.Dataset {
	headers := cleanHeaders(raw.Headers)
	ds := engine.NewDataset(len(raw.Rows))

	numeric := make(map[string]bool, len(NumericColumns))
	for _, c := range NumericColumns {
		numeric[c] = true
	}

	for j, h := range headers {
		cells, valid := columnCells(raw.Rows, j)
		if numeric[h] {
			ds.Set(numberColumn(h, cells, valid))
			continue
		}
		ds.Set(engine.NewTextColumn(h, cells, valid))
	}

	deriveAgeGroup(ds)
	normalizeGender(ds)
	axis := resolveTimeAxis(ds, headers)

	logger.WithFields(logrus.Fields{
		"rows":      ds.Len(),
		"columns":   len(headers),
		"time_axis": axis.Column,
		"date_from": axis.Source,
	}).Debug("Normalized dataset")

	return ds
}

// ============================================================================
// HEADERS & CELLS
// ============================================================================

// cleanHeaders trims names and suffixes repeats with .1, .2, ...
func cleanHeaders(raw []string) []string {
	out := make([]string, len(raw))
	seen := make(map[string]bool, len(raw))
	for i, h := range raw {
		h = strings.TrimSpace(h)
		if h == "" {
			h = fmt.Sprintf("Unnamed: %d", i)
		}
		name := h
		for k := 1; seen[name]; k++ {
			name = fmt.Sprintf("%s.%d", h, k)
		}
		if name != h {
			logger.WithFields(logrus.Fields{"column": h, "renamed": name}).Warn("Duplicate column renamed")
		}
		seen[name] = true
		out[i] = name
	}
	return out
}

func columnCells(rows [][]string, j int) ([]string, []bool) {
	cells := make([]string, len(rows))
	valid := make([]bool, len(rows))
	for i, row := range rows {
		if j >= len(row) || IsNull(row[j]) {
			continue
		}
		cells[i], valid[i] = row[j], true
	}
	return cells, valid
}

// IsNull reports whether a raw cell reads as missing.
func IsNull(s string) bool {
	return nullTokens[s] || nullTokens[strings.TrimSpace(s)]
}

func numberColumn(name string, cells []string, valid []bool) *engine.Column {
	nums := make([]float64, len(cells))
	ok := make([]bool, len(cells))
	for i, c := range cells {
		if valid[i] {
			nums[i], ok[i] = ParseNumber(c)
		}
	}
	return engine.NewNumberColumn(name, nums, ok)
}

// ParseNumber parses a finite number; anything else is null.
func ParseNumber(s string) (float64, bool) {
	f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}

// dateLayouts are tried in order; month-first wins over day-first for
// ambiguous slash dates.
var dateLayouts = []string{
	"2006-01-02",
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
	"2006/01/02",
	"01/02/2006",
	"02/01/2006",
	"1/2/2006",
	"2/1/2006",
	"01-02-2006",
	"02-01-2006",
	"Jan 2, 2006",
	"January 2, 2006",
	"2 Jan 2006",
	"02-Jan-2006",
	"2006-01",
}

// ParseDate parses a cell with the known layouts, in UTC.
func ParseDate(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range dateLayouts {
		if t, err := time.ParseInLocation(layout, s, time.UTC); err == nil {
			return t.UTC(), true
		}
	}
	return time.Time{}, false
}

// ============================================================================
// DERIVED COLUMNS
// ============================================================================

// AgeGroup buckets an age. ok is false outside [0, 200].
func AgeGroup(age float64) (string, bool) {
	if age < ageBinEdges[0] || age > ageBinEdges[len(ageBinEdges)-1] {
		return "", false
	}
	for i := 1; i < len(ageBinEdges); i++ {
		if age <= ageBinEdges[i] {
			return AgeGroupLabels[i-1], true
		}
	}
	return "", false
}

// deriveAgeGroup always adds age_group; it is all null without an age column.
func deriveAgeGroup(ds *engine.Dataset) {
	groups := make([]string, ds.Len())
	valid := make([]bool, ds.Len())
	if age, ok := ds.Column(engine.ColAge); ok {
		for i := range groups {
			if v, ok := age.Float(i); ok {
				groups[i], valid[i] = AgeGroup(v)
			}
		}
	}
	ds.Set(engine.NewTextColumn(engine.ColAgeGroup, groups, valid))
}

// NormalizeGender title-cases a value and expands single-letter codes.
func NormalizeGender(v string) string {
	return normalizeGenderWith(cases.Title(language.Und), v)
}

// A Caser is stateful; callers pass one they own.
func normalizeGenderWith(caser cases.Caser, v string) string {
	v = caser.String(v)
	switch v {
	case "M":
		return "Male"
	case "F":
		return "Female"
	}
	return v
}

func normalizeGender(ds *engine.Dataset) {
	col, ok := ds.Column(engine.ColGender)
	if !ok {
		return
	}
	caser := cases.Title(language.Und)
	out := make([]string, ds.Len())
	valid := make([]bool, ds.Len())
	for i := range out {
		if v, ok := col.Text(i); ok {
			out[i], valid[i] = normalizeGenderWith(caser, v), true
		}
	}
	ds.Set(engine.NewTextColumn(engine.ColGender, out, valid))
}

// ============================================================================
// TIME AXIS RESOLUTION
// ============================================================================

// DateSource returns the first column whose name contains "date",
// case-insensitive. Known limitation: with several date columns the first
// one wins, whatever it records.
func DateSource(columns []string) (string, bool) {
	for _, c := range columns {
		if strings.Contains(strings.ToLower(c), "date") {
			return c, true
		}
	}
	return "", false
}

// ResolveTimeAxis applies the two-step precedence: visit_date when a date
// source exists and at least one value parsed, else visit_order.
func ResolveTimeAxis(source string, parsed int) TimeAxis {
	if source != "" && parsed > 0 {
		return TimeAxis{Column: engine.ColVisitDate, Source: source, Parsed: parsed}
	}
	return TimeAxis{Column: engine.ColVisitOrder, Source: source, Fallback: true}
}

func resolveTimeAxis(ds *engine.Dataset, headers []string) TimeAxis {
	parsed := 0
	source, ok := DateSource(headers)
	if ok {
		col, _ := ds.Column(source)
		ts := make([]time.Time, ds.Len())
		valid := make([]bool, ds.Len())
		for i := range ts {
			if v, ok := col.Text(i); ok {
				if ts[i], valid[i] = ParseDate(v); valid[i] {
					parsed++
				}
			}
		}
		ds.Set(engine.NewTimeColumn(engine.ColVisitDate, ts, valid))
	}

	axis := ResolveTimeAxis(source, parsed)
	if axis.Fallback {
		order := make([]float64, ds.Len())
		valid := make([]bool, ds.Len())
		for i := range order {
			order[i], valid[i] = float64(i), true
		}
		ds.Set(engine.NewNumberColumn(engine.ColVisitOrder, order, valid))
	}
	return axis
}

// ============================================================================
// RENDERING
// ============================================================================

// ToRaw renders a Dataset back to raw cells; nulls become "".
func ToRaw(ds *engine.Dataset) RawTable {
	names := ds.ColumnNames()
	cols := make([]*engine.Column, len(names))
	for j, name := range names {
		cols[j], _ = ds.Column(name)
	}
	rows := make([][]string, ds.Len())
	for i := range rows {
		row := make([]string, len(cols))
		for j, col := range cols {
			row[j], _ = col.Text(i)
		}
		rows[i] = row
	}
	return RawTable{Headers: names, Rows: rows}
}
