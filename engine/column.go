package engine

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

// ============================================================================
// COLUMN — Typed, nullable storage for one dataset column
// ============================================================================
// A column is text, number or time. Every cell is either valid or null.
// Accessors convert across kinds where it is meaningful (a text cell holding
// "3" reads as 3.0), so aggregations can read optional columns whatever type
// the loader gave them.
// ============================================================================

// Kind is the storage type of a column.
type Kind string

const (
	KindText   Kind = "text"
	KindNumber Kind = "number"
	KindTime   Kind = "time"
)

// DateLayout is the text rendering used for time cells.
const DateLayout = "2006-01-02"

// Column holds the values of one named column.
type Column struct {
	name  string
	kind  Kind
	text  []string
	num   []float64
	ts    []time.Time
	valid []bool
}

// NewTextColumn builds a text column. valid[i] == false marks a null cell.
func NewTextColumn(name string, values []string, valid []bool) *Column {
	mustMatch(name, len(values), len(valid))
	return &Column{name: name, kind: KindText, text: values, valid: valid}
}

// NewNumberColumn builds a number column. Non-finite values are stored as null.
func NewNumberColumn(name string, values []float64, valid []bool) *Column {
	mustMatch(name, len(values), len(valid))
	for i, v := range values {
		if valid[i] && (math.IsNaN(v) || math.IsInf(v, 0)) {
			valid[i] = false
		}
	}
	return &Column{name: name, kind: KindNumber, num: values, valid: valid}
}

// NewTimeColumn builds a time column.
func NewTimeColumn(name string, values []time.Time, valid []bool) *Column {
	mustMatch(name, len(values), len(valid))
	return &Column{name: name, kind: KindTime, ts: values, valid: valid}
}

func mustMatch(name string, values, valid int) {
	if values != valid {
		panic(fmt.Sprintf("engine: column %q has %d values but %d validity flags", name, values, valid))
	}
}

func (c *Column) Name() string { return c.name }
func (c *Column) Kind() Kind   { return c.kind }
func (c *Column) Len() int     { return len(c.valid) }

// Valid reports whether the cell at row holds a value.
func (c *Column) Valid(row int) bool {
	return row >= 0 && row < len(c.valid) && c.valid[row]
}

// Text returns the cell rendered as text.
func (c *Column) Text(row int) (string, bool) {
	if !c.Valid(row) {
		return "", false
	}
	switch c.kind {
	case KindNumber:
		return strconv.FormatFloat(c.num[row], 'f', -1, 64), true
	case KindTime:
		return formatTime(c.ts[row]), true
	default:
		return c.text[row], true
	}
}

// Float returns the cell as a number. Text cells are parsed on read; a text
// cell that is not a finite number reads as null.
func (c *Column) Float(row int) (float64, bool) {
	if !c.Valid(row) {
		return 0, false
	}
	switch c.kind {
	case KindNumber:
		return c.num[row], true
	case KindText:
		f, err := strconv.ParseFloat(strings.TrimSpace(c.text[row]), 64)
		if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
			return 0, false
		}
		return f, true
	default:
		return 0, false
	}
}

// Time returns the cell as a time. Only time columns hold times.
func (c *Column) Time(row int) (time.Time, bool) {
	if !c.Valid(row) || c.kind != KindTime {
		return time.Time{}, false
	}
	return c.ts[row], true
}

// NullCount returns the number of null cells.
func (c *Column) NullCount() int {
	n := 0
	for _, ok := range c.valid {
		if !ok {
			n++
		}
	}
	return n
}

// AllNull reports whether no cell holds a value.
func (c *Column) AllNull() bool {
	return c.NullCount() == len(c.valid)
}

func formatTime(t time.Time) string {
	if t.Hour() == 0 && t.Minute() == 0 && t.Second() == 0 && t.Nanosecond() == 0 {
		return t.Format(DateLayout)
	}
	return t.Format(time.RFC3339)
}
