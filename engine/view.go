package engine

import (
	"fmt"
	"time"
)

// ============================================================================
// RECORD VIEW — Zero-Copy Data Access Interface
// ============================================================================
// The engine never copies visit data. It reads through this interface.
//
// Implementations:
//   Dataset  — the normalized, load-once column store
//   SubView  — filtered subset (indices into parent, zero-copy)
//
// Aggregations resolve a column once via Column(key) and then read cells with
// col.Float(view.Index(i)) in tight loops.
// ============================================================================

// RecordView provides indexed access to a dataset.
type RecordView interface {
	Len() int
	// Index maps a view position to a row of the underlying Dataset.
	Index(i int) int
	// Column returns the named column of the underlying Dataset.
	Column(key string) (*Column, bool)
	ColumnNames() []string
}

// ============================================================================
// DATASET — column-typed, load-once store
// ============================================================================

// Dataset is the normalized visit table. It is built once at load time and
// read-only afterwards; views and aggregations never write to it.
type Dataset struct {
	LoadID string `json:"loadId"`
	Source string `json:"source"`

	rows  int
	order []string
	cols  map[string]*Column
}

// NewDataset creates an empty dataset with a fixed row count.
func NewDataset(rows int) *Dataset {
	return &Dataset{rows: rows, cols: make(map[string]*Column)}
}

// Set adds or replaces a column during load. A replaced column keeps its
// position; a new one is appended. The column length must equal Len().
func (d *Dataset) Set(col *Column) {
	if col.Len() != d.rows {
		panic(fmt.Sprintf("engine: column %q has %d rows, dataset has %d", col.Name(), col.Len(), d.rows))
	}
	if _, exists := d.cols[col.Name()]; !exists {
		d.order = append(d.order, col.Name())
	}
	d.cols[col.Name()] = col
}

func (d *Dataset) Len() int        { return d.rows }
func (d *Dataset) Index(i int) int { return i }

func (d *Dataset) Column(key string) (*Column, bool) {
	c, ok := d.cols[key]
	return c, ok
}

// Has reports whether the dataset carries the named column.
func (d *Dataset) Has(key string) bool {
	_, ok := d.cols[key]
	return ok
}

func (d *Dataset) ColumnNames() []string {
	out := make([]string, len(d.order))
	copy(out, d.order)
	return out
}

// ============================================================================
// SUB VIEW — filtered subset (zero-copy)
// ============================================================================

// SubView is a filtered subset of a parent RecordView.
// Holds indices into the parent — no data copy.
type SubView struct {
	parent  RecordView
	indices []int
}

func newSubView(parent RecordView, indices []int) RecordView {
	return &SubView{parent: parent, indices: indices}
}

func (v *SubView) Len() int { return len(v.indices) }

func (v *SubView) Index(i int) int {
	return v.parent.Index(v.indices[i])
}

func (v *SubView) Column(key string) (*Column, bool) { return v.parent.Column(key) }
func (v *SubView) ColumnNames() []string             { return v.parent.ColumnNames() }

// Rows returns the Dataset row numbers covered by a view, in view order.
func Rows(view RecordView) []int {
	out := make([]int, view.Len())
	for i := range out {
		out[i] = view.Index(i)
	}
	return out
}

// Where returns the subset of view whose Dataset rows satisfy keep.
func Where(view RecordView, keep func(row int) bool) RecordView {
	indices := make([]int, 0, view.Len())
	for i := 0; i < view.Len(); i++ {
		if keep(view.Index(i)) {
			indices = append(indices, i)
		}
	}
	return newSubView(view, indices)
}

// ============================================================================
// CELL HELPERS
// ============================================================================

// TextAt reads a cell as text; false when the column is absent or null.
func TextAt(view RecordView, i int, key string) (string, bool) {
	col, ok := view.Column(key)
	if !ok {
		return "", false
	}
	return col.Text(view.Index(i))
}

// FloatAt reads a cell as a number; false when absent, null or non-numeric.
func FloatAt(view RecordView, i int, key string) (float64, bool) {
	col, ok := view.Column(key)
	if !ok {
		return 0, false
	}
	return col.Float(view.Index(i))
}

// TimeAt reads a cell as a time.
func TimeAt(view RecordView, i int, key string) (time.Time, bool) {
	col, ok := view.Column(key)
	if !ok {
		return time.Time{}, false
	}
	return col.Time(view.Index(i))
}
