package engine

import (
	"math"
	"testing"
	"time"
)

func TestDatasetSetKeepsColumnOrder(t *testing.T) {
	ds := dataset(t, 2, text("a", "x", "y"), num("b", 1, 2))
	ds.Set(num("a", 3, 4))
	assertStrings(t, ds.ColumnNames(), []string{"a", "b"}, "column order after replace")

	col, _ := ds.Column("a")
	if col.Kind() != KindNumber {
		t.Errorf("Expected replaced column to be numeric, got %s", col.Kind())
	}
}

func TestDatasetSetRejectsLengthMismatch(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Error("Expected panic on length mismatch")
		}
	}()
	NewDataset(3).Set(text("a", "x"))
}

func TestSubViewMapsThroughParent(t *testing.T) {
	ds := dataset(t, 5, num("n", 0, 1, 2, 3, 4))
	even := Where(ds, func(row int) bool { return row%2 == 0 })
	late := Where(even, func(row int) bool { return row > 0 })

	got := Rows(late)
	if len(got) != 2 || got[0] != 2 || got[1] != 4 {
		t.Errorf("Expected rows [2 4], got %v", got)
	}
	if v, ok := FloatAt(late, 1, "n"); !ok || v != 4 {
		t.Errorf("Expected 4 at position 1, got %v", v)
	}
	if _, ok := TextAt(late, 0, "missing"); ok {
		t.Error("Expected absent column to read as null")
	}
}

func TestColumnConversions(t *testing.T) {
	c := text("t", " 3.5", "abc", "NaN", "")
	if v, ok := c.Float(0); !ok || v != 3.5 {
		t.Errorf("Expected 3.5, got %v %v", v, ok)
	}
	if _, ok := c.Float(1); ok {
		t.Error("Non-numeric text should read as null")
	}
	if _, ok := c.Float(2); ok {
		t.Error("NaN text should read as null")
	}
	if _, ok := c.Text(3); ok {
		t.Error("Null cell should read as null")
	}
	if _, ok := c.Text(99); ok {
		t.Error("Out-of-range row should read as null")
	}

	n := NewNumberColumn("n", []float64{1, math.Inf(1), math.NaN()}, []bool{true, true, true})
	if n.NullCount() != 2 {
		t.Errorf("Non-finite values should be null, got %d nulls", n.NullCount())
	}
	if s, _ := n.Text(0); s != "1" {
		t.Errorf("Expected \"1\", got %q", s)
	}

	ts := NewTimeColumn("d", []time.Time{
		time.Date(2024, 3, 9, 0, 0, 0, 0, time.UTC),
		time.Date(2024, 3, 9, 14, 30, 0, 0, time.UTC),
	}, []bool{true, true})
	if s, _ := ts.Text(0); s != "2024-03-09" {
		t.Errorf("Expected date-only rendering, got %q", s)
	}
	if s, _ := ts.Text(1); s != "2024-03-09T14:30:00Z" {
		t.Errorf("Expected RFC3339 rendering, got %q", s)
	}
	if !text("e", "", "").AllNull() {
		t.Error("Expected AllNull")
	}
}
