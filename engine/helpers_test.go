package engine

import (
	"testing"
	"time"
)

// ============================================================================
// TEST FIXTURES
// ============================================================================

// text builds a text column; "" marks a null cell.
func text(name string, vals ...string) *Column {
	valid := make([]bool, len(vals))
	for i, v := range vals {
		valid[i] = v != ""
	}
	return NewTextColumn(name, vals, valid)
}

// num builds a number column; nil marks a null cell.
func num(name string, vals ...interface{}) *Column {
	out := make([]float64, len(vals))
	valid := make([]bool, len(vals))
	for i, v := range vals {
		switch x := v.(type) {
		case int:
			out[i], valid[i] = float64(x), true
		case float64:
			out[i], valid[i] = x, true
		}
	}
	return NewNumberColumn(name, out, valid)
}

// dates builds a time column from YYYY-MM-DD strings; "" marks a null cell.
func dates(name string, vals ...string) *Column {
	out := make([]time.Time, len(vals))
	valid := make([]bool, len(vals))
	for i, v := range vals {
		if v == "" {
			continue
		}
		t, err := time.Parse(DateLayout, v)
		if err != nil {
			panic(err)
		}
		out[i], valid[i] = t, true
	}
	return NewTimeColumn(name, out, valid)
}

func dataset(t *testing.T, rows int, cols ...*Column) *Dataset {
	t.Helper()
	ds := NewDataset(rows)
	for _, c := range cols {
		ds.Set(c)
	}
	return ds
}

func orderColumn(n int) *Column {
	vals := make([]interface{}, n)
	for i := range vals {
		vals[i] = i
	}
	return num(ColVisitOrder, vals...)
}

func texts(t *testing.T, view RecordView, key string) []string {
	t.Helper()
	col, ok := view.Column(key)
	if !ok {
		t.Fatalf("column %q missing", key)
	}
	out := make([]string, view.Len())
	for i := range out {
		out[i], _ = col.Text(view.Index(i))
	}
	return out
}

func assertStrings(t *testing.T, got, want []string, msg string) {
	t.Helper()
	if len(got) != len(want) {
		t.Errorf("%s: got %v, want %v", msg, got, want)
		return
	}
	for i := range got {
		if got[i] != want[i] {
			t.Errorf("%s: got %v, want %v", msg, got, want)
			return
		}
	}
}

func assertClose(t *testing.T, got, want float64, msg string) {
	t.Helper()
	if d := got - want; d > 1e-9 || d < -1e-9 {
		t.Errorf("%s: got %v, want %v", msg, got, want)
	}
}
