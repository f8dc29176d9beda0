package engine

import (
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
)

// ============================================================================
// AGGREGATORS — KPIs, Counts, Crosstabs, Rates via RecordView
// ============================================================================
// All functions operate on RecordView — zero-copy access to the dataset.
// Every function is total: an absent column or an empty view yields a result
// carrying a Reason (or "N/A"), never an error or a panic.
// ============================================================================

// ============================================================================
// KPIs
// ============================================================================

// ComputeKPIs returns the headline numbers of a view.
// TotalPatients counts distinct non-null patient ids, or rows when the
// dataset has no patient_id column.
func ComputeKPIs(view RecordView) KPISet {
	kpis := KPISet{
		TotalPatients: DistinctPatients(view),
		AvgAge:        MeanOf(view, ColAge),
		AvgBMI:        MeanOf(view, ColBMI),
		AvgAdherence:  MeanOf(view, ColAdherence),
	}
	if kpis.AvgAdherence.Available {
		kpis.AvgAdherence.Display += "%"
	}
	return kpis
}

// DistinctPatients counts unique patient ids in a view.
func DistinctPatients(view RecordView) int {
	col, ok := view.Column(ColPatientID)
	if !ok {
		return view.Len()
	}
	seen := make(map[string]struct{})
	for i := 0; i < view.Len(); i++ {
		if id, ok := col.Text(view.Index(i)); ok {
			seen[id] = struct{}{}
		}
	}
	return len(seen)
}

// MeanOf returns the mean of a numeric column ignoring nulls, rounded to one
// decimal. Unavailable when the column is absent or holds no numbers.
func MeanOf(view RecordView, column string) Metric {
	col, ok := view.Column(column)
	if !ok {
		return unavailable()
	}
	var sum float64
	var n int
	for i := 0; i < view.Len(); i++ {
		if v, ok := col.Float(view.Index(i)); ok {
			sum += v
			n++
		}
	}
	if n == 0 {
		return unavailable()
	}
	return roundMetric(sum / float64(n))
}

func unavailable() Metric {
	return Metric{Display: NotAvailable}
}

// roundMetric rounds half-to-even at one decimal.
func roundMetric(v float64) Metric {
	d := decimal.NewFromFloat(v).RoundBank(1)
	f, _ := d.Float64()
	return Metric{Value: f, Available: true, Display: d.StringFixed(1)}
}

// NumericBounds returns the smallest and largest value of a numeric column.
// ok is false when the column is absent or all null.
func NumericBounds(view RecordView, column string) (lo, hi float64, ok bool) {
	col, exists := view.Column(column)
	if !exists {
		return 0, 0, false
	}
	lo, hi = math.Inf(1), math.Inf(-1)
	for i := 0; i < view.Len(); i++ {
		v, valid := col.Float(view.Index(i))
		if !valid {
			continue
		}
		ok = true
		if v < lo {
			lo = v
		}
		if v > hi {
			hi = v
		}
	}
	if !ok {
		return 0, 0, false
	}
	return lo, hi, true
}

// ============================================================================
// CATEGORICAL COUNTS
// ============================================================================

// CategoricalCounts returns value counts of a column in descending frequency,
// truncated to topN (topN <= 0 keeps every value). Ties keep the order in
// which values were first encountered.
func CategoricalCounts(view RecordView, column string, topN int) Counts {
	col, ok := view.Column(column)
	if !ok {
		return Counts{Column: column, Entries: []CountEntry{}, Reason: ReasonMissingColumn}
	}
	entries, total := countValues(view, col)
	sort.SliceStable(entries, func(i, j int) bool { return entries[i].Count > entries[j].Count })
	if topN > 0 && len(entries) > topN {
		entries = entries[:topN]
	}
	counts := Counts{Column: column, Entries: entries, Total: total}
	if total == 0 {
		counts.Reason = ReasonNoData
	}
	return counts
}

// OrderedCounts returns the counts of the given values in the given order,
// zero for values that do not occur. Values outside order are dropped.
func OrderedCounts(view RecordView, column string, order []string) Counts {
	col, ok := view.Column(column)
	if !ok {
		return Counts{Column: column, Entries: []CountEntry{}, Reason: ReasonMissingColumn}
	}
	found, _ := countValues(view, col)
	byValue := make(map[string]int, len(found))
	for _, e := range found {
		byValue[e.Value] = e.Count
	}
	entries := make([]CountEntry, 0, len(order))
	total := 0
	for _, v := range order {
		entries = append(entries, CountEntry{Value: v, Count: byValue[v]})
		total += byValue[v]
	}
	counts := Counts{Column: column, Entries: entries, Total: total}
	if total == 0 {
		counts.Reason = ReasonNoData
	}
	return counts
}

// countValues tallies non-null cells in first-encountered order.
func countValues(view RecordView, col *Column) ([]CountEntry, int) {
	index := make(map[string]int)
	entries := make([]CountEntry, 0)
	total := 0
	for i := 0; i < view.Len(); i++ {
		v, ok := col.Text(view.Index(i))
		if !ok {
			continue
		}
		total++
		if pos, seen := index[v]; seen {
			entries[pos].Count++
			continue
		}
		index[v] = len(entries)
		entries = append(entries, CountEntry{Value: v, Count: 1})
	}
	return entries, total
}

// UniqueValues returns the sorted distinct non-null values of a column.
// Number columns sort numerically.
func UniqueValues(view RecordView, column string) []string {
	col, ok := view.Column(column)
	if !ok {
		return []string{}
	}
	seen := make(map[string]bool)
	result := make([]string, 0)
	for i := 0; i < view.Len(); i++ {
		v, ok := col.Text(view.Index(i))
		if ok && !seen[v] {
			seen[v] = true
			result = append(result, v)
		}
	}
	sortValues(col, result)
	return result
}

// sortValues orders axis values: numerically for number columns,
// lexically otherwise.
func sortValues(col *Column, values []string) {
	if col.Kind() == KindNumber {
		sort.Slice(values, func(i, j int) bool {
			a, _ := strconv.ParseFloat(values[i], 64)
			b, _ := strconv.ParseFloat(values[j], 64)
			return a < b
		})
		return
	}
	sort.Strings(values)
}

// ============================================================================
// CROSSTAB
// ============================================================================

// Crosstab counts co-occurring values of two columns. Rows and columns are
// the sorted unique values of each axis; a pair with a null on either side is
// excluded from both axes.
func Crosstab(view RecordView, rowColumn, colColumn string) Matrix {
	m := Matrix{RowColumn: rowColumn, ColColumn: colColumn, Rows: []string{}, Cols: []string{}, Cells: [][]int{}}
	rc, ok := view.Column(rowColumn)
	if !ok {
		m.Reason = ReasonMissingColumn
		return m
	}
	cc, ok := view.Column(colColumn)
	if !ok {
		m.Reason = ReasonMissingColumn
		return m
	}

	type pair struct{ r, c string }
	pairs := make(map[pair]int)
	rowSet := make(map[string]bool)
	colSet := make(map[string]bool)
	for i := 0; i < view.Len(); i++ {
		row := view.Index(i)
		r, ok := rc.Text(row)
		if !ok {
			continue
		}
		c, ok := cc.Text(row)
		if !ok {
			continue
		}
		pairs[pair{r, c}]++
		if !rowSet[r] {
			rowSet[r] = true
			m.Rows = append(m.Rows, r)
		}
		if !colSet[c] {
			colSet[c] = true
			m.Cols = append(m.Cols, c)
		}
	}
	if len(pairs) == 0 {
		m.Reason = ReasonNoData
		return m
	}

	sortValues(rc, m.Rows)
	sortValues(cc, m.Cols)
	m.Cells = make([][]int, len(m.Rows))
	for i, r := range m.Rows {
		m.Cells[i] = make([]int, len(m.Cols))
		for j, c := range m.Cols {
			m.Cells[i][j] = pairs[pair{r, c}]
		}
	}
	return m
}

// CrosstabTopRows keeps the n rows of a crosstab with the largest totals,
// ordered by total descending. Columns keep their sorted order.
func CrosstabTopRows(view RecordView, rowColumn, colColumn string, n int) Matrix {
	m := Crosstab(view, rowColumn, colColumn)
	if m.Reason != "" || n <= 0 {
		return m
	}

	order := make([]int, len(m.Rows))
	totals := make([]int, len(m.Rows))
	for i, cells := range m.Cells {
		order[i] = i
		for _, c := range cells {
			totals[i] += c
		}
	}
	sort.SliceStable(order, func(a, b int) bool { return totals[order[a]] > totals[order[b]] })
	if len(order) > n {
		order = order[:n]
	}

	rows := make([]string, len(order))
	cells := make([][]int, len(order))
	for i, idx := range order {
		rows[i] = m.Rows[idx]
		cells[i] = m.Cells[idx]
	}
	m.Rows, m.Cells = rows, cells
	return m
}

// ============================================================================
// RATES
// ============================================================================

// Classifier derives a status for a row from one or more columns.
// Classify returns false when the row has no defined status.
type Classifier struct {
	Statuses []string
	Columns  []string
	Classify func(cols []*Column, row int) (string, bool)
}

// RateBreakdown returns the share of each status over rows with a defined
// status. Percentages sum to 100; undefined rows are excluded from the
// denominator.
func RateBreakdown(view RecordView, c Classifier) Rates {
	cols := make([]*Column, 0, len(c.Columns))
	for _, name := range c.Columns {
		col, ok := view.Column(name)
		if !ok {
			return Rates{Entries: []RateEntry{}, Reason: ReasonMissingColumn}
		}
		cols = append(cols, col)
	}

	counts := make(map[string]int, len(c.Statuses))
	total := 0
	for i := 0; i < view.Len(); i++ {
		status, ok := c.Classify(cols, view.Index(i))
		if !ok {
			continue
		}
		counts[status]++
		total++
	}
	if total == 0 {
		return Rates{Entries: []RateEntry{}, Reason: ReasonNoData}
	}

	entries := make([]RateEntry, 0, len(c.Statuses))
	for _, s := range c.Statuses {
		entries = append(entries, RateEntry{
			Status:  s,
			Count:   counts[s],
			Percent: float64(counts[s]) / float64(total) * 100,
		})
	}
	return Rates{Entries: entries, Total: total}
}

// Status names of the built-in classifiers.
const (
	StatusControlled   = "Controlled"
	StatusUncontrolled = "Uncontrolled"
	StatusAbove        = "Above"
	StatusAtOrBelow    = "At or below"
	StatusGeneric      = "Generic"
	StatusBranded      = "Branded"
)

// BloodPressureControl marks a visit Controlled when systolic < sysLimit and
// diastolic < diaLimit. A visit missing either reading has no status.
func BloodPressureControl(sysLimit, diaLimit float64) Classifier {
	return Classifier{
		Statuses: []string{StatusControlled, StatusUncontrolled},
		Columns:  []string{ColSystolicBP, ColDiastolicBP},
		Classify: func(cols []*Column, row int) (string, bool) {
			sys, ok := cols[0].Float(row)
			if !ok {
				return "", false
			}
			dia, ok := cols[1].Float(row)
			if !ok {
				return "", false
			}
			if sys < sysLimit && dia < diaLimit {
				return StatusControlled, true
			}
			return StatusUncontrolled, true
		},
	}
}

// ThresholdClassifier marks a visit Above when column > threshold.
func ThresholdClassifier(column string, threshold float64) Classifier {
	return Classifier{
		Statuses: []string{StatusAbove, StatusAtOrBelow},
		Columns:  []string{column},
		Classify: func(cols []*Column, row int) (string, bool) {
			v, ok := cols[0].Float(row)
			if !ok {
				return "", false
			}
			if v > threshold {
				return StatusAbove, true
			}
			return StatusAtOrBelow, true
		},
	}
}

// GenericClassifier maps the generic flag to Generic (true/yes) or Branded
// (false/no). Other values have no status.
func GenericClassifier() Classifier {
	return Classifier{
		Statuses: []string{StatusGeneric, StatusBranded},
		Columns:  []string{ColGeneric},
		Classify: func(cols []*Column, row int) (string, bool) {
			v, ok := cols[0].Text(row)
			if !ok {
				return "", false
			}
			switch strings.ToLower(strings.TrimSpace(v)) {
			case "true", "yes":
				return StatusGeneric, true
			case "false", "no":
				return StatusBranded, true
			}
			return "", false
		},
	}
}

// ============================================================================
// PARETO
// ============================================================================

// ParetoBreakdown ranks values of a column by frequency, truncated to topN,
// with a running cumulative percentage of the untruncated population. The last
// shown entry therefore reaches 100 only when nothing was cut off.
func ParetoBreakdown(view RecordView, column string, topN int) Pareto {
	counts := CategoricalCounts(view, column, topN)
	p := Pareto{Column: column, Entries: []ParetoEntry{}, Total: counts.Total, Reason: counts.Reason}
	if counts.Total == 0 {
		return p
	}
	running := 0
	for _, e := range counts.Entries {
		running += e.Count
		p.Entries = append(p.Entries, ParetoEntry{
			Value:             e.Value,
			Count:             e.Count,
			CumulativePercent: float64(running) / float64(counts.Total) * 100,
		})
	}
	return p
}

// ============================================================================
// REFILLS
// ============================================================================

// RefillSummary sums refills per distinct patient and classifies each patient
// as completed (sum > 0) or missed. Null refills or patient ids are skipped;
// a refill value that is present but not numeric counts as 0. Without a
// patient_id column each visit counts as its own patient.
func RefillSummary(view RecordView) Refills {
	refills, ok := view.Column(ColRefills)
	if !ok {
		return Refills{Reason: ReasonMissingColumn}
	}
	ids, hasIDs := view.Column(ColPatientID)

	sums := make(map[string]float64)
	for i := 0; i < view.Len(); i++ {
		row := view.Index(i)
		if !refills.Valid(row) {
			continue
		}
		id := strconv.Itoa(row)
		if hasIDs {
			var ok bool
			if id, ok = ids.Text(row); !ok {
				continue
			}
		}
		v, _ := refills.Float(row)
		sums[id] += v
	}

	var r Refills
	for _, total := range sums {
		if total > 0 {
			r.Completed++
		} else {
			r.Missed++
		}
	}
	r.Patients = len(sums)
	if r.Patients == 0 {
		r.Reason = ReasonNoData
	}
	return r
}

// ============================================================================
// PATIENT LOOKUP
// ============================================================================

// LookupPatient returns every visit of the patient with the exact id, newest
// first: by visit_date descending (undated visits last), ties broken by
// visit_order descending. Returns an empty view when the dataset has no patient_id.
func LookupPatient(view RecordView, id string) RecordView {
	col, ok := view.Column(ColPatientID)
	if !ok {
		return newSubView(view, []int{})
	}
	match := make([]int, 0)
	for i := 0; i < view.Len(); i++ {
		if v, ok := col.Text(view.Index(i)); ok && v == id {
			match = append(match, i)
		}
	}

	dates, hasDates := view.Column(ColVisitDate)
	orders, hasOrders := view.Column(ColVisitOrder)
	if hasDates || hasOrders {
		sort.SliceStable(match, func(a, b int) bool {
			ia, ib := view.Index(match[a]), view.Index(match[b])
			if hasDates {
				ta, okA := dates.Time(ia)
				tb, okB := dates.Time(ib)
				if okA != okB {
					return okA
				}
				if okA && !ta.Equal(tb) {
					return ta.After(tb)
				}
			}
			if hasOrders {
				oa, _ := orders.Float(ia)
				ob, _ := orders.Float(ib)
				return oa > ob
			}
			return false
		})
	}
	return newSubView(view, match)
}

// ============================================================================
// FORMATTING UTILITIES
// ============================================================================

// FormatInt formats an integer with comma separators.
func FormatInt(n int) string {
	if n < 0 {
		// uint conversion keeps math.MinInt representable
		return "-" + formatUint(uint64(-(n + 1))+1)
	}
	return formatUint(uint64(n))
}

func formatUint(n uint64) string {
	if n < 1000 {
		return strconv.FormatUint(n, 10)
	}
	return fmt.Sprintf("%s,%03d", formatUint(n/1000), n%1000)
}

// FormatPercent renders a percentage with one decimal.
func FormatPercent(v float64) string {
	return decimal.NewFromFloat(v).RoundBank(1).StringFixed(1) + "%"
}

// FormatNumber renders a number in its shortest decimal form (24, 7.5).
func FormatNumber(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// RoundTo2 rounds to 2 decimal places.
func RoundTo2(v float64) float64 {
	return math.Round(v*100) / 100
}

// LabelForColumn returns a display label for a column key.
// "drug_category" → "Drug Category", "hba1c" → "HbA1c".
func LabelForColumn(column string) string {
	if label, ok := columnLabels[column]; ok {
		return label
	}
	parts := strings.Split(column, "_")
	for i, p := range parts {
		if p != "" {
			parts[i] = strings.ToUpper(p[:1]) + p[1:]
		}
	}
	return strings.Join(parts, " ")
}

var columnLabels = map[string]string{
	ColPatientID:    "Patient ID",
	ColBMI:          "BMI",
	ColHbA1c:        "HbA1c",
	ColLDL:          "LDL",
	ColSystolicBP:   "Systolic BP",
	ColDiastolicBP:  "Diastolic BP",
	ColAdherence:    "Adherence %",
	ColTurnaround:   "Turnaround (hrs)",
	ColAdverseEvent: "Adverse Event",
}
