package pages

import (
	"encoding/json"
	"errors"
	"math"
	"reflect"
	"testing"

	"github.com/spektr-org/meditrack/config"
	"github.com/spektr-org/meditrack/engine"
	"github.com/spektr-org/meditrack/schema"
)

// ============================================================================
// FIXTURES
// ============================================================================

var visitHeaders = []string{
	"patient_id", "name", "age", "gender", "city", "state", "visit_date",
	"prescribing_doctor", "drug_category", "generic", "refills", "adherence_percent",
	"adverse_event_reported", "condition_primary", "test_name",
	"hba1c", "ldl", "systolic_bp", "diastolic_bp", "turnaround_hours",
}

var visitRows = [][]string{
	{"P1", "Asha", "34", "F", "Pune", "Maharashtra", "2024-01-05", "Dr. Rao", "Statin", "true", "1", "80", "No", "Type 2 Diabetes", "HbA1c", "7.5", "140", "130", "85", "20"},
	{"P2", "Ravi", "67", "M", "Delhi", "Delhi", "2024-01-20", "Dr. Iyer", "Biguanide", "false", "0", "60", "Yes", "Hypertension", "Lipid Panel", "6.0", "120", "150", "95", "30"},
	{"P1", "Asha", "34", "F", "Pune", "Maharashtra", "2024-02-10", "Dr. Rao", "Statin", "yes", "0", "90", "", "Type 2 Diabetes", "HbA1c", "6.5", "110", "120", "80", "18"},
	{"P3", "Meena", "15", "F", "Agra", "Uttar Pradesh", "2024-02-15", "Dr. Iyer", "Statin", "no", "2", "70", "Nausea", "Asthma", "CBC", "", "", "", "", ""},
	{"P4", "Arun", "45", "Male", "Pune", "Maharashtra", "2024-03-01", "Dr. Khan", "ACE Inhibitor", "true", "", "75", "no", "diabetes mellitus", "HbA1c", "8.0", "160", "135", "88", "26"},
	{"P5", "Kiran", "", "F", "Delhi", "Delhi", "", "Dr. Rao", "Statin", "true", "3", "85", "Rash", "Hypertension", "CBC", "5.5", "100", "145", "92", "22"},
}

func visits(t *testing.T) *engine.Dataset {
	t.Helper()
	ds := schema.Normalize(schema.RawTable{Headers: visitHeaders, Rows: visitRows})
	ds.LoadID = "test-load"
	return ds
}

func panel(t *testing.T, r *Report, key string) Panel {
	t.Helper()
	p, ok := r.Panel(key)
	if !ok {
		t.Fatalf("panel %q missing from %s", key, r.Page)
	}
	return p
}

func chartOf(t *testing.T, r *Report, key string) *engine.ChartConfig {
	t.Helper()
	p := panel(t, r, key)
	if p.Chart == nil {
		t.Fatalf("panel %q has no chart (info: %q)", key, p.Info)
	}
	return p.Chart
}

func labels(series engine.ChartSeries) []string {
	out := make([]string, len(series.Data))
	for i, d := range series.Data {
		out[i] = d.Label
	}
	return out
}

func values(series engine.ChartSeries) []float64 {
	out := make([]float64, len(series.Data))
	for i, d := range series.Data {
		out[i] = d.Value
	}
	return out
}

// ============================================================================
// HOME
// ============================================================================

func TestHomeKPIs(t *testing.T) {
	r := Home(visits(t), Params{}, DefaultSettings())

	if r.KPIs == nil || r.KPIs.TotalPatients != 5 {
		t.Fatalf("Expected 5 distinct patients, got %+v", r.KPIs)
	}
	if r.KPIs.AvgAge.Display != "39.0" {
		t.Errorf("Expected avg age 39.0, got %s", r.KPIs.AvgAge.Display)
	}
	if r.LoadID != "test-load" {
		t.Errorf("Expected load id on report, got %q", r.LoadID)
	}
	if len(r.Panels) != 1 {
		t.Errorf("Expected only the KPI panel without a lookup, got %d panels", len(r.Panels))
	}
}

func TestHomePatientLookup(t *testing.T) {
	r := Home(visits(t), Params{PatientID: " P1 "}, DefaultSettings())

	card := panel(t, r, "patient").Table
	if card == nil || len(card.Rows) != 1 {
		t.Fatalf("Expected one distinct patient card row, got %+v", card)
	}
	keys := make([]string, len(card.Columns))
	for i, c := range card.Columns {
		keys[i] = c.Key
	}
	want := []string{"patient_id", "name", "gender", "age", "city", "state", "condition_primary"}
	if !reflect.DeepEqual(keys, want) {
		t.Errorf("Card columns = %v, want %v", keys, want)
	}

	all := panel(t, r, "patient_visits").Table
	if len(all.Rows) != 2 {
		t.Fatalf("Expected 2 visits, got %d", len(all.Rows))
	}
	dateCol := -1
	for i, c := range all.Columns {
		if c.Key == engine.ColVisitDate {
			dateCol = i
		}
	}
	if dateCol < 0 || all.Rows[0][dateCol] != "2024-02-10" {
		t.Errorf("Expected newest visit first, got %v", all.Rows[0])
	}
}

func TestHomePatientNotFound(t *testing.T) {
	r := Home(visits(t), Params{PatientID: "P9"}, DefaultSettings())
	if info := panel(t, r, "patient").Info; info != "No patient found with that ID." {
		t.Errorf("Unexpected info: %q", info)
	}

	bare := schema.Normalize(schema.RawTable{Headers: []string{"age"}, Rows: [][]string{{"40"}}})
	r = Home(bare, Params{PatientID: "P1"}, DefaultSettings())
	if info := panel(t, r, "patient").Info; info != "patient_id column not found in dataset." {
		t.Errorf("Unexpected info: %q", info)
	}
}

// ============================================================================
// DASHBOARD
// ============================================================================

func TestDashboardPanels(t *testing.T) {
	ds := visits(t)
	r := Dashboard(ds, Params{}, DefaultSettings())

	if r.Records != 6 {
		t.Errorf("Expected all 6 visits without filters, got %d", r.Records)
	}
	if r.AgeBounds == nil || r.AgeBounds.Min != 15 || r.AgeBounds.Max != 67 {
		t.Errorf("Unexpected age bounds: %+v", r.AgeBounds)
	}
	if got := r.Options[engine.ColCity]; !reflect.DeepEqual(got, []string{"Agra", "Delhi", "Pune"}) {
		t.Errorf("Unexpected city options: %v", got)
	}

	heat := chartOf(t, r, "state_city")
	if heat.Heatmap == nil || !reflect.DeepEqual(heat.Heatmap.Y, []string{"Delhi", "Maharashtra", "Uttar Pradesh"}) {
		t.Errorf("Unexpected heatmap: %+v", heat.Heatmap)
	}

	gender := chartOf(t, r, "gender")
	if got := labels(gender.Series[0]); !reflect.DeepEqual(got, []string{"♀ Female", "♂ Male"}) {
		t.Errorf("Unexpected gender labels: %v", got)
	}
	if gender.Hole != 0.45 {
		t.Errorf("Expected donut hole 0.45, got %v", gender.Hole)
	}

	ages := chartOf(t, r, "age_group")
	if got := labels(ages.Series[0]); !reflect.DeepEqual(got, schema.AgeGroupLabels) {
		t.Errorf("Age groups should keep fixed order, got %v", got)
	}
	if got := values(ages.Series[0]); !reflect.DeepEqual(got, []float64{1, 2, 1, 1}) {
		t.Errorf("Unexpected age group counts: %v", got)
	}

	adverse := panel(t, r, "adverse_events").Data.(engine.Counts)
	want := []engine.CountEntry{{Value: "Statin", Count: 2}, {Value: "Biguanide", Count: 1}}
	if !reflect.DeepEqual(adverse.Entries, want) {
		t.Errorf("Adverse events = %+v, want %+v", adverse.Entries, want)
	}
}

func TestDashboardFilters(t *testing.T) {
	ds := visits(t)

	r := Dashboard(ds, Params{States: []string{"Maharashtra"}}, DefaultSettings())
	if r.Records != 3 {
		t.Errorf("Expected 3 Maharashtra visits, got %d", r.Records)
	}
	if got := r.Options[engine.ColState]; len(got) != 3 {
		t.Errorf("Options should come from the whole dataset, got %v", got)
	}

	r = Dashboard(ds, Params{AgeRange: &engine.Range{Min: 30, Max: 50}}, DefaultSettings())
	if r.Records != 3 {
		t.Errorf("Expected 3 visits aged 30-50 (null age excluded), got %d", r.Records)
	}

	r = Dashboard(ds, Params{Genders: []string{"Male"}, TopN: 5}, DefaultSettings())
	if r.Records != 2 {
		t.Errorf("Expected 2 male visits, got %d", r.Records)
	}
	adverse := panel(t, r, "adverse_events").Data.(engine.Counts)
	if len(adverse.Entries) != 1 || adverse.Entries[0].Value != "Biguanide" {
		t.Errorf("Unexpected adverse events for male visits: %+v", adverse.Entries)
	}

	r = Dashboard(ds, Params{Cities: []string{"Agra"}, Genders: []string{"Male"}}, DefaultSettings())
	if info := panel(t, r, "adverse_events").Info; info != "No adverse events flagged in the filtered dataset." {
		t.Errorf("Unexpected info: %q", info)
	}
}

// ============================================================================
// PRESCRIPTIONS
// ============================================================================

func TestPrescriptionsPanels(t *testing.T) {
	r := Prescriptions(visits(t), Params{}, DefaultSettings())

	top := panel(t, r, "top_drugs").Data.(engine.Counts)
	if got := []string{top.Entries[0].Value, top.Entries[1].Value, top.Entries[2].Value}; !reflect.DeepEqual(got, []string{"Statin", "Biguanide", "ACE Inhibitor"}) {
		t.Errorf("Unexpected top drugs: %v", got)
	}

	generic := panel(t, r, "generic").Data.(engine.Rates)
	if math.Abs(generic.Percent(engine.StatusGeneric)-66.666) > 0.01 {
		t.Errorf("Expected 66.7%% generic, got %v", generic.Percent(engine.StatusGeneric))
	}

	m := panel(t, r, "doctor_drug").Data.(engine.Matrix)
	if !reflect.DeepEqual(m.Rows, []string{"Dr. Rao", "Dr. Iyer", "Dr. Khan"}) {
		t.Errorf("Doctors should be ordered by volume, got %v", m.Rows)
	}

	tr := panel(t, r, "adherence_trend").Data.(engine.Trend)
	if tr.Axis != engine.AxisVisitDate || len(tr.Points) != 3 {
		t.Fatalf("Expected 3 monthly points, got %+v", tr)
	}
	if tr.Points[0].Value != 70 || tr.Points[1].Value != 80 || tr.Points[2].Value != 75 {
		t.Errorf("Unexpected adherence means: %+v", tr.Points)
	}

	refills := panel(t, r, "refills").Data.(engine.Refills)
	if refills.Completed != 3 || refills.Missed != 1 || refills.Patients != 4 {
		t.Errorf("Unexpected refills: %+v", refills)
	}

	if got := r.Options[engine.ColDoctor]; got[0] != engine.AllValue || len(got) != 4 {
		t.Errorf("Doctor options should start with All, got %v", got)
	}
}

func TestPrescriptionsFilters(t *testing.T) {
	ds := visits(t)

	r := Prescriptions(ds, Params{Doctor: "Dr. Rao"}, DefaultSettings())
	if r.Records != 3 {
		t.Errorf("Expected 3 visits for Dr. Rao, got %d", r.Records)
	}

	r = Prescriptions(ds, Params{Doctor: engine.AllValue, DrugCategory: "Statin"}, DefaultSettings())
	if r.Records != 4 {
		t.Errorf("Expected 4 statin visits, got %d", r.Records)
	}
}

// ============================================================================
// LAB
// ============================================================================

func TestLabPanels(t *testing.T) {
	r := Lab(visits(t), Params{}, DefaultSettings())

	tr := panel(t, r, "hba1c_trend").Data.(engine.Trend)
	if len(tr.Points) != 3 || tr.Points[0].Value != 7.5 || tr.Points[2].Value != 8 {
		t.Errorf("Unexpected diabetic HbA1c trend: %+v", tr.Points)
	}

	bp := panel(t, r, "bp_control").Data.(engine.Rates)
	if bp.Total != 5 || math.Abs(bp.Percent(engine.StatusControlled)-60) > 1e-9 {
		t.Errorf("Expected 60%% controlled over 5 readings, got %+v", bp)
	}

	gauge := chartOf(t, r, "turnaround").Gauge
	if gauge == nil || gauge.Value != 23.2 || gauge.Target != 24 || gauge.AxisMax != 48 {
		t.Errorf("Unexpected gauge: %+v", gauge)
	}

	hba1c := panel(t, r, "hba1c_above")
	if hba1c.Title != "HbA1c > 7 (%)" || hba1c.Value != "40.0%" {
		t.Errorf("Unexpected HbA1c marker: %q = %q", hba1c.Title, hba1c.Value)
	}
	if ldl := panel(t, r, "ldl_above"); ldl.Value != "40.0%" {
		t.Errorf("Unexpected LDL marker: %q", ldl.Value)
	}

	p := panel(t, r, "tests_pareto").Data.(engine.Pareto)
	if p.Entries[0].Value != "HbA1c" || p.Entries[1].Value != "CBC" {
		t.Errorf("Unexpected pareto order: %+v", p.Entries)
	}
	if last := p.Entries[len(p.Entries)-1].CumulativePercent; last != 100 {
		t.Errorf("Expected cumulative 100, got %v", last)
	}
}

func TestLabFiltersAndTarget(t *testing.T) {
	r := Lab(visits(t), Params{Conditions: []string{"Hypertension"}, TurnaroundTarget: 30}, DefaultSettings())

	if r.Records != 2 {
		t.Errorf("Expected 2 hypertension visits, got %d", r.Records)
	}
	if info := panel(t, r, "hba1c_trend").Info; info != "No diabetic patients found in filtered data." {
		t.Errorf("Unexpected info: %q", info)
	}
	gauge := chartOf(t, r, "turnaround").Gauge
	if gauge.Target != 30 || gauge.AxisMax != 60 {
		t.Errorf("Expected target 30 with axis 60, got %+v", gauge)
	}
}

// ============================================================================
// MISSING COLUMNS
// ============================================================================

func TestPanelsReportMissingColumns(t *testing.T) {
	ds := schema.Normalize(schema.RawTable{
		Headers: []string{"patient_id", "age"},
		Rows:    [][]string{{"P1", "30"}, {"P2", "70"}},
	})

	for _, name := range []string{PageDashboard, PagePrescriptions, PageLab} {
		r, err := Build(name, ds, Params{}, DefaultSettings())
		if err != nil {
			t.Fatalf("Build(%s): %v", name, err)
		}
		for _, p := range r.Panels {
			if p.Key == "age_group" {
				continue
			}
			if p.Info == "" || p.Chart != nil {
				t.Errorf("%s/%s: expected an info message instead of a chart, got %+v", name, p.Key, p)
			}
		}
		if _, err := json.Marshal(r); err != nil {
			t.Errorf("%s: report should marshal: %v", name, err)
		}
	}
}

func TestBuildUnknownPage(t *testing.T) {
	if _, err := Build("about", visits(t), Params{}, DefaultSettings()); !errors.Is(err, ErrUnknownPage) {
		t.Errorf("Expected ErrUnknownPage, got %v", err)
	}
}

func TestSettingsFrom(t *testing.T) {
	monthly := false
	s := SettingsFrom(config.DashboardConfig{TopN: 5, TurnaroundTarget: 12, MonthlyBucket: &monthly})
	if s.TopN != 5 || s.TurnaroundTarget != 12 || s.MonthlyBucket {
		t.Errorf("Unexpected settings: %+v", s)
	}
	if s.SystolicLimit != 140 || s.LDLThreshold != 130 || s.TrendLimit != engine.DefaultTrendLimit {
		t.Errorf("Expected defaults for unset knobs: %+v", s)
	}
}
