package schema

import (
	"encoding/csv"
	"encoding/json"
	"strings"
	"testing"

	"github.com/spektr-org/meditrack/engine"
)

// ============================================================================
// DISCOVERY TESTS
// ============================================================================

// Sample patient visit export
var visitsCSV = `visit_id,patient_id,visit_date,age,gender,state,city,hba1c,drug_category
V001,P001,2024-01-05,34,M,Maharashtra,Pune,6.2,Statin
V002,P002,2024-01-09,67,F,Maharashtra,Pune,7.8,Biguanide
V003,P003,2024-01-12,45,F,Maharashtra,Mumbai,,Statin
V004,P001,2024-02-02,34,M,Delhi,Delhi,6.0,ACE Inhibitor
V005,P004,2024-02-14,29,M,Uttar Pradesh,Agra,5.6,Statin
V006,P005,2024-02-20,71,F,Uttar Pradesh,Lucknow,8.4,Biguanide
V007,P006,2024-03-01,52,M,Maharashtra,Mumbai,6.9,Statin
V008,P007,2024-03-03,15,F,Delhi,Delhi,,ACE Inhibitor
V009,P002,2024-03-18,67,F,Maharashtra,Pune,7.1,Biguanide
V010,P008,2024-03-22,38,M,Uttar Pradesh,Agra,5.9,Statin
V011,P009,2024-04-02,61,F,Uttar Pradesh,Lucknow,7.5,Biguanide
V012,P010,2024-04-10,44,M,Delhi,Delhi,6.4,Statin
`

func parseCSV(t *testing.T, data string) RawTable {
	t.Helper()
	records, err := csv.NewReader(strings.NewReader(data)).ReadAll()
	if err != nil {
		t.Fatalf("bad fixture: %v", err)
	}
	return RawTable{Headers: records[0], Rows: records[1:]}
}

func TestDiscoverVisits(t *testing.T) {
	ds := Normalize(parseCSV(t, visitsCSV))
	ds.Source = "visits.csv"
	config := Discover(ds)

	if config.Rows != 12 || config.Source != "visits.csv" {
		t.Fatalf("Unexpected profile header: %+v", config)
	}

	dimKeys := config.KeysByRole(RoleDimension)
	assertContains(t, dimKeys, "gender", "Gender should be a dimension")
	assertContains(t, dimKeys, "state", "State should be a dimension")
	assertContains(t, dimKeys, "city", "City should be a dimension")
	assertContains(t, dimKeys, "drug_category", "Drug category should be a dimension")
	assertContains(t, dimKeys, "age_group", "Age group should be a dimension")

	measKeys := config.KeysByRole(RoleMeasure)
	assertContains(t, measKeys, "age", "Age should be a measure")
	assertContains(t, measKeys, "hba1c", "HbA1c should be a measure")

	assertContains(t, config.KeysByRole(RoleIdentifier), "visit_id", "Visit ID is unique per row")
	assertContains(t, config.KeysByRole(RoleTemporal), "visit_date", "Visit date should be temporal")

	hba1c, _ := config.Lookup("hba1c")
	if hba1c.NullCount != 2 || hba1c.DisplayName != "HbA1c" {
		t.Errorf("Unexpected hba1c meta: %+v", hba1c)
	}

	ageGroup, _ := config.Lookup(engine.ColAgeGroup)
	if !ageGroup.Derived || ageGroup.DerivedFrom != engine.ColAge {
		t.Errorf("age_group should be derived from age: %+v", ageGroup)
	}

	if config.TimeAxis.Column != engine.ColVisitDate || config.TimeAxis.Parsed != 12 || config.TimeAxis.Fallback {
		t.Errorf("Unexpected time axis: %+v", config.TimeAxis)
	}

	if _, err := json.Marshal(config); err != nil {
		t.Errorf("profile should marshal: %v", err)
	}
}

func TestDiscoverHierarchy(t *testing.T) {
	config := Discover(Normalize(parseCSV(t, visitsCSV)))

	city, _ := config.Lookup("city")
	if city.Parent != "state" {
		t.Errorf("City should have parent 'state', got '%s'", city.Parent)
	}
	gender, _ := config.Lookup("gender")
	if gender.Parent != "" {
		t.Errorf("Gender should have no parent, got '%s'", gender.Parent)
	}
}

func TestDiscoverVisitOrderFallback(t *testing.T) {
	raw := RawTable{
		Headers: []string{"patient_id", "hba1c"},
		Rows:    [][]string{{"P1", "6.1"}, {"P2", "7.2"}},
	}
	config := Discover(Normalize(raw))

	if config.TimeAxis.Column != engine.ColVisitOrder || !config.TimeAxis.Fallback {
		t.Errorf("Expected visit_order fallback, got %+v", config.TimeAxis)
	}
	order, ok := config.Lookup(engine.ColVisitOrder)
	if !ok || !order.Derived {
		t.Errorf("visit_order should be marked derived: %+v", order)
	}
	if !strings.Contains(config.Summary(), "time axis visit_order") {
		t.Errorf("Unexpected summary: %s", config.Summary())
	}
}

func TestDiscoverEmptyColumn(t *testing.T) {
	raw := RawTable{
		Headers: []string{"notes", "age"},
		Rows:    [][]string{{"", "40"}, {"NA", "50"}},
	}
	config := Discover(Normalize(raw))
	notes, _ := config.Lookup("notes")
	if notes.Role != RoleEmpty || notes.NullCount != 2 {
		t.Errorf("notes should be empty: %+v", notes)
	}
}

func TestDiscoverSampleSize(t *testing.T) {
	ds := Normalize(parseCSV(t, visitsCSV))
	config := Discover(ds, DiscoverOptions{SampleSize: 3, Name: "Sample"})

	if config.Name != "Sample" {
		t.Errorf("Expected name override, got %q", config.Name)
	}
	state, _ := config.Lookup("state")
	if state.UniqueCount != 1 {
		t.Errorf("Expected 1 state in first 3 rows, got %d", state.UniqueCount)
	}
}

func TestDetectType(t *testing.T) {
	tests := []struct {
		values   []string
		expected string
	}{
		{[]string{"true", "no", "yes"}, typeBool},
		{[]string{"2024-01-01", "2024-02-11", "03/04/2024"}, typeDate},
		{[]string{"1", "2", "x", "3", "4"}, typeNumeric},
		{[]string{"Pune", "Delhi", "3"}, typeString},
	}

	for _, tt := range tests {
		got := detectType(tt.values)
		if got != tt.expected {
			t.Errorf("detectType(%v) = %q, want %q", tt.values, got, tt.expected)
		}
	}
}

func TestDisplayName(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"drug_category", "Drug Category"},
		{"hba1c", "HbA1c"},
		{"Visit Date", "Visit Date"},
		{"turnaround_hours", "Turnaround (hrs)"},
	}

	for _, tt := range tests {
		got := toDisplayName(tt.input)
		if got != tt.expected {
			t.Errorf("toDisplayName(%q) = %q, want %q", tt.input, got, tt.expected)
		}
	}
}

// ============================================================================
// HELPERS
// ============================================================================

func assertContains(t *testing.T, slice []string, item string, msg string) {
	t.Helper()
	for _, s := range slice {
		if s == item {
			return
		}
	}
	t.Errorf("%s: %q not found in %v", msg, item, slice)
}
