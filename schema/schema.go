package schema

import "github.com/spektr-org/meditrack/engine"

// ============================================================================
// SCHEMA — Raw input shape, normalization constants, dataset profile
// ============================================================================
// Loaders produce a RawTable (header + string cells). Normalize turns it into
// a typed engine.Dataset. Discover profiles a Dataset for display and for the
// filter widgets of a front-end.
// ============================================================================

// RawTable is tabular input before normalization. A row may be shorter than
// Headers; missing cells are null.
type RawTable struct {
	Headers []string
	Rows    [][]string
}

// NumericColumns are coerced to numbers during normalization. Any other
// column stays text unless it is the resolved date source.
var NumericColumns = []string{
	engine.ColAge,
	"height_cm",
	"weight_kg",
	engine.ColBMI,
	engine.ColSystolicBP,
	engine.ColDiastolicBP,
	"resting_heart_rate",
	engine.ColHbA1c,
	engine.ColLDL,
	"hdl",
	"triglycerides",
	"creatinine",
	"creatinine_mg_dl",
	"egfr",
	engine.ColTurnaround,
	"cost_usd",
	engine.ColAdherence,
}

// AgeGroupLabels are the age buckets in display order.
var AgeGroupLabels = []string{"0-18", "19-40", "41-60", ">60"}

// ageBinEdges are right-closed: [0,18], (18,40], (40,60], (60,200].
var ageBinEdges = []float64{0, 18, 40, 60, 200}

// nullTokens read as missing cells.
var nullTokens = map[string]bool{
	"":         true,
	"#N/A":     true,
	"#N/A N/A": true,
	"#NA":      true,
	"-1.#IND":  true,
	"-1.#QNAN": true,
	"-NaN":     true,
	"-nan":     true,
	"1.#IND":   true,
	"1.#QNAN":  true,
	"<NA>":     true,
	"N/A":      true,
	"NA":       true,
	"NULL":     true,
	"NaN":      true,
	"None":     true,
	"n/a":      true,
	"nan":      true,
	"null":     true,
}

// ============================================================================
// PROFILE
// ============================================================================

// Column roles assigned by Discover.
const (
	RoleDimension  = "dimension"
	RoleMeasure    = "measure"
	RoleTemporal   = "temporal"
	RoleIdentifier = "identifier"
	RoleEmpty      = "empty"
)

// Config describes the shape of a loaded dataset.
type Config struct {
	Name     string       `json:"name"`
	Source   string       `json:"source,omitempty"`
	LoadID   string       `json:"loadId,omitempty"`
	Rows     int          `json:"rows"`
	Columns  []ColumnMeta `json:"columns"`
	TimeAxis TimeAxis     `json:"timeAxis"`

	DiscoveredAt string `json:"discoveredAt,omitempty"`
}

// ColumnMeta describes one dataset column.
type ColumnMeta struct {
	Key             string   `json:"key"`
	DisplayName     string   `json:"displayName"`
	Kind            string   `json:"kind"`                   // text, number, time
	DetectedType    string   `json:"detectedType,omitempty"` // numeric, date, bool, string (text columns)
	Role            string   `json:"role"`
	NullCount       int      `json:"nullCount"`
	UniqueCount     int      `json:"uniqueCount"`
	SampleValues    []string `json:"sampleValues"`
	CardinalityHint string   `json:"cardinalityHint,omitempty"` // "low", "medium", "high"
	Parent          string   `json:"parent,omitempty"`          // parent dimension key for hierarchies
	Derived         bool     `json:"derived,omitempty"`
	DerivedFrom     string   `json:"derivedFrom,omitempty"`
}

// TimeAxis records how the trend axis was resolved.
type TimeAxis struct {
	Column   string `json:"column,omitempty"` // visit_date, visit_order, or "" when none
	Source   string `json:"source,omitempty"` // original column the dates were parsed from
	Parsed   int    `json:"parsed"`           // non-null visit_date cells
	Fallback bool   `json:"fallback"`         // visit_order was assigned
}

// Keys returns all column keys.
func (c Config) Keys() []string {
	keys := make([]string, len(c.Columns))
	for i, col := range c.Columns {
		keys[i] = col.Key
	}
	return keys
}

// KeysByRole returns the keys of columns with the given role.
func (c Config) KeysByRole(role string) []string {
	var keys []string
	for _, col := range c.Columns {
		if col.Role == role {
			keys = append(keys, col.Key)
		}
	}
	return keys
}

// Lookup returns the metadata of a column.
func (c Config) Lookup(key string) (ColumnMeta, bool) {
	for _, col := range c.Columns {
		if col.Key == key {
			return col, true
		}
	}
	return ColumnMeta{}, false
}
