package engine

import "time"

// ============================================================================
// MEDITRACK ENGINE TYPES
// ============================================================================
// Filters select visits, aggregations reduce a view to typed results, and
// builders turn those results into render-ready chart / table / text output.
// ============================================================================

// Well-known visit columns.
const (
	ColPatientID    = "patient_id"
	ColAge          = "age"
	ColAgeGroup     = "age_group"
	ColGender       = "gender"
	ColCity         = "city"
	ColState        = "state"
	ColBMI          = "bmi"
	ColSystolicBP   = "systolic_bp"
	ColDiastolicBP  = "diastolic_bp"
	ColHbA1c        = "hba1c"
	ColLDL          = "ldl"
	ColAdherence    = "adherence_percent"
	ColTurnaround   = "turnaround_hours"
	ColDoctor       = "prescribing_doctor"
	ColDrugCategory = "drug_category"
	ColGeneric      = "generic"
	ColRefills      = "refills"
	ColAdverseEvent = "adverse_event_reported"
	ColCondition    = "condition_primary"
	ColTestName     = "test_name"
	ColVisitDate    = "visit_date"
	ColVisitOrder   = "visit_order"
)

// Reason codes attached to results that could not be computed from the view.
const (
	ReasonMissingColumn = "missing_column"
	ReasonNoData        = "no_data"
	ReasonNoTimeAxis    = "no_time_axis"
)

// NotAvailable is the display value of a metric that has no data.
const NotAvailable = "N/A"

// ============================================================================
// FILTERS
// ============================================================================

// Range is a closed numeric interval; both bounds are inclusive.
type Range struct {
	Min float64 `json:"min"`
	Max float64 `json:"max"`
}

// Contains reports whether v lies within the range.
func (r Range) Contains(v float64) bool {
	return v >= r.Min && v <= r.Max
}

// AllValue is the scalar selection that places no constraint on a column.
const AllValue = "All"

// Filters define which visits to include.
// Sets: OR within a column. Ranges: inclusive bounds. Equals: exact match,
// "" or "All" = unconstrained. AND across every active constraint.
type Filters struct {
	Sets   map[string][]string `json:"sets,omitempty"`
	Ranges map[string]Range    `json:"ranges,omitempty"`
	Equals map[string]string   `json:"equals,omitempty"`
}

// HasFilter returns true if any constraint is active on column.
func (f Filters) HasFilter(column string) bool {
	if len(f.Sets[column]) > 0 {
		return true
	}
	if _, ok := f.Ranges[column]; ok {
		return true
	}
	v := f.Equals[column]
	return v != "" && v != AllValue
}

// IsEmpty returns true if no constraint is active.
func (f Filters) IsEmpty() bool {
	for _, vals := range f.Sets {
		if len(vals) > 0 {
			return false
		}
	}
	if len(f.Ranges) > 0 {
		return false
	}
	for _, v := range f.Equals {
		if v != "" && v != AllValue {
			return false
		}
	}
	return true
}

// ============================================================================
// QUERYSPEC — declarative aggregation request
// ============================================================================

// Aggregation names understood by Execute.
const (
	AggKPIs     = "kpis"
	AggCounts   = "counts"
	AggCrosstab = "crosstab"
	AggRate     = "rate"
	AggTrend    = "trend"
	AggPareto   = "pareto"
	AggRefills  = "refills"
)

// QuerySpec defines what Execute should compute.
type QuerySpec struct {
	Aggregation string  `json:"aggregation"`
	Filters     Filters `json:"filters"`
	Column      string  `json:"column,omitempty"`    // counts, pareto
	RowColumn   string  `json:"rowColumn,omitempty"` // crosstab
	ColColumn   string  `json:"colColumn,omitempty"` // crosstab
	ValueColumn string  `json:"valueColumn,omitempty"`
	Rate        string  `json:"rate,omitempty"` // bp_control, hba1c_above, ldl_above, generic
	Limit       int     `json:"limit,omitempty"` // top N; 0 = engine default
	Visualize   string  `json:"visualize,omitempty"`
	Title       string  `json:"title,omitempty"`
}

// Result is the executor's render-ready output.
type Result struct {
	Success     bool         `json:"success"`
	Type        string       `json:"type"` // "chart", "table", "text"
	Title       string       `json:"title"`
	Reply       string       `json:"reply,omitempty"`
	Reason      string       `json:"reason,omitempty"`
	Records     int          `json:"records"`
	ChartConfig *ChartConfig `json:"chartConfig,omitempty"`
	TableData   *TableData   `json:"tableData,omitempty"`
	Data        interface{}  `json:"data,omitempty"` // the typed aggregation result
}

// ============================================================================
// AGGREGATION RESULTS
// ============================================================================

// Metric is a rounded average that may be unavailable.
type Metric struct {
	Value     float64 `json:"value"`
	Available bool    `json:"available"`
	Display   string  `json:"display"`
}

// KPISet holds the headline numbers of a view.
type KPISet struct {
	TotalPatients int    `json:"totalPatients"`
	AvgAge        Metric `json:"avgAge"`
	AvgBMI        Metric `json:"avgBmi"`
	AvgAdherence  Metric `json:"avgAdherence"`
}

// CountEntry is one category and its frequency.
type CountEntry struct {
	Value string `json:"value"`
	Count int    `json:"count"`
}

// Counts is a frequency table of one column.
type Counts struct {
	Column  string       `json:"column"`
	Entries []CountEntry `json:"entries"`
	Total   int          `json:"total"` // non-null cells before truncation
	Reason  string       `json:"reason,omitempty"`
}

// Matrix is a crosstab of co-occurrence counts.
type Matrix struct {
	RowColumn string   `json:"rowColumn"`
	ColColumn string   `json:"colColumn"`
	Rows      []string `json:"rows"`
	Cols      []string `json:"cols"`
	Cells     [][]int  `json:"cells"` // Cells[row][col]
	Reason    string   `json:"reason,omitempty"`
}

// RateEntry is the share of one derived status.
type RateEntry struct {
	Status  string  `json:"status"`
	Count   int     `json:"count"`
	Percent float64 `json:"percent"`
}

// Rates is a percentage breakdown over defined statuses.
type Rates struct {
	Entries []RateEntry `json:"entries"`
	Total   int         `json:"total"`
	Reason  string      `json:"reason,omitempty"`
}

// Percent returns the share of status, 0 if absent.
func (r Rates) Percent(status string) float64 {
	for _, e := range r.Entries {
		if e.Status == status {
			return e.Percent
		}
	}
	return 0
}

// Time axes a trend can be indexed by.
const (
	AxisVisitDate  = "visit_date"
	AxisVisitOrder = "visit_order"
)

// TrendPoint is one bucket of a trend series.
type TrendPoint struct {
	Label string     `json:"label"`
	Time  *time.Time `json:"time,omitempty"`
	Order *int       `json:"order,omitempty"`
	Value float64    `json:"value"`
	Count int        `json:"count"`
}

// Trend is a time- or order-indexed series of means.
type Trend struct {
	ValueColumn string       `json:"valueColumn"`
	Axis        string       `json:"axis,omitempty"`
	Points      []TrendPoint `json:"points"`
	Reason      string       `json:"reason,omitempty"`
}

// ParetoEntry is one ranked category with its running share of the population.
type ParetoEntry struct {
	Value             string  `json:"value"`
	Count             int     `json:"count"`
	CumulativePercent float64 `json:"cumulativePercent"`
}

// Pareto is a frequency ranking with a cumulative-percentage curve.
type Pareto struct {
	Column  string        `json:"column"`
	Entries []ParetoEntry `json:"entries"`
	Total   int           `json:"total"` // untruncated population
	Reason  string        `json:"reason,omitempty"`
}

// Refills classifies patients by whether any refill was recorded.
type Refills struct {
	Completed int    `json:"completed"`
	Missed    int    `json:"missed"`
	Patients  int    `json:"patients"`
	Reason    string `json:"reason,omitempty"`
}

// ============================================================================
// CHART TYPES
// ============================================================================

// ChartConfig defines how to render a chart.
type ChartConfig struct {
	ChartType  string        `json:"chartType"` // bar, stacked_bar, pie, donut, line, heatmap, pareto, gauge
	Title      string        `json:"title"`
	XAxis      string        `json:"xAxis,omitempty"`
	YAxis      string        `json:"yAxis,omitempty"`
	Series     []ChartSeries `json:"series"`
	Colors     []string      `json:"colors,omitempty"`
	ShowLegend bool          `json:"showLegend"`
	ShowGrid   bool          `json:"showGrid"`
	Hole       float64       `json:"hole,omitempty"`
	Heatmap    *HeatmapData  `json:"heatmap,omitempty"`
	Gauge      *GaugeData    `json:"gauge,omitempty"`
}

// ChartSeries represents a data series in a chart.
type ChartSeries struct {
	Name  string       `json:"name"`
	Type  string       `json:"type,omitempty"`  // per-series override (pareto line)
	YAxis string       `json:"yAxis,omitempty"` // "y2" for a secondary axis
	Data  []ChartPoint `json:"data"`
	Color string       `json:"color,omitempty"`
}

// ChartPoint represents a single data point.
type ChartPoint struct {
	Label string  `json:"label"`
	Value float64 `json:"value"`
}

// HeatmapData carries a matrix for heatmap charts.
type HeatmapData struct {
	X      []string `json:"x"`
	Y      []string `json:"y"`
	Values [][]int  `json:"values"`
}

// GaugeData carries an indicator value against a target.
type GaugeData struct {
	Value     float64 `json:"value"`
	Target    float64 `json:"target"`
	AxisMax   float64 `json:"axisMax"`
	Available bool    `json:"available"`
}

// ============================================================================
// TABLE TYPES
// ============================================================================

// TableData defines how to render a table.
type TableData struct {
	Title   string        `json:"title"`
	Columns []TableColumn `json:"columns"`
	Rows    [][]string    `json:"rows"`
	Summary *Summary      `json:"summary,omitempty"`
}

// TableColumn defines a table column.
type TableColumn struct {
	Key   string `json:"key"`
	Label string `json:"label"`
	Type  string `json:"type"`  // "text", "number"
	Align string `json:"align"` // "left", "center", "right"
}

// Summary provides totals for a table.
type Summary struct {
	Label  string            `json:"label"`
	Values map[string]string `json:"values"`
}
