package pages

import (
	"errors"
	"fmt"

	"github.com/spektr-org/meditrack/config"
	"github.com/spektr-org/meditrack/engine"
)

// ============================================================================
// PAGES — per-page reports of the dashboard
// ============================================================================
// A page applies its own filters to the loaded Dataset, runs the
// aggregations its panels show and returns render-ready output. A panel
// whose columns are absent carries an informational message instead of a
// chart. Filter option lists and age bounds are always computed over the
// whole Dataset, never the filtered view.
// ============================================================================

// Page names.
const (
	PageHome          = "home"
	PageDashboard     = "dashboard"
	PagePrescriptions = "prescriptions"
	PageLab           = "lab"
)

// Names lists every page in navigation order.
var Names = []string{PageHome, PageDashboard, PagePrescriptions, PageLab}

// ErrUnknownPage is returned by Build for a name outside Names.
var ErrUnknownPage = errors.New("unknown page")

// Settings are the knobs a page reads besides the request's own filters.
type Settings struct {
	TopN             int
	TurnaroundTarget float64
	TrendLimit       int
	MonthlyBucket    bool
	SystolicLimit    float64
	DiastolicLimit   float64
	HbA1cThreshold   float64
	LDLThreshold     float64
}

// DefaultSettings mirrors the dashboard defaults.
func DefaultSettings() Settings {
	return Settings{
		TopN:             10,
		TurnaroundTarget: 24,
		TrendLimit:       engine.DefaultTrendLimit,
		MonthlyBucket:    true,
		SystolicLimit:    140,
		DiastolicLimit:   90,
		HbA1cThreshold:   7,
		LDLThreshold:     130,
	}
}

// SettingsFrom reads page settings from the dashboard section of a config.
func SettingsFrom(d config.DashboardConfig) Settings {
	s := DefaultSettings()
	if d.TopN > 0 {
		s.TopN = d.TopN
	}
	if d.TurnaroundTarget > 0 {
		s.TurnaroundTarget = d.TurnaroundTarget
	}
	if d.TrendLimit > 0 {
		s.TrendLimit = d.TrendLimit
	}
	s.MonthlyBucket = d.Monthly()
	if d.SystolicLimit > 0 {
		s.SystolicLimit = d.SystolicLimit
	}
	if d.DiastolicLimit > 0 {
		s.DiastolicLimit = d.DiastolicLimit
	}
	if d.HbA1cThreshold > 0 {
		s.HbA1cThreshold = d.HbA1cThreshold
	}
	if d.LDLThreshold > 0 {
		s.LDLThreshold = d.LDLThreshold
	}
	return s
}

// EngineOptions converts settings to executor options.
func (s Settings) EngineOptions() []engine.Option {
	return []engine.Option{
		engine.WithTopN(s.TopN),
		engine.WithTrendLimit(s.TrendLimit),
		engine.WithMonthlyBucket(s.MonthlyBucket),
		engine.WithRateThresholds(s.SystolicLimit, s.DiastolicLimit, s.HbA1cThreshold, s.LDLThreshold),
	}
}

func (s Settings) trendOptions() engine.TrendOptions {
	return engine.TrendOptions{MonthlyBucket: s.MonthlyBucket, Limit: s.TrendLimit}
}

// Params are the interactive selections of a page. Fields a page does not
// use are ignored.
type Params struct {
	// Home
	PatientID string `json:"patientId,omitempty"`

	// Dashboard
	Cities   []string      `json:"cities,omitempty"`
	States   []string      `json:"states,omitempty"`
	Genders  []string      `json:"genders,omitempty"`
	AgeRange *engine.Range `json:"ageRange,omitempty"` // nil = no age constraint
	TopN     int           `json:"topN,omitempty"`     // 0 = Settings.TopN

	// Prescriptions ("" or "All" = any)
	Doctor       string `json:"doctor,omitempty"`
	DrugCategory string `json:"drugCategory,omitempty"`

	// Lab
	Conditions       []string `json:"conditions,omitempty"`
	Tests            []string `json:"tests,omitempty"`
	TurnaroundTarget float64  `json:"turnaroundTarget,omitempty"` // 0 = Settings.TurnaroundTarget
}

// Report is the render-ready content of one page.
type Report struct {
	Page      string              `json:"page"`
	Title     string              `json:"title"`
	LoadID    string              `json:"loadId,omitempty"`
	Records   int                 `json:"records"` // visits left after filters
	Filters   engine.Filters      `json:"filters"`
	Options   map[string][]string `json:"options,omitempty"`
	AgeBounds *engine.Range       `json:"ageBounds,omitempty"`
	KPIs      *engine.KPISet      `json:"kpis,omitempty"`
	Panels    []Panel             `json:"panels"`
}

// Panel is one chart slot of a page.
type Panel struct {
	Key   string              `json:"key"`
	Title string              `json:"title"`
	Chart *engine.ChartConfig `json:"chart,omitempty"`
	Table *engine.TableData   `json:"table,omitempty"`
	Value string              `json:"value,omitempty"` // single-figure panels
	Info  string              `json:"info,omitempty"`  // shown instead of a chart
	Note  string              `json:"note,omitempty"`
	Data  interface{}         `json:"data,omitempty"`
}

// Panel returns the panel with the given key.
func (r *Report) Panel(key string) (Panel, bool) {
	for _, p := range r.Panels {
		if p.Key == key {
			return p, true
		}
	}
	return Panel{}, false
}

// Build renders the named page.
func Build(name string, ds *engine.Dataset, p Params, s Settings) (*Report, error) {
	switch name {
	case PageHome:
		return Home(ds, p, s), nil
	case PageDashboard:
		return Dashboard(ds, p, s), nil
	case PagePrescriptions:
		return Prescriptions(ds, p, s), nil
	case PageLab:
		return Lab(ds, p, s), nil
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownPage, name)
}

// ============================================================================
// HELPERS
// ============================================================================

func newReport(page, title string, ds *engine.Dataset, filters engine.Filters) (*Report, engine.RecordView) {
	view := engine.ApplyFilters(ds, filters)
	return &Report{
		Page:    page,
		Title:   title,
		LoadID:  ds.LoadID,
		Records: view.Len(),
		Filters: filters,
		Panels:  []Panel{},
	}, view
}

func hasColumns(view engine.RecordView, columns ...string) bool {
	for _, c := range columns {
		if _, ok := view.Column(c); !ok {
			return false
		}
	}
	return true
}

// chartPanel wraps a chart; a nil chart becomes the empty message.
func chartPanel(key, title string, chart *engine.ChartConfig, data interface{}, empty string) Panel {
	p := Panel{Key: key, Title: title, Chart: chart, Data: data}
	if chart == nil {
		p.Info = empty
	}
	return p
}

func infoPanel(key, title, info string) Panel {
	return Panel{Key: key, Title: title, Info: info}
}

func topN(p Params, s Settings) int {
	if p.TopN > 0 {
		return p.TopN
	}
	return s.TopN
}

func options(ds *engine.Dataset, columns ...string) map[string][]string {
	opts := make(map[string][]string, len(columns))
	for _, c := range columns {
		opts[c] = engine.UniqueValues(ds, c)
	}
	return opts
}

// withAll prepends the "All" choice of a single-select filter.
func withAll(values []string) []string {
	return append([]string{engine.AllValue}, values...)
}
