package pages

import (
	"strings"

	"github.com/spektr-org/meditrack/engine"
	"github.com/spektr-org/meditrack/schema"
)

var genderLabels = map[string]string{
	"Male":   "♂ Male",
	"Female": "♀ Female",
}

// Dashboard renders the demographic overview: state × city heatmap, gender
// split, age groups and adverse events by drug category.
func Dashboard(ds *engine.Dataset, p Params, s Settings) *Report {
	filters := engine.Filters{
		Sets: map[string][]string{
			engine.ColCity:   p.Cities,
			engine.ColState:  p.States,
			engine.ColGender: p.Genders,
		},
	}
	if p.AgeRange != nil {
		filters.Ranges = map[string]engine.Range{engine.ColAge: *p.AgeRange}
	}

	report, view := newReport(PageDashboard, "Interactive Dashboard", ds, filters)
	report.Options = options(ds, engine.ColCity, engine.ColState, engine.ColGender)
	if lo, hi, ok := engine.NumericBounds(ds, engine.ColAge); ok {
		report.AgeBounds = &engine.Range{Min: lo, Max: hi}
	}

	report.Panels = append(report.Panels,
		stateCityPanel(view),
		genderPanel(view),
		ageGroupPanel(view),
		adverseEventsPanel(view, topN(p, s)),
	)
	return report
}

func stateCityPanel(view engine.RecordView) Panel {
	const title = "Patient Distribution"
	if !hasColumns(view, engine.ColState, engine.ColCity) {
		return infoPanel("state_city", title, "State or City columns not present to draw heatmap.")
	}
	m := engine.Crosstab(view, engine.ColState, engine.ColCity)
	return chartPanel("state_city", title, engine.HeatmapChart(m, title), m, "No patients in the filtered dataset.")
}

func genderPanel(view engine.RecordView) Panel {
	const title = "Gender Split"
	if !hasColumns(view, engine.ColGender) {
		return infoPanel("gender", title, "Gender column missing.")
	}
	counts := engine.CategoricalCounts(view, engine.ColGender, 0)
	labelled := counts
	labelled.Entries = make([]engine.CountEntry, len(counts.Entries))
	for i, e := range counts.Entries {
		if l, ok := genderLabels[e.Value]; ok {
			e.Value = l
		}
		labelled.Entries[i] = e
	}
	chart := engine.CountsChart(labelled, title, engine.ChartDonut)
	if chart != nil {
		chart.Hole = 0.45
	}
	return chartPanel("gender", title, chart, counts, "No gender values in the filtered dataset.")
}

func ageGroupPanel(view engine.RecordView) Panel {
	const title = "Age Groups"
	if !hasColumns(view, engine.ColAge) {
		return infoPanel("age_group", title, "Age column missing to calculate age groups.")
	}
	counts := engine.OrderedCounts(view, engine.ColAgeGroup, schema.AgeGroupLabels)
	chart := engine.CountsChart(engine.Counts{Column: counts.Column, Entries: counts.Entries}, title, engine.ChartBar)
	if chart != nil {
		chart.YAxis = "Patients"
	}
	return chartPanel("age_group", title, chart, counts, "")
}

// AdverseEvents returns the visits whose adverse event flag is present and
// not "no".
func AdverseEvents(view engine.RecordView) engine.RecordView {
	flags, ok := view.Column(engine.ColAdverseEvent)
	if !ok {
		return engine.Where(view, func(int) bool { return false })
	}
	return engine.Where(view, func(row int) bool {
		v, ok := flags.Text(row)
		return ok && strings.ToLower(v) != "no"
	})
}

func adverseEventsPanel(view engine.RecordView, n int) Panel {
	const title = "Adverse Events by Drug Category"
	if !hasColumns(view, engine.ColDrugCategory, engine.ColAdverseEvent) {
		return infoPanel("adverse_events", title, "drug_category or adverse_event_reported column missing.")
	}
	events := AdverseEvents(view)
	if events.Len() == 0 {
		return infoPanel("adverse_events", title, "No adverse events flagged in the filtered dataset.")
	}
	counts := engine.CategoricalCounts(events, engine.ColDrugCategory, n)
	return chartPanel("adverse_events", title, engine.CountsChart(counts, title, engine.ChartBar), counts,
		"No adverse events flagged in the filtered dataset.")
}
