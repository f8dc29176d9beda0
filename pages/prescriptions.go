package pages

import (
	"fmt"

	"github.com/spektr-org/meditrack/engine"
)

// Prescription page limits.
const (
	TopDrugCategories = 10
	TopDoctors        = 15
)

// Prescriptions renders prescribing patterns: top drug categories, generic
// share, doctor × drug heatmap, adherence trend and refills.
func Prescriptions(ds *engine.Dataset, p Params, s Settings) *Report {
	filters := engine.Filters{
		Equals: map[string]string{
			engine.ColDoctor:       p.Doctor,
			engine.ColDrugCategory: p.DrugCategory,
		},
	}
	report, view := newReport(PagePrescriptions, "Prescription Insights", ds, filters)
	report.Options = map[string][]string{
		engine.ColDoctor:       withAll(engine.UniqueValues(ds, engine.ColDoctor)),
		engine.ColDrugCategory: withAll(engine.UniqueValues(ds, engine.ColDrugCategory)),
	}

	report.Panels = append(report.Panels,
		topDrugsPanel(view),
		genericPanel(view),
		doctorDrugPanel(view),
		trendPanel(view, "adherence_trend", "Adherence % trend over time", engine.ColAdherence, s),
		refillsPanel(view),
	)
	return report
}

func topDrugsPanel(view engine.RecordView) Panel {
	const title = "Top Prescribed Drugs"
	if !hasColumns(view, engine.ColDrugCategory) {
		return infoPanel("top_drugs", title, "No drug_category column present.")
	}
	counts := engine.CategoricalCounts(view, engine.ColDrugCategory, TopDrugCategories)
	panel := chartPanel("top_drugs", title, engine.CountsChart(counts, title, engine.ChartBar), counts,
		"No prescriptions in the filtered dataset.")
	panel.Note = fmt.Sprintf("Showing top %d categories based on current filters.", len(counts.Entries))
	return panel
}

func genericPanel(view engine.RecordView) Panel {
	const title = "Branded vs Generic"
	if !hasColumns(view, engine.ColGeneric) {
		return infoPanel("generic", title, "generic column not present.")
	}
	rates := engine.RateBreakdown(view, engine.GenericClassifier())
	return chartPanel("generic", title, engine.RatesChart(rates, title, engine.ChartDonut), rates,
		"No generic flags in the filtered dataset.")
}

func doctorDrugPanel(view engine.RecordView) Panel {
	const title = "Doctor vs Prescription Volume"
	if !hasColumns(view, engine.ColDoctor, engine.ColDrugCategory) {
		return infoPanel("doctor_drug", title, "prescribing_doctor or drug_category missing.")
	}
	m := engine.CrosstabTopRows(view, engine.ColDoctor, engine.ColDrugCategory, TopDoctors)
	return chartPanel("doctor_drug", title, engine.HeatmapChart(m, title), m,
		"No prescriptions in the filtered dataset.")
}

// trendPanel is shared by every page that plots a mean over time.
func trendPanel(view engine.RecordView, key, title, column string, s Settings) Panel {
	if !hasColumns(view, column) {
		return infoPanel(key, title, column+" not present.")
	}
	tr := engine.TimeTrend(view, column, s.trendOptions())
	if tr.Reason == engine.ReasonNoTimeAxis {
		return infoPanel(key, title, "No date/order info to draw trend.")
	}
	panel := chartPanel(key, title, engine.TrendChart(tr, title), tr, "No values to draw trend.")
	switch tr.Axis {
	case engine.AxisVisitDate:
		panel.Note = "Monthly means by visit date."
		if !s.MonthlyBucket {
			panel.Note = "Means by visit date."
		}
	case engine.AxisVisitOrder:
		panel.Note = "Means by visit order; no visit dates available."
	}
	return panel
}

func refillsPanel(view engine.RecordView) Panel {
	const title = "Refills Completed vs Missed"
	if !hasColumns(view, engine.ColRefills) {
		return infoPanel("refills", title, "refills column not present to compute refill metrics.")
	}
	r := engine.RefillSummary(view)
	return chartPanel("refills", title, engine.RefillsChart(r, title), r,
		"No refill records in the filtered dataset.")
}
