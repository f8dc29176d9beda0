package pages

import (
	"fmt"
	"strings"

	"github.com/spektr-org/meditrack/engine"
)

// Lab page limits.
const (
	TopConditions = 8
	TopTests      = 20
)

// Lab renders lab results and chronic disease burden.
func Lab(ds *engine.Dataset, p Params, s Settings) *Report {
	filters := engine.Filters{
		Sets: map[string][]string{
			engine.ColCondition: p.Conditions,
			engine.ColTestName:  p.Tests,
		},
	}
	report, view := newReport(PageLab, "Lab Insights & Chronic Disease Burden", ds, filters)
	report.Options = options(ds, engine.ColCondition, engine.ColTestName)

	target := s.TurnaroundTarget
	if p.TurnaroundTarget > 0 {
		target = p.TurnaroundTarget
	}

	report.Panels = append(report.Panels,
		conditionsPanel(view),
		diabeticTrendPanel(view, s),
		bpControlPanel(view, s),
		turnaroundPanel(view, target),
		thresholdPanel(view, "hba1c_above", engine.ColHbA1c, s.HbA1cThreshold),
		thresholdPanel(view, "ldl_above", engine.ColLDL, s.LDLThreshold),
		testsParetoPanel(view),
	)
	return report
}

func conditionsPanel(view engine.RecordView) Panel {
	const title = "Top Chronic Conditions"
	if !hasColumns(view, engine.ColCondition) {
		return infoPanel("conditions", title, "condition_primary column missing.")
	}
	counts := engine.CategoricalCounts(view, engine.ColCondition, TopConditions)
	return chartPanel("conditions", title, engine.CountsChart(counts, title, engine.ChartBar), counts,
		"No conditions in the filtered dataset.")
}

// Diabetics returns the visits whose primary condition mentions "diab",
// case-insensitive.
func Diabetics(view engine.RecordView) engine.RecordView {
	cond, ok := view.Column(engine.ColCondition)
	if !ok {
		return engine.Where(view, func(int) bool { return false })
	}
	return engine.Where(view, func(row int) bool {
		v, ok := cond.Text(row)
		return ok && strings.Contains(strings.ToLower(v), "diab")
	})
}

func diabeticTrendPanel(view engine.RecordView, s Settings) Panel {
	const key, title = "hba1c_trend", "Average HbA1c trend (diabetics)"
	if !hasColumns(view, engine.ColHbA1c, engine.ColCondition) {
		return infoPanel(key, title, "hba1c or condition_primary missing.")
	}
	diabetics := Diabetics(view)
	if diabetics.Len() == 0 {
		return infoPanel(key, title, "No diabetic patients found in filtered data.")
	}
	return trendPanel(diabetics, key, title, engine.ColHbA1c, s)
}

func bpControlPanel(view engine.RecordView, s Settings) Panel {
	const title = "Hypertension Control Rate (%)"
	if !hasColumns(view, engine.ColSystolicBP, engine.ColDiastolicBP) {
		return infoPanel("bp_control", title, "systolic_bp or diastolic_bp missing.")
	}
	rates := engine.RateBreakdown(view, engine.BloodPressureControl(s.SystolicLimit, s.DiastolicLimit))
	return chartPanel("bp_control", title, engine.RatesChart(rates, title, engine.ChartDonut), rates,
		"No blood pressure readings in the filtered dataset.")
}

func turnaroundPanel(view engine.RecordView, target float64) Panel {
	const title = "Lab Turnaround Time"
	if !hasColumns(view, engine.ColTurnaround) {
		return infoPanel("turnaround", title, "turnaround_hours column missing.")
	}
	mean := engine.MeanOf(view, engine.ColTurnaround)
	return Panel{
		Key:   "turnaround",
		Title: title,
		Chart: engine.GaugeChart(mean, target, "Average turnaround hours"),
		Value: mean.Display,
		Note:  fmt.Sprintf("Target %s hours.", engine.FormatNumber(target)),
		Data:  mean,
	}
}

// thresholdPanel shows the share of visits above a marker threshold.
func thresholdPanel(view engine.RecordView, key, column string, threshold float64) Panel {
	title := fmt.Sprintf("%s > %s (%%)", engine.LabelForColumn(column), engine.FormatNumber(threshold))
	if !hasColumns(view, column) {
		return infoPanel(key, title, column+" column missing.")
	}
	rates := engine.RateBreakdown(view, engine.ThresholdClassifier(column, threshold))
	value := engine.NotAvailable
	if rates.Reason == "" {
		value = engine.FormatPercent(rates.Percent(engine.StatusAbove))
	}
	return Panel{Key: key, Title: title, Value: value, Data: rates}
}

func testsParetoPanel(view engine.RecordView) Panel {
	const title = "Most Frequently Ordered Tests"
	if !hasColumns(view, engine.ColTestName) {
		return infoPanel("tests_pareto", title, "test_name column missing.")
	}
	p := engine.ParetoBreakdown(view, engine.ColTestName, TopTests)
	return chartPanel("tests_pareto", title, engine.ParetoChart(p, title), p,
		"No lab tests in the filtered dataset.")
}
