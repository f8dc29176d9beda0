package engine

import "math"

// ============================================================================
// CHART BUILDER — Produces ChartConfig from aggregation results
// ============================================================================
// Each builder returns nil when its result carries no data, so callers can
// fall back to an informational message instead of an empty chart.
// ============================================================================

// Default color palette for chart series.
var defaultColors = []string{
	"#4F46E5", "#10B981", "#F59E0B", "#EF4444", "#8B5CF6",
	"#06B6D4", "#EC4899", "#84CC16", "#F97316", "#6366F1",
}

// Chart types produced by the builders.
const (
	ChartBar     = "bar"
	ChartPie     = "pie"
	ChartDonut   = "donut"
	ChartLine    = "line"
	ChartHeatmap = "heatmap"
	ChartPareto  = "pareto"
	ChartGauge   = "gauge"
)

// BuildChart produces a ChartConfig for a typed aggregation result.
// chartType overrides the default type where the result allows it.
func BuildChart(title, chartType string, data interface{}) *ChartConfig {
	switch d := data.(type) {
	case Counts:
		return CountsChart(d, title, chartType)
	case Matrix:
		return HeatmapChart(d, title)
	case Rates:
		return RatesChart(d, title, chartType)
	case Trend:
		return TrendChart(d, title)
	case Pareto:
		return ParetoChart(d, title)
	case Refills:
		return RefillsChart(d, title)
	}
	return nil
}

// ============================================================================
// SERIES BUILDERS
// ============================================================================

// CountsChart renders value counts as a bar (default) or pie chart.
func CountsChart(counts Counts, title, chartType string) *ChartConfig {
	if counts.Reason != "" || len(counts.Entries) == 0 {
		return nil
	}
	if chartType == "" {
		chartType = ChartBar
	}
	points := make([]ChartPoint, 0, len(counts.Entries))
	for _, e := range counts.Entries {
		points = append(points, ChartPoint{Label: e.Value, Value: float64(e.Count)})
	}
	return newChart(chartType, title, LabelForColumn(counts.Column), "Count", []ChartSeries{{
		Name: LabelForColumn(counts.Column),
		Data: points,
	}}, len(points))
}

// RatesChart renders a status breakdown as a pie (default) or donut.
func RatesChart(rates Rates, title, chartType string) *ChartConfig {
	if rates.Reason != "" || rates.Total == 0 {
		return nil
	}
	if chartType == "" {
		chartType = ChartPie
	}
	points := make([]ChartPoint, 0, len(rates.Entries))
	for _, e := range rates.Entries {
		points = append(points, ChartPoint{Label: e.Status, Value: RoundTo2(e.Percent)})
	}
	cfg := newChart(chartType, title, "", "Percent", []ChartSeries{{Name: title, Data: points}}, len(points))
	if chartType == ChartDonut {
		cfg.Hole = 0.4
	}
	return cfg
}

// TrendChart renders a trend as a line over its axis.
func TrendChart(tr Trend, title string) *ChartConfig {
	if tr.Reason != "" || len(tr.Points) == 0 {
		return nil
	}
	points := make([]ChartPoint, 0, len(tr.Points))
	for _, p := range tr.Points {
		points = append(points, ChartPoint{Label: p.Label, Value: RoundTo2(p.Value)})
	}
	return newChart(ChartLine, title, LabelForColumn(tr.Axis), LabelForColumn(tr.ValueColumn), []ChartSeries{{
		Name: LabelForColumn(tr.ValueColumn),
		Data: points,
	}}, 1)
}

// HeatmapChart renders a crosstab matrix.
func HeatmapChart(m Matrix, title string) *ChartConfig {
	if m.Reason != "" || len(m.Rows) == 0 {
		return nil
	}
	cfg := newChart(ChartHeatmap, title, LabelForColumn(m.ColColumn), LabelForColumn(m.RowColumn), []ChartSeries{}, 0)
	cfg.ShowLegend = false
	cfg.Heatmap = &HeatmapData{X: m.Cols, Y: m.Rows, Values: m.Cells}
	return cfg
}

// ParetoChart renders counts as bars with the cumulative percentage as a
// line on a secondary axis.
func ParetoChart(p Pareto, title string) *ChartConfig {
	if p.Reason != "" || len(p.Entries) == 0 {
		return nil
	}
	bars := make([]ChartPoint, 0, len(p.Entries))
	line := make([]ChartPoint, 0, len(p.Entries))
	for _, e := range p.Entries {
		bars = append(bars, ChartPoint{Label: e.Value, Value: float64(e.Count)})
		line = append(line, ChartPoint{Label: e.Value, Value: RoundTo2(e.CumulativePercent)})
	}
	return newChart(ChartPareto, title, LabelForColumn(p.Column), "Count", []ChartSeries{
		{Name: "Count", Type: ChartBar, Data: bars, Color: defaultColors[0]},
		{Name: "Cumulative %", Type: ChartLine, YAxis: "y2", Data: line, Color: defaultColors[3]},
	}, 2)
}

// RefillsChart renders completed vs missed refills as bars.
func RefillsChart(r Refills, title string) *ChartConfig {
	if r.Reason != "" || r.Patients == 0 {
		return nil
	}
	return newChart(ChartBar, title, "Status", "Patients", []ChartSeries{{
		Name: "Patients",
		Data: []ChartPoint{
			{Label: "Completed", Value: float64(r.Completed)},
			{Label: "Missed", Value: float64(r.Missed)},
		},
	}}, 2)
}

// GaugeChart renders a mean against a target. The axis spans at least 48
// and at least twice the target.
func GaugeChart(value Metric, target float64, title string) *ChartConfig {
	cfg := newChart(ChartGauge, title, "", "", []ChartSeries{}, 0)
	cfg.ShowLegend = false
	cfg.ShowGrid = false
	cfg.Gauge = &GaugeData{
		Value:     value.Value,
		Target:    target,
		AxisMax:   math.Max(48, target*2),
		Available: value.Available,
	}
	return cfg
}

func newChart(chartType, title, xAxis, yAxis string, series []ChartSeries, colors int) *ChartConfig {
	return &ChartConfig{
		ChartType:  chartType,
		Title:      title,
		XAxis:      xAxis,
		YAxis:      yAxis,
		Series:     series,
		Colors:     assignColors(colors),
		ShowLegend: true,
		ShowGrid:   chartType != ChartPie && chartType != ChartDonut,
	}
}

func assignColors(count int) []string {
	colors := make([]string, count)
	for i := 0; i < count; i++ {
		colors[i] = defaultColors[i%len(defaultColors)]
	}
	return colors
}
