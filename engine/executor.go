package engine

import (
	"fmt"
	"strings"

	"github.com/spektr-org/meditrack/logger"
)

// ============================================================================
// EXECUTOR — Dispatcher for declarative queries
// ============================================================================
// Entry point: Execute(spec, view, opts...)
//
// Pipeline:
//   1. Normalize the QuerySpec (aggregation name, default visualization)
//   2. Apply filters from QuerySpec → SubView
//   3. Run the named aggregation
//   4. Dispatch to builder (chart / table / text)
//   5. Return Result
//
// A data condition (missing column, empty view) is never an error: the
// Result carries a Reason and an explanatory Reply. Only caller mistakes such
// as an unknown aggregation return an error.
// ============================================================================

// Rate names understood by Execute.
const (
	RateBPControl  = "bp_control"
	RateHbA1cAbove = "hba1c_above"
	RateLDLAbove   = "ldl_above"
	RateGeneric    = "generic"
)

// Execute runs a QuerySpec against a RecordView and returns a render-ready Result.
//
// Options:
//   - WithTopN(n) — category limit when QuerySpec.Limit is 0
//   - WithTrendLimit(n) — visit_order groups kept in trends
//   - WithMonthlyBucket(bool) — monthly vs exact-date trend buckets
//   - WithRateThresholds(sys, dia, hba1c, ldl) — rate classifier limits
func Execute(spec QuerySpec, view RecordView, opts ...Option) (*Result, error) {
	cfg := applyOptions(opts)
	spec = NormalizeQuerySpec(spec)

	// 1. Apply filters → SubView (zero-copy)
	filtered := ApplyFilters(view, spec.Filters)

	logger.WithFields(map[string]interface{}{
		"aggregation": spec.Aggregation,
		"visualize":   spec.Visualize,
		"records":     view.Len(),
		"filtered":    filtered.Len(),
	}).Debug("Executing query")

	limit := spec.Limit
	if limit == 0 {
		limit = cfg.TopN
	}

	// 2. Aggregate
	var data interface{}
	var reason string
	switch spec.Aggregation {
	case AggKPIs:
		data = ComputeKPIs(filtered)
	case AggCounts:
		if spec.Column == "" {
			return nil, fmt.Errorf("aggregation %q requires column", spec.Aggregation)
		}
		c := CategoricalCounts(filtered, spec.Column, limit)
		data, reason = c, c.Reason
	case AggCrosstab:
		if spec.RowColumn == "" || spec.ColColumn == "" {
			return nil, fmt.Errorf("aggregation %q requires rowColumn and colColumn", spec.Aggregation)
		}
		var m Matrix
		if spec.Limit > 0 {
			m = CrosstabTopRows(filtered, spec.RowColumn, spec.ColColumn, spec.Limit)
		} else {
			m = Crosstab(filtered, spec.RowColumn, spec.ColColumn)
		}
		data, reason = m, m.Reason
	case AggRate:
		classifier, err := RateClassifier(spec.Rate, cfg)
		if err != nil {
			return nil, err
		}
		r := RateBreakdown(filtered, classifier)
		data, reason = r, r.Reason
	case AggTrend:
		if spec.ValueColumn == "" {
			return nil, fmt.Errorf("aggregation %q requires valueColumn", spec.Aggregation)
		}
		t := TimeTrend(filtered, spec.ValueColumn, TrendOptions{MonthlyBucket: cfg.MonthlyBucket, Limit: cfg.TrendLimit})
		data, reason = t, t.Reason
	case AggPareto:
		if spec.Column == "" {
			return nil, fmt.Errorf("aggregation %q requires column", spec.Aggregation)
		}
		p := ParetoBreakdown(filtered, spec.Column, limit)
		data, reason = p, p.Reason
	case AggRefills:
		r := RefillSummary(filtered)
		data, reason = r, r.Reason
	default:
		return nil, fmt.Errorf("unknown aggregation %q", spec.Aggregation)
	}

	// 3. Dispatch to builder
	result := &Result{
		Success: true,
		Title:   spec.Title,
		Reason:  reason,
		Records: filtered.Len(),
		Data:    data,
		Reply:   BuildReply(data),
	}

	switch spec.Visualize {
	case "table":
		result.Type = "table"
		result.TableData = BuildTable(spec.Title, data)
	case "text":
		result.Type = "text"
	default:
		result.Type = "chart"
		result.ChartConfig = BuildChart(spec.Title, spec.Visualize, data)
		if result.ChartConfig == nil {
			result.Type = "text"
		}
	}

	return result, nil
}

// RateClassifier resolves a rate name to its classifier.
func RateClassifier(name string, cfg *config) (Classifier, error) {
	switch name {
	case RateBPControl:
		return BloodPressureControl(cfg.SystolicLimit, cfg.DiastolicLimit), nil
	case RateHbA1cAbove:
		return ThresholdClassifier(ColHbA1c, cfg.HbA1cThreshold), nil
	case RateLDLAbove:
		return ThresholdClassifier(ColLDL, cfg.LDLThreshold), nil
	case RateGeneric:
		return GenericClassifier(), nil
	}
	return Classifier{}, fmt.Errorf("unknown rate %q", name)
}

// ============================================================================
// QUERYSPEC NORMALIZATION
// ============================================================================

// NormalizeQuerySpec applies deterministic defaults to a QuerySpec.
func NormalizeQuerySpec(spec QuerySpec) QuerySpec {
	spec.Aggregation = strings.ToLower(strings.TrimSpace(spec.Aggregation))
	spec.Visualize = strings.ToLower(strings.TrimSpace(spec.Visualize))

	if spec.Visualize == "" {
		switch spec.Aggregation {
		case AggKPIs:
			spec.Visualize = "table"
		case AggCrosstab:
			spec.Visualize = ChartHeatmap
		case AggRate:
			spec.Visualize = ChartPie
		case AggTrend:
			spec.Visualize = ChartLine
		case AggPareto:
			spec.Visualize = ChartPareto
		default:
			spec.Visualize = ChartBar
		}
	}

	// KPI sets have no chart form
	if spec.Aggregation == AggKPIs && spec.Visualize != "text" {
		spec.Visualize = "table"
	}

	if spec.Title == "" {
		spec.Title = defaultTitle(spec)
	}
	return spec
}

func defaultTitle(spec QuerySpec) string {
	switch spec.Aggregation {
	case AggKPIs:
		return "Key Metrics"
	case AggCounts:
		return LabelForColumn(spec.Column) + " Distribution"
	case AggCrosstab:
		return LabelForColumn(spec.RowColumn) + " × " + LabelForColumn(spec.ColColumn)
	case AggRate:
		return LabelForColumn(spec.Rate)
	case AggTrend:
		return LabelForColumn(spec.ValueColumn) + " Trend"
	case AggPareto:
		return LabelForColumn(spec.Column) + " Pareto"
	case AggRefills:
		return "Refills"
	}
	return ""
}
