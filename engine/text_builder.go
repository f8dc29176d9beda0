package engine

import (
	"fmt"
	"strings"
)

// ============================================================================
// TEXT BUILDER — One-line replies for aggregation results
// ============================================================================

// BuildReply produces a short human-readable summary of a result.
func BuildReply(data interface{}) string {
	switch d := data.(type) {
	case KPISet:
		return KPIText(d)
	case Counts:
		if d.Reason != "" {
			return reasonText(d.Reason, d.Column)
		}
		top := d.Entries[0]
		return fmt.Sprintf("%d distinct %s values shown; most frequent is %s (%s of %s).",
			len(d.Entries), LabelForColumn(d.Column), top.Value, FormatInt(top.Count), FormatInt(d.Total))
	case Matrix:
		if d.Reason != "" {
			return reasonText(d.Reason, d.RowColumn+", "+d.ColColumn)
		}
		return fmt.Sprintf("%s × %s: %d × %d combinations.",
			LabelForColumn(d.RowColumn), LabelForColumn(d.ColColumn), len(d.Rows), len(d.Cols))
	case Rates:
		if d.Reason != "" {
			return reasonText(d.Reason, "")
		}
		parts := make([]string, 0, len(d.Entries))
		for _, e := range d.Entries {
			parts = append(parts, fmt.Sprintf("%s %s", e.Status, FormatPercent(e.Percent)))
		}
		return fmt.Sprintf("%s of %s records.", strings.Join(parts, ", "), FormatInt(d.Total))
	case Trend:
		if d.Reason != "" {
			return reasonText(d.Reason, d.ValueColumn)
		}
		first, last := d.Points[0], d.Points[len(d.Points)-1]
		return fmt.Sprintf("%s moved from %.1f (%s) to %.1f (%s) over %d points.",
			LabelForColumn(d.ValueColumn), first.Value, first.Label, last.Value, last.Label, len(d.Points))
	case Pareto:
		if d.Reason != "" {
			return reasonText(d.Reason, d.Column)
		}
		last := d.Entries[len(d.Entries)-1]
		return fmt.Sprintf("Top %d %s values cover %s of %s records.",
			len(d.Entries), LabelForColumn(d.Column), FormatPercent(last.CumulativePercent), FormatInt(d.Total))
	case Refills:
		if d.Reason != "" {
			return reasonText(d.Reason, ColRefills)
		}
		return fmt.Sprintf("%s patients completed refills, %s missed.", FormatInt(d.Completed), FormatInt(d.Missed))
	}
	return ""
}

// KPIText summarises a KPI set.
func KPIText(k KPISet) string {
	return fmt.Sprintf("%s patients · avg age %s · avg BMI %s · avg adherence %s",
		FormatInt(k.TotalPatients), k.AvgAge.Display, k.AvgBMI.Display, k.AvgAdherence.Display)
}

// reasonText explains why a result is empty.
func reasonText(reason, columns string) string {
	switch reason {
	case ReasonMissingColumn:
		return fmt.Sprintf("Column not available in this dataset: %s.", columns)
	case ReasonNoTimeAxis:
		return "No visit_date or visit_order column to plot a trend over."
	default:
		return "No data for the current filters."
	}
}
