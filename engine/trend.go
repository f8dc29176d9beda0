package engine

import (
	"sort"
	"strconv"
	"time"
)

// ============================================================================
// TREND — time- or order-indexed means
// ============================================================================
// Axis precedence:
//   1. visit_date, when the view holds at least one non-null date
//   2. visit_order, grouped by exact position, first Limit groups
//   3. neither → empty series, Reason "no_time_axis"
// ============================================================================

// DefaultTrendLimit caps the number of visit_order groups in a trend.
const DefaultTrendLimit = 200

// MonthLayout labels monthly trend buckets.
const MonthLayout = "2006-01"

// TrendOptions controls bucketing of a trend.
type TrendOptions struct {
	MonthlyBucket bool // truncate dates to the first of the month
	Limit         int  // visit_order groups kept; <= 0 = DefaultTrendLimit
}

// TimeTrend computes the mean of valueColumn per time bucket, ascending.
// Buckets whose values are all null are omitted.
func TimeTrend(view RecordView, valueColumn string, opts TrendOptions) Trend {
	tr := Trend{ValueColumn: valueColumn, Points: []TrendPoint{}}
	values, ok := view.Column(valueColumn)
	if !ok {
		tr.Reason = ReasonMissingColumn
		return tr
	}

	if dates, ok := view.Column(ColVisitDate); ok && hasTime(view, dates) {
		tr.Axis = AxisVisitDate
		tr.Points = dateTrend(view, dates, values, opts.MonthlyBucket)
	} else if orders, ok := view.Column(ColVisitOrder); ok {
		limit := opts.Limit
		if limit <= 0 {
			limit = DefaultTrendLimit
		}
		tr.Axis = AxisVisitOrder
		tr.Points = orderTrend(view, orders, values, limit)
	} else {
		tr.Reason = ReasonNoTimeAxis
		return tr
	}

	if len(tr.Points) == 0 {
		tr.Reason = ReasonNoData
	}
	return tr
}

func hasTime(view RecordView, dates *Column) bool {
	for i := 0; i < view.Len(); i++ {
		if _, ok := dates.Time(view.Index(i)); ok {
			return true
		}
	}
	return false
}

type bucket struct {
	sum   float64
	count int
}

func dateTrend(view RecordView, dates, values *Column, monthly bool) []TrendPoint {
	buckets := make(map[time.Time]*bucket)
	for i := 0; i < view.Len(); i++ {
		row := view.Index(i)
		t, ok := dates.Time(row)
		if !ok {
			continue
		}
		v, ok := values.Float(row)
		if !ok {
			continue
		}
		if monthly {
			t = time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, t.Location())
		}
		b, exists := buckets[t]
		if !exists {
			b = &bucket{}
			buckets[t] = b
		}
		b.sum += v
		b.count++
	}

	keys := make([]time.Time, 0, len(buckets))
	for t := range buckets {
		keys = append(keys, t)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i].Before(keys[j]) })

	points := make([]TrendPoint, 0, len(keys))
	for _, t := range keys {
		t := t
		b := buckets[t]
		label := formatTime(t)
		if monthly {
			label = t.Format(MonthLayout)
		}
		points = append(points, TrendPoint{
			Label: label,
			Time:  &t,
			Value: b.sum / float64(b.count),
			Count: b.count,
		})
	}
	return points
}

func orderTrend(view RecordView, orders, values *Column, limit int) []TrendPoint {
	buckets := make(map[int]*bucket)
	for i := 0; i < view.Len(); i++ {
		row := view.Index(i)
		o, ok := orders.Float(row)
		if !ok {
			continue
		}
		v, ok := values.Float(row)
		if !ok {
			continue
		}
		key := int(o)
		b, exists := buckets[key]
		if !exists {
			b = &bucket{}
			buckets[key] = b
		}
		b.sum += v
		b.count++
	}

	keys := make([]int, 0, len(buckets))
	for k := range buckets {
		keys = append(keys, k)
	}
	sort.Ints(keys)
	if len(keys) > limit {
		keys = keys[:limit]
	}

	points := make([]TrendPoint, 0, len(keys))
	for _, k := range keys {
		k := k
		b := buckets[k]
		points = append(points, TrendPoint{
			Label: strconv.Itoa(k),
			Order: &k,
			Value: b.sum / float64(b.count),
			Count: b.count,
		})
	}
	return points
}
