package schema

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/spektr-org/meditrack/engine"
)

// ============================================================================
// AUTO-DISCOVERY — Heuristic profile of a loaded dataset
// ============================================================================
// Inspects a normalized Dataset and describes every column.
//
// Classification pipeline per column:
//   1. Count nulls and unique values, collect samples
//   2. Text columns → detect the type the text looks like
//      (numeric, date, bool, string)
//   3. Kind + type + cardinality → classify role
//      (dimension, measure, temporal, identifier, empty)
//   4. Mark derived columns (age_group, visit_date, visit_order)
//   5. Detect dimension hierarchies (state → city)
// ============================================================================

// DiscoverOptions controls discovery behavior.
type DiscoverOptions struct {
	SampleSize int    // Max rows to inspect (0 = all). Default: 1000
	Name       string // Dataset name override
}

// DefaultDiscoverOptions returns sensible defaults.
func DefaultDiscoverOptions() DiscoverOptions {
	return DiscoverOptions{
		SampleSize: 1000,
	}
}

// Discover profiles a dataset.
func Discover(ds *engine.Dataset, opts ...DiscoverOptions) *Config {
	opt := DefaultDiscoverOptions()
	if len(opts) > 0 {
		opt = opts[0]
	}

	config := &Config{
		Name:         opt.Name,
		Source:       ds.Source,
		LoadID:       ds.LoadID,
		Rows:         ds.Len(),
		Columns:      []ColumnMeta{},
		DiscoveredAt: time.Now().UTC().Format(time.RFC3339),
	}
	if config.Name == "" {
		config.Name = "Patient Visits"
	}

	limit := ds.Len()
	if opt.SampleSize > 0 && opt.SampleSize < limit {
		limit = opt.SampleSize
	}

	for _, name := range ds.ColumnNames() {
		col, _ := ds.Column(name)
		config.Columns = append(config.Columns, analyzeColumn(col, limit))
	}

	config.TimeAxis = discoverTimeAxis(ds)
	markDerived(config)
	detectHierarchies(ds, config.Columns, limit)
	return config
}

// ============================================================================
// COLUMN ANALYSIS
// ============================================================================

const (
	typeString  = "string"
	typeNumeric = "numeric"
	typeDate    = "date"
	typeBool    = "bool"
)

// analyzeColumn inspects the first limit cells of a column and classifies it.
func analyzeColumn(col *engine.Column, limit int) ColumnMeta {
	meta := ColumnMeta{
		Key:          col.Name(),
		DisplayName:  toDisplayName(col.Name()),
		Kind:         string(col.Kind()),
		NullCount:    col.NullCount(),
		SampleValues: []string{},
	}

	values := make([]string, 0, limit)
	uniqueSet := make(map[string]bool)
	for i := 0; i < limit; i++ {
		v, ok := col.Text(i)
		if !ok {
			continue
		}
		values = append(values, v)
		uniqueSet[v] = true
	}
	meta.UniqueCount = len(uniqueSet)

	if len(values) == 0 {
		meta.Role = RoleEmpty
		return meta
	}

	meta.SampleValues = collectSamples(uniqueSet, 10)
	if col.Kind() == engine.KindText {
		meta.DetectedType = detectType(values)
	}
	meta.Role = classifyRole(col.Kind(), meta.DetectedType, meta.UniqueCount, len(values))

	switch {
	case meta.UniqueCount <= 10:
		meta.CardinalityHint = "low"
	case meta.UniqueCount <= 100:
		meta.CardinalityHint = "medium"
	default:
		meta.CardinalityHint = "high"
	}
	return meta
}

// classifyRole determines dimension vs measure vs temporal vs identifier.
func classifyRole(kind engine.Kind, detected string, unique, total int) string {
	switch kind {
	case engine.KindTime:
		return RoleTemporal
	case engine.KindNumber:
		return RoleMeasure
	}

	switch detected {
	case typeDate:
		return RoleTemporal
	case typeBool:
		return RoleDimension
	}
	if unique == total && total > 10 {
		// Every value unique → likely an ID or free text
		return RoleIdentifier
	}
	return RoleDimension
}

// ============================================================================
// TYPE DETECTION
// ============================================================================

// detectType inspects text values to determine what they look like.
// Requires 80%+ of non-null values to match for numeric/date/bool.
func detectType(values []string) string {
	if len(values) == 0 {
		return typeString
	}

	numCount := 0
	dateCount := 0
	boolCount := 0

	for _, v := range values {
		if _, ok := ParseNumber(v); ok {
			numCount++
		}
		if _, ok := ParseDate(v); ok {
			dateCount++
		}
		if isBool(v) {
			boolCount++
		}
	}

	mostly := func(n int) bool { return n*5 >= len(values)*4 }

	if mostly(boolCount) {
		return typeBool
	}
	if mostly(dateCount) {
		return typeDate
	}
	if mostly(numCount) {
		return typeNumeric
	}
	return typeString
}

func isBool(s string) bool {
	s = strings.ToLower(strings.TrimSpace(s))
	return s == "true" || s == "false" || s == "yes" || s == "no"
}

// ============================================================================
// DERIVED COLUMNS & TIME AXIS
// ============================================================================

func discoverTimeAxis(ds *engine.Dataset) TimeAxis {
	source, _ := DateSource(ds.ColumnNames())
	parsed := 0
	if dates, ok := ds.Column(engine.ColVisitDate); ok && dates.Kind() == engine.KindTime {
		parsed = dates.Len() - dates.NullCount()
	}
	axis := ResolveTimeAxis(source, parsed)
	if axis.Fallback && !ds.Has(engine.ColVisitOrder) {
		return TimeAxis{}
	}
	return axis
}

func markDerived(config *Config) {
	for i := range config.Columns {
		col := &config.Columns[i]
		switch col.Key {
		case engine.ColAgeGroup:
			col.Derived, col.DerivedFrom = true, engine.ColAge
		case engine.ColVisitDate:
			if config.TimeAxis.Source != engine.ColVisitDate {
				col.Derived, col.DerivedFrom = true, config.TimeAxis.Source
			}
		case engine.ColVisitOrder:
			if config.TimeAxis.Fallback {
				col.Derived = true
			}
		}
	}
}

// ============================================================================
// HIERARCHY DETECTION
// ============================================================================

// detectHierarchies finds parent/child relationships between dimensions.
// If every value of dimension B maps to exactly one value of dimension A,
// and A has fewer unique values, then A is parent of B.
// When multiple valid parents exist, picks the closest (highest cardinality).
func detectHierarchies(ds *engine.Dataset, columns []ColumnMeta, limit int) {
	dims := make(map[string]int) // key → unique count
	for _, c := range columns {
		if c.Role == RoleDimension && c.Kind == string(engine.KindText) {
			dims[c.Key] = c.UniqueCount
		}
	}

	for i := range columns {
		childKey := columns[i].Key
		childUniques, ok := dims[childKey]
		if !ok {
			continue
		}
		child, _ := ds.Column(childKey)

		bestParent := ""
		bestParentUniques := 0

		for parentKey, parentUniques := range dims {
			// Parent must have fewer unique values than child
			if parentKey == childKey || parentUniques >= childUniques {
				continue
			}
			parent, _ := ds.Column(parentKey)

			// Check: does every child value map to exactly one parent?
			childToParent := make(map[string]string)
			isHierarchy := true
			for row := 0; row < limit; row++ {
				c, ok1 := child.Text(row)
				p, ok2 := parent.Text(row)
				if !ok1 || !ok2 {
					continue
				}
				if existing, ok := childToParent[c]; ok {
					if existing != p {
						isHierarchy = false
						break
					}
				} else {
					childToParent[c] = p
				}
			}

			if isHierarchy && len(childToParent) > 1 {
				// Valid parent — prefer closest (highest cardinality), then name
				if parentUniques > bestParentUniques ||
					(parentUniques == bestParentUniques && parentKey < bestParent) {
					bestParent = parentKey
					bestParentUniques = parentUniques
				}
			}
		}

		columns[i].Parent = bestParent
	}
}

// ============================================================================
// STRING UTILITIES
// ============================================================================

// toDisplayName cleans a header for human display.
// "drug_category" → "Drug Category", "hba1c" → "HbA1c"
func toDisplayName(s string) string {
	// If already has spaces, just trim
	if strings.Contains(s, " ") {
		return strings.TrimSpace(s)
	}
	return engine.LabelForColumn(s)
}

// collectSamples picks up to maxSamples representative values.
func collectSamples(uniqueSet map[string]bool, maxSamples int) []string {
	samples := make([]string, 0, len(uniqueSet))
	for v := range uniqueSet {
		samples = append(samples, v)
	}

	// Sort for deterministic output
	sort.Strings(samples)

	if len(samples) > maxSamples {
		samples = samples[:maxSamples]
	}
	return samples
}

// Summary renders a one-line description of a profile.
func (c Config) Summary() string {
	return fmt.Sprintf("%s: %d rows, %d columns (%d dimensions, %d measures), time axis %s",
		c.Name, c.Rows, len(c.Columns), len(c.KeysByRole(RoleDimension)), len(c.KeysByRole(RoleMeasure)),
		orNone(c.TimeAxis.Column))
}

func orNone(s string) string {
	if s == "" {
		return "none"
	}
	return s
}
