package engine

// ============================================================================
// ENGINE OPTIONS — Functional options for Execute()
// ============================================================================

// Option configures engine behavior via functional options pattern.
type Option func(*config)

type config struct {
	TopN           int // counts / pareto limit when QuerySpec.Limit is 0
	TrendLimit     int
	MonthlyBucket  bool
	SystolicLimit  float64
	DiastolicLimit float64
	HbA1cThreshold float64
	LDLThreshold   float64
}

// WithTopN sets the category limit used when QuerySpec.Limit is 0.
func WithTopN(n int) Option {
	return func(c *config) {
		c.TopN = n
	}
}

// WithTrendLimit caps the number of visit_order groups in a trend.
func WithTrendLimit(n int) Option {
	return func(c *config) {
		c.TrendLimit = n
	}
}

// WithMonthlyBucket toggles calendar-month bucketing of date trends.
func WithMonthlyBucket(monthly bool) Option {
	return func(c *config) {
		c.MonthlyBucket = monthly
	}
}

// WithRateThresholds sets the limits used by the built-in rate classifiers.
// systolic/diastolic: blood pressure control limits (e.g., 140, 90)
// hba1c, ldl: "Above" thresholds (e.g., 7, 130)
func WithRateThresholds(systolic, diastolic, hba1c, ldl float64) Option {
	return func(c *config) {
		c.SystolicLimit = systolic
		c.DiastolicLimit = diastolic
		c.HbA1cThreshold = hba1c
		c.LDLThreshold = ldl
	}
}

// applyOptions creates a config from functional options.
func applyOptions(opts []Option) *config {
	cfg := &config{
		TopN:           10,
		TrendLimit:     DefaultTrendLimit,
		MonthlyBucket:  true,
		SystolicLimit:  140,
		DiastolicLimit: 90,
		HbA1cThreshold: 7,
		LDLThreshold:   130,
	}
	for _, opt := range opts {
		opt(cfg)
	}
	return cfg
}
