// Package meditrack is the data core of a patient-visit dashboard.
//
// Usage:
//
//	import (
//	    "github.com/spektr-org/meditrack/helpers"
//	    "github.com/spektr-org/meditrack/pages"
//	)
//
//	ds, err := helpers.Load("visits.parquet")
//	report, err := pages.Build(pages.PageLab, ds, pages.Params{
//	    Conditions: []string{"Type 2 Diabetes"},
//	}, pages.DefaultSettings())
//
// helpers loads CSV or Parquet exports, schema normalizes them into an
// engine.Dataset (typed columns, gender labels, age groups, visit dates),
// and engine filters and aggregates a read-only view of it. pages composes
// the engine into the home, dashboard, prescriptions and lab reports that
// the api package serves over HTTP.
package meditrack
