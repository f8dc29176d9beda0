package engine

import (
	"fmt"
	"strconv"
)

// ============================================================================
// TABLE BUILDER — Produces TableData from aggregation results and views
// ============================================================================
// Record tables read cells through RecordView; aggregated tables read the
// typed results. Null cells render as "".
// ============================================================================

// BuildTable produces a TableData for a typed aggregation result.
func BuildTable(title string, data interface{}) *TableData {
	switch d := data.(type) {
	case Counts:
		return CountsTable(d, title)
	case Matrix:
		return MatrixTable(d, title)
	case Rates:
		return RatesTable(d, title)
	case Trend:
		return TrendTable(d, title)
	case Pareto:
		return ParetoTable(d, title)
	case KPISet:
		return KPITable(d, title)
	case Refills:
		return RefillsTable(d, title)
	}
	return emptyTable(title)
}

func emptyTable(title string) *TableData {
	return &TableData{
		Title:   title,
		Columns: []TableColumn{},
		Rows:    [][]string{},
	}
}

// ============================================================================
// RECORD TABLE — Row per visit
// ============================================================================

// RecordsTable lists the given columns of every record in a view. Columns the
// dataset does not carry are skipped.
func RecordsTable(view RecordView, columns []string, title string) *TableData {
	cols := make([]*Column, 0, len(columns))
	header := make([]TableColumn, 0, len(columns))
	for _, key := range columns {
		col, ok := view.Column(key)
		if !ok {
			continue
		}
		cols = append(cols, col)
		header = append(header, tableColumn(col))
	}
	if len(cols) == 0 {
		return emptyTable(title)
	}

	rows := make([][]string, 0, view.Len())
	for i := 0; i < view.Len(); i++ {
		row := make([]string, len(cols))
		for j, col := range cols {
			row[j], _ = col.Text(view.Index(i))
		}
		rows = append(rows, row)
	}

	return &TableData{
		Title:   title,
		Columns: header,
		Rows:    rows,
		Summary: &Summary{
			Label:  fmt.Sprintf("Total (%s records)", FormatInt(view.Len())),
			Values: map[string]string{},
		},
	}
}

func tableColumn(col *Column) TableColumn {
	if col.Kind() == KindNumber {
		return TableColumn{Key: col.Name(), Label: LabelForColumn(col.Name()), Type: "number", Align: "right"}
	}
	return TableColumn{Key: col.Name(), Label: LabelForColumn(col.Name()), Type: "text", Align: "left"}
}

// ============================================================================
// AGGREGATED TABLES — Summary rows
// ============================================================================

// CountsTable lists value counts.
func CountsTable(counts Counts, title string) *TableData {
	if len(counts.Entries) == 0 {
		return emptyTable(title)
	}
	rows := make([][]string, 0, len(counts.Entries))
	shown := 0
	for _, e := range counts.Entries {
		rows = append(rows, []string{e.Value, strconv.Itoa(e.Count)})
		shown += e.Count
	}
	return &TableData{
		Title: title,
		Columns: []TableColumn{
			{Key: "value", Label: LabelForColumn(counts.Column), Type: "text", Align: "left"},
			{Key: "count", Label: "Count", Type: "number", Align: "right"},
		},
		Rows: rows,
		Summary: &Summary{
			Label:  "Total",
			Values: map[string]string{"count": fmt.Sprintf("%d of %d", shown, counts.Total)},
		},
	}
}

// MatrixTable lists a crosstab with one column per column value and a row total.
func MatrixTable(m Matrix, title string) *TableData {
	if len(m.Rows) == 0 {
		return emptyTable(title)
	}
	columns := make([]TableColumn, 0, len(m.Cols)+2)
	columns = append(columns, TableColumn{Key: m.RowColumn, Label: LabelForColumn(m.RowColumn), Type: "text", Align: "left"})
	for _, c := range m.Cols {
		columns = append(columns, TableColumn{Key: c, Label: c, Type: "number", Align: "right"})
	}
	columns = append(columns, TableColumn{Key: "total", Label: "Total", Type: "number", Align: "right"})

	rows := make([][]string, 0, len(m.Rows))
	grand := 0
	for i, r := range m.Rows {
		row := make([]string, 0, len(columns))
		row = append(row, r)
		total := 0
		for _, n := range m.Cells[i] {
			row = append(row, strconv.Itoa(n))
			total += n
		}
		row = append(row, strconv.Itoa(total))
		rows = append(rows, row)
		grand += total
	}
	return &TableData{
		Title:   title,
		Columns: columns,
		Rows:    rows,
		Summary: &Summary{Label: "Total", Values: map[string]string{"total": strconv.Itoa(grand)}},
	}
}

// RatesTable lists status shares.
func RatesTable(rates Rates, title string) *TableData {
	if len(rates.Entries) == 0 {
		return emptyTable(title)
	}
	rows := make([][]string, 0, len(rates.Entries))
	for _, e := range rates.Entries {
		rows = append(rows, []string{e.Status, strconv.Itoa(e.Count), FormatPercent(e.Percent)})
	}
	return &TableData{
		Title: title,
		Columns: []TableColumn{
			{Key: "status", Label: "Status", Type: "text", Align: "left"},
			{Key: "count", Label: "Count", Type: "number", Align: "right"},
			{Key: "percent", Label: "Percent", Type: "number", Align: "right"},
		},
		Rows:    rows,
		Summary: &Summary{Label: "Total", Values: map[string]string{"count": strconv.Itoa(rates.Total)}},
	}
}

// TrendTable lists trend points.
func TrendTable(tr Trend, title string) *TableData {
	if len(tr.Points) == 0 {
		return emptyTable(title)
	}
	rows := make([][]string, 0, len(tr.Points))
	for _, p := range tr.Points {
		rows = append(rows, []string{p.Label, fmt.Sprintf("%.2f", p.Value), strconv.Itoa(p.Count)})
	}
	return &TableData{
		Title: title,
		Columns: []TableColumn{
			{Key: tr.Axis, Label: LabelForColumn(tr.Axis), Type: "text", Align: "left"},
			{Key: "mean", Label: "Mean " + LabelForColumn(tr.ValueColumn), Type: "number", Align: "right"},
			{Key: "count", Label: "Count", Type: "number", Align: "center"},
		},
		Rows: rows,
	}
}

// ParetoTable lists ranked counts with the cumulative share.
func ParetoTable(p Pareto, title string) *TableData {
	if len(p.Entries) == 0 {
		return emptyTable(title)
	}
	rows := make([][]string, 0, len(p.Entries))
	for _, e := range p.Entries {
		rows = append(rows, []string{e.Value, strconv.Itoa(e.Count), FormatPercent(e.CumulativePercent)})
	}
	return &TableData{
		Title: title,
		Columns: []TableColumn{
			{Key: "value", Label: LabelForColumn(p.Column), Type: "text", Align: "left"},
			{Key: "count", Label: "Count", Type: "number", Align: "right"},
			{Key: "cumulative", Label: "Cumulative %", Type: "number", Align: "right"},
		},
		Rows:    rows,
		Summary: &Summary{Label: "Population", Values: map[string]string{"count": strconv.Itoa(p.Total)}},
	}
}

// KPITable lists the headline numbers.
func KPITable(k KPISet, title string) *TableData {
	return &TableData{
		Title: title,
		Columns: []TableColumn{
			{Key: "metric", Label: "Metric", Type: "text", Align: "left"},
			{Key: "value", Label: "Value", Type: "number", Align: "right"},
		},
		Rows: [][]string{
			{"Total Patients", FormatInt(k.TotalPatients)},
			{"Avg Age", k.AvgAge.Display},
			{"Avg BMI", k.AvgBMI.Display},
			{"Avg Adherence", k.AvgAdherence.Display},
		},
	}
}

// RefillsTable lists completed and missed patients.
func RefillsTable(r Refills, title string) *TableData {
	return &TableData{
		Title: title,
		Columns: []TableColumn{
			{Key: "status", Label: "Status", Type: "text", Align: "left"},
			{Key: "patients", Label: "Patients", Type: "number", Align: "right"},
		},
		Rows: [][]string{
			{"Completed", strconv.Itoa(r.Completed)},
			{"Missed", strconv.Itoa(r.Missed)},
		},
		Summary: &Summary{Label: "Total", Values: map[string]string{"patients": strconv.Itoa(r.Patients)}},
	}
}
