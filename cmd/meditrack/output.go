package main

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/spektr-org/meditrack/engine"
	"github.com/spektr-org/meditrack/pages"
)

// ============================================================================
// CSV OUTPUT — chart / table data ready for Sheets
// ============================================================================

func writeCSV(w io.Writer, result *engine.Result) {
	cw := csv.NewWriter(w)
	defer cw.Flush()

	if result == nil {
		cw.Write([]string{"Result", "No data"})
		return
	}

	// Try chart data first (most queries produce charts)
	if result.ChartConfig != nil && writeChartCSV(cw, result.ChartConfig) {
		return
	}

	// Then table data
	if result.TableData != nil && writeTableCSV(cw, result.TableData) {
		return
	}

	// Fallback: text result as single-row CSV
	cw.Write([]string{"Summary"})
	reply := result.Reply
	if reply == "" {
		reply = "No data"
	}
	cw.Write([]string{reply})
}

// writePageCSV writes each panel as its own block, headed by the panel
// title and separated by a blank line.
func writePageCSV(w io.Writer, report *pages.Report) {
	cw := csv.NewWriter(w)
	defer cw.Flush()

	for i, p := range report.Panels {
		if i > 0 {
			cw.Write([]string{""})
		}
		cw.Write([]string{"# " + p.Title})
		switch {
		case p.Chart != nil && writeChartCSV(cw, p.Chart):
		case p.Table != nil && writeTableCSV(cw, p.Table):
		case p.Value != "":
			cw.Write([]string{p.Title, p.Value})
		default:
			cw.Write([]string{p.Info})
		}
	}
}

func writeChartCSV(cw *csv.Writer, chart *engine.ChartConfig) bool {
	switch {
	case chart.Heatmap != nil:
		return writeHeatmapCSV(cw, chart)
	case chart.Gauge != nil:
		g := chart.Gauge
		cw.Write([]string{"Value", "Target"})
		value := engine.NotAvailable
		if g.Available {
			value = fmtNum(g.Value)
		}
		cw.Write([]string{value, fmtNum(g.Target)})
		return true
	case len(chart.Series) == 0:
		return false
	}

	xLabel := chart.XAxis
	yLabel := chart.YAxis
	if xLabel == "" {
		xLabel = "Label"
	}
	if yLabel == "" {
		yLabel = "Value"
	}

	// Single series → two columns
	if len(chart.Series) == 1 {
		cw.Write([]string{xLabel, yLabel})
		for _, d := range chart.Series[0].Data {
			cw.Write([]string{d.Label, fmtNum(d.Value)})
		}
		return true
	}

	// Multi-series → label + one column per series
	headers := []string{xLabel}
	for _, s := range chart.Series {
		headers = append(headers, s.Name)
	}
	cw.Write(headers)

	for i, d := range chart.Series[0].Data {
		row := []string{d.Label}
		for _, s := range chart.Series {
			if i < len(s.Data) {
				row = append(row, fmtNum(s.Data[i].Value))
			} else {
				row = append(row, "")
			}
		}
		cw.Write(row)
	}
	return true
}

func writeHeatmapCSV(cw *csv.Writer, chart *engine.ChartConfig) bool {
	h := chart.Heatmap
	headers := append([]string{chart.YAxis}, h.X...)
	cw.Write(headers)
	for i, y := range h.Y {
		row := []string{y}
		for _, v := range h.Values[i] {
			row = append(row, fmt.Sprintf("%d", v))
		}
		cw.Write(row)
	}
	return true
}

func writeTableCSV(cw *csv.Writer, table *engine.TableData) bool {
	if len(table.Columns) == 0 {
		return false
	}
	headers := make([]string, len(table.Columns))
	for i, c := range table.Columns {
		headers[i] = c.Label
	}
	cw.Write(headers)
	for _, row := range table.Rows {
		cw.Write(row)
	}
	return true
}

// ============================================================================
// TEXT OUTPUT
// ============================================================================

func writePageText(w io.Writer, report *pages.Report) {
	fmt.Fprintf(w, "%s (%s visits)\n", report.Title, engine.FormatInt(report.Records))
	for _, p := range report.Panels {
		fmt.Fprintf(w, "\n%s\n%s\n", p.Title, strings.Repeat("-", len([]rune(p.Title))))
		switch {
		case p.Info != "":
			fmt.Fprintln(w, p.Info)
		case p.Value != "":
			fmt.Fprintln(w, p.Value)
		case p.Data != nil:
			fmt.Fprintln(w, engine.BuildReply(p.Data))
		case p.Table != nil:
			fmt.Fprintf(w, "%d rows\n", len(p.Table.Rows))
		}
		if p.Note != "" {
			fmt.Fprintln(w, p.Note)
		}
	}
}

// ============================================================================
// JSON OUTPUT
// ============================================================================

func writeJSON(w io.Writer, v interface{}, format string) {
	var out []byte
	var err error

	if format == "pretty" {
		out, err = json.MarshalIndent(v, "", "  ")
	} else {
		out, err = json.Marshal(v)
	}

	if err != nil {
		fatalf("Failed to marshal output: %v", err)
	}
	fmt.Fprintln(w, string(out))
}
