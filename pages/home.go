package pages

import (
	"strings"

	"github.com/spektr-org/meditrack/engine"
)

// PatientInfoColumns are shown as the patient card of a lookup.
var PatientInfoColumns = []string{
	engine.ColPatientID, "name", engine.ColGender, engine.ColAge, engine.ColCity,
	engine.ColState, "pincode", "blood_group", engine.ColBMI, engine.ColCondition,
}

// Home renders the headline KPIs and, when Params.PatientID is set, an exact
// patient lookup.
func Home(ds *engine.Dataset, p Params, s Settings) *Report {
	report, view := newReport(PageHome, "MediTrack: Patient Care and Diagnostics", ds, engine.Filters{})

	kpis := engine.ComputeKPIs(view)
	report.KPIs = &kpis
	report.Panels = append(report.Panels, Panel{
		Key:   "kpis",
		Title: "Key Metrics",
		Table: engine.KPITable(kpis, "Key Metrics"),
		Value: engine.KPIText(kpis),
		Data:  kpis,
	})

	id := strings.TrimSpace(p.PatientID)
	if id == "" {
		return report
	}
	report.Panels = append(report.Panels, lookupPanels(view, id)...)
	return report
}

func lookupPanels(view engine.RecordView, id string) []Panel {
	const title = "Patient Lookup"
	if !hasColumns(view, engine.ColPatientID) {
		return []Panel{infoPanel("patient", title, "patient_id column not found in dataset.")}
	}
	visits := engine.LookupPatient(view, id)
	if visits.Len() == 0 {
		return []Panel{infoPanel("patient", title, "No patient found with that ID.")}
	}

	card := engine.RecordsTable(visits, PatientInfoColumns, title)
	card.Rows = distinctRows(card.Rows)
	card.Summary = nil

	return []Panel{
		{Key: "patient", Title: title, Table: card},
		{
			Key:   "patient_visits",
			Title: "All records for this patient",
			Table: engine.RecordsTable(visits, visits.ColumnNames(), "All records for this patient"),
		},
	}
}

// distinctRows drops repeated rows, keeping first occurrences.
func distinctRows(rows [][]string) [][]string {
	seen := make(map[string]bool, len(rows))
	out := make([][]string, 0, len(rows))
	for _, r := range rows {
		key := strings.Join(r, "\x1f")
		if seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, r)
	}
	return out
}
