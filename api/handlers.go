package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/sirupsen/logrus"

	"github.com/spektr-org/meditrack/config"
	"github.com/spektr-org/meditrack/engine"
	"github.com/spektr-org/meditrack/logger"
	"github.com/spektr-org/meditrack/pages"
	"github.com/spektr-org/meditrack/schema"
)

// Handlers contains all HTTP handlers
type Handlers struct {
	ds       *engine.Dataset
	profile  *schema.Config
	settings pages.Settings
}

// NewHandlers creates new handlers
func NewHandlers(ds *engine.Dataset, profile *schema.Config, settings pages.Settings) *Handlers {
	return &Handlers{
		ds:       ds,
		profile:  profile,
		settings: settings,
	}
}

// HealthCheck handles health check requests
func (h *Handlers) HealthCheck(w http.ResponseWriter, r *http.Request) {
	respond(w, http.StatusOK, map[string]interface{}{
		"status":  "healthy",
		"service": "meditrack",
		"records": h.ds.Len(),
		"time":    time.Now().UTC().Format(time.RFC3339),
	})
}

// GetSchema returns the column profile of the loaded dataset
func (h *Handlers) GetSchema(w http.ResponseWriter, r *http.Request) {
	respond(w, http.StatusOK, h.profile)
}

// ListPages lists the available pages
func (h *Handlers) ListPages(w http.ResponseWriter, r *http.Request) {
	respond(w, http.StatusOK, map[string]interface{}{"pages": pages.Names})
}

// GetPage renders one page with the query-string selections
func (h *Handlers) GetPage(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "page")

	params, err := ParseParams(r.URL.Query())
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	report, err := pages.Build(name, h.ds, params, h.settings)
	if errors.Is(err, pages.ErrUnknownPage) {
		respondError(w, http.StatusNotFound, err.Error())
		return
	}
	if err != nil {
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}

	logger.WithFields(logrus.Fields{
		"request_id": middleware.GetReqID(r.Context()),
		"page":       name,
		"records":    report.Records,
	}).Debug("Page rendered")
	respond(w, http.StatusOK, report)
}

// Query runs a declarative aggregation against the dataset
func (h *Handlers) Query(w http.ResponseWriter, r *http.Request) {
	var spec engine.QuerySpec
	if err := json.NewDecoder(r.Body).Decode(&spec); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	if err := ValidateQuery(spec); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	result, err := engine.Execute(spec, h.ds, h.settings.EngineOptions()...)
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	respond(w, http.StatusOK, result)
}

// ============================================================================
// QUERY-STRING PARAMETERS
// ============================================================================

// ParseParams reads page selections from a query string. Multi-valued
// filters accept repeated keys and comma-separated lists:
//
//	city=Pune&city=Delhi  or  city=Pune,Delhi
//
// age_min / age_max set an inclusive age range; a missing side defaults to
// 0 or 200.
// top_n must be one of config.TopNChoices.
func ParseParams(q map[string][]string) (pages.Params, error) {
	p := pages.Params{
		PatientID:    first(q, "patient_id"),
		Cities:       list(q, "city"),
		States:       list(q, "state"),
		Genders:      list(q, "gender"),
		Doctor:       first(q, "doctor"),
		DrugCategory: first(q, "drug_category"),
		Conditions:   list(q, "condition"),
		Tests:        list(q, "test"),
	}

	if v := first(q, "top_n"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || !config.ValidTopN(n) {
			return p, fmt.Errorf("top_n must be one of %v", config.TopNChoices)
		}
		p.TopN = n
	}

	minAge, hasMin, err := number(q, "age_min")
	if err != nil {
		return p, err
	}
	maxAge, hasMax, err := number(q, "age_max")
	if err != nil {
		return p, err
	}
	if hasMin || hasMax {
		rng := engine.Range{Min: 0, Max: 200}
		if hasMin {
			rng.Min = minAge
		}
		if hasMax {
			rng.Max = maxAge
		}
		if rng.Min > rng.Max {
			return p, fmt.Errorf("age_min must not exceed age_max")
		}
		p.AgeRange = &rng
	}

	target, hasTarget, err := number(q, "target")
	if err != nil {
		return p, err
	}
	if hasTarget {
		if target <= 0 {
			return p, fmt.Errorf("target must be positive")
		}
		p.TurnaroundTarget = target
	}
	return p, nil
}

// ValidateQuery applies the top_n choices to a non-zero limit on counts,
// crosstab and pareto queries.
func ValidateQuery(spec engine.QuerySpec) error {
	switch engine.NormalizeQuerySpec(spec).Aggregation {
	case engine.AggCounts, engine.AggCrosstab, engine.AggPareto:
		if spec.Limit != 0 && !config.ValidTopN(spec.Limit) {
			return fmt.Errorf("limit must be one of %v", config.TopNChoices)
		}
	}
	return nil
}

func first(q map[string][]string, key string) string {
	if vals := q[key]; len(vals) > 0 {
		return strings.TrimSpace(vals[0])
	}
	return ""
}

func list(q map[string][]string, key string) []string {
	var out []string
	for _, v := range q[key] {
		for _, part := range strings.Split(v, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}

func number(q map[string][]string, key string) (float64, bool, error) {
	v := first(q, key)
	if v == "" {
		return 0, false, nil
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false, fmt.Errorf("%s must be a number", key)
	}
	return f, true, nil
}

// Helper functions

func respond(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func respondError(w http.ResponseWriter, status int, message string) {
	respond(w, status, map[string]string{"error": message})
}
