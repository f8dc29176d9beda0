package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/spektr-org/meditrack/api"
	"github.com/spektr-org/meditrack/config"
	"github.com/spektr-org/meditrack/engine"
	"github.com/spektr-org/meditrack/helpers"
	"github.com/spektr-org/meditrack/logger"
	"github.com/spektr-org/meditrack/pages"
	"github.com/spektr-org/meditrack/schema"
)

// ============================================================================
// MEDITRACK CLI — patient visit dashboards from a CSV or Parquet export
// ============================================================================

const version = "0.3.0"

// pageFlags are the page selections, named like the API query string.
type pageFlags struct {
	patient, city, state, gender   string
	ageMin, ageMax, topN, target   string
	doctor, drug, condition, tests string
}

func main() {
	// ── Flags ─────────────────────────────────────────────────────────────
	filePath := flag.String("file", "", "Path to CSV or Parquet visit data")
	configPath := flag.String("config", os.Getenv("MEDITRACK_CONFIG"), "Path to YAML config")
	dataFormat := flag.String("data-format", "", "Input format: csv, parquet (default: from extension)")
	page := flag.String("page", "", "Render a page: home, dashboard, prescriptions, lab")
	queryStr := flag.String("query", "", "QuerySpec JSON to execute (or @file.json)")
	discover := flag.Bool("discover", false, "Print the dataset profile and exit")
	serve := flag.Bool("serve", false, "Serve the JSON API")
	format := flag.String("format", "json", "Output format: json, pretty, text, csv")
	outFile := flag.String("out", "", "Write output to file instead of stdout")
	showVersion := flag.Bool("version", false, "Print version and exit")

	var pf pageFlags
	flag.StringVar(&pf.patient, "patient", "", "Home: exact patient id to look up")
	flag.StringVar(&pf.city, "city", "", "Dashboard: comma-separated cities")
	flag.StringVar(&pf.state, "state", "", "Dashboard: comma-separated states")
	flag.StringVar(&pf.gender, "gender", "", "Dashboard: comma-separated genders")
	flag.StringVar(&pf.ageMin, "age-min", "", "Dashboard: minimum age (inclusive)")
	flag.StringVar(&pf.ageMax, "age-max", "", "Dashboard: maximum age (inclusive)")
	flag.StringVar(&pf.topN, "top-n", "", "Dashboard: top N categories (5, 10, 15, 20)")
	flag.StringVar(&pf.doctor, "doctor", "", "Prescriptions: prescribing doctor")
	flag.StringVar(&pf.drug, "drug", "", "Prescriptions: drug category")
	flag.StringVar(&pf.condition, "condition", "", "Lab: comma-separated primary conditions")
	flag.StringVar(&pf.tests, "test", "", "Lab: comma-separated lab tests")
	flag.StringVar(&pf.target, "target", "", "Lab: turnaround target in hours")

	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, `MediTrack — patient care and diagnostics dashboards

Usage:
  meditrack --file visits.csv --page dashboard --state Maharashtra --top-n 5
  meditrack --file visits.parquet --page lab --condition "Type 2 Diabetes" --format text
  meditrack --file visits.csv --query '{"aggregation":"counts","column":"drug_category"}' --format csv
  meditrack --file visits.csv --discover --format pretty
  meditrack --config meditrack.yaml --serve

Flags:
`)
		flag.PrintDefaults()
		fmt.Fprintf(os.Stderr, `
Environment:
  MEDITRACK_CONFIG      YAML config path
  MEDITRACK_DATA_PATH   Data file when --file is not given
  LOG_LEVEL, LOG_FORMAT Logging

Formats:
  json      Full JSON output (default)
  pretty    Pretty-printed JSON
  text      Human-readable summary only
  csv       Chart/table data as CSV (ready for Sheets/Excel)
`)
	}

	flag.Parse()

	if *showVersion {
		fmt.Printf("meditrack %s\n", version)
		os.Exit(0)
	}

	cfg := loadConfig(*configPath)
	logger.Init(cfg.Log.Level, cfg.Log.Format)

	if *filePath != "" {
		cfg.Data.Path = *filePath
	}
	if *dataFormat != "" {
		cfg.Data.Format = *dataFormat
	}
	if cfg.Data.Path == "" {
		fmt.Fprintln(os.Stderr, "Error: --file (or data.path / MEDITRACK_DATA_PATH) is required")
		flag.Usage()
		os.Exit(1)
	}
	if !*discover && !*serve && *page == "" && *queryStr == "" {
		fmt.Fprintln(os.Stderr, "Error: one of --page, --query, --discover or --serve is required")
		flag.Usage()
		os.Exit(1)
	}

	// ── Load data ─────────────────────────────────────────────────────────
	loadFormat := cfg.Data.Format
	if loadFormat == "auto" {
		loadFormat = ""
	}
	ds, err := helpers.LoadFormat(cfg.Data.Path, loadFormat)
	if err != nil {
		// An unreadable source still yields an empty dataset
		logger.WithField("error", err.Error()).Warn("Continuing with an empty dataset")
	}

	// ── Serve mode ────────────────────────────────────────────────────────
	if *serve {
		runServer(cfg, ds)
		return
	}

	// ── Output writer ─────────────────────────────────────────────────────
	var writer io.Writer = os.Stdout
	if *outFile != "" {
		f, err := os.Create(*outFile)
		if err != nil {
			fatalf("Failed to create output file: %v", err)
		}
		defer f.Close()
		writer = f
	}

	// ── Discover mode ─────────────────────────────────────────────────────
	if *discover {
		profile := schema.Discover(ds)
		if *format == "text" {
			fmt.Fprintln(writer, profile.Summary())
		} else {
			writeJSON(writer, profile, *format)
		}
		return
	}

	settings := pages.SettingsFrom(cfg.Dashboard)

	// ── Page mode ─────────────────────────────────────────────────────────
	if *page != "" {
		params, err := api.ParseParams(pf.values())
		if err != nil {
			fatalf("Invalid page selection: %v", err)
		}
		report, err := pages.Build(*page, ds, params, settings)
		if err != nil {
			fatalf("%v (pages: %s)", err, strings.Join(pages.Names, ", "))
		}
		switch *format {
		case "csv":
			writePageCSV(writer, report)
		case "text":
			writePageText(writer, report)
		default:
			writeJSON(writer, report, *format)
		}
		return
	}

	// ── Query mode ────────────────────────────────────────────────────────
	spec, err := readQuerySpec(*queryStr)
	if err != nil {
		fatalf("Invalid query: %v", err)
	}
	if err := api.ValidateQuery(spec); err != nil {
		fatalf("Invalid query: %v", err)
	}
	result, err := engine.Execute(spec, ds, settings.EngineOptions()...)
	if err != nil {
		fatalf("Execution failed: %v", err)
	}

	switch *format {
	case "csv":
		writeCSV(writer, result)
	case "text":
		reply := result.Reply
		if reply == "" {
			reply = "No result."
		}
		fmt.Fprintln(writer, reply)
	default:
		writeJSON(writer, cliOutput{QuerySpec: engine.NormalizeQuerySpec(spec), Result: result}, *format)
	}
}

type cliOutput struct {
	QuerySpec engine.QuerySpec `json:"querySpec"`
	Result    *engine.Result   `json:"result"`
}

// values maps page flags onto the API query-string keys.
func (pf pageFlags) values() url.Values {
	q := url.Values{}
	set := func(key, v string) {
		if v != "" {
			q.Set(key, v)
		}
	}
	set("patient_id", pf.patient)
	set("city", pf.city)
	set("state", pf.state)
	set("gender", pf.gender)
	set("age_min", pf.ageMin)
	set("age_max", pf.ageMax)
	set("top_n", pf.topN)
	set("doctor", pf.doctor)
	set("drug_category", pf.drug)
	set("condition", pf.condition)
	set("test", pf.tests)
	set("target", pf.target)
	return q
}

// readQuerySpec parses inline JSON or, with a leading @, a JSON file.
func readQuerySpec(s string) (engine.QuerySpec, error) {
	var spec engine.QuerySpec
	data := []byte(s)
	if strings.HasPrefix(s, "@") {
		b, err := os.ReadFile(strings.TrimPrefix(s, "@"))
		if err != nil {
			return spec, err
		}
		data = b
	}
	if err := json.Unmarshal(data, &spec); err != nil {
		return spec, fmt.Errorf("parse QuerySpec: %w", err)
	}
	return spec, nil
}

func loadConfig(path string) *config.Config {
	if path != "" {
		cfg, err := config.Load(path)
		if err != nil {
			logger.WithFields(logrus.Fields{"path": path, "error": err.Error()}).
				Warn("Failed to load config, using defaults")
			return config.LoadFromEnv()
		}
		return cfg
	}
	return config.LoadFromEnv()
}

// ============================================================================
// SERVE MODE
// ============================================================================

func runServer(cfg *config.Config, ds *engine.Dataset) {
	server := api.NewServer(cfg, ds)

	httpServer := &http.Server{
		Addr:         cfg.Addr(),
		Handler:      server.Router(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.WithFields(logrus.Fields{"addr": cfg.Addr(), "load_id": ds.LoadID}).Info("MediTrack API listening")
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Log.Fatalf("HTTP server error: %v", err)
		}
	}()

	// Wait for shutdown signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Log.Info("Shutting down MediTrack...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Log.Errorf("HTTP server shutdown error: %v", err)
	}
	logger.Log.Info("MediTrack stopped")
}

// ============================================================================
// HELPERS
// ============================================================================

func fmtNum(v float64) string {
	// Whole numbers → no decimals, fractional → 2 decimals
	if v == float64(int64(v)) {
		return strconv.FormatInt(int64(v), 10)
	}
	return fmt.Sprintf("%.2f", v)
}

func fatalf(format string, args ...interface{}) {
	fmt.Fprintf(os.Stderr, "Error: "+format+"\n", args...)
	os.Exit(1)
}
