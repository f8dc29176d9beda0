package config

import (
	"os"
	"path/filepath"
	"testing"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "meditrack.yaml")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("Failed to write config: %v", err)
	}
	return path
}

func TestLoad(t *testing.T) {
	t.Setenv("MEDITRACK_TEST_DIR", "/srv/data")
	path := writeConfig(t, `
data:
  path: "${MEDITRACK_TEST_DIR}/visits.csv"
  format: csv
server:
  host: 127.0.0.1
  port: 9000
log:
  level: debug
  format: text
dashboard:
  top_n: 15
  turnaround_target: 36
  trend_limit: 50
  monthly_bucket: false
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Data.Path != "/srv/data/visits.csv" {
		t.Errorf("Expected expanded data path, got %q", cfg.Data.Path)
	}
	if cfg.Data.Format != "csv" {
		t.Errorf("Expected format csv, got %q", cfg.Data.Format)
	}
	if cfg.Addr() != "127.0.0.1:9000" {
		t.Errorf("Expected addr 127.0.0.1:9000, got %q", cfg.Addr())
	}
	if cfg.Log.Level != "debug" || cfg.Log.Format != "text" {
		t.Errorf("Unexpected log config: %+v", cfg.Log)
	}
	if cfg.Dashboard.TopN != 15 {
		t.Errorf("Expected top_n 15, got %d", cfg.Dashboard.TopN)
	}
	if cfg.Dashboard.TurnaroundTarget != 36 {
		t.Errorf("Expected turnaround target 36, got %v", cfg.Dashboard.TurnaroundTarget)
	}
	if cfg.Dashboard.TrendLimit != 50 {
		t.Errorf("Expected trend limit 50, got %d", cfg.Dashboard.TrendLimit)
	}
	if cfg.Dashboard.Monthly() {
		t.Error("Expected monthly bucketing disabled")
	}
	// untouched knobs fall back to defaults
	if cfg.Dashboard.SystolicLimit != 140 || cfg.Dashboard.DiastolicLimit != 90 {
		t.Errorf("Expected BP defaults 140/90, got %v/%v", cfg.Dashboard.SystolicLimit, cfg.Dashboard.DiastolicLimit)
	}
}

func TestLoadRejectsInvalidTopN(t *testing.T) {
	path := writeConfig(t, "dashboard:\n  top_n: 7\n")
	if _, err := Load(path); err == nil {
		t.Fatal("Expected error for top_n outside the selector choices")
	}
}

func TestLoadRejectsUnknownFormat(t *testing.T) {
	path := writeConfig(t, "data:\n  format: xlsx\n")
	if _, err := Load(path); err == nil {
		t.Fatal("Expected error for unsupported data format")
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Fatal("Expected error for missing config file")
	}
}

func TestLoadFromEnvDefaults(t *testing.T) {
	t.Setenv("MEDITRACK_DATA_PATH", "visits.parquet")
	t.Setenv("MEDITRACK_PORT", "8088")
	t.Setenv("MEDITRACK_TURNAROUND_TARGET", "12")

	cfg := LoadFromEnv()

	if cfg.Data.Path != "visits.parquet" {
		t.Errorf("Expected data path from env, got %q", cfg.Data.Path)
	}
	if cfg.Server.Port != 8088 {
		t.Errorf("Expected port 8088, got %d", cfg.Server.Port)
	}
	if cfg.Dashboard.TurnaroundTarget != 12 {
		t.Errorf("Expected turnaround target 12, got %v", cfg.Dashboard.TurnaroundTarget)
	}
	if cfg.Dashboard.TopN != 10 {
		t.Errorf("Expected default top_n 10, got %d", cfg.Dashboard.TopN)
	}
	if cfg.Dashboard.TrendLimit != 200 {
		t.Errorf("Expected default trend limit 200, got %d", cfg.Dashboard.TrendLimit)
	}
	if !cfg.Dashboard.Monthly() {
		t.Error("Expected monthly bucketing by default")
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("Defaults should validate: %v", err)
	}
}

func TestValidTopN(t *testing.T) {
	for _, n := range []int{5, 10, 15, 20} {
		if !ValidTopN(n) {
			t.Errorf("ValidTopN(%d) = false", n)
		}
	}
	for _, n := range []int{0, 3, 25} {
		if ValidTopN(n) {
			t.Errorf("ValidTopN(%d) = true", n)
		}
	}
}
