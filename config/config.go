package config

import (
	"fmt"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"
)

// TopNChoices are the category limits the dashboards offer.
var TopNChoices = []int{5, 10, 15, 20}

type Config struct {
	Data      DataConfig      `yaml:"data"`
	Server    ServerConfig    `yaml:"server"`
	Log       LogConfig       `yaml:"log"`
	Dashboard DashboardConfig `yaml:"dashboard"`
}

type DataConfig struct {
	Path   string `yaml:"path"`
	Format string `yaml:"format"` // auto, csv, parquet
}

type ServerConfig struct {
	Host           string   `yaml:"host"`
	Port           int      `yaml:"port"`
	AllowedOrigins []string `yaml:"allowed_origins"`
}

type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"` // json, text
}

type DashboardConfig struct {
	TopN             int     `yaml:"top_n"`
	TurnaroundTarget float64 `yaml:"turnaround_target"`
	TrendLimit       int     `yaml:"trend_limit"`
	MonthlyBucket    *bool   `yaml:"monthly_bucket,omitempty"`
	SystolicLimit    float64 `yaml:"systolic_limit"`
	DiastolicLimit   float64 `yaml:"diastolic_limit"`
	HbA1cThreshold   float64 `yaml:"hba1c_threshold"`
	LDLThreshold     float64 `yaml:"ldl_threshold"`
}

// Monthly reports whether trends bucket dates by calendar month.
func (d DashboardConfig) Monthly() bool {
	return d.MonthlyBucket == nil || *d.MonthlyBucket
}

func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	// Expand environment variables
	data = []byte(os.ExpandEnv(string(data)))

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}

	applyEnv(&cfg)
	setDefaults(&cfg)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func LoadFromEnv() *Config {
	cfg := &Config{}
	applyEnv(cfg)
	setDefaults(cfg)
	return cfg
}

// Validate rejects knob values the dashboards cannot honour.
func (c *Config) Validate() error {
	if !ValidTopN(c.Dashboard.TopN) {
		return fmt.Errorf("dashboard.top_n must be one of %v, got %d", TopNChoices, c.Dashboard.TopN)
	}
	if c.Dashboard.TurnaroundTarget < 0 {
		return fmt.Errorf("dashboard.turnaround_target must not be negative")
	}
	switch c.Data.Format {
	case "auto", "csv", "parquet":
	default:
		return fmt.Errorf("data.format must be auto, csv or parquet, got %q", c.Data.Format)
	}
	return nil
}

// ValidTopN reports whether n is one of TopNChoices.
func ValidTopN(n int) bool {
	for _, c := range TopNChoices {
		if c == n {
			return true
		}
	}
	return false
}

func (c *Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.Port)
}

func applyEnv(cfg *Config) {
	cfg.Data.Path = getEnv("MEDITRACK_DATA_PATH", cfg.Data.Path)
	cfg.Data.Format = getEnv("MEDITRACK_DATA_FORMAT", cfg.Data.Format)
	cfg.Server.Host = getEnv("MEDITRACK_HOST", cfg.Server.Host)
	cfg.Server.Port = getIntEnv("MEDITRACK_PORT", cfg.Server.Port)
	cfg.Log.Level = getEnv("LOG_LEVEL", cfg.Log.Level)
	cfg.Log.Format = getEnv("LOG_FORMAT", cfg.Log.Format)
	cfg.Dashboard.TurnaroundTarget = getFloatEnv("MEDITRACK_TURNAROUND_TARGET", cfg.Dashboard.TurnaroundTarget)
}

func setDefaults(cfg *Config) {
	if cfg.Data.Format == "" {
		cfg.Data.Format = "auto"
	}
	if cfg.Server.Host == "" {
		cfg.Server.Host = "0.0.0.0"
	}
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8501
	}
	if len(cfg.Server.AllowedOrigins) == 0 {
		cfg.Server.AllowedOrigins = []string{"*"}
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "json"
	}
	if cfg.Dashboard.TopN == 0 {
		cfg.Dashboard.TopN = 10
	}
	if cfg.Dashboard.TurnaroundTarget == 0 {
		cfg.Dashboard.TurnaroundTarget = 24
	}
	if cfg.Dashboard.TrendLimit == 0 {
		cfg.Dashboard.TrendLimit = 200
	}
	if cfg.Dashboard.SystolicLimit == 0 {
		cfg.Dashboard.SystolicLimit = 140
	}
	if cfg.Dashboard.DiastolicLimit == 0 {
		cfg.Dashboard.DiastolicLimit = 90
	}
	if cfg.Dashboard.HbA1cThreshold == 0 {
		cfg.Dashboard.HbA1cThreshold = 7
	}
	if cfg.Dashboard.LDLThreshold == 0 {
		cfg.Dashboard.LDLThreshold = 130
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getIntEnv(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getFloatEnv(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
	}
	return defaultValue
}
