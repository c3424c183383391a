// pkg/config/config.go
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
)

// DefaultDropColumns is the deny list of known-redundant columns removed
// during pruning regardless of their missing-value fraction.
var DefaultDropColumns = []string{
	"Address",
	"Vendor Number",
	"Item Number",
	"Pack",
	"Bottle Volume (ml)",
	"State Bottle Cost",
	"State Bottle Retail",
}

// Config represents the application configuration
type Config struct {
	Input  InputConfig
	Clean  CleanConfig
	Report ReportConfig

	// Optional report-table destination; nil when the sink is disabled
	Postgres *PostgresConfig

	// Logging
	LogLevel  string
	LogFormat string
}

// InputConfig holds settings for the input file and its sampling.
type InputConfig struct {
	Path       string // Path to the input file
	Format     string // "auto", "csv" or "parquet"
	SampleRows int64  // Rows sampled for size estimation
	AuditRows  int64  // Upper bound on rows scanned by the missing-value audit
	BatchSize  int    // Rows per streaming batch
}

// CleanConfig holds the cleaning-stage settings.
type CleanConfig struct {
	MissingThreshold float64  // Null-fraction above which a column is dropped
	DropColumns      []string // Always-drop deny list
	DateColumn       string   // Column decomposed into date parts
	CategoryColumn   string   // Free-text column fed to the category mapper
}

// ReportConfig holds the reporting collaborator settings.
type ReportConfig struct {
	OutputDir     string // Directory report CSVs are written to
	CleanedPath   string // Optional cleaned-record CSV export; empty disables it
	SinkEnabled   bool   // Persist report tables to Postgres
	TopCategories int
	TopProducts   int
	TopCounties   int
	TopCities     int
}

// LoadConfig loads configuration from environment variables
func LoadConfig() (*Config, error) {
	cfg := &Config{
		Input: InputConfig{
			Path:       getEnv("SALES_INPUT_PATH", ""),
			Format:     getEnv("SALES_INPUT_FORMAT", "auto"),
			SampleRows: int64(getEnvAsInt("SALES_SAMPLE_ROWS", 100000)),
			AuditRows:  int64(getEnvAsInt("SALES_AUDIT_ROWS", 2000000)),
			BatchSize:  getEnvAsInt("SALES_BATCH_SIZE", 10000),
		},
		Clean: CleanConfig{
			MissingThreshold: getEnvAsFloat("SALES_MISSING_THRESHOLD", 0.10),
			DropColumns:      getEnvAsStringSlice("SALES_DROP_COLUMNS", DefaultDropColumns),
			DateColumn:       getEnv("SALES_DATE_COLUMN", "Date"),
			CategoryColumn:   getEnv("SALES_CATEGORY_COLUMN", "Category Name"),
		},
		Report: ReportConfig{
			OutputDir:     getEnv("SALES_REPORT_DIR", "reports"),
			CleanedPath:   getEnv("SALES_CLEANED_PATH", ""),
			SinkEnabled:   getEnvAsBool("SALES_SINK_ENABLED", false),
			TopCategories: getEnvAsInt("SALES_TOP_CATEGORIES", 10),
			TopProducts:   getEnvAsInt("SALES_TOP_PRODUCTS", 20),
			TopCounties:   getEnvAsInt("SALES_TOP_COUNTIES", 15),
			TopCities:     getEnvAsInt("SALES_TOP_CITIES", 20),
		},
		LogLevel:  getEnv("LOG_LEVEL", "info"),
		LogFormat: getEnv("LOG_FORMAT", "json"),
	}

	// The Postgres sink is opt-in; its settings are only required when enabled
	if cfg.Report.SinkEnabled {
		pgConfig, err := LoadPostgresConfig()
		if err != nil {
			return nil, errors.New("failed to load PostgreSQL configuration: " + err.Error())
		}
		cfg.Postgres = pgConfig
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate ensures all required configuration is present and valid
func (c *Config) Validate() error {
	if c.Input.Path == "" {
		return errors.New("SALES_INPUT_PATH environment variable is required")
	}

	switch c.Input.Format {
	case "auto", "csv", "parquet":
	default:
		return fmt.Errorf("unsupported input format %q (expected auto, csv or parquet)", c.Input.Format)
	}

	if c.Input.SampleRows <= 0 {
		return errors.New("sample rows must be positive")
	}

	if c.Input.AuditRows <= 0 {
		return errors.New("audit rows must be positive")
	}

	if c.Input.BatchSize <= 0 {
		return errors.New("batch size must be positive")
	}

	if c.Clean.MissingThreshold < 0 || c.Clean.MissingThreshold > 1 {
		return errors.New("missing-value threshold must be between 0 and 1")
	}

	if c.Clean.DateColumn == "" {
		return errors.New("date column must not be empty")
	}

	if c.Clean.CategoryColumn == "" {
		return errors.New("category column must not be empty")
	}

	if c.Report.OutputDir == "" {
		return errors.New("report output directory must not be empty")
	}

	if c.Report.SinkEnabled && c.Postgres == nil {
		return errors.New("postgreSQL configuration is required when the report sink is enabled")
	}

	return nil
}

// Helper functions for environment variables
func getEnv(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}

	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}

	value, err := strconv.ParseFloat(valueStr, 64)
	if err != nil {
		return defaultValue
	}
	return value
}

func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}

	value, err := strconv.ParseBool(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}
