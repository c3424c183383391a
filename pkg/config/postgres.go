// pkg/config/postgres.go
package config

import (
	"fmt"
	"os"
	"strings"
	"time"
)

// PostgresConfig holds PostgreSQL connection parameters for the report sink
type PostgresConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	Database string
	SSLMode  string

	// Schema the report tables are written into
	Schema string

	// Pool and timeout tuning for the sink connection
	MaxOpenConns     int
	MaxIdleConns     int
	ConnMaxLifetime  time.Duration
	ConnMaxIdleTime  time.Duration
	StatementTimeout time.Duration
}

// LoadPostgresConfig reads the report sink connection settings from the
// environment. POSTGRES_USER, POSTGRES_PASSWORD and POSTGRES_DB must be set.
func LoadPostgresConfig() (*PostgresConfig, error) {
	user, err := requireEnv("POSTGRES_USER")
	if err != nil {
		return nil, err
	}
	password, err := requireEnv("POSTGRES_PASSWORD")
	if err != nil {
		return nil, err
	}
	database, err := requireEnv("POSTGRES_DB")
	if err != nil {
		return nil, err
	}

	cfg := &PostgresConfig{
		Host:     getEnv("POSTGRES_HOST", "localhost"),
		Port:     getEnvAsInt("POSTGRES_PORT", 5432),
		User:     user,
		Password: password,
		Database: database,
		SSLMode:  getEnv("POSTGRES_SSLMODE", "disable"),
		Schema:   getEnv("POSTGRES_SCHEMA", "public"),

		MaxOpenConns:     getEnvAsInt("POSTGRES_MAX_OPEN_CONNS", 10),
		MaxIdleConns:     getEnvAsInt("POSTGRES_MAX_IDLE_CONNS", 5),
		ConnMaxLifetime:  secondsEnv("POSTGRES_CONN_MAX_LIFETIME_SECONDS", 1800),
		ConnMaxIdleTime:  secondsEnv("POSTGRES_CONN_MAX_IDLE_TIME_SECONDS", 600),
		StatementTimeout: secondsEnv("POSTGRES_STATEMENT_TIMEOUT_SECONDS", 300),
	}

	return cfg, nil
}

// ConnectionString renders the lib/pq keyword/value DSN for this config
func (c *PostgresConfig) ConnectionString() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Database, c.SSLMode)
}

func requireEnv(key string) (string, error) {
	value := os.Getenv(key)
	if value == "" {
		return "", fmt.Errorf("%s environment variable is required", key)
	}
	return value, nil
}

// secondsEnv reads an integer second count from the environment as a Duration
func secondsEnv(key string, defaultSeconds int) time.Duration {
	return time.Duration(getEnvAsInt(key, defaultSeconds)) * time.Second
}

// getEnvAsStringSlice parses a comma-delimited environment variable, falling
// back to defaultValue when the variable is unset or yields no entries
func getEnvAsStringSlice(key string, defaultValue []string) []string {
	raw := os.Getenv(key)
	if raw == "" {
		return defaultValue
	}

	var entries []string
	for _, entry := range splitCommaDelimited(raw) {
		if entry != "" {
			entries = append(entries, entry)
		}
	}
	if len(entries) == 0 {
		return defaultValue
	}
	return entries
}

// splitCommaDelimited splits a comma separated list, honoring double quotes
// so that entries such as column names may contain commas
func splitCommaDelimited(s string) []string {
	entries := make([]string, 0)
	var field strings.Builder
	quoted := false

	for _, r := range s {
		switch {
		case r == '"':
			quoted = !quoted
		case r == ',' && !quoted:
			entries = append(entries, trimEntry(field.String()))
			field.Reset()
		default:
			field.WriteRune(r)
		}
	}
	if field.Len() > 0 {
		entries = append(entries, trimEntry(field.String()))
	}

	return entries
}

// trimEntry drops surrounding whitespace from a list entry. Interior spaces
// survive because real column names contain them.
func trimEntry(s string) string {
	return strings.Trim(s, " \t")
}
