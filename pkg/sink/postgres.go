// pkg/sink/postgres.go
package sink

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"go.uber.org/zap"

	"github.com/David-Botos/sales-pipeline/pkg/config"
	"github.com/David-Botos/sales-pipeline/pkg/converter"
	"github.com/David-Botos/sales-pipeline/pkg/model"
	"github.com/David-Botos/sales-pipeline/pkg/report"
)

const (
	pingTimeout      = 5 * time.Second
	statementTimeout = 30 * time.Second
	insertBatchSize  = 1000
)

// PostgresWriter delivers report tables to PostgreSQL. Each table is
// replaced wholesale inside a transaction, so a failed run never leaves a
// half-written report behind.
type PostgresWriter struct {
	db     *sqlx.DB
	cfg    *config.PostgresConfig
	logger *zap.Logger
}

// NewPostgresWriter connects to PostgreSQL and prepares the target schema.
func NewPostgresWriter(ctx context.Context, cfg *config.PostgresConfig, logger *zap.Logger) (*PostgresWriter, error) {
	if cfg == nil {
		return nil, errors.New("postgres configuration is required")
	}
	if logger == nil {
		return nil, errors.New("logger is required")
	}
	logger = logger.Named("postgres-sink")

	logger.Info("Connecting to PostgreSQL",
		zap.String("host", cfg.Host),
		zap.Int("port", cfg.Port),
		zap.String("database", cfg.Database),
		zap.String("user", cfg.User),
		zap.String("schema", cfg.Schema))

	db, err := sqlx.Open("postgres", cfg.ConnectionString())
	if err != nil {
		return nil, fmt.Errorf("failed to initialize PostgreSQL connection: %w", err)
	}

	applyConnectionSettings(db.DB, cfg)

	if cfg.StatementTimeout > 0 {
		_, err = db.ExecContext(
			ctx,
			fmt.Sprintf("SET statement_timeout = %d", cfg.StatementTimeout.Milliseconds()),
		)
		if err != nil {
			logger.Warn("Failed to set statement timeout", zap.Error(err))
		}
	}

	if err := pingWithTimeout(ctx, db.DB, pingTimeout); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to PostgreSQL: %w", err)
	}

	w := &PostgresWriter{
		db:     db,
		cfg:    cfg,
		logger: logger,
	}

	if err := w.ensureSchema(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create/verify schema %s: %w", cfg.Schema, err)
	}

	logConnectionStats(logger, cfg.Database, db.DB)
	return w, nil
}

// Validate verifies the PostgreSQL connection and required permissions.
func (w *PostgresWriter) Validate(ctx context.Context) error {
	var version string
	if err := w.db.GetContext(ctx, &version, "SELECT version()"); err != nil {
		return fmt.Errorf("failed to query PostgreSQL version: %w", err)
	}
	w.logger.Info("Connected to PostgreSQL", zap.String("version", version))

	_, err := w.db.ExecContext(ctx, `
		DO $$
		BEGIN
			CREATE TEMP TABLE _permission_check (id serial, test text);
			INSERT INTO _permission_check (test) VALUES ('test');
			DROP TABLE _permission_check;
		EXCEPTION WHEN OTHERS THEN
			RAISE EXCEPTION 'Permission check failed: %', SQLERRM;
		END $$;
	`)
	if err != nil {
		return fmt.Errorf("permission validation failed: %w", err)
	}

	w.logger.Info("PostgreSQL connection validated",
		zap.String("database", w.cfg.Database),
		zap.String("schema", w.cfg.Schema))
	return nil
}

// WriteTables replaces every report table, continuing past individual
// failures so one bad table does not block the rest.
func (w *PostgresWriter) WriteTables(ctx context.Context, tables []report.Table) error {
	var errs []string
	for _, table := range tables {
		if err := w.WriteTable(ctx, table); err != nil {
			w.logger.Warn("Failed to deliver report table",
				zap.String("report", table.Name),
				zap.Error(err))
			errs = append(errs, fmt.Sprintf("%s: %v", table.Name, err))
			continue
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("failed to deliver %d report table(s): %s", len(errs), strings.Join(errs, "; "))
	}
	return nil
}

// WriteTable drops and recreates one report table inside a transaction.
func (w *PostgresWriter) WriteTable(ctx context.Context, table report.Table) error {
	if table.Name == "" {
		return errors.New("report table has no name")
	}
	if len(table.Columns) == 0 {
		return fmt.Errorf("report table %s has no columns", table.Name)
	}

	qualified := w.qualifiedName(table.Name)

	tx, err := w.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction for %s: %w", qualified, err)
	}
	defer tx.Rollback()

	if _, err := execWithTimeout(ctx, tx, statementTimeout, "DROP TABLE IF EXISTS "+qualified); err != nil {
		return fmt.Errorf("failed to drop table %s: %w", qualified, err)
	}

	if _, err := execWithTimeout(ctx, tx, statementTimeout, createStatement(table, qualified)); err != nil {
		return fmt.Errorf("failed to create table %s: %w", qualified, err)
	}

	inserted, err := w.insertRows(ctx, tx, table, qualified)
	if err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit table %s: %w", qualified, err)
	}

	w.logger.Info("Replaced report table",
		zap.String("table", qualified),
		zap.Int64("rows", inserted))
	return nil
}

// Close closes the database connection.
func (w *PostgresWriter) Close() error {
	w.logger.Info("Closing PostgreSQL connection")
	logConnectionStats(w.logger, w.cfg.Database, w.db.DB)
	return w.db.Close()
}

// ensureSchema creates the target schema if it doesn't exist.
func (w *PostgresWriter) ensureSchema(ctx context.Context) error {
	_, err := w.db.ExecContext(ctx, "CREATE SCHEMA IF NOT EXISTS "+pq.QuoteIdentifier(w.cfg.Schema))
	return err
}

// qualifiedName returns the schema-qualified, quoted table name.
func (w *PostgresWriter) qualifiedName(table string) string {
	return pq.QuoteIdentifier(w.cfg.Schema) + "." + pq.QuoteIdentifier(table)
}

// insertRows bulk-inserts the table rows in batches of positional placeholders.
func (w *PostgresWriter) insertRows(ctx context.Context, tx *sqlx.Tx, table report.Table, qualified string) (int64, error) {
	if len(table.Rows) == 0 {
		return 0, nil
	}

	quoted := make([]string, len(table.Columns))
	for i, name := range table.Columns {
		quoted[i] = pq.QuoteIdentifier(name)
	}
	columnStr := strings.Join(quoted, ", ")

	var totalInserted int64

	for i := 0; i < len(table.Rows); i += insertBatchSize {
		end := i + insertBatchSize
		if end > len(table.Rows) {
			end = len(table.Rows)
		}
		batch := table.Rows[i:end]

		placeholders := make([]string, len(batch))
		args := make([]interface{}, 0, len(batch)*len(table.Columns))

		for j, row := range batch {
			rowPlaceholders := make([]string, len(table.Columns))
			for k, val := range row {
				paramIndex := j*len(table.Columns) + k + 1
				rowPlaceholders[k] = fmt.Sprintf("$%d", paramIndex)
				args = append(args, val)
			}
			placeholders[j] = fmt.Sprintf("(%s)", strings.Join(rowPlaceholders, ", "))
		}

		query := fmt.Sprintf("INSERT INTO %s (%s) VALUES %s",
			qualified, columnStr, strings.Join(placeholders, ", "))

		result, err := execWithTimeout(ctx, tx, statementTimeout, query, args...)
		if err != nil {
			return totalInserted, fmt.Errorf("batch insert into %s failed: %w", qualified, err)
		}

		rowsAffected, err := result.RowsAffected()
		if err != nil {
			w.logger.Warn("Couldn't get rows affected", zap.Error(err))
		} else {
			totalInserted += rowsAffected
		}
	}

	return totalInserted, nil
}

// createStatement builds the CREATE TABLE statement for a report table,
// inferring column types from the first non-null value in each column.
func createStatement(table report.Table, qualified string) string {
	types := columnTypes(table)
	defs := make([]string, len(table.Columns))
	for i, name := range table.Columns {
		defs[i] = fmt.Sprintf("%s %s", pq.QuoteIdentifier(name), converter.PostgresType(types[i]))
	}
	return fmt.Sprintf("CREATE TABLE %s (\n\t%s\n)", qualified, strings.Join(defs, ",\n\t"))
}

// columnTypes infers a field type per column. Columns with no non-null
// values fall back to string.
func columnTypes(table report.Table) []model.FieldType {
	types := make([]model.FieldType, len(table.Columns))
	for i := range types {
		types[i] = model.TypeString
	}

	for i := range table.Columns {
		for _, row := range table.Rows {
			if i >= len(row) || row[i] == nil {
				continue
			}
			types[i] = fieldTypeOf(row[i])
			break
		}
	}

	return types
}

func fieldTypeOf(value interface{}) model.FieldType {
	switch value.(type) {
	case int64:
		return model.TypeInteger
	case float64:
		return model.TypeFloat
	case bool:
		return model.TypeBoolean
	case time.Time:
		return model.TypeDate
	default:
		return model.TypeString
	}
}

// execWithTimeout executes a statement inside the transaction with a timeout.
func execWithTimeout(ctx context.Context, tx *sqlx.Tx, timeout time.Duration, query string, args ...interface{}) (sql.Result, error) {
	execCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	return tx.ExecContext(execCtx, query, args...)
}

// applyConnectionSettings configures database connection pool settings.
func applyConnectionSettings(db *sql.DB, cfg *config.PostgresConfig) {
	if cfg.MaxOpenConns > 0 {
		db.SetMaxOpenConns(cfg.MaxOpenConns)
	}
	if cfg.MaxIdleConns > 0 {
		db.SetMaxIdleConns(cfg.MaxIdleConns)
	}
	if cfg.ConnMaxLifetime > 0 {
		db.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	}
	if cfg.ConnMaxIdleTime > 0 {
		db.SetConnMaxIdleTime(cfg.ConnMaxIdleTime)
	}
}

// pingWithTimeout attempts to ping the database with a timeout.
func pingWithTimeout(ctx context.Context, db *sql.DB, timeout time.Duration) error {
	pingCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	errCh := make(chan error, 1)
	go func() {
		errCh <- db.PingContext(pingCtx)
	}()

	select {
	case err := <-errCh:
		return err
	case <-pingCtx.Done():
		return fmt.Errorf("ping timed out after %v: %w", timeout, pingCtx.Err())
	}
}

// logConnectionStats logs connection pool statistics.
func logConnectionStats(logger *zap.Logger, name string, db *sql.DB) {
	stats := db.Stats()
	logger.Debug("Connection pool stats",
		zap.String("database", name),
		zap.Int("open_connections", stats.OpenConnections),
		zap.Int("in_use", stats.InUse),
		zap.Int("idle", stats.Idle),
		zap.Int("max_open", stats.MaxOpenConnections))
}
