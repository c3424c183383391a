// cmd/salespipe/main.go
// salespipe runs the sales cleaning pipeline once over the configured input
// file: estimate, clean, report, verify. Configuration comes from the
// environment; see pkg/config for the variables.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/David-Botos/sales-pipeline/pkg/config"
	"github.com/David-Botos/sales-pipeline/pkg/pipeline"
)

func main() {
	// A missing .env is fine, the environment may already be populated.
	_ = godotenv.Load()

	cfg, err := config.LoadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "configuration error: %v\n", err)
		os.Exit(1)
	}

	logger, err := buildLogger(cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger error: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	p, err := pipeline.New(cfg, logger)
	if err != nil {
		logger.Fatal("Failed to build pipeline", zap.Error(err))
	}

	summary, err := p.Run(ctx)
	if err != nil {
		var perr *pipeline.PipelineError
		if errors.As(err, &perr) {
			logger.Error("Pipeline run failed",
				zap.String("category", perr.Category.String()),
				zap.String("action", perr.Action.String()),
				zap.Error(err))
		} else {
			logger.Error("Pipeline run failed", zap.Error(err))
		}
		logger.Sync()
		os.Exit(1)
	}

	logger.Info("Run summary",
		zap.String("run_id", summary.RunID),
		zap.String("input", summary.InputPath),
		zap.String("estimate", summary.Estimate.String()),
		zap.Int64("rows_read", summary.RowsRead),
		zap.Int64("rows_written", summary.RowsWritten),
		zap.Strings("dropped_columns", summary.DroppedColumns),
		zap.Strings("skipped_stages", summary.SkippedStages),
		zap.Strings("reports", summary.Reports),
		zap.Strings("failed_reports", summary.FailedReports),
		zap.Strings("findings", summary.Findings),
		zap.Duration("duration", summary.Duration()))
}

// buildLogger maps the configured level and format onto a zap logger. The
// json format uses production defaults, console the development ones.
func buildLogger(level, format string) (*zap.Logger, error) {
	lvl, err := zapcore.ParseLevel(level)
	if err != nil {
		return nil, fmt.Errorf("invalid log level %q: %w", level, err)
	}

	var cfg zap.Config
	switch format {
	case "json":
		cfg = zap.NewProductionConfig()
	case "console":
		cfg = zap.NewDevelopmentConfig()
	default:
		return nil, fmt.Errorf("invalid log format %q (expected json or console)", format)
	}
	cfg.Level = zap.NewAtomicLevelAt(lvl)

	return cfg.Build()
}
