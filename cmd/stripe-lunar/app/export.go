package app

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/zlovtnik/stripe-lunar/internal/api/jobs"
	"github.com/zlovtnik/stripe-lunar/internal/app/storage"
	"github.com/zlovtnik/stripe-lunar/internal/config"
	"github.com/zlovtnik/stripe-lunar/internal/export"
	"github.com/zlovtnik/stripe-lunar/internal/ledger"
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export the job history as CSV",
	Long: `Export the job history ledger as CSV, in the same format as GET /api/jobs/export.

--job-name selects every run of one operation and takes precedence over --start-date.
Without either, the runs of the last 30 days are exported.

Examples:
  # Export all payment syncs to a file
  stripe-lunar export --config config.yaml --job-name syncPayments --output payments.csv

  # Export every run since the first of the month to stdout
  stripe-lunar export --config config.yaml --start-date 2024-06-01T00:00:00`,
	RunE: runExport,
}

func init() {
	exportCmd.Flags().String("config", "", "Path to configuration file (YAML format)")
	exportCmd.Flags().String("job-name", "", "Export only runs of this operation")
	exportCmd.Flags().String("start-date", "", "Export runs started after this instant (RFC 3339 or 2006-01-02T15:04:05)")
	exportCmd.Flags().StringP("output", "o", "", "Write to this file instead of stdout")
}

func runExport(cmd *cobra.Command, _ []string) error {
	configPath, err := cmd.Flags().GetString("config")
	if err != nil {
		return fmt.Errorf("failed to get config flag: %w", err)
	}
	jobName, err := cmd.Flags().GetString("job-name")
	if err != nil {
		return fmt.Errorf("failed to get job-name flag: %w", err)
	}
	startDate, err := cmd.Flags().GetString("start-date")
	if err != nil {
		return fmt.Errorf("failed to get start-date flag: %w", err)
	}
	output, err := cmd.Flags().GetString("output")
	if err != nil {
		return fmt.Errorf("failed to get output flag: %w", err)
	}

	filter, err := exportFilter(jobName, startDate)
	if err != nil {
		return err
	}

	cfg, err := loadConfig(configPath)
	if err != nil {
		return err
	}
	if cfg.Storage.Type == config.StorageTypeMemory {
		slog.Warn("Memory storage keeps no history between processes; the export will be empty")
	}

	ctx := commandContext(cmd)
	factory, err := storage.NewStorageFactory(ctx, cfg)
	if err != nil {
		return fmt.Errorf("failed to create storage factory: %w", err)
	}
	defer factory.Cleanup()

	l, err := factory.CreateLedger(ctx)
	if err != nil {
		return fmt.Errorf("failed to create ledger: %w", err)
	}

	w := cmd.OutOrStdout()
	if output != "" {
		f, err := os.Create(filepath.Clean(output))
		if err != nil {
			return fmt.Errorf("failed to create output file: %w", err)
		}
		defer func() {
			if err := f.Close(); err != nil {
				slog.Error("Failed to close output file", "error", err)
			}
		}()
		w = f
	}

	return writeExport(ctx, l, filter, time.Now(), w)
}

func exportFilter(jobName, startDate string) (export.Filter, error) {
	filter := export.Filter{JobName: jobName}
	if startDate != "" {
		since, err := jobs.ParseStartDate(startDate)
		if err != nil {
			return export.Filter{}, fmt.Errorf("invalid start date %q: %w", startDate, err)
		}
		filter.Since = &since
	}
	return filter, nil
}

func writeExport(ctx context.Context, l ledger.Ledger, filter export.Filter, now time.Time, w io.Writer) error {
	records, err := export.Jobs(ctx, l, filter, now)
	if err != nil {
		return fmt.Errorf("failed to load job history: %w", err)
	}
	if err := export.WriteCSV(w, records); err != nil {
		return fmt.Errorf("failed to write CSV: %w", err)
	}
	slog.Info("Exported job history", "records", len(records))
	return nil
}
