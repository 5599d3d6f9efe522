package app

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/zlovtnik/stripe-lunar/internal/app"
	"github.com/zlovtnik/stripe-lunar/internal/etl"
	"github.com/zlovtnik/stripe-lunar/internal/executor"
	"github.com/zlovtnik/stripe-lunar/internal/ledger"
	"github.com/zlovtnik/stripe-lunar/internal/orchestrator"
)

var syncCmd = &cobra.Command{
	Use:   "sync <operation>",
	Short: "Run a single ETL operation and print the outcome",
	Long: `Run one ETL operation outside the server and print the job record as JSON.

Operations: syncCustomers, syncPayments, syncAll, status.

The run is recorded in the configured job history. Use --retry to redeliver
upstream failures with the configured retry policy, as scheduled runs do.`,
	Args:      cobra.ExactArgs(1),
	ValidArgs: operationNames(),
	RunE:      runSync,
}

func init() {
	syncCmd.Flags().String("config", "", "Path to configuration file (YAML format)")
	syncCmd.Flags().Bool("retry", false, "Retry upstream failures using the configured retry policy")
}

// SyncOutput is printed by the sync command
type SyncOutput struct {
	Job    *ledger.Record   `json:"job"`
	Result *executor.Result `json:"result,omitempty"`
	Error  string           `json:"error,omitempty"`
}

func operationNames() []string {
	ops := etl.Operations()
	names := make([]string, len(ops))
	for i, op := range ops {
		names[i] = op.String()
	}
	return names
}

func runSync(cmd *cobra.Command, args []string) error {
	configPath, err := cmd.Flags().GetString("config")
	if err != nil {
		return fmt.Errorf("failed to get config flag: %w", err)
	}
	retry, err := cmd.Flags().GetBool("retry")
	if err != nil {
		return fmt.Errorf("failed to get retry flag: %w", err)
	}

	cfg, err := loadConfig(configPath)
	if err != nil {
		return err
	}

	// A one-off run needs neither scheduler
	disabled := false
	cfg.Schedule.Enabled = &disabled
	cfg.Summary.Enabled = &disabled

	ctx := commandContext(cmd)
	etlApp, err := app.NewETLApp(ctx, app.WithConfig(cfg))
	if err != nil {
		return fmt.Errorf("failed to build application: %w", err)
	}
	defer func() {
		if err := etlApp.Stop(cfg.Server.GetShutdownTimeout()); err != nil {
			slog.Error("Failed to shut down", "error", err)
		}
	}()

	return syncOperation(ctx, etlApp.GetComponents().Orchestrator, args[0], retry, cmd.OutOrStdout())
}

// syncOperation runs op through runner and writes the outcome to w.
// A failed run is still printed when the ledger recorded it.
func syncOperation(ctx context.Context, runner orchestrator.Runner, op string, retry bool, w io.Writer) error {
	run := runner.Run
	if retry {
		run = runner.RunWithRetry
	}

	exec, runErr := run(ctx, op)
	if exec == nil {
		return runErr
	}

	out := SyncOutput{Job: exec.Job, Result: exec.Result}
	if runErr != nil {
		out.Error = runErr.Error()
	}

	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(out); err != nil {
		return fmt.Errorf("failed to write result: %w", err)
	}
	return runErr
}
