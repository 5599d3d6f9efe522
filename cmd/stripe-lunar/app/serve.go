package app

import (
	"context"
	"fmt"
	"log/slog"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/zlovtnik/stripe-lunar/internal/app"
	"github.com/zlovtnik/stripe-lunar/internal/config"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the ETL API server and schedulers",
	Long: `Start the ETL API server, the scheduled syncs and the periodic job summaries.

The configuration file (--config) selects:
- Storage backend (memory or PostgreSQL)
- Stripe credentials and webhook signing secret
- Sync and summary schedules, retry policy and email notifications
- Telemetry exporters

Without --config the built-in defaults are used. See examples/ for sample configurations.`,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().String("address", "", "Address to listen on (overrides server.address)")
	serveCmd.Flags().String("config", "", "Path to configuration file (YAML format)")

	err := viper.BindPFlag("address", serveCmd.Flags().Lookup("address"))
	if err != nil {
		slog.Error("Failed to bind address flag", "error", err)
	}
	err = viper.BindPFlag("config", serveCmd.Flags().Lookup("config"))
	if err != nil {
		slog.Error("Failed to bind config flag", "error", err)
	}
}

// loadConfig loads the file at path, or the defaults when path is empty
func loadConfig(path string) (*config.Config, error) {
	var opts []config.Option
	if path != "" {
		opts = append(opts, config.WithConfigPath(path))
	}

	cfg, err := config.LoadConfig(opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	if path != "" {
		slog.Info("Loaded configuration", "path", path, "storage", cfg.Storage.Type)
	} else {
		slog.Info("No configuration file given, using defaults", "storage", cfg.Storage.Type)
	}
	return cfg, nil
}

func runServe(cmd *cobra.Command, _ []string) error {
	ctx, stop := signal.NotifyContext(commandContext(cmd), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := loadConfig(viper.GetString("config"))
	if err != nil {
		return err
	}

	opts := []app.ETLAppOptions{app.WithConfig(cfg)}
	if address := viper.GetString("address"); address != "" {
		opts = append(opts, app.WithAddress(address))
	}

	etlApp, err := app.NewETLApp(ctx, opts...)
	if err != nil {
		return fmt.Errorf("failed to build application: %w", err)
	}

	slog.Info("Starting Stripe-Lunar ETL server", "address", etlApp.GetHTTPServer().Addr)

	startErr := etlApp.Start(ctx)
	if startErr != nil {
		slog.Error("Server stopped with error", "error", startErr)
	}

	if err := etlApp.Stop(cfg.Server.GetShutdownTimeout()); err != nil {
		return err
	}
	return startErr
}

// commandContext returns the command's context, or Background when the command runs outside Execute
func commandContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}
