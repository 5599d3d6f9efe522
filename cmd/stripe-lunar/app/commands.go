// Package app provides the command line interface of the Stripe-Lunar ETL server.
package app

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/zlovtnik/stripe-lunar/internal/config"
	"github.com/zlovtnik/stripe-lunar/internal/logging"
	"github.com/zlovtnik/stripe-lunar/internal/versions"
)

var rootCmd = &cobra.Command{
	Use:               "stripe-lunar",
	DisableAutoGenTag: true,
	Short:             "Stripe-Lunar ETL server",
	Long: `Stripe-Lunar synchronizes customers and payments from Stripe into a local store,
records every run in a job history ledger and serves REST endpoints to trigger,
inspect and export those runs.`,
	PersistentPreRun: func(_ *cobra.Command, _ []string) {
		if viper.GetBool("debug") {
			slog.SetDefault(logging.New(logging.WithLevel(slog.LevelDebug), logging.WithFormat(logFormat())))
		}
	},
	Run: func(cmd *cobra.Command, _ []string) {
		// If no subcommand is provided, print help
		if err := cmd.Help(); err != nil {
			slog.Error("Error displaying help", "error", err)
		}
	},
}

// NewRootCmd creates a new root command for the ETL server.
func NewRootCmd() *cobra.Command {
	// Add persistent flags
	rootCmd.PersistentFlags().Bool("debug", false, "Log at debug level")
	err := viper.BindPFlag("debug", rootCmd.PersistentFlags().Lookup("debug"))
	if err != nil {
		slog.Error("Error binding debug flag", "error", err)
	}

	// Add subcommands
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(syncCmd)
	rootCmd.AddCommand(exportCmd)
	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(migrateCmd)

	return rootCmd
}

// logFormat reads STRIPE_LUNAR_LOG_FORMAT the same way main does
func logFormat() string {
	v := viper.New()
	v.SetEnvPrefix(config.EnvPrefix)
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	return v.GetString("LOG_FORMAT")
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	RunE: func(cmd *cobra.Command, _ []string) error {
		format, err := cmd.Flags().GetString("format")
		if err != nil {
			return fmt.Errorf("failed to get format flag: %w", err)
		}
		return printVersion(cmd, format)
	},
}

func printVersion(cmd *cobra.Command, format string) error {
	info := versions.GetVersionInfo()
	if format == "json" {
		output, err := json.MarshalIndent(info, "", "  ")
		if err != nil {
			return fmt.Errorf("error formatting version info as JSON: %w", err)
		}
		_, err = fmt.Fprintln(cmd.OutOrStdout(), string(output))
		return err
	}
	_, err := fmt.Fprint(cmd.OutOrStdout(), info.String())
	return err
}

func init() {
	versionCmd.Flags().String("format", "", "Output format (json)")
}
