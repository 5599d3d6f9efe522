// Package main is the entry point for the Stripe-Lunar ETL server.
package main

import (
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/viper"

	"github.com/zlovtnik/stripe-lunar/cmd/stripe-lunar/app"
	"github.com/zlovtnik/stripe-lunar/internal/config"
	"github.com/zlovtnik/stripe-lunar/internal/logging"
)

// getLogSettings reads STRIPE_LUNAR_LOG_LEVEL and STRIPE_LUNAR_LOG_FORMAT.
// LOG_LEVEL is accepted as a fallback for the level.
func getLogSettings() (slog.Level, string) {
	v := viper.New()
	v.SetEnvPrefix(config.EnvPrefix)
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	levelStr := v.GetString("LOG_LEVEL")
	if levelStr == "" {
		levelStr = os.Getenv("LOG_LEVEL")
	}

	level, ok := logging.ParseLevel(levelStr)
	if !ok {
		slog.Warn("Invalid LOG_LEVEL, using INFO", "value", levelStr)
	}
	return level, v.GetString("LOG_FORMAT")
}

func main() {
	// Logs go to stderr so stdout stays clean for command output (sync, export, version --format json)
	level, format := getLogSettings()
	slog.SetDefault(logging.New(logging.WithLevel(level), logging.WithFormat(format)))

	if err := app.NewRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
