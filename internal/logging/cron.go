package logging

import (
	"log/slog"

	"github.com/robfig/cron/v3"
)

// CronLogger adapts an slog logger to the cron scheduler's logger interface.
// Scheduler chatter is logged at debug level.
type CronLogger struct {
	logger *slog.Logger
}

var _ cron.Logger = (*CronLogger)(nil)

// NewCronLogger returns a cron logger writing to logger, or to the default logger when nil
func NewCronLogger(logger *slog.Logger) *CronLogger {
	if logger == nil {
		logger = slog.Default()
	}
	return &CronLogger{logger: logger}
}

// Info implements cron.Logger
func (l *CronLogger) Info(msg string, keysAndValues ...any) {
	l.logger.Debug(msg, keysAndValues...)
}

// Error implements cron.Logger
func (l *CronLogger) Error(err error, msg string, keysAndValues ...any) {
	l.logger.Error(msg, append(keysAndValues, "error", err)...)
}
