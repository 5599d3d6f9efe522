// Package config provides configuration loading and management for the ETL service.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/robfig/cron/v3"
	"gopkg.in/yaml.v3"

	"github.com/zlovtnik/stripe-lunar/internal/telemetry"
)

const (
	// StorageTypeMemory keeps customers, payments and job history in process memory
	StorageTypeMemory = "memory"

	// StorageTypeDatabase keeps everything in PostgreSQL
	StorageTypeDatabase = "database"
)

const (
	// DefaultAddress is the HTTP listen address
	DefaultAddress = ":8080"

	// DefaultRequestTimeout bounds a single HTTP request
	DefaultRequestTimeout = "30s"

	// DefaultShutdownTimeout bounds graceful shutdown
	DefaultShutdownTimeout = "30s"

	// DefaultPageLimit is the page size requested from the payment platform
	DefaultPageLimit = 100

	// DefaultStripeRequestTimeout bounds a single call to the payment platform
	DefaultStripeRequestTimeout = "30s"

	// DefaultMaxRedeliveries is the number of retries after the first attempt
	DefaultMaxRedeliveries = 3

	// DefaultInitialInterval is the wait before the first retry
	DefaultInitialInterval = "1s"

	// DefaultMultiplier scales the wait after each retry
	DefaultMultiplier = 2.0

	// DefaultMaxInterval caps the wait between retries
	DefaultMaxInterval = "1m"

	// DefaultAttemptTimeout bounds a single executor attempt
	DefaultAttemptTimeout = "30s"

	// DefaultCustomerSyncSchedule runs the customer sync at midnight
	DefaultCustomerSyncSchedule = "0 0 * * *"

	// DefaultPaymentSyncSchedule runs the payment sync at 01:00
	DefaultPaymentSyncSchedule = "0 1 * * *"

	// DefaultFullSyncSchedule runs the full sync on Sundays at 02:00
	DefaultFullSyncSchedule = "0 2 * * 0"

	// DefaultDailySummarySchedule sends the daily summary at 06:00
	DefaultDailySummarySchedule = "0 6 * * *"

	// DefaultWeeklySummarySchedule sends the weekly summary on Mondays at 07:00
	DefaultWeeklySummarySchedule = "0 7 * * 1"

	// DefaultMonthlySummarySchedule sends the monthly summary on the 1st at 08:00
	DefaultMonthlySummarySchedule = "0 8 1 * *"
)

const (
	// EnvPrefix is the prefix of every environment variable read by the service
	EnvPrefix = "STRIPE_LUNAR"

	// EnvStripeAPIKey holds the payment platform API key
	EnvStripeAPIKey = "STRIPE_LUNAR_STRIPE_API_KEY"

	// EnvStripeWebhookSecret holds the webhook signing secret
	EnvStripeWebhookSecret = "STRIPE_LUNAR_STRIPE_WEBHOOK_SECRET"

	// EnvDatabasePassword holds the database password
	EnvDatabasePassword = "STRIPE_LUNAR_DATABASE_PASSWORD"

	// EnvSMTPPassword holds the SMTP relay password
	EnvSMTPPassword = "STRIPE_LUNAR_SMTP_PASSWORD"
)

// Option defines the interface for configuration options
type Option func(*loaderConfig) error

// loaderConfig defines the configuration for loading a configuration
type loaderConfig struct {
	path string
}

// WithConfigPath loads configuration from a YAML file
func WithConfigPath(path string) Option {
	return func(cfg *loaderConfig) error {
		if path == "" {
			return fmt.Errorf("path is required")
		}

		// Resolve symlinks to prevent symlink attacks.
		// Note that this calls filepath.Clean internally.
		realPath, err := filepath.EvalSymlinks(path)
		if err != nil {
			return fmt.Errorf("failed to evaluate symlinks: %w", err)
		}

		// Validate the path to prevent path traversal attacks
		if !filepath.IsAbs(realPath) {
			if !filepath.IsLocal(realPath) {
				return fmt.Errorf("path is not local or contains invalid traversal: %s", path)
			}
		}

		cfg.path = realPath
		return nil
	}
}

// Config represents the root configuration structure
type Config struct {
	Server       ServerConfig       `yaml:"server"`
	Storage      StorageConfig      `yaml:"storage"`
	Database     *DatabaseConfig    `yaml:"database,omitempty"`
	Stripe       StripeConfig       `yaml:"stripe"`
	Retry        RetryConfig        `yaml:"retry"`
	Schedule     ScheduleConfig     `yaml:"schedule"`
	Summary      SummaryConfig      `yaml:"summary"`
	Notification NotificationConfig `yaml:"notification"`
	Telemetry    *telemetry.Config  `yaml:"telemetry,omitempty"`
}

// ServerConfig defines the HTTP listener
type ServerConfig struct {
	// Address is the listen address, e.g. ":8080"
	Address string `yaml:"address,omitempty"`

	// RequestTimeout bounds a single request (e.g., "30s")
	RequestTimeout string `yaml:"requestTimeout,omitempty"`

	// ShutdownTimeout bounds graceful shutdown (e.g., "30s")
	ShutdownTimeout string `yaml:"shutdownTimeout,omitempty"`
}

// StorageConfig selects the persistence backend
type StorageConfig struct {
	// Type is "memory" (default) or "database"
	Type string `yaml:"type,omitempty"`
}

// StripeConfig defines access to the payment platform
type StripeConfig struct {
	// APIKey is the secret API key. Prefer APIKeyFile or the environment.
	APIKey string `yaml:"apiKey,omitempty"`

	// APIKeyFile is the path to a file containing the API key
	APIKeyFile string `yaml:"apiKeyFile,omitempty"`

	// WebhookSecret is the endpoint signing secret
	WebhookSecret string `yaml:"webhookSecret,omitempty"`

	// WebhookSecretFile is the path to a file containing the signing secret
	WebhookSecretFile string `yaml:"webhookSecretFile,omitempty"`

	// PageLimit is the page size requested per list call (1-100)
	PageLimit int64 `yaml:"pageLimit,omitempty"`

	// RequestTimeout bounds a single platform call (e.g., "30s")
	RequestTimeout string `yaml:"requestTimeout,omitempty"`

	// BackendURL overrides the platform API base URL, for stubs and tests
	BackendURL string `yaml:"backendURL,omitempty"`
}

// RetryConfig defines redelivery of upstream failures on scheduled and webhook runs
type RetryConfig struct {
	MaxRedeliveries *int    `yaml:"maxRedeliveries,omitempty"`
	InitialInterval string  `yaml:"initialInterval,omitempty"`
	Multiplier      float64 `yaml:"multiplier,omitempty"`
	MaxInterval     string  `yaml:"maxInterval,omitempty"`
	AttemptTimeout  string  `yaml:"attemptTimeout,omitempty"`
}

// ScheduleConfig defines the cron schedules of the sync operations
type ScheduleConfig struct {
	// Enabled turns the scheduler on. Defaults to true.
	Enabled *bool `yaml:"enabled,omitempty"`

	// Timezone is the IANA zone the sync and summary schedules run in. Defaults to local time.
	Timezone string `yaml:"timezone,omitempty"`

	CustomerSync string `yaml:"customerSync,omitempty"`
	PaymentSync  string `yaml:"paymentSync,omitempty"`
	FullSync     string `yaml:"fullSync,omitempty"`
}

// SummaryConfig defines the cron schedules of the periodic summaries
type SummaryConfig struct {
	// Enabled turns the summary scheduler on. Defaults to true.
	Enabled *bool `yaml:"enabled,omitempty"`

	Daily   string `yaml:"daily,omitempty"`
	Weekly  string `yaml:"weekly,omitempty"`
	Monthly string `yaml:"monthly,omitempty"`
}

// LoadConfig loads and parses configuration from a YAML file.
// Without WithConfigPath the defaults are returned.
func LoadConfig(opts ...Option) (*Config, error) {
	loaderCfg := &loaderConfig{}
	for _, opt := range opts {
		if err := opt(loaderCfg); err != nil {
			return nil, err
		}
	}

	var config Config
	if loaderCfg.path != "" {
		// Read the entire file into memory
		data, err := os.ReadFile(loaderCfg.path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}

		if err := yaml.Unmarshal(data, &config); err != nil {
			return nil, fmt.Errorf("failed to parse YAML config: %w", err)
		}
	}

	config.applyDefaults()

	if err := config.validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &config, nil
}

func (c *Config) applyDefaults() {
	setDefault(&c.Server.Address, DefaultAddress)
	setDefault(&c.Server.RequestTimeout, DefaultRequestTimeout)
	setDefault(&c.Server.ShutdownTimeout, DefaultShutdownTimeout)

	setDefault(&c.Storage.Type, StorageTypeMemory)

	if c.Stripe.PageLimit == 0 {
		c.Stripe.PageLimit = DefaultPageLimit
	}
	setDefault(&c.Stripe.RequestTimeout, DefaultStripeRequestTimeout)

	if c.Retry.MaxRedeliveries == nil {
		n := DefaultMaxRedeliveries
		c.Retry.MaxRedeliveries = &n
	}
	if c.Retry.Multiplier == 0 {
		c.Retry.Multiplier = DefaultMultiplier
	}
	setDefault(&c.Retry.InitialInterval, DefaultInitialInterval)
	setDefault(&c.Retry.MaxInterval, DefaultMaxInterval)
	setDefault(&c.Retry.AttemptTimeout, DefaultAttemptTimeout)

	setDefault(&c.Schedule.CustomerSync, DefaultCustomerSyncSchedule)
	setDefault(&c.Schedule.PaymentSync, DefaultPaymentSyncSchedule)
	setDefault(&c.Schedule.FullSync, DefaultFullSyncSchedule)

	setDefault(&c.Summary.Daily, DefaultDailySummarySchedule)
	setDefault(&c.Summary.Weekly, DefaultWeeklySummarySchedule)
	setDefault(&c.Summary.Monthly, DefaultMonthlySummarySchedule)

	c.Notification.Email.applyDefaults()

	if c.Database != nil {
		c.Database.applyDefaults()
	}
}

func setDefault(field *string, value string) {
	if *field == "" {
		*field = value
	}
}

// validate performs validation on the configuration
func (c *Config) validate() error {
	if c == nil {
		return fmt.Errorf("config cannot be nil")
	}

	var errs []error

	switch c.Storage.Type {
	case StorageTypeMemory:
	case StorageTypeDatabase:
		if c.Database == nil {
			errs = append(errs, fmt.Errorf("database configuration is required for storage type %q", StorageTypeDatabase))
		} else if err := c.Database.validate(); err != nil {
			errs = append(errs, fmt.Errorf("database: %w", err))
		}
	default:
		errs = append(errs, fmt.Errorf("storage.type must be %q or %q, got %q",
			StorageTypeMemory, StorageTypeDatabase, c.Storage.Type))
	}

	errs = append(errs,
		validateDuration("server.requestTimeout", c.Server.RequestTimeout),
		validateDuration("server.shutdownTimeout", c.Server.ShutdownTimeout),
		validateDuration("stripe.requestTimeout", c.Stripe.RequestTimeout),
		validateDuration("retry.initialInterval", c.Retry.InitialInterval),
		validateDuration("retry.maxInterval", c.Retry.MaxInterval),
		validateDuration("retry.attemptTimeout", c.Retry.AttemptTimeout),
		validateCron("schedule.customerSync", c.Schedule.CustomerSync),
		validateCron("schedule.paymentSync", c.Schedule.PaymentSync),
		validateCron("schedule.fullSync", c.Schedule.FullSync),
		validateCron("summary.daily", c.Summary.Daily),
		validateCron("summary.weekly", c.Summary.Weekly),
		validateCron("summary.monthly", c.Summary.Monthly),
	)

	if c.Stripe.PageLimit < 1 || c.Stripe.PageLimit > 100 {
		errs = append(errs, fmt.Errorf("stripe.pageLimit must be between 1 and 100, got %d", c.Stripe.PageLimit))
	}
	if *c.Retry.MaxRedeliveries < 0 {
		errs = append(errs, fmt.Errorf("retry.maxRedeliveries must not be negative, got %d", *c.Retry.MaxRedeliveries))
	}
	if c.Retry.Multiplier < 1 {
		errs = append(errs, fmt.Errorf("retry.multiplier must be at least 1, got %g", c.Retry.Multiplier))
	}
	if c.Schedule.Timezone != "" {
		if _, err := time.LoadLocation(c.Schedule.Timezone); err != nil {
			errs = append(errs, fmt.Errorf("schedule.timezone: %w", err))
		}
	}
	if err := c.Notification.Email.validate(); err != nil {
		errs = append(errs, fmt.Errorf("notification.email: %w", err))
	}
	if err := c.Telemetry.Validate(); err != nil {
		errs = append(errs, fmt.Errorf("telemetry: %w", err))
	}

	return errors.Join(errs...)
}

func validateDuration(field, value string) error {
	d, err := time.ParseDuration(value)
	if err != nil {
		return fmt.Errorf("%s must be a valid duration (e.g., '30s', '1m'): %w", field, err)
	}
	if d <= 0 {
		return fmt.Errorf("%s must be positive, got %s", field, value)
	}
	return nil
}

func validateCron(field, spec string) error {
	if _, err := cron.ParseStandard(spec); err != nil {
		return fmt.Errorf("%s: invalid cron expression %q: %w", field, spec, err)
	}
	return nil
}

// mustDuration parses a duration that validate has already accepted
func mustDuration(value string) time.Duration {
	d, _ := time.ParseDuration(value)
	return d
}

// GetRequestTimeout returns the HTTP request timeout
func (s *ServerConfig) GetRequestTimeout() time.Duration {
	return mustDuration(s.RequestTimeout)
}

// GetShutdownTimeout returns the graceful shutdown timeout
func (s *ServerConfig) GetShutdownTimeout() time.Duration {
	return mustDuration(s.ShutdownTimeout)
}

// GetRequestTimeout returns the platform call timeout
func (s *StripeConfig) GetRequestTimeout() time.Duration {
	return mustDuration(s.RequestTimeout)
}

// GetAPIKey returns the API key from, in order, APIKeyFile, the
// STRIPE_LUNAR_STRIPE_API_KEY environment variable, or APIKey.
func (s *StripeConfig) GetAPIKey() (string, error) {
	key, err := readSecret(s.APIKeyFile, EnvStripeAPIKey, s.APIKey)
	if err != nil {
		return "", fmt.Errorf("stripe api key: %w", err)
	}
	if key == "" {
		return "", fmt.Errorf("no stripe api key configured: set apiKeyFile, apiKey or %s", EnvStripeAPIKey)
	}
	return key, nil
}

// GetWebhookSecret returns the signing secret from, in order, WebhookSecretFile,
// the STRIPE_LUNAR_STRIPE_WEBHOOK_SECRET environment variable, or WebhookSecret.
// An empty secret is not an error; the webhook endpoint then rejects every event.
func (s *StripeConfig) GetWebhookSecret() (string, error) {
	secret, err := readSecret(s.WebhookSecretFile, EnvStripeWebhookSecret, s.WebhookSecret)
	if err != nil {
		return "", fmt.Errorf("stripe webhook secret: %w", err)
	}
	return secret, nil
}

// GetInitialInterval returns the wait before the first retry
func (r *RetryConfig) GetInitialInterval() time.Duration {
	return mustDuration(r.InitialInterval)
}

// GetMaxInterval returns the cap on the wait between retries
func (r *RetryConfig) GetMaxInterval() time.Duration {
	return mustDuration(r.MaxInterval)
}

// GetAttemptTimeout returns the bound on a single attempt
func (r *RetryConfig) GetAttemptTimeout() time.Duration {
	return mustDuration(r.AttemptTimeout)
}

// IsEnabled reports whether scheduled syncs run
func (s *ScheduleConfig) IsEnabled() bool {
	return s.Enabled == nil || *s.Enabled
}

// GetLocation returns the schedule time zone, local time when unset
func (s *ScheduleConfig) GetLocation() *time.Location {
	if s.Timezone == "" {
		return time.Local
	}
	loc, err := time.LoadLocation(s.Timezone)
	if err != nil {
		return time.Local
	}
	return loc
}

// IsEnabled reports whether periodic summaries run
func (s *SummaryConfig) IsEnabled() bool {
	return s.Enabled == nil || *s.Enabled
}

// readSecret resolves a secret from a file, then an environment variable, then an inline value.
// File content has leading and trailing whitespace trimmed.
func readSecret(path, envVar, inline string) (string, error) {
	if path != "" {
		// Use filepath.Clean to prevent path traversal attacks
		data, err := os.ReadFile(filepath.Clean(path))
		if err != nil {
			return "", fmt.Errorf("failed to read secret from file %s: %w", path, err)
		}
		return strings.TrimSpace(string(data)), nil
	}

	if v := os.Getenv(envVar); v != "" {
		return v, nil
	}

	return inline, nil
}
