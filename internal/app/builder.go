package app

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/netip"
	"strings"
	"time"

	"github.com/go-chi/chi/v5/middleware"

	"github.com/zlovtnik/stripe-lunar/internal/api"
	"github.com/zlovtnik/stripe-lunar/internal/app/storage"
	"github.com/zlovtnik/stripe-lunar/internal/config"
	"github.com/zlovtnik/stripe-lunar/internal/etl"
	"github.com/zlovtnik/stripe-lunar/internal/executor"
	"github.com/zlovtnik/stripe-lunar/internal/ledger"
	"github.com/zlovtnik/stripe-lunar/internal/metrics"
	"github.com/zlovtnik/stripe-lunar/internal/notify"
	"github.com/zlovtnik/stripe-lunar/internal/orchestrator"
	"github.com/zlovtnik/stripe-lunar/internal/platform"
	"github.com/zlovtnik/stripe-lunar/internal/store"
	"github.com/zlovtnik/stripe-lunar/internal/summary"
	"github.com/zlovtnik/stripe-lunar/internal/sync/coordinator"
	"github.com/zlovtnik/stripe-lunar/internal/telemetry"
	"github.com/zlovtnik/stripe-lunar/internal/webhook"
)

const (
	defaultReadTimeout  = 10 * time.Second
	defaultWriteTimeout = 60 * time.Second
	defaultIdleTimeout  = 60 * time.Second
)

// ETLAppOptions is a function that configures the ETL app builder
type ETLAppOptions func(*etlAppConfig) error

// etlAppConfig collects the builder inputs.
// It supports dependency injection for testing while providing sensible defaults for production
type etlAppConfig struct {
	config *config.Config

	// Optional component overrides (primarily for testing)
	storageFactory storage.Factory
	platformClient platform.Client
	dispatcher     notify.Dispatcher
	telemetry      *telemetry.Telemetry

	// HTTP server options
	address      string
	middlewares  []func(http.Handler) http.Handler
	readTimeout  time.Duration
	writeTimeout time.Duration
	idleTimeout  time.Duration
}

func baseConfig(opts ...ETLAppOptions) (*etlAppConfig, error) {
	cfg := &etlAppConfig{
		readTimeout:  defaultReadTimeout,
		writeTimeout: defaultWriteTimeout,
		idleTimeout:  defaultIdleTimeout,
	}

	for _, opt := range opts {
		if err := opt(cfg); err != nil {
			return nil, err
		}
	}

	if cfg.config == nil {
		return nil, fmt.Errorf("config cannot be nil")
	}
	if cfg.address == "" {
		cfg.address = cfg.config.Server.Address
	}

	return cfg, nil
}

// NewETLApp wires every component described by the configuration
func NewETLApp(
	ctx context.Context,
	opts ...ETLAppOptions,
) (*ETLApp, error) {
	cfg, err := baseConfig(opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to build base configuration: %w", err)
	}

	if cfg.telemetry == nil {
		cfg.telemetry, err = telemetry.New(ctx, telemetry.WithTelemetryConfig(cfg.config.Telemetry))
		if err != nil {
			return nil, fmt.Errorf("failed to initialize telemetry: %w", err)
		}
	}

	// Create storage factory (single decision point for memory vs database)
	if cfg.storageFactory == nil {
		cfg.storageFactory, err = storage.NewStorageFactory(ctx, cfg.config,
			storage.WithTracer(cfg.telemetry.Tracer(store.TracerName)))
		if err != nil {
			return nil, fmt.Errorf("failed to create storage factory: %w", err)
		}
	}

	// Ensure cleanup happens on error
	var cleanupNeeded = true
	defer func() {
		if cleanupNeeded {
			cfg.storageFactory.Cleanup()
		}
	}()

	st, err := cfg.storageFactory.CreateStore(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to create store: %w", err)
	}
	l, err := cfg.storageFactory.CreateLedger(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to create ledger: %w", err)
	}

	aggregator := metrics.NewAggregator()
	orch, err := buildOrchestrator(cfg, st, l, aggregator)
	if err != nil {
		return nil, fmt.Errorf("failed to build orchestrator: %w", err)
	}

	components := &AppComponents{
		Store:        st,
		Ledger:       l,
		Orchestrator: orch,
		Telemetry:    cfg.telemetry,
	}

	components.SyncCoordinator, err = buildSyncCoordinator(cfg.config, orch)
	if err != nil {
		return nil, fmt.Errorf("failed to build sync coordinator: %w", err)
	}

	components.SummaryScheduler, err = buildSummaryScheduler(cfg.config, l, cfg.dispatcher)
	if err != nil {
		return nil, fmt.Errorf("failed to build summary scheduler: %w", err)
	}

	httpServer, err := buildHTTPServer(cfg, components, aggregator)
	if err != nil {
		return nil, fmt.Errorf("failed to build HTTP server: %w", err)
	}

	// Cleanup is now handled by the app, not in defer
	cleanupNeeded = false

	return &ETLApp{
		config:         cfg.config,
		components:     components,
		storageFactory: cfg.storageFactory,
		httpServer:     httpServer,
	}, nil
}

// WithConfig sets the configuration
func WithConfig(c *config.Config) ETLAppOptions {
	return func(cfg *etlAppConfig) error {
		cfg.config = c
		return nil
	}
}

// WithAddress sets the HTTP server address, overriding the configured one
func WithAddress(addr string) ETLAppOptions {
	return func(cfg *etlAppConfig) error {
		if addr == "" {
			return fmt.Errorf("address cannot be empty")
		}

		host, port, found := strings.Cut(addr, ":")
		if !found || port == "" {
			return fmt.Errorf("address is not a valid port: %s", addr)
		}
		if host == "localhost" {
			host = "127.0.0.1"
		}
		if host == "" {
			host = "0.0.0.0"
		}

		if _, err := netip.ParseAddrPort(host + ":" + port); err != nil {
			return fmt.Errorf("address is not a valid port: %w", err)
		}

		cfg.address = addr
		return nil
	}
}

// WithMiddlewares sets custom HTTP middlewares, replacing the defaults
func WithMiddlewares(mw ...func(http.Handler) http.Handler) ETLAppOptions {
	return func(cfg *etlAppConfig) error {
		cfg.middlewares = mw
		return nil
	}
}

// WithStorageFactory allows injecting a custom storage factory (for testing)
func WithStorageFactory(f storage.Factory) ETLAppOptions {
	return func(cfg *etlAppConfig) error {
		cfg.storageFactory = f
		return nil
	}
}

// WithPlatformClient allows injecting a payment platform client (for testing)
func WithPlatformClient(c platform.Client) ETLAppOptions {
	return func(cfg *etlAppConfig) error {
		cfg.platformClient = c
		return nil
	}
}

// WithDispatcher allows injecting a notification dispatcher (for testing)
func WithDispatcher(d notify.Dispatcher) ETLAppOptions {
	return func(cfg *etlAppConfig) error {
		cfg.dispatcher = d
		return nil
	}
}

// WithTelemetry allows injecting already initialized telemetry
func WithTelemetry(t *telemetry.Telemetry) ETLAppOptions {
	return func(cfg *etlAppConfig) error {
		cfg.telemetry = t
		return nil
	}
}

// buildOrchestrator builds the platform client, executor and dispatcher, then the orchestrator
func buildOrchestrator(
	b *etlAppConfig,
	st store.Store,
	l ledger.Ledger,
	recorder metrics.Recorder,
) (*orchestrator.Orchestrator, error) {
	slog.Info("Initializing ETL components")

	if b.platformClient == nil {
		client, err := buildPlatformClient(b.config.Stripe, b.telemetry)
		if err != nil {
			return nil, err
		}
		b.platformClient = client
	}

	if b.dispatcher == nil {
		d, err := buildDispatcher(b.config.Notification.Email)
		if err != nil {
			return nil, fmt.Errorf("failed to build notification dispatcher: %w", err)
		}
		b.dispatcher = d
	}

	etlMetrics, err := telemetry.NewETLMetrics(b.telemetry.MeterProvider())
	if err != nil {
		return nil, fmt.Errorf("failed to create ETL metrics: %w", err)
	}

	exec := executor.New(b.platformClient, st, l, executor.WithPageLimit(b.config.Stripe.PageLimit))

	orch := orchestrator.New(l, exec,
		orchestrator.WithRecorder(recorder),
		orchestrator.WithDispatcher(b.dispatcher),
		orchestrator.WithMetrics(etlMetrics),
		orchestrator.WithTracer(b.telemetry.Tracer(orchestrator.TracerName)),
		orchestrator.WithRetryPolicy(retryPolicy(b.config.Retry)),
	)

	slog.Info("ETL components initialized successfully")
	return orch, nil
}

func buildPlatformClient(c config.StripeConfig, tel *telemetry.Telemetry) (platform.Client, error) {
	apiKey, err := c.GetAPIKey()
	if err != nil {
		return nil, fmt.Errorf("failed to read stripe api key: %w", err)
	}

	opts := []platform.StripeOption{
		platform.WithRequestTimeout(c.GetRequestTimeout()),
		platform.WithTracer(tel.Tracer(platform.TracerName)),
	}
	if c.BackendURL != "" {
		opts = append(opts, platform.WithBackendURL(c.BackendURL))
	}
	return platform.NewStripeClient(apiKey, opts...)
}

// buildDispatcher returns an email dispatcher when email is enabled, otherwise a no-op one
func buildDispatcher(c config.EmailConfig) (notify.Dispatcher, error) {
	if !c.Enabled {
		slog.Info("Email notifications disabled")
		return notify.NopDispatcher{}, nil
	}

	password, err := c.SMTP.GetPassword()
	if err != nil {
		return nil, err
	}
	mailer, err := notify.NewSMTPMailer(notify.SMTPConfig{
		Host:      c.SMTP.Host,
		Port:      c.SMTP.Port,
		Username:  c.SMTP.Username,
		Password:  password,
		TLSPolicy: c.SMTP.TLSPolicy,
	})
	if err != nil {
		return nil, err
	}

	slog.Info("Email notifications enabled", "to", c.To, "smtp_host", c.SMTP.Host)
	return notify.NewEmailDispatcher(mailer, notify.EmailSettings{
		Enabled:       true,
		OnCompletion:  c.NotifyOnCompletion(),
		OnFailure:     c.NotifyOnFailure(),
		OnSummary:     c.NotifyOnSummary(),
		From:          c.From,
		To:            c.To,
		SubjectPrefix: c.SubjectPrefix,
	}), nil
}

func retryPolicy(c config.RetryConfig) orchestrator.RetryPolicy {
	p := orchestrator.DefaultRetryPolicy()
	if c.MaxRedeliveries != nil {
		p.MaxRedeliveries = *c.MaxRedeliveries
	}
	if c.Multiplier != 0 {
		p.Multiplier = c.Multiplier
	}
	p.InitialInterval = c.GetInitialInterval()
	p.MaxInterval = c.GetMaxInterval()
	p.AttemptTimeout = c.GetAttemptTimeout()
	return p
}

// buildSyncCoordinator returns nil when scheduling is disabled
func buildSyncCoordinator(c *config.Config, runner orchestrator.Runner) (coordinator.Coordinator, error) {
	if !c.Schedule.IsEnabled() {
		slog.Info("Scheduled syncs disabled")
		return nil, nil
	}

	return coordinator.New(runner, []coordinator.Schedule{
		{Operation: etl.OperationSyncCustomers, Spec: c.Schedule.CustomerSync},
		{Operation: etl.OperationSyncPayments, Spec: c.Schedule.PaymentSync},
		{Operation: etl.OperationSyncAll, Spec: c.Schedule.FullSync},
	}, coordinator.WithLocation(c.Schedule.GetLocation()))
}

// buildSummaryScheduler returns nil when summaries are disabled
func buildSummaryScheduler(c *config.Config, l ledger.Ledger, d notify.Dispatcher) (*summary.Scheduler, error) {
	if !c.Summary.IsEnabled() {
		slog.Info("Job summaries disabled")
		return nil, nil
	}

	return summary.NewScheduler(summary.NewSummarizer(l, d), []summary.Schedule{
		{Period: summary.PeriodDaily, Spec: c.Summary.Daily},
		{Period: summary.PeriodWeekly, Spec: c.Summary.Weekly},
		{Period: summary.PeriodMonthly, Spec: c.Summary.Monthly},
	}, summary.WithLocation(c.Schedule.GetLocation()))
}

// buildHTTPServer builds the HTTP server with router and middleware
func buildHTTPServer(
	b *etlAppConfig,
	c *AppComponents,
	snapshotter metrics.Snapshotter,
) (*http.Server, error) {
	slog.Info("Initializing HTTP server")

	secret, err := b.config.Stripe.GetWebhookSecret()
	if err != nil {
		return nil, fmt.Errorf("failed to read webhook secret: %w", err)
	}
	if secret == "" {
		slog.Warn("No webhook signing secret configured; every webhook event will be rejected")
	}

	// Use default middlewares if not provided
	if b.middlewares == nil {
		b.middlewares = []func(http.Handler) http.Handler{
			middleware.RequestID,
			middleware.RealIP,
			middleware.Recoverer,
			middleware.Timeout(b.config.Server.GetRequestTimeout()),
			api.LoggingMiddleware,
		}
	}

	// Tracing and metrics go first so they see every request
	metricsMiddleware, err := telemetry.MetricsMiddleware(b.telemetry.MeterProvider())
	if err != nil {
		return nil, fmt.Errorf("failed to create metrics middleware: %w", err)
	}
	b.middlewares = append([]func(http.Handler) http.Handler{
		telemetry.TracingMiddleware(b.telemetry.TracerProvider()),
		metricsMiddleware,
	}, b.middlewares...)

	serverOpts := []api.ServerOption{api.WithMiddlewares(b.middlewares...)}
	if h := b.telemetry.MetricsHandler(); h != nil {
		serverOpts = append(serverOpts, api.WithMetricsHandler(h))
	}

	router := api.NewServer(api.Dependencies{
		Runner:   c.Orchestrator,
		Store:    c.Store,
		Ledger:   c.Ledger,
		Metrics:  snapshotter,
		Verifier: webhook.NewVerifier(secret),
	}, serverOpts...)

	server := &http.Server{
		Addr:         b.address,
		Handler:      router,
		ReadTimeout:  b.readTimeout,
		WriteTimeout: b.writeTimeout,
		IdleTimeout:  b.idleTimeout,
	}

	slog.Info("HTTP server configured", "address", b.address)
	return server, nil
}
