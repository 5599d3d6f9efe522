// Package app provides application lifecycle management for the ETL server.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/zlovtnik/stripe-lunar/internal/app/storage"
	"github.com/zlovtnik/stripe-lunar/internal/config"
)

// ETLApp encapsulates all components needed to run the ETL API server and its schedulers.
// It provides lifecycle management and graceful shutdown capabilities
type ETLApp struct {
	config         *config.Config
	components     *AppComponents
	storageFactory storage.Factory
	httpServer     *http.Server

	mu     sync.Mutex
	cancel context.CancelFunc
}

// Start runs the HTTP server, the sync coordinator and the summary scheduler.
// It blocks until ctx is cancelled, Stop is called, or one of them fails.
func (app *ETLApp) Start(ctx context.Context) error {
	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	app.mu.Lock()
	app.cancel = cancel
	app.mu.Unlock()

	g, gctx := errgroup.WithContext(runCtx)

	if c := app.components.SyncCoordinator; c != nil {
		g.Go(func() error {
			if err := c.Start(gctx); err != nil {
				return fmt.Errorf("sync coordinator failed: %w", err)
			}
			return nil
		})
	}

	if s := app.components.SummaryScheduler; s != nil {
		g.Go(func() error {
			if err := s.Start(gctx); err != nil {
				return fmt.Errorf("summary scheduler failed: %w", err)
			}
			return nil
		})
	}

	g.Go(func() error {
		slog.Info("Server listening", "address", app.httpServer.Addr)
		if err := app.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("HTTP server failed: %w", err)
		}
		return nil
	})

	// A failed component, a cancelled ctx or Stop brings the others down
	g.Go(func() error {
		<-gctx.Done()
		return app.stopComponents(app.config.Server.GetShutdownTimeout())
	})

	return g.Wait()
}

// Stop gracefully stops the application with the given timeout.
// The schedulers stop first, then the HTTP server, then in-flight executions
// are awaited before telemetry and storage are released.
func (app *ETLApp) Stop(timeout time.Duration) error {
	slog.Info("Shutting down server...")

	app.mu.Lock()
	stopRun := app.cancel
	app.mu.Unlock()
	if stopRun != nil {
		stopRun()
	}

	err := app.stopComponents(timeout)

	shutdownCtx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	waitForExecutions(shutdownCtx, app.components)

	if app.components.Telemetry != nil {
		if tErr := app.components.Telemetry.Shutdown(shutdownCtx); tErr != nil {
			slog.Error("Failed to shutdown telemetry", "error", tErr)
		}
	}

	if app.storageFactory != nil {
		app.storageFactory.Cleanup()
	}

	if err != nil {
		return err
	}
	slog.Info("Server shutdown complete")
	return nil
}

// stopComponents stops the schedulers and the HTTP server. It is safe to call more than once.
func (app *ETLApp) stopComponents(timeout time.Duration) error {
	if c := app.components.SyncCoordinator; c != nil {
		if err := c.Stop(); err != nil {
			slog.Error("Failed to stop sync coordinator", "error", err)
		}
	}
	if s := app.components.SummaryScheduler; s != nil {
		if err := s.Stop(); err != nil {
			slog.Error("Failed to stop summary scheduler", "error", err)
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	if err := app.httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}
	return nil
}

func waitForExecutions(ctx context.Context, c *AppComponents) {
	if c.Orchestrator == nil {
		return
	}

	done := make(chan struct{})
	go func() {
		c.Orchestrator.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-ctx.Done():
		slog.Warn("Timed out waiting for in-flight executions")
	}
}

// GetConfig returns the application configuration
func (app *ETLApp) GetConfig() *config.Config {
	return app.config
}

// GetComponents returns the wired components
func (app *ETLApp) GetComponents() *AppComponents {
	return app.components
}

// GetHTTPServer returns the HTTP server (useful for testing to get the actual port)
func (app *ETLApp) GetHTTPServer() *http.Server {
	return app.httpServer
}
