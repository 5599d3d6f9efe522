package app

import (
	"github.com/zlovtnik/stripe-lunar/internal/ledger"
	"github.com/zlovtnik/stripe-lunar/internal/orchestrator"
	"github.com/zlovtnik/stripe-lunar/internal/store"
	"github.com/zlovtnik/stripe-lunar/internal/summary"
	"github.com/zlovtnik/stripe-lunar/internal/sync/coordinator"
	"github.com/zlovtnik/stripe-lunar/internal/telemetry"
)

// AppComponents groups all application components
//
//nolint:revive // This name is fine
type AppComponents struct {
	// Store holds the synchronized customers and payments
	Store store.Store

	// Ledger records every job execution
	Ledger ledger.Ledger

	// Orchestrator runs operations and tracks them in the ledger
	Orchestrator *orchestrator.Orchestrator

	// SyncCoordinator fires the scheduled syncs (nil when scheduling is disabled)
	SyncCoordinator coordinator.Coordinator

	// SummaryScheduler sends the periodic summaries (nil when summaries are disabled)
	SummaryScheduler *summary.Scheduler

	// Telemetry owns the tracer and meter providers
	Telemetry *telemetry.Telemetry
}
