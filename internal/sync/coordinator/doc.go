// Package coordinator schedules the recurring ETL syncs.
//
// The coordinator owns a cron scheduler with one entry per configured
// schedule. Each firing hands the operation to the orchestrator's
// RunWithRetry, so scheduled runs get the same ledger lifecycle, metrics and
// notifications as manual runs, plus redelivery of upstream failures.
//
// # Core Interface
//
//	type Coordinator interface {
//	    Start(ctx context.Context) error  // Begin scheduling; blocks until ctx is done
//	    Stop() error                       // Stop scheduling and wait for running jobs
//	}
//
// # Usage Example
//
//	coord, err := coordinator.New(runner, coordinator.DefaultSchedules())
//	if err != nil {
//	    return err
//	}
//
//	go coord.Start(ctx)
//
//	// ... run server ...
//
//	coord.Stop()
//
// # Overlap
//
// Firings are not serialised. If a run is still in progress when its next
// firing arrives, both run. The ledger records them as separate jobs.
//
// # Error Handling
//
// Failed runs are logged and recorded as FAILED by the orchestrator. The
// coordinator keeps running and the next attempt happens at the next firing.
package coordinator
