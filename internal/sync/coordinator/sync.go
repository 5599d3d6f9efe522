package coordinator

import (
	"context"
	"log/slog"
)

// runScheduled performs one scheduled firing of s
func (c *defaultCoordinator) runScheduled(ctx context.Context, s Schedule) {
	slog.Info("Scheduled sync triggered", "operation", s.Operation, "spec", s.Spec)

	exec, err := c.runner.RunWithRetry(ctx, s.Operation.String())
	if err != nil {
		slog.Error("Scheduled sync failed", "operation", s.Operation, "error", err)
		return
	}

	slog.Info("Scheduled sync completed",
		"operation", s.Operation,
		"job_id", exec.Job.ID,
		"records", exec.Result.Count())
}
