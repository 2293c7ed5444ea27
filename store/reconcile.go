package store

import (
	"context"
	"fmt"
	"time"
)

// ReconcileDangling marks NodeExecution rows still "executing" older than
// before as "failed". Per §9's open question, the persistence layer is
// never replayed to resume an engine automatically; this is an
// operator-invoked tool for making lost in-flight work visible after a
// process crash, not an automatic recovery mechanism.
func ReconcileDangling(ctx context.Context, execStore ExecutionStore, workflowID string, before time.Time) (int, error) {
	executions, err := execStore.ListExecutions(ctx, workflowID)
	if err != nil {
		return 0, fmt.Errorf("store: reconcile: listing executions: %w", err)
	}

	reconciled := 0
	for _, exec := range executions {
		nodeExecs, err := execStore.ListNodeExecutions(ctx, exec.ID)
		if err != nil {
			return reconciled, fmt.Errorf("store: reconcile: listing node executions for %s: %w", exec.ID, err)
		}
		for _, ne := range nodeExecs {
			if ne.Status != NodeExecutionExecuting || !ne.StartedAt.Before(before) {
				continue
			}
			ne.Status = NodeExecutionFailed
			ne.ErrorMessage = "reconciled: dangling executing row found on operator-run sweep"
			ne.CompletedAt = before
			if err := execStore.SaveNodeExecution(ctx, ne); err != nil {
				return reconciled, fmt.Errorf("store: reconcile: saving %s: %w", ne.ID, err)
			}
			reconciled++
		}
	}
	return reconciled, nil
}
