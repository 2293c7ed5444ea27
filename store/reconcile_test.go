package store

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestReconcileDanglingMarksOldExecutingRowsFailed(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()
	cutoff := time.Now().UTC()

	require.NoError(t, s.SaveExecution(ctx, Execution{ID: "e1", WorkflowID: "wf1", Status: ExecutionRunning, InsertedAt: cutoff.Add(-time.Hour), UpdatedAt: cutoff.Add(-time.Hour)}))
	require.NoError(t, s.SaveNodeExecution(ctx, NodeExecution{
		ID: "ne-old", ExecutionID: "e1", NodeID: "a", Status: NodeExecutionExecuting,
		StartedAt: cutoff.Add(-time.Hour),
	}))
	require.NoError(t, s.SaveNodeExecution(ctx, NodeExecution{
		ID: "ne-recent", ExecutionID: "e1", NodeID: "b", Status: NodeExecutionExecuting,
		StartedAt: cutoff.Add(time.Hour),
	}))
	require.NoError(t, s.SaveNodeExecution(ctx, NodeExecution{
		ID: "ne-done", ExecutionID: "e1", NodeID: "c", Status: NodeExecutionCompleted,
		StartedAt: cutoff.Add(-time.Hour),
	}))

	n, err := ReconcileDangling(ctx, s, "", cutoff)
	require.NoError(t, err)
	require.Equal(t, 1, n)

	list, err := s.ListNodeExecutions(ctx, "e1")
	require.NoError(t, err)

	byID := make(map[string]NodeExecution, len(list))
	for _, ne := range list {
		byID[ne.ID] = ne
	}
	require.Equal(t, NodeExecutionFailed, byID["ne-old"].Status)
	require.Equal(t, NodeExecutionExecuting, byID["ne-recent"].Status)
	require.Equal(t, NodeExecutionCompleted, byID["ne-done"].Status)
}

func TestReconcileDanglingNoOpWhenNothingDangling(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()
	n, err := ReconcileDangling(ctx, s, "", time.Now())
	require.NoError(t, err)
	require.Equal(t, 0, n)
}
