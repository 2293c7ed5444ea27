package store

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestMemoryStoreDefinitionRoundTrip(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	require.NoError(t, s.SaveDefinition(ctx, "wf1", "json", []byte(`{"a":1}`)))

	format, doc, err := s.LoadDefinition(ctx, "wf1")
	require.NoError(t, err)
	require.Equal(t, "json", format)
	require.JSONEq(t, `{"a":1}`, string(doc))

	ids, err := s.ListDefinitionIDs(ctx)
	require.NoError(t, err)
	require.Equal(t, []string{"wf1"}, ids)
}

func TestMemoryStoreLoadDefinitionNotFound(t *testing.T) {
	s := NewMemoryStore()
	_, _, err := s.LoadDefinition(context.Background(), "missing")
	require.ErrorIs(t, err, ErrNotFound)
}

func TestMemoryStoreExecutionRoundTrip(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()
	now := time.Now().UTC()

	exec := Execution{
		ID:           "e1",
		WorkflowID:   "wf1",
		DefinitionID: "def1",
		Status:       ExecutionRunning,
		InitialData:  map[string]interface{}{"x": float64(1)},
		CurrentState: map[string]interface{}{"x": float64(1)},
		InsertedAt:   now,
		UpdatedAt:    now,
	}
	require.NoError(t, s.SaveExecution(ctx, exec))

	loaded, err := s.LoadExecution(ctx, "e1")
	require.NoError(t, err)
	require.Equal(t, exec, loaded)

	list, err := s.ListExecutions(ctx, "wf1")
	require.NoError(t, err)
	require.Len(t, list, 1)

	list, err = s.ListExecutions(ctx, "other-workflow")
	require.NoError(t, err)
	require.Empty(t, list)
}

func TestMemoryStoreNodeExecutionRoundTrip(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()
	now := time.Now().UTC()

	ne := NodeExecution{
		ID:          "ne1",
		ExecutionID: "e1",
		WorkflowID:  "wf1",
		TokenID:     "t1",
		NodeID:      "a",
		NodeType:    "activity",
		Status:      NodeExecutionExecuting,
		StartedAt:   now,
	}
	require.NoError(t, s.SaveNodeExecution(ctx, ne))

	ne.Status = NodeExecutionCompleted
	ne.CompletedAt = now.Add(time.Millisecond)
	ne.DurationMs = 1
	require.NoError(t, s.SaveNodeExecution(ctx, ne))

	list, err := s.ListNodeExecutions(ctx, "e1")
	require.NoError(t, err)
	require.Len(t, list, 1)
	require.Equal(t, NodeExecutionCompleted, list[0].Status)
}
