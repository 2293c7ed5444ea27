package store

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestSQLiteStoreDefinitionRoundTrip(t *testing.T) {
	s, err := NewSQLiteStore(":memory:")
	require.NoError(t, err)
	defer s.Close()

	ctx := context.Background()
	require.NoError(t, s.SaveDefinition(ctx, "wf1", "yaml", []byte("a: 1")))

	format, doc, err := s.LoadDefinition(ctx, "wf1")
	require.NoError(t, err)
	require.Equal(t, "yaml", format)
	require.Equal(t, "a: 1", string(doc))

	_, _, err = s.LoadDefinition(ctx, "missing")
	require.ErrorIs(t, err, ErrNotFound)
}

func TestSQLiteStoreExecutionAndNodeExecutionRoundTrip(t *testing.T) {
	s, err := NewSQLiteStore(":memory:")
	require.NoError(t, err)
	defer s.Close()

	ctx := context.Background()
	now := time.Now().UTC().Truncate(time.Millisecond)

	exec := Execution{
		ID:           "e1",
		WorkflowID:   "wf1",
		DefinitionID: "def1",
		Status:       ExecutionWaiting,
		InitialData:  map[string]interface{}{"req": "R1"},
		CurrentState: map[string]interface{}{"req": "R1"},
		InsertedAt:   now,
		UpdatedAt:    now,
	}
	require.NoError(t, s.SaveExecution(ctx, exec))

	loaded, err := s.LoadExecution(ctx, "e1")
	require.NoError(t, err)
	require.Equal(t, ExecutionWaiting, loaded.Status)
	require.Equal(t, "R1", loaded.CurrentState["req"])

	exec.Status = ExecutionCompleted
	require.NoError(t, s.SaveExecution(ctx, exec))
	loaded, err = s.LoadExecution(ctx, "e1")
	require.NoError(t, err)
	require.Equal(t, ExecutionCompleted, loaded.Status)

	ne := NodeExecution{
		ID:          "ne1",
		ExecutionID: "e1",
		WorkflowID:  "wf1",
		TokenID:     "t1",
		NodeID:      "u",
		NodeType:    "activity",
		Status:      NodeExecutionWaiting,
		InputData:   map[string]interface{}{"req": "R1"},
		StartedAt:   now,
	}
	require.NoError(t, s.SaveNodeExecution(ctx, ne))

	list, err := s.ListNodeExecutions(ctx, "e1")
	require.NoError(t, err)
	require.Len(t, list, 1)
	require.Equal(t, NodeExecutionWaiting, list[0].Status)

	ne.Status = NodeExecutionCompleted
	ne.OutputData = map[string]interface{}{"approved": true}
	ne.CompletedAt = now.Add(5 * time.Millisecond)
	ne.DurationMs = 5
	require.NoError(t, s.SaveNodeExecution(ctx, ne))

	list, err = s.ListNodeExecutions(ctx, "e1")
	require.NoError(t, err)
	require.Len(t, list, 1)
	require.Equal(t, NodeExecutionCompleted, list[0].Status)
	require.EqualValues(t, true, list[0].OutputData["approved"])
}

func TestSQLiteStoreListExecutionsFiltersByWorkflow(t *testing.T) {
	s, err := NewSQLiteStore(":memory:")
	require.NoError(t, err)
	defer s.Close()

	ctx := context.Background()
	now := time.Now().UTC()
	require.NoError(t, s.SaveExecution(ctx, Execution{ID: "e1", WorkflowID: "wf1", Status: ExecutionRunning, InsertedAt: now, UpdatedAt: now}))
	require.NoError(t, s.SaveExecution(ctx, Execution{ID: "e2", WorkflowID: "wf2", Status: ExecutionRunning, InsertedAt: now, UpdatedAt: now}))

	list, err := s.ListExecutions(ctx, "wf1")
	require.NoError(t, err)
	require.Len(t, list, 1)
	require.Equal(t, "e1", list[0].ID)

	all, err := s.ListExecutions(ctx, "")
	require.NoError(t, err)
	require.Len(t, all, 2)
}
