package activityapi

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/lucerna-run/workflow-go/definition"
	"github.com/lucerna-run/workflow-go/engine"
	"github.com/lucerna-run/workflow-go/token"
	"github.com/lucerna-run/workflow-go/tracker"
)

func buildUserTaskEngine(t *testing.T) (*engine.Engine, uuid.UUID) {
	t.Helper()
	def := definition.Definition{
		StartNodeID: "start",
		Nodes: []definition.NodeSpec{
			{ID: "start", Kind: definition.KindStart, NextNodes: []string{"u"}},
			{ID: "u", Kind: definition.KindActivity, ActivityType: definition.ActivityUser, NextNodes: []string{"end"}},
			{ID: "end", Kind: definition.KindEnd},
		},
	}
	e, err := engine.NewBuilder(nil, tracker.NewNullSink()).Build(def)
	require.NoError(t, err)

	tokenID, err := e.StartWorkflow(token.Data{"req": "R1"})
	require.NoError(t, err)

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		st, err := e.GetStatus(context.Background())
		require.NoError(t, err)
		if st.Status == engine.StatusWaiting {
			break
		}
		time.Sleep(time.Millisecond)
	}
	return e, tokenID
}

func TestCompleteResolvesThroughRegistry(t *testing.T) {
	e, tokenID := buildUserTaskEngine(t)

	registry := NewRegistry()
	registry.Register("wf-1", e)
	api := New(registry)

	out, err := api.Complete(context.Background(), "wf-1", "u", tokenID, token.Data{"approved": true})
	require.NoError(t, err)
	require.Equal(t, token.Data{"req": "R1", "approved": true}, out.Data)
}

func TestCompleteUnknownWorkflowReturnsNotFound(t *testing.T) {
	api := New(NewRegistry())
	_, err := api.Complete(context.Background(), "missing", "u", uuid.New(), token.Data{})
	require.ErrorIs(t, err, ErrWorkflowNotFound)
}

func TestListWaitingResolvesThroughRegistry(t *testing.T) {
	e, tokenID := buildUserTaskEngine(t)

	registry := NewRegistry()
	registry.Register("wf-1", e)
	api := New(registry)

	waiting, err := api.ListWaiting(context.Background(), "wf-1")
	require.NoError(t, err)
	require.Len(t, waiting, 1)
	require.Equal(t, tokenID, waiting[0].ID)
	require.Equal(t, "u", waiting[0].NodeID)
}

func TestUnregisterRemovesWorkflow(t *testing.T) {
	e, _ := buildUserTaskEngine(t)

	registry := NewRegistry()
	registry.Register("wf-1", e)
	registry.Unregister("wf-1")

	_, ok := registry.Lookup("wf-1")
	require.False(t, ok)
}
