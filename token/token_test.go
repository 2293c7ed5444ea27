package token

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

func TestNewTokenHasFreshID(t *testing.T) {
	a := New(Data{"x": 1})
	b := New(Data{"x": 1})
	require.NotEqual(t, a.ID, b.ID)
	require.Equal(t, Data{"x": 1}, a.Data)
}

func TestMoveToRefreshesTimestamp(t *testing.T) {
	tok := New(nil)
	moved := tok.MoveTo("start")
	require.Equal(t, "start", moved.CurrentNode)
	require.False(t, moved.Timestamp.Before(tok.Timestamp), "MoveTo must not move the timestamp backwards")
	require.Empty(t, tok.CurrentNode, "MoveTo must not mutate the receiver")
}

func TestMergeIsRightBiasedAndShallow(t *testing.T) {
	tok := New(Data{"a": 1, "b": 2})
	merged := tok.Merge(Data{"b": 3, "c": 4})
	require.Equal(t, Data{"a": 1, "b": 3, "c": 4}, merged.Data)
	require.Equal(t, Data{"a": 1, "b": 2}, tok.Data, "Merge must not mutate the receiver")
}

func TestMergeReplacesNestedMapsWholesale(t *testing.T) {
	tok := New(Data{"nested": Data{"keep": true, "drop": true}})
	merged := tok.Merge(Data{"nested": Data{"keep": true}})
	require.Equal(t, Data{"keep": true}, merged.Data["nested"])
}

func TestWithErrorSetsErrorKey(t *testing.T) {
	tok := New(Data{"a": 1})
	failed := tok.WithError("boom")
	require.Equal(t, "boom", failed.Data["error"])
	require.Equal(t, 1, failed.Data["a"])
}

func TestSplitClonesIDsAndSetsParent(t *testing.T) {
	tok := New(Data{"x": 1})
	tok = tok.MoveTo("gw")
	branches := tok.Split(3)
	require.Len(t, branches, 3)
	seen := map[uuid.UUID]bool{}
	for _, b := range branches {
		require.NotEqual(t, uuid.Nil, b.ID)
		require.NotEqual(t, tok.ID, b.ID)
		require.Equal(t, tok.ID, b.ParentID)
		require.Equal(t, "gw", b.CurrentNode)
		require.False(t, seen[b.ID], "branch ids must be unique")
		seen[b.ID] = true
	}
}

func TestSplitDataIsIndependentPerBranch(t *testing.T) {
	tok := New(Data{"n": 0})
	branches := tok.Split(2)
	branches[0].Data["n"] = 1
	require.Equal(t, 0, branches[1].Data["n"], "branch data must not be shared")
}
