package tracker

import (
	"bytes"
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

func TestNullSinkHandleIsAlwaysSafe(t *testing.T) {
	s := NewNullSink()
	h := s.Start(context.Background(), StartInput{NodeID: "a"})
	require.Equal(t, uuid.Nil, h.ID())

	require.NotPanics(t, func() {
		s.Complete(context.Background(), h, nil)
		s.Fail(context.Background(), h, "boom")
		s.MarkWaiting(context.Background(), h)
		s.MarkSkipped(context.Background(), h, "reason")
	})
}

func TestBufferedSinkRecordsLifecycle(t *testing.T) {
	s := NewBufferedSink()

	h := s.Start(context.Background(), StartInput{WorkflowID: "wf-1", NodeID: "a", NodeType: "activity", InputData: map[string]interface{}{"x": 1}})
	require.NotEqual(t, uuid.Nil, h.ID())

	s.Complete(context.Background(), h, map[string]interface{}{"y": 2})

	history := s.History("wf-1")
	require.Len(t, history, 1)
	require.Equal(t, "completed", history[0].Status)
	require.Equal(t, map[string]interface{}{"y": 2}, history[0].OutputData)
	require.GreaterOrEqual(t, history[0].DurationMs, int64(0))
}

func TestBufferedSinkRecordsFailure(t *testing.T) {
	s := NewBufferedSink()

	h := s.Start(context.Background(), StartInput{WorkflowID: "wf-1", NodeID: "a"})
	s.Fail(context.Background(), h, "boom")

	history := s.History("wf-1")
	require.Len(t, history, 1)
	require.Equal(t, "failed", history[0].Status)
	require.Equal(t, "boom", history[0].ErrorMsg)
}

func TestBufferedSinkMarkWaitingAndSkipped(t *testing.T) {
	s := NewBufferedSink()

	h := s.Start(context.Background(), StartInput{WorkflowID: "wf-1", NodeID: "u"})
	s.MarkWaiting(context.Background(), h)
	waiting := s.History("wf-1")
	require.Len(t, waiting, 1)
	require.Equal(t, "waiting", waiting[0].Status)

	s2 := NewBufferedSink()
	h2 := s2.Start(context.Background(), StartInput{WorkflowID: "wf-2", NodeID: "x"})
	s2.MarkSkipped(context.Background(), h2, "unknown node")
	history := s2.History("wf-2")
	require.Len(t, history, 1)
	require.Equal(t, "skipped", history[0].Status)
	require.Equal(t, "unknown node", history[0].ErrorMsg)
}

func TestBufferedSinkCompleteOnUnknownHandleIsNoOp(t *testing.T) {
	s := NewBufferedSink()
	require.NotPanics(t, func() {
		s.Complete(context.Background(), NullHandle, nil)
	})
	require.Empty(t, s.History("wf-absent"))
}

func TestLogSinkWritesTextLines(t *testing.T) {
	var buf bytes.Buffer
	s := NewLogSink(&buf, false)

	h := s.Start(context.Background(), StartInput{WorkflowID: "wf-1", NodeID: "a", NodeType: "activity"})
	s.Complete(context.Background(), h, nil)

	require.Contains(t, buf.String(), "node_start")
	require.Contains(t, buf.String(), "node_complete")
	require.Contains(t, buf.String(), "wf-1")
}
