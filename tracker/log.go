package tracker

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"github.com/google/uuid"
)

// LogSink implements Sink by writing structured log lines to a writer,
// grounded on the teacher's emit.LogEmitter. Supports text (human
// readable) and JSON-lines output.
//
// Example text output:
//
//	[node_start] workflowID=wf-1 nodeID=a nodeType=activity
//	[node_complete] workflowID=wf-1 nodeID=a nodeType=activity durationMs=12
type LogSink struct {
	mu       sync.Mutex
	writer   io.Writer
	jsonMode bool
	inFlight map[uuid.UUID]record
}

// NewLogSink creates a LogSink writing to writer (os.Stdout if nil).
func NewLogSink(writer io.Writer, jsonMode bool) *LogSink {
	if writer == nil {
		writer = os.Stdout
	}
	return &LogSink{
		writer:   writer,
		jsonMode: jsonMode,
		inFlight: make(map[uuid.UUID]record),
	}
}

func (l *LogSink) Start(_ context.Context, in StartInput) Handle {
	id := uuid.New()
	l.mu.Lock()
	l.inFlight[id] = record{id: id, in: in, startedAt: time.Now().UTC()}
	l.mu.Unlock()
	l.write("node_start", in.WorkflowID, in.NodeID, in.NodeType, 0, nil, "")
	return handleID(id)
}

func (l *LogSink) Complete(_ context.Context, h Handle, output map[string]interface{}) {
	rec, ok := l.take(h)
	if !ok {
		return
	}
	dur := time.Since(rec.startedAt).Milliseconds()
	l.write("node_complete", rec.in.WorkflowID, rec.in.NodeID, rec.in.NodeType, dur, output, "")
}

func (l *LogSink) Fail(_ context.Context, h Handle, errMsg string) {
	rec, ok := l.take(h)
	if !ok {
		return
	}
	dur := time.Since(rec.startedAt).Milliseconds()
	l.write("node_fail", rec.in.WorkflowID, rec.in.NodeID, rec.in.NodeType, dur, nil, errMsg)
}

func (l *LogSink) MarkWaiting(_ context.Context, h Handle) {
	if h == nil || h.ID() == uuid.Nil {
		return
	}
	l.mu.Lock()
	rec, ok := l.inFlight[h.ID()]
	l.mu.Unlock()
	if !ok {
		return
	}
	l.write("node_waiting", rec.in.WorkflowID, rec.in.NodeID, rec.in.NodeType, 0, nil, "")
}

func (l *LogSink) MarkSkipped(_ context.Context, h Handle, reason string) {
	rec, ok := l.take(h)
	if !ok {
		l.write("node_skipped", "", "", "", 0, nil, reason)
		return
	}
	l.write("node_skipped", rec.in.WorkflowID, rec.in.NodeID, rec.in.NodeType, 0, nil, reason)
}

func (l *LogSink) take(h Handle) (record, bool) {
	if h == nil || h.ID() == uuid.Nil {
		return record{}, false
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	rec, ok := l.inFlight[h.ID()]
	if ok {
		delete(l.inFlight, h.ID())
	}
	return rec, ok
}

func (l *LogSink) write(msg, workflowID, nodeID, nodeType string, durationMs int64, meta map[string]interface{}, errMsg string) {
	if l.jsonMode {
		payload := struct {
			Msg        string                 `json:"msg"`
			WorkflowID string                 `json:"workflowID"`
			NodeID     string                 `json:"nodeID"`
			NodeType   string                 `json:"nodeType"`
			DurationMs int64                  `json:"durationMs,omitempty"`
			Meta       map[string]interface{} `json:"meta,omitempty"`
			Error      string                 `json:"error,omitempty"`
		}{msg, workflowID, nodeID, nodeType, durationMs, meta, errMsg}
		data, err := json.Marshal(payload)
		if err != nil {
			_, _ = fmt.Fprintf(l.writer, "{\"error\":\"failed to marshal tracker event: %v\"}\n", err)
			return
		}
		_, _ = fmt.Fprintf(l.writer, "%s\n", data)
		return
	}

	_, _ = fmt.Fprintf(l.writer, "[%s] workflowID=%s nodeID=%s nodeType=%s", msg, workflowID, nodeID, nodeType)
	if durationMs > 0 {
		_, _ = fmt.Fprintf(l.writer, " durationMs=%d", durationMs)
	}
	if errMsg != "" {
		_, _ = fmt.Fprintf(l.writer, " error=%q", errMsg)
	}
	_, _ = fmt.Fprint(l.writer, "\n")
}

type handleID uuid.UUID

func (h handleID) ID() uuid.UUID { return uuid.UUID(h) }
