package tracker

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Entry is one completed-or-in-progress node execution as seen by
// BufferedSink, grounded on the teacher's emit.BufferedEmitter and
// reshaped around the spec's NodeExecution record (§6).
type Entry struct {
	WorkflowID  string
	NodeID      string
	NodeType    string
	TokenID     uuid.UUID
	Status      string // executing, completed, failed, waiting, skipped
	InputData   map[string]interface{}
	OutputData  map[string]interface{}
	ErrorMsg    string
	StartedAt   time.Time
	CompletedAt time.Time
	DurationMs  int64
}

// BufferedSink stores every tracked execution in memory, keyed by
// workflow id, for tests and for in-process inspection without a real
// store.ExecutionStore wired in.
type BufferedSink struct {
	mu       sync.RWMutex
	inFlight map[uuid.UUID]*Entry
	entries  map[string][]*Entry // workflowID -> entries, oldest first
}

// NewBufferedSink creates an empty BufferedSink.
func NewBufferedSink() *BufferedSink {
	return &BufferedSink{
		inFlight: make(map[uuid.UUID]*Entry),
		entries:  make(map[string][]*Entry),
	}
}

func (b *BufferedSink) Start(_ context.Context, in StartInput) Handle {
	id := uuid.New()
	e := &Entry{
		WorkflowID: in.WorkflowID,
		NodeID:     in.NodeID,
		NodeType:   in.NodeType,
		TokenID:    in.TokenID,
		Status:     "executing",
		InputData:  in.InputData,
		StartedAt:  time.Now().UTC(),
	}

	b.mu.Lock()
	b.inFlight[id] = e
	b.entries[in.WorkflowID] = append(b.entries[in.WorkflowID], e)
	b.mu.Unlock()

	return handleID(id)
}

func (b *BufferedSink) Complete(_ context.Context, h Handle, output map[string]interface{}) {
	e := b.finish(h)
	if e == nil {
		return
	}
	e.Status = "completed"
	e.OutputData = output
}

func (b *BufferedSink) Fail(_ context.Context, h Handle, errMsg string) {
	e := b.finish(h)
	if e == nil {
		return
	}
	e.Status = "failed"
	e.ErrorMsg = errMsg
}

func (b *BufferedSink) MarkWaiting(_ context.Context, h Handle) {
	if h == nil || h.ID() == uuid.Nil {
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if e, ok := b.inFlight[h.ID()]; ok {
		e.Status = "waiting"
	}
}

func (b *BufferedSink) MarkSkipped(_ context.Context, h Handle, reason string) {
	e := b.finish(h)
	if e == nil {
		return
	}
	e.Status = "skipped"
	e.ErrorMsg = reason
}

func (b *BufferedSink) finish(h Handle) *Entry {
	if h == nil || h.ID() == uuid.Nil {
		return nil
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	e, ok := b.inFlight[h.ID()]
	if !ok {
		return nil
	}
	e.CompletedAt = time.Now().UTC()
	e.DurationMs = e.CompletedAt.Sub(e.StartedAt).Milliseconds()
	delete(b.inFlight, h.ID())
	return e
}

// History returns a copy of the entries recorded for workflowID, oldest
// first.
func (b *BufferedSink) History(workflowID string) []Entry {
	b.mu.RLock()
	defer b.mu.RUnlock()
	src := b.entries[workflowID]
	out := make([]Entry, len(src))
	for i, e := range src {
		out[i] = *e
	}
	return out
}
