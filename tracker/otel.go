package tracker

import (
	"context"
	"sync"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// OTelSink implements Sink by opening one span per node execution and
// closing it on the matching Complete/Fail/MarkSkipped call, grounded on
// the teacher's emit.OTelEmitter (which instead opened-and-closed a span
// per point-in-time event; here a node execution is a duration, so the
// span stays open across the Start/Complete pair).
type OTelSink struct {
	tracer trace.Tracer

	mu   sync.Mutex
	open map[uuid.UUID]openSpan
}

type openSpan struct {
	span trace.Span
	in   StartInput
}

// NewOTelSink creates an OTelSink using the given tracer, typically
// obtained via otel.Tracer("workflow-go").
func NewOTelSink(tracer trace.Tracer) *OTelSink {
	return &OTelSink{tracer: tracer, open: make(map[uuid.UUID]openSpan)}
}

func (o *OTelSink) Start(ctx context.Context, in StartInput) Handle {
	_, span := o.tracer.Start(ctx, "node."+in.NodeID)
	span.SetAttributes(
		attribute.String("workflow.id", in.WorkflowID),
		attribute.String("workflow.execution_id", in.ExecutionID),
		attribute.String("workflow.token_id", in.TokenID.String()),
		attribute.String("workflow.node_id", in.NodeID),
		attribute.String("workflow.node_type", in.NodeType),
	)

	id := uuid.New()
	o.mu.Lock()
	o.open[id] = openSpan{span: span, in: in}
	o.mu.Unlock()
	return handleID(id)
}

func (o *OTelSink) Complete(_ context.Context, h Handle, _ map[string]interface{}) {
	s, ok := o.take(h)
	if !ok {
		return
	}
	s.span.SetStatus(codes.Ok, "")
	s.span.End()
}

func (o *OTelSink) Fail(_ context.Context, h Handle, errMsg string) {
	s, ok := o.take(h)
	if !ok {
		return
	}
	s.span.SetStatus(codes.Error, errMsg)
	s.span.End()
}

func (o *OTelSink) MarkWaiting(_ context.Context, h Handle) {
	if h == nil || h.ID() == uuid.Nil {
		return
	}
	o.mu.Lock()
	s, ok := o.open[h.ID()]
	o.mu.Unlock()
	if ok {
		s.span.AddEvent("waiting")
	}
}

func (o *OTelSink) MarkSkipped(_ context.Context, h Handle, reason string) {
	s, ok := o.take(h)
	if !ok {
		return
	}
	s.span.AddEvent("skipped", trace.WithAttributes(attribute.String("reason", reason)))
	s.span.End()
}

func (o *OTelSink) take(h Handle) (openSpan, bool) {
	if h == nil || h.ID() == uuid.Nil {
		return openSpan{}, false
	}
	o.mu.Lock()
	defer o.mu.Unlock()
	s, ok := o.open[h.ID()]
	if ok {
		delete(o.open, h.ID())
	}
	return s, ok
}
