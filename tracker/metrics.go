package tracker

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// PrometheusSink records Prometheus metrics for node execution, grounded
// on the teacher's graph/metrics.go PrometheusMetrics. All metrics are
// namespaced "workflow_".
//
// Metrics exposed:
//   - workflow_nodes_inflight (gauge, labels: node_type): nodes currently executing
//   - workflow_node_duration_ms (histogram, labels: node_id, status): execution latency
//   - workflow_nodes_waiting (gauge): activities currently paused for external completion
//   - workflow_node_skipped_total (counter, labels: reason): ForwardToUnknownNode and similar drops
type PrometheusSink struct {
	inflight *prometheus.GaugeVec
	duration *prometheus.HistogramVec
	waiting  prometheus.Gauge
	skipped  *prometheus.CounterVec

	mu    sync.Mutex
	start map[uuid.UUID]record
}

// NewPrometheusSink registers its metrics on reg and returns a ready Sink.
func NewPrometheusSink(reg prometheus.Registerer) *PrometheusSink {
	factory := promauto.With(reg)
	return &PrometheusSink{
		inflight: factory.NewGaugeVec(prometheus.GaugeOpts{
			Name: "workflow_nodes_inflight",
			Help: "Number of node executions currently in progress.",
		}, []string{"node_type"}),
		duration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "workflow_node_duration_ms",
			Help:    "Node execution duration in milliseconds.",
			Buckets: []float64{1, 5, 10, 50, 100, 500, 1000, 5000, 10000},
		}, []string{"node_id", "status"}),
		waiting: factory.NewGauge(prometheus.GaugeOpts{
			Name: "workflow_nodes_waiting",
			Help: "Number of activity executions currently paused for external completion.",
		}),
		skipped: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "workflow_node_skipped_total",
			Help: "Count of node executions dropped before running (e.g. unknown routing target).",
		}, []string{"reason"}),
		start: make(map[uuid.UUID]record),
	}
}

func (p *PrometheusSink) Start(_ context.Context, in StartInput) Handle {
	id := uuid.New()
	p.mu.Lock()
	p.start[id] = record{id: id, in: in, startedAt: time.Now()}
	p.mu.Unlock()
	p.inflight.WithLabelValues(in.NodeType).Inc()
	return handleID(id)
}

func (p *PrometheusSink) Complete(_ context.Context, h Handle, _ map[string]interface{}) {
	rec, ok := p.take(h)
	if !ok {
		return
	}
	p.inflight.WithLabelValues(rec.in.NodeType).Dec()
	p.duration.WithLabelValues(rec.in.NodeID, "success").Observe(float64(time.Since(rec.startedAt).Milliseconds()))
}

func (p *PrometheusSink) Fail(_ context.Context, h Handle, _ string) {
	rec, ok := p.take(h)
	if !ok {
		return
	}
	p.inflight.WithLabelValues(rec.in.NodeType).Dec()
	p.duration.WithLabelValues(rec.in.NodeID, "error").Observe(float64(time.Since(rec.startedAt).Milliseconds()))
}

func (p *PrometheusSink) MarkWaiting(_ context.Context, h Handle) {
	if h == nil || h.ID() == uuid.Nil {
		return
	}
	p.waiting.Inc()
}

func (p *PrometheusSink) MarkSkipped(_ context.Context, h Handle, reason string) {
	rec, ok := p.take(h)
	if ok {
		p.inflight.WithLabelValues(rec.in.NodeType).Dec()
	}
	p.skipped.WithLabelValues(reason).Inc()
}

func (p *PrometheusSink) take(h Handle) (record, bool) {
	if h == nil || h.ID() == uuid.Nil {
		return record{}, false
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	rec, ok := p.start[h.ID()]
	if ok {
		delete(p.start, h.ID())
	}
	return rec, ok
}
