// Package tracker provides the observability sink the engine calls into
// for every node execution (§4.7). Implementations log, trace, or record
// metrics without blocking the engine's event loop indefinitely.
package tracker

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Handle identifies one in-flight node execution between a Start call and
// its matching Complete/Fail/MarkWaiting/MarkSkipped call. A nil handle or
// NullHandle is valid: Complete, Fail and MarkWaiting on it are no-ops in
// every sink in this package. MarkSkipped on it is ignored by BufferedSink
// and OTelSink, but LogSink still writes the reason and PrometheusSink
// still counts it; the engine relies on this to report a forward to an
// unknown node, for which no Start was made.
type Handle interface {
	// ID returns the tracker-assigned identifier for this execution, or
	// uuid.Nil for a null handle.
	ID() uuid.UUID
}

// nullHandle satisfies Handle without identifying any real execution.
type nullHandle struct{}

func (nullHandle) ID() uuid.UUID { return uuid.Nil }

// NullHandle is the canonical null handle returned by a failed Start.
var NullHandle Handle = nullHandle{}

// StartInput carries everything a Sink needs to begin tracking one node
// execution.
type StartInput struct {
	WorkflowID  string
	ExecutionID string
	TokenID     uuid.UUID
	NodeID      string
	NodeType    string
	InputData   map[string]interface{}
}

// Sink is the tracker interface named in spec §4.7. Implementations must
// not block the engine's event loop indefinitely; dispatch to an external
// writer should be best-effort and bounded.
type Sink interface {
	// Start begins tracking a node execution and returns a handle used for
	// the matching completion call. Returns NullHandle on failure.
	Start(ctx context.Context, in StartInput) Handle

	// Complete records successful completion with the node's output data.
	Complete(ctx context.Context, h Handle, outputData map[string]interface{})

	// Fail records that the node execution raised an error.
	Fail(ctx context.Context, h Handle, errMsg string)

	// MarkWaiting records that the node paused for external completion.
	MarkWaiting(ctx context.Context, h Handle)

	// MarkSkipped records that the node execution was abandoned without
	// running (e.g. ForwardToUnknownNode, see SPEC_FULL.md).
	MarkSkipped(ctx context.Context, h Handle, reason string)
}

// record is the shared per-handle bookkeeping of LogSink and
// PrometheusSink; BufferedSink keeps an Entry per handle instead.
type record struct {
	id        uuid.UUID
	in        StartInput
	startedAt time.Time
}
