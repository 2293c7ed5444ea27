package engine

import (
	"time"

	"github.com/google/uuid"

	"github.com/lucerna-run/workflow-go/definition"
	"github.com/lucerna-run/workflow-go/token"
)

// worker is the contract every node kind satisfies. Each implementation
// owns a single inbound mailbox consumed by exactly one goroutine; no
// worker reads another worker's state (§4.2).
type worker interface {
	id() string
	kind() definition.NodeKind

	// forward enqueues an Execute(token) command on this worker's mailbox.
	// The mailbox is buffered, so the send blocks only once the buffer is
	// full (see WithMailboxDepth).
	forward(tok token.Token)

	// run starts the worker's single-consumer loop. Must be called exactly
	// once, from its own goroutine, before forward is used.
	run()
}

// waitingCapable is implemented by every activity worker; only user and
// manual activities pause for external completion, so only they ever hold
// waiting tokens.
type waitingCapable interface {
	worker
	complete(tokenID uuid.UUID, data token.Data) (token.Token, error)
	snapshotWaiting() []WaitingToken
}

// WaitingToken is the external-facing snapshot of one paused activity
// execution, matching §4.5's GetWaitingTokens shape.
type WaitingToken struct {
	ID           uuid.UUID
	Data         token.Data
	Timestamp    time.Time
	ActivityType definition.ActivityType
	FormFields   []definition.FormField
}

// execCmd is sent on a worker's mailbox to run Execute(token).
type execCmd struct {
	tok token.Token
}

// completeCmd is sent on a waiting-capable worker's mailbox by
// ActivityAPI/Engine.CompleteActivity (§4.5 "Complete(tokenId, userData)").
// Routing it through the same mailbox as execCmd keeps the worker a true
// single-consumer actor: no separate lock guards its waitingTokens map.
type completeCmd struct {
	tokenID uuid.UUID
	data    token.Data
	reply   chan completeCmdReply
}

type completeCmdReply struct {
	tok token.Token
	err error
}

// engineLink is the handle every worker holds back to its owning engine,
// grounded on §4.2's "all emissions are non-blocking sends to the engine
// mailbox". Workers never read engine state directly; they only ever push
// events onto this link.
type engineLink interface {
	forwardToken(nodeID string, tok token.Token)
	nodeExecuted(nodeID string, kind definition.NodeKind, tokenID uuid.UUID, inputData token.Data, tok token.Token, workErr error, waiting bool)
	activityWaiting(nodeID string, tok token.Token, activityType definition.ActivityType)
	activityCompleted(nodeID string, tok token.Token)
	workflowCompleted(nodeID string, tok token.Token)
	forwardToUnknownNode(fromNodeID, toNodeID string, tok token.Token)

	// tokenSplit reports a gateway cloning parentID into branches for a
	// parallel or inclusive fan-out, so the engine's active-token census
	// can replace the one consumed id with the ids actually in flight.
	tokenSplit(parentID uuid.UUID, branches []token.Token)
}
