package engine

import (
	"github.com/google/uuid"

	"github.com/lucerna-run/workflow-go/definition"
	"github.com/lucerna-run/workflow-go/token"
)

// The engine's mailbox carries two families of messages, exactly mirroring
// every other worker's contract (§4.2): synchronous commands from callers
// of the public API, each with a reply channel, and asynchronous events
// emitted by node workers. Both are processed one at a time by run(),
// which is the only goroutine that ever touches EngineState — this is
// what lets workers and callers avoid a lock on it (§5).

type addNodeCmd struct {
	spec  definition.NodeSpec
	w     worker
	reply chan error
}

type startWorkflowCmd struct {
	initialData token.Data
	reply       chan startWorkflowReply
}

type startWorkflowReply struct {
	tokenID uuid.UUID
	err     error
}

type getStateCmd struct {
	reply chan EngineState
}

type getStatusCmd struct {
	reply chan StatusSummary
}

type listWaitingCmd struct {
	reply chan []WaitingTokenInfo
}

type completeActivityCmd struct {
	nodeID  string
	tokenID uuid.UUID
	data    token.Data
	reply   chan completeActivityReply
}

type completeActivityReply struct {
	tok token.Token
	err error
}

// forwardTokenEvt is both how the public StartWorkflow seeds the start
// node and how workers ask the engine to route a token onward (§4.1
// "ForwardToken(nodeId, token)").
type forwardTokenEvt struct {
	nodeID string
	tok    token.Token
}

// nodeExecutedEvt reports that a worker finished local processing of one
// token, win or lose (§4.1 "NodeExecuted(nodeId, token)"). waiting is set
// by an activity worker pausing for external completion: the visit is
// recorded in history, but the tracker handle stays open rather than
// completing, since the activity hasn't actually finished yet.
type nodeExecutedEvt struct {
	nodeID    string
	nodeKind  definition.NodeKind
	tokenID   uuid.UUID
	inputData token.Data
	tok       token.Token
	workErr   error
	waiting   bool
}

// activityWaitingEvt reports a user/manual activity pausing for external
// completion (§4.1).
type activityWaitingEvt struct {
	nodeID       string
	tok          token.Token
	activityType definition.ActivityType
}

// activityCompletedEvt reports that a paused activity has been completed
// externally and its token has resumed (§4.1).
type activityCompletedEvt struct {
	nodeID string
	tok    token.Token
}

// workflowCompletedEvt reports a token reaching an end node (§4.1).
type workflowCompletedEvt struct {
	nodeID string
	tok    token.Token
}

// forwardToUnknownNodeEvt reports a worker routing to a node id the engine
// has no table entry for (§7 ForwardToUnknownNode).
type forwardToUnknownNodeEvt struct {
	fromNodeID string
	toNodeID   string
	tok        token.Token
}

// tokenSplitEvt reports a gateway's parallel/inclusive fan-out: parentID
// is consumed and each branch becomes its own independently tracked token
// in the active census (§3's census invariant).
type tokenSplitEvt struct {
	parentID uuid.UUID
	branches []token.Token
}
