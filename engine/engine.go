// Package engine implements the per-instance workflow coordinator of §4.1:
// a node table, an event loop that is the sole owner of EngineState, and
// the node workers (start, end, activity, gateway) it drives through typed
// mailbox messages, generalizing the teacher's graph.Engine
// (graph/engine.go) single-goroutine step loop into one actor per node.
package engine

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/lucerna-run/workflow-go/definition"
	"github.com/lucerna-run/workflow-go/token"
	"github.com/lucerna-run/workflow-go/tracker"
)

// Status is the fixed status vocabulary of §3/§4.1.
type Status string

const (
	StatusInitialized Status = "initialized"
	StatusRunning     Status = "running"
	StatusWaiting     Status = "waiting"
	StatusCompleted   Status = "completed"
	StatusFailed      Status = "failed"
)

// StatusSummary is the snapshot GetStatus returns.
type StatusSummary struct {
	WorkflowID     string
	ExecutionID    uuid.UUID
	Status         Status
	ActiveCount    int
	WaitingCount   int
	CompletedCount int
}

// WaitingTokenInfo is ListWaiting's external-facing shape: one paused
// activity execution, identified by the node it is waiting at.
type WaitingTokenInfo struct {
	NodeID string
	WaitingToken
}

// EngineState is the state exclusively owned and mutated by the engine's
// run loop goroutine (§3, §5). GetState returns a value copy; mutating it
// has no effect on the live engine.
type EngineState struct {
	WorkflowID      string
	ExecutionID     uuid.UUID
	Status          Status
	ActiveTokens    map[uuid.UUID]token.Token
	WaitingTokens   map[uuid.UUID]waitingTokenRef
	CompletedTokens []token.Token
	History         *History
}

type waitingTokenRef struct {
	NodeID string
	Tok    token.Token
}

type nodeTokenKey struct {
	NodeID  string
	TokenID uuid.UUID
}

// Engine is the per-instance coordinator of §4.1. One Engine drives one
// workflow definition's execution; it is itself a single-consumer actor
// over its own mailbox, exactly like the workers it owns (§5).
type Engine struct {
	cfg     config
	trk     tracker.Sink
	mailbox chan any

	nodes       map[string]worker
	startNodeID string

	state   EngineState
	handles map[nodeTokenKey]tracker.Handle
}

// New constructs an Engine for workflowID. The engine's event loop starts
// immediately; AddNode and StartWorkflow may be called right away.
func New(workflowID string, trk tracker.Sink, opts ...Option) *Engine {
	cfg := defaultConfig()
	for _, opt := range opts {
		opt(&cfg)
	}
	if trk == nil {
		trk = tracker.NewNullSink()
	}

	e := &Engine{
		cfg:     cfg,
		trk:     trk,
		mailbox: make(chan any, cfg.mailboxDepth),
		nodes:   make(map[string]worker),
		handles: make(map[nodeTokenKey]tracker.Handle),
		state: EngineState{
			WorkflowID:    workflowID,
			ExecutionID:   uuid.New(),
			Status:        StatusInitialized,
			ActiveTokens:  make(map[uuid.UUID]token.Token),
			WaitingTokens: make(map[uuid.UUID]waitingTokenRef),
			History:       NewHistory(cfg.historyCapacity),
		},
	}
	go e.run()
	return e
}

// Stop closes the engine's mailbox, ending its event loop goroutine. Worker
// mailboxes are not closed, so worker goroutines keep running, and a worker
// that emits an event after Stop panics on the closed engine mailbox.
// Calling any method after Stop is undefined.
func (e *Engine) Stop() {
	close(e.mailbox)
}

// --- public synchronous API -------------------------------------------

// AddNode inserts the already constructed worker w for spec into the node
// table and starts its goroutine. Builder, the usual entry point, resolves
// spec's callable references (workFn/conditionFn/script) when it
// constructs w.
func (e *Engine) AddNode(spec definition.NodeSpec, w worker) error {
	reply := make(chan error, 1)
	e.mailbox <- addNodeCmd{spec: spec, w: w, reply: reply}
	return <-reply
}

// StartWorkflow constructs a fresh token from initialData, transitions the
// engine to running, and enqueues a self-directed ForwardToken to the
// start node (§4.1). Calling it more than once is permitted and produces
// an additional token.
func (e *Engine) StartWorkflow(initialData token.Data) (uuid.UUID, error) {
	reply := make(chan startWorkflowReply, 1)
	e.mailbox <- startWorkflowCmd{initialData: initialData, reply: reply}
	res := <-reply
	return res.tokenID, res.err
}

// GetState returns a snapshot of EngineState.
func (e *Engine) GetState(ctx context.Context) (EngineState, error) {
	reply := make(chan EngineState, 1)
	select {
	case e.mailbox <- getStateCmd{reply: reply}:
	case <-ctx.Done():
		return EngineState{}, ErrTimeout
	}
	select {
	case st := <-reply:
		return st, nil
	case <-ctx.Done():
		return EngineState{}, ErrTimeout
	}
}

// GetStatus returns a lightweight status summary.
func (e *Engine) GetStatus(ctx context.Context) (StatusSummary, error) {
	reply := make(chan StatusSummary, 1)
	select {
	case e.mailbox <- getStatusCmd{reply: reply}:
	case <-ctx.Done():
		return StatusSummary{}, ErrTimeout
	}
	select {
	case st := <-reply:
		return st, nil
	case <-ctx.Done():
		return StatusSummary{}, ErrTimeout
	}
}

// ListWaiting returns a snapshot of every paused activity across every
// waiting-capable node.
func (e *Engine) ListWaiting(ctx context.Context) ([]WaitingTokenInfo, error) {
	reply := make(chan []WaitingTokenInfo, 1)
	select {
	case e.mailbox <- listWaitingCmd{reply: reply}:
	case <-ctx.Done():
		return nil, ErrTimeout
	}
	select {
	case list := <-reply:
		return list, nil
	case <-ctx.Done():
		return nil, ErrTimeout
	}
}

// CompleteActivity implements the ActivityAPI bridge of §4.8: given
// (nodeId, tokenId, userData), it validates against engine state and then
// delegates to the activity worker's own Complete.
func (e *Engine) CompleteActivity(ctx context.Context, nodeID string, tokenID uuid.UUID, data token.Data) (token.Token, error) {
	reply := make(chan completeActivityReply, 1)
	select {
	case e.mailbox <- completeActivityCmd{nodeID: nodeID, tokenID: tokenID, data: data, reply: reply}:
	case <-ctx.Done():
		return token.Token{}, ErrTimeout
	}
	select {
	case res := <-reply:
		return res.tok, res.err
	case <-ctx.Done():
		return token.Token{}, ErrTimeout
	}
}

// TriggerUserTask is a legacy-compatible synonym for CompleteActivity,
// kept per §9's direction that the worker-held waitingTokens/Complete form
// is canonical and Trigger survives only as an API alias.
func (e *Engine) TriggerUserTask(ctx context.Context, nodeID string, tokenID uuid.UUID, data token.Data) (token.Token, error) {
	return e.CompleteActivity(ctx, nodeID, tokenID, data)
}

// --- engineLink implementation (worker -> engine events) ---------------

func (e *Engine) forwardToken(nodeID string, tok token.Token) {
	e.mailbox <- forwardTokenEvt{nodeID: nodeID, tok: tok}
}

func (e *Engine) nodeExecuted(nodeID string, kind definition.NodeKind, tokenID uuid.UUID, inputData token.Data, tok token.Token, workErr error, waiting bool) {
	e.mailbox <- nodeExecutedEvt{nodeID: nodeID, nodeKind: kind, tokenID: tokenID, inputData: inputData, tok: tok, workErr: workErr, waiting: waiting}
}

func (e *Engine) activityWaiting(nodeID string, tok token.Token, activityType definition.ActivityType) {
	e.mailbox <- activityWaitingEvt{nodeID: nodeID, tok: tok, activityType: activityType}
}

func (e *Engine) activityCompleted(nodeID string, tok token.Token) {
	e.mailbox <- activityCompletedEvt{nodeID: nodeID, tok: tok}
}

func (e *Engine) workflowCompleted(nodeID string, tok token.Token) {
	e.mailbox <- workflowCompletedEvt{nodeID: nodeID, tok: tok}
}

func (e *Engine) forwardToUnknownNode(fromNodeID, toNodeID string, tok token.Token) {
	e.mailbox <- forwardToUnknownNodeEvt{fromNodeID: fromNodeID, toNodeID: toNodeID, tok: tok}
}

func (e *Engine) tokenSplit(parentID uuid.UUID, branches []token.Token) {
	e.mailbox <- tokenSplitEvt{parentID: parentID, branches: branches}
}

// --- the event loop ------------------------------------------------------

func (e *Engine) run() {
	for msg := range e.mailbox {
		switch m := msg.(type) {
		case addNodeCmd:
			e.handleAddNode(m)
		case startWorkflowCmd:
			e.handleStartWorkflow(m)
		case getStateCmd:
			m.reply <- e.snapshotState()
		case getStatusCmd:
			m.reply <- e.snapshotStatus()
		case listWaitingCmd:
			m.reply <- e.listWaiting()
		case completeActivityCmd:
			e.handleCompleteActivity(m)
		case forwardTokenEvt:
			e.handleForwardToken(m)
		case nodeExecutedEvt:
			e.handleNodeExecuted(m)
		case activityWaitingEvt:
			e.handleActivityWaiting(m)
		case activityCompletedEvt:
			e.handleActivityCompleted(m)
		case workflowCompletedEvt:
			e.handleWorkflowCompleted(m)
		case forwardToUnknownNodeEvt:
			e.handleForwardToUnknownNode(m)
		case tokenSplitEvt:
			e.handleTokenSplit(m)
		}
	}
}

func (e *Engine) handleAddNode(m addNodeCmd) {
	if _, exists := e.nodes[m.spec.ID]; exists {
		m.reply <- wrapErr(ErrNodeAlreadyExists, m.spec.ID, nil)
		return
	}
	switch m.spec.Kind {
	case definition.KindStart, definition.KindEnd, definition.KindActivity, definition.KindGateway:
	default:
		m.reply <- wrapErr(ErrUnknownNodeType, m.spec.ID, nil)
		return
	}

	e.nodes[m.spec.ID] = m.w
	if m.spec.Kind == definition.KindStart {
		e.startNodeID = m.spec.ID
	}
	go m.w.run()
	m.reply <- nil
}

func (e *Engine) handleStartWorkflow(m startWorkflowCmd) {
	if e.startNodeID == "" {
		m.reply <- startWorkflowReply{err: wrapErr(ErrNoStartNode, "", nil)}
		return
	}

	tok := token.New(m.initialData)
	e.state.ActiveTokens[tok.ID] = tok
	e.state.Status = StatusRunning
	m.reply <- startWorkflowReply{tokenID: tok.ID}

	e.forwardToken(e.startNodeID, tok)
}

func (e *Engine) handleForwardToken(m forwardTokenEvt) {
	w, ok := e.nodes[m.nodeID]
	if !ok {
		e.forwardToUnknownNode("", m.nodeID, m.tok)
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), e.cfg.trackerTimeout)
	handle := e.trk.Start(ctx, tracker.StartInput{
		WorkflowID:  e.state.WorkflowID,
		ExecutionID: e.state.ExecutionID.String(),
		TokenID:     m.tok.ID,
		NodeID:      m.nodeID,
		NodeType:    string(w.kind()),
		InputData:   m.tok.Data,
	})
	cancel()
	e.handles[nodeTokenKey{NodeID: m.nodeID, TokenID: m.tok.ID}] = handle

	w.forward(m.tok)
}

func (e *Engine) handleNodeExecuted(m nodeExecutedEvt) {
	e.state.History.Push(HistoryEntry{Timestamp: time.Now().UTC(), NodeID: m.nodeID, TokenID: m.tokenID})

	// A waiting activity hasn't actually finished: leave its handle open
	// for handleActivityWaiting to mark waiting and handleActivityCompleted
	// to eventually complete.
	if m.waiting {
		return
	}

	key := nodeTokenKey{NodeID: m.nodeID, TokenID: m.tokenID}
	handle, ok := e.handles[key]
	if !ok {
		return
	}
	delete(e.handles, key)

	ctx, cancel := context.WithTimeout(context.Background(), e.cfg.trackerTimeout)
	defer cancel()
	if m.workErr != nil {
		e.trk.Fail(ctx, handle, m.workErr.Error())
		return
	}
	e.trk.Complete(ctx, handle, m.tok.Data)
}

func (e *Engine) handleActivityWaiting(m activityWaitingEvt) {
	delete(e.state.ActiveTokens, m.tok.ID)
	e.state.WaitingTokens[m.tok.ID] = waitingTokenRef{NodeID: m.nodeID, Tok: m.tok}

	ctx, cancel := context.WithTimeout(context.Background(), e.cfg.trackerTimeout)
	defer cancel()
	if handle, ok := e.handles[nodeTokenKey{NodeID: m.nodeID, TokenID: m.tok.ID}]; ok {
		e.trk.MarkWaiting(ctx, handle)
	}

	e.recomputeStatus()
}

func (e *Engine) handleActivityCompleted(m activityCompletedEvt) {
	delete(e.state.WaitingTokens, m.tok.ID)
	e.state.ActiveTokens[m.tok.ID] = m.tok
	e.state.Status = StatusRunning

	key := nodeTokenKey{NodeID: m.nodeID, TokenID: m.tok.ID}
	if handle, ok := e.handles[key]; ok {
		delete(e.handles, key)
		ctx, cancel := context.WithTimeout(context.Background(), e.cfg.trackerTimeout)
		e.trk.Complete(ctx, handle, m.tok.Data)
		cancel()
	}
}

func (e *Engine) handleWorkflowCompleted(m workflowCompletedEvt) {
	delete(e.state.ActiveTokens, m.tok.ID)
	delete(e.state.WaitingTokens, m.tok.ID)
	e.state.CompletedTokens = append(e.state.CompletedTokens, m.tok)
	e.recomputeStatus()
}

func (e *Engine) handleForwardToUnknownNode(m forwardToUnknownNodeEvt) {
	ctx, cancel := context.WithTimeout(context.Background(), e.cfg.trackerTimeout)
	defer cancel()
	e.trk.MarkSkipped(ctx, tracker.NullHandle, fmt.Sprintf("forward to unknown node %q from %q", m.toNodeID, m.fromNodeID))
	delete(e.state.ActiveTokens, m.tok.ID)
}

// handleTokenSplit replaces parentID's census entry with one entry per
// branch, resolving a parallel/inclusive gateway's fan-out in the active
// census (§3): without this, a split token's original id would never be
// removed and the workflow would never be reported completed.
func (e *Engine) handleTokenSplit(m tokenSplitEvt) {
	delete(e.state.ActiveTokens, m.parentID)
	for _, branch := range m.branches {
		e.state.ActiveTokens[branch.ID] = branch
	}
}

func (e *Engine) handleCompleteActivity(m completeActivityCmd) {
	ref, ok := e.state.WaitingTokens[m.tokenID]
	if !ok {
		m.reply <- completeActivityReply{err: wrapErr(ErrTokenNotWaiting, m.nodeID, nil)}
		return
	}
	if ref.NodeID != m.nodeID {
		m.reply <- completeActivityReply{err: wrapErr(ErrTokenAtDifferentNode, m.nodeID, nil)}
		return
	}

	w, ok := e.nodes[m.nodeID]
	if !ok {
		m.reply <- completeActivityReply{err: wrapErr(ErrTokenNotFound, m.nodeID, nil)}
		return
	}
	wc, ok := w.(waitingCapable)
	if !ok {
		m.reply <- completeActivityReply{err: wrapErr(ErrTokenNotFound, m.nodeID, nil)}
		return
	}

	tok, err := wc.complete(m.tokenID, m.data)
	if err != nil {
		m.reply <- completeActivityReply{err: err}
		return
	}
	m.reply <- completeActivityReply{tok: tok}
}

// --- status and snapshots -------------------------------------------------

// recomputeStatus applies §4.1's single status rule.
func (e *Engine) recomputeStatus() {
	switch {
	case len(e.state.ActiveTokens) == 0 && len(e.state.WaitingTokens) == 0 && len(e.state.CompletedTokens) != 0:
		e.state.Status = StatusCompleted
	case len(e.state.ActiveTokens) == 0 && len(e.state.WaitingTokens) != 0:
		e.state.Status = StatusWaiting
	case len(e.state.ActiveTokens) != 0:
		e.state.Status = StatusRunning
	}
}

func (e *Engine) snapshotState() EngineState {
	active := make(map[uuid.UUID]token.Token, len(e.state.ActiveTokens))
	for k, v := range e.state.ActiveTokens {
		active[k] = v
	}
	waiting := make(map[uuid.UUID]waitingTokenRef, len(e.state.WaitingTokens))
	for k, v := range e.state.WaitingTokens {
		waiting[k] = v
	}
	completed := make([]token.Token, len(e.state.CompletedTokens))
	copy(completed, e.state.CompletedTokens)
	history := &History{cap: e.state.History.cap, entries: make([]HistoryEntry, len(e.state.History.entries))}
	copy(history.entries, e.state.History.entries)

	return EngineState{
		WorkflowID:      e.state.WorkflowID,
		ExecutionID:     e.state.ExecutionID,
		Status:          e.state.Status,
		ActiveTokens:    active,
		WaitingTokens:   waiting,
		CompletedTokens: completed,
		History:         history,
	}
}

func (e *Engine) snapshotStatus() StatusSummary {
	return StatusSummary{
		WorkflowID:     e.state.WorkflowID,
		ExecutionID:    e.state.ExecutionID,
		Status:         e.state.Status,
		ActiveCount:    len(e.state.ActiveTokens),
		WaitingCount:   len(e.state.WaitingTokens),
		CompletedCount: len(e.state.CompletedTokens),
	}
}

func (e *Engine) listWaiting() []WaitingTokenInfo {
	var out []WaitingTokenInfo
	for nodeID, w := range e.nodes {
		wc, ok := w.(waitingCapable)
		if !ok {
			continue
		}
		for _, wt := range wc.snapshotWaiting() {
			out = append(out, WaitingTokenInfo{NodeID: nodeID, WaitingToken: wt})
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Timestamp.Before(out[j].Timestamp) })
	return out
}
