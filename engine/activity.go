package engine

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/lucerna-run/workflow-go/callable"
	"github.com/lucerna-run/workflow-go/definition"
	"github.com/lucerna-run/workflow-go/token"
)

// activityWorker implements §4.5's four variants. service and script
// activities resolve to a callable.WorkFn at construction time (script's
// restricted expression language is already compiled to a WorkFn by the
// Builder via callable.ScriptFromString.AsWorkFn, so this worker doesn't
// need to know which variant it is). user and manual share the same
// externally-completed behavior: they pause and wait for Complete.
type activityWorker struct {
	idv          string
	activityType definition.ActivityType
	nextNodes    []string
	workFn       callable.WorkFn
	formFields   []definition.FormField
	link         engineLink

	mailbox chan any // execCmd, completeCmd or snapshotCmd; see node.go

	// waiting is local to this worker, per §4.5's "store it under
	// waitingTokens[token.id]" — only the run loop goroutine touches it,
	// so no mutex guards it.
	waiting map[uuid.UUID]waitingEntry
}

type waitingEntry struct {
	tok       token.Token
	startedAt time.Time
}

func newActivityWorker(id string, activityType definition.ActivityType, nextNodes []string, workFn callable.WorkFn, formFields []definition.FormField, link engineLink, depth int) *activityWorker {
	return &activityWorker{
		idv:          id,
		activityType: activityType,
		nextNodes:    nextNodes,
		workFn:       workFn,
		formFields:   formFields,
		link:         link,
		mailbox:      make(chan any, depth),
		waiting:      make(map[uuid.UUID]waitingEntry),
	}
}

func (w *activityWorker) id() string               { return w.idv }
func (w *activityWorker) kind() definition.NodeKind { return definition.KindActivity }
func (w *activityWorker) forward(tok token.Token)  { w.mailbox <- execCmd{tok: tok} }

func (w *activityWorker) isExternallyCompleted() bool {
	return w.activityType == definition.ActivityUser || w.activityType == definition.ActivityManual
}

func (w *activityWorker) run() {
	for msg := range w.mailbox {
		switch m := msg.(type) {
		case execCmd:
			w.handleExecute(m.tok)
		case completeCmd:
			w.handleComplete(m)
		case snapshotCmd:
			m.reply <- w.buildSnapshot()
		}
	}
}

func (w *activityWorker) handleExecute(in token.Token) {
	tok := in.MoveTo(w.idv)
	input := in.Data

	if w.isExternallyCompleted() {
		w.waiting[tok.ID] = waitingEntry{tok: tok, startedAt: time.Now().UTC()}
		w.link.nodeExecuted(w.idv, definition.KindActivity, tok.ID, input, tok, nil, true)
		w.link.activityWaiting(w.idv, tok, w.activityType)
		return
	}

	out, workErr := w.runWorkFn(tok)
	w.link.nodeExecuted(w.idv, definition.KindActivity, tok.ID, input, out, workErr, false)
	for _, next := range w.nextNodes {
		w.link.forwardToken(next, out)
	}
}

// runWorkFn applies workFn, poisoning the token's data on failure rather
// than propagating the error — a workFn panic never stops the flow (§4.5,
// §7 WorkerFailure).
func (w *activityWorker) runWorkFn(tok token.Token) (token.Token, error) {
	if w.workFn == nil {
		return tok, nil
	}

	out, err := safeRunWorkFn(w.workFn, tok)
	if err != nil {
		return tok.WithError(err.Error()), err
	}
	return tok.Merge(out), nil
}

func safeRunWorkFn(fn callable.WorkFn, tok token.Token) (delta token.Data, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = panicAsError(r)
		}
	}()
	return fn(context.Background(), tok.Data)
}

func (w *activityWorker) handleComplete(m completeCmd) {
	entry, ok := w.waiting[m.tokenID]
	if !ok {
		m.reply <- completeCmdReply{err: wrapErr(ErrTokenNotFound, w.idv, nil)}
		return
	}
	delete(w.waiting, m.tokenID)

	out := entry.tok.Merge(m.data)
	w.link.activityCompleted(w.idv, out)
	for _, next := range w.nextNodes {
		w.link.forwardToken(next, out)
	}
	m.reply <- completeCmdReply{tok: out}
}

// complete implements waitingCapable.
func (w *activityWorker) complete(tokenID uuid.UUID, data token.Data) (token.Token, error) {
	reply := make(chan completeCmdReply, 1)
	w.mailbox <- completeCmd{tokenID: tokenID, data: data, reply: reply}
	res := <-reply
	return res.tok, res.err
}

// snapshotWaiting implements waitingCapable. It is called synchronously
// from outside the worker's goroutine, so it routes through the mailbox
// too, via a dedicated request to avoid racing handleExecute/handleComplete
// mutating w.waiting concurrently with a direct map read.
func (w *activityWorker) snapshotWaiting() []WaitingToken {
	reply := make(chan []WaitingToken, 1)
	w.mailbox <- snapshotCmd{reply: reply}
	return <-reply
}

type snapshotCmd struct {
	reply chan []WaitingToken
}

func (w *activityWorker) buildSnapshot() []WaitingToken {
	out := make([]WaitingToken, 0, len(w.waiting))
	for id, entry := range w.waiting {
		out = append(out, WaitingToken{
			ID:           id,
			Data:         entry.tok.Data,
			Timestamp:    entry.startedAt,
			ActivityType: w.activityType,
			FormFields:   w.formFields,
		})
	}
	return out
}
