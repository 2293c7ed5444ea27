package engine

import (
	"github.com/lucerna-run/workflow-go/definition"
	"github.com/lucerna-run/workflow-go/token"
)

// endWorker implements §4.4: moves the token to self, reports it executed,
// and emits WorkflowCompleted. No forwards. An engine may have more than
// one end node.
type endWorker struct {
	idv     string
	link    engineLink
	mailbox chan execCmd
}

func newEndWorker(id string, link engineLink, depth int) *endWorker {
	return &endWorker{idv: id, link: link, mailbox: make(chan execCmd, depth)}
}

func (w *endWorker) id() string               { return w.idv }
func (w *endWorker) kind() definition.NodeKind { return definition.KindEnd }
func (w *endWorker) forward(tok token.Token)  { w.mailbox <- execCmd{tok: tok} }

func (w *endWorker) run() {
	for cmd := range w.mailbox {
		input := cmd.tok.Data
		tok := cmd.tok.MoveTo(w.idv)
		w.link.nodeExecuted(w.idv, definition.KindEnd, tok.ID, input, tok, nil, false)
		w.link.workflowCompleted(w.idv, tok)
	}
}
