package engine

import (
	"github.com/lucerna-run/workflow-go/definition"
	"github.com/lucerna-run/workflow-go/token"
)

// startWorker implements §4.3: a single entry path that fans out to every
// declared successor, in declaration order. More than one NextNodes entry
// is an implicit parallel split.
type startWorker struct {
	idv       string
	nextNodes []string
	link      engineLink
	mailbox   chan execCmd
}

func newStartWorker(id string, nextNodes []string, link engineLink, depth int) *startWorker {
	return &startWorker{
		idv:       id,
		nextNodes: nextNodes,
		link:      link,
		mailbox:   make(chan execCmd, depth),
	}
}

func (w *startWorker) id() string                    { return w.idv }
func (w *startWorker) kind() definition.NodeKind      { return definition.KindStart }
func (w *startWorker) forward(tok token.Token)        { w.mailbox <- execCmd{tok: tok} }

func (w *startWorker) run() {
	for cmd := range w.mailbox {
		input := cmd.tok.Data
		tok := cmd.tok.MoveTo(w.idv)
		w.link.nodeExecuted(w.idv, definition.KindStart, tok.ID, input, tok, nil, false)
		if len(w.nextNodes) > 1 {
			branches := tok.Split(len(w.nextNodes))
			w.link.tokenSplit(tok.ID, branches)
			for i, next := range w.nextNodes {
				w.link.forwardToken(next, branches[i])
			}
			continue
		}
		for _, next := range w.nextNodes {
			w.link.forwardToken(next, tok)
		}
	}
}
