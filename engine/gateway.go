package engine

import (
	"golang.org/x/sync/errgroup"

	"github.com/lucerna-run/workflow-go/callable"
	"github.com/lucerna-run/workflow-go/definition"
	"github.com/lucerna-run/workflow-go/token"
)

// gatewayWorker implements §4.6. Gateways route; they never pause.
type gatewayWorker struct {
	idv         string
	gatewayType definition.GatewayType
	nextNodes   []string
	conditionFn callable.ConditionFn
	link        engineLink
	mailbox     chan execCmd
}

func newGatewayWorker(id string, gt definition.GatewayType, nextNodes []string, cond callable.ConditionFn, link engineLink, depth int) *gatewayWorker {
	return &gatewayWorker{
		idv:         id,
		gatewayType: gt,
		nextNodes:   nextNodes,
		conditionFn: cond,
		link:        link,
		mailbox:     make(chan execCmd, depth),
	}
}

func (w *gatewayWorker) id() string               { return w.idv }
func (w *gatewayWorker) kind() definition.NodeKind { return definition.KindGateway }
func (w *gatewayWorker) forward(tok token.Token)  { w.mailbox <- execCmd{tok: tok} }

func (w *gatewayWorker) run() {
	for cmd := range w.mailbox {
		input := cmd.tok.Data
		tok := cmd.tok.MoveTo(w.idv)
		w.link.nodeExecuted(w.idv, definition.KindGateway, tok.ID, input, tok, nil, false)

		switch w.gatewayType {
		case definition.GatewayParallel:
			w.routeParallel(tok)
		case definition.GatewayInclusive:
			w.routeInclusive(tok)
		default:
			w.routeExclusive(tok)
		}
	}
}

func (w *gatewayWorker) matches(data token.Data, candidate string) bool {
	if w.conditionFn == nil {
		return candidate != ""
	}
	return w.conditionFn(data, candidate)
}

// routeExclusive forwards to the first matching successor in declaration
// order, falling back to the first successor in declaration order when
// none match — a compatibility policy the spec requires preserving even
// though it silently masks a misconfigured definition.
func (w *gatewayWorker) routeExclusive(tok token.Token) {
	if len(w.nextNodes) == 0 {
		return
	}
	for _, next := range w.nextNodes {
		if w.matches(tok.Data, next) {
			w.link.forwardToken(next, tok)
			return
		}
	}
	w.link.forwardToken(w.nextNodes[0], tok)
}

// routeParallel forwards a cloned token to every successor unconditionally,
// dispatching concurrently since successors' mailboxes are independent.
func (w *gatewayWorker) routeParallel(tok token.Token) {
	if len(w.nextNodes) == 0 {
		return
	}
	branches := tok.Split(len(w.nextNodes))
	w.link.tokenSplit(tok.ID, branches)

	var g errgroup.Group
	for i, next := range w.nextNodes {
		next, branch := next, branches[i]
		g.Go(func() error {
			w.link.forwardToken(next, branch)
			return nil
		})
	}
	_ = g.Wait()
}

// routeInclusive forwards to every matching successor, or to all of them
// if none match (compatibility fallback, §4.6).
func (w *gatewayWorker) routeInclusive(tok token.Token) {
	if len(w.nextNodes) == 0 {
		return
	}

	var matched []string
	for _, next := range w.nextNodes {
		if w.matches(tok.Data, next) {
			matched = append(matched, next)
		}
	}
	if len(matched) == 0 {
		matched = w.nextNodes
	}

	branches := tok.Split(len(matched))
	w.link.tokenSplit(tok.ID, branches)

	var g errgroup.Group
	for i, next := range matched {
		next, branch := next, branches[i]
		g.Go(func() error {
			w.link.forwardToken(next, branch)
			return nil
		})
	}
	_ = g.Wait()
}
