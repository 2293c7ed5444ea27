package engine

import (
	"fmt"

	"github.com/lucerna-run/workflow-go/callable"
	"github.com/lucerna-run/workflow-go/definition"
	"github.com/lucerna-run/workflow-go/tracker"
)

// Builder constructs a fully-wired Engine from a definition.Definition and a
// callable.Registry, resolving every WorkFnName/ConditionFnName/Script
// reference into a concrete callable.WorkFn/callable.ConditionFn and
// spawning the matching worker type for each node (§4.1: "registry ... is
// built once at startup from the definition document").
type Builder struct {
	registry *callable.Registry
	trk      tracker.Sink
	opts     []Option
}

// NewBuilder returns a Builder that resolves callables against registry.
// A nil registry is treated as empty: every WorkFnName/ConditionFnName
// lookup then fails at Build time unless the node also carries a Script.
func NewBuilder(registry *callable.Registry, trk tracker.Sink, opts ...Option) *Builder {
	if registry == nil {
		registry = callable.NewRegistry()
	}
	return &Builder{registry: registry, trk: trk, opts: opts}
}

// Build validates def and returns a running Engine with every node spawned
// and wired, ready for StartWorkflow.
func (b *Builder) Build(def definition.Definition) (*Engine, error) {
	if err := def.Validate(); err != nil {
		return nil, err
	}

	e := New(def.ID, b.trk, b.opts...)
	depth := e.cfg.mailboxDepth

	for _, spec := range def.Nodes {
		w, err := b.buildWorker(spec, e, depth)
		if err != nil {
			return nil, err
		}
		if err := e.AddNode(spec, w); err != nil {
			return nil, err
		}
	}

	return e, nil
}

func (b *Builder) buildWorker(spec definition.NodeSpec, link engineLink, depth int) (worker, error) {
	switch spec.Kind {
	case definition.KindStart:
		return newStartWorker(spec.ID, spec.NextNodes, link, depth), nil

	case definition.KindEnd:
		return newEndWorker(spec.ID, link, depth), nil

	case definition.KindGateway:
		cond, err := b.resolveConditionFn(spec)
		if err != nil {
			return nil, err
		}
		return newGatewayWorker(spec.ID, spec.GatewayType, spec.NextNodes, cond, link, depth), nil

	case definition.KindActivity:
		fn, err := b.resolveWorkFn(spec)
		if err != nil {
			return nil, err
		}
		return newActivityWorker(spec.ID, spec.ActivityType, spec.NextNodes, fn, spec.FormFields, link, depth), nil

	default:
		return nil, wrapErr(ErrUnknownNodeType, spec.ID, nil)
	}
}

// resolveWorkFn implements the precedence of §4.5 and §9's "Callable
// fields" note: an explicit Script always wins over WorkFnName, since a
// script activity with no WorkFnName should still run its projection; a
// service activity with neither resolves to a pass-through no-op rather
// than failing the build, matching WorkFnName's documented "empty means
// pass through" contract.
func (b *Builder) resolveWorkFn(spec definition.NodeSpec) (callable.WorkFn, error) {
	if spec.Script != "" {
		compiled, err := callable.CompileScript(spec.Script)
		if err != nil {
			return nil, fmt.Errorf("engine: node %q: %w", spec.ID, err)
		}
		return compiled.AsWorkFn(), nil
	}

	if spec.WorkFnName == "" {
		return nil, nil
	}

	fn, ok := b.registry.WorkFn(spec.WorkFnName)
	if !ok {
		return nil, fmt.Errorf("engine: node %q: no work_fn registered under %q", spec.ID, spec.WorkFnName)
	}
	return fn, nil
}

func (b *Builder) resolveConditionFn(spec definition.NodeSpec) (callable.ConditionFn, error) {
	if spec.ConditionFnName == "" {
		return nil, nil
	}
	fn, ok := b.registry.ConditionFn(spec.ConditionFnName)
	if !ok {
		return nil, fmt.Errorf("engine: node %q: no condition_fn registered under %q", spec.ID, spec.ConditionFnName)
	}
	return fn, nil
}
