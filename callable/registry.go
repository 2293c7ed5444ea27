// Package callable resolves the names a definition.NodeSpec references
// (work_fn, condition_fn, script) into actual Go functions, grounded on
// the source's first-class workFn/conditionFn closures (§9: "Callable
// fields"). Closures aren't serializable, so the definition document only
// ever carries a name; the Registry is how a deployment wires names to
// behavior before building an engine from a document.
package callable

import (
	"context"
	"fmt"
	"sync"

	"github.com/lucerna-run/workflow-go/token"
)

// WorkFn is a service/script activity's unit of work. It receives the
// token's current data and returns a delta to be right-biased merged into
// it (§4.5). A returned error is caught by the activity worker and turned
// into an {"error": msg} delta; WorkFn implementations do not need their
// own recover().
type WorkFn func(ctx context.Context, data token.Data) (token.Data, error)

// ConditionFn evaluates whether a gateway should route to candidate given
// the token's current data (§4.6).
type ConditionFn func(data token.Data, candidate string) bool

// Registry maps names to WorkFn/ConditionFn implementations. Safe for
// concurrent reads once populated; Register calls should happen during
// setup, before any engine built from the registry starts running.
type Registry struct {
	mu         sync.RWMutex
	workFns    map[string]WorkFn
	conditions map[string]ConditionFn
}

// NewRegistry returns an empty Registry.
func NewRegistry() *Registry {
	return &Registry{
		workFns:    make(map[string]WorkFn),
		conditions: make(map[string]ConditionFn),
	}
}

// RegisterWorkFn makes fn available under name for a NodeSpec.WorkFnName
// reference. Registering the same name twice overwrites the previous
// registration.
func (r *Registry) RegisterWorkFn(name string, fn WorkFn) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.workFns[name] = fn
}

// RegisterConditionFn makes fn available under name for a
// NodeSpec.ConditionFnName reference.
func (r *Registry) RegisterConditionFn(name string, fn ConditionFn) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.conditions[name] = fn
}

// WorkFn looks up a previously registered WorkFn.
func (r *Registry) WorkFn(name string) (WorkFn, bool) {
	if name == "" {
		return nil, false
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	fn, ok := r.workFns[name]
	return fn, ok
}

// ConditionFn looks up a previously registered ConditionFn.
func (r *Registry) ConditionFn(name string) (ConditionFn, bool) {
	if name == "" {
		return nil, false
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	fn, ok := r.conditions[name]
	return fn, ok
}

// MustWorkFn is a setup-time helper that panics if name isn't registered;
// useful for failing fast when wiring a Builder from a known-good set of
// definitions.
func (r *Registry) MustWorkFn(name string) WorkFn {
	fn, ok := r.WorkFn(name)
	if !ok {
		panic(fmt.Sprintf("callable: no work_fn registered under %q", name))
	}
	return fn
}
