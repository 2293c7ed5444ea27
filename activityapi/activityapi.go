// Package activityapi implements the external completion bridge of §4.8:
// resolving a (workflowId, nodeId, tokenId) triple against a running
// engine instance and delegating to its CompleteActivity. The engine
// itself only knows its own workflow; a deployment running more than one
// workflow needs a way to find the right Engine by workflowId first, which
// is the Registry half of this package (§2's "Registries & spawn fabric").
package activityapi

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/google/uuid"

	"github.com/lucerna-run/workflow-go/engine"
	"github.com/lucerna-run/workflow-go/token"
)

// ErrWorkflowNotFound is returned when no engine is registered under the
// requested workflow id.
var ErrWorkflowNotFound = errors.New("activityapi: workflow not found")

// Registry maps a running workflow's id to the *engine.Engine driving it.
// One process may host many concurrently running workflow instances; the
// registry is how the REST/CLI surface and the ActivityAPI bridge find the
// right one. Safe for concurrent use.
type Registry struct {
	mu       sync.RWMutex
	byWorkflow map[string]*engine.Engine
}

// NewRegistry returns an empty Registry.
func NewRegistry() *Registry {
	return &Registry{byWorkflow: make(map[string]*engine.Engine)}
}

// Register associates workflowID with e, replacing any prior engine under
// the same id. Callers typically register right after Builder.Build.
func (r *Registry) Register(workflowID string, e *engine.Engine) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.byWorkflow[workflowID] = e
}

// Unregister removes workflowID, e.g. once its engine has fully completed
// and its state has been persisted. It does not stop the engine.
func (r *Registry) Unregister(workflowID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.byWorkflow, workflowID)
}

// Lookup returns the engine registered under workflowID.
func (r *Registry) Lookup(workflowID string) (*engine.Engine, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.byWorkflow[workflowID]
	return e, ok
}

// API is the external completion bridge. It holds no state of its own
// beyond the Registry it resolves workflow ids against; every operation
// is a thin read-then-delegate per §4.8.
type API struct {
	registry *Registry
}

// New returns an API that resolves workflow ids against registry.
func New(registry *Registry) *API {
	return &API{registry: registry}
}

// Complete implements §4.8's four-step resolution: find the engine for
// workflowID, then let the engine itself validate that tokenID is waiting
// at nodeID before delegating to the activity worker's Complete.
func (a *API) Complete(ctx context.Context, workflowID, nodeID string, tokenID uuid.UUID, userData token.Data) (token.Token, error) {
	e, ok := a.registry.Lookup(workflowID)
	if !ok {
		return token.Token{}, fmt.Errorf("%w: %q", ErrWorkflowNotFound, workflowID)
	}
	return e.CompleteActivity(ctx, nodeID, tokenID, userData)
}

// ListWaiting returns every paused activity for workflowID.
func (a *API) ListWaiting(ctx context.Context, workflowID string) ([]engine.WaitingTokenInfo, error) {
	e, ok := a.registry.Lookup(workflowID)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrWorkflowNotFound, workflowID)
	}
	return e.ListWaiting(ctx)
}

// Status returns the status summary for workflowID.
func (a *API) Status(ctx context.Context, workflowID string) (engine.StatusSummary, error) {
	e, ok := a.registry.Lookup(workflowID)
	if !ok {
		return engine.StatusSummary{}, fmt.Errorf("%w: %q", ErrWorkflowNotFound, workflowID)
	}
	return e.GetStatus(ctx)
}
