// Package definition describes a workflow graph: its nodes, their kinds,
// and the sequence flows between them. It is the static document an
// engine.Builder turns into a running Engine.
package definition

import "fmt"

// NodeKind is the fixed vocabulary of node types a Definition may contain.
type NodeKind string

const (
	KindStart    NodeKind = "start"
	KindEnd      NodeKind = "end"
	KindActivity NodeKind = "activity"
	KindGateway  NodeKind = "gateway"
)

// ActivityType distinguishes the four activity variants of §4.5.
type ActivityType string

const (
	ActivityService ActivityType = "service"
	ActivityUser    ActivityType = "user"
	ActivityManual  ActivityType = "manual"
	ActivityScript  ActivityType = "script"
)

// GatewayType distinguishes the three routing strategies of §4.6.
type GatewayType string

const (
	GatewayExclusive GatewayType = "exclusive"
	GatewayParallel  GatewayType = "parallel"
	GatewayInclusive GatewayType = "inclusive"
)

// FormField describes one field of a user task's form, surfaced verbatim
// in the FormFields of each entry returned by engine.Engine.ListWaiting.
type FormField struct {
	Name     string `json:"name" yaml:"name"`
	Type     string `json:"type" yaml:"type"`
	Required bool   `json:"required,omitempty" yaml:"required,omitempty"`
	Label    string `json:"label,omitempty" yaml:"label,omitempty"`
}

// NodeSpec is one vertex of the process graph.
type NodeSpec struct {
	// ID is unique within one Definition.
	ID string `json:"id" yaml:"id"`

	// Kind selects which worker implementation executes this node.
	Kind NodeKind `json:"type" yaml:"type"`

	// Name is an optional human-readable label, not used for routing.
	Name string `json:"name,omitempty" yaml:"name,omitempty"`

	// NextNodes is the ordered list of outgoing node ids. Order defines
	// tie-breaks for start fan-out, exclusive fallback, and gateway
	// declaration order.
	NextNodes []string `json:"next_nodes,omitempty" yaml:"next_nodes,omitempty"`

	// ActivityType is set only when Kind == KindActivity.
	ActivityType ActivityType `json:"activity_type,omitempty" yaml:"activity_type,omitempty"`

	// WorkFnName names a callable registered in a callable.Registry,
	// invoked for service/script activities. Empty means "pass through".
	WorkFnName string `json:"work_fn,omitempty" yaml:"work_fn,omitempty"`

	// Script is a raw expression evaluated against the token's data. When
	// set, it is used instead of WorkFnName, whichever activity type the
	// node has. See callable/script.go.
	Script string `json:"script,omitempty" yaml:"script,omitempty"`

	// FormFields describes a user task's external form, informational only.
	FormFields []FormField `json:"form_fields,omitempty" yaml:"form_fields,omitempty"`

	// GatewayType is set only when Kind == KindGateway.
	GatewayType GatewayType `json:"gateway_type,omitempty" yaml:"gateway_type,omitempty"`

	// ConditionFnName names a predicate registered in a callable.Registry,
	// evaluated per successor for exclusive/inclusive gateways. Empty means
	// "every non-empty successor id matches".
	ConditionFnName string `json:"condition_fn,omitempty" yaml:"condition_fn,omitempty"`
}

// Definition is a complete, loadable process graph.
type Definition struct {
	// ID optionally identifies this definition across versions; unused for
	// routing, carried through to persistence.
	ID string `json:"id,omitempty" yaml:"id,omitempty"`

	// StartNodeID is the id of the single entry node, which must exist in
	// Nodes and have Kind == KindStart.
	StartNodeID string `json:"start_node_id" yaml:"start_node_id"`

	// Nodes holds every vertex of the graph.
	Nodes []NodeSpec `json:"nodes" yaml:"nodes"`
}

// ByID returns the NodeSpec with the given id, or false if none exists.
func (d Definition) ByID(id string) (NodeSpec, bool) {
	for _, n := range d.Nodes {
		if n.ID == id {
			return n, true
		}
	}
	return NodeSpec{}, false
}

// Validate checks the structural invariants from spec §3:
//   - exactly one start node, referenced by StartNodeID, of kind start
//   - every id referenced by any NextNodes resolves within this document
//   - node ids are unique
func (d Definition) Validate() error {
	if d.StartNodeID == "" {
		return fmt.Errorf("definition: start_node_id is required")
	}

	seen := make(map[string]NodeSpec, len(d.Nodes))
	startCount := 0
	for _, n := range d.Nodes {
		if n.ID == "" {
			return fmt.Errorf("definition: node with empty id")
		}
		if _, dup := seen[n.ID]; dup {
			return fmt.Errorf("definition: duplicate node id %q", n.ID)
		}
		seen[n.ID] = n
		if n.Kind == KindStart {
			startCount++
		}
	}

	if startCount != 1 {
		return fmt.Errorf("definition: expected exactly one start node, found %d", startCount)
	}

	start, ok := seen[d.StartNodeID]
	if !ok {
		return fmt.Errorf("definition: start_node_id %q does not reference a node", d.StartNodeID)
	}
	if start.Kind != KindStart {
		return fmt.Errorf("definition: start_node_id %q references a %s node, not start", d.StartNodeID, start.Kind)
	}

	for _, n := range d.Nodes {
		for _, next := range n.NextNodes {
			if _, ok := seen[next]; !ok {
				return fmt.Errorf("definition: node %q references unknown next node %q", n.ID, next)
			}
		}
		switch n.Kind {
		case KindActivity:
			switch n.ActivityType {
			case ActivityService, ActivityUser, ActivityManual, ActivityScript:
			default:
				return fmt.Errorf("definition: node %q has invalid activity_type %q", n.ID, n.ActivityType)
			}
		case KindGateway:
			switch n.GatewayType {
			case GatewayExclusive, GatewayParallel, GatewayInclusive:
			default:
				return fmt.Errorf("definition: node %q has invalid gateway_type %q", n.ID, n.GatewayType)
			}
		case KindStart, KindEnd:
			// no extra fields to validate
		default:
			return fmt.Errorf("definition: node %q has unknown kind %q", n.ID, n.Kind)
		}
	}

	return nil
}
