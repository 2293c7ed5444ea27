package definition

import (
	"encoding/json"
	"fmt"

	"gopkg.in/yaml.v3"
)

// docNode and doc mirror the wire shape from spec §6 ("Definition
// document"), including the user_task alias for activity+user. They exist
// so the public NodeSpec/Definition types don't have to carry JSON tags
// for a field (user_task) that isn't a real NodeKind.
type docNode struct {
	ID              string       `json:"id" yaml:"id"`
	Type            string       `json:"type" yaml:"type"`
	Name            string       `json:"name,omitempty" yaml:"name,omitempty"`
	NextNodes       []string     `json:"next_nodes,omitempty" yaml:"next_nodes,omitempty"`
	ActivityType    ActivityType `json:"activity_type,omitempty" yaml:"activity_type,omitempty"`
	WorkFnName      string       `json:"work_fn,omitempty" yaml:"work_fn,omitempty"`
	Script          string       `json:"script,omitempty" yaml:"script,omitempty"`
	FormFields      []FormField  `json:"form_fields,omitempty" yaml:"form_fields,omitempty"`
	GatewayType     GatewayType  `json:"gateway_type,omitempty" yaml:"gateway_type,omitempty"`
	ConditionFnName string       `json:"condition_fn,omitempty" yaml:"condition_fn,omitempty"`
}

type doc struct {
	ID          string    `json:"id,omitempty" yaml:"id,omitempty"`
	StartNodeID string    `json:"start_node_id" yaml:"start_node_id"`
	Nodes       []docNode `json:"nodes" yaml:"nodes"`
}

// FromJSON parses a definition document in the JSON shape of spec §6.
func FromJSON(raw []byte) (Definition, error) {
	var d doc
	if err := json.Unmarshal(raw, &d); err != nil {
		return Definition{}, fmt.Errorf("definition: invalid json: %w", err)
	}
	return fromDoc(d)
}

// FromYAML parses the same document shape authored as YAML, a convenience
// format this engine accepts alongside JSON (see SPEC_FULL.md).
func FromYAML(raw []byte) (Definition, error) {
	var d doc
	if err := yaml.Unmarshal(raw, &d); err != nil {
		return Definition{}, fmt.Errorf("definition: invalid yaml: %w", err)
	}
	return fromDoc(d)
}

func fromDoc(d doc) (Definition, error) {
	out := Definition{ID: d.ID, StartNodeID: d.StartNodeID, Nodes: make([]NodeSpec, 0, len(d.Nodes))}
	for _, n := range d.Nodes {
		kind := NodeKind(n.Type)
		activityType := n.ActivityType

		// user_task is accepted as an alias for activity + activity_type=user.
		if n.Type == "user_task" {
			kind = KindActivity
			activityType = ActivityUser
		}

		out.Nodes = append(out.Nodes, NodeSpec{
			ID:              n.ID,
			Kind:            kind,
			Name:            n.Name,
			NextNodes:       n.NextNodes,
			ActivityType:    activityType,
			WorkFnName:      n.WorkFnName,
			Script:          n.Script,
			FormFields:      n.FormFields,
			GatewayType:     n.GatewayType,
			ConditionFnName: n.ConditionFnName,
		})
	}

	if err := out.Validate(); err != nil {
		return Definition{}, err
	}
	return out, nil
}
