package definition

import (
	"testing"

	"github.com/stretchr/testify/require"
)

const jsonDoc = `{
  "start_node_id": "start",
  "nodes": [
    {"id": "start", "type": "start", "next_nodes": ["u"]},
    {"id": "u", "type": "user_task", "next_nodes": ["end"], "form_fields": [{"name":"approved","type":"bool"}]},
    {"id": "end", "type": "end"}
  ]
}`

func TestFromJSONResolvesUserTaskAlias(t *testing.T) {
	d, err := FromJSON([]byte(jsonDoc))
	require.NoError(t, err)

	n, ok := d.ByID("u")
	require.True(t, ok)
	require.Equal(t, KindActivity, n.Kind)
	require.Equal(t, ActivityUser, n.ActivityType)
	require.Len(t, n.FormFields, 1)
}

func TestFromJSONRejectsInvalidDefinition(t *testing.T) {
	_, err := FromJSON([]byte(`{"start_node_id":"x","nodes":[]}`))
	require.Error(t, err)
}

func TestFromJSONRejectsMalformedJSON(t *testing.T) {
	_, err := FromJSON([]byte(`not json`))
	require.Error(t, err)
}

const yamlDoc = `
start_node_id: start
nodes:
  - id: start
    type: start
    next_nodes: [a]
  - id: a
    type: activity
    activity_type: service
    next_nodes: [end]
  - id: end
    type: end
`

func TestFromYAMLParsesEquivalentDocument(t *testing.T) {
	d, err := FromYAML([]byte(yamlDoc))
	require.NoError(t, err)
	require.Equal(t, "start", d.StartNodeID)
	require.Len(t, d.Nodes, 3)
}
