package definition

import (
	"fmt"
	"testing"
	"time"

	"github.com/goccy/go-json"
	"github.com/google/go-cmp/cmp"
	"github.com/project-flogo/recruit/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const defJSON = `
{
  "id": "p1",
  "name": "Backend Engineer",
  "organization": "acme",
  "settings": {"team": "platform"},
  "nodes": [
    {"id": "n1", "type": "start", "title": "Applied"},
    {"id": "n2", "type": "decision", "title": "Screen", "config": {"decision_makers": ["alice"]}},
    {"id": "n3", "type": "interview", "title": "Tech Interview", "estimatedDuration": 90,
     "config": {"interview_type": "technical", "duration": 60}},
    {"id": "n4", "type": "todo", "title": "Reference Check", "config": {"due_in_days": 3}}
  ],
  "connections": [
    {"id": "c1", "from": "n1", "to": "n2"},
    {"id": "c2", "from": "n2", "to": "n3", "priority": 2, "condition": {"results": ["pass"]}},
    {"id": "c3", "from": "n2", "to": "n4", "priority": 1, "condition": {"results": ["pass"]}}
  ]
}
`

func loadDef(t *testing.T, s string) *Definition {
	t.Helper()
	rep := &DefinitionRep{}
	require.Nil(t, json.Unmarshal([]byte(s), rep))
	def, err := NewDefinition(rep)
	require.Nil(t, err)
	return def
}

func TestNewDefinition(t *testing.T) {
	def := loadDef(t, defJSON)

	assert.Equal(t, "p1", def.ID())
	assert.Equal(t, "Backend Engineer", def.Name())
	assert.Equal(t, model.ProcessDraft, def.Status())
	assert.Equal(t, 4, len(def.Nodes()))
	assert.Equal(t, 3, len(def.Connections()))

	n3 := def.Node("n3")
	require.NotNil(t, n3)
	assert.Equal(t, model.NodeInterview, n3.Type())
	assert.Equal(t, 90*time.Minute, n3.EstimatedDuration())
	cfg, ok := n3.Config().(InterviewConfig)
	require.True(t, ok)
	assert.Equal(t, "technical", cfg.InterviewType)
	assert.Equal(t, 60, cfg.DurationMinutes)

	n2 := def.Node("n2")
	assert.Len(t, n2.ToConnections(), 2)
	assert.Len(t, n2.FromConnections(), 1)
	assert.Equal(t, []string{"alice"}, n2.Config().(DecisionConfig).DecisionMakers)

	starts := def.StartNodes()
	require.Len(t, starts, 1)
	assert.Equal(t, "n1", starts[0].ID())
}

func TestNewDefinitionBadInput(t *testing.T) {
	_, err := NewDefinition(&DefinitionRep{})
	assert.NotNil(t, err)

	_, err = NewDefinition(&DefinitionRep{ID: "p", Nodes: []*NodeRep{{ID: "a", Type: "webhook"}}})
	assert.NotNil(t, err)

	_, err = NewDefinition(&DefinitionRep{ID: "p", Nodes: []*NodeRep{{ID: "a", Type: "start"}, {ID: "a", Type: "end"}}})
	assert.NotNil(t, err)

	_, err = NewDefinition(&DefinitionRep{ID: "p", Nodes: []*NodeRep{{ID: "a", Type: "interview", Config: map[string]interface{}{"duration": "long"}}}})
	assert.NotNil(t, err)
}

func TestDanglingConnectionIsKept(t *testing.T) {
	def := loadDef(t, `{"id":"p","nodes":[{"id":"a","type":"start","title":"A"}],
		"connections":[{"id":"c1","from":"a","to":"ghost"}]}`)

	conn := def.Connection("c1")
	require.NotNil(t, conn)
	assert.NotNil(t, conn.FromNode())
	assert.Nil(t, conn.ToNode())
}

func TestRepRoundTrip(t *testing.T) {
	def := loadDef(t, defJSON)

	b, err := json.Marshal(def.ToRep())
	require.Nil(t, err)

	again := loadDef(t, string(b))
	if diff := cmp.Diff(def.ToRep(), again.ToRep()); diff != "" {
		t.Errorf("rep mismatch (-want +got):\n%s", diff)
	}
}

func TestStructuralEdits(t *testing.T) {
	def := loadDef(t, defJSON)

	node, err := def.AddNode(&NodeRep{ID: "n5", Type: "end", Title: "Offer"})
	require.Nil(t, err)
	assert.Equal(t, model.NodeEnd, node.Type())

	_, err = def.AddNode(&NodeRep{ID: "n5", Type: "end", Title: "Offer"})
	assert.True(t, model.IsConflict(err))

	conn, err := def.Connect(&ConnectionRep{ID: "c4", From: "n3", To: "n5"})
	require.Nil(t, err)
	assert.Equal(t, "n5", conn.ToNode().ID())
	assert.Len(t, def.Node("n3").ToConnections(), 1)

	_, err = def.Connect(&ConnectionRep{ID: "c5", From: "n3", To: "missing"})
	assert.True(t, model.IsNotFound(err))

	require.Nil(t, def.RemoveNode("n3"))
	assert.Nil(t, def.Node("n3"))
	assert.Nil(t, def.Connection("c2"))
	assert.Nil(t, def.Connection("c4"))
	assert.Len(t, def.Node("n2").ToConnections(), 1)
	assert.Len(t, def.Node("n5").FromConnections(), 0)

	require.Nil(t, def.Disconnect("c3"))
	assert.Len(t, def.Node("n2").ToConnections(), 0)
	assert.True(t, model.IsNotFound(def.Disconnect("c3")))
}

func TestFrozenStructure(t *testing.T) {
	def := loadDef(t, defJSON)
	def.SetStatus(model.ProcessActive)

	for _, node := range def.Nodes() {
		assert.Equal(t, model.NodeActive, node.Status())
	}

	_, err := def.AddNode(&NodeRep{ID: "x", Type: "end", Title: "X"})
	assert.True(t, model.IsConflict(err))
	assert.True(t, model.IsConflict(def.RemoveNode("n1")))
	_, err = def.Connect(&ConnectionRep{ID: "cx", From: "n1", To: "n4"})
	assert.True(t, model.IsConflict(err))
	assert.True(t, model.IsConflict(def.Disconnect("c1")))

	// details can still change, the type cannot
	_, err = def.UpdateNode("n3", &NodeRep{Title: "Systems Interview", Config: map[string]interface{}{"interview_type": "system", "duration": 90}})
	assert.Nil(t, err)
	assert.Equal(t, "Systems Interview", def.Node("n3").Title())
	_, err = def.UpdateNode("n3", &NodeRep{Type: "todo", Title: "x"})
	assert.True(t, model.IsConflict(err))
}

func TestClone(t *testing.T) {
	def := loadDef(t, defJSON)
	def.SetStatus(model.ProcessActive)
	def.SetTemplate(true)

	counter := 0
	newID := func() string {
		counter++
		return fmt.Sprintf("id%d", counter)
	}

	now := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	cp, err := def.Clone("p2", "Copy", newID, now)
	require.Nil(t, err)

	assert.Equal(t, model.ProcessDraft, cp.Status())
	assert.False(t, cp.IsTemplate())
	assert.Equal(t, "acme", cp.Organization())
	assert.Equal(t, now, cp.CreatedAt())

	// same topology, different identities
	assert.Equal(t, shape(def), shape(cp))
	for _, node := range cp.Nodes() {
		assert.Nil(t, def.Node(node.ID()))
		assert.Equal(t, model.NodeDraft, node.Status())
	}

	// independent settings
	settings := cp.Settings()
	settings["team"] = "mobile"
	cp.SetSettings(settings)
	assert.Equal(t, "platform", def.Settings()["team"])
}

func TestCloneBadNode(t *testing.T) {
	def := loadDef(t, defJSON)
	def.Node("n3").nodeType = model.NodeType("webinar")

	newID := func() string { return "x" }
	cp, err := def.Clone("p2", "Copy", newID, time.Now())
	assert.NotNil(t, err)
	assert.Nil(t, cp)
}

// shape describes a graph by node position so two graphs with different
// identities can be compared
func shape(def *Definition) []string {
	pos := make(map[string]int)
	var out []string
	for i, node := range def.Nodes() {
		pos[node.ID()] = i
		out = append(out, fmt.Sprintf("node %d %s %s", i, node.Type(), node.Title()))
	}
	for _, conn := range def.Connections() {
		out = append(out, fmt.Sprintf("conn %d->%d p%d %v", pos[conn.FromID()], pos[conn.ToID()], conn.Priority(), conn.Condition()))
	}
	return out
}
