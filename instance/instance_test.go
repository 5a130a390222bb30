package instance

import (
	"testing"
	"time"

	"github.com/goccy/go-json"
	"github.com/project-flogo/recruit/definition"
	"github.com/project-flogo/recruit/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var now = time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

func score(v float64) *float64 {
	return &v
}

func testNode(t *testing.T, rep *definition.NodeRep) *definition.Node {
	t.Helper()
	def, err := definition.NewDefinition(&definition.DefinitionRep{ID: "p1", Nodes: []*definition.NodeRep{rep}})
	require.Nil(t, err)
	return def.Node(rep.ID)
}

func TestInstanceLifecycle(t *testing.T) {
	inst := New("i1", "p1", "c1", "r1", now)
	assert.Equal(t, model.InstanceNotStarted, inst.Status())

	assert.True(t, model.IsConflict(inst.Hold()))
	assert.True(t, model.IsConflict(inst.Advance("n1")))

	require.Nil(t, inst.Start(now))
	assert.Equal(t, model.InstanceInProgress, inst.Status())
	assert.Equal(t, now, inst.StartedAt())
	assert.True(t, model.IsConflict(inst.Start(now)))

	require.Nil(t, inst.Advance("n2"))
	assert.Equal(t, "n2", inst.CurrentNodeID())

	require.Nil(t, inst.Hold())
	assert.True(t, model.IsConflict(inst.Advance("n3")))
	assert.True(t, model.IsConflict(inst.Hold()))
	require.Nil(t, inst.Resume())
	assert.True(t, model.IsConflict(inst.Resume()))

	require.Nil(t, inst.Complete(model.ResultHired, score(4), "strong", now.Add(time.Hour)))
	assert.Equal(t, model.InstanceCompleted, inst.Status())
	assert.Equal(t, 4.0, *inst.OverallScore())
	assert.Equal(t, now.Add(time.Hour), inst.CompletedAt())
}

func TestTerminalGuard(t *testing.T) {
	tests := []struct {
		name string
		end  func(inst *Instance) error
	}{
		{"completed", func(inst *Instance) error { return inst.Complete("hired", nil, "", now) }},
		{"failed", func(inst *Instance) error { return inst.Fail("no show", now) }},
		{"withdrawn", func(inst *Instance) error { return inst.Withdraw("other offer", now) }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			inst := New("i1", "p1", "c1", "", now)
			require.Nil(t, tt.end(inst))
			assert.True(t, inst.IsTerminal())

			assert.True(t, model.IsConflict(inst.Start(now)))
			assert.True(t, model.IsConflict(inst.Advance("x")))
			assert.True(t, model.IsConflict(inst.Hold()))
			assert.True(t, model.IsConflict(inst.Resume()))
			assert.True(t, model.IsConflict(inst.Complete("hired", nil, "", now)))
			assert.True(t, model.IsConflict(inst.Fail("", now)))
			assert.True(t, model.IsConflict(inst.Withdraw("", now)))
		})
	}
}

func TestOverrideFromOnHold(t *testing.T) {
	inst := New("i1", "p1", "c1", "", now)
	require.Nil(t, inst.Start(now))
	require.Nil(t, inst.Hold())
	require.Nil(t, inst.Withdraw("relocated", now))
	assert.Equal(t, model.InstanceWithdrawn, inst.Status())
	assert.Equal(t, "relocated", inst.Reason())
}

func TestOverallScore(t *testing.T) {
	assert.Nil(t, OverallScore(nil))

	a := &Execution{id: "a", score: score(3)}
	b := &Execution{id: "b"}
	c := &Execution{id: "c", score: score(5)}
	assert.Nil(t, OverallScore([]*Execution{b}))
	assert.Equal(t, 4.0, *OverallScore([]*Execution{a, b, c}))
}

func TestExecutionLifecycle(t *testing.T) {
	inst := New("i1", "p1", "c1", "", now)
	node := testNode(t, &definition.NodeRep{ID: "n1", Type: "interview", Title: "Tech", EstimatedDuration: 60})

	exec := NewExecution("e1", inst, node, "alice", now)
	assert.Equal(t, model.ExecutionPending, exec.Status())
	assert.Equal(t, now.Add(time.Hour), exec.DueDate())
	assert.True(t, exec.NeedsLinkage())
	assert.False(t, exec.IsOverdue(now))
	assert.True(t, exec.IsOverdue(now.Add(2*time.Hour)))

	require.Nil(t, exec.Start(now.Add(time.Minute)))
	assert.True(t, model.IsConflict(exec.Start(now)))

	data := map[string]interface{}{"score": 4}
	require.Nil(t, exec.Complete("pass", "bob", score(4), "good", data, now.Add(30*time.Minute)))
	data["score"] = 1
	assert.Equal(t, 4, exec.Data()["score"])
	assert.Equal(t, 30*time.Minute, exec.TimeInNode())
	assert.False(t, exec.IsOverdue(now.Add(2*time.Hour)))
	assert.False(t, exec.NeedsLinkage())

	err := exec.Complete("fail", "carol", nil, "", nil, now)
	assert.True(t, model.IsConflict(err))
	assert.Equal(t, "pass", exec.Result())
	assert.True(t, model.IsConflict(exec.Cancel(now)))
}

func TestExecutionWithoutEstimate(t *testing.T) {
	inst := New("i1", "p1", "c1", "", now)
	node := testNode(t, &definition.NodeRep{ID: "n1", Type: "decision", Title: "Go/No-go"})

	exec := NewExecution("e1", inst, node, "", now)
	assert.True(t, exec.DueDate().IsZero())
	assert.False(t, exec.NeedsLinkage())
	assert.False(t, exec.IsOverdue(now.Add(24*time.Hour)))
	assert.NotNil(t, exec.Link("x"))

	require.Nil(t, exec.Cancel(now))
	assert.Equal(t, model.ExecutionCancelled, exec.Status())
	assert.Equal(t, time.Duration(0), exec.TimeInNode())
}

func TestExecutionLink(t *testing.T) {
	inst := New("i1", "p1", "c1", "", now)
	node := testNode(t, &definition.NodeRep{ID: "n1", Type: "todo", Title: "Refs"})

	exec := NewExecution("e1", inst, node, "", now)
	exec.SetLinkageError("task service down")
	assert.True(t, exec.NeedsLinkage())

	require.Nil(t, exec.Link("t-9"))
	assert.Equal(t, "t-9", exec.TaskID())
	assert.Empty(t, exec.LinkageError())
	assert.True(t, exec.HasLinkage())
	assert.False(t, exec.NeedsLinkage())
}

func TestSerialization(t *testing.T) {
	inst := New("i1", "p1", "c1", "r1", now)
	require.Nil(t, inst.Start(now))
	require.Nil(t, inst.Advance("n1"))
	inst.SetLinkageRepair(true)
	inst.Touch()

	b, err := json.Marshal(inst)
	require.Nil(t, err)

	got := &Instance{}
	require.Nil(t, json.Unmarshal(b, got))
	assert.Equal(t, inst, got)

	node := testNode(t, &definition.NodeRep{ID: "n1", Type: "interview", Title: "Tech", EstimatedDuration: 45})
	exec := NewExecution("e1", inst, node, "alice", now)
	require.Nil(t, exec.Link("iv-1"))
	require.Nil(t, exec.Complete("pass", "bob", score(3.5), "ok", map[string]interface{}{"level": "senior"}, now.Add(time.Hour)))

	b, err = json.Marshal(exec)
	require.Nil(t, err)

	gotExec := &Execution{}
	require.Nil(t, json.Unmarshal(b, gotExec))
	assert.Equal(t, exec, gotExec)
}

func TestCloneIsIndependent(t *testing.T) {
	inst := New("i1", "p1", "c1", "", now)
	require.Nil(t, inst.Complete("hired", score(2), "", now))

	cp := inst.Clone()
	*cp.overallScore = 5
	assert.Equal(t, 2.0, *inst.OverallScore())

	exec := &Execution{id: "e1", data: map[string]interface{}{"a": "b"}}
	execCp := exec.Clone()
	execCp.data["a"] = "c"
	assert.Equal(t, "b", exec.Data()["a"])
}
