package engine

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/project-flogo/recruit/definition"
	"github.com/project-flogo/recruit/linkage"
	"github.com/project-flogo/recruit/model"
	"github.com/project-flogo/recruit/state"
	"github.com/project-flogo/recruit/store/memstore"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var passed = &definition.Condition{Results: []string{"pass"}}

func decisionNode(id string) *definition.NodeRep {
	return &definition.NodeRep{
		ID: id, Type: "decision", Title: "Hiring committee",
		Config: map[string]interface{}{"decision_makers": []interface{}{"dana"}},
	}
}

// fanOutRep is start -> decision -> {ivA, ivB}, both on pass
func fanOutRep() *definition.DefinitionRep {
	return &definition.DefinitionRep{
		Name: "Fan out",
		Nodes: []*definition.NodeRep{
			{ID: "start", Type: "start", Title: "Applied"},
			decisionNode("d"),
			interviewNode("ivA", "Interview A"),
			interviewNode("ivB", "Interview B"),
		},
		Connections: []*definition.ConnectionRep{
			{ID: "c1", From: "start", To: "d"},
			{ID: "c2", From: "d", To: "ivA", Condition: passed, Priority: 1},
			{ID: "c3", From: "d", To: "ivB", Condition: passed, Priority: 2},
		},
	}
}

// a decision whose result matches two connections enters both targets
func TestFanOut(t *testing.T) {
	e := newTestEngine(t, nil)
	ctx := context.Background()
	def := activeProcess(t, e, fanOutRep())

	res := startedInstance(t, e, def.ID(), "c1")
	id := res.Instance.ID()
	assert.Equal(t, "d", res.Instance.CurrentNodeID())
	d := openAt(t, e, id, "d")
	assert.Equal(t, "dana", d.Assignee())

	fan, err := e.CompleteExecution(ctx, d.ID(), Completion{Result: "pass", CompletedBy: "dana"})
	require.Nil(t, err)
	require.Len(t, fan.Created, 2)
	assert.Equal(t, "ivB", fan.Created[0].NodeID())
	assert.Equal(t, "ivA", fan.Created[1].NodeID())
	assert.Equal(t, "ivB", fan.Instance.CurrentNodeID())
	assert.Equal(t, model.InstanceInProgress, fan.Instance.Status())

	executions, err := e.ListExecutions(ctx, id)
	require.Nil(t, err)
	assert.Len(t, executions, 4)

	// the first branch without a matching connection completes the instance
	scoreB := 5.0
	res, err = e.CompleteExecution(ctx, fan.Created[0].ID(), Completion{Result: "pass", Score: &scoreB})
	require.Nil(t, err)
	assert.Empty(t, res.Created)
	assert.Equal(t, model.InstanceCompleted, res.Instance.Status())
	assert.Equal(t, "hired", res.Instance.FinalResult())
	require.NotNil(t, res.Instance.OverallScore())
	assert.Equal(t, 5.0, *res.Instance.OverallScore())

	sibling, err := e.GetExecution(ctx, fan.Created[1].ID())
	require.Nil(t, err)
	assert.Equal(t, model.ExecutionCancelled, sibling.Status())

	_, err = e.CompleteExecution(ctx, fan.Created[1].ID(), Completion{Result: "pass"})
	assert.True(t, model.IsConflict(err))
}

func TestFanOutBranchRejects(t *testing.T) {
	e := newTestEngine(t, nil)
	ctx := context.Background()
	def := activeProcess(t, e, fanOutRep())

	res := startedInstance(t, e, def.ID(), "c1")
	id := res.Instance.ID()
	fan, err := e.CompleteExecution(ctx, openAt(t, e, id, "d").ID(), Completion{Result: "pass"})
	require.Nil(t, err)
	require.Len(t, fan.Created, 2)

	done, err := e.CompleteExecution(ctx, fan.Created[1].ID(), Completion{Result: "fail"})
	require.Nil(t, err)
	assert.Equal(t, model.InstanceCompleted, done.Instance.Status())
	assert.Equal(t, "rejected", done.Instance.FinalResult())

	executions, err := e.ListExecutions(ctx, id)
	require.Nil(t, err)
	for _, exec := range executions {
		assert.False(t, exec.IsOpen(), "execution at %s", exec.NodeID())
	}
}

func TestNoDuplicateOpenExecution(t *testing.T) {
	e := newTestEngine(t, nil)
	ctx := context.Background()

	rep := &definition.DefinitionRep{
		Name: "Converging",
		Nodes: []*definition.NodeRep{
			{ID: "start", Type: "start", Title: "Applied"},
			decisionNode("d"),
			interviewNode("iv", "Interview"),
			{ID: "refs", Type: "todo", Title: "References", Config: map[string]interface{}{"due_in_days": 2}},
		},
		Connections: []*definition.ConnectionRep{
			{ID: "c1", From: "start", To: "d"},
			{ID: "c2", From: "d", To: "iv", Condition: passed},
			{ID: "c3", From: "d", To: "refs", Condition: passed},
			{ID: "c4", From: "refs", To: "iv"},
		},
	}
	def := activeProcess(t, e, rep)

	res := startedInstance(t, e, def.ID(), "c1")
	id := res.Instance.ID()

	fan, err := e.CompleteExecution(ctx, openAt(t, e, id, "d").ID(), Completion{Result: "pass"})
	require.Nil(t, err)
	require.Len(t, fan.Created, 2)
	assert.Equal(t, "iv", fan.Instance.CurrentNodeID())

	// refs leads into iv, which is still open
	res, err = e.CompleteExecution(ctx, openAt(t, e, id, "refs").ID(), Completion{Result: "done"})
	require.Nil(t, err)
	assert.Empty(t, res.Created)
	assert.Equal(t, model.InstanceInProgress, res.Instance.Status())
	assert.Equal(t, "iv", res.Instance.CurrentNodeID())

	executions, err := e.ListExecutions(ctx, id)
	require.Nil(t, err)
	open := make(map[string]int)
	for _, exec := range executions {
		if exec.IsOpen() {
			open[exec.NodeID()]++
		}
	}
	assert.Equal(t, map[string]int{"iv": 1}, open)
}

func TestEndNodePassThrough(t *testing.T) {
	rep := func() *definition.DefinitionRep {
		return &definition.DefinitionRep{
			Name: "Ends",
			Nodes: []*definition.NodeRep{
				{ID: "start", Type: "start", Title: "Applied"},
				decisionNode("d"),
				interviewNode("iv", "Interview"),
				{ID: "offer", Type: "end", Title: "Offer", Config: map[string]interface{}{"outcome": "approved"}},
				{ID: "reject", Type: "end", Title: "Rejected"},
			},
			Connections: []*definition.ConnectionRep{
				{ID: "c0", From: "start", To: "iv"},
				{ID: "c1", From: "iv", To: "d"},
				{ID: "c2", From: "d", To: "offer", Condition: passed},
				{ID: "c3", From: "d", To: "reject", Condition: &definition.Condition{Results: []string{"fail"}}},
			},
		}
	}

	tests := []struct {
		result string
		final  string
		end    string
	}{
		{"pass", "hired", "offer"},
		{"fail", "rejected", "reject"},
	}

	for _, tt := range tests {
		t.Run(tt.result, func(t *testing.T) {
			e := newTestEngine(t, nil)
			ctx := context.Background()
			def := activeProcess(t, e, rep())

			res := startedInstance(t, e, def.ID(), "c1")
			id := res.Instance.ID()
			_, err := e.CompleteExecution(ctx, openAt(t, e, id, "iv").ID(), Completion{Result: "pass"})
			require.Nil(t, err)

			done, err := e.CompleteExecution(ctx, openAt(t, e, id, "d").ID(), Completion{Result: tt.result})
			require.Nil(t, err)
			require.Len(t, done.Created, 1)

			end := done.Created[0]
			assert.Equal(t, tt.end, end.NodeID())
			assert.Equal(t, model.ExecutionCompleted, end.Status())
			assert.Equal(t, tt.result, end.Result())
			assert.Equal(t, systemActor, end.CompletedBy())

			assert.Equal(t, model.InstanceCompleted, done.Instance.Status())
			assert.Equal(t, tt.final, done.Instance.FinalResult())
			assert.Equal(t, tt.end, done.Instance.CurrentNodeID())
		})
	}
}

func TestConditionOnData(t *testing.T) {
	e := newTestEngine(t, nil)
	ctx := context.Background()

	rep := &definition.DefinitionRep{
		Name: "Seniority",
		Nodes: []*definition.NodeRep{
			interviewNode("screen", "Screen"),
			interviewNode("senior", "Senior loop"),
			interviewNode("junior", "Junior loop"),
		},
		Connections: []*definition.ConnectionRep{
			{ID: "c1", From: "screen", To: "senior", Condition: &definition.Condition{
				Results: []string{"pass"},
				Fields:  []definition.FieldMatch{{Field: "experience.years", Op: definition.OpGte, Value: 5}},
			}},
			{ID: "c2", From: "screen", To: "junior", Condition: &definition.Condition{
				Results: []string{"pass"},
				Fields:  []definition.FieldMatch{{Field: "experience.years", Op: definition.OpLt, Value: 5}},
			}},
		},
	}
	def := activeProcess(t, e, rep)

	res := startedInstance(t, e, def.ID(), "c1")
	next, err := e.CompleteExecution(ctx, res.Created[0].ID(), Completion{
		Result: "PASS",
		Data:   map[string]interface{}{"experience": map[string]interface{}{"years": "7"}},
	})
	require.Nil(t, err)
	require.Len(t, next.Created, 1)
	assert.Equal(t, "senior", next.Created[0].NodeID())
	assert.Equal(t, "7", next.Execution.Data()["experience"].(map[string]interface{})["years"])
}

func TestAssessmentPassingScore(t *testing.T) {
	rep := func() *definition.DefinitionRep {
		return &definition.DefinitionRep{
			Name: "Assessment",
			Nodes: []*definition.NodeRep{
				{ID: "start", Type: "start", Title: "Applied"},
				{ID: "test", Type: "assessment", Title: "Coding test", Config: map[string]interface{}{"assessment_type": "coding", "passing_score": 70}},
			},
			Connections: []*definition.ConnectionRep{{ID: "c1", From: "start", To: "test"}},
		}
	}

	tests := []struct {
		score float64
		final string
	}{
		{80, "hired"},
		{70, "hired"},
		{55, "rejected"},
	}

	for _, tt := range tests {
		e := newTestEngine(t, nil)
		def := activeProcess(t, e, rep())
		res := startedInstance(t, e, def.ID(), "c1")

		score := tt.score
		done, err := e.CompleteExecution(context.Background(), openAt(t, e, res.Instance.ID(), "test").ID(), Completion{Score: &score})
		require.Nil(t, err)
		assert.Equal(t, tt.final, done.Instance.FinalResult())
		assert.Equal(t, tt.score, *done.Instance.OverallScore())
	}
}

func TestLinkage(t *testing.T) {
	var interviews []linkage.InterviewRequest
	var tasks []linkage.TaskRequest
	tasksDown := true

	e := newTestEngine(t, nil,
		WithInterviews(linkage.InterviewFunc(func(ctx context.Context, req linkage.InterviewRequest) (string, error) {
			interviews = append(interviews, req)
			return "iv-" + req.ExecutionID, nil
		})),
		WithTasks(linkage.TaskFunc(func(ctx context.Context, req linkage.TaskRequest) (string, error) {
			tasks = append(tasks, req)
			if tasksDown {
				return "", errors.New("tasks unavailable")
			}
			return "task-1", nil
		})),
	)
	ctx := context.Background()
	def := activeProcess(t, e, threeStepRep())

	res := startedInstance(t, e, def.ID(), "c1")
	id := res.Instance.ID()
	require.Len(t, interviews, 1)
	iv := res.Created[1]
	assert.Equal(t, "iv-"+iv.ID(), iv.InterviewID())
	assert.False(t, res.Instance.NeedsLinkageRepair())

	req := interviews[0]
	assert.Equal(t, "c1", req.CandidateID)
	assert.Equal(t, "rita", req.RecruiterID)
	assert.Equal(t, "acme", req.Organization)
	assert.Equal(t, "technical", req.InterviewType)
	assert.Equal(t, time.Hour, req.Duration)
	assert.Equal(t, []string{"alice"}, req.Interviewers)

	// a failing collaborator does not roll back the transition
	next, err := e.CompleteExecution(ctx, iv.ID(), Completion{Result: "pass"})
	require.Nil(t, err)
	require.Len(t, next.Created, 1)
	refs := next.Created[0]
	assert.Equal(t, "tasks unavailable", refs.LinkageError())
	assert.Empty(t, refs.TaskID())
	assert.True(t, next.Instance.NeedsLinkageRepair())
	assert.Equal(t, model.InstanceInProgress, next.Instance.Status())

	require.Len(t, tasks, 1)
	assert.Equal(t, "rita", tasks[0].Owner)
	assert.Equal(t, "tom", tasks[0].Assignee)
	assert.Equal(t, refs.CreatedAt().AddDate(0, 0, 3), tasks[0].DueDate)

	inst, err := e.RetryLinkage(ctx, id)
	require.Nil(t, err)
	assert.True(t, inst.NeedsLinkageRepair())

	tasksDown = false
	inst, err = e.RetryLinkage(ctx, id)
	require.Nil(t, err)
	assert.False(t, inst.NeedsLinkageRepair())

	stored, err := e.GetExecution(ctx, refs.ID())
	require.Nil(t, err)
	assert.Equal(t, "task-1", stored.TaskID())
	assert.Empty(t, stored.LinkageError())
	assert.Len(t, tasks, 3)

	// nothing left to request
	inst, err = e.RetryLinkage(ctx, id)
	require.Nil(t, err)
	assert.False(t, inst.NeedsLinkageRepair())
	assert.Len(t, tasks, 3)
}

func TestRecording(t *testing.T) {
	recorder := state.NewMemoryRecorder()
	e := newTestEngine(t, nil, WithRecorder(recorder, state.RecordingModeFull))
	ctx := context.Background()
	def := activeProcess(t, e, twoNodeRep())

	res := startedInstance(t, e, def.ID(), "c1")
	id := res.Instance.ID()
	_, err := e.CompleteExecution(ctx, res.Created[1].ID(), Completion{Result: "pass"})
	require.Nil(t, err)

	steps := recorder.Steps(id)
	require.Len(t, steps, 2)
	assert.Equal(t, "start", steps[0].Operation)
	assert.Equal(t, "complete_execution", steps[1].Operation)
	assert.True(t, steps[1].Terminal())

	snapshot := recorder.Snapshot(id)
	require.NotNil(t, snapshot)
	assert.Equal(t, model.InstanceCompleted, snapshot.Status)
	assert.Equal(t, "hired", snapshot.FinalResult)
	assert.Len(t, snapshot.Executions, 2)

	replayed := state.StepsToSnapshot(id, steps)
	assert.Equal(t, snapshot.Status, replayed.Status)
	assert.Equal(t, snapshot.CurrentNodeId, replayed.CurrentNodeId)
}

func TestExecutionsKeepCreationOrder(t *testing.T) {
	ctx := context.Background()
	frozen := epoch
	e := New(memstore.New(), WithClock(func() time.Time { return frozen }))
	def := activeProcess(t, e, fanOutRep())

	for i := 0; i < 10; i++ {
		res := startedInstance(t, e, def.ID(), fmt.Sprintf("c%d", i))
		id := res.Instance.ID()
		_, err := e.CompleteExecution(ctx, openAt(t, e, id, "d").ID(), Completion{Result: "pass"})
		require.Nil(t, err)

		executions, err := e.ListExecutions(ctx, id)
		require.Nil(t, err)
		var nodes []string
		for _, exec := range executions {
			nodes = append(nodes, exec.NodeID())
		}
		assert.Equal(t, []string{"start", "d", "ivB", "ivA"}, nodes)
	}
}
