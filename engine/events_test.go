package engine

import (
	"context"
	"testing"
	"time"

	"github.com/project-flogo/recruit/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLifecycleEvents(t *testing.T) {
	ctx := context.Background()
	e := newTestEngine(t, nil)
	def := activeProcess(t, e, twoNodeRep())

	assigned, err := e.Assign(ctx, def.ID(), "cand-1", "rita")
	require.Nil(t, err)

	created := instanceEvents("assign", nil, assigned, epoch)
	require.Len(t, created, 1)
	assert.Equal(t, model.InstanceStatus(""), created[0].PreviousStatus())
	assert.Equal(t, model.InstanceNotStarted, created[0].Status())
	assert.Equal(t, "cand-1", created[0].CandidateID())

	res, err := e.Start(ctx, assigned.ID())
	require.Nil(t, err)

	started := instanceEvents("start", assigned, res.Instance, epoch)
	require.Len(t, started, 1)
	assert.Equal(t, model.InstanceNotStarted, started[0].PreviousStatus())
	assert.Equal(t, model.InstanceInProgress, started[0].Status())
	assert.Equal(t, "start", started[0].Operation())

	executions, err := e.ListExecutions(ctx, assigned.ID())
	require.Nil(t, err)
	entered := executionEvents(nil, executions, epoch)
	require.Len(t, entered, 2)
	assert.Equal(t, "start", entered[0].NodeID())
	assert.Equal(t, model.ExecutionCompleted, entered[0].Status())
	assert.Equal(t, "iv", entered[1].NodeID())
	assert.Equal(t, model.NodeInterview, entered[1].NodeType())
	assert.Equal(t, "alice", entered[1].Assignee())
	assert.Equal(t, model.ExecutionStatus(""), entered[1].PreviousStatus())

	done, err := e.CompleteExecution(ctx, openAt(t, e, assigned.ID(), "iv").ID(), Completion{Result: "pass", CompletedBy: "alice"})
	require.Nil(t, err)

	after, err := e.ListExecutions(ctx, assigned.ID())
	require.Nil(t, err)
	changed := executionEvents(executions, after, epoch.Add(time.Hour))
	require.Len(t, changed, 1)
	assert.Equal(t, "iv", changed[0].NodeID())
	assert.Equal(t, model.ExecutionPending, changed[0].PreviousStatus())
	assert.Equal(t, model.ExecutionCompleted, changed[0].Status())
	assert.Equal(t, "pass", changed[0].Result())

	completed := instanceEvents("complete_execution", res.Instance, done.Instance, epoch)
	require.Len(t, completed, 1)
	assert.Equal(t, model.InstanceCompleted, completed[0].Status())
	assert.Equal(t, "hired", completed[0].FinalResult())

	assert.Empty(t, instanceEvents("resume", done.Instance, done.Instance, epoch))
	assert.Empty(t, executionEvents(after, after, epoch))
}
