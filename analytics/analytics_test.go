package analytics

import (
	"context"
	"testing"
	"time"

	"github.com/project-flogo/recruit/definition"
	"github.com/project-flogo/recruit/engine"
	"github.com/project-flogo/recruit/model"
	"github.com/project-flogo/recruit/store/memstore"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var t0 = time.Date(2026, 4, 6, 9, 0, 0, 0, time.UTC)

type manualClock struct {
	cur time.Time
}

func (c *manualClock) now() time.Time {
	return c.cur
}

func (c *manualClock) advance(d time.Duration) {
	c.cur = c.cur.Add(d)
}

func pipelineRep() *definition.DefinitionRep {
	return &definition.DefinitionRep{
		Name: "Pipeline",
		Nodes: []*definition.NodeRep{
			{ID: "start", Type: "start", Title: "Applied"},
			{ID: "iv", Type: "interview", Title: "Interview", EstimatedDuration: 90,
				Config: map[string]interface{}{"interview_type": "culture", "duration": 45, "interviewers": []interface{}{"alice"}}},
			{ID: "refs", Type: "todo", Title: "References", EstimatedDuration: 60,
				Config: map[string]interface{}{"due_in_days": 3, "assignee": "tom"}},
		},
		Connections: []*definition.ConnectionRep{
			{ID: "c1", From: "start", To: "iv"},
			{ID: "c2", From: "iv", To: "refs"},
		},
	}
}

// history runs three candidates through the pipeline: two pass the
// interview after 2h and 30m, the third withdraws
func history(t *testing.T) (*Aggregator, string, *manualClock) {
	t.Helper()
	ctx := context.Background()
	s := memstore.New()
	clock := &manualClock{cur: t0}
	e := engine.New(s, engine.WithClock(clock.now))

	def, err := e.CreateProcess(ctx, pipelineRep())
	require.Nil(t, err)
	_, err = e.ActivateProcess(ctx, def.ID())
	require.Nil(t, err)

	run := func(candidate string, wait time.Duration) string {
		inst, err := e.Assign(ctx, def.ID(), candidate, "rita")
		require.Nil(t, err)
		res, err := e.Start(ctx, inst.ID())
		require.Nil(t, err)
		clock.advance(wait)
		if wait > 0 {
			_, err = e.CompleteExecution(ctx, res.Created[1].ID(), engine.Completion{Result: "pass"})
			require.Nil(t, err)
		}
		return inst.ID()
	}

	run("c1", 2*time.Hour)
	run("c2", 30*time.Minute)
	withdrawn := run("c3", 0)
	_, err = e.Withdraw(ctx, withdrawn, "relocating")
	require.Nil(t, err)

	return New(s), def.ID(), clock
}

func TestNodeStats(t *testing.T) {
	a, processID, _ := history(t)

	stats, err := a.NodeStats(context.Background(), processID)
	require.Nil(t, err)
	require.Len(t, stats, 3)

	start, iv, refs := stats[0], stats[1], stats[2]

	assert.Equal(t, "start", start.NodeID)
	assert.Equal(t, 3, start.Started)
	assert.Equal(t, 3, start.Completed)
	assert.Equal(t, time.Duration(0), start.AvgTimeInNode)

	assert.Equal(t, model.NodeInterview, iv.NodeType)
	assert.Equal(t, 3, iv.Started)
	assert.Equal(t, 2, iv.Completed)
	assert.Equal(t, 1, iv.Cancelled)
	assert.Equal(t, 75*time.Minute, iv.AvgTimeInNode)
	assert.InDelta(t, 1.0/3.0, iv.DropOffRate, 1e-9)

	assert.Equal(t, 2, refs.Started)
	assert.Equal(t, 2, refs.Open)
	assert.Equal(t, time.Duration(0), refs.AvgTimeInNode)
	assert.Zero(t, refs.DropOffRate)

	_, err = a.NodeStats(context.Background(), "missing")
	assert.True(t, model.IsNotFound(err))
}

func TestBottlenecks(t *testing.T) {
	a, processID, _ := history(t)
	ctx := context.Background()

	top, err := a.Bottlenecks(ctx, processID, 1)
	require.Nil(t, err)
	require.Len(t, top, 1)
	assert.Equal(t, "iv", top[0].NodeID)

	// nodes without completed executions are not ranked
	all, err := a.Bottlenecks(ctx, processID, 0)
	require.Nil(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, "start", all[1].NodeID)
}

func TestWorkload(t *testing.T) {
	a, processID, _ := history(t)
	ctx := context.Background()

	// references of c1 are due at t0+3h, those of c2 at t0+3h30
	workload, err := a.Workload(ctx, processID, t0.Add(3*time.Hour+15*time.Minute))
	require.Nil(t, err)
	require.Len(t, workload, 1)
	assert.Equal(t, "tom", workload[0].Assignee)
	assert.Equal(t, 1, workload[0].Overdue)
	assert.Equal(t, 1, workload[0].Pending)
	assert.Equal(t, 2, workload[0].Total())

	early, err := a.Workload(ctx, "", t0.Add(time.Hour))
	require.Nil(t, err)
	require.Len(t, early, 1)
	assert.Equal(t, 0, early[0].Overdue)
	assert.Equal(t, 2, early[0].Pending)
}
