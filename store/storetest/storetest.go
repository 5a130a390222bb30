// Package storetest holds the behavior every Store implementation shares.
package storetest

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/project-flogo/recruit/definition"
	"github.com/project-flogo/recruit/instance"
	"github.com/project-flogo/recruit/model"
	"github.com/project-flogo/recruit/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Factory creates an empty store for one test
type Factory func(t *testing.T) store.Store

var now = time.Date(2026, 5, 4, 10, 0, 0, 0, time.UTC)

// Run runs the conformance tests against the stores created by newStore
func Run(t *testing.T, newStore Factory) {
	t.Run("Definitions", func(t *testing.T) { testDefinitions(t, newStore(t)) })
	t.Run("UpdateDefinition", func(t *testing.T) { testUpdateDefinition(t, newStore(t)) })
	t.Run("DeleteUnreferenced", func(t *testing.T) { testDeleteUnreferenced(t, newStore(t)) })
	t.Run("DeleteCascade", func(t *testing.T) { testDeleteCascade(t, newStore(t)) })
	t.Run("Instances", func(t *testing.T) { testInstances(t, newStore(t)) })
	t.Run("UpdateInstance", func(t *testing.T) { testUpdateInstance(t, newStore(t)) })
	t.Run("UpdateInstanceError", func(t *testing.T) { testUpdateInstanceError(t, newStore(t)) })
	t.Run("SerializedUpdates", func(t *testing.T) { testSerializedUpdates(t, newStore(t)) })
	t.Run("ListExecutions", func(t *testing.T) { testListExecutions(t, newStore(t)) })
	t.Run("CreationOrder", func(t *testing.T) { testCreationOrder(t, newStore(t)) })
}

func processRep(id, org string) *definition.DefinitionRep {
	return &definition.DefinitionRep{
		ID:           id,
		Name:         "Process " + id,
		Organization: org,
		Status:       model.ProcessActive,
		Settings:     map[string]interface{}{"team": "core"},
		CreatedAt:    now,
		UpdatedAt:    now,
		Nodes: []*definition.NodeRep{
			{ID: id + "-start", Type: "start", Title: "Start"},
			{ID: id + "-iv", Type: "interview", Title: "Interview", EstimatedDuration: 60,
				Config: map[string]interface{}{"interview_type": "technical", "duration": 60}},
			{ID: id + "-todo", Type: "todo", Title: "Todo", Config: map[string]interface{}{"due_in_days": 2}},
		},
		Connections: []*definition.ConnectionRep{
			{ID: id + "-c1", From: id + "-start", To: id + "-iv"},
			{ID: id + "-c2", From: id + "-iv", To: id + "-todo", Condition: &definition.Condition{Results: []string{"pass"}}},
		},
	}
}

func node(t *testing.T, rep *definition.DefinitionRep, nodeID string) *definition.Node {
	t.Helper()
	def, err := definition.NewDefinition(rep)
	require.Nil(t, err)
	n := def.Node(nodeID)
	require.NotNil(t, n)
	return n
}

func testDefinitions(t *testing.T, s store.Store) {
	ctx := context.Background()

	require.Nil(t, s.CreateDefinition(ctx, processRep("p1", "acme")))
	require.Nil(t, s.CreateDefinition(ctx, processRep("p2", "acme")))
	require.Nil(t, s.CreateDefinition(ctx, processRep("p3", "globex")))

	err := s.CreateDefinition(ctx, processRep("p1", "acme"))
	assert.True(t, model.IsConflict(err))

	rep, err := s.GetDefinition(ctx, "p1")
	require.Nil(t, err)
	assert.Equal(t, "Process p1", rep.Name)
	assert.Len(t, rep.Nodes, 3)
	assert.Len(t, rep.Connections, 2)
	assert.Equal(t, []string{"pass"}, rep.Connections[1].Condition.Results)

	// returned reps are copies
	rep.Name = "changed"
	again, err := s.GetDefinition(ctx, "p1")
	require.Nil(t, err)
	assert.Equal(t, "Process p1", again.Name)

	_, err = s.GetDefinition(ctx, "missing")
	assert.True(t, model.IsNotFound(err))

	acme, err := s.ListDefinitions(ctx, "acme")
	require.Nil(t, err)
	assert.ElementsMatch(t, []string{"p1", "p2"}, definitionIDs(acme))

	all, err := s.ListDefinitions(ctx, "")
	require.Nil(t, err)
	assert.Len(t, all, 3)
}

func testUpdateDefinition(t *testing.T, s store.Store) {
	ctx := context.Background()
	require.Nil(t, s.CreateDefinition(ctx, processRep("p1", "acme")))

	updated, err := s.UpdateDefinition(ctx, "p1", func(rep *definition.DefinitionRep) (*definition.DefinitionRep, error) {
		rep.Name = "Renamed"
		rep.Version++
		return rep, nil
	})
	require.Nil(t, err)
	assert.Equal(t, "Renamed", updated.Name)

	rep, err := s.GetDefinition(ctx, "p1")
	require.Nil(t, err)
	assert.Equal(t, "Renamed", rep.Name)
	assert.Equal(t, int64(1), rep.Version)

	boom := errors.New("boom")
	_, err = s.UpdateDefinition(ctx, "p1", func(rep *definition.DefinitionRep) (*definition.DefinitionRep, error) {
		rep.Name = "Lost"
		return nil, boom
	})
	assert.ErrorIs(t, err, boom)

	rep, err = s.GetDefinition(ctx, "p1")
	require.Nil(t, err)
	assert.Equal(t, "Renamed", rep.Name)

	_, err = s.UpdateDefinition(ctx, "missing", func(rep *definition.DefinitionRep) (*definition.DefinitionRep, error) {
		return rep, nil
	})
	assert.True(t, model.IsNotFound(err))
}

func testDeleteUnreferenced(t *testing.T, s store.Store) {
	ctx := context.Background()
	require.Nil(t, s.CreateDefinition(ctx, processRep("p1", "acme")))

	result, err := s.DeleteDefinition(ctx, "p1")
	require.Nil(t, err)
	assert.False(t, result.Archived)

	_, err = s.GetDefinition(ctx, "p1")
	assert.True(t, model.IsNotFound(err))

	_, err = s.DeleteDefinition(ctx, "p1")
	assert.True(t, model.IsNotFound(err))
}

func testDeleteCascade(t *testing.T, s store.Store) {
	ctx := context.Background()
	rep := processRep("p1", "acme")
	require.Nil(t, s.CreateDefinition(ctx, rep))

	inst := instance.New("i1", "p1", "c1", "r1", now)
	require.Nil(t, s.CreateInstance(ctx, inst))

	err := s.UpdateInstance(ctx, "i1", func(tx *store.InstanceTx) error {
		linked := instance.NewExecution("e1", tx.Instance, node(t, rep, "p1-iv"), "alice", now)
		if err := linked.Link("iv-1"); err != nil {
			return err
		}
		tx.AddExecution(linked)
		tx.AddExecution(instance.NewExecution("e2", tx.Instance, node(t, rep, "p1-start"), "", now))
		return nil
	})
	require.Nil(t, err)

	result, err := s.DeleteDefinition(ctx, "p1")
	require.Nil(t, err)
	assert.True(t, result.Archived)
	assert.Equal(t, 1, result.UnlinkedExecutions)

	archived, err := s.GetDefinition(ctx, "p1")
	require.Nil(t, err)
	assert.Equal(t, model.ProcessArchived, archived.Status)

	e1, err := s.GetExecution(ctx, "e1")
	require.Nil(t, err)
	assert.True(t, e1.LinkageDeleted())
	assert.Equal(t, "iv-1", e1.InterviewID())

	e2, err := s.GetExecution(ctx, "e2")
	require.Nil(t, err)
	assert.False(t, e2.LinkageDeleted())

	// the instance itself is never deleted
	_, err = s.GetInstance(ctx, "i1")
	assert.Nil(t, err)
}

func testInstances(t *testing.T, s store.Store) {
	ctx := context.Background()
	require.Nil(t, s.CreateDefinition(ctx, processRep("p1", "acme")))
	require.Nil(t, s.CreateDefinition(ctx, processRep("p2", "acme")))

	require.Nil(t, s.CreateInstance(ctx, instance.New("i1", "p1", "c1", "r1", now)))
	require.Nil(t, s.CreateInstance(ctx, instance.New("i2", "p1", "c2", "", now)))
	require.Nil(t, s.CreateInstance(ctx, instance.New("i3", "p2", "c1", "", now)))

	err := s.CreateInstance(ctx, instance.New("i4", "p1", "c1", "", now))
	assert.True(t, model.IsConflict(err))

	inst, err := s.GetInstance(ctx, "i1")
	require.Nil(t, err)
	assert.Equal(t, "c1", inst.CandidateID())
	assert.Equal(t, "r1", inst.RecruiterID())
	assert.Equal(t, model.InstanceNotStarted, inst.Status())
	assert.True(t, now.Equal(inst.AssignedAt()))

	_, err = s.GetInstance(ctx, "i4")
	assert.True(t, model.IsNotFound(err))

	p1, err := s.ListInstances(ctx, store.InstanceFilter{ProcessID: "p1"})
	require.Nil(t, err)
	assert.ElementsMatch(t, []string{"i1", "i2"}, instanceIDs(p1))

	c1, err := s.ListInstances(ctx, store.InstanceFilter{CandidateID: "c1"})
	require.Nil(t, err)
	assert.ElementsMatch(t, []string{"i1", "i3"}, instanceIDs(c1))

	err = s.UpdateInstance(ctx, "missing", func(tx *store.InstanceTx) error { return nil })
	assert.True(t, model.IsNotFound(err))
}

func testUpdateInstance(t *testing.T, s store.Store) {
	ctx := context.Background()
	rep := processRep("p1", "acme")
	require.Nil(t, s.CreateDefinition(ctx, rep))
	require.Nil(t, s.CreateInstance(ctx, instance.New("i1", "p1", "c1", "", now)))

	err := s.UpdateInstance(ctx, "i1", func(tx *store.InstanceTx) error {
		if err := tx.Instance.Start(now); err != nil {
			return err
		}
		if err := tx.Instance.Advance("p1-iv"); err != nil {
			return err
		}
		tx.AddExecution(instance.NewExecution("e1", tx.Instance, node(t, rep, "p1-iv"), "alice", now))
		return nil
	})
	require.Nil(t, err)

	inst, err := s.GetInstance(ctx, "i1")
	require.Nil(t, err)
	assert.Equal(t, model.InstanceInProgress, inst.Status())
	assert.Equal(t, "p1-iv", inst.CurrentNodeID())
	assert.Equal(t, int64(1), inst.Version())

	exec, err := s.GetExecution(ctx, "e1")
	require.Nil(t, err)
	assert.Equal(t, "alice", exec.Assignee())
	assert.True(t, now.Add(time.Hour).Equal(exec.DueDate()))

	err = s.UpdateInstance(ctx, "i1", func(tx *store.InstanceTx) error {
		exec := tx.Execution("e1")
		require.NotNil(t, exec)
		assert.False(t, tx.IsNew("e1"))
		score := 4.5
		return exec.Complete("pass", "bob", &score, "solid", map[string]interface{}{"level": "senior"}, now.Add(time.Hour))
	})
	require.Nil(t, err)

	exec, err = s.GetExecution(ctx, "e1")
	require.Nil(t, err)
	assert.Equal(t, model.ExecutionCompleted, exec.Status())
	assert.Equal(t, 4.5, *exec.Score())
	assert.Equal(t, "senior", exec.Data()["level"])

	inst, err = s.GetInstance(ctx, "i1")
	require.Nil(t, err)
	assert.Equal(t, int64(2), inst.Version())
}

func testUpdateInstanceError(t *testing.T, s store.Store) {
	ctx := context.Background()
	rep := processRep("p1", "acme")
	require.Nil(t, s.CreateDefinition(ctx, rep))
	require.Nil(t, s.CreateInstance(ctx, instance.New("i1", "p1", "c1", "", now)))

	boom := errors.New("boom")
	err := s.UpdateInstance(ctx, "i1", func(tx *store.InstanceTx) error {
		_ = tx.Instance.Start(now)
		tx.AddExecution(instance.NewExecution("e1", tx.Instance, node(t, rep, "p1-iv"), "", now))
		return boom
	})
	assert.ErrorIs(t, err, boom)

	inst, err := s.GetInstance(ctx, "i1")
	require.Nil(t, err)
	assert.Equal(t, model.InstanceNotStarted, inst.Status())

	_, err = s.GetExecution(ctx, "e1")
	assert.True(t, model.IsNotFound(err))
}

func testSerializedUpdates(t *testing.T, s store.Store) {
	ctx := context.Background()
	rep := processRep("p1", "acme")
	require.Nil(t, s.CreateDefinition(ctx, rep))
	require.Nil(t, s.CreateInstance(ctx, instance.New("i1", "p1", "c1", "", now)))
	ivNode := node(t, rep, "p1-iv")

	const workers = 8
	var wg sync.WaitGroup
	errs := make(chan error, workers)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			errs <- s.UpdateInstance(ctx, "i1", func(tx *store.InstanceTx) error {
				// only one open execution per node may exist
				if tx.OpenExecution(ivNode.ID()) == nil {
					tx.AddExecution(instance.NewExecution(fmt.Sprintf("e%d", i), tx.Instance, ivNode, "", now))
				}
				return nil
			})
		}(i)
	}
	wg.Wait()
	close(errs)

	for err := range errs {
		assert.Nil(t, err)
	}

	executions, err := s.ListExecutions(ctx, store.ExecutionFilter{InstanceID: "i1"})
	require.Nil(t, err)
	assert.Len(t, executions, 1)

	inst, err := s.GetInstance(ctx, "i1")
	require.Nil(t, err)
	assert.Equal(t, int64(workers), inst.Version())
}

func testListExecutions(t *testing.T, s store.Store) {
	ctx := context.Background()
	rep := processRep("p1", "acme")
	require.Nil(t, s.CreateDefinition(ctx, rep))
	require.Nil(t, s.CreateInstance(ctx, instance.New("i1", "p1", "c1", "", now)))
	require.Nil(t, s.CreateInstance(ctx, instance.New("i2", "p1", "c2", "", now)))

	add := func(instID, execID, nodeID, assignee string, at time.Time, complete bool) {
		err := s.UpdateInstance(ctx, instID, func(tx *store.InstanceTx) error {
			exec := instance.NewExecution(execID, tx.Instance, node(t, rep, nodeID), assignee, at)
			if complete {
				if err := exec.Complete("pass", assignee, nil, "", nil, at.Add(time.Minute)); err != nil {
					return err
				}
			}
			tx.AddExecution(exec)
			return nil
		})
		require.Nil(t, err)
	}

	add("i1", "e1", "p1-start", "", now, true)
	add("i1", "e2", "p1-iv", "alice", now.Add(time.Minute), false)
	add("i2", "e3", "p1-iv", "alice", now.Add(2*time.Minute), true)
	add("i2", "e4", "p1-todo", "bob", now.Add(3*time.Minute), false)

	all, err := s.ListExecutions(ctx, store.ExecutionFilter{ProcessID: "p1"})
	require.Nil(t, err)
	assert.Equal(t, []string{"e1", "e2", "e3", "e4"}, executionIDs(all))

	i2, err := s.ListExecutions(ctx, store.ExecutionFilter{InstanceID: "i2"})
	require.Nil(t, err)
	assert.Equal(t, []string{"e3", "e4"}, executionIDs(i2))

	alice, err := s.ListExecutions(ctx, store.ExecutionFilter{Assignee: "alice"})
	require.Nil(t, err)
	assert.Equal(t, []string{"e2", "e3"}, executionIDs(alice))

	open, err := s.ListExecutions(ctx, store.ExecutionFilter{ProcessID: "p1", OpenOnly: true})
	require.Nil(t, err)
	assert.Equal(t, []string{"e2", "e4"}, executionIDs(open))

	_, err = s.GetExecution(ctx, "missing")
	assert.True(t, model.IsNotFound(err))
}

// executions created together share their creation time and keep the order
// they were added in, whatever their ids
func testCreationOrder(t *testing.T, s store.Store) {
	ctx := context.Background()
	rep := processRep("p1", "acme")
	require.Nil(t, s.CreateDefinition(ctx, rep))
	require.Nil(t, s.CreateInstance(ctx, instance.New("i1", "p1", "c1", "", now)))

	err := s.UpdateInstance(ctx, "i1", func(tx *store.InstanceTx) error {
		for _, id := range []string{"z", "m", "a"} {
			tx.AddExecution(instance.NewExecution(id, tx.Instance, node(t, rep, "p1-iv"), "", now))
		}
		return nil
	})
	require.Nil(t, err)

	err = s.UpdateInstance(ctx, "i1", func(tx *store.InstanceTx) error {
		assert.Equal(t, []string{"z", "m", "a"}, executionIDs(tx.Executions()))
		tx.AddExecution(instance.NewExecution("b", tx.Instance, node(t, rep, "p1-todo"), "", now))
		return nil
	})
	require.Nil(t, err)

	executions, err := s.ListExecutions(ctx, store.ExecutionFilter{InstanceID: "i1"})
	require.Nil(t, err)
	assert.Equal(t, []string{"z", "m", "a", "b"}, executionIDs(executions))
	for i, exec := range executions {
		assert.EqualValues(t, i+1, exec.Sequence())
	}
}

func definitionIDs(reps []*definition.DefinitionRep) []string {
	ids := make([]string, 0, len(reps))
	for _, rep := range reps {
		ids = append(ids, rep.ID)
	}
	return ids
}

func instanceIDs(insts []*instance.Instance) []string {
	ids := make([]string, 0, len(insts))
	for _, inst := range insts {
		ids = append(ids, inst.ID())
	}
	return ids
}

func executionIDs(executions []*instance.Execution) []string {
	ids := make([]string, 0, len(executions))
	for _, exec := range executions {
		ids = append(ids, exec.ID())
	}
	return ids
}
