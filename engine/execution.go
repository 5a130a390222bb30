package engine

import (
	"context"

	"github.com/project-flogo/recruit/definition"
	"github.com/project-flogo/recruit/instance"
	"github.com/project-flogo/recruit/model"
	"github.com/project-flogo/recruit/store"
)

// Completion is the outcome reported for an execution
type Completion struct {
	Result      string
	CompletedBy string
	Score       *float64
	Feedback    string
	Data        map[string]interface{}
}

// Result is the committed state after a transition that may move the
// candidate through the graph
type Result struct {
	Instance *instance.Instance

	// Execution that was completed, nil when starting an instance
	Execution *instance.Execution

	// Created holds the executions created by the transition, in creation order
	Created []*instance.Execution
}

// GetExecution returns the execution with the specified id
func (e *Engine) GetExecution(ctx context.Context, executionID string) (*instance.Execution, error) {
	return e.store.GetExecution(ctx, executionID)
}

// ListExecutions returns the executions of an instance in creation order
func (e *Engine) ListExecutions(ctx context.Context, instanceID string) ([]*instance.Execution, error) {
	return e.store.ListExecutions(ctx, store.ExecutionFilter{InstanceID: instanceID})
}

// StartExecution marks a pending execution as in progress
func (e *Engine) StartExecution(ctx context.Context, executionID string) (*instance.Execution, error) {
	exec, err := e.store.GetExecution(ctx, executionID)
	if err != nil {
		return nil, err
	}

	var started *instance.Execution
	_, err = e.update(ctx, "start_execution", exec.InstanceID(), func(tx *store.InstanceTx) error {
		if err := checkRunning(tx.Instance); err != nil {
			return err
		}
		cur := tx.Execution(executionID)
		if cur == nil {
			return model.NewNotFoundError("execution", executionID)
		}
		started = cur
		return cur.Start(e.now())
	})
	if err != nil {
		return nil, err
	}
	return started, nil
}

// CompleteExecution records the outcome of an execution and advances the
// candidate along every connection whose condition matches it.  The
// executions of the fan-out are committed with the completion.
func (e *Engine) CompleteExecution(ctx context.Context, executionID string, c Completion) (*Result, error) {
	exec, err := e.store.GetExecution(ctx, executionID)
	if err != nil {
		return nil, err
	}
	def, err := e.loadDefinition(ctx, exec.ProcessID())
	if err != nil {
		return nil, err
	}
	node := def.Node(exec.NodeID())
	if node == nil {
		return nil, model.NewNotFoundErrorf("node", exec.NodeID(), "node '%s' of execution '%s' no longer exists", exec.NodeID(), executionID)
	}

	result := c.Result
	if result == "" {
		result = scoredResult(node, c.Score)
	}

	var t *traversal
	var completed *instance.Execution
	tx, err := e.update(ctx, "complete_execution", exec.InstanceID(), func(tx *store.InstanceTx) error {
		if err := checkRunning(tx.Instance); err != nil {
			return err
		}
		cur := tx.Execution(executionID)
		if cur == nil {
			return model.NewNotFoundError("execution", executionID)
		}

		now := e.now()
		if err := cur.Complete(result, c.CompletedBy, c.Score, c.Feedback, c.Data, now); err != nil {
			return err
		}
		completed = cur
		t = e.newTraversal(def, tx, now)
		return t.advance(node, cur)
	})
	if err != nil {
		return nil, err
	}

	if e.logger.DebugEnabled() {
		e.logger.Debugf("Instance[%s] execution '%s' completed with '%s', %d executions created", tx.Instance.ID(), executionID, result, len(t.created))
	}
	return e.finish(ctx, def, tx, completed, t)
}

// finish requests the linked resources of the created executions and
// assembles the result of a transition
func (e *Engine) finish(ctx context.Context, def *definition.Definition, tx *store.InstanceTx, completed *instance.Execution, t *traversal) (*Result, error) {
	res := &Result{Instance: tx.Instance, Execution: completed, Created: t.created}

	linked, err := e.link(ctx, def, tx.Instance, t.created)
	if err != nil {
		// the transition is committed, the repair flag could not be stored
		e.logger.Errorf("Instance[%s] unable to store linked resources: %v", tx.Instance.ID(), err)
		return res, nil
	}
	if linked != nil {
		res.Instance = linked.Instance
		for i, exec := range res.Created {
			if cur := linked.Execution(exec.ID()); cur != nil {
				res.Created[i] = cur
			}
		}
	}
	return res, nil
}

// scoredResult derives pass or fail from the passing score of an
// assessment when no explicit result is reported
func scoredResult(node *definition.Node, score *float64) string {
	cfg, ok := node.Config().(definition.AssessmentConfig)
	if !ok || cfg.PassingScore == nil || score == nil {
		return ""
	}
	if *score >= *cfg.PassingScore {
		return "pass"
	}
	return "fail"
}

func checkRunning(inst *instance.Instance) error {
	if inst.IsTerminal() {
		return model.NewConflictError("instance", inst.ID(), "already terminal (%s)", inst.Status())
	}
	if inst.Status() != model.InstanceInProgress {
		return model.NewConflictError("instance", inst.ID(), "executions cannot change while %s", inst.Status())
	}
	return nil
}
