package engine

import (
	"context"
	"time"

	"github.com/project-flogo/recruit/definition"
	"github.com/project-flogo/recruit/instance"
	"github.com/project-flogo/recruit/model"
	"github.com/project-flogo/recruit/store"
)

// Assign creates a not started instance for the candidate in an active
// process.  A candidate is assigned to a process at most once.
func (e *Engine) Assign(ctx context.Context, processID, candidateID, recruiterID string) (*instance.Instance, error) {
	def, err := e.loadDefinition(ctx, processID)
	if err != nil {
		return nil, err
	}
	if def.Status() != model.ProcessActive {
		return nil, model.NewConflictError("process", processID, "cannot assign candidates while %s", def.Status())
	}

	inst := instance.New(e.newID(), processID, candidateID, recruiterID, e.now())
	if err := e.store.CreateInstance(ctx, inst); err != nil {
		return nil, err
	}

	e.postEvents("assign", nil, nil, inst, nil)
	e.logger.Infof("Instance[%s] candidate '%s' assigned to process '%s'", inst.ID(), candidateID, processID)
	return inst, nil
}

// GetInstance returns the instance with the specified id
func (e *Engine) GetInstance(ctx context.Context, instanceID string) (*instance.Instance, error) {
	return e.store.GetInstance(ctx, instanceID)
}

// ListInstances returns the instances of a process
func (e *Engine) ListInstances(ctx context.Context, processID string) ([]*instance.Instance, error) {
	return e.store.ListInstances(ctx, store.InstanceFilter{ProcessID: processID})
}

// Start moves the instance to in progress and enters the start node of its
// process
func (e *Engine) Start(ctx context.Context, instanceID string) (*Result, error) {
	inst, err := e.store.GetInstance(ctx, instanceID)
	if err != nil {
		return nil, err
	}
	def, err := e.loadDefinition(ctx, inst.ProcessID())
	if err != nil {
		return nil, err
	}

	startNode, err := e.startNode(def)
	if err != nil {
		return nil, err
	}

	var t *traversal
	tx, err := e.update(ctx, "start", instanceID, func(tx *store.InstanceTx) error {
		now := e.now()
		if err := tx.Instance.Start(now); err != nil {
			return err
		}
		t = e.newTraversal(def, tx, now)
		return t.enterAll([]nodeEntry{{node: startNode}})
	})
	if err != nil {
		return nil, err
	}

	e.logger.Infof("Instance[%s] started at node '%s'", instanceID, tx.Instance.CurrentNodeID())
	return e.finish(ctx, def, tx, nil, t)
}

// PutOnHold pauses an in progress instance
func (e *Engine) PutOnHold(ctx context.Context, instanceID string) (*instance.Instance, error) {
	tx, err := e.update(ctx, "put_on_hold", instanceID, func(tx *store.InstanceTx) error {
		return tx.Instance.Hold()
	})
	if err != nil {
		return nil, err
	}
	e.logger.Infof("Instance[%s] on hold", instanceID)
	return tx.Instance, nil
}

// Resume continues an instance that is on hold
func (e *Engine) Resume(ctx context.Context, instanceID string) (*instance.Instance, error) {
	tx, err := e.update(ctx, "resume", instanceID, func(tx *store.InstanceTx) error {
		return tx.Instance.Resume()
	})
	if err != nil {
		return nil, err
	}
	e.logger.Infof("Instance[%s] resumed", instanceID)
	return tx.Instance, nil
}

// Complete is a manual override moving the instance to completed with
// finalResult stored as given.  When no score is given the mean of the
// scored executions is used.
func (e *Engine) Complete(ctx context.Context, instanceID, finalResult string, score *float64, notes string) (*instance.Instance, error) {
	tx, err := e.update(ctx, "complete", instanceID, func(tx *store.InstanceTx) error {
		now := e.now()
		overall := score
		if overall == nil {
			overall = instance.OverallScore(tx.Executions())
		}
		if err := tx.Instance.Complete(finalResult, overall, notes, now); err != nil {
			return err
		}
		return cancelOpen(tx, now)
	})
	if err != nil {
		return nil, err
	}
	e.logger.Infof("Instance[%s] completed with '%s'", instanceID, tx.Instance.FinalResult())
	return tx.Instance, nil
}

// Fail is a manual override moving the instance to failed
func (e *Engine) Fail(ctx context.Context, instanceID, reason string) (*instance.Instance, error) {
	tx, err := e.update(ctx, "fail", instanceID, func(tx *store.InstanceTx) error {
		now := e.now()
		if err := tx.Instance.Fail(reason, now); err != nil {
			return err
		}
		return cancelOpen(tx, now)
	})
	if err != nil {
		return nil, err
	}
	e.logger.Infof("Instance[%s] failed: %s", instanceID, reason)
	return tx.Instance, nil
}

// Withdraw is a manual override moving the instance to withdrawn
func (e *Engine) Withdraw(ctx context.Context, instanceID, reason string) (*instance.Instance, error) {
	tx, err := e.update(ctx, "withdraw", instanceID, func(tx *store.InstanceTx) error {
		now := e.now()
		if err := tx.Instance.Withdraw(reason, now); err != nil {
			return err
		}
		return cancelOpen(tx, now)
	})
	if err != nil {
		return nil, err
	}
	e.logger.Infof("Instance[%s] withdrawn: %s", instanceID, reason)
	return tx.Instance, nil
}

// startNode picks the node a run begins at, a node typed start is preferred
// over a node that merely has no incoming connection
func (e *Engine) startNode(def *definition.Definition) (*definition.Node, error) {
	chosen := def.EntryNode()
	if chosen == nil {
		return nil, model.NewNotFoundErrorf("node", def.ID(), "process '%s' has no start node", def.ID())
	}
	if starts := def.StartNodes(); len(starts) > 1 {
		e.logger.Warnf("Process[%s] has %d start nodes, entering '%s'", def.ID(), len(starts), chosen.ID())
	}
	return chosen, nil
}

func cancelOpen(tx *store.InstanceTx, now time.Time) error {
	for _, exec := range tx.OpenExecutions() {
		if err := exec.Cancel(now); err != nil {
			return err
		}
	}
	return nil
}
