package engine

import (
	"context"
	"time"

	"github.com/project-flogo/recruit/definition"
	"github.com/project-flogo/recruit/instance"
	"github.com/project-flogo/recruit/linkage"
	"github.com/project-flogo/recruit/store"
)

type linkOutcome struct {
	resourceID string
	err        error
}

// link requests the external resources of the executions outside of any
// store transaction, then records the ids or the failures.  A nil
// transaction is returned when nothing had to be requested.
func (e *Engine) link(ctx context.Context, def *definition.Definition, inst *instance.Instance, executions []*instance.Execution) (*store.InstanceTx, error) {
	outcomes := make(map[string]linkOutcome)

	for _, exec := range executions {
		if !exec.NeedsLinkage() {
			continue
		}
		node := def.Node(exec.NodeID())
		if node == nil {
			continue
		}

		id, requested, err := e.requestResource(ctx, def, node, inst, exec)
		if !requested {
			continue
		}
		if err != nil {
			e.logger.Warnf("Instance[%s] unable to create the %s resource of execution '%s': %v", inst.ID(), exec.NodeType(), exec.ID(), err)
		}
		outcomes[exec.ID()] = linkOutcome{resourceID: id, err: err}
	}

	if len(outcomes) == 0 {
		return nil, nil
	}

	return e.update(ctx, "link", inst.ID(), func(tx *store.InstanceTx) error {
		for execID, outcome := range outcomes {
			exec := tx.Execution(execID)
			if exec == nil {
				continue
			}
			if outcome.err != nil {
				exec.SetLinkageError(outcome.err.Error())
				continue
			}
			if err := exec.Link(outcome.resourceID); err != nil {
				return err
			}
		}
		tx.Instance.SetLinkageRepair(needsRepair(tx))
		return nil
	})
}

// RetryLinkage requests the missing resources of the open executions of an
// instance again; the repair flag is cleared once all of them exist
func (e *Engine) RetryLinkage(ctx context.Context, instanceID string) (*instance.Instance, error) {
	inst, err := e.store.GetInstance(ctx, instanceID)
	if err != nil {
		return nil, err
	}
	def, err := e.loadDefinition(ctx, inst.ProcessID())
	if err != nil {
		return nil, err
	}
	executions, err := e.store.ListExecutions(ctx, store.ExecutionFilter{InstanceID: instanceID, OpenOnly: true})
	if err != nil {
		return nil, err
	}

	tx, err := e.link(ctx, def, inst, executions)
	if err != nil {
		return nil, err
	}
	if tx != nil {
		if tx.Instance.NeedsLinkageRepair() {
			e.logger.Warnf("Instance[%s] linked resources still missing", instanceID)
		} else {
			e.logger.Infof("Instance[%s] linked resources repaired", instanceID)
		}
		return tx.Instance, nil
	}

	if !inst.NeedsLinkageRepair() {
		return inst, nil
	}

	// nothing left to request, the flag is stale
	tx, err = e.update(ctx, "link", instanceID, func(tx *store.InstanceTx) error {
		tx.Instance.SetLinkageRepair(needsRepair(tx))
		return nil
	})
	if err != nil {
		return nil, err
	}
	return tx.Instance, nil
}

// requestResource calls the collaborator for the node type; requested is
// false when the node has no linked resource or no collaborator is set
func (e *Engine) requestResource(ctx context.Context, def *definition.Definition, node *definition.Node, inst *instance.Instance, exec *instance.Execution) (string, bool, error) {
	switch cfg := node.Config().(type) {
	case definition.InterviewConfig:
		if e.interviews == nil {
			return "", false, nil
		}
		id, err := e.interviews.CreateInterview(ctx, linkage.InterviewRequest{
			ExecutionID:   exec.ID(),
			ProcessID:     def.ID(),
			CandidateID:   inst.CandidateID(),
			RecruiterID:   inst.RecruiterID(),
			Organization:  def.Organization(),
			Title:         node.Title(),
			InterviewType: cfg.InterviewType,
			Duration:      time.Duration(cfg.DurationMinutes) * time.Minute,
			Interviewers:  cfg.Interviewers,
		})
		return id, true, err
	case definition.TodoConfig:
		if e.tasks == nil {
			return "", false, nil
		}
		due := exec.DueDate()
		if cfg.DueInDays > 0 {
			due = exec.CreatedAt().AddDate(0, 0, cfg.DueInDays)
		}
		id, err := e.tasks.CreateTask(ctx, linkage.TaskRequest{
			ExecutionID: exec.ID(),
			ProcessID:   def.ID(),
			Owner:       inst.RecruiterID(),
			Assignee:    exec.Assignee(),
			Title:       node.Title(),
			DueDate:     due,
		})
		return id, true, err
	}
	return "", false, nil
}

func needsRepair(tx *store.InstanceTx) bool {
	for _, exec := range tx.OpenExecutions() {
		if exec.NeedsLinkage() && exec.LinkageError() != "" {
			return true
		}
	}
	return false
}
