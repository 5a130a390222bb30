package store

import (
	"sort"

	"github.com/project-flogo/recruit/instance"
)

// InstanceTx is the unit of work of UpdateInstance: a private copy of an
// instance together with all of its executions.  Executions added to the
// transaction are persisted with the instance as one set.
type InstanceTx struct {
	Instance *instance.Instance

	executions []*instance.Execution
	added      map[string]bool
}

// NewInstanceTx creates a transaction over copies of inst and its executions
func NewInstanceTx(inst *instance.Instance, executions []*instance.Execution) *InstanceTx {
	tx := &InstanceTx{
		Instance:   inst.Clone(),
		executions: make([]*instance.Execution, 0, len(executions)),
		added:      make(map[string]bool),
	}
	for _, exec := range executions {
		tx.executions = append(tx.executions, exec.Clone())
	}
	SortExecutions(tx.executions)
	return tx
}

// Executions returns the executions of the instance ordered by creation
func (tx *InstanceTx) Executions() []*instance.Execution {
	return tx.executions
}

// Execution returns the execution with the specified id, nil if it does
// not belong to the instance
func (tx *InstanceTx) Execution(id string) *instance.Execution {
	for _, exec := range tx.executions {
		if exec.ID() == id {
			return exec
		}
	}
	return nil
}

// OpenExecution returns the open execution at the node, nil if there is none
func (tx *InstanceTx) OpenExecution(nodeID string) *instance.Execution {
	for _, exec := range tx.executions {
		if exec.NodeID() == nodeID && exec.IsOpen() {
			return exec
		}
	}
	return nil
}

// OpenExecutions returns the executions that are pending or in progress
func (tx *InstanceTx) OpenExecutions() []*instance.Execution {
	var open []*instance.Execution
	for _, exec := range tx.executions {
		if exec.IsOpen() {
			open = append(open, exec)
		}
	}
	return open
}

// AddExecution adds a new execution to the transaction, ranked after every
// execution the instance already has
func (tx *InstanceTx) AddExecution(exec *instance.Execution) {
	var last int64
	for _, cur := range tx.executions {
		if cur.Sequence() > last {
			last = cur.Sequence()
		}
	}
	exec.SetSequence(last + 1)
	tx.executions = append(tx.executions, exec)
	tx.added[exec.ID()] = true
}

// IsNew returns true if the execution was added by this transaction
func (tx *InstanceTx) IsNew(id string) bool {
	return tx.added[id]
}

// SortExecutions orders executions by creation time, then by their rank
// within the instance, then by id
func SortExecutions(executions []*instance.Execution) {
	sort.SliceStable(executions, func(i, j int) bool {
		a, b := executions[i], executions[j]
		if !a.CreatedAt().Equal(b.CreatedAt()) {
			return a.CreatedAt().Before(b.CreatedAt())
		}
		if a.Sequence() != b.Sequence() {
			return a.Sequence() < b.Sequence()
		}
		return a.ID() < b.ID()
	})
}
