package store

import (
	"context"

	"github.com/project-flogo/recruit/definition"
	"github.com/project-flogo/recruit/instance"
)

// Store is the persistence collaborator of the engine.  Implementations
// return independent copies: nothing returned by a Store aliases its state.
type Store interface {

	// CreateDefinition persists a new definition, a ConflictError is returned
	// if the id is taken
	CreateDefinition(ctx context.Context, rep *definition.DefinitionRep) error

	// GetDefinition returns the definition with the specified id
	GetDefinition(ctx context.Context, id string) (*definition.DefinitionRep, error)

	// ListDefinitions returns the definitions of an organization, all
	// definitions if org is empty
	ListDefinitions(ctx context.Context, org string) ([]*definition.DefinitionRep, error)

	// UpdateDefinition replaces the definition with the result of fn, the
	// read and the write are serialized with other updates of the definition
	UpdateDefinition(ctx context.Context, id string, fn DefinitionUpdateFunc) (*definition.DefinitionRep, error)

	// DeleteDefinition removes a definition.  A definition referenced by an
	// instance is archived instead and the linked resources of its executions
	// are marked deleted, all in one transaction.
	DeleteDefinition(ctx context.Context, id string) (*DeleteResult, error)

	// CreateInstance persists a new instance, a ConflictError is returned if
	// the candidate is already assigned to the process
	CreateInstance(ctx context.Context, inst *instance.Instance) error

	// GetInstance returns the instance with the specified id
	GetInstance(ctx context.Context, id string) (*instance.Instance, error)

	// ListInstances returns the instances matching the filter
	ListInstances(ctx context.Context, filter InstanceFilter) ([]*instance.Instance, error)

	// UpdateInstance runs fn against a private copy of the instance and its
	// executions and persists the copy when fn returns nil.  Updates of the
	// same instance are serialized; fn may be invoked more than once if the
	// implementation retries a conflicting commit.
	UpdateInstance(ctx context.Context, id string, fn InstanceUpdateFunc) error

	// GetExecution returns the execution with the specified id
	GetExecution(ctx context.Context, id string) (*instance.Execution, error)

	// ListExecutions returns the executions matching the filter ordered by
	// creation time
	ListExecutions(ctx context.Context, filter ExecutionFilter) ([]*instance.Execution, error)

	Close() error
}

// DefinitionUpdateFunc returns the new state of a definition
type DefinitionUpdateFunc func(rep *definition.DefinitionRep) (*definition.DefinitionRep, error)

// InstanceUpdateFunc mutates the instance transaction
type InstanceUpdateFunc func(tx *InstanceTx) error

// DeleteResult describes the outcome of DeleteDefinition
type DeleteResult struct {
	// Archived is true if the definition was kept as archived
	Archived bool

	// UnlinkedExecutions is the number of executions whose linked
	// resources were marked deleted
	UnlinkedExecutions int
}

// InstanceFilter selects instances, empty fields match everything
type InstanceFilter struct {
	ProcessID   string
	CandidateID string
}

// Matches returns true if the instance satisfies the filter
func (f InstanceFilter) Matches(inst *instance.Instance) bool {
	if f.ProcessID != "" && inst.ProcessID() != f.ProcessID {
		return false
	}
	if f.CandidateID != "" && inst.CandidateID() != f.CandidateID {
		return false
	}
	return true
}

// ExecutionFilter selects executions, empty fields match everything
type ExecutionFilter struct {
	ProcessID  string
	InstanceID string
	Assignee   string
	OpenOnly   bool
}

// Matches returns true if the execution satisfies the filter
func (f ExecutionFilter) Matches(exec *instance.Execution) bool {
	if f.ProcessID != "" && exec.ProcessID() != f.ProcessID {
		return false
	}
	if f.InstanceID != "" && exec.InstanceID() != f.InstanceID {
		return false
	}
	if f.Assignee != "" && exec.Assignee() != f.Assignee {
		return false
	}
	if f.OpenOnly && !exec.IsOpen() {
		return false
	}
	return true
}
