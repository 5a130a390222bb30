package model

// ProcessStatus is the lifecycle status of a process definition
type ProcessStatus string

// NodeStatus is the status of a node within its definition
type NodeStatus string

// InstanceStatus is the status of a candidate's run through a process
type InstanceStatus string

// ExecutionStatus is the status of one attempt at one node
type ExecutionStatus string

const (
	// ProcessDraft indicates that the definition is still editable
	ProcessDraft ProcessStatus = "draft"

	// ProcessActive indicates that the definition is frozen and can take candidates
	ProcessActive ProcessStatus = "active"

	// ProcessArchived indicates that the definition has been soft-deleted
	ProcessArchived ProcessStatus = "archived"

	NodeDraft  NodeStatus = "draft"
	NodeActive NodeStatus = "active"

	// InstanceNotStarted indicates that the candidate is assigned but not started
	InstanceNotStarted InstanceStatus = "not_started"

	// InstanceInProgress indicates that the candidate is moving through the process
	InstanceInProgress InstanceStatus = "in_progress"

	// InstanceOnHold indicates that the run has been paused
	InstanceOnHold InstanceStatus = "on_hold"

	// InstanceCompleted indicates that the run reached a final result
	InstanceCompleted InstanceStatus = "completed"

	// InstanceFailed indicates that the run was failed
	InstanceFailed InstanceStatus = "failed"

	// InstanceWithdrawn indicates that the candidate was withdrawn
	InstanceWithdrawn InstanceStatus = "withdrawn"

	ExecutionPending    ExecutionStatus = "pending"
	ExecutionInProgress ExecutionStatus = "in_progress"
	ExecutionCompleted  ExecutionStatus = "completed"

	// ExecutionCancelled indicates that the execution was closed by a terminal
	// override of its instance
	ExecutionCancelled ExecutionStatus = "cancelled"
)

// IsTerminal returns true if no further transitions are allowed
func (s InstanceStatus) IsTerminal() bool {
	switch s {
	case InstanceCompleted, InstanceFailed, InstanceWithdrawn:
		return true
	}
	return false
}

// Valid returns true if s is one of the known instance statuses
func (s InstanceStatus) Valid() bool {
	switch s {
	case InstanceNotStarted, InstanceInProgress, InstanceOnHold, InstanceCompleted, InstanceFailed, InstanceWithdrawn:
		return true
	}
	return false
}

// IsOpen returns true if the execution can still be completed
func (s ExecutionStatus) IsOpen() bool {
	return s == ExecutionPending || s == ExecutionInProgress
}

// Valid returns true if s is one of the known process statuses
func (s ProcessStatus) Valid() bool {
	switch s {
	case ProcessDraft, ProcessActive, ProcessArchived:
		return true
	}
	return false
}
