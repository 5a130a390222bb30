// Package event describes the lifecycle events posted on the flogo event
// bus while candidates move through processes.
package event

import (
	"time"

	"github.com/project-flogo/recruit/model"
)

const InstanceEventType = "recruitinstanceevent"
const ExecutionEventType = "recruitexecutionevent"

// InstanceEvent provides access to a change of status of an instance
type InstanceEvent interface {
	// Returns instance ID
	InstanceID() string
	// Returns process ID
	ProcessID() string
	// Returns candidate ID
	CandidateID() string
	// Returns the operation that caused the change
	Operation() string
	// Returns the status before the change, empty for a new instance
	PreviousStatus() model.InstanceStatus
	// Returns the current status
	Status() model.InstanceStatus
	// Returns the final result of a completed instance
	FinalResult() string
	// Returns event time
	Time() time.Time
}

// ExecutionEvent provides access to a change of status of an execution
type ExecutionEvent interface {
	ExecutionID() string
	InstanceID() string
	ProcessID() string
	NodeID() string
	NodeType() model.NodeType
	Assignee() string
	// Returns the status before the change, empty for a new execution
	PreviousStatus() model.ExecutionStatus
	Status() model.ExecutionStatus
	// Returns the result of a completed execution
	Result() string
	Time() time.Time
}
