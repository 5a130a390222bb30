package change

import "github.com/project-flogo/recruit/model"

// Type denotes the type of change for an object in an instance
type Type int

const (
	// Add denotes an addition
	Add Type = iota
	// Update denotes an update
	Update
	// Delete denotes an deletion
	Delete
)

// Instance holds the attributes of an instance changed by a step
type Instance struct {
	Status             model.InstanceStatus `json:"status,omitempty"`
	CurrentNodeId      string               `json:"currentNodeId,omitempty"`
	FinalResult        string               `json:"finalResult,omitempty"`
	NeedsLinkageRepair *bool                `json:"needsLinkageRepair,omitempty"`
}

// Execution holds the attributes of an execution changed by a step
type Execution struct {
	ChgType  Type                  `json:"change"`
	NodeId   string                `json:"nodeId,omitempty"`
	Status   model.ExecutionStatus `json:"status,omitempty"`
	Result   string                `json:"result,omitempty"`
	Assignee string                `json:"assignee,omitempty"`
	Linked   string                `json:"linked,omitempty"`
}
