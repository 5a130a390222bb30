package instance

import (
	"fmt"
	"time"

	"github.com/project-flogo/recruit/definition"
	"github.com/project-flogo/recruit/model"
	"github.com/project-flogo/recruit/util"
)

// Execution is one attempt at one node for one instance.  It is completed
// exactly once; afterwards only its linkage metadata changes.
type Execution struct {
	id         string
	instanceID string
	processID  string
	nodeID     string
	nodeType   model.NodeType
	assignee   string
	status     model.ExecutionStatus
	dueDate    time.Time

	// sequence orders the executions of one instance by creation
	sequence int64

	result      string
	score       *float64
	feedback    string
	data        map[string]interface{}
	completedBy string

	createdAt   time.Time
	startedAt   time.Time
	completedAt time.Time

	interviewID    string
	taskID         string
	linkageError   string
	linkageDeleted bool
}

// NewExecution creates a pending execution of the node for the instance.
// The due date is derived from the estimated duration of the node.
func NewExecution(id string, inst *Instance, node *definition.Node, assignee string, now time.Time) *Execution {
	exec := &Execution{
		id:         id,
		instanceID: inst.ID(),
		processID:  inst.ProcessID(),
		nodeID:     node.ID(),
		nodeType:   node.Type(),
		assignee:   assignee,
		status:     model.ExecutionPending,
		createdAt:  now,
	}
	if d := node.EstimatedDuration(); d > 0 {
		exec.dueDate = now.Add(d)
	}
	return exec
}

func (e *Execution) ID() string {
	return e.id
}

// Sequence returns the creation rank of the execution within its instance,
// zero until it is added to an instance transaction
func (e *Execution) Sequence() int64 {
	return e.sequence
}

func (e *Execution) SetSequence(sequence int64) {
	e.sequence = sequence
}

func (e *Execution) InstanceID() string {
	return e.instanceID
}

func (e *Execution) ProcessID() string {
	return e.processID
}

func (e *Execution) NodeID() string {
	return e.nodeID
}

func (e *Execution) NodeType() model.NodeType {
	return e.nodeType
}

// Assignee returns who is responsible for the execution, empty if unassigned
func (e *Execution) Assignee() string {
	return e.assignee
}

func (e *Execution) Status() model.ExecutionStatus {
	return e.status
}

// IsOpen returns true if the execution is pending or in progress
func (e *Execution) IsOpen() bool {
	return e.status.IsOpen()
}

// DueDate returns the advisory due date, zero if the node has no estimate
func (e *Execution) DueDate() time.Time {
	return e.dueDate
}

func (e *Execution) Result() string {
	return e.result
}

func (e *Execution) Score() *float64 {
	return copyScore(e.score)
}

func (e *Execution) Feedback() string {
	return e.feedback
}

// Data returns a copy of the structured data recorded on completion
func (e *Execution) Data() map[string]interface{} {
	return util.DeepCopyMap(e.data)
}

func (e *Execution) CompletedBy() string {
	return e.completedBy
}

func (e *Execution) CreatedAt() time.Time {
	return e.createdAt
}

func (e *Execution) StartedAt() time.Time {
	return e.startedAt
}

func (e *Execution) CompletedAt() time.Time {
	return e.completedAt
}

// InterviewID returns the id of the linked interview, empty if none
func (e *Execution) InterviewID() string {
	return e.interviewID
}

// TaskID returns the id of the linked task, empty if none
func (e *Execution) TaskID() string {
	return e.taskID
}

// LinkageError returns the last failure to create the linked resource
func (e *Execution) LinkageError() string {
	return e.linkageError
}

// LinkageDeleted returns true if the linked resource was marked deleted
// together with its process
func (e *Execution) LinkageDeleted() bool {
	return e.linkageDeleted
}

// NeedsLinkage returns true if the execution should have a linked external
// resource and does not have one yet
func (e *Execution) NeedsLinkage() bool {
	if !e.IsOpen() || e.linkageDeleted {
		return false
	}
	switch e.nodeType {
	case model.NodeInterview:
		return e.interviewID == ""
	case model.NodeTodo:
		return e.taskID == ""
	}
	return false
}

// HasLinkage returns true if the execution references an external resource
func (e *Execution) HasLinkage() bool {
	return e.interviewID != "" || e.taskID != ""
}

// Start moves a pending execution to in progress
func (e *Execution) Start(now time.Time) error {
	if e.status != model.ExecutionPending {
		return model.NewConflictError("execution", e.id, "cannot start while %s", e.status)
	}
	e.status = model.ExecutionInProgress
	e.startedAt = now
	return nil
}

// Complete records the outcome of the execution
func (e *Execution) Complete(result, completedBy string, score *float64, feedback string, data map[string]interface{}, now time.Time) error {
	if !e.IsOpen() {
		return model.NewConflictError("execution", e.id, "already %s", e.status)
	}
	if e.startedAt.IsZero() {
		e.startedAt = now
	}
	e.status = model.ExecutionCompleted
	e.result = result
	e.completedBy = completedBy
	e.score = copyScore(score)
	e.feedback = feedback
	e.data = util.DeepCopyMap(data)
	e.completedAt = now
	return nil
}

// Cancel closes an open execution without an outcome
func (e *Execution) Cancel(now time.Time) error {
	if !e.IsOpen() {
		return model.NewConflictError("execution", e.id, "already %s", e.status)
	}
	e.status = model.ExecutionCancelled
	e.completedAt = now
	return nil
}

// Link records the id of the external resource created for the execution
func (e *Execution) Link(resourceID string) error {
	switch e.nodeType {
	case model.NodeInterview:
		e.interviewID = resourceID
	case model.NodeTodo:
		e.taskID = resourceID
	default:
		return fmt.Errorf("execution '%s': %s nodes have no linked resource", e.id, e.nodeType)
	}
	e.linkageError = ""
	return nil
}

// SetLinkageError records a failure to create the linked resource
func (e *Execution) SetLinkageError(msg string) {
	e.linkageError = msg
}

// MarkLinkageDeleted flags the linked resource as deleted
func (e *Execution) MarkLinkageDeleted() {
	e.linkageDeleted = true
}

// TimeInNode returns the time between creation and completion, zero while
// the execution is not completed
func (e *Execution) TimeInNode() time.Duration {
	if e.status != model.ExecutionCompleted {
		return 0
	}
	return e.completedAt.Sub(e.createdAt)
}

// IsOverdue returns true if the execution is open past its due date
func (e *Execution) IsOverdue(now time.Time) bool {
	return e.IsOpen() && !e.dueDate.IsZero() && now.After(e.dueDate)
}

// Clone returns an independent copy of the execution
func (e *Execution) Clone() *Execution {
	cp := *e
	cp.score = copyScore(e.score)
	cp.data = util.DeepCopyMap(e.data)
	return &cp
}

func (e *Execution) String() string {
	return fmt.Sprintf("Execution[%s] node:%s (%s) %s", e.id, e.nodeID, e.nodeType, e.status)
}
