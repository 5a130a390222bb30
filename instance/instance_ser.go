package instance

import (
	"time"

	"github.com/goccy/go-json"
	"github.com/project-flogo/recruit/model"
)

////////////////////////////////////////////////////////////////////////////////////////////////////////
// Instance Serialization

type serInstance struct {
	ID                 string               `json:"id"`
	ProcessID          string               `json:"processId"`
	CandidateID        string               `json:"candidateId"`
	RecruiterID        string               `json:"recruiterId,omitempty"`
	Status             model.InstanceStatus `json:"status"`
	CurrentNodeID      string               `json:"currentNodeId,omitempty"`
	FinalResult        string               `json:"finalResult,omitempty"`
	OverallScore       *float64             `json:"overallScore,omitempty"`
	Notes              string               `json:"notes,omitempty"`
	Reason             string               `json:"reason,omitempty"`
	AssignedAt         time.Time            `json:"assignedAt"`
	StartedAt          *time.Time           `json:"startedAt,omitempty"`
	CompletedAt        *time.Time           `json:"completedAt,omitempty"`
	NeedsLinkageRepair bool                 `json:"needsLinkageRepair,omitempty"`
	Version            int64                `json:"version"`
}

// MarshalJSON overrides the default MarshalJSON for Instance
func (inst *Instance) MarshalJSON() ([]byte, error) {
	return json.Marshal(&serInstance{
		ID:                 inst.id,
		ProcessID:          inst.processID,
		CandidateID:        inst.candidateID,
		RecruiterID:        inst.recruiterID,
		Status:             inst.status,
		CurrentNodeID:      inst.currentNodeID,
		FinalResult:        inst.finalResult,
		OverallScore:       inst.overallScore,
		Notes:              inst.notes,
		Reason:             inst.reason,
		AssignedAt:         inst.assignedAt,
		StartedAt:          timeRef(inst.startedAt),
		CompletedAt:        timeRef(inst.completedAt),
		NeedsLinkageRepair: inst.needsLinkageRepair,
		Version:            inst.version,
	})
}

// UnmarshalJSON overrides the default UnmarshalJSON for Instance
func (inst *Instance) UnmarshalJSON(d []byte) error {

	ser := &serInstance{}
	if err := json.Unmarshal(d, ser); err != nil {
		return err
	}

	inst.id = ser.ID
	inst.processID = ser.ProcessID
	inst.candidateID = ser.CandidateID
	inst.recruiterID = ser.RecruiterID
	inst.status = ser.Status
	inst.currentNodeID = ser.CurrentNodeID
	inst.finalResult = ser.FinalResult
	inst.overallScore = ser.OverallScore
	inst.notes = ser.Notes
	inst.reason = ser.Reason
	inst.assignedAt = ser.AssignedAt
	inst.startedAt = timeVal(ser.StartedAt)
	inst.completedAt = timeVal(ser.CompletedAt)
	inst.needsLinkageRepair = ser.NeedsLinkageRepair
	inst.version = ser.Version

	return nil
}

////////////////////////////////////////////////////////////////////////////////////////////////////////
// Execution Serialization

type serExecution struct {
	ID             string                 `json:"id"`
	InstanceID     string                 `json:"instanceId"`
	ProcessID      string                 `json:"processId"`
	NodeID         string                 `json:"nodeId"`
	NodeType       model.NodeType         `json:"nodeType"`
	Sequence       int64                  `json:"sequence"`
	Assignee       string                 `json:"assignee,omitempty"`
	Status         model.ExecutionStatus  `json:"status"`
	DueDate        *time.Time             `json:"dueDate,omitempty"`
	Result         string                 `json:"result,omitempty"`
	Score          *float64               `json:"score,omitempty"`
	Feedback       string                 `json:"feedback,omitempty"`
	Data           map[string]interface{} `json:"data,omitempty"`
	CompletedBy    string                 `json:"completedBy,omitempty"`
	CreatedAt      time.Time              `json:"createdAt"`
	StartedAt      *time.Time             `json:"startedAt,omitempty"`
	CompletedAt    *time.Time             `json:"completedAt,omitempty"`
	InterviewID    string                 `json:"interviewId,omitempty"`
	TaskID         string                 `json:"taskId,omitempty"`
	LinkageError   string                 `json:"linkageError,omitempty"`
	LinkageDeleted bool                   `json:"linkageDeleted,omitempty"`
}

// MarshalJSON overrides the default MarshalJSON for Execution
func (e *Execution) MarshalJSON() ([]byte, error) {
	return json.Marshal(&serExecution{
		ID:             e.id,
		InstanceID:     e.instanceID,
		ProcessID:      e.processID,
		NodeID:         e.nodeID,
		NodeType:       e.nodeType,
		Sequence:       e.sequence,
		Assignee:       e.assignee,
		Status:         e.status,
		DueDate:        timeRef(e.dueDate),
		Result:         e.result,
		Score:          e.score,
		Feedback:       e.feedback,
		Data:           e.data,
		CompletedBy:    e.completedBy,
		CreatedAt:      e.createdAt,
		StartedAt:      timeRef(e.startedAt),
		CompletedAt:    timeRef(e.completedAt),
		InterviewID:    e.interviewID,
		TaskID:         e.taskID,
		LinkageError:   e.linkageError,
		LinkageDeleted: e.linkageDeleted,
	})
}

// UnmarshalJSON overrides the default UnmarshalJSON for Execution
func (e *Execution) UnmarshalJSON(d []byte) error {

	ser := &serExecution{}
	if err := json.Unmarshal(d, ser); err != nil {
		return err
	}

	e.id = ser.ID
	e.instanceID = ser.InstanceID
	e.processID = ser.ProcessID
	e.nodeID = ser.NodeID
	e.nodeType = ser.NodeType
	e.sequence = ser.Sequence
	e.assignee = ser.Assignee
	e.status = ser.Status
	e.dueDate = timeVal(ser.DueDate)
	e.result = ser.Result
	e.score = ser.Score
	e.feedback = ser.Feedback
	e.data = ser.Data
	e.completedBy = ser.CompletedBy
	e.createdAt = ser.CreatedAt
	e.startedAt = timeVal(ser.StartedAt)
	e.completedAt = timeVal(ser.CompletedAt)
	e.interviewID = ser.InterviewID
	e.taskID = ser.TaskID
	e.linkageError = ser.LinkageError
	e.linkageDeleted = ser.LinkageDeleted

	return nil
}

func timeRef(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	return &t
}

func timeVal(t *time.Time) time.Time {
	if t == nil {
		return time.Time{}
	}
	return *t
}
