package instance

import (
	"time"

	"github.com/project-flogo/recruit/model"
)

// Instance is one candidate's run through one process definition.  It is
// only mutated through its transition methods, a terminal instance rejects
// every further transition.
type Instance struct {
	id          string
	processID   string
	candidateID string
	recruiterID string

	status        model.InstanceStatus
	currentNodeID string
	finalResult   string
	overallScore  *float64
	notes         string
	reason        string

	assignedAt  time.Time
	startedAt   time.Time
	completedAt time.Time

	needsLinkageRepair bool
	version            int64
}

// New creates a not started instance assigning the candidate to the process
func New(id, processID, candidateID, recruiterID string, now time.Time) *Instance {
	return &Instance{
		id:          id,
		processID:   processID,
		candidateID: candidateID,
		recruiterID: recruiterID,
		status:      model.InstanceNotStarted,
		assignedAt:  now,
	}
}

func (inst *Instance) ID() string {
	return inst.id
}

// ProcessID returns the id of the definition the instance runs through
func (inst *Instance) ProcessID() string {
	return inst.processID
}

func (inst *Instance) CandidateID() string {
	return inst.candidateID
}

// RecruiterID returns the assigned recruiter, empty if none
func (inst *Instance) RecruiterID() string {
	return inst.recruiterID
}

func (inst *Instance) Status() model.InstanceStatus {
	return inst.status
}

// CurrentNodeID returns the node the candidate is at.  After a fan-out it
// is the first created target.
func (inst *Instance) CurrentNodeID() string {
	return inst.currentNodeID
}

func (inst *Instance) FinalResult() string {
	return inst.finalResult
}

// OverallScore returns the mean score of the instance, nil if undefined
func (inst *Instance) OverallScore() *float64 {
	return copyScore(inst.overallScore)
}

func (inst *Instance) Notes() string {
	return inst.notes
}

// Reason returns the reason given for a fail or withdraw
func (inst *Instance) Reason() string {
	return inst.reason
}

func (inst *Instance) AssignedAt() time.Time {
	return inst.assignedAt
}

func (inst *Instance) StartedAt() time.Time {
	return inst.startedAt
}

func (inst *Instance) CompletedAt() time.Time {
	return inst.completedAt
}

// NeedsLinkageRepair returns true if an external resource could not be
// created for one of the executions of the instance
func (inst *Instance) NeedsLinkageRepair() bool {
	return inst.needsLinkageRepair
}

// Version returns the number of committed updates of the instance
func (inst *Instance) Version() int64 {
	return inst.version
}

// Touch records a committed update, it is called by stores
func (inst *Instance) Touch() {
	inst.version++
}

// IsTerminal returns true if the instance reached a final status
func (inst *Instance) IsTerminal() bool {
	return inst.status.IsTerminal()
}

// Start moves a not started instance to in progress
func (inst *Instance) Start(now time.Time) error {
	if err := inst.checkNotTerminal("start"); err != nil {
		return err
	}
	if inst.status != model.InstanceNotStarted {
		return model.NewConflictError("instance", inst.id, "cannot start while %s", inst.status)
	}
	inst.status = model.InstanceInProgress
	inst.startedAt = now
	return nil
}

// Advance moves the candidate to the specified node
func (inst *Instance) Advance(nodeID string) error {
	if err := inst.checkNotTerminal("advance"); err != nil {
		return err
	}
	if inst.status != model.InstanceInProgress {
		return model.NewConflictError("instance", inst.id, "cannot advance while %s", inst.status)
	}
	inst.currentNodeID = nodeID
	return nil
}

// Hold pauses an in progress instance
func (inst *Instance) Hold() error {
	if err := inst.checkNotTerminal("put on hold"); err != nil {
		return err
	}
	if inst.status != model.InstanceInProgress {
		return model.NewConflictError("instance", inst.id, "cannot put on hold while %s", inst.status)
	}
	inst.status = model.InstanceOnHold
	return nil
}

// Resume continues an instance that is on hold
func (inst *Instance) Resume() error {
	if err := inst.checkNotTerminal("resume"); err != nil {
		return err
	}
	if inst.status != model.InstanceOnHold {
		return model.NewConflictError("instance", inst.id, "cannot resume while %s", inst.status)
	}
	inst.status = model.InstanceInProgress
	return nil
}

// Complete moves the instance to completed with the specified final result
func (inst *Instance) Complete(finalResult string, score *float64, notes string, now time.Time) error {
	if err := inst.checkNotTerminal("complete"); err != nil {
		return err
	}
	inst.status = model.InstanceCompleted
	inst.finalResult = finalResult
	inst.overallScore = copyScore(score)
	if notes != "" {
		inst.notes = notes
	}
	inst.completedAt = now
	return nil
}

// Fail moves the instance to failed
func (inst *Instance) Fail(reason string, now time.Time) error {
	if err := inst.checkNotTerminal("fail"); err != nil {
		return err
	}
	inst.status = model.InstanceFailed
	inst.reason = reason
	inst.completedAt = now
	return nil
}

// Withdraw moves the instance to withdrawn
func (inst *Instance) Withdraw(reason string, now time.Time) error {
	if err := inst.checkNotTerminal("withdraw"); err != nil {
		return err
	}
	inst.status = model.InstanceWithdrawn
	inst.reason = reason
	inst.completedAt = now
	return nil
}

// SetLinkageRepair flags or clears the need to recreate external resources
func (inst *Instance) SetLinkageRepair(needed bool) {
	inst.needsLinkageRepair = needed
}

// Clone returns an independent copy of the instance
func (inst *Instance) Clone() *Instance {
	cp := *inst
	cp.overallScore = copyScore(inst.overallScore)
	return &cp
}

func (inst *Instance) checkNotTerminal(op string) error {
	if inst.status.IsTerminal() {
		return model.NewConflictError("instance", inst.id, "cannot %s, already terminal (%s)", op, inst.status)
	}
	return nil
}

// OverallScore computes the arithmetic mean of the scored executions, nil
// if none is scored
func OverallScore(executions []*Execution) *float64 {
	var sum float64
	count := 0
	for _, exec := range executions {
		if exec.score != nil {
			sum += *exec.score
			count++
		}
	}
	if count == 0 {
		return nil
	}
	mean := sum / float64(count)
	return &mean
}

func copyScore(score *float64) *float64 {
	if score == nil {
		return nil
	}
	s := *score
	return &s
}
