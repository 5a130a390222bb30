package state

import (
	"time"

	"github.com/project-flogo/recruit/instance"
	"github.com/project-flogo/recruit/state/change"
)

// Step holds the changes one committed transition made to an instance
type Step struct {
	Id               int                          `json:"id"`
	InstanceId       string                       `json:"instanceId"`
	ProcessId        string                       `json:"processId"`
	Operation        string                       `json:"operation"`
	InstanceChange   *change.Instance             `json:"instanceChange,omitempty"`
	ExecutionChanges map[string]*change.Execution `json:"executionChanges,omitempty"`
	StartTime        time.Time                    `json:"starttime"`
	EndTime          time.Time                    `json:"endtime"`
}

// NewStep computes the step between the state of an instance before and
// after a transition.  The step id is the committed version of the instance.
func NewStep(operation string, before, after *instance.Instance, beforeExecs, afterExecs []*instance.Execution, start, end time.Time) *Step {

	step := &Step{
		Id:         int(after.Version()),
		InstanceId: after.ID(),
		ProcessId:  after.ProcessID(),
		Operation:  operation,
		StartTime:  start,
		EndTime:    end,
	}

	if before == nil || before.Status() != after.Status() || before.CurrentNodeID() != after.CurrentNodeID() ||
		before.FinalResult() != after.FinalResult() || before.NeedsLinkageRepair() != after.NeedsLinkageRepair() {

		chg := &change.Instance{
			Status:        after.Status(),
			CurrentNodeId: after.CurrentNodeID(),
			FinalResult:   after.FinalResult(),
		}
		if before == nil || before.NeedsLinkageRepair() != after.NeedsLinkageRepair() {
			repair := after.NeedsLinkageRepair()
			chg.NeedsLinkageRepair = &repair
		}
		step.InstanceChange = chg
	}

	previous := make(map[string]*instance.Execution, len(beforeExecs))
	for _, exec := range beforeExecs {
		previous[exec.ID()] = exec
	}

	for _, exec := range afterExecs {
		prev, existed := previous[exec.ID()]
		switch {
		case !existed:
			step.addExecutionChange(exec, change.Add)
		case prev.Status() != exec.Status() || prev.InterviewID() != exec.InterviewID() || prev.TaskID() != exec.TaskID():
			step.addExecutionChange(exec, change.Update)
		}
	}

	return step
}

// IsEmpty returns true if the step holds no change
func (s *Step) IsEmpty() bool {
	return s.InstanceChange == nil && len(s.ExecutionChanges) == 0
}

func (s *Step) addExecutionChange(exec *instance.Execution, chgType change.Type) {
	if s.ExecutionChanges == nil {
		s.ExecutionChanges = make(map[string]*change.Execution)
	}
	linked := exec.InterviewID()
	if linked == "" {
		linked = exec.TaskID()
	}
	s.ExecutionChanges[exec.ID()] = &change.Execution{
		ChgType:  chgType,
		NodeId:   exec.NodeID(),
		Status:   exec.Status(),
		Result:   exec.Result(),
		Assignee: exec.Assignee(),
		Linked:   linked,
	}
}

// Terminal returns true if the step moved the instance to a terminal status
func (s *Step) Terminal() bool {
	return s.InstanceChange != nil && s.InstanceChange.Status.IsTerminal()
}
