package engine

import (
	"time"

	coreevent "github.com/project-flogo/core/engine/event"
	"github.com/project-flogo/recruit/instance"
	"github.com/project-flogo/recruit/model"
	"github.com/project-flogo/recruit/support/event"
)

type instanceEvent struct {
	instanceID  string
	processID   string
	candidateID string
	operation   string
	previous    model.InstanceStatus
	status      model.InstanceStatus
	finalResult string
	time        time.Time
}

func (e *instanceEvent) InstanceID() string                   { return e.instanceID }
func (e *instanceEvent) ProcessID() string                    { return e.processID }
func (e *instanceEvent) CandidateID() string                  { return e.candidateID }
func (e *instanceEvent) Operation() string                    { return e.operation }
func (e *instanceEvent) PreviousStatus() model.InstanceStatus { return e.previous }
func (e *instanceEvent) Status() model.InstanceStatus         { return e.status }
func (e *instanceEvent) FinalResult() string                  { return e.finalResult }
func (e *instanceEvent) Time() time.Time                      { return e.time }

type executionEvent struct {
	executionID string
	instanceID  string
	processID   string
	nodeID      string
	nodeType    model.NodeType
	assignee    string
	previous    model.ExecutionStatus
	status      model.ExecutionStatus
	result      string
	time        time.Time
}

func (e *executionEvent) ExecutionID() string                   { return e.executionID }
func (e *executionEvent) InstanceID() string                    { return e.instanceID }
func (e *executionEvent) ProcessID() string                     { return e.processID }
func (e *executionEvent) NodeID() string                        { return e.nodeID }
func (e *executionEvent) NodeType() model.NodeType              { return e.nodeType }
func (e *executionEvent) Assignee() string                      { return e.assignee }
func (e *executionEvent) PreviousStatus() model.ExecutionStatus { return e.previous }
func (e *executionEvent) Status() model.ExecutionStatus         { return e.status }
func (e *executionEvent) Result() string                        { return e.result }
func (e *executionEvent) Time() time.Time                       { return e.time }

// instanceEvents returns the event of a status change of the instance, a nil
// before stands for a new instance
func instanceEvents(op string, before, after *instance.Instance, now time.Time) []event.InstanceEvent {
	var previous model.InstanceStatus
	if before != nil {
		previous = before.Status()
		if previous == after.Status() {
			return nil
		}
	}
	return []event.InstanceEvent{&instanceEvent{
		instanceID:  after.ID(),
		processID:   after.ProcessID(),
		candidateID: after.CandidateID(),
		operation:   op,
		previous:    previous,
		status:      after.Status(),
		finalResult: after.FinalResult(),
		time:        now,
	}}
}

// executionEvents returns the events of the executions created or moved to
// another status, in execution order
func executionEvents(before, after []*instance.Execution, now time.Time) []event.ExecutionEvent {
	previous := make(map[string]model.ExecutionStatus, len(before))
	for _, exec := range before {
		previous[exec.ID()] = exec.Status()
	}

	var events []event.ExecutionEvent
	for _, exec := range after {
		status, existed := previous[exec.ID()]
		if existed && status == exec.Status() {
			continue
		}
		events = append(events, &executionEvent{
			executionID: exec.ID(),
			instanceID:  exec.InstanceID(),
			processID:   exec.ProcessID(),
			nodeID:      exec.NodeID(),
			nodeType:    exec.NodeType(),
			assignee:    exec.Assignee(),
			previous:    status,
			status:      exec.Status(),
			result:      exec.Result(),
			time:        now,
		})
	}
	return events
}

// postEvents posts the lifecycle events of a committed transition when
// anyone listens
func (e *Engine) postEvents(op string, before *instance.Instance, beforeExecs []*instance.Execution, after *instance.Instance, afterExecs []*instance.Execution) {
	now := e.now()
	if coreevent.HasListener(event.InstanceEventType) {
		for _, ie := range instanceEvents(op, before, after, now) {
			coreevent.Post(event.InstanceEventType, ie)
		}
	}
	if coreevent.HasListener(event.ExecutionEventType) {
		for _, ee := range executionEvents(beforeExecs, afterExecs, now) {
			coreevent.Post(event.ExecutionEventType, ee)
		}
	}
}
