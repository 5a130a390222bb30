package state

import (
	"github.com/project-flogo/recruit/instance"
	"github.com/project-flogo/recruit/model"
)

// Snapshot is the state of an instance and its executions at one version
type Snapshot struct {
	Id            string               `json:"id"`
	ProcessId     string               `json:"processId"`
	Version       int                  `json:"version"`
	Status        model.InstanceStatus `json:"status"`
	CurrentNodeId string               `json:"currentNodeId,omitempty"`
	FinalResult   string               `json:"finalResult,omitempty"`
	Executions    []*Execution         `json:"executions,omitempty"`
}

type Execution struct {
	Id     string                `json:"id"`
	NodeId string                `json:"nodeId"`
	Status model.ExecutionStatus `json:"status"`
	Result string                `json:"result,omitempty"`
}

// NewSnapshot captures the committed state of an instance
func NewSnapshot(inst *instance.Instance, executions []*instance.Execution) *Snapshot {
	s := &Snapshot{
		Id:            inst.ID(),
		ProcessId:     inst.ProcessID(),
		Version:       int(inst.Version()),
		Status:        inst.Status(),
		CurrentNodeId: inst.CurrentNodeID(),
		FinalResult:   inst.FinalResult(),
	}
	for _, exec := range executions {
		s.Executions = append(s.Executions, &Execution{
			Id:     exec.ID(),
			NodeId: exec.NodeID(),
			Status: exec.Status(),
			Result: exec.Result(),
		})
	}
	return s
}

// Execution returns the execution with the specified id, nil if unknown
func (s *Snapshot) Execution(id string) *Execution {
	for _, exec := range s.Executions {
		if exec.Id == id {
			return exec
		}
	}
	return nil
}
