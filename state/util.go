package state

import (
	"sort"

	"github.com/project-flogo/recruit/state/change"
)

// StepsToSnapshot rebuilds the state of an instance by replaying its steps
// in order
func StepsToSnapshot(instanceId string, steps []*Step) *Snapshot {

	ordered := make([]*Step, len(steps))
	copy(ordered, steps)
	sort.SliceStable(ordered, func(i, j int) bool { return ordered[i].Id < ordered[j].Id })

	s := &Snapshot{Id: instanceId}

	for _, step := range ordered {
		if step.InstanceId != instanceId {
			continue
		}
		s.ProcessId = step.ProcessId
		s.Version = step.Id

		if step.InstanceChange != nil {
			UpdateInstance(s, step.InstanceChange)
		}

		// new executions are appended in id order so replays are deterministic
		ids := make([]string, 0, len(step.ExecutionChanges))
		for id := range step.ExecutionChanges {
			ids = append(ids, id)
		}
		sort.Strings(ids)
		for _, id := range ids {
			UpdateExecution(s, id, step.ExecutionChanges[id])
		}
	}

	return s
}

func UpdateInstance(s *Snapshot, chg *change.Instance) {
	s.Status = chg.Status
	s.CurrentNodeId = chg.CurrentNodeId
	s.FinalResult = chg.FinalResult
}

func UpdateExecution(s *Snapshot, execId string, chg *change.Execution) {

	exec := s.Execution(execId)

	switch chg.ChgType {
	case change.Delete:
		for i, e := range s.Executions {
			if e.Id == execId {
				s.Executions = append(s.Executions[:i], s.Executions[i+1:]...)
				break
			}
		}
		return
	case change.Add:
		if exec == nil {
			exec = &Execution{Id: execId}
			s.Executions = append(s.Executions, exec)
		}
	}

	if exec == nil {
		return
	}
	exec.NodeId = chg.NodeId
	exec.Status = chg.Status
	exec.Result = chg.Result
}
