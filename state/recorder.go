package state

import (
	"sync"
)

// Recorder is the interface that describes a service that can record
// steps and snapshots of a candidate instance
type Recorder interface {
	// RecordStep records the changes of one committed transition
	RecordStep(step *Step) error

	// RecordSnapshot records the state of an instance after a transition
	RecordSnapshot(snapshot *Snapshot) error
}

// MemoryRecorder keeps the recorded history of every instance in memory
type MemoryRecorder struct {
	mu        sync.RWMutex
	steps     map[string][]*Step
	snapshots map[string]*Snapshot
}

func NewMemoryRecorder() *MemoryRecorder {
	return &MemoryRecorder{
		steps:     make(map[string][]*Step),
		snapshots: make(map[string]*Snapshot),
	}
}

func (r *MemoryRecorder) RecordStep(step *Step) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.steps[step.InstanceId] = append(r.steps[step.InstanceId], step)
	return nil
}

func (r *MemoryRecorder) RecordSnapshot(snapshot *Snapshot) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if current, ok := r.snapshots[snapshot.Id]; ok && current.Version > snapshot.Version {
		return nil
	}
	r.snapshots[snapshot.Id] = snapshot
	return nil
}

// Steps returns the recorded steps of an instance
func (r *MemoryRecorder) Steps(instanceId string) []*Step {
	r.mu.RLock()
	defer r.mu.RUnlock()
	steps := make([]*Step, len(r.steps[instanceId]))
	copy(steps, r.steps[instanceId])
	return steps
}

// Snapshot returns the latest snapshot of an instance, rebuilt from its
// steps when no snapshot was recorded.  Nil if nothing was recorded.
func (r *MemoryRecorder) Snapshot(instanceId string) *Snapshot {
	r.mu.RLock()
	snapshot, ok := r.snapshots[instanceId]
	r.mu.RUnlock()
	if ok {
		return snapshot
	}

	steps := r.Steps(instanceId)
	if len(steps) == 0 {
		return nil
	}
	return StepsToSnapshot(instanceId, steps)
}
