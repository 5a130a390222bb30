// Package memstore is an in-process Store.  Updates of one instance are
// serialized by a mutex owned by that instance.
package memstore

import (
	"context"
	"sync"

	"github.com/project-flogo/core/support/log"
	"github.com/project-flogo/recruit/definition"
	"github.com/project-flogo/recruit/instance"
	"github.com/project-flogo/recruit/model"
	"github.com/project-flogo/recruit/store"
)

type Store struct {
	logger log.Logger

	defMu       sync.Mutex
	definitions map[string]*definition.DefinitionRep
	defOrder    []string

	mu         sync.RWMutex
	instances  map[string]*instance.Instance
	instLocks  map[string]*sync.Mutex
	instOrder  []string
	assigned   map[string]string // process/candidate -> instance id
	executions map[string]*instance.Execution
}

// New creates an empty in-process store
func New() *Store {
	return &Store{
		logger:      log.ChildLogger(log.RootLogger(), "memstore"),
		definitions: make(map[string]*definition.DefinitionRep),
		instances:   make(map[string]*instance.Instance),
		instLocks:   make(map[string]*sync.Mutex),
		assigned:    make(map[string]string),
		executions:  make(map[string]*instance.Execution),
	}
}

func (s *Store) CreateDefinition(ctx context.Context, rep *definition.DefinitionRep) error {
	cp, err := store.CopyDefinition(rep)
	if err != nil {
		return err
	}

	s.defMu.Lock()
	defer s.defMu.Unlock()

	if _, exists := s.definitions[rep.ID]; exists {
		return model.NewConflictError("process", rep.ID, "already exists")
	}
	s.definitions[rep.ID] = cp
	s.defOrder = append(s.defOrder, rep.ID)
	return nil
}

func (s *Store) GetDefinition(ctx context.Context, id string) (*definition.DefinitionRep, error) {
	s.defMu.Lock()
	rep, exists := s.definitions[id]
	s.defMu.Unlock()

	if !exists {
		return nil, model.NewNotFoundError("process", id)
	}
	return store.CopyDefinition(rep)
}

func (s *Store) ListDefinitions(ctx context.Context, org string) ([]*definition.DefinitionRep, error) {
	s.defMu.Lock()
	var reps []*definition.DefinitionRep
	for _, id := range s.defOrder {
		rep := s.definitions[id]
		if org == "" || rep.Organization == org {
			reps = append(reps, rep)
		}
	}
	s.defMu.Unlock()

	out := make([]*definition.DefinitionRep, 0, len(reps))
	for _, rep := range reps {
		cp, err := store.CopyDefinition(rep)
		if err != nil {
			return nil, err
		}
		out = append(out, cp)
	}
	return out, nil
}

func (s *Store) UpdateDefinition(ctx context.Context, id string, fn store.DefinitionUpdateFunc) (*definition.DefinitionRep, error) {
	s.defMu.Lock()
	defer s.defMu.Unlock()

	rep, exists := s.definitions[id]
	if !exists {
		return nil, model.NewNotFoundError("process", id)
	}
	cp, err := store.CopyDefinition(rep)
	if err != nil {
		return nil, err
	}

	updated, err := fn(cp)
	if err != nil {
		return nil, err
	}
	stored, err := store.CopyDefinition(updated)
	if err != nil {
		return nil, err
	}
	s.definitions[id] = stored
	return updated, nil
}

func (s *Store) DeleteDefinition(ctx context.Context, id string) (*store.DeleteResult, error) {
	// lock order: definitions, instances of the process, then the maps
	s.defMu.Lock()
	defer s.defMu.Unlock()

	rep, exists := s.definitions[id]
	if !exists {
		return nil, model.NewNotFoundError("process", id)
	}

	s.mu.RLock()
	var locks []*sync.Mutex
	for _, instID := range s.instOrder {
		if s.instances[instID].ProcessID() == id {
			locks = append(locks, s.instLocks[instID])
		}
	}
	s.mu.RUnlock()

	for _, lock := range locks {
		lock.Lock()
		defer lock.Unlock()
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	referenced := false
	for _, inst := range s.instances {
		if inst.ProcessID() == id {
			referenced = true
			break
		}
	}

	result := &store.DeleteResult{}
	if !referenced {
		delete(s.definitions, id)
		s.defOrder = removeID(s.defOrder, id)
		return result, nil
	}

	rep.Status = model.ProcessArchived
	result.Archived = true
	for _, exec := range s.executions {
		if exec.ProcessID() == id && exec.HasLinkage() && !exec.LinkageDeleted() {
			exec.MarkLinkageDeleted()
			result.UnlinkedExecutions++
		}
	}
	return result, nil
}

func (s *Store) CreateInstance(ctx context.Context, inst *instance.Instance) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.instances[inst.ID()]; exists {
		return model.NewConflictError("instance", inst.ID(), "already exists")
	}
	key := inst.ProcessID() + "/" + inst.CandidateID()
	if existing, assigned := s.assigned[key]; assigned {
		return model.NewConflictError("candidate", inst.CandidateID(), "already assigned to process '%s' (instance '%s')", inst.ProcessID(), existing)
	}

	s.instances[inst.ID()] = inst.Clone()
	s.instLocks[inst.ID()] = &sync.Mutex{}
	s.instOrder = append(s.instOrder, inst.ID())
	s.assigned[key] = inst.ID()
	return nil
}

func (s *Store) GetInstance(ctx context.Context, id string) (*instance.Instance, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	inst, exists := s.instances[id]
	if !exists {
		return nil, model.NewNotFoundError("instance", id)
	}
	return inst.Clone(), nil
}

func (s *Store) ListInstances(ctx context.Context, filter store.InstanceFilter) ([]*instance.Instance, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*instance.Instance
	for _, id := range s.instOrder {
		inst := s.instances[id]
		if filter.Matches(inst) {
			out = append(out, inst.Clone())
		}
	}
	return out, nil
}

func (s *Store) UpdateInstance(ctx context.Context, id string, fn store.InstanceUpdateFunc) error {
	s.mu.RLock()
	lock, exists := s.instLocks[id]
	s.mu.RUnlock()
	if !exists {
		return model.NewNotFoundError("instance", id)
	}

	lock.Lock()
	defer lock.Unlock()

	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.RLock()
	tx := store.NewInstanceTx(s.instances[id], s.instanceExecutions(id))
	s.mu.RUnlock()

	if err := fn(tx); err != nil {
		return err
	}

	tx.Instance.Touch()

	s.mu.Lock()
	defer s.mu.Unlock()
	s.instances[id] = tx.Instance.Clone()
	for _, exec := range tx.Executions() {
		s.executions[exec.ID()] = exec.Clone()
	}

	if s.logger.DebugEnabled() {
		s.logger.Debugf("Instance[%s] committed version %d with %d executions", id, tx.Instance.Version(), len(tx.Executions()))
	}
	return nil
}

func (s *Store) GetExecution(ctx context.Context, id string) (*instance.Execution, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	exec, exists := s.executions[id]
	if !exists {
		return nil, model.NewNotFoundError("execution", id)
	}
	return exec.Clone(), nil
}

func (s *Store) ListExecutions(ctx context.Context, filter store.ExecutionFilter) ([]*instance.Execution, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*instance.Execution
	for _, exec := range s.executions {
		if filter.Matches(exec) {
			out = append(out, exec.Clone())
		}
	}
	store.SortExecutions(out)
	return out, nil
}

func (s *Store) Close() error {
	return nil
}

// instanceExecutions must be called with s.mu held
func (s *Store) instanceExecutions(instanceID string) []*instance.Execution {
	var out []*instance.Execution
	for _, exec := range s.executions {
		if exec.InstanceID() == instanceID {
			out = append(out, exec)
		}
	}
	return out
}

func removeID(ids []string, id string) []string {
	out := ids[:0]
	for _, v := range ids {
		if v != id {
			out = append(out, v)
		}
	}
	return out
}
