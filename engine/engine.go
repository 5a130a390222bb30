// Package engine drives candidates through recruitment process graphs.
package engine

import (
	"context"
	"time"

	"github.com/project-flogo/core/support/log"
	"github.com/project-flogo/recruit/definition"
	"github.com/project-flogo/recruit/instance"
	"github.com/project-flogo/recruit/linkage"
	"github.com/project-flogo/recruit/state"
	"github.com/project-flogo/recruit/store"
	"github.com/project-flogo/recruit/util"
)

// systemActor completes pass-through executions
const systemActor = "system"

// Engine is the service object owning process definitions, candidate
// instances and their executions.  All of its state lives in the store.
type Engine struct {
	store      store.Store
	interviews linkage.InterviewService
	tasks      linkage.TaskService
	recorder   state.Recorder
	mode       state.RecordingMode
	logger     log.Logger
	now        func() time.Time
	newID      util.IDGenerator
}

// Option configures an Engine
type Option func(e *Engine)

// WithInterviews sets the collaborator scheduling interviews
func WithInterviews(service linkage.InterviewService) Option {
	return func(e *Engine) {
		e.interviews = service
	}
}

// WithTasks sets the collaborator creating tasks
func WithTasks(service linkage.TaskService) Option {
	return func(e *Engine) {
		e.tasks = service
	}
}

// WithRecorder records the transitions of instances according to mode
func WithRecorder(recorder state.Recorder, mode state.RecordingMode) Option {
	return func(e *Engine) {
		e.recorder = recorder
		e.mode = mode
	}
}

func WithLogger(logger log.Logger) Option {
	return func(e *Engine) {
		e.logger = logger
	}
}

// WithClock replaces the time source
func WithClock(now func() time.Time) Option {
	return func(e *Engine) {
		e.now = now
	}
}

// WithIDGenerator replaces the generator of entity ids
func WithIDGenerator(newID util.IDGenerator) Option {
	return func(e *Engine) {
		e.newID = newID
	}
}

// New creates an engine over the specified store
func New(s store.Store, options ...Option) *Engine {
	e := &Engine{
		store:  s,
		mode:   state.RecordingModeOff,
		logger: log.ChildLogger(log.RootLogger(), "engine"),
		now:    func() time.Time { return time.Now().UTC() },
		newID:  util.NewID,
	}
	for _, option := range options {
		option(e)
	}
	return e
}

// Store returns the store of the engine
func (e *Engine) Store() store.Store {
	return e.store
}

func (e *Engine) loadDefinition(ctx context.Context, processID string) (*definition.Definition, error) {
	rep, err := e.store.GetDefinition(ctx, processID)
	if err != nil {
		return nil, err
	}
	return definition.NewDefinition(rep)
}

// update runs fn in an instance transaction, records the committed step and
// posts its lifecycle events
func (e *Engine) update(ctx context.Context, op, instanceID string, fn store.InstanceUpdateFunc) (*store.InstanceTx, error) {
	start := e.now()

	var committed *store.InstanceTx
	var before *instance.Instance
	var beforeExecs []*instance.Execution

	err := e.store.UpdateInstance(ctx, instanceID, func(tx *store.InstanceTx) error {
		committed = tx
		before = tx.Instance.Clone()
		beforeExecs = cloneExecutions(tx.Executions())
		return fn(tx)
	})
	if err != nil {
		return nil, err
	}

	e.record(op, before, beforeExecs, committed, start)
	e.postEvents(op, before, beforeExecs, committed.Instance, committed.Executions())
	return committed, nil
}

func (e *Engine) record(op string, before *instance.Instance, beforeExecs []*instance.Execution, tx *store.InstanceTx, start time.Time) {
	if e.recorder == nil {
		return
	}

	if state.RecordSteps(e.mode) {
		step := state.NewStep(op, before, tx.Instance, beforeExecs, tx.Executions(), start, e.now())
		if !step.IsEmpty() {
			if err := e.recorder.RecordStep(step); err != nil {
				e.logger.Warnf("Instance[%s] unable to record step %d: %v", tx.Instance.ID(), step.Id, err)
			}
		}
	}

	if state.RecordSnapshot(e.mode) {
		if err := e.recorder.RecordSnapshot(state.NewSnapshot(tx.Instance, tx.Executions())); err != nil {
			e.logger.Warnf("Instance[%s] unable to record snapshot: %v", tx.Instance.ID(), err)
		}
	}
}

func cloneExecutions(executions []*instance.Execution) []*instance.Execution {
	out := make([]*instance.Execution, 0, len(executions))
	for _, exec := range executions {
		out = append(out, exec.Clone())
	}
	return out
}
