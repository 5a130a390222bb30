package recruit

import (
	"github.com/project-flogo/recruit/linkage"
	"github.com/project-flogo/recruit/state"
)

// ExtensionProvider provides the collaborators of a Runtime
type ExtensionProvider interface {
	GetStateRecorder() state.Recorder
	GetInterviewService() linkage.InterviewService
	GetTaskService() linkage.TaskService
}

// DefaultExtensionProvider records in memory and has no collaborators, the
// resources of executions are then never requested
type DefaultExtensionProvider struct {
	recorder   state.Recorder
	interviews linkage.InterviewService
	tasks      linkage.TaskService
}

func NewDefaultExtensionProvider() *DefaultExtensionProvider {
	return &DefaultExtensionProvider{}
}

// WithInterviewService sets the collaborator scheduling interviews
func (p *DefaultExtensionProvider) WithInterviewService(service linkage.InterviewService) *DefaultExtensionProvider {
	p.interviews = service
	return p
}

// WithTaskService sets the collaborator creating tasks
func (p *DefaultExtensionProvider) WithTaskService(service linkage.TaskService) *DefaultExtensionProvider {
	p.tasks = service
	return p
}

// WithStateRecorder replaces the in-memory recorder
func (p *DefaultExtensionProvider) WithStateRecorder(recorder state.Recorder) *DefaultExtensionProvider {
	p.recorder = recorder
	return p
}

func (p *DefaultExtensionProvider) GetStateRecorder() state.Recorder {
	if p.recorder == nil {
		p.recorder = state.NewMemoryRecorder()
	}
	return p.recorder
}

func (p *DefaultExtensionProvider) GetInterviewService() linkage.InterviewService {
	return p.interviews
}

func (p *DefaultExtensionProvider) GetTaskService() linkage.TaskService {
	return p.tasks
}
