// Package linkage describes the external resources created for executions:
// interviews on the calendar side and tasks on the todo side.
package linkage

import (
	"context"
	"time"
)

// InterviewRequest describes the interview to schedule for an execution
type InterviewRequest struct {
	ExecutionID   string
	ProcessID     string
	CandidateID   string
	RecruiterID   string
	Organization  string
	Title         string
	InterviewType string
	Duration      time.Duration
	Interviewers  []string
}

// TaskRequest describes the task to create for an execution
type TaskRequest struct {
	ExecutionID string
	ProcessID   string
	Owner       string
	Assignee    string
	Title       string
	DueDate     time.Time
}

// InterviewService creates interviews and returns their id
type InterviewService interface {
	CreateInterview(ctx context.Context, req InterviewRequest) (string, error)
}

// TaskService creates tasks and returns their id
type TaskService interface {
	CreateTask(ctx context.Context, req TaskRequest) (string, error)
}

// InterviewFunc adapts a function to an InterviewService
type InterviewFunc func(ctx context.Context, req InterviewRequest) (string, error)

func (f InterviewFunc) CreateInterview(ctx context.Context, req InterviewRequest) (string, error) {
	return f(ctx, req)
}

// TaskFunc adapts a function to a TaskService
type TaskFunc func(ctx context.Context, req TaskRequest) (string, error)

func (f TaskFunc) CreateTask(ctx context.Context, req TaskRequest) (string, error) {
	return f(ctx, req)
}
