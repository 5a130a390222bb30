package linkage

import (
	"context"
	"time"

	"github.com/project-flogo/core/support/log"
	"github.com/sony/gobreaker/v2"
)

// BreakerSettings configures the circuit breaker put in front of a collaborator
type BreakerSettings struct {
	// MaxRequests allowed through while half-open
	MaxRequests uint32 `yaml:"maxRequests"`

	// Interval after which the failure counts are cleared while closed, zero never clears
	Interval time.Duration `yaml:"interval"`

	// Timeout of the open state before probing again
	Timeout time.Duration `yaml:"timeout"`

	// ConsecutiveFailures that trip the breaker
	ConsecutiveFailures uint32 `yaml:"consecutiveFailures"`
}

// DefaultBreakerSettings returns the settings used when none are configured
func DefaultBreakerSettings() BreakerSettings {
	return BreakerSettings{
		MaxRequests:         1,
		Timeout:             30 * time.Second,
		ConsecutiveFailures: 5,
	}
}

func newBreaker(name string, settings BreakerSettings, logger log.Logger) *gobreaker.CircuitBreaker[string] {
	trip := settings.ConsecutiveFailures
	if trip == 0 {
		trip = DefaultBreakerSettings().ConsecutiveFailures
	}

	return gobreaker.NewCircuitBreaker[string](gobreaker.Settings{
		Name:        name,
		MaxRequests: settings.MaxRequests,
		Interval:    settings.Interval,
		Timeout:     settings.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= trip
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warnf("Collaborator '%s' circuit %s -> %s", name, from, to)
		},
	})
}

// BreakingInterviewService guards an InterviewService with a circuit breaker
type BreakingInterviewService struct {
	service InterviewService
	cb      *gobreaker.CircuitBreaker[string]
}

// NewBreakingInterviewService wraps service with a circuit breaker
func NewBreakingInterviewService(service InterviewService, settings BreakerSettings) *BreakingInterviewService {
	logger := log.ChildLogger(log.RootLogger(), "linkage")
	return &BreakingInterviewService{service: service, cb: newBreaker("interviews", settings, logger)}
}

func (s *BreakingInterviewService) CreateInterview(ctx context.Context, req InterviewRequest) (string, error) {
	return s.cb.Execute(func() (string, error) {
		return s.service.CreateInterview(ctx, req)
	})
}

// State returns the state of the breaker
func (s *BreakingInterviewService) State() gobreaker.State {
	return s.cb.State()
}

// BreakingTaskService guards a TaskService with a circuit breaker
type BreakingTaskService struct {
	service TaskService
	cb      *gobreaker.CircuitBreaker[string]
}

// NewBreakingTaskService wraps service with a circuit breaker
func NewBreakingTaskService(service TaskService, settings BreakerSettings) *BreakingTaskService {
	logger := log.ChildLogger(log.RootLogger(), "linkage")
	return &BreakingTaskService{service: service, cb: newBreaker("tasks", settings, logger)}
}

func (s *BreakingTaskService) CreateTask(ctx context.Context, req TaskRequest) (string, error) {
	return s.cb.Execute(func() (string, error) {
		return s.service.CreateTask(ctx, req)
	})
}

// State returns the state of the breaker
func (s *BreakingTaskService) State() gobreaker.State {
	return s.cb.State()
}
