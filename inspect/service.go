// Package inspect serves a read-only HTTP view of processes, instances and
// their analytics.
package inspect

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/goccy/go-json"
	"github.com/julienschmidt/httprouter"
	"github.com/project-flogo/core/data/coerce"
	"github.com/project-flogo/core/support/log"
	"github.com/project-flogo/core/support/service"
	"github.com/project-flogo/recruit/analytics"
	"github.com/project-flogo/recruit/engine"
	"github.com/project-flogo/recruit/instance"
	"github.com/project-flogo/recruit/model"
	"github.com/project-flogo/recruit/state"
)

const (
	DefaultPort            = 8080
	DefaultBottleneckLimit = 5
)

// History is the source of the recorded steps of an instance
type History interface {
	Steps(instanceId string) []*state.Step
}

// Settings configures the inspection service
type Settings struct {
	Port            int
	BottleneckLimit int
}

// InstanceView is an instance together with its executions
type InstanceView struct {
	Instance   *instance.Instance    `json:"instance"`
	Executions []*instance.Execution `json:"executions"`
}

var _ service.Service = (*Service)(nil)

// Service is the inspection service
type Service struct {
	engine     *engine.Engine
	aggregator *analytics.Aggregator
	history    History
	settings   Settings
	now        func() time.Time

	router *httprouter.Router
	server *Server
	logger log.Logger
}

// Option configures a Service
type Option func(s *Service)

// WithHistory exposes the recorded steps of instances
func WithHistory(history History) Option {
	return func(s *Service) {
		s.history = history
	}
}

// WithClock replaces the time source used for workload
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		s.now = now
	}
}

// New creates the inspection service over the engine
func New(e *engine.Engine, settings Settings, options ...Option) *Service {
	if settings.Port == 0 {
		settings.Port = DefaultPort
	}
	if settings.BottleneckLimit == 0 {
		settings.BottleneckLimit = DefaultBottleneckLimit
	}

	s := &Service{
		engine:     e,
		aggregator: analytics.New(e.Store()),
		settings:   settings,
		now:        func() time.Time { return time.Now().UTC() },
		logger:     log.ChildLogger(log.RootLogger(), "inspect"),
	}
	for _, option := range options {
		option(s)
	}

	router := httprouter.New()
	router.GET("/status", s.Status)
	router.GET("/processes/:id", s.Process)
	router.GET("/processes/:id/validation", s.Validation)
	router.GET("/processes/:id/analytics", s.NodeStats)
	router.GET("/processes/:id/bottlenecks", s.Bottlenecks)
	router.GET("/processes/:id/instances", s.Instances)
	router.GET("/workload", s.Workload)
	router.GET("/instances/:id", s.Instance)
	router.GET("/instances/:id/history", s.History)
	s.router = router

	s.server = NewServer(":"+strconv.Itoa(settings.Port), router)
	return s
}

func (s *Service) Name() string {
	return "RecruitInspector"
}

// Start serves in the background
func (s *Service) Start() error {
	if err := s.server.Start(); err != nil {
		return err
	}
	s.logger.Infof("Inspection service listening on %s", s.server.ListenAddr())
	return nil
}

func (s *Service) Stop() error {
	if err := s.server.Stop(); err != nil {
		return err
	}
	return s.server.WaitStop(5 * time.Second)
}

// Handler returns the routes of the service
func (s *Service) Handler() http.Handler {
	return s.router
}

// Status is a basic health check (GET "/status")
func (s *Service) Status(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	s.write(w, map[string]string{"status": "ok"})
}

// Process returns a process definition (GET "/processes/:id")
func (s *Service) Process(w http.ResponseWriter, r *http.Request, p httprouter.Params) {
	def, err := s.engine.GetProcess(r.Context(), p.ByName("id"))
	if err != nil {
		s.fail(w, err)
		return
	}
	s.write(w, def.ToRep())
}

// Validation validates a process (GET "/processes/:id/validation")
func (s *Service) Validation(w http.ResponseWriter, r *http.Request, p httprouter.Params) {
	result, err := s.engine.ValidateProcess(r.Context(), p.ByName("id"))
	if err != nil {
		s.fail(w, err)
		return
	}
	s.write(w, result)
}

// NodeStats returns the statistics of every node (GET "/processes/:id/analytics")
func (s *Service) NodeStats(w http.ResponseWriter, r *http.Request, p httprouter.Params) {
	stats, err := s.aggregator.NodeStats(r.Context(), p.ByName("id"))
	if err != nil {
		s.fail(w, err)
		return
	}
	s.write(w, stats)
}

// Bottlenecks returns the slowest nodes (GET "/processes/:id/bottlenecks?limit=n")
func (s *Service) Bottlenecks(w http.ResponseWriter, r *http.Request, p httprouter.Params) {
	limit := s.settings.BottleneckLimit
	if v := r.URL.Query().Get("limit"); v != "" {
		var err error
		limit, err = coerce.ToInt(v)
		if err != nil {
			http.Error(w, "invalid limit: "+err.Error(), http.StatusBadRequest)
			return
		}
	}

	stats, err := s.aggregator.Bottlenecks(r.Context(), p.ByName("id"), limit)
	if err != nil {
		s.fail(w, err)
		return
	}
	s.write(w, stats)
}

// Instances lists the instances of a process (GET "/processes/:id/instances")
func (s *Service) Instances(w http.ResponseWriter, r *http.Request, p httprouter.Params) {
	insts, err := s.engine.ListInstances(r.Context(), p.ByName("id"))
	if err != nil {
		s.fail(w, err)
		return
	}
	s.write(w, insts)
}

// Workload returns the open work per assignee (GET "/workload?process=id&at=time")
func (s *Service) Workload(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	at := s.now()
	if v := r.URL.Query().Get("at"); v != "" {
		var err error
		at, err = time.Parse(time.RFC3339, v)
		if err != nil {
			http.Error(w, "invalid time: "+err.Error(), http.StatusBadRequest)
			return
		}
	}

	workload, err := s.aggregator.Workload(r.Context(), r.URL.Query().Get("process"), at)
	if err != nil {
		s.fail(w, err)
		return
	}
	s.write(w, workload)
}

// Instance returns an instance with its executions (GET "/instances/:id")
func (s *Service) Instance(w http.ResponseWriter, r *http.Request, p httprouter.Params) {
	view, err := s.instanceView(r.Context(), p.ByName("id"))
	if err != nil {
		s.fail(w, err)
		return
	}
	s.write(w, view)
}

// History returns the recorded steps of an instance (GET "/instances/:id/history")
func (s *Service) History(w http.ResponseWriter, r *http.Request, p httprouter.Params) {
	if s.history == nil {
		http.Error(w, "history is not recorded", http.StatusNotFound)
		return
	}

	id := p.ByName("id")
	if _, err := s.engine.GetInstance(r.Context(), id); err != nil {
		s.fail(w, err)
		return
	}

	steps := s.history.Steps(id)
	if steps == nil {
		steps = []*state.Step{}
	}
	s.write(w, steps)
}

func (s *Service) instanceView(ctx context.Context, id string) (*InstanceView, error) {
	inst, err := s.engine.GetInstance(ctx, id)
	if err != nil {
		return nil, err
	}
	executions, err := s.engine.ListExecutions(ctx, id)
	if err != nil {
		return nil, err
	}
	if executions == nil {
		executions = []*instance.Execution{}
	}
	return &InstanceView{Instance: inst, Executions: executions}, nil
}

func (s *Service) write(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Errorf("Unable to encode response: %v", err)
	}
}

func (s *Service) fail(w http.ResponseWriter, err error) {
	code := http.StatusInternalServerError
	switch {
	case model.IsNotFound(err):
		code = http.StatusNotFound
	case model.IsConflict(err):
		code = http.StatusConflict
	case model.IsValidation(err):
		code = http.StatusUnprocessableEntity
	default:
		s.logger.Errorf("Request failed: %v", err)
	}
	http.Error(w, err.Error(), code)
}
