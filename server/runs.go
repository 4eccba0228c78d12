package server

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"github.com/skillsenselab/expflow/engine"
	apperrors "github.com/skillsenselab/expflow/errors"
	"github.com/skillsenselab/expflow/logger"
	"github.com/skillsenselab/expflow/observability"
	"github.com/skillsenselab/expflow/pipeline"
	"github.com/skillsenselab/expflow/storage"
)

// RunService starts pipeline runs, tracks the active ones and persists their
// reports once finished.
type RunService struct {
	registry       *engine.Registry
	reports        *storage.ReportStore
	maxParallel    int
	progressBuffer int
	log            *logger.Logger
	metrics        *observability.Metrics

	mu     sync.RWMutex
	active map[string]*activeRun
}

type activeRun struct {
	pipelineID string
	events     <-chan engine.TaskProgress
	cancel     context.CancelFunc
	done       chan struct{}
}

// RunView is the API shape of a run that has not finished yet.
type RunView struct {
	RunID      string `json:"run_id"`
	PipelineID string `json:"pipeline_id"`
	Status     string `json:"status"`
}

// StatusRunning marks a run that is still executing.
const StatusRunning = "running"

// NewRunService creates a run service.
func NewRunService(registry *engine.Registry, reports *storage.ReportStore, maxParallel, progressBuffer int) *RunService {
	return &RunService{
		registry:       registry,
		reports:        reports,
		maxParallel:    maxParallel,
		progressBuffer: progressBuffer,
		log:            logger.WithComponent("runs"),
		active:         make(map[string]*activeRun),
	}
}

// SetMetrics enables run metric recording. Optional; nil disables it.
func (s *RunService) SetMetrics(m *observability.Metrics) { s.metrics = m }

// Start validates the pipeline against the registry and launches it in the
// background, returning the run id immediately. The run outlives the HTTP
// request: it is only stopped by Cancel or its own completion.
func (s *RunService) Start(p *pipeline.Pipeline, tc engine.TaskContext) (string, error) {
	tasks, err := engine.BuildTaskSet(p, s.registry)
	if err != nil {
		return "", apperrors.InvalidInput("pipeline", err.Error())
	}

	runID := uuid.New().String()
	runCtx, cancel := context.WithCancel(context.Background())

	exec := engine.NewExecutor(s.maxParallel)
	events := exec.EnableProgress(s.progressBuffer)
	runner := engine.NewRunner(exec)

	ar := &activeRun{
		pipelineID: p.ID,
		events:     events,
		cancel:     cancel,
		done:       make(chan struct{}),
	}
	s.mu.Lock()
	s.active[runID] = ar
	s.mu.Unlock()

	go func() {
		defer cancel()
		report, runErr := runner.RunWithID(runCtx, runID, p, tasks, tc)
		if runErr != nil {
			s.log.Warn("run ended abnormally", map[string]interface{}{
				logger.FieldRunID: runID,
				logger.FieldError: runErr.Error(),
			})
		}
		if s.metrics != nil {
			s.metrics.RecordRun(context.Background(), report.PipelineID, string(report.Status), report.Duration)
		}
		if err := s.reports.Save(context.Background(), report); err != nil {
			s.log.Error("failed to persist run report", map[string]interface{}{
				logger.FieldRunID: runID,
				logger.FieldError: err.Error(),
			})
		}

		s.mu.Lock()
		delete(s.active, runID)
		s.mu.Unlock()
		close(ar.done)
	}()

	return runID, nil
}

// Get returns the run's current state: a RunView while it executes, the
// persisted RunReport afterwards.
func (s *RunService) Get(ctx context.Context, runID string) (any, error) {
	s.mu.RLock()
	ar, running := s.active[runID]
	s.mu.RUnlock()
	if running {
		return RunView{RunID: runID, PipelineID: ar.pipelineID, Status: StatusRunning}, nil
	}
	return s.reports.Load(ctx, runID)
}

// List returns the ids of all finished runs plus the ones still executing.
func (s *RunService) List(ctx context.Context) ([]string, error) {
	ids, err := s.reports.List(ctx)
	if err != nil {
		return nil, err
	}
	s.mu.RLock()
	for id := range s.active {
		ids = append(ids, id)
	}
	s.mu.RUnlock()
	return ids, nil
}

// Cancel requests cooperative cancellation of an active run.
func (s *RunService) Cancel(runID string) error {
	s.mu.RLock()
	ar, ok := s.active[runID]
	s.mu.RUnlock()
	if !ok {
		return apperrors.NotFound("active run", runID)
	}
	ar.cancel()
	return nil
}

// Delete removes a persisted run report. Active runs must be cancelled first.
func (s *RunService) Delete(ctx context.Context, runID string) error {
	s.mu.RLock()
	_, running := s.active[runID]
	s.mu.RUnlock()
	if running {
		return apperrors.Conflict("run is still executing; cancel it first")
	}
	return s.reports.Delete(ctx, runID)
}

// Events returns the progress stream of an active run along with its done
// channel. The stream has a single consumer; events are dropped when nobody
// reads them.
func (s *RunService) Events(runID string) (<-chan engine.TaskProgress, <-chan struct{}, bool) {
	s.mu.RLock()
	ar, ok := s.active[runID]
	s.mu.RUnlock()
	if !ok {
		return nil, nil, false
	}
	return ar.events, ar.done, true
}
