package scheduler

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/stockit/internal/common"
	"github.com/ternarybob/stockit/internal/interfaces"
	"github.com/ternarybob/stockit/internal/models"
)

// DefaultTick is the polling interval used when none is configured.
const DefaultTick = 60 * time.Second

// jobEntry is one timer entry
type jobEntry struct {
	name      string
	spec      string
	schedule  cron.Schedule
	handler   interfaces.JobHandler
	lastRun   *time.Time
	nextRun   time.Time
	isRunning bool
	lastError string
	runCount  int
}

// Service implements interfaces.SchedulerService as a synchronous polling loop.
// A slow job delays the following ticks; jobs never overlap.
type Service struct {
	storage interfaces.JobSettingsStorage // optional
	tick    time.Duration
	logger  arbor.ILogger
	now     func() time.Time
	jobMu   sync.Mutex // protects jobs and order
	jobs    map[string]*jobEntry
	order   []string
}

// NewService creates a scheduler polling every tick. storage may be nil.
func NewService(storage interfaces.JobSettingsStorage, tick time.Duration, logger arbor.ILogger) *Service {
	if tick <= 0 {
		tick = DefaultTick
	}
	return &Service{
		storage: storage,
		tick:    tick,
		logger:  logger,
		now:     time.Now,
		jobs:    make(map[string]*jobEntry),
	}
}

// RegisterJob adds a timer entry. A persisted last run resumes the job's cadence;
// otherwise the first run is one interval from now.
func (s *Service) RegisterJob(ctx context.Context, name string, spec string, handler interfaces.JobHandler) error {
	if err := common.ValidateJobSchedule(spec); err != nil {
		return fmt.Errorf("invalid schedule: %w", err)
	}
	schedule, err := cron.ParseStandard(spec)
	if err != nil {
		return fmt.Errorf("invalid schedule: %w", err)
	}

	s.jobMu.Lock()
	if _, exists := s.jobs[name]; exists {
		s.jobMu.Unlock()
		return fmt.Errorf("job %s already registered", name)
	}

	entry := &jobEntry{
		name:     name,
		spec:     spec,
		schedule: schedule,
		handler:  handler,
		nextRun:  schedule.Next(s.now()),
	}
	s.restore(ctx, entry)

	s.jobs[name] = entry
	s.order = append(s.order, name)
	s.jobMu.Unlock()

	s.logger.Info().
		Str("job_name", name).
		Str("schedule", spec).
		Str("next_run", entry.nextRun.Format(time.RFC3339)).
		Msg("Job registered")

	s.persist(ctx, entry)
	return nil
}

// restore loads persisted state for entry; a schedule change discards it
func (s *Service) restore(ctx context.Context, entry *jobEntry) {
	if s.storage == nil {
		return
	}
	run, err := s.storage.GetJobRun(ctx, entry.name)
	if err != nil {
		if !errors.Is(err, interfaces.ErrNotFound) {
			s.logger.Warn().Err(err).Str("job_name", entry.name).Msg("Failed to load job settings")
		}
		return
	}

	entry.runCount = run.RunCount
	entry.lastError = run.LastError
	entry.lastRun = run.LastRun
	if run.Schedule == entry.spec && run.LastRun != nil {
		entry.nextRun = entry.schedule.Next(*run.LastRun)
	}
}

// RunPending executes every due job in registration order.
func (s *Service) RunPending(ctx context.Context) int {
	s.jobMu.Lock()
	names := append([]string(nil), s.order...)
	s.jobMu.Unlock()

	now := s.now()
	ran := 0
	for _, name := range names {
		if ctx.Err() != nil {
			break
		}

		s.jobMu.Lock()
		entry := s.jobs[name]
		due := !now.Before(entry.nextRun)
		s.jobMu.Unlock()

		if due {
			s.executeJob(ctx, name)
			ran++
		}
	}
	return ran
}

// Start polls every tick until ctx is cancelled.
func (s *Service) Start(ctx context.Context) error {
	s.logger.Info().
		Str("tick", s.tick.String()).
		Int("jobs", len(s.GetAllJobStatuses())).
		Msg("Scheduler started")

	ticker := time.NewTicker(s.tick)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.logger.Info().Msg("Scheduler stopped")
			return nil
		case <-ticker.C:
			s.RunPending(ctx)
		}
	}
}

// GetJobStatus returns the status of a specific job.
func (s *Service) GetJobStatus(name string) (*interfaces.JobStatus, error) {
	s.jobMu.Lock()
	defer s.jobMu.Unlock()

	entry, exists := s.jobs[name]
	if !exists {
		return nil, fmt.Errorf("job %s not found", name)
	}
	return entry.status(), nil
}

// GetAllJobStatuses returns all job statuses in registration order.
func (s *Service) GetAllJobStatuses() []*interfaces.JobStatus {
	s.jobMu.Lock()
	defer s.jobMu.Unlock()

	statuses := make([]*interfaces.JobStatus, 0, len(s.order))
	for _, name := range s.order {
		statuses = append(statuses, s.jobs[name].status())
	}
	return statuses
}

// executeJob runs one job with panic recovery and persists its outcome.
func (s *Service) executeJob(ctx context.Context, name string) {
	runID := common.NewRunID()
	jobLogger := s.logger.WithCorrelationId(runID)

	s.jobMu.Lock()
	entry := s.jobs[name]
	entry.isRunning = true
	handler := entry.handler
	s.jobMu.Unlock()

	jobLogger.Info().Str("job_name", name).Msg("Job execution started")
	started := s.now()

	err := s.runHandler(ctx, jobLogger, name, handler)

	finished := s.now()
	s.jobMu.Lock()
	entry.isRunning = false
	entry.lastRun = &finished
	entry.nextRun = entry.schedule.Next(finished)
	entry.runCount++
	if err != nil {
		entry.lastError = err.Error()
	} else {
		entry.lastError = ""
	}
	s.jobMu.Unlock()

	duration := finished.Sub(started).Round(time.Millisecond).String()
	if err != nil {
		jobLogger.Error().Err(err).Str("job_name", name).Str("duration", duration).Msg("Job execution failed")
	} else {
		jobLogger.Info().Str("job_name", name).Str("duration", duration).Msg("Job execution completed")
	}

	s.persist(ctx, entry)
}

func (s *Service) runHandler(ctx context.Context, logger arbor.ILogger, name string, handler interfaces.JobHandler) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = common.RecoverAsError(logger, "job "+name, r)
		}
	}()
	return handler(ctx)
}

func (s *Service) persist(ctx context.Context, entry *jobEntry) {
	if s.storage == nil {
		return
	}

	s.jobMu.Lock()
	next := entry.nextRun
	run := &models.JobRun{
		Name:      entry.name,
		Schedule:  entry.spec,
		LastRun:   entry.lastRun,
		NextRun:   &next,
		LastError: entry.lastError,
		RunCount:  entry.runCount,
	}
	s.jobMu.Unlock()

	// ctx may already be cancelled on shutdown; the outcome is still recorded
	if err := s.storage.SaveJobRun(context.WithoutCancel(ctx), run); err != nil {
		s.logger.Warn().Err(err).Str("job_name", entry.name).Msg("Failed to persist job settings")
	}
}

func (e *jobEntry) status() *interfaces.JobStatus {
	next := e.nextRun
	return &interfaces.JobStatus{
		Name:      e.name,
		Schedule:  e.spec,
		LastRun:   e.lastRun,
		NextRun:   &next,
		IsRunning: e.isRunning,
		LastError: e.lastError,
		RunCount:  e.runCount,
	}
}
