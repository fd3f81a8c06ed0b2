package interfaces

import (
	"context"
	"time"
)

// JobHandler is the action run by a scheduled job.
type JobHandler func(ctx context.Context) error

// JobStatus represents the current status of a scheduled job
type JobStatus struct {
	Name      string
	Schedule  string
	LastRun   *time.Time
	NextRun   *time.Time
	IsRunning bool
	LastError string
	RunCount  int
}

// SchedulerService runs registered jobs from a polling loop, one at a time
type SchedulerService interface {
	// RegisterJob adds a timer entry; schedule is a standard cron spec or "@every <duration>"
	RegisterJob(ctx context.Context, name string, schedule string, handler JobHandler) error

	// RunPending executes every due job in registration order and returns how many ran
	RunPending(ctx context.Context) int

	// Start polls for due jobs every tick until ctx is cancelled
	Start(ctx context.Context) error

	// GetJobStatus returns the status of a specific job
	GetJobStatus(name string) (*JobStatus, error)

	// GetAllJobStatuses returns all job statuses in registration order
	GetAllJobStatuses() []*JobStatus
}
