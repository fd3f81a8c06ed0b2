package models

import "time"

// JobRun is the persisted state of a scheduled job (job_settings table).
type JobRun struct {
	Name      string     `json:"name"`
	Schedule  string     `json:"schedule"`
	LastRun   *time.Time `json:"last_run,omitempty"`
	NextRun   *time.Time `json:"next_run,omitempty"`
	LastError string     `json:"last_error,omitempty"`
	RunCount  int        `json:"run_count"`
	UpdatedAt time.Time  `json:"updated_at"`
}
