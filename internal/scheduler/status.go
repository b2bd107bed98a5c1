package scheduler

import (
	"time"

	"racefeed/internal/pipeline"
)

// Status is a snapshot of the scheduler.
type Status struct {
	Running bool
	// Passing is the trigger of the pass in flight, empty when idle.
	Passing   string
	NextRun   time.Time
	LastPass  *pipeline.PassSummary
	LastError string
}

// Status returns the latest scheduler information.
func (s *Scheduler) Status() Status {
	s.mu.RLock()
	defer s.mu.RUnlock()
	status := Status{
		Running: s.running,
		Passing: s.passing,
		NextRun: s.nextRun,
	}
	if s.lastPass != nil {
		copy := *s.lastPass
		status.LastPass = &copy
	}
	if s.lastErr != nil {
		status.LastError = s.lastErr.Error()
	}
	return status
}
