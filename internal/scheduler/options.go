package scheduler

import (
	"fmt"
	"time"

	"racefeed/internal/config"
)

// Options control pass timing.
type Options struct {
	RunOnStartup bool
	// Interval, when positive, replaces the daily slot.
	Interval time.Duration
	Hour     int
	Minute   int
	Location *time.Location
	// QuickRetry is the delay before retrying a batch failure; zero disables
	// the retry.
	QuickRetry time.Duration
}

// OptionsFromConfig converts the schedule section.
func OptionsFromConfig(cfg config.Schedule) (Options, error) {
	loc, err := time.LoadLocation(cfg.Timezone)
	if err != nil {
		return Options{}, fmt.Errorf("schedule.timezone: %w", err)
	}
	return Options{
		RunOnStartup: cfg.RunOnStartup,
		Interval:     time.Duration(cfg.IntervalSeconds) * time.Second,
		Hour:         cfg.Hour,
		Minute:       cfg.Minute,
		Location:     loc,
		QuickRetry:   time.Duration(cfg.QuickRetrySeconds) * time.Second,
	}, nil
}

// Next returns the first slot strictly after t.
func (o Options) Next(t time.Time) time.Time {
	if o.Interval > 0 {
		return t.Add(o.Interval)
	}
	loc := o.Location
	if loc == nil {
		loc = time.UTC
	}
	local := t.In(loc)
	slot := time.Date(local.Year(), local.Month(), local.Day(), o.Hour, o.Minute, 0, 0, loc)
	if !slot.After(local) {
		slot = time.Date(local.Year(), local.Month(), local.Day()+1, o.Hour, o.Minute, 0, 0, loc)
	}
	return slot
}
