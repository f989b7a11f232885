// Package reminder provides the sinks the schedule store hands reminders to.
// Nothing here delivers notifications; reminders are recorded in the log.
package reminder

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/robfig/cron/v3"

	appLog "chronos/internal/log"
	"chronos/internal/schedule"
)

// LogSink records every reminder as a log line.
type LogSink struct{}

func (LogSink) Notify(r schedule.Reminder) error {
	appLog.Info("reminder scheduled",
		"id", r.ItemID,
		"title", r.Title,
		"date", r.Date,
		"when", r.When,
	)
	return nil
}

// DigestReport is what a single digest run observed.
type DigestReport struct {
	Agenda    int
	Missed    int
	Remaining int
}

// Digest periodically logs a summary of today's agenda and overdue tasks.
type Digest struct {
	store *schedule.Store
	spec  string

	mu   sync.Mutex
	cron *cron.Cron
	last DigestReport
}

// NewDigest validates spec (standard 5-field cron) and returns an idle Digest.
func NewDigest(store *schedule.Store, spec string) (*Digest, error) {
	if store == nil {
		return nil, errors.New("digest: store is nil")
	}
	if _, err := cron.ParseStandard(spec); err != nil {
		return nil, fmt.Errorf("digest: parse schedule %q: %w", spec, err)
	}
	return &Digest{store: store, spec: spec}, nil
}

// Run computes and logs one digest immediately.
func (d *Digest) Run() DigestReport {
	today := d.store.Today()
	rep := DigestReport{
		Agenda:    len(d.store.ItemsForDate(today)),
		Missed:    len(d.store.Missed()),
		Remaining: d.store.Remaining(),
	}

	d.mu.Lock()
	d.last = rep
	d.mu.Unlock()

	appLog.Info("daily digest",
		"date", today,
		"agenda", rep.Agenda,
		"missed", rep.Missed,
		"remaining", rep.Remaining,
	)
	return rep
}

// Last returns the report of the most recent run.
func (d *Digest) Last() DigestReport {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.last
}

// Start schedules Run on the cron spec in the store's zone and stops when
// ctx is canceled. It returns once the scheduler is running.
func (d *Digest) Start(ctx context.Context) error {
	c := cron.New(cron.WithLocation(d.store.Location()))
	if _, err := c.AddFunc(d.spec, func() { d.Run() }); err != nil {
		return fmt.Errorf("digest: schedule: %w", err)
	}

	d.mu.Lock()
	d.cron = c
	d.mu.Unlock()

	c.Start()
	appLog.Info("digest scheduler started", "schedule", d.spec)

	go func() {
		<-ctx.Done()
		<-c.Stop().Done()
		appLog.Info("digest scheduler stopped")
	}()
	return nil
}
