package ics

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/robfig/cron/v3"

	appLog "chronos/internal/log"
)

// Refresher re-runs one Importer on a cron schedule. Reusing the Importer
// keeps item ids stable, so each refresh updates the previously imported
// items instead of adding copies.
type Refresher struct {
	importer *Importer
	sources  []Source
	days     int
	spec     string

	mu   sync.Mutex
	cron *cron.Cron
	last ImportStats
	runs int
}

// NewRefresher validates spec (standard 5-field cron) and returns an idle
// Refresher importing horizonDays days from the store's today.
func NewRefresher(im *Importer, sources []Source, horizonDays int, spec string) (*Refresher, error) {
	if im == nil {
		return nil, errors.New("refresh: importer is nil")
	}
	if horizonDays <= 0 {
		return nil, errors.New("refresh: horizon must cover at least one day")
	}
	if _, err := cron.ParseStandard(spec); err != nil {
		return nil, fmt.Errorf("refresh: parse schedule %q: %w", spec, err)
	}
	return &Refresher{importer: im, sources: sources, days: horizonDays, spec: spec}, nil
}

// RunOnce imports every source into the window starting today.
func (r *Refresher) RunOnce(ctx context.Context) (ImportStats, error) {
	win := Window{Start: r.importer.store.Today(), Days: r.days}
	stats, err := r.importer.Run(ctx, r.sources, win)
	if err != nil {
		appLog.Error("ics refresh failed", err)
		return stats, err
	}
	for _, e := range stats.Errors {
		appLog.Error("ics source failed", e)
	}

	r.mu.Lock()
	r.last = stats
	r.runs++
	r.mu.Unlock()
	return stats, nil
}

// Last returns the stats of the most recent successful run and how many
// runs have completed.
func (r *Refresher) Last() (ImportStats, int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.last, r.runs
}

// Start schedules RunOnce in the store's zone and stops when ctx is
// canceled. It returns once the scheduler is running.
func (r *Refresher) Start(ctx context.Context) error {
	c := cron.New(cron.WithLocation(r.importer.store.Location()))
	if _, err := c.AddFunc(r.spec, func() { _, _ = r.RunOnce(ctx) }); err != nil {
		return fmt.Errorf("refresh: schedule: %w", err)
	}

	r.mu.Lock()
	r.cron = c
	r.mu.Unlock()

	c.Start()
	appLog.Info("ics refresh scheduler started", "schedule", r.spec, "sources", len(r.sources))

	go func() {
		<-ctx.Done()
		<-c.Stop().Done()
		appLog.Info("ics refresh scheduler stopped")
	}()
	return nil
}
