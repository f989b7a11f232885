package ics

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	appLog "chronos/internal/log"
	"chronos/internal/model"
	"chronos/internal/schedule"
)

// Window is the span of days imported around today.
type Window struct {
	Start model.Date
	// Days is how many days from Start are expanded.
	Days int
}

// ImportStats summarizes one import run.
type ImportStats struct {
	Added     int
	Updated   int
	Truncated []string
	Errors    []error
}

// Importer pulls ICS subscriptions into a schedule store. Items keep their
// id across runs, so re-importing a feed updates instead of duplicating.
type Importer struct {
	store   *schedule.Store
	fetcher *Fetcher

	mu   sync.Mutex
	seen map[string]uuid.UUID
}

// NewImporter returns an Importer writing into store.
func NewImporter(store *schedule.Store, fetcher *Fetcher) *Importer {
	return &Importer{
		store:   store,
		fetcher: fetcher,
		seen:    make(map[string]uuid.UUID),
	}
}

// Run fetches, parses and expands every source and upserts the results.
// Source-level failures are collected in ImportStats.Errors; Run itself
// only fails on an invalid window.
func (im *Importer) Run(ctx context.Context, sources []Source, win Window) (ImportStats, error) {
	var stats ImportStats
	if win.Days <= 0 {
		return stats, errors.New("import: window must cover at least one day")
	}

	loc := im.store.Location()
	results, fetchErrs := im.fetcher.FetchAll(ctx, sources)
	stats.Errors = append(stats.Errors, fetchErrs...)

	var events []ParsedEvent
	var todos []ParsedTodo
	for _, res := range results {
		parsed, err := ParseICS(res.Source, res.Body)
		if err != nil {
			stats.Errors = append(stats.Errors, fmt.Errorf("source %s: %w", res.Source.ID, err))
			continue
		}
		events = append(events, parsed.Events...)
		todos = append(todos, parsed.Todos...)
	}

	expanded, err := ExpandOccurrences(events, ExpandConfig{
		DisplayLocation: loc,
		RangeStart:      win.Start.Time(loc),
		RangeEnd:        win.Start.AddDays(win.Days).Time(loc).Add(-time.Nanosecond),
	})
	if err != nil {
		return stats, err
	}
	stats.Truncated = expanded.TruncatedEvents

	for _, occ := range expanded.Occurrences {
		key := occ.SourceID + "|" + occ.UID + "|" + occ.InstanceKey
		im.upsert(key, OccurrenceItem(occ), &stats)
	}
	for _, td := range todos {
		key := td.Source.ID + "|" + td.UID
		im.upsert(key, TodoItem(td, loc, win.Start), &stats)
	}

	appLog.Info("ics import completed",
		"sources", len(sources),
		"added", stats.Added,
		"updated", stats.Updated,
		"errors", len(stats.Errors),
	)
	return stats, nil
}

func (im *Importer) upsert(key string, item model.TimelineItem, stats *ImportStats) {
	im.mu.Lock()
	defer im.mu.Unlock()

	if id, ok := im.seen[key]; ok {
		item.ID = id
		if im.store.Update(item) {
			stats.Updated++
			return
		}
		// Removed locally since the last run; bring it back under a new id.
		item.ID = uuid.New()
	}
	im.seen[key] = item.ID
	im.store.Add(item)
	stats.Added++
}

// OccurrenceItem converts an expanded occurrence into an Event item.
// Times are taken in the occurrence's own (display) zone.
func OccurrenceItem(occ Occurrence) model.TimelineItem {
	date := model.DateOf(occ.Start)
	opts := []model.Option{
		model.WithDetails(occ.Description),
		model.WithLocation(occ.Location),
	}
	if occ.AllDay {
		return model.NewAllDayEvent(occ.Summary, date, opts...)
	}
	return model.NewEvent(occ.Summary, date, model.TimeOfDayOf(occ.Start), model.TimeOfDayOf(occ.End), opts...)
}

// TodoItem converts a VTODO into a Task item. The home date is DTSTART,
// else DUE, else fallback.
func TodoItem(td ParsedTodo, loc *time.Location, fallback model.Date) model.TimelineItem {
	home := fallback
	var opts []model.Option
	opts = append(opts, model.WithDetails(td.Description), model.WithCompleted(td.Completed), model.WithPriority(priorityFromICS(td.Priority)))

	switch {
	case !td.Start.IsZero() && td.StartHasTime:
		start := td.Start.In(loc)
		home = model.DateOf(start)
		opts = append(opts, model.WithTaskTime(model.TimeOfDayOf(start)))
	case !td.Start.IsZero():
		home = model.DateOf(td.Start)
	case !td.Due.IsZero() && td.DueHasTime:
		home = model.DateOf(td.Due.In(loc))
	case !td.Due.IsZero():
		home = model.DateOf(td.Due)
	}
	if !td.Due.IsZero() {
		due := td.Due
		if td.DueHasTime {
			due = due.In(loc)
			at := model.TimeOfDayOf(due)
			opts = append(opts, model.WithDeadline(model.DateOf(due), &at))
		} else {
			opts = append(opts, model.WithDeadline(model.DateOf(due), nil))
		}
	}
	return model.NewTask(td.Summary, home, opts...)
}

// priorityFromICS maps RFC 5545 PRIORITY: 1-4 high, 5 medium, 6-9 low,
// 0 undefined.
func priorityFromICS(p int) model.Priority {
	switch {
	case p >= 1 && p <= 4:
		return model.PriorityHigh
	case p >= 6 && p <= 9:
		return model.PriorityLow
	default:
		return model.PriorityMedium
	}
}

func priorityToICS(p model.Priority) int {
	switch p {
	case model.PriorityHigh:
		return 1
	case model.PriorityLow:
		return 9
	default:
		return 5
	}
}
