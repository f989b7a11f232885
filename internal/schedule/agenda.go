package schedule

import (
	"cmp"
	"slices"
	"time"

	"chronos/internal/model"
)

// Agenda ranks. Lower sorts first.
const (
	rankAllDayEvent = 0
	rankTimedEvent  = 1
	rankTask        = 2
)

// BelongsTo reports whether item appears on date's agenda. A task belongs to
// both its home date and its deadline date.
func BelongsTo(item model.TimelineItem, date model.Date) bool {
	switch item.Kind {
	case model.KindTask:
		if item.Date == date {
			return true
		}
		return item.Task != nil && item.Task.DeadlineDate != nil && *item.Task.DeadlineDate == date
	case model.KindEvent:
		return item.Date == date
	default:
		return false
	}
}

// SortAgenda orders items in place: all-day events, then timed events by
// start time, then tasks as one block. Ties keep their input order.
//
// Tasks are not interleaved by TaskTime here; they all share EndOfDay as
// their time key.
func SortAgenda(items []model.TimelineItem) {
	slices.SortStableFunc(items, func(a, b model.TimelineItem) int {
		if c := cmp.Compare(agendaRank(a), agendaRank(b)); c != 0 {
			return c
		}
		return agendaTime(a).Compare(agendaTime(b))
	})
}

func agendaRank(it model.TimelineItem) int {
	switch it.Kind {
	case model.KindEvent:
		if it.Event != nil && it.Event.AllDay {
			return rankAllDayEvent
		}
		return rankTimedEvent
	default:
		return rankTask
	}
}

func agendaTime(it model.TimelineItem) model.TimeOfDay {
	if it.Kind == model.KindEvent && it.Event != nil {
		if it.Event.AllDay {
			return model.Midnight
		}
		return it.Event.Start
	}
	return model.EndOfDay
}

// DaySummary describes one busy day of a month view.
type DaySummary struct {
	Date      model.Date
	Count     int
	HasMissed bool
}

// MonthSummary groups items by home date within year/month and flags days
// holding a missed task. Days without items are omitted. Results are in
// date order.
func (s *Store) MonthSummary(year int, month time.Month) []DaySummary {
	today := s.Today()

	s.mu.RLock()
	byDay := make(map[model.Date]*DaySummary)
	for _, it := range s.items {
		if it.Date.Year != year || it.Date.Month != month {
			continue
		}
		ds, ok := byDay[it.Date]
		if !ok {
			ds = &DaySummary{Date: it.Date}
			byDay[it.Date] = ds
		}
		ds.Count++
		if it.IsMissed(today) {
			ds.HasMissed = true
		}
	}
	s.mu.RUnlock()

	out := make([]DaySummary, 0, len(byDay))
	for _, ds := range byDay {
		out = append(out, *ds)
	}
	slices.SortFunc(out, func(a, b DaySummary) int { return a.Date.Compare(b.Date) })
	return out
}

// Remaining counts tasks that are not completed.
func (s *Store) Remaining() int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	n := 0
	for _, it := range s.items {
		if it.IsTask() && !it.Task.Completed {
			n++
		}
	}
	return n
}

// Missed returns the tasks missed as of today, in insertion order.
func (s *Store) Missed() []model.TimelineItem {
	today := s.Today()

	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]model.TimelineItem, 0)
	for _, it := range s.items {
		if it.IsMissed(today) {
			out = append(out, it.Clone())
		}
	}
	return out
}
