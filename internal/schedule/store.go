// Package schedule owns the collection of timeline items and derives the
// per-day agenda, month summary and missed-task views from it.
package schedule

import (
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"

	appLog "chronos/internal/log"
	"chronos/internal/model"
)

// Store is the authoritative, insertion-ordered collection of items.
//
// Commands on an unknown id are silent no-ops. They report whether the id
// was found so that stricter callers can surface it; the store itself never
// treats it as an error.
//
// Derived views are recomputed on every query.
type Store struct {
	mu    sync.RWMutex
	items []model.TimelineItem

	notifier Notifier
	now      func() time.Time
	loc      *time.Location
}

// Option configures a Store.
type Option func(*Store)

// WithNotifier sets the reminder sink called after Add and Update.
func WithNotifier(n Notifier) Option {
	return func(s *Store) { s.notifier = n }
}

// WithClock overrides time.Now, used to compute "today".
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// WithLocation sets the zone in which "today" is evaluated.
func WithLocation(loc *time.Location) Option {
	return func(s *Store) { s.loc = loc }
}

// New constructs an empty Store.
func New(opts ...Option) *Store {
	s := &Store{
		notifier: nopNotifier{},
		now:      time.Now,
		loc:      time.Local,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.notifier == nil {
		s.notifier = nopNotifier{}
	}
	if s.loc == nil {
		s.loc = time.Local
	}
	return s
}

// Today returns the current calendar day per the store's clock and zone.
func (s *Store) Today() model.Date {
	return model.DateOf(s.now().In(s.loc))
}

// Location returns the zone used for "today".
func (s *Store) Location() *time.Location {
	return s.loc
}

// Add appends item and schedules its reminder.
func (s *Store) Add(item model.TimelineItem) {
	item = item.Clone()

	s.mu.Lock()
	s.items = append(s.items, item)
	s.mu.Unlock()

	appLog.Debug("item added", "id", item.ID, "kind", item.Kind, "date", item.Date)
	s.scheduleReminder(item)
}

// load appends items without scheduling reminders. Used for startup data.
func (s *Store) load(items ...model.TimelineItem) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, it := range items {
		s.items = append(s.items, it.Clone())
	}
}

// Remove deletes the item with id. It reports whether the item existed.
func (s *Store) Remove(id uuid.UUID) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	idx := s.indexOf(id)
	if idx < 0 {
		return false
	}
	s.items = slices.Delete(s.items, idx, idx+1)
	appLog.Debug("item removed", "id", id)
	return true
}

// Update replaces the item sharing updated.ID in place and re-schedules its
// reminder. It reports whether the item existed.
func (s *Store) Update(updated model.TimelineItem) bool {
	updated = updated.Clone()

	s.mu.Lock()
	idx := s.indexOf(updated.ID)
	if idx >= 0 {
		s.items[idx] = updated
	}
	s.mu.Unlock()

	if idx < 0 {
		return false
	}
	appLog.Debug("item updated", "id", updated.ID)
	s.scheduleReminder(updated)
	return true
}

// ToggleComplete flips completion of the task with id. Events are left
// unchanged. It reports whether a task was toggled.
func (s *Store) ToggleComplete(id uuid.UUID) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	idx := s.indexOf(id)
	if idx < 0 || !s.items[idx].IsTask() {
		return false
	}
	next := s.items[idx].Clone()
	next.Task.Completed = !next.Task.Completed
	s.items[idx] = next
	return true
}

// MoveItems relocates every existing id to date: a task's deadline date
// becomes date, an event's home date becomes date. Unknown ids are skipped.
// It returns how many items were moved.
func (s *Store) MoveItems(ids []uuid.UUID, date model.Date) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	moved := 0
	for _, id := range ids {
		idx := s.indexOf(id)
		if idx < 0 {
			continue
		}
		next := s.items[idx].Clone()
		switch next.Kind {
		case model.KindTask:
			if next.Task == nil {
				continue
			}
			d := date
			next.Task.DeadlineDate = &d
		case model.KindEvent:
			next.Date = date
		default:
			continue
		}
		s.items[idx] = next
		moved++
	}
	return moved
}

// Items returns a copy of every item in insertion order.
func (s *Store) Items() []model.TimelineItem {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]model.TimelineItem, len(s.items))
	for i, it := range s.items {
		out[i] = it.Clone()
	}
	return out
}

// Len returns the number of stored items.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.items)
}

// Get returns a copy of the item with id.
func (s *Store) Get(id uuid.UUID) (model.TimelineItem, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	idx := s.indexOf(id)
	if idx < 0 {
		return model.TimelineItem{}, false
	}
	return s.items[idx].Clone(), true
}

// ItemsForDate returns the agenda for date: every task whose home date or
// deadline date is date, and every event whose home date is date, in
// agenda order (see SortAgenda).
func (s *Store) ItemsForDate(date model.Date) []model.TimelineItem {
	s.mu.RLock()
	out := make([]model.TimelineItem, 0)
	for _, it := range s.items {
		if BelongsTo(it, date) {
			out = append(out, it.Clone())
		}
	}
	s.mu.RUnlock()

	SortAgenda(out)
	return out
}

// indexOf must be called with s.mu held.
func (s *Store) indexOf(id uuid.UUID) int {
	return slices.IndexFunc(s.items, func(it model.TimelineItem) bool {
		return it.ID == id
	})
}

func (s *Store) scheduleReminder(item model.TimelineItem) {
	r := Reminder{
		ItemID: item.ID,
		Title:  item.Title,
		Date:   item.Date,
		When:   describeWhen(item),
	}
	dispatch(s.notifier, r)
}

// describeWhen renders the effective time of an item for reminders.
func describeWhen(item model.TimelineItem) string {
	switch item.Kind {
	case model.KindEvent:
		if item.Event == nil {
			return ""
		}
		if item.Event.AllDay {
			return "All Day"
		}
		return item.Event.Start.String()
	case model.KindTask:
		if item.Task == nil || item.Task.DeadlineDate == nil {
			return "Deadline: none"
		}
		return fmt.Sprintf("Deadline: %s", item.Task.DeadlineDate)
	default:
		return ""
	}
}
