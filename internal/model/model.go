package model

import (
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
)

var (
	ErrEmptyTitle              = errors.New("title is empty")
	ErrInvalidKind             = errors.New("item kind is invalid")
	ErrDeadlineTimeWithoutDate = errors.New("deadline time set without deadline date")
)

// Kind tags which variant a TimelineItem carries.
type Kind string

const (
	KindTask  Kind = "task"
	KindEvent Kind = "event"
)

// Priority ranks tasks. The zero value is not valid; constructors
// default to PriorityMedium.
type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityMedium Priority = "medium"
	PriorityHigh   Priority = "high"
)

// ParsePriority accepts low/medium/high in any case. Empty input yields
// PriorityMedium.
func ParsePriority(s string) (Priority, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "low":
		return PriorityLow, nil
	case "medium", "":
		return PriorityMedium, nil
	case "high":
		return PriorityHigh, nil
	default:
		return "", fmt.Errorf("unknown priority %q", s)
	}
}

// TimelineItem is either a Task or an Event. Kind selects the variant and
// exactly one of Task/Event is non-nil for a well-formed item.
//
// Items are values: anything that changes an item works on a Clone and
// keeps the ID.
type TimelineItem struct {
	ID      uuid.UUID
	Kind    Kind
	Title   string
	Details string
	// Date is the home day of the item.
	Date Date

	Task  *TaskFields
	Event *EventFields
}

// TaskFields holds the Task-only part of a TimelineItem.
type TaskFields struct {
	// TaskTime nil means "anytime".
	TaskTime     *TimeOfDay
	DeadlineDate *Date
	// DeadlineTime is only meaningful when DeadlineDate is set.
	DeadlineTime *TimeOfDay
	Completed    bool
	Priority     Priority
}

// EventFields holds the Event-only part of a TimelineItem.
// End is not required to be after Start.
type EventFields struct {
	Start    TimeOfDay
	End      TimeOfDay
	AllDay   bool
	Location string
}

// Option customizes an item at construction. Options that do not apply to
// the item's kind are ignored.
type Option func(*TimelineItem)

func WithDetails(details string) Option {
	return func(it *TimelineItem) { it.Details = details }
}

func WithTaskTime(t TimeOfDay) Option {
	return func(it *TimelineItem) {
		if it.Task != nil {
			it.Task.TaskTime = &t
		}
	}
}

// WithDeadline sets the deadline day and, if at is non-nil, its time.
func WithDeadline(d Date, at *TimeOfDay) Option {
	return func(it *TimelineItem) {
		if it.Task == nil {
			return
		}
		it.Task.DeadlineDate = &d
		if at != nil {
			tod := *at
			it.Task.DeadlineTime = &tod
		}
	}
}

func WithPriority(p Priority) Option {
	return func(it *TimelineItem) {
		if it.Task != nil {
			it.Task.Priority = p
		}
	}
}

func WithCompleted(done bool) Option {
	return func(it *TimelineItem) {
		if it.Task != nil {
			it.Task.Completed = done
		}
	}
}

func WithLocation(loc string) Option {
	return func(it *TimelineItem) {
		if it.Event != nil {
			it.Event.Location = loc
		}
	}
}

// WithID overrides the generated id. Callers must keep ids unique.
func WithID(id uuid.UUID) Option {
	return func(it *TimelineItem) { it.ID = id }
}

// NewTask builds a Task with a fresh id, MEDIUM priority and no times.
func NewTask(title string, date Date, opts ...Option) TimelineItem {
	it := TimelineItem{
		ID:    uuid.New(),
		Kind:  KindTask,
		Title: title,
		Date:  date,
		Task:  &TaskFields{Priority: PriorityMedium},
	}
	for _, opt := range opts {
		opt(&it)
	}
	return it
}

// NewEvent builds a timed Event with a fresh id.
func NewEvent(title string, date Date, start, end TimeOfDay, opts ...Option) TimelineItem {
	it := TimelineItem{
		ID:    uuid.New(),
		Kind:  KindEvent,
		Title: title,
		Date:  date,
		Event: &EventFields{Start: start, End: end},
	}
	for _, opt := range opts {
		opt(&it)
	}
	return it
}

// NewAllDayEvent builds an Event spanning Midnight..EndOfDay.
func NewAllDayEvent(title string, date Date, opts ...Option) TimelineItem {
	it := NewEvent(title, date, Midnight, EndOfDay, opts...)
	it.Event.AllDay = true
	return it
}

// Clone returns a deep copy sharing no pointers with it.
func (it TimelineItem) Clone() TimelineItem {
	out := it
	if it.Task != nil {
		tf := *it.Task
		if tf.TaskTime != nil {
			v := *tf.TaskTime
			tf.TaskTime = &v
		}
		if tf.DeadlineDate != nil {
			v := *tf.DeadlineDate
			tf.DeadlineDate = &v
		}
		if tf.DeadlineTime != nil {
			v := *tf.DeadlineTime
			tf.DeadlineTime = &v
		}
		out.Task = &tf
	}
	if it.Event != nil {
		ef := *it.Event
		out.Event = &ef
	}
	return out
}

// IsTask reports whether it carries the Task variant.
func (it TimelineItem) IsTask() bool { return it.Kind == KindTask && it.Task != nil }

// IsEvent reports whether it carries the Event variant.
func (it TimelineItem) IsEvent() bool { return it.Kind == KindEvent && it.Event != nil }

// Missed reports whether a task is overdue: not completed, has a deadline,
// and the deadline is strictly before today.
func Missed(completed bool, deadline *Date, today Date) bool {
	return !completed && deadline != nil && deadline.Before(today)
}

// IsMissed evaluates Missed against today. Events are never missed.
func (it TimelineItem) IsMissed(today Date) bool {
	if !it.IsTask() {
		return false
	}
	return Missed(it.Task.Completed, it.Task.DeadlineDate, today)
}

// SameItem reports whether a and b are the same logical item.
func SameItem(a, b TimelineItem) bool {
	return a.ID == b.ID
}

// Validate checks the structural rules collaborators enforce on input.
// The store accepts items without calling it.
func (it TimelineItem) Validate() error {
	if strings.TrimSpace(it.Title) == "" {
		return ErrEmptyTitle
	}
	switch it.Kind {
	case KindTask:
		if it.Task == nil || it.Event != nil {
			return fmt.Errorf("%w: task must carry only task fields", ErrInvalidKind)
		}
		if it.Task.DeadlineTime != nil && it.Task.DeadlineDate == nil {
			return ErrDeadlineTimeWithoutDate
		}
		if _, err := ParsePriority(string(it.Task.Priority)); err != nil {
			return err
		}
	case KindEvent:
		if it.Event == nil || it.Task != nil {
			return fmt.Errorf("%w: event must carry only event fields", ErrInvalidKind)
		}
	default:
		return fmt.Errorf("%w: %q", ErrInvalidKind, it.Kind)
	}
	if it.Date.IsZero() {
		return errors.New("date is required")
	}
	return nil
}
