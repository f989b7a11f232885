package schedule

import (
	"fmt"

	"github.com/google/uuid"

	appLog "chronos/internal/log"
	"chronos/internal/model"
)

// Reminder describes the item a reminder should be scheduled for.
type Reminder struct {
	ItemID uuid.UUID
	Title  string
	Date   model.Date
	// When is "All Day", an event start such as "09:00", or
	// "Deadline: 2024-01-05" for tasks.
	When string
}

// Notifier receives reminders on Add and Update. Delivery is
// fire-and-forget: errors are logged and never undo the mutation.
type Notifier interface {
	Notify(r Reminder) error
}

// NotifierFunc adapts a function to Notifier.
type NotifierFunc func(r Reminder) error

func (f NotifierFunc) Notify(r Reminder) error { return f(r) }

type nopNotifier struct{}

func (nopNotifier) Notify(Reminder) error { return nil }

// dispatch calls n and swallows both errors and panics.
func dispatch(n Notifier, r Reminder) {
	defer func() {
		if p := recover(); p != nil {
			appLog.Error("reminder sink panicked", fmt.Errorf("%v", p), "id", r.ItemID, "title", r.Title)
		}
	}()
	if err := n.Notify(r); err != nil {
		appLog.Error("reminder sink failed", err, "id", r.ItemID, "title", r.Title)
	}
}
