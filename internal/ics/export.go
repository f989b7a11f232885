package ics

import (
	"strconv"
	"time"

	ical "github.com/arran4/golang-ical"

	"chronos/internal/model"
)

const (
	icsDateLayout     = "20060102"
	icsDateTimeLayout = "20060102T150405Z"
	uidSuffix         = "@chronos"
)

var dateValue = &ical.KeyValues{Key: "VALUE", Value: []string{"DATE"}}

// Export renders items as a VCALENDAR: events become VEVENTs and tasks
// become VTODOs. Timed values are written in UTC after resolving them in loc.
func Export(items []model.TimelineItem, loc *time.Location, now time.Time) string {
	if loc == nil {
		loc = time.Local
	}

	cal := ical.NewCalendar()
	cal.SetMethod(ical.MethodPublish)
	cal.SetProductId("-//chronos//Timeline Export//EN")

	stamp := now.UTC().Format(icsDateTimeLayout)
	for _, it := range items {
		switch it.Kind {
		case model.KindEvent:
			if it.Event != nil {
				exportEvent(cal, it, loc, stamp)
			}
		case model.KindTask:
			if it.Task != nil {
				exportTask(cal, it, loc, stamp)
			}
		}
	}
	return cal.Serialize()
}

func exportEvent(cal *ical.Calendar, it model.TimelineItem, loc *time.Location, stamp string) {
	ev := cal.AddEvent(it.ID.String() + uidSuffix)
	ev.SetProperty(propDtStamp, stamp)
	ev.SetProperty(ical.ComponentPropertySummary, it.Title)
	if it.Details != "" {
		ev.SetProperty(ical.ComponentPropertyDescription, it.Details)
	}
	if it.Event.Location != "" {
		ev.SetProperty(ical.ComponentPropertyLocation, it.Event.Location)
	}

	if it.Event.AllDay {
		ev.SetProperty(ical.ComponentPropertyDtStart, it.Date.Time(loc).Format(icsDateLayout), dateValue)
		ev.SetProperty(ical.ComponentPropertyDtEnd, it.Date.AddDays(1).Time(loc).Format(icsDateLayout), dateValue)
		return
	}

	start := it.Event.Start.On(it.Date, loc)
	end := it.Event.End.On(it.Date, loc)
	ev.SetProperty(ical.ComponentPropertyDtStart, start.UTC().Format(icsDateTimeLayout))
	ev.SetProperty(ical.ComponentPropertyDtEnd, end.UTC().Format(icsDateTimeLayout))
}

func exportTask(cal *ical.Calendar, it model.TimelineItem, loc *time.Location, stamp string) {
	td := cal.AddTodo(it.ID.String() + uidSuffix)
	td.SetProperty(propDtStamp, stamp)
	td.SetProperty(ical.ComponentPropertySummary, it.Title)
	if it.Details != "" {
		td.SetProperty(ical.ComponentPropertyDescription, it.Details)
	}

	if it.Task.TaskTime != nil {
		td.SetProperty(ical.ComponentPropertyDtStart, it.Task.TaskTime.On(it.Date, loc).UTC().Format(icsDateTimeLayout))
	} else {
		td.SetProperty(ical.ComponentPropertyDtStart, it.Date.Time(loc).Format(icsDateLayout), dateValue)
	}

	if dl := it.Task.DeadlineDate; dl != nil {
		if at := it.Task.DeadlineTime; at != nil {
			td.SetProperty(propDue, at.On(*dl, loc).UTC().Format(icsDateTimeLayout))
		} else {
			td.SetProperty(propDue, dl.Time(loc).Format(icsDateLayout), dateValue)
		}
	}

	status := "NEEDS-ACTION"
	if it.Task.Completed {
		status = "COMPLETED"
	}
	td.SetProperty(propStatus, status)
	td.SetProperty(propPriority, strconv.Itoa(priorityToICS(it.Task.Priority)))
}
