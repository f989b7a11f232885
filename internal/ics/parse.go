package ics

import (
	"bytes"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	ical "github.com/arran4/golang-ical"

	appLog "chronos/internal/log"
)

// Raw property names used where the library has no stable constant.
const (
	propRecurrenceID ical.ComponentProperty = "RECURRENCE-ID"
	propDue          ical.ComponentProperty = "DUE"
	propStatus       ical.ComponentProperty = "STATUS"
	propPriority     ical.ComponentProperty = "PRIORITY"
	propDtStamp      ical.ComponentProperty = "DTSTAMP"
)

// ParsedEvent is the normalized representation of a VEVENT. Recurrence
// expansion operates on this type.
type ParsedEvent struct {
	Source Source

	UID string
	Seq int

	Summary     string
	Description string
	Location    string

	Start  time.Time
	End    time.Time
	AllDay bool

	RawRRule   string
	ExDates    []time.Time
	Recurrence *time.Time // RECURRENCE-ID (if present) in event's own timezone
	IsOverride bool       // true if this VEVENT overrides one recurring instance
}

// ParsedTodo is the normalized representation of a VTODO.
type ParsedTodo struct {
	Source Source

	UID         string
	Summary     string
	Description string

	// Start is DTSTART, zero when absent. StartHasTime is false for VALUE=DATE.
	Start        time.Time
	StartHasTime bool
	// Due is DUE, zero when absent. DueHasTime is false for VALUE=DATE.
	Due        time.Time
	DueHasTime bool

	Completed bool
	// Priority is the RFC 5545 value, 0 meaning undefined.
	Priority int
}

// Parsed is everything a single ICS payload yielded.
type Parsed struct {
	Events []ParsedEvent
	Todos  []ParsedTodo
}

// ParseICS parses a single ICS payload.
//
//   - All-day events are detected from VALUE=DATE or a date-only DTSTART.
//   - RRULE/EXDATE/RECURRENCE-ID are recorded but not expanded; see
//     ExpandOccurrences.
//   - Malformed components are logged and skipped.
func ParseICS(src Source, body []byte) (Parsed, error) {
	var out Parsed
	if len(body) == 0 {
		return out, errors.New("empty ICS body")
	}

	cal, err := ical.ParseCalendar(bytes.NewReader(body))
	if err != nil {
		appLog.Error("ics parse failed", err, "id", src.ID, "url", redactURL(src.URL))
		return out, fmt.Errorf("parse calendar: %w", err)
	}

	for _, comp := range cal.Events() {
		ev, perr := parseVEvent(src, comp)
		if perr != nil {
			appLog.Error("ics vevent parse failed", perr, "id", src.ID)
			continue
		}
		out.Events = append(out.Events, ev)
	}

	for _, comp := range cal.Todos() {
		td, perr := parseVTodo(src, comp)
		if perr != nil {
			appLog.Error("ics vtodo parse failed", perr, "id", src.ID)
			continue
		}
		out.Todos = append(out.Todos, td)
	}

	appLog.Info("ics parse completed",
		"id", src.ID,
		"url", redactURL(src.URL),
		"event_count", len(out.Events),
		"todo_count", len(out.Todos),
	)
	return out, nil
}

func parseVEvent(src Source, ve *ical.VEvent) (ParsedEvent, error) {
	var out ParsedEvent
	out.Source = src

	uidProp := ve.GetProperty(ical.ComponentPropertyUniqueId)
	if uidProp == nil || uidProp.Value == "" {
		return out, errors.New("missing UID")
	}
	out.UID = uidProp.Value

	if seqProp := ve.GetProperty(ical.ComponentPropertySequence); seqProp != nil {
		if n, err := strconv.Atoi(strings.TrimSpace(seqProp.Value)); err == nil {
			out.Seq = n
		}
	}

	out.Summary = propValue(ve.GetProperty(ical.ComponentPropertySummary))
	out.Description = propValue(ve.GetProperty(ical.ComponentPropertyDescription))
	out.Location = propValue(ve.GetProperty(ical.ComponentPropertyLocation))

	startProp := ve.GetProperty(ical.ComponentPropertyDtStart)
	if startProp == nil {
		return out, fmt.Errorf("event %s: missing DTSTART", out.UID)
	}
	start, allDay, err := propTime(startProp)
	if err != nil {
		return out, fmt.Errorf("event %s: DTSTART: %w", out.UID, err)
	}
	out.Start = start
	out.AllDay = allDay

	switch endProp := ve.GetProperty(ical.ComponentPropertyDtEnd); {
	case endProp != nil:
		end, _, err := propTime(endProp)
		if err != nil {
			return out, fmt.Errorf("event %s: DTEND: %w", out.UID, err)
		}
		out.End = end
	case allDay:
		out.End = start.AddDate(0, 0, 1)
	default:
		out.End = start
	}

	if rruleProp := ve.GetProperty(ical.ComponentPropertyRrule); rruleProp != nil {
		out.RawRRule = rruleProp.Value
	}

	// EXDATE can appear multiple times and hold comma-separated values.
	for _, p := range ve.GetProperties(ical.ComponentPropertyExdate) {
		loc := paramLocation(p)
		for _, part := range strings.Split(p.Value, ",") {
			part = strings.TrimSpace(part)
			if part == "" {
				continue
			}
			if t, err := parseICSTime(part, loc); err == nil {
				out.ExDates = append(out.ExDates, t)
			}
		}
	}

	if ridProp := ve.GetProperty(propRecurrenceID); ridProp != nil {
		if t, err := parseICSTime(ridProp.Value, paramLocation(ridProp)); err == nil {
			out.Recurrence = &t
			out.IsOverride = true
		}
	}

	return out, nil
}

func parseVTodo(src Source, vt *ical.VTodo) (ParsedTodo, error) {
	var out ParsedTodo
	out.Source = src

	uidProp := vt.GetProperty(ical.ComponentPropertyUniqueId)
	if uidProp == nil || uidProp.Value == "" {
		return out, errors.New("missing UID")
	}
	out.UID = uidProp.Value
	out.Summary = propValue(vt.GetProperty(ical.ComponentPropertySummary))
	out.Description = propValue(vt.GetProperty(ical.ComponentPropertyDescription))

	if p := vt.GetProperty(ical.ComponentPropertyDtStart); p != nil {
		t, dateOnly, err := propTime(p)
		if err != nil {
			return out, fmt.Errorf("todo %s: DTSTART: %w", out.UID, err)
		}
		out.Start = t
		out.StartHasTime = !dateOnly
	}
	if p := vt.GetProperty(propDue); p != nil {
		t, dateOnly, err := propTime(p)
		if err != nil {
			return out, fmt.Errorf("todo %s: DUE: %w", out.UID, err)
		}
		out.Due = t
		out.DueHasTime = !dateOnly
	}
	if p := vt.GetProperty(propStatus); p != nil {
		out.Completed = strings.EqualFold(strings.TrimSpace(p.Value), "COMPLETED")
	}
	if p := vt.GetProperty(propPriority); p != nil {
		if n, err := strconv.Atoi(strings.TrimSpace(p.Value)); err == nil {
			out.Priority = n
		}
	}
	return out, nil
}

func propValue(p *ical.IANAProperty) string {
	if p == nil {
		return ""
	}
	return p.Value
}

// propTime parses a DATE or DATE-TIME property, honoring VALUE=DATE and
// TZID. The bool reports a date-only value.
func propTime(p *ical.IANAProperty) (time.Time, bool, error) {
	val := strings.TrimSpace(p.Value)
	dateOnly := !strings.Contains(val, "T")
	if vs, ok := p.ICalParameters["VALUE"]; ok && len(vs) > 0 && strings.EqualFold(vs[0], "DATE") {
		dateOnly = true
	}
	t, err := parseICSTime(val, paramLocation(p))
	if err != nil {
		return time.Time{}, false, err
	}
	return t, dateOnly, nil
}

// paramLocation returns the zone named by TZID, or time.Local.
func paramLocation(p *ical.IANAProperty) *time.Location {
	tzs, ok := p.ICalParameters["TZID"]
	if !ok || len(tzs) == 0 {
		return time.Local
	}
	loc, err := time.LoadLocation(tzs[0])
	if err != nil {
		appLog.Debug("unknown TZID; using local", "tzid", tzs[0])
		return time.Local
	}
	return loc
}

// parseICSTime parses basic ICS date/date-time forms. Floating values are
// interpreted in loc.
func parseICSTime(v string, loc *time.Location) (time.Time, error) {
	v = strings.TrimSpace(v)
	if v == "" {
		return time.Time{}, errors.New("empty time value")
	}
	if loc == nil {
		loc = time.Local
	}

	// UTC form, e.g., 20250101T090000Z
	if strings.HasSuffix(v, "Z") {
		return time.Parse("20060102T150405Z", v)
	}
	// Local date-time, e.g., 20250101T090000
	if strings.Contains(v, "T") {
		return time.ParseInLocation("20060102T150405", v, loc)
	}
	// Date-only (all-day), e.g., 20250101
	return time.ParseInLocation("20060102", v, loc)
}
