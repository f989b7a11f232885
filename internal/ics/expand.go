package ics

import (
	"errors"
	"time"

	"github.com/teambition/rrule-go"

	appLog "chronos/internal/log"
)

const (
	defaultMaxOccurrencesPerEvent = 5000
)

// Occurrence is one concrete instance of an event after recurrence
// expansion, normalized into the display zone.
type Occurrence struct {
	SourceID string
	UID      string

	// InstanceKey identifies this occurrence among its siblings; it is
	// derived from the original (pre-override) start.
	InstanceKey string

	Summary     string
	Description string
	Location    string

	AllDay bool
	Start  time.Time
	End    time.Time
}

// ExpandConfig controls how recurrence expansion is performed.
type ExpandConfig struct {
	// DisplayLocation is the zone occurrences are converted to; nil means
	// time.Local.
	DisplayLocation *time.Location

	// RangeStart / RangeEnd bound the occurrences, inclusive.
	RangeStart time.Time
	RangeEnd   time.Time

	// MaxOccurrencesPerEvent caps expansion of a single UID. Zero uses
	// defaultMaxOccurrencesPerEvent.
	MaxOccurrencesPerEvent int
}

// ExpandResult wraps the expanded occurrences and the UIDs that hit the cap.
type ExpandResult struct {
	Occurrences     []Occurrence
	TruncatedEvents []string
}

// ExpandOccurrences expands events into concrete occurrences within the
// configured range, applying RRULE, EXDATE and RECURRENCE-ID overrides.
func ExpandOccurrences(events []ParsedEvent, cfg ExpandConfig) (ExpandResult, error) {
	var result ExpandResult

	if cfg.RangeEnd.Before(cfg.RangeStart) {
		return result, errors.New("expand: RangeEnd is before RangeStart")
	}
	if cfg.DisplayLocation == nil {
		cfg.DisplayLocation = time.Local
	}
	if cfg.MaxOccurrencesPerEvent <= 0 {
		cfg.MaxOccurrencesPerEvent = defaultMaxOccurrencesPerEvent
	}

	// Group base events and overrides by UID, preserving first-seen order
	// so output is deterministic.
	var order []string
	baseByUID := make(map[string][]ParsedEvent)
	overridesByUID := make(map[string][]ParsedEvent)

	for _, ev := range events {
		if ev.IsOverride && ev.Recurrence != nil {
			overridesByUID[ev.UID] = append(overridesByUID[ev.UID], ev)
			continue
		}
		if _, seen := baseByUID[ev.UID]; !seen {
			order = append(order, ev.UID)
		}
		baseByUID[ev.UID] = append(baseByUID[ev.UID], ev)
	}

	for _, uid := range order {
		ov := overridesByUID[uid]
		truncated := false

		for _, ev := range baseByUID[uid] {
			var occ []Occurrence
			if ev.RawRRule == "" {
				occ = expandSingleEvent(ev, ov, cfg)
			} else {
				var hitCap bool
				occ, hitCap = expandRecurringEvent(ev, ov, cfg)
				truncated = truncated || hitCap
			}
			result.Occurrences = append(result.Occurrences, occ...)
		}

		if truncated {
			result.TruncatedEvents = append(result.TruncatedEvents, uid)
			appLog.Error("expand: truncated occurrences for UID due to cap",
				errors.New("max occurrences reached"),
				"uid", uid,
				"cap", cfg.MaxOccurrencesPerEvent,
			)
		}
	}

	return result, nil
}

func expandSingleEvent(ev ParsedEvent, overrides []ParsedEvent, cfg ExpandConfig) []Occurrence {
	if !timeRangesOverlap(ev.Start, ev.End, cfg.RangeStart, cfg.RangeEnd) {
		return nil
	}
	key := ev.Start
	if o, ok := findOverrideForStart(overrides, ev.Start); ok {
		ev = o
	}
	return []Occurrence{makeOccurrence(ev, key, ev.Start, ev.End, cfg.DisplayLocation)}
}

func expandRecurringEvent(ev ParsedEvent, overrides []ParsedEvent, cfg ExpandConfig) ([]Occurrence, bool) {
	r, err := rrule.StrToRRule(ev.RawRRule)
	if err != nil {
		appLog.Error("expand: failed to parse RRULE", err, "uid", ev.UID, "rrule", ev.RawRRule)
		return nil, false
	}
	r.DTStart(ev.Start)

	var set rrule.Set
	set.RRule(r)
	for _, ex := range ev.ExDates {
		set.ExDate(ex.In(ev.Start.Location()))
	}

	rangeStart := cfg.RangeStart.In(ev.Start.Location())
	rangeEnd := cfg.RangeEnd.In(ev.Start.Location())
	occTimes := set.Between(rangeStart, rangeEnd, true)

	hitCap := false
	if len(occTimes) > cfg.MaxOccurrencesPerEvent {
		occTimes = occTimes[:cfg.MaxOccurrencesPerEvent]
		hitCap = true
	}

	dur := ev.End.Sub(ev.Start)
	out := make([]Occurrence, 0, len(occTimes))
	for _, occStart := range occTimes {
		var occEnd time.Time
		if ev.AllDay {
			occStart = time.Date(occStart.Year(), occStart.Month(), occStart.Day(), 0, 0, 0, 0, occStart.Location())
			occEnd = occStart.AddDate(0, 0, 1)
		} else {
			occEnd = occStart.Add(dur)
		}

		inst := ev
		inst.Start, inst.End = occStart, occEnd
		if o, ok := findOverrideForStart(overrides, occStart); ok {
			inst = o
		}
		out = append(out, makeOccurrence(inst, occStart, inst.Start, inst.End, cfg.DisplayLocation))
	}

	return out, hitCap
}

// findOverrideForStart finds an override whose RECURRENCE-ID equals start.
func findOverrideForStart(overrides []ParsedEvent, start time.Time) (ParsedEvent, bool) {
	for _, ov := range overrides {
		if ov.Recurrence != nil && ov.Recurrence.Equal(start) {
			return ov, true
		}
	}
	return ParsedEvent{}, false
}

func makeOccurrence(ev ParsedEvent, key, start, end time.Time, displayLoc *time.Location) Occurrence {
	startLocal := start.In(displayLoc)
	endLocal := end.In(displayLoc)
	if ev.AllDay {
		// All-day values are floating dates; keep the calendar day.
		startLocal = time.Date(start.Year(), start.Month(), start.Day(), 0, 0, 0, 0, displayLoc)
		endLocal = time.Date(end.Year(), end.Month(), end.Day(), 0, 0, 0, 0, displayLoc)
	}

	return Occurrence{
		SourceID:    ev.Source.ID,
		UID:         ev.UID,
		InstanceKey: key.UTC().Format(time.RFC3339Nano),
		Summary:     ev.Summary,
		Description: ev.Description,
		Location:    ev.Location,
		AllDay:      ev.AllDay,
		Start:       startLocal,
		End:         endLocal,
	}
}

func timeRangesOverlap(aStart, aEnd, bStart, bEnd time.Time) bool {
	return !aEnd.Before(bStart) && !bEnd.Before(aStart)
}
