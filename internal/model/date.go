package model

import (
	"fmt"
	"time"
)

const dateLayout = "2006-01-02"

// Date is a calendar day without a time or zone.
// The zero value is not a valid day; use IsZero to detect it.
type Date struct {
	Year  int
	Month time.Month
	Day   int
}

// NewDate returns a normalized Date, so NewDate(2024, 1, 32) is 2024-02-01.
func NewDate(year int, month time.Month, day int) Date {
	return DateOf(time.Date(year, month, day, 0, 0, 0, 0, time.UTC))
}

// DateOf returns the calendar day of t in t's own location.
func DateOf(t time.Time) Date {
	y, m, d := t.Date()
	return Date{Year: y, Month: m, Day: d}
}

// Today returns the current calendar day in loc (time.Local if nil).
func Today(loc *time.Location) Date {
	if loc == nil {
		loc = time.Local
	}
	return DateOf(time.Now().In(loc))
}

// ParseDate parses a YYYY-MM-DD string.
func ParseDate(s string) (Date, error) {
	t, err := time.Parse(dateLayout, s)
	if err != nil {
		return Date{}, fmt.Errorf("parse date %q: %w", s, err)
	}
	return DateOf(t), nil
}

func (d Date) IsZero() bool {
	return d == Date{}
}

// Time returns midnight of d in loc (UTC if nil).
func (d Date) Time(loc *time.Location) time.Time {
	if loc == nil {
		loc = time.UTC
	}
	return time.Date(d.Year, d.Month, d.Day, 0, 0, 0, 0, loc)
}

func (d Date) AddDays(n int) Date {
	return DateOf(d.Time(time.UTC).AddDate(0, 0, n))
}

// Compare returns -1, 0 or +1.
func (d Date) Compare(o Date) int {
	switch {
	case d.Year != o.Year:
		return cmpInt(d.Year, o.Year)
	case d.Month != o.Month:
		return cmpInt(int(d.Month), int(o.Month))
	default:
		return cmpInt(d.Day, o.Day)
	}
}

func (d Date) Before(o Date) bool { return d.Compare(o) < 0 }
func (d Date) After(o Date) bool  { return d.Compare(o) > 0 }

func (d Date) String() string {
	return fmt.Sprintf("%04d-%02d-%02d", d.Year, int(d.Month), d.Day)
}

func (d Date) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

func (d *Date) UnmarshalText(b []byte) error {
	parsed, err := ParseDate(string(b))
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

// TimeOfDay is a wall-clock time within a single day, stored as the offset
// from midnight. Valid values lie in [Midnight, EndOfDay].
type TimeOfDay struct {
	offset time.Duration
}

var (
	Midnight = TimeOfDay{}
	// EndOfDay is the last representable instant of a day and the maximal
	// TimeOfDay. Tasks use it as their agenda sort key.
	EndOfDay = TimeOfDay{offset: 24*time.Hour - time.Nanosecond}
)

// NewTimeOfDay clamps out-of-range components into [Midnight, EndOfDay].
func NewTimeOfDay(hour, minute, second int) TimeOfDay {
	off := time.Duration(hour)*time.Hour + time.Duration(minute)*time.Minute + time.Duration(second)*time.Second
	if off < 0 {
		return Midnight
	}
	if off > EndOfDay.offset {
		return EndOfDay
	}
	return TimeOfDay{offset: off}
}

// TimeOfDayOf returns the wall-clock time of t in t's own location.
func TimeOfDayOf(t time.Time) TimeOfDay {
	return TimeOfDay{offset: time.Duration(t.Hour())*time.Hour +
		time.Duration(t.Minute())*time.Minute +
		time.Duration(t.Second())*time.Second +
		time.Duration(t.Nanosecond())}
}

// ParseTimeOfDay accepts "15:04" or "15:04:05".
func ParseTimeOfDay(s string) (TimeOfDay, error) {
	for _, layout := range []string{"15:04", "15:04:05", "15:04:05.999999999"} {
		if t, err := time.Parse(layout, s); err == nil {
			return TimeOfDayOf(t), nil
		}
	}
	return TimeOfDay{}, fmt.Errorf("parse time of day %q: want HH:MM or HH:MM:SS", s)
}

func (t TimeOfDay) Hour() int   { return int(t.offset / time.Hour) }
func (t TimeOfDay) Minute() int { return int(t.offset % time.Hour / time.Minute) }
func (t TimeOfDay) Second() int { return int(t.offset % time.Minute / time.Second) }

// Since returns the offset from midnight.
func (t TimeOfDay) Since() time.Duration { return t.offset }

// On combines t with d in loc as a wall-clock time, so the result keeps
// its clock reading on DST transition days.
func (t TimeOfDay) On(d Date, loc *time.Location) time.Time {
	if loc == nil {
		loc = time.Local
	}
	return time.Date(d.Year, d.Month, d.Day, t.Hour(), t.Minute(), t.Second(), int(t.offset%time.Second), loc)
}

func (t TimeOfDay) Compare(o TimeOfDay) int {
	switch {
	case t.offset < o.offset:
		return -1
	case t.offset > o.offset:
		return 1
	default:
		return 0
	}
}

func (t TimeOfDay) Before(o TimeOfDay) bool { return t.offset < o.offset }

func (t TimeOfDay) String() string {
	nsec := int(t.offset % time.Second)
	switch {
	case nsec != 0:
		return fmt.Sprintf("%02d:%02d:%02d.%09d", t.Hour(), t.Minute(), t.Second(), nsec)
	case t.Second() != 0:
		return fmt.Sprintf("%02d:%02d:%02d", t.Hour(), t.Minute(), t.Second())
	default:
		return fmt.Sprintf("%02d:%02d", t.Hour(), t.Minute())
	}
}

func (t TimeOfDay) MarshalText() ([]byte, error) {
	return []byte(t.String()), nil
}

func (t *TimeOfDay) UnmarshalText(b []byte) error {
	parsed, err := ParseTimeOfDay(string(b))
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}

func cmpInt(a, b int) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}
