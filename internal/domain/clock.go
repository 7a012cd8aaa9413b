package domain

import (
	"fmt"
	"time"
)

const (
	DateLayout  = "2006-01-02"
	ClockLayout = "15:04"
)

// Clock is a wall-clock time of day in "15:04" form. Values are zero padded,
// so lexical order in SQL matches chronological order.
type Clock string

func ParseClock(s string) (Clock, error) {
	t, err := time.Parse(ClockLayout, s)
	if err != nil {
		return "", fmt.Errorf("invalid time of day %q: expected HH:MM", s)
	}
	return Clock(t.Format(ClockLayout)), nil
}

func MustClock(s string) Clock {
	c, err := ParseClock(s)
	if err != nil {
		panic(err)
	}
	return c
}

// Minutes returns minutes since midnight, or -1 when the value is malformed.
func (c Clock) Minutes() int {
	t, err := time.Parse(ClockLayout, string(c))
	if err != nil {
		return -1
	}
	return t.Hour()*60 + t.Minute()
}

func (c Clock) String() string { return string(c) }

// ParseDate accepts a calendar date in "2006-01-02" form.
func ParseDate(s string) (time.Time, error) {
	d, err := time.Parse(DateLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q: expected YYYY-MM-DD", s)
	}
	return d, nil
}

// Slot is a half-open [Start, End) window on a single date.
type Slot struct {
	Date  string `json:"date"`
	Start Clock  `json:"start_time"`
	End   Clock  `json:"end_time"`
}

// Overlaps reports whether [a,b) and [c,d) intersect: a < d && b > c.
func (s Slot) Overlaps(o Slot) bool {
	if s.Date != o.Date {
		return false
	}
	return s.Start.Minutes() < o.End.Minutes() && s.End.Minutes() > o.Start.Minutes()
}

func (s Slot) Duration() time.Duration {
	return time.Duration(s.End.Minutes()-s.Start.Minutes()) * time.Minute
}

// StartIn returns the absolute start instant of the slot in loc.
func (s Slot) StartIn(loc *time.Location) (time.Time, error) {
	d, err := ParseDate(s.Date)
	if err != nil {
		return time.Time{}, err
	}
	m := s.Start.Minutes()
	if m < 0 {
		return time.Time{}, fmt.Errorf("invalid start time %q", s.Start)
	}
	return time.Date(d.Year(), d.Month(), d.Day(), m/60, m%60, 0, 0, loc), nil
}
