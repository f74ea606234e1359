// Package planner lays a sequence of lessons over the instructional days of a term.
//
// Every function in this package is total: unparseable or inverted inputs produce
// empty results instead of errors, and no function mutates its arguments.
package planner

import (
	"fmt"
	"strings"
	"time"
)

// DateLayout is the calendar-date format used for inputs and day plans.
const DateLayout = "2006-01-02"

var dateLayouts = []string{
	DateLayout,
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
}

var weekdayNames = map[string]time.Weekday{
	"SUN": time.Sunday, "SUNDAY": time.Sunday,
	"MON": time.Monday, "MONDAY": time.Monday,
	"TUE": time.Tuesday, "TUESDAY": time.Tuesday,
	"WED": time.Wednesday, "WEDNESDAY": time.Wednesday,
	"THU": time.Thursday, "THURSDAY": time.Thursday,
	"FRI": time.Friday, "FRIDAY": time.Friday,
	"SAT": time.Saturday, "SATURDAY": time.Saturday,
}

// Pattern is the ordered set of instructional weekdays. The first weekday anchors
// the 7-day week buckets.
type Pattern struct {
	days []time.Weekday
	set  [7]bool
}

// NewPattern builds a pattern, dropping duplicates and out-of-range weekdays.
func NewPattern(days ...time.Weekday) Pattern {
	var p Pattern
	for _, d := range days {
		if d < time.Sunday || d > time.Saturday || p.set[d] {
			continue
		}
		p.set[d] = true
		p.days = append(p.days, d)
	}
	return p
}

// DefaultPattern is the Sunday through Thursday school week.
func DefaultPattern() Pattern {
	return NewPattern(time.Sunday, time.Monday, time.Tuesday, time.Wednesday, time.Thursday)
}

// ParsePattern reads a comma separated weekday list such as "SUN,MON,TUE".
func ParsePattern(raw string) (Pattern, error) {
	var days []time.Weekday
	for _, part := range strings.Split(raw, ",") {
		name := strings.ToUpper(strings.TrimSpace(part))
		if name == "" {
			continue
		}
		day, ok := weekdayNames[name]
		if !ok {
			return Pattern{}, fmt.Errorf("unknown weekday %q", part)
		}
		days = append(days, day)
	}
	p := NewPattern(days...)
	if p.Len() == 0 {
		return Pattern{}, fmt.Errorf("instructional day pattern is empty")
	}
	return p, nil
}

// Len returns the number of instructional weekdays.
func (p Pattern) Len() int {
	return len(p.days)
}

// Anchor returns the weekday that starts every week bucket.
func (p Pattern) Anchor() time.Weekday {
	if len(p.days) == 0 {
		return time.Sunday
	}
	return p.days[0]
}

// Contains reports whether the weekday is instructional.
func (p Pattern) Contains(day time.Weekday) bool {
	if day < time.Sunday || day > time.Saturday {
		return false
	}
	return p.set[day]
}

// Days returns a copy of the weekdays in pattern order.
func (p Pattern) Days() []time.Weekday {
	out := make([]time.Weekday, len(p.days))
	copy(out, p.days)
	return out
}

func (p Pattern) String() string {
	names := make([]string, len(p.days))
	for i, d := range p.days {
		names[i] = strings.ToUpper(d.String()[:3])
	}
	return strings.Join(names, ",")
}

// ParseDate reads a calendar date, ignoring any time-of-day component.
func ParseDate(raw string) (time.Time, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}, false
	}
	for _, layout := range dateLayouts {
		t, err := time.Parse(layout, raw)
		if err != nil {
			continue
		}
		return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC), true
	}
	return time.Time{}, false
}

// DateRange is an inclusive pair of calendar dates.
type DateRange struct {
	Start time.Time
	End   time.Time
	valid bool
}

// NewDateRange parses both ends. The range is invalid when either date fails to
// parse or the end precedes the start.
func NewDateRange(start, end string) DateRange {
	s, okStart := ParseDate(start)
	e, okEnd := ParseDate(end)
	if !okStart || !okEnd || e.Before(s) {
		return DateRange{}
	}
	return DateRange{Start: s, End: e, valid: true}
}

// Valid reports whether the range can be enumerated.
func (r DateRange) Valid() bool {
	return r.valid
}

// Days returns the number of calendar days in the range, zero when invalid.
func (r DateRange) Days() int {
	if !r.valid {
		return 0
	}
	return daysBetween(r.Start, r.End) + 1
}

// RawWeek is one 7-day bucket with the instructional days retained after clipping.
type RawWeek struct {
	Start time.Time
	Days  []time.Time
}

// Enumerate splits the range into week buckets aligned to the pattern anchor at or
// before the range start. Buckets may come back empty; callers skip them.
func Enumerate(rng DateRange, pattern Pattern) []RawWeek {
	if !rng.Valid() || pattern.Len() == 0 {
		return nil
	}
	var weeks []RawWeek
	for bucket := alignToAnchor(rng.Start, pattern.Anchor()); !bucket.After(rng.End); bucket = bucket.AddDate(0, 0, 7) {
		week := RawWeek{Start: bucket}
		for i := 0; i < 7; i++ {
			day := bucket.AddDate(0, 0, i)
			if day.Before(rng.Start) || day.After(rng.End) {
				continue
			}
			if !pattern.Contains(day.Weekday()) {
				continue
			}
			week.Days = append(week.Days, day)
		}
		weeks = append(weeks, week)
	}
	return weeks
}

func alignToAnchor(day time.Time, anchor time.Weekday) time.Time {
	offset := (int(day.Weekday()) - int(anchor) + 7) % 7
	return day.AddDate(0, 0, -offset)
}

func daysBetween(from, to time.Time) int {
	return int(to.Sub(from).Hours() / 24)
}

// formatRangeLabel renders "Sep 1 - Sep 5", adding years when the span crosses one.
func formatRangeLabel(first, last time.Time) string {
	if first.Equal(last) {
		return first.Format("Jan 2")
	}
	if first.Year() != last.Year() {
		return fmt.Sprintf("%s - %s", first.Format("Jan 2, 2006"), last.Format("Jan 2, 2006"))
	}
	return fmt.Sprintf("%s - %s", first.Format("Jan 2"), last.Format("Jan 2"))
}
