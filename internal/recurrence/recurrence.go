// Package recurrence decides at which times a task template is due on a
// given date. It is pure: it reads only the template (with its schedules and
// group preloaded), the date, and the configured default time.
package recurrence

import (
	"sort"
	"strings"
	"time"

	"github.com/zulandar/caretaker/internal/apperr"
	"github.com/zulandar/caretaker/internal/models"
)

// Date and clock layouts used throughout the store.
const (
	DateLayout  = "2006-01-02"
	ClockLayout = "15:04"
)

// AllDays matches every day of the week in TaskSchedule.DayOfWeek.
const AllDays = "all"

var dayCodes = [...]string{"sun", "mon", "tue", "wed", "thu", "fri", "sat"}

// Occurrence is one (date, time) at which a template is due.
type Occurrence struct {
	Date string
	Time string
}

// ParseDate validates a YYYY-MM-DD date.
func ParseDate(s string) (time.Time, error) {
	d, err := time.Parse(DateLayout, s)
	if err != nil {
		return time.Time{}, apperr.Invalid("date", "%q is not YYYY-MM-DD", s)
	}
	return d, nil
}

// ParseClock validates a zero-padded HH:MM time and returns it unchanged.
func ParseClock(s string) (string, error) {
	if len(s) != len(ClockLayout) {
		return "", apperr.Invalid("time", "%q is not HH:MM", s)
	}
	if _, err := time.Parse(ClockLayout, s); err != nil {
		return "", apperr.Invalid("time", "%q is not HH:MM", s)
	}
	return s, nil
}

// ParseDay normalizes a day-of-week code (mon..sun or all). Full English
// day names are accepted too.
func ParseDay(s string) (string, error) {
	d := strings.ToLower(strings.TrimSpace(s))
	if d == AllDays {
		return d, nil
	}
	for i, code := range dayCodes {
		if d == code || d == strings.ToLower(time.Weekday(i).String()) {
			return code, nil
		}
	}
	return "", apperr.Invalid("day_of_week", "%q must be mon..sun or all", s)
}

// Weekday returns the day code for a date.
func Weekday(d time.Time) string {
	return dayCodes[d.Weekday()]
}

// Resolver computes occurrences. DefaultTime is used for all-slots templates
// without a group.
type Resolver struct {
	DefaultTime string
}

// Due returns the occurrences of tmpl on date, deduplicated and sorted by
// time. Zero occurrences is not an error.
func (r Resolver) Due(tmpl *models.TaskTemplate, date string) ([]Occurrence, error) {
	d, err := ParseDate(date)
	if err != nil {
		return nil, err
	}

	if tmpl.AppliesAllTimeSlots {
		at := r.DefaultTime
		if tmpl.Group != nil {
			at = tmpl.Group.StartTime
		}
		if _, err := ParseClock(at); err != nil {
			return nil, err
		}
		return []Occurrence{{Date: date, Time: at}}, nil
	}

	day := Weekday(d)
	seen := make(map[string]bool)
	var out []Occurrence
	for _, s := range tmpl.Schedules {
		if s.DayOfWeek != day && s.DayOfWeek != AllDays {
			continue
		}
		if seen[s.Time] {
			continue
		}
		seen[s.Time] = true
		out = append(out, Occurrence{Date: date, Time: s.Time})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Time < out[j].Time })
	return out, nil
}
