// Package week maps instants to program weeks. Program weeks run seven
// days from a fixed epoch and need not align to calendar weeks; the
// seventh day of each program week is results day.
package week

import (
	"time"
)

// daysPerWeek is the length of a program week.
const daysPerWeek = 7

// Week describes one program week.
type Week struct {
	// Number is the 1-based program week number, monotonically
	// increasing from the epoch.
	Number int
	// Start is midnight of the week's first day in the clock's location.
	Start time.Time
	// ResultsDay is true on the week's seventh day.
	ResultsDay bool
}

// Clock derives program weeks from a fixed epoch. The zero value is not
// usable; construct with New.
type Clock struct {
	epoch time.Time
	loc   *time.Location
}

// New creates a Clock. epoch is truncated to its civil date in loc;
// that date is day one of program week one. A nil loc defaults to UTC.
func New(epoch time.Time, loc *time.Location) *Clock {
	if loc == nil {
		loc = time.UTC
	}
	e := epoch.In(loc)
	return &Clock{
		epoch: time.Date(e.Year(), e.Month(), e.Day(), 0, 0, 0, 0, loc),
		loc:   loc,
	}
}

// At returns the program week containing now. An instant exactly on a
// week boundary belongs to the new week. Instants before the epoch
// clamp to week one.
func (c *Clock) At(now time.Time) Week {
	days := c.daysSinceEpoch(now)
	if days < 0 {
		days = 0
	}

	weekIndex := days / daysPerWeek
	return Week{
		Number:     weekIndex + 1,
		Start:      c.epoch.AddDate(0, 0, weekIndex*daysPerWeek),
		ResultsDay: days%daysPerWeek == daysPerWeek-1,
	}
}

// StartOf returns midnight of the first day of the given week number.
func (c *Clock) StartOf(number int) time.Time {
	if number < 1 {
		number = 1
	}
	return c.epoch.AddDate(0, 0, (number-1)*daysPerWeek)
}

// SameDate reports whether two instants fall on the same civil date,
// ignoring location offsets. DATE columns scan back as UTC midnight
// while week starts are midnight in the program timezone, so direct
// instant comparison would misfire across offsets.
func SameDate(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}

// DateBefore reports whether a's civil date precedes b's.
func DateBefore(a, b time.Time) bool {
	if SameDate(a, b) {
		return false
	}
	return a.Format("2006-01-02") < b.Format("2006-01-02")
}

// daysSinceEpoch counts whole civil days between the epoch date and
// now's date in the clock's location. Dates are normalized to UTC
// before subtraction so daylight-saving shifts cannot skew the count.
func (c *Clock) daysSinceEpoch(now time.Time) int {
	n := now.In(c.loc)
	a := time.Date(c.epoch.Year(), c.epoch.Month(), c.epoch.Day(), 0, 0, 0, 0, time.UTC)
	b := time.Date(n.Year(), n.Month(), n.Day(), 0, 0, 0, 0, time.UTC)
	return int(b.Sub(a) / (24 * time.Hour))
}
