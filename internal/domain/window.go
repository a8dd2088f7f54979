package domain

import "time"

// Window is a backward-looking poll window [end-width, end] projected onto
// UTC minute-of-day. When the window crosses 00:00 UTC the start minute is
// numerically greater than the end minute and matching becomes an OR of two
// half-day ranges instead of a single AND range.
type Window struct {
	StartMin int // inclusive
	EndMin   int // inclusive
	Wraps    bool
	EndDate  CivilDate // UTC date at the window's end instant
}

// WindowEnding builds the poll window ending at endUTC. Width must be
// positive and below 24h; the driver's poll interval plus slack satisfies
// both by construction.
func WindowEnding(endUTC time.Time, width time.Duration) Window {
	end := endUTC.UTC()
	start := end.Add(-width)
	w := Window{
		StartMin: start.Hour()*60 + start.Minute(),
		EndMin:   end.Hour()*60 + end.Minute(),
		EndDate:  DateOf(end),
	}
	w.Wraps = !DateOf(start).Equal(w.EndDate)
	return w
}

// Contains reports whether a UTC minute-of-day falls inside the window.
func (w Window) Contains(min int) bool {
	if !w.Wraps {
		return min >= w.StartMin && min <= w.EndMin
	}
	return min >= w.StartMin || min <= w.EndMin
}

// DayFor returns the UTC calendar day an in-window minute belongs to. In a
// wrapping window the pre-midnight segment belongs to the previous UTC day,
// which is the day weekday/date matching must use for those minutes.
func (w Window) DayFor(min int) CivilDate {
	if w.Wraps && min >= w.StartMin {
		return w.EndDate.AddDays(-1)
	}
	return w.EndDate
}
