// Package selector decides which schedules are due inside one poll window.
// It is pure: the store narrows candidates, the selector applies the exact
// window, weekday/date and cooldown rules in memory.
package selector

import (
	"time"

	"github.com/mliyanage/kickass-morning-sub000/internal/domain"
)

// Selector holds the tuning knobs for due-schedule selection.
type Selector struct {
	// Window is the backward-looking match width [T-Window, T]. Must be at
	// least the poll interval (plus slack) so tick drift cannot skip an
	// occurrence.
	Window time.Duration
	// Cooldown suppresses re-dispatch of the same occurrence across
	// overlapping windows. Must exceed the full window width: an
	// occurrence matches every tick while the window covers it, and
	// lastCalled is stamped with tick time.
	Cooldown time.Duration
}

// New constructs a Selector for the given poll interval.
func New(pollInterval, slack, cooldown time.Duration) Selector {
	return Selector{Window: pollInterval + slack, Cooldown: cooldown}
}

// Due returns the schedules due at nowUTC, de-duplicated by id. Input order
// is preserved; no ordering guarantee is implied between schedules.
func (s Selector) Due(nowUTC time.Time, candidates []domain.Schedule) []domain.Schedule {
	w := domain.WindowEnding(nowUTC, s.Window)

	var due []domain.Schedule
	seen := make(map[string]struct{}, len(candidates))
	for _, sch := range candidates {
		if _, dup := seen[sch.ID]; dup {
			continue
		}
		if !s.matches(w, &sch) {
			continue
		}
		if !s.eligible(nowUTC, &sch) {
			continue
		}
		seen[sch.ID] = struct{}{}
		due = append(due, sch)
	}
	return due
}

// matches applies the window and weekday/date rules. An in-window minute in
// the pre-midnight segment of a wrapping window belongs to the previous UTC
// day, so that day's weekday/date is what the schedule must match.
func (s Selector) matches(w domain.Window, sch *domain.Schedule) bool {
	if !sch.IsActive {
		return false
	}
	if !w.Contains(sch.WakeMinuteUTC) {
		return false
	}
	day := w.DayFor(sch.WakeMinuteUTC)
	if sch.IsRecurring {
		return sch.WeekdaysUTC.Has(day.Weekday())
	}
	return sch.DateUTC != nil && sch.DateUTC.Equal(day)
}

// eligible applies the cooldown/retry filter. A schedule attempted within
// the cooldown stays blocked for the rest of the occurrence unless its last
// outcome was a terminal failure and the user opted into retries.
func (s Selector) eligible(nowUTC time.Time, sch *domain.Schedule) bool {
	if sch.LastCalled == nil {
		return true
	}
	if nowUTC.Sub(*sch.LastCalled) >= s.Cooldown {
		return true
	}
	if sch.LastCallStatus == nil {
		return false
	}
	return sch.CallRetry && sch.LastCallStatus.RetryEligible()
}
