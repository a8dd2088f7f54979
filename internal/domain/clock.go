package domain

import (
	"fmt"
	"time"
)

// This file is the time-resolution layer. All conversions are anchored to a
// concrete calendar date and go through the IANA zone database, so DST is
// handled per-occurrence. Offsets are never cached or reverse-engineered
// from formatted strings.

// LocalToUTC resolves a local wake time on a concrete calendar date to its
// UTC equivalent: minute-of-day, weekday and date.
func LocalToUTC(wakeMinute int, zone string, date CivilDate) (utcMinute int, utcWeekday Weekday, utcDate CivilDate, err error) {
	loc, err := time.LoadLocation(zone)
	if err != nil {
		return 0, 0, CivilDate{}, fmt.Errorf("%w: %v", ErrInvalidZone, err)
	}
	local := time.Date(date.Year, date.Month, date.Day, wakeMinute/60, wakeMinute%60, 0, 0, loc)
	u := local.UTC()
	return u.Hour()*60 + u.Minute(), FromTime(u.Weekday()), DateOf(u), nil
}

// NextOccurrence returns the earliest local date-time at or after ref whose
// weekday is wd and whose time of day is wakeMinute, in loc.
func NextOccurrence(ref time.Time, loc *time.Location, wd Weekday, wakeMinute int) time.Time {
	localRef := ref.In(loc)
	candidate := time.Date(localRef.Year(), localRef.Month(), localRef.Day(),
		wakeMinute/60, wakeMinute%60, 0, 0, loc)
	for i := 0; i < 8; i++ {
		if candidate.Weekday() == wd.Time() && !candidate.Before(localRef) {
			return candidate
		}
		// Re-derive from the date to stay DST-safe across the step.
		d := DateOf(candidate).AddDays(1)
		candidate = time.Date(d.Year, d.Month, d.Day, wakeMinute/60, wakeMinute%60, 0, 0, loc)
	}
	return candidate
}

// ProjectWeekdays maps a set of local weekdays to their UTC equivalents for
// the given wake time. Each weekday is projected individually through a
// representative upcoming occurrence: the UTC day can differ from the local
// day (early local times east of UTC land on the previous UTC day), and two
// local days can collapse onto one UTC day, so projecting the set as a
// whole would be wrong.
func ProjectWeekdays(local WeekdaySet, zone string, wakeMinute int, ref time.Time) (WeekdaySet, error) {
	loc, err := time.LoadLocation(zone)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrInvalidZone, err)
	}
	var out WeekdaySet
	for _, d := range local.Days() {
		occ := NextOccurrence(ref, loc, d, wakeMinute)
		out = out.Add(FromTime(occ.UTC().Weekday()))
	}
	return out, nil
}

// RecomputeUTC refreshes the derived UTC fields from the local fields,
// anchored at ref. Stores call this before every persisted create/update so
// readers never observe derived fields stale relative to local ones.
func (s *Schedule) RecomputeUTC(ref time.Time) error {
	if err := s.Validate(); err != nil {
		return err
	}
	if s.IsRecurring {
		loc, err := time.LoadLocation(s.Timezone)
		if err != nil {
			return fmt.Errorf("%w: %v", ErrInvalidZone, err)
		}
		// Anchor the cached UTC minute to the earliest upcoming occurrence
		// across the weekday set.
		var anchor time.Time
		for _, d := range s.Weekdays.Days() {
			occ := NextOccurrence(ref, loc, d, s.WakeMinute)
			if anchor.IsZero() || occ.Before(anchor) {
				anchor = occ
			}
		}
		u := anchor.UTC()
		s.WakeMinuteUTC = u.Hour()*60 + u.Minute()
		set, err := ProjectWeekdays(s.Weekdays, s.Timezone, s.WakeMinute, ref)
		if err != nil {
			return err
		}
		s.WeekdaysUTC = set
		s.DateUTC = nil
		return nil
	}
	utcMinute, _, utcDate, err := LocalToUTC(s.WakeMinute, s.Timezone, *s.Date)
	if err != nil {
		return err
	}
	s.WakeMinuteUTC = utcMinute
	s.DateUTC = &utcDate
	s.WeekdaysUTC = 0
	return nil
}
