package domain

import (
	"fmt"
	"time"
)

// CivilDate is a timezone-free calendar date.
type CivilDate struct {
	Year  int
	Month time.Month
	Day   int
}

// DateOf extracts the calendar date of t in t's location.
func DateOf(t time.Time) CivilDate {
	y, m, d := t.Date()
	return CivilDate{Year: y, Month: m, Day: d}
}

// ParseDate parses "YYYY-MM-DD".
func ParseDate(s string) (CivilDate, error) {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		return CivilDate{}, fmt.Errorf("invalid date %q: %w", s, err)
	}
	return DateOf(t), nil
}

func (d CivilDate) String() string {
	return fmt.Sprintf("%04d-%02d-%02d", d.Year, d.Month, d.Day)
}

// In returns midnight of the date in the given location.
func (d CivilDate) In(loc *time.Location) time.Time {
	return time.Date(d.Year, d.Month, d.Day, 0, 0, 0, 0, loc)
}

// Equal reports calendar equality.
func (d CivilDate) Equal(o CivilDate) bool { return d == o }

// AddDays returns the date shifted by n calendar days.
func (d CivilDate) AddDays(n int) CivilDate {
	return DateOf(d.In(time.UTC).AddDate(0, 0, n))
}

// Weekday returns the date's day of week.
func (d CivilDate) Weekday() Weekday {
	return FromTime(d.In(time.UTC).Weekday())
}

// Schedule is a user's recurring or one-shot wake-up directive.
//
// Local parameters are authoritative and user-editable. The UTC fields are
// derived caches recomputed on every local-parameter mutation; readers must
// never observe them stale relative to the local fields.
type Schedule struct {
	ID     string
	UserID string

	// Local parameters.
	WakeMinute  int        // minutes since local midnight (0..1439)
	Timezone    string     // IANA zone name
	Weekdays    WeekdaySet // recurring only
	IsRecurring bool
	Date        *CivilDate // one-shot only

	// Derived UTC parameters, cached.
	WakeMinuteUTC int
	WeekdaysUTC   WeekdaySet // recurring only
	DateUTC       *CivilDate // one-shot only

	// Dispatch bookkeeping, owned by the dispatch coordinator.
	LastCalled         *time.Time
	LastCallStatus     *CallStatus
	LastCallExternalID string

	IsActive  bool
	CallRetry bool

	CreatedAt time.Time
	UpdatedAt time.Time
}

// Validate checks the local parameters. Malformed zones and weekday tokens
// are rejected here, at creation/update time; they never reach the poller.
func (s *Schedule) Validate() error {
	if s.UserID == "" {
		return fmt.Errorf("schedule: missing user id")
	}
	if s.WakeMinute < 0 || s.WakeMinute > 1439 {
		return fmt.Errorf("schedule: wake minute %d out of range", s.WakeMinute)
	}
	if _, err := time.LoadLocation(s.Timezone); err != nil {
		return fmt.Errorf("schedule: %w", err)
	}
	if s.IsRecurring {
		if s.Weekdays.Empty() {
			return fmt.Errorf("schedule: recurring schedule needs at least one weekday")
		}
	} else if s.Date == nil {
		return fmt.Errorf("schedule: one-shot schedule needs a date")
	}
	return nil
}
