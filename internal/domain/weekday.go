package domain

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// Weekday is a day-of-week token ("mon".."sun"). Internally it mirrors
// time.Weekday numbering (Sunday = 0) so projections stay trivial.
type Weekday int

var weekdayTokens = [7]string{"sun", "mon", "tue", "wed", "thu", "fri", "sat"}

// ErrInvalidWeekday is returned for unknown weekday tokens.
var ErrInvalidWeekday = errors.New("invalid weekday")

// ParseWeekday parses a single token like "mon" or "monday".
func ParseWeekday(s string) (Weekday, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if len(s) > 3 {
		s = s[:3]
	}
	for i, tok := range weekdayTokens {
		if s == tok {
			return Weekday(i), nil
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrInvalidWeekday, s)
}

func (w Weekday) String() string {
	if w < 0 || w > 6 {
		return "???"
	}
	return weekdayTokens[w]
}

// Time returns the equivalent time.Weekday.
func (w Weekday) Time() time.Weekday { return time.Weekday(w) }

// FromTime converts a time.Weekday.
func FromTime(wd time.Weekday) Weekday { return Weekday(wd) }

// WeekdaySet is a bitmask of weekdays. The zero value is the empty set.
type WeekdaySet uint8

// NewWeekdaySet builds a set from individual weekdays.
func NewWeekdaySet(days ...Weekday) WeekdaySet {
	var s WeekdaySet
	for _, d := range days {
		s = s.Add(d)
	}
	return s
}

// ParseWeekdaySet parses a comma-separated token list ("mon,wed,fri").
// An empty string yields the empty set.
func ParseWeekdaySet(s string) (WeekdaySet, error) {
	var set WeekdaySet
	s = strings.TrimSpace(s)
	if s == "" {
		return set, nil
	}
	for _, part := range strings.Split(s, ",") {
		d, err := ParseWeekday(part)
		if err != nil {
			return 0, err
		}
		set = set.Add(d)
	}
	return set, nil
}

// Add returns the set with d included.
func (s WeekdaySet) Add(d Weekday) WeekdaySet { return s | 1<<uint(d) }

// Has reports whether d is in the set.
func (s WeekdaySet) Has(d Weekday) bool { return s&(1<<uint(d)) != 0 }

// HasTime reports whether the time.Weekday is in the set.
func (s WeekdaySet) HasTime(wd time.Weekday) bool { return s.Has(FromTime(wd)) }

// Empty reports whether no weekday is set.
func (s WeekdaySet) Empty() bool { return s == 0 }

// Days returns the contained weekdays in Sunday-first order.
func (s WeekdaySet) Days() []Weekday {
	var out []Weekday
	for d := Weekday(0); d < 7; d++ {
		if s.Has(d) {
			out = append(out, d)
		}
	}
	return out
}

// String serializes the set as comma-separated tokens. Used only at the
// storage boundary; in-memory code works with the bitmask.
func (s WeekdaySet) String() string {
	days := s.Days()
	toks := make([]string, len(days))
	for i, d := range days {
		toks[i] = d.String()
	}
	return strings.Join(toks, ",")
}
