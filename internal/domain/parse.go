package domain

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

var (
	ErrInvalidTime = errors.New("invalid time")
	ErrInvalidZone = errors.New("invalid timezone")
)

// ParseWakeTime parses "HH:MM" into minutes since midnight.
func ParseWakeTime(s string) (int, error) {
	parts := strings.Split(strings.TrimSpace(s), ":")
	if len(parts) != 2 {
		return 0, fmt.Errorf("%w: expected HH:MM, got %q", ErrInvalidTime, s)
	}
	h, err := strconv.Atoi(parts[0])
	if err != nil || h < 0 || h > 23 {
		return 0, fmt.Errorf("%w: bad hour in %q", ErrInvalidTime, s)
	}
	m, err := strconv.Atoi(parts[1])
	if err != nil || m < 0 || m > 59 {
		return 0, fmt.Errorf("%w: bad minute in %q", ErrInvalidTime, s)
	}
	return h*60 + m, nil
}

// FormatMinute renders minutes since midnight as "HH:MM".
func FormatMinute(mins int) string {
	if mins < 0 {
		mins = 0
	}
	mins %= 1440
	return fmt.Sprintf("%02d:%02d", mins/60, mins%60)
}

// ValidateTimezone checks that tz names a known IANA location and returns
// its canonical name.
func ValidateTimezone(tz string) (string, error) {
	loc, err := time.LoadLocation(strings.TrimSpace(tz))
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidZone, err)
	}
	return loc.String(), nil
}
