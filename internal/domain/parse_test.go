package domain

import (
	"errors"
	"testing"
)

func TestParseWakeTime(t *testing.T) {
	cases := []struct {
		in   string
		want int
		ok   bool
	}{
		{"06:30", 390, true},
		{"00:00", 0, true},
		{"23:59", 1439, true},
		{" 7:05 ", 425, true},
		{"24:00", 0, false},
		{"12:60", 0, false},
		{"noon", 0, false},
		{"", 0, false},
	}
	for _, tc := range cases {
		got, err := ParseWakeTime(tc.in)
		if tc.ok && (err != nil || got != tc.want) {
			t.Fatalf("%q: want %d, got %d err=%v", tc.in, tc.want, got, err)
		}
		if !tc.ok && err == nil {
			t.Fatalf("%q: want error", tc.in)
		}
		if !tc.ok && !errors.Is(err, ErrInvalidTime) {
			t.Fatalf("%q: want ErrInvalidTime, got %v", tc.in, err)
		}
	}
}

func TestFormatMinute(t *testing.T) {
	if got := FormatMinute(390); got != "06:30" {
		t.Fatalf("got %s", got)
	}
	if got := FormatMinute(0); got != "00:00" {
		t.Fatalf("got %s", got)
	}
	if got := FormatMinute(1439); got != "23:59" {
		t.Fatalf("got %s", got)
	}
}

func TestValidateTimezone(t *testing.T) {
	got, err := ValidateTimezone("Australia/Sydney")
	if err != nil || got != "Australia/Sydney" {
		t.Fatalf("got %q err=%v", got, err)
	}
	if _, err := ValidateTimezone("Atlantis/Central"); !errors.Is(err, ErrInvalidZone) {
		t.Fatalf("want ErrInvalidZone, got %v", err)
	}
}

func TestParseWeekdaySet(t *testing.T) {
	set, err := ParseWeekdaySet("mon,wed,fri")
	if err != nil {
		t.Fatal(err)
	}
	if !set.Has(Weekday(1)) || !set.Has(Weekday(3)) || !set.Has(Weekday(5)) {
		t.Fatalf("got %s", set)
	}
	if set.Has(Weekday(0)) {
		t.Fatal("sun must not be set")
	}
	if set.String() != "mon,wed,fri" {
		t.Fatalf("round trip gave %s", set)
	}

	if _, err := ParseWeekdaySet("mon,funday"); !errors.Is(err, ErrInvalidWeekday) {
		t.Fatalf("want ErrInvalidWeekday, got %v", err)
	}
	empty, err := ParseWeekdaySet("")
	if err != nil || !empty.Empty() {
		t.Fatalf("empty input: got %s err=%v", empty, err)
	}
}

func TestParseWeekday_LongTokens(t *testing.T) {
	d, err := ParseWeekday("Monday")
	if err != nil || d != Weekday(1) {
		t.Fatalf("got %v err=%v", d, err)
	}
}
