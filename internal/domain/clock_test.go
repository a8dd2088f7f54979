package domain

import (
	"testing"
	"time"
)

func mustDate(t *testing.T, s string) CivilDate {
	t.Helper()
	d, err := ParseDate(s)
	if err != nil {
		t.Fatalf("parse date %s: %v", s, err)
	}
	return d
}

func TestLocalToUTC_SydneyWinter(t *testing.T) {
	// Monday 2025-08-11 01:00 in Sydney (AEST, UTC+10) is Sunday 15:00 UTC.
	utcMin, utcWD, utcDate, err := LocalToUTC(60, "Australia/Sydney", mustDate(t, "2025-08-11"))
	if err != nil {
		t.Fatalf("LocalToUTC: %v", err)
	}
	if utcMin != 15*60 {
		t.Fatalf("want 900 (15:00), got %d", utcMin)
	}
	if utcWD.String() != "sun" {
		t.Fatalf("want sun, got %s", utcWD)
	}
	if !utcDate.Equal(mustDate(t, "2025-08-10")) {
		t.Fatalf("want 2025-08-10, got %s", utcDate)
	}
}

func TestLocalToUTC_DSTTransition(t *testing.T) {
	// America/New_York springs forward on 2025-03-09. The same local time
	// on adjacent dates resolves to different UTC offsets, so resolution
	// must be anchored to the concrete date.
	cases := []struct {
		date    string
		wantMin int
	}{
		{"2025-03-08", 12 * 60}, // EST, UTC-5
		{"2025-03-09", 11 * 60}, // EDT, UTC-4
		{"2025-03-10", 11 * 60},
	}
	for _, tc := range cases {
		utcMin, _, _, err := LocalToUTC(7*60, "America/New_York", mustDate(t, tc.date))
		if err != nil {
			t.Fatalf("%s: %v", tc.date, err)
		}
		if utcMin != tc.wantMin {
			t.Fatalf("%s: want %d, got %d", tc.date, tc.wantMin, utcMin)
		}
	}
}

func TestLocalToUTC_RoundTripAcrossDST(t *testing.T) {
	// Converting each date in the transition week and projecting back must
	// reproduce the original local time; no date is skipped or duplicated.
	loc, err := time.LoadLocation("Europe/Berlin")
	if err != nil {
		t.Fatal(err)
	}
	date := mustDate(t, "2025-03-27") // transition on 2025-03-30
	seen := map[string]bool{}
	for i := 0; i < 7; i++ {
		utcMin, _, utcDate, err := LocalToUTC(6*60+30, "Europe/Berlin", date)
		if err != nil {
			t.Fatalf("%s: %v", date, err)
		}
		back := time.Date(utcDate.Year, utcDate.Month, utcDate.Day, utcMin/60, utcMin%60, 0, 0, time.UTC).In(loc)
		if back.Hour() != 6 || back.Minute() != 30 {
			t.Fatalf("%s: round trip gave %02d:%02d", date, back.Hour(), back.Minute())
		}
		if gotDate := DateOf(back); !gotDate.Equal(date) {
			t.Fatalf("want local date %s, got %s", date, gotDate)
		}
		if seen[date.String()] {
			t.Fatalf("date %s visited twice", date)
		}
		seen[date.String()] = true
		date = date.AddDays(1)
	}
}

func TestNextOccurrence(t *testing.T) {
	loc, _ := time.LoadLocation("Australia/Sydney")
	// Ref: Friday 2025-08-08 12:00 local. Next Monday 01:00 local.
	ref := time.Date(2025, time.August, 8, 12, 0, 0, 0, loc)
	occ := NextOccurrence(ref, loc, Weekday(1), 60)
	if occ.Weekday() != time.Monday {
		t.Fatalf("want Monday, got %s", occ.Weekday())
	}
	if got := DateOf(occ); !got.Equal(mustDate(t, "2025-08-11")) {
		t.Fatalf("want 2025-08-11, got %s", got)
	}
	if occ.Hour() != 1 || occ.Minute() != 0 {
		t.Fatalf("want 01:00, got %02d:%02d", occ.Hour(), occ.Minute())
	}

	// Same-day match when the time is still ahead.
	ref = time.Date(2025, time.August, 11, 0, 30, 0, 0, loc)
	occ = NextOccurrence(ref, loc, Weekday(1), 60)
	if got := DateOf(occ); !got.Equal(mustDate(t, "2025-08-11")) {
		t.Fatalf("same-day: want 2025-08-11, got %s", got)
	}
}

func TestProjectWeekdays_ShiftsAcrossUTCDayBoundary(t *testing.T) {
	ref := time.Date(2025, time.August, 1, 0, 0, 0, 0, time.UTC)

	// Early local time east of UTC lands on the previous UTC day.
	mon := NewWeekdaySet(Weekday(1))
	got, err := ProjectWeekdays(mon, "Australia/Sydney", 60, ref)
	if err != nil {
		t.Fatal(err)
	}
	if !got.Has(Weekday(0)) || got.Has(Weekday(1)) {
		t.Fatalf("sydney mon 01:00: want {sun}, got %s", got)
	}

	// Late local time west of UTC lands on the next UTC day.
	got, err = ProjectWeekdays(mon, "America/Los_Angeles", 23*60, ref)
	if err != nil {
		t.Fatal(err)
	}
	if !got.Has(Weekday(2)) {
		t.Fatalf("LA mon 23:00: want {tue}, got %s", got)
	}

	// Midday does not shift.
	got, err = ProjectWeekdays(mon, "Europe/London", 12*60, ref)
	if err != nil {
		t.Fatal(err)
	}
	if !got.Has(Weekday(1)) {
		t.Fatalf("london mon 12:00: want {mon}, got %s", got)
	}
}

func TestProjectWeekdays_EachDayProjectedIndividually(t *testing.T) {
	// Every local weekday at 01:00 Sydney shifts back one UTC day, so the
	// full local week projects onto the full UTC week, day by day.
	all := NewWeekdaySet(0, 1, 2, 3, 4, 5, 6)
	ref := time.Date(2025, time.August, 1, 0, 0, 0, 0, time.UTC)
	got, err := ProjectWeekdays(all, "Australia/Sydney", 60, ref)
	if err != nil {
		t.Fatal(err)
	}
	for d := Weekday(0); d < 7; d++ {
		if !got.Has(d) {
			t.Fatalf("missing %s in projection %s", d, got)
		}
	}
}

func TestRecomputeUTC_Recurring(t *testing.T) {
	s := &Schedule{
		ID:          "s1",
		UserID:      "u1",
		WakeMinute:  60,
		Timezone:    "Australia/Sydney",
		Weekdays:    NewWeekdaySet(Weekday(1)),
		IsRecurring: true,
		IsActive:    true,
	}
	ref := time.Date(2025, time.August, 1, 0, 0, 0, 0, time.UTC)
	if err := s.RecomputeUTC(ref); err != nil {
		t.Fatal(err)
	}
	if s.WakeMinuteUTC != 15*60 {
		t.Fatalf("want 900, got %d", s.WakeMinuteUTC)
	}
	if !s.WeekdaysUTC.Has(Weekday(0)) {
		t.Fatalf("want {sun}, got %s", s.WeekdaysUTC)
	}
	if s.DateUTC != nil {
		t.Fatal("recurring schedule must not carry a UTC date")
	}
}

func TestRecomputeUTC_OneShot(t *testing.T) {
	d := mustDate(t, "2025-08-11")
	s := &Schedule{
		ID:         "s1",
		UserID:     "u1",
		WakeMinute: 60,
		Timezone:   "Australia/Sydney",
		Date:       &d,
		IsActive:   true,
	}
	if err := s.RecomputeUTC(time.Date(2025, time.August, 1, 0, 0, 0, 0, time.UTC)); err != nil {
		t.Fatal(err)
	}
	if s.WakeMinuteUTC != 15*60 {
		t.Fatalf("want 900, got %d", s.WakeMinuteUTC)
	}
	if s.DateUTC == nil || !s.DateUTC.Equal(mustDate(t, "2025-08-10")) {
		t.Fatalf("want UTC date 2025-08-10, got %v", s.DateUTC)
	}
	if !s.WeekdaysUTC.Empty() {
		t.Fatal("one-shot schedule must not carry UTC weekdays")
	}
}

func TestRecomputeUTC_RejectsMalformedInput(t *testing.T) {
	s := &Schedule{
		ID:          "s1",
		UserID:      "u1",
		WakeMinute:  60,
		Timezone:    "Mars/Olympus_Mons",
		Weekdays:    NewWeekdaySet(Weekday(1)),
		IsRecurring: true,
	}
	if err := s.RecomputeUTC(time.Now()); err == nil {
		t.Fatal("want error for unknown zone")
	}

	s.Timezone = "UTC"
	s.Weekdays = 0
	if err := s.RecomputeUTC(time.Now()); err == nil {
		t.Fatal("want error for recurring schedule without weekdays")
	}
}
