package selector

import (
	"testing"
	"time"

	"github.com/mliyanage/kickass-morning-sub000/internal/domain"
)

func defaultSelector() Selector {
	return New(3*time.Minute, time.Minute, 10*time.Minute)
}

func at(t *testing.T, s string) time.Time {
	t.Helper()
	ts, err := time.Parse(time.RFC3339, s)
	if err != nil {
		t.Fatal(err)
	}
	return ts.UTC()
}

func date(t *testing.T, s string) *domain.CivilDate {
	t.Helper()
	d, err := domain.ParseDate(s)
	if err != nil {
		t.Fatal(err)
	}
	return &d
}

// sydneyMonday is a recurring Monday 01:00 Australia/Sydney schedule with
// its derived fields recomputed: 15:00 UTC on Sundays in winter.
func sydneyMonday(t *testing.T) domain.Schedule {
	t.Helper()
	s := domain.Schedule{
		ID:          "syd-1",
		UserID:      "u1",
		WakeMinute:  60,
		Timezone:    "Australia/Sydney",
		Weekdays:    domain.NewWeekdaySet(domain.Weekday(1)),
		IsRecurring: true,
		IsActive:    true,
	}
	if err := s.RecomputeUTC(at(t, "2025-08-01T00:00:00Z")); err != nil {
		t.Fatal(err)
	}
	return s
}

func TestDue_SydneyRecurringOccurrence(t *testing.T) {
	sel := defaultSelector()
	sch := sydneyMonday(t)

	// Monday 01:00 Sydney = Sunday 15:00 UTC; 2025-08-10 is a Sunday.
	due := sel.Due(at(t, "2025-08-10T15:00:00Z"), []domain.Schedule{sch})
	if len(due) != 1 {
		t.Fatalf("want due at the Sunday 15:00Z occurrence, got %d", len(due))
	}

	// Five hours earlier the time-of-day does not match.
	due = sel.Due(at(t, "2025-08-10T10:00:00Z"), []domain.Schedule{sch})
	if len(due) != 0 {
		t.Fatalf("want not due at 10:00Z, got %d", len(due))
	}

	// A day later the UTC weekday no longer matches.
	due = sel.Due(at(t, "2025-08-11T15:00:00Z"), []domain.Schedule{sch})
	if len(due) != 0 {
		t.Fatalf("want not due on Monday UTC, got %d", len(due))
	}
}

func TestDue_CooldownBlocksCompletedOccurrence(t *testing.T) {
	sel := defaultSelector()
	sch := sydneyMonday(t)

	now := at(t, "2025-08-10T15:00:00Z")
	called := now.Add(-2 * time.Minute)
	completed := domain.StatusCompleted
	sch.LastCalled = &called
	sch.LastCallStatus = &completed

	if due := sel.Due(now, []domain.Schedule{sch}); len(due) != 0 {
		t.Fatal("completed occurrence must not re-fire inside cooldown")
	}
}

func TestDue_CooldownOutlastsWindowAcrossTicks(t *testing.T) {
	// An occurrence keeps matching for the full window width, so a
	// completed dispatch at one tick must still be blocked a whole poll
	// interval later. That only holds when the cooldown exceeds
	// pollInterval + slack.
	sel := New(10*time.Minute, time.Minute, 12*time.Minute)
	sch := sydneyMonday(t)

	tick := at(t, "2025-08-10T15:00:00Z")
	completed := domain.StatusCompleted
	sch.LastCalled = &tick
	sch.LastCallStatus = &completed

	next := tick.Add(10 * time.Minute)
	if due := sel.Due(next, []domain.Schedule{sch}); len(due) != 0 {
		t.Fatal("completed occurrence re-fired one poll interval later")
	}
}

func TestDue_RetryEligibility(t *testing.T) {
	sel := defaultSelector()
	now := at(t, "2025-08-10T15:00:00Z")
	called := now.Add(-3 * time.Minute)
	failed := domain.StatusFailed

	sch := sydneyMonday(t)
	sch.LastCalled = &called
	sch.LastCallStatus = &failed
	sch.CallRetry = true
	if due := sel.Due(now, []domain.Schedule{sch}); len(due) != 1 {
		t.Fatal("failed attempt with callRetry must re-fire on the next tick")
	}

	sch.CallRetry = false
	if due := sel.Due(now, []domain.Schedule{sch}); len(due) != 0 {
		t.Fatal("failed attempt without callRetry must wait for the next occurrence")
	}

	// Non-terminal statuses block re-dispatch even with callRetry set.
	ringing := domain.StatusRinging
	sch.CallRetry = true
	sch.LastCallStatus = &ringing
	if due := sel.Due(now, []domain.Schedule{sch}); len(due) != 0 {
		t.Fatal("non-terminal status must block re-dispatch")
	}
}

func TestDue_OneShot(t *testing.T) {
	sel := defaultSelector()
	now := at(t, "2025-08-10T15:00:00Z")

	mk := func(localDate string) domain.Schedule {
		s := domain.Schedule{
			ID:         "once-" + localDate,
			UserID:     "u1",
			WakeMinute: 60,
			Timezone:   "Australia/Sydney",
			Date:       date(t, localDate),
			IsActive:   true,
		}
		if err := s.RecomputeUTC(at(t, "2025-08-01T00:00:00Z")); err != nil {
			t.Fatal(err)
		}
		return s
	}

	// Local Monday 2025-08-11 01:00 = Sunday 2025-08-10 15:00 UTC.
	if due := sel.Due(now, []domain.Schedule{mk("2025-08-11")}); len(due) != 1 {
		t.Fatal("one-shot must fire at its UTC occurrence")
	}

	// A past date never matches, regardless of time-of-day.
	if due := sel.Due(now, []domain.Schedule{mk("2025-08-04")}); len(due) != 0 {
		t.Fatal("past one-shot must never be selected")
	}
}

func TestDue_MidnightWraparound(t *testing.T) {
	sel := Selector{Window: 10 * time.Minute, Cooldown: 20 * time.Minute}

	// Poll at 00:05 with a 10m window: [23:55, 00:05] crossing midnight.
	now := at(t, "2025-08-12T00:05:00Z")

	// Recurring schedule at 23:58 UTC on Mondays; 2025-08-11 is a Monday.
	rec := domain.Schedule{
		ID:            "wrap-rec",
		UserID:        "u1",
		IsRecurring:   true,
		IsActive:      true,
		WakeMinuteUTC: 23*60 + 58,
		WeekdaysUTC:   domain.NewWeekdaySet(domain.Weekday(1)),
	}
	if due := sel.Due(now, []domain.Schedule{rec}); len(due) != 1 {
		t.Fatal("23:58 must match a [23:55, 00:05] window against Monday")
	}

	// One-shot dated yesterday (UTC) in the pre-midnight segment.
	oneShot := domain.Schedule{
		ID:            "wrap-once",
		UserID:        "u1",
		IsActive:      true,
		WakeMinuteUTC: 23*60 + 58,
		DateUTC:       date(t, "2025-08-11"),
	}
	if due := sel.Due(now, []domain.Schedule{oneShot}); len(due) != 1 {
		t.Fatal("pre-midnight one-shot must match against the previous UTC day")
	}

	// Post-midnight segment matches today.
	early := domain.Schedule{
		ID:            "wrap-early",
		UserID:        "u1",
		IsRecurring:   true,
		IsActive:      true,
		WakeMinuteUTC: 2,
		WeekdaysUTC:   domain.NewWeekdaySet(domain.Weekday(2)), // Tuesday
	}
	if due := sel.Due(now, []domain.Schedule{early}); len(due) != 1 {
		t.Fatal("00:02 must match against Tuesday, the window's end day")
	}
}

func TestDue_SkipsInactiveAndDuplicates(t *testing.T) {
	sel := defaultSelector()
	now := at(t, "2025-08-10T15:00:00Z")

	sch := sydneyMonday(t)
	paused := sydneyMonday(t)
	paused.IsActive = false

	due := sel.Due(now, []domain.Schedule{sch, sch, paused})
	if len(due) != 1 {
		t.Fatalf("want 1 after de-duplication, got %d", len(due))
	}
}
