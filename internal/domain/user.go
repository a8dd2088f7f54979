package domain

import "time"

// User is the schedule owner as the dispatch engine sees it: identity,
// verified destination number and credit balance. Account management lives
// outside this service; the engine reads these rows, it never creates them.
type User struct {
	ID            string
	Name          string
	Email         string
	Phone         string
	PhoneVerified bool
	Credits       int
	CreatedAt     time.Time
}

// Personalization is the user's wake-up call persona input. Written by the
// onboarding flow; read-only here.
type Personalization struct {
	UserID         string
	Goals          []string
	Struggles      []string
	CustomGoal     string
	CustomStruggle string
	ExtraContext   string
	VoiceID        string
	UpdatedAt      time.Time
}

// CallRecord is one immutable dispatch attempt. After the terminal status
// is recorded the only permitted mutation is attaching late webhook data
// (status settle, duration, recording) matched by ExternalID.
type CallRecord struct {
	ID           string
	ScheduleID   string // empty for ad-hoc calls
	UserID       string
	LocalTime    string // "HH:MM" as scheduled, user-facing
	Timezone     string
	Status       CallStatus
	ExternalID   string
	DurationSec  int
	RecordingURL string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}
