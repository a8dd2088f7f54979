package store

import (
	"context"
	"errors"
	"time"

	"github.com/mliyanage/kickass-morning-sub000/internal/domain"
)

// ErrNotFound is returned when a requested row does not exist.
var ErrNotFound = errors.New("store: not found")

// Repo defines storage operations for schedules, call history, users and
// credits. One production implementation exists (SQLite); tests use
// in-memory doubles over the narrow interfaces each consumer declares.
type Repo interface {
	// Schedules. Create and Update recompute the derived UTC fields
	// synchronously before persisting; callers never observe them stale.
	CreateSchedule(ctx context.Context, s *domain.Schedule) error
	UpdateSchedule(ctx context.Context, s *domain.Schedule) error
	GetSchedule(ctx context.Context, id string) (*domain.Schedule, error)
	GetByUser(ctx context.Context, userID string) ([]domain.Schedule, error)
	SetScheduleActive(ctx context.Context, id string, active bool) error

	// DueCandidates returns active schedules that could fire around nowUTC:
	// all recurring ones plus one-shots dated today or yesterday (UTC).
	// Exact window, weekday and cooldown matching happens in the selector.
	DueCandidates(ctx context.Context, nowUTC time.Time) ([]domain.Schedule, error)

	// RecordDispatchOutcome is the only path that mutates dispatch
	// bookkeeping (lastCalled, lastCallStatus, lastCallExternalID).
	RecordDispatchOutcome(ctx context.Context, scheduleID, externalID string, at time.Time, status domain.CallStatus) error

	// Call history.
	InsertCallRecord(ctx context.Context, rec *domain.CallRecord) error
	CountCallsByUser(ctx context.Context, userID string) (int, error)
	// AttachCallUpdate reconciles a late webhook update by external call id
	// into both the history row and the owning schedule's last status.
	AttachCallUpdate(ctx context.Context, externalID string, status domain.CallStatus, durationSec int, recordingURL string) error

	// Users and personalization, read-only from the engine's perspective.
	GetUser(ctx context.Context, userID string) (*domain.User, error)
	GetPersonalization(ctx context.Context, userID string) (*domain.Personalization, error)

	// Credit ledger.
	CreditBalance(ctx context.Context, userID string) (int, error)
	// DeductCredit atomically decrements a positive balance and returns the
	// new balance; it fails without writing when the balance is zero.
	DeductCredit(ctx context.Context, userID string) (int, error)

	Close() error
}
