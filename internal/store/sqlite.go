package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	// Registers the "sqlite" driver (pure Go).
	_ "modernc.org/sqlite"

	"github.com/mliyanage/kickass-morning-sub000/internal/domain"
)

// ErrInsufficientCredit is returned by DeductCredit on a zero balance.
var ErrInsufficientCredit = errors.New("store: insufficient credit")

// SQLiteRepo implements Repo using an embedded SQLite database.
type SQLiteRepo struct{ db *sql.DB }

// OpenSQLite opens (or creates) the SQLite database at the given path,
// applies PRAGMAs, runs migrations, and returns a repository.
func OpenSQLite(ctx context.Context, path string) (*SQLiteRepo, error) {
	if dir := filepath.Dir(path); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, err
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}

	// Single-writer engine; keep the pool at one connection.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if err := applyPragmas(ctx, db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("apply pragmas: %w", err)
	}
	if err := RunMigrations(ctx, db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("migrations: %w", err)
	}

	return &SQLiteRepo{db: db}, nil
}

func applyPragmas(ctx context.Context, db *sql.DB) error {
	pragmas := []string{
		"PRAGMA journal_mode=WAL;",
		"PRAGMA synchronous=NORMAL;",
		"PRAGMA busy_timeout=5000;",
		"PRAGMA foreign_keys=ON;",
	}
	for _, p := range pragmas {
		if _, err := db.ExecContext(ctx, p); err != nil {
			return err
		}
	}
	return nil
}

// Close releases the underlying database resources.
func (r *SQLiteRepo) Close() error { return r.db.Close() }

const scheduleColumns = `
	id, user_id, wake_minute, timezone, weekdays, is_recurring, date,
	wake_minute_utc, weekdays_utc, date_utc, is_active, call_retry,
	last_called, last_call_status, last_call_external_id,
	created_at, updated_at`

type rowScanner interface{ Scan(dest ...any) error }

func scanSchedule(row rowScanner) (*domain.Schedule, error) {
	var (
		s            domain.Schedule
		weekdays     string
		weekdaysUTC  string
		recurringInt int
		activeInt    int
		retryInt     int
		dateNS       sql.NullString
		dateUTCNS    sql.NullString
		lastCalledNS sql.NullInt64
		lastStatusNS sql.NullString
		createdAt    int64
		updatedAt    int64
	)
	if err := row.Scan(
		&s.ID, &s.UserID, &s.WakeMinute, &s.Timezone, &weekdays, &recurringInt, &dateNS,
		&s.WakeMinuteUTC, &weekdaysUTC, &dateUTCNS, &activeInt, &retryInt,
		&lastCalledNS, &lastStatusNS, &s.LastCallExternalID,
		&createdAt, &updatedAt,
	); err != nil {
		return nil, err
	}

	var err error
	if s.Weekdays, err = domain.ParseWeekdaySet(weekdays); err != nil {
		return nil, err
	}
	if s.WeekdaysUTC, err = domain.ParseWeekdaySet(weekdaysUTC); err != nil {
		return nil, err
	}
	if s.Date, err = dateFromNull(dateNS); err != nil {
		return nil, err
	}
	if s.DateUTC, err = dateFromNull(dateUTCNS); err != nil {
		return nil, err
	}
	if s.LastCallStatus, err = statusFromNull(lastStatusNS); err != nil {
		return nil, err
	}
	s.IsRecurring = recurringInt != 0
	s.IsActive = activeInt != 0
	s.CallRetry = retryInt != 0
	s.LastCalled = timeFromNull(lastCalledNS)
	s.CreatedAt = time.Unix(createdAt, 0).UTC()
	s.UpdatedAt = time.Unix(updatedAt, 0).UTC()
	return &s, nil
}

// CreateSchedule validates the local parameters, recomputes the derived UTC
// fields and persists the row in one statement.
func (r *SQLiteRepo) CreateSchedule(ctx context.Context, s *domain.Schedule) error {
	if s == nil {
		return errors.New("nil schedule")
	}
	now := time.Now().UTC()
	if err := s.RecomputeUTC(now); err != nil {
		return err
	}
	s.CreatedAt = now
	s.UpdatedAt = now

	_, err := r.db.ExecContext(ctx, `
		INSERT INTO schedules (
			id, user_id, wake_minute, timezone, weekdays, is_recurring, date,
			wake_minute_utc, weekdays_utc, date_utc, is_active, call_retry,
			last_called, last_call_status, last_call_external_id,
			created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, NULL, NULL, '', ?, ?)`,
		s.ID, s.UserID, s.WakeMinute, s.Timezone, s.Weekdays.String(),
		boolToInt(s.IsRecurring), dateToNull(s.Date),
		s.WakeMinuteUTC, s.WeekdaysUTC.String(), dateToNull(s.DateUTC),
		boolToInt(s.IsActive), boolToInt(s.CallRetry),
		now.Unix(), now.Unix(),
	)
	return err
}

// UpdateSchedule rewrites the local parameters of an existing schedule,
// recomputing the derived UTC fields in the same statement and resetting
// dispatch bookkeeping: an edited schedule starts a fresh occurrence.
func (r *SQLiteRepo) UpdateSchedule(ctx context.Context, s *domain.Schedule) error {
	if s == nil {
		return errors.New("nil schedule")
	}
	now := time.Now().UTC()
	if err := s.RecomputeUTC(now); err != nil {
		return err
	}
	s.UpdatedAt = now
	s.LastCalled = nil
	s.LastCallStatus = nil
	s.LastCallExternalID = ""

	res, err := r.db.ExecContext(ctx, `
		UPDATE schedules SET
			wake_minute = ?, timezone = ?, weekdays = ?, is_recurring = ?, date = ?,
			wake_minute_utc = ?, weekdays_utc = ?, date_utc = ?,
			is_active = ?, call_retry = ?,
			last_called = NULL, last_call_status = NULL, last_call_external_id = '',
			updated_at = ?
		WHERE id = ?`,
		s.WakeMinute, s.Timezone, s.Weekdays.String(), boolToInt(s.IsRecurring), dateToNull(s.Date),
		s.WakeMinuteUTC, s.WeekdaysUTC.String(), dateToNull(s.DateUTC),
		boolToInt(s.IsActive), boolToInt(s.CallRetry),
		now.Unix(), s.ID,
	)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err == nil && n == 0 {
		return ErrNotFound
	}
	return err
}

// GetSchedule returns one schedule by id.
func (r *SQLiteRepo) GetSchedule(ctx context.Context, id string) (*domain.Schedule, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+scheduleColumns+` FROM schedules WHERE id = ?`, id)
	s, err := scanSchedule(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	return s, err
}

// GetByUser returns all schedules owned by a user, newest first.
func (r *SQLiteRepo) GetByUser(ctx context.Context, userID string) ([]domain.Schedule, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+scheduleColumns+` FROM schedules WHERE user_id = ? ORDER BY created_at DESC`,
		userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectSchedules(rows)
}

// SetScheduleActive pauses or resumes a schedule.
func (r *SQLiteRepo) SetScheduleActive(ctx context.Context, id string, active bool) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE schedules SET is_active = ?, updated_at = ? WHERE id = ?`,
		boolToInt(active), time.Now().UTC().Unix(), id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err == nil && n == 0 {
		return ErrNotFound
	}
	return err
}

// DueCandidates narrows to active schedules that could fire around nowUTC.
// One-shots keep yesterday's UTC date in play because a poll window that
// crosses 00:00 UTC still covers the tail of the previous day.
func (r *SQLiteRepo) DueCandidates(ctx context.Context, nowUTC time.Time) ([]domain.Schedule, error) {
	today := domain.DateOf(nowUTC.UTC())
	yesterday := today.AddDays(-1)
	rows, err := r.db.QueryContext(ctx, `
		SELECT `+scheduleColumns+`
		FROM schedules
		WHERE is_active = 1
		  AND (is_recurring = 1 OR date_utc IN (?, ?))`,
		today.String(), yesterday.String())
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectSchedules(rows)
}

func collectSchedules(rows *sql.Rows) ([]domain.Schedule, error) {
	var out []domain.Schedule
	for rows.Next() {
		s, err := scanSchedule(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *s)
	}
	return out, rows.Err()
}

// RecordDispatchOutcome writes the post-attempt bookkeeping for a schedule.
func (r *SQLiteRepo) RecordDispatchOutcome(ctx context.Context, scheduleID, externalID string, at time.Time, status domain.CallStatus) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE schedules
		SET last_called = ?, last_call_status = ?, last_call_external_id = ?, updated_at = ?
		WHERE id = ?`,
		at.UTC().Unix(), string(status), externalID, time.Now().UTC().Unix(), scheduleID)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err == nil && n == 0 {
		return ErrNotFound
	}
	return err
}

// InsertCallRecord appends one call-history row.
func (r *SQLiteRepo) InsertCallRecord(ctx context.Context, rec *domain.CallRecord) error {
	if rec == nil {
		return errors.New("nil call record")
	}
	now := time.Now().UTC()
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = now
	}
	rec.UpdatedAt = now
	var scheduleID sql.NullString
	if rec.ScheduleID != "" {
		scheduleID = sql.NullString{String: rec.ScheduleID, Valid: true}
	}
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO call_history (
			id, schedule_id, user_id, local_time, timezone, status,
			external_id, duration_sec, recording_url, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.ID, scheduleID, rec.UserID, rec.LocalTime, rec.Timezone, string(rec.Status),
		rec.ExternalID, rec.DurationSec, rec.RecordingURL,
		rec.CreatedAt.Unix(), rec.UpdatedAt.Unix(),
	)
	return err
}

// CountCallsByUser returns the user's total history size. Zero means the
// next call is the free first one.
func (r *SQLiteRepo) CountCallsByUser(ctx context.Context, userID string) (int, error) {
	var n int
	err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM call_history WHERE user_id = ?`, userID).Scan(&n)
	return n, err
}

// AttachCallUpdate reconciles a webhook status update by external call id.
// Both the history row and the owning schedule (matched by its recorded
// external id) are updated; duration and recording only overwrite when the
// webhook actually carries them.
func (r *SQLiteRepo) AttachCallUpdate(ctx context.Context, externalID string, status domain.CallStatus, durationSec int, recordingURL string) error {
	if externalID == "" {
		return errors.New("empty external call id")
	}
	now := time.Now().UTC().Unix()

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	res, err := tx.ExecContext(ctx, `
		UPDATE call_history
		SET status = ?,
		    duration_sec = CASE WHEN ? > 0 THEN ? ELSE duration_sec END,
		    recording_url = CASE WHEN ? != '' THEN ? ELSE recording_url END,
		    updated_at = ?
		WHERE external_id = ?`,
		string(status), durationSec, durationSec, recordingURL, recordingURL, now, externalID)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}

	if _, err := tx.ExecContext(ctx, `
		UPDATE schedules SET last_call_status = ?, updated_at = ?
		WHERE last_call_external_id = ?`,
		string(status), now, externalID); err != nil {
		return err
	}
	return tx.Commit()
}

// UpsertUser writes a user row. The dispatch engine itself only reads
// users; this is the write path shared with the account service.
func (r *SQLiteRepo) UpsertUser(ctx context.Context, u *domain.User) error {
	if u == nil {
		return errors.New("nil user")
	}
	created := u.CreatedAt.UTC().Unix()
	if u.CreatedAt.IsZero() {
		created = time.Now().UTC().Unix()
	}
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO users (id, name, email, phone, phone_verified, credits, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name           = excluded.name,
			email          = excluded.email,
			phone          = excluded.phone,
			phone_verified = excluded.phone_verified,
			credits        = excluded.credits`,
		u.ID, u.Name, u.Email, u.Phone, boolToInt(u.PhoneVerified), u.Credits, created)
	return err
}

// UpsertPersonalization writes a personalization row.
func (r *SQLiteRepo) UpsertPersonalization(ctx context.Context, p *domain.Personalization) error {
	if p == nil {
		return errors.New("nil personalization")
	}
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO personalization (
			user_id, goals, struggles, custom_goal, custom_struggle,
			extra_context, voice_id, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(user_id) DO UPDATE SET
			goals           = excluded.goals,
			struggles       = excluded.struggles,
			custom_goal     = excluded.custom_goal,
			custom_struggle = excluded.custom_struggle,
			extra_context   = excluded.extra_context,
			voice_id        = excluded.voice_id,
			updated_at      = excluded.updated_at`,
		p.UserID, joinList(p.Goals), joinList(p.Struggles), p.CustomGoal, p.CustomStruggle,
		p.ExtraContext, p.VoiceID, time.Now().UTC().Unix())
	return err
}

// GetUser returns a user row by id.
func (r *SQLiteRepo) GetUser(ctx context.Context, userID string) (*domain.User, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT id, name, email, phone, phone_verified, credits, created_at
		FROM users WHERE id = ?`, userID)
	var (
		u           domain.User
		verifiedInt int
		createdAt   int64
	)
	err := row.Scan(&u.ID, &u.Name, &u.Email, &u.Phone, &verifiedInt, &u.Credits, &createdAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	u.PhoneVerified = verifiedInt != 0
	u.CreatedAt = time.Unix(createdAt, 0).UTC()
	return &u, nil
}

// GetPersonalization returns a user's personalization row.
func (r *SQLiteRepo) GetPersonalization(ctx context.Context, userID string) (*domain.Personalization, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT user_id, goals, struggles, custom_goal, custom_struggle,
		       extra_context, voice_id, updated_at
		FROM personalization WHERE user_id = ?`, userID)
	var (
		p         domain.Personalization
		goals     string
		struggles string
		updatedAt int64
	)
	err := row.Scan(&p.UserID, &goals, &struggles, &p.CustomGoal, &p.CustomStruggle,
		&p.ExtraContext, &p.VoiceID, &updatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	p.Goals = splitList(goals)
	p.Struggles = splitList(struggles)
	p.UpdatedAt = time.Unix(updatedAt, 0).UTC()
	return &p, nil
}

// CreditBalance returns the user's current balance.
func (r *SQLiteRepo) CreditBalance(ctx context.Context, userID string) (int, error) {
	var n int
	err := r.db.QueryRowContext(ctx,
		`SELECT credits FROM users WHERE id = ?`, userID).Scan(&n)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, ErrNotFound
	}
	return n, err
}

// DeductCredit decrements a positive balance atomically.
func (r *SQLiteRepo) DeductCredit(ctx context.Context, userID string) (int, error) {
	var newBalance int
	err := r.db.QueryRowContext(ctx, `
		UPDATE users SET credits = credits - 1
		WHERE id = ? AND credits > 0
		RETURNING credits`, userID).Scan(&newBalance)
	if errors.Is(err, sql.ErrNoRows) {
		// Either no such user or a zero balance; disambiguate for callers.
		if _, uerr := r.CreditBalance(ctx, userID); errors.Is(uerr, ErrNotFound) {
			return 0, ErrNotFound
		}
		return 0, ErrInsufficientCredit
	}
	return newBalance, err
}
