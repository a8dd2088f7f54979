// Package dispatch gates and places due wake-up calls, one attempt per
// schedule per occurrence.
package dispatch

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/mliyanage/kickass-morning-sub000/internal/domain"
	"github.com/mliyanage/kickass-morning-sub000/internal/metrics"
	"github.com/mliyanage/kickass-morning-sub000/internal/store"
)

// PlaceRequest is the call-placement contract input.
type PlaceRequest struct {
	To       string
	Message  string
	VoiceID  string
	AudioRef string // previously synthesized artifact the provider may reuse
}

// PlaceResult is what the provider reports immediately after placement.
// Later updates arrive out of band via the call-status webhook.
type PlaceResult struct {
	Status       domain.CallStatus
	ExternalID   string
	DurationSec  int
	RecordingURL string
	AudioRef     string
}

// CallPlacer places one phone call. A transport/provider error is mapped by
// the coordinator to the failed outcome.
type CallPlacer interface {
	Place(ctx context.Context, req PlaceRequest) (PlaceResult, error)
}

// Script is a composed wake-up message plus the voice to read it with.
type Script struct {
	Text    string
	VoiceID string
}

// Composer turns personalization and schedule data into a call script.
type Composer interface {
	Compose(ctx context.Context, u *domain.User, p *domain.Personalization, s *domain.Schedule) (Script, error)
}

// ArtifactCache remembers synthesized-audio references by script key.
type ArtifactCache interface {
	Lookup(key string) (ref string, ok bool)
	Remember(key, ref string) error
}

// Store is the slice of the repository the coordinator needs.
type Store interface {
	RecordDispatchOutcome(ctx context.Context, scheduleID, externalID string, at time.Time, status domain.CallStatus) error
	InsertCallRecord(ctx context.Context, rec *domain.CallRecord) error
	CountCallsByUser(ctx context.Context, userID string) (int, error)
	GetUser(ctx context.Context, userID string) (*domain.User, error)
	GetPersonalization(ctx context.Context, userID string) (*domain.Personalization, error)
	CreditBalance(ctx context.Context, userID string) (int, error)
	DeductCredit(ctx context.Context, userID string) (int, error)
}

// Skip reasons surfaced in logs and metrics.
const (
	skipNoPhone         = "no_verified_phone"
	skipNoPersona       = "no_personalization"
	skipNoCredit        = "no_credit"
	skipComposeFailed   = "compose_failed"
	skipMissingUser     = "missing_user"
	skipEligibilityRead = "eligibility_read_failed"
)

// Coordinator runs the per-schedule gating and placement sequence.
type Coordinator struct {
	store    Store
	placer   CallPlacer
	composer Composer
	cache    ArtifactCache
	log      *zap.Logger
	metrics  *metrics.Collector

	workerLimit int
	callTimeout time.Duration
}

// New creates a Coordinator. workerLimit bounds per-tick parallelism;
// callTimeout bounds one provider invocation.
func New(st Store, placer CallPlacer, composer Composer, cache ArtifactCache,
	log *zap.Logger, m *metrics.Collector, workerLimit int, callTimeout time.Duration) *Coordinator {
	if workerLimit < 1 {
		workerLimit = 1
	}
	if callTimeout <= 0 {
		callTimeout = 30 * time.Second
	}
	return &Coordinator{
		store:       st,
		placer:      placer,
		composer:    composer,
		cache:       cache,
		log:         log,
		metrics:     m,
		workerLimit: workerLimit,
		callTimeout: callTimeout,
	}
}

// DispatchAll processes the due schedules with bounded parallelism. Every
// schedule is independent: one failure or slow provider call never cancels
// or delays the others beyond pool capacity.
func (c *Coordinator) DispatchAll(ctx context.Context, now time.Time, due []domain.Schedule) {
	g := new(errgroup.Group)
	g.SetLimit(c.workerLimit)
	for i := range due {
		sch := due[i]
		g.Go(func() error {
			defer func() {
				if r := recover(); r != nil {
					c.log.Error("dispatch panicked",
						zap.String("scheduleID", sch.ID), zap.Any("panic", r))
				}
			}()
			if err := c.dispatchOne(ctx, now, &sch); err != nil {
				c.log.Error("dispatch failed",
					zap.String("scheduleID", sch.ID),
					zap.String("userID", sch.UserID),
					zap.Error(err))
			}
			return nil
		})
	}
	_ = g.Wait()
}

// dispatchOne runs the strict per-schedule sequence: gates, placement,
// bookkeeping write, history write, credit deduction. The bookkeeping write
// comes first after placement so a later failure can never cause the same
// occurrence to be dispatched again.
func (c *Coordinator) dispatchOne(ctx context.Context, now time.Time, sch *domain.Schedule) error {
	user, err := c.store.GetUser(ctx, sch.UserID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			c.skip(sch, skipMissingUser)
			return nil
		}
		return fmt.Errorf("load user: %w", err)
	}
	if !user.PhoneVerified || user.Phone == "" {
		c.skip(sch, skipNoPhone)
		return nil
	}

	persona, err := c.store.GetPersonalization(ctx, sch.UserID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			c.skip(sch, skipNoPersona)
			return nil
		}
		return fmt.Errorf("load personalization: %w", err)
	}

	freeCall, ok, err := c.checkEligibility(ctx, user)
	if err != nil {
		c.skip(sch, skipEligibilityRead)
		return fmt.Errorf("eligibility: %w", err)
	}
	if !ok {
		c.skip(sch, skipNoCredit)
		return nil
	}

	script, err := c.composer.Compose(ctx, user, persona, sch)
	if err != nil {
		c.skip(sch, skipComposeFailed)
		return fmt.Errorf("compose: %w", err)
	}

	result := c.place(ctx, user, script)
	c.metrics.RecordDispatch(string(result.Status))

	// Bookkeeping first: even if the history insert fails, the schedule
	// must reflect the attempt and block re-dispatch.
	if err := c.store.RecordDispatchOutcome(ctx, sch.ID, result.ExternalID, now, result.Status); err != nil {
		return fmt.Errorf("record outcome: %w", err)
	}

	rec := &domain.CallRecord{
		ID:           uuid.NewString(),
		ScheduleID:   sch.ID,
		UserID:       sch.UserID,
		LocalTime:    domain.FormatMinute(sch.WakeMinute),
		Timezone:     sch.Timezone,
		Status:       result.Status,
		ExternalID:   result.ExternalID,
		DurationSec:  result.DurationSec,
		RecordingURL: result.RecordingURL,
	}
	if err := c.store.InsertCallRecord(ctx, rec); err != nil {
		c.log.Error("call history insert failed",
			zap.String("scheduleID", sch.ID), zap.Error(err))
	}

	if !result.Status.Failure() && !freeCall {
		if _, err := c.store.DeductCredit(ctx, sch.UserID); err != nil {
			// The call was already placed; never roll it back over billing.
			c.log.Error("credit deduction failed",
				zap.String("userID", sch.UserID), zap.Error(err))
		}
	}

	c.log.Info("dispatched wake-up call",
		zap.String("scheduleID", sch.ID),
		zap.String("userID", sch.UserID),
		zap.String("status", string(result.Status)),
		zap.String("externalID", result.ExternalID),
		zap.Bool("freeCall", freeCall))
	return nil
}

// checkEligibility returns (isFreeFirstCall, allowed). The very first call
// of a user is always allowed; afterwards a positive balance is required.
func (c *Coordinator) checkEligibility(ctx context.Context, user *domain.User) (free bool, allowed bool, err error) {
	count, err := c.store.CountCallsByUser(ctx, user.ID)
	if err != nil {
		return false, false, err
	}
	if count == 0 {
		return true, true, nil
	}
	balance, err := c.store.CreditBalance(ctx, user.ID)
	if err != nil {
		return false, false, err
	}
	return false, balance > 0, nil
}

// place invokes the provider once with a bounded timeout. Provider errors
// and timeouts both surface as the failed outcome; retry granularity is the
// poll interval, there is no inner retry loop.
func (c *Coordinator) place(ctx context.Context, user *domain.User, script Script) PlaceResult {
	req := PlaceRequest{To: user.Phone, Message: script.Text, VoiceID: script.VoiceID}
	key := ArtifactKey(script)
	if c.cache != nil {
		if ref, ok := c.cache.Lookup(key); ok {
			req.AudioRef = ref
		}
	}

	callCtx, cancel := context.WithTimeout(ctx, c.callTimeout)
	defer cancel()
	result, err := c.placer.Place(callCtx, req)
	if err != nil {
		c.log.Warn("call placement failed",
			zap.String("userID", user.ID), zap.Error(err))
		return PlaceResult{Status: domain.StatusFailed}
	}
	if c.cache != nil && result.AudioRef != "" && result.AudioRef != req.AudioRef {
		if err := c.cache.Remember(key, result.AudioRef); err != nil {
			c.log.Warn("audio cache write failed", zap.Error(err))
		}
	}
	return result
}

func (c *Coordinator) skip(sch *domain.Schedule, reason string) {
	c.metrics.RecordSkip(reason)
	c.log.Warn("schedule skipped",
		zap.String("scheduleID", sch.ID),
		zap.String("userID", sch.UserID),
		zap.String("reason", reason))
}
