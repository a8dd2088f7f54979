// Package poller drives the periodic dispatch and cleanup cycles.
package poller

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/mliyanage/kickass-morning-sub000/internal/domain"
	"github.com/mliyanage/kickass-morning-sub000/internal/metrics"
	"github.com/mliyanage/kickass-morning-sub000/internal/selector"
)

// CandidateSource is the store read the poller needs.
type CandidateSource interface {
	DueCandidates(ctx context.Context, nowUTC time.Time) ([]domain.Schedule, error)
}

// Dispatcher consumes the due schedules of one tick.
type Dispatcher interface {
	DispatchAll(ctx context.Context, now time.Time, due []domain.Schedule)
}

// Evictor removes stale cached audio artifacts.
type Evictor interface {
	EvictOlderThan(cutoff time.Time) (int, error)
}

// Poller owns its start/stop lifecycle; construct one at wiring time and
// pass it by reference. Two jobs run on independent cadences: the dispatch
// tick every poll interval and the cache cleanup daily.
type Poller struct {
	source     CandidateSource
	sel        selector.Selector
	dispatcher Dispatcher
	evictor    Evictor
	log        *zap.Logger
	metrics    *metrics.Collector

	interval  time.Duration
	retention time.Duration

	mu      sync.Mutex
	cron    *cron.Cron
	started bool
}

// New creates a Poller.
func New(source CandidateSource, sel selector.Selector, dispatcher Dispatcher,
	evictor Evictor, log *zap.Logger, m *metrics.Collector,
	interval, retention time.Duration) *Poller {
	return &Poller{
		source:     source,
		sel:        sel,
		dispatcher: dispatcher,
		evictor:    evictor,
		log:        log,
		metrics:    m,
		interval:   interval,
		retention:  retention,
	}
}

// Start registers the cron jobs and fires one dispatch tick immediately so
// schedules due during a restart are picked up without waiting a full
// interval. Calling Start on a running poller is an error.
func (p *Poller) Start(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.started {
		return fmt.Errorf("poller: already started")
	}

	c := cron.New()
	if _, err := c.AddFunc("@every "+p.interval.String(), func() { p.Tick(ctx) }); err != nil {
		return fmt.Errorf("poller: register dispatch job: %w", err)
	}
	if _, err := c.AddFunc("@daily", func() { p.cleanup(ctx) }); err != nil {
		return fmt.Errorf("poller: register cleanup job: %w", err)
	}
	p.cron = c
	p.started = true

	// Run the catch-up tick before handing off to cron so Start returns
	// only after schedules due during a restart have been dispatched.
	p.Tick(ctx)
	c.Start()

	p.log.Info("poller started",
		zap.Duration("interval", p.interval),
		zap.Duration("window", p.sel.Window),
		zap.Duration("cooldown", p.sel.Cooldown))
	return nil
}

// Stop halts scheduling and waits for any running job to finish.
func (p *Poller) Stop() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.started {
		return
	}
	<-p.cron.Stop().Done()
	p.started = false
	p.log.Info("poller stopped")
}

// Tick runs one dispatch cycle. A store-level read error aborts the cycle;
// nothing was advanced, so the next tick retries naturally. Everything else
// is handled per schedule inside the dispatcher.
func (p *Poller) Tick(ctx context.Context) {
	defer func() {
		if r := recover(); r != nil {
			p.log.Error("tick panicked", zap.Any("panic", r))
		}
	}()

	start := time.Now()
	now := start.UTC()

	candidates, err := p.source.DueCandidates(ctx, now)
	if err != nil {
		p.log.Error("due-candidate query failed", zap.Error(err))
		p.metrics.ObserveTick(time.Since(start).Seconds(), 0, true)
		return
	}

	due := p.sel.Due(now, candidates)
	if len(due) > 0 {
		p.log.Info("tick selected due schedules",
			zap.Int("candidates", len(candidates)),
			zap.Int("due", len(due)))
		p.dispatcher.DispatchAll(ctx, now, due)
	}
	p.metrics.ObserveTick(time.Since(start).Seconds(), len(due), false)
}

// cleanup evicts cached audio references past retention.
func (p *Poller) cleanup(_ context.Context) {
	defer func() {
		if r := recover(); r != nil {
			p.log.Error("cleanup panicked", zap.Any("panic", r))
		}
	}()

	cutoff := time.Now().Add(-p.retention)
	n, err := p.evictor.EvictOlderThan(cutoff)
	if err != nil {
		p.log.Error("audio cache cleanup failed", zap.Error(err))
		return
	}
	p.metrics.RecordEvictions(n)
	if n > 0 {
		p.log.Info("audio cache cleaned", zap.Int("evicted", n))
	}
}
