package app

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/mliyanage/kickass-morning-sub000/internal/audiocache"
	"github.com/mliyanage/kickass-morning-sub000/internal/compose"
	"github.com/mliyanage/kickass-morning-sub000/internal/config"
	"github.com/mliyanage/kickass-morning-sub000/internal/dispatch"
	"github.com/mliyanage/kickass-morning-sub000/internal/metrics"
	"github.com/mliyanage/kickass-morning-sub000/internal/poller"
	"github.com/mliyanage/kickass-morning-sub000/internal/selector"
	"github.com/mliyanage/kickass-morning-sub000/internal/store"
	"github.com/mliyanage/kickass-morning-sub000/internal/telephony"
	"github.com/mliyanage/kickass-morning-sub000/internal/webhook"
)

// App wires the dispatch engine: store, selector, coordinator, poller and
// the webhook HTTP surface.
type App struct {
	cfg config.Config
	log *zap.Logger
}

// New prepares the application.
func New(cfg config.Config, log *zap.Logger) *App {
	return &App{cfg: cfg, log: log}
}

// Run starts everything and blocks until the context is canceled or a
// termination signal arrives.
func (a *App) Run(ctx context.Context) error {
	a.log.Info("starting wake-up dispatch engine",
		zap.String("http", a.cfg.HTTPAddr),
		zap.Duration("pollInterval", a.cfg.PollInterval))

	repo, err := store.OpenSQLite(ctx, a.cfg.DBPath)
	if err != nil {
		return err
	}
	defer func() { _ = repo.Close() }()
	a.log.Info("sqlite ready", zap.String("path", a.cfg.DBPath))

	cache, err := audiocache.Open(a.cfg.AudioCacheDir)
	if err != nil {
		return err
	}

	m := metrics.NewCollector(prometheus.DefaultRegisterer)

	placer := telephony.NewClient(a.cfg.ProviderBaseURL, a.cfg.ProviderToken, a.log)
	coord := dispatch.New(repo, placer, compose.New(), cache,
		a.log, m, a.cfg.WorkerLimit, a.cfg.CallTimeout)

	sel := selector.New(a.cfg.PollInterval, a.cfg.WindowSlack, a.cfg.DispatchCooldown)
	drv := poller.New(repo, sel, coord, cache, a.log, m,
		a.cfg.PollInterval, a.cfg.AudioRetention)

	srv := &http.Server{
		Addr:         a.cfg.HTTPAddr,
		Handler:      webhook.NewRouter(repo, a.log, m),
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 20 * time.Second,
	}
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			a.log.Error("http server error", zap.Error(err))
		}
	}()

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := drv.Start(ctx); err != nil {
		return err
	}

	<-ctx.Done()
	a.log.Info("shutdown signal received")

	drv.Stop()

	shCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shCtx); err != nil {
		a.log.Warn("http server shutdown error", zap.Error(err))
	}
	return nil
}
