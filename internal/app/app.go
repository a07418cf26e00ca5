// Package app assembles the simulator's components from configuration.
package app

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/newthinker/lunar/internal/analytics"
	"github.com/newthinker/lunar/internal/api"
	"github.com/newthinker/lunar/internal/archive"
	"github.com/newthinker/lunar/internal/config"
	"github.com/newthinker/lunar/internal/llm/factory"
	"github.com/newthinker/lunar/internal/metrics"
	"github.com/newthinker/lunar/internal/narrator"
	"github.com/newthinker/lunar/internal/random"
	"github.com/newthinker/lunar/internal/scheduler"
	"github.com/newthinker/lunar/internal/session"
	"github.com/newthinker/lunar/internal/simulator"
	"go.uber.org/zap"
)

const shutdownTimeout = 30 * time.Second

// App is the main application orchestrator
type App struct {
	cfg        *config.Config
	logger     *zap.Logger
	metrics    *metrics.Registry
	generator  *simulator.Generator
	forecaster *analytics.Forecaster
	sessions   *session.Store
	narrator   *narrator.Narrator
	exporter   *archive.Exporter
	scheduler  *scheduler.Scheduler
	server     *api.Server

	mu      sync.Mutex
	running bool
	cancel  context.CancelFunc
}

// Options overrides the random source, mostly for tests.
type Options struct {
	Source random.Source
}

// New wires every component described by cfg.
func New(cfg *config.Config, logger *zap.Logger, opts Options) (*App, error) {
	if cfg == nil {
		cfg = config.Defaults()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	src := opts.Source
	if src == nil {
		src = random.NewEntropy()
	}

	reg := metrics.NewRegistry()
	gen := simulator.New(cfg.Simulation.Generator(), src, logger.Named("simulator"))
	fc := analytics.NewForecaster(src)

	store := session.NewStore(gen, fc, cfg.Sessions.MaxSessions, cfg.Sessions.TTL(), logger.Named("session"))
	store.SetRecorder(reg)

	provider, err := factory.New(cfg.LLM)
	if err != nil {
		return nil, fmt.Errorf("creating llm provider: %w", err)
	}
	narr := narrator.New(provider, cfg.LLM.Timeout(), cfg.LLM.MaxTokens, logger.Named("narrator"))
	narr.SetRecorder(reg)

	backend, err := archive.NewLazy(cfg.Archive)
	if err != nil {
		return nil, fmt.Errorf("creating archive: %w", err)
	}
	exporter := archive.NewExporter(backend, logger.Named("archive"))
	exporter.SetRecorder(reg)

	sched := scheduler.New(logger.Named("scheduler"))
	if cfg.Sessions.TTLMinutes > 0 && cfg.Sessions.SweepSchedule != "" {
		if err := sched.RegisterSweep(cfg.Sessions.SweepSchedule, store); err != nil {
			return nil, err
		}
	}

	metricsPath := ""
	if cfg.Metrics.Enabled {
		metricsPath = cfg.Metrics.Path
	}
	server, err := api.NewServer(api.Config{
		Host:        cfg.Server.Host,
		Port:        cfg.Server.Port,
		APIKey:      cfg.Server.APIKey,
		MetricsPath: metricsPath,
	}, api.Dependencies{
		Sessions:   store,
		Narrator:   narr,
		Exporter:   exporter,
		Metrics:    reg,
		Simulation: cfg.Simulation,
	}, logger.Named("api"))
	if err != nil {
		return nil, fmt.Errorf("creating server: %w", err)
	}

	providerName := "rules"
	if provider != nil {
		providerName = provider.Name()
	}
	logger.Debug("app wired",
		zap.String("narrator", providerName),
		zap.String("archive", cfg.Archive.Type),
		zap.Int("max_sessions", cfg.Sessions.MaxSessions),
	)

	return &App{
		cfg:        cfg,
		logger:     logger,
		metrics:    reg,
		generator:  gen,
		forecaster: fc,
		sessions:   store,
		narrator:   narr,
		exporter:   exporter,
		scheduler:  sched,
		server:     server,
	}, nil
}

// Generator returns the shared series generator.
func (a *App) Generator() *simulator.Generator { return a.generator }

// Forecaster returns the shared forecaster.
func (a *App) Forecaster() *analytics.Forecaster { return a.forecaster }

// Sessions returns the session store.
func (a *App) Sessions() *session.Store { return a.sessions }

// Narrator returns the report narrator.
func (a *App) Narrator() *narrator.Narrator { return a.narrator }

// Exporter returns the snapshot exporter.
func (a *App) Exporter() *archive.Exporter { return a.exporter }

// Server returns the HTTP server.
func (a *App) Server() *api.Server { return a.server }

// Start runs the scheduler and HTTP server until ctx is cancelled or the
// server fails, then shuts both down.
func (a *App) Start(ctx context.Context) error {
	a.mu.Lock()
	if a.running {
		a.mu.Unlock()
		return fmt.Errorf("app already running")
	}
	a.running = true
	ctx, cancel := context.WithCancel(ctx)
	a.cancel = cancel
	a.mu.Unlock()

	defer func() {
		a.mu.Lock()
		a.running = false
		a.mu.Unlock()
	}()

	a.logger.Info("lunar starting",
		zap.String("addr", a.server.Addr()),
		zap.Int("default_days", a.cfg.Simulation.DefaultDays),
	)

	a.scheduler.Start()

	errCh := make(chan error, 1)
	go func() {
		errCh <- a.server.Start()
	}()

	var serveErr error
	select {
	case <-ctx.Done():
	case serveErr = <-errCh:
	}

	a.logger.Info("lunar shutting down")
	shutdownCtx, stop := context.WithTimeout(context.Background(), shutdownTimeout)
	defer stop()

	if err := a.server.Shutdown(shutdownCtx); err != nil {
		a.logger.Error("server shutdown", zap.Error(err))
	}
	if err := a.scheduler.Stop(shutdownCtx); err != nil {
		a.logger.Error("scheduler shutdown", zap.Error(err))
	}
	return serveErr
}

// Stop ends a running Start.
func (a *App) Stop() {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.cancel != nil {
		a.cancel()
	}
}

// Stats returns application statistics
func (a *App) Stats() map[string]any {
	a.mu.Lock()
	running := a.running
	a.mu.Unlock()

	return map[string]any{
		"running":  running,
		"sessions": a.sessions.Len(),
		"addr":     a.server.Addr(),
	}
}
