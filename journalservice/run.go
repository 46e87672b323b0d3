package journalservice

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	"github.com/rs/zerolog"

	"github.com/isaac-evs/side-b/internal/api"
	"github.com/isaac-evs/side-b/internal/config"
	"github.com/isaac-evs/side-b/internal/factory"
	"github.com/isaac-evs/side-b/internal/health"
	"github.com/isaac-evs/side-b/internal/metrics"
	"github.com/isaac-evs/side-b/internal/stores"
)

// Run starts the journal HTTP server and blocks until shutdown or error.
func Run(cfg *config.Config, log zerolog.Logger) error {
	log.Info().
		Str("build_target", cfg.BuildTarget).
		Str("primary", cfg.PrimaryDriver).
		Str("timeline", cfg.TimelineDriver).
		Str("graph", cfg.GraphDriver).
		Str("vector", cfg.VectorStore).
		Int("http_port", cfg.HTTPPort).
		Msg("Journal service starting")

	// Create cancellable root context bound to SIGINT/SIGTERM
	ctx, stop := newServerContext()
	defer stop()

	m, err := metrics.New(nil)
	if err != nil {
		return err
	}

	svc, err := InitDependencies(ctx, cfg, m, log)
	if err != nil {
		return err
	}

	// Start health checkers; only the primary store gates readiness
	svcHealth := startHealthCheckers(ctx, cfg, log, svc)
	if err := waitUntilHealthy(ctx, cfg, svcHealth); err != nil {
		log.Error().Stack().Err(err).Msg("startup health check failed")
		_ = svc.Stop(context.Background())
		return err
	}

	router := buildRouter(cfg, svc, svcHealth, m, log)
	server := newHTTPServer(ctx, cfg, router)
	errCh := serveHTTP(server, log, cfg)

	// Graceful shutdown on context cancel or server error
	select {
	case <-ctx.Done():
		log.Info().Msg("Shutting down server")
		ctxShutdown, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		if err := server.Shutdown(ctxShutdown); err != nil {
			log.Error().Stack().Err(err).Msg("Server forced to shutdown")
			_ = svc.Stop(ctxShutdown)
			return err
		}
		if err := svc.Stop(ctxShutdown); err != nil {
			log.Warn().Err(err).Msg("in-flight propagation did not finish before shutdown")
		}
		log.Info().Msg("Server exited")
		return nil
	case err := <-errCh:
		log.Error().Stack().Err(err).Msg("HTTP server failed")
		_ = svc.Stop(context.Background())
		return err
	}
}

// InitDependencies builds the stores and services, connects and initializes them and
// seeds the mood anchors when configured. Only a primary store failure is fatal.
func InitDependencies(ctx context.Context, cfg *config.Config, m *metrics.Metrics, log zerolog.Logger) (*factory.Services, error) {
	svc, err := factory.NewServices(ctx, cfg, m, log)
	if err != nil {
		log.Error().Stack().Err(err).Msg("Store adapters unavailable")
		return nil, err
	}

	bootCtx, cancel := context.WithTimeout(ctx, cfg.BootstrapTimeout)
	defer cancel()
	failed := svc.Start(bootCtx)
	if err := failed[stores.NamePrimary]; err != nil {
		_ = svc.Stop(context.Background())
		return nil, fmt.Errorf("primary store unavailable: %w", err)
	}
	for name, err := range failed {
		log.Warn().Err(err).Str("store", name).Msg("secondary store unavailable; continuing degraded")
	}

	if cfg.SeedAnchorsOnStart {
		seeded, err := svc.Classifier.SeedAnchorsIfEmpty(bootCtx)
		switch {
		case err != nil:
			log.Warn().Err(err).Msg("mood anchor seeding failed; classification falls back to default")
		case seeded:
			log.Info().Msg("mood anchors seeded")
		}
	}
	return svc, nil
}

// buildRouter wires HTTP routes to handlers.
func buildRouter(cfg *config.Config, svc *factory.Services, svcHealth *health.ServiceHealthChecker, m *metrics.Metrics, log zerolog.Logger) *mux.Router {
	return api.NewRouter(api.Deps{
		Journal:        svc.Journal,
		Classifier:     svc.Classifier,
		Recommender:    svc.Recommender,
		Stats:          svc.Stats,
		Catalog:        svc.Primary.Songs(),
		Charts:         svc.Primary.Entries(),
		Stores:         svc.Manager,
		ServiceHealthy: svcHealth.IsHealthy,
		Metrics:        m,
		Location:       cfg.Location(),
		Log:            log,
	})
}

// startHealthCheckers starts one ping checker per registered store plus the service-level
// aggregator.
func startHealthCheckers(ctx context.Context, cfg *config.Config, log zerolog.Logger, svc *factory.Services) *health.ServiceHealthChecker {
	probe, interval := cfg.StoreProbeTimeout, cfg.HealthInterval

	primary := health.NewPingChecker(stores.NamePrimary, svc.Primary, log, probe)
	go primary.Start(ctx, interval)
	svcHealth := health.NewServiceHealthChecker(log, primary)

	for name, pinger := range map[string]health.HealthPinger{
		stores.NameTimeline: svc.Timeline,
		stores.NameGraph:    svc.Graph,
		stores.NameVector:   svc.Vector,
	} {
		if pinger == nil || !svc.Manager.IsActive(name) {
			continue
		}
		c := health.NewPingChecker(name, pinger, log, probe)
		go c.Start(ctx, interval)
		svcHealth.WithOptional(c)
	}

	go svcHealth.Start(ctx, interval)
	return svcHealth
}

func newHTTPServer(ctx context.Context, cfg *config.Config, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:              cfg.GetHTTPAddr(),
		Handler:           handler,
		ReadTimeout:       15 * time.Second,
		ReadHeaderTimeout: 10 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}
}

func serveHTTP(server *http.Server, log zerolog.Logger, cfg *config.Config) <-chan error {
	errCh := make(chan error, 1)
	go func() {
		log.Info().Int("port", cfg.HTTPPort).Msg("HTTP server starting")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()
	return errCh
}

// startupHealthTimeout is twice the health interval, at least 60 seconds.
func startupHealthTimeout(interval time.Duration) time.Duration {
	timeout := interval * 2
	if timeout < time.Minute {
		return time.Minute
	}
	return timeout
}

// waitUntilHealthy blocks until service health is healthy or the startup window expires.
func waitUntilHealthy(ctx context.Context, cfg *config.Config, svcHealth *health.ServiceHealthChecker) error {
	timeout := startupHealthTimeout(cfg.HealthInterval)
	deadline := time.Now().Add(timeout)
	ticker := time.NewTicker(250 * time.Millisecond)
	defer ticker.Stop()
	for {
		if svcHealth.IsHealthy() {
			return nil
		}
		if time.Now().After(deadline) {
			return fmt.Errorf("startup aborted: primary store not healthy within %s", timeout)
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

// newServerContext returns a cancellable context that is cancelled on SIGINT/SIGTERM.
func newServerContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
}
