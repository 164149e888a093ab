package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/okian/ranked/internal/adapters/http/api"
	"github.com/okian/ranked/internal/adapters/http/swagger"
	"github.com/okian/ranked/internal/adapters/provider/remote"
	"github.com/okian/ranked/internal/adapters/provider/sqlite"
	app "github.com/okian/ranked/internal/app"
	"github.com/okian/ranked/internal/config"
	"github.com/okian/ranked/internal/domain/rehydrate"
	"github.com/okian/ranked/pkg/logger"
	"github.com/okian/ranked/pkg/metrics"
	"github.com/okian/ranked/pkg/telemetry"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"golang.org/x/sync/errgroup"
)

// HTTP server timeout constants.
const (
	readTimeout       = 10 * time.Second
	writeTimeout      = 10 * time.Second
	idleTimeout       = 60 * time.Second
	readHeaderTimeout = 5 * time.Second
)

func main() {
	// Initialize logging
	if err := logger.Init(); err != nil {
		_, _ = os.Stderr.WriteString("failed to initialize logging: " + err.Error() + "\n")
		os.Exit(1)
	}

	// Root context with cancel on SIGINT/SIGTERM.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)

	// Load configuration (defaults -> optional file -> .env -> env)
	cfg, err := config.Load(ctx)
	if err != nil {
		_, _ = os.Stderr.WriteString("failed to load config: " + err.Error() + "\n")
		stop()
		os.Exit(1)
	}

	err = run(ctx, cfg, nil)
	stop()
	_ = logger.Sync()
	if err != nil {
		_, _ = os.Stderr.WriteString("ranked: " + err.Error() + "\n")
		os.Exit(1)
	}
}

// run serves until ctx is cancelled or the rehydration loop dies. A nil
// listener makes it listen on cfg.Addr.
func run(ctx context.Context, cfg *config.Config, ln net.Listener) error {
	if err := logger.Init(logger.WithJSON(cfg.LogFormat == "json")); err != nil {
		return fmt.Errorf("init logging: %w", err)
	}
	log := logger.Get()
	if err := logger.SetLevelString(cfg.LogLevel); err != nil {
		log.Warn(ctx, "invalid log_level; falling back to info", logger.String("log_level", cfg.LogLevel), logger.Error(err))
		_ = logger.SetLevelString("info")
	}

	metrics.Configure(metricsOptions(cfg)...)
	registerRuntimeCollectors()

	shutdownTracing, err := telemetry.Setup(ctx, cfg.OTelEndpoint, cfg.ServiceName)
	if err != nil {
		return fmt.Errorf("setup tracing: %w", err)
	}
	defer func() {
		flushCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		if err := shutdownTracing(flushCtx); err != nil {
			log.Warn(flushCtx, "tracing shutdown failed", logger.Error(err))
		}
	}()

	providers, closeProviders, err := buildProviders(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer func() {
		if err := closeProviders(); err != nil {
			log.Error(context.Background(), "failed to close provider", logger.Error(err))
		}
	}()

	svc := app.New(
		app.WithLogger(log),
		app.WithProviders(providers),
		app.WithRehydrateInterval(cfg.RehydrateInterval),
		app.WithFetchTimeout(cfg.FetchTimeout),
		app.WithRehydrateConcurrency(cfg.RehydrateConcurrency),
	)
	if err := svc.Start(ctx); err != nil {
		return fmt.Errorf("start service: %w", err)
	}
	defer svc.Stop()

	// HTTP mux and routes.
	mux := http.NewServeMux()
	swagger.Register(ctx, mux)
	apiServer := api.NewServer(svc, svc,
		api.WithPageLimits(cfg.DefaultPageLimit, cfg.MaxPageLimit),
		api.WithLogger(log.Named("http")),
	)
	apiServer.Register(ctx, mux)

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           apiServer.Handler(mux, cfg.CORSOrigins),
		ReadTimeout:       readTimeout,
		WriteTimeout:      writeTimeout,
		IdleTimeout:       idleTimeout,
		ReadHeaderTimeout: readHeaderTimeout,
	}
	if ln == nil {
		if ln, err = net.Listen("tcp", cfg.Addr); err != nil {
			return fmt.Errorf("listen %s: %w", cfg.Addr, err)
		}
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info(gctx, "starting HTTP server", logger.String("addr", ln.Addr().String()))
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		select {
		case err := <-svc.Done():
			if err != nil {
				log.Error(gctx, "rehydration loop terminated", logger.Error(err))
				return err
			}
			return nil
		case <-gctx.Done():
			return nil
		}
	})
	g.Go(func() error {
		<-gctx.Done()
		log.Info(gctx, "shutting down server...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Error(shutdownCtx, "server shutdown failed", logger.Error(err))
		}
		return nil
	})

	err = g.Wait()
	log.Info(context.Background(), "server stopped")
	return err
}

// buildProviders connects the configured attribution backend.
func buildProviders(ctx context.Context, cfg *config.Config, log logger.Logger) (rehydrate.Providers, func() error, error) {
	switch cfg.Provider {
	case config.ProviderHTTP:
		client, err := remote.NewClient(cfg.RemoteBaseURL,
			remote.WithTimeout(cfg.RemoteTimeout),
			remote.WithBearerToken(cfg.RemoteToken),
		)
		if err != nil {
			return rehydrate.Providers{}, nil, fmt.Errorf("remote provider: %w", err)
		}
		log.Info(ctx, "using remote attribution provider", logger.String("baseURL", cfg.RemoteBaseURL))
		return remote.Providers(client), func() error { return nil }, nil
	default:
		store, err := sqlite.Open(ctx, cfg.SQLitePath, sqlite.WithLogger(log.Named("sqlite")))
		if err != nil {
			return rehydrate.Providers{}, nil, fmt.Errorf("sqlite provider: %w", err)
		}
		log.Info(ctx, "using sqlite attribution provider", logger.String("path", cfg.SQLitePath))
		return sqlite.Providers(store), store.Close, nil
	}
}

// metricsOptions maps the metrics settings of cfg onto the global manager.
func metricsOptions(cfg *config.Config) []metrics.Option {
	return []metrics.Option{
		metrics.WithMetricsEnabled(cfg.MetricsEnabled),
		metrics.WithNamespace(cfg.MetricsNamespace),
		metrics.WithSubsystem(cfg.MetricsSubsystem),
		metrics.WithCustomLabels(cfg.MetricsLabels),
		metrics.WithFetchBuckets(cfg.MetricsFetchBuckets),
	}
}

// registerRuntimeCollectors exposes Go runtime and process metrics on the
// service registry.
func registerRuntimeCollectors() {
	for _, c := range []prometheus.Collector{
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	} {
		if err := metrics.GetRegistry().Register(c); err != nil {
			var already prometheus.AlreadyRegisteredError
			if !errors.As(err, &already) {
				logger.Get().Warn(context.Background(), "failed to register collector", logger.Error(err))
			}
		}
	}
}
