package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"golang.org/x/sync/errgroup"

	"github.com/jensholdgaard/swiss-tournament/internal/clock"
	"github.com/jensholdgaard/swiss-tournament/internal/config"
	"github.com/jensholdgaard/swiss-tournament/internal/health"
	"github.com/jensholdgaard/swiss-tournament/internal/leader"
	"github.com/jensholdgaard/swiss-tournament/internal/store"
	"github.com/jensholdgaard/swiss-tournament/internal/telemetry"
	"github.com/jensholdgaard/swiss-tournament/internal/tournament"

	// Register store drivers so they are available via store.Open.
	_ "github.com/jensholdgaard/swiss-tournament/internal/store/memory"
	_ "github.com/jensholdgaard/swiss-tournament/internal/store/postgres"
	_ "github.com/jensholdgaard/swiss-tournament/internal/store/sqlstore"
)

var version = "dev"

func main() {
	configPath := flag.String("config", "config.yaml", "path to configuration file")
	showVersion := flag.Bool("version", false, "print version and exit")
	flag.Parse()

	if *showVersion {
		fmt.Println(version)
		os.Exit(0)
	}

	if err := run(*configPath); err != nil {
		slog.Error("fatal error", slog.Any("error", err))
		os.Exit(1)
	}
}

func run(configPath string) error {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	tp, err := telemetry.Setup(ctx, cfg.Telemetry)
	if err != nil {
		slog.Warn("telemetry setup failed, continuing without OTEL export", slog.Any("error", err))
		tp = telemetry.NewNopProvider()
	}
	defer func() {
		if shutdownErr := tp.Shutdown(context.Background()); shutdownErr != nil {
			slog.Error("telemetry shutdown error", slog.Any("error", shutdownErr))
		}
	}()

	logger := tp.Logger
	clk := clock.Real{}

	repos, err := store.Open(ctx, cfg.Database, clk)
	if err != nil {
		return fmt.Errorf("opening store (driver=%s): %w", cfg.Database.Driver, err)
	}
	defer repos.Closer.Close()

	logger.InfoContext(ctx, "connected to database", slog.String("driver", cfg.Database.Driver))

	if err := migrate(ctx, cfg, repos, logger); err != nil {
		return err
	}

	mgr := tournament.NewManager(repos, logger, tp.TracerProvider)
	if err := mgr.RegisterMetrics(tp.Meter("github.com/jensholdgaard/swiss-tournament/internal/tournament")); err != nil {
		return fmt.Errorf("registering metrics: %w", err)
	}

	healthHandler := health.NewHandler(clk,
		health.Checker{
			Name:  "database",
			Check: repos.Ping,
		},
	)

	router := chi.NewRouter()
	router.Use(middleware.Recoverer)
	healthHandler.Routes(router)

	httpServer := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.InfoContext(gctx, "starting ops server", slog.Int("port", cfg.Server.Port))
		if listenErr := httpServer.ListenAndServe(); listenErr != nil && !errors.Is(listenErr, http.ErrServerClosed) {
			return fmt.Errorf("ops server: %w", listenErr)
		}
		return nil
	})
	g.Go(func() error {
		healthHandler.SetReady(true)
		logger.InfoContext(gctx, "swissd is running", slog.String("version", version))

		<-gctx.Done()
		logger.Info("shutting down...")
		healthHandler.SetReady(false)

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer shutdownCancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("ops server shutdown: %w", err)
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		return err
	}

	logger.Info("shutdown complete")
	return nil
}

// migrate applies the embedded schema. With leader election enabled only the
// lease holder migrates; the others wait for it and then re-apply, which is
// a no-op because migrations are idempotent.
func migrate(ctx context.Context, cfg *config.Config, repos *store.Repositories, logger *slog.Logger) error {
	if !cfg.Database.Migrate {
		return nil
	}

	apply := func(ctx context.Context) error {
		start := time.Now()
		if err := repos.Migrate(ctx); err != nil {
			return fmt.Errorf("applying migrations: %w", err)
		}
		logger.InfoContext(ctx, "schema up to date", slog.Duration("took", time.Since(start)))
		return nil
	}

	if !cfg.LeaderElection.Enabled {
		return apply(ctx)
	}

	logger.InfoContext(ctx, "leader election enabled, waiting for migration lease...")
	if err := leader.Do(ctx, cfg.LeaderElection, logger, apply); err != nil {
		return fmt.Errorf("leader-gated migration: %w", err)
	}
	return nil
}
