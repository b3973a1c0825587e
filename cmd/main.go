// hhvacancies: hh.ru employer/vacancy sync
//
// Fetches a fixed set of hh.ru employers and their open vacancies, stores
// them in PostgreSQL or SQLite, then either:
//   - menu mode (default): answers the five queries through a text menu
//   - serve mode: re-syncs on a cron schedule and serves the queries as JSON
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"hhvacancies/internal/api"
	"hhvacancies/internal/cache"
	"hhvacancies/internal/config"
	"hhvacancies/internal/db"
	"hhvacancies/internal/menu"
	"hhvacancies/internal/scheduler"
	"hhvacancies/internal/scraper"
	"hhvacancies/internal/store"
	"hhvacancies/internal/store/postgres"
	"hhvacancies/internal/store/sqlite"
	"hhvacancies/pkg/logging"
)

const version = "1.0.0"

const shutdownTimeout = 10 * time.Second

func main() {
	configPath := flag.String("config", "config.yml", "path to the YAML config file")
	mode := flag.String("mode", "menu", "run mode: menu or serve")
	skipFetch := flag.Bool("skip-fetch", false, "menu mode: skip the sync and query existing data")
	flag.Parse()

	if err := run(*configPath, *mode, *skipFetch); err != nil {
		fmt.Fprintf(os.Stderr, "hhvacancies: %v\n", err)
		os.Exit(1)
	}
}

func run(configPath, mode string, skipFetch bool) error {
	if mode != "menu" && mode != "serve" {
		return fmt.Errorf("unknown -mode %q (want menu or serve)", mode)
	}

	// ── Config ──────────────────────────────────────────────────────────────
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}

	log := logging.New(cfg.LogLevel)
	defer log.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// ── Store ───────────────────────────────────────────────────────────────
	st, err := openStore(ctx, cfg.Database)
	if err != nil {
		return err
	}
	defer st.Close()
	log.Info("store ready", "driver", cfg.Database.Driver)

	// ── Fetcher + worker ────────────────────────────────────────────────────
	fcfg := scraper.FetcherConfig{
		BaseURL:    cfg.HH.BaseURL,
		UserAgent:  cfg.HH.UserAgent,
		PerPage:    cfg.HH.PerPage,
		SearchText: cfg.HH.SearchText,
		HTTPClient: &http.Client{Timeout: cfg.HH.Timeout},
		CacheTTL:   cfg.Redis.TTL,
	}
	if cfg.Redis.URL != "" {
		rdb, err := db.NewRedisClient(ctx, cfg.Redis.URL)
		if err != nil {
			return fmt.Errorf("redis: %w", err)
		}
		defer rdb.Close()
		fcfg.Cache = cache.New(rdb, "")
		log.Info("response cache enabled", "ttl", cfg.Redis.TTL.String())
	}

	fetcher := scraper.NewHHFetcher(fcfg, log)
	worker := scraper.NewWorker(fetcher, st, cfg.EmployerIDs, cfg.ExcludeTerms, log)

	if mode == "serve" {
		return serve(ctx, cfg, st, worker, log)
	}

	if !skipFetch {
		if _, err := worker.Run(ctx); err != nil {
			return fmt.Errorf("sync: %w", err)
		}
	}

	// The menu blocks on stdin; restore default signal handling so Ctrl-C
	// exits immediately.
	stop()
	return menu.New(st, os.Stdin, os.Stdout).Run(context.Background())
}

func openStore(ctx context.Context, cfg config.DatabaseConfig) (store.Store, error) {
	switch cfg.Driver {
	case config.DriverSQLite:
		st, err := sqlite.Open(cfg.Path)
		if err != nil {
			return nil, fmt.Errorf("sqlite: %w", err)
		}
		return st, nil
	default:
		pool, err := db.NewPostgresPool(ctx, cfg.PostgresURL())
		if err != nil {
			return nil, fmt.Errorf("postgres: %w", err)
		}
		return postgres.New(pool), nil
	}
}

// serve syncs once at startup, then on the cron schedule, while the HTTP
// API answers queries. It returns after SIGINT/SIGTERM once both are down.
func serve(ctx context.Context, cfg *config.Config, st store.Store, worker *scraper.Worker, log *logging.Logger) error {
	sched := scheduler.New(worker, cfg.Serve.SyncIntervalHours, log)

	mux := http.NewServeMux()
	api.NewHandler(st, version, log).RegisterRoutes(mux)
	srv := &http.Server{
		Addr:         ":" + cfg.Serve.Port,
		Handler:      mux,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		if err := sched.Start(gctx); err != nil {
			return err
		}
		sched.RunOnce(gctx)
		<-gctx.Done()
		sched.Stop()
		return nil
	})

	g.Go(func() error {
		log.Info("http listening", "addr", srv.Addr, "version", version)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		log.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	return g.Wait()
}
