package main

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/lib/pq"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"wagerboard/internal/clock"
	"wagerboard/internal/fetch"
	"wagerboard/internal/observability"
	"wagerboard/internal/publish"
	"wagerboard/internal/rollover"
	"wagerboard/internal/server"
	"wagerboard/internal/store"
)

// Config holds all application configuration, loaded from environment
// variables with the WB_ prefix.
type Config struct {
	// Read API + metrics
	HTTPAddr    string
	MetricsAddr string

	// Upstream stats provider
	StatsURL     string
	StatsAPIKey  string
	FetchTimeout time.Duration

	// Weekly reset schedule
	ResetWeekday string
	ResetTime    string
	ResetTZ      string

	// Scheduler ticks
	CheckInterval   time.Duration
	RefreshInterval time.Duration

	// Storage: Postgres when a DSN is set, otherwise flat files in DataDir
	PostgresDSN   string
	MigrationsDir string
	DataDir       string

	// Optional lifecycle event publishing
	NATSURL string
}

func DefaultConfig() Config {
	return Config{
		HTTPAddr:        envOrDefault("WB_HTTP_ADDR", ":3000"),
		MetricsAddr:     envOrDefault("WB_METRICS_ADDR", ":9100"),
		StatsURL:        envOrDefault("WB_STATS_URL", "https://api.upgrader.com/affiliate/creator/get-stats"),
		StatsAPIKey:     os.Getenv("WB_STATS_API_KEY"),
		FetchTimeout:    envDurationOrDefault("WB_FETCH_TIMEOUT", 30*time.Second),
		ResetWeekday:    envOrDefault("WB_RESET_WEEKDAY", "Saturday"),
		ResetTime:       envOrDefault("WB_RESET_TIME", "00:00"),
		ResetTZ:         envOrDefault("WB_RESET_TZ", "UTC"),
		CheckInterval:   envDurationOrDefault("WB_CHECK_INTERVAL", time.Minute),
		RefreshInterval: envDurationOrDefault("WB_REFRESH_INTERVAL", 5*time.Minute),
		PostgresDSN:     os.Getenv("WB_POSTGRES_DSN"),
		MigrationsDir:   envOrDefault("WB_MIGRATIONS_DIR", "migrations"),
		DataDir:         envOrDefault("WB_DATA_DIR", "data"),
		NATSURL:         os.Getenv("WB_NATS_URL"),
	}
}

func main() {
	log := observability.NewLogger("main")
	log.Info().Msg("wagerboard starting")

	cfg := DefaultConfig()
	if cfg.StatsAPIKey == "" {
		log.Fatal().Msg("WB_STATS_API_KEY is required")
	}

	// Malformed schedule config is fatal: a wrong boundary silently shifts
	// every rollover.
	schedule, err := clock.ParseSchedule(cfg.ResetWeekday, cfg.ResetTime, cfg.ResetTZ)
	if err != nil {
		log.Fatal().Err(err).Msg("invalid reset schedule")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	// --- Snapshot store ---
	var blob store.Store
	if cfg.PostgresDSN != "" {
		db, err := sql.Open("postgres", cfg.PostgresDSN)
		if err != nil {
			log.Fatal().Err(err).Msg("postgres open")
		}
		defer db.Close()

		db.SetMaxOpenConns(10)
		db.SetMaxIdleConns(5)
		db.SetConnMaxLifetime(5 * time.Minute)

		if err := db.PingContext(ctx); err != nil {
			log.Fatal().Err(err).Msg("postgres ping")
		}

		migrator := store.NewMigrator(db, cfg.MigrationsDir, observability.NewLogger("migrate"))
		if err := migrator.Up(ctx); err != nil {
			log.Fatal().Err(err).Msg("run migrations")
		}

		blob = store.NewPostgresStore(db)
		log.Info().Msg("using postgres snapshot store")
	} else {
		fileStore, err := store.NewFileStore(cfg.DataDir)
		if err != nil {
			log.Fatal().Err(err).Msg("open data dir")
		}
		blob = fileStore
		log.Info().Str("dir", cfg.DataDir).Msg("using file snapshot store")
	}
	records := store.NewRecords(blob)

	// --- Observability ---
	metrics := observability.NewMetrics()
	healthChecker := observability.NewHealthChecker()

	// --- Upstream fetcher ---
	fetcher := fetch.NewClient(cfg.StatsURL, cfg.StatsAPIKey, cfg.FetchTimeout,
		observability.NewLogger("fetch"))

	// --- Optional lifecycle events ---
	var events rollover.EventSink
	if cfg.NATSURL != "" {
		nc, js, err := publish.Connect(cfg.NATSURL, observability.NewLogger("nats"))
		if err != nil {
			log.Fatal().Err(err).Msg("nats connect")
		}
		defer nc.Close()

		if err := publish.EnsureStream(ctx, js); err != nil {
			log.Fatal().Err(err).Msg("ensure events stream")
		}
		events = publish.NewPublisher(js, metrics, observability.NewLogger("publish"))
		log.Info().Msg("lifecycle event publishing enabled")
	}

	// --- Scheduler + read API ---
	sched := rollover.New(rollover.Deps{
		Schedule:        schedule,
		Records:         records,
		Fetcher:         fetcher,
		Events:          events,
		Metrics:         metrics,
		Logger:          observability.NewLogger("rollover"),
		CheckInterval:   cfg.CheckInterval,
		RefreshInterval: cfg.RefreshInterval,
	})

	api := server.New(cfg.HTTPAddr, records, healthChecker, metrics,
		observability.NewLogger("http"))

	errChan := make(chan error, 4)

	go func() {
		errChan <- sched.Run(ctx)
	}()

	go func() {
		errChan <- api.Run(ctx)
	}()

	go func() {
		metricsMux := http.NewServeMux()
		metricsMux.Handle("/metrics", promhttp.Handler())
		metricsServer := &http.Server{Addr: cfg.MetricsAddr, Handler: metricsMux}
		go func() {
			<-ctx.Done()
			shutCtx, c := context.WithTimeout(context.Background(), 5*time.Second)
			defer c()
			metricsServer.Shutdown(shutCtx)
		}()
		log.Info().Str("addr", cfg.MetricsAddr).Msg("metrics server listening")
		if err := metricsServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errChan <- fmt.Errorf("metrics server: %w", err)
		}
	}()

	healthChecker.SetReady(true)
	log.Info().
		Str("http", cfg.HTTPAddr).
		Str("reset", fmt.Sprintf("%s %s %s", cfg.ResetWeekday, cfg.ResetTime, cfg.ResetTZ)).
		Msg("wagerboard ready")

	select {
	case sig := <-sigChan:
		log.Info().Str("signal", sig.String()).Msg("shutting down")
	case err := <-errChan:
		if err != nil && err != context.Canceled {
			log.Error().Err(err).Msg("component failed, shutting down")
		}
	}

	cancel()
	log.Info().Msg("wagerboard shutdown complete")
}

// --- Helpers ---

func envOrDefault(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}

func envDurationOrDefault(key string, defaultVal time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return defaultVal
	}
	return d
}
