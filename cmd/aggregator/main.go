// Command aggregator is the composition root: it loads configuration, wires
// the store, cache, event bus, scraper registry, job runner, cron
// scheduler, and HTTP control surface together, and serves until signaled
// to stop.
package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/cybersmurf/realestate-aggregator/internal/audit"
	"github.com/cybersmurf/realestate-aggregator/internal/browser"
	"github.com/cybersmurf/realestate-aggregator/internal/cadastre"
	"github.com/cybersmurf/realestate-aggregator/internal/config"
	"github.com/cybersmurf/realestate-aggregator/internal/dispatch"
	"github.com/cybersmurf/realestate-aggregator/internal/env"
	"github.com/cybersmurf/realestate-aggregator/internal/events"
	"github.com/cybersmurf/realestate-aggregator/internal/filter"
	"github.com/cybersmurf/realestate-aggregator/internal/geocode"
	"github.com/cybersmurf/realestate-aggregator/internal/logging"
	"github.com/cybersmurf/realestate-aggregator/internal/metrics"
	"github.com/cybersmurf/realestate-aggregator/internal/redisx"
	"github.com/cybersmurf/realestate-aggregator/internal/runner"
	"github.com/cybersmurf/realestate-aggregator/internal/scheduler"
	"github.com/cybersmurf/realestate-aggregator/internal/scrapers"
	"github.com/cybersmurf/realestate-aggregator/internal/store"

	httpapi "github.com/cybersmurf/realestate-aggregator/http"
)

func main() {
	cfg, err := config.Load(env.Get("CONFIG_PATH", "config.yaml"))
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	zlog := logging.New(cfg.Logging.Level, cfg.Logging.Format)

	st, err := store.Open(cfg.Database.DSN())
	if err != nil {
		log.Fatalf("open store: %v", err)
	}
	defer st.Close()

	rootCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	startupCtx, cancelStartup := context.WithTimeout(context.Background(), 10*time.Second)
	if err := st.Ping(startupCtx); err != nil {
		cancelStartup()
		log.Fatalf("ping store: %v", err)
	}
	if err := st.Migrate(startupCtx); err != nil {
		cancelStartup()
		log.Fatalf("migrate store: %v", err)
	}
	cancelStartup()

	var pub events.Publisher
	if cfg.Redis.Addr != "" {
		rdb := redis.NewClient(&redis.Options{Addr: cfg.Redis.Addr, Password: cfg.Redis.Password, DB: cfg.Redis.DB})
		if err := rdb.Ping(rootCtx).Err(); err != nil {
			log.Fatalf("ping redis: %v", err)
		}
		st.SourceCache = redisx.NewSourceIDCache(&redisx.Client{Rdb: rdb}, time.Hour)
		pub = events.NewRedis(rootCtx, rdb, zlog)
	} else {
		pub = events.NewInMemory(256)
	}

	browserPool := browser.New(browser.DefaultConfig(), zlog)
	if err := browserPool.Start(context.Background(), true); err != nil {
		zlog.Warn().Err(err).Msg("headless browser unavailable, remax JS fallback disabled")
		browserPool = nil
	}

	filterMgr := filter.New(cfg.QualityFilters, cfg.SearchFilters)
	innerSink := scrapers.NewSink(filterMgr, st)
	countingSink := scrapers.NewCountingSink(innerSink, pub)
	adapters := scrapers.All(countingSink, browserPool, zlog)

	jobRunner := runner.New(adapters, countingSink, st, pub, zlog)

	runJob := func(ctx context.Context, jobID string, sourceCodes []string, fullRescan bool) {
		if err := jobRunner.RunJob(ctx, jobID, sourceCodes, fullRescan); err != nil {
			zlog.Error().Err(err).Str("job_id", jobID).Msg("scrape job finished with errors")
		}
	}

	cronRun := func(ctx context.Context, sourceCodes []string, fullRescan bool) {
		jobID, err := st.CreateJob(ctx, sourceCodes, fullRescan)
		if err != nil {
			zlog.Error().Err(err).Msg("scheduled job creation failed")
			return
		}
		runJob(ctx, jobID, sourceCodes, fullRescan)
	}

	sched, err := scheduler.New(cfg, cronRun, zlog)
	if err != nil {
		log.Fatalf("build scheduler: %v", err)
	}
	if cfg.Scheduler.Enabled {
		sched.Start()
	}

	jobDispatcher := dispatch.New(64, 4, 2*time.Hour, func(ctx context.Context, j dispatch.Job) {
		runJob(ctx, j.JobID, j.SourceCodes, j.FullRescan)
	})

	geocodeClient := geocode.New(zlog)
	cadastreClient := cadastre.New(zlog)
	metricsCollector := metrics.New()
	auditLogger := audit.New(pub, zlog)

	go auditLogger.Run(rootCtx)

	router := BuildRouter(RouterDeps{
		Scrape: httpapi.ScrapeDeps{
			Store:      st,
			Dispatcher: jobDispatcher,
		},
		Enrichment: httpapi.EnrichmentDeps{
			Store:    st,
			Geocode:  geocodeClient,
			Cadastre: cadastreClient,
		},
		Scheduler: httpapi.SchedulerDeps{Scheduler: sched},
		Health:    httpapi.HealthDeps{Store: st, Metrics: metricsCollector},
	})

	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		zlog.Info().Str("addr", cfg.HTTPAddr).Msg("aggregator listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("http server error: %v", err)
		}
	}()

	<-rootCtx.Done()
	zlog.Info().Msg("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	_ = srv.Shutdown(shutdownCtx)

	shutCtx := sched.Stop()
	<-shutCtx.Done()

	if browserPool != nil {
		browserPool.Close()
	}
}
