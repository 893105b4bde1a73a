package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	crerr "github.com/cockroachdb/errors"

	"github.com/fortuna/pitchside/internal/api/rest"
	"github.com/fortuna/pitchside/internal/api/websocket"
	"github.com/fortuna/pitchside/internal/cache"
	"github.com/fortuna/pitchside/internal/config"
	"github.com/fortuna/pitchside/internal/fetch"
	"github.com/fortuna/pitchside/internal/ingest"
	"github.com/fortuna/pitchside/internal/ingest/transfermarkt"
	"github.com/fortuna/pitchside/internal/logging"
	"github.com/fortuna/pitchside/internal/publisher"
	"github.com/fortuna/pitchside/internal/reconciliation"
	"github.com/fortuna/pitchside/internal/scheduler"
	"github.com/fortuna/pitchside/internal/service"
	"github.com/fortuna/pitchside/internal/store"
	"github.com/fortuna/pitchside/internal/store/repository"
)

const (
	serviceName    = "pitchside"
	serviceVersion = "1.0.0"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		os.Exit(1)
	}

	logger := logging.NewJSON(logging.ParseLevel(cfg.LogLevel)).With("service", serviceName)
	logging.SetDefault(logger)
	defer logger.Sync()

	if err := run(cfg, logger); err != nil {
		logger.Error("service exited with error", "err", err)
		os.Exit(1)
	}
}

func run(cfg config.Config, logger *logging.Logger) error {
	logger.Info("starting", "version", serviceVersion, "leagues", len(cfg.Leagues))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := store.NewDatabase(cfg.DatabaseURL)
	if err != nil {
		return crerr.Wrap(err, "connect database")
	}
	defer db.Close()
	logger.Info("connected to database")

	if cfg.RunMigrations {
		version, err := db.RunMigrations()
		if err != nil {
			return crerr.Wrap(err, "run migrations")
		}
		logger.Info("database migrations applied", "version", version)
	}
	catalog := repository.NewCatalog(db)

	wsServer := websocket.NewServer(logger)
	sinks := publisher.Fanout{wsServer}
	checks := map[string]rest.HealthChecker{"database": db}

	var (
		locks     scheduler.Locker
		cursor    ingest.Cursor
		yields    ingest.YieldTracker
		predictor ingest.Predictor
	)
	if cfg.RedisURL != "" {
		redisCache, err := connectRedis(ctx, cfg.RedisURL, logger)
		if err != nil {
			return err
		}
		defer redisCache.Close()

		streams := publisher.NewRedisStreamPublisher(redisCache.Client())
		locks, cursor, yields, predictor = redisCache, redisCache, redisCache, streams
		sinks = append(sinks, streams)
		checks["redis"] = redisCache
	} else {
		local := cache.NewLocal()
		locks, cursor, yields = local, local, local
		logger.Warn("REDIS_URL not set: in-process locks, no event stream, no prediction dispatch")
	}

	env := ingest.Env{
		Fetcher:  newFetcher(cfg, logger),
		Site:     transfermarkt.NewSite(cfg.SourceBaseURL),
		Catalog:  catalog,
		Logger:   logger,
		Pauses:   ingest.DefaultPauses(),
		Location: cfg.Location,
	}
	resolver := reconciliation.NewResolver(catalog, logger)

	jobs := scheduler.Jobs{
		Matches:     ingest.NewLeagueSync(env, resolver, yields),
		Squads:      ingest.NewSquadSync(env),
		Clubs:       ingest.NewClubSync(env, resolver),
		News:        ingest.NewNewsSync(env, cursor, cfg.NewsURLTemplate, cfg.NewsTeamsPerRun),
		Predictions: ingest.NewPredictionRefresh(env, predictor),
		Leagues:     catalog,
	}
	sched, err := scheduler.NewOrchestrator(scheduler.ConfigFrom(cfg), jobs,
		scheduler.WithLocker(locks),
		scheduler.WithEvents(sinks),
		scheduler.WithLogger(logger),
	)
	if err != nil {
		return crerr.Wrap(err, "create scheduler")
	}
	sched.Start(ctx)

	restServer := rest.NewServer(cfg.RESTPort, rest.NewHandler(sched, service.NewMatchService(catalog), checks))
	go func() {
		logger.Info("REST API listening", "port", cfg.RESTPort)
		if err := restServer.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("REST server error", "err", err)
		}
	}()

	go func() {
		if err := wsServer.Start(ctx, cfg.WSPort); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("websocket server error", "err", err)
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	sched.Stop()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := restServer.Shutdown(shutdownCtx); err != nil {
		logger.Warn("REST API server shutdown error", "err", err)
	}
	if err := wsServer.Shutdown(shutdownCtx); err != nil {
		logger.Warn("websocket server shutdown error", "err", err)
	}

	logger.Info("stopped")
	return nil
}

// newFetcher builds the fetch controller; without Chrome every fetch goes
// straight to plain HTTP.
func newFetcher(cfg config.Config, logger *logging.Logger) *fetch.Controller {
	var primary fetch.Strategy
	if cfg.ChromeEnabled {
		primary = fetch.NewBrowser(fetch.BrowserOptions{RenderTimeout: cfg.RenderTimeout})
	}
	return fetch.NewController(primary, fetch.NewHTTP(cfg.HTTPTimeout, ""), fetch.Options{
		MaxAttempts: cfg.FetchMaxAttempts,
		RetryDelay:  cfg.FetchRetryDelay,
		Logger:      logger,
	})
}

// connectRedis retries while Redis comes up alongside the service.
func connectRedis(ctx context.Context, url string, logger *logging.Logger) (*cache.RedisCache, error) {
	const (
		maxRetries = 15
		retryDelay = 2 * time.Second
	)

	var lastErr error
	for i := 0; i < maxRetries; i++ {
		redisCache, err := cache.NewRedisCache(url)
		if err == nil {
			logger.Info("connected to redis")
			return redisCache, nil
		}
		lastErr = err
		logger.Warn("redis connection failed, retrying",
			"attempt", i+1, "max_attempts", maxRetries, "err", err)
		if err := fetch.Sleep(ctx, retryDelay); err != nil {
			return nil, err
		}
	}
	return nil, crerr.Wrapf(lastErr, "connect redis after %d attempts", maxRetries)
}
