package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"time"

	"subroute/internal/app/mount"
	"subroute/internal/infra/chirouter"
	"subroute/internal/infra/handler"
	"subroute/internal/infra/history"
	infraRedis "subroute/internal/infra/redis"
	"subroute/internal/infra/routefile"
	"subroute/internal/platform/cache"
	"subroute/internal/platform/config"
	"subroute/internal/platform/logger"
	"subroute/internal/platform/metrics"
	"subroute/internal/platform/server"
	"subroute/internal/platform/telemetry"
	"subroute/internal/usecase/journal"
	"subroute/internal/usecase/subrouter"
)

func main() {
	if err := run(); err != nil {
		slog.Error("application error", "error", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	sentryEnabled, err := telemetry.InitSentry(cfg.Sentry)
	if err != nil {
		_, _ = fmt.Fprintln(os.Stderr, err)
	} else if sentryEnabled {
		defer telemetry.Flush(2 * time.Second)
		defer telemetry.Recover()
	}

	log := logger.New(logger.Config{
		Level:  logger.Level(cfg.App.LogLevel),
		Format: logger.Format(cfg.App.LogFormat),
	})
	if sentryEnabled {
		log = logger.WrapWithSentry(log)
	}
	logger.SetDefault(log)

	var redisClient *cache.Cache
	var store journal.Store = journal.NewMemoryStore(cfg.App.JournalSize)
	if cfg.App.JournalStore == config.JournalRedis {
		redisClient, err = cache.New(cache.Config{
			Address:      cfg.Redis.Address(),
			Password:     cfg.Redis.Password,
			DB:           cfg.Redis.DB,
			MaxRetries:   cfg.Redis.MaxRetries,
			DialTimeout:  cfg.Redis.DialTimeout,
			ReadTimeout:  cfg.Redis.ReadTimeout,
			WriteTimeout: cfg.Redis.WriteTimeout,
			PoolSize:     cfg.Redis.PoolSize,
			MinIdleConns: cfg.Redis.MinIdleConns,
		}, log)
		if err != nil {
			return fmt.Errorf("connect redis: %w", err)
		}
		store = infraRedis.NewDispatchJournal(redisClient, cfg.App.JournalSize, cfg.App.JournalTTL)
	}
	journalService := journal.NewService(store, logger.WithContext(log, "component", "journal"))

	httpMetrics := metrics.NewHTTPMetrics()
	routerMetrics := metrics.NewRouterMetrics(httpMetrics.Registry())

	mode := history.ModeHash
	if cfg.History.PushState {
		mode = history.ModePushState
	}
	matchers := chirouter.NewCompiler()
	hist := history.New(history.Config{Root: cfg.History.Root, Mode: mode}, matchers,
		logger.WithContext(log, "component", "history"),
		history.WithObserver(routerMetrics),
		history.WithRecorder(journalService),
	)
	if _, err := hist.Start(cfg.History.InitialURL, true); err != nil {
		return fmt.Errorf("start history: %w", err)
	}

	routes, err := routefile.Load(cfg.App.RoutesFile)
	if err != nil {
		return fmt.Errorf("load routes: %w", err)
	}
	registry := subrouter.NewRegistry()
	mounter := mount.NewService(subrouter.Deps{
		Registrar: hist,
		Matchers:  matchers,
		Location:  hist,
		Logger:    logger.WithContext(log, "component", "subrouter"),
		Observer:  routerMetrics,
	}, nil, log)
	if err := mounter.Mount(routes, registry); err != nil {
		return err
	}

	healthHandler := &handler.HealthHandler{Routers: registry, History: hist}
	var counter server.Counter
	if redisClient != nil {
		healthHandler.Cache = redisClient
		counter = redisClient
	}
	if counter == nil && cfg.App.NavigateRateLimit > 0 {
		log.Warn("navigate rate limit needs the redis journal store; limit disabled", "limit", cfg.App.NavigateRateLimit)
	}
	navigateGuard := func(next http.Handler) http.Handler {
		limited := server.RateLimit(server.RateLimitConfig{
			Counter: counter,
			Limit:   cfg.App.NavigateRateLimit,
			Window:  cfg.App.NavigateRateWindow,
			Logger:  log,
			Prefix:  "subroute:ratelimit:navigate",
		})(next)
		return server.NavigationAuth(cfg.App.NavigateTokenHash, log)(limited)
	}

	middlewares := []func(http.Handler) http.Handler{
		server.RequestLogger(logger.WithContext(log, "component", "http")),
		server.Recoverer(log),
		server.SecurityHeaders(),
		server.CORS(cfg.Server.AllowedOrigins),
	}
	var prometheusHandler http.Handler
	if cfg.App.EnableMetrics {
		middlewares = append(middlewares, httpMetrics.Middleware)
		prometheusHandler = httpMetrics.Handler()
	}

	router := handler.NewRouter(handler.RouterConfig{
		RoutersHandler:    handler.NewRoutersHandler(registry),
		NavigateHandler:   handler.NewNavigateHandler(hist, navigateGuard),
		DispatchHandler:   handler.NewDispatchHandler(journalService),
		HealthHandler:     healthHandler,
		APIBasePath:       cfg.App.APIBasePath,
		Middlewares:       middlewares,
		PrometheusHandler: prometheusHandler,
	})

	srv := server.New(server.Config{
		Address:         cfg.Server.Address(),
		ReadTimeout:     cfg.Server.ReadTimeout,
		WriteTimeout:    cfg.Server.WriteTimeout,
		IdleTimeout:     cfg.Server.IdleTimeout,
		ShutdownTimeout: cfg.Server.ShutdownTimeout,
	}, router, log)
	if redisClient != nil {
		srv.OnShutdown(func(context.Context) error { return redisClient.Close() })
	}

	log.Info("subroute ready",
		"routers", registry.Len(),
		"location", hist.CurrentLocation(),
		"journal", cfg.App.JournalStore,
	)
	return srv.ListenAndServeWithGracefulShutdown()
}
