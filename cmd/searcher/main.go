// Command searcher serves queries against the indexes the indexer publishes.
//
// It loads every configured book from the artifact store, answers the search
// API, hands the raw artifacts to the browser widget, and swaps in new
// indexes when the indexer announces them on Kafka or on the periodic
// reload.
//
// Usage:
//
//	go run ./cmd/searcher [-config configs/development.yaml]
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Adithya-Monish-Kumar-K/docsearch/internal/analytics"
	"github.com/Adithya-Monish-Kumar-K/docsearch/internal/artifact"
	"github.com/Adithya-Monish-Kumar-K/docsearch/internal/index"
	"github.com/Adithya-Monish-Kumar-K/docsearch/internal/schedule"
	"github.com/Adithya-Monish-Kumar-K/docsearch/internal/searcher/cache"
	"github.com/Adithya-Monish-Kumar-K/docsearch/internal/searcher/catalog"
	"github.com/Adithya-Monish-Kumar-K/docsearch/internal/searcher/executor"
	"github.com/Adithya-Monish-Kumar-K/docsearch/internal/searcher/handler"
	"github.com/Adithya-Monish-Kumar-K/docsearch/internal/searcher/reload"
	"github.com/Adithya-Monish-Kumar-K/docsearch/internal/searcher/suggest"
	"github.com/Adithya-Monish-Kumar-K/docsearch/pkg/config"
	"github.com/Adithya-Monish-Kumar-K/docsearch/pkg/health"
	"github.com/Adithya-Monish-Kumar-K/docsearch/pkg/kafka"
	"github.com/Adithya-Monish-Kumar-K/docsearch/pkg/logger"
	"github.com/Adithya-Monish-Kumar-K/docsearch/pkg/metrics"
	"github.com/Adithya-Monish-Kumar-K/docsearch/pkg/middleware"
	pkgredis "github.com/Adithya-Monish-Kumar-K/docsearch/pkg/redis"
)

func main() {
	configPath := flag.String("config", "configs/development.yaml", "path to config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}
	logger.Setup(cfg.Logging.Level, cfg.Logging.Format)

	books := cfg.Search.Books
	if len(books) == 0 {
		books = []string{cfg.Book.Name}
	}
	slog.Info("starting search service", "port", cfg.Server.Port, "books", books)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	m := metrics.New()
	if cfg.Metrics.Enabled {
		shutdown := metrics.StartServer(cfg.Metrics.Port, metrics.BuildInfo{Component: "searcher", IndexFormat: index.Version})
		defer shutdown(context.Background())
	}

	store, err := artifact.New(ctx, cfg.Store)
	if err != nil {
		slog.Error("failed to open artifact store", "error", err)
		os.Exit(1)
	}
	cat := catalog.New(store, cfg.Indexer.ArtifactKey, m)
	if err := cat.LoadAll(ctx, books); err != nil {
		// Unavailable books answer 503 until a reload succeeds.
		slog.Warn("some books failed to load", "error", err)
	}
	slog.Info("catalog loaded", "available", cat.Len(), "configured", len(books))

	var redisClient *pkgredis.Client
	if cfg.Redis.Enabled() {
		redisClient, err = pkgredis.NewClient(ctx, cfg.Redis)
		if err != nil {
			slog.Warn("redis unavailable, using the in-process cache only", "error", err)
			redisClient = nil
		} else {
			defer redisClient.Close()
			slog.Info("redis cache enabled", "addr", cfg.Redis.Addr, "ttl", cfg.Redis.CacheTTL)
		}
	}
	queryCache := cache.New(cfg.Cache, redisClient, cfg.Redis.CacheTTL, m)

	aggregator := analytics.NewAggregator(20)
	var publisher analytics.Publisher
	if cfg.Kafka.Enabled() {
		producer := kafka.NewProducer(cfg.Kafka, cfg.Kafka.Topics.AnalyticsEvents)
		defer producer.Close()
		publisher = producer
	}
	collector := analytics.NewCollector(publisher, aggregator, 10000, 100, 5*time.Second)
	collector.Start(ctx)
	defer collector.Close()

	if cfg.Kafka.Enabled() {
		// Every instance must see every build, so each gets its own group.
		host, _ := os.Hostname()
		group := fmt.Sprintf("%s-%s", cfg.Kafka.ConsumerGroup, host)
		reloader := reload.New(cat, queryCache, books)
		consumer := kafka.NewConsumer(cfg.Kafka, cfg.Kafka.Topics.IndexBuilt, group, reloader.HandleMessage)
		go func() {
			if err := consumer.Start(ctx); err != nil {
				slog.Error("reload consumer error", "error", err)
			}
		}()
		slog.Info("live reload enabled", "topic", cfg.Kafka.Topics.IndexBuilt, "group", group)
	}

	if cfg.Search.ReloadInterval > 0 {
		scheduler := schedule.New()
		job := schedule.JobFunc{JobName: "reload-catalog", Fn: cat.Reload}
		if err := scheduler.Add(job, "@every "+cfg.Search.ReloadInterval.String()); err != nil {
			slog.Error("failed to schedule reloads", "error", err)
			os.Exit(1)
		}
		scheduler.Start(ctx)
		defer scheduler.Stop()
	}

	checker := health.NewChecker()
	checker.Register("catalog", func(ctx context.Context) health.ComponentHealth {
		n := cat.Len()
		switch {
		case n == 0:
			return health.ComponentHealth{Status: health.StatusDown, Message: "no books loaded"}
		case n < len(books):
			return health.ComponentHealth{Status: health.StatusDegraded, Message: fmt.Sprintf("%d of %d books loaded", n, len(books))}
		}
		return health.ComponentHealth{Status: health.StatusUp, Message: fmt.Sprintf("%d books loaded", n)}
	})
	checker.Register("redis", func(ctx context.Context) health.ComponentHealth {
		if redisClient == nil {
			return health.ComponentHealth{Status: health.StatusDegraded, Message: "not configured"}
		}
		if err := redisClient.Ping(ctx); err != nil {
			return health.ComponentHealth{Status: health.StatusDegraded, Message: err.Error()}
		}
		return health.ComponentHealth{Status: health.StatusUp}
	})

	h := handler.New(handler.Options{
		Catalog:      cat,
		Executor:     executor.New(cat, cfg.Search.MaxLimit, m),
		Cache:        queryCache,
		Collector:    collector,
		Suggester:    suggest.New(3),
		Metrics:      m,
		DefaultBook:  books[0],
		ArtifactName: cfg.Indexer.ArtifactKey,
		SlowQuery:    cfg.Server.SlowQuery,
	})
	analyticsHandler := analytics.NewHandler(aggregator)

	mux := http.NewServeMux()
	h.Register(mux)
	mux.HandleFunc("GET /api/v1/analytics", analyticsHandler.Stats)
	mux.HandleFunc("GET /health/live", checker.LiveHandler())
	mux.HandleFunc("GET /health/ready", checker.ReadyHandler())

	mws := []func(http.Handler) http.Handler{
		middleware.CORS(cfg.CORS.AllowedOrigins, cfg.CORS.MaxAge),
		middleware.RequestID,
		middleware.Metrics(m),
	}
	if cfg.Server.RateLimit > 0 {
		limiter := middleware.NewLimiter(cfg.Server.RateLimit, time.Minute)
		go limiter.Run(ctx, 5*time.Minute)
		mws = append(mws, middleware.RateLimit(limiter))
		slog.Info("rate limiting enabled", "per_minute", cfg.Server.RateLimit)
	}
	mws = append(mws, middleware.Timeout(cfg.Server.RequestTimeout))
	chain := middleware.Chain(mux, mws...)

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      chain,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	go func() {
		<-ctx.Done()
		slog.Info("shutdown signal received")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			slog.Error("server shutdown error", "error", err)
		}
	}()

	slog.Info("search service listening", "addr", server.Addr)
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		slog.Error("server error", "error", err)
		os.Exit(1)
	}

	slog.Info("search service stopped")
}
