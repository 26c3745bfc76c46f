// Command indexer builds the search index of a markdown book and publishes
// it to the artifact store.
//
// With indexer.schedule set it keeps running and rebuilds on that cron
// schedule; otherwise, or with -once, it builds once and exits. Unchanged
// builds are detected by fingerprint and skipped.
//
// Usage:
//
//	go run ./cmd/indexer [-config configs/development.yaml] [-once] [-force]
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/Adithya-Monish-Kumar-K/docsearch/internal/artifact"
	"github.com/Adithya-Monish-Kumar-K/docsearch/internal/book"
	"github.com/Adithya-Monish-Kumar-K/docsearch/internal/index"
	"github.com/Adithya-Monish-Kumar-K/docsearch/internal/indexer"
	"github.com/Adithya-Monish-Kumar-K/docsearch/internal/indexer/registry"
	"github.com/Adithya-Monish-Kumar-K/docsearch/internal/schedule"
	"github.com/Adithya-Monish-Kumar-K/docsearch/pkg/config"
	"github.com/Adithya-Monish-Kumar-K/docsearch/pkg/kafka"
	"github.com/Adithya-Monish-Kumar-K/docsearch/pkg/logger"
	"github.com/Adithya-Monish-Kumar-K/docsearch/pkg/metrics"
	"github.com/Adithya-Monish-Kumar-K/docsearch/pkg/postgres"
)

func main() {
	configPath := flag.String("config", "configs/development.yaml", "path to config file")
	once := flag.Bool("once", false, "build once and exit, ignoring indexer.schedule")
	force := flag.Bool("force", false, "publish even when the index is unchanged")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}
	logger.Setup(cfg.Logging.Level, cfg.Logging.Format)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, *once, *force); err != nil {
		slog.Error("indexer failed", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config, once, force bool) error {
	slog.Info("starting indexer",
		"book", cfg.Book.Name,
		"source_dir", cfg.Book.SourceDir,
		"store", cfg.Store.Type,
	)

	m := metrics.New()
	if cfg.Metrics.Enabled {
		shutdown := metrics.StartServer(cfg.Metrics.Port, metrics.BuildInfo{Component: "indexer", IndexFormat: index.Version})
		defer shutdown(context.Background())
	}

	store, err := artifact.New(ctx, cfg.Store)
	if err != nil {
		return err
	}
	buildOpts, err := indexer.OptionsFromConfig(cfg.Search, cfg.Book)
	if err != nil {
		return fmt.Errorf("invalid search options: %w", err)
	}
	format, err := artifact.ParseFormat(cfg.Indexer.Format)
	if err != nil {
		return err
	}

	options := []indexer.Option{
		indexer.WithBuildOptions(buildOpts),
		indexer.WithFormat(format),
		indexer.WithArtifactName(cfg.Indexer.ArtifactKey),
		indexer.WithForce(force || cfg.Indexer.Force),
		indexer.WithMetrics(m),
	}

	if cfg.Postgres.Enabled() {
		db, err := postgres.New(ctx, cfg.Postgres)
		if err != nil {
			return err
		}
		defer db.Close()
		reg := registry.New(db)
		if err := reg.Migrate(ctx); err != nil {
			return err
		}
		options = append(options, indexer.WithRegistry(reg))
		slog.Info("build registry enabled", "host", cfg.Postgres.Host, "database", cfg.Postgres.Database)
	}

	if cfg.Kafka.Enabled() {
		producer := kafka.NewProducer(cfg.Kafka, cfg.Kafka.Topics.IndexBuilt)
		defer producer.Close()
		options = append(options, indexer.WithPublisher(indexer.NewKafkaPublisher(producer)))
		slog.Info("build events enabled", "topic", cfg.Kafka.Topics.IndexBuilt)
	}

	loader := book.NewLoader(cfg.Book.SourceDir, book.OptionsFromConfig(cfg.Book))
	engine := indexer.NewEngine(cfg.Book.Name, loader, store, options...)

	if once || cfg.Indexer.Schedule == "" {
		_, err := engine.Run(ctx)
		return err
	}

	// Build immediately so a fresh deployment does not wait for the first tick.
	if _, err := engine.Run(ctx); err != nil {
		slog.Error("initial build failed", "error", err)
	}

	scheduler := schedule.New()
	job := schedule.JobFunc{
		JobName: "rebuild-" + cfg.Book.Name,
		Fn: func(ctx context.Context) error {
			_, err := engine.Run(ctx)
			return err
		},
	}
	if err := scheduler.Add(job, cfg.Indexer.Schedule); err != nil {
		return err
	}
	scheduler.Start(ctx)
	slog.Info("indexer scheduled", "schedule", cfg.Indexer.Schedule, "next", scheduler.Next(job.Name()))

	<-ctx.Done()
	slog.Info("shutdown signal received, waiting for running build")
	scheduler.Stop()
	slog.Info("indexer stopped")
	return nil
}
