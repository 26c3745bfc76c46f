// Package indexer builds search indexes from documents and publishes them:
// Build turns documents into a bundle, and Engine runs the whole
// load-build-store-announce cycle for one book.
package indexer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/Adithya-Monish-Kumar-K/docsearch/internal/artifact"
	"github.com/Adithya-Monish-Kumar-K/docsearch/internal/index"
	"github.com/Adithya-Monish-Kumar-K/docsearch/internal/indexer/registry"
	apperrors "github.com/Adithya-Monish-Kumar-K/docsearch/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/docsearch/pkg/metrics"
	"github.com/Adithya-Monish-Kumar-K/docsearch/pkg/resilience"
)

// Source produces the documents of one book in order.
type Source interface {
	Load(ctx context.Context) ([]index.Document, error)
}

// SourceFunc adapts a function to Source.
type SourceFunc func(ctx context.Context) ([]index.Document, error)

func (f SourceFunc) Load(ctx context.Context) ([]index.Document, error) { return f(ctx) }

// BuildRegistry remembers published builds.
type BuildRegistry interface {
	Latest(ctx context.Context, book string) (*registry.Build, error)
	Record(ctx context.Context, b registry.Build) error
}

// Report summarises one Engine run.
type Report struct {
	Build    registry.Build
	Skipped  bool
	Duration time.Duration
}

type Engine struct {
	book      string
	source    Source
	store     artifact.Store
	opts      BuildOptions
	format    artifact.Format
	name      string
	force     bool
	registry  BuildRegistry
	publisher Publisher
	metrics   *metrics.Metrics
	retry     resilience.RetryConfig
	now       func() time.Time
	logger    *slog.Logger
}

// Option customises an Engine.
type Option func(*Engine)

func WithBuildOptions(opts BuildOptions) Option { return func(e *Engine) { e.opts = opts } }

func WithFormat(f artifact.Format) Option { return func(e *Engine) { e.format = f } }

// WithArtifactName sets the file name under the book's key prefix.
func WithArtifactName(name string) Option { return func(e *Engine) { e.name = name } }

// WithForce publishes even when the artifact is unchanged.
func WithForce(force bool) Option { return func(e *Engine) { e.force = force } }

func WithRegistry(r BuildRegistry) Option { return func(e *Engine) { e.registry = r } }

func WithPublisher(p Publisher) Option { return func(e *Engine) { e.publisher = p } }

func WithMetrics(m *metrics.Metrics) Option { return func(e *Engine) { e.metrics = m } }

func WithRetry(cfg resilience.RetryConfig) Option { return func(e *Engine) { e.retry = cfg } }

func NewEngine(book string, source Source, store artifact.Store, options ...Option) *Engine {
	e := &Engine{
		book:   book,
		source: source,
		store:  store,
		opts:   DefaultBuildOptions(),
		format: artifact.FormatJS,
		name:   "searchindex.js",
		now:    time.Now,
		logger: slog.Default().With("component", "indexer", "book", book),
	}
	for _, o := range options {
		o(e)
	}
	return e
}

// ArtifactKey is where the engine stores the book's artifact.
func (e *Engine) ArtifactKey() string {
	return artifact.Key(e.book, e.name)
}

// Run loads, builds and encodes the book, and publishes the artifact unless
// it is byte-identical to the last published one.
func (e *Engine) Run(ctx context.Context) (*Report, error) {
	start := e.now()
	report, err := e.run(ctx)
	elapsed := e.now().Sub(start)
	status := "built"
	switch {
	case err != nil:
		status = "failed"
	case report.Skipped:
		status = "skipped"
	}
	if e.metrics != nil {
		e.metrics.BuildsTotal.WithLabelValues(status).Inc()
		e.metrics.BuildDuration.Observe(elapsed.Seconds())
	}
	if err != nil {
		e.logger.Error("build failed", "error", err, "duration", elapsed)
		return nil, err
	}
	report.Duration = elapsed
	e.logger.Info("build finished",
		"status", status,
		"docs", report.Build.DocCount,
		"tokens", report.Build.TokenCount,
		"bytes", report.Build.SizeBytes,
		"fingerprint", report.Build.Fingerprint,
		"duration", elapsed,
	)
	return report, nil
}

func (e *Engine) run(ctx context.Context) (*Report, error) {
	docs, err := e.source.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("loading documents: %w", err)
	}
	bundle, err := Build(docs, e.opts)
	if err != nil {
		return nil, err
	}
	data, err := artifact.Encode(bundle, e.format)
	if err != nil {
		return nil, fmt.Errorf("encoding artifact: %w", err)
	}

	key := e.ArtifactKey()
	build := registry.Build{
		ID:          uuid.NewString(),
		Book:        e.book,
		Fingerprint: artifact.Fingerprint(data),
		ArtifactKey: key,
		DocCount:    bundle.Index.DocumentCount(),
		TokenCount:  tokenCount(bundle.Index),
		SizeBytes:   int64(len(data)),
		CreatedAt:   e.now().UTC(),
	}
	e.recordGauges(bundle.Index)

	if !e.force {
		unchanged, err := e.unchanged(ctx, key, build.Fingerprint)
		if err != nil {
			return nil, err
		}
		if unchanged {
			return &Report{Build: build, Skipped: true}, nil
		}
	}

	err = resilience.Retry(ctx, "store artifact", e.retry, func() error {
		return e.store.Put(ctx, key, data, e.format.ContentType())
	})
	if err != nil {
		return nil, fmt.Errorf("storing artifact %s: %w", key, err)
	}
	if e.registry != nil {
		err = resilience.Retry(ctx, "record build", e.retry, func() error {
			return e.registry.Record(ctx, build)
		})
		if err != nil {
			return nil, fmt.Errorf("recording build: %w", err)
		}
	}
	if e.publisher != nil {
		event := IndexBuilt{
			BuildID:     build.ID,
			Book:        build.Book,
			Fingerprint: build.Fingerprint,
			ArtifactKey: key,
			DocCount:    build.DocCount,
			BuiltAt:     build.CreatedAt,
		}
		err = resilience.Retry(ctx, "publish build", e.retry, func() error {
			return e.publisher.PublishBuilt(ctx, event)
		})
		if err != nil {
			// The artifact is already stored; searchers pick it up on their
			// next reload even without the event.
			e.logger.Warn("build stored but not announced", "build_id", build.ID, "error", err)
		}
	}
	return &Report{Build: build}, nil
}

// unchanged compares fingerprint with the registry, or with the stored
// artifact when no registry is configured.
func (e *Engine) unchanged(ctx context.Context, key, fingerprint string) (bool, error) {
	if e.registry != nil {
		latest, err := e.registry.Latest(ctx, e.book)
		if err != nil {
			return false, fmt.Errorf("looking up last build: %w", err)
		}
		return latest != nil && latest.Fingerprint == fingerprint, nil
	}
	existing, err := e.store.Get(ctx, key)
	if errors.Is(err, apperrors.ErrArtifactNotFound) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("reading current artifact: %w", err)
	}
	return artifact.Fingerprint(existing) == fingerprint, nil
}

func (e *Engine) recordGauges(ix *index.Index) {
	if e.metrics == nil {
		return
	}
	e.metrics.DocsIndexed.WithLabelValues(e.book).Set(float64(ix.DocumentCount()))
	for _, f := range ix.Fields() {
		e.metrics.TokensIndexed.WithLabelValues(e.book, f).Set(float64(ix.Tree(f).TokenCount()))
	}
}

func tokenCount(ix *index.Index) int {
	total := 0
	for _, f := range ix.Fields() {
		total += ix.Tree(f).TokenCount()
	}
	return total
}
