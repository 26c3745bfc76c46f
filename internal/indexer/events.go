package indexer

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/Adithya-Monish-Kumar-K/docsearch/pkg/kafka"
)

// EventIndexBuilt is the event-type header of IndexBuilt messages.
const EventIndexBuilt = "index.built"

// IndexBuilt announces a new artifact. Searchers fetch ArtifactKey from the
// shared store and swap it in.
type IndexBuilt struct {
	BuildID     string    `json:"build_id"`
	Book        string    `json:"book"`
	Fingerprint string    `json:"fingerprint"`
	ArtifactKey string    `json:"artifact_key"`
	DocCount    int       `json:"doc_count"`
	BuiltAt     time.Time `json:"built_at"`
}

// Publisher announces finished builds.
type Publisher interface {
	PublishBuilt(ctx context.Context, event IndexBuilt) error
}

// KafkaPublisher publishes IndexBuilt events keyed by book, so every build
// of one book lands on the same partition in order.
type KafkaPublisher struct {
	producer *kafka.Producer
	logger   *slog.Logger
}

func NewKafkaPublisher(producer *kafka.Producer) *KafkaPublisher {
	return &KafkaPublisher{
		producer: producer,
		logger:   slog.Default().With("component", "build-publisher"),
	}
}

func (p *KafkaPublisher) PublishBuilt(ctx context.Context, event IndexBuilt) error {
	err := p.producer.Publish(ctx, kafka.Event{
		Key:   event.Book,
		Type:  EventIndexBuilt,
		Value: event,
	})
	if err != nil {
		return fmt.Errorf("publishing build %s of %s: %w", event.BuildID, event.Book, err)
	}
	p.logger.Info("build published",
		"book", event.Book,
		"build_id", event.BuildID,
		"fingerprint", event.Fingerprint,
	)
	return nil
}
