package sink

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/Adithya-Monish-Kumar-K/related-posts/internal/related"
	"github.com/Adithya-Monish-Kumar-K/related-posts/pkg/kafka"
	"github.com/Adithya-Monish-Kumar-K/related-posts/pkg/logger"
)

type BatchPublisher interface {
	PublishBatch(ctx context.Context, events []kafka.Event) error
}

// RelatedEvent is the message published per post.
type RelatedEvent struct {
	PostID     string    `json:"post_id"`
	Related    []string  `json:"related"`
	ComputedAt time.Time `json:"computed_at"`
}

// Kafka publishes one RelatedEvent per record, keyed by post ID, in batches
// of batchSize. Delivery is at-least-once: a batch the broker acknowledged
// but reported as failed is sent again. When Write fails part way, the next
// Write of the same records resumes at the first unacknowledged batch.
type Kafka struct {
	producer  BatchPublisher
	batchSize int
	now       func() time.Time
	logger    *slog.Logger

	mu       sync.Mutex
	progress progress
}

// progress remembers how far an interrupted Write got.
type progress struct {
	first *related.Record
	n     int
	next  int
}

func (k *Kafka) resumeAt(records []related.Record) int {
	if len(records) == 0 || k.progress.first != &records[0] || k.progress.n != len(records) {
		return 0
	}
	return k.progress.next
}

func NewKafka(producer BatchPublisher, batchSize int) *Kafka {
	if batchSize <= 0 {
		batchSize = 500
	}
	return &Kafka{
		producer:  producer,
		batchSize: batchSize,
		now:       time.Now,
		logger:    logger.WithComponent("kafka-sink"),
	}
}

func (k *Kafka) Name() string { return "kafka" }

func (k *Kafka) Write(ctx context.Context, records []related.Record) error {
	k.mu.Lock()
	defer k.mu.Unlock()

	computedAt := k.now().UTC()
	batches := 0
	resumed := k.resumeAt(records)
	if resumed > 0 {
		k.logger.Warn("resuming interrupted publish", "from_record", resumed)
	}
	for start := resumed; start < len(records); start += k.batchSize {
		chunk := records[start:min(start+k.batchSize, len(records))]
		events := make([]kafka.Event, len(chunk))
		for i, rec := range chunk {
			events[i] = kafka.Event{
				Key: rec.ID,
				Value: RelatedEvent{
					PostID:     rec.ID,
					Related:    relatedIDs(rec),
					ComputedAt: computedAt,
				},
			}
		}
		if err := k.producer.PublishBatch(ctx, events); err != nil {
			k.progress = progress{first: &records[0], n: len(records), next: start}
			return fmt.Errorf("publishing records %d-%d: %w", start, start+len(chunk)-1, err)
		}
		batches++
	}
	k.progress = progress{}
	k.logger.Info("related posts published", "records", len(records), "batches", batches)
	return nil
}
