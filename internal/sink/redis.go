package sink

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/Adithya-Monish-Kumar-K/related-posts/internal/related"
	"github.com/Adithya-Monish-Kumar-K/related-posts/pkg/logger"
	pkgredis "github.com/Adithya-Monish-Kumar-K/related-posts/pkg/redis"
	"github.com/Adithya-Monish-Kumar-K/related-posts/pkg/resilience"
	"github.com/goccy/go-json"
)

type BulkSetter interface {
	SetMany(ctx context.Context, entries []pkgredis.Entry, ttl time.Duration) error
}

// Redis caches each post's related IDs under <prefix><post id> as a JSON
// array, so a site can look up related posts without reading the batch file.
type Redis struct {
	client BulkSetter
	prefix string
	ttl    time.Duration
	logger *slog.Logger
}

func NewRedis(client BulkSetter, prefix string, ttl time.Duration) *Redis {
	return &Redis{
		client: client,
		prefix: prefix,
		ttl:    ttl,
		logger: logger.WithComponent("redis-sink"),
	}
}

func (r *Redis) Name() string { return "redis" }

func (r *Redis) Write(ctx context.Context, records []related.Record) error {
	entries, err := r.entries(records)
	if err != nil {
		return resilience.Permanent(err)
	}
	if err := r.client.SetMany(ctx, entries, r.ttl); err != nil {
		return fmt.Errorf("caching related posts: %w", err)
	}
	r.logger.Info("related posts cached", "keys", len(entries), "ttl", r.ttl)
	return nil
}

func (r *Redis) entries(records []related.Record) ([]pkgredis.Entry, error) {
	entries := make([]pkgredis.Entry, 0, len(records))
	for _, rec := range records {
		value, err := json.Marshal(relatedIDs(rec))
		if err != nil {
			return nil, fmt.Errorf("marshaling related ids for %q: %w", rec.ID, err)
		}
		entries = append(entries, pkgredis.Entry{Key: r.prefix + rec.ID, Value: value})
	}
	return entries, nil
}
