// Package sink writes computed related-posts records to their destinations.
package sink

import (
	"context"

	"github.com/Adithya-Monish-Kumar-K/related-posts/internal/related"
)

type Sink interface {
	Name() string
	Write(ctx context.Context, records []related.Record) error
}

// relatedIDs lists the IDs of a record's related posts, best first.
func relatedIDs(r related.Record) []string {
	ids := make([]string, len(r.Related))
	for i, it := range r.Related {
		ids[i] = it.ID
	}
	return ids
}
