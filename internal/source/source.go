// Package source loads the batch of posts the related-posts computation runs
// over. Every source returns posts in a stable order, which becomes the input
// order of the batch.
package source

import (
	"context"

	"github.com/Adithya-Monish-Kumar-K/related-posts/internal/related"
)

type Source interface {
	Name() string
	Load(ctx context.Context) ([]related.Item, error)
}
