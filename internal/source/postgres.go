package source

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/Adithya-Monish-Kumar-K/related-posts/internal/related"
	"github.com/Adithya-Monish-Kumar-K/related-posts/pkg/logger"
	"github.com/lib/pq"
)

// loadPostsQuery expects a posts table:
//
//	CREATE TABLE posts (
//	    ordinal BIGSERIAL PRIMARY KEY,
//	    id      TEXT   NOT NULL,
//	    title   TEXT   NOT NULL DEFAULT '',
//	    tags    TEXT[] NOT NULL DEFAULT '{}'
//	);
//
// ordinal fixes the input order of the batch.
const loadPostsQuery = `SELECT id, title, tags FROM posts ORDER BY ordinal`

type Querier interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

type Postgres struct {
	db     Querier
	logger *slog.Logger
}

func NewPostgres(db Querier) *Postgres {
	return &Postgres{
		db:     db,
		logger: logger.WithComponent("postgres-source"),
	}
}

func (p *Postgres) Name() string { return "postgres" }

func (p *Postgres) Load(ctx context.Context) ([]related.Item, error) {
	rows, err := p.db.QueryContext(ctx, loadPostsQuery)
	if err != nil {
		return nil, fmt.Errorf("querying posts: %w", err)
	}
	defer rows.Close()

	var items []related.Item
	for rows.Next() {
		var item related.Item
		var tags pq.StringArray
		if err := rows.Scan(&item.ID, &item.Title, &tags); err != nil {
			return nil, fmt.Errorf("scanning post row %d: %w", len(items), err)
		}
		item.Tags = []string(tags)
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating posts: %w", err)
	}
	p.logger.Info("posts loaded", "items", len(items))
	return items, nil
}
