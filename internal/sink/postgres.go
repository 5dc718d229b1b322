package sink

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/Adithya-Monish-Kumar-K/related-posts/internal/related"
	"github.com/Adithya-Monish-Kumar-K/related-posts/pkg/logger"
	"github.com/lib/pq"
)

type TxRunner interface {
	InTx(ctx context.Context, fn func(tx *sql.Tx) error) error
}

// Postgres replaces the contents of related_posts in one transaction, so
// readers see either the previous batch or this one:
//
//	CREATE TABLE related_posts (
//	    post_id    TEXT    NOT NULL,
//	    rank       INTEGER NOT NULL,
//	    related_id TEXT    NOT NULL,
//	    PRIMARY KEY (post_id, rank)
//	);
type Postgres struct {
	db     TxRunner
	logger *slog.Logger
}

type relatedRow struct {
	PostID    string
	Rank      int
	RelatedID string
}

func NewPostgres(db TxRunner) *Postgres {
	return &Postgres{
		db:     db,
		logger: logger.WithComponent("postgres-sink"),
	}
}

func (p *Postgres) Name() string { return "postgres" }

func (p *Postgres) Write(ctx context.Context, records []related.Record) error {
	rows := buildRows(records)
	err := p.db.InTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `DELETE FROM related_posts`); err != nil {
			return fmt.Errorf("clearing related_posts: %w", err)
		}
		stmt, err := tx.PrepareContext(ctx, pq.CopyIn("related_posts", "post_id", "rank", "related_id"))
		if err != nil {
			return fmt.Errorf("preparing copy: %w", err)
		}
		defer stmt.Close()
		for _, row := range rows {
			if _, err := stmt.ExecContext(ctx, row.PostID, row.Rank, row.RelatedID); err != nil {
				return fmt.Errorf("copying row for %q: %w", row.PostID, err)
			}
		}
		if _, err := stmt.ExecContext(ctx); err != nil {
			return fmt.Errorf("flushing copy: %w", err)
		}
		return nil
	})
	if err != nil {
		return err
	}
	p.logger.Info("related posts stored", "records", len(records), "rows", len(rows))
	return nil
}

// buildRows flattens records into one row per related slot; rank starts at 1.
func buildRows(records []related.Record) []relatedRow {
	n := 0
	for _, rec := range records {
		n += len(rec.Related)
	}
	rows := make([]relatedRow, 0, n)
	for _, rec := range records {
		for i, it := range rec.Related {
			rows = append(rows, relatedRow{PostID: rec.ID, Rank: i + 1, RelatedID: it.ID})
		}
	}
	return rows
}
