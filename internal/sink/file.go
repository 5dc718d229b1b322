package sink

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/Adithya-Monish-Kumar-K/related-posts/internal/fileio"
	"github.com/Adithya-Monish-Kumar-K/related-posts/internal/related"
	"github.com/Adithya-Monish-Kumar-K/related-posts/pkg/logger"
	"github.com/goccy/go-json"
)

// File writes all records as one JSON array. Related posts are embedded in
// full ({"_id","title","tags"}), matching the input format. The file only
// appears once it is completely written.
type File struct {
	path   string
	logger *slog.Logger
}

func NewFile(path string) *File {
	return &File{
		path:   path,
		logger: logger.WithComponent("file-sink").With("path", path),
	}
}

func (f *File) Name() string { return "file" }

func (f *File) Write(ctx context.Context, records []related.Record) error {
	w, err := fileio.Create(f.path)
	if err != nil {
		return err
	}
	defer w.Close()

	if err := json.NewEncoder(w).EncodeContext(ctx, records); err != nil {
		return fmt.Errorf("encoding related posts: %w", err)
	}
	if err := w.Commit(); err != nil {
		return err
	}
	f.logger.Info("related posts written", "records", len(records))
	return nil
}
