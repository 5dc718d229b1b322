package source

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/Adithya-Monish-Kumar-K/related-posts/internal/fileio"
	"github.com/Adithya-Monish-Kumar-K/related-posts/internal/related"
	"github.com/Adithya-Monish-Kumar-K/related-posts/pkg/logger"
	"github.com/goccy/go-json"
)

// File reads a JSON array of {"_id","title","tags"} objects, optionally
// gzip- or zstd-compressed.
type File struct {
	path   string
	logger *slog.Logger
}

func NewFile(path string) *File {
	return &File{
		path:   path,
		logger: logger.WithComponent("file-source").With("path", path),
	}
}

func (f *File) Name() string { return "file" }

func (f *File) Load(ctx context.Context) ([]related.Item, error) {
	r, err := fileio.Open(f.path)
	if err != nil {
		return nil, err
	}
	defer r.Close()

	var items []related.Item
	if err := json.NewDecoder(r).DecodeContext(ctx, &items); err != nil {
		return nil, fmt.Errorf("decoding posts from %s: %w", f.path, err)
	}
	f.logger.Info("posts loaded",
		"items", len(items),
		"compression", fileio.CompressionFor(f.path).String(),
	)
	return items, nil
}
