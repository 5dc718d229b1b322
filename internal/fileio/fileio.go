// Package fileio opens post and result files, compressing or decompressing
// them according to their extension: ".gz" uses gzip, ".zst" uses zstd, and
// anything else is read and written as-is.
package fileio

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"
)

type Compression int

const (
	None Compression = iota
	Gzip
	Zstd
)

func (c Compression) String() string {
	switch c {
	case Gzip:
		return "gzip"
	case Zstd:
		return "zstd"
	default:
		return "none"
	}
}

func CompressionFor(path string) Compression {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".gz":
		return Gzip
	case ".zst":
		return Zstd
	default:
		return None
	}
}

// Open returns a reader over the decompressed contents of path.
func Open(path string) (io.ReadCloser, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", path, err)
	}
	br := bufio.NewReaderSize(f, 1<<16)
	switch CompressionFor(path) {
	case Gzip:
		zr, err := gzip.NewReader(br)
		if err != nil {
			f.Close()
			return nil, fmt.Errorf("reading gzip header of %s: %w", path, err)
		}
		return &readCloser{Reader: zr, closers: []io.Closer{zr, f}}, nil
	case Zstd:
		zr, err := zstd.NewReader(br)
		if err != nil {
			f.Close()
			return nil, fmt.Errorf("creating zstd reader for %s: %w", path, err)
		}
		return &readCloser{Reader: zr, closers: []io.Closer{zstdCloser{zr}, f}}, nil
	default:
		return &readCloser{Reader: br, closers: []io.Closer{f}}, nil
	}
}

// AtomicWriter writes to a temporary file next to the destination and only
// renames it into place on Commit. Close without Commit discards the output.
type AtomicWriter struct {
	io.Writer
	path      string
	tmp       *os.File
	buf       *bufio.Writer
	enc       io.WriteCloser
	committed bool
}

func Create(path string) (*AtomicWriter, error) {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("creating output directory: %w", err)
		}
	}
	tmp, err := os.Create(path + ".tmp")
	if err != nil {
		return nil, fmt.Errorf("creating temp output file: %w", err)
	}
	w := &AtomicWriter{path: path, tmp: tmp, buf: bufio.NewWriterSize(tmp, 1<<16)}
	switch CompressionFor(path) {
	case Gzip:
		w.enc = gzip.NewWriter(w.buf)
		w.Writer = w.enc
	case Zstd:
		enc, err := zstd.NewWriter(w.buf)
		if err != nil {
			w.Close()
			return nil, fmt.Errorf("creating zstd writer: %w", err)
		}
		w.enc = enc
		w.Writer = enc
	default:
		w.Writer = w.buf
	}
	return w, nil
}

// Commit flushes every layer, syncs the temp file and renames it over the
// destination.
func (w *AtomicWriter) Commit() error {
	if w.enc != nil {
		if err := w.enc.Close(); err != nil {
			return fmt.Errorf("closing compressor: %w", err)
		}
	}
	if err := w.buf.Flush(); err != nil {
		return fmt.Errorf("flushing output: %w", err)
	}
	if err := w.tmp.Sync(); err != nil {
		return fmt.Errorf("syncing output: %w", err)
	}
	if err := w.tmp.Close(); err != nil {
		return fmt.Errorf("closing output: %w", err)
	}
	if err := os.Rename(w.tmp.Name(), w.path); err != nil {
		return fmt.Errorf("renaming output into place: %w", err)
	}
	w.committed = true
	return nil
}

// Close removes the temp file unless Commit succeeded.
func (w *AtomicWriter) Close() error {
	if w.committed {
		return nil
	}
	w.tmp.Close()
	return os.Remove(w.tmp.Name())
}

type readCloser struct {
	io.Reader
	closers []io.Closer
}

func (r *readCloser) Close() error {
	var first error
	for _, c := range r.closers {
		if err := c.Close(); err != nil && first == nil {
			first = err
		}
	}
	return first
}

// zstd.Decoder.Close returns nothing.
type zstdCloser struct{ d *zstd.Decoder }

func (z zstdCloser) Close() error {
	z.d.Close()
	return nil
}
