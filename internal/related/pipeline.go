package related

import (
	"context"
	"fmt"
	"log/slog"
	"runtime"

	apperrors "github.com/Adithya-Monish-Kumar-K/related-posts/pkg/errors"
	"golang.org/x/sync/errgroup"
)

// DefaultK is the number of related items kept per item.
const DefaultK = 5

// ctxCheckEvery bounds how many items a worker processes between
// cancellation checks.
const ctxCheckEvery = 256

type Options struct {
	K int
	// TrimPlaceholders drops window slots no candidate displaced, so an item
	// with fewer than K related items gets a shorter list instead of being
	// padded with the first items of the batch.
	TrimPlaceholders bool
}

// Stats summarises one run.
type Stats struct {
	Items            int
	Tags             int
	TagOccurrences   int
	PlaceholderSlots int
	Workers          int
}

type Pipeline struct {
	opts   Options
	logger *slog.Logger
}

func New(opts Options) *Pipeline {
	if opts.K == 0 {
		opts.K = DefaultK
	}
	return &Pipeline{
		opts:   opts,
		logger: slog.Default().With("component", "related"),
	}
}

// Compute processes items sequentially with one accumulator and one window.
func (p *Pipeline) Compute(items []Item) ([]Record, Stats, error) {
	if err := p.checkInput(items); err != nil {
		return nil, Stats{}, err
	}
	ix := BuildTagIndex(items)
	p.logger.Debug("tag index built", "items", len(items), "tags", ix.Tags(), "occurrences", ix.Occurrences())

	records := make([]Record, len(items))
	placeholders := p.newScratch(len(items)).run(items, ix, records, 0, len(items))
	return records, p.stats(items, ix, placeholders, 1), nil
}

// ComputeParallel shards items into contiguous ranges, one per worker. The
// tag index is built before any worker starts and only read afterwards; each
// worker owns its accumulator and window and writes only its own slots of
// the result. workers <= 0 uses GOMAXPROCS. The output is identical to
// Compute's.
func (p *Pipeline) ComputeParallel(ctx context.Context, items []Item, workers int) ([]Record, Stats, error) {
	if err := p.checkInput(items); err != nil {
		return nil, Stats{}, err
	}
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	if workers > len(items) {
		workers = len(items)
	}
	ix := BuildTagIndex(items)
	p.logger.Debug("tag index built",
		"items", len(items),
		"tags", ix.Tags(),
		"occurrences", ix.Occurrences(),
		"workers", workers,
	)

	records := make([]Record, len(items))
	placeholders := make([]int, workers)
	chunk := (len(items) + workers - 1) / workers

	launched := 0
	g, gctx := errgroup.WithContext(ctx)
	for w := 0; w < workers; w++ {
		start := w * chunk
		end := min(start+chunk, len(items))
		if start >= end {
			break
		}
		launched++
		g.Go(func() error {
			s := p.newScratch(len(items))
			for lo := start; lo < end; lo += ctxCheckEvery {
				if err := gctx.Err(); err != nil {
					return fmt.Errorf("worker %d: %w", w, err)
				}
				hi := min(lo+ctxCheckEvery, end)
				placeholders[w] += s.run(items, ix, records, lo, hi)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, Stats{}, err
	}

	total := 0
	for _, n := range placeholders {
		total += n
	}
	return records, p.stats(items, ix, total, launched), nil
}

// scratch is the mutable per-worker state: one accumulator, one window.
type scratch struct {
	p   *Pipeline
	acc *Accumulator
	sel *Selector
}

func (p *Pipeline) newScratch(n int) *scratch {
	return &scratch{
		p:   p,
		acc: NewAccumulator(n),
		sel: NewSelector(p.opts.K),
	}
}

// run fills records[start:end] and returns the number of placeholder slots
// it produced.
func (s *scratch) run(items []Item, ix *TagIndex, records []Record, start, end int) int {
	placeholders := 0
	for i := start; i < end; i++ {
		s.acc.Scan(i, items[i].Tags, ix)
		window := s.sel.Select(s.acc.Counts())
		var n int
		records[i], n = s.p.assemble(items, i, window)
		placeholders += n
	}
	return placeholders
}

func (p *Pipeline) assemble(items []Item, i int, window []Candidate) (Record, int) {
	related := make([]*Item, 0, len(window))
	placeholders := 0
	for _, c := range window {
		if c.Count == 0 {
			placeholders++
			if p.opts.TrimPlaceholders {
				continue
			}
		}
		related = append(related, &items[c.Index])
	}
	return Record{
		ID:      items[i].ID,
		Tags:    items[i].Tags,
		Related: related,
	}, placeholders
}

func (p *Pipeline) checkInput(items []Item) error {
	if p.opts.K < 1 {
		return fmt.Errorf("%w: top-k must be positive, got %d", apperrors.ErrInvalidInput, p.opts.K)
	}
	if len(items) <= p.opts.K {
		return fmt.Errorf("%w: have %d items, need more than %d", apperrors.ErrNotEnoughItems, len(items), p.opts.K)
	}
	return nil
}

func (p *Pipeline) stats(items []Item, ix *TagIndex, placeholders, workers int) Stats {
	return Stats{
		Items:            len(items),
		Tags:             ix.Tags(),
		TagOccurrences:   ix.Occurrences(),
		PlaceholderSlots: placeholders,
		Workers:          workers,
	}
}
