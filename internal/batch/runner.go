// Package batch runs one related-posts computation end to end: load the
// posts, compute related posts for each, and write the results to every
// configured sink.
package batch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/Adithya-Monish-Kumar-K/related-posts/internal/related"
	"github.com/Adithya-Monish-Kumar-K/related-posts/internal/sink"
	"github.com/Adithya-Monish-Kumar-K/related-posts/internal/source"
	"github.com/Adithya-Monish-Kumar-K/related-posts/pkg/config"
	apperrors "github.com/Adithya-Monish-Kumar-K/related-posts/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/related-posts/pkg/logger"
	"github.com/Adithya-Monish-Kumar-K/related-posts/pkg/metrics"
	"github.com/Adithya-Monish-Kumar-K/related-posts/pkg/resilience"
	"github.com/Adithya-Monish-Kumar-K/related-posts/pkg/tracing"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

type Runner struct {
	source   source.Source
	sinks    []sink.Sink
	pipeline *related.Pipeline
	cfg      *config.Config
	retry    resilience.RetryConfig
	metrics  *metrics.Metrics
}

// Summary describes a finished run.
type Summary struct {
	RunID   string
	Stats   related.Stats
	Load    time.Duration
	Compute time.Duration
	Write   time.Duration
}

func NewRunner(src source.Source, sinks []sink.Sink, cfg *config.Config, m *metrics.Metrics) *Runner {
	return &Runner{
		source: src,
		sinks:  sinks,
		pipeline: related.New(related.Options{
			K:                cfg.Compute.TopK,
			TrimPlaceholders: cfg.Compute.TrimPlaceholders,
		}),
		cfg:     cfg,
		metrics: m,
	}
}

// WithRetry overrides the per-sink retry policy.
func (r *Runner) WithRetry(cfg resilience.RetryConfig) *Runner {
	r.retry = cfg
	return r
}

// Run executes the batch. Nothing is written unless loading and computing
// both succeed.
func (r *Runner) Run(ctx context.Context) (*Summary, error) {
	sum := &Summary{RunID: uuid.NewString()}
	ctx = logger.WithRunID(ctx, sum.RunID)
	log := logger.FromContext(ctx).With("component", "batch")
	ctx, root := tracing.StartSpan(ctx, "run", sum.RunID)

	err := r.run(ctx, log, sum)
	root.End()
	root.SetAttr("ok", err == nil)
	if r.cfg.Tracing.Enabled {
		root.Log(log)
	}
	if err != nil {
		r.metrics.RunsTotal.WithLabelValues("error").Inc()
		log.Error("batch failed", "error", err)
		return nil, err
	}
	r.metrics.RunsTotal.WithLabelValues("ok").Inc()
	log.Info("batch complete",
		"items", sum.Stats.Items,
		"load", sum.Load,
		"compute", sum.Compute,
		"write", sum.Write,
	)
	return sum, nil
}

func (r *Runner) run(ctx context.Context, log *slog.Logger, sum *Summary) error {
	items, err := r.load(ctx, log, sum)
	if err != nil {
		return err
	}
	records, err := r.compute(ctx, log, sum, items)
	if err != nil {
		return err
	}
	return r.write(ctx, log, sum, records)
}

func (r *Runner) load(ctx context.Context, log *slog.Logger, sum *Summary) ([]related.Item, error) {
	ctx, span := tracing.StartChildSpan(ctx, "load")
	defer func() {
		sum.Load = span.End()
		r.metrics.StageDuration.WithLabelValues("load").Observe(sum.Load.Seconds())
	}()

	items, err := r.source.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("loading posts from %s: %w", r.source.Name(), err)
	}
	span.SetAttr("items", len(items))
	r.metrics.ItemsLoadedTotal.WithLabelValues(r.source.Name()).Add(float64(len(items)))

	if err := source.Validate(items); err != nil {
		if r.cfg.Input.Strict {
			return nil, fmt.Errorf("%w: %w", apperrors.ErrInvalidInput, err)
		}
		log.Warn("posts failed validation, continuing", "problems", err.Error())
	}
	return items, nil
}

func (r *Runner) compute(ctx context.Context, log *slog.Logger, sum *Summary, items []related.Item) ([]related.Record, error) {
	ctx, span := tracing.StartChildSpan(ctx, "compute")
	defer func() {
		d := span.End()
		r.metrics.StageDuration.WithLabelValues("compute").Observe(d.Seconds())
	}()
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	start := time.Now()
	var (
		records []related.Record
		stats   related.Stats
		err     error
	)
	if r.cfg.Compute.Workers == 0 {
		records, stats, err = r.pipeline.Compute(items)
	} else {
		records, stats, err = r.pipeline.ComputeParallel(ctx, items, r.cfg.Compute.Workers)
	}
	sum.Compute = time.Since(start)
	if err != nil {
		return nil, fmt.Errorf("computing related posts: %w", err)
	}
	sum.Stats = stats

	r.metrics.ComputeDuration.Observe(sum.Compute.Seconds())
	r.metrics.ItemsProcessedTotal.Add(float64(stats.Items))
	r.metrics.PlaceholderSlotsTotal.Add(float64(stats.PlaceholderSlots))
	r.metrics.DistinctTags.Set(float64(stats.Tags))
	span.SetAttr("items", stats.Items)
	span.SetAttr("workers", stats.Workers)

	log.Info("related posts computed",
		"items", stats.Items,
		"tags", stats.Tags,
		"tag_occurrences", stats.TagOccurrences,
		"placeholder_slots", stats.PlaceholderSlots,
		"workers", stats.Workers,
		"processing_time", sum.Compute,
	)
	return records, nil
}

// write fans records out to every sink concurrently. Each sink gets the
// configured timeout and a bounded retry; the first failure cancels the rest.
func (r *Runner) write(ctx context.Context, log *slog.Logger, sum *Summary, records []related.Record) error {
	ctx, span := tracing.StartChildSpan(ctx, "write")
	defer func() {
		sum.Write = span.End()
		r.metrics.StageDuration.WithLabelValues("write").Observe(sum.Write.Seconds())
	}()

	g, gctx := errgroup.WithContext(ctx)
	for _, s := range r.sinks {
		g.Go(func() error {
			_, sinkSpan := tracing.StartChildSpan(ctx, "sink")
			sinkSpan.SetAttr("sink", s.Name())
			defer sinkSpan.End()

			err := resilience.WithTimeout(gctx, r.cfg.Output.Timeout, s.Name(), func(tctx context.Context) error {
				return resilience.Retry(tctx, "sink "+s.Name(), r.retry, func() error {
					return s.Write(tctx, records)
				})
			})
			if err != nil {
				r.metrics.SinkWritesTotal.WithLabelValues(s.Name(), "error").Inc()
				if errors.Is(err, context.Canceled) && ctx.Err() == nil {
					// Another sink failed first.
					return err
				}
				return fmt.Errorf("%w: %s: %w", apperrors.ErrSinkFailed, s.Name(), err)
			}
			r.metrics.SinkWritesTotal.WithLabelValues(s.Name(), "ok").Inc()
			log.Debug("sink write complete", "sink", s.Name(), "records", len(records))
			return nil
		})
	}
	return g.Wait()
}
