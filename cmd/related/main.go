package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Adithya-Monish-Kumar-K/related-posts/internal/batch"
	"github.com/Adithya-Monish-Kumar-K/related-posts/internal/sink"
	"github.com/Adithya-Monish-Kumar-K/related-posts/internal/source"
	"github.com/Adithya-Monish-Kumar-K/related-posts/pkg/config"
	apperrors "github.com/Adithya-Monish-Kumar-K/related-posts/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/related-posts/pkg/health"
	"github.com/Adithya-Monish-Kumar-K/related-posts/pkg/kafka"
	"github.com/Adithya-Monish-Kumar-K/related-posts/pkg/logger"
	"github.com/Adithya-Monish-Kumar-K/related-posts/pkg/metrics"
	"github.com/Adithya-Monish-Kumar-K/related-posts/pkg/postgres"
	pkgredis "github.com/Adithya-Monish-Kumar-K/related-posts/pkg/redis"
	"github.com/prometheus/client_golang/prometheus"
)

func main() {
	cfg, err := loadConfig(flag.CommandLine, os.Args[1:])
	if err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		os.Exit(apperrors.ExitCode(err))
	}

	logger.Setup(cfg.Logging.Level, cfg.Logging.Format)
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := run(ctx, cfg)
	stop()
	os.Exit(code)
}

// loadConfig parses the command line, loads the config file and applies the
// flags that were set on top of it. Flag values override the file only when
// given explicitly, so -workers 0 forces the sequential path.
func loadConfig(fs *flag.FlagSet, args []string) (*config.Config, error) {
	configPath := fs.String("config", "", "path to config file (defaults apply when empty)")
	input := fs.String("input", "", "override input.path")
	output := fs.String("output", "", "override output.path")
	workers := fs.Int("workers", 0, "override compute.workers (0 = sequential, -1 = GOMAXPROCS)")
	if err := fs.Parse(args); err != nil {
		return nil, apperrors.Newf(apperrors.ErrInvalidConfig, apperrors.ExitUsage, "parsing flags: %v", err)
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		return nil, apperrors.Newf(apperrors.ErrInvalidConfig, apperrors.ExitUsage, "loading config: %v", err)
	}
	fs.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "input":
			cfg.Input.Path = *input
		case "output":
			cfg.Output.Path = *output
		case "workers":
			cfg.Compute.Workers = *workers
		}
	})
	if err := cfg.Validate(); err != nil {
		return nil, apperrors.Newf(apperrors.ErrInvalidConfig, apperrors.ExitUsage, "invalid flags: %v", err)
	}
	return cfg, nil
}

func run(ctx context.Context, cfg *config.Config) int {
	reg := prometheus.NewRegistry()
	m := metrics.New(reg)
	if cfg.Metrics.Enabled {
		shutdown := metrics.StartServer(cfg.Metrics.Port, reg)
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			shutdown(shutdownCtx)
		}()
	}

	deps, err := connect(ctx, cfg)
	defer deps.close()
	if err != nil {
		slog.Error("dependency setup failed", "error", err)
		return apperrors.ExitCode(err)
	}

	slog.Info("starting related posts batch",
		"source", cfg.Input.Source,
		"sinks", cfg.Output.Sinks,
		"top_k", cfg.Compute.TopK,
		"workers", cfg.Compute.Workers,
	)
	runner := batch.NewRunner(deps.source, deps.sinks, cfg, m)
	if _, err := runner.Run(ctx); err != nil {
		return apperrors.ExitCode(err)
	}
	return apperrors.ExitOK
}

// dependencies holds the source, sinks and the clients backing them.
type dependencies struct {
	source  source.Source
	sinks   []sink.Sink
	closers []io.Closer
}

func (d *dependencies) close() {
	for i := len(d.closers) - 1; i >= 0; i-- {
		if err := d.closers[i].Close(); err != nil {
			slog.Error("closing dependency", "error", err)
		}
	}
}

// connect opens only the clients the configured source and sinks need, then
// runs a health preflight over all of them before any data is read.
func connect(ctx context.Context, cfg *config.Config) (*dependencies, error) {
	deps := &dependencies{}
	checker := health.NewChecker()

	var pg *postgres.Client
	if cfg.Input.Source == config.SourcePostgres || cfg.HasSink(config.SinkPostgres) {
		client, err := postgres.New(cfg.Postgres)
		if err != nil {
			return deps, apperrors.Newf(apperrors.ErrDependencyDown, apperrors.ExitUnavailable, "postgres: %v", err)
		}
		pg = client
		deps.closers = append(deps.closers, client)
		checker.Register("postgres", health.Ping(client.Ping))
	}

	switch cfg.Input.Source {
	case config.SourcePostgres:
		deps.source = source.NewPostgres(pg.DB)
	default:
		deps.source = source.NewFile(cfg.Input.Path)
	}

	for _, name := range cfg.Output.Sinks {
		switch name {
		case config.SinkFile:
			deps.sinks = append(deps.sinks, sink.NewFile(cfg.Output.Path))
		case config.SinkPostgres:
			deps.sinks = append(deps.sinks, sink.NewPostgres(pg))
		case config.SinkRedis:
			client, err := pkgredis.NewClient(cfg.Redis)
			if err != nil {
				return deps, apperrors.Newf(apperrors.ErrDependencyDown, apperrors.ExitUnavailable, "redis: %v", err)
			}
			deps.closers = append(deps.closers, client)
			checker.Register("redis", health.Ping(client.Ping))
			deps.sinks = append(deps.sinks, sink.NewRedis(client, cfg.Redis.KeyPrefix, cfg.Redis.CacheTTL))
		case config.SinkKafka:
			producer := kafka.NewProducer(cfg.Kafka, cfg.Kafka.Topics.RelatedPosts)
			deps.closers = append(deps.closers, producer)
			checker.Register("kafka", health.Ping(func(ctx context.Context) error {
				return kafka.Ping(ctx, cfg.Kafka.Brokers)
			}))
			deps.sinks = append(deps.sinks, sink.NewKafka(producer, cfg.Kafka.BatchSize))
		}
	}

	preflightCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := checker.Require(preflightCtx); err != nil {
		return deps, err
	}
	return deps, nil
}
