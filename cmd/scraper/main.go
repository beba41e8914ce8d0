package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/maltedev/catalog-scraper/internal/config"
	"github.com/maltedev/catalog-scraper/internal/database"
	"github.com/maltedev/catalog-scraper/internal/events"
	"github.com/maltedev/catalog-scraper/internal/fetch"
	"github.com/maltedev/catalog-scraper/internal/observability"
	"github.com/maltedev/catalog-scraper/internal/parser"
	"github.com/maltedev/catalog-scraper/internal/pipeline"
	"github.com/maltedev/catalog-scraper/internal/ratelimit"
	"github.com/maltedev/catalog-scraper/internal/scraper"
	"github.com/maltedev/catalog-scraper/internal/storage"
	"github.com/maltedev/catalog-scraper/pkg/logger"
)

const (
	defaultInput    = "data/input_urls.txt"
	defaultOutput   = "data/output_sample.json"
	defaultSettings = "config/settings.json"
)

func main() {
	os.Exit(run())
}

func run() int {
	var input, output, settings string
	flag.StringVar(&input, "i", defaultInput, "Path to input URLs file")
	flag.StringVar(&input, "input", defaultInput, "Path to input URLs file")
	flag.StringVar(&output, "o", defaultOutput, "Path to output JSON file")
	flag.StringVar(&output, "output", defaultOutput, "Path to output JSON file")
	flag.StringVar(&settings, "s", defaultSettings, "Path to settings JSON")
	flag.StringVar(&settings, "settings", defaultSettings, "Path to settings JSON")
	compact := flag.Bool("compact", false, "Write compact JSON instead of indented")
	flag.Usage = func() {
		fmt.Fprintf(flag.CommandLine.Output(), "Usage: %s [flags] [url ...]\n\nURLs given as arguments replace the input file.\n\n", os.Args[0])
		flag.PrintDefaults()
	}
	flag.Parse()

	cfg, err := config.Load(settings)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		return 1
	}

	log := logger.New(cfg.Logging.Level, cfg.Logging.Format)
	log.Info("starting catalog scraper", "settings", settings)

	seeds, err := storage.LoadSeeds(flag.Args(), input)
	switch {
	case errors.Is(err, storage.ErrNoURLs):
		log.Warn("no seed urls to process", "input", input)
	case err != nil:
		log.Error("failed to load seed urls", "input", input, "error", err)
		return 1
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigChan
		log.Info("shutdown signal received, finishing with what was extracted")
		cancel()
	}()

	runID := uuid.NewString()
	metrics := observability.NewMetrics()
	if cfg.Metrics.Addr != "" {
		observability.Start(ctx, cfg.Metrics.Addr, metrics, log)
	}

	pacer := ratelimit.NewPacer(cfg.Scraper.RequestDelay(), cfg.Scraper.RequestRate())
	fetcher := fetch.New(fetch.Options{
		Timeout:          cfg.Scraper.Timeout(),
		MaxAttempts:      cfg.Scraper.MaxRetries,
		BackoffBase:      cfg.Scraper.BackoffBase(),
		BackoffMax:       cfg.Scraper.BackoffMax(),
		RotateUserAgents: cfg.Scraper.RotateUserAgents,
		UserAgents:       cfg.Scraper.UserAgents,
		Headers:          cfg.Scraper.Headers,
		MaxBodyBytes:     cfg.Scraper.MaxBodyBytes,
	}, pacer, metrics, log)

	svc := scraper.NewService(fetcher, parser.NewCatalogParser(log), metrics, log, scraper.Options{
		MaxPages: cfg.Scraper.MaxPages,
	})

	out := storage.NewJSONFile(output, cfg.Output.Pretty && !*compact)
	extra, closeSinks := optionalSinks(ctx, cfg, runID, log)
	defer closeSinks()

	orchestrator := pipeline.New(svc, out, extra, log, pipeline.Options{
		RunID:     runID,
		BatchSize: cfg.Scraper.ConcurrencyBatch,
		Workers:   cfg.Scraper.Workers,
	})

	summary, err := orchestrator.Run(ctx, seeds)
	if err != nil {
		log.Error("failed to write output", "output", output, "error", err)
		return 1
	}

	log.Info("saved products", "count", len(summary.Products), "output", out.Path())
	return 0
}

// optionalSinks connects the configured PostgreSQL and Redis sinks. A sink
// that cannot connect is skipped.
func optionalSinks(ctx context.Context, cfg *config.Config, runID string, log *slog.Logger) ([]pipeline.Sink, func()) {
	var sinks []pipeline.Sink
	var closers []func()

	if cfg.Database.DSN != "" {
		db, err := database.New(ctx, database.Config{DSN: cfg.Database.DSN})
		if err != nil {
			log.Warn("postgres sink disabled", "error", err)
		} else {
			store := database.NewProductStore(db, runID, log)
			if err := store.EnsureSchema(ctx); err != nil {
				log.Warn("postgres sink disabled", "error", err)
				db.Close()
			} else {
				sinks = append(sinks, store)
				closers = append(closers, db.Close)
			}
		}
	}

	if cfg.Redis.Addr != "" {
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err := client.Ping(ctx).Err(); err != nil {
			log.Warn("redis sink disabled", "addr", cfg.Redis.Addr, "error", err)
			_ = client.Close()
		} else {
			publisher := events.NewPublisher(client, cfg.Redis.Stream, runID, log)
			sinks = append(sinks, publisher)
			closers = append(closers, func() { _ = publisher.Close() })
		}
	}

	return sinks, func() {
		for _, c := range closers {
			c()
		}
	}
}
