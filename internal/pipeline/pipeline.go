package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/maltedev/catalog-scraper/internal/models"
	"github.com/maltedev/catalog-scraper/internal/parser"
	"github.com/maltedev/catalog-scraper/internal/scraper"
)

// Sink receives the final, deduplicated product list of a run.
type Sink interface {
	Name() string
	Write(ctx context.Context, products []models.Product) error
}

type Options struct {
	RunID string
	// BatchSize groups seeds for progress logging.
	BatchSize int
	// Workers is the number of seeds scraped at once within a batch.
	Workers int
}

type Summary struct {
	RunID     string
	Seeds     int
	Extracted int
	Products  []models.Product
	Duration  time.Duration
}

// Orchestrator classifies seeds, scrapes them, dedupes the results and
// hands them to the sinks.
type Orchestrator struct {
	scraper scraper.Scraper
	output  Sink
	extra   []Sink
	logger  *slog.Logger
	opts    Options
}

// New builds an orchestrator. output must succeed for a run to succeed;
// failures of extra sinks are only logged.
func New(s scraper.Scraper, output Sink, extra []Sink, logger *slog.Logger, opts Options) *Orchestrator {
	if opts.RunID == "" {
		opts.RunID = uuid.NewString()
	}
	if opts.BatchSize < 1 {
		opts.BatchSize = 8
	}
	if opts.Workers < 1 {
		opts.Workers = 1
	}

	return &Orchestrator{
		scraper: s,
		output:  output,
		extra:   extra,
		logger:  logger.With("component", "pipeline", "run_id", opts.RunID),
		opts:    opts,
	}
}

func (o *Orchestrator) RunID() string {
	return o.opts.RunID
}

func (o *Orchestrator) Run(ctx context.Context, seeds []string) (*Summary, error) {
	start := time.Now()
	o.logger.Info("run started", "seeds", len(seeds), "batch_size", o.opts.BatchSize, "workers", o.opts.Workers)

	all := o.Collect(ctx, seeds)
	products := models.Dedupe(all)

	summary := &Summary{
		RunID:     o.opts.RunID,
		Seeds:     len(seeds),
		Extracted: len(all),
		Products:  products,
	}

	// a cancelled run still delivers what it extracted
	writeCtx := context.WithoutCancel(ctx)

	if err := o.output.Write(writeCtx, products); err != nil {
		summary.Duration = time.Since(start)
		return summary, fmt.Errorf("%s sink: %w", o.output.Name(), err)
	}
	o.logger.Info("saved products", "sink", o.output.Name(), "count", len(products))

	for _, sink := range o.extra {
		if err := sink.Write(writeCtx, products); err != nil {
			o.logger.Error("sink failed", "sink", sink.Name(), "error", err)
			continue
		}
		o.logger.Info("saved products", "sink", sink.Name(), "count", len(products))
	}

	summary.Duration = time.Since(start)
	o.logger.Info("run finished",
		"seeds", summary.Seeds,
		"extracted", summary.Extracted,
		"unique", len(products),
		"duration", summary.Duration,
	)

	return summary, nil
}

// Collect scrapes every seed and returns the records in seed order,
// before dedupe.
func (o *Orchestrator) Collect(ctx context.Context, seeds []string) []models.Product {
	all := make([]models.Product, 0)

	for i, batch := range Batches(seeds, o.opts.BatchSize) {
		if ctx.Err() != nil {
			o.logger.Warn("run cancelled, skipping remaining seeds", "remaining_batches_from", i+1)
			break
		}
		o.logger.Info("processing batch", "batch", i+1, "size", len(batch))

		results := make([][]models.Product, len(batch))

		if o.opts.Workers == 1 {
			for j, seed := range batch {
				results[j] = o.scrapeSeed(ctx, seed)
			}
		} else {
			g, gctx := errgroup.WithContext(ctx)
			g.SetLimit(o.opts.Workers)
			for j, seed := range batch {
				g.Go(func() error {
					results[j] = o.scrapeSeed(gctx, seed)
					return nil
				})
			}
			_ = g.Wait()
		}

		for _, r := range results {
			all = append(all, r...)
		}
	}

	return all
}

func (o *Orchestrator) scrapeSeed(ctx context.Context, seed string) []models.Product {
	kind := parser.Classify(seed)
	o.logger.Debug("processing url", "kind", kind, "url", seed)

	if kind == parser.KindProduct {
		product, err := o.scraper.ParseProduct(ctx, seed)
		if err != nil {
			o.logger.Warn("failed to parse product", "url", seed, "error", err)
			return nil
		}
		return []models.Product{*product}
	}

	if !parser.IsListingLike(seed) {
		o.logger.Debug("unrecognised url shape, treating as listing", "url", seed)
	}
	return o.scraper.ParseListing(ctx, seed)
}

// Batches splits items into consecutive chunks of at most size.
func Batches(items []string, size int) [][]string {
	if size < 1 {
		size = 1
	}

	batches := make([][]string, 0, (len(items)+size-1)/size)
	for start := 0; start < len(items); start += size {
		end := min(start+size, len(items))
		batches = append(batches, items[start:end])
	}
	return batches
}
