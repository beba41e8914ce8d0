package scraper

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/maltedev/catalog-scraper/internal/models"
	"github.com/maltedev/catalog-scraper/internal/observability"
	"github.com/maltedev/catalog-scraper/internal/parser"
)

var (
	ErrNoContent     = errors.New("no content fetched")
	ErrNoProductData = parser.ErrNoProductData
)

// Fetcher returns page text, or false when nothing could be fetched.
type Fetcher interface {
	Fetch(ctx context.Context, url string) (string, bool)
}

type Scraper interface {
	ParseProduct(ctx context.Context, url string) (*models.Product, error)
	ParseListing(ctx context.Context, url string) []models.Product
}

type Options struct {
	// MaxPages bounds listing pages per traversal. Zero means no limit.
	MaxPages int
}

// Service extracts product records from product and listing pages.
type Service struct {
	fetcher Fetcher
	parser  parser.Parser
	metrics *observability.Metrics
	logger  *slog.Logger
	opts    Options
}

func NewService(f Fetcher, p parser.Parser, metrics *observability.Metrics, logger *slog.Logger, opts Options) *Service {
	return &Service{
		fetcher: f,
		parser:  p,
		metrics: metrics,
		logger:  logger.With("component", "scraper"),
		opts:    opts,
	}
}

func (s *Service) ParseProduct(ctx context.Context, url string) (*models.Product, error) {
	html, ok := s.fetcher.Fetch(ctx, url)
	if !ok {
		s.logger.Warn("no html fetched for product", "url", url)
		s.metrics.ObserveExtractionFailure()
		return nil, fmt.Errorf("%w: %s", ErrNoContent, url)
	}
	s.metrics.ObservePage(string(parser.KindProduct))

	product, err := s.parser.ParseProduct(html, url)
	if err != nil {
		s.logger.Warn("failed to extract product fields", "url", url, "error", err)
		s.metrics.ObserveExtractionFailure()
		return nil, err
	}

	s.metrics.ObserveProduct()
	return product, nil
}

// ParseListing walks a listing and its next pages, parsing every product
// link once. Failures end the walk or skip the link; whatever was parsed
// is returned.
func (s *Service) ParseListing(ctx context.Context, url string) []models.Product {
	products := make([]models.Product, 0)
	visitedLinks := make(map[string]struct{})
	visitedPages := make(map[string]struct{})

	current := url
	pageNum := 1

	for current != "" {
		if ctx.Err() != nil {
			s.logger.Warn("listing traversal cancelled", "url", current, "page", pageNum)
			break
		}
		if s.opts.MaxPages > 0 && pageNum > s.opts.MaxPages {
			s.logger.Info("page limit reached", "seed", url, "max_pages", s.opts.MaxPages)
			break
		}
		visitedPages[current] = struct{}{}

		s.logger.Info("fetching listing page", "page", pageNum, "url", current)
		html, ok := s.fetcher.Fetch(ctx, current)
		if !ok {
			s.logger.Warn("no html fetched for listing", "url", current)
			break
		}
		s.metrics.ObservePage(string(parser.KindListing))

		listing, err := s.parser.ParseListing(html, current)
		if err != nil {
			s.logger.Error("listing parse failed", "url", current, "error", err)
			break
		}

		newLinks := make([]string, 0, len(listing.ProductLinks))
		for _, link := range listing.ProductLinks {
			if _, seen := visitedLinks[link]; seen {
				continue
			}
			visitedLinks[link] = struct{}{}
			newLinks = append(newLinks, link)
		}
		s.logger.Info("found new product links", "page", pageNum, "count", len(newLinks))

		for _, link := range newLinks {
			if !parser.IsProductLike(link) {
				s.logger.Debug("following non-typical product url", "url", link)
			}
			product, err := s.ParseProduct(ctx, link)
			if err != nil {
				continue
			}
			products = append(products, *product)
		}

		next := listing.NextURL
		if _, seen := visitedPages[next]; seen && next != "" {
			s.logger.Warn("pagination cycle detected", "url", next)
			break
		}
		current = next
		pageNum++
	}

	return products
}
