package parser

import (
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/maltedev/catalog-scraper/internal/models"
	"github.com/maltedev/catalog-scraper/internal/normalize"
)

var ErrNoProductData = errors.New("no product data")

type Parser interface {
	ParseProduct(html string, pageURL string) (*models.Product, error)
	ParseListing(html string, pageURL string) (*models.ListingPage, error)
}

// Strategy extracts a candidate record from a parsed page. ok is false
// when the strategy does not apply to the page.
type Strategy interface {
	Name() string
	Extract(doc *goquery.Document) (models.Product, bool)
}

// CatalogParser extracts product records and listing links from
// storefront pages. Strategies run in order; the first that applies wins.
type CatalogParser struct {
	strategies []Strategy
	logger     *slog.Logger
}

func NewCatalogParser(logger *slog.Logger) *CatalogParser {
	logger = logger.With("component", "parser")

	return &CatalogParser{
		strategies: []Strategy{
			&StructuredData{logger: logger},
			&DOMHeuristics{},
		},
		logger: logger,
	}
}

func (p *CatalogParser) Strategies() []Strategy {
	return p.strategies
}

func (p *CatalogParser) ParseProduct(html string, pageURL string) (*models.Product, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, fmt.Errorf("failed to parse HTML: %w", err)
	}

	var product models.Product
	for _, s := range p.strategies {
		candidate, ok := s.Extract(doc)
		if !ok {
			continue
		}
		p.logger.Debug("product extracted", "url", pageURL, "strategy", s.Name())
		product = candidate
		break
	}

	base, _ := url.Parse(pageURL)

	if product.URL == nil {
		product.URL = models.String(pageURL)
	} else {
		product.URL = models.String(resolve(base, *product.URL))
	}
	if product.Category == nil {
		product.Category = Breadcrumbs(doc)
	}

	tidy(&product, base)

	if !product.HasData() {
		return nil, fmt.Errorf("%w: %s", ErrNoProductData, pageURL)
	}

	return &product, nil
}

func (p *CatalogParser) ParseListing(html string, pageURL string) (*models.ListingPage, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, fmt.Errorf("failed to parse HTML: %w", err)
	}

	base, err := url.Parse(pageURL)
	if err != nil {
		return nil, fmt.Errorf("invalid page url %q: %w", pageURL, err)
	}

	return &models.ListingPage{
		URL:          pageURL,
		ProductLinks: ProductLinks(doc, base),
		NextURL:      NextPage(doc, base),
	}, nil
}

// tidy normalises the text fields in place.
func tidy(p *models.Product, base *url.URL) {
	if p.Title != nil {
		p.Title = normalize.TextPtr(*p.Title)
	}
	if p.Description != nil {
		p.Description = normalize.TextPtr(*p.Description)
	}
	if p.Category != nil {
		p.Category = normalize.TextPtr(*p.Category)
	}
	if p.ImageURL != nil {
		img := strings.TrimSpace(*p.ImageURL)
		if img != "" {
			img = resolve(base, img)
		}
		p.ImageURL = models.String(img)
	}
}

// resolve makes ref absolute against base. Unparseable refs are returned as is.
func resolve(base *url.URL, ref string) string {
	ref = strings.TrimSpace(ref)
	if base == nil {
		return ref
	}
	u, err := url.Parse(ref)
	if err != nil {
		return ref
	}
	return base.ResolveReference(u).String()
}

// nodeText is the text of s with child text runs joined by single spaces.
func nodeText(s *goquery.Selection) string {
	var parts []string
	s.Contents().Each(func(_ int, c *goquery.Selection) {
		if goquery.NodeName(c) == "#text" {
			if t := strings.TrimSpace(c.Text()); t != "" {
				parts = append(parts, t)
			}
			return
		}
		if t := nodeText(c); t != "" {
			parts = append(parts, t)
		}
	})
	return normalize.Whitespace(strings.Join(parts, " "))
}
