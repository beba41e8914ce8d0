package parser

import (
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/PuerkitoBio/goquery"

	"github.com/maltedev/catalog-scraper/internal/models"
	"github.com/maltedev/catalog-scraper/internal/normalize"
)

const minDescriptionLength = 20

var (
	titleSelector       = "h1, h1.product-title, h1[itemprop='name'], meta[itemprop='name']"
	descriptionSelector = "[itemprop='description'], .product-description, #description, .description"
	breadcrumbSelector  = "nav.breadcrumb a, .breadcrumb a, [itemtype*='BreadcrumbList'] a"

	priceSelectors = []string{
		".price",
		".product-price",
		".price__current",
		".product__price",
	}

	imageSelectors = []string{
		"img[itemprop='image']",
		"img.product-image",
		"img#productImage",
		"meta[property='og:image']",
	}

	priceItemprop = regexp.MustCompile(`(?i)price`)
)

// DOMHeuristics reads product fields from common storefront markup. It
// always applies, so it belongs last in the strategy list.
type DOMHeuristics struct{}

func (d *DOMHeuristics) Name() string {
	return "dom-heuristics"
}

func (d *DOMHeuristics) Extract(doc *goquery.Document) (models.Product, bool) {
	return models.Product{
		Title:       models.String(d.title(doc)),
		Description: models.String(d.description(doc)),
		Price:       d.price(doc),
		ImageURL:    models.String(d.image(doc)),
	}, true
}

func (d *DOMHeuristics) title(doc *goquery.Document) string {
	var title string

	doc.Find(titleSelector).EachWithBreak(func(_ int, s *goquery.Selection) bool {
		if goquery.NodeName(s) == "meta" {
			title = strings.TrimSpace(s.AttrOr("content", ""))
		} else {
			title = nodeText(s)
		}
		return title == ""
	})

	if title == "" {
		title = metaContent(doc, "meta[property='og:title']")
	}

	return title
}

func (d *DOMHeuristics) description(doc *goquery.Document) string {
	var desc string

	doc.Find(descriptionSelector).EachWithBreak(func(_ int, s *goquery.Selection) bool {
		text := nodeText(s)
		if utf8.RuneCountInString(text) > minDescriptionLength {
			desc = text
			return false
		}
		return true
	})

	if desc == "" {
		desc = metaContent(doc, "meta[name='description']")
	}

	return desc
}

func (d *DOMHeuristics) price(doc *goquery.Document) *float64 {
	var price *float64

	doc.Find("[itemprop]").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		if !priceItemprop.MatchString(s.AttrOr("itemprop", "")) {
			return true
		}
		value := s.AttrOr("content", "")
		if value == "" {
			value = strings.TrimSpace(s.Text())
		}
		price = normalize.PricePtr(value)
		return price == nil
	})

	if price != nil {
		return price
	}

	for _, selector := range priceSelectors {
		s := doc.Find(selector).First()
		if s.Length() == 0 {
			continue
		}
		if price = normalize.PricePtr(nodeText(s)); price != nil {
			return price
		}
	}

	return nil
}

func (d *DOMHeuristics) image(doc *goquery.Document) string {
	for _, selector := range imageSelectors {
		s := doc.Find(selector).First()
		if s.Length() == 0 {
			continue
		}
		img := s.AttrOr("content", "")
		if img == "" {
			img = s.AttrOr("src", "")
		}
		if img = strings.TrimSpace(img); img != "" {
			return img
		}
	}
	return ""
}

// Breadcrumbs joins the crumb trail with " > ", leaving out the root crumb
// when there is more than one.
func Breadcrumbs(doc *goquery.Document) *string {
	var crumbs []string

	doc.Find(breadcrumbSelector).Each(func(_ int, s *goquery.Selection) {
		if text := nodeText(s); text != "" {
			crumbs = append(crumbs, text)
		}
	})

	switch len(crumbs) {
	case 0:
		return nil
	case 1:
		return models.String(crumbs[0])
	default:
		return models.String(strings.Join(crumbs[1:], " > "))
	}
}

func metaContent(doc *goquery.Document, selector string) string {
	return strings.TrimSpace(doc.Find(selector).First().AttrOr("content", ""))
}
